package engine

import "sync/atomic"

// FrameClock numbers frames. Next returns 1 on the first call.
type FrameClock interface {
	Next() int64
	Current() int64
}

// Clock is the default FrameClock.
//
// Thread-safety: Clock is safe for concurrent use, though only the sim
// goroutine advances it.
type Clock struct {
	frame atomic.Int64
}

// NewClock creates a clock before frame 1.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next frame is start+1.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.frame.Store(start)
	return c
}

// Next advances to and returns the next frame.
func (c *Clock) Next() int64 {
	return c.frame.Add(1)
}

// Current returns the last frame started, or the start value.
func (c *Clock) Current() int64 {
	return c.frame.Load()
}
