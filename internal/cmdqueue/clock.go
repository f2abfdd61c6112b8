package cmdqueue

import "sync/atomic"

// Clock hands out the per-queue sequence indices stamped on commands.
//
// The first call to Next returns 0, so the n-th command queued on a queue
// carries index n-1. Breakpoints are registered against these indices.
//
// Thread-safety: Clock is safe for concurrent use (atomic operations).
type Clock struct {
	seq atomic.Uint32
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock whose next index is start.
func NewClockAt(start uint32) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next returns the next sequence index and advances the clock.
func (c *Clock) Next() uint32 {
	return c.seq.Add(1) - 1
}

// Current returns how many indices have been handed out.
func (c *Clock) Current() uint32 {
	return c.seq.Load()
}
