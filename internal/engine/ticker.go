package engine

import (
	"sync/atomic"
	"time"
)

// Ticker paces the frame loop. Run waits for one tick before each frame.
type Ticker interface {
	Start()
	Stop()
	C() <-chan struct{}
}

// BasicTicker ticks at a fixed interval. Ticks that the frame loop is too
// slow to take are dropped.
type BasicTicker struct {
	interval time.Duration
	ticker   *time.Ticker
	c        chan struct{}
	done     chan struct{}
}

// NewBasicTicker creates a stopped ticker.
func NewBasicTicker(interval time.Duration) *BasicTicker {
	return &BasicTicker{interval: interval}
}

// Start begins ticking. Panics if already started or the interval is not
// positive.
func (t *BasicTicker) Start() {
	if t.ticker != nil {
		panic("engine: BasicTicker already started")
	}
	if t.interval <= 0 {
		panic("engine: BasicTicker interval must be positive")
	}
	t.ticker = time.NewTicker(t.interval)
	t.c = make(chan struct{}, 1)
	t.done = make(chan struct{})
	go func(src <-chan time.Time, c chan struct{}, done chan struct{}) {
		for {
			select {
			case <-done:
				return
			case <-src:
				select {
				case c <- struct{}{}:
				default:
				}
			}
		}
	}(t.ticker.C, t.c, t.done)
}

// Stop halts the ticker. Panics if it was never started.
func (t *BasicTicker) Stop() {
	if t.ticker == nil {
		panic("engine: BasicTicker not started")
	}
	t.ticker.Stop()
	close(t.done)
	t.ticker = nil
}

// C returns the tick channel.
func (t *BasicTicker) C() <-chan struct{} {
	return t.c
}

// ManualTicker ticks only when told to. Tests use it to step the loop.
type ManualTicker struct {
	c       chan struct{}
	started atomic.Bool
}

// NewManualTicker creates a stopped ticker.
func NewManualTicker() *ManualTicker {
	return &ManualTicker{c: make(chan struct{})}
}

// Start implements Ticker.
func (t *ManualTicker) Start() {
	if !t.started.CompareAndSwap(false, true) {
		panic("engine: ManualTicker already started")
	}
}

// Stop implements Ticker.
func (t *ManualTicker) Stop() {
	if !t.started.CompareAndSwap(true, false) {
		panic("engine: ManualTicker not started")
	}
}

// C implements Ticker.
func (t *ManualTicker) C() <-chan struct{} {
	return t.c
}

// Tick delivers n ticks, blocking until each is taken.
func (t *ManualTicker) Tick(n int) {
	for i := 0; i < n; i++ {
		t.c <- struct{}{}
	}
}
