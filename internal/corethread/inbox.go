package corethread

import (
	"sync"

	"github.com/roach88/simcore/internal/cmdqueue"
)

// submission is a flushed buffer waiting for the core goroutine.
type submission struct {
	queue *cmdqueue.Queue
	buf   *cmdqueue.Buffer
	done  *cmdqueue.AsyncOp
}

// inbox is a thread-safe FIFO of submissions.
//
// It is unbounded so producers never block on a busy core goroutine. A
// buffered signal channel of size 1 lets the run loop wait with select
// alongside context cancellation; closing the inbox closes the channel and
// wakes the loop for good.
type inbox struct {
	mu     sync.Mutex
	items  []submission
	closed bool
	signal chan struct{}
}

func newInbox() *inbox {
	return &inbox{
		items:  make([]submission, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// enqueue appends s. Returns false if the inbox is closed.
func (b *inbox) enqueue(s submission) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	b.items = append(b.items, s)
	b.wakeLocked()
	return true
}

// admit runs push and wakes the loop, unless the inbox is closed. push runs
// under the inbox lock, so nothing it adds can slip past the loop's final
// empty check.
func (b *inbox) admit(push func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return false
	}
	push()
	b.wakeLocked()
	return true
}

func (b *inbox) wakeLocked() {
	select {
	case b.signal <- struct{}{}:
	default:
	}
}

// tryDequeue removes the front submission without blocking.
func (b *inbox) tryDequeue() (submission, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if len(b.items) == 0 {
		return submission{}, false
	}

	s := b.items[0]
	// Clear the slot so the buffer and its closures can be collected.
	b.items[0] = submission{}
	if len(b.items) == 1 {
		b.items = b.items[:0]
	} else {
		b.items = b.items[1:]
	}
	return s, true
}

func (b *inbox) wait() <-chan struct{} {
	return b.signal
}

func (b *inbox) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *inbox) isClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.closed
}

// close stops accepting submissions and wakes the loop.
func (b *inbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true
	close(b.signal)
}
