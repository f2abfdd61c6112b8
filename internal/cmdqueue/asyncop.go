package cmdqueue

import (
	"context"
	"sync"
)

// AsyncOp is a single-assignment future for a value produced by a command
// running on the consumer goroutine.
//
// The producer holds the AsyncOp returned by QueueReturn; the command
// callback (or playback, as a fallback) completes it exactly once.
type AsyncOp struct {
	mu        sync.Mutex
	completed bool
	value     any
	done      chan struct{}
}

// NewAsyncOp creates a pending operation.
func NewAsyncOp() *AsyncOp {
	return &AsyncOp{done: make(chan struct{})}
}

// HasCompleted reports whether the operation has a value. Never blocks.
func (op *AsyncOp) HasCompleted() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.completed
}

// CompleteOperation stores the result and wakes every waiter.
// Completing twice is a programming error and panics with ErrAlreadyCompleted.
func (op *AsyncOp) CompleteOperation(value any) {
	op.mu.Lock()
	if op.completed {
		op.mu.Unlock()
		panic(ErrAlreadyCompleted)
	}
	op.value = value
	op.completed = true
	op.mu.Unlock()

	close(op.done)
}

// ReturnValue returns the completed value.
// Panics with ErrNotCompleted if the operation is still pending.
func (op *AsyncOp) ReturnValue() any {
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.completed {
		panic(ErrNotCompleted)
	}
	return op.value
}

// BlockUntilComplete suspends the caller until the operation completes.
// Returns immediately if it already has, so the completing goroutine may
// call it after completion. There is no timeout; see Wait.
func (op *AsyncOp) BlockUntilComplete() {
	<-op.done
}

// Wait blocks until the operation completes or ctx is done.
func (op *AsyncOp) Wait(ctx context.Context) error {
	select {
	case <-op.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done returns a channel closed on completion, for use in select.
func (op *AsyncOp) Done() <-chan struct{} {
	return op.done
}

// Result returns the completed value asserted to T.
// ok is false when the operation is pending or the value is not a T
// (including the nil value left by an auto-resolved command).
func Result[T any](op *AsyncOp) (T, bool) {
	var zero T
	op.mu.Lock()
	defer op.mu.Unlock()
	if !op.completed {
		return zero, false
	}
	v, ok := op.value.(T)
	if !ok {
		return zero, false
	}
	return v, true
}
