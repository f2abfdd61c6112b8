package corethread

import "github.com/roach88/simcore/internal/cmdqueue"

// Accessor batches commands from one producer goroutine and hands them to
// the core goroutine on Submit.
type Accessor struct {
	t *Thread
	q *cmdqueue.Queue
}

// NewAccessor creates an accessor bound to the calling goroutine. Each
// accessor gets the next queue index, starting at 1.
func (t *Thread) NewAccessor() *Accessor {
	idx := t.nextIndex.Add(1)
	return &Accessor{
		t: t,
		q: cmdqueue.New(t.queueOptions(idx)...),
	}
}

// Queue appends a command to the pending batch.
func (a *Accessor) Queue(fn func(), opts ...cmdqueue.CommandOption) {
	a.q.Queue(fn, opts...)
}

// QueueReturn appends a value-returning command to the pending batch.
// The op completes once the batch is submitted and played back.
func (a *Accessor) QueueReturn(fn func(op *cmdqueue.AsyncOp), opts ...cmdqueue.CommandOption) *cmdqueue.AsyncOp {
	return a.q.QueueReturn(fn, opts...)
}

// Submit hands the pending batch to the core goroutine. The returned op
// completes once the batch has been played back; with block set Submit
// waits for that itself.
func (a *Accessor) Submit(block bool) (*cmdqueue.AsyncOp, error) {
	return a.t.submit(a.q, a.q.Flush(), block)
}

// CancelAll drops the pending batch.
func (a *Accessor) CancelAll() {
	a.q.CancelAll()
}

// IsEmpty reports whether no commands are pending.
func (a *Accessor) IsEmpty() bool {
	return a.q.IsEmpty()
}

// Len returns the number of pending commands.
func (a *Accessor) Len() int {
	return a.q.Len()
}

// Index returns the accessor's queue index.
func (a *Accessor) Index() uint32 {
	return a.q.Index()
}

// Rebind moves the accessor to the calling goroutine.
func (a *Accessor) Rebind() {
	a.q.Rebind()
}

// CommandQueue exposes the underlying queue.
func (a *Accessor) CommandQueue() *cmdqueue.Queue {
	return a.q
}
