// Package corethread runs the core goroutine: the single consumer that
// plays back every command bound for render-side state.
//
// Producers talk to it in two ways:
//
//   - An Accessor owns a producer-bound command queue. Commands accumulate
//     there until Submit hands the whole buffer to the core goroutine.
//   - QueueCommand and QueueReturnCommand append to the thread's own
//     multi-producer queue and wake the loop directly.
//
// Ordering: submissions play in arrival order and each one is FIFO. Direct
// commands run after the submission being played when they arrive, or
// straight away when the loop is idle. There is no ordering between
// different accessors beyond arrival order of their submissions.
package corethread

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/thread"
)

var (
	// ErrStopped is returned when submitting to a thread that has stopped.
	ErrStopped = errors.New("corethread: stopped")
	// ErrAlreadyRunning is returned by a second concurrent Run.
	ErrAlreadyRunning = errors.New("corethread: already running")
)

// DirectQueueIndex is the queue index of the thread's own queue. Accessors
// are numbered from 1.
const DirectQueueIndex = 0

// Thread is the core goroutine's run loop.
//
// Thread-safety model:
//   - Run(): exactly one goroutine, which becomes the core goroutine
//   - Stop(), QueueCommand(), QueueReturnCommand(), NewAccessor(): any goroutine
//   - Accessor methods: the goroutine that created the accessor
type Thread struct {
	inbox  *inbox
	direct *cmdqueue.Queue
	pool   *cmdqueue.BufferPool

	running   atomic.Bool
	owner     atomic.Int64
	nextIndex atomic.Uint32
	played    atomic.Uint64

	notify      func(callbackID uint32)
	observer    cmdqueue.Observer
	breakpoints *cmdqueue.Breakpoints
	logger      *slog.Logger
	checks      bool
}

// Option configures a Thread.
type Option func(*Thread)

// WithLogger sets the logger for the loop and every queue it creates.
func WithLogger(l *slog.Logger) Option {
	return func(t *Thread) {
		t.logger = l
	}
}

// WithObserver reports every played or cancelled command to o.
// o is called on the core goroutine for playback.
func WithObserver(o cmdqueue.Observer) Option {
	return func(t *Thread) {
		t.observer = o
	}
}

// WithNotify installs the callback run after each command queued with
// cmdqueue.Notify.
func WithNotify(fn func(callbackID uint32)) Option {
	return func(t *Thread) {
		t.notify = fn
	}
}

// WithBreakpoints applies the registry to every queue the thread creates.
func WithBreakpoints(b *cmdqueue.Breakpoints) Option {
	return func(t *Thread) {
		t.breakpoints = b
	}
}

// WithPool shares a buffer pool between all queues of the thread.
func WithPool(p *cmdqueue.BufferPool) Option {
	return func(t *Thread) {
		t.pool = p
	}
}

// WithThreadChecks toggles goroutine assertions on accessor queues.
func WithThreadChecks(enabled bool) Option {
	return func(t *Thread) {
		t.checks = enabled
	}
}

// New creates a stopped thread. Call Run on the goroutine that should
// become the core goroutine.
func New(opts ...Option) *Thread {
	t := &Thread{
		inbox:  newInbox(),
		logger: slog.Default(),
		checks: true,
	}
	for _, opt := range opts {
		opt(t)
	}
	if t.pool == nil {
		t.pool = cmdqueue.NewBufferPool(cmdqueue.DefaultPoolCapacity, cmdqueue.DefaultBufferCapacity)
	}
	t.direct = cmdqueue.New(t.queueOptions(DirectQueueIndex, cmdqueue.WithAnyGoroutine())...)
	return t
}

func (t *Thread) queueOptions(idx uint32, extra ...cmdqueue.Option) []cmdqueue.Option {
	opts := []cmdqueue.Option{
		cmdqueue.WithIndex(idx),
		cmdqueue.WithPool(t.pool),
		cmdqueue.WithLogger(t.logger),
		cmdqueue.WithThreadChecks(t.checks),
	}
	if t.observer != nil {
		opts = append(opts, cmdqueue.WithObserver(t.observer))
	}
	if t.breakpoints != nil {
		opts = append(opts, cmdqueue.WithBreakpoints(t.breakpoints))
	}
	return append(opts, extra...)
}

// Run plays back submissions and direct commands until ctx is cancelled or
// Stop is called. After Stop, everything already accepted is played before
// Run returns nil. On cancellation pending work is dropped and ctx.Err() is
// returned.
func (t *Thread) Run(ctx context.Context) error {
	if !t.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer t.running.Store(false)

	t.owner.Store(int64(thread.Current()))
	defer t.owner.Store(0)

	t.logger.Info("core thread starting", "goroutine", thread.Current())

	for {
		if s, ok := t.inbox.tryDequeue(); ok {
			t.play(s)
			t.playDirect()
			continue
		}
		if t.playDirect() {
			continue
		}

		select {
		case <-ctx.Done():
			t.logger.Info("core thread stopping: context cancelled")
			t.inbox.close()
			return ctx.Err()

		case <-t.inbox.wait():
			// The signal channel is closed by Stop; exit once drained.
			if t.inbox.isClosed() && t.inbox.len() == 0 && t.direct.IsEmpty() {
				t.logger.Info("core thread stopping: queue closed", "submissions", t.played.Load())
				return nil
			}
		}
	}
}

// Stop closes the inbox. Run returns once it has drained.
func (t *Thread) Stop() {
	t.inbox.close()
}

// IsRunning reports whether Run is active.
func (t *Thread) IsRunning() bool {
	return t.running.Load()
}

// IsCoreThread reports whether the caller is the goroutine running Run.
func (t *Thread) IsCoreThread() bool {
	owner := t.owner.Load()
	return owner != 0 && owner == int64(thread.Current())
}

// Submissions returns how many submissions have been played back.
func (t *Thread) Submissions() uint64 {
	return t.played.Load()
}

// Pool returns the buffer pool shared by the thread's queues.
func (t *Thread) Pool() *cmdqueue.BufferPool {
	return t.pool
}

// QueueCommand runs fn on the core goroutine. Called on the core goroutine
// it runs immediately, after any direct commands still pending. Returns
// ErrStopped once the thread has been stopped; fn is then dropped.
func (t *Thread) QueueCommand(fn func(), opts ...cmdqueue.CommandOption) error {
	if !t.admitDirect(func() { t.direct.Queue(fn, opts...) }) {
		t.logger.Warn("direct command rejected: core thread stopped")
		return ErrStopped
	}
	return nil
}

// QueueReturnCommand runs fn on the core goroutine and returns its result
// handle. Called on the core goroutine the op is complete on return.
// After Stop it returns ErrStopped and no op.
func (t *Thread) QueueReturnCommand(fn func(op *cmdqueue.AsyncOp), opts ...cmdqueue.CommandOption) (*cmdqueue.AsyncOp, error) {
	var op *cmdqueue.AsyncOp
	if !t.admitDirect(func() { op = t.direct.QueueReturn(fn, opts...) }) {
		t.logger.Warn("direct command rejected: core thread stopped")
		return nil, ErrStopped
	}
	return op, nil
}

// admitDirect appends to the direct queue. Other goroutines go through the
// inbox lock so a stopped thread never accepts work it will not play; the
// core goroutine itself plays inline, even while draining after Stop.
func (t *Thread) admitDirect(push func()) bool {
	if t.IsCoreThread() {
		push()
		t.playDirect()
		return true
	}
	return t.inbox.admit(push)
}

func (t *Thread) play(s submission) {
	s.queue.PlaybackWithNotify(s.buf, t.notify)
	t.played.Add(1)
	s.done.CompleteOperation(nil)
}

func (t *Thread) playDirect() bool {
	if t.direct.IsEmpty() {
		return false
	}
	t.direct.PlaybackWithNotify(t.direct.Flush(), t.notify)
	return true
}

// submit hands buf to the loop, or plays it inline when called on the core
// goroutine with block set.
func (t *Thread) submit(q *cmdqueue.Queue, buf *cmdqueue.Buffer, block bool) (*cmdqueue.AsyncOp, error) {
	s := submission{queue: q, buf: buf, done: cmdqueue.NewAsyncOp()}

	if block && t.IsCoreThread() {
		t.play(s)
		return s.done, nil
	}

	if !t.inbox.enqueue(s) {
		t.logger.Warn("submission rejected: core thread stopped",
			"queue", q.Index(),
			"commands", buf.Len(),
		)
		t.pool.Release(buf)
		return nil, ErrStopped
	}

	if block {
		s.done.BlockUntilComplete()
	}
	return s.done, nil
}
