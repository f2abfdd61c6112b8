package cmdqueue

import (
	"log/slog"
	"sync"

	"github.com/roach88/simcore/internal/thread"
)

// Queue is a FIFO of commands produced on one goroutine and played back on
// another.
//
// Thread-safety model:
//   - Queue(), QueueReturn(), CancelAll(): owner goroutine only (asserted),
//     unless the queue was created WithAnyGoroutine
//   - Flush(), IsEmpty(), Len(): any goroutine
//   - Playback(), PlaybackWithNotify(): the consumer goroutine, on a buffer
//     returned by Flush. The producer never touches a flushed buffer again;
//     playing back on the producer goroutine panics on a bound queue.
//
// The active buffer pointer is guarded by a mutex so Flush is atomic with
// respect to a concurrent enqueue.
type Queue struct {
	mu       sync.Mutex
	active   *Buffer
	pool     *BufferPool
	affinity thread.Affinity
	index    uint32
	clock    *Clock

	breakpoints *Breakpoints
	observer    Observer
	logger      *slog.Logger
	anyThread   bool
	noChecks    bool
}

// Option configures a Queue.
type Option func(*Queue)

// WithAnyGoroutine lets any goroutine enqueue. Enqueues are still serialized
// by the queue's mutex; ordering between producers is arrival order.
func WithAnyGoroutine() Option {
	return func(q *Queue) {
		q.anyThread = true
	}
}

// WithThreadChecks toggles the owner-goroutine assertion. Disabling it keeps
// the single-producer contract but stops enforcing it.
func WithThreadChecks(enabled bool) Option {
	return func(q *Queue) {
		q.noChecks = !enabled
	}
}

// WithIndex sets the queue index used by breakpoints and playback events.
func WithIndex(idx uint32) Option {
	return func(q *Queue) {
		q.index = idx
	}
}

// WithPool shares a buffer pool between queues.
func WithPool(p *BufferPool) Option {
	return func(q *Queue) {
		q.pool = p
	}
}

// WithBreakpoints enables breakpoint checks against the registry.
func WithBreakpoints(b *Breakpoints) Option {
	return func(q *Queue) {
		q.breakpoints = b
	}
}

// WithObserver reports every executed or cancelled command to o.
func WithObserver(o Observer) Option {
	return func(q *Queue) {
		q.observer = o
	}
}

// WithLogger sets the logger used for playback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(q *Queue) {
		q.logger = l
	}
}

// New creates a queue bound to the calling goroutine.
func New(opts ...Option) *Queue {
	q := &Queue{
		clock:  NewClock(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}

	if q.pool == nil {
		q.pool = NewBufferPool(DefaultPoolCapacity, DefaultBufferCapacity)
	}
	if q.anyThread || q.noChecks {
		q.affinity = thread.Unbound()
	} else {
		q.affinity = thread.Bind()
	}
	q.active = q.pool.Acquire()

	return q
}

// Rebind moves producer ownership to the calling goroutine.
func (q *Queue) Rebind() {
	if q.anyThread || q.noChecks {
		return
	}
	q.affinity.Rebind()
}

// Index returns the queue index.
func (q *Queue) Index() uint32 {
	return q.index
}

// Owner returns the producer goroutine, or 0 for a multi-producer queue.
func (q *Queue) Owner() thread.ID {
	return q.affinity.Owner()
}

// Pool returns the buffer pool backing the queue.
func (q *Queue) Pool() *BufferPool {
	return q.pool
}

// Queue appends a command with no return value.
func (q *Queue) Queue(fn func(), opts ...CommandOption) {
	q.affinity.Check("cmdqueue", "Queue")

	cmd := QueuedCommand{callback: fn}
	for _, opt := range opts {
		opt(&cmd)
	}
	q.push(cmd)
}

// QueueReturn appends a command that produces a value and returns its
// AsyncOp in the pending state. fn is expected to call CompleteOperation.
func (q *Queue) QueueReturn(fn func(op *AsyncOp), opts ...CommandOption) *AsyncOp {
	q.affinity.Check("cmdqueue", "QueueReturn")

	op := NewAsyncOp()
	cmd := QueuedCommand{
		returnCallback: fn,
		op:             op,
		returnsValue:   true,
	}
	for _, opt := range opts {
		opt(&cmd)
	}
	q.push(cmd)

	return op
}

// push stamps the sequence index, checks breakpoints and appends.
// A breakpoint fires before the command reaches the buffer.
func (q *Queue) push(cmd QueuedCommand) {
	q.mu.Lock()
	defer q.mu.Unlock()

	seq := q.clock.Next()
	if q.breakpoints != nil {
		q.breakpoints.check(q.index, seq)
	}
	cmd.seq = seq
	q.active.append(cmd)
}

// Flush detaches the active buffer and installs an empty one from the pool.
// The returned buffer belongs to the caller until it is played back or
// released.
func (q *Queue) Flush() *Buffer {
	fresh := q.pool.Acquire()

	q.mu.Lock()
	buf := q.active
	q.active = fresh
	q.mu.Unlock()

	return buf
}

// Playback executes every command in buf in submission order, then returns
// buf to the pool.
func (q *Queue) Playback(buf *Buffer) {
	q.PlaybackWithNotify(buf, nil)
}

// PlaybackWithNotify is Playback that also calls notify with the command's
// callback id right after each command queued with Notify().
//
// A value-returning command whose callback leaves its AsyncOp pending is
// completed with nil and logged once as a warning.
func (q *Queue) PlaybackWithNotify(buf *Buffer, notify func(callbackID uint32)) {
	q.affinity.CheckNotOwner("cmdqueue", "Playback")
	if buf == nil {
		return
	}

	for i := range buf.cmds {
		cmd := &buf.cmds[i]
		ev := PlaybackEvent{
			QueueIdx:     q.index,
			Seq:          cmd.seq,
			CallbackID:   cmd.callbackID,
			ReturnsValue: cmd.returnsValue,
			State:        StateExecuting,
		}

		if cmd.returnsValue {
			if cmd.returnCallback != nil {
				cmd.returnCallback(cmd.op)
			}
			if !cmd.op.HasCompleted() {
				q.logger.Warn("async operation left pending by its command, completing with nil",
					"queue", q.index,
					"seq", cmd.seq,
					"callback_id", cmd.callbackID,
				)
				cmd.op.CompleteOperation(nil)
				ev.AutoResolved = true
			}
		} else if cmd.callback != nil {
			cmd.callback()
		}

		if cmd.notify && notify != nil {
			notify(cmd.callbackID)
			ev.Notified = true
		}

		ev.State = StateCompleted
		q.observe(ev)
	}

	q.pool.Release(buf)
}

// CancelAll discards every queued command without running it.
// Commands already flushed (including one mid-execution) are unaffected.
// AsyncOps of cancelled commands stay pending.
func (q *Queue) CancelAll() {
	q.affinity.Check("cmdqueue", "CancelAll")

	buf := q.Flush()
	for i := range buf.cmds {
		cmd := &buf.cmds[i]
		q.observe(PlaybackEvent{
			QueueIdx:     q.index,
			Seq:          cmd.seq,
			CallbackID:   cmd.callbackID,
			ReturnsValue: cmd.returnsValue,
			State:        StateCancelled,
		})
	}

	if n := buf.Len(); n > 0 {
		q.logger.Debug("commands cancelled", "queue", q.index, "count", n)
	}
	q.pool.Release(buf)
}

// IsEmpty reports whether the active buffer holds no commands.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Len returns the number of commands waiting in the active buffer.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.active.Len()
}

// Sequence returns how many commands have ever been queued.
func (q *Queue) Sequence() uint32 {
	return q.clock.Current()
}

func (q *Queue) observe(ev PlaybackEvent) {
	if q.observer != nil {
		q.observer.CommandPlayed(ev)
	}
}
