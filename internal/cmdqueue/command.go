package cmdqueue

// CommandState is the lifecycle of a QueuedCommand.
//
//	Queued -> Executing -> Completed
//	Queued -> Cancelled
type CommandState uint8

const (
	StateQueued CommandState = iota
	StateExecuting
	StateCompleted
	StateCancelled
)

func (s CommandState) String() string {
	switch s {
	case StateQueued:
		return "queued"
	case StateExecuting:
		return "executing"
	case StateCompleted:
		return "completed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// QueuedCommand is one unit of work in a Buffer.
// It is created at enqueue time and never mutated afterwards, apart from its
// AsyncOp.
type QueuedCommand struct {
	callback       func()
	returnCallback func(*AsyncOp)
	op             *AsyncOp
	returnsValue   bool
	notify         bool
	callbackID     uint32
	seq            uint32
}

// ReturnsValue reports whether the command was queued with QueueReturn.
func (c *QueuedCommand) ReturnsValue() bool { return c.returnsValue }

// NotifyWhenComplete reports whether playback calls the notify callback after it.
func (c *QueuedCommand) NotifyWhenComplete() bool { return c.notify }

// CallbackID is the caller-chosen id passed to the notify callback.
func (c *QueuedCommand) CallbackID() uint32 { return c.callbackID }

// Seq is the per-queue sequence index stamped at enqueue time.
func (c *QueuedCommand) Seq() uint32 { return c.seq }

// AsyncOp returns the command's future, or nil for commands without a return value.
func (c *QueuedCommand) AsyncOp() *AsyncOp { return c.op }

// CommandOption configures a command at enqueue time.
type CommandOption func(*QueuedCommand)

// Notify asks playback to call the notify callback once the command has run.
func Notify() CommandOption {
	return func(c *QueuedCommand) {
		c.notify = true
	}
}

// WithCallbackID sets the id handed to the notify callback.
func WithCallbackID(id uint32) CommandOption {
	return func(c *QueuedCommand) {
		c.callbackID = id
	}
}

// PlaybackEvent describes a command leaving the queue, either executed or cancelled.
type PlaybackEvent struct {
	QueueIdx     uint32
	Seq          uint32
	CallbackID   uint32
	ReturnsValue bool
	Notified     bool
	AutoResolved bool
	State        CommandState
}

// Observer receives one PlaybackEvent per command, on the goroutine that
// played back or cancelled it.
type Observer interface {
	CommandPlayed(ev PlaybackEvent)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ev PlaybackEvent)

// CommandPlayed implements Observer.
func (f ObserverFunc) CommandPlayed(ev PlaybackEvent) {
	f(ev)
}
