package journal

import "errors"

// ErrRunNotFound is returned when a run id has no row.
var ErrRunNotFound = errors.New("journal: run not found")

// Run is one engine run.
type Run struct {
	ID         string
	Seq        int64 // creation order within the journal, from 1
	ConfigHash string
}

// Frame summarizes one engine frame.
type Frame struct {
	RunID         string
	Frame         int64
	DeferredCalls int
	SyncedObjects int
	Commands      int // commands queued on the sim accessor during the frame
}

// Command is one command leaving a queue on the core goroutine.
type Command struct {
	RunID        string
	Ord          int64 // playback order within the run, from 1
	Frame        int64 // 0 for commands outside any frame
	QueueIdx     uint32
	Seq          uint32
	CallbackID   uint32
	ReturnsValue bool
	Notified     bool
	AutoResolved bool
	State        string
}

// Sync is one snapshot queued by the object manager.
type Sync struct {
	RunID    string
	Ord      int64 // queue order within the run, from 1
	Frame    int64
	ObjectID uint64
	Flags    uint32
	Size     int
}

// Batch is a set of rows written in one transaction.
type Batch struct {
	Frames   []Frame
	Commands []Command
	Syncs    []Sync
}

// IsEmpty reports whether the batch has no rows.
func (b Batch) IsEmpty() bool {
	return len(b.Frames) == 0 && len(b.Commands) == 0 && len(b.Syncs) == 0
}
