package journal

import (
	"context"
	"slices"
	"sort"
	"sync"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/coreobject"
)

// frameBound records that the commands of one queue with seq below end
// belong to frame (or an earlier one).
type frameBound struct {
	frame int64
	end   uint32
}

// Recorder buffers journal rows for one run.
//
// It observes both sides of the engine: CommandPlayed runs on the core
// goroutine, ObjectSynced and the frame hooks on the sim goroutine. A
// command's frame is resolved from the per-queue sequence bounds reported
// by EndFrame, so rows can be drained before every command has played.
//
// Thread-safety: all methods are safe for concurrent use.
type Recorder struct {
	mu       sync.Mutex
	runID    string
	frame    int64
	cmdOrd   int64
	syncOrd  int64
	bounds   map[uint32][]frameBound
	next     map[uint32]uint32
	commands []Command
	syncs    []Sync
	frames   []Frame
}

var (
	_ cmdqueue.Observer       = (*Recorder)(nil)
	_ coreobject.SyncObserver = (*Recorder)(nil)
)

// NewRecorder creates a recorder for runID.
func NewRecorder(runID string) *Recorder {
	return &Recorder{
		runID:  runID,
		bounds: make(map[uint32][]frameBound),
		next:   make(map[uint32]uint32),
	}
}

// RunID returns the run the recorder writes for.
func (r *Recorder) RunID() string {
	return r.runID
}

// CommandPlayed implements cmdqueue.Observer.
func (r *Recorder) CommandPlayed(ev cmdqueue.PlaybackEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Playback is FIFO per queue, so no later playback has a lower seq.
	// Cancellations can overtake buffers still waiting to play.
	if ev.State != cmdqueue.StateCancelled {
		r.next[ev.QueueIdx] = ev.Seq + 1
	}

	r.cmdOrd++
	r.commands = append(r.commands, Command{
		RunID:        r.runID,
		Ord:          r.cmdOrd,
		QueueIdx:     ev.QueueIdx,
		Seq:          ev.Seq,
		CallbackID:   ev.CallbackID,
		ReturnsValue: ev.ReturnsValue,
		Notified:     ev.Notified,
		AutoResolved: ev.AutoResolved,
		State:        ev.State.String(),
	})
}

// ObjectSynced implements coreobject.SyncObserver.
func (r *Recorder) ObjectSynced(id coreobject.ID, flags coreobject.DirtyFlags, size int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.syncOrd++
	r.syncs = append(r.syncs, Sync{
		RunID:    r.runID,
		Ord:      r.syncOrd,
		Frame:    r.frame,
		ObjectID: uint64(id),
		Flags:    uint32(flags),
		Size:     size,
	})
}

// BeginFrame sets the frame stamped on subsequent syncs.
func (r *Recorder) BeginFrame(frame int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frame = frame
}

// EndFrame records the frame summary. Commands of queue queueIdx with seq
// below endSeq that are not claimed by an earlier frame belong to it.
func (r *Recorder) EndFrame(f Frame, queueIdx, endSeq uint32) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f.RunID = r.runID
	r.frames = append(r.frames, f)
	r.bounds[queueIdx] = append(r.bounds[queueIdx], frameBound{frame: f.Frame, end: endSeq})
}

// Drain removes and returns every row whose frame is known. Commands
// queued after the last EndFrame of their queue stay buffered.
func (r *Recorder) Drain() Batch {
	return r.drain(false)
}

// DrainAll removes and returns every buffered row. Commands that belong to
// no frame get frame 0.
func (r *Recorder) DrainAll() Batch {
	return r.drain(true)
}

func (r *Recorder) drain(final bool) Batch {
	r.mu.Lock()
	defer r.mu.Unlock()

	b := Batch{Frames: r.frames, Syncs: r.syncs}
	r.frames, r.syncs = nil, nil

	var kept []Command
	for _, c := range r.commands {
		frame, ok := r.resolveFrame(c.QueueIdx, c.Seq)
		if !ok && !final {
			kept = append(kept, c)
			continue
		}
		c.Frame = frame
		b.Commands = append(b.Commands, c)
	}
	r.commands = kept
	r.trimBounds()
	return b
}

// trimBounds drops the bounds no future command can fall under: those
// ending at or below the next seq its queue can still play. Rows still
// buffered are past the last bound and do not need them either.
func (r *Recorder) trimBounds() {
	for q, bounds := range r.bounds {
		floor := r.next[q]
		n := 0
		for n < len(bounds) && bounds[n].end <= floor {
			n++
		}
		if n > 0 {
			r.bounds[q] = slices.Delete(bounds, 0, n)
		}
	}
}

// resolveFrame maps a command to its frame. Queues that never reported a
// bound are outside the frame loop and resolve to frame 0.
func (r *Recorder) resolveFrame(queueIdx, seq uint32) (int64, bool) {
	bounds, ok := r.bounds[queueIdx]
	if !ok {
		return 0, true
	}
	i := sort.Search(len(bounds), func(i int) bool { return seq < bounds[i].end })
	if i == len(bounds) {
		return 0, false
	}
	return bounds[i].frame, true
}

// Flush writes every resolvable row to j.
func (r *Recorder) Flush(ctx context.Context, j *Journal) error {
	return j.WriteBatch(ctx, r.Drain())
}

// FlushAll writes every buffered row to j.
func (r *Recorder) FlushAll(ctx context.Context, j *Journal) error {
	return j.WriteBatch(ctx, r.DrainAll())
}
