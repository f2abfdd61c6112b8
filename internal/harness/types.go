package harness

import (
	"github.com/roach88/simcore/internal/engine"
	"github.com/roach88/simcore/internal/trace"
)

// CoreSnapshot is the core half of one object as seen after the last frame.
type CoreSnapshot struct {
	Kind     string    `json:"kind"` // "material" or "renderable"
	ID       uint64    `json:"id"`
	Syncs    int       `json:"syncs"`
	Color    []float32 `json:"color,omitempty"`
	Shader   string    `json:"shader,omitempty"`
	Position []float32 `json:"position,omitempty"`
	Material string    `json:"material,omitempty"`
	Layer    uint32    `json:"layer,omitempty"`
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every frame expectation and assertion held.
	Pass bool `json:"pass"`

	// Trace is the run's journal as trace events.
	Trace []trace.Event `json:"-"`

	// Frames holds each frame's summary in order.
	Frames []engine.FrameStats `json:"frames"`

	// Errors lists failed expectations and assertions.
	Errors []string `json:"errors,omitempty"`

	// State is the core side of every object alive after the last frame.
	State map[string]CoreSnapshot `json:"state,omitempty"`

	// Notified lists notified callback ids in playback order.
	Notified []uint32 `json:"notified,omitempty"`

	// ObjectIDs maps every object name ever created to its id.
	ObjectIDs map[string]uint64 `json:"object_ids,omitempty"`

	// RunID is the run's id in the journal.
	RunID string `json:"run_id"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:      true,
		Trace:     []trace.Event{},
		Frames:    []engine.FrameStats{},
		Errors:    []string{},
		State:     make(map[string]CoreSnapshot),
		ObjectIDs: make(map[string]uint64),
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// objectName maps an id back to the name it was created with.
func (r *Result) objectName(id uint64) string {
	for name, oid := range r.ObjectIDs {
		if oid == id {
			return name
		}
	}
	return ""
}
