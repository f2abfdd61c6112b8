// Package deferred runs callbacks once at a fixed point of the frame.
//
// Callbacks queued during an Update, including by a callback being drained,
// run before that Update returns. A callback that requeues itself on every
// call therefore keeps Update from ever returning. There is no iteration cap:
// callers own that hazard.
package deferred

import (
	"log/slog"

	"github.com/roach88/simcore/internal/thread"
)

// Manager holds callbacks deferred to the next Update.
// It is owned by one goroutine (asserted).
type Manager struct {
	affinity thread.Affinity
	pending  []func()
	spare    []func()
	logger   *slog.Logger
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithThreadChecks toggles the owner-goroutine assertion.
func WithThreadChecks(enabled bool) Option {
	return func(m *Manager) {
		if enabled {
			m.affinity = thread.Bind()
		} else {
			m.affinity = thread.Unbound()
		}
	}
}

// New creates a manager owned by the calling goroutine.
func New(opts ...Option) *Manager {
	m := &Manager{
		affinity: thread.Bind(),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Rebind moves ownership to the calling goroutine.
func (m *Manager) Rebind() {
	if m.affinity.Bound() {
		m.affinity.Rebind()
	}
}

// Queue defers fn to the current or next Update. Nil is ignored.
func (m *Manager) Queue(fn func()) {
	m.affinity.Check("deferred", "Queue")
	if fn == nil {
		return
	}
	m.pending = append(m.pending, fn)
}

// Len returns the number of callbacks waiting.
func (m *Manager) Len() int {
	return len(m.pending)
}

// Update drains the pending list to a fixpoint: each pass takes the current
// list, clears it, and runs the taken callbacks in order. Passes repeat until
// one queues nothing new. Returns the number of callbacks run.
func (m *Manager) Update() int {
	m.affinity.Check("deferred", "Update")

	ran, passes := 0, 0
	for len(m.pending) > 0 {
		batch := m.pending
		m.pending = m.spare[:0]

		for i, fn := range batch {
			fn()
			batch[i] = nil
		}
		ran += len(batch)
		passes++
		m.spare = batch[:0]
	}

	if passes > 1 {
		m.logger.Debug("deferred calls requeued during update", "passes", passes, "calls", ran)
	}
	return ran
}
