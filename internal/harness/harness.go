package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/simcore/internal/config"
	"github.com/roach88/simcore/internal/engine"
	"github.com/roach88/simcore/internal/journal"
	"github.com/roach88/simcore/internal/scene"
	"github.com/roach88/simcore/internal/testutil"
	"github.com/roach88/simcore/internal/trace"
)

// Harness runs one scenario. It is single use.
type Harness struct {
	engine *engine.Engine
	scene  *scene.Scene
	result *Result
	logger *slog.Logger

	// set by deferred ops, checked after each frame
	deferErr error

	mu       sync.Mutex
	notified []uint32
}

// Option configures a run.
type Option func(*Harness)

// WithLogger replaces the default discarding logger.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a scenario and returns the result.
//
// Each scenario runs against a fresh in-memory journal with a fixed run id
// and a deterministic frame clock. The returned error reports a scenario
// that could not be executed; failed expectations are in Result.Errors.
//
// Execution flow:
//  1. Apply setup ops
//  2. For each frame: apply ops, run the frame, wait for playback, check
//     the frame expectation
//  3. Snapshot the core side of every live object
//  4. Destroy everything and shut the engine down
//  5. Load the trace from the journal and evaluate assertions
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		result: NewResult(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	j, err := journal.Open(journal.InMemory)
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory journal: %w", err)
	}
	defer j.Close()

	eng, err := engine.New(scenario.config(),
		engine.WithLogger(h.logger),
		engine.WithJournal(j),
		engine.WithRunIDGenerator(testutil.NewFixedRunIDGenerator(scenario.RunID)),
		engine.WithClock(engine.NewClock()),
		engine.WithNotify(h.recordNotify),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}
	if err := eng.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start engine: %w", err)
	}
	h.engine = eng
	h.scene = scene.New(eng.Objects(), eng.Accessor())
	h.result.RunID = eng.RunID()

	if err := h.execute(ctx, scenario); err != nil {
		// Best effort: leave nothing alive so shutdown does not panic.
		h.scene.Clear()
		_ = eng.Shutdown(ctx)
		return nil, err
	}

	h.scene.Clear()
	if err := eng.Shutdown(ctx); err != nil {
		return nil, fmt.Errorf("failed to shut down engine: %w", err)
	}

	events, err := trace.Load(ctx, j, eng.RunID(), journal.AllFrames)
	if err != nil {
		return nil, fmt.Errorf("failed to load trace: %w", err)
	}
	h.result.Trace = events

	h.mu.Lock()
	h.result.Notified = append([]uint32(nil), h.notified...)
	h.mu.Unlock()

	for _, msg := range EvaluateAssertions(h.result, scenario.Assertions) {
		h.result.AddError(msg)
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"pass", h.result.Pass,
		"frames", len(h.result.Frames),
		"events", len(events),
	)
	return h.result, nil
}

// RunFile loads and runs a scenario file.
func RunFile(ctx context.Context, path string, opts ...Option) (*Scenario, *Result, error) {
	scenario, err := LoadScenario(path)
	if err != nil {
		return nil, nil, err
	}
	result, err := Run(ctx, scenario, opts...)
	return scenario, result, err
}

func (h *Harness) execute(ctx context.Context, scenario *Scenario) error {
	for i, op := range scenario.Setup {
		if err := h.apply(op); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
	}

	for i, step := range scenario.Frames {
		for j, op := range step.Ops {
			if err := h.apply(op); err != nil {
				return fmt.Errorf("frames[%d].ops[%d]: %w", i, j, err)
			}
		}

		stats, err := h.engine.Frame(ctx)
		if err != nil {
			return fmt.Errorf("frames[%d]: %w", i, err)
		}
		if h.deferErr != nil {
			return fmt.Errorf("frames[%d]: deferred op: %w", i, h.deferErr)
		}
		if err := h.engine.Sync(ctx); err != nil {
			return fmt.Errorf("frames[%d]: %w", i, err)
		}
		h.result.Frames = append(h.result.Frames, stats)
		h.checkFrame(i, stats, step.Expect)

		h.logger.Debug("scenario frame played",
			"frame", stats.Frame,
			"synced_objects", stats.SyncedObjects,
			"commands", stats.Commands,
		)
	}

	h.snapshotCores()
	return nil
}

func (h *Harness) checkFrame(i int, stats engine.FrameStats, want *FrameExpect) {
	if want == nil {
		return
	}
	check := func(field string, want *int, got int) {
		if want != nil && *want != got {
			h.result.AddError(fmt.Sprintf("frames[%d] (frame %d): expected %s=%d, got %d",
				i, stats.Frame, field, *want, got))
		}
	}
	check("synced", want.Synced, stats.SyncedObjects)
	check("commands", want.Commands, stats.Commands)
	check("deferred", want.Deferred, stats.DeferredCalls)
}

func (h *Harness) recordNotify(id uint32) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.notified = append(h.notified, id)
}

// snapshotCores reads the core side after the last frame's playback.
func (h *Harness) snapshotCores() {
	for _, name := range h.scene.Names() {
		if m, ok := h.scene.Material(name); ok {
			mc, ok := m.Core().(*scene.MaterialCore)
			if !ok {
				continue
			}
			h.result.State[name] = CoreSnapshot{
				Kind:   "material",
				ID:     uint64(mc.ID()),
				Syncs:  mc.Syncs,
				Color:  []float32{mc.Color.R, mc.Color.G, mc.Color.B, mc.Color.A},
				Shader: mc.Shader,
			}
			continue
		}
		r, ok := h.scene.Renderable(name)
		if !ok {
			continue
		}
		rc, ok := r.Core().(*scene.RenderableCore)
		if !ok {
			continue
		}
		snap := CoreSnapshot{
			Kind:     "renderable",
			ID:       uint64(rc.ID()),
			Syncs:    rc.Syncs,
			Position: append([]float32(nil), rc.Transform.Position[:]...),
			Layer:    rc.Layer,
		}
		if rc.Material != nil {
			snap.Material = rc.Material.Name()
		}
		h.result.State[name] = snap
	}
}

// config applies the scenario's overrides to the defaults.
func (s *Scenario) config() config.Config {
	cfg := config.Default()
	if o := s.Config; o != nil {
		if o.ThreadChecks != nil {
			cfg.ThreadChecks = *o.ThreadChecks
		}
		if o.AllocChunkSize > 0 {
			cfg.Alloc.ChunkSize = o.AllocChunkSize
		}
		if o.PoolCapacity > 0 {
			cfg.Queue.PoolCapacity = o.PoolCapacity
		}
		if o.InitialCapacity > 0 {
			cfg.Queue.InitialCapacity = o.InitialCapacity
		}
	}
	return cfg
}
