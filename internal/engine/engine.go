package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/config"
	"github.com/roach88/simcore/internal/coreobject"
	"github.com/roach88/simcore/internal/corethread"
	"github.com/roach88/simcore/internal/deferred"
	"github.com/roach88/simcore/internal/journal"
	"github.com/roach88/simcore/internal/trace"
)

type state int

const (
	stateCreated state = iota
	stateRunning
	stateClosed
)

// FrameStats summarizes one frame.
type FrameStats struct {
	Frame         int64
	DeferredCalls int
	SyncedObjects int
	Commands      int
}

// Engine is one simulation run.
//
// Thread-safety model:
//   - every method: the sim goroutine (the caller of New, or of Rebind)
//   - the core goroutine is internal; reach it through Accessor commands
//     or Thread().QueueCommand
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	thread   *corethread.Thread
	sim      *corethread.Accessor
	objects  *coreobject.Manager
	deferred *deferred.Manager

	// Snapshot memory alternates between frames; a slot is recycled once
	// the frame that last used it has been played back.
	allocs  [2]*coreobject.FrameAlloc
	pending [2]*cmdqueue.AsyncOp

	clock       FrameClock
	runIDGen    RunIDGenerator
	runID       string
	configHash  string
	breakpoints *cmdqueue.Breakpoints

	journal       *journal.Journal
	recorder      *journal.Recorder
	observers     []cmdqueue.Observer
	syncObservers []coreobject.SyncObserver
	notify        func(callbackID uint32)

	state      state
	cancel     context.CancelFunc
	coreDone   chan struct{}
	coreResult error
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger for the engine and everything it owns.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithJournal records every frame, sync and played command into j.
// The engine does not close j.
func WithJournal(j *journal.Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithRunIDGenerator replaces the UUIDv7 run ids.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(e *Engine) {
		e.runIDGen = g
	}
}

// WithClock replaces the frame clock.
func WithClock(c FrameClock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithObserver adds a playback observer. It runs on the core goroutine.
func WithObserver(o cmdqueue.Observer) Option {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithSyncObserver adds a sync observer. It runs on the sim goroutine.
func WithSyncObserver(o coreobject.SyncObserver) Option {
	return func(e *Engine) {
		e.syncObservers = append(e.syncObservers, o)
	}
}

// WithNotify installs the callback run on the core goroutine after each
// command queued with cmdqueue.Notify.
func WithNotify(fn func(callbackID uint32)) Option {
	return func(e *Engine) {
		e.notify = fn
	}
}

// New creates a stopped engine. The calling goroutine becomes the sim
// goroutine.
func New(cfg config.Config, opts ...Option) (*Engine, error) {
	e := &Engine{
		cfg:      cfg,
		logger:   slog.Default(),
		clock:    NewClock(),
		runIDGen: UUIDv7Generator{},
		coreDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	hash, err := trace.ConfigHash(cfg)
	if err != nil {
		return nil, err
	}
	e.configHash = hash
	e.runID = e.runIDGen.Generate()
	e.logger = e.logger.With("run", e.runID)

	playback := e.observers
	syncs := e.syncObservers
	if e.journal != nil {
		e.recorder = journal.NewRecorder(e.runID)
		playback = append([]cmdqueue.Observer{e.recorder}, playback...)
		syncs = append([]coreobject.SyncObserver{e.recorder}, syncs...)
	}

	if cfg.Breakpoints.Enabled {
		e.breakpoints = cmdqueue.NewBreakpoints()
		for _, p := range cfg.Breakpoints.Points {
			e.breakpoints.Add(p.Queue, p.Command)
		}
	}

	threadOpts := []corethread.Option{
		corethread.WithLogger(e.logger),
		corethread.WithPool(cmdqueue.NewBufferPool(cfg.Queue.PoolCapacity, cfg.Queue.InitialCapacity)),
		corethread.WithThreadChecks(cfg.ThreadChecks),
	}
	if len(playback) > 0 {
		threadOpts = append(threadOpts, corethread.WithObserver(playbackFanout(playback)))
	}
	if e.breakpoints != nil {
		threadOpts = append(threadOpts, corethread.WithBreakpoints(e.breakpoints))
	}
	if e.notify != nil {
		threadOpts = append(threadOpts, corethread.WithNotify(e.notify))
	}
	e.thread = corethread.New(threadOpts...)
	e.sim = e.thread.NewAccessor()

	managerOpts := []coreobject.ManagerOption{
		coreobject.WithLogger(e.logger),
		coreobject.WithThreadChecks(cfg.ThreadChecks),
	}
	if len(syncs) > 0 {
		managerOpts = append(managerOpts, coreobject.WithSyncObserver(syncFanout(syncs)))
	}
	e.objects = coreobject.NewManager(managerOpts...)
	e.deferred = deferred.New(
		deferred.WithLogger(e.logger),
		deferred.WithThreadChecks(cfg.ThreadChecks),
	)

	for i := range e.allocs {
		e.allocs[i] = coreobject.NewFrameAlloc(cfg.Alloc.ChunkSize)
	}
	return e, nil
}

// Start records the run and launches the core goroutine. Cancelling ctx
// aborts the core goroutine without draining it.
func (e *Engine) Start(ctx context.Context) error {
	switch e.state {
	case stateRunning:
		return e.newError(ErrCodeAlreadyStarted, 0, nil, "engine already started")
	case stateClosed:
		return e.newError(ErrCodeClosed, 0, nil, "engine is shut down")
	}

	if e.journal != nil {
		run := journal.Run{ID: e.runID, ConfigHash: e.configHash}
		if err := e.journal.WriteRun(ctx, run); err != nil {
			return e.newError(ErrCodeJournal, 0, err, "record run")
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	go func() {
		defer close(e.coreDone)
		e.coreResult = e.thread.Run(runCtx)
	}()

	e.state = stateRunning
	e.logger.Info("engine started",
		"config_hash", e.configHash,
		"thread_checks", e.cfg.ThreadChecks,
		"breakpoints", e.breakpointCount(),
	)
	return nil
}

// Frame runs one frame and returns its summary. The frame's batch is
// handed to the core goroutine without waiting for playback.
func (e *Engine) Frame(ctx context.Context) (FrameStats, error) {
	if err := e.checkRunning(); err != nil {
		return FrameStats{}, err
	}

	frame := e.clock.Next()
	if e.recorder != nil {
		e.recorder.BeginFrame(frame)
	}

	calls := e.deferred.Update()

	slot := frame & 1
	if op := e.pending[slot]; op != nil {
		if err := e.await(ctx, op, frame); err != nil {
			return FrameStats{}, err
		}
		e.pending[slot] = nil
	}
	alloc := e.allocs[slot]
	alloc.Clear()

	synced := e.objects.SyncToCore(e.sim, alloc)
	stats := FrameStats{
		Frame:         frame,
		DeferredCalls: calls,
		SyncedObjects: synced,
		Commands:      e.sim.Len(),
	}

	if e.recorder != nil {
		e.recorder.EndFrame(journal.Frame{
			Frame:         frame,
			DeferredCalls: calls,
			SyncedObjects: synced,
			Commands:      stats.Commands,
		}, e.sim.Index(), e.sim.CommandQueue().Sequence())
	}

	op, err := e.sim.Submit(false)
	if err != nil {
		return stats, e.newError(ErrCodeCoreStopped, frame, err, "submit frame")
	}
	e.pending[slot] = op

	if e.journal != nil {
		if err := e.recorder.Flush(ctx, e.journal); err != nil {
			return stats, e.newError(ErrCodeJournal, frame, err, "flush journal")
		}
	}

	e.logger.Debug("frame submitted",
		"frame", frame,
		"deferred_calls", calls,
		"synced_objects", synced,
		"commands", stats.Commands,
	)
	return stats, nil
}

// await waits for op, giving up if ctx ends or the core goroutine exits.
func (e *Engine) await(ctx context.Context, op *cmdqueue.AsyncOp, frame int64) error {
	select {
	case <-op.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.coreDone:
		// The core may have finished the op just before exiting.
		if op.HasCompleted() {
			return nil
		}
		return e.newError(ErrCodeCoreStopped, frame, e.coreResult, "core goroutine exited")
	}
}

// Run runs frames until n have completed, or forever when n <= 0, calling
// step with the upcoming frame number before each one. With a ticker each
// frame waits for a tick first.
func (e *Engine) Run(ctx context.Context, n int, ticker Ticker, step func(frame int64)) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	if ticker != nil {
		ticker.Start()
		defer ticker.Stop()
	}

	for i := 0; n <= 0 || i < n; i++ {
		if ticker != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C():
			}
		} else if err := ctx.Err(); err != nil {
			return err
		}

		if step != nil {
			step(e.clock.Current() + 1)
		}
		if _, err := e.Frame(ctx); err != nil {
			return err
		}
	}
	return nil
}

// Sync waits until everything submitted so far has been played back.
func (e *Engine) Sync(ctx context.Context) error {
	if err := e.checkRunning(); err != nil {
		return err
	}
	op, err := e.sim.Submit(false)
	if err != nil {
		return e.newError(ErrCodeCoreStopped, e.clock.Current(), err, "submit")
	}
	return e.await(ctx, op, e.clock.Current())
}

// Shutdown drains the core goroutine, flushes the journal and checks that
// every core object was destroyed. Panics with *coreobject.ShutdownError
// if one was not.
func (e *Engine) Shutdown(ctx context.Context) error {
	switch e.state {
	case stateClosed:
		return e.newError(ErrCodeClosed, 0, nil, "engine already shut down")
	case stateCreated:
		e.state = stateClosed
		e.objects.Shutdown()
		return nil
	}
	e.state = stateClosed

	var errs []error
	if _, err := e.sim.Submit(false); err != nil {
		errs = append(errs, e.newError(ErrCodeCoreStopped, 0, err, "submit final batch"))
	}
	e.thread.Stop()

	select {
	case <-e.coreDone:
	case <-ctx.Done():
		e.cancel()
		<-e.coreDone
		errs = append(errs, ctx.Err())
	}
	e.cancel()
	if e.coreResult != nil && !errors.Is(e.coreResult, context.Canceled) {
		errs = append(errs, e.newError(ErrCodeCoreStopped, 0, e.coreResult, "core goroutine failed"))
	}

	if e.journal != nil {
		// The run's own context may be gone by now.
		if err := e.recorder.FlushAll(context.WithoutCancel(ctx), e.journal); err != nil {
			errs = append(errs, e.newError(ErrCodeJournal, 0, err, "flush journal"))
		}
	}
	for i := range e.allocs {
		e.allocs[i].Clear()
		e.pending[i] = nil
	}

	e.logger.Info("engine stopped",
		"frames", e.clock.Current(),
		"submissions", e.thread.Submissions(),
	)
	e.objects.Shutdown()
	return errors.Join(errs...)
}

// Rebind makes the calling goroutine the sim goroutine.
func (e *Engine) Rebind() {
	e.sim.Rebind()
	e.objects.Rebind()
	e.deferred.Rebind()
}

func (e *Engine) checkRunning() error {
	switch e.state {
	case stateCreated:
		return e.newError(ErrCodeNotStarted, 0, nil, "engine not started")
	case stateClosed:
		return e.newError(ErrCodeClosed, 0, nil, "engine is shut down")
	}
	select {
	case <-e.coreDone:
		return e.newError(ErrCodeCoreStopped, e.clock.Current(), e.coreResult, "core goroutine exited")
	default:
		return nil
	}
}

func (e *Engine) breakpointCount() int {
	if e.breakpoints == nil {
		return 0
	}
	return e.breakpoints.Len()
}

// RunID returns the run id.
func (e *Engine) RunID() string { return e.runID }

// ConfigHash returns the hash of the behavior-affecting configuration.
func (e *Engine) ConfigHash() string { return e.configHash }

// Config returns the configuration the engine was built with.
func (e *Engine) Config() config.Config { return e.cfg }

// CurrentFrame returns the last frame started, 0 before the first.
func (e *Engine) CurrentFrame() int64 { return e.clock.Current() }

// Objects returns the core object manager.
func (e *Engine) Objects() *coreobject.Manager { return e.objects }

// Deferred returns the deferred call manager.
func (e *Engine) Deferred() *deferred.Manager { return e.deferred }

// Accessor returns the sim goroutine's command accessor. Its batch is
// submitted at the end of every frame.
func (e *Engine) Accessor() *corethread.Accessor { return e.sim }

// Thread returns the core goroutine's run loop.
func (e *Engine) Thread() *corethread.Thread { return e.thread }

// Breakpoints returns the breakpoint registry, nil when disabled.
func (e *Engine) Breakpoints() *cmdqueue.Breakpoints { return e.breakpoints }

// Recorder returns the journal recorder, nil without a journal.
func (e *Engine) Recorder() *journal.Recorder { return e.recorder }

func (e *Engine) String() string {
	return fmt.Sprintf("engine(run=%s, frame=%d)", e.runID, e.clock.Current())
}
