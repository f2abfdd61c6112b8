package coreobject

import (
	"sync"
	"sync/atomic"
)

// Core is the core-goroutine half of an object pair.
//
// Implementations embed CoreState, which supplies State.
type Core interface {
	// Initialize prepares the twin. Runs once, either inline on the sim
	// goroutine or as a queued command on the core goroutine.
	Initialize()
	// SyncToCore applies a snapshot produced by Object.SyncToCore.
	SyncToCore(data SyncData)
	State() *CoreState
}

// Destroyer is implemented by cores that release resources at teardown.
// Destroy runs on the core goroutine.
type Destroyer interface {
	Destroy()
}

// CoreState tracks a core's initialization. The zero value is ready to use.
type CoreState struct {
	once        sync.Once
	ready       chan struct{}
	initialized atomic.Bool
	scheduled   atomic.Bool
	destroyed   atomic.Bool
}

// State returns s. It lets embedding types satisfy Core.
func (s *CoreState) State() *CoreState { return s }

func (s *CoreState) readyChan() chan struct{} {
	s.once.Do(func() {
		s.ready = make(chan struct{})
	})
	return s.ready
}

// IsInitialized reports whether Initialize has returned.
func (s *CoreState) IsInitialized() bool { return s.initialized.Load() }

// IsScheduled reports whether initialization was queued to the core goroutine.
func (s *CoreState) IsScheduled() bool { return s.scheduled.Load() }

// IsDestroyed reports whether the teardown command has run.
func (s *CoreState) IsDestroyed() bool { return s.destroyed.Load() }

// Synchronize blocks until the core is initialized.
//
// Must not be called on the core goroutine while initialization is still
// queued there: it would wait on itself. Panics with ErrNotScheduled when
// nothing will ever initialize the core.
func (s *CoreState) Synchronize() {
	if s.initialized.Load() {
		return
	}
	if !s.scheduled.Load() {
		panic(ErrNotScheduled)
	}
	<-s.readyChan()
}

func (s *CoreState) markScheduled() {
	s.scheduled.Store(true)
}

func (s *CoreState) markInitialized() {
	if s.initialized.Swap(true) {
		return
	}
	close(s.readyChan())
}

func (s *CoreState) markDestroyed() {
	s.destroyed.Store(true)
}

// initCore runs c's initialization and wakes Synchronize callers.
func initCore(c Core) {
	c.Initialize()
	c.State().markInitialized()
}

// teardownCore runs on the core goroutine. The closure that calls it holds
// the only remaining reference to c once the sim half is destroyed.
func teardownCore(c Core) {
	if d, ok := c.(Destroyer); ok {
		d.Destroy()
	}
	c.State().markDestroyed()
}
