package coreobject

import (
	"log/slog"
	"slices"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/thread"
)

// Queuer accepts commands bound for the core goroutine.
// *cmdqueue.Queue and the core thread accessor both satisfy it.
type Queuer interface {
	Queue(fn func(), opts ...cmdqueue.CommandOption)
}

// SyncObserver is told about every snapshot the manager queues.
type SyncObserver interface {
	ObjectSynced(id ID, flags DirtyFlags, size int)
}

// SyncObserverFunc adapts a function to SyncObserver.
type SyncObserverFunc func(id ID, flags DirtyFlags, size int)

// ObjectSynced implements SyncObserver.
func (f SyncObserverFunc) ObjectSynced(id ID, flags DirtyFlags, size int) {
	f(id, flags, size)
}

// Manager owns the registry of live object pairs and drives the per-frame
// sync pass. One Manager exists per engine; it is created at engine start
// and must be Shutdown only after every object has been destroyed.
type Manager struct {
	affinity thread.Affinity
	nextID   ID
	objects  map[ID]Object
	dirty    map[ID]Object
	deps     map[ID][]ID

	observer SyncObserver
	logger   *slog.Logger
	checks   bool
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) {
		m.logger = l
	}
}

// WithSyncObserver reports every queued snapshot to o.
func WithSyncObserver(o SyncObserver) ManagerOption {
	return func(m *Manager) {
		m.observer = o
	}
}

// WithThreadChecks toggles the sim-goroutine assertion.
func WithThreadChecks(enabled bool) ManagerOption {
	return func(m *Manager) {
		m.checks = enabled
	}
}

// NewManager creates a manager owned by the calling goroutine.
func NewManager(opts ...ManagerOption) *Manager {
	m := &Manager{
		objects: make(map[ID]Object),
		dirty:   make(map[ID]Object),
		deps:    make(map[ID][]ID),
		logger:  slog.Default(),
		checks:  true,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.checks {
		m.affinity = thread.Bind()
	}
	return m
}

// Rebind moves ownership to the calling goroutine.
func (m *Manager) Rebind() {
	if m.checks {
		m.affinity.Rebind()
	}
}

// Initialize registers obj, creates its core twin and initializes it.
//
// With FlagInitOnCoreThread the initialization is queued on q; otherwise it
// runs inline and the twin is published to the core goroutine by the queue
// hand-off of whatever command first references it.
func (m *Manager) Initialize(obj Object, q Queuer) ID {
	m.affinity.Check("coreobject", "Initialize")

	b := obj.CoreBase()
	if b.mgr != nil {
		panic(ErrAlreadyInitialized)
	}

	m.nextID++
	b.id = m.nextID
	b.mgr = m
	m.objects[b.id] = obj

	if core := obj.CreateCore(); core != nil {
		b.core = core
		if b.flags&FlagInitOnCoreThread != 0 {
			core.State().markScheduled()
			q.Queue(func() { initCore(core) })
		} else {
			initCore(core)
		}
	}

	m.updateDependencies(b.id)
	if b.dirty != 0 {
		m.dirty[b.id] = obj
	}

	m.logger.Debug("core object initialized",
		"id", b.id,
		"core_thread", b.flags&FlagInitOnCoreThread != 0,
	)
	return b.id
}

// Destroy unregisters obj and releases its core twin.
//
// Teardown is queued on q so the twin stays reachable until the core
// goroutine has played back every command queued before it. Commands
// already holding the twin finish normally.
func (m *Manager) Destroy(obj Object, q Queuer) {
	m.affinity.Check("coreobject", "Destroy")

	b := obj.CoreBase()
	if b.mgr != m || b.destroyed {
		panic(ErrNotRegistered)
	}

	delete(m.objects, b.id)
	delete(m.dirty, b.id)
	delete(m.deps, b.id)
	b.destroyed = true
	b.clearDirty()

	if core := b.core; core != nil {
		b.core = nil
		q.Queue(func() { teardownCore(core) })
	}

	m.logger.Debug("core object destroyed", "id", b.id)
}

// SyncToCore queues a snapshot for every dirty object, dependencies first,
// then ids in ascending order. An object's dirty state is cleared only once
// its delivery command is queued. Returns the number of snapshots queued.
func (m *Manager) SyncToCore(q Queuer, alloc *FrameAlloc) int {
	m.affinity.Check("coreobject", "SyncToCore")

	if len(m.dirty) == 0 {
		return 0
	}

	ids := make([]ID, 0, len(m.dirty))
	for id := range m.dirty {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	visited := make(map[ID]bool, len(ids))
	n := 0
	for _, id := range ids {
		n += m.syncDirty(id, q, alloc, visited)
	}
	return n
}

// SyncObject syncs one object and its dirty dependencies immediately.
// A clean object queues nothing. Returns the number of snapshots queued.
func (m *Manager) SyncObject(id ID, q Queuer) int {
	m.affinity.Check("coreobject", "SyncObject")

	if _, ok := m.objects[id]; !ok {
		panic(ErrNotRegistered)
	}
	return m.syncDirty(id, q, nil, make(map[ID]bool))
}

// syncDirty delivers id after its dependencies. Cycles are broken by the
// visited set: the object reached second in a cycle syncs first.
func (m *Manager) syncDirty(id ID, q Queuer, alloc *FrameAlloc, visited map[ID]bool) int {
	if visited[id] {
		return 0
	}
	visited[id] = true

	obj, ok := m.dirty[id]
	if !ok {
		return 0
	}

	n := 0
	for _, dep := range m.deps[id] {
		n += m.syncDirty(dep, q, alloc, visited)
	}
	if m.deliver(obj, q, alloc) {
		n++
	}
	return n
}

func (m *Manager) deliver(obj Object, q Queuer, alloc *FrameAlloc) bool {
	b := obj.CoreBase()
	core := b.core
	if core == nil {
		b.clearDirty()
		delete(m.dirty, b.id)
		return false
	}

	flags := b.dirty
	data := obj.SyncToCore(alloc)
	q.Queue(func() { core.SyncToCore(data) })

	b.clearDirty()
	delete(m.dirty, b.id)

	if m.observer != nil {
		m.observer.ObjectSynced(b.id, flags, data.Size())
	}
	return true
}

func (m *Manager) notifyDirty(id ID) {
	if obj, ok := m.objects[id]; ok {
		m.dirty[id] = obj
	}
}

func (m *Manager) updateDependencies(id ID) {
	m.affinity.Check("coreobject", "MarkDependenciesDirty")

	obj, ok := m.objects[id]
	if !ok {
		return
	}
	dp, ok := obj.(DependencyProvider)
	if !ok {
		delete(m.deps, id)
		return
	}

	var ids []ID
	for _, dep := range dp.CoreDependencies() {
		if dep == nil {
			continue
		}
		depID := dep.CoreBase().ID()
		if depID == 0 || depID == id || slices.Contains(ids, depID) {
			continue
		}
		ids = append(ids, depID)
	}
	if len(ids) == 0 {
		delete(m.deps, id)
		return
	}
	m.deps[id] = ids
}

// Shutdown verifies that no object outlived the engine.
// Live or dirty objects at this point are a usage error and panic with
// *ShutdownError.
func (m *Manager) Shutdown() {
	m.affinity.Check("coreobject", "Shutdown")

	if len(m.objects) == 0 && len(m.dirty) == 0 {
		return
	}
	err := &ShutdownError{Live: len(m.objects), Dirty: len(m.dirty)}
	m.logger.Error("core objects alive at shutdown", "live", err.Live, "dirty", err.Dirty)
	panic(err)
}

// Object returns the registered object with the given id.
func (m *Manager) Object(id ID) (Object, bool) {
	obj, ok := m.objects[id]
	return obj, ok
}

// Dependencies returns the recorded dependency ids of id.
func (m *Manager) Dependencies(id ID) []ID {
	return slices.Clone(m.deps[id])
}

// Len returns the number of registered objects.
func (m *Manager) Len() int { return len(m.objects) }

// DirtyLen returns the number of objects waiting for the next sync.
func (m *Manager) DirtyLen() int { return len(m.dirty) }
