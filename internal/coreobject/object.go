package coreobject

// ID identifies a registered object. Zero means unregistered.
type ID uint64

// Flags configure how an object pair is managed.
type Flags uint8

const (
	// FlagInitOnCoreThread queues the core's initialization to the core
	// goroutine instead of running it inline. Teardown is always queued.
	FlagInitOnCoreThread Flags = 1 << iota
)

// DirtyFlags is an object-defined bitmask of what changed since the last sync.
type DirtyFlags uint32

// DirtyAll marks every bit dirty.
const DirtyAll = ^DirtyFlags(0)

// Object is the sim-goroutine half of an object pair.
//
// Implementations embed Base, which supplies CoreBase.
type Object interface {
	CoreBase() *Base
	// CreateCore builds the core twin. Returning nil means the object has
	// no core half; it is still registered but never synced.
	CreateCore() Core
	// SyncToCore snapshots the state selected by CoreDirtyFlags. Bytes
	// should come from alloc.
	SyncToCore(alloc *FrameAlloc) SyncData
}

// DependencyProvider is implemented by objects whose core reads the cores of
// other objects. Dirty dependencies are synced first.
type DependencyProvider interface {
	CoreDependencies() []Object
}

// Base carries the sim-side bookkeeping of an Object.
type Base struct {
	id        ID
	flags     Flags
	dirty     DirtyFlags
	destroyed bool
	core      Core
	mgr       *Manager
}

// NewBase returns a Base with the given flags, ready to embed.
func NewBase(flags Flags) Base {
	return Base{flags: flags}
}

// CoreBase returns b. It lets embedding types satisfy Object.
func (b *Base) CoreBase() *Base { return b }

// ID returns the id assigned at Initialize, or 0.
func (b *Base) ID() ID { return b.id }

// Flags returns the construction flags.
func (b *Base) Flags() Flags { return b.flags }

// Core returns the core twin, or nil before Initialize and after Destroy.
// The sim goroutine must not call into it.
func (b *Base) Core() Core { return b.core }

// IsInitialized reports whether the object is registered with a manager.
func (b *Base) IsInitialized() bool { return b.mgr != nil && !b.destroyed }

// IsDestroyed reports whether Destroy has run.
func (b *Base) IsDestroyed() bool { return b.destroyed }

// CoreDirtyFlags returns the flags accumulated since the last sync.
func (b *Base) CoreDirtyFlags() DirtyFlags { return b.dirty }

// IsCoreDirty reports whether any flag is set.
func (b *Base) IsCoreDirty() bool { return b.dirty != 0 }

// MarkCoreDirty ORs flags into the dirty mask. Only the clean-to-dirty
// transition notifies the manager. Before Initialize the flags are kept and
// reported when the object registers; after Destroy the call does nothing.
func (b *Base) MarkCoreDirty(flags DirtyFlags) {
	if b.destroyed || flags == 0 {
		return
	}
	if b.mgr != nil {
		b.mgr.affinity.Check("coreobject", "MarkCoreDirty")
	}
	wasClean := b.dirty == 0
	b.dirty |= flags
	if wasClean && b.mgr != nil {
		b.mgr.notifyDirty(b.id)
	}
}

// MarkDependenciesDirty refreshes the manager's record of this object's
// dependencies. Call it after changing what CoreDependencies returns.
func (b *Base) MarkDependenciesDirty() {
	if b.mgr == nil || b.destroyed {
		return
	}
	b.mgr.updateDependencies(b.id)
}

// SyncToCoreNow syncs this object (and its dirty dependencies) outside the
// frame boundary. The snapshot is heap allocated.
func (b *Base) SyncToCoreNow(q Queuer) {
	if b.mgr == nil || b.destroyed {
		panic(ErrNotRegistered)
	}
	b.mgr.SyncObject(b.id, q)
}

func (b *Base) clearDirty() {
	b.dirty = 0
}
