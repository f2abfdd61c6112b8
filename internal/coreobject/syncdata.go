package coreobject

// SyncData is a snapshot of sim-side state on its way to the core half.
//
// The bytes usually live in a FrameAlloc. Ownership passes to the core
// goroutine when the delivery command is queued; the sim side must not
// touch them afterwards.
type SyncData struct {
	buf []byte
}

// NewSyncData wraps b.
func NewSyncData(b []byte) SyncData {
	return SyncData{buf: b}
}

// Bytes returns the raw snapshot.
func (d SyncData) Bytes() []byte { return d.buf }

// Size returns the snapshot length in bytes.
func (d SyncData) Size() int { return len(d.buf) }

// IsEmpty reports whether the snapshot carries no bytes.
func (d SyncData) IsEmpty() bool { return len(d.buf) == 0 }
