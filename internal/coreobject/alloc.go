package coreobject

// DefaultChunkSize is the FrameAlloc chunk size used when none is given.
const DefaultChunkSize = 16 * 1024

// FrameAlloc is a bump allocator for one frame's worth of snapshots.
//
// Allocations are carved out of fixed-size chunks; Clear rewinds to the
// first chunk so steady-state frames allocate nothing. Requests larger than
// a chunk get their own slice and are not retained.
//
// A nil *FrameAlloc is valid and allocates on the heap. Out-of-band syncs
// use it that way since their snapshot outlives the frame.
//
// Not safe for concurrent use. The engine keeps two and alternates, clearing
// one only after the core goroutine has played back the frame that used it.
type FrameAlloc struct {
	chunkSize int
	chunks    [][]byte
	cur       int
	off       int
	used      int
	allocs    int
	frames    uint64
}

// NewFrameAlloc creates an allocator with the given chunk size.
func NewFrameAlloc(chunkSize int) *FrameAlloc {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	return &FrameAlloc{chunkSize: chunkSize}
}

// Alloc returns n zeroed bytes valid until the next Clear.
func (a *FrameAlloc) Alloc(n int) []byte {
	if n <= 0 {
		return nil
	}
	if a == nil {
		return make([]byte, n)
	}

	a.allocs++
	a.used += n
	if n > a.chunkSize {
		return make([]byte, n)
	}

	if len(a.chunks) == 0 {
		a.chunks = append(a.chunks, make([]byte, a.chunkSize))
	}
	if a.off+n > a.chunkSize {
		a.cur++
		a.off = 0
		if a.cur == len(a.chunks) {
			a.chunks = append(a.chunks, make([]byte, a.chunkSize))
		}
	}

	b := a.chunks[a.cur][a.off : a.off+n : a.off+n]
	a.off += n
	clear(b)
	return b
}

// Clear releases every allocation made since the last Clear.
func (a *FrameAlloc) Clear() {
	a.cur = 0
	a.off = 0
	a.used = 0
	a.allocs = 0
	a.frames++
}

// Used returns the bytes handed out since the last Clear.
func (a *FrameAlloc) Used() int { return a.used }

// Allocs returns the number of allocations since the last Clear.
func (a *FrameAlloc) Allocs() int { return a.allocs }

// Chunks returns how many chunks the allocator holds.
func (a *FrameAlloc) Chunks() int { return len(a.chunks) }

// Frames returns how many times the allocator has been cleared.
func (a *FrameAlloc) Frames() uint64 { return a.frames }
