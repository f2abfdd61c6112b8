package cmdqueue

import "sync"

// DefaultPoolCapacity is the number of idle buffers a pool keeps by default.
// Two covers the usual flip between the buffer being filled and the one
// being played back; the extra slots absorb a core goroutine running behind.
const DefaultPoolCapacity = 4

// DefaultBufferCapacity is the initial command capacity of a new buffer.
const DefaultBufferCapacity = 64

// Buffer is an ordered batch of commands detached from a queue by Flush.
type Buffer struct {
	cmds []QueuedCommand
}

func newBuffer(capacity int) *Buffer {
	return &Buffer{cmds: make([]QueuedCommand, 0, capacity)}
}

// Len returns the number of commands in the buffer.
func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	return len(b.cmds)
}

// At returns the i-th command in submission order.
func (b *Buffer) At(i int) *QueuedCommand {
	return &b.cmds[i]
}

func (b *Buffer) append(cmd QueuedCommand) {
	b.cmds = append(b.cmds, cmd)
}

// reset empties the buffer while keeping its backing array.
// Slots are zeroed first so recycled buffers do not pin closures (and the
// objects they capture) until they happen to be overwritten.
func (b *Buffer) reset() {
	clear(b.cmds)
	b.cmds = b.cmds[:0]
}

// BufferPool recycles drained buffers between producer and consumer.
//
// Acquire and Release are O(1). Both goroutines use the pool (the producer
// takes a fresh buffer on Flush, the consumer returns a drained one after
// playback), so it is guarded by a mutex. Idle buffers beyond the pool's
// capacity are dropped and left to the garbage collector.
type BufferPool struct {
	mu        sync.Mutex
	free      []*Buffer
	capacity  int
	bufferCap int
	allocated int
}

// NewBufferPool creates a pool keeping at most capacity idle buffers, each
// allocated with room for bufferCap commands.
// Non-positive arguments select DefaultPoolCapacity and DefaultBufferCapacity.
func NewBufferPool(capacity, bufferCap int) *BufferPool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	if bufferCap <= 0 {
		bufferCap = DefaultBufferCapacity
	}
	return &BufferPool{
		free:      make([]*Buffer, 0, capacity),
		capacity:  capacity,
		bufferCap: bufferCap,
	}
}

// Acquire returns an empty buffer, reusing an idle one when available.
func (p *BufferPool) Acquire() *Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	if n := len(p.free); n > 0 {
		b := p.free[n-1]
		p.free[n-1] = nil
		p.free = p.free[:n-1]
		return b
	}
	p.allocated++
	return newBuffer(p.bufferCap)
}

// Release empties b and makes it available to Acquire.
func (p *BufferPool) Release(b *Buffer) {
	if b == nil {
		return
	}
	b.reset()

	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.free) >= p.capacity {
		return
	}
	p.free = append(p.free, b)
}

// Idle returns the number of buffers waiting in the pool.
func (p *BufferPool) Idle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}

// Allocated returns how many buffers the pool has created in total.
// Stays flat once a queue reaches its steady state.
func (p *BufferPool) Allocated() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.allocated
}

// Capacity returns the maximum number of idle buffers retained.
func (p *BufferPool) Capacity() int {
	return p.capacity
}
