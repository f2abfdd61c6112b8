package cmdqueue

import "sync"

type breakpoint struct {
	queueIdx   uint32
	commandIdx uint32
}

// Breakpoints is a registry of (queue, command) pairs that abort execution
// when the matching command is about to be queued. It is a debugging aid for
// command ordering problems: register the pair printed by a failing run, then
// rerun to stop deterministically at the enqueue site.
//
// Queues only consult the registry when one is supplied with WithBreakpoints.
type Breakpoints struct {
	mu     sync.RWMutex
	points map[breakpoint]struct{}
}

// NewBreakpoints creates an empty registry.
func NewBreakpoints() *Breakpoints {
	return &Breakpoints{points: make(map[breakpoint]struct{})}
}

// Add registers a breakpoint on the commandIdx-th command of queue queueIdx.
func (b *Breakpoints) Add(queueIdx, commandIdx uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.points[breakpoint{queueIdx: queueIdx, commandIdx: commandIdx}] = struct{}{}
}

// Remove unregisters a breakpoint. Unknown pairs are ignored.
func (b *Breakpoints) Remove(queueIdx, commandIdx uint32) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.points, breakpoint{queueIdx: queueIdx, commandIdx: commandIdx})
}

// Len returns the number of registered breakpoints.
func (b *Breakpoints) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.points)
}

// check panics with *BreakpointError if the pair is registered.
func (b *Breakpoints) check(queueIdx, commandIdx uint32) {
	b.mu.RLock()
	_, hit := b.points[breakpoint{queueIdx: queueIdx, commandIdx: commandIdx}]
	b.mu.RUnlock()

	if hit {
		panic(&BreakpointError{QueueIdx: queueIdx, CommandIdx: commandIdx})
	}
}
