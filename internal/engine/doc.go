// Package engine owns one simulation run: the core goroutine, the sim-side
// command accessor, the core object and deferred call managers, and the
// per-frame snapshot allocators.
//
// The goroutine that calls New is the sim goroutine. Every Engine method
// except Start's core goroutine runs there.
//
// Frame order:
//  1. Deferred calls run to a fixpoint.
//  2. The snapshot allocator used two frames ago is recycled once that
//     frame's submission has been played back.
//  3. Dirty objects are synced, dependencies first.
//  4. The sim accessor's batch is submitted to the core goroutine without
//     waiting for it.
//
// Commands queued between frames (object creation, explicit commands) ride
// along with the next frame's batch.
//
// Shutdown submits whatever is still queued, stops the core goroutine
// after it drains, flushes the journal and verifies that no core object is
// still alive. A live object at that point is a usage error and panics.
package engine
