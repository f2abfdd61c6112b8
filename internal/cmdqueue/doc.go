// Package cmdqueue implements the command queue that carries work from a
// producer goroutine (usually the sim goroutine) to the core goroutine.
//
// ARCHITECTURE:
//
// Double-buffered hand-off:
// Producers append QueuedCommands to the queue's active Buffer. The consumer
// calls Flush, which swaps the active Buffer for an empty one taken from a
// BufferPool, and then plays the detached Buffer back in FIFO order. After
// playback the Buffer returns to the pool, so the steady state allocates no
// new buffers.
//
// Futures:
// QueueReturn hands the caller an AsyncOp in the pending state. The command's
// callback completes it on the consumer goroutine. When a callback forgets,
// playback completes the op with nil and logs one warning, because the frame
// loop must keep running.
//
// Ordering:
// Commands in one Buffer run in submission order, each exactly once unless
// cancelled. Nothing orders commands across different queues.
//
// Breakpoints:
// Every enqueued command is stamped with a per-queue sequence index. When a
// Breakpoints registry is configured, enqueueing a command whose
// (queue, sequence) pair is registered panics before the command is appended.
// Without a registry the check is skipped entirely.
package cmdqueue
