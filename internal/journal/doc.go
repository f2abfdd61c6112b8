// Package journal provides SQLite-backed storage for playback journals.
//
// A journal holds one row per engine run and, per run:
//   - Frames: what each frame did (deferred calls drained, objects synced)
//   - Commands: every command played back or cancelled on the core goroutine
//   - Syncs: every snapshot queued by the object manager
//
// # Ordering
//
// Rows carry logical counters (run seq, frame number, playback ord), never
// timestamps, so two runs of the same scenario produce identical journals.
// Every query orders by those counters.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Writers use a Recorder, which buffers events from both goroutines and
// writes them in one transaction per Flush.
package journal
