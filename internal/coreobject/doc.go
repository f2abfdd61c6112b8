// Package coreobject keeps two live halves of one logical engine object in
// step across the sim and core goroutines.
//
// The sim half (an Object embedding Base) is mutated freely on the sim
// goroutine. Mutations mark it dirty with MarkCoreDirty. Once per frame the
// Manager asks every dirty object for a SyncData snapshot and queues its
// delivery to the core half (a Core embedding CoreState), which applies it
// on the core goroutine.
//
// Lifecycle of a pair:
//
//	sim:  NewBase -> Manager.Initialize -> MarkCoreDirty* -> Manager.Destroy
//	core:            Initialize (queued or inline) -> SyncToCore* -> teardown
//
// Dirty flags coalesce: any number of MarkCoreDirty calls between two sync
// passes produce one snapshot carrying the OR of the flags.
//
// Dependencies: an object implementing DependencyProvider is synced after
// the dirty objects it depends on within the same pass.
//
// Thread-safety: Manager and Base are sim-goroutine only (asserted by the
// Manager). CoreState is safe to read from any goroutine.
package coreobject
