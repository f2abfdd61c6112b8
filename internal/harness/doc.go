// Package harness runs frame scenarios against the engine and checks the
// result.
//
// # Scenario Format
//
// Scenarios are YAML files:
//
//	name: material_swap
//	description: "Renderable follows its material to the core side"
//	run_id: swap-run            # optional, fixed for golden traces
//	config:                     # optional overrides of the defaults
//	  alloc_chunk_size: 256
//	setup:                      # ops applied before frame 1
//	  - op: material
//	    name: red
//	    color: [1, 0, 0, 1]
//	  - op: renderable
//	    name: cube
//	    material: red
//	frames:
//	  - ops:
//	      - op: set_position
//	        name: cube
//	        position: [1, 2, 3]
//	    expect: { synced: 2, commands: 4 }
//	assertions:
//	  - type: sync_count
//	    object: cube
//	    count: 1
//	  - type: core_state
//	    object: cube
//	    expect: { position: [1, 2, 3], material: red }
//
// # Ops
//
//   - material, renderable: create a named object
//   - set_color, set_shader, set_position, set_layer, set_material: mutate one
//   - remove: destroy one
//   - sync_now: sync one object outside the frame boundary
//   - command: queue a raw command (callback_id, notify, returns,
//     leave_pending)
//   - defer: queue the nested `then` ops as a deferred call
//
// # Assertion Types
//
//   - sync_count: an object was synced exactly count times
//   - sync_order: the objects synced in a frame, in order
//   - command_count: commands in a state (and optionally auto-resolved)
//   - notified: callback ids notified, in order
//   - core_state: the core half of an object after the last frame
//
// # Deterministic Testing
//
// Every run uses a fixed run id, a deterministic frame clock and an
// in-memory journal, so the same scenario always produces the same trace.
// The trace is compared against golden files with goldie.
package harness
