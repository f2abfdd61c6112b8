// Package scene provides the concrete object pairs driven by the CLI and the
// scenario harness: materials, and renderables that reference a material.
//
// Snapshots are partial. Each object has its own dirty bits and encodes
// only the sections those bits select, so moving a renderable does not
// resend its material reference.
//
// Snapshot layout (little endian), one section per set bit, in bit order:
//
//	Material:   u32 flags | color 4xf32 | shader u32 len + bytes
//	Renderable: u32 flags | transform 4xf32 | material u64 id | layer u32
//
// Core halves are looked up by id through a Registry that lives on the
// core goroutine. A renderable resolves its material when the material
// section is applied, which is why materials are declared as dependencies.
package scene
