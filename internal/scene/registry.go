package scene

import "github.com/roach88/simcore/internal/coreobject"

// Registry maps ids to material cores. It is touched only on the core
// goroutine, by core Initialize, SyncToCore and Destroy.
type Registry struct {
	materials map[coreobject.ID]*MaterialCore
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{materials: make(map[coreobject.ID]*MaterialCore)}
}

// Material returns the live material core with the given id.
func (r *Registry) Material(id coreobject.ID) (*MaterialCore, bool) {
	m, ok := r.materials[id]
	return m, ok
}

// Len returns the number of live material cores.
func (r *Registry) Len() int {
	return len(r.materials)
}
