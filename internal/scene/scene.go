package scene

import (
	"fmt"
	"slices"

	"github.com/roach88/simcore/internal/coreobject"
)

// Scene owns named materials and renderables on the sim goroutine.
type Scene struct {
	mgr         *coreobject.Manager
	q           coreobject.Queuer
	registry    *Registry
	materials   map[string]*Material
	renderables map[string]*Renderable
}

// New creates an empty scene whose objects register with mgr and send
// core-bound commands through q.
func New(mgr *coreobject.Manager, q coreobject.Queuer) *Scene {
	return &Scene{
		mgr:         mgr,
		q:           q,
		registry:    NewRegistry(),
		materials:   make(map[string]*Material),
		renderables: make(map[string]*Renderable),
	}
}

// Registry returns the core-side registry. Read it only on the core
// goroutine or after the core goroutine has drained.
func (s *Scene) Registry() *Registry {
	return s.registry
}

// AddMaterial creates and initializes a material.
func (s *Scene) AddMaterial(name string) (*Material, error) {
	if err := s.checkFree(name); err != nil {
		return nil, err
	}
	m := NewMaterial(name, s.registry)
	s.mgr.Initialize(m, s.q)
	s.materials[name] = m
	return m, nil
}

// AddRenderable creates and initializes a renderable using the named
// material. An empty material name leaves it unset.
func (s *Scene) AddRenderable(name, material string) (*Renderable, error) {
	if err := s.checkFree(name); err != nil {
		return nil, err
	}
	var mat *Material
	if material != "" {
		m, ok := s.materials[material]
		if !ok {
			return nil, fmt.Errorf("renderable %q: unknown material %q", name, material)
		}
		mat = m
	}
	r := NewRenderable(name, mat, s.registry)
	s.mgr.Initialize(r, s.q)
	s.renderables[name] = r
	return r, nil
}

func (s *Scene) checkFree(name string) error {
	if name == "" {
		return fmt.Errorf("object name is empty")
	}
	if _, ok := s.materials[name]; ok {
		return fmt.Errorf("object %q already exists", name)
	}
	if _, ok := s.renderables[name]; ok {
		return fmt.Errorf("object %q already exists", name)
	}
	return nil
}

// Material returns the named material.
func (s *Scene) Material(name string) (*Material, bool) {
	m, ok := s.materials[name]
	return m, ok
}

// Renderable returns the named renderable.
func (s *Scene) Renderable(name string) (*Renderable, bool) {
	r, ok := s.renderables[name]
	return r, ok
}

// Object returns the named object of either kind.
func (s *Scene) Object(name string) (coreobject.Object, bool) {
	if m, ok := s.materials[name]; ok {
		return m, true
	}
	if r, ok := s.renderables[name]; ok {
		return r, true
	}
	return nil, false
}

// Remove destroys the named object. A material still used by a renderable
// cannot be removed.
func (s *Scene) Remove(name string) error {
	if r, ok := s.renderables[name]; ok {
		s.mgr.Destroy(r, s.q)
		delete(s.renderables, name)
		return nil
	}
	m, ok := s.materials[name]
	if !ok {
		return fmt.Errorf("unknown object %q", name)
	}
	for _, r := range s.renderables {
		if r.material == m {
			return fmt.Errorf("material %q is used by %q", name, r.name)
		}
	}
	s.mgr.Destroy(m, s.q)
	delete(s.materials, name)
	return nil
}

// Clear destroys every object, renderables first, each kind in name order.
func (s *Scene) Clear() {
	for _, name := range sortedKeys(s.renderables) {
		s.mgr.Destroy(s.renderables[name], s.q)
		delete(s.renderables, name)
	}
	for _, name := range sortedKeys(s.materials) {
		s.mgr.Destroy(s.materials[name], s.q)
		delete(s.materials, name)
	}
}

// Names returns every object name in order.
func (s *Scene) Names() []string {
	names := append(sortedKeys(s.materials), sortedKeys(s.renderables)...)
	slices.Sort(names)
	return names
}

// Len returns the number of objects.
func (s *Scene) Len() int {
	return len(s.materials) + len(s.renderables)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
