package scene

import "github.com/roach88/simcore/internal/coreobject"

// Renderable dirty bits.
const (
	RenderableDirtyTransform coreobject.DirtyFlags = 1 << iota
	RenderableDirtyMaterial
	RenderableDirtyLayer

	RenderableDirtyEverything = RenderableDirtyTransform | RenderableDirtyMaterial | RenderableDirtyLayer
)

// Transform places a renderable.
type Transform struct {
	Position [3]float32
	Scale    float32
}

// Renderable is the sim half of something drawn with a material.
type Renderable struct {
	coreobject.Base

	name      string
	transform Transform
	material  *Material
	layer     uint32
	registry  *Registry
}

// NewRenderable creates an uninitialized renderable using mat, which may be nil.
func NewRenderable(name string, mat *Material, reg *Registry) *Renderable {
	r := &Renderable{
		Base:      coreobject.NewBase(coreobject.FlagInitOnCoreThread),
		name:      name,
		transform: Transform{Scale: 1},
		material:  mat,
		layer:     1,
		registry:  reg,
	}
	r.MarkCoreDirty(RenderableDirtyEverything)
	return r
}

// Name returns the renderable name.
func (r *Renderable) Name() string { return r.name }

// Transform returns the sim-side transform.
func (r *Renderable) Transform() Transform { return r.transform }

// Material returns the sim-side material.
func (r *Renderable) Material() *Material { return r.material }

// Layer returns the sim-side layer mask.
func (r *Renderable) Layer() uint32 { return r.layer }

// SetTransform moves the renderable.
func (r *Renderable) SetTransform(t Transform) {
	r.transform = t
	r.MarkCoreDirty(RenderableDirtyTransform)
}

// SetPosition moves the renderable, keeping its scale.
func (r *Renderable) SetPosition(x, y, z float32) {
	r.transform.Position = [3]float32{x, y, z}
	r.MarkCoreDirty(RenderableDirtyTransform)
}

// SetMaterial changes the material and the recorded dependency.
func (r *Renderable) SetMaterial(m *Material) {
	r.material = m
	r.MarkCoreDirty(RenderableDirtyMaterial)
	r.MarkDependenciesDirty()
}

// SetLayer changes the layer mask.
func (r *Renderable) SetLayer(layer uint32) {
	r.layer = layer
	r.MarkCoreDirty(RenderableDirtyLayer)
}

// CoreDependencies implements coreobject.DependencyProvider.
func (r *Renderable) CoreDependencies() []coreobject.Object {
	if r.material == nil {
		return nil
	}
	return []coreobject.Object{r.material}
}

// CreateCore implements coreobject.Object.
func (r *Renderable) CreateCore() coreobject.Core {
	return &RenderableCore{
		id:       r.ID(),
		name:     r.name,
		registry: r.registry,
	}
}

// SyncToCore implements coreobject.Object.
func (r *Renderable) SyncToCore(alloc *coreobject.FrameAlloc) coreobject.SyncData {
	flags := r.CoreDirtyFlags()

	size := 4
	if flags&RenderableDirtyTransform != 0 {
		size += 16
	}
	if flags&RenderableDirtyMaterial != 0 {
		size += 8
	}
	if flags&RenderableDirtyLayer != 0 {
		size += 4
	}

	e := newEncoder(alloc, size)
	e.u32(uint32(flags))
	if flags&RenderableDirtyTransform != 0 {
		p := r.transform.Position
		e.f32(p[0])
		e.f32(p[1])
		e.f32(p[2])
		e.f32(r.transform.Scale)
	}
	if flags&RenderableDirtyMaterial != 0 {
		var id coreobject.ID
		if r.material != nil {
			id = r.material.ID()
		}
		e.u64(uint64(id))
	}
	if flags&RenderableDirtyLayer != 0 {
		e.u32(r.layer)
	}
	return e.data()
}

// RenderableCore is the core half of a renderable.
type RenderableCore struct {
	coreobject.CoreState

	id       coreobject.ID
	name     string
	registry *Registry

	Transform Transform
	Material  *MaterialCore
	Layer     uint32
	Syncs     int
}

// ID returns the id shared with the sim half.
func (c *RenderableCore) ID() coreobject.ID { return c.id }

// Name returns the renderable name.
func (c *RenderableCore) Name() string { return c.name }

// Initialize implements coreobject.Core.
func (c *RenderableCore) Initialize() {}

// SyncToCore implements coreobject.Core.
func (c *RenderableCore) SyncToCore(data coreobject.SyncData) {
	d := newDecoder(data)
	flags := coreobject.DirtyFlags(d.u32())
	if flags&RenderableDirtyTransform != 0 {
		c.Transform.Position = [3]float32{d.f32(), d.f32(), d.f32()}
		c.Transform.Scale = d.f32()
	}
	if flags&RenderableDirtyMaterial != 0 {
		id := coreobject.ID(d.u64())
		c.Material = nil
		if id != 0 {
			c.Material, _ = c.registry.Material(id)
		}
	}
	if flags&RenderableDirtyLayer != 0 {
		c.Layer = d.u32()
	}
	c.Syncs++
}

// Destroy implements coreobject.Destroyer.
func (c *RenderableCore) Destroy() {
	c.Material = nil
}
