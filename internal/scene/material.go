package scene

import "github.com/roach88/simcore/internal/coreobject"

// Material dirty bits.
const (
	MaterialDirtyColor coreobject.DirtyFlags = 1 << iota
	MaterialDirtyShader
)

// Color is a linear RGBA color.
type Color struct {
	R, G, B, A float32
}

// Material is the sim half of a material.
type Material struct {
	coreobject.Base

	name     string
	color    Color
	shader   string
	registry *Registry
}

// NewMaterial creates an uninitialized material. Its core registers in reg.
func NewMaterial(name string, reg *Registry) *Material {
	m := &Material{
		Base:     coreobject.NewBase(coreobject.FlagInitOnCoreThread),
		name:     name,
		color:    Color{1, 1, 1, 1},
		shader:   "default",
		registry: reg,
	}
	// The first sync carries the full state.
	m.MarkCoreDirty(MaterialDirtyColor | MaterialDirtyShader)
	return m
}

// Name returns the material name.
func (m *Material) Name() string { return m.name }

// Color returns the sim-side color.
func (m *Material) Color() Color { return m.color }

// Shader returns the sim-side shader name.
func (m *Material) Shader() string { return m.shader }

// SetColor changes the color.
func (m *Material) SetColor(c Color) {
	m.color = c
	m.MarkCoreDirty(MaterialDirtyColor)
}

// SetShader changes the shader.
func (m *Material) SetShader(s string) {
	m.shader = s
	m.MarkCoreDirty(MaterialDirtyShader)
}

// CreateCore implements coreobject.Object.
func (m *Material) CreateCore() coreobject.Core {
	return &MaterialCore{
		id:       m.ID(),
		name:     m.name,
		registry: m.registry,
	}
}

// SyncToCore implements coreobject.Object.
func (m *Material) SyncToCore(alloc *coreobject.FrameAlloc) coreobject.SyncData {
	flags := m.CoreDirtyFlags()

	size := 4
	if flags&MaterialDirtyColor != 0 {
		size += 16
	}
	if flags&MaterialDirtyShader != 0 {
		size += strSize(m.shader)
	}

	e := newEncoder(alloc, size)
	e.u32(uint32(flags))
	if flags&MaterialDirtyColor != 0 {
		e.f32(m.color.R)
		e.f32(m.color.G)
		e.f32(m.color.B)
		e.f32(m.color.A)
	}
	if flags&MaterialDirtyShader != 0 {
		e.str(m.shader)
	}
	return e.data()
}

// MaterialCore is the core half of a material.
type MaterialCore struct {
	coreobject.CoreState

	id       coreobject.ID
	name     string
	registry *Registry

	Color  Color
	Shader string
	Syncs  int
}

// ID returns the id shared with the sim half.
func (c *MaterialCore) ID() coreobject.ID { return c.id }

// Name returns the material name.
func (c *MaterialCore) Name() string { return c.name }

// Initialize implements coreobject.Core.
func (c *MaterialCore) Initialize() {
	c.registry.materials[c.id] = c
}

// SyncToCore implements coreobject.Core.
func (c *MaterialCore) SyncToCore(data coreobject.SyncData) {
	d := newDecoder(data)
	flags := coreobject.DirtyFlags(d.u32())
	if flags&MaterialDirtyColor != 0 {
		c.Color = Color{d.f32(), d.f32(), d.f32(), d.f32()}
	}
	if flags&MaterialDirtyShader != 0 {
		c.Shader = d.str()
	}
	c.Syncs++
}

// Destroy implements coreobject.Destroyer.
func (c *MaterialCore) Destroy() {
	delete(c.registry.materials, c.id)
}
