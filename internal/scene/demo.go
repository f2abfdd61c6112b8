package scene

import "math"

// Demo is the scene animated by `simcore run`: two materials and three
// renderables, with one change of each kind on a fixed schedule.
type Demo struct {
	scene *Scene
}

// NewDemo populates s.
func NewDemo(s *Scene) (*Demo, error) {
	for _, name := range []string{"red", "blue"} {
		if _, err := s.AddMaterial(name); err != nil {
			return nil, err
		}
	}
	red, _ := s.Material("red")
	red.SetColor(Color{1, 0, 0, 1})
	blue, _ := s.Material("blue")
	blue.SetColor(Color{0, 0, 1, 1})

	for _, obj := range []struct{ name, material string }{
		{"cube", "red"},
		{"sphere", "blue"},
		{"floor", "blue"},
	} {
		if _, err := s.AddRenderable(obj.name, obj.material); err != nil {
			return nil, err
		}
	}
	return &Demo{scene: s}, nil
}

// Step applies frame's changes. The cube moves every frame; every 10th
// frame the sphere swaps material; every 15th frame red changes shade.
func (d *Demo) Step(frame int64) {
	cube, _ := d.scene.Renderable("cube")
	angle := float64(frame) * math.Pi / 30
	cube.SetPosition(float32(math.Cos(angle)), 0, float32(math.Sin(angle)))

	if frame%10 == 0 {
		sphere, _ := d.scene.Renderable("sphere")
		next := "red"
		if sphere.Material().Name() == "red" {
			next = "blue"
		}
		m, _ := d.scene.Material(next)
		sphere.SetMaterial(m)
	}
	if frame%15 == 0 {
		red, _ := d.scene.Material("red")
		shade := float32(frame%30) / 30
		red.SetColor(Color{1, shade, shade, 1})
	}
}
