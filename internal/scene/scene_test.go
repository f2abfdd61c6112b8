package scene

import (
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/simcore/internal/cmdqueue"
	"github.com/roach88/simcore/internal/coreobject"
)

type fixture struct {
	mgr   *coreobject.Manager
	q     *cmdqueue.Queue
	alloc *coreobject.FrameAlloc
	scene *Scene
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	mgr := coreobject.NewManager(coreobject.WithLogger(quiet))
	q := cmdqueue.New(cmdqueue.WithLogger(quiet))
	return &fixture{
		mgr:   mgr,
		q:     q,
		alloc: coreobject.NewFrameAlloc(0),
		scene: New(mgr, q),
	}
}

// frame syncs dirty objects and plays the queue on another goroutine.
func (f *fixture) frame() int {
	n := f.mgr.SyncToCore(f.q, f.alloc)
	buf := f.q.Flush()
	done := make(chan struct{})
	go func() {
		defer close(done)
		f.q.Playback(buf)
	}()
	<-done
	f.alloc.Clear()
	return n
}

func TestScene_FirstSyncCarriesFullState(t *testing.T) {
	f := newFixture(t)
	mat, err := f.scene.AddMaterial("red")
	require.NoError(t, err)
	mat.SetColor(Color{1, 0, 0, 1})
	mat.SetShader("unlit")
	r, err := f.scene.AddRenderable("cube", "red")
	require.NoError(t, err)
	r.SetPosition(1, 2, 3)

	assert.Equal(t, 2, f.frame())

	mc := mat.Core().(*MaterialCore)
	rc := r.Core().(*RenderableCore)
	assert.True(t, mc.IsInitialized())
	assert.Equal(t, Color{1, 0, 0, 1}, mc.Color)
	assert.Equal(t, "unlit", mc.Shader)
	assert.Equal(t, [3]float32{1, 2, 3}, rc.Transform.Position)
	assert.Equal(t, float32(1), rc.Transform.Scale)
	assert.Equal(t, uint32(1), rc.Layer)
	assert.Same(t, mc, rc.Material)
}

func TestScene_PartialSnapshot(t *testing.T) {
	f := newFixture(t)
	mat, err := f.scene.AddMaterial("red")
	require.NoError(t, err)
	f.frame()

	mat.SetColor(Color{0.5, 0.5, 0.5, 1})
	assert.Equal(t, MaterialDirtyColor, mat.CoreDirtyFlags())

	alloc := coreobject.NewFrameAlloc(0)
	data := mat.SyncToCore(alloc)
	assert.Equal(t, 4+16, data.Size())

	f.frame()
	mc := mat.Core().(*MaterialCore)
	assert.Equal(t, Color{0.5, 0.5, 0.5, 1}, mc.Color)
	assert.Equal(t, "default", mc.Shader)
	assert.Equal(t, 2, mc.Syncs)
}

func TestScene_LongShaderRoundTrip(t *testing.T) {
	for _, n := range []int{0, 65535, 65536, 70000} {
		t.Run(strconv.Itoa(n), func(t *testing.T) {
			f := newFixture(t)
			mat, err := f.scene.AddMaterial("long")
			require.NoError(t, err)
			f.frame()

			shader := strings.Repeat("x", n)
			mat.SetShader(shader)
			data := mat.SyncToCore(coreobject.NewFrameAlloc(0))
			assert.Equal(t, 4+4+n, data.Size())

			f.frame()
			mc := mat.Core().(*MaterialCore)
			assert.Len(t, mc.Shader, n)
			assert.Equal(t, shader, mc.Shader)
		})
	}
}

func TestScene_CleanObjectsSkipSync(t *testing.T) {
	f := newFixture(t)
	_, err := f.scene.AddMaterial("red")
	require.NoError(t, err)
	assert.Equal(t, 1, f.frame())
	assert.Equal(t, 0, f.frame())
}

func TestScene_MaterialSwapResolvesOnCore(t *testing.T) {
	f := newFixture(t)
	red, err := f.scene.AddMaterial("red")
	require.NoError(t, err)
	_, err = f.scene.AddMaterial("blue")
	require.NoError(t, err)
	r, err := f.scene.AddRenderable("cube", "red")
	require.NoError(t, err)
	f.frame()

	blue, _ := f.scene.Material("blue")
	r.SetMaterial(blue)
	assert.Equal(t, []coreobject.ID{blue.ID()}, f.mgr.Dependencies(r.ID()))
	f.frame()

	rc := r.Core().(*RenderableCore)
	assert.Equal(t, blue.Core(), coreobject.Core(rc.Material))
	assert.NotEqual(t, red.Core(), coreobject.Core(rc.Material))
}

func TestScene_NewMaterialSyncsBeforeRenderable(t *testing.T) {
	f := newFixture(t)
	r, err := f.scene.AddRenderable("cube", "")
	require.NoError(t, err)
	f.frame()

	// Created after the renderable, so it has the higher id and would
	// otherwise sync second.
	mat, err := f.scene.AddMaterial("late")
	require.NoError(t, err)
	require.Greater(t, mat.ID(), r.ID())
	r.SetMaterial(mat)
	f.frame()

	rc := r.Core().(*RenderableCore)
	require.NotNil(t, rc.Material)
	assert.Equal(t, mat.ID(), rc.Material.ID())
	assert.Equal(t, 1, rc.Material.Syncs)
}

func TestScene_RemoveTearsDownCore(t *testing.T) {
	f := newFixture(t)
	mat, err := f.scene.AddMaterial("red")
	require.NoError(t, err)
	r, err := f.scene.AddRenderable("cube", "red")
	require.NoError(t, err)
	f.frame()

	assert.Error(t, f.scene.Remove("red"), "material still in use")

	rc := r.Core().(*RenderableCore)
	require.NoError(t, f.scene.Remove("cube"))
	require.NoError(t, f.scene.Remove("red"))
	assert.True(t, mat.IsDestroyed())
	f.frame()

	assert.True(t, rc.IsDestroyed())
	assert.Nil(t, rc.Material)
	assert.Equal(t, 0, f.scene.Registry().Len())
	assert.Equal(t, 0, f.mgr.Len())
	assert.Equal(t, 0, f.scene.Len())
}

func TestScene_NameErrors(t *testing.T) {
	f := newFixture(t)
	_, err := f.scene.AddMaterial("red")
	require.NoError(t, err)

	_, err = f.scene.AddMaterial("red")
	assert.Error(t, err)
	_, err = f.scene.AddRenderable("red", "")
	assert.Error(t, err)
	_, err = f.scene.AddRenderable("cube", "missing")
	assert.ErrorContains(t, err, `unknown material "missing"`)
	_, err = f.scene.AddMaterial("")
	assert.Error(t, err)
	assert.Error(t, f.scene.Remove("nothing"))
}

func TestScene_ClearAndNames(t *testing.T) {
	f := newFixture(t)
	_, err := f.scene.AddMaterial("b")
	require.NoError(t, err)
	_, err = f.scene.AddRenderable("c", "b")
	require.NoError(t, err)
	_, err = f.scene.AddRenderable("a", "")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, f.scene.Names())

	obj, ok := f.scene.Object("c")
	require.True(t, ok)
	assert.IsType(t, &Renderable{}, obj)

	f.scene.Clear()
	f.frame()
	assert.Empty(t, f.scene.Names())
	assert.Equal(t, 0, f.mgr.Len())
	assert.Equal(t, 0, f.scene.Registry().Len())
	assert.NotPanics(t, f.mgr.Shutdown)
}

func TestDecoder_ShortSnapshotPanics(t *testing.T) {
	core := &MaterialCore{registry: NewRegistry()}
	data := coreobject.NewSyncData([]byte{byte(MaterialDirtyColor), 0, 0, 0, 1, 2})
	assert.PanicsWithValue(t, ErrShortSnapshot, func() {
		core.SyncToCore(data)
	})
}

func TestDemo_Step(t *testing.T) {
	f := newFixture(t)
	demo, err := NewDemo(f.scene)
	require.NoError(t, err)
	assert.Equal(t, 5, f.frame())

	demo.Step(1)
	assert.Equal(t, 1, f.frame(), "only the cube moves")

	sphere, _ := f.scene.Renderable("sphere")
	demo.Step(10)
	assert.Equal(t, 2, f.frame())
	assert.Equal(t, "red", sphere.Material().Name())
	sc := sphere.Core().(*RenderableCore)
	assert.Equal(t, "red", sc.Material.Name())

	demo.Step(15)
	assert.Equal(t, 2, f.frame(), "cube and red")
	red, _ := f.scene.Material("red")
	assert.Equal(t, Color{1, 0.5, 0.5, 1}, red.Core().(*MaterialCore).Color)
}
