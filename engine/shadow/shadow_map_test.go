package shadow

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-shadow/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shader"
	"github.com/Carmen-Shannon/oxy-shadow/engine/texture"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type drawCounter struct{ draws []int }

func (d *drawCounter) ObserveDrawCalls(n int) { d.draws = append(d.draws, n) }

type fixture struct {
	rec     *gputest.Recorder
	ctx     render.Context
	program shader.Program
	obs     *drawCounter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	rec := gputest.NewRecorder()
	obs := &drawCounter{}
	ctx := render.NewContext(rec, render.WithFrameObserver(obs))
	p, err := shader.NewDepthProgram(ctx)
	require.NoError(t, err)
	return &fixture{rec: rec, ctx: ctx, program: p, obs: obs}
}

func (f *fixture) cubes(t *testing.T, n int) []render.Geometry {
	t.Helper()
	out := make([]render.Geometry, n)
	for i := range out {
		m, err := mesh.NewCube(f.ctx, 1, mesh.WithPosition(float32(i), 0, float32(-i)))
		require.NoError(t, err)
		out[i] = m
	}
	return out
}

func TestNewShadowMapDefaults(t *testing.T) {
	f := newFixture(t)
	f.rec.Reset()

	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)

	assert.Equal(t, texture.DefaultResolution, sm.Width())
	assert.Equal(t, texture.DefaultResolution, sm.Height())
	assert.Equal(t, DefaultProjection(), sm.Projection())
	assert.Equal(t, common.ViewMatrix(DefaultPosition, DefaultForward, DefaultUp), sm.View())
	assert.True(t, sm.Dirty())
	assert.Equal(t, gpu.PixelFormatDepth, sm.Texture().Format())

	uploads := f.rec.Filter(gputest.OpUploadImage)
	require.Len(t, uploads, 1)
	assert.Nil(t, uploads[0].Upload.Pixels)
	assert.Equal(t, gpu.PixelFormatDepth, uploads[0].Upload.StorageFormat)

	targets := f.rec.Filter(gputest.OpCreateRenderTarget)
	require.Len(t, targets, 1)
	assert.Equal(t, sm.Texture().Image(), targets[0].Image)
}

func TestNewShadowMapOptions(t *testing.T) {
	f := newFixture(t)
	proj := common.OrthographicMatrix(-5, 5, -5, 5, 1, 50)
	pos, fwd, up := common.Vec3{0, 10, 0}, common.Vec3{0, -1, 0}, common.Vec3{1, 0, 0}

	sm, err := NewShadowMap(f.ctx, f.program,
		WithResolution(512),
		WithProjection(proj),
		WithView(pos, fwd, up),
		WithLabel("sun"),
	)
	require.NoError(t, err)

	assert.Equal(t, 512, sm.Width())
	assert.Equal(t, proj, sm.Projection())
	assert.Equal(t, common.ViewMatrix(pos, fwd, up), sm.View())
	assert.Equal(t, "sun", sm.Texture().Label())
}

func TestNewShadowMapErrors(t *testing.T) {
	t.Run("nil program", func(t *testing.T) {
		f := newFixture(t)
		_, err := NewShadowMap(f.ctx, nil)
		assert.ErrorIs(t, err, ErrNilProgram)
	})

	t.Run("program without depth inputs", func(t *testing.T) {
		f := newFixture(t)
		delete(f.rec.Attribs, shader.PositionAttribute)
		p, err := shader.NewProgram(f.ctx, gpu.ProgramSource{Label: "lit"})
		require.NoError(t, err)

		_, err = NewShadowMap(f.ctx, p)
		assert.ErrorIs(t, err, ErrIncompatibleProgram)
		assert.Zero(t, f.rec.Count(gputest.OpGenImage))
	})

	t.Run("render target failure frees the texture", func(t *testing.T) {
		f := newFixture(t)
		f.rec.TargetErr = errors.New("incomplete")

		_, err := NewShadowMap(f.ctx, f.program)
		assert.ErrorIs(t, err, f.rec.TargetErr)
		assert.Equal(t, 0, f.ctx.Units().Len())
		assert.Equal(t, 0, f.rec.LiveImages())
	})
}

func TestUpdateTransformIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)

	sm.UpdateTransform()
	first := sm.Combined()
	assert.False(t, sm.Dirty())
	sm.UpdateTransform()
	assert.Equal(t, first, sm.Combined())
	assert.Equal(t, common.MulMatrix(sm.Projection(), sm.View()), first)

	sm.SetView(common.Vec3{1, 5, 0}, DefaultForward, DefaultUp)
	assert.True(t, sm.Dirty())
	sm.UpdateTransform()
	assert.NotEqual(t, first, sm.Combined())

	sm.SetProjection(sm.Projection())
	assert.True(t, sm.Dirty())
}

func TestSettersDoNoGPUWork(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	f.rec.Reset()

	sm.SetView(common.Vec3{0, 3, 0}, DefaultForward, DefaultUp)
	sm.SetProjection(DefaultProjection())
	sm.UpdateTransform()
	assert.Empty(t, f.rec.Calls)
}

func TestDrawPassPreservesOrder(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	geoms := f.cubes(t, 3)
	for _, g := range geoms {
		require.NoError(t, sm.RegisterGeometry(g))
	}
	f.rec.Reset()

	require.NoError(t, sm.DrawPass(geoms))

	assert.Equal(t, []gputest.Op{
		gputest.OpBindRenderTarget,
		gputest.OpClearDepth,
		gputest.OpSetUniformMatrix4, gputest.OpBindVertexBinding, gputest.OpDrawIndexed,
		gputest.OpSetUniformMatrix4, gputest.OpBindVertexBinding, gputest.OpDrawIndexed,
		gputest.OpSetUniformMatrix4, gputest.OpBindVertexBinding, gputest.OpDrawIndexed,
		gputest.OpBindVertexBinding,
		gputest.OpBindRenderTarget,
	}, f.rec.Ops())

	uploads := f.rec.Filter(gputest.OpSetUniformMatrix4)
	combined := sm.Combined()
	for i, g := range geoms {
		assert.Equal(t, common.MulMatrix(combined, g.WorldTransform()), uploads[i].Matrix, "geometry %d", i)
		assert.Equal(t, f.program.UniformLocation(shader.TransformUniform), uploads[i].Location)
	}

	for _, d := range f.rec.Filter(gputest.OpDrawIndexed) {
		assert.Equal(t, 36, d.Count)
	}
	binds := f.rec.Filter(gputest.OpBindRenderTarget)
	assert.NotEqual(t, gpu.DefaultRenderTarget, binds[0].Target)
	assert.Equal(t, gpu.DefaultRenderTarget, binds[1].Target)
	assert.Equal(t, []int{3}, f.obs.draws)
}

func TestRegisterGeometryIsIdempotent(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	g := f.cubes(t, 1)[0]

	require.NoError(t, sm.RegisterGeometry(g))
	require.NoError(t, sm.RegisterGeometry(g))
	assert.Equal(t, 1, f.ctx.Geometries().Len())
	assert.Equal(t, 1, f.rec.Count(gputest.OpCreateVertexBinding))

	binding, ok := f.ctx.Geometries().Lookup(g)
	require.True(t, ok)
	f.rec.Reset()

	require.NoError(t, sm.DrawPass([]render.Geometry{g}))
	assert.Zero(t, f.rec.Count(gputest.OpCreateVertexBinding))
	assert.Equal(t, binding.VertexBinding, f.rec.Filter(gputest.OpBindVertexBinding)[0].Binding)
}

func TestRegistrationSharedAcrossShadowMaps(t *testing.T) {
	f := newFixture(t)
	a, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	b, err := NewShadowMap(f.ctx, f.program, WithResolution(256))
	require.NoError(t, err)
	g := f.cubes(t, 1)[0]

	require.NoError(t, a.RegisterGeometry(g))
	assert.NoError(t, b.DrawPass([]render.Geometry{g}))
}

func TestDrawPassUnregisteredGeometryFails(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	geoms := f.cubes(t, 2)
	require.NoError(t, sm.RegisterGeometry(geoms[0]))
	f.rec.Reset()

	err = sm.DrawPass(geoms)
	assert.ErrorIs(t, err, ErrUnregisteredGeometry)
	assert.ErrorContains(t, err, "geometry 1")

	assert.Equal(t, 1, f.rec.Count(gputest.OpDrawIndexed))
	assert.Equal(t, 1, f.rec.Count(gputest.OpSetUniformMatrix4))
	last := f.rec.Calls[len(f.rec.Calls)-1]
	assert.Equal(t, gputest.OpBindRenderTarget, last.Op)
	assert.Equal(t, gpu.DefaultRenderTarget, last.Target)
	assert.Equal(t, []int{1}, f.obs.draws)
}

func TestDrawPassOnlyUnregistered(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	g := f.cubes(t, 1)[0]
	f.rec.Reset()

	err = sm.DrawPass([]render.Geometry{g})
	assert.ErrorIs(t, err, ErrUnregisteredGeometry)
	assert.Zero(t, f.rec.Count(gputest.OpDrawIndexed))
}

func TestUnregisterGeometry(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	g := f.cubes(t, 1)[0]
	require.NoError(t, sm.RegisterGeometry(g))

	assert.True(t, sm.UnregisterGeometry(g))
	assert.False(t, sm.UnregisterGeometry(g))
	assert.Equal(t, 0, f.rec.LiveBindings())
	assert.ErrorIs(t, sm.DrawPass([]render.Geometry{g}), ErrUnregisteredGeometry)
}

func TestActivateAndBindDepthProgram(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	f.rec.Reset()

	sm.BindDepthProgram()
	sm.Activate(1)

	require.Equal(t, []gputest.Op{gputest.OpUseProgram, gputest.OpSetUniformInt}, f.rec.Ops())
	assert.Equal(t, f.program.ID(), f.rec.Calls[0].Program)
	assert.Equal(t, int32(sm.Texture().Unit()), f.rec.Calls[1].Int)
}

func TestDisposeReleasesTargetAndSlot(t *testing.T) {
	f := newFixture(t)
	sm, err := NewShadowMap(f.ctx, f.program)
	require.NoError(t, err)
	unit := sm.Texture().Unit()
	f.rec.Reset()

	sm.Dispose()
	sm.Dispose()

	assert.Equal(t, []gputest.Op{gputest.OpDeleteRenderTarget, gputest.OpDeleteImage}, f.rec.Ops())
	_, ok := f.ctx.Units().Get(unit)
	assert.False(t, ok)
	assert.Equal(t, 0, f.rec.LiveTargets())
	assert.ErrorIs(t, sm.DrawPass(nil), ErrDisposed)
}
