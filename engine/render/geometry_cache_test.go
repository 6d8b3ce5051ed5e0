package render

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterBuildsBinding(t *testing.T) {
	rec := gputest.NewRecorder()
	cache := NewGeometryCache(rec)
	g := &fakeGeometry{device: rec, vbo: 10, ibo: 11, indices: 36}

	b, err := cache.Register(g, 3)
	require.NoError(t, err)
	assert.Equal(t, 36, b.IndexCount)

	assert.Equal(t, []gputest.Op{
		gputest.OpCreateVertexBinding,
		gputest.OpBindVertexBinding,
		gputest.OpVertexAttribute,
		gputest.OpBindIndexBuffer,
		gputest.OpBindVertexBinding,
	}, rec.Ops())

	binds := rec.Filter(gputest.OpBindVertexBinding)
	assert.Equal(t, b.VertexBinding, binds[0].Binding)
	assert.Equal(t, gpu.NoVertexBinding, binds[1].Binding)
	assert.Equal(t, 3, rec.Filter(gputest.OpVertexAttribute)[0].Location)
}

func TestRegisterIsIdempotent(t *testing.T) {
	rec := gputest.NewRecorder()
	cache := NewGeometryCache(rec)
	g := &fakeGeometry{device: rec, indices: 6}

	first, err := cache.Register(g, 0)
	require.NoError(t, err)
	rec.Reset()

	second, err := cache.Register(g, 0)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Empty(t, rec.Calls)
	assert.Equal(t, 1, cache.Len())
}

func TestRegisterNil(t *testing.T) {
	cache := NewGeometryCache(gputest.NewRecorder())
	_, err := cache.Register(nil, 0)
	assert.ErrorIs(t, err, ErrNilGeometry)

	_, ok := cache.Lookup(nil)
	assert.False(t, ok)
}

func TestUnregister(t *testing.T) {
	rec := gputest.NewRecorder()
	cache := NewGeometryCache(rec)
	g := &fakeGeometry{device: rec, indices: 3}
	other := &fakeGeometry{device: rec, indices: 3}

	b, err := cache.Register(g, 0)
	require.NoError(t, err)

	assert.False(t, cache.Unregister(other))
	assert.True(t, cache.Unregister(g))
	assert.False(t, cache.Unregister(g))

	_, ok := cache.Lookup(g)
	assert.False(t, ok)
	deletes := rec.Filter(gputest.OpDeleteVertexBinding)
	require.Len(t, deletes, 1)
	assert.Equal(t, b.VertexBinding, deletes[0].Binding)
	assert.Equal(t, 0, rec.LiveBindings())
}

func TestGeometryCacheDispose(t *testing.T) {
	rec := gputest.NewRecorder()
	cache := NewGeometryCache(rec)
	for i := 0; i < 3; i++ {
		_, err := cache.Register(&fakeGeometry{device: rec, indices: 3}, 0)
		require.NoError(t, err)
	}
	require.Equal(t, 3, rec.LiveBindings())

	cache.Dispose()
	assert.Equal(t, 0, cache.Len())
	assert.Equal(t, 0, rec.LiveBindings())
}

// sliceGeometry is a value type holding a slice, so it cannot key a map.
type sliceGeometry struct {
	indices []uint32
}

func (sliceGeometry) ActivateAttribute(gpu.Attribute, int) {}
func (g sliceGeometry) BindIndexBuffer() int              { return len(g.indices) }
func (sliceGeometry) WorldTransform() [16]float32         { return [16]float32{} }

func TestRegisterIncomparableGeometry(t *testing.T) {
	rec := gputest.NewRecorder()
	cache := NewGeometryCache(rec)
	g := sliceGeometry{indices: []uint32{0, 1, 2}}

	var err error
	require.NotPanics(t, func() { _, err = cache.Register(g, 0) })
	assert.ErrorIs(t, err, ErrIncomparableGeometry)
	assert.Empty(t, rec.Calls)
	assert.Equal(t, 0, cache.Len())

	require.NotPanics(t, func() {
		_, ok := cache.Lookup(g)
		assert.False(t, ok)
		assert.False(t, cache.Unregister(g))
	})
}
