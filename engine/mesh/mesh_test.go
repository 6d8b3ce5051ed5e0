package mesh

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVertexStride(t *testing.T) {
	assert.Equal(t, 32, VertexStride)
}

func TestNewMeshUploadsBuffers(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := render.NewContext(rec)

	m, err := NewCube(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, 36, m.IndexCount())
	assert.Equal(t, "cube", m.Label())

	bufs := rec.Filter(gputest.OpCreateBuffer)
	require.Len(t, bufs, 2)
	assert.Equal(t, gpu.BufferKindVertex, bufs[0].Kind)
	assert.Equal(t, 24*VertexStride, bufs[0].Count)
	assert.Equal(t, gpu.BufferKindIndex, bufs[1].Kind)
	assert.Equal(t, 36*4, bufs[1].Count)
}

func TestNewMeshRejectsBadInput(t *testing.T) {
	ctx := render.NewContext(gputest.NewRecorder())

	_, err := NewMesh(ctx, nil, []uint32{0})
	assert.ErrorIs(t, err, ErrEmpty)

	v, _ := PlaneData(1)
	_, err = NewMesh(ctx, v, []uint32{0, 1, 4})
	assert.Error(t, err)
}

func TestMeshWiresAttributes(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := render.NewContext(rec)
	m, err := NewPlane(ctx, 10)
	require.NoError(t, err)
	rec.Reset()

	m.ActivateAttribute(gpu.AttributeNormal, 2)
	m.ActivateAttribute(gpu.AttributePosition, -1)
	count := m.BindIndexBuffer()

	assert.Equal(t, 6, count)
	require.Equal(t, []gputest.Op{gputest.OpVertexAttribute, gputest.OpBindIndexBuffer}, rec.Ops())
	attr := rec.Calls[0]
	assert.Equal(t, 2, attr.Location)
	assert.Equal(t, gpu.VertexLayout{Components: 3, Stride: VertexStride, Offset: 12}, attr.Layout)
}

func TestWorldTransformFollowsSetters(t *testing.T) {
	ctx := render.NewContext(gputest.NewRecorder())
	m, err := NewCube(ctx, 1, WithPosition(1, 2, 3))
	require.NoError(t, err)

	w := m.WorldTransform()
	assert.Equal(t, [3]float32{1, 2, 3}, [3]float32{w[12], w[13], w[14]})

	m.SetPosition(4, 5, 6)
	m.SetScale(2, 2, 2)
	w = m.WorldTransform()
	assert.Equal(t, common.Vec3{4, 5, 6}, m.Position())
	assert.Equal(t, float32(4), w[12])
	assert.Equal(t, float32(2), w[0])
}

func TestMeshDisposeUnregisters(t *testing.T) {
	rec := gputest.NewRecorder()
	ctx := render.NewContext(rec)
	m, err := NewCube(ctx, 1)
	require.NoError(t, err)

	_, err = ctx.Geometries().Register(m, 0)
	require.NoError(t, err)

	m.Dispose()
	m.Dispose()

	_, ok := ctx.Geometries().Lookup(m)
	assert.False(t, ok)
	assert.Equal(t, 0, rec.LiveBuffers())
	assert.Equal(t, 0, rec.LiveBindings())
}

func TestCubeDataIndicesInRange(t *testing.T) {
	v, idx := CubeData(3)
	require.Len(t, v, 24)
	for _, i := range idx {
		assert.Less(t, int(i), len(v))
	}
	for _, vert := range v {
		for _, c := range vert.Position {
			assert.InDelta(t, 1.5, abs(c), 1e-6)
		}
	}
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
