package gpu

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const depthWGSL = `
@group(0) @binding(0) var<uniform> modelToShadowSpace: mat4x4<f32>;
@group(0) @binding(2) var shadowMap: texture_depth_2d;

struct VertexInput {
    @location(0) vertPosition: vec3<f32>,
    @location(1) vertNormal: vec3<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> @builtin(position) vec4<f32> {
    return modelToShadowSpace * vec4<f32>(in.vertPosition, 1.0);
}
`

func TestReflectWGSL(t *testing.T) {
	r := reflectWGSL(depthWGSL)

	assert.Equal(t, "vs_main", r.vertexEntry)
	assert.Empty(t, r.fragmentEntry)
	assert.Equal(t, map[string]int{"vertPosition": 0, "vertNormal": 1}, r.attribs)
	assert.Equal(t, map[string]int{"modelToShadowSpace": 0, "shadowMap": 2}, r.uniforms)
	require.Len(t, r.matrices, 1)
	assert.Equal(t, 0, r.matrices[0])
}

func TestReflectWGSLFragmentEntry(t *testing.T) {
	src := depthWGSL + `
@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`
	r := reflectWGSL(src)
	assert.Equal(t, "fs_main", r.fragmentEntry)
	assert.NotContains(t, r.attribs, "fs_main")
}

func TestVertexBindingLayoutsGroupByBuffer(t *testing.T) {
	b := &wgpuVertexBinding{attribs: []wgpuVertexAttrib{
		{buf: 7, location: 0, layout: VertexLayout{Components: 3, Stride: 32, Offset: 0}},
		{buf: 7, location: 2, layout: VertexLayout{Components: 2, Stride: 32, Offset: 24}},
		{buf: 9, location: 1, layout: VertexLayout{Components: 3, Stride: 12, Offset: 0}},
	}}

	slots, layouts := b.bufferLayouts()
	require.Equal(t, []BufferID{7, 9}, slots)
	require.Len(t, layouts, 2)
	assert.EqualValues(t, 32, layouts[0].ArrayStride)
	assert.Len(t, layouts[0].Attributes, 2)
	assert.EqualValues(t, 24, layouts[0].Attributes[1].Offset)
	assert.EqualValues(t, 1, layouts[1].Attributes[0].ShaderLocation)
	assert.Equal(t, vertexLayoutKey(layouts), vertexLayoutKey(layouts))
}

func TestMatrixRingKeepsLastValueAcrossPasses(t *testing.T) {
	r := &wgpuMatrixRing{staging: make([]byte, wgpuUniformStride)}

	var a, b [16]float32
	a[0], b[0] = 1, 2
	require.True(t, r.write(a))
	assert.Equal(t, wgpuUniformStride, r.cursor)
	require.True(t, r.write(b))
	assert.Equal(t, 2*wgpuUniformStride, r.cursor)
	assert.Len(t, r.staging, 3*wgpuUniformStride)

	r.rewind()
	assert.Equal(t, 0, r.cursor)
	assert.Len(t, r.staging, wgpuUniformStride)
	// 2.0f little-endian
	assert.Equal(t, []byte{0, 0, 0, 0x40}, r.staging[:4])
}

func TestMatrixRingHoldsAFullPass(t *testing.T) {
	r := &wgpuMatrixRing{staging: make([]byte, wgpuUniformStride)}
	bufferSize := wgpuUniformStride * wgpuRingSlots

	seen := make(map[int]int, WGPUMaxDrawsPerPass)
	for draw := range WGPUMaxDrawsPerPass {
		var m [16]float32
		m[0] = float32(draw)
		require.True(t, r.write(m), "draw %d", draw)

		prev, dup := seen[r.cursor]
		require.False(t, dup, "draw %d reuses the offset of draw %d", draw, prev)
		seen[r.cursor] = draw
		assert.NotZero(t, r.cursor, "slot 0 belongs to the previous pass")
		assert.LessOrEqual(t, r.cursor+wgpuUniformStride, bufferSize)
		assert.Zero(t, r.cursor%wgpuUniformStride)
	}

	last := r.cursor
	staged := bytes.Clone(r.staging)
	assert.False(t, r.write([16]float32{42}))
	assert.Equal(t, last, r.cursor)
	assert.Equal(t, staged, r.staging)
	assert.Len(t, r.staging, bufferSize)
}

func TestPadTo(t *testing.T) {
	assert.Len(t, padTo([]byte{1, 2, 3, 4, 5}, 4), 8)
	assert.Len(t, padTo([]byte{1, 2, 3, 4}, 4), 4)
	assert.EqualValues(t, 8, alignUp(5, 4))
}
