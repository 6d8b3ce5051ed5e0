// Package mesh provides indexed triangle meshes that can be drawn through a
// render.Context.
package mesh

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
)

// ErrEmpty is returned when a mesh has no vertices or no indices.
var ErrEmpty = errors.New("mesh has no geometry")

// Vertex is the interleaved vertex layout of every mesh.
type Vertex struct {
	Position [3]float32 // offset  0
	Normal   [3]float32 // offset 12
	TexCoord [2]float32 // offset 24
}

// VertexStride is the size of Vertex in bytes.
const VertexStride = int(unsafe.Sizeof(Vertex{}))

// layouts maps each attribute to its place inside Vertex.
var layouts = map[gpu.Attribute]gpu.VertexLayout{
	gpu.AttributePosition: {Components: 3, Stride: VertexStride, Offset: 0},
	gpu.AttributeNormal:   {Components: 3, Stride: VertexStride, Offset: 12},
	gpu.AttributeTexCoord: {Components: 2, Stride: VertexStride, Offset: 24},
}

// mesh is the implementation of the Mesh interface.
type mesh struct {
	ctx   render.Context
	label string

	vbo        gpu.BufferID
	ibo        gpu.BufferID
	indexCount int

	position common.Vec3
	rotation common.Vec3
	scale    common.Vec3
	world    [16]float32
	dirty    bool
	disposed bool
}

// Mesh is an indexed triangle list living in device buffers, placed in the
// world by position, Euler rotation and scale.
type Mesh interface {
	render.Geometry

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// IndexCount returns the number of indices drawn for this mesh.
	//
	// Returns:
	//   - int: the index count
	IndexCount() int

	// SetPosition moves the mesh.
	//
	// Parameters:
	//   - x, y, z: the world-space position
	SetPosition(x, y, z float32)

	// SetRotation sets the Euler rotation in radians, applied Y, then X, then Z.
	//
	// Parameters:
	//   - x, y, z: the rotation about each axis
	SetRotation(x, y, z float32)

	// SetScale sets the per-axis scale.
	//
	// Parameters:
	//   - x, y, z: the scale factors
	SetScale(x, y, z float32)

	// Position returns the world-space position.
	//
	// Returns:
	//   - common.Vec3: the position
	Position() common.Vec3

	// Dispose deletes the device buffers and drops any cached vertex binding.
	// Later calls are no-ops.
	Dispose()
}

var _ Mesh = &mesh{}

// NewMesh uploads vertices and indices to the context's device.
//
// Parameters:
//   - ctx: the rendering context
//   - vertices: the vertex data
//   - indices: triangle list indices into vertices
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the new mesh
//   - error: ErrEmpty, an out of range index, or a device error
func NewMesh(ctx render.Context, vertices []Vertex, indices []uint32, opts ...MeshBuilderOption) (Mesh, error) {
	m := &mesh{
		ctx:   ctx,
		label: "mesh",
		scale: common.Vec3{1, 1, 1},
		dirty: true,
	}
	for _, opt := range opts {
		opt(m)
	}

	if len(vertices) == 0 || len(indices) == 0 {
		return nil, fmt.Errorf("%s: %w", m.label, ErrEmpty)
	}
	for i, idx := range indices {
		if int(idx) >= len(vertices) {
			return nil, fmt.Errorf("%s: index %d references vertex %d of %d", m.label, i, idx, len(vertices))
		}
	}

	device := ctx.Device()
	vbo, err := device.CreateBuffer(gpu.BufferKindVertex, common.SliceToBytes(vertices))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", m.label, err)
	}
	ibo, err := device.CreateBuffer(gpu.BufferKindIndex, common.SliceToBytes(indices))
	if err != nil {
		if delErr := device.DeleteBuffer(vbo); delErr != nil {
			logger.Logger().Warn("failed to delete vertex buffer", "label", m.label, "error", delErr)
		}
		return nil, fmt.Errorf("%s: %w", m.label, err)
	}

	m.vbo = vbo
	m.ibo = ibo
	m.indexCount = len(indices)
	logger.Logger().Debug("mesh created", "label", m.label, "vertices", len(vertices), "indices", len(indices))
	return m, nil
}

func (m *mesh) Label() string {
	return m.label
}

func (m *mesh) IndexCount() int {
	return m.indexCount
}

func (m *mesh) ActivateAttribute(attr gpu.Attribute, location int) {
	layout, ok := layouts[attr]
	if !ok || location < 0 {
		logger.Logger().Warn("attribute not wired", "label", m.label, "attribute", attr, "location", location)
		return
	}
	m.ctx.Device().VertexAttribute(m.vbo, location, layout)
}

func (m *mesh) BindIndexBuffer() int {
	m.ctx.Device().BindIndexBuffer(m.ibo)
	return m.indexCount
}

func (m *mesh) WorldTransform() [16]float32 {
	if m.dirty {
		common.BuildModelMatrix(m.world[:],
			m.position[0], m.position[1], m.position[2],
			m.rotation[0], m.rotation[1], m.rotation[2],
			m.scale[0], m.scale[1], m.scale[2],
		)
		m.dirty = false
	}
	return m.world
}

func (m *mesh) SetPosition(x, y, z float32) {
	m.position = common.Vec3{x, y, z}
	m.dirty = true
}

func (m *mesh) SetRotation(x, y, z float32) {
	m.rotation = common.Vec3{x, y, z}
	m.dirty = true
}

func (m *mesh) SetScale(x, y, z float32) {
	m.scale = common.Vec3{x, y, z}
	m.dirty = true
}

func (m *mesh) Position() common.Vec3 {
	return m.position
}

func (m *mesh) Dispose() {
	if m.disposed {
		return
	}
	m.disposed = true

	m.ctx.Geometries().Unregister(m)
	device := m.ctx.Device()
	for _, buf := range []gpu.BufferID{m.vbo, m.ibo} {
		if err := device.DeleteBuffer(buf); err != nil {
			logger.Logger().Warn("failed to delete buffer", "label", m.label, "buffer", buf, "error", err)
		}
	}
}
