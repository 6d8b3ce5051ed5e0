// Package gpu defines the graphics-context abstraction the resource wrappers
// are written against, together with its OpenGL and WebGPU backends.
//
// A Device follows the bind-then-operate model of the hardware units it
// exposes: an image is bound to the active unit before it is configured, a
// vertex binding is bound before attributes are wired into it, and a render
// target stays bound until another one replaces it. Every Device method must
// be called from the goroutine that owns the graphics context.
package gpu

import (
	"errors"
	"fmt"
)

// ImageID identifies a device image. The zero value means "no image".
type ImageID uint32

// RenderTargetID identifies an off-screen render target.
type RenderTargetID uint32

// BufferID identifies a vertex or index buffer.
type BufferID uint32

// VertexBindingID identifies a vertex binding (vertex array object) that
// remembers attribute and index buffer wiring.
type VertexBindingID uint32

// ProgramID identifies a linked shader program.
type ProgramID uint32

const (
	// NoImage unbinds the image on the active unit.
	NoImage ImageID = 0

	// DefaultRenderTarget is the window surface.
	DefaultRenderTarget RenderTargetID = 0

	// NoVertexBinding unbinds the current vertex binding.
	NoVertexBinding VertexBindingID = 0

	// NoProgram unbinds the current program.
	NoProgram ProgramID = 0
)

// PixelFormat selects how image data is supplied and stored.
type PixelFormat int

const (
	// PixelFormatRGBA is 8-bit color with alpha, four bytes per pixel.
	PixelFormatRGBA PixelFormat = iota

	// PixelFormatDepth is a single depth channel.
	PixelFormatDepth
)

// String returns the format name.
func (f PixelFormat) String() string {
	switch f {
	case PixelFormatRGBA:
		return "rgba"
	case PixelFormatDepth:
		return "depth"
	}
	return fmt.Sprintf("PixelFormat(%d)", int(f))
}

// BufferKind distinguishes vertex data from index data.
type BufferKind int

const (
	// BufferKindVertex holds interleaved float32 vertex attributes.
	BufferKindVertex BufferKind = iota

	// BufferKindIndex holds uint32 triangle indices.
	BufferKindIndex
)

// String returns the buffer kind name.
func (k BufferKind) String() string {
	if k == BufferKindIndex {
		return "index"
	}
	return "vertex"
}

// Attribute names a per-vertex input a geometry can provide.
type Attribute int

const (
	// AttributePosition is the object-space vertex position (vec3).
	AttributePosition Attribute = iota

	// AttributeNormal is the object-space vertex normal (vec3).
	AttributeNormal

	// AttributeTexCoord is the texture coordinate (vec2).
	AttributeTexCoord
)

// WrapMode controls sampling outside [0, 1].
type WrapMode int

const (
	// WrapClampToEdge repeats the edge texel.
	WrapClampToEdge WrapMode = iota

	// WrapRepeat tiles the image.
	WrapRepeat
)

// FilterMode controls texel interpolation.
type FilterMode int

const (
	// FilterLinear blends neighbouring texels.
	FilterLinear FilterMode = iota

	// FilterNearest picks the closest texel.
	FilterNearest
)

// SamplerParams configures how the image bound on the active unit is sampled.
type SamplerParams struct {
	WrapS, WrapT         WrapMode
	MinFilter, MagFilter FilterMode
	// UnpackAlignment is the row alignment of uploaded pixel data in bytes.
	UnpackAlignment int
}

// ImageUpload describes the storage allocated for the image bound on the active unit.
type ImageUpload struct {
	Width, Height int
	// InputFormat is the layout of Pixels.
	InputFormat PixelFormat
	// StorageFormat is the layout kept on the device.
	StorageFormat PixelFormat
	// Pixels may be nil to allocate storage without data (render targets).
	Pixels []byte
}

// VertexLayout describes one attribute inside a vertex buffer.
type VertexLayout struct {
	// Components is the number of float32 values (1-4).
	Components int
	// Stride is the byte distance between consecutive vertices.
	Stride int
	// Offset is the byte offset of the attribute in a vertex.
	Offset int
}

var (
	// ErrUnsupportedFormat is returned for pixel formats a backend cannot store.
	ErrUnsupportedFormat = errors.New("unsupported pixel format")

	// ErrUnknownResource is returned when an id does not name a live resource.
	ErrUnknownResource = errors.New("unknown gpu resource")

	// ErrIncompleteTarget is returned when a render target cannot be completed.
	ErrIncompleteTarget = errors.New("render target incomplete")
)

// Device is the graphics context the engine renders through.
type Device interface {
	// MaxImageUnits returns the number of image units shaders can sample from.
	//
	// Returns:
	//   - int: the unit count reported by the backend
	MaxImageUnits() int

	// GenImage reserves a new image id with no storage.
	//
	// Returns:
	//   - ImageID: the new image
	//   - error: an error if the backend cannot create images
	GenImage() (ImageID, error)

	// ActiveUnit selects the unit subsequent BindImage calls affect.
	//
	// Parameters:
	//   - unit: the image unit index
	ActiveUnit(unit int)

	// BindImage binds an image to the active unit. NoImage unbinds.
	//
	// Parameters:
	//   - id: the image to bind
	BindImage(id ImageID)

	// SetImageParams configures sampling for the image bound on the active unit.
	//
	// Parameters:
	//   - params: wrap, filter and unpack parameters
	SetImageParams(params SamplerParams)

	// UploadImage allocates storage for the image bound on the active unit and
	// optionally fills it.
	//
	// Parameters:
	//   - upload: dimensions, formats and optional pixel data
	//
	// Returns:
	//   - error: ErrUnsupportedFormat or a backend error
	UploadImage(upload ImageUpload) error

	// ResetActiveUnit selects unit 0 again so later binds do not disturb the
	// unit of the last configured image.
	ResetActiveUnit()

	// DeleteImage frees an image. Deleting an unknown id is a no-op.
	//
	// Parameters:
	//   - id: the image to delete
	//
	// Returns:
	//   - error: a backend error, if any
	DeleteImage(id ImageID) error

	// CreateRenderTarget creates an off-screen target whose only attachment is
	// the depth image. Color draw and read buffers are disabled.
	//
	// Parameters:
	//   - depth: the depth image to attach
	//
	// Returns:
	//   - RenderTargetID: the new target
	//   - error: ErrIncompleteTarget or a backend error
	CreateRenderTarget(depth ImageID) (RenderTargetID, error)

	// BindRenderTarget directs subsequent draws to a target. DefaultRenderTarget
	// restores the window surface.
	//
	// Parameters:
	//   - id: the target to bind
	BindRenderTarget(id RenderTargetID)

	// ClearDepth clears the depth channel of the bound target. Color is untouched.
	ClearDepth()

	// DeleteRenderTarget frees a render target. The attached image is not deleted.
	//
	// Parameters:
	//   - id: the target to delete
	//
	// Returns:
	//   - error: a backend error, if any
	DeleteRenderTarget(id RenderTargetID) error

	// CreateBuffer uploads vertex or index data.
	//
	// Parameters:
	//   - kind: vertex or index
	//   - data: the raw bytes
	//
	// Returns:
	//   - BufferID: the new buffer
	//   - error: a backend error, if any
	CreateBuffer(kind BufferKind, data []byte) (BufferID, error)

	// DeleteBuffer frees a buffer.
	//
	// Parameters:
	//   - id: the buffer to delete
	//
	// Returns:
	//   - error: a backend error, if any
	DeleteBuffer(id BufferID) error

	// CreateVertexBinding creates an empty vertex binding.
	//
	// Returns:
	//   - VertexBindingID: the new binding
	//   - error: a backend error, if any
	CreateVertexBinding() (VertexBindingID, error)

	// BindVertexBinding makes a vertex binding current. NoVertexBinding unbinds.
	//
	// Parameters:
	//   - id: the binding to make current
	BindVertexBinding(id VertexBindingID)

	// DeleteVertexBinding frees a vertex binding. Buffers it references are kept.
	//
	// Parameters:
	//   - id: the binding to delete
	//
	// Returns:
	//   - error: a backend error, if any
	DeleteVertexBinding(id VertexBindingID) error

	// VertexAttribute wires a vertex buffer into the current vertex binding at
	// a shader attribute location.
	//
	// Parameters:
	//   - buf: the vertex buffer
	//   - location: the shader attribute location
	//   - layout: components, stride and offset of the attribute
	VertexAttribute(buf BufferID, location int, layout VertexLayout)

	// BindIndexBuffer records an index buffer in the current vertex binding.
	//
	// Parameters:
	//   - buf: the index buffer
	BindIndexBuffer(buf BufferID)

	// DrawIndexed issues an indexed triangle-list draw with the current vertex
	// binding and program.
	//
	// Parameters:
	//   - count: the number of indices to draw
	DrawIndexed(count int)

	// CreateProgram compiles and links a shader program.
	//
	// Parameters:
	//   - source: backend shader sources
	//
	// Returns:
	//   - ProgramID: the linked program
	//   - error: the compile or link log on failure
	CreateProgram(source ProgramSource) (ProgramID, error)

	// UseProgram makes a program current.
	//
	// Parameters:
	//   - id: the program to use
	UseProgram(id ProgramID)

	// UniformLocation resolves a uniform by name, -1 if absent.
	//
	// Parameters:
	//   - id: the program to query
	//   - name: the uniform name
	//
	// Returns:
	//   - int: the location
	UniformLocation(id ProgramID, name string) int

	// AttribLocation resolves a vertex attribute by name, -1 if absent.
	//
	// Parameters:
	//   - id: the program to query
	//   - name: the attribute name
	//
	// Returns:
	//   - int: the location
	AttribLocation(id ProgramID, name string) int

	// DeleteProgram frees a program.
	//
	// Parameters:
	//   - id: the program to delete
	//
	// Returns:
	//   - error: a backend error, if any
	DeleteProgram(id ProgramID) error

	// SetUniformInt writes an integer (sampler unit) uniform of the current program.
	//
	// Parameters:
	//   - location: the uniform location
	//   - v: the value
	SetUniformInt(location int, v int32)

	// SetUniformMatrix4 writes a column-major 4x4 matrix uniform of the current
	// program. The write is ordered before any draw issued after it returns.
	//
	// Parameters:
	//   - location: the uniform location
	//   - m: the matrix
	SetUniformMatrix4(location int, m [16]float32)

	// Release tears down the context. Errors are logged, not returned.
	Release()
}

// ProgramSource carries the shader sources for each backend; a backend reads
// only the fields it understands.
type ProgramSource struct {
	// Label names the program in debug output.
	Label string
	// GLSLVertex and GLSLFragment are used by the OpenGL backend.
	GLSLVertex, GLSLFragment string
	// WGSL is used by the WebGPU backend. It must contain a @vertex entry point
	// and may contain a @fragment entry point.
	WGSL string
}
