// Package render holds the rendering context shared by every GPU resource
// wrapper: the device, the allocator handing out image units, and the cache of
// per-geometry vertex bindings used by depth passes.
package render

import (
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
)

// Geometry is drawable mesh data. Implementations should be pointers: the
// geometry cache keys on identity and rejects types that are not comparable.
type Geometry interface {
	// ActivateAttribute wires the geometry's data for attr into the currently
	// bound vertex binding at the given shader location.
	//
	// Parameters:
	//   - attr: the per-vertex attribute to provide
	//   - location: the shader attribute location
	ActivateAttribute(attr gpu.Attribute, location int)

	// BindIndexBuffer records the geometry's index buffer in the currently bound
	// vertex binding.
	//
	// Returns:
	//   - int: the number of indices to draw
	BindIndexBuffer() int

	// WorldTransform returns the geometry's model-to-world matrix.
	//
	// Returns:
	//   - [16]float32: the column-major world matrix
	WorldTransform() [16]float32
}

// Program is a linked shader program.
type Program interface {
	// Bind makes the program current on its device.
	Bind()

	// UniformLocation resolves a uniform by name.
	//
	// Parameters:
	//   - name: the uniform name
	//
	// Returns:
	//   - int: the location, or -1 if the program has no such uniform
	UniformLocation(name string) int

	// AttribLocation resolves a vertex attribute by name.
	//
	// Parameters:
	//   - name: the attribute name
	//
	// Returns:
	//   - int: the location, or -1 if the program has no such attribute
	AttribLocation(name string) int
}

// Resource is anything holding an image unit of a Context.
type Resource interface {
	// Dispose frees the resource and returns its unit. It must be idempotent.
	Dispose()
}

// FrameObserver receives draw statistics from passes issued through a Context.
type FrameObserver interface {
	// ObserveDrawCalls records n draw calls issued by one pass.
	//
	// Parameters:
	//   - n: the number of draws
	ObserveDrawCalls(n int)
}

type nopObserver struct{}

func (nopObserver) ObserveDrawCalls(int) {}
