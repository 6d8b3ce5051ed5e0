// Package shadow renders depth-only passes from a light's point of view into a
// shadow map that lit shaders can sample.
package shadow

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
)

// DefaultHalfExtent is the orthographic half-extent (in world units) of the
// default light frustum.
const DefaultHalfExtent float32 = 10.0

// DefaultNear and DefaultFar bound the default orthographic projection. Near is
// above far so that a light looking straight down captures everything within
// DefaultHalfExtent of it vertically.
const (
	DefaultNear float32 = 10.0
	DefaultFar  float32 = -10.0
)

var (
	// DefaultPosition places the default light at the world origin.
	DefaultPosition = common.Vec3{0, 0, 0}

	// DefaultForward points the default light straight down, like the sun at noon.
	DefaultForward = common.Vec3{0, -1, 0}

	// DefaultUp orients the default light's image with +Z up.
	DefaultUp = common.Vec3{0, 0, 1}
)

var (
	// ErrUnregisteredGeometry is returned by DrawPass for geometry that was never
	// passed to RegisterGeometry.
	ErrUnregisteredGeometry = render.ErrUnregisteredGeometry

	// ErrDisposed is returned when drawing with a disposed shadow map.
	ErrDisposed = errors.New("shadow map is disposed")

	// ErrNilProgram is returned when a shadow map is created without a depth program.
	ErrNilProgram = errors.New("depth program must not be nil")

	// ErrIncompatibleProgram is returned when the depth program lacks the
	// transform uniform or the position attribute.
	ErrIncompatibleProgram = errors.New("program is not a depth program")
)

// DefaultProjection returns the orthographic projection of the default light.
//
// Returns:
//   - [16]float32: the projection matrix
func DefaultProjection() [16]float32 {
	return common.OrthographicMatrix(
		-DefaultHalfExtent, DefaultHalfExtent,
		-DefaultHalfExtent, DefaultHalfExtent,
		DefaultNear, DefaultFar,
	)
}
