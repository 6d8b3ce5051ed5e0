package mesh

import "github.com/Carmen-Shannon/oxy-shadow/common"

// MeshBuilderOption is a function that configures a Mesh during construction.
type MeshBuilderOption func(*mesh)

// WithLabel is an option builder that sets the debug label.
//
// Parameters:
//   - label: the label used in logs and errors
//
// Returns:
//   - MeshBuilderOption: a function that applies the label to a mesh
func WithLabel(label string) MeshBuilderOption {
	return func(m *mesh) {
		m.label = common.Coalesce(label, m.label)
	}
}

// WithPosition is an option builder that sets the initial world-space position.
//
// Parameters:
//   - x, y, z: the position
//
// Returns:
//   - MeshBuilderOption: a function that applies the position to a mesh
func WithPosition(x, y, z float32) MeshBuilderOption {
	return func(m *mesh) {
		m.position = common.Vec3{x, y, z}
	}
}

// WithRotation is an option builder that sets the initial Euler rotation in radians.
//
// Parameters:
//   - x, y, z: the rotation about each axis
//
// Returns:
//   - MeshBuilderOption: a function that applies the rotation to a mesh
func WithRotation(x, y, z float32) MeshBuilderOption {
	return func(m *mesh) {
		m.rotation = common.Vec3{x, y, z}
	}
}

// WithScale is an option builder that sets the initial per-axis scale.
//
// Parameters:
//   - x, y, z: the scale factors
//
// Returns:
//   - MeshBuilderOption: a function that applies the scale to a mesh
func WithScale(x, y, z float32) MeshBuilderOption {
	return func(m *mesh) {
		m.scale = common.Vec3{x, y, z}
	}
}
