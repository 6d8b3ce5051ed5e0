package shadow

import "github.com/Carmen-Shannon/oxy-shadow/common"

// ShadowMapBuilderOption is a function that configures a ShadowMap during construction.
type ShadowMapBuilderOption func(*shadowMap)

// WithView is an option builder that sets the light's position and orientation.
//
// Parameters:
//   - position: the light position in world space
//   - forward: the direction the light shines
//   - up: the up vector of the light's image
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the view to a shadowMap
func WithView(position, forward, up common.Vec3) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.position, s.forward, s.up = position, forward, up
	}
}

// WithProjection is an option builder that sets the light projection.
//
// Parameters:
//   - projection: the column-major projection matrix
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the projection to a shadowMap
func WithProjection(projection [16]float32) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.projection = projection
	}
}

// WithResolution is an option builder that sets a square shadow map size.
//
// Parameters:
//   - res: the width and height in texels
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the resolution to a shadowMap
func WithResolution(res int) ShadowMapBuilderOption {
	return WithSize(res, res)
}

// WithSize is an option builder that sets the shadow map size. A zero dimension
// falls back to texture.DefaultResolution.
//
// Parameters:
//   - width: the width in texels
//   - height: the height in texels
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the size to a shadowMap
func WithSize(width, height int) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.width, s.height = width, height
	}
}

// WithLabel is an option builder that sets the debug label.
//
// Parameters:
//   - label: the label used in logs and errors
//
// Returns:
//   - ShadowMapBuilderOption: a function that applies the label to a shadowMap
func WithLabel(label string) ShadowMapBuilderOption {
	return func(s *shadowMap) {
		s.label = common.Coalesce(label, s.label)
	}
}
