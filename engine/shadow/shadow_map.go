package shadow

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/Carmen-Shannon/oxy-shadow/engine/shader"
	"github.com/Carmen-Shannon/oxy-shadow/engine/texture"
)

// shadowMap is the implementation of the ShadowMap interface.
type shadowMap struct {
	ctx     render.Context
	program render.Program
	label   string

	transformLoc int
	positionLoc  int

	position common.Vec3
	forward  common.Vec3
	up       common.Vec3

	view       [16]float32
	projection [16]float32
	combined   [16]float32
	dirty      bool

	width, height int
	depth         texture.Texture
	target        gpu.RenderTargetID
	disposed      bool
}

// ShadowMap is a depth texture rendered from a light's view. The light's
// combined projection x view matrix is cached and recomputed only after the
// view or projection changes.
type ShadowMap interface {
	// SetView moves the light. No GPU work is done.
	//
	// Parameters:
	//   - position: the light position in world space
	//   - forward: the direction the light shines
	//   - up: the up vector of the light's image
	SetView(position, forward, up common.Vec3)

	// SetProjection replaces the light projection. No GPU work is done.
	//
	// Parameters:
	//   - projection: the column-major projection matrix
	SetProjection(projection [16]float32)

	// UpdateTransform recomputes the combined matrix if the view or projection
	// changed since the last call.
	UpdateTransform()

	// Combined returns projection x view, recomputing it first if needed.
	//
	// Returns:
	//   - [16]float32: the world to light clip space matrix
	Combined() [16]float32

	// View returns the light view matrix.
	//
	// Returns:
	//   - [16]float32: the view matrix
	View() [16]float32

	// Projection returns the light projection matrix.
	//
	// Returns:
	//   - [16]float32: the projection matrix
	Projection() [16]float32

	// Dirty reports whether the combined matrix is stale.
	//
	// Returns:
	//   - bool: true if a recompute is pending
	Dirty() bool

	// RegisterGeometry caches the vertex binding g is drawn with. Registering the
	// same geometry again does nothing. The cache is shared by every shadow map of
	// the context.
	//
	// Parameters:
	//   - g: the geometry to register
	//
	// Returns:
	//   - error: render.ErrNilGeometry or a device error
	RegisterGeometry(g render.Geometry) error

	// UnregisterGeometry deletes the cached vertex binding of g.
	//
	// Parameters:
	//   - g: the geometry to forget
	//
	// Returns:
	//   - bool: true if g was registered
	UnregisterGeometry(g render.Geometry) bool

	// DrawPass renders the depth of every geometry into the shadow map, in the
	// given order. The depth program must already be bound (see BindDepthProgram).
	// Drawing stops at the first unregistered geometry; the render target is
	// unbound on every path.
	//
	// Parameters:
	//   - geoms: the geometry to draw
	//
	// Returns:
	//   - error: ErrUnregisteredGeometry wrapped with the geometry index, or ErrDisposed
	DrawPass(geoms []render.Geometry) error

	// BindDepthProgram makes the depth program current.
	BindDepthProgram()

	// Texture returns the depth texture.
	//
	// Returns:
	//   - texture.Texture: the depth texture
	Texture() texture.Texture

	// Width returns the shadow map width in texels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the shadow map height in texels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Activate points a sampler uniform at the depth texture's unit.
	//
	// Parameters:
	//   - uniformLocation: the sampler uniform location
	Activate(uniformLocation int)

	// Dispose deletes the render target and the depth texture. Later calls are
	// no-ops. Cached geometry bindings are left to the context.
	Dispose()
}

var _ ShadowMap = &shadowMap{}

// NewShadowMap creates a shadow map with its depth texture and render target.
// Without options the light is the noon sun: at the origin, looking down,
// with an orthographic projection DefaultHalfExtent wide.
//
// Parameters:
//   - ctx: the rendering context
//   - program: the depth program, usually from shader.NewDepthProgram
//   - opts: variadic list of ShadowMapBuilderOption functions
//
// Returns:
//   - ShadowMap: the new shadow map
//   - error: ErrNilProgram, ErrIncompatibleProgram, or a texture or device error
func NewShadowMap(ctx render.Context, program render.Program, opts ...ShadowMapBuilderOption) (ShadowMap, error) {
	if program == nil {
		return nil, ErrNilProgram
	}

	s := &shadowMap{
		ctx:        ctx,
		program:    program,
		label:      "shadow map",
		position:   DefaultPosition,
		forward:    DefaultForward,
		up:         DefaultUp,
		projection: DefaultProjection(),
		width:      texture.DefaultResolution,
		height:     texture.DefaultResolution,
		target:     gpu.DefaultRenderTarget,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.transformLoc = program.UniformLocation(shader.TransformUniform)
	s.positionLoc = program.AttribLocation(shader.PositionAttribute)
	if s.transformLoc < 0 || s.positionLoc < 0 {
		return nil, fmt.Errorf("%s: uniform %q at %d, attribute %q at %d: %w",
			s.label, shader.TransformUniform, s.transformLoc, shader.PositionAttribute, s.positionLoc, ErrIncompatibleProgram)
	}

	depth, err := texture.NewTexture(ctx,
		texture.WithSize(s.width, s.height),
		texture.WithFormat(gpu.PixelFormatDepth),
		texture.WithLabel(s.label),
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.label, err)
	}

	target, err := ctx.Device().CreateRenderTarget(depth.Image())
	if err != nil {
		depth.Dispose()
		return nil, fmt.Errorf("%s: %w", s.label, err)
	}

	s.depth = depth
	s.target = target
	s.width, s.height = depth.Width(), depth.Height()
	s.SetView(s.position, s.forward, s.up)

	logger.Logger().Debug("shadow map created",
		"label", s.label,
		"target", target,
		"unit", depth.Unit(),
		"width", s.width,
		"height", s.height,
	)
	return s, nil
}

func (s *shadowMap) SetView(position, forward, up common.Vec3) {
	s.position, s.forward, s.up = position, forward, up
	s.view = common.ViewMatrix(position, forward, up)
	s.dirty = true
}

func (s *shadowMap) SetProjection(projection [16]float32) {
	s.projection = projection
	s.dirty = true
}

func (s *shadowMap) UpdateTransform() {
	if !s.dirty {
		return
	}
	s.combined = common.MulMatrix(s.projection, s.view)
	s.dirty = false
}

func (s *shadowMap) Combined() [16]float32 {
	s.UpdateTransform()
	return s.combined
}

func (s *shadowMap) View() [16]float32 {
	return s.view
}

func (s *shadowMap) Projection() [16]float32 {
	return s.projection
}

func (s *shadowMap) Dirty() bool {
	return s.dirty
}

func (s *shadowMap) RegisterGeometry(g render.Geometry) error {
	if _, err := s.ctx.Geometries().Register(g, s.positionLoc); err != nil {
		return fmt.Errorf("%s: %w", s.label, err)
	}
	return nil
}

func (s *shadowMap) UnregisterGeometry(g render.Geometry) bool {
	return s.ctx.Geometries().Unregister(g)
}

func (s *shadowMap) DrawPass(geoms []render.Geometry) error {
	if s.disposed {
		return ErrDisposed
	}

	device := s.ctx.Device()
	cache := s.ctx.Geometries()

	device.BindRenderTarget(s.target)
	device.ClearDepth()
	s.UpdateTransform()

	draws := 0
	defer func() {
		device.BindVertexBinding(gpu.NoVertexBinding)
		device.BindRenderTarget(gpu.DefaultRenderTarget)
		s.ctx.Observer().ObserveDrawCalls(draws)
	}()

	for i, g := range geoms {
		binding, ok := cache.Lookup(g)
		if !ok {
			return fmt.Errorf("%s: geometry %d: %w", s.label, i, ErrUnregisteredGeometry)
		}
		device.SetUniformMatrix4(s.transformLoc, common.MulMatrix(s.combined, g.WorldTransform()))
		device.BindVertexBinding(binding.VertexBinding)
		device.DrawIndexed(binding.IndexCount)
		draws++
	}
	return nil
}

func (s *shadowMap) BindDepthProgram() {
	s.program.Bind()
}

func (s *shadowMap) Texture() texture.Texture {
	return s.depth
}

func (s *shadowMap) Width() int {
	return s.width
}

func (s *shadowMap) Height() int {
	return s.height
}

func (s *shadowMap) Activate(uniformLocation int) {
	s.depth.Activate(uniformLocation)
}

func (s *shadowMap) Dispose() {
	if s.disposed {
		return
	}
	s.disposed = true

	if err := s.ctx.Device().DeleteRenderTarget(s.target); err != nil {
		logger.Logger().Warn("failed to delete render target", "label", s.label, "target", s.target, "error", err)
	}
	s.target = gpu.DefaultRenderTarget
	s.depth.Dispose()
}
