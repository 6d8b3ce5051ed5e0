package shader

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
)

const (
	// TransformUniform is the depth program's model-to-light-clip-space matrix.
	TransformUniform = "modelToShadowSpace"

	// PositionAttribute is the depth program's object-space position input.
	PositionAttribute = "vertPosition"

	// DepthProgramLabel labels the depth program in logs.
	DepthProgramLabel = "Shadow Depth"
)

// DepthVertexGLSL is the depth-only vertex stage for the OpenGL backend.
//
//go:embed assets/depth.vert.glsl
var DepthVertexGLSL string

// DepthFragmentGLSL is the empty fragment stage for the OpenGL backend.
//
//go:embed assets/depth.frag.glsl
var DepthFragmentGLSL string

// DepthWGSL is the depth-only vertex stage for the WebGPU backend.
//
//go:embed assets/depth.wgsl
var DepthWGSL string

// DepthSource returns the sources of the depth-only program for every backend.
//
// Returns:
//   - gpu.ProgramSource: the sources
func DepthSource() gpu.ProgramSource {
	return gpu.ProgramSource{
		Label:        DepthProgramLabel,
		GLSLVertex:   DepthVertexGLSL,
		GLSLFragment: DepthFragmentGLSL,
		WGSL:         DepthWGSL,
	}
}

// NewDepthProgram builds the program shadow maps render with. Create it once per
// context and share it between shadow maps.
//
// Parameters:
//   - ctx: the rendering context
//
// Returns:
//   - Program: the depth program
//   - error: the compile or link error
func NewDepthProgram(ctx render.Context) (Program, error) {
	return NewProgram(ctx, DepthSource())
}
