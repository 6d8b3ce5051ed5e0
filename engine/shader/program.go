// Package shader provides device-backed shader programs and the embedded
// depth-only program used by shadow passes.
package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
)

// program is the implementation of the Program interface.
type program struct {
	device gpu.Device
	id     gpu.ProgramID
	label  string

	uniforms map[string]int
	attribs  map[string]int
	disposed bool
}

// Program is a linked shader program with cached uniform and attribute lookups.
type Program interface {
	render.Program

	// ID returns the device program id.
	//
	// Returns:
	//   - gpu.ProgramID: the program, or gpu.NoProgram once disposed
	ID() gpu.ProgramID

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Dispose deletes the device program. Later calls are no-ops.
	Dispose()
}

var _ Program = &program{}

// NewProgram compiles and links a program on the context's device.
//
// Parameters:
//   - ctx: the rendering context
//   - source: the backend shader sources
//
// Returns:
//   - Program: the linked program
//   - error: the compile or link error
func NewProgram(ctx render.Context, source gpu.ProgramSource) (Program, error) {
	device := ctx.Device()
	id, err := device.CreateProgram(source)
	if err != nil {
		return nil, fmt.Errorf("failed to create program %q: %w", source.Label, err)
	}

	logger.Logger().Debug("program created", "label", source.Label, "program", id)
	return &program{
		device:   device,
		id:       id,
		label:    source.Label,
		uniforms: make(map[string]int),
		attribs:  make(map[string]int),
	}, nil
}

func (p *program) ID() gpu.ProgramID {
	return p.id
}

func (p *program) Label() string {
	return p.label
}

func (p *program) Bind() {
	if p.disposed {
		logger.Logger().Warn("bind on disposed program", "label", p.label)
		return
	}
	p.device.UseProgram(p.id)
}

func (p *program) UniformLocation(name string) int {
	if loc, ok := p.uniforms[name]; ok {
		return loc
	}
	loc := p.device.UniformLocation(p.id, name)
	p.uniforms[name] = loc
	return loc
}

func (p *program) AttribLocation(name string) int {
	if loc, ok := p.attribs[name]; ok {
		return loc
	}
	loc := p.device.AttribLocation(p.id, name)
	p.attribs[name] = loc
	return loc
}

func (p *program) Dispose() {
	if p.disposed {
		return
	}
	p.disposed = true
	if err := p.device.DeleteProgram(p.id); err != nil {
		logger.Logger().Warn("failed to delete program", "label", p.label, "error", err)
	}
	p.id = gpu.NoProgram
}
