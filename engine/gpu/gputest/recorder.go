// Package gputest provides a recording gpu.Device for tests.
package gputest

import (
	"bytes"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
)

// Op names a recorded Device call.
type Op string

const (
	OpGenImage            Op = "GenImage"
	OpActiveUnit          Op = "ActiveUnit"
	OpBindImage           Op = "BindImage"
	OpSetImageParams      Op = "SetImageParams"
	OpUploadImage         Op = "UploadImage"
	OpResetActiveUnit     Op = "ResetActiveUnit"
	OpDeleteImage         Op = "DeleteImage"
	OpCreateRenderTarget  Op = "CreateRenderTarget"
	OpBindRenderTarget    Op = "BindRenderTarget"
	OpClearDepth          Op = "ClearDepth"
	OpDeleteRenderTarget  Op = "DeleteRenderTarget"
	OpCreateBuffer        Op = "CreateBuffer"
	OpDeleteBuffer        Op = "DeleteBuffer"
	OpCreateVertexBinding Op = "CreateVertexBinding"
	OpBindVertexBinding   Op = "BindVertexBinding"
	OpDeleteVertexBinding Op = "DeleteVertexBinding"
	OpVertexAttribute     Op = "VertexAttribute"
	OpBindIndexBuffer     Op = "BindIndexBuffer"
	OpDrawIndexed         Op = "DrawIndexed"
	OpCreateProgram       Op = "CreateProgram"
	OpUseProgram          Op = "UseProgram"
	OpDeleteProgram       Op = "DeleteProgram"
	OpSetUniformInt       Op = "SetUniformInt"
	OpSetUniformMatrix4   Op = "SetUniformMatrix4"
	OpRelease             Op = "Release"
)

// Call is one recorded Device call. Only the fields relevant to Op are set.
type Call struct {
	Op       Op
	Unit     int
	Image    gpu.ImageID
	Target   gpu.RenderTargetID
	Buffer   gpu.BufferID
	Binding  gpu.VertexBindingID
	Program  gpu.ProgramID
	Kind     gpu.BufferKind
	Location int
	Count    int
	Int      int32
	Matrix   [16]float32
	Params   gpu.SamplerParams
	Upload   gpu.ImageUpload
	Layout   gpu.VertexLayout
}

// Recorder is an in-memory gpu.Device that records every call in order.
// Resource ids start at 1 and are never reused.
type Recorder struct {
	// Calls holds every recorded call in issue order.
	Calls []Call

	// Units is returned by MaxImageUnits.
	Units int

	// Uniforms and Attribs resolve names for every program.
	Uniforms map[string]int
	Attribs  map[string]int

	// UploadErr, when set, is returned by UploadImage.
	UploadErr error
	// TargetErr, when set, is returned by CreateRenderTarget.
	TargetErr error
	// ProgramErr, when set, is returned by CreateProgram.
	ProgramErr error

	nextID uint32

	images   map[gpu.ImageID]bool
	targets  map[gpu.RenderTargetID]bool
	buffers  map[gpu.BufferID]bool
	bindings map[gpu.VertexBindingID]bool
	programs map[gpu.ProgramID]bool
}

var _ gpu.Device = &Recorder{}

// NewRecorder creates a Recorder exposing 16 image units and the depth shader
// names at location 0.
//
// Returns:
//   - *Recorder: the new recorder
func NewRecorder() *Recorder {
	return &Recorder{
		Units:    16,
		Uniforms: map[string]int{"modelToShadowSpace": 0, "shadowMap": 1},
		Attribs:  map[string]int{"vertPosition": 0},
		images:   make(map[gpu.ImageID]bool),
		targets:  make(map[gpu.RenderTargetID]bool),
		buffers:  make(map[gpu.BufferID]bool),
		bindings: make(map[gpu.VertexBindingID]bool),
		programs: make(map[gpu.ProgramID]bool),
	}
}

// Ops returns the recorded operation names in order.
func (r *Recorder) Ops() []Op {
	ops := make([]Op, len(r.Calls))
	for i, c := range r.Calls {
		ops[i] = c.Op
	}
	return ops
}

// Filter returns the recorded calls with the given operation.
func (r *Recorder) Filter(op Op) []Call {
	var out []Call
	for _, c := range r.Calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Count returns how many times op was recorded.
func (r *Recorder) Count(op Op) int {
	return len(r.Filter(op))
}

// Reset forgets recorded calls but keeps live resources.
func (r *Recorder) Reset() {
	r.Calls = nil
}

// LiveImages returns the number of images not yet deleted.
func (r *Recorder) LiveImages() int { return len(r.images) }

// LiveTargets returns the number of render targets not yet deleted.
func (r *Recorder) LiveTargets() int { return len(r.targets) }

// LiveBindings returns the number of vertex bindings not yet deleted.
func (r *Recorder) LiveBindings() int { return len(r.bindings) }

// LiveBuffers returns the number of buffers not yet deleted.
func (r *Recorder) LiveBuffers() int { return len(r.buffers) }

func (r *Recorder) id() uint32 {
	r.nextID++
	return r.nextID
}

func (r *Recorder) record(c Call) {
	r.Calls = append(r.Calls, c)
}

func (r *Recorder) MaxImageUnits() int {
	return r.Units
}

func (r *Recorder) GenImage() (gpu.ImageID, error) {
	id := gpu.ImageID(r.id())
	r.images[id] = true
	r.record(Call{Op: OpGenImage, Image: id})
	return id, nil
}

func (r *Recorder) ActiveUnit(unit int) {
	r.record(Call{Op: OpActiveUnit, Unit: unit})
}

func (r *Recorder) BindImage(id gpu.ImageID) {
	r.record(Call{Op: OpBindImage, Image: id})
}

func (r *Recorder) SetImageParams(params gpu.SamplerParams) {
	r.record(Call{Op: OpSetImageParams, Params: params})
}

// UploadImage records a copy of the pixels, since callers may reuse the buffer.
func (r *Recorder) UploadImage(upload gpu.ImageUpload) error {
	upload.Pixels = bytes.Clone(upload.Pixels)
	r.record(Call{Op: OpUploadImage, Upload: upload})
	return r.UploadErr
}

func (r *Recorder) ResetActiveUnit() {
	r.record(Call{Op: OpResetActiveUnit})
}

func (r *Recorder) DeleteImage(id gpu.ImageID) error {
	delete(r.images, id)
	r.record(Call{Op: OpDeleteImage, Image: id})
	return nil
}

func (r *Recorder) CreateRenderTarget(depth gpu.ImageID) (gpu.RenderTargetID, error) {
	if r.TargetErr != nil {
		return gpu.DefaultRenderTarget, r.TargetErr
	}
	id := gpu.RenderTargetID(r.id())
	r.targets[id] = true
	r.record(Call{Op: OpCreateRenderTarget, Target: id, Image: depth})
	return id, nil
}

func (r *Recorder) BindRenderTarget(id gpu.RenderTargetID) {
	r.record(Call{Op: OpBindRenderTarget, Target: id})
}

func (r *Recorder) ClearDepth() {
	r.record(Call{Op: OpClearDepth})
}

func (r *Recorder) DeleteRenderTarget(id gpu.RenderTargetID) error {
	delete(r.targets, id)
	r.record(Call{Op: OpDeleteRenderTarget, Target: id})
	return nil
}

func (r *Recorder) CreateBuffer(kind gpu.BufferKind, data []byte) (gpu.BufferID, error) {
	id := gpu.BufferID(r.id())
	r.buffers[id] = true
	r.record(Call{Op: OpCreateBuffer, Buffer: id, Kind: kind, Count: len(data)})
	return id, nil
}

func (r *Recorder) DeleteBuffer(id gpu.BufferID) error {
	delete(r.buffers, id)
	r.record(Call{Op: OpDeleteBuffer, Buffer: id})
	return nil
}

func (r *Recorder) CreateVertexBinding() (gpu.VertexBindingID, error) {
	id := gpu.VertexBindingID(r.id())
	r.bindings[id] = true
	r.record(Call{Op: OpCreateVertexBinding, Binding: id})
	return id, nil
}

func (r *Recorder) BindVertexBinding(id gpu.VertexBindingID) {
	r.record(Call{Op: OpBindVertexBinding, Binding: id})
}

func (r *Recorder) DeleteVertexBinding(id gpu.VertexBindingID) error {
	delete(r.bindings, id)
	r.record(Call{Op: OpDeleteVertexBinding, Binding: id})
	return nil
}

func (r *Recorder) VertexAttribute(buf gpu.BufferID, location int, layout gpu.VertexLayout) {
	r.record(Call{Op: OpVertexAttribute, Buffer: buf, Location: location, Layout: layout})
}

func (r *Recorder) BindIndexBuffer(buf gpu.BufferID) {
	r.record(Call{Op: OpBindIndexBuffer, Buffer: buf})
}

func (r *Recorder) DrawIndexed(count int) {
	r.record(Call{Op: OpDrawIndexed, Count: count})
}

func (r *Recorder) CreateProgram(source gpu.ProgramSource) (gpu.ProgramID, error) {
	if r.ProgramErr != nil {
		return gpu.NoProgram, r.ProgramErr
	}
	id := gpu.ProgramID(r.id())
	r.programs[id] = true
	r.record(Call{Op: OpCreateProgram, Program: id})
	return id, nil
}

func (r *Recorder) UseProgram(id gpu.ProgramID) {
	r.record(Call{Op: OpUseProgram, Program: id})
}

func (r *Recorder) UniformLocation(_ gpu.ProgramID, name string) int {
	if loc, ok := r.Uniforms[name]; ok {
		return loc
	}
	return -1
}

func (r *Recorder) AttribLocation(_ gpu.ProgramID, name string) int {
	if loc, ok := r.Attribs[name]; ok {
		return loc
	}
	return -1
}

func (r *Recorder) DeleteProgram(id gpu.ProgramID) error {
	delete(r.programs, id)
	r.record(Call{Op: OpDeleteProgram, Program: id})
	return nil
}

func (r *Recorder) SetUniformInt(location int, v int32) {
	r.record(Call{Op: OpSetUniformInt, Location: location, Int: v})
}

func (r *Recorder) SetUniformMatrix4(location int, m [16]float32) {
	r.record(Call{Op: OpSetUniformMatrix4, Location: location, Matrix: m})
}

func (r *Recorder) Release() {
	r.record(Call{Op: OpRelease})
}
