package gpu

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// glDevice implements Device on an OpenGL 4.1 core context.
// The context must be current on the calling OS thread.
type glDevice struct {
	maxUnits int

	activeUnit int
	bound      map[int]ImageID
	imageSizes map[ImageID][2]int32
	targets    map[RenderTargetID][2]int32

	// prevViewport is restored when the default target is bound again.
	prevViewport [4]int32
}

var _ Device = &glDevice{}

// NewGLDevice loads the OpenGL function pointers for the context current on
// this thread and returns a Device backed by it. The calling goroutine is
// locked to its OS thread for the lifetime of the process, since a GL context
// is only valid on the thread that made it current.
//
// OpenGL reference: https://registry.khronos.org/OpenGL-Refpages/gl4/
//
// Returns:
//   - Device: the OpenGL device
//   - error: an error if the GL entry points could not be loaded
func NewGLDevice() (Device, error) {
	runtime.LockOSThread()
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	var units int32
	gl.GetIntegerv(gl.MAX_COMBINED_TEXTURE_IMAGE_UNITS, &units)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LESS)

	logger.Logger().Info("opengl device ready",
		"version", gl.GoStr(gl.GetString(gl.VERSION)),
		"imageUnits", units,
	)
	return &glDevice{
		maxUnits:   int(units),
		bound:      make(map[int]ImageID),
		imageSizes: make(map[ImageID][2]int32),
		targets:    make(map[RenderTargetID][2]int32),
	}, nil
}

func (d *glDevice) MaxImageUnits() int {
	return d.maxUnits
}

func (d *glDevice) GenImage() (ImageID, error) {
	var id uint32
	gl.GenTextures(1, &id)
	if id == 0 {
		return NoImage, fmt.Errorf("glGenTextures returned no name (error 0x%X)", gl.GetError())
	}
	return ImageID(id), nil
}

func (d *glDevice) ActiveUnit(unit int) {
	d.activeUnit = unit
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
}

func (d *glDevice) BindImage(id ImageID) {
	d.bound[d.activeUnit] = id
	gl.BindTexture(gl.TEXTURE_2D, uint32(id))
}

func (d *glDevice) SetImageParams(params SamplerParams) {
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, int32(max(params.UnpackAlignment, 1)))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, glWrap(params.WrapS))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, glWrap(params.WrapT))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, glFilter(params.MinFilter))
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, glFilter(params.MagFilter))
}

func (d *glDevice) UploadImage(upload ImageUpload) error {
	storage, err := glFormat(upload.StorageFormat)
	if err != nil {
		return err
	}
	input, err := glFormat(upload.InputFormat)
	if err != nil {
		return err
	}

	xtype := uint32(gl.UNSIGNED_BYTE)
	if upload.InputFormat == PixelFormatDepth {
		xtype = gl.FLOAT
	}

	pixels := gl.Ptr(nil)
	if len(upload.Pixels) > 0 {
		pixels = gl.Ptr(upload.Pixels)
	}
	gl.TexImage2D(gl.TEXTURE_2D, 0, int32(storage),
		int32(upload.Width), int32(upload.Height), 0,
		input, xtype, pixels)

	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("glTexImage2D %dx%d %s: error 0x%X", upload.Width, upload.Height, upload.StorageFormat, code)
	}
	d.imageSizes[d.bound[d.activeUnit]] = [2]int32{int32(upload.Width), int32(upload.Height)}
	return nil
}

func (d *glDevice) ResetActiveUnit() {
	d.activeUnit = 0
	gl.ActiveTexture(gl.TEXTURE0)
}

func (d *glDevice) DeleteImage(id ImageID) error {
	delete(d.imageSizes, id)
	name := uint32(id)
	gl.DeleteTextures(1, &name)
	return glErr("glDeleteTextures")
}

func (d *glDevice) CreateRenderTarget(depth ImageID) (RenderTargetID, error) {
	var fbo uint32
	gl.GenFramebuffers(1, &fbo)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fbo)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.DEPTH_ATTACHMENT, gl.TEXTURE_2D, uint32(depth), 0)
	gl.DrawBuffer(gl.NONE)
	gl.ReadBuffer(gl.NONE)

	status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER)
	gl.BindFramebuffer(gl.FRAMEBUFFER, 0)

	if status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fbo)
		return DefaultRenderTarget, fmt.Errorf("%w: status=0x%X", ErrIncompleteTarget, status)
	}
	d.targets[RenderTargetID(fbo)] = d.imageSizes[depth]
	return RenderTargetID(fbo), nil
}

func (d *glDevice) BindRenderTarget(id RenderTargetID) {
	if id == DefaultRenderTarget {
		gl.BindFramebuffer(gl.FRAMEBUFFER, 0)
		gl.Viewport(d.prevViewport[0], d.prevViewport[1], d.prevViewport[2], d.prevViewport[3])
		return
	}
	size, ok := d.targets[id]
	if !ok {
		logger.Logger().Warn("binding unknown render target", "target", id)
		return
	}
	gl.GetIntegerv(gl.VIEWPORT, &d.prevViewport[0])
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(id))
	gl.Viewport(0, 0, size[0], size[1])
}

func (d *glDevice) ClearDepth() {
	gl.Clear(gl.DEPTH_BUFFER_BIT)
}

func (d *glDevice) DeleteRenderTarget(id RenderTargetID) error {
	delete(d.targets, id)
	fbo := uint32(id)
	gl.DeleteFramebuffers(1, &fbo)
	return glErr("glDeleteFramebuffers")
}

func (d *glDevice) CreateBuffer(kind BufferKind, data []byte) (BufferID, error) {
	if len(data) == 0 {
		return 0, fmt.Errorf("empty %s buffer", kind)
	}
	// Upload through ARRAY_BUFFER so no vertex binding's index state is touched.
	var id uint32
	gl.GenBuffers(1, &id)
	gl.BindBuffer(gl.ARRAY_BUFFER, id)
	gl.BufferData(gl.ARRAY_BUFFER, len(data), gl.Ptr(data), gl.STATIC_DRAW)
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
	if err := glErr("glBufferData"); err != nil {
		gl.DeleteBuffers(1, &id)
		return 0, err
	}
	return BufferID(id), nil
}

func (d *glDevice) DeleteBuffer(id BufferID) error {
	name := uint32(id)
	gl.DeleteBuffers(1, &name)
	return glErr("glDeleteBuffers")
}

func (d *glDevice) CreateVertexBinding() (VertexBindingID, error) {
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	if vao == 0 {
		return NoVertexBinding, fmt.Errorf("glGenVertexArrays returned no name (error 0x%X)", gl.GetError())
	}
	return VertexBindingID(vao), nil
}

func (d *glDevice) BindVertexBinding(id VertexBindingID) {
	gl.BindVertexArray(uint32(id))
}

func (d *glDevice) DeleteVertexBinding(id VertexBindingID) error {
	vao := uint32(id)
	gl.DeleteVertexArrays(1, &vao)
	return glErr("glDeleteVertexArrays")
}

func (d *glDevice) VertexAttribute(buf BufferID, location int, layout VertexLayout) {
	if location < 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointerWithOffset(uint32(location), int32(layout.Components), gl.FLOAT, false,
		int32(layout.Stride), uintptr(layout.Offset))
	gl.BindBuffer(gl.ARRAY_BUFFER, 0)
}

func (d *glDevice) BindIndexBuffer(buf BufferID) {
	gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, uint32(buf))
}

func (d *glDevice) DrawIndexed(count int) {
	gl.DrawElementsWithOffset(gl.TRIANGLES, int32(count), gl.UNSIGNED_INT, 0)
}

func (d *glDevice) CreateProgram(source ProgramSource) (ProgramID, error) {
	vs, err := compileShader(gl.VERTEX_SHADER, source.GLSLVertex)
	if err != nil {
		return NoProgram, fmt.Errorf("%s vertex shader: %w", source.Label, err)
	}
	defer gl.DeleteShader(vs)

	fs, err := compileShader(gl.FRAGMENT_SHADER, source.GLSLFragment)
	if err != nil {
		return NoProgram, fmt.Errorf("%s fragment shader: %w", source.Label, err)
	}
	defer gl.DeleteShader(fs)

	program := gl.CreateProgram()
	gl.AttachShader(program, vs)
	gl.AttachShader(program, fs)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return NoProgram, fmt.Errorf("failed to link %s: %s", source.Label, strings.TrimRight(log, "\x00"))
	}
	return ProgramID(program), nil
}

func (d *glDevice) UseProgram(id ProgramID) {
	gl.UseProgram(uint32(id))
}

func (d *glDevice) UniformLocation(id ProgramID, name string) int {
	return int(gl.GetUniformLocation(uint32(id), gl.Str(name+"\x00")))
}

func (d *glDevice) AttribLocation(id ProgramID, name string) int {
	return int(gl.GetAttribLocation(uint32(id), gl.Str(name+"\x00")))
}

func (d *glDevice) DeleteProgram(id ProgramID) error {
	gl.DeleteProgram(uint32(id))
	return glErr("glDeleteProgram")
}

func (d *glDevice) SetUniformInt(location int, v int32) {
	gl.Uniform1i(int32(location), v)
}

func (d *glDevice) SetUniformMatrix4(location int, m [16]float32) {
	gl.UniformMatrix4fv(int32(location), 1, false, &m[0])
}

func (d *glDevice) Release() {
	if err := glErr("release"); err != nil {
		logger.Logger().Warn("opengl context reported an error during release", "error", err)
	}
}

func compileShader(kind uint32, source string) (uint32, error) {
	shader := gl.CreateShader(kind)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		log := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, fmt.Errorf("compile failed: %s", strings.TrimRight(log, "\x00"))
	}
	return shader, nil
}

func glFormat(f PixelFormat) (uint32, error) {
	switch f {
	case PixelFormatRGBA:
		return gl.RGBA, nil
	case PixelFormatDepth:
		return gl.DEPTH_COMPONENT, nil
	}
	return 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
}

func glWrap(w WrapMode) int32 {
	if w == WrapRepeat {
		return gl.REPEAT
	}
	return gl.CLAMP_TO_EDGE
}

func glFilter(f FilterMode) int32 {
	if f == FilterNearest {
		return gl.NEAREST
	}
	return gl.LINEAR
}

func glErr(op string) error {
	if code := gl.GetError(); code != gl.NO_ERROR {
		return fmt.Errorf("%s: error 0x%X", op, code)
	}
	return nil
}
