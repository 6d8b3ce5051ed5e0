package gpu

import (
	"encoding/binary"
	"fmt"
	"math"
	"runtime"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/cogentcore/webgpu/wgpu"
)

// WGPUMaxDrawsPerPass bounds the draws a single render target pass of the
// WebGPU device can hold; later draws in the pass are dropped.
const WGPUMaxDrawsPerPass = 1024

const (
	// wgpuImageUnits is the WebGPU guaranteed minimum for sampled textures per
	// shader stage.
	wgpuImageUnits = 16

	// wgpuUniformStride is the dynamic offset alignment every adapter accepts.
	wgpuUniformStride = 256

	wgpuMatrixSize = 64

	// wgpuRingSlots holds the value carried over from the previous pass in slot 0
	// plus one slot for every draw of a full pass.
	wgpuRingSlots = WGPUMaxDrawsPerPass + 1
)

type wgpuImage struct {
	texture *wgpu.Texture
	view    *wgpu.TextureView
	sampler *wgpu.Sampler
	params  SamplerParams
	format  PixelFormat
	width   int
	height  int
}

type wgpuVertexAttrib struct {
	buf      BufferID
	location int
	layout   VertexLayout
}

type wgpuVertexBinding struct {
	attribs []wgpuVertexAttrib
	index   BufferID
}

// wgpuMatrixRing stages the matrix writes of one uniform binding for the pass
// being recorded. Each write gets its own 256-byte slot so draws recorded
// between writes keep the value that was current when they were issued.
type wgpuMatrixRing struct {
	buffer  *wgpu.Buffer
	staging []byte
	cursor  int
}

type wgpuProgram struct {
	label      string
	module     *wgpu.ShaderModule
	reflection wgslReflection
	bglayout   *wgpu.BindGroupLayout
	layout     *wgpu.PipelineLayout
	bindGroup  *wgpu.BindGroup
	rings      map[int]*wgpuMatrixRing
	pipelines  map[string]*wgpu.RenderPipeline
	units      map[int]int32
}

// wgpuDevice emulates the bind-then-operate Device model on top of WebGPU.
// Render target binds open a command encoder; the pass is submitted when
// another target is bound or the device is released.
type wgpuDevice struct {
	mu *sync.Mutex

	instance *wgpu.Instance
	surface  *wgpu.Surface
	adapter  *wgpu.Adapter
	device   *wgpu.Device
	queue    *wgpu.Queue

	nextID uint32

	activeUnit int
	units      map[int]ImageID

	images   map[ImageID]*wgpuImage
	targets  map[RenderTargetID]ImageID
	buffers  map[BufferID]*wgpu.Buffer
	bindings map[VertexBindingID]*wgpuVertexBinding
	programs map[ProgramID]*wgpuProgram

	currentBinding VertexBindingID
	currentProgram ProgramID

	boundTarget RenderTargetID
	encoder     *wgpu.CommandEncoder
	pass        *wgpu.RenderPassEncoder
	passDraws   int
}

var _ Device = &wgpuDevice{}

// NewWGPUDevice creates a WebGPU backed Device. The calling goroutine is locked
// to its OS thread and must issue every later call.
//
// Parameters:
//   - surfaceDescriptor: the window surface to stay compatible with, or nil for a headless device
//   - forceFallbackAdapter: request the software adapter
//
// Returns:
//   - Device: the new device
//   - error: an error if no adapter or device could be acquired
func NewWGPUDevice(surfaceDescriptor *wgpu.SurfaceDescriptor, forceFallbackAdapter bool) (Device, error) {
	runtime.LockOSThread()

	d := &wgpuDevice{
		mu:       &sync.Mutex{},
		instance: wgpu.CreateInstance(nil),
		units:    make(map[int]ImageID),
		images:   make(map[ImageID]*wgpuImage),
		targets:  make(map[RenderTargetID]ImageID),
		buffers:  make(map[BufferID]*wgpu.Buffer),
		bindings: make(map[VertexBindingID]*wgpuVertexBinding),
		programs: make(map[ProgramID]*wgpuProgram),
	}
	if surfaceDescriptor != nil {
		d.surface = d.instance.CreateSurface(surfaceDescriptor)
	}

	a, err := d.instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		ForceFallbackAdapter: forceFallbackAdapter,
		CompatibleSurface:    d.surface,
	})
	if err != nil {
		d.instance.Release()
		return nil, fmt.Errorf("failed to request webgpu adapter: %w", err)
	}
	d.adapter = a

	dev, err := a.RequestDevice(&wgpu.DeviceDescriptor{
		Label: "Shadow Device",
		RequiredLimits: &wgpu.RequiredLimits{
			Limits: wgpu.DefaultLimits(),
		},
	})
	if err != nil {
		a.Release()
		d.instance.Release()
		return nil, fmt.Errorf("failed to request webgpu device: %w", err)
	}
	d.device = dev
	d.queue = dev.GetQueue()

	logger.Logger().Info("webgpu device ready", "fallback", forceFallbackAdapter, "surface", surfaceDescriptor != nil)
	return d, nil
}

func (d *wgpuDevice) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *wgpuDevice) MaxImageUnits() int {
	return wgpuImageUnits
}

func (d *wgpuDevice) GenImage() (ImageID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := ImageID(d.id())
	d.images[id] = &wgpuImage{params: SamplerParams{UnpackAlignment: 4}}
	return id, nil
}

func (d *wgpuDevice) ActiveUnit(unit int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeUnit = unit
}

func (d *wgpuDevice) BindImage(id ImageID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == NoImage {
		delete(d.units, d.activeUnit)
		return
	}
	d.units[d.activeUnit] = id
}

func (d *wgpuDevice) SetImageParams(params SamplerParams) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img := d.boundImage()
	if img == nil {
		logger.Logger().Warn("sampler parameters set with no image bound", "unit", d.activeUnit)
		return
	}
	img.params = params
	if img.texture == nil {
		return
	}
	if err := d.createSampler(img); err != nil {
		logger.Logger().Warn("failed to rebuild sampler", "unit", d.activeUnit, "error", err)
	}
}

func (d *wgpuDevice) UploadImage(upload ImageUpload) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	img := d.boundImage()
	if img == nil {
		return fmt.Errorf("upload to unit %d: %w", d.activeUnit, ErrUnknownResource)
	}
	if upload.InputFormat != upload.StorageFormat {
		return fmt.Errorf("%s input into %s storage: %w", upload.InputFormat, upload.StorageFormat, ErrUnsupportedFormat)
	}

	var format wgpu.TextureFormat
	var usage wgpu.TextureUsage
	switch upload.StorageFormat {
	case PixelFormatRGBA:
		format = wgpu.TextureFormatRGBA8Unorm
		usage = wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst
	case PixelFormatDepth:
		if upload.Pixels != nil {
			return fmt.Errorf("depth images cannot be written from the host: %w", ErrUnsupportedFormat)
		}
		format = wgpu.TextureFormatDepth32Float
		usage = wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding
	default:
		return fmt.Errorf("%s: %w", upload.StorageFormat, ErrUnsupportedFormat)
	}

	size := wgpu.Extent3D{
		Width:              uint32(upload.Width),
		Height:             uint32(upload.Height),
		DepthOrArrayLayers: 1,
	}
	tex, err := d.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "Image " + strconv.Itoa(int(d.units[d.activeUnit])),
		Size:          size,
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        format,
		Usage:         usage,
	})
	if err != nil {
		return fmt.Errorf("failed to create texture: %w", err)
	}

	if upload.Pixels != nil {
		d.queue.WriteTexture(
			&wgpu.ImageCopyTexture{
				Texture:  tex,
				MipLevel: 0,
				Origin:   wgpu.Origin3D{},
				Aspect:   wgpu.TextureAspectAll,
			},
			upload.Pixels,
			&wgpu.TextureDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(upload.Width * 4),
				RowsPerImage: uint32(upload.Height),
			},
			&size,
		)
	}

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return fmt.Errorf("failed to create texture view: %w", err)
	}

	img.releaseStorage()
	img.texture = tex
	img.view = view
	img.format = upload.StorageFormat
	img.width = upload.Width
	img.height = upload.Height

	if err := d.createSampler(img); err != nil {
		img.releaseStorage()
		return err
	}
	return nil
}

func (d *wgpuDevice) ResetActiveUnit() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.activeUnit = 0
}

func (d *wgpuDevice) DeleteImage(id ImageID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, ok := d.images[id]
	if !ok {
		return nil
	}
	img.releaseStorage()
	delete(d.images, id)
	for unit, bound := range d.units {
		if bound == id {
			delete(d.units, unit)
		}
	}
	return nil
}

func (d *wgpuDevice) CreateRenderTarget(depth ImageID) (RenderTargetID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	img, ok := d.images[depth]
	if !ok {
		return DefaultRenderTarget, fmt.Errorf("depth image %d: %w", depth, ErrUnknownResource)
	}
	if img.view == nil || img.format != PixelFormatDepth {
		return DefaultRenderTarget, fmt.Errorf("image %d has no depth storage: %w", depth, ErrIncompleteTarget)
	}

	id := RenderTargetID(d.id())
	d.targets[id] = depth
	return id, nil
}

func (d *wgpuDevice) BindRenderTarget(id RenderTargetID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == d.boundTarget {
		return
	}
	d.flush()

	if id == DefaultRenderTarget {
		d.boundTarget = DefaultRenderTarget
		return
	}
	if _, ok := d.targets[id]; !ok {
		logger.Logger().Warn("binding unknown render target", "target", id)
		d.boundTarget = DefaultRenderTarget
		return
	}

	encoder, err := d.device.CreateCommandEncoder(nil)
	if err != nil {
		logger.Logger().Warn("failed to create command encoder", "target", id, "error", err)
		d.boundTarget = DefaultRenderTarget
		return
	}
	d.encoder = encoder
	d.boundTarget = id
}

func (d *wgpuDevice) ClearDepth() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		logger.Logger().Warn("depth clear with no off-screen target bound")
		return
	}
	if d.pass != nil {
		d.pass.End()
		d.pass = nil
	}
	d.beginPass(wgpu.LoadOpClear)
}

func (d *wgpuDevice) DeleteRenderTarget(id RenderTargetID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if id == d.boundTarget {
		d.flush()
		d.boundTarget = DefaultRenderTarget
	}
	delete(d.targets, id)
	return nil
}

func (d *wgpuDevice) CreateBuffer(kind BufferKind, data []byte) (BufferID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if len(data) == 0 {
		return 0, fmt.Errorf("empty %s buffer", kind)
	}

	usage := wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst
	if kind == BufferKindIndex {
		usage = wgpu.BufferUsageIndex | wgpu.BufferUsageCopyDst
	}

	id := BufferID(d.id())
	buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            kind.String() + " Buffer " + strconv.Itoa(int(id)),
		Size:             alignUp(uint64(len(data)), 4),
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to create %s buffer: %w", kind, err)
	}
	d.queue.WriteBuffer(buf, 0, padTo(data, 4))
	d.buffers[id] = buf
	return id, nil
}

func (d *wgpuDevice) DeleteBuffer(id BufferID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if buf, ok := d.buffers[id]; ok {
		buf.Release()
		delete(d.buffers, id)
	}
	return nil
}

func (d *wgpuDevice) CreateVertexBinding() (VertexBindingID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	id := VertexBindingID(d.id())
	d.bindings[id] = &wgpuVertexBinding{}
	return id, nil
}

func (d *wgpuDevice) BindVertexBinding(id VertexBindingID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentBinding = id
}

func (d *wgpuDevice) DeleteVertexBinding(id VertexBindingID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	delete(d.bindings, id)
	if d.currentBinding == id {
		d.currentBinding = NoVertexBinding
	}
	return nil
}

func (d *wgpuDevice) VertexAttribute(buf BufferID, location int, layout VertexLayout) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bindings[d.currentBinding]
	if !ok {
		logger.Logger().Warn("vertex attribute set with no vertex binding bound", "location", location)
		return
	}
	for i, a := range b.attribs {
		if a.location == location {
			b.attribs[i] = wgpuVertexAttrib{buf: buf, location: location, layout: layout}
			return
		}
	}
	b.attribs = append(b.attribs, wgpuVertexAttrib{buf: buf, location: location, layout: layout})
}

func (d *wgpuDevice) BindIndexBuffer(buf BufferID) {
	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bindings[d.currentBinding]
	if !ok {
		logger.Logger().Warn("index buffer set with no vertex binding bound", "buffer", buf)
		return
	}
	b.index = buf
}

func (d *wgpuDevice) DrawIndexed(count int) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.encoder == nil {
		logger.Logger().Warn("draw with no off-screen target bound", "count", count)
		return
	}
	prog, ok := d.programs[d.currentProgram]
	if !ok {
		logger.Logger().Warn("draw with no program in use", "count", count)
		return
	}
	binding, ok := d.bindings[d.currentBinding]
	if !ok {
		logger.Logger().Warn("draw with no vertex binding bound", "count", count)
		return
	}
	indexBuf, ok := d.buffers[binding.index]
	if !ok {
		logger.Logger().Warn("draw with no index buffer", "binding", d.currentBinding)
		return
	}
	if d.passDraws >= WGPUMaxDrawsPerPass {
		logger.Logger().Warn("draw dropped, pass is full", "limit", WGPUMaxDrawsPerPass)
		return
	}

	slots, layouts := binding.bufferLayouts()
	pipeline, err := d.pipelineFor(prog, layouts)
	if err != nil {
		logger.Logger().Warn("failed to build render pipeline", "program", prog.label, "error", err)
		return
	}

	if d.pass == nil {
		d.beginPass(wgpu.LoadOpLoad)
		if d.pass == nil {
			return
		}
	}

	d.pass.SetPipeline(pipeline)
	if prog.bindGroup != nil {
		offsets := make([]uint32, 0, len(prog.reflection.matrices))
		for _, b := range prog.reflection.matrices {
			offsets = append(offsets, uint32(prog.rings[b].cursor))
		}
		d.pass.SetBindGroup(0, prog.bindGroup, offsets)
	}
	for i, id := range slots {
		d.pass.SetVertexBuffer(uint32(i), d.buffers[id], 0, wgpu.WholeSize)
	}
	d.pass.SetIndexBuffer(indexBuf, wgpu.IndexFormatUint32, 0, wgpu.WholeSize)
	d.pass.DrawIndexed(uint32(count), 1, 0, 0, 0)
	d.passDraws++
}

func (d *wgpuDevice) CreateProgram(source ProgramSource) (ProgramID, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if source.WGSL == "" {
		return NoProgram, fmt.Errorf("program %q has no WGSL source", source.Label)
	}
	reflection := reflectWGSL(source.WGSL)
	if reflection.vertexEntry == "" {
		return NoProgram, fmt.Errorf("program %q has no @vertex entry point", source.Label)
	}

	module, err := d.device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: source.Label,
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source.WGSL,
		},
	})
	if err != nil {
		return NoProgram, fmt.Errorf("failed to compile %q: %w", source.Label, err)
	}

	prog := &wgpuProgram{
		label:      source.Label,
		module:     module,
		reflection: reflection,
		rings:      make(map[int]*wgpuMatrixRing),
		pipelines:  make(map[string]*wgpu.RenderPipeline),
		units:      make(map[int]int32),
	}
	if err := d.createUniforms(prog); err != nil {
		prog.release()
		return NoProgram, err
	}

	id := ProgramID(d.id())
	d.programs[id] = prog
	logger.Logger().Debug("webgpu program created", "label", source.Label, "matrices", len(reflection.matrices))
	return id, nil
}

func (d *wgpuDevice) UseProgram(id ProgramID) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.currentProgram = id
}

func (d *wgpuDevice) UniformLocation(id ProgramID, name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prog, ok := d.programs[id]; ok {
		if loc, ok := prog.reflection.uniforms[name]; ok {
			return loc
		}
	}
	return -1
}

func (d *wgpuDevice) AttribLocation(id ProgramID, name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()

	if prog, ok := d.programs[id]; ok {
		if loc, ok := prog.reflection.attribs[name]; ok {
			return loc
		}
	}
	return -1
}

func (d *wgpuDevice) DeleteProgram(id ProgramID) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	prog, ok := d.programs[id]
	if !ok {
		return nil
	}
	if d.currentProgram == id {
		d.flush()
		d.currentProgram = NoProgram
	}
	prog.release()
	delete(d.programs, id)
	return nil
}

// SetUniformInt records the unit a sampler uniform reads from. Samplers are
// resolved when a pipeline with a fragment stage binds its textures.
func (d *wgpuDevice) SetUniformInt(location int, v int32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prog, ok := d.programs[d.currentProgram]
	if !ok || location < 0 {
		return
	}
	prog.units[location] = v
}

func (d *wgpuDevice) SetUniformMatrix4(location int, m [16]float32) {
	d.mu.Lock()
	defer d.mu.Unlock()

	prog, ok := d.programs[d.currentProgram]
	if !ok {
		return
	}
	ring, ok := prog.rings[location]
	if !ok {
		return
	}
	if d.passDraws >= WGPUMaxDrawsPerPass || !ring.write(m) {
		logger.Logger().Warn("matrix write dropped, pass is full", "program", prog.label, "location", location)
	}
}

func (d *wgpuDevice) Release() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.flush()
	for id, prog := range d.programs {
		prog.release()
		delete(d.programs, id)
	}
	for id, buf := range d.buffers {
		buf.Release()
		delete(d.buffers, id)
	}
	for id, img := range d.images {
		img.releaseStorage()
		delete(d.images, id)
	}
	clear(d.targets)
	clear(d.bindings)

	if d.queue != nil {
		d.queue.Release()
	}
	if d.device != nil {
		d.device.Release()
	}
	if d.adapter != nil {
		d.adapter.Release()
	}
	if d.surface != nil {
		d.surface.Release()
	}
	d.instance.Release()
	logger.Logger().Info("webgpu device released")
}

func (d *wgpuDevice) boundImage() *wgpuImage {
	id, ok := d.units[d.activeUnit]
	if !ok {
		return nil
	}
	return d.images[id]
}

func (d *wgpuDevice) createSampler(img *wgpuImage) error {
	samp, err := d.device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Image Sampler",
		AddressModeU:  wgpuAddressMode(img.params.WrapS),
		AddressModeV:  wgpuAddressMode(img.params.WrapT),
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpuFilterMode(img.params.MagFilter),
		MinFilter:     wgpuFilterMode(img.params.MinFilter),
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return fmt.Errorf("failed to create sampler: %w", err)
	}
	if img.sampler != nil {
		img.sampler.Release()
	}
	img.sampler = samp
	return nil
}

func (d *wgpuDevice) createUniforms(prog *wgpuProgram) error {
	matrices := prog.reflection.matrices
	if len(matrices) == 0 {
		layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
			Label: prog.label + " Pipeline Layout",
		})
		if err != nil {
			return fmt.Errorf("failed to create pipeline layout: %w", err)
		}
		prog.layout = layout
		return nil
	}

	layoutEntries := make([]wgpu.BindGroupLayoutEntry, 0, len(matrices))
	groupEntries := make([]wgpu.BindGroupEntry, 0, len(matrices))
	for _, binding := range matrices {
		buf, err := d.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: prog.label + " Uniform " + strconv.Itoa(binding),
			Size:  wgpuUniformStride * wgpuRingSlots,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("failed to create uniform buffer %d: %w", binding, err)
		}
		prog.rings[binding] = &wgpuMatrixRing{
			buffer:  buf,
			staging: make([]byte, wgpuUniformStride, wgpuUniformStride*8),
		}

		layoutEntries = append(layoutEntries, wgpu.BindGroupLayoutEntry{
			Binding:    uint32(binding),
			Visibility: wgpu.ShaderStageVertex,
			Buffer: wgpu.BufferBindingLayout{
				Type:             wgpu.BufferBindingTypeUniform,
				HasDynamicOffset: true,
				MinBindingSize:   wgpuMatrixSize,
			},
		})
		groupEntries = append(groupEntries, wgpu.BindGroupEntry{
			Binding: uint32(binding),
			Buffer:  buf,
			Offset:  0,
			Size:    wgpuMatrixSize,
		})
	}

	bgl, err := d.device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   prog.label + " Bind Group Layout",
		Entries: layoutEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group layout: %w", err)
	}
	prog.bglayout = bgl

	layout, err := d.device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            prog.label + " Pipeline Layout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return fmt.Errorf("failed to create pipeline layout: %w", err)
	}
	prog.layout = layout

	bg, err := d.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:   prog.label + " Bind Group",
		Layout:  bgl,
		Entries: groupEntries,
	})
	if err != nil {
		return fmt.Errorf("failed to create bind group: %w", err)
	}
	prog.bindGroup = bg
	return nil
}

// pipelineFor returns the depth-only pipeline of prog for a vertex layout,
// building it on first use.
func (d *wgpuDevice) pipelineFor(prog *wgpuProgram, layouts []wgpu.VertexBufferLayout) (*wgpu.RenderPipeline, error) {
	key := vertexLayoutKey(layouts)
	if p, ok := prog.pipelines[key]; ok {
		return p, nil
	}

	created, err := d.device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  prog.label + " Pipeline",
		Layout: prog.layout,
		Vertex: wgpu.VertexState{
			Module:     prog.module,
			EntryPoint: prog.reflection.vertexEntry,
			Buffers:    layouts,
		},
		Fragment: nil,
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            wgpu.TextureFormatDepth32Float,
			DepthWriteEnabled: true,
			DepthCompare:      wgpu.CompareFunctionLess,
			StencilFront: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
			StencilBack: wgpu.StencilFaceState{
				Compare: wgpu.CompareFunctionAlways,
			},
		},
	})
	if err != nil {
		return nil, err
	}
	prog.pipelines[key] = created
	return created, nil
}

func (d *wgpuDevice) beginPass(load wgpu.LoadOp) {
	depth := d.images[d.targets[d.boundTarget]]
	if depth == nil || depth.view == nil {
		logger.Logger().Warn("render target lost its depth image", "target", d.boundTarget)
		return
	}
	d.pass = d.encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: nil,
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            depth.view,
			DepthLoadOp:     load,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1.0,
		},
	})
}

// flush ends the open pass, uploads staged matrices and submits the encoder.
func (d *wgpuDevice) flush() {
	if d.encoder == nil {
		return
	}
	if d.pass != nil {
		d.pass.End()
		d.pass = nil
	}

	for _, prog := range d.programs {
		for _, ring := range prog.rings {
			d.queue.WriteBuffer(ring.buffer, 0, ring.staging)
			ring.rewind()
		}
	}

	commandBuffer, err := d.encoder.Finish(nil)
	if err != nil {
		logger.Logger().Warn("failed to finish command encoder", "target", d.boundTarget, "error", err)
		d.encoder.Release()
		d.encoder = nil
		d.passDraws = 0
		return
	}
	d.queue.Submit(commandBuffer)
	commandBuffer.Release()
	d.encoder.Release()
	d.encoder = nil
	d.passDraws = 0
}

// write stages m in a fresh slot and reports false, leaving every staged
// slot untouched, when the ring is full.
func (r *wgpuMatrixRing) write(m [16]float32) bool {
	if len(r.staging) >= wgpuUniformStride*wgpuRingSlots {
		return false
	}
	var slot [wgpuUniformStride]byte
	for i, v := range m {
		binary.LittleEndian.PutUint32(slot[i*4:], math.Float32bits(v))
	}
	r.cursor = len(r.staging)
	r.staging = append(r.staging, slot[:]...)
	return true
}

// rewind keeps the current value in slot 0 for the next pass.
func (r *wgpuMatrixRing) rewind() {
	copy(r.staging[:wgpuUniformStride], r.staging[r.cursor:r.cursor+wgpuUniformStride])
	r.staging = r.staging[:wgpuUniformStride]
	r.cursor = 0
}

func (p *wgpuProgram) release() {
	for _, pl := range p.pipelines {
		pl.Release()
	}
	for _, ring := range p.rings {
		ring.buffer.Release()
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
	}
	if p.layout != nil {
		p.layout.Release()
	}
	if p.bglayout != nil {
		p.bglayout.Release()
	}
	if p.module != nil {
		p.module.Release()
	}
}

func (img *wgpuImage) releaseStorage() {
	if img.sampler != nil {
		img.sampler.Release()
		img.sampler = nil
	}
	if img.view != nil {
		img.view.Release()
		img.view = nil
	}
	if img.texture != nil {
		img.texture.Release()
		img.texture = nil
	}
}

// bufferLayouts groups the binding's attributes by source buffer. The returned
// slice of buffer ids matches the vertex buffer slots of the layouts.
func (b *wgpuVertexBinding) bufferLayouts() ([]BufferID, []wgpu.VertexBufferLayout) {
	var slots []BufferID
	var layouts []wgpu.VertexBufferLayout
	index := make(map[BufferID]int)

	for _, a := range b.attribs {
		i, ok := index[a.buf]
		if !ok {
			i = len(slots)
			index[a.buf] = i
			slots = append(slots, a.buf)
			layouts = append(layouts, wgpu.VertexBufferLayout{
				ArrayStride: uint64(a.layout.Stride),
				StepMode:    wgpu.VertexStepModeVertex,
			})
		}
		layouts[i].Attributes = append(layouts[i].Attributes, wgpu.VertexAttribute{
			Format:         wgpuVertexFormat(a.layout.Components),
			Offset:         uint64(a.layout.Offset),
			ShaderLocation: uint32(a.location),
		})
	}
	return slots, layouts
}

func vertexLayoutKey(layouts []wgpu.VertexBufferLayout) string {
	var sb strings.Builder
	for _, l := range layouts {
		attrs := make([]string, 0, len(l.Attributes))
		for _, a := range l.Attributes {
			attrs = append(attrs, fmt.Sprintf("%d:%d:%d", a.ShaderLocation, a.Format, a.Offset))
		}
		sort.Strings(attrs)
		fmt.Fprintf(&sb, "%d[%s]", l.ArrayStride, strings.Join(attrs, ","))
	}
	return sb.String()
}

func wgpuVertexFormat(components int) wgpu.VertexFormat {
	switch components {
	case 1:
		return wgpu.VertexFormatFloat32
	case 2:
		return wgpu.VertexFormatFloat32x2
	case 4:
		return wgpu.VertexFormatFloat32x4
	default:
		return wgpu.VertexFormatFloat32x3
	}
}

func wgpuAddressMode(w WrapMode) wgpu.AddressMode {
	if w == WrapRepeat {
		return wgpu.AddressModeRepeat
	}
	return wgpu.AddressModeClampToEdge
}

func wgpuFilterMode(f FilterMode) wgpu.FilterMode {
	if f == FilterNearest {
		return wgpu.FilterModeNearest
	}
	return wgpu.FilterModeLinear
}

func alignUp(n, align uint64) uint64 {
	return (n + align - 1) &^ (align - 1)
}

// padTo returns data extended with zeros to a multiple of align bytes, as
// WriteBuffer requires.
func padTo(data []byte, align int) []byte {
	if rem := len(data) % align; rem != 0 {
		padded := make([]byte, len(data)+align-rem)
		copy(padded, data)
		return padded
	}
	return data
}
