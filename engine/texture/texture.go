// Package texture wraps device images that are bound to an image unit for their
// whole lifetime.
package texture

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/Carmen-Shannon/oxy-shadow/engine/slot"
)

// DefaultResolution is the width and height used when a texture is created
// without a size.
const DefaultResolution = 1024

var (
	// ErrDisposed is returned when operating on a disposed texture.
	ErrDisposed = errors.New("texture is disposed")

	// ErrInvalidSize is returned for negative dimensions or pixel data whose
	// length does not match the dimensions.
	ErrInvalidSize = errors.New("invalid texture size")
)

// textureImpl is the implementation of the Texture interface.
type textureImpl struct {
	ctx   render.Context
	label string

	width, height int
	input         gpu.PixelFormat
	storage       gpu.PixelFormat
	pixels        []byte

	image    gpu.ImageID
	unit     slot.Handle
	disposed bool
}

// Texture is a device image that keeps its own image unit until it is disposed.
type Texture interface {
	// Width returns the width in texels.
	//
	// Returns:
	//   - int: the width
	Width() int

	// Height returns the height in texels.
	//
	// Returns:
	//   - int: the height
	Height() int

	// Format returns the storage format kept on the device.
	//
	// Returns:
	//   - gpu.PixelFormat: the storage format
	Format() gpu.PixelFormat

	// Image returns the device image id.
	//
	// Returns:
	//   - gpu.ImageID: the image, or gpu.NoImage once disposed
	Image() gpu.ImageID

	// Unit returns the image unit the texture occupies.
	//
	// Returns:
	//   - slot.Handle: the unit, or slot.Invalid once disposed
	Unit() slot.Handle

	// Label returns the debug label.
	//
	// Returns:
	//   - string: the label
	Label() string

	// Activate points a sampler uniform of the current program at this texture's
	// unit. It does not bind the image: the image was bound to its unit when the
	// texture was created and stays there. Activating a disposed texture logs a
	// warning and does nothing.
	//
	// Parameters:
	//   - uniformLocation: the sampler uniform location
	Activate(uniformLocation int)

	// Disposed reports whether Dispose has been called.
	//
	// Returns:
	//   - bool: true once disposed
	Disposed() bool

	// Dispose releases the image unit and deletes the device image. Later calls
	// are no-ops. Device errors are logged, not returned.
	Dispose()
}

var _ Texture = &textureImpl{}
var _ render.Resource = &textureImpl{}

// NewTexture allocates an image unit and a device image, configures sampling
// and uploads the pixels, if any.
//
// Parameters:
//   - ctx: the rendering context the texture lives in
//   - opts: variadic list of TextureBuilderOption functions
//
// Returns:
//   - Texture: the new texture
//   - error: slot.ErrExhausted when no unit is free, ErrInvalidSize, or a device error
func NewTexture(ctx render.Context, opts ...TextureBuilderOption) (Texture, error) {
	t := &textureImpl{
		ctx:     ctx,
		label:   "texture",
		input:   gpu.PixelFormatRGBA,
		storage: gpu.PixelFormatRGBA,
		unit:    slot.Invalid,
	}
	for _, opt := range opts {
		opt(t)
	}

	if t.width < 0 || t.height < 0 {
		return nil, fmt.Errorf("%s: %dx%d: %w", t.label, t.width, t.height, ErrInvalidSize)
	}
	if t.width == 0 || t.height == 0 {
		t.width, t.height = DefaultResolution, DefaultResolution
	}
	if t.pixels != nil && t.input == gpu.PixelFormatRGBA && len(t.pixels) != t.width*t.height*4 {
		return nil, fmt.Errorf("%s: %d bytes for %dx%d rgba: %w", t.label, len(t.pixels), t.width, t.height, ErrInvalidSize)
	}

	if err := t.create(); err != nil {
		return nil, err
	}
	// Upload copies the data; do not pin caller buffers.
	t.pixels = nil

	logger.Logger().Debug("texture created",
		"label", t.label,
		"unit", t.unit,
		"width", t.width,
		"height", t.height,
		"format", t.storage,
	)
	return t, nil
}

func (t *textureImpl) create() error {
	units := t.ctx.Units()
	device := t.ctx.Device()

	unit, err := units.Add(t)
	if err != nil {
		return fmt.Errorf("%s: failed to allocate image unit: %w", t.label, err)
	}

	image, err := device.GenImage()
	if err != nil {
		units.Remove(unit)
		return fmt.Errorf("%s: failed to create image: %w", t.label, err)
	}

	device.ActiveUnit(int(unit))
	device.BindImage(image)
	device.SetImageParams(gpu.SamplerParams{
		WrapS:           gpu.WrapClampToEdge,
		WrapT:           gpu.WrapClampToEdge,
		MinFilter:       gpu.FilterLinear,
		MagFilter:       gpu.FilterLinear,
		UnpackAlignment: 1,
	})
	err = device.UploadImage(gpu.ImageUpload{
		Width:         t.width,
		Height:        t.height,
		InputFormat:   t.input,
		StorageFormat: t.storage,
		Pixels:        t.pixels,
	})
	device.ResetActiveUnit()

	if err != nil {
		units.Remove(unit)
		if delErr := device.DeleteImage(image); delErr != nil {
			logger.Logger().Warn("failed to delete image after upload error", "label", t.label, "error", delErr)
		}
		return fmt.Errorf("%s: failed to upload image: %w", t.label, err)
	}

	t.unit = unit
	t.image = image
	return nil
}

func (t *textureImpl) Width() int {
	return t.width
}

func (t *textureImpl) Height() int {
	return t.height
}

func (t *textureImpl) Format() gpu.PixelFormat {
	return t.storage
}

func (t *textureImpl) Image() gpu.ImageID {
	return t.image
}

func (t *textureImpl) Unit() slot.Handle {
	return t.unit
}

func (t *textureImpl) Label() string {
	return t.label
}

func (t *textureImpl) Activate(uniformLocation int) {
	if t.disposed {
		logger.Logger().Warn("activate on disposed texture", "label", t.label)
		return
	}
	t.ctx.Device().SetUniformInt(uniformLocation, int32(t.unit))
}

func (t *textureImpl) Disposed() bool {
	return t.disposed
}

func (t *textureImpl) Dispose() {
	if t.disposed {
		return
	}
	t.disposed = true

	t.ctx.Units().Remove(t.unit)
	if err := t.ctx.Device().DeleteImage(t.image); err != nil {
		logger.Logger().Warn("failed to delete image", "label", t.label, "image", t.image, "error", err)
	}
	logger.Logger().Debug("texture disposed", "label", t.label, "unit", t.unit)

	t.unit = slot.Invalid
	t.image = gpu.NoImage
}
