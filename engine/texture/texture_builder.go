package texture

import (
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
)

// TextureBuilderOption is a function that configures a Texture during construction.
type TextureBuilderOption func(*textureImpl)

// WithSize is an option builder that sets the texture dimensions. A zero
// dimension falls back to DefaultResolution for both.
//
// Parameters:
//   - width: the width in texels
//   - height: the height in texels
//
// Returns:
//   - TextureBuilderOption: a function that applies the size option to a textureImpl
func WithSize(width, height int) TextureBuilderOption {
	return func(t *textureImpl) {
		t.width = width
		t.height = height
	}
}

// WithResolution is an option builder that creates a square texture.
//
// Parameters:
//   - res: the width and height in texels
//
// Returns:
//   - TextureBuilderOption: a function that applies the resolution option to a textureImpl
func WithResolution(res int) TextureBuilderOption {
	return WithSize(res, res)
}

// WithFormat is an option builder that sets both the input and the storage format.
//
// Parameters:
//   - f: the pixel format
//
// Returns:
//   - TextureBuilderOption: a function that applies the format option to a textureImpl
func WithFormat(f gpu.PixelFormat) TextureBuilderOption {
	return WithFormats(f, f)
}

// WithFormats is an option builder that sets distinct input and storage formats.
//
// Parameters:
//   - input: the layout of the supplied pixels
//   - storage: the layout kept on the device
//
// Returns:
//   - TextureBuilderOption: a function that applies the formats to a textureImpl
func WithFormats(input, storage gpu.PixelFormat) TextureBuilderOption {
	return func(t *textureImpl) {
		t.input = input
		t.storage = storage
	}
}

// WithPixels is an option builder that sets the initial pixel data. Without it
// only storage is allocated. The slice is not retained after NewTexture returns.
//
// Parameters:
//   - pixels: tightly packed rows, top to bottom
//
// Returns:
//   - TextureBuilderOption: a function that applies the pixel data to a textureImpl
func WithPixels(pixels []byte) TextureBuilderOption {
	return func(t *textureImpl) {
		t.pixels = pixels
	}
}

// WithLabel is an option builder that sets the debug label.
//
// Parameters:
//   - label: the label used in logs and errors
//
// Returns:
//   - TextureBuilderOption: a function that applies the label to a textureImpl
func WithLabel(label string) TextureBuilderOption {
	return func(t *textureImpl) {
		t.label = common.Coalesce(label, t.label)
	}
}
