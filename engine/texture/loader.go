package texture

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/logger"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

var (
	// ErrRead is returned when an image file cannot be read.
	ErrRead = errors.New("failed to read image")

	// ErrDecode is returned when image bytes are not a supported format.
	ErrDecode = errors.New("failed to decode image")
)

// loadConfig holds the options shared by Load and LoadAll.
type loadConfig struct {
	flipped bool
	workers int
}

// LoadOption is a function that configures an image load.
type LoadOption func(*loadConfig)

// WithFlipped is an option builder that stores the image bottom row first, the
// layout texture coordinates with a bottom-left origin expect.
//
// Returns:
//   - LoadOption: a function that enables the vertical flip
func WithFlipped() LoadOption {
	return func(c *loadConfig) {
		c.flipped = true
	}
}

// WithDecodeWorkers is an option builder that caps the goroutines LoadAll
// decodes on. Values <= 0 use runtime.NumCPU.
//
// Parameters:
//   - n: the maximum number of decode workers
//
// Returns:
//   - LoadOption: a function that applies the worker cap
func WithDecodeWorkers(n int) LoadOption {
	return func(c *loadConfig) {
		c.workers = n
	}
}

// pixelPool recycles RGBA conversion buffers between loads. outstanding counts
// buffers handed out and not yet returned.
type pixelPool struct {
	pool        sync.Pool
	outstanding atomic.Int64
}

var pixelBuffers = &pixelPool{
	pool: sync.Pool{New: func() any { return new([]byte) }},
}

func (p *pixelPool) get(n int) *[]byte {
	buf := p.pool.Get().(*[]byte)
	if cap(*buf) < n {
		*buf = make([]byte, n)
	}
	*buf = (*buf)[:n]
	p.outstanding.Add(1)
	return buf
}

func (p *pixelPool) put(buf *[]byte) {
	if buf == nil {
		return
	}
	p.outstanding.Add(-1)
	p.pool.Put(buf)
}

// decoded is a decoded image whose pixels live in a pooled buffer.
type decoded struct {
	common.TextureStagingData
	buf *[]byte
}

func (d *decoded) release() {
	pixelBuffers.put(d.buf)
	d.buf = nil
	d.Pixels = nil
}

// Load decodes an image file and uploads it as an RGBA texture. PNG, JPEG, BMP,
// TIFF and WebP are supported.
//
// Parameters:
//   - ctx: the rendering context the texture lives in
//   - path: the image file
//   - opts: variadic list of LoadOption functions
//
// Returns:
//   - Texture: the new texture
//   - error: ErrRead or ErrDecode wrapped with the path, or a NewTexture error
func Load(ctx render.Context, path string, opts ...LoadOption) (Texture, error) {
	cfg := newLoadConfig(opts)

	img, err := decodeFile(path, cfg.flipped)
	if err != nil {
		return nil, err
	}
	defer img.release()

	return upload(ctx, path, img)
}

// LoadAll decodes images in parallel and uploads them on the calling goroutine
// in input order. If any image fails, every texture created so far is disposed
// and the first error in input order is returned.
//
// Parameters:
//   - ctx: the rendering context the textures live in
//   - paths: the image files
//   - opts: variadic list of LoadOption functions
//
// Returns:
//   - []Texture: one texture per path
//   - error: the first failure
func LoadAll(ctx render.Context, paths []string, opts ...LoadOption) ([]Texture, error) {
	cfg := newLoadConfig(opts)
	if len(paths) == 0 {
		return nil, nil
	}

	results := make([]*decoded, len(paths))
	errs := make([]error, len(paths))

	pool := worker.NewDynamicWorkerPool(min(cfg.workers, len(paths)), len(paths), 1*time.Second)
	var wg sync.WaitGroup
	for i, path := range paths {
		wg.Add(1)
		idx, p := i, path
		pool.SubmitTask(worker.Task{
			ID: idx,
			Do: func() (any, error) {
				defer wg.Done()
				results[idx], errs[idx] = decodeFile(p, cfg.flipped)
				return nil, nil
			},
		})
	}
	wg.Wait()
	pool.Stop()

	defer func() {
		for _, r := range results {
			if r != nil {
				r.release()
			}
		}
	}()

	for i, err := range errs {
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
	}

	textures := make([]Texture, 0, len(paths))
	for i, path := range paths {
		t, err := upload(ctx, path, results[i])
		if err != nil {
			for _, created := range textures {
				created.Dispose()
			}
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		textures = append(textures, t)
		results[i].release()
		results[i] = nil
	}

	logger.Logger().Debug("textures loaded", "count", len(textures))
	return textures, nil
}

func newLoadConfig(opts []LoadOption) loadConfig {
	cfg := loadConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers <= 0 {
		cfg.workers = runtime.NumCPU()
	}
	return cfg
}

func upload(ctx render.Context, path string, img *decoded) (Texture, error) {
	return NewTexture(ctx,
		WithLabel(filepath.Base(path)),
		WithSize(img.Width, img.Height),
		WithFormat(gpu.PixelFormatRGBA),
		WithPixels(img.Pixels),
	)
}

// decodeFile reads and decodes path into a pooled RGBA buffer. On error no
// buffer is held.
func decodeFile(path string, flipped bool) (*decoded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrRead, path, err)
	}
	return decodeBytes(path, data, flipped)
}

func decodeBytes(name string, data []byte, flipped bool) (*decoded, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDecode, name, err)
	}
	if flipped {
		src = imaging.FlipV(src)
	}

	bounds := src.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("%w %s: empty image", ErrDecode, name)
	}

	buf := pixelBuffers.get(w * h * 4)
	dst := &image.NRGBA{
		Pix:    *buf,
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
	draw.Draw(dst, dst.Rect, src, bounds.Min, draw.Src)

	return &decoded{
		TextureStagingData: common.TextureStagingData{
			Pixels: dst.Pix,
			Width:  w,
			Height: h,
		},
		buf: buf,
	}, nil
}
