package texture

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu/gputest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePNG writes a w x h image whose top row is red and every other row blue.
func writePNG(t *testing.T, dir, name string, w, h int) string {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		c := color.NRGBA{B: 255, A: 255}
		if y == 0 {
			c = color.NRGBA{R: 255, A: 255}
		}
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}

	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

func TestLoad(t *testing.T) {
	rec, ctx := newTestContext()
	path := writePNG(t, t.TempDir(), "brick.png", 3, 2)

	tex, err := Load(ctx, path)
	require.NoError(t, err)

	assert.Equal(t, 3, tex.Width())
	assert.Equal(t, 2, tex.Height())
	assert.Equal(t, "brick.png", tex.Label())

	up := rec.Filter(gputest.OpUploadImage)[0].Upload
	require.Len(t, up.Pixels, 3*2*4)
	assert.Equal(t, []byte{255, 0, 0, 255}, up.Pixels[:4])
	assert.Zero(t, pixelBuffers.outstanding.Load())
}

func TestLoadFlipped(t *testing.T) {
	rec, ctx := newTestContext()
	path := writePNG(t, t.TempDir(), "brick.png", 2, 2)

	_, err := Load(ctx, path, WithFlipped())
	require.NoError(t, err)

	up := rec.Filter(gputest.OpUploadImage)[0].Upload
	assert.Equal(t, []byte{0, 0, 255, 255}, up.Pixels[:4])
	assert.Equal(t, []byte{255, 0, 0, 255}, up.Pixels[8:12])
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.png")
	require.NoError(t, os.WriteFile(garbage, []byte("not an image"), 0o644))

	tests := []struct {
		name string
		path string
		want error
	}{
		{"missing file", filepath.Join(dir, "missing.png"), ErrRead},
		{"corrupt file", garbage, ErrDecode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, ctx := newTestContext()
			_, err := Load(ctx, tt.path)
			assert.ErrorIs(t, err, tt.want)
			assert.Zero(t, rec.Count(gputest.OpGenImage))
			assert.Zero(t, pixelBuffers.outstanding.Load())
		})
	}
}

func TestLoadAllKeepsInputOrder(t *testing.T) {
	rec, ctx := newTestContext()
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", 1, 1),
		writePNG(t, dir, "b.png", 2, 2),
		writePNG(t, dir, "c.png", 3, 3),
	}

	textures, err := LoadAll(ctx, paths, WithDecodeWorkers(2))
	require.NoError(t, err)
	require.Len(t, textures, 3)

	for i, tex := range textures {
		assert.Equal(t, i+1, tex.Width())
		assert.Equal(t, i, int(tex.Unit()))
	}
	uploads := rec.Filter(gputest.OpUploadImage)
	require.Len(t, uploads, 3)
	assert.Equal(t, 1, uploads[0].Upload.Width)
	assert.Equal(t, 3, uploads[2].Upload.Width)
	assert.Zero(t, pixelBuffers.outstanding.Load())
}

func TestLoadAllFailureDisposesEverything(t *testing.T) {
	rec, ctx := newTestContext()
	dir := t.TempDir()
	paths := []string{
		writePNG(t, dir, "a.png", 2, 2),
		filepath.Join(dir, "missing.png"),
		writePNG(t, dir, "c.png", 2, 2),
	}

	textures, err := LoadAll(ctx, paths)
	assert.ErrorIs(t, err, ErrRead)
	assert.Nil(t, textures)
	assert.Equal(t, 0, ctx.Units().Len())
	assert.Equal(t, 0, rec.LiveImages())
	assert.Zero(t, pixelBuffers.outstanding.Load())
}

func TestLoadAllEmpty(t *testing.T) {
	_, ctx := newTestContext()
	textures, err := LoadAll(ctx, nil)
	assert.NoError(t, err)
	assert.Empty(t, textures)
}
