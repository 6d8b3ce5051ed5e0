// package common contains common types that are used throughout this engine. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

// TextureStagingData holds decoded RGBA pixel data pending GPU upload.
type TextureStagingData struct {
	// Pixels is the byte slice representing the actual pixel data for the texture. It should be in RGBA format, with 4 bytes per pixel, rows top to bottom.
	Pixels []byte
	// Width is the width of the texture in pixels.
	Width int
	// Height is the height of the texture in pixels.
	Height int
}

// Valid reports whether the staging data has positive dimensions and exactly one RGBA texel per pixel.
//
// Returns:
//   - bool: true if the data can be uploaded as an RGBA image
func (s TextureStagingData) Valid() bool {
	return s.Width > 0 && s.Height > 0 && len(s.Pixels) == s.Width*s.Height*4
}
