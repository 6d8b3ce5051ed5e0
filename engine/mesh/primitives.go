package mesh

import "github.com/Carmen-Shannon/oxy-shadow/engine/render"

// cubeFaces lists each face as its normal and the four corners in counter
// clockwise order seen from outside.
var cubeFaces = [6]struct {
	normal  [3]float32
	corners [4][3]float32
}{
	{[3]float32{0, 0, 1}, [4][3]float32{{-1, -1, 1}, {1, -1, 1}, {1, 1, 1}, {-1, 1, 1}}},
	{[3]float32{0, 0, -1}, [4][3]float32{{1, -1, -1}, {-1, -1, -1}, {-1, 1, -1}, {1, 1, -1}}},
	{[3]float32{1, 0, 0}, [4][3]float32{{1, -1, 1}, {1, -1, -1}, {1, 1, -1}, {1, 1, 1}}},
	{[3]float32{-1, 0, 0}, [4][3]float32{{-1, -1, -1}, {-1, -1, 1}, {-1, 1, 1}, {-1, 1, -1}}},
	{[3]float32{0, 1, 0}, [4][3]float32{{-1, 1, 1}, {1, 1, 1}, {1, 1, -1}, {-1, 1, -1}}},
	{[3]float32{0, -1, 0}, [4][3]float32{{-1, -1, -1}, {1, -1, -1}, {1, -1, 1}, {-1, -1, 1}}},
}

var quadUVs = [4][2]float32{{0, 0}, {1, 0}, {1, 1}, {0, 1}}

// CubeData returns the vertices and indices of an axis-aligned cube centred on
// the origin with the given edge length.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - []Vertex: 24 vertices, four per face
//   - []uint32: 36 indices
func CubeData(size float32) ([]Vertex, []uint32) {
	h := size / 2
	vertices := make([]Vertex, 0, 24)
	indices := make([]uint32, 0, 36)

	for _, face := range cubeFaces {
		base := uint32(len(vertices))
		for i, c := range face.corners {
			vertices = append(vertices, Vertex{
				Position: [3]float32{c[0] * h, c[1] * h, c[2] * h},
				Normal:   face.normal,
				TexCoord: quadUVs[i],
			})
		}
		indices = append(indices, base, base+1, base+2, base, base+2, base+3)
	}
	return vertices, indices
}

// PlaneData returns a square in the XZ plane facing +Y, centred on the origin.
//
// Parameters:
//   - size: the edge length
//
// Returns:
//   - []Vertex: 4 vertices
//   - []uint32: 6 indices
func PlaneData(size float32) ([]Vertex, []uint32) {
	h := size / 2
	up := [3]float32{0, 1, 0}
	vertices := []Vertex{
		{Position: [3]float32{-h, 0, h}, Normal: up, TexCoord: quadUVs[0]},
		{Position: [3]float32{h, 0, h}, Normal: up, TexCoord: quadUVs[1]},
		{Position: [3]float32{h, 0, -h}, Normal: up, TexCoord: quadUVs[2]},
		{Position: [3]float32{-h, 0, -h}, Normal: up, TexCoord: quadUVs[3]},
	}
	return vertices, []uint32{0, 1, 2, 0, 2, 3}
}

// NewCube creates a cube mesh.
//
// Parameters:
//   - ctx: the rendering context
//   - size: the edge length
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the cube
//   - error: a device error
func NewCube(ctx render.Context, size float32, opts ...MeshBuilderOption) (Mesh, error) {
	v, i := CubeData(size)
	return NewMesh(ctx, v, i, append([]MeshBuilderOption{WithLabel("cube")}, opts...)...)
}

// NewPlane creates a ground plane mesh.
//
// Parameters:
//   - ctx: the rendering context
//   - size: the edge length
//   - opts: variadic list of MeshBuilderOption functions
//
// Returns:
//   - Mesh: the plane
//   - error: a device error
func NewPlane(ctx render.Context, size float32, opts ...MeshBuilderOption) (Mesh, error) {
	v, i := PlaneData(size)
	return NewMesh(ctx, v, i, append([]MeshBuilderOption{WithLabel("plane")}, opts...)...)
}
