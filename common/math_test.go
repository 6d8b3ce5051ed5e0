package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMul4Identity(t *testing.T) {
	m := OrthographicMatrix(-10, 10, -10, 10, 10, -10)
	assert.Equal(t, m, MulMatrix(identityMatrix(), m))
	assert.Equal(t, m, MulMatrix(m, identityMatrix()))
}

func TestOrthographicMapsDepthRange(t *testing.T) {
	m := OrthographicMatrix(-10, 10, -10, 10, 10, -10)

	// view-space z=-10 (10 units in front) lands on the near side of [0, 1].
	zNear := m[10]*-10 + m[14]
	zFar := m[10]*10 + m[14]
	assert.InDelta(t, 0.0, zNear, 1e-6)
	assert.InDelta(t, 1.0, zFar, 1e-6)
	assert.InDelta(t, 0.1, m[0], 1e-6)
	assert.InDelta(t, 0.1, m[5], 1e-6)
}

func TestViewMatrixLooksDown(t *testing.T) {
	v := ViewMatrix(Vec3{0, 0, 0}, Vec3{0, -1, 0}, Vec3{0, 0, 1})

	// A point below the camera ends up on the negative view-space Z axis.
	px, py, pz := float32(0), float32(-5), float32(0)
	z := v[2]*px + v[6]*py + v[10]*pz + v[14]
	assert.InDelta(t, -5.0, z, 1e-6)
}

func TestBuildModelMatrixTranslation(t *testing.T) {
	var m [16]float32
	BuildModelMatrix(m[:], 1, 2, 3, 0, 0, 0, 1, 1, 1)

	want := identityMatrix()
	want[12], want[13], want[14] = 1, 2, 3
	assert.Equal(t, want, m)
}

func TestCoalesce(t *testing.T) {
	assert.Equal(t, 5, Coalesce(0, 5, 7))
	assert.Equal(t, "", Coalesce[string]())
}

func identityMatrix() [16]float32 {
	var m [16]float32
	Identity(m[:])
	return m
}
