package shader

import (
	"errors"
	"testing"

	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu"
	"github.com/Carmen-Shannon/oxy-shadow/engine/gpu/gputest"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDepthProgram(t *testing.T) {
	rec := gputest.NewRecorder()
	p, err := NewDepthProgram(render.NewContext(rec))
	require.NoError(t, err)

	assert.Equal(t, DepthProgramLabel, p.Label())
	assert.NotEqual(t, gpu.NoProgram, p.ID())
	assert.Equal(t, 0, p.UniformLocation(TransformUniform))
	assert.Equal(t, 0, p.AttribLocation(PositionAttribute))
	assert.Equal(t, -1, p.UniformLocation("missing"))

	p.Bind()
	use := rec.Filter(gputest.OpUseProgram)
	require.Len(t, use, 1)
	assert.Equal(t, p.ID(), use[0].Program)
}

func TestDepthSourcesDeclareNames(t *testing.T) {
	src := DepthSource()
	for _, code := range []string{src.GLSLVertex, src.WGSL} {
		assert.Contains(t, code, TransformUniform)
		assert.Contains(t, code, PositionAttribute)
	}
	assert.Contains(t, src.WGSL, "@vertex")
	assert.Contains(t, src.GLSLFragment, "void main")
}

func TestProgramCachesLocations(t *testing.T) {
	rec := gputest.NewRecorder()
	p, err := NewProgram(render.NewContext(rec), DepthSource())
	require.NoError(t, err)

	assert.Equal(t, 1, p.UniformLocation("shadowMap"))
	rec.Uniforms["shadowMap"] = 7
	assert.Equal(t, 1, p.UniformLocation("shadowMap"))
}

func TestNewProgramError(t *testing.T) {
	rec := gputest.NewRecorder()
	rec.ProgramErr = errors.New("link failed")

	_, err := NewDepthProgram(render.NewContext(rec))
	assert.ErrorIs(t, err, rec.ProgramErr)
}

func TestProgramDispose(t *testing.T) {
	rec := gputest.NewRecorder()
	p, err := NewDepthProgram(render.NewContext(rec))
	require.NoError(t, err)

	p.Dispose()
	p.Dispose()
	assert.Equal(t, 1, rec.Count(gputest.OpDeleteProgram))
	assert.Equal(t, gpu.NoProgram, p.ID())

	rec.Reset()
	p.Bind()
	assert.Empty(t, rec.Calls)
}
