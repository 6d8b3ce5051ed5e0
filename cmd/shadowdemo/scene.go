package main

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-shadow/common"
	"github.com/Carmen-Shannon/oxy-shadow/engine/mesh"
	"github.com/Carmen-Shannon/oxy-shadow/engine/render"
	"github.com/chewxy/math32"
)

const (
	cubeSize    float32 = 1
	cubeSpacing float32 = 2
	orbitSpeed  float32 = 0.01
)

// scene is a ground plane under a grid of cubes.
type scene struct {
	meshes []mesh.Mesh
	extent float32
}

// buildScene creates the ground plane and grid x grid cubes centred on the origin.
func buildScene(ctx render.Context, grid int) (*scene, error) {
	s := &scene{extent: float32(grid) * cubeSpacing / 2}

	ground, err := mesh.NewPlane(ctx, s.extent*2+cubeSpacing, mesh.WithLabel("ground"))
	if err != nil {
		return nil, fmt.Errorf("ground: %w", err)
	}
	s.meshes = append(s.meshes, ground)

	offset := (float32(grid) - 1) * cubeSpacing / 2
	for x := range grid {
		for z := range grid {
			cube, err := mesh.NewCube(ctx, cubeSize,
				mesh.WithLabel(fmt.Sprintf("cube %d,%d", x, z)),
				mesh.WithPosition(float32(x)*cubeSpacing-offset, cubeSize/2, float32(z)*cubeSpacing-offset),
			)
			if err != nil {
				s.dispose()
				return nil, fmt.Errorf("cube %d,%d: %w", x, z, err)
			}
			s.meshes = append(s.meshes, cube)
		}
	}
	return s, nil
}

func (s *scene) geometries() []render.Geometry {
	out := make([]render.Geometry, len(s.meshes))
	for i, m := range s.meshes {
		out[i] = m
	}
	return out
}

// lightProjection covers the whole scene from lightPosition's orbit.
func (s *scene) lightProjection() [16]float32 {
	e := s.extent + cubeSpacing
	return common.OrthographicMatrix(-e, e, -e, e, 1, s.orbitRadius()*3)
}

func (s *scene) orbitRadius() float32 {
	return (s.extent + cubeSpacing) * 2
}

// lightPosition places the sun on a tilted circle around the scene for frame n.
func (s *scene) lightPosition(n int) (position, forward common.Vec3) {
	angle := float32(n) * orbitSpeed
	r := s.orbitRadius()
	position = common.Vec3{r * math32.Cos(angle), r, r * math32.Sin(angle)}
	forward = common.Vec3{-position[0], -position[1], -position[2]}
	return position, forward
}

func (s *scene) dispose() {
	for _, m := range s.meshes {
		m.Dispose()
	}
	s.meshes = nil
}
