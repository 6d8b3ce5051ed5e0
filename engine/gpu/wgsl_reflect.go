package gpu

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	// wgslAttribRegex matches vertex inputs such as `@location(0) vertPosition: vec3<f32>`.
	wgslAttribRegex = regexp.MustCompile(`@location\((\d+)\)\s*(\w+)\s*:\s*(vec[234](?:<f32>|f)|f32)`)

	// wgslUniformRegex matches group 0 resources such as
	// `@group(0) @binding(0) var<uniform> modelToShadowSpace: mat4x4<f32>;`.
	wgslUniformRegex = regexp.MustCompile(`@group\(0\)\s*@binding\((\d+)\)\s*var(?:<([^>]*)>)?\s+(\w+)\s*:\s*([^;]+?)\s*;`)

	wgslVertexEntryRegex   = regexp.MustCompile(`(?s)@vertex\b.*?\bfn\s+(\w+)`)
	wgslFragmentEntryRegex = regexp.MustCompile(`(?s)@fragment\b.*?\bfn\s+(\w+)`)
)

// wgslReflection is the subset of a WGSL module the WebGPU backend needs to
// answer UniformLocation and AttribLocation.
type wgslReflection struct {
	vertexEntry   string
	fragmentEntry string
	attribs       map[string]int
	uniforms      map[string]int
	// matrices lists the bindings of mat4x4 uniform buffers in ascending order.
	matrices []int
}

// reflectWGSL scans WGSL source for vertex inputs, group 0 bindings and entry points.
// Uniform locations are binding numbers; attribute locations are @location indices.
//
// Parameters:
//   - source: the raw WGSL source code
//
// Returns:
//   - wgslReflection: the names found in source
func reflectWGSL(source string) wgslReflection {
	r := wgslReflection{
		attribs:  make(map[string]int),
		uniforms: make(map[string]int),
	}

	if m := wgslVertexEntryRegex.FindStringSubmatch(source); m != nil {
		r.vertexEntry = m[1]
	}
	if m := wgslFragmentEntryRegex.FindStringSubmatch(source); m != nil {
		r.fragmentEntry = m[1]
	}

	for _, m := range wgslAttribRegex.FindAllStringSubmatch(source, -1) {
		loc, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if _, seen := r.attribs[m[2]]; !seen {
			r.attribs[m[2]] = loc
		}
	}

	for _, m := range wgslUniformRegex.FindAllStringSubmatch(source, -1) {
		binding, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		r.uniforms[m[3]] = binding
		if m[2] == "uniform" && strings.HasPrefix(m[4], "mat4x4") {
			r.matrices = append(r.matrices, binding)
		}
	}
	sort.Ints(r.matrices)

	return r
}
