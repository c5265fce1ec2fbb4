// Package shaders embeds the WGSL sources used by internal/gpu.
package shaders

import (
	_ "embed"
)

//go:embed pathtracer.wgsl
var PathTracerWGSL string

//go:embed blit.wgsl
var BlitWGSL string

//go:embed gizmo.wgsl
var GizmoWGSL string
