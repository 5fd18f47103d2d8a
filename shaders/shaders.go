// Package shaders embeds the WGSL compute kernels used by internal/gpufusion,
// the same go:embed-a-string-per-stage layout voxelrt/rt/shaders uses for its
// render and compute pipelines.
package shaders

import (
	_ "embed"
)

//go:embed fusion.wgsl
var FusionWGSL string
