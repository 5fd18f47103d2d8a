// Package appconfig parses the fusedemo binary's command-line flags, the
// same flag.Bool/flag.Float64-then-flag.Parse shape rt_main.go uses for its
// single -debug switch, generalized to the handful of knobs a volume needs.
package appconfig

import (
	"flag"
	"fmt"

	"github.com/DanManN/tsdf-fusion-go/internal/volume"
)

// Config is the parsed command-line configuration for the fusedemo binary.
type Config struct {
	VoxelSize float32
	Bounds    volume.Bounds
	UseGPU    bool
	OutDir    string
	Reduce    int
}

// Parse registers and parses the standard fusedemo flag set. Bounds are
// given as six floats (xmin xmax ymin ymax zmin zmax); a zero-width span
// on any axis is rejected by volume.NewGridConfig downstream.
func Parse(args []string) (Config, error) {
	fs := flag.NewFlagSet("fusedemo", flag.ContinueOnError)

	voxelSize := fs.Float64("voxel-size", 0.02, "voxel edge length in meters")
	xmin := fs.Float64("xmin", -1, "volume bounds: x min")
	xmax := fs.Float64("xmax", 1, "volume bounds: x max")
	ymin := fs.Float64("ymin", -1, "volume bounds: y min")
	ymax := fs.Float64("ymax", 1, "volume bounds: y max")
	zmin := fs.Float64("zmin", 0, "volume bounds: z min")
	zmax := fs.Float64("zmax", 2, "volume bounds: z max")
	useGPU := fs.Bool("gpu", false, "integrate frames on the GPU fusion backend instead of the CPU path")
	outDir := fs.String("out", ".", "directory to write mesh.ply and pc.ply into")
	reduce := fs.Int("reduce", 4, "stride for downsampled-voxel queries (parsed but not used by fusedemo)")

	if err := fs.Parse(args); err != nil {
		return Config{}, fmt.Errorf("appconfig: parse flags: %w", err)
	}

	return Config{
		VoxelSize: float32(*voxelSize),
		Bounds: volume.Bounds{
			{float32(*xmin), float32(*xmax)},
			{float32(*ymin), float32(*ymax)},
			{float32(*zmin), float32(*zmax)},
		},
		UseGPU: *useGPU,
		OutDir: *outDir,
		Reduce: *reduce,
	}, nil
}
