// Command fusedemo integrates a handful of synthetic depth frames into a
// TSDFVolume and writes the resulting mesh and point cloud to disk, the
// thin top-level wiring rt_main.go does for a renderer window, here done
// for a single headless fusion run instead.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/DanManN/tsdf-fusion-go/internal/appconfig"
	"github.com/DanManN/tsdf-fusion-go/internal/gpufusion"
	"github.com/DanManN/tsdf-fusion-go/internal/isosurface"
	"github.com/DanManN/tsdf-fusion-go/internal/ply"
	"github.com/DanManN/tsdf-fusion-go/internal/volume"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "fusedemo:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := appconfig.Parse(os.Args[1:])
	if err != nil {
		return err
	}

	var backend volume.GPUBackend
	if cfg.UseGPU {
		gpuBackend, err := gpufusion.NewBackend()
		if err != nil {
			fmt.Fprintf(os.Stderr, "fusedemo: GPU backend unavailable (%v), falling back to CPU\n", err)
		} else {
			backend = gpuBackend
			defer gpuBackend.Release()
		}
	}

	vol, err := volume.NewTSDFVolume(cfg.Bounds, cfg.VoxelSize, backend != nil, backend)
	if err != nil {
		return fmt.Errorf("construct volume: %w", err)
	}

	for _, frame := range syntheticFrames() {
		if err := vol.Integrate(frame); err != nil {
			return fmt.Errorf("integrate frame: %w", err)
		}
	}

	mesh, err := vol.GetMesh(isosurface.Tetra{})
	if err != nil {
		return fmt.Errorf("extract mesh: %w", err)
	}
	if err := writeMesh(filepath.Join(cfg.OutDir, "mesh.ply"), mesh); err != nil {
		return err
	}

	pc, err := vol.GetPointCloud(isosurface.Tetra{})
	if err != nil {
		return fmt.Errorf("extract point cloud: %w", err)
	}
	if err := writePointCloud(filepath.Join(cfg.OutDir, "pc.ply"), pc); err != nil {
		return err
	}

	fmt.Printf("fusedemo: wrote %d vertices / %d faces, %d point-cloud points\n",
		len(mesh.Verts), len(mesh.Faces), len(pc))
	return nil
}

func writeMesh(path string, mesh volume.Mesh) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return ply.WriteMesh(f, mesh.Verts, mesh.Norms, mesh.Colors, mesh.Faces)
}

func writePointCloud(path string, pc []volume.PointCloudPoint) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	points := make([]mgl32.Vec3, len(pc))
	colors := make([][3]uint8, len(pc))
	for i, p := range pc {
		points[i] = p.Pos
		colors[i] = p.Color
	}
	return ply.WritePointCloud(f, points, colors)
}

// syntheticFrames builds a few toy depth/color/mask frames, each seeing a
// flat plane at depth 1 in front of a camera stepped 0.01 further along z
// per frame, enough to exercise Integrate
// without requiring a real RGB-D dataset on disk.
func syntheticFrames() []volume.Frame {
	const w, h = 64, 48
	frames := make([]volume.Frame, 0, 3)

	intr := mgl32.Mat3FromRows(
		mgl32.Vec3{100, 0, float32(w) / 2},
		mgl32.Vec3{0, 100, float32(h) / 2},
		mgl32.Vec3{0, 0, 1},
	)

	for v := 0; v < 3; v++ {
		depth := make([]float32, w*h)
		color := make([]float32, w*h)
		mask := make([]uint32, w*h)
		for i := range depth {
			depth[i] = 1.0
			color[i] = 128*65536 + 128*256 + 128
			mask[i] = 1
		}
		pose := mgl32.Translate3D(0, 0, float32(v)*0.01)
		frames = append(frames, volume.Frame{
			Width: w, Height: h,
			ColorIm: color, DepthIm: depth, MaskIm: mask,
			CamIntr: intr, CamPose: pose,
			RgbIntr: intr, RgbPose: pose,
			ObsWeight: 1.0,
		})
	}
	return frames
}
