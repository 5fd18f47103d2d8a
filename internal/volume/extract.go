package volume

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/DanManN/tsdf-fusion-go/internal/colorcodec"
)

// Mesh is the output of GetMesh: a triangle surface with per-vertex color.
type Mesh struct {
	Verts  []mgl32.Vec3
	Faces  [][3]int32
	Norms  []mgl32.Vec3
	Colors [][3]uint8
}

// PointCloudPoint is one row of GetPointCloud's (N,7) result: position,
// color, and the mask bits observed at the nearest voxel.
type PointCloudPoint struct {
	Pos   mgl32.Vec3
	Color [3]uint8
	Mask  uint32
}

// GetMesh extracts a triangle mesh from the grid using extractor, over the
// validity window (tsdf > -0.5) && (tsdf < 0.5), at level 0. Vertices are
// mapped from voxel to world space and colored by nearest-voxel lookup.
func (v *TSDFVolume) GetMesh(extractor SurfaceExtractor) (Mesh, error) {
	fields, err := v.GetVolume()
	if err != nil {
		return Mesh{}, err
	}

	verts, faces, norms := extractor.Extract(fields.VolDim, fields.Tsdf, -0.5, 0.5, 0)

	colors := make([][3]uint8, len(verts))
	worldVerts := make([]mgl32.Vec3, len(verts))
	for i, vert := range verts {
		worldVerts[i] = mgl32.Vec3{
			vert.X()*v.cfg.VoxelSize + v.cfg.VolOrigin.X(),
			vert.Y()*v.cfg.VoxelSize + v.cfg.VolOrigin.Y(),
			vert.Z()*v.cfg.VoxelSize + v.cfg.VolOrigin.Z(),
		}
		colors[i] = sampleColor(fields, vert)
	}

	return Mesh{Verts: worldVerts, Faces: faces, Norms: norms, Colors: colors}, nil
}

// GetPointCloud extracts a colored, masked point cloud using the same
// extractor over the wider validity window (tsdf > -0.5) && (tsdf < 0.9).
func (v *TSDFVolume) GetPointCloud(extractor SurfaceExtractor) ([]PointCloudPoint, error) {
	fields, err := v.GetVolume()
	if err != nil {
		return nil, err
	}

	verts, _, _ := extractor.Extract(fields.VolDim, fields.Tsdf, -0.5, 0.9, 0)

	pts := make([]PointCloudPoint, len(verts))
	for i, vert := range verts {
		world := mgl32.Vec3{
			vert.X()*v.cfg.VoxelSize + v.cfg.VolOrigin.X(),
			vert.Y()*v.cfg.VoxelSize + v.cfg.VolOrigin.Y(),
			vert.Z()*v.cfg.VoxelSize + v.cfg.VolOrigin.Z(),
		}
		pts[i] = PointCloudPoint{
			Pos:   world,
			Color: sampleColor(fields, vert),
			Mask:  sampleMask(fields, vert),
		}
	}
	return pts, nil
}

// nearestVoxel rounds a voxel-space vertex to its nearest integer voxel
// index and flattens it, clamping to the grid bounds so an extractor's
// boundary vertex never indexes out of range.
func nearestVoxel(dim [3]int32, p mgl32.Vec3) int64 {
	clamp := func(x float32, max int32) int32 {
		i := int32(math.Round(float64(x)))
		if i < 0 {
			return 0
		}
		if i >= max {
			return max - 1
		}
		return i
	}
	i := clamp(p.X(), dim[0])
	j := clamp(p.Y(), dim[1])
	k := clamp(p.Z(), dim[2])
	return flatIndex(dim, i, j, k)
}

func sampleColor(fields Fields, vert mgl32.Vec3) [3]uint8 {
	idx := nearestVoxel(fields.VolDim, vert)
	r, g, b := colorcodec.Unpack(fields.Color[idx])
	return [3]uint8{uint8(r), uint8(g), uint8(b)}
}

func sampleMask(fields Fields, vert mgl32.Vec3) uint32 {
	idx := nearestVoxel(fields.VolDim, vert)
	return fields.Mask[idx]
}

// DownsampledVoxels is the result of GetDownsampledAllVoxelsPcdAndVoxelMask:
// the flattened world-space point for every voxel of the decimated grid,
// paired with whether that voxel is "occupied".
type DownsampledVoxels struct {
	Points   []mgl32.Vec3
	Occupied []bool
}

// GetDownsampledAllVoxelsPcdAndVoxelMask computes, on the full grid,
// occupied = ((occl > -100) && (occl < 0)) || ((tsdf > -0.5) && (tsdf < 0.9)),
// then decimates tsdf/color/mask/occupied by stride `reduce` on each axis
// and returns the decimated grid's world-space points alongside the
// decimated occupancy flags, both flattened in row-major order.
func (v *TSDFVolume) GetDownsampledAllVoxelsPcdAndVoxelMask(reduce int32) (DownsampledVoxels, error) {
	if reduce < 1 {
		reduce = 1
	}
	fields, err := v.GetVolume()
	if err != nil {
		return DownsampledVoxels{}, err
	}
	dim := fields.VolDim

	occupied := make([]bool, len(fields.Tsdf))
	for idx := range occupied {
		occl := fields.Occl[idx]
		tsdf := fields.Tsdf[idx]
		occupied[idx] = (occl > -100 && occl < 0) || (tsdf > -0.5 && tsdf < 0.9)
	}

	dsDim := [3]int32{ceilDiv(dim[0], reduce), ceilDiv(dim[1], reduce), ceilDiv(dim[2], reduce)}
	n := int(dsDim[0]) * int(dsDim[1]) * int(dsDim[2])
	points := make([]mgl32.Vec3, 0, n)
	occ := make([]bool, 0, n)

	step := v.cfg.VoxelSize * float32(reduce)
	for i := int32(0); i < dim[0]; i += reduce {
		for j := int32(0); j < dim[1]; j += reduce {
			for k := int32(0); k < dim[2]; k += reduce {
				idx := flatIndex(dim, i, j, k)
				points = append(points, mgl32.Vec3{
					v.cfg.VolOrigin.X() + step*float32(i/reduce),
					v.cfg.VolOrigin.Y() + step*float32(j/reduce),
					v.cfg.VolOrigin.Z() + step*float32(k/reduce),
				})
				occ = append(occ, occupied[idx])
			}
		}
	}

	return DownsampledVoxels{Points: points, Occupied: occ}, nil
}

// GetDownsampledAllVoxelsPcd is a thin convenience wrapper discarding the
// occupancy mask, mirroring the original's get_downsampled_all_voxels_pcd.
func (v *TSDFVolume) GetDownsampledAllVoxelsPcd(reduce int32) ([]mgl32.Vec3, error) {
	ds, err := v.GetDownsampledAllVoxelsPcdAndVoxelMask(reduce)
	if err != nil {
		return nil, err
	}
	return ds.Points, nil
}

// GetDownsampledVoxelCollisionMask is a thin convenience wrapper discarding
// the points, mirroring the original's get_downsampled_voxel_collision_mask.
func (v *TSDFVolume) GetDownsampledVoxelCollisionMask(reduce int32) ([]bool, error) {
	ds, err := v.GetDownsampledAllVoxelsPcdAndVoxelMask(reduce)
	if err != nil {
		return nil, err
	}
	return ds.Occupied, nil
}

func ceilDiv(a, b int32) int32 {
	return (a + b - 1) / b
}
