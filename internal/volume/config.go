package volume

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Sentinel configuration errors, returned from NewGridConfig. The core
// never retries; construction either succeeds once or fails fatally.
//
// The spec's "bounds not shape (3,2)" error kind has no Go equivalent: the
// Bounds type is a fixed [3][2]float32 array, so a shape mismatch is a
// compile error, not a runtime one.
var (
	ErrBoundsRange = errors.New("volume: vol_bnds max must be strictly greater than min on every axis")
	ErrVoxelSize   = errors.New("volume: voxel_size must be positive")
)

// Bounds is a 3x2 array of world-space (min, max) pairs per axis, in meters.
type Bounds [3][2]float32

// GridConfig holds the immutable geometry of a TSDFVolume, fixed for its
// lifetime: bounds (after max-snapping), voxel size, truncation margin,
// derived dimensions, and origin.
type GridConfig struct {
	VolBnds     Bounds
	VoxelSize   float32
	TruncMargin float32
	VolDim      [3]int32
	VolOrigin   mgl32.Vec3
}

// NewGridConfig validates vol_bnds and voxel_size, derives vol_dim by
// ceil((max-min)/voxel_size) per axis, then snaps max to
// min + vol_dim*voxel_size so that vol_dim*voxel_size exactly spans the
// bounds. trunc_margin is derived as 5*voxel_size per spec.
func NewGridConfig(bnds Bounds, voxelSize float32) (GridConfig, error) {
	if voxelSize <= 0 {
		return GridConfig{}, ErrVoxelSize
	}
	for axis := 0; axis < 3; axis++ {
		if bnds[axis][1] <= bnds[axis][0] {
			return GridConfig{}, ErrBoundsRange
		}
	}

	var dim [3]int32
	snapped := bnds
	for axis := 0; axis < 3; axis++ {
		span := bnds[axis][1] - bnds[axis][0]
		d := int32(math.Ceil(float64(span / voxelSize)))
		if d < 1 {
			d = 1
		}
		dim[axis] = d
		snapped[axis][1] = snapped[axis][0] + float32(d)*voxelSize
	}

	origin := mgl32.Vec3{snapped[0][0], snapped[1][0], snapped[2][0]}
	return GridConfig{
		VolBnds:     snapped,
		VoxelSize:   voxelSize,
		TruncMargin: 5 * voxelSize,
		VolDim:      dim,
		VolOrigin:   origin,
	}, nil
}

// NumVoxels returns the total voxel count dim[0]*dim[1]*dim[2].
func (c GridConfig) NumVoxels() int64 {
	return int64(c.VolDim[0]) * int64(c.VolDim[1]) * int64(c.VolDim[2])
}
