package gpufusion

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DanManN/tsdf-fusion-go/internal/geom"
	"github.com/DanManN/tsdf-fusion-go/internal/volume"
)

func TestEncodeUniformsLayoutSize(t *testing.T) {
	cfg := volume.GridConfig{
		VoxelSize:   0.02,
		TruncMargin: 0.1,
		VolDim:      [3]int32{4, 5, 6},
		VolOrigin:   mgl32.Vec3{1, 2, 3},
	}
	frame := volume.Frame{Width: 8, Height: 6, ObsWeight: 1.0}
	plan := PlanDispatch(cfg.NumVoxels(), ThreadsPerWorkgroup)
	camIntr := geom.Intrinsics{Fx: 500, Fy: 500, Cx: 4, Cy: 3}
	rgbIntr := camIntr

	buf := encodeUniforms(mgl32.Ident4(), mgl32.Ident4(), camIntr, rgbIntr, cfg, frame, plan, 0)
	require.Len(t, buf, uniformsSize)
}

func TestEncodeUniformsRoundTripsScalars(t *testing.T) {
	cfg := volume.GridConfig{
		VoxelSize:   0.025,
		TruncMargin: 0.125,
		VolDim:      [3]int32{2, 2, 2},
		VolOrigin:   mgl32.Vec3{0, 0, 0},
	}
	frame := volume.Frame{Width: 1, Height: 1, ObsWeight: 1.5}
	plan := PlanDispatch(cfg.NumVoxels(), ThreadsPerWorkgroup)
	camIntr := geom.Intrinsics{Fx: 1, Fy: 1, Cx: 0, Cy: 0}

	buf := encodeUniforms(mgl32.Ident4(), mgl32.Ident4(), camIntr, camIntr, cfg, frame, plan, 3)

	// params block is the final vec4<f32>: voxel_size, trunc_margin, obs_weight, _
	paramsOffset := uniformsSize - 16
	voxelSize := math.Float32frombits(binary.LittleEndian.Uint32(buf[paramsOffset:]))
	truncMargin := math.Float32frombits(binary.LittleEndian.Uint32(buf[paramsOffset+4:]))
	obsWeight := math.Float32frombits(binary.LittleEndian.Uint32(buf[paramsOffset+8:]))

	assert.InDelta(t, 0.025, voxelSize, 1e-6)
	assert.InDelta(t, 0.125, truncMargin, 1e-6)
	assert.InDelta(t, 1.5, obsWeight, 1e-6)

	// grid block precedes img_dim/params: Gx, Gy, Gz, loop_idx
	gridOffset := uniformsSize - 16*3
	loopIdx := binary.LittleEndian.Uint32(buf[gridOffset+12:])
	assert.Equal(t, uint32(3), loopIdx)
}

func TestMat4ToBytesIsColumnMajorLittleEndian(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3)
	buf := mat4ToBytes(m)
	require.Len(t, buf, 64)
	// mgl32.Mat4 is stored column-major; translation lands in the last column.
	tx := math.Float32frombits(binary.LittleEndian.Uint32(buf[48:]))
	ty := math.Float32frombits(binary.LittleEndian.Uint32(buf[52:]))
	tz := math.Float32frombits(binary.LittleEndian.Uint32(buf[56:]))
	assert.InDelta(t, 1.0, tx, 1e-6)
	assert.InDelta(t, 2.0, ty, 1e-6)
	assert.InDelta(t, 3.0, tz, 1e-6)
}

func TestFloat32SliceToBytesRoundTrip(t *testing.T) {
	vals := []float32{1.5, -2.25, 0}
	buf := float32SliceToBytes(vals)
	require.Len(t, buf, 12)
	for i, want := range vals {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		assert.Equal(t, want, got)
	}
}

func TestUint32SliceToBytesRoundTrip(t *testing.T) {
	vals := []uint32{0, 1, 1<<31 + 5}
	buf := uint32SliceToBytes(vals)
	require.Len(t, buf, 12)
	for i, want := range vals {
		got := binary.LittleEndian.Uint32(buf[i*4:])
		assert.Equal(t, want, got)
	}
}

func TestRepeatedFloat32BytesFillsEveryElement(t *testing.T) {
	buf := repeatedFloat32Bytes(4, -100)
	require.Len(t, buf, 16)
	for i := 0; i < 4; i++ {
		got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:]))
		assert.Equal(t, float32(-100), got)
	}
}

func TestRepeatedFloat32BytesZeroCount(t *testing.T) {
	buf := repeatedFloat32Bytes(0, 1.0)
	assert.Empty(t, buf)
}
