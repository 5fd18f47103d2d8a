package volume

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGridConfigDerivesDimAndSnapsMax(t *testing.T) {
	// span 0.05 over voxel_size 0.02 -> ceil(2.5) = 3 voxels, max snapped to 0.06.
	cfg, err := NewGridConfig(Bounds{{0, 0.05}, {0, 0.05}, {0, 0.05}}, 0.02)
	require.NoError(t, err)
	assert.Equal(t, [3]int32{3, 3, 3}, cfg.VolDim)
	assert.InDelta(t, 0.06, cfg.VolBnds[0][1], 1e-6)
	assert.InDelta(t, float64(5*0.02), float64(cfg.TruncMargin), 1e-6)
}

func TestNewGridConfigSingleVoxel(t *testing.T) {
	cfg, err := NewGridConfig(Bounds{{0, 0.02}, {0, 0.02}, {0, 0.02}}, 0.02)
	require.NoError(t, err)
	assert.Equal(t, [3]int32{1, 1, 1}, cfg.VolDim)
	assert.Equal(t, int64(1), cfg.NumVoxels())
}

func TestNewGridConfigRejectsBadVoxelSize(t *testing.T) {
	_, err := NewGridConfig(Bounds{{0, 1}, {0, 1}, {0, 1}}, 0)
	assert.ErrorIs(t, err, ErrVoxelSize)

	_, err = NewGridConfig(Bounds{{0, 1}, {0, 1}, {0, 1}}, -1)
	assert.ErrorIs(t, err, ErrVoxelSize)
}

func TestNewGridConfigRejectsBadRange(t *testing.T) {
	_, err := NewGridConfig(Bounds{{1, 1}, {0, 1}, {0, 1}}, 0.1)
	assert.ErrorIs(t, err, ErrBoundsRange)

	_, err = NewGridConfig(Bounds{{1, 0}, {0, 1}, {0, 1}}, 0.1)
	assert.ErrorIs(t, err, ErrBoundsRange)
}
