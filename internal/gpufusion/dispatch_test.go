package gpufusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPlanDispatchCoversSmallVolume(t *testing.T) {
	plan := PlanDispatch(100, 256)
	capacity := int64(plan.Gx) * int64(plan.Gy) * int64(plan.Gz) * int64(plan.T)
	assert.GreaterOrEqual(t, capacity*int64(plan.Launches), int64(100))
	assert.Equal(t, uint32(1), plan.Launches)
}

func TestPlanDispatchCoversLargeVolumeWithMultipleLaunches(t *testing.T) {
	// Deliberately exceed one dispatch's worth of capacity by capping the
	// grid far below what N would naturally factor into.
	n := int64(GxMax) * int64(GyMax) * int64(GzMax) * 2
	plan := PlanDispatch(n, 1)
	capacity := int64(plan.Gx) * int64(plan.Gy) * int64(plan.Gz) * int64(plan.T)
	assert.GreaterOrEqual(t, capacity*int64(plan.Launches), n)
	assert.Greater(t, plan.Launches, uint32(1))
}

func TestPlanDispatchZeroVoxelsNeedsNoLaunch(t *testing.T) {
	plan := PlanDispatch(0, 256)
	assert.Equal(t, uint32(0), plan.Launches)
}

func TestICbrtExactCubes(t *testing.T) {
	assert.Equal(t, int64(3), icbrt(27))
	assert.Equal(t, int64(4), icbrt(64))
	assert.Equal(t, int64(0), icbrt(0))
	assert.Equal(t, int64(2), icbrt(26)) // floor, not round
}

func TestISqrtExactSquares(t *testing.T) {
	assert.Equal(t, int64(5), isqrt(25))
	assert.Equal(t, int64(4), isqrt(24)) // floor
	assert.Equal(t, int64(0), isqrt(0))
}

func TestVoxelCoordRoundTrip(t *testing.T) {
	dy, dz := int32(4), int32(5)
	for idx := int64(0); idx < int64(3*dy*dz); idx++ {
		i, j, k := VoxelCoord(idx, dy, dz)
		back := int64(i)*int64(dy)*int64(dz) + int64(j)*int64(dz) + int64(k)
		assert.Equal(t, idx, back)
	}
}

func TestLaunchVoxelIndexCoversContiguousRange(t *testing.T) {
	plan := PlanDispatch(50, 4)
	seen := make(map[int64]bool)
	for loop := int64(0); loop < int64(plan.Launches); loop++ {
		for bz := uint32(0); bz < plan.Gz; bz++ {
			for by := uint32(0); by < plan.Gy; by++ {
				for bx := uint32(0); bx < plan.Gx; bx++ {
					for tx := uint32(0); tx < plan.T; tx++ {
						idx := LaunchVoxelIndex(loop, plan.Gx, plan.Gy, plan.Gz, plan.T, bx, by, bz, tx)
						if idx >= 0 && idx < 50 {
							seen[idx] = true
						}
					}
				}
			}
		}
	}
	assert.Len(t, seen, 50)
}
