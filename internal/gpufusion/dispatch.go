// Package gpufusion implements volume.GPUBackend on top of WebGPU compute,
// mirroring the buffer-lifecycle and byte-marshalling idioms of
// voxelrt/rt/gpu's GpuBufferManager but driving a single fusion compute
// kernel instead of a renderer.
package gpufusion

// DispatchPlan is the pure block/grid sizing arithmetic of the GPU
// fusion kernel, kept separate from any wgpu handle so it can be tested
// without a device. It multi-launches when a single dispatch can't cover
// every voxel in one pass.
type DispatchPlan struct {
	Gx, Gy, Gz uint32 // workgroup counts along each dispatch axis
	T          uint32 // threads per workgroup (fixed workgroup_size in the WGSL entry point)
	Launches   uint32 // number of DispatchWorkgroups calls needed to cover every voxel
}

// Default grid caps. WebGPU guarantees at least 65535 per dimension
// (maxComputeWorkgroupsPerDimension); these are set equal to that floor
// so the plan never needs device-reported limits to stay valid.
const (
	GxMax = 65535
	GyMax = 65535
	GzMax = 65535
)

// ThreadsPerWorkgroup is the fixed WGSL workgroup_size(T) the fusion
// kernel declares. wgpu has no portable "max threads per block" query
// analogous to a CUDA device property, so the plan fixes T to a value
// safe on every backend WebGPU targets instead of querying one.
const ThreadsPerWorkgroup = 256

// PlanDispatch computes Gx, Gy, Gz and the number of launches needed to
// cover n voxels with workgroups of t threads, following the cube-then-
// square grid factorization: Gx from the cube root of the workgroup
// count, Gy from the square root of what's left, Gz from whatever
// remains.
func PlanDispatch(n int64, t uint32) DispatchPlan {
	if t == 0 {
		t = ThreadsPerWorkgroup
	}
	if n <= 0 {
		return DispatchPlan{Gx: 1, Gy: 1, Gz: 1, T: t, Launches: 0}
	}

	bTotal := ceilDiv64(n, int64(t))

	gx := icbrt(bTotal)
	if gx < 1 {
		gx = 1
	}
	if gx > GxMax {
		gx = GxMax
	}

	gy := isqrt(ceilDiv64(bTotal, gx))
	if gy < 1 {
		gy = 1
	}
	if gy > GyMax {
		gy = GyMax
	}

	gz := ceilDiv64(bTotal, gx*gy)
	if gz < 1 {
		gz = 1
	}
	if gz > GzMax {
		gz = GzMax
	}

	capacity := gx * gy * gz * int64(t)
	launches := ceilDiv64(n, capacity)

	return DispatchPlan{
		Gx:       uint32(gx),
		Gy:       uint32(gy),
		Gz:       uint32(gz),
		T:        t,
		Launches: uint32(launches),
	}
}

func ceilDiv64(a, b int64) int64 {
	if b == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// icbrt returns floor(cbrt(n)) for n >= 0 using integer binary search,
// avoiding float64 cube-root rounding near perfect cubes.
func icbrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	x := n
	// Bracket the root by doubling until guess^3 >= n, then binary-search.
	guess := int64(1)
	for guess*guess*guess < n {
		guess <<= 1
	}
	lo, hi := guess>>1, guess
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if mid*mid*mid <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// isqrt returns floor(sqrt(n)) for n >= 0 via binary search, same
// rationale as icbrt: exactness over float64 convenience.
func isqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	lo, hi := int64(0), n
	for lo < hi {
		mid := lo + (hi-lo+1)/2
		if mid <= n/mid {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// VoxelCoord decomposes a flat row-major voxel index into its (i,j,k)
// triple for dimensions dy, dz -- the same mapping the GPU kernel applies
// per-thread and volume.flatIndex applies on the host.
func VoxelCoord(idx int64, dy, dz int32) (i, j, k int32) {
	i = int32(idx / int64(dy*dz))
	rem := idx - int64(i)*int64(dy*dz)
	j = int32(rem / int64(dz))
	k = int32(rem - int64(j)*int64(dz))
	return
}

// LaunchVoxelIndex computes the global voxel index a given thread handles
// on a given launch, per spec: loop_idx*Gx*Gy*Gz*T + (blockIdx)*T + threadIdx.
func LaunchVoxelIndex(loopIdx int64, gx, gy, gz, t uint32, blockX, blockY, blockZ, threadX uint32) int64 {
	capacity := int64(gx) * int64(gy) * int64(gz) * int64(t)
	blockLinear := int64(blockZ)*int64(gy)*int64(gx) + int64(blockY)*int64(gx) + int64(blockX)
	return loopIdx*capacity + blockLinear*int64(t) + int64(threadX)
}
