package volume

import "github.com/go-gl/mathgl/mgl32"

// Frame is one posed RGB-D(+mask) observation to fuse into the grid.
//
// ColorIm is H*W colors, each already packed as B*65536 + G*256 + R (see
// internal/colorcodec.Pack); the volume does not accept or pack an H*W*3
// 8-bit channel image itself. DepthIm is H*W meters,
// 0 meaning invalid. MaskIm is H*W of arbitrary bit patterns OR-ed into the
// voxel mask. CamPose/RgbPose are camera-to-world rigid transforms.
type Frame struct {
	Width, Height int
	ColorIm       []float32 // len = Width*Height, pre-packed B*65536 + G*256 + R
	DepthIm       []float32 // len = Width*Height
	MaskIm        []uint32  // len = Width*Height
	CamIntr       mgl32.Mat3
	CamPose       mgl32.Mat4
	RgbIntr       mgl32.Mat3
	RgbPose       mgl32.Mat4
	ObsWeight     float32
}

// at returns the flat index for pixel (u,v) in a Frame's row-major images.
func (f Frame) at(u, v int32) int {
	return int(v)*f.Width + int(u)
}

// Fields is the host-side snapshot returned by GetVolume: copies of the
// grid's four persistent arrays, in row-major (x,y,z) order.
type Fields struct {
	Tsdf   []float32
	Occl   []float32
	Color  []float32
	Mask   []uint32
	VolDim [3]int32
}

// GPUBackend is the device-side execution strategy a TSDFVolume dispatches
// to when constructed with UseGPU=true and a device is available. Grounded
// on the teacher's XBrickMap, whose gpuManager field is reached only
// through a narrow interface to avoid internal/volume depending on the
// wgpu-specific internal/gpufusion package (see
// _examples/Gekko3D-gekko/voxelrt/rt/volume/xbrickmap.go GPUEditMode).
type GPUBackend interface {
	// Initialize allocates the five device-resident voxel arrays for cfg
	// and seeds them to the grid's initial values (tsdf=1, weight=0,
	// occl=-100, color=0, mask=0), mirroring the source's memcpy_htod at
	// construction. Must be called once before Integrate/Readback/
	// ResetVisible.
	Initialize(cfg GridConfig) error
	// Integrate mutates the device-resident voxel arrays for one frame.
	Integrate(cfg GridConfig, frame Frame) error
	// Readback copies the device arrays into a host Fields snapshot.
	Readback(cfg GridConfig) (Fields, error)
	// ResetVisible zeroes the device-resident weight and mask arrays.
	ResetVisible(cfg GridConfig) error
	// Release frees device resources. Safe to call once at destruction.
	Release()
}

// SurfaceExtractor is the external isosurface collaborator spec.md places
// out of core scope (marching cubes). internal/isosurface implements this
// with a marching-tetrahedra kernel.
type SurfaceExtractor interface {
	// Extract returns, for every voxel satisfying mask(i,j,k), the
	// triangle mesh crossing level within tsdf. lo/hi bound the validity
	// window (e.g. get_mesh uses (-0.5, 0.5), get_point_cloud (-0.5, 0.9)).
	Extract(dim [3]int32, tsdf []float32, lo, hi, level float32) (verts []mgl32.Vec3, faces [][3]int32, norms []mgl32.Vec3)
}
