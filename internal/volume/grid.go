// Package volume implements the dense voxel-grid TSDF fusion core: the
// grid container, its CPU fusion kernel, GPU dispatch (via an injected
// GPUBackend), reset, and the extraction/query API.
package volume

import (
	"fmt"
	"os"

	"github.com/google/uuid"
)

// TSDFVolume is a dense voxel grid tracking a truncated signed distance
// field, an occlusion witness, a packed running-mean color, and an OR-ed
// label mask, fused incrementally from posed RGB-D(+mask) frames.
//
// A TSDFVolume is owned by a single logical caller; it is not safe for
// concurrent use without external synchronization (§5 of the design this
// implements treats the host API as single-threaded and synchronous).
type TSDFVolume struct {
	ID uuid.UUID

	cfg GridConfig

	tsdf   []float32
	weight []float32
	occl   []float32
	color  []float32
	mask   []uint32

	// ClampCPU opts the CPU fusion path into clamping s to [-1,1] like the
	// GPU path. Defaults to false, preserving the source's unclamped CPU
	// update (see the open-question decision recorded alongside this
	// package).
	ClampCPU bool

	gpu      GPUBackend
	usingGPU bool // effective backend in use, after device-availability fallback
}

// NewTSDFVolume constructs a grid over bnds at the given voxel size. When
// useGPU is true and backend is non-nil, the GPU path is used; otherwise
// (or if backend is nil) the CPU path is used and the fallback is logged,
// never raised as an error — device unavailability is recoverable per the
// error-handling design this implements.
func NewTSDFVolume(bnds Bounds, voxelSize float32, useGPU bool, backend GPUBackend) (*TSDFVolume, error) {
	cfg, err := NewGridConfig(bnds, voxelSize)
	if err != nil {
		return nil, err
	}

	v := &TSDFVolume{
		ID:  uuid.New(),
		cfg: cfg,
	}

	if useGPU && backend != nil {
		// The device-resident arrays are the system of record for the GPU
		// path (readback allocates its own host copies), so no host-side
		// shadow arrays are allocated here, matching the source keeping a
		// single CPU array only when CUDA is unavailable.
		if err := backend.Initialize(cfg); err != nil {
			return nil, fmt.Errorf("volume: gpu initialize: %w", err)
		}
		v.gpu = backend
		v.usingGPU = true
		return v, nil
	}
	if useGPU {
		fmt.Fprintf(os.Stderr, "volume: grid %s requested GPU but no backend was supplied, falling back to CPU\n", v.ID)
	}

	n := cfg.NumVoxels()
	v.tsdf = make([]float32, n)
	v.weight = make([]float32, n)
	v.occl = make([]float32, n)
	v.color = make([]float32, n)
	v.mask = make([]uint32, n)
	v.resetFields()

	return v, nil
}

// UsingGPU reports the effective backend chosen at construction, after any
// device-unavailability fallback.
func (v *TSDFVolume) UsingGPU() bool { return v.usingGPU }

// Config returns the grid's immutable configuration.
func (v *TSDFVolume) Config() GridConfig { return v.cfg }

func (v *TSDFVolume) resetFields() {
	for i := range v.tsdf {
		v.tsdf[i] = 1.0
		v.weight[i] = 0
		v.occl[i] = -100
		v.color[i] = 0
		v.mask[i] = 0
	}
}

// Integrate fuses one posed frame into the grid, dispatching to the GPU
// backend if one is active, otherwise running the CPU kernel in place.
func (v *TSDFVolume) Integrate(f Frame) error {
	if len(f.DepthIm) != f.Width*f.Height || len(f.ColorIm) != f.Width*f.Height || len(f.MaskIm) != f.Width*f.Height {
		return fmt.Errorf("volume: frame image length does not match width*height")
	}
	if f.ObsWeight == 0 {
		f.ObsWeight = 1.0
	}

	if v.usingGPU {
		if err := v.gpu.Integrate(v.cfg, f); err != nil {
			return fmt.Errorf("volume: gpu integrate: %w", err)
		}
		return nil
	}

	v.integrateCPU(f)
	return nil
}

// ResetVisible zeroes weight and mask, host and device, leaving tsdf,
// occl, and color untouched.
func (v *TSDFVolume) ResetVisible() error {
	if v.usingGPU {
		if err := v.gpu.ResetVisible(v.cfg); err != nil {
			return fmt.Errorf("volume: gpu reset_visible: %w", err)
		}
		return nil
	}
	for i := range v.weight {
		v.weight[i] = 0
		v.mask[i] = 0
	}
	return nil
}

// GetVolume returns a host-side copy of all four persistent fields,
// pulling from the device if the GPU backend is active.
func (v *TSDFVolume) GetVolume() (Fields, error) {
	if v.usingGPU {
		fields, err := v.gpu.Readback(v.cfg)
		if err != nil {
			return Fields{}, fmt.Errorf("volume: gpu readback: %w", err)
		}
		return fields, nil
	}

	return Fields{
		Tsdf:   append([]float32(nil), v.tsdf...),
		Occl:   append([]float32(nil), v.occl...),
		Color:  append([]float32(nil), v.color...),
		Mask:   append([]uint32(nil), v.mask...),
		VolDim: v.cfg.VolDim,
	}, nil
}

// Release frees any device resources held by an active GPU backend. Safe
// to call once; a nil backend is a no-op.
func (v *TSDFVolume) Release() {
	if v.gpu != nil {
		v.gpu.Release()
	}
}

// flatIndex converts a (i,j,k) voxel triple to its row-major flat index,
// matching the layout Dy*Dz, Dz, 1 used throughout §4.4/§4.5.
func flatIndex(dim [3]int32, i, j, k int32) int64 {
	return int64(i)*int64(dim[1])*int64(dim[2]) + int64(j)*int64(dim[2]) + int64(k)
}
