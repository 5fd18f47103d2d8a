package gpufusion

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/DanManN/tsdf-fusion-go/internal/geom"
	"github.com/DanManN/tsdf-fusion-go/internal/volume"
	"github.com/DanManN/tsdf-fusion-go/shaders"
)

// uniformsSize mirrors the WGSL Uniforms struct layout byte-for-byte:
// two mat4x4<f32> (64 bytes each) followed by seven vec4<f32>/vec4<i32>/
// vec4<u32> fields (16 bytes each).
const uniformsSize = 64 + 64 + 16*7

// Backend drives the fusion.wgsl compute kernel over a headless wgpu
// device, the same buffer-lifecycle shape as voxelrt's GpuBufferManager
// but scoped to a single compute pipeline instead of a renderer.
type Backend struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue

	pipeline *wgpu.ComputePipeline

	uniformBuf *wgpu.Buffer
	depthBuf   *wgpu.Buffer
	colorBuf   *wgpu.Buffer
	maskInBuf  *wgpu.Buffer

	tsdfBuf   *wgpu.Buffer
	weightBuf *wgpu.Buffer
	occlBuf   *wgpu.Buffer
	colorOut  *wgpu.Buffer
	maskOut   *wgpu.Buffer

	bg0 *wgpu.BindGroup
	bg1 *wgpu.BindGroup

	voxelCount int64
}

// NewBackend requests a headless adapter and device -- no CompatibleSurface,
// since this backend never presents to a window -- and compiles the fusion
// kernel's compute pipeline.
func NewBackend() (*Backend, error) {
	instance := wgpu.CreateInstance(nil)

	adapter, err := instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		PowerPreference: wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("gpufusion: request adapter: %w", err)
	}

	device, err := adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("gpufusion: request device: %w", err)
	}

	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "Fusion CS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.FusionWGSL},
	})
	if err != nil {
		return nil, fmt.Errorf("gpufusion: compile shader: %w", err)
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label: "Fusion Pipeline",
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpufusion: create pipeline: %w", err)
	}

	return &Backend{
		Instance: instance,
		Adapter:  adapter,
		Device:   device,
		Queue:    device.GetQueue(),
		pipeline: pipeline,
	}, nil
}

var _ volume.GPUBackend = (*Backend)(nil)

// ensureBuffer recreates buf with 1.5x geometric growth whenever it's nil
// or too small for neededSize, ported from GpuBufferManager.ensureBuffer.
// Reports whether the buffer was (re)created.
func (b *Backend) ensureBuffer(name string, buf **wgpu.Buffer, neededSize uint64, usage wgpu.BufferUsage) (bool, error) {
	usage = usage | wgpu.BufferUsageCopyDst | wgpu.BufferUsageCopySrc
	if neededSize%4 != 0 {
		neededSize += 4 - (neededSize % 4)
	}

	current := *buf
	if current != nil && current.GetSize() >= neededSize {
		return false, nil
	}

	newSize := neededSize
	if current != nil {
		grown := uint64(float64(current.GetSize()) * 1.5)
		if grown > newSize {
			newSize = grown
		}
	}

	newBuf, err := b.Device.CreateBuffer(&wgpu.BufferDescriptor{
		Label:            name,
		Size:             newSize,
		Usage:            usage,
		MappedAtCreation: false,
	})
	if err != nil {
		return false, fmt.Errorf("gpufusion: create buffer %s: %w", name, err)
	}
	if current != nil {
		current.Release()
	}
	*buf = newBuf
	return true, nil
}

func (b *Backend) writeBuffer(buf *wgpu.Buffer, data []byte) {
	b.Queue.WriteBuffer(buf, 0, data)
}

func (b *Backend) rebuildBindGroup0() error {
	bg0, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.uniformBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.depthBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: b.colorBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: b.maskInBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("gpufusion: bind group 0: %w", err)
	}
	b.bg0 = bg0
	return nil
}

func (b *Backend) rebuildBindGroup1() error {
	bg1, err := b.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Layout: b.pipeline.GetBindGroupLayout(1),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: b.tsdfBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: b.weightBuf, Size: wgpu.WholeSize},
			{Binding: 2, Buffer: b.occlBuf, Size: wgpu.WholeSize},
			{Binding: 3, Buffer: b.colorOut, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: b.maskOut, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return fmt.Errorf("gpufusion: bind group 1: %w", err)
	}
	b.bg1 = bg1
	return nil
}

// repeatedFloat32Bytes builds an n-element little-endian f32 buffer with
// every element set to v, used to seed tsdf (1.0) and occl (-100.0) the
// way fusion.py's __init__ fills its CPU-side numpy arrays before the
// single cuda.memcpy_htod upload.
func repeatedFloat32Bytes(n int64, v float32) []byte {
	buf := make([]byte, n*4)
	bits := math.Float32bits(v)
	for i := int64(0); i < n; i++ {
		binary.LittleEndian.PutUint32(buf[i*4:], bits)
	}
	return buf
}

// Initialize allocates the five device-resident field buffers for cfg and
// seeds them to the grid's initial values (tsdf=1, weight=0, occl=-100,
// color=0, mask=0), mirroring fusion.py's __init__ cuda.memcpy_htod of its
// freshly-built CPU arrays. Must run before Integrate/Readback/
// ResetVisible touch these buffers.
func (b *Backend) Initialize(cfg volume.GridConfig) error {
	n := cfg.NumVoxels()
	b.voxelCount = n
	fieldBytes := uint64(n) * 4

	for _, f := range []struct {
		name string
		buf  **wgpu.Buffer
	}{
		{"TsdfBuf", &b.tsdfBuf},
		{"WeightBuf", &b.weightBuf},
		{"OcclBuf", &b.occlBuf},
		{"ColorOutBuf", &b.colorOut},
		{"MaskOutBuf", &b.maskOut},
	} {
		if _, err := b.ensureBuffer(f.name, f.buf, fieldBytes, wgpu.BufferUsageStorage); err != nil {
			return err
		}
	}
	if _, err := b.ensureBuffer("UniformBuf", &b.uniformBuf, uniformsSize, wgpu.BufferUsageUniform); err != nil {
		return err
	}

	b.writeBuffer(b.tsdfBuf, repeatedFloat32Bytes(n, 1.0))
	b.writeBuffer(b.weightBuf, make([]byte, fieldBytes))
	b.writeBuffer(b.occlBuf, repeatedFloat32Bytes(n, -100.0))
	b.writeBuffer(b.colorOut, make([]byte, fieldBytes))
	b.writeBuffer(b.maskOut, make([]byte, fieldBytes))

	return b.rebuildBindGroup1()
}

// Integrate uploads one frame's inputs, growing the per-frame image
// buffers if needed, then dispatches the fusion kernel once per
// DispatchPlan.Launches. The field buffers (tsdf/weight/occl/color/mask)
// are sized and seeded once by Initialize and are never reallocated here.
func (b *Backend) Integrate(cfg volume.GridConfig, frame volume.Frame) error {
	n := cfg.NumVoxels()
	b.voxelCount = n

	grew := false
	var err error
	recreate := func(name string, buf **wgpu.Buffer, size uint64, usage wgpu.BufferUsage) error {
		did, e := b.ensureBuffer(name, buf, size, usage)
		if e != nil {
			return e
		}
		grew = grew || did
		return nil
	}

	imgBytes := uint64(frame.Width) * uint64(frame.Height) * 4
	if err = recreate("DepthBuf", &b.depthBuf, imgBytes, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err = recreate("ColorInBuf", &b.colorBuf, imgBytes, wgpu.BufferUsageStorage); err != nil {
		return err
	}
	if err = recreate("MaskInBuf", &b.maskInBuf, imgBytes, wgpu.BufferUsageStorage); err != nil {
		return err
	}

	if grew || b.bg0 == nil {
		if err = b.rebuildBindGroup0(); err != nil {
			return err
		}
	}
	if b.bg1 == nil {
		if err = b.rebuildBindGroup1(); err != nil {
			return err
		}
	}

	b.writeBuffer(b.depthBuf, float32SliceToBytes(frame.DepthIm))
	b.writeBuffer(b.colorBuf, float32SliceToBytes(frame.ColorIm))
	b.writeBuffer(b.maskInBuf, uint32SliceToBytes(frame.MaskIm))

	plan := PlanDispatch(n, ThreadsPerWorkgroup)

	camInv := geom.InverseRigid(frame.CamPose)
	rgbInv := geom.InverseRigid(frame.RgbPose)
	camIntr := geom.IntrinsicsFromMat(frame.CamIntr)
	rgbIntr := geom.IntrinsicsFromMat(frame.RgbIntr)

	for loop := uint32(0); loop < plan.Launches; loop++ {
		uniforms := encodeUniforms(camInv, rgbInv, camIntr, rgbIntr, cfg, frame, plan, loop)
		b.writeBuffer(b.uniformBuf, uniforms)

		encoder, err := b.Device.CreateCommandEncoder(nil)
		if err != nil {
			return fmt.Errorf("gpufusion: command encoder: %w", err)
		}
		pass := encoder.BeginComputePass(nil)
		pass.SetPipeline(b.pipeline)
		pass.SetBindGroup(0, b.bg0, nil)
		pass.SetBindGroup(1, b.bg1, nil)
		pass.DispatchWorkgroups(plan.Gx, plan.Gy, plan.Gz)
		pass.End()

		cmd, err := encoder.Finish(nil)
		if err != nil {
			return fmt.Errorf("gpufusion: encoder finish: %w", err)
		}
		b.Queue.Submit(cmd)
	}

	return nil
}

// Readback maps each field buffer back to the host, mirroring
// GpuBufferManager.ReadbackHiZ's MapAsync/Poll/GetMappedRange/Unmap
// sequence but over five plain f32/u32 arrays instead of a 2D texture.
func (b *Backend) Readback(cfg volume.GridConfig) (volume.Fields, error) {
	n := cfg.NumVoxels()
	fields := volume.Fields{VolDim: cfg.VolDim}

	tsdf, err := b.mapFloat32(b.tsdfBuf, n)
	if err != nil {
		return fields, err
	}
	occl, err := b.mapFloat32(b.occlBuf, n)
	if err != nil {
		return fields, err
	}
	color, err := b.mapFloat32(b.colorOut, n)
	if err != nil {
		return fields, err
	}
	mask, err := b.mapUint32(b.maskOut, n)
	if err != nil {
		return fields, err
	}

	fields.Tsdf = tsdf
	fields.Occl = occl
	fields.Color = color
	fields.Mask = mask
	return fields, nil
}

func (b *Backend) mapFloat32(buf *wgpu.Buffer, n int64) ([]float32, error) {
	raw, err := b.mapBuffer(buf, uint64(n)*4)
	if err != nil {
		return nil, err
	}
	out := make([]float32, n)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return out, nil
}

func (b *Backend) mapUint32(buf *wgpu.Buffer, n int64) ([]uint32, error) {
	raw, err := b.mapBuffer(buf, uint64(n)*4)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		out[i] = binary.LittleEndian.Uint32(raw[i*4:])
	}
	return out, nil
}

func (b *Backend) mapBuffer(buf *wgpu.Buffer, size uint64) ([]byte, error) {
	mapped := false
	var mapErr error
	buf.MapAsync(wgpu.MapModeRead, 0, size, func(status wgpu.BufferMapAsyncStatus) {
		if status == wgpu.BufferMapAsyncStatusSuccess {
			mapped = true
		} else {
			mapErr = fmt.Errorf("gpufusion: map buffer failed: %d", status)
		}
	})
	b.Device.Poll(true, nil)
	if mapErr != nil {
		return nil, mapErr
	}
	if !mapped {
		return nil, fmt.Errorf("gpufusion: buffer map did not complete")
	}

	data := buf.GetMappedRange(0, uint(size))
	out := make([]byte, len(data))
	copy(out, data)
	buf.Unmap()
	return out, nil
}

// ResetVisible zeroes the weight and mask storage buffers in place,
// preserving tsdf/occl/color -- the device-side half of TSDFVolume's
// reset_visible. Initialize must have run first, the same precondition
// Readback relies on.
func (b *Backend) ResetVisible(cfg volume.GridConfig) error {
	n := cfg.NumVoxels()
	zerosF := make([]byte, n*4)
	b.writeBuffer(b.weightBuf, zerosF)
	b.writeBuffer(b.maskOut, zerosF)
	return nil
}

func (b *Backend) Release() {
	for _, buf := range []*wgpu.Buffer{
		b.uniformBuf, b.depthBuf, b.colorBuf, b.maskInBuf,
		b.tsdfBuf, b.weightBuf, b.occlBuf, b.colorOut, b.maskOut,
	} {
		if buf != nil {
			buf.Release()
		}
	}
	if b.Device != nil {
		b.Device.Release()
	}
}

func float32SliceToBytes(vals []float32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func uint32SliceToBytes(vals []uint32) []byte {
	buf := make([]byte, len(vals)*4)
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], v)
	}
	return buf
}

func mat4ToBytes(m mgl32.Mat4) []byte {
	buf := make([]byte, 64)
	for i, v := range m {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func vec4ToBytes(v [4]float32) []byte {
	buf := make([]byte, 16)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

func ivec4ToBytes(v [4]int32) []byte {
	buf := make([]byte, 16)
	for i, n := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], uint32(n))
	}
	return buf
}

func uvec4ToBytes(v [4]uint32) []byte {
	buf := make([]byte, 16)
	for i, n := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], n)
	}
	return buf
}

// encodeUniforms packs the fusion kernel's per-launch uniform block,
// matching the WGSL Uniforms struct field-for-field.
func encodeUniforms(camInv, rgbInv mgl32.Mat4, camIntr, rgbIntr geom.Intrinsics, cfg volume.GridConfig, frame volume.Frame, plan DispatchPlan, loopIdx uint32) []byte {
	buf := make([]byte, 0, uniformsSize)
	buf = append(buf, mat4ToBytes(camInv)...)
	buf = append(buf, mat4ToBytes(rgbInv)...)
	buf = append(buf, vec4ToBytes([4]float32{camIntr.Fx, camIntr.Fy, camIntr.Cx, camIntr.Cy})...)
	buf = append(buf, vec4ToBytes([4]float32{rgbIntr.Fx, rgbIntr.Fy, rgbIntr.Cx, rgbIntr.Cy})...)
	buf = append(buf, vec4ToBytes([4]float32{cfg.VolOrigin.X(), cfg.VolOrigin.Y(), cfg.VolOrigin.Z(), 0})...)
	buf = append(buf, ivec4ToBytes([4]int32{cfg.VolDim[0], cfg.VolDim[1], cfg.VolDim[2], 0})...)
	buf = append(buf, uvec4ToBytes([4]uint32{plan.Gx, plan.Gy, plan.Gz, loopIdx})...)
	buf = append(buf, uvec4ToBytes([4]uint32{uint32(frame.Width), uint32(frame.Height), 0, 0})...)
	buf = append(buf, vec4ToBytes([4]float32{cfg.VoxelSize, cfg.TruncMargin, frame.ObsWeight, 0})...)
	return buf
}
