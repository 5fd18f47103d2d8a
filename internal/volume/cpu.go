package volume

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/DanManN/tsdf-fusion-go/internal/colorcodec"
	"github.com/DanManN/tsdf-fusion-go/internal/geom"
)

// integrateCPU is the scalar equivalent of the source's vectorised CPU
// path: rather than building a dense vox_coords array and gathering/
// scattering over boolean masks, it walks every voxel directly, which is
// semantically identical and avoids allocating an (N,3) coordinate array
// that Go has no numpy-style fancy indexing to exploit.
//
// Per the open-question decision, this path does NOT clamp the TSDF
// sample to [-1,1] unless ClampCPU is set, and applies no truncation gate
// at all (depth_diff < -trunc_margin does not skip the TSDF/color update
// here, matching fusion.py's integrate_tsdf, unlike the GPU kernel).
func (v *TSDFVolume) integrateCPU(f Frame) {
	cfg := v.cfg
	camIntr := geom.IntrinsicsFromMat(f.CamIntr)
	rgbIntr := geom.IntrinsicsFromMat(f.RgbIntr)
	invCamPose := geom.InverseRigid(f.CamPose)
	invRgbPose := geom.InverseRigid(f.RgbPose)
	truncMargin := cfg.TruncMargin
	origin := cfg.VolOrigin
	size := cfg.VoxelSize

	dim := cfg.VolDim
	for i := int32(0); i < dim[0]; i++ {
		for j := int32(0); j < dim[1]; j++ {
			for k := int32(0); k < dim[2]; k++ {
				p := mgl32.Vec3{
					origin.X() + size*float32(i),
					origin.Y() + size*float32(j),
					origin.Z() + size*float32(k),
				}

				camPt := geom.RigidTransformPoint(p, invCamPose)
				pixZ := camPt.Z()
				pix := geom.CamToPixOne(camPt, camIntr)

				validPix := pix[0] >= 0 && pix[0] < int32(f.Width) &&
					pix[1] >= 0 && pix[1] < int32(f.Height) && pixZ > 0

				var depthVal float32
				if validPix {
					depthVal = f.DepthIm[f.at(pix[0], pix[1])]
				}
				if depthVal == 0 {
					continue
				}

				idx := flatIndex(dim, i, j, k)
				depthDiff := depthVal - pixZ
				dist := depthDiff / truncMargin
				s := dist
				if v.ClampCPU {
					if s > 1 {
						s = 1
					} else if s < -1 {
						s = -1
					}
				}

				wOld := v.weight[idx]
				wNew := wOld + f.ObsWeight
				v.tsdf[idx] = (v.tsdf[idx]*wOld + f.ObsWeight*s) / wNew
				if dist > v.occl[idx] {
					v.occl[idx] = dist
				}
				v.weight[idx] = wNew

				rgbPt := geom.RigidTransformPoint(p, invRgbPose)
				rgbPix := geom.CamToPixOne(rgbPt, rgbIntr)
				rgbValid := rgbPix[0] >= 0 && rgbPix[0] < int32(f.Width) &&
					rgbPix[1] >= 0 && rgbPix[1] < int32(f.Height)
				if !rgbValid {
					// fusion.py indexes color_im/mask_im unconditionally here,
					// relying on numpy's negative-index wraparound for
					// out-of-bounds rgb projections; Go has no such fallback,
					// so an out-of-frustum rgb projection is silently skipped
					// instead of reading a meaningless wrapped-around pixel.
					continue
				}
				pixel := f.at(rgbPix[0], rgbPix[1])
				v.color[idx] = colorcodec.UpdateRGB(v.color[idx], wOld, f.ColorIm[pixel], f.ObsWeight, wNew)
				v.mask[idx] |= f.MaskIm[pixel]
			}
		}
	}
}
