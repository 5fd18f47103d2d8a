// Package frustumutil derives the world-space view frustum corners of a
// depth image, the caller-side helper spec.md names for computing
// vol_bnds but leaves outside the fusion core. Ported from fusion.py's
// get_view_frustum.
package frustumutil

import (
	"github.com/go-gl/mathgl/mgl32"

	"github.com/DanManN/tsdf-fusion-go/internal/geom"
)

// ViewFrustumCorners returns five world-space points: the camera center
// and the four image corners projected out to the depth image's maximum
// observed depth, all rigid-transformed by camPose into world space.
func ViewFrustumCorners(depthIm []float32, width, height int, camIntr mgl32.Mat3, camPose mgl32.Mat4) []mgl32.Vec3 {
	maxDepth := float32(0)
	for _, d := range depthIm {
		if d > maxDepth {
			maxDepth = d
		}
	}

	intr := geom.IntrinsicsFromMat(camIntr)
	w, h := float32(width), float32(height)

	xs := [5]float32{0, 0, 0, w, w}
	ys := [5]float32{0, 0, h, 0, h}
	zs := [5]float32{0, maxDepth, maxDepth, maxDepth, maxDepth}

	camPts := make([]mgl32.Vec3, 5)
	for i := range camPts {
		camPts[i] = mgl32.Vec3{
			(xs[i] - intr.Cx) * zs[i] / intr.Fx,
			(ys[i] - intr.Cy) * zs[i] / intr.Fy,
			zs[i],
		}
	}

	return geom.RigidTransform(camPts, camPose)
}
