// Package geom implements the pure coordinate-space transforms shared by the
// CPU and GPU fusion paths: voxel-grid to world space, rigid transforms, and
// pinhole projection to pixel coordinates.
package geom

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// VoxToWorld maps integer voxel coordinates to world-space points:
// origin + size*(i,j,k).
func VoxToWorld(origin mgl32.Vec3, coords [][3]int32, size float32) []mgl32.Vec3 {
	pts := make([]mgl32.Vec3, len(coords))
	for i, c := range coords {
		pts[i] = mgl32.Vec3{
			origin.X() + size*float32(c[0]),
			origin.Y() + size*float32(c[1]),
			origin.Z() + size*float32(c[2]),
		}
	}
	return pts
}

// RigidTransform applies a 4x4 homogeneous transform to an N-point set,
// returning (T * [p;1])[:3] for each point.
func RigidTransform(pts []mgl32.Vec3, t mgl32.Mat4) []mgl32.Vec3 {
	out := make([]mgl32.Vec3, len(pts))
	for i, p := range pts {
		out[i] = t.Mul4x1(p.Vec4(1.0)).Vec3()
	}
	return out
}

// RigidTransformPoint is the single-point form of RigidTransform, used on the
// GPU-equivalent per-voxel path where allocating a slice per voxel would be
// wasteful.
func RigidTransformPoint(p mgl32.Vec3, t mgl32.Mat4) mgl32.Vec3 {
	return t.Mul4x1(p.Vec4(1.0)).Vec3()
}

// Intrinsics is a 3x3 pinhole camera intrinsics matrix, stored as the four
// scalars the fusion kernel actually reads (fx, fy, cx, cy); skew is assumed
// zero, matching the source's `cam_intr` convention.
type Intrinsics struct {
	Fx, Fy float32
	Cx, Cy float32
}

// IntrinsicsFromMat extracts an Intrinsics from a row-major 3x3 matrix
// [[fx,0,cx],[0,fy,cy],[0,0,1]].
func IntrinsicsFromMat(k mgl32.Mat3) Intrinsics {
	return Intrinsics{
		Fx: k.At(0, 0), Fy: k.At(1, 1),
		Cx: k.At(0, 2), Cy: k.At(1, 2),
	}
}

// CamToPix projects camera-space points to integer pixel coordinates via
// u = round(fx*x/z + cx), v = round(fy*y/z + cy). Division by zero or a
// negative z is left unguarded here; callers apply the frustum test.
func CamToPix(camPts []mgl32.Vec3, k Intrinsics) [][2]int32 {
	pix := make([][2]int32, len(camPts))
	for i, p := range camPts {
		pix[i] = CamToPixOne(p, k)
	}
	return pix
}

// CamToPixOne is the single-point form of CamToPix.
func CamToPixOne(p mgl32.Vec3, k Intrinsics) [2]int32 {
	u := int32(math.Round(float64(k.Fx*p.X()/p.Z() + k.Cx)))
	v := int32(math.Round(float64(k.Fy*p.Y()/p.Z() + k.Cy)))
	return [2]int32{u, v}
}

// InverseRigid returns the inverse of a rigid (rotation + translation)
// homogeneous transform by transposing the rotation block and negating the
// transformed translation, which is cheaper and more numerically stable than
// a general 4x4 inverse for this class of matrix.
func InverseRigid(t mgl32.Mat4) mgl32.Mat4 {
	r := mgl32.Mat3FromRows(
		mgl32.Vec3{t.At(0, 0), t.At(0, 1), t.At(0, 2)},
		mgl32.Vec3{t.At(1, 0), t.At(1, 1), t.At(1, 2)},
		mgl32.Vec3{t.At(2, 0), t.At(2, 1), t.At(2, 2)},
	)
	rt := r.Transpose()
	trans := mgl32.Vec3{t.At(0, 3), t.At(1, 3), t.At(2, 3)}
	negRTt := rt.Mul3x1(trans).Mul(-1)

	return mgl32.Mat4FromRows(
		mgl32.Vec4{rt.At(0, 0), rt.At(0, 1), rt.At(0, 2), negRTt.X()},
		mgl32.Vec4{rt.At(1, 0), rt.At(1, 1), rt.At(1, 2), negRTt.Y()},
		mgl32.Vec4{rt.At(2, 0), rt.At(2, 1), rt.At(2, 2), negRTt.Z()},
		mgl32.Vec4{0, 0, 0, 1},
	)
}
