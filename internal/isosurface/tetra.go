// Package isosurface implements a marching-tetrahedra surface extractor.
//
// spec.md treats isosurface extraction as an external collaborator ("a
// standard marching-cubes implementation returns vertices/faces/normals")
// and deliberately leaves it out of the fusion core. Marching tetrahedra
// is used here instead of marching cubes' 256-entry case table: splitting
// each voxel cube into six tetrahedra reduces every cell to one of 16
// sign configurations with a closed-form 0/1/2-triangle resolution, which
// is small enough to transcribe correctly without being able to run it.
package isosurface

import "github.com/go-gl/mathgl/mgl32"

// cubeCorner is one of a voxel cube's eight corners, in (dx,dy,dz) offset
// order matching the voxel index axes (x,y,z).
var cubeCorner = [8][3]int32{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

// sixTetrahedra decomposes a cube into six tetrahedra sharing the main
// diagonal from corner 0 to corner 6, the standard Freudenthal subdivision.
var sixTetrahedra = [6][4]int{
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
	{0, 5, 1, 6},
}

// Tetra is a SurfaceExtractor implementation using marching tetrahedra.
type Tetra struct{}

// Extract walks every voxel cube whose eight corners all lie strictly
// within (lo,hi), splits it into six tetrahedra, and linearly interpolates a
// triangle mesh where tsdf crosses level. Vertex normals are the gradient
// of tsdf at each vertex, central-differenced on the grid and normalized.
func (Tetra) Extract(dim [3]int32, tsdf []float32, lo, hi, level float32) ([]mgl32.Vec3, [][3]int32, []mgl32.Vec3) {
	if dim[0] < 2 || dim[1] < 2 || dim[2] < 2 {
		return nil, nil, nil
	}

	idx := func(i, j, k int32) int64 {
		return int64(i)*int64(dim[1])*int64(dim[2]) + int64(j)*int64(dim[2]) + int64(k)
	}
	inRange := func(v float32) bool { return v > lo && v < hi }

	var verts []mgl32.Vec3
	var faces [][3]int32

	for i := int32(0); i < dim[0]-1; i++ {
		for j := int32(0); j < dim[1]-1; j++ {
			for k := int32(0); k < dim[2]-1; k++ {
				var cornerVal [8]float32
				var cornerPos [8]mgl32.Vec3
				valid := true
				for c, off := range cubeCorner {
					ci, cj, ck := i+off[0], j+off[1], k+off[2]
					v := tsdf[idx(ci, cj, ck)]
					if !inRange(v) {
						valid = false
						break
					}
					cornerVal[c] = v - level
					cornerPos[c] = mgl32.Vec3{float32(ci), float32(cj), float32(ck)}
				}
				if !valid {
					continue
				}

				for _, tet := range sixTetrahedra {
					tv, tf := marchTetrahedron(cornerVal, cornerPos, tet)
					base := int32(len(verts))
					verts = append(verts, tv...)
					for _, f := range tf {
						faces = append(faces, [3]int32{base + f[0], base + f[1], base + f[2]})
					}
				}
			}
		}
	}

	norms := gradientNormals(dim, tsdf, verts)
	return verts, faces, norms
}

// marchTetrahedron resolves a single tetrahedron's sign configuration into
// 0, 1, or 2 triangles, interpolating crossing points linearly along each
// bisected edge.
//
// A tetrahedron has 6 edges: one joining its two "inside" corners, one
// joining its two "outside" corners, and (when the split is 1-3 or 2-2)
// the remaining cross edges the surface actually cuts. For a 2-2 split
// with inside corners {a,b} and outside corners {c,d}, the four cut edges
// are a-c, a-d, b-c, b-d; going around the tetrahedron's four faces (abc,
// acd, bcd, abd) in order visits them as ac, ad, bd, bc, which is a valid,
// non-self-intersecting cyclic boundary for the quad.
func marchTetrahedron(cornerVal [8]float32, cornerPos [8]mgl32.Vec3, tet [4]int) ([]mgl32.Vec3, [][3]int32) {
	var val [4]float32
	var pos [4]mgl32.Vec3
	for i, c := range tet {
		val[i] = cornerVal[c]
		pos[i] = cornerPos[c]
	}

	interp := func(a, b int) mgl32.Vec3 {
		t := val[a] / (val[a] - val[b])
		return pos[a].Add(pos[b].Sub(pos[a]).Mul(t))
	}

	var inside, outside []int
	for i := 0; i < 4; i++ {
		if val[i] <= 0 {
			inside = append(inside, i)
		} else {
			outside = append(outside, i)
		}
	}

	switch len(inside) {
	case 0, 4:
		return nil, nil
	case 1, 3:
		lone, others := inside, outside
		if len(inside) == 3 {
			lone, others = outside, inside
		}
		a := lone[0]
		return []mgl32.Vec3{interp(a, others[0]), interp(a, others[1]), interp(a, others[2])},
			[][3]int32{{0, 1, 2}}
	default: // 2-2 split
		a, b := inside[0], inside[1]
		c, d := outside[0], outside[1]
		quad := []mgl32.Vec3{interp(a, c), interp(a, d), interp(b, d), interp(b, c)}
		return quad, [][3]int32{{0, 1, 2}, {0, 2, 3}}
	}
}

// gradientNormals central-differences tsdf on the grid and samples it at
// each vertex's nearest voxel, giving a per-vertex outward normal without
// needing the extractor to carry per-triangle geometry state.
func gradientNormals(dim [3]int32, tsdf []float32, verts []mgl32.Vec3) []mgl32.Vec3 {
	idx := func(i, j, k int32) int64 {
		return int64(i)*int64(dim[1])*int64(dim[2]) + int64(j)*int64(dim[2]) + int64(k)
	}
	clampIdx := func(v int32, max int32) int32 {
		if v < 0 {
			return 0
		}
		if v >= max {
			return max - 1
		}
		return v
	}
	sample := func(i, j, k int32) float32 {
		return tsdf[idx(clampIdx(i, dim[0]), clampIdx(j, dim[1]), clampIdx(k, dim[2]))]
	}

	norms := make([]mgl32.Vec3, len(verts))
	for n, v := range verts {
		i := int32(v.X() + 0.5)
		j := int32(v.Y() + 0.5)
		k := int32(v.Z() + 0.5)
		g := mgl32.Vec3{
			sample(i+1, j, k) - sample(i-1, j, k),
			sample(i, j+1, k) - sample(i, j-1, k),
			sample(i, j, k+1) - sample(i, j, k-1),
		}
		if g.Len() > 1e-8 {
			g = g.Normalize()
		}
		norms[n] = g
	}
	return norms
}
