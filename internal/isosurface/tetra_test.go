package isosurface

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A 2x2x2 grid is the smallest possible volume (a single cube, six
// tetrahedra). Corner (0,0,0) is set negative (inside) and the rest
// positive (outside); every one of the cube's six tetrahedra shares that
// corner (the Freudenthal split's main diagonal starts there), so each
// contributes one 1-inside/3-outside crossing triangle.
func TestExtractSingleCubeOneCorner(t *testing.T) {
	dim := [3]int32{2, 2, 2}
	tsdf := []float32{
		-1, 1, // (0,0,0) (0,0,1)
		1, 1, // (0,1,0) (0,1,1)
		1, 1, // (1,0,0) (1,0,1)
		1, 1, // (1,1,0) (1,1,1)
	}

	verts, faces, norms := Tetra{}.Extract(dim, tsdf, -2, 2, 0)
	require.NotEmpty(t, verts)
	require.NotEmpty(t, faces)
	assert.Equal(t, len(verts), len(norms))

	for _, f := range faces {
		for _, vi := range f {
			require.GreaterOrEqual(t, int(vi), 0)
			require.Less(t, int(vi), len(verts))
		}
	}
}

func TestExtractUniformFieldProducesNoSurface(t *testing.T) {
	dim := [3]int32{2, 2, 2}
	tsdf := make([]float32, 8)
	for i := range tsdf {
		tsdf[i] = 1
	}
	verts, faces, _ := Tetra{}.Extract(dim, tsdf, -2, 2, 0)
	assert.Empty(t, verts)
	assert.Empty(t, faces)
}

func TestExtractRespectsValidityWindow(t *testing.T) {
	dim := [3]int32{2, 2, 2}
	tsdf := []float32{-1, 1, 1, 1, 1, 1, 1, 1}
	// lo/hi excludes -1, so the whole cube is invalid and skipped.
	verts, faces, _ := Tetra{}.Extract(dim, tsdf, -0.5, 2, 0)
	assert.Empty(t, verts)
	assert.Empty(t, faces)
}

func TestMarchTetrahedronOneInsideGivesOneTriangle(t *testing.T) {
	cornerVal := [8]float32{-1, 1, 1, 1, 1, 1, 1, 1}
	cornerPos := [8]mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	verts, faces := marchTetrahedron(cornerVal, cornerPos, sixTetrahedra[0])
	require.Len(t, verts, 3)
	require.Len(t, faces, 1)
}

func TestMarchTetrahedronTwoTwoSplitGivesQuad(t *testing.T) {
	// Tetra {0,1,2,6}: mark 0,1 inside and 2,6 outside.
	cornerVal := [8]float32{-1, -1, 1, 1, 1, 1, 1, 1}
	cornerPos := [8]mgl32.Vec3{
		{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
		{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
	}
	verts, faces := marchTetrahedron(cornerVal, cornerPos, sixTetrahedra[0])
	require.Len(t, verts, 4)
	require.Len(t, faces, 2)
}
