package ply

import (
	"bytes"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMeshHeaderAndBody(t *testing.T) {
	verts := []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}}
	norms := []mgl32.Vec3{{0, 0, 1}, {0, 0, 1}, {0, 0, 1}}
	colors := [][3]uint8{{255, 0, 0}, {0, 255, 0}, {0, 0, 255}}
	faces := [][3]int32{{0, 1, 2}}

	var buf bytes.Buffer
	require.NoError(t, WriteMesh(&buf, verts, norms, colors, faces))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "ply\nformat ascii 1.0\n"))
	assert.Contains(t, out, "element vertex 3\n")
	assert.Contains(t, out, "element face 1\n")
	assert.Contains(t, out, "property list uchar int vertex_index\n")
	assert.Contains(t, out, "3 0 1 2\n")
	assert.Contains(t, out, "255 0 0\n")
}

func TestWriteMeshRejectsLengthMismatch(t *testing.T) {
	var buf bytes.Buffer
	err := WriteMesh(&buf, []mgl32.Vec3{{0, 0, 0}}, nil, nil, nil)
	assert.Error(t, err)
}

func TestWritePointCloud(t *testing.T) {
	points := []mgl32.Vec3{{1, 2, 3}}
	colors := [][3]uint8{{10, 20, 30}}

	var buf bytes.Buffer
	require.NoError(t, WritePointCloud(&buf, points, colors))

	out := buf.String()
	assert.Contains(t, out, "element vertex 1\n")
	assert.NotContains(t, out, "element face")
	assert.Contains(t, out, "1.000000 2.000000 3.000000 10 20 30\n")
}
