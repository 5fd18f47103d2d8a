// Package ply writes ASCII PLY mesh and point-cloud files, the two
// "persisted artifact" formats spec.md names as formatting-only and out
// of the fusion core's scope. Ported from fusion.py's meshwrite/pcwrite.
package ply

import (
	"bufio"
	"fmt"
	"io"

	"github.com/go-gl/mathgl/mgl32"
)

// WriteMesh writes an ASCII PLY mesh: a header declaring vertex and face
// counts, then one "x y z nx ny nz red green blue" line per vertex and
// one "3 i0 i1 i2" line per triangle face.
func WriteMesh(w io.Writer, verts, norms []mgl32.Vec3, colors [][3]uint8, faces [][3]int32) error {
	if len(verts) != len(norms) || len(verts) != len(colors) {
		return fmt.Errorf("ply: verts/norms/colors length mismatch (%d/%d/%d)", len(verts), len(norms), len(colors))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\n")
	fmt.Fprintf(bw, "format ascii 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(verts))
	fmt.Fprintf(bw, "property float x\n")
	fmt.Fprintf(bw, "property float y\n")
	fmt.Fprintf(bw, "property float z\n")
	fmt.Fprintf(bw, "property float nx\n")
	fmt.Fprintf(bw, "property float ny\n")
	fmt.Fprintf(bw, "property float nz\n")
	fmt.Fprintf(bw, "property uchar red\n")
	fmt.Fprintf(bw, "property uchar green\n")
	fmt.Fprintf(bw, "property uchar blue\n")
	fmt.Fprintf(bw, "element face %d\n", len(faces))
	fmt.Fprintf(bw, "property list uchar int vertex_index\n")
	fmt.Fprintf(bw, "end_header\n")

	for i, v := range verts {
		n := norms[i]
		c := colors[i]
		fmt.Fprintf(bw, "%f %f %f %f %f %f %d %d %d\n",
			v.X(), v.Y(), v.Z(), n.X(), n.Y(), n.Z(), c[0], c[1], c[2])
	}
	for _, f := range faces {
		fmt.Fprintf(bw, "3 %d %d %d\n", f[0], f[1], f[2])
	}

	return bw.Flush()
}

// WritePointCloud writes an ASCII PLY point cloud: a header declaring the
// vertex count, then one "x y z red green blue" line per point.
func WritePointCloud(w io.Writer, points []mgl32.Vec3, colors [][3]uint8) error {
	if len(points) != len(colors) {
		return fmt.Errorf("ply: points/colors length mismatch (%d/%d)", len(points), len(colors))
	}

	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ply\n")
	fmt.Fprintf(bw, "format ascii 1.0\n")
	fmt.Fprintf(bw, "element vertex %d\n", len(points))
	fmt.Fprintf(bw, "property float x\n")
	fmt.Fprintf(bw, "property float y\n")
	fmt.Fprintf(bw, "property float z\n")
	fmt.Fprintf(bw, "property uchar red\n")
	fmt.Fprintf(bw, "property uchar green\n")
	fmt.Fprintf(bw, "property uchar blue\n")
	fmt.Fprintf(bw, "end_header\n")

	for i, p := range points {
		c := colors[i]
		fmt.Fprintf(bw, "%f %f %f %d %d %d\n", p.X(), p.Y(), p.Z(), c[0], c[1], c[2])
	}

	return bw.Flush()
}
