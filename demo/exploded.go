// Package demo generates the sample mesh served by the demo endpoint: a
// tetrahedralized cube whose tetrahedra are pulled apart so each one is
// visible on its own.
package demo

import (
	"github.com/notargets/tetraview/mesh"
	"github.com/notargets/tetraview/wire"
)

const (
	DefaultDivisions = 2
	DefaultShrink    = float32(0.75)
)

// kuhn lists the six tetrahedra of a unit cell as corner numbers, where bit i
// of a corner number is its offset along axis i. Every tetrahedron walks from
// corner 0 to corner 7 along one permutation of the axes.
var kuhn = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

// ExplodedCube splits the unit cube into divisions^3 cells and every cell
// into six tetrahedra. Each tetrahedron is scaled by shrink about its own
// centroid and emitted as four outward facing triangles over its own four
// vertices, so no vertex is shared between tetrahedra.
func ExplodedCube(divisions int, shrink float32) *mesh.Mesh {
	if divisions < 1 {
		divisions = 1
	}
	if shrink <= 0 || shrink > 1 {
		shrink = 1
	}
	var (
		h     = 1 / float32(divisions)
		ntets = 6 * divisions * divisions * divisions
		m     = &mesh.Mesh{
			Vertices: make([]float32, 0, 12*ntets),
			Faces:    make([]uint32, 0, 12*ntets),
		}
	)
	for k := 0; k < divisions; k++ {
		for j := 0; j < divisions; j++ {
			for i := 0; i < divisions; i++ {
				origin := [3]float32{float32(i) * h, float32(j) * h, float32(k) * h}
				for _, tet := range kuhn {
					var p [4][3]float32
					for n, corner := range tet {
						for d := 0; d < 3; d++ {
							p[n][d] = origin[d]
							if corner&(1<<d) != 0 {
								p[n][d] += h
							}
						}
					}
					addTet(m, shrinkTet(p, shrink))
				}
			}
		}
	}
	return m
}

// Payload is the wire encoding of ExplodedCube(divisions, shrink).
func Payload(divisions int, shrink float32) ([]byte, error) {
	return wire.Encode(ExplodedCube(divisions, shrink))
}

func shrinkTet(p [4][3]float32, s float32) [4][3]float32 {
	var c [3]float32
	for _, v := range p {
		for d := 0; d < 3; d++ {
			c[d] += v[d] / 4
		}
	}
	for n := range p {
		for d := 0; d < 3; d++ {
			p[n][d] = c[d] + s*(p[n][d]-c[d])
		}
	}
	return p
}

func addTet(m *mesh.Mesh, p [4][3]float32) {
	if signedVolume(p) < 0 {
		p[1], p[2] = p[2], p[1]
	}
	base := uint32(m.NumVertices())
	for _, v := range p {
		m.Vertices = append(m.Vertices, v[0], v[1], v[2])
	}
	// outward faces of a positively oriented tetrahedron
	m.Faces = append(m.Faces,
		base, base+2, base+1,
		base, base+1, base+3,
		base+1, base+2, base+3,
		base, base+3, base+2,
	)
}

// signedVolume is six times the signed volume of the tetrahedron.
func signedVolume(p [4][3]float32) float32 {
	var a, b, c [3]float32
	for d := 0; d < 3; d++ {
		a[d] = p[1][d] - p[0][d]
		b[d] = p[2][d] - p[0][d]
		c[d] = p[3][d] - p[0][d]
	}
	return a[0]*(b[1]*c[2]-b[2]*c[1]) -
		a[1]*(b[0]*c[2]-b[2]*c[0]) +
		a[2]*(b[0]*c[1]-b[1]*c[0])
}

// Explode gives every triangle of m its own three vertices, the layout the
// tetrahedralization service returns so that shading does not blend across
// faces. The result is indexed 0..3t-1.
func Explode(m *mesh.Mesh) *mesh.Mesh {
	nt := m.NumTriangles()
	out := &mesh.Mesh{
		Vertices: make([]float32, 0, 9*nt),
		Faces:    make([]uint32, 3*nt),
	}
	for t := 0; t < nt; t++ {
		for _, v := range m.Triangle(t) {
			p := m.Vertex(int(v))
			out.Vertices = append(out.Vertices, p[0], p[1], p[2])
		}
	}
	for i := range out.Faces {
		out.Faces[i] = uint32(i)
	}
	return out
}
