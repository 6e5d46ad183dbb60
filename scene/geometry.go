package scene

import (
	"github.com/chewxy/math32"
	"github.com/james-bowman/sparse"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/notargets/tetraview/mesh"
)

// Geometry is the render-ready form of a Mesh: recentered positions, smooth
// per-vertex normals and the triangle index (nil for non-indexed meshes).
type Geometry struct {
	Positions []float32
	Normals   []float32
	Indices   []uint32
	Bounds    mesh.BoundingBox // after recentering
	Offset    [3]float32       // translation applied to the source mesh
	Triangles int
}

// BuildGeometry recenters m on its bounding box centroid and derives the
// vertex normals the wire format does not carry.
func BuildGeometry(m *mesh.Mesh) *Geometry {
	centered, offset := m.Recentered()
	g := &Geometry{
		Positions: centered.Vertices,
		Indices:   centered.Faces,
		Bounds:    centered.Bounds(),
		Offset:    offset,
		Triangles: centered.NumTriangles(),
	}
	if len(g.Indices) == 0 {
		g.Indices = nil
	}
	g.Normals = ComputeNormals(centered)
	return g
}

// ComputeNormals accumulates area weighted face normals onto the vertices of
// each triangle and normalizes the sums. The vertex/triangle incidence is
// held as a sparse matrix, so row v lists the triangles touching vertex v.
// Vertices that touch no triangle, or only degenerate ones, get a zero
// normal.
func ComputeNormals(m *mesh.Mesh) []float32 {
	var (
		nv      = m.NumVertices()
		nt      = m.NumTriangles()
		normals = make([]float32, 3*nv)
	)
	if nv == 0 || nt == 0 {
		return normals
	}
	faceNormals := mat.NewDense(nt, 3, nil)
	incidence := sparse.NewDOK(nv, nt)
	for t := 0; t < nt; t++ {
		tri := m.Triangle(t)
		a, b, c := m.Vertex(int(tri[0])), m.Vertex(int(tri[1])), m.Vertex(int(tri[2]))
		// the cross product length is twice the area, which gives the weighting
		n := cross(sub(b, a), sub(c, a))
		faceNormals.SetRow(t, []float64{float64(n[0]), float64(n[1]), float64(n[2])})
		for _, v := range tri {
			incidence.Set(int(v), t, 1)
		}
	}

	raw := incidence.ToCSR().RawMatrix()
	acc := make([]float64, 3)
	for v := 0; v < nv; v++ {
		acc[0], acc[1], acc[2] = 0, 0, 0
		for k := raw.Indptr[v]; k < raw.Indptr[v+1]; k++ {
			floats.AddScaled(acc, raw.Data[k], faceNormals.RawRowView(raw.Ind[k]))
		}
		n := [3]float32{float32(acc[0]), float32(acc[1]), float32(acc[2])}
		l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		if l == 0 || math32.IsNaN(l) {
			continue
		}
		normals[3*v], normals[3*v+1], normals[3*v+2] = n[0]/l, n[1]/l, n[2]/l
	}
	return normals
}

// EdgeSegments returns every distinct triangle edge as a pair of endpoints,
// six floats per edge. Edges are matched by endpoint position, so an edge
// shared by two triangles is emitted once for indexed and non-indexed
// geometry alike. No dihedral angle filter is applied.
func EdgeSegments(g *Geometry) []float32 {
	var (
		m    = &mesh.Mesh{Vertices: g.Positions, Faces: g.Indices}
		nt   = m.NumTriangles()
		seen = make(map[[6]float32]struct{}, 3*nt/2)
		out  = make([]float32, 0, 9*nt)
	)
	for t := 0; t < nt; t++ {
		tri := m.Triangle(t)
		for e := 0; e < 3; e++ {
			p, q := m.Vertex(int(tri[e])), m.Vertex(int(tri[(e+1)%3]))
			if p == q {
				continue
			}
			if less(q, p) {
				p, q = q, p
			}
			key := [6]float32{p[0], p[1], p[2], q[0], q[1], q[2]}
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key[:]...)
		}
	}
	return out
}

func less(a, b [3]float32) bool {
	for i := 0; i < 3; i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}

func sub(a, b [3]float32) [3]float32 {
	return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}
