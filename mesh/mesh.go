package mesh

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Mesh is a triangulated surface: interleaved x,y,z vertex positions and an
// optional triangle index list. When Faces is empty, each consecutive triple
// of vertices is one triangle.
type Mesh struct {
	Vertices []float32 // [3*NumVertices]
	Faces    []uint32  // [3*NumTriangles] or empty
}

// MalformedMeshError reports a mesh that violates the layout invariants.
type MalformedMeshError struct {
	Reason string
}

func (e *MalformedMeshError) Error() string {
	return "malformed mesh: " + e.Reason
}

// NewMesh wraps the given arrays without copying them.
func NewMesh(vertices []float32, faces []uint32) *Mesh {
	return &Mesh{Vertices: vertices, Faces: faces}
}

func (m *Mesh) NumVertices() int { return len(m.Vertices) / 3 }

// NumTriangles counts indexed triangles, or whole vertex triples for
// non-indexed meshes; one or two trailing vertices form no triangle.
func (m *Mesh) NumTriangles() int {
	if m.Indexed() {
		return len(m.Faces) / 3
	}
	return m.NumVertices() / 3
}

func (m *Mesh) Indexed() bool { return len(m.Faces) > 0 }

func (m *Mesh) IsEmpty() bool { return len(m.Vertices) == 0 }

// Vertex returns the i-th position.
func (m *Mesh) Vertex(i int) [3]float32 {
	return [3]float32{m.Vertices[3*i], m.Vertices[3*i+1], m.Vertices[3*i+2]}
}

// Triangle returns the vertex indices of triangle t for both indexed and
// non-indexed meshes.
func (m *Mesh) Triangle(t int) [3]uint32 {
	if m.Indexed() {
		return [3]uint32{m.Faces[3*t], m.Faces[3*t+1], m.Faces[3*t+2]}
	}
	b := uint32(3 * t)
	return [3]uint32{b, b + 1, b + 2}
}

// Validate checks the vertex stride, the face stride and the face index
// range.
func (m *Mesh) Validate() error {
	if len(m.Vertices)%3 != 0 {
		return &MalformedMeshError{
			Reason: fmt.Sprintf("vertex array length %d is not a multiple of 3", len(m.Vertices)),
		}
	}
	if len(m.Faces)%3 != 0 {
		return &MalformedMeshError{
			Reason: fmt.Sprintf("face array length %d is not a multiple of 3", len(m.Faces)),
		}
	}
	nv := uint32(m.NumVertices())
	for i, f := range m.Faces {
		if f >= nv {
			return &MalformedMeshError{
				Reason: fmt.Sprintf("face index %d at position %d out of range [0,%d)", f, i, nv),
			}
		}
	}
	return nil
}

// Clone returns a deep copy.
func (m *Mesh) Clone() *Mesh {
	c := &Mesh{
		Vertices: make([]float32, len(m.Vertices)),
		Faces:    make([]uint32, len(m.Faces)),
	}
	copy(c.Vertices, m.Vertices)
	copy(c.Faces, m.Faces)
	return c
}

// Equal reports whether both meshes carry bit-identical arrays.
func (m *Mesh) Equal(o *Mesh) bool {
	if len(m.Vertices) != len(o.Vertices) || len(m.Faces) != len(o.Faces) {
		return false
	}
	for i, v := range m.Vertices {
		if v != o.Vertices[i] {
			return false
		}
	}
	for i, f := range m.Faces {
		if f != o.Faces[i] {
			return false
		}
	}
	return true
}

// Columns returns the x, y and z coordinates as separate float64 slices.
func (m *Mesh) Columns() (x, y, z []float64) {
	n := m.NumVertices()
	x, y, z = make([]float64, n), make([]float64, n), make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = float64(m.Vertices[3*i])
		y[i] = float64(m.Vertices[3*i+1])
		z[i] = float64(m.Vertices[3*i+2])
	}
	return
}

// Bounds returns the axis aligned bounding box. The zero box is returned for
// an empty mesh.
func (m *Mesh) Bounds() (box BoundingBox) {
	if m.NumVertices() == 0 {
		return
	}
	for dim, col := range columns(m) {
		box.Min[dim] = float32(floats.Min(col))
		box.Max[dim] = float32(floats.Max(col))
	}
	return
}

func columns(m *Mesh) [3][]float64 {
	x, y, z := m.Columns()
	return [3][]float64{x, y, z}
}

// Translate shifts every vertex in place by d.
func (m *Mesh) Translate(d [3]float32) {
	for i := 0; i < len(m.Vertices); i += 3 {
		m.Vertices[i] += d[0]
		m.Vertices[i+1] += d[1]
		m.Vertices[i+2] += d[2]
	}
}

// Recentered returns a copy of the mesh moved so that its bounding box
// centroid sits at the origin, along with the applied offset.
func (m *Mesh) Recentered() (*Mesh, [3]float32) {
	c := m.Clone()
	center := m.Bounds().Center()
	offset := [3]float32{-center[0], -center[1], -center[2]}
	c.Translate(offset)
	return c, offset
}
