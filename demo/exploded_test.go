package demo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/tetraview/mesh"
	"github.com/notargets/tetraview/wire"
)

func TestExplodedCubeCounts(t *testing.T) {
	for _, div := range []int{1, 2, 3} {
		m := ExplodedCube(div, 0.8)
		require.NoError(t, m.Validate())
		ntets := 6 * div * div * div
		assert.Equal(t, 4*ntets, m.NumVertices(), "divisions %d", div)
		assert.Equal(t, 4*ntets, m.NumTriangles(), "divisions %d", div)
	}
}

func TestExplodedCubeGeometry(t *testing.T) {
	const (
		div    = 2
		shrink = float32(0.5)
	)
	m := ExplodedCube(div, shrink)
	box := m.Bounds()
	for d := 0; d < 3; d++ {
		assert.Greater(t, box.Min[d], float32(0))
		assert.Less(t, box.Max[d], float32(1))
	}

	// each tetrahedron keeps its orientation and shrinks by shrink^3
	want := float32(1) / (div * div * div * 6) * shrink * shrink * shrink
	for tet := 0; tet < m.NumVertices()/4; tet++ {
		var p [4][3]float32
		for n := 0; n < 4; n++ {
			p[n] = m.Vertex(4*tet + n)
		}
		assert.InDelta(t, want, signedVolume(p)/6, 1e-6, "tet %d", tet)
		// face (0,2,1) must point away from vertex 3
		a, b, c := p[0], p[2], p[1]
		n := cross(sub(b, a), sub(c, a))
		assert.Less(t, dot(n, sub(p[3], a)), float32(0), "tet %d", tet)
	}
}

func TestExplodedCubeClampsArguments(t *testing.T) {
	m := ExplodedCube(0, 2)
	assert.Equal(t, 24, m.NumVertices())
	assert.Equal(t, mesh.BoundingBox{Max: [3]float32{1, 1, 1}}, m.Bounds())
}

func TestPayloadDecodes(t *testing.T) {
	buf, err := Payload(DefaultDivisions, DefaultShrink)
	require.NoError(t, err)
	m, err := wire.Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 0, len(m.Faces)%3)
	assert.True(t, m.Equal(ExplodedCube(DefaultDivisions, DefaultShrink)))
}

func sub(a, b [3]float32) [3]float32 { return [3]float32{a[0] - b[0], a[1] - b[1], a[2] - b[2]} }

func dot(a, b [3]float32) float32 { return a[0]*b[0] + a[1]*b[1] + a[2]*b[2] }

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{a[1]*b[2] - a[2]*b[1], a[2]*b[0] - a[0]*b[2], a[0]*b[1] - a[1]*b[0]}
}

func TestExplode(t *testing.T) {
	cube := mesh.UnitCube()
	ex := Explode(cube)
	require.NoError(t, ex.Validate())
	assert.Equal(t, 36, ex.NumVertices())
	assert.Equal(t, 12, ex.NumTriangles())
	for tri := 0; tri < 12; tri++ {
		want := cube.Triangle(tri)
		got := ex.Triangle(tri)
		for n := 0; n < 3; n++ {
			assert.Equal(t, cube.Vertex(int(want[n])), ex.Vertex(int(got[n])))
		}
	}
	assert.True(t, Explode(&mesh.Mesh{}).IsEmpty())
}
