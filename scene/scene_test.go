package scene

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/mesh"
)

func newTestManager(dev Device, edges bool) *Manager {
	opts := DefaultOptions()
	opts.Edges = edges
	opts.Logger = logging.Discard()
	return NewManager(dev, opts)
}

func TestInstallKeepsOneGeneration(t *testing.T) {
	dev := NewMemoryDevice()
	mgr := newTestManager(dev, true)

	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		id, err := mgr.InstallMesh(mesh.UnitCube())
		require.NoError(t, err, "install %d", i)
		ids = append(ids, id)
	}
	// surface: position, normal, index, material; edges: line, material
	assert.Equal(t, 6, dev.Live())
	allocated, released := dev.Counts()
	assert.Equal(t, 30, allocated)
	assert.Equal(t, 24, released)

	st := mgr.Stats()
	assert.Equal(t, 1, st.LiveGenerations)
	assert.Equal(t, 5, st.Installed)
	assert.Equal(t, 4, st.Released)
	assert.Equal(t, 0, st.ReleaseFailures)
	assert.Equal(t, 6, st.LiveResources)

	snap := mgr.Current()
	assert.Equal(t, Populated, snap.State)
	assert.Equal(t, ids[4], snap.Generation)
	seen := map[uuid.UUID]bool{}
	for _, id := range ids {
		assert.False(t, seen[id], "generation ids repeat")
		seen[id] = true
	}
}

func TestClear(t *testing.T) {
	dev := NewMemoryDevice()
	mgr := newTestManager(dev, true)
	_, err := mgr.InstallMesh(mesh.Tetrahedron())
	require.NoError(t, err)

	require.NoError(t, mgr.Clear())
	assert.Equal(t, 0, dev.Live())
	assert.Equal(t, Empty, mgr.State())
	for _, o := range mgr.Objects() {
		assert.Equal(t, LightObject, o.Kind, "object %s survived clear", o.Name)
	}
	assert.Len(t, mgr.Objects(), 3)

	// clearing an empty scene is a no-op
	require.NoError(t, mgr.Clear())
	assert.Equal(t, 1, mgr.Stats().Released)
}

func TestInstallEmptyMeshClears(t *testing.T) {
	dev := NewMemoryDevice()
	mgr := newTestManager(dev, false)
	_, err := mgr.InstallMesh(mesh.UnitCube())
	require.NoError(t, err)
	id, err := mgr.InstallMesh(&mesh.Mesh{})
	require.NoError(t, err)
	assert.Equal(t, uuid.Nil, id)
	assert.Equal(t, 0, dev.Live())
	assert.Equal(t, Empty, mgr.Current().State)
}

func TestInvalidMeshLeavesSceneUnchanged(t *testing.T) {
	dev := NewMemoryDevice()
	mgr := newTestManager(dev, true)
	id, err := mgr.InstallMesh(mesh.UnitCube())
	require.NoError(t, err)

	bad := &mesh.Mesh{Vertices: []float32{0, 0, 0}, Faces: []uint32{0, 1, 2}}
	_, err = mgr.InstallMesh(bad)
	var merr *mesh.MalformedMeshError
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, id, mgr.Current().Generation)
	assert.Equal(t, 6, dev.Live())

	_, err = mgr.InstallMesh(nil)
	assert.Error(t, err)
}

func TestAllocationFailureKeepsOldGeneration(t *testing.T) {
	for _, failAfter := range []int{6, 7, 9, 10} {
		dev := NewMemoryDevice()
		mgr := newTestManager(dev, true)
		id, err := mgr.InstallMesh(mesh.UnitCube())
		require.NoError(t, err)

		dev.FailAfter = failAfter
		_, err = mgr.InstallMesh(mesh.Tetrahedron())
		require.Error(t, err, "fail after %d", failAfter)
		assert.Equal(t, 6, dev.Live(), "fail after %d: partial allocation leaked", failAfter)
		assert.Equal(t, id, mgr.Current().Generation)
		assert.Equal(t, 1, mgr.Stats().Installed)
	}
}

func TestVisibilityTogglesDoNotAllocate(t *testing.T) {
	dev := NewMemoryDevice()
	mgr := newTestManager(dev, true)
	_, err := mgr.InstallMesh(mesh.UnitCube())
	require.NoError(t, err)
	before, _ := dev.Counts()

	mgr.SetEdgesVisible(false)
	objs := mgr.Objects()
	assert.True(t, objs[3].Visible)
	assert.False(t, objs[4].Visible)

	mgr.SetVisible(false)
	mgr.SetEdgesVisible(true)
	objs = mgr.Objects()
	assert.False(t, objs[3].Visible)
	assert.False(t, objs[4].Visible, "edges follow the mesh visibility")

	mgr.SetVisible(true)
	objs = mgr.Objects()
	assert.True(t, objs[3].Visible)
	assert.True(t, objs[4].Visible)

	after, _ := dev.Counts()
	assert.Equal(t, before, after)

	// the flag carries over to the next mesh
	mgr.SetVisible(false)
	_, err = mgr.InstallMesh(mesh.Tetrahedron())
	require.NoError(t, err)
	assert.False(t, mgr.Current().Visible)
	assert.False(t, mgr.Objects()[3].Visible)
}

func TestLights(t *testing.T) {
	mgr := newTestManager(NewMemoryDevice(), false)
	lights := mgr.Current().Lights
	require.Len(t, lights, 3)
	assert.Equal(t, AmbientLight, lights[0].Type)
	assert.Equal(t, float32(0.5), lights[0].Intensity)
	assert.Equal(t, [3]float32{10, 10, 5}, lights[1].Position)
	assert.Equal(t, [3]float32{-10, 10, -5}, lights[2].Position)
}

func TestCubeGeometry(t *testing.T) {
	g := BuildGeometry(mesh.UnitCube())
	assert.Equal(t, 12, g.Triangles)
	assert.Equal(t, [3]float32{-0.5, -0.5, -0.5}, g.Offset)
	assert.Equal(t, [3]float32{-0.5, -0.5, -0.5}, g.Bounds.Min)
	assert.Equal(t, [3]float32{0.5, 0.5, 0.5}, g.Bounds.Max)

	// every corner normal is unit length and points away from the center
	require.Len(t, g.Normals, 24)
	for v := 0; v < 8; v++ {
		n := g.Normals[3*v : 3*v+3]
		p := g.Positions[3*v : 3*v+3]
		l := math32.Sqrt(n[0]*n[0] + n[1]*n[1] + n[2]*n[2])
		assert.InDelta(t, 1, l, 1e-5, "vertex %d", v)
		assert.Greater(t, n[0]*p[0]+n[1]*p[1]+n[2]*p[2], float32(0), "vertex %d", v)
	}

	// 12 cube edges plus one diagonal per face
	assert.Len(t, EdgeSegments(g), 18*6)
}

func TestNonIndexedEdgesAreShared(t *testing.T) {
	// two triangles sharing an edge, with duplicated vertices
	m := &mesh.Mesh{Vertices: []float32{
		0, 0, 0, 1, 0, 0, 0, 1, 0,
		1, 0, 0, 1, 1, 0, 0, 1, 0,
	}}
	g := BuildGeometry(m)
	assert.Nil(t, g.Indices)
	assert.Equal(t, 2, g.Triangles)
	assert.Len(t, EdgeSegments(g), 5*6)
}

func TestInstallNonIndexedWithTrailingVertex(t *testing.T) {
	mgr := newTestManager(NewMemoryDevice(), true)
	m := &mesh.Mesh{Vertices: []float32{
		0, 0, 0, 1, 0, 0, 0, 1, 0,
		7, 7, 7,
	}}
	_, err := mgr.InstallMesh(m)
	require.NoError(t, err)

	snap := mgr.Current()
	assert.Equal(t, Populated, snap.State)
	assert.Equal(t, 1, snap.Triangles)
	assert.Len(t, snap.Normals, 12)
	assert.Equal(t, []float32{0, 0, 0}, snap.Normals[9:12])
	assert.Len(t, snap.Edges, 3*6)
}

func TestNormalsOfFlatQuad(t *testing.T) {
	m := &mesh.Mesh{
		Vertices: []float32{0, 0, 0, 1, 0, 0, 1, 1, 0, 0, 1, 0, 5, 5, 5},
		Faces:    []uint32{0, 1, 2, 0, 2, 3},
	}
	n := ComputeNormals(m)
	for v := 0; v < 4; v++ {
		assert.InDeltaSlice(t, []float32{0, 0, 1}, n[3*v:3*v+3], 1e-6)
	}
	// unreferenced vertex
	assert.Equal(t, []float32{0, 0, 0}, n[12:15])
}

func TestCameraFit(t *testing.T) {
	mgr := newTestManager(NewMemoryDevice(), false)
	_, err := mgr.InstallMesh(mesh.UnitCube())
	require.NoError(t, err)
	cam := mgr.Current().Camera

	radius := math32.Sqrt(0.75) * 1.2
	want := radius / math32.Sin(25*math32.Pi/180)
	assert.InDelta(t, want, cam.Distance(), 1e-4)
	assert.Equal(t, float32(0), cam.Target.Len())
	assert.Less(t, cam.Near, cam.Distance()-math32.Sqrt(0.75))
	assert.Greater(t, cam.Far, cam.Distance()+math32.Sqrt(0.75))

	// the bounding box stays inside the view volume
	mvp := cam.Projection().Mul4(cam.View())
	b := mgr.Current().Bounds
	for _, x := range []float32{b.Min[0], b.Max[0]} {
		for _, y := range []float32{b.Min[1], b.Max[1]} {
			for _, z := range []float32{b.Min[2], b.Max[2]} {
				c := mvp.Mul4x1([4]float32{x, y, z, 1})
				for i := 0; i < 3; i++ {
					assert.LessOrEqual(t, math32.Abs(c[i]/c[3]), float32(1))
				}
			}
		}
	}
}

func TestDoubleRelease(t *testing.T) {
	dev := NewMemoryDevice()
	r, err := dev.NewBuffer(BufferDesc{Label: "x", Kind: LineBuffer, Size: 12})
	require.NoError(t, err)
	assert.Equal(t, 12, dev.LiveBytes())
	require.NoError(t, r.Release())
	assert.ErrorIs(t, r.Release(), ErrAlreadyReleased)
	assert.Equal(t, 0, dev.LiveBytes())
}
