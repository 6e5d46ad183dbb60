package preview

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/tetraview/logging"
	"github.com/notargets/tetraview/mesh"
	"github.com/notargets/tetraview/scene"
)

func installed(t *testing.T, m *mesh.Mesh) *scene.Manager {
	opts := scene.DefaultOptions()
	opts.Logger = logging.Discard()
	mgr := scene.NewManager(scene.NewMemoryDevice(), opts)
	_, err := mgr.InstallMesh(m)
	require.NoError(t, err)
	return mgr
}

func TestProjectCube(t *testing.T) {
	mgr := installed(t, mesh.UnitCube())
	gm, edges := Project(mgr.Current())
	require.Len(t, gm.XY, 16)
	require.Len(t, gm.TriVerts, 12)
	assert.Equal(t, [3]int64{0, 2, 1}, gm.TriVerts[0])
	assert.Len(t, edges, 18*4)
	for _, v := range gm.XY {
		assert.LessOrEqual(t, v, float32(1))
		assert.GreaterOrEqual(t, v, float32(-1))
	}
	// the camera looks down -z at the recentered cube, so it projects symmetrically
	xMin, xMax, yMin, yMax := extent(gm.XY, false)
	assert.InDelta(t, -xMin, xMax, 1e-5)
	assert.InDelta(t, -yMin, yMax, 1e-5)
}

func TestProjectNonIndexed(t *testing.T) {
	m := &mesh.Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0, 1, 1, 1, 2, 1, 1, 1, 2, 1}}
	gm, _ := Project(installed(t, m).Current())
	assert.Equal(t, [][3]int64{{0, 1, 2}, {3, 4, 5}}, gm.TriVerts)
}

func TestProjectHonorsVisibility(t *testing.T) {
	mgr := installed(t, mesh.UnitCube())
	mgr.SetEdgesVisible(false)
	gm, edges := Project(mgr.Current())
	assert.Len(t, gm.TriVerts, 12)
	assert.Empty(t, edges)

	mgr.SetVisible(false)
	gm, edges = Project(mgr.Current())
	assert.Empty(t, gm.TriVerts)
	assert.Empty(t, edges)

	require.NoError(t, mgr.Clear())
	err := Show(context.Background(), mgr.Current(), 100, 100)
	assert.ErrorIs(t, err, ErrNothingToShow)
}

func TestSquareExtent(t *testing.T) {
	xMin, xMax, yMin, yMax := extent([]float32{0, 0, 4, 2, 1, 1}, true)
	assert.Equal(t, []float32{0, 4, -1, 3}, []float32{xMin, xMax, yMin, yMax})
	xMin, xMax, yMin, yMax = extent([]float32{0, 4, 4, 2, 1, 1}, false)
	assert.Equal(t, []float32{0, 4, 1, 4}, []float32{xMin, xMax, yMin, yMax})
	xMin, xMax, yMin, yMax = extent([]float32{0, -3, 1, 3}, true)
	assert.Equal(t, []float32{-2.5, 3.5, -3, 3}, []float32{xMin, xMax, yMin, yMax})
}
