package readers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const gmshSurface = `$MeshFormat
2.2 0 8
$EndMeshFormat
$PhysicalNames
1
2 1 "wall"
$EndPhysicalNames
$Nodes
5
10 0 0 0
20 1 0 0
30 1 1 0
40 0 1 0
50 2 0 0
$EndNodes
$Elements
4
1 15 2 0 1 10
2 1 2 0 1 10 20
3 3 2 1 1 10 20 30 40
4 2 2 1 1 20 50 30
$EndElements
`

// Two tetrahedra sharing the face (b, c, d); the second is listed with
// negative orientation.
const gmshVolume = `$MeshFormat
2.2 0 8
$EndMeshFormat
$Nodes
5
1 0 0 0
2 1 0 0
3 0 1 0
4 0 0 1
5 1 1 1
$EndNodes
$Elements
2
1 4 2 0 1 1 2 3 4
2 4 2 0 1 2 4 3 5
$EndElements
`

func TestReadGmshSurface(t *testing.T) {
	msh, err := ReadGmsh(strings.NewReader(gmshSurface), 0, Options{})
	require.NoError(t, err)
	require.NoError(t, msh.Validate())
	assert.Equal(t, 5, msh.NumVertices())
	assert.Equal(t, 3, msh.NumTriangles())
	assert.Equal(t, []uint32{0, 1, 2, 0, 2, 3, 1, 4, 2}, msh.Faces)
	assert.Equal(t, [3]float32{2, 0, 0}, msh.Vertex(4))
}

func TestReadGmshVolumeBoundary(t *testing.T) {
	msh, err := ReadGmsh(strings.NewReader(gmshVolume), 0, Options{})
	require.NoError(t, err)
	require.NoError(t, msh.Validate())
	require.Equal(t, 6, msh.NumTriangles())

	center := [3]float32{0.4, 0.4, 0.4}
	for i := 0; i < msh.NumTriangles(); i++ {
		tri := msh.Triangle(i)
		corners := map[uint32]bool{tri[0]: true, tri[1]: true, tri[2]: true}
		assert.False(t, corners[1] && corners[2] && corners[3], "shared face %d kept", i)
		a, b, c := msh.Vertex(int(tri[0])), msh.Vertex(int(tri[1])), msh.Vertex(int(tri[2]))
		assert.Less(t, orient(a, b, c, center), float32(0), "face %d points inward", i)
	}
}

func TestReadGmshErrors(t *testing.T) {
	cases := map[string]string{
		"binary":       "$MeshFormat\n2.2 1 8\n$EndMeshFormat\n",
		"version 4":    "$MeshFormat\n4.1 0 8\n$EndMeshFormat\n",
		"no format":    "$Nodes\n0\n$EndNodes\n",
		"unknown node": "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 0 0\n$EndNodes\n$Elements\n1\n1 2 0 1 2 3\n$EndElements\n",
		"short nodes":  "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n3\n1 0 0 0\n",
		"bad coord":    "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 x 0\n$EndNodes\n",
		"no end":       "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 0 0\n$Elements\n",
		"duplicate id": "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n2\n1 0 0 0\n1 1 0 0\n$EndNodes\n",
		"huge nodes":   "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n999999999999999999\n1 0 0 0\n$EndNodes\n",
	}
	for name, src := range cases {
		_, err := ReadGmsh(strings.NewReader(src), 0, Options{})
		assert.Error(t, err, name)
	}
}

func TestReadGmshCountBeyondFileSize(t *testing.T) {
	var lfe *LocalFormatError
	for name, src := range map[string]string{
		"nodes.msh":    "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n999999999999999999\n1 0 0 0\n$EndNodes\n",
		"elements.msh": "$MeshFormat\n2.2 0 8\n$EndMeshFormat\n$Nodes\n1\n1 0 0 0\n$EndNodes\n$Elements\n999999999999999999\n$EndElements\n",
	} {
		path := writeTemp(t, name, []byte(src))
		_, err := ReadSurfaceFile(context.Background(), path, Options{})
		require.Error(t, err, name)
		assert.True(t, errors.As(err, &lfe), name)
		assert.Contains(t, err.Error(), "exceeds", name)
	}
}

func TestReadSurfaceFileGmsh(t *testing.T) {
	path := writeTemp(t, "box.MSH", []byte(gmshVolume))
	msh, err := ReadSurfaceFile(context.Background(), path, Options{})
	require.NoError(t, err)
	assert.Equal(t, 6, msh.NumTriangles())

	path = writeTemp(t, "bad.msh", []byte("$MeshFormat\n4.1 0 8\n$EndMeshFormat\n"))
	_, err = ReadSurfaceFile(context.Background(), path, Options{})
	var lfe *LocalFormatError
	require.True(t, errors.As(err, &lfe))
	assert.Equal(t, "msh", lfe.Format)
}
