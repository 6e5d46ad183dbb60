package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/notargets/tetraview/mesh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeUnitCube(t *testing.T) {
	cube := mesh.UnitCube()
	buf, err := Encode(cube)
	require.NoError(t, err)
	assert.Equal(t, 4+12*8+4*36, len(buf))
	assert.Equal(t, 244, EncodedSize(cube))

	// Header and first coordinate of vertex 1 are little-endian
	assert.Equal(t, []byte{8, 0, 0, 0}, buf[:4])
	assert.Equal(t, float32(1), math.Float32frombits(binary.LittleEndian.Uint32(buf[4+12:])))

	m, err := Decode(buf)
	require.NoError(t, err)
	assert.Equal(t, 8, m.NumVertices())
	assert.Equal(t, 36, len(m.Faces))
	assert.True(t, cube.Equal(m))
}

func TestRoundTripRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 50; trial++ {
		nv := rng.Intn(64)
		m := &mesh.Mesh{Vertices: make([]float32, 3*nv)}
		for i := range m.Vertices {
			m.Vertices[i] = math.Float32frombits(rng.Uint32())
		}
		if nv > 0 {
			m.Faces = make([]uint32, 3*rng.Intn(40))
			for i := range m.Faces {
				m.Faces[i] = uint32(rng.Intn(nv))
			}
		}
		buf, err := Encode(m)
		require.NoError(t, err)
		out, err := Decode(buf)
		require.NoError(t, err)
		require.Equal(t, len(m.Vertices), len(out.Vertices))
		for i := range m.Vertices {
			// bitwise, NaN payloads included
			require.Equal(t, math.Float32bits(m.Vertices[i]), math.Float32bits(out.Vertices[i]))
		}
		require.Equal(t, len(m.Faces), len(out.Faces))
		if len(m.Faces) > 0 {
			require.Equal(t, m.Faces, out.Faces)
		}
	}
}

func TestEncodeMalformed(t *testing.T) {
	_, err := Encode(&mesh.Mesh{Vertices: []float32{1, 2}})
	require.Error(t, err)
	var malformed *MalformedMeshError
	assert.True(t, errors.As(err, &malformed))
}

func TestDecodeTruncated(t *testing.T) {
	var truncated *TruncatedBufferError

	for _, buf := range [][]byte{nil, {1}, {1, 0, 0}} {
		_, err := Decode(buf)
		require.Error(t, err)
		assert.True(t, errors.As(err, &truncated))
	}

	for count := uint32(1); count <= 64; count++ {
		full := make([]byte, 4+12*int(count))
		binary.LittleEndian.PutUint32(full, count)
		for cut := 4; cut < len(full); cut += 5 {
			_, err := Decode(full[:cut])
			require.Error(t, err, "count %d cut %d", count, cut)
			require.True(t, errors.As(err, &truncated))
		}
		_, err := Decode(full)
		require.NoError(t, err)
	}

	// A header claiming more vertices than addressable must not overflow
	huge := []byte{0xff, 0xff, 0xff, 0xff, 0, 0, 0, 0}
	_, err := Decode(huge)
	assert.True(t, errors.As(err, &truncated))
}

func TestDecodeRaggedFaces(t *testing.T) {
	buf, err := Encode(mesh.Tetrahedron())
	require.NoError(t, err)
	_, err = Decode(append(buf, 0, 0))
	var truncated *TruncatedBufferError
	require.True(t, errors.As(err, &truncated))
	assert.Contains(t, err.Error(), "not a multiple")
}

func TestDecodeDoesNotAlias(t *testing.T) {
	buf, err := Encode(mesh.UnitCube())
	require.NoError(t, err)
	m, err := Decode(buf)
	require.NoError(t, err)
	for i := range buf {
		buf[i] = 0xff
	}
	assert.True(t, mesh.UnitCube().Equal(m))
}

func TestStreamHelpers(t *testing.T) {
	var b bytes.Buffer
	n, err := WriteTo(&b, mesh.Tetrahedron())
	require.NoError(t, err)
	assert.Equal(t, int64(4+12*4+4*12), n)
	m, err := ReadFrom(&b)
	require.NoError(t, err)
	assert.True(t, mesh.Tetrahedron().Equal(m))
}

func TestVerticesOnly(t *testing.T) {
	m := &mesh.Mesh{Vertices: []float32{0, 0, 0, 1, 0, 0, 0, 1, 0}}
	buf, err := Encode(m)
	require.NoError(t, err)
	assert.Equal(t, 4+36, len(buf))
	out, err := Decode(buf)
	require.NoError(t, err)
	assert.Empty(t, out.Faces)
	assert.Equal(t, m.Vertices, out.Vertices)
}
