// Package wire implements the binary payload exchanged with the
// tetrahedralization service.
//
// Layout, all values little-endian:
//
//	offset 0      : uint32      vertex count n
//	offset 4      : float32[3n] vertex positions, interleaved x,y,z
//	offset 4+12n  : int32[m]    face indices, m = remaining bytes / 4
//
// The face array carries no length field; it is whatever follows the
// vertices. It must stay the last field of the layout.
package wire

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/notargets/tetraview/mesh"
)

const (
	HeaderSize = 4
	VertexSize = 12 // 3 x float32
	IndexSize  = 4
)

var byteOrder = binary.LittleEndian

type MalformedMeshError = mesh.MalformedMeshError

// TruncatedBufferError reports a payload shorter than its header implies, or
// one whose face section is not a whole number of indices.
type TruncatedBufferError struct {
	Length      int
	VertexCount uint32
	Want        int
}

func (e *TruncatedBufferError) Error() string {
	if e.Want == 0 {
		return fmt.Sprintf("truncated buffer: %d trailing face bytes are not a multiple of %d",
			e.Length, IndexSize)
	}
	return fmt.Sprintf("truncated buffer: %d bytes, header declares %d vertices needing at least %d",
		e.Length, e.VertexCount, e.Want)
}

// EncodedSize is the payload length Encode produces for m.
func EncodedSize(m *mesh.Mesh) int {
	return HeaderSize + 4*len(m.Vertices) + IndexSize*len(m.Faces)
}

// Encode serializes m. It fails only when the vertex array is not a whole
// number of xyz triples.
func Encode(m *mesh.Mesh) ([]byte, error) {
	if len(m.Vertices)%3 != 0 {
		return nil, &MalformedMeshError{
			Reason: fmt.Sprintf("vertex array length %d is not a multiple of 3", len(m.Vertices)),
		}
	}
	buf := make([]byte, EncodedSize(m))
	byteOrder.PutUint32(buf, uint32(m.NumVertices()))
	offset := HeaderSize
	for _, v := range m.Vertices {
		byteOrder.PutUint32(buf[offset:], math.Float32bits(v))
		offset += 4
	}
	for _, f := range m.Faces {
		// int32 on the wire, same bits as the uint32 index
		byteOrder.PutUint32(buf[offset:], f)
		offset += IndexSize
	}
	return buf, nil
}

// Decode parses a payload. The returned mesh never aliases buf.
func Decode(buf []byte) (*mesh.Mesh, error) {
	if len(buf) < HeaderSize {
		return nil, &TruncatedBufferError{Length: len(buf), Want: HeaderSize}
	}
	n := byteOrder.Uint32(buf)
	// uint64 so that a hostile header cannot overflow the bound
	want := uint64(HeaderSize) + uint64(VertexSize)*uint64(n)
	if uint64(len(buf)) < want {
		return nil, &TruncatedBufferError{Length: len(buf), VertexCount: n, Want: int(min(want, math.MaxInt32))}
	}
	rest := len(buf) - int(want)
	if rest%IndexSize != 0 {
		return nil, &TruncatedBufferError{Length: rest, VertexCount: n}
	}

	m := &mesh.Mesh{
		Vertices: make([]float32, 3*n),
		Faces:    make([]uint32, rest/IndexSize),
	}
	offset := HeaderSize
	for i := range m.Vertices {
		m.Vertices[i] = math.Float32frombits(byteOrder.Uint32(buf[offset:]))
		offset += 4
	}
	for i := range m.Faces {
		m.Faces[i] = byteOrder.Uint32(buf[offset:])
		offset += IndexSize
	}
	return m, nil
}

// WriteTo encodes m onto w.
func WriteTo(w io.Writer, m *mesh.Mesh) (int64, error) {
	buf, err := Encode(m)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(buf)
	return int64(n), err
}

// ReadFrom reads r to EOF and decodes the payload.
func ReadFrom(r io.Reader) (*mesh.Mesh, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading payload: %w", err)
	}
	return Decode(buf)
}
