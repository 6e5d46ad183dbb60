package readers

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/notargets/tetraview/mesh"
)

const (
	stlHeaderSize   = 80
	stlTriangleSize = 50 // normal, 3 vertices, attribute byte count
)

// ReadSTL reads a binary or ASCII STL surface. size is the total stream
// length when known (<= 0 otherwise) and is used to tell the encodings
// apart.
func ReadSTL(r io.Reader, size int64, opts Options) (*mesh.Mesh, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(stlHeaderSize + 4)
	if err != nil && len(head) < 5 {
		return nil, fmt.Errorf("file too short for STL: %v", err)
	}
	if len(head) == stlHeaderSize+4 {
		count := binary.LittleEndian.Uint32(head[stlHeaderSize:])
		if size <= 0 || int64(stlHeaderSize+4)+int64(stlTriangleSize)*int64(count) == size {
			return readBinarySTL(br, opts)
		}
	}
	if bytes.HasPrefix(bytes.TrimLeft(head, " \t\r\n"), []byte("solid")) {
		return readASCIISTL(br, opts)
	}
	return nil, fmt.Errorf("neither a binary STL of matching length nor an ASCII STL")
}

type stlBuilder struct {
	weld    bool
	msh     *mesh.Mesh
	vertMap map[[3]float32]uint32
}

func newSTLBuilder(weld bool, triangles int) *stlBuilder {
	b := &stlBuilder{weld: weld, msh: &mesh.Mesh{}}
	if weld {
		b.vertMap = make(map[[3]float32]uint32)
		b.msh.Faces = make([]uint32, 0, 3*triangles)
	} else {
		b.msh.Vertices = make([]float32, 0, 9*triangles)
	}
	return b
}

func (b *stlBuilder) add(v [3]float32) {
	if !b.weld {
		b.msh.Vertices = append(b.msh.Vertices, v[0], v[1], v[2])
		return
	}
	idx, ok := b.vertMap[v]
	if !ok {
		idx = uint32(b.msh.NumVertices())
		b.msh.Vertices = append(b.msh.Vertices, v[0], v[1], v[2])
		b.vertMap[v] = idx
	}
	b.msh.Faces = append(b.msh.Faces, idx)
}

func readBinarySTL(r io.Reader, opts Options) (*mesh.Mesh, error) {
	var header struct {
		H    [stlHeaderSize]byte
		NTri uint32
	}
	if err := binary.Read(r, binary.LittleEndian, &header); err != nil {
		return nil, err
	}
	b := newSTLBuilder(opts.Weld, capacityHint(int(header.NTri)))
	triBuf := make([]byte, stlTriangleSize)
	var vert [3]float32
	for i := 0; i < int(header.NTri); i++ {
		if _, err := io.ReadFull(r, triBuf); err != nil {
			return nil, fmt.Errorf("reading triangle %d of %d: %w", i, header.NTri, err)
		}
		for v := 0; v < 3; v++ {
			for c := range vert {
				const start = 3 * 4 // Skip normal
				vert[c] = math.Float32frombits(binary.LittleEndian.Uint32(triBuf[start+12*v+4*c:]))
			}
			b.add(vert)
		}
	}
	return b.msh, nil
}

func readASCIISTL(r io.Reader, opts Options) (*mesh.Mesh, error) {
	var (
		scanner   = bufio.NewScanner(r)
		b         = newSTLBuilder(opts.Weld, 0)
		lineNo    int
		inLoop    bool
		loopVerts int
		vert      [3]float32
		facets    int
	)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		switch strings.ToLower(fields[0]) {
		case "outer":
			inLoop, loopVerts = true, 0
		case "vertex":
			if !inLoop {
				return nil, fmt.Errorf("line %d: vertex outside of a loop", lineNo)
			}
			if len(fields) < 4 {
				return nil, fmt.Errorf("line %d: vertex needs 3 coordinates", lineNo)
			}
			for c := 0; c < 3; c++ {
				f, err := strconv.ParseFloat(fields[1+c], 32)
				if err != nil {
					return nil, fmt.Errorf("line %d: invalid coordinate: %v", lineNo, err)
				}
				vert[c] = float32(f)
			}
			b.add(vert)
			loopVerts++
		case "endloop":
			if loopVerts != 3 {
				return nil, fmt.Errorf("line %d: facet has %d vertices, want 3", lineNo, loopVerts)
			}
			inLoop = false
			facets++
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if inLoop {
		return nil, fmt.Errorf("unexpected EOF inside a facet")
	}
	if facets == 0 {
		return nil, fmt.Errorf("no facets found")
	}
	return b.msh, nil
}
