package readers

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/notargets/tetraview/mesh"
)

// Gmsh element type codes used here.
const (
	gmshTriangle    = 2
	gmshQuadrangle  = 3
	gmshTetrahedron = 4
)

// Shortest possible records: "1 0 0 0\n" and "1 15 0 1\n".
const (
	gmshMinNode    = 8
	gmshMinElement = 9
)

// ReadGmsh reads an ASCII Gmsh 2.2 mesh. Triangle and quadrangle elements
// form the surface. A file holding only tetrahedra yields the exterior
// faces of the volume, wound outward. Other element types are skipped.
func ReadGmsh(r io.Reader, size int64, _ Options) (*mesh.Mesh, error) {
	var (
		scanner = bufio.NewScanner(r)
		rd      = &gmshReader{scanner: scanner, size: size, nodeIndex: make(map[int]uint32)}
	)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		var err error
		switch line {
		case "":
			continue
		case "$MeshFormat":
			err = rd.readMeshFormat()
		case "$Nodes":
			err = rd.readNodes()
		case "$Elements":
			err = rd.readElements()
		default:
			if strings.HasPrefix(line, "$") && !strings.HasPrefix(line, "$End") {
				err = rd.skipSection(line[1:])
			}
		}
		if err != nil {
			return nil, err
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if !rd.sawFormat {
		return nil, fmt.Errorf("missing $MeshFormat section")
	}
	return rd.surface(), nil
}

type gmshReader struct {
	scanner   *bufio.Scanner
	size      int64
	sawFormat bool
	vertices  []float32
	nodeIndex map[int]uint32
	faces     []uint32
	tets      [][4]uint32
}

func (rd *gmshReader) next(section string) ([]string, error) {
	for rd.scanner.Scan() {
		fields := strings.Fields(rd.scanner.Text())
		if len(fields) > 0 {
			return fields, nil
		}
	}
	if err := rd.scanner.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("unexpected EOF in %s", section)
}

func (rd *gmshReader) expectEnd(section string) error {
	fields, err := rd.next(section)
	if err != nil {
		return err
	}
	if fields[0] != "$End"+section {
		return fmt.Errorf("expected $End%s, got %q", section, fields[0])
	}
	return nil
}

func (rd *gmshReader) skipSection(section string) error {
	for {
		fields, err := rd.next(section)
		if err != nil {
			return err
		}
		if fields[0] == "$End"+section {
			return nil
		}
	}
}

func (rd *gmshReader) readMeshFormat() error {
	fields, err := rd.next("MeshFormat")
	if err != nil {
		return err
	}
	if len(fields) < 3 {
		return fmt.Errorf("invalid MeshFormat line")
	}
	if !strings.HasPrefix(fields[0], "2.") {
		return fmt.Errorf("unsupported Gmsh version %s", fields[0])
	}
	if fields[1] != "0" {
		return fmt.Errorf("binary Gmsh files are not supported")
	}
	rd.sawFormat = true
	return rd.expectEnd("MeshFormat")
}

func (rd *gmshReader) readNodes() error {
	fields, err := rd.next("Nodes")
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return fmt.Errorf("invalid node count %q", fields[0])
	}
	if err = checkCount("node", count, rd.size, gmshMinNode); err != nil {
		return err
	}
	rd.vertices = make([]float32, 0, 3*capacityHint(count))
	for i := 0; i < count; i++ {
		if fields, err = rd.next("Nodes"); err != nil {
			return err
		}
		if len(fields) < 4 {
			return fmt.Errorf("node %d: expected id and 3 coordinates", i)
		}
		id, err := strconv.Atoi(fields[0])
		if err != nil {
			return fmt.Errorf("node %d: %v", i, err)
		}
		if _, dup := rd.nodeIndex[id]; dup {
			return fmt.Errorf("duplicate node id %d", id)
		}
		var xyz [3]float32
		for j := range xyz {
			v, err := strconv.ParseFloat(fields[1+j], 32)
			if err != nil {
				return fmt.Errorf("node %d: %v", id, err)
			}
			xyz[j] = float32(v)
		}
		rd.nodeIndex[id] = uint32(len(rd.vertices) / 3)
		rd.vertices = append(rd.vertices, xyz[:]...)
	}
	return rd.expectEnd("Nodes")
}

func (rd *gmshReader) readElements() error {
	fields, err := rd.next("Elements")
	if err != nil {
		return err
	}
	count, err := strconv.Atoi(fields[0])
	if err != nil || count < 0 {
		return fmt.Errorf("invalid element count %q", fields[0])
	}
	if err = checkCount("element", count, rd.size, gmshMinElement); err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		if fields, err = rd.next("Elements"); err != nil {
			return err
		}
		if len(fields) < 3 {
			return fmt.Errorf("element %d: short record", i)
		}
		elemType, err1 := strconv.Atoi(fields[1])
		numTags, err2 := strconv.Atoi(fields[2])
		if err1 != nil || err2 != nil || numTags < 0 {
			return fmt.Errorf("element %s: invalid header", fields[0])
		}
		var numNodes int
		switch elemType {
		case gmshTriangle:
			numNodes = 3
		case gmshQuadrangle, gmshTetrahedron:
			numNodes = 4
		default:
			continue
		}
		start := 3 + numTags
		if len(fields) < start+numNodes {
			return fmt.Errorf("element %s: expected %d nodes, got %d",
				fields[0], numNodes, len(fields)-start)
		}
		var nodes [4]uint32
		for j := 0; j < numNodes; j++ {
			id, err := strconv.Atoi(fields[start+j])
			if err != nil {
				return fmt.Errorf("element %s: %v", fields[0], err)
			}
			idx, ok := rd.nodeIndex[id]
			if !ok {
				return fmt.Errorf("element %s: unknown node %d", fields[0], id)
			}
			nodes[j] = idx
		}
		switch elemType {
		case gmshTriangle:
			rd.faces = append(rd.faces, nodes[0], nodes[1], nodes[2])
		case gmshQuadrangle:
			rd.faces = append(rd.faces,
				nodes[0], nodes[1], nodes[2],
				nodes[0], nodes[2], nodes[3])
		case gmshTetrahedron:
			rd.tets = append(rd.tets, nodes)
		}
	}
	return rd.expectEnd("Elements")
}

func (rd *gmshReader) surface() *mesh.Mesh {
	faces := rd.faces
	if len(faces) == 0 && len(rd.tets) > 0 {
		faces = exteriorFaces(rd.vertices, rd.tets)
	}
	if len(faces) == 0 {
		return &mesh.Mesh{}
	}
	return mesh.NewMesh(rd.vertices, faces)
}

// exteriorFaces returns the tetrahedron faces that belong to exactly one
// element, wound so their normals point out of the volume.
func exteriorFaces(vertices []float32, tets [][4]uint32) []uint32 {
	type face struct {
		tri   [3]uint32
		count int
	}
	var (
		seen  = make(map[[3]uint32]*face, 4*len(tets))
		order []*face
	)
	vertex := func(i uint32) [3]float32 {
		return [3]float32{vertices[3*i], vertices[3*i+1], vertices[3*i+2]}
	}
	for _, t := range tets {
		a, b, c, d := t[0], t[1], t[2], t[3]
		if orient(vertex(a), vertex(b), vertex(c), vertex(d)) < 0 {
			b, c = c, b
		}
		for _, tri := range [4][3]uint32{{a, c, b}, {a, b, d}, {b, c, d}, {a, d, c}} {
			key := tri
			sort.Slice(key[:], func(i, j int) bool { return key[i] < key[j] })
			f, ok := seen[key]
			if !ok {
				f = &face{tri: tri}
				seen[key] = f
				order = append(order, f)
			}
			f.count++
		}
	}
	out := make([]uint32, 0, 3*len(order))
	for _, f := range order {
		if f.count == 1 {
			out = append(out, f.tri[:]...)
		}
	}
	return out
}

// orient is six times the signed volume of the tetrahedron abcd.
func orient(a, b, c, d [3]float32) float32 {
	var u, v, w [3]float32
	for i := 0; i < 3; i++ {
		u[i], v[i], w[i] = b[i]-a[i], c[i]-a[i], d[i]-a[i]
	}
	return u[0]*(v[1]*w[2]-v[2]*w[1]) -
		u[1]*(v[0]*w[2]-v[2]*w[0]) +
		u[2]*(v[0]*w[1]-v[1]*w[0])
}
