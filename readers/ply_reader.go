package readers

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"github.com/notargets/tetraview/mesh"
)

type plyFormat int

const (
	plyASCII plyFormat = iota
	plyBinaryLE
	plyBinaryBE
)

type plyProperty struct {
	Name      string
	Type      string // scalar type, or the item type of a list
	CountType string // non-empty for list properties
}

type plyElement struct {
	Name       string
	Count      int
	Properties []plyProperty
}

type plyHeader struct {
	Format   plyFormat
	Elements []*plyElement
}

var plyTypeSizes = map[string]int{
	"char": 1, "int8": 1, "uchar": 1, "uint8": 1,
	"short": 2, "int16": 2, "ushort": 2, "uint16": 2,
	"int": 4, "int32": 4, "uint": 4, "uint32": 4,
	"float": 4, "float32": 4, "double": 8, "float64": 8,
}

// ReadPLY reads the vertex positions and faces of a PLY surface in ASCII or
// binary encoding. Polygons with more than three corners are fan
// triangulated. Elements other than vertex and face are skipped.
func ReadPLY(r io.Reader, size int64, _ Options) (*mesh.Mesh, error) {
	br := bufio.NewReader(r)
	hdr, err := readPLYHeader(br)
	if err != nil {
		return nil, err
	}

	var (
		msh = &mesh.Mesh{}
		rd  plyValueReader
	)
	switch hdr.Format {
	case plyASCII:
		rd = newPLYASCIIReader(br)
	case plyBinaryLE:
		rd = &plyBinaryReader{r: br, order: binary.LittleEndian}
	case plyBinaryBE:
		rd = &plyBinaryReader{r: br, order: binary.BigEndian}
	}

	for _, el := range hdr.Elements {
		// every property takes at least one byte per record
		if len(el.Properties) > 0 {
			if err = checkCount(el.Name, el.Count, size, int64(len(el.Properties))); err != nil {
				return nil, err
			}
		}
		switch el.Name {
		case "vertex":
			if err = readPLYVertices(rd, el, msh); err != nil {
				return nil, err
			}
		case "face":
			if err = readPLYFaces(rd, el, msh); err != nil {
				return nil, err
			}
		default:
			if err = skipPLYElement(rd, el); err != nil {
				return nil, err
			}
		}
	}
	return msh, nil
}

func readPLYHeader(br *bufio.Reader) (*plyHeader, error) {
	var (
		hdr     = &plyHeader{Format: -1}
		current *plyElement
		lineNo  int
	)
	for {
		line, err := br.ReadString('\n')
		if err != nil && line == "" {
			return nil, fmt.Errorf("unexpected EOF in header")
		}
		lineNo++
		line = strings.TrimSpace(line)
		if lineNo == 1 {
			if line != "ply" {
				return nil, fmt.Errorf("missing ply magic")
			}
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "format":
			if len(fields) < 2 {
				return nil, fmt.Errorf("header line %d: incomplete format", lineNo)
			}
			switch fields[1] {
			case "ascii":
				hdr.Format = plyASCII
			case "binary_little_endian":
				hdr.Format = plyBinaryLE
			case "binary_big_endian":
				hdr.Format = plyBinaryBE
			default:
				return nil, fmt.Errorf("header line %d: unknown format %q", lineNo, fields[1])
			}
		case "comment", "obj_info":
		case "element":
			if len(fields) != 3 {
				return nil, fmt.Errorf("header line %d: malformed element", lineNo)
			}
			count, err := strconv.Atoi(fields[2])
			if err != nil || count < 0 {
				return nil, fmt.Errorf("header line %d: invalid element count %q", lineNo, fields[2])
			}
			current = &plyElement{Name: fields[1], Count: count}
			hdr.Elements = append(hdr.Elements, current)
		case "property":
			if current == nil {
				return nil, fmt.Errorf("header line %d: property before element", lineNo)
			}
			var prop plyProperty
			if len(fields) == 5 && fields[1] == "list" {
				prop = plyProperty{CountType: fields[2], Type: fields[3], Name: fields[4]}
				if _, ok := plyTypeSizes[prop.CountType]; !ok {
					return nil, fmt.Errorf("header line %d: unknown type %q", lineNo, prop.CountType)
				}
			} else if len(fields) == 3 {
				prop = plyProperty{Type: fields[1], Name: fields[2]}
			} else {
				return nil, fmt.Errorf("header line %d: malformed property", lineNo)
			}
			if _, ok := plyTypeSizes[prop.Type]; !ok {
				return nil, fmt.Errorf("header line %d: unknown type %q", lineNo, prop.Type)
			}
			current.Properties = append(current.Properties, prop)
		case "end_header":
			if hdr.Format < 0 {
				return nil, fmt.Errorf("header has no format line")
			}
			return hdr, nil
		default:
			return nil, fmt.Errorf("header line %d: unexpected keyword %q", lineNo, fields[0])
		}
	}
}

func readPLYVertices(rd plyValueReader, el *plyElement, msh *mesh.Mesh) error {
	axis := map[string]int{"x": 0, "y": 1, "z": 2}
	found := 0
	for _, p := range el.Properties {
		if _, ok := axis[p.Name]; ok && p.CountType == "" {
			found++
		}
	}
	if found != 3 {
		return fmt.Errorf("vertex element lacks scalar x, y and z properties")
	}
	msh.Vertices = make([]float32, 0, 3*capacityHint(el.Count))
	for i := 0; i < el.Count; i++ {
		var xyz [3]float32
		for _, p := range el.Properties {
			if p.CountType != "" {
				if err := skipPLYList(rd, p); err != nil {
					return fmt.Errorf("vertex %d: %w", i, err)
				}
				continue
			}
			v, err := rd.Value(p.Type)
			if err != nil {
				return fmt.Errorf("vertex %d: %w", i, err)
			}
			if c, ok := axis[p.Name]; ok {
				xyz[c] = float32(v)
			}
		}
		msh.Vertices = append(msh.Vertices, xyz[:]...)
		rd.EndRecord()
	}
	return nil
}

func readPLYFaces(rd plyValueReader, el *plyElement, msh *mesh.Mesh) error {
	msh.Faces = make([]uint32, 0, 3*capacityHint(el.Count))
	poly := make([]uint32, 0, 4)
	for i := 0; i < el.Count; i++ {
		for _, p := range el.Properties {
			if p.CountType == "" {
				if _, err := rd.Value(p.Type); err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				continue
			}
			if p.Name != "vertex_indices" && p.Name != "vertex_index" {
				if err := skipPLYList(rd, p); err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				continue
			}
			n, err := rd.Value(p.CountType)
			if err != nil {
				return fmt.Errorf("face %d: %w", i, err)
			}
			if n < 3 {
				return fmt.Errorf("face %d: polygon with %d corners", i, int(n))
			}
			poly = poly[:0]
			for k := 0; k < int(n); k++ {
				idx, err := rd.Value(p.Type)
				if err != nil {
					return fmt.Errorf("face %d: %w", i, err)
				}
				if idx < 0 {
					return fmt.Errorf("face %d: negative index %d", i, int64(idx))
				}
				poly = append(poly, uint32(idx))
			}
			for k := 1; k+1 < len(poly); k++ {
				msh.Faces = append(msh.Faces, poly[0], poly[k], poly[k+1])
			}
		}
		rd.EndRecord()
	}
	return nil
}

func skipPLYList(rd plyValueReader, p plyProperty) error {
	n, err := rd.Value(p.CountType)
	if err != nil {
		return err
	}
	for k := 0; k < int(n); k++ {
		if _, err = rd.Value(p.Type); err != nil {
			return err
		}
	}
	return nil
}

func skipPLYElement(rd plyValueReader, el *plyElement) error {
	for i := 0; i < el.Count; i++ {
		for _, p := range el.Properties {
			var err error
			if p.CountType != "" {
				err = skipPLYList(rd, p)
			} else {
				_, err = rd.Value(p.Type)
			}
			if err != nil {
				return fmt.Errorf("%s %d: %w", el.Name, i, err)
			}
		}
		rd.EndRecord()
	}
	return nil
}

// plyValueReader yields the body values one at a time, converted to float64.
type plyValueReader interface {
	Value(typ string) (float64, error)
	EndRecord()
}

type plyASCIIReader struct {
	scanner *bufio.Scanner
	fields  []string
}

func newPLYASCIIReader(r io.Reader) *plyASCIIReader {
	s := bufio.NewScanner(r)
	s.Buffer(make([]byte, 64*1024), 1024*1024)
	return &plyASCIIReader{scanner: s}
}

func (a *plyASCIIReader) Value(_ string) (float64, error) {
	for len(a.fields) == 0 {
		if !a.scanner.Scan() {
			if err := a.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, io.ErrUnexpectedEOF
		}
		a.fields = strings.Fields(a.scanner.Text())
	}
	tok := a.fields[0]
	a.fields = a.fields[1:]
	v, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid value %q", tok)
	}
	return v, nil
}

// EndRecord drops what is left of the current line; ASCII records are one
// per line.
func (a *plyASCIIReader) EndRecord() { a.fields = nil }

type plyBinaryReader struct {
	r     io.Reader
	order binary.ByteOrder
	buf   [8]byte
}

func (b *plyBinaryReader) Value(typ string) (float64, error) {
	size := plyTypeSizes[typ]
	if _, err := io.ReadFull(b.r, b.buf[:size]); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return 0, err
	}
	p := b.buf[:size]
	switch typ {
	case "char", "int8":
		return float64(int8(p[0])), nil
	case "uchar", "uint8":
		return float64(p[0]), nil
	case "short", "int16":
		return float64(int16(b.order.Uint16(p))), nil
	case "ushort", "uint16":
		return float64(b.order.Uint16(p)), nil
	case "int", "int32":
		return float64(int32(b.order.Uint32(p))), nil
	case "uint", "uint32":
		return float64(b.order.Uint32(p)), nil
	case "float", "float32":
		return float64(math.Float32frombits(b.order.Uint32(p))), nil
	default: // double
		return math.Float64frombits(b.order.Uint64(p)), nil
	}
}

func (b *plyBinaryReader) EndRecord() {}
