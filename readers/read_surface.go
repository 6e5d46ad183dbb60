package readers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/notargets/tetraview/mesh"
)

// LocalFormatError reports an unsupported or corrupt local surface file.
type LocalFormatError struct {
	Path   string
	Format string
	Err    error
}

func (e *LocalFormatError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("%s: %v", e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Path, e.Format, e.Err)
}

func (e *LocalFormatError) Unwrap() error { return e.Err }

var ErrUnsupportedFormat = errors.New("unsupported surface format")

// Extensions accepted by ReadSurfaceFile.
var Extensions = []string{".stl", ".ply", ".msh"}

// Options control how a surface file is read.
type Options struct {
	// Progress receives the percentage of the file consumed, 0 to 100,
	// non-decreasing. Sends block, so the caller must drain it; the channel
	// is not closed by the reader.
	Progress chan<- float64
	// Weld merges bit-identical positions of STL files into shared indexed
	// vertices. Without it STL surfaces are returned non-indexed.
	Weld bool
}

// ReadSurfaceFile reads an STL, PLY or Gmsh surface based on the file
// extension.
func ReadSurfaceFile(ctx context.Context, filename string, opts Options) (*mesh.Mesh, error) {
	var (
		ext  = strings.ToLower(filepath.Ext(filename))
		read func(r io.Reader, size int64, opts Options) (*mesh.Mesh, error)
	)
	switch ext {
	case ".stl":
		read = ReadSTL
	case ".ply":
		read = ReadPLY
	case ".msh":
		read = ReadGmsh
	default:
		return nil, &LocalFormatError{Path: filename, Err: fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)}
	}

	file, err := os.Open(filename)
	if err != nil {
		return nil, &LocalFormatError{Path: filename, Err: err}
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		return nil, &LocalFormatError{Path: filename, Err: err}
	}

	cr := newCountingReader(ctx, file, info.Size(), opts.Progress)
	msh, err := read(cr, info.Size(), opts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &LocalFormatError{Path: filename, Format: strings.TrimPrefix(ext, "."), Err: err}
	}
	if err = msh.Validate(); err != nil {
		return nil, &LocalFormatError{Path: filename, Format: strings.TrimPrefix(ext, "."), Err: err}
	}
	return msh, nil
}

// maxPrealloc bounds the capacity reserved from a record count taken from a
// file header; larger meshes grow by append.
const maxPrealloc = 1 << 20

// checkCount rejects a header record count that a stream of size bytes
// cannot hold when every record takes at least minRecord bytes. size <= 0
// means unknown.
func checkCount(what string, count int, size, minRecord int64) error {
	if size > 0 && int64(count) > size/minRecord {
		return fmt.Errorf("%s count %d exceeds what %d bytes can hold", what, count, size)
	}
	return nil
}

func capacityHint(count int) int { return min(count, maxPrealloc) }

// countingReader reports read progress as whole percentages and aborts once
// the context is done.
type countingReader struct {
	ctx      context.Context
	r        io.Reader
	size     int64
	read     int64
	last     int
	progress chan<- float64
}

func newCountingReader(ctx context.Context, r io.Reader, size int64, progress chan<- float64) *countingReader {
	return &countingReader{ctx: ctx, r: r, size: size, last: -1, progress: progress}
}

func (c *countingReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	n, err := c.r.Read(p)
	c.read += int64(n)
	if c.progress != nil && c.size > 0 {
		pct := int(100 * c.read / c.size)
		if pct > 100 {
			pct = 100
		}
		if pct > c.last {
			c.last = pct
			select {
			case c.progress <- float64(pct):
			case <-c.ctx.Done():
				return n, c.ctx.Err()
			}
		}
	}
	return n, err
}
