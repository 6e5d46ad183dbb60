package server

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/notargets/tetraview/demo"
	"github.com/notargets/tetraview/wire"
)

// DemoSource supplies the payload served by the demo endpoint.
type DemoSource interface {
	DemoPayload(ctx context.Context) ([]byte, error)
}

// StoredDemo is a payload loaded from disk.
type StoredDemo []byte

// LoadDemo reads a stored payload and checks that it decodes to a valid
// mesh, so a bad file fails at startup rather than in the browser.
func LoadDemo(path string) (StoredDemo, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	m, err := wire.Decode(buf)
	if err != nil {
		return nil, fmt.Errorf("demo payload %s: %w", path, err)
	}
	if err = m.Validate(); err != nil {
		return nil, fmt.Errorf("demo payload %s: %w", path, err)
	}
	return StoredDemo(buf), nil
}

func (d StoredDemo) DemoPayload(context.Context) ([]byte, error) { return d, nil }

// GeneratedDemo builds the exploded cube on first use and serves the same
// bytes afterwards.
type GeneratedDemo struct {
	Divisions int
	Shrink    float32

	once    sync.Once
	payload []byte
	err     error
}

func (g *GeneratedDemo) DemoPayload(context.Context) ([]byte, error) {
	g.once.Do(func() {
		div, shrink := g.Divisions, g.Shrink
		if div == 0 {
			div = demo.DefaultDivisions
		}
		if shrink == 0 {
			shrink = demo.DefaultShrink
		}
		g.payload, g.err = demo.Payload(div, shrink)
	})
	return g.payload, g.err
}
