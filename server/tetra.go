package server

import (
	"context"
	"fmt"

	"github.com/notargets/tetraview/demo"
	"github.com/notargets/tetraview/mesh"
	"github.com/notargets/tetraview/transport"
	"github.com/notargets/tetraview/wire"
)

// Tetrahedralizer turns a closed surface into the exploded surface of its
// volume mesh.
type Tetrahedralizer interface {
	Tetrahedralize(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error)
}

// Relay forwards meshes to an upstream tetrahedralization service.
type Relay struct {
	Client *transport.Client
}

func (r Relay) Tetrahedralize(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
	payload, err := wire.Encode(m)
	if err != nil {
		return nil, err
	}
	reply, err := r.Client.Send(ctx, payload, nil)
	if err != nil {
		return nil, err
	}
	out, err := wire.Decode(reply)
	if err != nil {
		return nil, fmt.Errorf("upstream reply: %w", err)
	}
	if err = out.Validate(); err != nil {
		return nil, fmt.Errorf("upstream reply: %w", err)
	}
	return out, nil
}

// Exploded stands in for the service when no upstream is configured: it
// returns the input surface with unshared vertices.
type Exploded struct{}

func (Exploded) Tetrahedralize(ctx context.Context, m *mesh.Mesh) (*mesh.Mesh, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return demo.Explode(m), nil
}
