package pipeline

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notargets/tetraview/mesh"
)

func TestWatchRerunsOnWrite(t *testing.T) {
	f := newFixture(t, tetrahedralizer(t))
	path := asciiSTL(t, mesh.Tetrahedron())
	cube := asciiSTL(t, mesh.UnitCube())

	results := make(chan Result, 4)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- f.pipe.Watch(ctx, path, 20*time.Millisecond, func(res Result, err error) {
			assert.NoError(t, err)
			results <- res
		})
	}()

	first := receive(t, results)
	assert.Equal(t, 4, first.LocalTriangles)

	data, err := os.ReadFile(cube)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	second := receive(t, results)
	assert.Equal(t, 12, second.LocalTriangles)
	assert.NotEqual(t, first.Generation, second.Generation)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop")
	}
	assert.Equal(t, 1, f.scene.Stats().LiveGenerations)
}

func TestWatchMissingDirectory(t *testing.T) {
	f := newFixture(t, tetrahedralizer(t))
	err := f.pipe.Watch(context.Background(), "/nonexistent/dir/part.stl", 0, nil)
	assert.Error(t, err)
}

func receive(t *testing.T, c <-chan Result) Result {
	t.Helper()
	select {
	case r := <-c:
		return r
	case <-time.After(5 * time.Second):
		t.Fatal("no result")
	}
	return Result{}
}
