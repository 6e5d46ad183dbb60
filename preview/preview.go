// Package preview draws the installed scene in a desktop chart window. The
// mesh is projected through the scene camera and drawn as a 2D triangle
// mesh with the edge overlay on top.
package preview

import (
	"context"
	"errors"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/notargets/avs/chart2d"
	"github.com/notargets/avs/geometry"
	utils2 "github.com/notargets/avs/utils"

	"github.com/notargets/tetraview/scene"
)

var ErrNothingToShow = errors.New("preview: scene is empty")

// Project maps the snapshot through its camera into normalized device
// coordinates. Only x and y are kept. Hidden meshes project to nothing.
func Project(s scene.Snapshot) (gm geometry.TriMesh, edges []float32) {
	if s.State != scene.Populated || !s.Visible {
		return
	}
	var (
		mvp = s.Camera.Projection().Mul4(s.Camera.View())
		nv  = len(s.Positions) / 3
	)
	gm.XY = make([]float32, 2*nv)
	for i := 0; i < nv; i++ {
		x, y := project(mvp, s.Positions[3*i:3*i+3])
		gm.XY[2*i], gm.XY[2*i+1] = x, y
	}
	if s.Indices != nil {
		gm.TriVerts = make([][3]int64, len(s.Indices)/3)
		for k := range gm.TriVerts {
			for n := 0; n < 3; n++ {
				gm.TriVerts[k][n] = int64(s.Indices[3*k+n])
			}
		}
	} else {
		gm.TriVerts = make([][3]int64, nv/3)
		for k := range gm.TriVerts {
			gm.TriVerts[k] = [3]int64{int64(3 * k), int64(3*k + 1), int64(3*k + 2)}
		}
	}
	if !s.EdgesVisible {
		return
	}
	edges = make([]float32, 0, 2*len(s.Edges)/3)
	for i := 0; i+6 <= len(s.Edges); i += 6 {
		x1, y1 := project(mvp, s.Edges[i:i+3])
		x2, y2 := project(mvp, s.Edges[i+3:i+6])
		edges = append(edges, x1, y1, x2, y2)
	}
	return
}

func project(mvp mgl32.Mat4, p []float32) (x, y float32) {
	c := mvp.Mul4x1(mgl32.Vec4{p[0], p[1], p[2], 1})
	if c[3] == 0 {
		return c[0], c[1]
	}
	return c[0] / c[3], c[1] / c[3]
}

// extent is the bounding box of the interleaved x,y pairs. With square set
// the shorter side grows about the center to match the longer one, so the
// chart keeps the aspect ratio of the projection.
func extent(xy []float32, square bool) (xMin, xMax, yMin, yMax float32) {
	for i := 0; i+1 < len(xy); i += 2 {
		x, y := xy[i], xy[i+1]
		if i == 0 {
			xMin, xMax, yMin, yMax = x, x, y, y
			continue
		}
		xMin, xMax = min(xMin, x), max(xMax, x)
		yMin, yMax = min(yMin, y), max(yMax, y)
	}
	if square {
		half := max(xMax-xMin, yMax-yMin) / 2
		cx, cy := (xMin+xMax)/2, (yMin+yMax)/2
		xMin, xMax, yMin, yMax = cx-half, cx+half, cy-half, cy+half
	}
	return
}

// Show opens a chart window with the projected scene and keeps it up until
// ctx is done.
func Show(ctx context.Context, s scene.Snapshot, width, height int) error {
	gm, edges := Project(s)
	if len(gm.TriVerts) == 0 {
		return ErrNothingToShow
	}
	xMin, xMax, yMin, yMax := extent(gm.XY, true)
	const pad = 1.1
	xMin, xMax, yMin, yMax = xMin*pad, xMax*pad, yMin*pad, yMax*pad
	ch := chart2d.NewChart2D(xMin, xMax, yMin, yMax,
		width, height, utils2.WHITE, utils2.BLACK)
	ch.AddTriMesh(gm)
	if len(edges) > 0 {
		ch.AddLine(edges, utils2.RED)
	}
	<-ctx.Done()
	return nil
}
