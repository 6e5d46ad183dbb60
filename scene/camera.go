package scene

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/notargets/tetraview/mesh"
)

// Camera is a perspective camera that orbits its target.
type Camera struct {
	FovY   float32 // degrees
	Aspect float32
	Near   float32
	Far    float32
	Eye    mgl32.Vec3
	Target mgl32.Vec3
	Up     mgl32.Vec3
}

func NewCamera(fovY, aspect float32) Camera {
	return Camera{
		FovY:   fovY,
		Aspect: aspect,
		Near:   0.1,
		Far:    100,
		Eye:    mgl32.Vec3{0, 0, 5},
		Up:     mgl32.Vec3{0, 1, 0},
	}
}

// Fit moves the eye along its current viewing direction so that the sphere
// around box, grown by margin, fills the vertical field of view, and tightens
// the clip planes around it.
func (c *Camera) Fit(box mesh.BoundingBox, margin float32) {
	center := box.Center()
	c.Target = mgl32.Vec3{center[0], center[1], center[2]}
	radius := box.Radius() * margin
	if radius <= 0 {
		radius = 1
	}
	dir := c.Eye.Sub(c.Target)
	if dir.Len() == 0 {
		dir = mgl32.Vec3{0, 0, 1}
	}
	dist := radius / math32.Sin(mgl32.DegToRad(c.FovY)/2)
	c.Eye = c.Target.Add(dir.Normalize().Mul(dist))
	c.Near = math32.Max(dist-radius, dist*0.01)
	c.Far = dist + radius
}

func (c Camera) View() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye, c.Target, c.Up)
}

func (c Camera) Projection() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FovY), c.Aspect, c.Near, c.Far)
}

// Distance from eye to target.
func (c Camera) Distance() float32 {
	return c.Eye.Sub(c.Target).Len()
}
