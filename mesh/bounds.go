package mesh

import "github.com/chewxy/math32"

// BoundingBox is an axis aligned box.
type BoundingBox struct {
	Min, Max [3]float32
}

func (b BoundingBox) Center() [3]float32 {
	return [3]float32{
		0.5 * (b.Min[0] + b.Max[0]),
		0.5 * (b.Min[1] + b.Max[1]),
		0.5 * (b.Min[2] + b.Max[2]),
	}
}

func (b BoundingBox) Size() [3]float32 {
	return [3]float32{b.Max[0] - b.Min[0], b.Max[1] - b.Min[1], b.Max[2] - b.Min[2]}
}

// Radius is the radius of the sphere enclosing the box.
func (b BoundingBox) Radius() float32 {
	s := b.Size()
	return 0.5 * math32.Sqrt(s[0]*s[0]+s[1]*s[1]+s[2]*s[2])
}

// Contains reports whether p lies inside the closed box.
func (b BoundingBox) Contains(p [3]float32) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}
