package loader

import (
	"github.com/Carmen-Shannon/oxy-splat/common"
)

// Point is one decoded splat in the instance layout uploaded to the GPU.
type Point struct {
	Position common.Vec3
	Radius   float32
	Color    [4]float32
}

// PointStride is the byte size of a Point.
const PointStride = 32

// Cloud is a decoded splat file in its local coordinate space.
type Cloud struct {
	Name   string
	Points []Point
	Bounds common.Box
}

// newCloud builds a Cloud and computes its local bounds.
func newCloud(name string, points []Point) *Cloud {
	c := &Cloud{Name: name, Points: points}
	for _, p := range points {
		c.Bounds.ExpandPoint(p.Position)
	}
	return c
}
