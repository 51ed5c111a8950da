// package common contains common types that are used throughout the viewer. They are not interface-wrapped structs, just plain structs that express
// commonly used data-types.
package common

import (
	"github.com/chewxy/math32"
)

// MinRevealRange is the smallest vertical extent used for reveal math. Degenerate (flat or
// inverted) bounds are widened to this range so ramp calculations never divide by zero.
const MinRevealRange float32 = 1e-3

// Vec3 is a plain three component float32 vector.
type Vec3 [3]float32

// Add returns the component-wise sum of v and o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v[0] + o[0], v[1] + o[1], v[2] + o[2]}
}

// Sub returns the component-wise difference v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v[0] - o[0], v[1] - o[1], v[2] - o[2]}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float32) Vec3 {
	return Vec3{v[0] * s, v[1] * s, v[2] * s}
}

// Length returns the euclidean length of v.
func (v Vec3) Length() float32 {
	return math32.Sqrt(v[0]*v[0] + v[1]*v[1] + v[2]*v[2])
}

// VerticalBounds describes the world-space vertical extent of an asset. It is the sweep range
// for reveal animations.
type VerticalBounds struct {
	MinY float32
	MaxY float32
}

// Height returns MaxY - MinY.
func (b VerticalBounds) Height() float32 {
	return b.MaxY - b.MinY
}

// Normalized returns a copy of the bounds whose height is at least MinRevealRange.
// Inverted bounds are swapped before widening.
//
// Returns:
//   - VerticalBounds: bounds that are safe to use as a ramp denominator
func (b VerticalBounds) Normalized() VerticalBounds {
	if b.MaxY < b.MinY {
		b.MinY, b.MaxY = b.MaxY, b.MinY
	}
	if b.MaxY-b.MinY < MinRevealRange {
		b.MaxY = b.MinY + MinRevealRange
	}
	return b
}

// Box is an axis-aligned bounding box in world space. The zero value is an empty box.
type Box struct {
	Min   Vec3
	Max   Vec3
	valid bool
}

// NewBox creates a box spanning the two corner points.
//
// Parameters:
//   - a: first corner
//   - b: opposite corner
//
// Returns:
//   - Box: the box containing both points
func NewBox(a, b Vec3) Box {
	box := Box{}
	box.ExpandPoint(a)
	box.ExpandPoint(b)
	return box
}

// Empty reports whether the box has not been expanded by any point.
func (b *Box) Empty() bool {
	return !b.valid
}

// ExpandPoint grows the box to include p.
//
// Parameters:
//   - p: the point to include
func (b *Box) ExpandPoint(p Vec3) {
	if !b.valid {
		b.Min, b.Max, b.valid = p, p, true
		return
	}
	for i := range 3 {
		b.Min[i] = math32.Min(b.Min[i], p[i])
		b.Max[i] = math32.Max(b.Max[i], p[i])
	}
}

// Union grows the box to include o. Empty boxes are ignored.
//
// Parameters:
//   - o: the box to merge in
func (b *Box) Union(o Box) {
	if !o.valid {
		return
	}
	b.ExpandPoint(o.Min)
	b.ExpandPoint(o.Max)
}

// Corners returns the eight corner points of the box.
func (b *Box) Corners() [8]Vec3 {
	var out [8]Vec3
	for i := range 8 {
		for axis := range 3 {
			if i&(1<<axis) != 0 {
				out[i][axis] = b.Max[axis]
			} else {
				out[i][axis] = b.Min[axis]
			}
		}
	}
	return out
}

// Vertical returns the box's Y extent.
func (b *Box) Vertical() VerticalBounds {
	return VerticalBounds{MinY: b.Min[1], MaxY: b.Max[1]}
}

// FitData describes the framing target for the camera: the center of everything visible,
// its size along each axis, and the radius of its bounding sphere.
type FitData struct {
	Center Vec3
	Size   Vec3
	Radius float32
}

// FitFromBox derives FitData from a bounding box.
//
// Parameters:
//   - b: the box to frame
//
// Returns:
//   - FitData: the framing data, or the zero value if the box is empty
func FitFromBox(b Box) FitData {
	if b.Empty() {
		return FitData{}
	}
	size := b.Max.Sub(b.Min)
	return FitData{
		Center: b.Min.Add(size.Scale(0.5)),
		Size:   size,
		Radius: size.Length() * 0.5,
	}
}

// Transform is the position, Euler rotation (radians) and scale of an asset in world space.
type Transform struct {
	Position Vec3 `json:"position" yaml:"position" toml:"position"`
	Rotation Vec3 `json:"rotation" yaml:"rotation" toml:"rotation"`
	Scale    Vec3 `json:"scale" yaml:"scale" toml:"scale"`
}

// IdentityTransform returns a transform at the origin with unit scale.
func IdentityTransform() Transform {
	return Transform{Scale: Vec3{1, 1, 1}}
}

// Matrix builds the column-major model matrix for the transform.
//
// Returns:
//   - [16]float32: the model matrix
func (t Transform) Matrix() [16]float32 {
	var m [16]float32
	BuildModelMatrix(m[:],
		t.Position[0], t.Position[1], t.Position[2],
		t.Rotation[0], t.Rotation[1], t.Rotation[2],
		t.Scale[0], t.Scale[1], t.Scale[2],
	)
	return m
}
