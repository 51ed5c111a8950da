package camera

import "github.com/Carmen-Shannon/oxy-splat/common"

// CameraController owns the positional state of the camera: a pivot target and the spherical
// offset (radius, azimuth, elevation) of the eye around it. The camera reads the controller
// every Update and derives its matrices from it.
type CameraController interface {
	// Position returns the eye position in world space.
	//
	// Returns:
	//   - common.Vec3: world-space eye position
	Position() common.Vec3

	// Target returns the orbit pivot.
	//
	// Returns:
	//   - common.Vec3: world-space pivot
	Target() common.Vec3

	// Frame places the pivot at center and the eye at distance from it, widening the radius
	// bounds when distance falls outside them. The framed pose becomes the Home pose.
	//
	// Parameters:
	//   - center: world-space pivot
	//   - distance: orbit radius
	Frame(center common.Vec3, distance float32)

	// Home restores the pose recorded by the last Frame call.
	Home()

	// Zoom moves the eye toward (positive) or away from (negative) the pivot.
	//
	// Parameters:
	//   - delta: zoom amount, scaled by the zoom speed and the current radius
	Zoom(delta float32)

	// OrbitLeft rotates the eye one step left around the pivot.
	OrbitLeft()

	// OrbitRight rotates the eye one step right around the pivot.
	OrbitRight()

	// OrbitUp tilts the eye one step up, clamped to the maximum elevation.
	OrbitUp()

	// OrbitDown tilts the eye one step down, clamped to the minimum elevation.
	OrbitDown()

	// Radius returns the current orbit radius.
	Radius() float32

	// Azimuth returns the horizontal angle in radians.
	Azimuth() float32

	// SetAzimuth sets the horizontal angle in radians.
	SetAzimuth(azimuth float32)

	// Elevation returns the vertical angle in radians.
	Elevation() float32

	// SetElevation sets the vertical angle in radians, clamped to the elevation bounds.
	SetElevation(elevation float32)

	// PanRight shifts eye and pivot along the camera's local right axis.
	//
	// Parameters:
	//   - delta: pan amount, scaled by the pan speed and the current radius
	PanRight(delta float32)

	// PanUp shifts eye and pivot along the camera's local up axis.
	//
	// Parameters:
	//   - delta: pan amount, scaled by the pan speed and the current radius
	PanUp(delta float32)
}
