// Package splat defines the contract between the scene manager and a loaded splat asset.
package splat

import (
	"github.com/Carmen-Shannon/oxy-splat/common"
)

// RevealParams is the instantaneous reveal state applied to a rendered asset.
// When Enabled is false the asset is drawn fully shown regardless of RevealY.
type RevealParams struct {
	Enabled     bool
	RevealY     float32
	Band        float32
	AffectAlpha bool
	AffectSize  bool
}

// Shown returns the fully revealed parameters for the given bounds.
//
// Parameters:
//   - bounds: the asset's world-space vertical bounds
//
// Returns:
//   - RevealParams: disabled reveal with the plane parked at MaxY
func Shown(bounds common.VerticalBounds) RevealParams {
	return RevealParams{Enabled: false, RevealY: bounds.MaxY}
}

// Handle is an opaque reference to one loaded splat asset. It is created by the renderer and
// owned by the scene manager until disposed.
type Handle interface {
	// ID returns the asset id. It is stable for the lifetime of the handle.
	//
	// Returns:
	//   - string: the asset id
	ID() string

	// Bounds returns the asset's world-space vertical extent.
	//
	// Returns:
	//   - common.VerticalBounds: the sweep range for reveal animations
	Bounds() common.VerticalBounds

	// SetRevealBounds updates the vertical extent used for ramp math without restarting
	// an animation.
	//
	// Parameters:
	//   - bounds: the new vertical extent
	SetRevealBounds(bounds common.VerticalBounds)

	// SetRevealParams applies the instantaneous reveal state to the rendered asset.
	//
	// Parameters:
	//   - params: the reveal state to apply
	SetRevealParams(params RevealParams)

	// Dispose releases any rendering state tied to this handle. Calling Dispose more than once is a no-op.
	Dispose()
}
