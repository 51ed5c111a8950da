package reveal

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
)

// Apply maps a normalized time t in [0, 1] through the easing curve.
// Unknown kinds fall back to linear.
//
// Parameters:
//   - ease: the easing kind
//   - t: normalized time, clamped to [0, 1]
//
// Returns:
//   - float32: the eased progress
func Apply(ease config.Ease, t float32) float32 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	switch ease {
	case config.EaseInOut:
		if t < 0.5 {
			return 4 * t * t * t
		}
		u := -2*t + 2
		return 1 - u*u*u/2
	default:
		return t
	}
}
