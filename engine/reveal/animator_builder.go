package reveal

import (
	"log/slog"
	"time"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithFrameSource sets the source of animation frames, typically the engine's FrameClock.
//
// Parameters:
//   - frames: the frame source
//
// Returns:
//   - AnimatorBuilderOption: functional option to set the frame source
func WithFrameSource(frames FrameSource) AnimatorBuilderOption {
	return func(a *animator) {
		a.frames = frames
	}
}

// WithMinDuration overrides the sweep duration floor.
//
// Parameters:
//   - d: the shortest allowed sweep
//
// Returns:
//   - AnimatorBuilderOption: functional option to set the duration floor
func WithMinDuration(d time.Duration) AnimatorBuilderOption {
	return func(a *animator) {
		if d > 0 {
			a.minDuration = d
		}
	}
}

// WithLogger sets the logger used for cancelled sweeps.
//
// Parameters:
//   - logger: the logger to use
//
// Returns:
//   - AnimatorBuilderOption: functional option to set the logger
func WithLogger(logger *slog.Logger) AnimatorBuilderOption {
	return func(a *animator) {
		if logger != nil {
			a.logger = logger
		}
	}
}
