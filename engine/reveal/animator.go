// Package reveal animates the reveal plane of a splat asset across its vertical bounds.
package reveal

import (
	"context"
	"log/slog"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

// MinDuration is the shortest sweep the animator will run.
const MinDuration = 100 * time.Millisecond

type animator struct {
	frames      FrameSource
	minDuration time.Duration
	logger      *slog.Logger
}

// Animator sweeps a reveal plane through an asset's bounds. It holds no state across calls;
// callers that need to discard a superseded animation do so themselves.
type Animator interface {
	// RevealIn sweeps the plane bottom to top. A disabled policy applies the fully shown state
	// immediately without waiting for a frame.
	//
	// Parameters:
	//   - ctx: cancels the sweep between frames
	//   - h: the handle to animate
	//   - bounds: the sweep range
	//   - policy: duration, easing, band and padding of the sweep
	//
	// Returns:
	//   - error: ctx.Err() if the sweep was cancelled, nil once the final frame is applied
	RevealIn(ctx context.Context, h splat.Handle, bounds common.VerticalBounds, policy config.RevealPolicy) error

	// RevealOut sweeps the plane top to bottom. A disabled policy applies the fully shown state
	// immediately and leaves hiding the asset to the caller.
	//
	// Parameters:
	//   - ctx: cancels the sweep between frames
	//   - h: the handle to animate
	//   - bounds: the sweep range
	//   - policy: duration, easing, band and padding of the sweep
	//
	// Returns:
	//   - error: ctx.Err() if the sweep was cancelled, nil once the final frame is applied
	RevealOut(ctx context.Context, h splat.Handle, bounds common.VerticalBounds, policy config.RevealPolicy) error
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator. Without WithFrameSource the animator steps a
// 60 Hz clock of its own.
//
// Parameters:
//   - options: functional options to configure the animator
//
// Returns:
//   - Animator: the new animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		minDuration: MinDuration,
		logger:      slog.Default(),
	}
	for _, opt := range options {
		opt(a)
	}
	if a.frames == nil {
		a.frames = newTickerFrames(time.Second / 60)
	}
	return a
}

// StartY returns the plane height at which a reveal-in begins, where assets are parked before
// they are shown.
//
// Parameters:
//   - bounds: the sweep range
//   - policy: the reveal policy supplying StartPadding
//
// Returns:
//   - float32: MinY + StartPadding of the normalized bounds
func StartY(bounds common.VerticalBounds, policy config.RevealPolicy) float32 {
	b := bounds.Normalized()
	return b.MinY + policy.StartPadding
}

// EndY returns the plane height at which a reveal-in finishes.
//
// Parameters:
//   - bounds: the sweep range
//   - policy: the reveal policy supplying EndPadding
//
// Returns:
//   - float32: MaxY + EndPadding of the normalized bounds
func EndY(bounds common.VerticalBounds, policy config.RevealPolicy) float32 {
	b := bounds.Normalized()
	return b.MaxY + policy.EndPadding
}

// Parked returns reveal parameters with the plane at the start of the sweep, so the asset is
// fully hidden until a reveal-in runs. A disabled policy yields the fully shown state.
//
// Parameters:
//   - bounds: the sweep range
//   - policy: the reveal policy
//
// Returns:
//   - splat.RevealParams: the parked parameters
func Parked(bounds common.VerticalBounds, policy config.RevealPolicy) splat.RevealParams {
	if !policy.Enabled {
		return splat.Shown(bounds)
	}
	return frameParams(StartY(bounds, policy), policy)
}

func (a *animator) RevealIn(ctx context.Context, h splat.Handle, bounds common.VerticalBounds, policy config.RevealPolicy) error {
	if !policy.Enabled {
		h.SetRevealParams(splat.Shown(bounds))
		return nil
	}
	return a.sweep(ctx, h, StartY(bounds, policy), EndY(bounds, policy), policy)
}

func (a *animator) RevealOut(ctx context.Context, h splat.Handle, bounds common.VerticalBounds, policy config.RevealPolicy) error {
	if !policy.Enabled {
		h.SetRevealParams(splat.Shown(bounds))
		return nil
	}
	return a.sweep(ctx, h, EndY(bounds, policy), StartY(bounds, policy), policy)
}

func (a *animator) sweep(ctx context.Context, h splat.Handle, from, to float32, policy config.RevealPolicy) error {
	duration := max(time.Duration(policy.DurationMs)*time.Millisecond, a.minDuration)

	start, err := a.frames.NextFrame(ctx)
	if err != nil {
		return err
	}
	now := start
	for {
		t := common.Clamp(float32(now.Sub(start))/float32(duration), 0, 1)
		y := common.Lerp(from, to, Apply(policy.Ease, t))
		if t >= 1 {
			y = to
		}
		h.SetRevealParams(frameParams(y, policy))
		if t >= 1 {
			return nil
		}

		now, err = a.frames.NextFrame(ctx)
		if err != nil {
			a.logger.Debug("reveal sweep cancelled", "asset", h.ID(), "error", err)
			return err
		}
	}
}

func frameParams(y float32, policy config.RevealPolicy) splat.RevealParams {
	return splat.RevealParams{
		Enabled:     true,
		RevealY:     y,
		Band:        policy.Band,
		AffectAlpha: policy.AffectAlpha,
		AffectSize:  policy.AffectSize,
	}
}

// tickerFrames paces frames with a wall-clock ticker when no render loop drives the animator.
type tickerFrames struct {
	interval time.Duration
}

func newTickerFrames(interval time.Duration) *tickerFrames {
	return &tickerFrames{interval: interval}
}

func (f *tickerFrames) NextFrame(ctx context.Context) (time.Time, error) {
	timer := time.NewTimer(f.interval)
	defer timer.Stop()
	select {
	case now := <-timer.C:
		return now, nil
	case <-ctx.Done():
		return time.Time{}, ctx.Err()
	}
}
