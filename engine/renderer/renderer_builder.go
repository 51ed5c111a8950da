package renderer

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/loader"
)

// RendererBuilderOption is a functional option applied to a renderer during construction via NewRenderer.
type RendererBuilderOption func(*renderer)

// WithLoader sets the loader used to decode splat sources. Defaults to a fresh loader.NewLoader.
//
// Parameters:
//   - l: the Loader to decode assets with
//
// Returns:
//   - RendererBuilderOption: a function that applies the loader option to a renderer
func WithLoader(l loader.Loader) RendererBuilderOption {
	return func(r *renderer) {
		r.loader = l
	}
}

// WithCamera sets the camera whose matrices are uploaded every frame.
//
// Parameters:
//   - c: the Camera to render through
//
// Returns:
//   - RendererBuilderOption: a function that applies the camera option to a renderer
func WithCamera(c camera.Camera) RendererBuilderOption {
	return func(r *renderer) {
		r.camera = c
	}
}

// WithPerPointReveal selects how reveal parameters are applied. When true (the default) each
// splat fades and grows with its own height relative to the reveal plane; when false the whole
// asset fades uniformly with the plane's progress through its bounds.
//
// Parameters:
//   - enabled: whether the reveal is evaluated per splat
//
// Returns:
//   - RendererBuilderOption: a function that applies the reveal mode option to a renderer
func WithPerPointReveal(enabled bool) RendererBuilderOption {
	return func(r *renderer) {
		r.perPointReveal = enabled
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) RendererBuilderOption {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithPresentMode sets the surface present mode which controls how frames are delivered to the display.
//
// Parameters:
//   - mode: the PresentMode to use (VSync or Uncapped)
//
// Returns:
//   - RendererBuilderOption: a function that applies the present mode option to a renderer
func WithPresentMode(mode PresentMode) RendererBuilderOption {
	return func(r *renderer) {
		r.presentMode = &mode
	}
}

// WithMSAA sets the multisample anti-aliasing sample count. Defaults to MSAA4x.
//
// Parameters:
//   - count: the MSAASampleCount to use
//
// Returns:
//   - RendererBuilderOption: a function that applies the MSAA option to a renderer
func WithMSAA(count MSAASampleCount) RendererBuilderOption {
	return func(r *renderer) {
		r.msaa = count
	}
}

// WithForceSoftwareRenderer requests the fallback (software) adapter, for machines without a usable GPU.
func WithForceSoftwareRenderer(force bool) RendererBuilderOption {
	return func(r *renderer) {
		r.forceFallbackAdapter = force
	}
}

// withBackendFactory replaces the GPU backend constructor. Used by tests.
func withBackendFactory(f backendFactory) RendererBuilderOption {
	return func(r *renderer) {
		r.newBackend = f
	}
}
