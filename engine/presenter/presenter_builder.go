package presenter

import (
	"log/slog"
	"slices"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
)

// PresenterBuilderOption is a functional option for configuring a Presenter via NewPresenter.
type PresenterBuilderOption func(*presenter)

// WithCamera sets the camera that input moves and scene framing targets.
//
// Parameters:
//   - c: the camera, normally the one the renderer draws with
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithCamera(c camera.Camera) PresenterBuilderOption {
	return func(p *presenter) {
		p.camera = c
	}
}

// WithFitSource sets where framing bounds come from.
//
// Parameters:
//   - f: the fit source, normally the renderer
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithFitSource(f FitSource) PresenterBuilderOption {
	return func(p *presenter) {
		p.fit = f
	}
}

// WithTitleSetter sets where status titles are written.
//
// Parameters:
//   - t: the title sink, normally the window
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithTitleSetter(t TitleSetter) PresenterBuilderOption {
	return func(p *presenter) {
		p.title = t
	}
}

// WithAppName sets the prefix of every title. Defaults to "oxy-splat".
func WithAppName(name string) PresenterBuilderOption {
	return func(p *presenter) {
		p.appName = name
	}
}

// WithScenes sets the scene ids that [ and ] cycle through, in order.
//
// Parameters:
//   - ids: the scene ids
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithScenes(ids ...string) PresenterBuilderOption {
	return func(p *presenter) {
		p.sceneIDs = slices.Clone(ids)
	}
}

// WithDragSensitivity sets radians of orbit and pan units per dragged pixel.
//
// Parameters:
//   - orbit: orbit radians per pixel
//   - pan: pan distance per pixel, scaled by the controller's pan speed
//
// Returns:
//   - PresenterBuilderOption: option function to apply
func WithDragSensitivity(orbit, pan float32) PresenterBuilderOption {
	return func(p *presenter) {
		if orbit > 0 {
			p.orbitSensitivity = orbit
		}
		if pan > 0 {
			p.panSensitivity = pan
		}
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) PresenterBuilderOption {
	return func(p *presenter) {
		if logger != nil {
			p.logger = logger
		}
	}
}
