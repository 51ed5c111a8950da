package scene

import (
	"log/slog"

	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/reveal"
)

// ToggleMode selects how visibility toggles interact.
type ToggleMode int

const (
	// ToggleIndependent lets any number of items be visible; a toggle animates only its target.
	ToggleIndependent ToggleMode = iota

	// ToggleExclusive keeps at most one item active; activating an item retires the previous one.
	ToggleExclusive
)

func (m ToggleMode) String() string {
	if m == ToggleExclusive {
		return "exclusive"
	}
	return "independent"
}

// LoadPolicy selects how eagerly a scene's assets are loaded.
type LoadPolicy int

const (
	// LoadAll loads every asset in one batch before the scene is ready.
	LoadAll LoadPolicy = iota

	// LoadFirstThenBackground loads the initially visible assets before the scene is ready and
	// preloads the rest in configuration order afterwards.
	LoadFirstThenBackground

	// LoadFirstOnly loads the initially visible assets; the rest load when first toggled.
	LoadFirstOnly
)

func (p LoadPolicy) String() string {
	switch p {
	case LoadAll:
		return "all"
	case LoadFirstThenBackground:
		return "first-then-background"
	case LoadFirstOnly:
		return "first-only"
	default:
		return "unknown"
	}
}

// ManagerBuilderOption is a functional option for configuring a Manager via NewManager.
type ManagerBuilderOption func(*manager)

// WithToggleMode sets the toggle mode. Defaults to ToggleIndependent.
//
// Parameters:
//   - mode: the toggle mode
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithToggleMode(mode ToggleMode) ManagerBuilderOption {
	return func(m *manager) {
		m.toggleMode = mode
	}
}

// WithLoadPolicy sets the load policy. Defaults to LoadFirstThenBackground.
//
// Parameters:
//   - policy: the load policy
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithLoadPolicy(policy LoadPolicy) ManagerBuilderOption {
	return func(m *manager) {
		m.loadPolicy = policy
	}
}

// WithAnimator sets the reveal animator. Defaults to reveal.NewAnimator with the manager's logger.
//
// Parameters:
//   - a: the animator
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithAnimator(a reveal.Animator) ManagerBuilderOption {
	return func(m *manager) {
		m.animator = a
	}
}

// WithObserver sets the event observer.
//
// Parameters:
//   - o: the observer
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithObserver(o Observer) ManagerBuilderOption {
	return func(m *manager) {
		if o != nil {
			m.observer = o
		}
	}
}

// WithSurface makes LoadScene initialize the renderer against surface when it is not already
// initialized, including after Dispose.
//
// Parameters:
//   - surface: the surface to render into
//
// Returns:
//   - ManagerBuilderOption: option function to apply
func WithSurface(surface renderer.Surface) ManagerBuilderOption {
	return func(m *manager) {
		m.surface = surface
	}
}

// WithWorkers sets the size of the worker pool that runs parallel reveals and background
// preloads. Values below 1 are raised to 1.
func WithWorkers(n int) ManagerBuilderOption {
	return func(m *manager) {
		m.workers = max(n, 1)
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) ManagerBuilderOption {
	return func(m *manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}
