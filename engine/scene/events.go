package scene

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
)

// Observer receives the manager's events. Callbacks run on the goroutine that performed the
// operation, never while the manager holds its lock, so they may call back into the manager.
// Events of overlapping operations can interleave; SplatItems and ActiveConfig are the ground truth.
type Observer interface {
	// OnLoading reports progress of a scene load.
	//
	// Parameters:
	//   - message: a short status line
	OnLoading(message string)

	// OnReady reports that a scene finished loading and is active.
	//
	// Parameters:
	//   - cfg: a copy of the active configuration
	OnReady(cfg *config.SceneConfiguration)

	// OnItemsChanged reports a change to the toggle items.
	//
	// Parameters:
	//   - items: a copy of the current items in configuration order
	OnItemsChanged(items []SplatToggleItem)
}

// NopObserver ignores every event.
type NopObserver struct{}

var _ Observer = NopObserver{}

func (NopObserver) OnLoading(string)                   {}
func (NopObserver) OnReady(*config.SceneConfiguration) {}
func (NopObserver) OnItemsChanged([]SplatToggleItem)   {}

const (
	messageLoadingConfig = "Loading configuration…"
	messageLoadingAssets = "Loading assets…"
)

// State is the manager's conceptual lifecycle state, for diagnostics.
type State int

const (
	StateIdle State = iota
	StateConfigLoading
	StatePriorAssetsRetiring
	StateAssetsClearing
	StateAssetsLoading
	StateReady
	StateAssetTransitioning
	StateConfigLoadFailed
	StateAssetLoadFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConfigLoading:
		return "config loading"
	case StatePriorAssetsRetiring:
		return "prior assets retiring"
	case StateAssetsClearing:
		return "assets clearing"
	case StateAssetsLoading:
		return "assets loading"
	case StateReady:
		return "ready"
	case StateAssetTransitioning:
		return "asset transitioning"
	case StateConfigLoadFailed:
		return "config load failed"
	case StateAssetLoadFailed:
		return "asset load failed"
	default:
		return "unknown"
	}
}
