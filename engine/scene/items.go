package scene

import (
	"context"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

// SplatToggleItem is the presentation view of one asset of the active scene. In exclusive
// toggle mode Visible marks the active item.
type SplatToggleItem struct {
	ID      string
	Label   string
	Visible bool
	Loaded  bool
	Failed  bool
	Error   error
}

// item is the manager's record of one asset of the active scene.
type item struct {
	desc config.AssetDescriptor

	// visible is the recorded visibility, target the most recently requested one. They differ
	// while a toggle is animating.
	visible bool
	target  bool

	// shown is the last value passed to Renderer.SetVisible.
	shown bool

	failed bool
	err    error

	// version counts toggle requests for this item.
	version uint64

	// owner is the opVersion of the pending toggle that set target, or 0.
	owner uint64

	// anim identifies the animation currently allowed to drive the handle; cancelAnim stops it.
	anim       uint64
	cancelAnim context.CancelFunc
}

func newItems(cfg *config.SceneConfiguration, mode ToggleMode) ([]*item, map[string]*item) {
	items := make([]*item, len(cfg.Assets))
	byID := make(map[string]*item, len(cfg.Assets))
	for i, a := range cfg.Assets {
		items[i] = &item{desc: a}
		byID[a.ID] = items[i]
	}
	for _, it := range defaultVisible(items, mode) {
		it.visible = true
		it.target = true
	}
	return items, byID
}

// defaultVisible picks the items shown when a scene becomes active. Independent mode shows every
// asset flagged visible, exclusive mode the first one; either falls back to the first asset.
func defaultVisible(items []*item, mode ToggleMode) []*item {
	if len(items) == 0 {
		return nil
	}
	var out []*item
	for _, it := range items {
		if !it.desc.Visible {
			continue
		}
		out = append(out, it)
		if mode == ToggleExclusive {
			break
		}
	}
	if len(out) == 0 {
		out = append(out, items[0])
	}
	return out
}

// beginAnimation makes a new animation the only one allowed to drive the item's handle and
// cancels the previous one. Caller must hold the manager mutex.
func (it *item) beginAnimation(ctx context.Context) (context.Context, uint64) {
	it.stopAnimation()
	it.anim++
	actx, cancel := context.WithCancel(ctx)
	it.cancelAnim = cancel
	return actx, it.anim
}

// stopAnimation cancels the running animation, if any, and invalidates its frames. Caller must
// hold the manager mutex.
func (it *item) stopAnimation() {
	if it.cancelAnim != nil {
		it.cancelAnim()
		it.cancelAnim = nil
	}
	it.anim++
}

func (it *item) snapshot(loaded bool) SplatToggleItem {
	return SplatToggleItem{
		ID:      it.desc.ID,
		Label:   it.desc.DisplayLabel(),
		Visible: it.visible,
		Loaded:  loaded,
		Failed:  it.failed,
		Error:   it.err,
	}
}

// staleGuard forwards reveal frames to a handle only while the animation that owns it is current.
// The check and the write happen under the manager mutex, so a superseded animation cannot
// overwrite a frame of its successor.
type staleGuard struct {
	splat.Handle
	mu        *sync.Mutex
	isCurrent func() bool
}

func (g *staleGuard) SetRevealParams(params splat.RevealParams) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.isCurrent() {
		g.Handle.SetRevealParams(params)
	}
}
