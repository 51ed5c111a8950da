package scene

import (
	"context"
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-splat/engine/reveal"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

func (m *manager) RevealActiveScene(ctx context.Context) error {
	m.mu.Lock()
	if m.activeConfig == nil {
		m.mu.Unlock()
		return nil
	}
	life := m.life
	m.mu.Unlock()

	ctx, cancel := withLifetime(ctx, life)
	defer cancel()

	m.mu.Lock()
	if m.activeConfig == nil {
		m.mu.Unlock()
		return nil
	}
	gen := m.sceneGen
	policy := m.activeConfig.Reveal
	var jobs []func()
	for _, it := range m.items {
		// Items with a pending toggle belong to that toggle.
		if it.target != it.visible {
			continue
		}
		h, loaded := m.handleByID[it.desc.ID]
		switch {
		case it.visible && !it.shown && loaded:
			actx, token := it.beginAnimation(ctx)
			g := m.guard(h, it, gen, token)
			h.SetRevealParams(reveal.Parked(h.Bounds(), policy))
			m.renderer.SetVisible(it.desc.ID, true)
			it.shown = true
			jobs = append(jobs, func() {
				if err := m.animator.RevealIn(actx, g, h.Bounds(), policy); err != nil {
					m.logger.Debug("reveal-in interrupted", "asset", h.ID(), "error", err)
				}
			})
		case !it.visible && it.shown:
			it.stopAnimation()
			m.renderer.SetVisible(it.desc.ID, false)
			it.shown = false
		}
	}
	if len(jobs) > 0 {
		m.transitions++
	}
	m.mu.Unlock()

	if len(jobs) == 0 {
		return nil
	}
	defer m.endTransition(gen)
	m.fanOut(ctx, jobs)
	return ctx.Err()
}

func (m *manager) SetSplatVisible(ctx context.Context, id string, visible bool) (bool, error) {
	if m.toggleMode == ToggleExclusive && visible {
		return m.activate(ctx, id)
	}
	return m.toggle(ctx, id, visible)
}

func (m *manager) ActivateSplat(ctx context.Context, id string) (bool, error) {
	if m.toggleMode != ToggleExclusive {
		return false, fmt.Errorf("activate %q: %w", id, ErrToggleMode)
	}
	return m.activate(ctx, id)
}

// endTransition closes a transition opened in scene gen.
func (m *manager) endTransition(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sceneGen == gen && m.transitions > 0 {
		m.transitions--
	}
}

// toggleOp is one SetSplatVisible or ActivateSplat call. It owns the targets it sets until it
// settles or a newer call claims them, and remembers the animations it started so a superseded
// call can be undone.
type toggleOp struct {
	version uint64
	gen     uint64
	tokens  map[*item]uint64
}

func newToggleOp(version, gen uint64) *toggleOp {
	return &toggleOp{version: version, gen: gen, tokens: make(map[*item]uint64)}
}

// claim sets the item's target on behalf of op. Caller must hold the manager mutex.
func (op *toggleOp) claim(it *item, target bool) {
	it.target = target
	it.owner = op.version
}

// animate starts an animation of the item on behalf of op. Caller must hold the manager mutex.
func (op *toggleOp) animate(ctx context.Context, it *item) (context.Context, uint64) {
	actx, token := it.beginAnimation(ctx)
	op.tokens[it] = token
	return actx, token
}

// toggle animates a single item. It serves both directions in independent mode and hiding in
// exclusive mode. Independent toggles of different items do not supersede each other; a later
// toggle of the same item does.
func (m *manager) toggle(ctx context.Context, id string, visible bool) (bool, error) {
	m.mu.Lock()
	it, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	if it.target == visible {
		m.mu.Unlock()
		return visible, nil
	}
	m.opVersion++
	op := newToggleOp(m.opVersion, m.sceneGen)
	it.version++
	version, gen := it.version, m.sceneGen
	op.claim(it, visible)
	if m.toggleMode == ToggleExclusive && m.active == id {
		m.active = ""
	}
	policy := m.activeConfig.Reveal
	life := m.life
	m.transitions++
	m.mu.Unlock()
	defer m.endTransition(gen)

	ctx, cancel := withLifetime(ctx, life)
	defer cancel()

	// Called with the mutex held.
	current := func() bool {
		if m.sceneGen != gen || it.version != version {
			return false
		}
		return m.toggleMode == ToggleIndependent || m.opVersion == op.version
	}

	var h splat.Handle
	if visible {
		if h, err = m.ensureLoaded(ctx, gen, id); err != nil {
			return m.toggleFailed(op, it, current, err)
		}
	}

	m.mu.Lock()
	if !current() {
		return m.discardLocked(op, it)
	}
	if !visible {
		var loaded bool
		if h, loaded = m.handleByID[id]; !loaded || !it.shown {
			// Nothing on screen to animate.
			it.stopAnimation()
			m.renderer.SetVisible(id, false)
			it.shown = false
			return m.recordLocked(op, it, false, nil)
		}
	}
	actx, token := op.animate(ctx, it)
	g := m.guard(h, it, gen, token)
	if visible && !it.shown {
		h.SetRevealParams(reveal.Parked(h.Bounds(), policy))
		m.renderer.SetVisible(id, true)
		it.shown = true
	}
	m.mu.Unlock()

	if visible {
		err = m.animator.RevealIn(actx, g, h.Bounds(), policy)
	} else {
		err = m.animator.RevealOut(actx, g, h.Bounds(), policy)
	}

	m.mu.Lock()
	if !current() || it.anim != token {
		return m.discardLocked(op, it)
	}
	it.stopAnimation()
	if visible && err != nil {
		h.SetRevealParams(splat.Shown(h.Bounds()))
	}
	if !visible {
		m.renderer.SetVisible(id, false)
		it.shown = false
	}
	return m.recordLocked(op, it, visible, err)
}

// activate makes id the single active item in exclusive mode.
func (m *manager) activate(ctx context.Context, id string) (bool, error) {
	m.mu.Lock()
	it, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return false, err
	}
	if m.active == id {
		m.mu.Unlock()
		return true, nil
	}
	m.opVersion++
	op := newToggleOp(m.opVersion, m.sceneGen)
	gen := m.sceneGen
	m.active = id
	it.version++
	for _, o := range m.items {
		op.claim(o, o == it)
	}
	policy := m.activeConfig.Reveal
	life := m.life
	m.transitions++
	m.mu.Unlock()
	defer m.endTransition(gen)

	ctx, cancel := withLifetime(ctx, life)
	defer cancel()

	// Called with the mutex held.
	current := func() bool {
		return m.opVersion == op.version
	}

	h, err := m.ensureLoaded(ctx, gen, id)
	if err != nil {
		return m.toggleFailed(op, it, current, err)
	}

	m.mu.Lock()
	if !current() {
		return m.discardLocked(op, it)
	}
	// Retire the recorded active item with an animation and force every other item hidden,
	// whatever its recorded state.
	var prev *item
	var prevHandle splat.Handle
	for _, o := range m.items {
		if o == it {
			continue
		}
		if ph, ok := m.handleByID[o.desc.ID]; ok && prev == nil && o.visible && o.shown {
			prev, prevHandle = o, ph
			continue
		}
		o.stopAnimation()
		m.renderer.SetVisible(o.desc.ID, false)
		o.shown, o.visible = false, false
	}
	var prevCtx context.Context
	var prevGuard splat.Handle
	if prev != nil {
		var token uint64
		prevCtx, token = op.animate(ctx, prev)
		prevGuard = m.guard(prevHandle, prev, gen, token)
	}
	m.mu.Unlock()

	if prev != nil {
		if err := m.animator.RevealOut(prevCtx, prevGuard, prevHandle.Bounds(), policy); err != nil {
			m.logger.Debug("reveal-out interrupted", "asset", prev.desc.ID, "error", err)
		}
	}

	m.mu.Lock()
	if !current() {
		return m.discardLocked(op, it)
	}
	if prev != nil {
		prev.stopAnimation()
		m.renderer.SetVisible(prev.desc.ID, false)
		prev.shown, prev.visible = false, false
	}
	actx, token := op.animate(ctx, it)
	g := m.guard(h, it, gen, token)
	if !it.shown {
		h.SetRevealParams(reveal.Parked(h.Bounds(), policy))
		m.renderer.SetVisible(id, true)
		it.shown = true
	}
	m.mu.Unlock()

	err = m.animator.RevealIn(actx, g, h.Bounds(), policy)

	m.mu.Lock()
	if !current() || it.anim != token {
		return m.discardLocked(op, it)
	}
	it.stopAnimation()
	if err != nil {
		h.SetRevealParams(splat.Shown(h.Bounds()))
	}
	return m.recordLocked(op, it, true, err)
}

// toggleFailed resolves a toggle whose asset could not be loaded.
func (m *manager) toggleFailed(op *toggleOp, it *item, current func() bool, err error) (bool, error) {
	m.mu.Lock()
	if errors.Is(err, errStale) || !current() {
		return m.discardLocked(op, it)
	}
	m.rollbackLocked(op)
	visible, failed := it.visible, it.failed
	m.mu.Unlock()

	if failed {
		return visible, &LoadError{
			Kind:    KindAssetLoad,
			Summary: fmt.Sprintf("splat %q failed to load", it.desc.ID),
			Details: []string{err.Error()},
			Err:     err,
		}
	}
	return visible, err
}

// rollbackLocked undoes what op requested on items no newer toggle has claimed: targets return to
// the recorded visibility and handles op was animating are put back in line with it. In exclusive
// mode the active item is recomputed once no toggle is pending. Caller must hold the mutex.
func (m *manager) rollbackLocked(op *toggleOp) {
	if m.sceneGen != op.gen {
		return
	}
	for _, it := range m.items {
		if it.owner != op.version {
			continue
		}
		it.owner = 0
		it.target = it.visible
		if token, ok := op.tokens[it]; ok && it.anim == token {
			it.stopAnimation()
			m.settleLocked(it)
		}
	}
	if m.toggleMode != ToggleExclusive {
		return
	}
	for _, it := range m.items {
		if it.owner != 0 {
			return
		}
	}
	m.active = ""
	for _, it := range m.items {
		if it.visible {
			m.active = it.desc.ID
			return
		}
	}
}

// settleLocked brings the renderer in line with the item's recorded visibility once no animation
// drives it. Caller must hold the mutex.
func (m *manager) settleLocked(it *item) {
	switch {
	case it.visible && it.shown:
		if h, ok := m.handleByID[it.desc.ID]; ok {
			h.SetRevealParams(splat.Shown(h.Bounds()))
		}
	case !it.visible && it.shown:
		m.renderer.SetVisible(it.desc.ID, false)
		it.shown = false
	}
}

// discardLocked ends a superseded toggle, rolling back its requests, and returns the item's
// recorded visibility. It unlocks the mutex.
func (m *manager) discardLocked(op *toggleOp, it *item) (bool, error) {
	m.rollbackLocked(op)
	visible := it.visible
	m.mu.Unlock()
	m.logger.Debug("discarding superseded toggle", "asset", it.desc.ID)
	return visible, nil
}

// recordLocked stores the settled visibility, releases op's claims and notifies the observer. It
// unlocks the mutex.
func (m *manager) recordLocked(op *toggleOp, it *item, visible bool, err error) (bool, error) {
	it.visible = visible
	for _, o := range m.items {
		if o.owner == op.version {
			o.owner = 0
		}
	}
	items := m.snapshotLocked()
	m.mu.Unlock()
	m.observer.OnItemsChanged(items)
	return visible, err
}
