// Package scene owns the lifecycle of the active scene: it turns a scene id into loaded splat
// handles, sequences scene switches and visibility toggles with their reveal animations, and
// discards the results of operations that a newer call has superseded.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/reveal"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
)

// loadCall is a load shared by every caller asking for the same asset while it runs.
type loadCall struct {
	done   chan struct{}
	handle splat.Handle
	err    error
}

// manager is the implementation of the Manager interface.
type manager struct {
	mu sync.Mutex

	configs  config.Loader
	renderer renderer.Renderer
	animator reveal.Animator
	observer Observer
	logger   *slog.Logger
	surface  renderer.Surface

	toggleMode ToggleMode
	loadPolicy LoadPolicy
	workers    int

	// pool and life exist between the first LoadScene and Dispose.
	pool     worker.DynamicWorkerPool
	life     context.Context
	stopLife context.CancelFunc
	taskID   int
	disposed bool

	// opVersion counts every operation; sceneGen counts scene replacements and disposals.
	opVersion   uint64
	sceneGen    uint64
	state       State
	transitions int

	activeConfig *config.SceneConfiguration
	items        []*item
	itemByID     map[string]*item
	handleByID   map[string]splat.Handle
	inFlight     map[string]*loadCall

	// active is the requested item in exclusive mode.
	active string
}

// Manager loads scenes into a renderer and coordinates visibility toggles and reveal animations.
// All methods are safe for concurrent use. When calls overlap, the most recent one wins: a
// superseded call returns the current state without error instead of applying its own.
type Manager interface {
	// LoadScene replaces the active scene. It fetches and validates the configuration, reveals
	// out the previous scene, clears the renderer and loads the new scene's assets according to
	// the load policy. The new assets are loaded hidden with their reveal plane parked; call
	// RevealActiveScene to show them.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - sceneID: the scene to load
	//
	// Returns:
	//   - *config.SceneConfiguration: a copy of the configuration that is active when the call returns
	//   - error: a *LoadError of KindConfiguration (the previous scene stays active) or
	//     KindAssetLoad (the scene is active with failed items marked)
	LoadScene(ctx context.Context, sceneID string) (*config.SceneConfiguration, error)

	// RevealActiveScene shows every visible item that is not yet shown, animating it in, and
	// hides every hidden item that is still shown. Calling it again is a no-op.
	//
	// Parameters:
	//   - ctx: cancels the animations
	//
	// Returns:
	//   - error: ctx.Err() if the reveal was cancelled
	RevealActiveScene(ctx context.Context) error

	// SetSplatVisible shows or hides an item, loading its asset on demand. In exclusive mode
	// showing an item activates it.
	//
	// Parameters:
	//   - ctx: cancels the transition
	//   - id: the asset id
	//   - visible: the requested visibility
	//
	// Returns:
	//   - bool: the item's recorded visibility when the call returns
	//   - error: ErrUnknownSplat, ErrSplatUnavailable or a *LoadError of KindAssetLoad
	SetSplatVisible(ctx context.Context, id string, visible bool) (bool, error)

	// ActivateSplat makes id the single visible item, retiring the previous one first.
	// Only available in exclusive mode.
	//
	// Parameters:
	//   - ctx: cancels the transition
	//   - id: the asset id
	//
	// Returns:
	//   - bool: whether id is the active item when the call returns
	//   - error: ErrToggleMode, ErrUnknownSplat, ErrSplatUnavailable or a *LoadError
	ActivateSplat(ctx context.Context, id string) (bool, error)

	// SplatItems returns a copy of the active scene's items in configuration order.
	SplatItems() []SplatToggleItem

	// ActiveConfig returns a copy of the active configuration, or nil if no scene is active.
	ActiveConfig() *config.SceneConfiguration

	// State returns the current lifecycle state.
	State() State

	// Version returns the operation counter. It increases with every scene load, toggle and
	// disposal and is never reset.
	Version() uint64

	// ToggleMode returns the configured toggle mode.
	ToggleMode() ToggleMode

	// Dispose drops every asset, releases the renderer and stops background work. It is
	// idempotent, and a later LoadScene starts over from a clean state.
	Dispose()
}

var _ Manager = &manager{}

// NewManager creates a Manager.
//
// Parameters:
//   - configs: fetches scene configurations
//   - r: the renderer assets are loaded into
//   - options: functional options to configure the manager
//
// Returns:
//   - Manager: the new manager
func NewManager(configs config.Loader, r renderer.Renderer, options ...ManagerBuilderOption) Manager {
	if configs == nil {
		panic("scene: NewManager requires a config loader")
	}
	if r == nil {
		panic("scene: NewManager requires a renderer")
	}
	m := &manager{
		configs:    configs,
		renderer:   r,
		observer:   NopObserver{},
		logger:     slog.Default(),
		loadPolicy: LoadFirstThenBackground,
		workers:    max(runtime.NumCPU(), config.MaxAssetsPerScene+1),
		itemByID:   make(map[string]*item),
		handleByID: make(map[string]splat.Handle),
		inFlight:   make(map[string]*loadCall),
	}
	for _, opt := range options {
		opt(m)
	}
	if m.animator == nil {
		m.animator = reveal.NewAnimator(reveal.WithLogger(m.logger))
	}
	return m
}

// startLocked creates the worker pool and lifetime context if the manager is new or disposed.
// Caller must hold the mutex.
func (m *manager) startLocked() {
	if m.pool != nil {
		return
	}
	m.pool = worker.NewDynamicWorkerPool(m.workers, 256, time.Second)
	m.life, m.stopLife = context.WithCancel(context.Background())
	m.disposed = false
}

// withLifetime derives a context that also ends when the manager is disposed.
func withLifetime(ctx, life context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

func (m *manager) LoadScene(ctx context.Context, sceneID string) (*config.SceneConfiguration, error) {
	m.mu.Lock()
	m.startLocked()
	m.opVersion++
	version := m.opVersion
	life := m.life
	m.state = StateConfigLoading
	m.mu.Unlock()

	ctx, cancel := withLifetime(ctx, life)
	defer cancel()

	if m.surface != nil {
		if err := m.renderer.Initialize(m.surface); err != nil {
			m.setState(version, StateIdle)
			return nil, fmt.Errorf("scene %q: %w", sceneID, err)
		}
	}

	m.observer.OnLoading(messageLoadingConfig)
	cfg, err := m.configs.LoadSceneConfig(ctx, sceneID)
	if err != nil {
		if current, stale := m.superseded(version); stale {
			m.logger.Debug("discarding superseded scene load", "scene", sceneID, "error", err)
			return current, nil
		}
		m.setState(version, StateConfigLoadFailed)
		m.logger.Warn("scene configuration failed", "scene", sceneID, "error", err)
		return nil, configurationError(sceneID, err)
	}

	m.mu.Lock()
	if m.opVersion != version {
		current := m.activeConfig.Clone()
		m.mu.Unlock()
		m.logger.Debug("discarding superseded scene load", "scene", sceneID)
		return current, nil
	}
	m.state = StatePriorAssetsRetiring
	jobs, retired := m.retireLocked(ctx)
	m.mu.Unlock()

	m.fanOut(ctx, jobs)
	m.observer.OnLoading(messageLoadingAssets)

	m.mu.Lock()
	if m.opVersion != version {
		m.restoreLocked(retired)
		current := m.activeConfig.Clone()
		m.mu.Unlock()
		m.logger.Debug("discarding superseded scene load", "scene", sceneID)
		return current, nil
	}
	gen, items, critical := m.commitLocked(cfg)
	m.mu.Unlock()

	m.logger.Info("scene activated", "scene", cfg.ID, "assets", len(cfg.Assets), "policy", m.loadPolicy, "mode", m.toggleMode)
	m.observer.OnItemsChanged(items)

	if m.loadPolicy == LoadAll {
		m.loadBatch(ctx, gen)
	} else {
		m.loadEach(ctx, gen, critical)
	}

	m.mu.Lock()
	if m.sceneGen != gen {
		current := m.activeConfig.Clone()
		m.mu.Unlock()
		m.logger.Debug("discarding superseded scene load", "scene", sceneID)
		return current, nil
	}
	failed := m.failuresLocked()
	if len(failed) > 0 {
		m.state = StateAssetLoadFailed
	} else {
		m.state = StateReady
	}
	items = m.snapshotLocked()
	out := m.activeConfig.Clone()
	m.mu.Unlock()

	if m.loadPolicy == LoadFirstThenBackground {
		m.startPreload(gen)
	}
	m.observer.OnItemsChanged(items)
	m.observer.OnReady(out)

	if err := ctx.Err(); err != nil {
		return out, err
	}
	if len(failed) > 0 {
		return out, assetLoadError(out.ID, failed)
	}
	return out, nil
}

// superseded reports whether an operation started at version has been overtaken, along with the
// configuration that is active now.
func (m *manager) superseded(version uint64) (*config.SceneConfiguration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opVersion == version {
		return nil, false
	}
	return m.activeConfig.Clone(), true
}

func (m *manager) setState(version uint64, state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.opVersion == version {
		m.state = state
	}
}

// retiredItem is a shown item whose reveal-out was started by a scene switch.
type retiredItem struct {
	it    *item
	gen   uint64
	token uint64
}

// retireLocked builds one reveal-out job per shown item of the current scene, using that
// scene's policy. Caller must hold the mutex.
func (m *manager) retireLocked(ctx context.Context) ([]func(), []retiredItem) {
	if m.activeConfig == nil {
		return nil, nil
	}
	policy := m.activeConfig.Reveal
	gen := m.sceneGen
	var jobs []func()
	var retired []retiredItem
	for _, it := range m.items {
		h, ok := m.handleByID[it.desc.ID]
		if !ok || !it.shown {
			continue
		}
		actx, token := it.beginAnimation(ctx)
		g := m.guard(h, it, gen, token)
		retired = append(retired, retiredItem{it: it, gen: gen, token: token})
		jobs = append(jobs, func() {
			if err := m.animator.RevealOut(actx, g, h.Bounds(), policy); err != nil {
				m.logger.Debug("reveal-out interrupted", "asset", h.ID(), "error", err)
			}
		})
	}
	return jobs, retired
}

// restoreLocked puts retired items back in line with their recorded visibility, fully shown for
// visible ones, when the scene switch that retired them was abandoned. Items another operation
// has taken over are left alone. Caller must hold the mutex.
func (m *manager) restoreLocked(retired []retiredItem) {
	for _, r := range retired {
		if r.gen != m.sceneGen || r.it.anim != r.token {
			continue
		}
		r.it.stopAnimation()
		m.settleLocked(r.it)
	}
}

// commitLocked makes cfg the active scene: it invalidates everything tied to the previous scene,
// clears the renderer and builds the new items. It returns the new scene generation, a snapshot
// of the items and the ids to load before the scene is ready. Caller must hold the mutex.
func (m *manager) commitLocked(cfg *config.SceneConfiguration) (uint64, []SplatToggleItem, []string) {
	m.state = StateAssetsClearing
	m.sceneGen++
	for _, it := range m.items {
		it.stopAnimation()
	}
	m.handleByID = make(map[string]splat.Handle)
	m.inFlight = make(map[string]*loadCall)
	m.transitions = 0
	m.renderer.Clear()

	m.activeConfig = cfg
	m.items, m.itemByID = newItems(cfg, m.toggleMode)
	m.active = ""
	var critical []string
	for _, it := range m.items {
		if !it.visible {
			continue
		}
		critical = append(critical, it.desc.ID)
		if m.toggleMode == ToggleExclusive {
			m.active = it.desc.ID
		}
	}
	m.state = StateAssetsLoading
	return m.sceneGen, m.snapshotLocked(), critical
}

// failuresLocked returns the failed items of the active scene. Caller must hold the mutex.
func (m *manager) failuresLocked() []*item {
	var failed []*item
	for _, it := range m.items {
		if it.failed {
			failed = append(failed, it)
		}
	}
	return failed
}

func configurationError(sceneID string, err error) *LoadError {
	le := &LoadError{
		Kind:    KindConfiguration,
		Summary: fmt.Sprintf("failed to load scene %q", sceneID),
		Err:     err,
	}
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		le.Summary = fmt.Sprintf("failed to load scene %q: %s", sceneID, cfgErr.Message)
		le.Details = append(le.Details, cfgErr.Details...)
	} else {
		le.Details = []string{err.Error()}
	}
	return le
}

func assetLoadError(sceneID string, failed []*item) *LoadError {
	le := &LoadError{
		Kind:    KindAssetLoad,
		Summary: fmt.Sprintf("scene %q: %d asset(s) failed to load", sceneID, len(failed)),
	}
	errs := make([]error, 0, len(failed))
	for _, it := range failed {
		le.Details = append(le.Details, fmt.Sprintf("%s: %v", it.desc.DisplayLabel(), it.err))
		errs = append(errs, it.err)
	}
	le.Err = errors.Join(errs...)
	return le
}

// ensureLoaded returns the handle for id in scene generation gen, loading it if needed.
// Concurrent callers share one load.
func (m *manager) ensureLoaded(ctx context.Context, gen uint64, id string) (splat.Handle, error) {
	m.mu.Lock()
	if m.sceneGen != gen {
		m.mu.Unlock()
		return nil, errStale
	}
	if h, ok := m.handleByID[id]; ok {
		m.mu.Unlock()
		return h, nil
	}
	it, err := m.lookupLocked(id)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	call, ok := m.inFlight[id]
	if !ok {
		call = &loadCall{done: make(chan struct{})}
		m.inFlight[id] = call
		desc, life := it.desc, m.life
		// Loads run outside the worker pool; pool tasks wait on them.
		go func() {
			h, err := m.renderer.LoadSplat(life, desc)
			m.complete(gen, desc.ID, call, h, err)
		}()
	}
	m.mu.Unlock()

	select {
	case <-call.done:
		return call.handle, call.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// complete settles a load: it records the handle with parked reveal parameters, or marks the
// item failed, or disposes the handle if its scene is gone.
func (m *manager) complete(gen uint64, id string, call *loadCall, h splat.Handle, err error) {
	m.mu.Lock()
	if m.inFlight[id] == call {
		delete(m.inFlight, id)
	}

	var orphan splat.Handle
	var items []SplatToggleItem
	switch {
	case m.sceneGen != gen:
		orphan, h, err = h, nil, errStale
	case err != nil:
		if it, ok := m.itemByID[id]; ok {
			it.failed, it.err = true, err
			it.visible, it.target = false, false
			if m.active == id {
				m.active = ""
			}
		}
		m.logger.Warn("splat failed to load", "asset", id, "error", err)
		items = m.snapshotLocked()
	default:
		bounds := h.Bounds().Normalized()
		h.SetRevealBounds(bounds)
		h.SetRevealParams(reveal.Parked(bounds, m.activeConfig.Reveal))
		m.handleByID[id] = h
		items = m.snapshotLocked()
	}
	call.handle, call.err = h, err
	m.mu.Unlock()
	close(call.done)

	if orphan != nil {
		m.logger.Debug("disposing splat loaded for a superseded scene", "asset", id)
		m.renderer.Remove(orphan)
	}
	if items != nil {
		m.observer.OnItemsChanged(items)
	}
}

// loadEach loads ids in parallel on the worker pool and waits for all of them.
func (m *manager) loadEach(ctx context.Context, gen uint64, ids []string) {
	jobs := make([]func(), 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, func() {
			if _, err := m.ensureLoaded(ctx, gen, id); err != nil && !errors.Is(err, errStale) {
				m.logger.Debug("critical load did not complete", "asset", id, "error", err)
			}
		})
	}
	m.fanOut(ctx, jobs)
}

// loadBatch loads every asset of the scene with a single renderer batch. Assets already loaded
// or loading are not requested again.
func (m *manager) loadBatch(ctx context.Context, gen uint64) {
	m.mu.Lock()
	if m.sceneGen != gen {
		m.mu.Unlock()
		return
	}
	var descs []config.AssetDescriptor
	var calls, waits []*loadCall
	for _, it := range m.items {
		id := it.desc.ID
		if _, ok := m.handleByID[id]; ok || it.failed {
			continue
		}
		if c, ok := m.inFlight[id]; ok {
			waits = append(waits, c)
			continue
		}
		c := &loadCall{done: make(chan struct{})}
		m.inFlight[id] = c
		descs = append(descs, it.desc)
		calls = append(calls, c)
	}
	life := m.life
	m.mu.Unlock()

	if len(descs) > 0 {
		handles, err := m.renderer.LoadSplats(life, descs)
		perAsset := splitErrors(err)
		next := 0
		for i, desc := range descs {
			var h splat.Handle
			if i < len(handles) {
				h = handles[i]
			}
			var loadErr error
			if h == nil {
				if next < len(perAsset) {
					loadErr = perAsset[next]
					next++
				} else {
					loadErr = fmt.Errorf("splat %q was not loaded", desc.ID)
				}
			}
			m.complete(gen, desc.ID, calls[i], h, loadErr)
		}
	}

	for _, c := range waits {
		select {
		case <-c.done:
		case <-ctx.Done():
			return
		}
	}
}

// splitErrors undoes errors.Join.
func splitErrors(err error) []error {
	if err == nil {
		return nil
	}
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

// startPreload loads the remaining assets of scene gen one at a time in configuration order on
// the worker pool, stopping as soon as the scene is replaced.
func (m *manager) startPreload(gen uint64) {
	m.mu.Lock()
	if m.sceneGen != gen {
		m.mu.Unlock()
		return
	}
	var ids []string
	for _, it := range m.items {
		if _, ok := m.handleByID[it.desc.ID]; !ok && !it.failed {
			ids = append(ids, it.desc.ID)
		}
	}
	life := m.life
	m.mu.Unlock()

	if len(ids) == 0 {
		return
	}
	m.submit(func() (any, error) {
		for i, id := range ids {
			if m.generation() != gen {
				m.logger.Debug("background preload aborted", "remaining", len(ids)-i)
				return nil, errStale
			}
			if _, err := m.ensureLoaded(life, gen, id); err != nil && !errors.Is(err, errStale) {
				m.logger.Debug("background preload failed", "asset", id, "error", err)
			}
		}
		return nil, nil
	})
}

func (m *manager) generation() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sceneGen
}

// submit runs do on the worker pool, or on its own goroutine if the manager is disposed.
func (m *manager) submit(do func() (any, error)) {
	m.mu.Lock()
	pool := m.pool
	m.taskID++
	id := m.taskID
	m.mu.Unlock()

	if pool == nil {
		go do()
		return
	}
	pool.SubmitTask(worker.Task{ID: id, Do: do})
}

// fanOut runs jobs on the worker pool and waits until they finish or ctx ends.
func (m *manager) fanOut(ctx context.Context, jobs []func()) {
	if len(jobs) == 0 {
		return
	}
	var wg sync.WaitGroup
	wg.Add(len(jobs))
	for _, job := range jobs {
		m.submit(func() (any, error) {
			defer wg.Done()
			job()
			return nil, nil
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}
}

// guard wraps h so that only the item's current animation in scene gen can drive it.
func (m *manager) guard(h splat.Handle, it *item, gen, token uint64) splat.Handle {
	return &staleGuard{
		Handle: h,
		mu:     &m.mu,
		isCurrent: func() bool {
			return m.sceneGen == gen && it.anim == token
		},
	}
}

// lookupLocked returns the item for id if it can be toggled. Caller must hold the mutex.
func (m *manager) lookupLocked(id string) (*item, error) {
	it, ok := m.itemByID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownSplat, id)
	}
	if it.failed {
		return nil, fmt.Errorf("%w: %q: %w", ErrSplatUnavailable, id, it.err)
	}
	return it, nil
}

// snapshotLocked copies the items for callers and observers. Caller must hold the mutex.
func (m *manager) snapshotLocked() []SplatToggleItem {
	out := make([]SplatToggleItem, len(m.items))
	for i, it := range m.items {
		_, loaded := m.handleByID[it.desc.ID]
		out[i] = it.snapshot(loaded)
	}
	return out
}

func (m *manager) SplatItems() []SplatToggleItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

func (m *manager) ActiveConfig() *config.SceneConfiguration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.activeConfig.Clone()
}

func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.transitions > 0 && (m.state == StateReady || m.state == StateAssetLoadFailed) {
		return StateAssetTransitioning
	}
	return m.state
}

func (m *manager) Version() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.opVersion
}

func (m *manager) ToggleMode() ToggleMode {
	return m.toggleMode
}

func (m *manager) Dispose() {
	m.mu.Lock()
	if m.disposed {
		m.mu.Unlock()
		return
	}
	m.disposed = true
	m.opVersion++
	m.sceneGen++
	for _, it := range m.items {
		it.stopAnimation()
	}
	handles := make([]splat.Handle, 0, len(m.handleByID))
	for _, h := range m.handleByID {
		handles = append(handles, h)
	}
	m.handleByID = make(map[string]splat.Handle)
	m.inFlight = make(map[string]*loadCall)
	m.items = nil
	m.itemByID = make(map[string]*item)
	m.activeConfig = nil
	m.active = ""
	m.transitions = 0
	m.state = StateIdle

	pool, stopLife := m.pool, m.stopLife
	m.pool, m.life, m.stopLife = nil, nil, nil

	for _, h := range handles {
		m.renderer.Remove(h)
	}
	m.renderer.Clear()
	m.renderer.Dispose()
	m.mu.Unlock()

	if stopLife != nil {
		stopLife()
	}
	if pool != nil {
		pool.Stop()
	}
	m.logger.Info("scene manager disposed", "handles", len(handles))
	m.observer.OnItemsChanged([]SplatToggleItem{})
}
