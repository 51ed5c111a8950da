package scene

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/reveal"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	waitFor = 2 * time.Second
	pollAt  = 5 * time.Millisecond
)

func itemByID(items []SplatToggleItem, id string) SplatToggleItem {
	for _, it := range items {
		if it.ID == id {
			return it
		}
	}
	return SplatToggleItem{}
}

func TestLoadSceneBecomesReady(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	obs := &recordingObserver{}
	m := newTestManager(t, configs, r, WithObserver(obs))

	cfg, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "alpha", cfg.ID)
	assert.Equal(t, StateReady, m.State())

	items := m.SplatItems()
	require.Len(t, items, 2)
	assert.Equal(t, "a", items[0].ID)
	assert.Equal(t, "A", items[0].Label)
	assert.True(t, items[0].Visible)
	assert.True(t, items[0].Loaded)
	assert.False(t, items[1].Visible)

	// Loaded assets stay hidden with the plane parked until revealed.
	assert.False(t, r.isVisible("a"))
	h := r.handle("a")
	require.NotNil(t, h)
	assert.Equal(t, reveal.Parked(h.Bounds(), testPolicy()), h.last())

	loading, ready, changes := obs.snapshot()
	assert.Equal(t, []string{messageLoadingConfig, messageLoadingAssets}, loading)
	assert.Equal(t, 1, ready)
	assert.GreaterOrEqual(t, changes, 2)

	assert.Eventually(t, func() bool { return itemByID(m.SplatItems(), "b").Loaded }, waitFor, pollAt)
}

func TestRevealActiveSceneShowsParkedThenSweeps(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r, WithLoadPolicy(LoadFirstOnly))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))

	h := r.handle("a")
	require.NotNil(t, h)
	assert.True(t, r.isVisible("a"))
	assert.False(t, r.isVisible("b"))

	// The first visible frame is the parked one, so nothing pops in before the sweep.
	shown := r.shownWith("a")
	assert.True(t, shown.Enabled)
	assert.Equal(t, float32(0), shown.RevealY)

	last := h.last()
	assert.True(t, last.Enabled)
	assert.Equal(t, float32(2), last.RevealY)
	assert.Equal(t, float32(0.12), last.Band)

	calls := r.calls()
	require.NoError(t, m.RevealActiveScene(context.Background()))
	assert.Equal(t, calls, r.calls())
}

func TestShowingVisibleItemIsNoop(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))

	calls := r.calls()
	version := m.Version()
	visible, err := m.SetSplatVisible(context.Background(), "a", true)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, calls, r.calls())
	assert.Equal(t, version, m.Version())
}

func TestIndependentTogglesOfDifferentItemsBothApply(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))

	var wg sync.WaitGroup
	results := make(map[string]toggleResult)
	var mu sync.Mutex
	for id, visible := range map[string]bool{"a": false, "b": true} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := m.SetSplatVisible(context.Background(), id, visible)
			mu.Lock()
			results[id] = toggleResult{visible: v, err: err}
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, toggleResult{visible: false}, results["a"])
	assert.Equal(t, toggleResult{visible: true}, results["b"])

	items := m.SplatItems()
	assert.False(t, itemByID(items, "a").Visible)
	assert.True(t, itemByID(items, "b").Visible)
	assert.False(t, r.isVisible("a"))
	assert.True(t, r.isVisible("b"))
	assert.Equal(t, StateReady, m.State())
}

func TestLaterToggleOfSameItemSupersedesEarlier(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	r := newFakeRenderer()
	clock := reveal.NewFrameClock()
	m := newTestManager(t, configs, r, WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(clock))))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	stop := tickClock(clock)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	stop()

	hide := make(chan toggleResult, 1)
	go func() {
		v, err := m.SetSplatVisible(context.Background(), "a", false)
		hide <- toggleResult{visible: v, err: err}
	}()
	require.Eventually(t, func() bool { return m.State() == StateAssetTransitioning }, waitFor, pollAt)

	show := make(chan toggleResult, 1)
	go func() {
		v, err := m.SetSplatVisible(context.Background(), "a", true)
		show <- toggleResult{visible: v, err: err}
	}()

	stop = tickClock(clock)
	defer stop()

	// The hide is discarded and reports the recorded visibility.
	assert.Equal(t, toggleResult{visible: true}, receive(t, hide))
	assert.Equal(t, toggleResult{visible: true}, receive(t, show))

	assert.True(t, itemByID(m.SplatItems(), "a").Visible)
	assert.True(t, r.isVisible("a"))
	assert.Equal(t, float32(2), r.handle("a").last().RevealY)
}

func TestExclusiveActivateRetiresPrevious(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false), assetDesc("c", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r, WithToggleMode(ToggleExclusive), WithLoadPolicy(LoadAll))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	assert.Equal(t, ToggleExclusive, m.ToggleMode())

	active, err := m.ActivateSplat(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, active)

	items := m.SplatItems()
	assert.False(t, itemByID(items, "a").Visible)
	assert.True(t, itemByID(items, "b").Visible)
	assert.False(t, itemByID(items, "c").Visible)
	assert.False(t, r.isVisible("a"))
	assert.True(t, r.isVisible("b"))

	assert.Equal(t, float32(0), r.shownWith("b").RevealY)
	assert.Equal(t, float32(2), r.handle("b").last().RevealY)

	// Showing through SetSplatVisible activates as well.
	visible, err := m.SetSplatVisible(context.Background(), "c", true)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.False(t, r.isVisible("b"))
	assert.True(t, r.isVisible("c"))
}

func TestExclusiveDefaultIsFirstFlagged(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", false), assetDesc("b", true), assetDesc("c", true)))
	m := newTestManager(t, configs, newFakeRenderer(), WithToggleMode(ToggleExclusive))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	items := m.SplatItems()
	assert.False(t, itemByID(items, "a").Visible)
	assert.True(t, itemByID(items, "b").Visible)
	assert.False(t, itemByID(items, "c").Visible)
}

func TestIndependentDefaultFallsBackToFirst(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", false), assetDesc("b", false)))
	m := newTestManager(t, configs, newFakeRenderer())

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	items := m.SplatItems()
	assert.True(t, itemByID(items, "a").Visible)
	assert.False(t, itemByID(items, "b").Visible)
}

func TestActivateRequiresExclusiveMode(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	m := newTestManager(t, configs, newFakeRenderer())

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	_, err = m.ActivateSplat(context.Background(), "b")
	assert.ErrorIs(t, err, ErrToggleMode)
}

func TestSceneLoadSupersededDuringConfigFetch(t *testing.T) {
	configs := newFakeConfigs(
		demoScene("alpha", assetDesc("a1", true)),
		demoScene("beta", assetDesc("b1", true)),
	)
	gate := configs.gate("alpha")
	r := newFakeRenderer()
	m := newTestManager(t, configs, r)

	first := make(chan *config.SceneConfiguration, 1)
	firstErr := make(chan error, 1)
	go func() {
		cfg, err := m.LoadScene(context.Background(), "alpha")
		first <- cfg
		firstErr <- err
	}()
	require.Eventually(t, func() bool { return configs.callCount() == 1 }, waitFor, pollAt)

	cfg, err := m.LoadScene(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", cfg.ID)

	close(gate)
	stale := <-first
	require.NoError(t, <-firstErr)
	require.NotNil(t, stale)
	assert.Equal(t, "beta", stale.ID)
	assert.Equal(t, "beta", m.ActiveConfig().ID)
	assert.Zero(t, r.loadCount("a1"))
}

func TestSceneLoadSupersededDuringAssetLoad(t *testing.T) {
	configs := newFakeConfigs(
		demoScene("alpha", assetDesc("a1", true)),
		demoScene("beta", assetDesc("b1", true)),
	)
	r := newFakeRenderer()
	gate := r.gate("a1")
	m := newTestManager(t, configs, r)

	first := make(chan *config.SceneConfiguration, 1)
	go func() {
		cfg, _ := m.LoadScene(context.Background(), "alpha")
		first <- cfg
	}()
	require.Eventually(t, func() bool { return r.loadCount("a1") == 1 }, waitFor, pollAt)

	cfg, err := m.LoadScene(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", cfg.ID)

	close(gate)
	stale := <-first
	require.NotNil(t, stale)
	assert.Equal(t, "beta", stale.ID)

	// The late handle belongs to a scene that is gone and must not leak.
	assert.Eventually(t, func() bool {
		ids := r.liveIDs()
		return len(ids) == 1 && ids[0] == "b1"
	}, waitFor, pollAt)
	items := m.SplatItems()
	require.Len(t, items, 1)
	assert.Equal(t, "b1", items[0].ID)
}

func TestConcurrentLoadsOfSameAssetAreShared(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r, WithLoadPolicy(LoadFirstOnly)).(*manager)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	gate := r.gate("b")
	gen := m.generation()
	handles := make([]splat.Handle, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range handles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			handles[i], errs[i] = m.ensureLoaded(context.Background(), gen, "b")
		}()
	}
	require.Eventually(t, func() bool { return r.loadCount("b") == 1 }, waitFor, pollAt)
	close(gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	assert.Same(t, handles[0], handles[1])
	assert.Equal(t, 1, r.loadCount("b"))

	m.mu.Lock()
	assert.Empty(t, m.inFlight)
	m.mu.Unlock()
}

func TestFailedAssetIsIsolated(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", true), assetDesc("c", false)))
	r := newFakeRenderer()
	r.failOn("b")
	m := newTestManager(t, configs, r, WithLoadPolicy(LoadAll))

	cfg, err := m.LoadScene(context.Background(), "alpha")
	require.Error(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "alpha", cfg.ID)

	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, KindAssetLoad, loadErr.Kind)
	require.Len(t, loadErr.Details, 1)
	assert.Contains(t, loadErr.Details[0], "B")
	assert.Contains(t, loadErr.Details[0], "b.ply")
	assert.Equal(t, StateAssetLoadFailed, m.State())

	items := m.SplatItems()
	assert.True(t, itemByID(items, "a").Loaded)
	assert.True(t, itemByID(items, "c").Loaded)
	failed := itemByID(items, "b")
	assert.True(t, failed.Failed)
	assert.False(t, failed.Visible)
	assert.Error(t, failed.Error)

	_, err = m.SetSplatVisible(context.Background(), "b", true)
	assert.ErrorIs(t, err, ErrSplatUnavailable)

	visible, err := m.SetSplatVisible(context.Background(), "c", true)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.True(t, r.isVisible("c"))
}

func TestLazyLoadFailureReportsAssetError(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	r.failOn("b")
	m := newTestManager(t, configs, r, WithLoadPolicy(LoadFirstOnly))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	visible, err := m.SetSplatVisible(context.Background(), "b", true)
	assert.False(t, visible)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, KindAssetLoad, loadErr.Kind)

	b := itemByID(m.SplatItems(), "b")
	assert.True(t, b.Failed)
	assert.False(t, b.Visible)
	assert.False(t, r.isVisible("b"))
}

func TestConfigurationErrorKeepsPreviousScene(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	m := newTestManager(t, configs, newFakeRenderer())

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	cfg, err := m.LoadScene(context.Background(), "missing")
	assert.Nil(t, cfg)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, KindConfiguration, loadErr.Kind)
	assert.Contains(t, loadErr.Summary, "scene not found")
	assert.Equal(t, []string{"missing: no descriptor"}, loadErr.Details)

	var cfgErr *config.Error
	assert.ErrorAs(t, err, &cfgErr)

	assert.Equal(t, StateConfigLoadFailed, m.State())
	assert.Equal(t, "alpha", m.ActiveConfig().ID)
	assert.Len(t, m.SplatItems(), 1)
}

func TestUnknownSplat(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	m := newTestManager(t, configs, newFakeRenderer())

	_, err := m.SetSplatVisible(context.Background(), "a", true)
	assert.ErrorIs(t, err, ErrUnknownSplat)

	_, err = m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	_, err = m.SetSplatVisible(context.Background(), "nope", true)
	assert.ErrorIs(t, err, ErrUnknownSplat)
	assert.Contains(t, err.Error(), `"nope"`)
}

func TestDisposeIsIdempotentAndRestartable(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", true)))
	r := newFakeRenderer()
	obs := &recordingObserver{}
	m := newTestManager(t, configs, r, WithSurface(fakeSurface{}), WithObserver(obs), WithLoadPolicy(LoadAll))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	before := m.Version()

	m.Dispose()
	m.Dispose()

	assert.Equal(t, 1, r.disposes)
	assert.Equal(t, 2, r.removes)
	assert.Empty(t, r.liveIDs())
	assert.Empty(t, m.SplatItems())
	assert.Nil(t, m.ActiveConfig())
	assert.Equal(t, StateIdle, m.State())
	assert.Greater(t, m.Version(), before)

	obs.mu.Lock()
	last := obs.changes[len(obs.changes)-1]
	obs.mu.Unlock()
	assert.Empty(t, last)

	cfg, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, "alpha", cfg.ID)
	assert.Equal(t, 2, r.inits)
	assert.Len(t, m.SplatItems(), 2)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	assert.True(t, r.isVisible("a"))
}

func TestBackgroundPreloadFollowsConfigurationOrder(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha",
		assetDesc("a", false), assetDesc("b", true), assetDesc("c", false), assetDesc("d", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	require.Eventually(t, func() bool { return r.loadCount("d") == 1 }, waitFor, pollAt)
	assert.Equal(t, []string{"b", "a", "c", "d"}, r.loadOrder())
	for _, it := range m.SplatItems() {
		assert.True(t, it.Loaded, it.ID)
	}
}

func TestFirstOnlyLoadsOnToggle(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	m := newTestManager(t, configs, r, WithLoadPolicy(LoadFirstOnly))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Never(t, func() bool { return r.loadCount("b") > 0 }, 50*time.Millisecond, pollAt)
	assert.False(t, itemByID(m.SplatItems(), "b").Loaded)

	visible, err := m.SetSplatVisible(context.Background(), "b", true)
	require.NoError(t, err)
	assert.True(t, visible)
	assert.Equal(t, 1, r.loadCount("b"))
	assert.True(t, r.isVisible("b"))
	assert.Equal(t, float32(0), r.shownWith("b").RevealY)
}

func TestPreloadStopsWhenSceneChanges(t *testing.T) {
	configs := newFakeConfigs(
		demoScene("alpha", assetDesc("a1", true), assetDesc("a2", false), assetDesc("a3", false)),
		demoScene("beta", assetDesc("b1", true)),
	)
	r := newFakeRenderer()
	gate := r.gate("a2")
	m := newTestManager(t, configs, r)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.Eventually(t, func() bool { return r.loadCount("a2") == 1 }, waitFor, pollAt)

	_, err = m.LoadScene(context.Background(), "beta")
	require.NoError(t, err)
	close(gate)

	assert.Never(t, func() bool { return r.loadCount("a3") > 0 }, 100*time.Millisecond, pollAt)
	assert.Eventually(t, func() bool {
		ids := r.liveIDs()
		return len(ids) == 1 && ids[0] == "b1"
	}, waitFor, pollAt)
}

func TestVersionIsMonotonic(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	m := newTestManager(t, configs, newFakeRenderer())

	v0 := m.Version()
	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	v1 := m.Version()
	assert.Greater(t, v1, v0)

	_, err = m.SetSplatVisible(context.Background(), "b", true)
	require.NoError(t, err)
	v2 := m.Version()
	assert.Greater(t, v2, v1)

	m.Dispose()
	assert.Greater(t, m.Version(), v2)
}

func TestReturnedValuesAreCopies(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	m := newTestManager(t, configs, newFakeRenderer())

	cfg, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	cfg.Title = "changed"
	cfg.Assets[0].Label = "changed"
	assert.Equal(t, "ALPHA", m.ActiveConfig().Title)
	assert.Equal(t, "A", m.ActiveConfig().Assets[0].Label)

	items := m.SplatItems()
	items[0].Visible = false
	assert.True(t, m.SplatItems()[0].Visible)
}

func TestDisabledRevealShowsWithoutFrames(t *testing.T) {
	s := demoScene("alpha", assetDesc("a", true))
	s.Reveal.Enabled = false
	configs := newFakeConfigs(s)
	r := newFakeRenderer()
	frames := reveal.NewSteppedFrames(time.Unix(0, 0), 50*time.Millisecond)
	m := newTestManager(t, configs, r, WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(frames))))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))

	h := r.handle("a")
	require.NotNil(t, h)
	assert.Zero(t, frames.Calls())
	assert.Equal(t, splat.Shown(h.Bounds()), h.last())
	assert.False(t, r.shownWith("a").Enabled)

	visible, err := m.SetSplatVisible(context.Background(), "a", false)
	require.NoError(t, err)
	assert.False(t, visible)
	assert.False(t, r.isVisible("a"))
	assert.Zero(t, frames.Calls())
}

func TestRevealCancelled(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true)))
	r := newFakeRenderer()
	clock := reveal.NewFrameClock()
	m := newTestManager(t, configs, r, WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(clock))))

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = m.RevealActiveScene(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.True(t, r.isVisible("a"))
}

func TestStaleGuardDropsFramesOnceSuperseded(t *testing.T) {
	var mu sync.Mutex
	current := true
	h := &fakeHandle{id: "a", bounds: common.VerticalBounds{MaxY: 1}}
	g := &staleGuard{Handle: h, mu: &mu, isCurrent: func() bool { return current }}

	g.SetRevealParams(splat.RevealParams{Enabled: true, RevealY: 0.5})
	current = false
	g.SetRevealParams(splat.RevealParams{Enabled: true, RevealY: 0.9})

	assert.Equal(t, float32(0.5), h.last().RevealY)
	assert.Equal(t, "a", g.ID())
}

func TestLoadErrorMessage(t *testing.T) {
	cause := errors.New("boom")
	err := &LoadError{Kind: KindAssetLoad, Summary: "scene \"x\": 2 asset(s) failed to load", Details: []string{"A: boom", "B: boom"}, Err: cause}
	assert.Equal(t, `scene "x": 2 asset(s) failed to load: A: boom; B: boom`, err.Error())
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "asset load", KindAssetLoad.String())
	assert.Equal(t, "configuration", KindConfiguration.String())

	bare := &LoadError{Summary: "failed"}
	assert.Equal(t, "failed", bare.Error())
}

func TestStringers(t *testing.T) {
	assert.Equal(t, "ready", StateReady.String())
	assert.Equal(t, "asset transitioning", StateAssetTransitioning.String())
	assert.Equal(t, "exclusive", ToggleExclusive.String())
	assert.Equal(t, "independent", ToggleIndependent.String())
	assert.Equal(t, "first-then-background", LoadFirstThenBackground.String())
}

// holdFirstFrame ticks clock without advancing time until h receives a new frame, leaving the
// running sweep parked on its first frame.
func holdFirstFrame(t *testing.T, clock reveal.FrameClock, h *fakeHandle) {
	t.Helper()
	before := h.count()
	require.Eventually(t, func() bool {
		clock.Tick(time.Unix(0, 0))
		return h.count() > before
	}, waitFor, pollAt)
}

func TestActivateSupersededByFailedSceneLoadIsRolledBack(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	clock := reveal.NewFrameClock()
	m := newTestManager(t, configs, r,
		WithToggleMode(ToggleExclusive),
		WithLoadPolicy(LoadAll),
		WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(clock))),
	)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	stop := tickClock(clock)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	stop()

	a := r.handle("a")
	require.NotNil(t, a)
	activated := make(chan toggleResult, 1)
	go func() {
		v, err := m.ActivateSplat(context.Background(), "b")
		activated <- toggleResult{visible: v, err: err}
	}()
	holdFirstFrame(t, clock, a)

	_, err = m.LoadScene(context.Background(), "missing")
	var le *LoadError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, KindConfiguration, le.Kind)

	stop = tickClock(clock)
	defer stop()
	assert.Equal(t, toggleResult{visible: false}, receive(t, activated))

	// a stays the active item and is fully shown again after its interrupted retire.
	items := m.SplatItems()
	assert.True(t, itemByID(items, "a").Visible)
	assert.False(t, itemByID(items, "b").Visible)
	assert.True(t, r.isVisible("a"))
	assert.False(t, r.isVisible("b"))
	assert.Equal(t, splat.Shown(a.Bounds()), a.last())

	// Both items still toggle.
	visible, err := m.SetSplatVisible(context.Background(), "a", false)
	require.NoError(t, err)
	assert.False(t, visible)
	assert.False(t, r.isVisible("a"))

	active, err := m.ActivateSplat(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, active)
	items = m.SplatItems()
	assert.False(t, itemByID(items, "a").Visible)
	assert.True(t, itemByID(items, "b").Visible)
	assert.True(t, r.isVisible("b"))
}

func TestHideSupersededByFailedSceneLoadIsRolledBack(t *testing.T) {
	configs := newFakeConfigs(demoScene("alpha", assetDesc("a", true), assetDesc("b", false)))
	r := newFakeRenderer()
	clock := reveal.NewFrameClock()
	m := newTestManager(t, configs, r,
		WithToggleMode(ToggleExclusive),
		WithLoadPolicy(LoadAll),
		WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(clock))),
	)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	stop := tickClock(clock)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	stop()

	a := r.handle("a")
	hidden := make(chan toggleResult, 1)
	go func() {
		v, err := m.SetSplatVisible(context.Background(), "a", false)
		hidden <- toggleResult{visible: v, err: err}
	}()
	holdFirstFrame(t, clock, a)

	_, err = m.LoadScene(context.Background(), "missing")
	require.Error(t, err)

	stop = tickClock(clock)
	defer stop()
	assert.Equal(t, toggleResult{visible: true}, receive(t, hidden))
	assert.True(t, r.isVisible("a"))
	assert.Equal(t, splat.Shown(a.Bounds()), a.last())

	// The active item is restored, so activating it again is a no-op and b still activates.
	calls := r.calls()
	active, err := m.ActivateSplat(context.Background(), "a")
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, calls, r.calls())

	active, err = m.ActivateSplat(context.Background(), "b")
	require.NoError(t, err)
	assert.True(t, active)
	assert.False(t, r.isVisible("a"))
	assert.True(t, r.isVisible("b"))
}

func TestSceneSwitchRetiresWithPreviousPolicyBeforeClearing(t *testing.T) {
	alpha := demoScene("alpha", assetDesc("a", true))
	alpha.Reveal.Band = 0.5
	beta := demoScene("beta", assetDesc("b", true))
	beta.Reveal.Band = 0.9
	configs := newFakeConfigs(alpha, beta)
	r := newFakeRenderer()
	m := newTestManager(t, configs, r)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	a := r.handle("a")
	require.NotNil(t, a)

	cfg, err := m.LoadScene(context.Background(), "beta")
	require.NoError(t, err)
	assert.Equal(t, "beta", cfg.ID)

	retired := splat.RevealParams{Enabled: true, RevealY: 0, Band: 0.5, AffectAlpha: true, AffectSize: true}
	assert.Equal(t, retired, a.last())
	// The reveal-out finished before the renderer was cleared.
	assert.Equal(t, retired, r.clearedWith("a"))
	assert.Equal(t, []string{"b"}, r.liveIDs())
	assert.Equal(t, float32(0.9), r.handle("b").last().Band)
}

func TestAbandonedSceneSwitchRestoresRetiredItems(t *testing.T) {
	configs := newFakeConfigs(
		demoScene("alpha", assetDesc("a1", true), assetDesc("a2", true)),
		demoScene("beta", assetDesc("b1", true)),
	)
	r := newFakeRenderer()
	clock := reveal.NewFrameClock()
	m := newTestManager(t, configs, r,
		WithLoadPolicy(LoadAll),
		WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(clock))),
	)

	_, err := m.LoadScene(context.Background(), "alpha")
	require.NoError(t, err)
	stop := tickClock(clock)
	require.NoError(t, m.RevealActiveScene(context.Background()))
	stop()
	clears := r.clearCount()

	a1, a2 := r.handle("a1"), r.handle("a2")
	switched := make(chan *config.SceneConfiguration, 1)
	switchErr := make(chan error, 1)
	go func() {
		cfg, err := m.LoadScene(context.Background(), "beta")
		switched <- cfg
		switchErr <- err
	}()
	holdFirstFrame(t, clock, a1)
	assert.Equal(t, StatePriorAssetsRetiring, m.State())

	_, err = m.LoadScene(context.Background(), "missing")
	require.Error(t, err)

	stop = tickClock(clock)
	defer stop()
	select {
	case cfg := <-switched:
		require.NoError(t, <-switchErr)
		require.NotNil(t, cfg)
		assert.Equal(t, "alpha", cfg.ID)
	case <-time.After(5 * time.Second):
		t.Fatal("scene switch did not finish")
	}

	assert.Equal(t, splat.Shown(a1.Bounds()), a1.last())
	assert.Equal(t, splat.Shown(a2.Bounds()), a2.last())
	assert.True(t, r.isVisible("a1"))
	assert.True(t, r.isVisible("a2"))
	assert.Equal(t, clears, r.clearCount())
	assert.Zero(t, r.loadCount("b1"))
	assert.Equal(t, "alpha", m.ActiveConfig().ID)
}
