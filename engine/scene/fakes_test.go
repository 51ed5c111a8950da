package scene

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer"
	"github.com/Carmen-Shannon/oxy-splat/engine/reveal"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

func testPolicy() config.RevealPolicy {
	return config.RevealPolicy{
		Enabled:     true,
		DurationMs:  300,
		Band:        0.12,
		Ease:        config.EaseInOut,
		AffectAlpha: true,
		AffectSize:  true,
	}
}

func demoScene(id string, assets ...config.AssetDescriptor) *config.SceneConfiguration {
	return &config.SceneConfiguration{
		ID:            id,
		Title:         strings.ToUpper(id),
		FormatVersion: config.DefaultFormatVersion,
		Assets:        assets,
		Reveal:        testPolicy(),
	}
}

func assetDesc(id string, visible bool) config.AssetDescriptor {
	return config.AssetDescriptor{
		ID:        id,
		Label:     strings.ToUpper(id),
		Source:    id + ".ply",
		Transform: common.IdentityTransform(),
		Visible:   visible,
	}
}

// fakeConfigs serves scene configurations from memory. A gated scene blocks until its gate closes.
type fakeConfigs struct {
	mu     sync.Mutex
	scenes map[string]*config.SceneConfiguration
	gates  map[string]chan struct{}
	calls  int
}

var _ config.Loader = &fakeConfigs{}

func newFakeConfigs(scenes ...*config.SceneConfiguration) *fakeConfigs {
	f := &fakeConfigs{
		scenes: make(map[string]*config.SceneConfiguration),
		gates:  make(map[string]chan struct{}),
	}
	for _, s := range scenes {
		f.scenes[s.ID] = s
	}
	return f
}

func (f *fakeConfigs) gate(sceneID string) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	g := make(chan struct{})
	f.gates[sceneID] = g
	return g
}

func (f *fakeConfigs) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeConfigs) LoadSceneConfig(ctx context.Context, sceneID string) (*config.SceneConfiguration, error) {
	f.mu.Lock()
	f.calls++
	g := f.gates[sceneID]
	cfg, ok := f.scenes[sceneID]
	f.mu.Unlock()

	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if !ok {
		return nil, &config.Error{Message: "scene not found", Details: []string{sceneID + ": no descriptor"}}
	}
	return cfg.Clone(), nil
}

// fakeHandle records every reveal update it receives.
type fakeHandle struct {
	mu       sync.Mutex
	id       string
	bounds   common.VerticalBounds
	params   []splat.RevealParams
	disposed bool
}

var _ splat.Handle = &fakeHandle{}

func (h *fakeHandle) ID() string { return h.id }

func (h *fakeHandle) Bounds() common.VerticalBounds {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.bounds
}

func (h *fakeHandle) SetRevealBounds(b common.VerticalBounds) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.bounds = b
}

func (h *fakeHandle) SetRevealParams(p splat.RevealParams) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.params = append(h.params, p)
}

func (h *fakeHandle) Dispose() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.disposed = true
}

func (h *fakeHandle) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.params)
}

func (h *fakeHandle) last() splat.RevealParams {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.params) == 0 {
		return splat.RevealParams{}
	}
	return h.params[len(h.params)-1]
}

// fakeRenderer tracks loads, visibility and live handles. Gated assets block in LoadSplat until
// their gate closes; failing assets return an error naming the source.
type fakeRenderer struct {
	mu sync.Mutex

	loads map[string]int
	order []string
	gates map[string]chan struct{}
	fail  map[string]bool

	live        map[*fakeHandle]bool
	visible     map[string]bool
	showParams  map[string]splat.RevealParams
	clearParams map[string]splat.RevealParams

	setVisibleCalls int
	clears          int
	removes         int
	disposes        int
	inits           int
}

var _ renderer.Renderer = &fakeRenderer{}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{
		loads:       make(map[string]int),
		gates:       make(map[string]chan struct{}),
		fail:        make(map[string]bool),
		live:        make(map[*fakeHandle]bool),
		visible:     make(map[string]bool),
		showParams:  make(map[string]splat.RevealParams),
		clearParams: make(map[string]splat.RevealParams),
	}
}

func (r *fakeRenderer) gate(id string) chan struct{} {
	r.mu.Lock()
	defer r.mu.Unlock()
	g := make(chan struct{})
	r.gates[id] = g
	return g
}

func (r *fakeRenderer) failOn(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fail[id] = true
}

func (r *fakeRenderer) loadCount(id string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loads[id]
}

func (r *fakeRenderer) loadOrder() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

func (r *fakeRenderer) isVisible(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[id]
}

func (r *fakeRenderer) shownWith(id string) splat.RevealParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.showParams[id]
}

// clearedWith returns the reveal parameters id carried when the renderer was last cleared.
func (r *fakeRenderer) clearedWith(id string) splat.RevealParams {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clearParams[id]
}

func (r *fakeRenderer) clearCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.clears
}

func (r *fakeRenderer) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setVisibleCalls
}

func (r *fakeRenderer) liveIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.live))
	for h := range r.live {
		ids = append(ids, h.id)
	}
	sort.Strings(ids)
	return ids
}

func (r *fakeRenderer) handle(id string) *fakeHandle {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.live {
		if h.id == id {
			return h
		}
	}
	return nil
}

func (r *fakeRenderer) Initialize(renderer.Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.inits++
	return nil
}

func (r *fakeRenderer) LoadSplat(ctx context.Context, a config.AssetDescriptor) (splat.Handle, error) {
	r.mu.Lock()
	r.loads[a.ID]++
	r.order = append(r.order, a.ID)
	g := r.gates[a.ID]
	fail := r.fail[a.ID]
	r.mu.Unlock()

	if g != nil {
		select {
		case <-g:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if fail {
		return nil, fmt.Errorf("splat %q: failed to load %s (supported formats: .ply, .splat)", a.ID, a.Source)
	}
	h := &fakeHandle{id: a.ID, bounds: common.VerticalBounds{MinY: 0, MaxY: 2}}
	r.mu.Lock()
	r.live[h] = true
	r.mu.Unlock()
	return h, nil
}

func (r *fakeRenderer) LoadSplats(ctx context.Context, assets []config.AssetDescriptor) ([]splat.Handle, error) {
	out := make([]splat.Handle, len(assets))
	var errs []error
	for i, a := range assets {
		h, err := r.LoadSplat(ctx, a)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out[i] = h
	}
	return out, errors.Join(errs...)
}

func (r *fakeRenderer) SetVisible(id string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setVisibleCalls++
	r.visible[id] = visible
	if !visible {
		return
	}
	for h := range r.live {
		if h.id == id {
			r.showParams[id] = h.last()
		}
	}
}

func (r *fakeRenderer) Remove(h splat.Handle) {
	fh := h.(*fakeHandle)
	fh.Dispose()
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.live, fh)
	r.removes++
}

func (r *fakeRenderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for h := range r.live {
		r.clearParams[h.id] = h.last()
	}
	r.live = make(map[*fakeHandle]bool)
	r.visible = make(map[string]bool)
	r.clears++
}

func (r *fakeRenderer) FitData() (common.FitData, bool) { return common.FitData{}, false }
func (r *fakeRenderer) Update() error                   { return nil }
func (r *fakeRenderer) Render() error                   { return nil }
func (r *fakeRenderer) Resize(int, int)                 {}

func (r *fakeRenderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.live = make(map[*fakeHandle]bool)
	r.visible = make(map[string]bool)
	r.disposes++
}

type fakeSurface struct{}

func (fakeSurface) SurfaceDescriptor() *wgpu.SurfaceDescriptor { return nil }
func (fakeSurface) Width() int                                 { return 640 }
func (fakeSurface) Height() int                                { return 480 }

// recordingObserver keeps every event.
type recordingObserver struct {
	mu      sync.Mutex
	loading []string
	ready   []*config.SceneConfiguration
	changes [][]SplatToggleItem
}

func (o *recordingObserver) OnLoading(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.loading = append(o.loading, message)
}

func (o *recordingObserver) OnReady(cfg *config.SceneConfiguration) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ready = append(o.ready, cfg)
}

func (o *recordingObserver) OnItemsChanged(items []SplatToggleItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.changes = append(o.changes, items)
}

func (o *recordingObserver) snapshot() ([]string, int, int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.loading...), len(o.ready), len(o.changes)
}

// newTestManager builds a manager whose animations step through frames without waiting.
func newTestManager(t *testing.T, configs config.Loader, r renderer.Renderer, options ...ManagerBuilderOption) Manager {
	t.Helper()
	frames := reveal.NewSteppedFrames(time.Unix(0, 0), 50*time.Millisecond)
	opts := append([]ManagerBuilderOption{
		WithAnimator(reveal.NewAnimator(reveal.WithFrameSource(frames))),
		WithWorkers(4),
	}, options...)
	m := NewManager(configs, r, opts...)
	t.Cleanup(m.Dispose)
	return m
}

// tickClock drives clock until the returned stop function is called.
func tickClock(clock reveal.FrameClock) func() {
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		now := time.Unix(0, 0)
		for {
			select {
			case <-stop:
				return
			default:
			}
			now = now.Add(20 * time.Millisecond)
			clock.Tick(now)
			time.Sleep(time.Millisecond)
		}
	}()
	return func() {
		close(stop)
		<-done
	}
}

type toggleResult struct {
	visible bool
	err     error
}

func receive(t *testing.T, ch <-chan toggleResult) toggleResult {
	t.Helper()
	select {
	case res := <-ch:
		return res
	case <-time.After(5 * time.Second):
		t.Fatal("toggle did not finish")
		return toggleResult{}
	}
}
