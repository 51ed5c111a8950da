// Package presenter connects a scene manager to the viewer's window and camera: it mirrors
// loading progress in the window title, frames the camera when a scene is ready, starts the
// reveal and maps keyboard and mouse input to toggles, scene switches and camera moves.
package presenter

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/scene"
	"github.com/Carmen-Shannon/oxy-splat/engine/window"
)

// TitleSetter receives the window title. window.Window satisfies it.
type TitleSetter interface {
	SetTitle(title string)
}

// FitSource reports the bounds the camera should frame. renderer.Renderer satisfies it.
type FitSource interface {
	FitData() (common.FitData, bool)
}

// presenter is the implementation of the Presenter interface.
type presenter struct {
	mu sync.Mutex

	manager scene.Manager
	camera  camera.Camera
	fit     FitSource
	title   TitleSetter
	logger  *slog.Logger

	appName  string
	sceneIDs []string

	// pending is the scene most recently requested; active the one most recently ready.
	pending string
	active  *config.SceneConfiguration
	items   []scene.SplatToggleItem

	orbitSensitivity float32
	panSensitivity   float32

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	closed bool
}

// Presenter drives a scene manager from user input and reflects its events on screen.
// It is the manager's scene.Observer. Input handlers never block: manager calls run on
// background goroutines owned by the presenter.
type Presenter interface {
	scene.Observer

	// Open starts loading a scene.
	//
	// Parameters:
	//   - sceneID: the scene to load
	Open(sceneID string)

	// Reload loads sceneID again if it is the scene currently shown or requested. It is meant
	// for descriptor hot reload.
	//
	// Parameters:
	//   - sceneID: the scene whose descriptor changed
	Reload(sceneID string)

	// HandleKey maps a key press to an action: 1-9 toggle an item, [ and ] cycle scenes,
	// R replays the current scene, F re-frames the camera and the arrow keys orbit.
	//
	// Parameters:
	//   - keyCode: the key code, see common.Key*
	HandleKey(keyCode uint32)

	// HandleDrag orbits with the left button and pans with the right or middle button.
	//
	// Parameters:
	//   - button: the held mouse button
	//   - dx: horizontal cursor movement in pixels
	//   - dy: vertical cursor movement in pixels
	HandleDrag(button window.MouseButton, dx, dy float32)

	// HandleScroll zooms the camera.
	//
	// Parameters:
	//   - delta: scroll wheel offset, positive away from the user
	HandleScroll(delta float32)

	// Frame points the camera at the renderer's fit data.
	Frame()

	// Items returns the last toggle items reported by the manager.
	Items() []scene.SplatToggleItem

	// Manager returns the scene manager the presenter drives.
	Manager() scene.Manager

	// Close stops pending work and waits for it to finish. The manager is not disposed.
	Close()
}

var _ Presenter = &presenter{}

// NewPresenter creates a Presenter and its scene manager. newManager receives the presenter as
// observer and must return the manager to drive.
//
// Parameters:
//   - newManager: builds the scene manager
//   - options: functional options to configure the presenter
//
// Returns:
//   - Presenter: the new presenter
func NewPresenter(newManager func(observer scene.Observer) scene.Manager, options ...PresenterBuilderOption) Presenter {
	if newManager == nil {
		panic("presenter: NewPresenter requires a manager factory")
	}
	p := &presenter{
		logger:           slog.Default(),
		appName:          "oxy-splat",
		orbitSensitivity: 0.005,
		panSensitivity:   0.05,
	}
	for _, opt := range options {
		opt(p)
	}
	p.ctx, p.cancel = context.WithCancel(context.Background())
	p.manager = newManager(p)
	if p.manager == nil {
		panic("presenter: manager factory returned nil")
	}
	return p
}

func (p *presenter) OnLoading(message string) {
	p.mu.Lock()
	name := p.pending
	p.mu.Unlock()
	if name == "" {
		p.setTitle(fmt.Sprintf("%s - %s", p.appName, message))
		return
	}
	p.setTitle(fmt.Sprintf("%s - %s - %s", p.appName, name, message))
}

func (p *presenter) OnReady(cfg *config.SceneConfiguration) {
	if cfg == nil {
		return
	}
	p.mu.Lock()
	p.active = cfg
	p.mu.Unlock()

	name := cfg.Title
	if name == "" {
		name = cfg.ID
	}
	p.setTitle(fmt.Sprintf("%s - %s", p.appName, name))
	p.Frame()
	p.logger.Info("scene ready", "scene", cfg.ID, "assets", len(cfg.Assets))

	p.spawn(func(ctx context.Context) {
		if err := p.manager.RevealActiveScene(ctx); err != nil && ctx.Err() == nil {
			p.logger.Warn("reveal failed", "scene", cfg.ID, "error", err)
		}
	})
}

func (p *presenter) OnItemsChanged(items []scene.SplatToggleItem) {
	p.mu.Lock()
	p.items = slices.Clone(items)
	p.mu.Unlock()
	p.logger.Debug("toggle items changed", "items", len(items))
}

func (p *presenter) Open(sceneID string) {
	p.mu.Lock()
	p.pending = sceneID
	p.mu.Unlock()

	p.spawn(func(ctx context.Context) {
		if _, err := p.manager.LoadScene(ctx, sceneID); err != nil && ctx.Err() == nil {
			p.logger.Error("scene load failed", "scene", sceneID, "error", err)
			p.setTitle(fmt.Sprintf("%s - %s - failed", p.appName, sceneID))
		}
	})
}

func (p *presenter) Reload(sceneID string) {
	p.mu.Lock()
	match := p.pending == sceneID || (p.active != nil && p.active.ID == sceneID)
	p.mu.Unlock()
	if !match {
		return
	}
	p.logger.Info("scene descriptor changed, reloading", "scene", sceneID)
	p.Open(sceneID)
}

func (p *presenter) HandleKey(keyCode uint32) {
	if slot, ok := common.DigitIndex(keyCode); ok {
		p.toggleSlot(slot)
		return
	}
	switch keyCode {
	case common.KeyLeftBracket:
		p.cycle(-1)
	case common.KeyRightBracket:
		p.cycle(1)
	case common.KeyR:
		p.replay()
	case common.KeyF:
		p.Frame()
	case common.KeyLeft, common.KeyRight, common.KeyUp, common.KeyDown:
		p.orbitStep(keyCode)
	}
}

func (p *presenter) HandleDrag(button window.MouseButton, dx, dy float32) {
	ctrl := p.controller()
	if ctrl == nil {
		return
	}
	switch button {
	case window.MouseButtonLeft:
		ctrl.SetAzimuth(ctrl.Azimuth() - dx*p.orbitSensitivity)
		ctrl.SetElevation(ctrl.Elevation() + dy*p.orbitSensitivity)
	case window.MouseButtonRight, window.MouseButtonMiddle:
		ctrl.PanRight(-dx * p.panSensitivity)
		ctrl.PanUp(dy * p.panSensitivity)
	}
}

func (p *presenter) HandleScroll(delta float32) {
	if ctrl := p.controller(); ctrl != nil {
		ctrl.Zoom(delta)
	}
}

func (p *presenter) Frame() {
	if p.camera == nil || p.fit == nil {
		return
	}
	fit, ok := p.fit.FitData()
	if !ok {
		return
	}
	p.camera.FitTo(fit)
}

func (p *presenter) Items() []scene.SplatToggleItem {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.items)
}

func (p *presenter) Manager() scene.Manager {
	return p.manager
}

func (p *presenter) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
	p.cancel()
	p.wg.Wait()
}

// toggleSlot flips the item at slot, or activates it in exclusive mode.
func (p *presenter) toggleSlot(slot int) {
	p.mu.Lock()
	if slot >= len(p.items) {
		p.mu.Unlock()
		return
	}
	it := p.items[slot]
	p.mu.Unlock()

	if it.Failed {
		p.logger.Warn("splat unavailable", "asset", it.ID, "error", it.Error)
		return
	}
	p.spawn(func(ctx context.Context) {
		var err error
		if p.manager.ToggleMode() == scene.ToggleExclusive {
			_, err = p.manager.ActivateSplat(ctx, it.ID)
		} else {
			_, err = p.manager.SetSplatVisible(ctx, it.ID, !it.Visible)
		}
		if err != nil && ctx.Err() == nil {
			p.logger.Warn("toggle failed", "asset", it.ID, "error", err)
		}
	})
}

// cycle opens the scene step positions away from the current one in the configured list.
func (p *presenter) cycle(step int) {
	p.mu.Lock()
	if len(p.sceneIDs) == 0 {
		p.mu.Unlock()
		return
	}
	current := p.pending
	if p.active != nil && current == "" {
		current = p.active.ID
	}
	next := 0
	if i := slices.Index(p.sceneIDs, current); i >= 0 {
		n := len(p.sceneIDs)
		next = ((i+step)%n + n) % n
	}
	id := p.sceneIDs[next]
	p.mu.Unlock()
	p.Open(id)
}

// replay loads the current scene again, which retires and reveals it anew.
func (p *presenter) replay() {
	p.mu.Lock()
	id := p.pending
	if id == "" && p.active != nil {
		id = p.active.ID
	}
	p.mu.Unlock()
	if id != "" {
		p.Open(id)
	}
}

func (p *presenter) orbitStep(keyCode uint32) {
	ctrl := p.controller()
	if ctrl == nil {
		return
	}
	switch keyCode {
	case common.KeyLeft:
		ctrl.OrbitLeft()
	case common.KeyRight:
		ctrl.OrbitRight()
	case common.KeyUp:
		ctrl.OrbitUp()
	case common.KeyDown:
		ctrl.OrbitDown()
	}
}

func (p *presenter) controller() camera.CameraController {
	if p.camera == nil {
		return nil
	}
	return p.camera.Controller()
}

func (p *presenter) setTitle(title string) {
	if p.title != nil {
		p.title.SetTitle(title)
	}
}

// spawn runs fn on a tracked goroutine unless the presenter is closed.
func (p *presenter) spawn(fn func(ctx context.Context)) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		fn(p.ctx)
	}()
}
