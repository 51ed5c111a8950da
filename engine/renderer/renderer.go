package renderer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Carmen-Shannon/oxy-splat/common"
	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/config"
	"github.com/Carmen-Shannon/oxy-splat/engine/loader"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/splat"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrNotInitialized is returned by Render before Initialize or after Dispose.
var ErrNotInitialized = errors.New("renderer is not initialized")

// Surface is what the renderer draws into. window.Window satisfies it.
type Surface interface {
	SurfaceDescriptor() *wgpu.SurfaceDescriptor
	Width() int
	Height() int
}

// entry is one loaded asset tracked by the renderer.
type entry struct {
	serial  uint64
	handle  *splatHandle
	cloud   *loader.Cloud
	world   common.Box
	visible bool

	// detached entries were loaded across a Clear; they are never drawn and wait for Remove.
	detached bool
	failed   bool

	provider bind_group_provider.BindGroupProvider
}

// renderer is the implementation of the Renderer interface.
type renderer struct {
	mu *sync.Mutex

	backend    RendererBackend
	newBackend backendFactory
	pipeline   pipeline.Pipeline

	cameraProvider bind_group_provider.BindGroupProvider

	loader loader.Loader
	camera camera.Camera
	logger *slog.Logger

	entries    map[uint64]*entry
	byID       map[string]*entry
	retired    []bind_group_provider.BindGroupProvider
	generation uint64
	nextSerial uint64

	perPointReveal       bool
	forceFallbackAdapter bool
	presentMode          *PresentMode
	msaa                 MSAASampleCount
}

// Renderer draws splat assets. Loading decodes files on the calling goroutine; GPU resources are
// created lazily by Update on the render goroutine, so LoadSplat, SetVisible, Remove, Clear and
// FitData are safe to call from any goroutine.
type Renderer interface {
	// Initialize binds the renderer to a surface and creates the GPU device, pipeline and camera
	// resources. Calling it on an initialized renderer is a no-op.
	//
	// Parameters:
	//   - surface: the window surface to draw into
	//
	// Returns:
	//   - error: an error if the GPU backend cannot be created
	Initialize(surface Surface) error

	// LoadSplat decodes the asset's source and registers it hidden. The asset's transform is
	// applied to the decoded bounds to produce world-space bounds.
	//
	// Parameters:
	//   - ctx: cancels the load
	//   - asset: the asset to load
	//
	// Returns:
	//   - splat.Handle: the handle for the loaded asset
	//   - error: an error naming the source path and the supported formats if decoding fails
	LoadSplat(ctx context.Context, asset config.AssetDescriptor) (splat.Handle, error)

	// LoadSplats loads several assets in order. The result has one slot per asset; a failed
	// asset leaves a nil slot and contributes to the joined error.
	//
	// Parameters:
	//   - ctx: cancels the remaining loads
	//   - assets: the assets to load
	//
	// Returns:
	//   - []splat.Handle: handles in asset order, nil where loading failed
	//   - error: the joined per-asset errors, or nil
	LoadSplats(ctx context.Context, assets []config.AssetDescriptor) ([]splat.Handle, error)

	// SetVisible shows or hides the current asset with the given id. Unknown ids are ignored.
	//
	// Parameters:
	//   - id: the asset id
	//   - visible: whether the asset is drawn
	SetVisible(id string, visible bool)

	// Remove drops a handle's asset. Equivalent to h.Dispose().
	//
	// Parameters:
	//   - h: the handle to remove
	Remove(h splat.Handle)

	// Clear drops every asset. Handles returned earlier become inert, and loads that are still
	// running produce detached handles that are never drawn.
	Clear()

	// FitData returns the framing data for the union of visible assets, or of all assets when
	// none is visible.
	//
	// Returns:
	//   - common.FitData: the framing data
	//   - bool: false when no asset is loaded
	FitData() (common.FitData, bool)

	// Update uploads newly loaded assets, releases dropped ones and flushes changed reveal and
	// camera uniforms. It does nothing before Initialize.
	//
	// Returns:
	//   - error: the joined upload errors, or nil
	Update() error

	// Render draws every visible asset and presents the frame.
	//
	// Returns:
	//   - error: ErrNotInitialized, or an error acquiring the frame
	Render() error

	// Resize reconfigures the surface and camera viewport. Zero sizes are ignored.
	//
	// Parameters:
	//   - width: the new width of the surface in pixels
	//   - height: the new height of the surface in pixels
	Resize(width, height int)

	// Dispose drops every asset and releases the GPU backend. It is idempotent, and a later
	// Initialize starts over from a clean state.
	Dispose()
}

var _ Renderer = &renderer{}

// NewRenderer creates a Renderer. It does not touch the GPU until Initialize.
//
// Parameters:
//   - options: functional options to configure the renderer
//
// Returns:
//   - Renderer: the newly created renderer
func NewRenderer(options ...RendererBuilderOption) Renderer {
	r := &renderer{
		mu:             &sync.Mutex{},
		newBackend:     newWGPURendererBackend,
		logger:         slog.Default(),
		entries:        make(map[uint64]*entry),
		byID:           make(map[string]*entry),
		perPointReveal: true,
		msaa:           MSAA4x,
	}
	for _, opt := range options {
		opt(r)
	}
	if r.loader == nil {
		r.loader = loader.NewLoader(loader.WithLogger(r.logger))
	}
	if r.camera == nil {
		r.camera = camera.NewCamera(camera.WithController(camera.NewCameraController()))
	}
	return r
}

func (r *renderer) Initialize(surface Surface) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend != nil {
		return nil
	}

	backend, err := r.newBackend(surface, r.forceFallbackAdapter, r.msaa)
	if err != nil {
		return fmt.Errorf("failed to initialize renderer: %w", err)
	}
	if r.presentMode != nil {
		backend.SetPresentMode(*r.presentMode)
	}
	if err := backend.ConfigureSurface(surface.Width(), surface.Height()); err != nil {
		backend.Release()
		return fmt.Errorf("failed to configure surface: %w", err)
	}

	p := newSplatPipeline()
	if err := backend.RegisterRenderPipeline(p); err != nil {
		backend.Release()
		return fmt.Errorf("failed to create splat pipeline: %w", err)
	}

	cameraProvider := bind_group_provider.NewBindGroupProvider("camera")
	if err := backend.InitBindGroup(cameraProvider, cameraLayout()); err != nil {
		cameraProvider.Release()
		backend.Release()
		return fmt.Errorf("failed to create camera bind group: %w", err)
	}

	r.backend = backend
	r.pipeline = p
	r.cameraProvider = cameraProvider
	r.camera.Resize(surface.Width(), surface.Height())

	// Assets loaded while uninitialized upload on the next Update.
	for _, e := range r.entries {
		e.handle.restage()
	}
	r.logger.Info("renderer initialized", "width", surface.Width(), "height", surface.Height(), "msaa", r.msaa)
	return nil
}

func (r *renderer) LoadSplat(ctx context.Context, asset config.AssetDescriptor) (splat.Handle, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	generation := r.generation
	r.mu.Unlock()

	cloud, err := r.loader.Load(asset.Source)
	if err != nil {
		return nil, fmt.Errorf("splat %q: %w", asset.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	model := asset.Transform.Matrix()
	world := common.TransformBox(model[:], cloud.Bounds)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextSerial++
	serial := r.nextSerial
	e := &entry{
		serial: serial,
		cloud:  cloud,
		world:  world,
	}
	e.handle = newSplatHandle(asset.ID, model, world.Vertical(), r.perPointReveal, func() {
		r.remove(serial)
	})

	if generation != r.generation {
		e.detached = true
		r.logger.Debug("splat loaded across a clear", "id", asset.ID)
	} else {
		if old, ok := r.byID[asset.ID]; ok {
			old.handle.detach()
			r.dropLocked(old)
		}
		r.byID[asset.ID] = e
	}
	r.entries[serial] = e

	r.logger.Debug("splat loaded", "id", asset.ID, "source", asset.Source, "points", len(cloud.Points))
	return e.handle, nil
}

func (r *renderer) LoadSplats(ctx context.Context, assets []config.AssetDescriptor) ([]splat.Handle, error) {
	handles := make([]splat.Handle, len(assets))
	var errs []error
	for i, asset := range assets {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		h, err := r.LoadSplat(ctx, asset)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		handles[i] = h
	}
	return handles, errors.Join(errs...)
}

func (r *renderer) SetVisible(id string, visible bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.byID[id]; ok {
		e.visible = visible
	}
}

func (r *renderer) Remove(h splat.Handle) {
	if h != nil {
		h.Dispose()
	}
}

// remove is the dispose callback of a handle.
func (r *renderer) remove(serial uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[serial]; ok {
		r.dropLocked(e)
	}
}

// dropLocked forgets an entry and schedules its GPU resources for release. Caller must hold the mutex.
func (r *renderer) dropLocked(e *entry) {
	delete(r.entries, e.serial)
	if cur, ok := r.byID[e.handle.ID()]; ok && cur == e {
		delete(r.byID, e.handle.ID())
	}
	if e.provider != nil {
		r.retired = append(r.retired, e.provider)
		e.provider = nil
	}
}

func (r *renderer) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	for _, e := range r.entries {
		e.handle.detach()
		r.dropLocked(e)
	}
	r.logger.Debug("renderer cleared", "generation", r.generation)
}

func (r *renderer) FitData() (common.FitData, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var visible, all common.Box
	for _, e := range r.byID {
		all.Union(e.world)
		if e.visible {
			visible.Union(e.world)
		}
	}
	box := visible
	if box.Empty() {
		box = all
	}
	if box.Empty() {
		return common.FitData{}, false
	}
	return common.FitFromBox(box), true
}

func (r *renderer) Update() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return nil
	}

	for _, p := range r.retired {
		p.Release()
	}
	r.retired = r.retired[:0]

	var errs []error
	for _, e := range r.byID {
		if e.provider != nil || e.failed {
			continue
		}
		if err := r.uploadLocked(e); err != nil {
			e.failed = true
			r.logger.Error("splat upload failed", "id", e.handle.ID(), "error", err)
			errs = append(errs, err)
		}
	}

	r.camera.Update()
	cameraUniform := r.camera.Uniform()
	writes := []bind_group_provider.BufferWrite{{
		Provider: r.cameraProvider,
		Binding:  0,
		Data:     cameraUniform.Marshal(),
	}}
	for _, e := range r.byID {
		if e.provider == nil {
			continue
		}
		if data, ok := e.handle.takeUniform(); ok {
			writes = append(writes, bind_group_provider.BufferWrite{
				Provider: e.provider,
				Binding:  0,
				Data:     data,
			})
		}
	}
	r.backend.WriteBuffers(writes)
	return errors.Join(errs...)
}

// uploadLocked creates the instance buffer and reveal bind group for an entry. Caller must hold the mutex.
func (r *renderer) uploadLocked(e *entry) error {
	provider := bind_group_provider.NewBindGroupProvider(fmt.Sprintf("splat_%s_%d", e.handle.ID(), e.serial))
	if err := r.backend.InitInstanceBuffer(provider, common.SliceToBytes(e.cloud.Points), len(e.cloud.Points)); err != nil {
		provider.Release()
		return fmt.Errorf("splat %q: instance buffer: %w", e.handle.ID(), err)
	}
	if err := r.backend.InitBindGroup(provider, revealLayout()); err != nil {
		provider.Release()
		return fmt.Errorf("splat %q: reveal bind group: %w", e.handle.ID(), err)
	}
	e.provider = provider
	e.cloud = nil
	e.handle.restage()
	return nil
}

func (r *renderer) Render() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.backend == nil {
		return ErrNotInitialized
	}

	drawable := make([]*entry, 0, len(r.byID))
	for _, e := range r.byID {
		if e.visible && e.provider != nil && e.provider.InstanceCount() > 0 {
			drawable = append(drawable, e)
		}
	}
	// Load order keeps blending stable between frames.
	sort.Slice(drawable, func(i, j int) bool {
		return drawable[i].serial < drawable[j].serial
	})

	if err := r.backend.BeginFrame(); err != nil {
		return err
	}
	for _, e := range drawable {
		r.backend.DrawCall(r.pipeline, e.provider, quadVertexCount, []bind_group_provider.BindGroupProvider{r.cameraProvider, e.provider})
	}
	r.backend.EndFrame()
	r.backend.Present()
	return nil
}

func (r *renderer) Resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.camera.Resize(width, height)
	if r.backend == nil {
		return
	}
	if err := r.backend.ConfigureSurface(width, height); err != nil {
		r.logger.Error("surface resize failed", "width", width, "height", height, "error", err)
	}
}

func (r *renderer) Dispose() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.generation++
	for _, e := range r.entries {
		e.handle.detach()
		r.dropLocked(e)
	}
	for _, p := range r.retired {
		p.Release()
	}
	r.retired = nil

	if r.backend == nil {
		return
	}
	if r.cameraProvider != nil {
		r.cameraProvider.Release()
		r.cameraProvider = nil
	}
	r.pipeline = nil
	r.backend.Release()
	r.backend = nil
	r.logger.Info("renderer disposed")
}
