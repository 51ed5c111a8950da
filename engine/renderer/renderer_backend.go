package renderer

import (
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	PresentModeUncapped
)

// MSAASampleCount controls the number of samples used for multisample anti-aliasing (MSAA).
// WebGPU guarantees support for 1 (off) and 4.
type MSAASampleCount uint32

const (
	// MSAAOff disables multisample anti-aliasing (sample count 1).
	MSAAOff MSAASampleCount = 1

	// MSAA4x enables 4x multisample anti-aliasing. This is the default.
	MSAA4x MSAASampleCount = 4
)

// RendererBackend is the set of GPU operations the Renderer issues. All methods are called from
// the goroutine that owns the surface.
type RendererBackend interface {
	// ConfigureSurface (re)creates the swapchain, MSAA and depth targets for the given size.
	ConfigureSurface(width, height int) error

	// SetPresentMode selects vsync or uncapped presentation for the next ConfigureSurface.
	SetPresentMode(mode PresentMode)

	// RegisterRenderPipeline creates the GPU pipeline for p and stores it on p.
	RegisterRenderPipeline(p pipeline.Pipeline) error

	// InitInstanceBuffer uploads per-instance data and stores the buffer on the provider.
	InitInstanceBuffer(provider bind_group_provider.BindGroupProvider, data []byte, count int) error

	// InitBindGroup creates the uniform buffers, layout and bind group described by descriptor.
	InitBindGroup(provider bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor) error

	// WriteBuffers queues the staged buffer writes.
	WriteBuffers(writes []bind_group_provider.BufferWrite)

	// BeginFrame acquires the next surface texture and opens the render pass.
	BeginFrame() error

	// DrawCall draws vertexCount vertices for every instance held by provider.
	DrawCall(p pipeline.Pipeline, provider bind_group_provider.BindGroupProvider, vertexCount uint32, bindGroups []bind_group_provider.BindGroupProvider)

	// EndFrame closes the render pass and submits the recorded commands.
	EndFrame()

	// Present shows the frame acquired by BeginFrame.
	Present()

	// Release frees the device, surface and every render target.
	Release()
}

// backendFactory creates a backend bound to a surface.
type backendFactory func(surface Surface, forceFallbackAdapter bool, sampleCount MSAASampleCount) (RendererBackend, error)
