package renderer

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-splat/engine/camera"
	"github.com/Carmen-Shannon/oxy-splat/engine/loader"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-splat/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/splat.wgsl
var splatShaderSource string

const (
	splatPipelineKey = "splat"

	// quadVertexCount is the number of vertices per splat (two triangles).
	quadVertexCount = 6
)

// uniformLayout describes a bind group holding a single uniform buffer at binding 0.
func uniformLayout(label string, size uint64, visibility wgpu.ShaderStage) wgpu.BindGroupLayoutDescriptor {
	entry := wgpu.BindGroupLayoutEntry{
		Binding:    0,
		Visibility: visibility,
	}
	entry.Buffer.Type = wgpu.BufferBindingTypeUniform
	entry.Buffer.MinBindingSize = size
	return wgpu.BindGroupLayoutDescriptor{
		Label:   label,
		Entries: []wgpu.BindGroupLayoutEntry{entry},
	}
}

func cameraLayout() wgpu.BindGroupLayoutDescriptor {
	return uniformLayout("Camera", uint64(unsafe.Sizeof(camera.GPUCameraUniform{})), wgpu.ShaderStageVertex)
}

func revealLayout() wgpu.BindGroupLayoutDescriptor {
	return uniformLayout("Reveal", uint64(unsafe.Sizeof(revealUniform{})), wgpu.ShaderStageVertex)
}

// instanceLayout matches loader.Point: position, radius, color.
func instanceLayout() wgpu.VertexBufferLayout {
	return wgpu.VertexBufferLayout{
		ArrayStride: loader.PointStride,
		StepMode:    wgpu.VertexStepModeInstance,
		Attributes: []wgpu.VertexAttribute{
			{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
			{Format: wgpu.VertexFormatFloat32, Offset: 12, ShaderLocation: 1},
			{Format: wgpu.VertexFormatFloat32x4, Offset: 16, ShaderLocation: 2},
		},
	}
}

// splatBlend composites straight-alpha splat fragments over what is already drawn.
func splatBlend() *wgpu.BlendState {
	return &wgpu.BlendState{
		Color: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorSrcAlpha,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
		Alpha: wgpu.BlendComponent{
			SrcFactor: wgpu.BlendFactorOne,
			DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
			Operation: wgpu.BlendOperationAdd,
		},
	}
}

// newSplatPipeline builds the alpha-blended splat pipeline. Each splat is a camera-facing quad of
// two triangles, so no face is culled. Depth is tested but not written so overlapping splats
// blend instead of occluding each other.
func newSplatPipeline() pipeline.Pipeline {
	vs := shader.NewShader("splat_vs", shader.ShaderTypeVertex, splatShaderSource,
		shader.WithBindGroupLayout(0, cameraLayout()),
		shader.WithBindGroupLayout(1, revealLayout()),
		shader.WithVertexLayout(0, instanceLayout()),
	)
	fs := shader.NewShader("splat_fs", shader.ShaderTypeFragment, splatShaderSource)
	return pipeline.NewPipeline(splatPipelineKey,
		pipeline.WithVertexShader(vs),
		pipeline.WithFragmentShader(fs),
		pipeline.WithTopology(wgpu.PrimitiveTopologyTriangleList),
		pipeline.WithCullMode(wgpu.CullModeNone),
		pipeline.WithDepthTestEnabled(true),
		pipeline.WithDepthWriteEnabled(false),
		pipeline.WithBlendEnabled(true),
		pipeline.WithBlendState(splatBlend()),
	)
}
