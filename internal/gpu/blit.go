package gpu

import "github.com/cogentcore/webgpu/wgpu"

// BlitPass draws the path tracer's output texture to the swap-chain
// view as a fullscreen triangle, mirroring the teacher's RenderPipeline
// (app.go's "Blit Pipeline") — a sampled-texture + sampler bind group
// feeding a trivial vs_main/fs_main shader.
type BlitPass struct {
	device    *wgpu.Device
	pipeline  *wgpu.RenderPipeline
	sampler   *wgpu.Sampler
	bindGroup *wgpu.BindGroup
}

func NewBlitPass(device *wgpu.Device, shaderWGSL string, surfaceFormat wgpu.TextureFormat) (*BlitPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "BlitShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderWGSL},
	})
	if err != nil {
		return nil, &Error{Kind: FaultShaderCompileFailed, Cause: err}
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label: "BlitPipeline",
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{{
				Format:    surfaceFormat,
				WriteMask: wgpu.ColorWriteMaskAll,
			}},
		},
		Primitive: wgpu.PrimitiveState{
			Topology: wgpu.PrimitiveTopologyTriangleList,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	sampler, err := device.CreateSampler(&wgpu.SamplerDescriptor{
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	return &BlitPass{device: device, pipeline: pipeline, sampler: sampler}, nil
}

// Rebind must be called after every resizeOutput, since it points at
// the path tracer's output texture view.
func (b *BlitPass) Rebind(sourceView *wgpu.TextureView) error {
	bg, err := b.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "BlitBG",
		Layout: b.pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: sourceView},
			{Binding: 1, Sampler: b.sampler},
		},
	})
	if err != nil {
		return &Error{Kind: FaultAllocFailed, Cause: err}
	}
	b.bindGroup = bg
	return nil
}

// Draw issues the fullscreen triangle into swapChainView. A no-op if
// Rebind has not run yet.
func (b *BlitPass) Draw(encoder *wgpu.CommandEncoder, swapChainView *wgpu.TextureView) error {
	if b.bindGroup == nil {
		return nil
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:       swapChainView,
				LoadOp:     wgpu.LoadOpClear,
				StoreOp:    wgpu.StoreOpStore,
				ClearValue: wgpu.Color{R: 0, G: 0, B: 0, A: 1},
			},
		},
	})
	pass.SetPipeline(b.pipeline)
	pass.SetBindGroup(0, b.bindGroup, nil)
	pass.Draw(3, 1, 0, 0)
	return pass.End()
}
