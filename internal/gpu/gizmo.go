package gpu

import (
	"unsafe"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/rayforge/pathtrace/internal/mathx"
)

const gizmoCameraUniformSize = 64 // one mat4x4<f32>: viewProjection

// gizmoVertex matches the WGSL vertex input of gizmo.wgsl.
type gizmoVertex struct {
	Pos   [3]float32
	Color [4]float32
}

// GizmoPass draws the selection-outline wireframe box as a line list,
// adapted from the teacher's GizmoRenderPass (voxelrt/rt/gpu/gizmo_pass.go):
// same bind-group-reuses-the-camera-buffer trick, narrowed from an
// arbitrary gizmo shape list down to "one box per selected instance",
// since this editor's overlay only needs to outline the current
// selection, not the teacher's general debug-shape set.
type GizmoPass struct {
	device       *wgpu.Device
	pipeline     *wgpu.RenderPipeline
	cameraBuf    *wgpu.Buffer
	bindGroup    *wgpu.BindGroup
	vertexBuffer *wgpu.Buffer
	vertexCap    uint64
	vertexCount  uint32
}

func NewGizmoPass(device *wgpu.Device, shaderWGSL string, surfaceFormat wgpu.TextureFormat) (*GizmoPass, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "GizmoShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderWGSL},
	})
	if err != nil {
		return nil, &Error{Kind: FaultShaderCompileFailed, Cause: err}
	}

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "GizmoCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: gizmoCameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	pipelineLayout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	pipeline, err := device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "GizmoPipeline",
		Layout: pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: uint64(unsafe.Sizeof(gizmoVertex{})),
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 12, ShaderLocation: 1},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    surfaceFormat,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorSrcAlpha, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha},
						Alpha: wgpu.BlendComponent{Operation: wgpu.BlendOperationAdd, SrcFactor: wgpu.BlendFactorOne, DstFactor: wgpu.BlendFactorOneMinusSrcAlpha},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyLineList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{Count: 1, Mask: 0xFFFFFFFF},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	gp := &GizmoPass{device: device, pipeline: pipeline}

	if _, err := ensureBuffer(device, "GizmoCameraUB", &gp.cameraBuf, make([]byte, gizmoCameraUniformSize), wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	bg, err := device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "GizmoCameraBG",
		Layout: pipeline.GetBindGroupLayout(0),
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: gp.cameraBuf, Size: gizmoCameraUniformSize},
		},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}
	gp.bindGroup = bg

	return gp, nil
}

// UpdateCamera writes the forward view*projection matrix the gizmo
// vertex shader needs. Kept separate from the path tracer's camera
// uniform (which only stores inverses) since WGSL has no matrix-inverse
// built-in to recover a forward matrix in-shader.
func (g *GizmoPass) UpdateCamera(viewProjection mgl32.Mat4) {
	buf := make([]byte, gizmoCameraUniformSize)
	putMat4(buf, 0, viewProjection)
	g.device.GetQueue().WriteBuffer(g.cameraBuf, 0, buf)
}

// outlineColor is a bright cyan, consistent with the teacher's
// debug-gizmo palette.
var outlineColor = [4]float32{0.15, 0.95, 1.0, 1.0}

// aabbBoxEdges returns the 12 line segments (24 vertices) of box's
// wireframe.
func aabbBoxEdges(box mathx.AABB, color [4]float32) []gizmoVertex {
	c := box.Corners()
	edges := [12][2]int{
		{0, 1}, {1, 3}, {3, 2}, {2, 0}, // z = min face
		{4, 5}, {5, 7}, {7, 6}, {6, 4}, // z = max face
		{0, 4}, {1, 5}, {2, 6}, {3, 7}, // edges joining the two faces
	}
	verts := make([]gizmoVertex, 0, 24)
	for _, e := range edges {
		a, b := c[e[0]], c[e[1]]
		verts = append(verts,
			gizmoVertex{Pos: [3]float32{a.X(), a.Y(), a.Z()}, Color: color},
			gizmoVertex{Pos: [3]float32{b.X(), b.Y(), b.Z()}, Color: color},
		)
	}
	return verts
}

// Update uploads the wireframe for the currently selected instance's
// world AABB, or clears the pass if hasSelection is false.
func (g *GizmoPass) Update(hasSelection bool, selectedWorldAABB mathx.AABB) {
	if !hasSelection {
		g.vertexCount = 0
		return
	}

	verts := aabbBoxEdges(selectedWorldAABB, outlineColor)
	g.vertexCount = uint32(len(verts))

	sizeBytes := uint64(len(verts)) * uint64(unsafe.Sizeof(gizmoVertex{}))
	if g.vertexBuffer == nil || g.vertexCap < sizeBytes {
		if g.vertexBuffer != nil {
			g.vertexBuffer.Release()
		}
		g.vertexCap = sizeBytes * 2
		g.vertexBuffer, _ = g.device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "GizmoVertexBuffer",
			Size:  g.vertexCap,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
	}

	data := make([]byte, sizeBytes)
	copy(data, unsafe.Slice((*byte)(unsafe.Pointer(&verts[0])), sizeBytes))
	g.device.GetQueue().WriteBuffer(g.vertexBuffer, 0, data)
}

// Draw renders the wireframe into swapChainView (load, don't clear —
// it runs after the blit pass). A no-op with no selection.
func (g *GizmoPass) Draw(encoder *wgpu.CommandEncoder, swapChainView *wgpu.TextureView) error {
	if g.vertexCount == 0 || g.bindGroup == nil {
		return nil
	}
	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{
			{
				View:    swapChainView,
				LoadOp:  wgpu.LoadOpLoad,
				StoreOp: wgpu.StoreOpStore,
			},
		},
	})
	pass.SetPipeline(g.pipeline)
	pass.SetBindGroup(0, g.bindGroup, nil)
	sizeBytes := uint64(g.vertexCount) * uint64(unsafe.Sizeof(gizmoVertex{}))
	pass.SetVertexBuffer(0, g.vertexBuffer, 0, sizeBytes)
	pass.Draw(g.vertexCount, 1, 0, 0)
	return pass.End()
}
