package gpu

import (
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/rayforge/pathtrace/internal/logging"
	"github.com/rayforge/pathtrace/internal/meshlib"
	"github.com/rayforge/pathtrace/internal/scene"
)

const workgroupSize = 8

// RaytracingPipeline owns every GPU resource for the compute pass,
// mirroring the shape of the teacher's GpuBufferManager but narrowed to
// a single mesh-based bind group (one group, 12 bindings) instead of
// the teacher's dozen voxel-streaming buffers.
type RaytracingPipeline struct {
	device *wgpu.Device
	log    logging.Logger

	pipeline  *wgpu.ComputePipeline
	bgl       *wgpu.BindGroupLayout
	bindGroup *wgpu.BindGroup

	cameraBuf   *wgpu.Buffer
	settingsBuf *wgpu.Buffer

	outputTexture *wgpu.Texture
	outputView    *wgpu.TextureView
	accumBuf      *wgpu.Buffer

	// Bindings 4/5: kept only so the bind group layout stays stable
	// across the voxel->mesh migration this pipeline went through; the
	// shader never reads them once the mesh-only code path is in use.
	legacySceneHeaderBuf  *wgpu.Buffer
	legacySceneObjectsBuf *wgpu.Buffer

	meshSceneHeaderBuf *wgpu.Buffer
	meshMetaBuf        *wgpu.Buffer
	meshVerticesBuf    *wgpu.Buffer
	meshIndicesBuf     *wgpu.Buffer
	blasNodesBuf       *wgpu.Buffer
	instancesBuf       *wgpu.Buffer

	meshCount uint32

	width, height       uint32
	frameIndex          uint32
	samplesPerPixel     uint32
	maxBounces          uint32
	accumulate          bool
	selectedObjectIndex int32
	backgroundColor     uint32
}

// NewRaytracingPipeline builds the compute pipeline and uploads the
// immutable mesh library, built once for the process lifetime.
func NewRaytracingPipeline(device *wgpu.Device, log logging.Logger, shaderWGSL string, library *meshlib.Library, samplesPerPixel, maxBounces uint32) (*RaytracingPipeline, error) {
	module, err := device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "PathTracerCS",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaderWGSL},
	})
	if err != nil {
		return nil, &Error{Kind: FaultShaderCompileFailed, Cause: err}
	}

	bgl, err := device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label:   "PathTracerBGL",
		Entries: pathTracerBindGroupLayoutEntries(),
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	layout, err := device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		BindGroupLayouts: []*wgpu.BindGroupLayout{bgl},
	})
	if err != nil {
		return nil, &Error{Kind: FaultAllocFailed, Cause: err}
	}

	pipeline, err := device.CreateComputePipeline(&wgpu.ComputePipelineDescriptor{
		Label:  "PathTracerPipeline",
		Layout: layout,
		Compute: wgpu.ProgrammableStageDescriptor{
			Module:     module,
			EntryPoint: "main",
		},
	})
	if err != nil {
		return nil, &Error{Kind: FaultShaderCompileFailed, Cause: err}
	}

	rp := &RaytracingPipeline{
		device:              device,
		log:                 log,
		pipeline:            pipeline,
		bgl:                 bgl,
		samplesPerPixel:     samplesPerPixel,
		maxBounces:          maxBounces,
		accumulate:          true,
		selectedObjectIndex: -1,
		backgroundColor:     0x333340,
		meshCount:           uint32(meshlib.MeshCount),
	}

	if _, err := ensureBuffer(device, "CameraUB", &rp.cameraBuf, make([]byte, cameraUniformSize), wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "SettingsUB", &rp.settingsBuf, packSettings(rp.SettingsSnapshot()), wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "LegacySceneHeaderBuf", &rp.legacySceneHeaderBuf, make([]byte, 16), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "LegacySceneObjectsBuf", &rp.legacySceneObjectsBuf, make([]byte, 16), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "MeshSceneHeaderBuf", &rp.meshSceneHeaderBuf, packMeshSceneHeader(0, rp.meshCount), wgpu.BufferUsageUniform); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "MeshMetaBuf", &rp.meshMetaBuf, packMeshMeta(library.Meta[:]), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "MeshVerticesBuf", &rp.meshVerticesBuf, packMeshVertices(library.Vertices), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "MeshIndicesBuf", &rp.meshIndicesBuf, packMeshIndices(library.Indices), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "BLASNodesBuf", &rp.blasNodesBuf, packBLASNodes(library.Nodes), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}
	if _, err := ensureBuffer(device, "InstancesBuf", &rp.instancesBuf, make([]byte, instanceRecordSize), wgpu.BufferUsageStorage); err != nil {
		return nil, err
	}

	return rp, nil
}

func (p *RaytracingPipeline) SettingsSnapshot() Settings {
	return Settings{
		FrameIndex:          p.frameIndex,
		SamplesPerPixel:     p.samplesPerPixel,
		MaxBounces:          p.maxBounces,
		Accumulate:          p.accumulate,
		SelectedObjectIndex: p.selectedObjectIndex,
		BackgroundColor:     p.backgroundColor,
	}
}

// ResizeOutput recreates the output texture and the w*h*4*f32
// accumulation buffer, and rebuilds the bind group (both size-dependent
// resources invalidate it). A no-op if w/h are unchanged and the bind
// group already exists.
func (p *RaytracingPipeline) ResizeOutput(w, h uint32) error {
	if w == 0 || h == 0 {
		return nil
	}
	if w == p.width && h == p.height && p.bindGroup != nil {
		return nil
	}
	p.width, p.height = w, h

	if p.outputTexture != nil {
		p.outputTexture.Release()
	}
	tex, err := p.device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "PathTracerOutput",
		Size:          wgpu.Extent3D{Width: w, Height: h, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageStorageBinding | wgpu.TextureUsageTextureBinding,
	})
	if err != nil {
		return &Error{Kind: FaultAllocFailed, Cause: err}
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		return &Error{Kind: FaultAllocFailed, Cause: err}
	}
	p.outputTexture = tex
	p.outputView = view

	accumSize := uint64(w) * uint64(h) * 4 * 4
	if _, err := ensureBuffer(p.device, "AccumulationBuf", &p.accumBuf, make([]byte, accumSize), wgpu.BufferUsageStorage); err != nil {
		return err
	}

	p.ResetAccumulation()
	return p.RebuildBindGroup()
}

func (p *RaytracingPipeline) RebuildBindGroup() error {
	bg, err := p.device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  "PathTracerBG",
		Layout: p.bgl,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, Buffer: p.cameraBuf, Size: wgpu.WholeSize},
			{Binding: 1, Buffer: p.settingsBuf, Size: wgpu.WholeSize},
			{Binding: 2, TextureView: p.outputView},
			{Binding: 3, Buffer: p.accumBuf, Size: wgpu.WholeSize},
			{Binding: 4, Buffer: p.legacySceneHeaderBuf, Size: wgpu.WholeSize},
			{Binding: 5, Buffer: p.legacySceneObjectsBuf, Size: wgpu.WholeSize},
			{Binding: 6, Buffer: p.meshSceneHeaderBuf, Size: wgpu.WholeSize},
			{Binding: 7, Buffer: p.meshMetaBuf, Size: wgpu.WholeSize},
			{Binding: 8, Buffer: p.meshVerticesBuf, Size: wgpu.WholeSize},
			{Binding: 9, Buffer: p.meshIndicesBuf, Size: wgpu.WholeSize},
			{Binding: 10, Buffer: p.blasNodesBuf, Size: wgpu.WholeSize},
			{Binding: 11, Buffer: p.instancesBuf, Size: wgpu.WholeSize},
		},
	})
	if err != nil {
		return &Error{Kind: FaultAllocFailed, Cause: err}
	}
	p.bindGroup = bg
	return nil
}

// UpdateCamera writes the 144-byte camera uniform; it does not reset
// accumulation on its own — callers decide that via the renderer's
// event-driven ResetAccumulation calls.
func (p *RaytracingPipeline) UpdateCamera(cam scene.Camera, aspect float32) {
	invProj := cam.InverseProjection(aspect)
	invView := cam.InverseView()
	data := packCamera(invProj, invView, cam.Position())
	p.device.GetQueue().WriteBuffer(p.cameraBuf, 0, data)
}

// UpdateScene re-packs the instance buffer from the current visible
// instance list and rewrites the mesh scene header's instanceCount.
func (p *RaytracingPipeline) UpdateScene(instances []scene.Instance) error {
	data := packInstances(instances)
	if len(data) == 0 {
		data = make([]byte, instanceRecordSize)
	}
	grew, err := ensureBuffer(p.device, "InstancesBuf", &p.instancesBuf, data, wgpu.BufferUsageStorage)
	if err != nil {
		return err
	}
	header := packMeshSceneHeader(uint32(len(instances)), p.meshCount)
	p.device.GetQueue().WriteBuffer(p.meshSceneHeaderBuf, 0, header)
	if grew && p.bindGroup != nil {
		return p.RebuildBindGroup()
	}
	return nil
}

func (p *RaytracingPipeline) SetSelectedObjectIndex(i int32) {
	if p.selectedObjectIndex == i {
		return
	}
	p.selectedObjectIndex = i
	p.ResetAccumulation()
}

// SetBackgroundColorPacked resets accumulation iff the value changed.
func (p *RaytracingPipeline) SetBackgroundColorPacked(packed uint32) {
	if p.backgroundColor == packed {
		return
	}
	p.backgroundColor = packed
	p.ResetAccumulation()
}

func (p *RaytracingPipeline) ResetAccumulation() {
	p.frameIndex = 0
}

// Dispatch writes the current settings buffer, dispatches
// ceil(w/8) x ceil(h/8) workgroups of size 8x8, and increments
// frameIndex. No-op if the output is unsized or the bind group has not
// been built yet — callers must tolerate a silent no-op here.
func (p *RaytracingPipeline) Dispatch(encoder *wgpu.CommandEncoder) {
	if p.width == 0 || p.height == 0 || p.bindGroup == nil {
		return
	}

	p.device.GetQueue().WriteBuffer(p.settingsBuf, 0, packSettings(p.SettingsSnapshot()))

	pass := encoder.BeginComputePass(nil)
	pass.SetPipeline(p.pipeline)
	pass.SetBindGroup(0, p.bindGroup, nil)

	wgX := (p.width + workgroupSize - 1) / workgroupSize
	wgY := (p.height + workgroupSize - 1) / workgroupSize
	pass.DispatchWorkgroups(wgX, wgY, 1)

	if err := pass.End(); err != nil {
		p.log.Errorf("path tracer compute pass end failed: %v", err)
	}

	p.frameIndex++
}

func (p *RaytracingPipeline) OutputView() *wgpu.TextureView { return p.outputView }

// SampleCount is the accumulation buffer's current sample count,
// surfaced to the HUD as "sampleCount".
func (p *RaytracingPipeline) SampleCount() uint32 { return p.frameIndex }

// SetSamplesPerPixel resets accumulation iff the value changed, since a
// samples-per-pixel change invalidates the running accumulation buffer.
func (p *RaytracingPipeline) SetSamplesPerPixel(n uint32) {
	if p.samplesPerPixel == n {
		return
	}
	p.samplesPerPixel = n
	p.ResetAccumulation()
}

// SetMaxBounces resets accumulation iff the value changed.
func (p *RaytracingPipeline) SetMaxBounces(n uint32) {
	if p.maxBounces == n {
		return
	}
	p.maxBounces = n
	p.ResetAccumulation()
}
