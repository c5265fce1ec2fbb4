package gpu

import "github.com/cogentcore/webgpu/wgpu"

// pathTracerBindGroupLayoutEntries is the path tracer's single bind
// group: camera/settings uniforms, the output storage texture, the
// accumulation buffer, and the mesh-library/BVH/instance storage
// buffers, in the exact binding order the WGSL kernel declares them.
func pathTracerBindGroupLayoutEntries() []wgpu.BindGroupLayoutEntry {
	uniform := func(binding uint32, size uint64) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type:           wgpu.BufferBindingTypeUniform,
				MinBindingSize: size,
			},
		}
	}
	readOnlyStorage := func(binding uint32) wgpu.BindGroupLayoutEntry {
		return wgpu.BindGroupLayoutEntry{
			Binding:    binding,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeReadOnlyStorage,
			},
		}
	}

	return []wgpu.BindGroupLayoutEntry{
		uniform(0, cameraUniformSize),
		uniform(1, settingsUniformSize),
		{
			Binding:    2,
			Visibility: wgpu.ShaderStageCompute,
			StorageTexture: wgpu.StorageTextureBindingLayout{
				Access:        wgpu.StorageTextureAccessWriteOnly,
				Format:        wgpu.TextureFormatRGBA8Unorm,
				ViewDimension: wgpu.TextureViewDimension2D,
			},
		},
		{
			Binding:    3,
			Visibility: wgpu.ShaderStageCompute,
			Buffer: wgpu.BufferBindingLayout{
				Type: wgpu.BufferBindingTypeStorage,
			},
		},
		readOnlyStorage(4),
		readOnlyStorage(5),
		uniform(6, meshSceneHeaderSize),
		readOnlyStorage(7),
		readOnlyStorage(8),
		readOnlyStorage(9),
		readOnlyStorage(10),
		readOnlyStorage(11),
	}
}
