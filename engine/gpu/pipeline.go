package gpu

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

const (
	bindingUniform uint32 = iota
	bindingVolume
	bindingTransfer
	bindingSampler
)

// raycastPipeline holds the render pipeline shared by every layer of a backend.
type raycastPipeline struct {
	module          *wgpu.ShaderModule
	bindGroupLayout *wgpu.BindGroupLayout
	pipelineLayout  *wgpu.PipelineLayout
	pipeline        *wgpu.RenderPipeline
	sampler         *wgpu.Sampler
}

// additiveBlend sums layer colors so overlapping channels mix.
var additiveBlend = wgpu.BlendState{
	Color: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
	Alpha: wgpu.BlendComponent{
		SrcFactor: wgpu.BlendFactorOne,
		DstFactor: wgpu.BlendFactorOne,
		Operation: wgpu.BlendOperationAdd,
	},
}

// raycastBindGroupLayout returns the layout of group 0 for a volume sample type.
func raycastBindGroupLayout(sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutDescriptor {
	return wgpu.BindGroupLayoutDescriptor{
		Label: "Layer Bind Group Layout",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    bindingUniform,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: GPULayerUniformSize,
				},
			},
			{
				Binding:    bindingVolume,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    sampleType,
					ViewDimension: wgpu.TextureViewDimension3D,
				},
			},
			{
				Binding:    bindingTransfer,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    bindingSampler,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	}
}

// newRaycastPipeline compiles the ray caster for a voxel format and surface format.
func newRaycastPipeline(device *wgpu.Device, bytesPerVoxel int, surfaceFormat wgpu.TextureFormat) (*raycastPipeline, error) {
	source, vs, err := raycastShader(bytesPerVoxel)
	if err != nil {
		return nil, err
	}

	p := &raycastPipeline{}
	p.module, err = device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label: "Raycast Shader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{
			Code: source,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("gpu: compiling ray caster: %w", err)
	}

	desc := raycastBindGroupLayout(vs.sampleType)
	p.bindGroupLayout, err = device.CreateBindGroupLayout(&desc)
	if err != nil {
		p.release()
		return nil, fmt.Errorf("gpu: creating bind group layout: %w", err)
	}

	p.pipelineLayout, err = device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "Raycast",
		BindGroupLayouts: []*wgpu.BindGroupLayout{p.bindGroupLayout},
	})
	if err != nil {
		p.release()
		return nil, err
	}

	p.pipeline, err = device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  "Raycast Render Pipeline",
		Layout: p.pipelineLayout,
		Vertex: wgpu.VertexState{
			Module:     p.module,
			EntryPoint: raycastVertexEntryPoint,
		},
		Fragment: &wgpu.FragmentState{
			Module:     p.module,
			EntryPoint: raycastFragmentEntryPoint,
			Targets: []wgpu.ColorTargetState{
				{
					Format:    surfaceFormat,
					Blend:     &additiveBlend,
					WriteMask: wgpu.ColorWriteMaskAll,
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  wgpu.PrimitiveTopologyTriangleList,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		p.release()
		return nil, fmt.Errorf("gpu: creating ray cast pipeline: %w", err)
	}

	p.sampler, err = device.CreateSampler(&wgpu.SamplerDescriptor{
		Label:         "Transfer Function Sampler",
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MagFilter:     wgpu.FilterModeLinear,
		MinFilter:     wgpu.FilterModeLinear,
		MipmapFilter:  wgpu.MipmapFilterModeNearest,
		LodMinClamp:   0,
		LodMaxClamp:   32,
		MaxAnisotropy: 1,
	})
	if err != nil {
		p.release()
		return nil, err
	}
	return p, nil
}

// bindGroup binds one layer's resources to the pipeline layout.
func (p *raycastPipeline) bindGroup(device *wgpu.Device, index int, l *layerResources) (*wgpu.BindGroup, error) {
	return device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  fmt.Sprintf("Layer %d Bind Group", index),
		Layout: p.bindGroupLayout,
		Entries: []wgpu.BindGroupEntry{
			{Binding: bindingUniform, Buffer: l.uniform, Offset: 0, Size: wgpu.WholeSize},
			{Binding: bindingVolume, TextureView: l.volumeView},
			{Binding: bindingTransfer, TextureView: l.transferView},
			{Binding: bindingSampler, Sampler: p.sampler},
		},
	})
}

func (p *raycastPipeline) release() {
	if p.sampler != nil {
		p.sampler.Release()
		p.sampler = nil
	}
	if p.pipeline != nil {
		p.pipeline.Release()
		p.pipeline = nil
	}
	if p.pipelineLayout != nil {
		p.pipelineLayout.Release()
		p.pipelineLayout = nil
	}
	if p.bindGroupLayout != nil {
		p.bindGroupLayout.Release()
		p.bindGroupLayout = nil
	}
	if p.module != nil {
		p.module.Release()
		p.module = nil
	}
}
