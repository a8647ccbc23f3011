// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package vkr

import (
	"unsafe"

	"github.com/devblok/prism/gfx"
	vk "github.com/goki/vulkan"
)

// CreateShaderModule implements gfx.Driver.
func (d *Driver) CreateShaderModule(dev gfx.Device, code []uint32) (gfx.ShaderModule, error) {
	smci := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(code) * 4),
		PCode:    code,
	}

	var module vk.ShaderModule
	if err := resultError("vk.CreateShaderModule()", vk.CreateShaderModule(d.devices.get(uint64(dev)), &smci, nil, &module)); err != nil {
		return 0, err
	}
	return gfx.ShaderModule(d.shaders.add(module)), nil
}

// DestroyShaderModule implements gfx.Driver.
func (d *Driver) DestroyShaderModule(dev gfx.Device, m gfx.ShaderModule) {
	if module, ok := d.shaders.remove(uint64(m)); ok {
		vk.DestroyShaderModule(d.devices.get(uint64(dev)), module, nil)
	}
}

// CreatePipelineLayout implements gfx.Driver. The layout is empty,
// the pipeline takes no descriptors and no push constants.
func (d *Driver) CreatePipelineLayout(dev gfx.Device) (gfx.PipelineLayout, error) {
	plci := vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}

	var layout vk.PipelineLayout
	if err := resultError("vk.CreatePipelineLayout()", vk.CreatePipelineLayout(d.devices.get(uint64(dev)), &plci, nil, &layout)); err != nil {
		return 0, err
	}
	return gfx.PipelineLayout(d.layouts.add(layout)), nil
}

// DestroyPipelineLayout implements gfx.Driver.
func (d *Driver) DestroyPipelineLayout(dev gfx.Device, l gfx.PipelineLayout) {
	if layout, ok := d.layouts.remove(uint64(l)); ok {
		vk.DestroyPipelineLayout(d.devices.get(uint64(dev)), layout, nil)
	}
}

// CreateGraphicsPipeline implements gfx.Driver. Vertices come from the
// vertex shader alone, viewport and scissor are fixed to the extent and
// the color attachment format is declared for dynamic rendering.
func (d *Driver) CreateGraphicsPipeline(dev gfx.Device, info gfx.GraphicsPipelineCreateInfo) (gfx.Pipeline, error) {
	entryPoint := safeString(info.EntryPoint)

	rendering := vk.PipelineRenderingCreateInfo{
		SType:                   vk.StructureTypePipelineRenderingCreateInfo,
		ColorAttachmentCount:    1,
		PColorAttachmentFormats: []vk.Format{vk.Format(info.ColorFormat)},
	}
	rendering.PassRef()
	defer rendering.Free()

	gpci := []vk.GraphicsPipelineCreateInfo{{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		PNext:      unsafe.Pointer(rendering.Ref()),
		StageCount: 2,
		PStages: []vk.PipelineShaderStageCreateInfo{
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageVertexBit,
				Module: d.shaders.get(uint64(info.Vertex)),
				PName:  entryPoint,
			},
			{
				SType:  vk.StructureTypePipelineShaderStageCreateInfo,
				Stage:  vk.ShaderStageFragmentBit,
				Module: d.shaders.get(uint64(info.Fragment)),
				PName:  entryPoint,
			},
		},
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType: vk.StructureTypePipelineVertexInputStateCreateInfo,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: vk.PrimitiveTopologyTriangleList,
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			PViewports: []vk.Viewport{{
				Width:    float32(info.Extent.Width),
				Height:   float32(info.Extent.Height),
				MinDepth: 0.0,
				MaxDepth: 1.0,
			}},
			ScissorCount: 1,
			PScissors: []vk.Rect2D{{
				Extent: vk.Extent2D{
					Width:  info.Extent.Width,
					Height: info.Extent.Height,
				},
			}},
		},
		PRasterizationState: &vk.PipelineRasterizationStateCreateInfo{
			SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
			PolygonMode: vk.PolygonModeFill,
			CullMode:    vk.CullModeFlags(info.CullMode),
			FrontFace:   vk.FrontFace(info.FrontFace),
			LineWidth:   1.0,
		},
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples: vk.SampleCount1Bit,
		},
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: 1,
			PAttachments: []vk.PipelineColorBlendAttachmentState{{
				ColorWriteMask: 0xF,
				BlendEnable:    vk.False,
			}},
		},
		Layout:     d.layouts.get(uint64(info.Layout)),
		RenderPass: vk.NullRenderPass,
	}}

	pipelines := make([]vk.Pipeline, len(gpci))
	res := vk.CreateGraphicsPipelines(d.devices.get(uint64(dev)), vk.NullPipelineCache, uint32(len(gpci)), gpci, nil, pipelines)
	if err := resultError("vk.CreateGraphicsPipelines()", res); err != nil {
		return 0, err
	}
	return gfx.Pipeline(d.pipelines.add(pipelines[0])), nil
}

// DestroyPipeline implements gfx.Driver.
func (d *Driver) DestroyPipeline(dev gfx.Device, p gfx.Pipeline) {
	if pipeline, ok := d.pipelines.remove(uint64(p)); ok {
		vk.DestroyPipeline(d.devices.get(uint64(dev)), pipeline, nil)
	}
}
