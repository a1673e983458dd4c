package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// VulkanPipeline is one compiled variant of a pipeline state bundle.
type VulkanPipeline struct {
	Handle vk.Pipeline
}

// attachmentFormats is what makes two render passes compatible for a pipeline.
type attachmentFormats struct {
	color vk.Format
	depth vk.Format
}

// pipelineVariants is the private side of a metadata.PipelineState. Vulkan
// bakes the attachment formats into a pipeline, so one is built per format
// pair the bundle is drawn into.
type pipelineVariants struct {
	device   *Device
	desc     metadata.PipelineDesc
	vs, ps   vk.ShaderModule
	variants map[attachmentFormats]*VulkanPipeline
}

func newPipelineVariants(d *Device, desc metadata.PipelineDesc, vs, ps vk.ShaderModule) *pipelineVariants {
	return &pipelineVariants{
		device:   d,
		desc:     desc,
		vs:       vs,
		ps:       ps,
		variants: make(map[attachmentFormats]*VulkanPipeline),
	}
}

// get returns the variant for the formats of pass, building it on first use.
func (p *pipelineVariants) get(pass *VulkanRenderpass) (*VulkanPipeline, error) {
	key := attachmentFormats{color: pass.key.color, depth: pass.key.depth}
	if v, ok := p.variants[key]; ok {
		return v, nil
	}
	var v *VulkanPipeline
	err := p.device.locks.SafeCall(PipelineManagement, func() error {
		var err error
		v, err = NewGraphicsPipeline(p.device, p.desc, p.vs, p.ps, pass)
		return err
	})
	if err != nil {
		return nil, err
	}
	p.variants[key] = v
	core.LogDebug("pipeline %s built for %s", p.desc.Label, VulkanFormatName(key.color))
	return v, nil
}

func (p *pipelineVariants) destroy() {
	logical := p.device.logical
	if logical == nil {
		return
	}
	for key, v := range p.variants {
		v.Destroy(logical)
		delete(p.variants, key)
	}
	if p.vs != vk.NullShaderModule {
		vk.DestroyShaderModule(logical, p.vs, nil)
		p.vs = vk.NullShaderModule
	}
	if p.ps != vk.NullShaderModule {
		vk.DestroyShaderModule(logical, p.ps, nil)
		p.ps = vk.NullShaderModule
	}
}

func vertexAttributes(layout metadata.InputLayout) []vk.VertexInputAttributeDescription {
	out := make([]vk.VertexInputAttributeDescription, len(layout.Elements))
	for i, el := range layout.Elements {
		out[i] = vk.VertexInputAttributeDescription{
			Location: el.Location,
			Binding:  0,
			Format:   VulkanFormat(el.Format),
			Offset:   el.Offset,
		}
	}
	return out
}

// NewGraphicsPipeline compiles desc for the attachments of pass. Viewport and
// scissor are dynamic; the y flip lives in the viewport, so front faces wind
// clockwise as they do in the source data.
func NewGraphicsPipeline(d *Device, desc metadata.PipelineDesc, vs, ps vk.ShaderModule, pass *VulkanRenderpass) (*VulkanPipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: vs,
			PName:  VulkanSafeString(desc.VS.Desc.EntryPoint),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: ps,
			PName:  VulkanSafeString(desc.PS.Desc.EntryPoint),
		},
	}

	attributes := vertexAttributes(desc.Layout)
	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                         vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount: 1,
		PVertexBindingDescriptions: []vk.VertexInputBindingDescription{{
			Binding:   0,
			Stride:    desc.Layout.Stride,
			InputRate: vk.VertexInputRateVertex,
		}},
		VertexAttributeDescriptionCount: uint32(len(attributes)),
		PVertexAttributeDescriptions:    attributes,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:                  vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology:               topology(desc.Topology),
		PrimitiveRestartEnable: vk.False,
	}

	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:                   vk.StructureTypePipelineRasterizationStateCreateInfo,
		DepthClampEnable:        vk.False,
		RasterizerDiscardEnable: vk.False,
		PolygonMode:             vk.PolygonModeFill,
		LineWidth:               1.0,
		CullMode:                cullMode(desc.Cull),
		FrontFace:               vk.FrontFaceClockwise,
		DepthBiasEnable:         vk.False,
	}

	multisampling := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		SampleShadingEnable:  vk.False,
		RasterizationSamples: vk.SampleCount1Bit,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   vk.False,
		DepthWriteEnable:  vk.False,
		DepthCompareOp:    vk.CompareOpAlways,
		StencilTestEnable: vk.False,
		MaxDepthBounds:    1.0,
	}
	if pass.key.depth != vk.FormatUndefined && desc.Depth.TestEnabled {
		depthStencil.DepthTestEnable = vk.True
		depthStencil.DepthCompareOp = compareOp(desc.Depth.Compare)
		if desc.Depth.WriteEnabled {
			depthStencil.DepthWriteEnable = vk.True
		}
	}

	blend := vk.PipelineColorBlendAttachmentState{
		BlendEnable:         vk.False,
		SrcColorBlendFactor: blendFactor(desc.Blend.SrcColor),
		DstColorBlendFactor: blendFactor(desc.Blend.DstColor),
		ColorBlendOp:        vk.BlendOpAdd,
		SrcAlphaBlendFactor: blendFactor(desc.Blend.SrcAlpha),
		DstAlphaBlendFactor: blendFactor(desc.Blend.DstAlpha),
		AlphaBlendOp:        vk.BlendOpAdd,
		ColorWriteMask:      colorWriteMask(desc.Blend.WriteMask),
	}
	if desc.Blend.Enabled {
		blend.BlendEnable = vk.True
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOpEnable:   vk.False,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: 1,
		PAttachments:    []vk.PipelineColorBlendAttachmentState{blend},
	}

	dynamicStates := []vk.DynamicState{
		vk.DynamicStateViewport,
		vk.DynamicStateScissor,
	}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	info := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisampling,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              d.descriptors.pipelineLayout,
		RenderPass:          pass.Handle,
		Subpass:             0,
		BasePipelineHandle:  vk.NullPipeline,
		BasePipelineIndex:   -1,
	}

	pipelines := make([]vk.Pipeline, 1)
	if err := check(core.ErrShaderCompile, vk.CreateGraphicsPipelines(d.logical, vk.NullPipelineCache, 1,
		[]vk.GraphicsPipelineCreateInfo{info}, nil, pipelines), "vkCreateGraphicsPipelines %s", desc.Label); err != nil {
		return nil, err
	}
	return &VulkanPipeline{Handle: pipelines[0]}, nil
}

func (pipeline *VulkanPipeline) Destroy(device vk.Device) {
	if pipeline.Handle != vk.NullPipeline {
		vk.DestroyPipeline(device, pipeline.Handle, nil)
		pipeline.Handle = vk.NullPipeline
	}
}

func (pipeline *VulkanPipeline) Bind(cmd *VulkanCommandBuffer) {
	vk.CmdBindPipeline(cmd.Handle, vk.PipelineBindPointGraphics, pipeline.Handle)
}
