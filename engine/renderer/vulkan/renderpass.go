package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

// renderPassKey is everything a render pass object bakes in. A pass without
// depth has depth set to FormatUndefined.
type renderPassKey struct {
	color        vk.Format
	depth        vk.Format
	colorLoad    vk.AttachmentLoadOp
	depthLoad    vk.AttachmentLoadOp
	colorInitial vk.ImageLayout
	colorFinal   vk.ImageLayout
	depthInitial vk.ImageLayout
}

type VulkanRenderpass struct {
	Handle vk.RenderPass
	key    renderPassKey
}

// renderPass returns the cached pass for key, creating it on first use.
func (d *Device) renderPass(key renderPassKey) (*VulkanRenderpass, error) {
	if rp, ok := d.renderPasses[key]; ok {
		return rp, nil
	}
	rp, err := RenderpassCreate(d.logical, key)
	if err != nil {
		return nil, err
	}
	d.renderPasses[key] = rp
	return rp, nil
}

// RenderpassCreate builds a single subpass over a color attachment, a depth
// attachment or both. An absent attachment has its format set to
// FormatUndefined.
func RenderpassCreate(device vk.Device, key renderPassKey) (*VulkanRenderpass, error) {
	var attachments []vk.AttachmentDescription
	subpass := vk.SubpassDescription{
		PipelineBindPoint: vk.PipelineBindPointGraphics,
	}
	stages := vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	access := vk.AccessFlags(0)

	if key.color != vk.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.color,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.colorLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  key.colorInitial,
			FinalLayout:    key.colorFinal,
		})
		subpass.ColorAttachmentCount = 1
		subpass.PColorAttachments = []vk.AttachmentReference{{
			Attachment: 0,
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		}}
		access |= vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	}

	if key.depth != vk.FormatUndefined {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.depth,
			Samples:        vk.SampleCount1Bit,
			LoadOp:         key.depthLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  key.depthInitial,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		subpass.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		stages |= vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
		access |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	}

	// Previous passes of the same frame write the same attachments.
	dependency := vk.SubpassDependency{
		SrcSubpass:    vk.SubpassExternal,
		DstSubpass:    0,
		SrcStageMask:  stages,
		SrcAccessMask: access &^ vk.AccessFlags(vk.AccessColorAttachmentReadBit|vk.AccessDepthStencilAttachmentReadBit),
		DstStageMask:  stages,
		DstAccessMask: access,
	}

	info := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		PAttachments:    attachments,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
		DependencyCount: 1,
		PDependencies:   []vk.SubpassDependency{dependency},
	}
	var handle vk.RenderPass
	if err := check(core.ErrResourceCreation, vk.CreateRenderPass(device, &info, nil, &handle), "vkCreateRenderPass"); err != nil {
		return nil, err
	}
	return &VulkanRenderpass{Handle: handle, key: key}, nil
}

func (vr *VulkanRenderpass) Destroy(device vk.Device) {
	if vr.Handle != vk.NullRenderPass {
		vk.DestroyRenderPass(device, vr.Handle, nil)
		vr.Handle = vk.NullRenderPass
	}
}

// Begin starts the pass over the whole framebuffer. Clear values are only read
// for attachments the pass loads with a clear.
func (vr *VulkanRenderpass) Begin(cmd *VulkanCommandBuffer, fb *VulkanFramebuffer, color [4]float32, depth float32) {
	clearValues := make([]vk.ClearValue, 0, 2)
	if vr.key.color != vk.FormatUndefined {
		var cv vk.ClearValue
		cv.SetColor(color[:])
		clearValues = append(clearValues, cv)
	}
	if vr.key.depth != vk.FormatUndefined {
		var dv vk.ClearValue
		dv.SetDepthStencil(depth, 0)
		clearValues = append(clearValues, dv)
	}
	info := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  vr.Handle,
		Framebuffer: fb.Handle,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: fb.Width, Height: fb.Height},
		},
		ClearValueCount: uint32(len(clearValues)),
		PClearValues:    clearValues,
	}
	vk.CmdBeginRenderPass(cmd.Handle, &info, vk.SubpassContentsInline)
	cmd.State = COMMAND_BUFFER_STATE_IN_RENDER_PASS
}

func (vr *VulkanRenderpass) End(cmd *VulkanCommandBuffer) {
	vk.CmdEndRenderPass(cmd.Handle)
	cmd.State = COMMAND_BUFFER_STATE_RECORDING
}
