package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

type framebufferKey struct {
	color  vk.ImageView
	depth  vk.ImageView
	pass   vk.RenderPass
	width  uint32
	height uint32
}

type VulkanFramebuffer struct {
	Handle      vk.Framebuffer
	Width       uint32
	Height      uint32
	Attachments []vk.ImageView
}

// framebuffer returns the cached framebuffer for key, creating it on first use.
func (d *Device) framebuffer(key framebufferKey) (*VulkanFramebuffer, error) {
	if fb, ok := d.framebuffers[key]; ok {
		return fb, nil
	}
	var attachments []vk.ImageView
	if key.color != vk.NullImageView {
		attachments = append(attachments, key.color)
	}
	if key.depth != vk.NullImageView {
		attachments = append(attachments, key.depth)
	}
	fb, err := FramebufferCreate(d.logical, key.pass, key.width, key.height, attachments)
	if err != nil {
		return nil, err
	}
	d.framebuffers[key] = fb
	return fb, nil
}

// forgetFramebuffers drops every cached framebuffer using view and returns
// them so the caller can destroy them once they are idle.
func (d *Device) forgetFramebuffers(view vk.ImageView) []*VulkanFramebuffer {
	if view == vk.NullImageView {
		return nil
	}
	var out []*VulkanFramebuffer
	for key, fb := range d.framebuffers {
		if key.color == view || key.depth == view {
			out = append(out, fb)
			delete(d.framebuffers, key)
		}
	}
	return out
}

func FramebufferCreate(device vk.Device, pass vk.RenderPass, width, height uint32, attachments []vk.ImageView) (*VulkanFramebuffer, error) {
	out := &VulkanFramebuffer{
		Width:       width,
		Height:      height,
		Attachments: append([]vk.ImageView(nil), attachments...),
	}
	info := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(out.Attachments)),
		PAttachments:    out.Attachments,
		Width:           width,
		Height:          height,
		Layers:          1,
	}
	var handle vk.Framebuffer
	if err := check(core.ErrResourceCreation, vk.CreateFramebuffer(device, &info, nil, &handle), "vkCreateFramebuffer"); err != nil {
		return nil, err
	}
	out.Handle = handle
	return out, nil
}

func (vfb *VulkanFramebuffer) Destroy(device vk.Device) {
	if vfb.Handle != vk.NullFramebuffer {
		vk.DestroyFramebuffer(device, vfb.Handle, nil)
		vfb.Handle = vk.NullFramebuffer
	}
	vfb.Attachments = nil
}
