package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

type VulkanFence struct {
	Handle     vk.Fence
	IsSignaled bool
}

// NewFence creates a fence, signaled if asked so the first wait returns at once.
func NewFence(device vk.Device, createSignaled bool) (*VulkanFence, error) {
	info := vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}
	if createSignaled {
		info.Flags = vk.FenceCreateFlags(vk.FenceCreateSignaledBit)
	}
	var handle vk.Fence
	if err := check(core.ErrResourceCreation, vk.CreateFence(device, &info, nil, &handle), "vkCreateFence"); err != nil {
		return nil, err
	}
	return &VulkanFence{Handle: handle, IsSignaled: createSignaled}, nil
}

func (vf *VulkanFence) Destroy(device vk.Device) {
	if vf.Handle != vk.NullFence {
		vk.DestroyFence(device, vf.Handle, nil)
		vf.Handle = vk.NullFence
	}
	vf.IsSignaled = false
}

func (vf *VulkanFence) Wait(device vk.Device, timeoutNs uint64) error {
	if vf.IsSignaled {
		return nil
	}
	result := vk.WaitForFences(device, 1, []vk.Fence{vf.Handle}, vk.True, timeoutNs)
	if result == vk.Success {
		vf.IsSignaled = true
		return nil
	}
	if result == vk.Timeout {
		return core.WrapError(core.ErrRender, "fence wait timed out after %dns", timeoutNs)
	}
	return check(core.ErrRender, result, "vkWaitForFences")
}

func (vf *VulkanFence) Reset(device vk.Device) error {
	if !vf.IsSignaled {
		return nil
	}
	if err := check(core.ErrRender, vk.ResetFences(device, 1, []vk.Fence{vf.Handle}), "vkResetFences"); err != nil {
		return err
	}
	vf.IsSignaled = false
	return nil
}
