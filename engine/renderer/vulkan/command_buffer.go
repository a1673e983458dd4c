package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

type VulkanCommandBufferState int

const (
	COMMAND_BUFFER_STATE_READY VulkanCommandBufferState = iota
	COMMAND_BUFFER_STATE_RECORDING
	COMMAND_BUFFER_STATE_IN_RENDER_PASS
	COMMAND_BUFFER_STATE_RECORDING_ENDED
	COMMAND_BUFFER_STATE_SUBMITTED
	COMMAND_BUFFER_STATE_NOT_ALLOCATED
)

type VulkanCommandBuffer struct {
	Handle vk.CommandBuffer
	State  VulkanCommandBufferState
}

func NewVulkanCommandBuffer(device vk.Device, pool vk.CommandPool) (*VulkanCommandBuffer, error) {
	info := vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		CommandBufferCount: 1,
		Level:              vk.CommandBufferLevelPrimary,
	}
	handles := make([]vk.CommandBuffer, 1)
	if err := check(core.ErrResourceCreation, vk.AllocateCommandBuffers(device, &info, handles), "vkAllocateCommandBuffers"); err != nil {
		return nil, err
	}
	return &VulkanCommandBuffer{Handle: handles[0], State: COMMAND_BUFFER_STATE_READY}, nil
}

func (v *VulkanCommandBuffer) Free(device vk.Device, pool vk.CommandPool) {
	if v.Handle == nil {
		return
	}
	vk.FreeCommandBuffers(device, pool, 1, []vk.CommandBuffer{v.Handle})
	v.Handle = nil
	v.State = COMMAND_BUFFER_STATE_NOT_ALLOCATED
}

func (v *VulkanCommandBuffer) Begin(singleUse bool) error {
	info := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	}
	if singleUse {
		info.Flags = vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit)
	}
	if err := check(core.ErrRender, vk.BeginCommandBuffer(v.Handle, &info), "vkBeginCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING
	return nil
}

func (v *VulkanCommandBuffer) End() error {
	if err := check(core.ErrRender, vk.EndCommandBuffer(v.Handle), "vkEndCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_RECORDING_ENDED
	return nil
}

func (v *VulkanCommandBuffer) Reset() error {
	if err := check(core.ErrRender, vk.ResetCommandBuffer(v.Handle, 0), "vkResetCommandBuffer"); err != nil {
		return err
	}
	v.State = COMMAND_BUFFER_STATE_READY
	return nil
}

func (v *VulkanCommandBuffer) UpdateSubmitted() {
	v.State = COMMAND_BUFFER_STATE_SUBMITTED
}

// singleUse records fn into a throwaway command buffer, submits it and waits
// for the queue to drain.
func (d *Device) singleUse(fn func(cmd vk.CommandBuffer)) error {
	cb, err := NewVulkanCommandBuffer(d.logical, d.commandPool)
	if err != nil {
		return err
	}
	defer cb.Free(d.logical, d.commandPool)

	if err := cb.Begin(true); err != nil {
		return err
	}
	fn(cb.Handle)
	if err := cb.End(); err != nil {
		return err
	}
	return d.locks.SafeQueueCall(d.graphicsFamily, func() error {
		submit := vk.SubmitInfo{
			SType:              vk.StructureTypeSubmitInfo,
			CommandBufferCount: 1,
			PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
		}
		if err := check(core.ErrResourceCreation, vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{submit}, vk.NullFence), "vkQueueSubmit"); err != nil {
			return err
		}
		return check(core.ErrResourceCreation, vk.QueueWaitIdle(d.graphicsQueue), "vkQueueWaitIdle")
	})
}
