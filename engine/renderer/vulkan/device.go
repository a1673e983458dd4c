package vulkan

import (
	"sync"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// maxFramesInFlight is how many frames the CPU records ahead of the GPU.
const maxFramesInFlight = 2

// physicalAdapter is the backend side of an AdapterInfo.
type physicalAdapter struct {
	handle         vk.PhysicalDevice
	properties     vk.PhysicalDeviceProperties
	features       vk.PhysicalDeviceFeatures
	memory         vk.PhysicalDeviceMemoryProperties
	graphicsFamily uint32
	presentFamily  uint32
	portability    bool
}

func (pa *physicalAdapter) localMemory() uint64 {
	var total uint64
	for i := uint32(0); i < pa.memory.MemoryHeapCount; i++ {
		heap := pa.memory.MemoryHeaps[i]
		heap.Deref()
		if vk.MemoryHeapFlagBits(heap.Flags)&vk.MemoryHeapDeviceLocalBit != 0 {
			total += uint64(heap.Size)
		}
	}
	return total
}

func (pa *physicalAdapter) featureLevel() metadata.FeatureLevel {
	return featureLevel(pa.properties.ApiVersion,
		pa.features.SamplerAnisotropy == vk.True,
		pa.features.TextureCompressionBC == vk.True)
}

// queryAdapter reports whether pd can render to surface: a graphics queue, a
// queue that presents to surface and the swapchain extension.
func queryAdapter(pd vk.PhysicalDevice, surface vk.Surface) (*physicalAdapter, bool) {
	pa := &physicalAdapter{handle: pd}
	vk.GetPhysicalDeviceProperties(pd, &pa.properties)
	pa.properties.Deref()
	pa.properties.Limits.Deref()
	vk.GetPhysicalDeviceFeatures(pd, &pa.features)
	pa.features.Deref()
	vk.GetPhysicalDeviceMemoryProperties(pd, &pa.memory)
	pa.memory.Deref()
	name := cString(pa.properties.DeviceName[:])

	var familyCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, nil)
	families := make([]vk.QueueFamilyProperties, familyCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(pd, &familyCount, families)

	graphics, present := -1, -1
	for i := range families {
		families[i].Deref()
		if graphics < 0 && vk.QueueFlagBits(families[i].QueueFlags)&vk.QueueGraphicsBit != 0 {
			graphics = i
		}
		var supported vk.Bool32
		if res := vk.GetPhysicalDeviceSurfaceSupport(pd, uint32(i), surface, &supported); res != vk.Success {
			continue
		}
		// Prefer a family that does both.
		if supported == vk.True && (present < 0 || i == graphics) {
			present = i
		}
	}
	if graphics < 0 || present < 0 {
		core.LogInfo("device %s has no graphics or present queue, skipping", name)
		return nil, false
	}
	pa.graphicsFamily, pa.presentFamily = uint32(graphics), uint32(present)
	core.LogDebug("device %s: graphics family %d, present family %d", name, graphics, present)

	extensions := deviceExtensions(pd)
	if !extensions[vk.KhrSwapchainExtensionName] {
		core.LogInfo("device %s lacks %s, skipping", name, vk.KhrSwapchainExtensionName)
		return nil, false
	}
	pa.portability = extensions["VK_KHR_portability_subset"]

	support, err := querySwapchainSupport(pd, surface)
	if err != nil || len(support.Formats) == 0 || len(support.PresentModes) == 0 {
		core.LogInfo("device %s has no swapchain support for the surface, skipping", name)
		return nil, false
	}
	return pa, true
}

func deviceExtensions(pd vk.PhysicalDevice) map[string]bool {
	var count uint32
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, nil); res != vk.Success {
		return nil
	}
	props := make([]vk.ExtensionProperties, count)
	if res := vk.EnumerateDeviceExtensionProperties(pd, "", &count, props); res != vk.Success {
		return nil
	}
	out := make(map[string]bool, count)
	for i := range props {
		props[i].Deref()
		out[cString(props[i].ExtensionName[:])] = true
	}
	return out
}

// formatSupports reports whether the optimal tiling of format has features.
func formatSupports(pd vk.PhysicalDevice, format vk.Format, features vk.FormatFeatureFlagBits) bool {
	var props vk.FormatProperties
	vk.GetPhysicalDeviceFormatProperties(pd, format, &props)
	props.Deref()
	return vk.FormatFeatureFlagBits(props.OptimalTilingFeatures)&features == features
}

// frame is what one frame in flight records into and synchronizes on.
type frame struct {
	cmd            *VulkanCommandBuffer
	fence          *VulkanFence
	imageAvailable vk.Semaphore
	renderFinished vk.Semaphore
}

type Device struct {
	*metadata.Handle
	backend  *Backend
	adapter  metadata.AdapterInfo
	physical *physicalAdapter
	level    metadata.FeatureLevel
	debug    bool
	locks    *VulkanLockPool

	logical        vk.Device
	graphicsQueue  vk.Queue
	presentQueue   vk.Queue
	graphicsFamily uint32
	presentFamily  uint32
	commandPool    vk.CommandPool
	maxAnisotropy  float32

	descriptors *descriptorCache
	ring        *uniformRing
	fallback    *fallbackResources

	renderPasses map[renderPassKey]*VulkanRenderpass
	framebuffers map[framebufferKey]*VulkanFramebuffer

	frames     [maxFramesInFlight]*frame
	frameIndex int
	recording  bool

	mu        sync.Mutex
	graveyard [maxFramesInFlight][]func()

	context   *Context
	swapchain *Swapchain
}

func newDevice(b *Backend, pa *physicalAdapter, adapter metadata.AdapterInfo, config metadata.DeviceConfig) (*Device, error) {
	d := &Device{
		backend:        b,
		adapter:        adapter,
		physical:       pa,
		level:          adapter.FeatureLevel,
		debug:          config.Debug,
		locks:          NewVulkanLockPool(),
		graphicsFamily: pa.graphicsFamily,
		presentFamily:  pa.presentFamily,
		maxAnisotropy:  pa.properties.Limits.MaxSamplerAnisotropy,
		renderPasses:   make(map[renderPassKey]*VulkanRenderpass),
		framebuffers:   make(map[framebufferKey]*VulkanFramebuffer),
	}
	if err := d.createLogicalDevice(); err != nil {
		d.destroy()
		return nil, err
	}
	if err := d.createFrames(); err != nil {
		d.destroy()
		return nil, err
	}
	var err error
	if d.descriptors, err = newDescriptorCache(d.logical); err != nil {
		d.destroy()
		return nil, err
	}
	alignment := uint64(pa.properties.Limits.MinUniformBufferOffsetAlignment)
	if d.ring, err = newUniformRing(d, alignment); err != nil {
		d.destroy()
		return nil, err
	}
	if d.fallback, err = newFallbackResources(d); err != nil {
		d.destroy()
		return nil, err
	}

	d.Handle = b.tracker.Track(metadata.ResourceKindDevice, adapter.Name, d.destroy)
	d.context = newContext(d)
	return d, nil
}

func (d *Device) createLogicalDevice() error {
	families := []uint32{d.graphicsFamily}
	if d.presentFamily != d.graphicsFamily {
		families = append(families, d.presentFamily)
	}
	queueInfos := make([]vk.DeviceQueueCreateInfo, len(families))
	for i, family := range families {
		queueInfos[i] = vk.DeviceQueueCreateInfo{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: family,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}
	}

	features := vk.PhysicalDeviceFeatures{
		SamplerAnisotropy:    d.physical.features.SamplerAnisotropy,
		TextureCompressionBC: d.physical.features.TextureCompressionBC,
	}
	extensions := []string{vk.KhrSwapchainExtensionName}
	if d.physical.portability {
		core.LogInfo("Adding required extension 'VK_KHR_portability_subset'.")
		extensions = append(extensions, "VK_KHR_portability_subset")
	}

	info := vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		PEnabledFeatures:        []vk.PhysicalDeviceFeatures{features},
		EnabledExtensionCount:   uint32(len(extensions)),
		PpEnabledExtensionNames: VulkanSafeStrings(extensions),
	}
	var logical vk.Device
	if err := check(core.ErrDeviceCreation, vk.CreateDevice(d.physical.handle, &info, nil, &logical), "vkCreateDevice"); err != nil {
		return err
	}
	d.logical = logical

	vk.GetDeviceQueue(d.logical, d.graphicsFamily, 0, &d.graphicsQueue)
	vk.GetDeviceQueue(d.logical, d.presentFamily, 0, &d.presentQueue)

	poolInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.graphicsFamily,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}
	var pool vk.CommandPool
	if err := check(core.ErrDeviceCreation, vk.CreateCommandPool(d.logical, &poolInfo, nil, &pool), "vkCreateCommandPool"); err != nil {
		return err
	}
	d.commandPool = pool
	return nil
}

func (d *Device) createFrames() error {
	semaphoreInfo := vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}
	for i := range d.frames {
		f := &frame{}
		d.frames[i] = f
		var err error
		if f.cmd, err = NewVulkanCommandBuffer(d.logical, d.commandPool); err != nil {
			return err
		}
		// Signaled so the first wait on a fresh frame returns at once.
		if f.fence, err = NewFence(d.logical, true); err != nil {
			return err
		}
		if err := check(core.ErrDeviceCreation, vk.CreateSemaphore(d.logical, &semaphoreInfo, nil, &f.imageAvailable), "vkCreateSemaphore"); err != nil {
			return err
		}
		if err := check(core.ErrDeviceCreation, vk.CreateSemaphore(d.logical, &semaphoreInfo, nil, &f.renderFinished), "vkCreateSemaphore"); err != nil {
			return err
		}
	}
	return nil
}

// destroy tears the device down in reverse creation order. It tolerates a
// partially built device.
func (d *Device) destroy() {
	if d.logical == nil {
		return
	}
	d.waitIdle()

	for key, fb := range d.framebuffers {
		fb.Destroy(d.logical)
		delete(d.framebuffers, key)
	}
	for key, rp := range d.renderPasses {
		rp.Destroy(d.logical)
		delete(d.renderPasses, key)
	}
	if d.fallback != nil {
		d.fallback.destroy(d.logical)
	}
	if d.ring != nil {
		d.ring.destroy(d.logical)
	}
	if d.descriptors != nil {
		d.descriptors.destroy(d.logical)
	}
	for _, f := range d.frames {
		if f == nil {
			continue
		}
		if f.fence != nil {
			f.fence.Destroy(d.logical)
		}
		if f.imageAvailable != vk.NullSemaphore {
			vk.DestroySemaphore(d.logical, f.imageAvailable, nil)
		}
		if f.renderFinished != vk.NullSemaphore {
			vk.DestroySemaphore(d.logical, f.renderFinished, nil)
		}
		if f.cmd != nil {
			f.cmd.Free(d.logical, d.commandPool)
		}
	}
	if d.commandPool != vk.NullCommandPool {
		vk.DestroyCommandPool(d.logical, d.commandPool, nil)
		d.commandPool = vk.NullCommandPool
	}
	vk.DestroyDevice(d.logical, nil)
	d.logical = nil
	d.graphicsQueue, d.presentQueue = nil, nil
	core.LogDebug("Vulkan device destroyed.")
}

// retire defers fn until no frame that might use the object is in flight.
// Between frames the last submitted frame is the newest possible user.
func (d *Device) retire(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	slot := d.frameIndex
	if !d.recording {
		slot = (slot + maxFramesInFlight - 1) % maxFramesInFlight
	}
	d.graveyard[slot] = append(d.graveyard[slot], fn)
}

// collect runs what was retired the last time frame was recorded. The caller
// has waited on the fence of that frame.
func (d *Device) collect(frame int) {
	d.mu.Lock()
	fns := d.graveyard[frame]
	d.graveyard[frame] = nil
	d.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// waitIdle drains the GPU and everything retired.
func (d *Device) waitIdle() {
	if d.logical == nil {
		return
	}
	vk.DeviceWaitIdle(d.logical)
	for _, f := range d.frames {
		if f != nil && f.fence != nil {
			f.fence.IsSignaled = true
		}
	}
	for i := range d.graveyard {
		d.collect(i)
	}
}

// findMemoryIndex picks the first memory type allowed by typeFilter with all
// the property flags.
func (d *Device) findMemoryIndex(typeFilter uint32, flags vk.MemoryPropertyFlagBits) (uint32, error) {
	memory := d.physical.memory
	for i := uint32(0); i < memory.MemoryTypeCount; i++ {
		memType := memory.MemoryTypes[i]
		memType.Deref()
		if typeFilter&(1<<i) != 0 && vk.MemoryPropertyFlagBits(memType.PropertyFlags)&flags == flags {
			return i, nil
		}
	}
	return 0, core.WrapError(core.ErrResourceCreation, "no memory type matches filter %#x with flags %#x", typeFilter, uint32(flags))
}

func (d *Device) Adapter() metadata.AdapterInfo            { return d.adapter }
func (d *Device) FeatureLevel() metadata.FeatureLevel      { return d.level }
func (d *Device) Tracker() *metadata.Tracker               { return d.backend.tracker }
func (d *Device) ImmediateContext() metadata.DeviceContext { return d.context }

func (d *Device) LiveObjects() []string {
	return d.backend.tracker.Report()
}
