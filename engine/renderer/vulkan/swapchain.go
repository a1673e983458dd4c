package vulkan

import (
	"fmt"
	"math"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type VulkanSwapchainSupportInfo struct {
	Capabilities vk.SurfaceCapabilities
	Formats      []vk.SurfaceFormat
	PresentModes []vk.PresentMode
}

func querySwapchainSupport(pd vk.PhysicalDevice, surface vk.Surface) (*VulkanSwapchainSupportInfo, error) {
	info := &VulkanSwapchainSupportInfo{}
	if err := check(core.ErrSwapchainBooting, vk.GetPhysicalDeviceSurfaceCapabilities(pd, surface, &info.Capabilities), "vkGetPhysicalDeviceSurfaceCapabilities"); err != nil {
		return nil, err
	}
	info.Capabilities.Deref()
	info.Capabilities.CurrentExtent.Deref()
	info.Capabilities.MinImageExtent.Deref()
	info.Capabilities.MaxImageExtent.Deref()

	var formatCount uint32
	if err := check(core.ErrSwapchainBooting, vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, nil), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
		return nil, err
	}
	if formatCount > 0 {
		info.Formats = make([]vk.SurfaceFormat, formatCount)
		if err := check(core.ErrSwapchainBooting, vk.GetPhysicalDeviceSurfaceFormats(pd, surface, &formatCount, info.Formats), "vkGetPhysicalDeviceSurfaceFormats"); err != nil {
			return nil, err
		}
		for i := range info.Formats {
			info.Formats[i].Deref()
		}
	}

	var modeCount uint32
	if err := check(core.ErrSwapchainBooting, vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, nil), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
		return nil, err
	}
	if modeCount > 0 {
		info.PresentModes = make([]vk.PresentMode, modeCount)
		if err := check(core.ErrSwapchainBooting, vk.GetPhysicalDeviceSurfacePresentModes(pd, surface, &modeCount, info.PresentModes), "vkGetPhysicalDeviceSurfacePresentModes"); err != nil {
			return nil, err
		}
	}
	return info, nil
}

// chooseSurfaceFormat prefers the requested format, then BGRA, then whatever
// the surface lists first.
func chooseSurfaceFormat(formats []vk.SurfaceFormat, requested vk.Format) vk.SurfaceFormat {
	for _, f := range formats {
		if f.Format == requested && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	for _, f := range formats {
		if f.Format == vk.FormatB8g8r8a8Unorm && f.ColorSpace == vk.ColorSpaceSrgbNonlinear {
			return f
		}
	}
	return formats[0]
}

// choosePresentMode maps the sync interval: 0 presents as soon as possible,
// anything else waits for vertical blank. FIFO is always there.
func choosePresentMode(modes []vk.PresentMode, syncInterval uint32) vk.PresentMode {
	if syncInterval > 0 {
		return vk.PresentModeFifo
	}
	for _, preferred := range []vk.PresentMode{vk.PresentModeMailbox, vk.PresentModeImmediate} {
		for _, m := range modes {
			if m == preferred {
				return m
			}
		}
	}
	return vk.PresentModeFifo
}

// chooseExtent honours a surface that dictates its size and otherwise clamps
// the requested size to what the surface accepts.
func chooseExtent(caps vk.SurfaceCapabilities, width, height uint32) vk.Extent2D {
	if caps.CurrentExtent.Width != math.MaxUint32 {
		return caps.CurrentExtent
	}
	return vk.Extent2D{
		Width:  min(max(width, caps.MinImageExtent.Width), caps.MaxImageExtent.Width),
		Height: min(max(height, caps.MinImageExtent.Height), caps.MaxImageExtent.Height),
	}
}

func chooseImageCount(caps vk.SurfaceCapabilities, requested uint32) uint32 {
	count := max(requested, caps.MinImageCount)
	if caps.MaxImageCount > 0 && count > caps.MaxImageCount {
		count = caps.MaxImageCount
	}
	return count
}

// Swapchain implements metadata.Swapchain. Its back buffer is abstract: views
// of it resolve to whichever image was acquired for the frame, so the images
// can be recreated behind them.
type Swapchain struct {
	*metadata.Handle
	device *Device
	desc   metadata.SwapchainDesc

	handle      vk.Swapchain
	format      vk.SurfaceFormat
	presentMode vk.PresentMode
	modes       []vk.PresentMode
	extent      vk.Extent2D
	images      []vk.Image
	views       []vk.ImageView
	layouts     []vk.ImageLayout

	current  uint32
	acquired bool
	// stale is set when the surface reported the images no longer match it.
	stale        bool
	syncInterval uint32

	// outstanding counts live back buffer references and views of them.
	outstanding int
}

func (s *Swapchain) Desc() metadata.SwapchainDesc { return s.desc }

func (s *Swapchain) create() error {
	d := s.device
	support, err := querySwapchainSupport(d.physical.handle, d.backend.surface)
	if err != nil {
		return err
	}
	if len(support.Formats) == 0 {
		return core.WrapError(core.ErrSwapchainBooting, "surface reports no formats")
	}

	requested := VulkanFormat(s.desc.Format)
	s.format = chooseSurfaceFormat(support.Formats, requested)
	if s.format.Format != requested {
		if f, ok := metadataFormat(s.format.Format); ok {
			core.LogInfo("swapchain format %s unavailable, using %s", s.desc.Format, f)
			s.desc.Format = f
		} else {
			return core.WrapError(core.ErrSwapchainBooting, "surface offers no usable color format")
		}
	}
	s.modes = support.PresentModes
	s.presentMode = choosePresentMode(s.modes, s.syncInterval)
	s.extent = chooseExtent(support.Capabilities, s.desc.Width, s.desc.Height)
	if s.extent.Width == 0 || s.extent.Height == 0 {
		// Minimized: nothing can be presented until the next resize.
		return core.WrapError(core.ErrSwapchainBooting, "surface extent is %dx%d", s.extent.Width, s.extent.Height)
	}

	info := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          d.backend.surface,
		MinImageCount:    chooseImageCount(support.Capabilities, max(s.desc.BufferCount, 2)),
		ImageFormat:      s.format.Format,
		ImageColorSpace:  s.format.ColorSpace,
		ImageExtent:      s.extent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     support.Capabilities.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      s.presentMode,
		Clipped:          vk.True,
		OldSwapchain:     s.handle,
	}
	if d.graphicsFamily != d.presentFamily {
		info.ImageSharingMode = vk.SharingModeConcurrent
		info.QueueFamilyIndexCount = 2
		info.PQueueFamilyIndices = []uint32{d.graphicsFamily, d.presentFamily}
	}

	var handle vk.Swapchain
	if err := check(core.ErrSwapchainBooting, vk.CreateSwapchain(d.logical, &info, nil, &handle), "vkCreateSwapchain"); err != nil {
		return err
	}
	s.destroyImages()
	s.handle = handle

	var count uint32
	if err := check(core.ErrSwapchainBooting, vk.GetSwapchainImages(d.logical, s.handle, &count, nil), "vkGetSwapchainImages"); err != nil {
		return err
	}
	s.images = make([]vk.Image, count)
	if err := check(core.ErrSwapchainBooting, vk.GetSwapchainImages(d.logical, s.handle, &count, s.images), "vkGetSwapchainImages"); err != nil {
		return err
	}
	s.views = make([]vk.ImageView, count)
	s.layouts = make([]vk.ImageLayout, count)
	for i, image := range s.images {
		view, err := d.createImageView(image, vk.ImageViewType2d, s.format.Format, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1)
		if err != nil {
			return err
		}
		s.views[i] = view
		s.layouts[i] = vk.ImageLayoutUndefined
	}
	s.acquired = false
	s.stale = false
	core.LogInfo("Swapchain created: %dx%d, %d images, %s.", s.extent.Width, s.extent.Height, count, VulkanFormatName(s.format.Format))
	return nil
}

// destroyImages drops the image views and the framebuffers built on them.
// The images belong to the swapchain handle.
func (s *Swapchain) destroyImages() {
	d := s.device
	for _, view := range s.views {
		for _, fb := range d.forgetFramebuffers(view) {
			fb.Destroy(d.logical)
		}
		if view != vk.NullImageView {
			vk.DestroyImageView(d.logical, view, nil)
		}
	}
	s.views, s.images, s.layouts = nil, nil, nil
}

// recreate rebuilds the images at the current desc size. The device is idle
// afterwards, so nothing in flight still uses the old ones.
func (s *Swapchain) recreate() error {
	s.device.waitIdle()
	old := s.handle
	defer func() {
		if old != vk.NullSwapchain && old != s.handle {
			vk.DestroySwapchain(s.device.logical, old, nil)
		}
	}()
	return s.create()
}

func (s *Swapchain) destroy() {
	d := s.device
	if d.logical == nil {
		return
	}
	d.waitIdle()
	s.destroyImages()
	if s.handle != vk.NullSwapchain {
		vk.DestroySwapchain(d.logical, s.handle, nil)
		s.handle = vk.NullSwapchain
	}
	if d.swapchain == s {
		d.swapchain = nil
	}
	core.LogDebug("Swapchain destroyed.")
}

func (s *Swapchain) GetBuffer(index uint32) (*metadata.Texture, error) {
	if index >= max(s.desc.BufferCount, 1) {
		return nil, core.WrapError(core.ErrResourceCreation, "back buffer %d of %d", index, s.desc.BufferCount)
	}
	s.outstanding++
	label := fmt.Sprintf("back buffer %d", index)
	return &metadata.Texture{
		Handle: s.device.backend.tracker.Track(metadata.ResourceKindTexture, label, func() { s.outstanding-- }),
		Desc: metadata.TextureDesc{
			Label:     label,
			Width:     s.desc.Width,
			Height:    s.desc.Height,
			MipLevels: 1,
			ArraySize: 1,
			Format:    s.desc.Format,
			Bind:      metadata.BindRenderTarget,
		},
		Internal: &backBuffer{swapchain: s},
	}, nil
}

func (s *Swapchain) ResizeBuffers(count, width, height uint32, format metadata.Format) error {
	if s.outstanding > 0 {
		return core.WrapError(core.ErrResize, "%d references to the back buffers are still alive", s.outstanding)
	}
	if width == 0 || height == 0 {
		return core.WrapError(core.ErrResize, "swapchain extent %dx%d", width, height)
	}
	s.device.context.abandonFrame()
	if count > 0 {
		s.desc.BufferCount = count
	}
	if format != metadata.FormatUnknown {
		s.desc.Format = format
	}
	s.desc.Width, s.desc.Height = width, height
	if err := s.recreate(); err != nil {
		return core.WrapErrorCause(core.ErrResize, err, "resize to %dx%d", width, height)
	}
	return nil
}

// acquire makes sure an image is acquired for the frame being recorded,
// recreating stale images first.
func (s *Swapchain) acquire(signal vk.Semaphore) error {
	if s.acquired {
		return nil
	}
	if s.stale || s.handle == vk.NullSwapchain {
		if err := s.recreate(); err != nil {
			return err
		}
	}
	for attempt := 0; ; attempt++ {
		var index uint32
		result := vk.AcquireNextImage(s.device.logical, s.handle, vk.MaxUint64, signal, vk.NullFence, &index)
		switch {
		case result == vk.ErrorOutOfDate && attempt == 0:
			if err := s.recreate(); err != nil {
				return err
			}
			continue
		case result == vk.Suboptimal:
			s.stale = true
		case result != vk.Success:
			return check(core.ErrRender, result, "vkAcquireNextImage")
		}
		s.current = index
		s.acquired = true
		return nil
	}
}

// target is the image the back buffer currently resolves to.
func (s *Swapchain) target() (vk.Image, vk.ImageView, *vk.ImageLayout) {
	return s.images[s.current], s.views[s.current], &s.layouts[s.current]
}

func (s *Swapchain) Present(syncInterval uint32, flags metadata.PresentFlags) error {
	if syncInterval != s.syncInterval {
		s.syncInterval = syncInterval
		if choosePresentMode(s.modes, syncInterval) != s.presentMode {
			s.stale = true
		}
	}
	return s.device.context.present(s)
}

// queuePresent hands the acquired image back after the frame signaled wait.
func (s *Swapchain) queuePresent(wait vk.Semaphore) error {
	d := s.device
	info := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		WaitSemaphoreCount: 1,
		PWaitSemaphores:    []vk.Semaphore{wait},
		SwapchainCount:     1,
		PSwapchains:        []vk.Swapchain{s.handle},
		PImageIndices:      []uint32{s.current},
	}
	s.acquired = false
	return d.locks.SafeQueueCall(d.presentFamily, func() error {
		result := vk.QueuePresent(d.presentQueue, &info)
		switch result {
		case vk.Success:
		case vk.Suboptimal, vk.ErrorOutOfDate:
			// Recreated before the next acquire.
			s.stale = true
		default:
			return check(core.ErrRender, result, "vkQueuePresent")
		}
		return nil
	})
}
