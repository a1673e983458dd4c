package vulkan

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// deviceBuffer is the private side of a metadata.Buffer. Constant buffers
// only live in shadow and are copied into the uniform ring at draw time.
type deviceBuffer struct {
	buffer vk.Buffer
	memory vk.DeviceMemory
	mapped []byte
	shadow []byte
}

// deviceImage is the private side of a metadata.Texture that owns memory.
type deviceImage struct {
	image  vk.Image
	memory vk.DeviceMemory
	format vk.Format
	extent vk.Extent2D
	// layout is the layout the image is left in by the last recorded use.
	layout vk.ImageLayout
}

// backBuffer is the private side of a texture returned by GetBuffer. It
// always resolves to the image the swapchain acquired for the frame.
type backBuffer struct {
	swapchain *Swapchain
}

type deviceView struct {
	view  vk.ImageView
	image *deviceImage
	// swapchain is set on render target views of a back buffer.
	swapchain *Swapchain
}

func (d *Device) createBuffer(size uint64, usage vk.BufferUsageFlags, flags vk.MemoryPropertyFlagBits) (vk.Buffer, vk.DeviceMemory, error) {
	var buffer vk.Buffer
	if err := check(core.ErrResourceCreation, vk.CreateBuffer(d.logical, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buffer), "vkCreateBuffer"); err != nil {
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}

	var requirements vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.logical, buffer, &requirements)
	requirements.Deref()
	index, err := d.findMemoryIndex(requirements.MemoryTypeBits, flags)
	if err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	var memory vk.DeviceMemory
	if err := check(core.ErrResourceCreation, vk.AllocateMemory(d.logical, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}, nil, &memory), "vkAllocateMemory"); err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	if err := check(core.ErrResourceCreation, vk.BindBufferMemory(d.logical, buffer, memory, 0), "vkBindBufferMemory"); err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		vk.FreeMemory(d.logical, memory, nil)
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	return buffer, memory, nil
}

func (d *Device) mapMemory(memory vk.DeviceMemory, size uint64) ([]byte, error) {
	var ptr unsafe.Pointer
	if err := check(core.ErrResourceCreation, vk.MapMemory(d.logical, memory, 0, vk.DeviceSize(size), 0, &ptr), "vkMapMemory"); err != nil {
		return nil, err
	}
	return unsafe.Slice((*byte)(ptr), size), nil
}

// stage copies data into a host visible transfer source. The caller destroys
// both returned objects once the copy ran.
func (d *Device) stage(data []byte) (vk.Buffer, vk.DeviceMemory, error) {
	buffer, memory, err := d.createBuffer(uint64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
	if err != nil {
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	mapped, err := d.mapMemory(memory, uint64(len(data)))
	if err != nil {
		vk.DestroyBuffer(d.logical, buffer, nil)
		vk.FreeMemory(d.logical, memory, nil)
		return vk.NullBuffer, vk.NullDeviceMemory, err
	}
	copy(mapped, data)
	vk.UnmapMemory(d.logical, memory)
	return buffer, memory, nil
}

func bufferUsage(bind metadata.BindFlags) vk.BufferUsageFlags {
	var usage vk.BufferUsageFlags
	if bind&metadata.BindVertexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if bind&metadata.BindIndexBuffer != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if bind&metadata.BindShaderResource != 0 {
		usage |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	return usage
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc, initial []byte) (*metadata.Buffer, error) {
	if desc.Size == 0 {
		return nil, core.WrapError(core.ErrResourceCreation, "buffer %s has zero size", desc.Label)
	}
	if desc.Usage == metadata.UsageImmutable && initial == nil {
		return nil, core.WrapError(core.ErrResourceCreation, "immutable buffer %s without initial data", desc.Label)
	}
	if uint64(len(initial)) > desc.Size {
		return nil, core.WrapError(core.ErrResourceCreation, "buffer %s: %d bytes of initial data for %d bytes", desc.Label, len(initial), desc.Size)
	}

	b := &deviceBuffer{}
	switch {
	case desc.Bind&metadata.BindConstantBuffer != 0:
		if desc.Size > uniformRange {
			return nil, core.WrapError(core.ErrResourceCreation, "constant buffer %s of %d bytes exceeds %d", desc.Label, desc.Size, uniformRange)
		}
		b.shadow = make([]byte, desc.Size)
		copy(b.shadow, initial)
	case desc.Usage == metadata.UsageImmutable:
		if err := d.uploadBuffer(b, desc, initial); err != nil {
			return nil, err
		}
	default:
		buffer, memory, err := d.createBuffer(desc.Size, bufferUsage(desc.Bind),
			vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit)
		if err != nil {
			return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "buffer %s", desc.Label)
		}
		b.buffer, b.memory = buffer, memory
		if b.mapped, err = d.mapMemory(memory, desc.Size); err != nil {
			d.destroyBuffer(b)
			return nil, err
		}
		copy(b.mapped, initial)
	}

	return &metadata.Buffer{
		Handle:   d.backend.tracker.Track(metadata.ResourceKindBuffer, desc.Label, func() { d.retire(func() { d.destroyBuffer(b) }) }),
		Desc:     desc,
		Internal: b,
	}, nil
}

// uploadBuffer fills a device local buffer through a staging copy.
func (d *Device) uploadBuffer(b *deviceBuffer, desc metadata.BufferDesc, initial []byte) error {
	data := initial
	if uint64(len(data)) < desc.Size {
		data = make([]byte, desc.Size)
		copy(data, initial)
	}
	staging, stagingMemory, err := d.stage(data)
	if err != nil {
		return err
	}
	defer func() {
		vk.DestroyBuffer(d.logical, staging, nil)
		vk.FreeMemory(d.logical, stagingMemory, nil)
	}()

	buffer, memory, err := d.createBuffer(desc.Size,
		bufferUsage(desc.Bind)|vk.BufferUsageFlags(vk.BufferUsageTransferDstBit),
		vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "buffer %s", desc.Label)
	}
	b.buffer, b.memory = buffer, memory
	if err := d.singleUse(func(cmd vk.CommandBuffer) {
		vk.CmdCopyBuffer(cmd, staging, buffer, 1, []vk.BufferCopy{{Size: vk.DeviceSize(desc.Size)}})
	}); err != nil {
		d.destroyBuffer(b)
		return err
	}
	return nil
}

func (d *Device) destroyBuffer(b *deviceBuffer) {
	if b.mapped != nil {
		vk.UnmapMemory(d.logical, b.memory)
		b.mapped = nil
	}
	if b.buffer != vk.NullBuffer {
		vk.DestroyBuffer(d.logical, b.buffer, nil)
		b.buffer = vk.NullBuffer
	}
	if b.memory != vk.NullDeviceMemory {
		vk.FreeMemory(d.logical, b.memory, nil)
		b.memory = vk.NullDeviceMemory
	}
}

func imageUsage(bind metadata.BindFlags) vk.ImageUsageFlags {
	var usage vk.ImageUsageFlags
	if bind&metadata.BindShaderResource != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageSampledBit | vk.ImageUsageTransferDstBit)
	}
	if bind&metadata.BindRenderTarget != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if bind&metadata.BindDepthStencil != 0 {
		usage |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	return usage
}

func (d *Device) createImage(desc metadata.TextureDesc, format vk.Format) (*deviceImage, error) {
	info := vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: vk.ImageType2d,
		Format:    format,
		Extent: vk.Extent3D{
			Width:  desc.Width,
			Height: desc.Height,
			Depth:  1,
		},
		MipLevels:     desc.MipLevels,
		ArrayLayers:   desc.ArraySize,
		Samples:       vk.SampleCount1Bit,
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Bind),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	if desc.Cube {
		info.Flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}
	var image vk.Image
	if err := check(core.ErrResourceCreation, vk.CreateImage(d.logical, &info, nil, &image), "vkCreateImage %s", desc.Label); err != nil {
		return nil, err
	}

	var requirements vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.logical, image, &requirements)
	requirements.Deref()
	index, err := d.findMemoryIndex(requirements.MemoryTypeBits, vk.MemoryPropertyDeviceLocalBit)
	if err != nil {
		vk.DestroyImage(d.logical, image, nil)
		return nil, err
	}
	var memory vk.DeviceMemory
	if err := check(core.ErrResourceCreation, vk.AllocateMemory(d.logical, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  requirements.Size,
		MemoryTypeIndex: index,
	}, nil, &memory), "vkAllocateMemory %s", desc.Label); err != nil {
		vk.DestroyImage(d.logical, image, nil)
		return nil, err
	}
	if err := check(core.ErrResourceCreation, vk.BindImageMemory(d.logical, image, memory, 0), "vkBindImageMemory %s", desc.Label); err != nil {
		vk.DestroyImage(d.logical, image, nil)
		vk.FreeMemory(d.logical, memory, nil)
		return nil, err
	}
	return &deviceImage{
		image:  image,
		memory: memory,
		format: format,
		extent: vk.Extent2D{Width: desc.Width, Height: desc.Height},
		layout: vk.ImageLayoutUndefined,
	}, nil
}

func (d *Device) destroyImage(img *deviceImage) {
	if img.image != vk.NullImage {
		vk.DestroyImage(d.logical, img.image, nil)
		img.image = vk.NullImage
	}
	if img.memory != vk.NullDeviceMemory {
		vk.FreeMemory(d.logical, img.memory, nil)
		img.memory = vk.NullDeviceMemory
	}
}

func (d *Device) CreateTexture(desc metadata.TextureDesc, initial []metadata.SubresourceData) (*metadata.Texture, error) {
	if desc.Width == 0 || desc.Height == 0 || desc.MipLevels == 0 || desc.ArraySize == 0 {
		return nil, core.WrapError(core.ErrResourceCreation, "texture %s has an empty extent", desc.Label)
	}
	if desc.Cube && desc.ArraySize != 6 {
		return nil, core.WrapError(core.ErrResourceCreation, "cube texture %s with %d faces", desc.Label, desc.ArraySize)
	}
	if initial != nil && uint32(len(initial)) != desc.SubresourceCount() {
		return nil, core.WrapError(core.ErrResourceCreation, "texture %s: %d subresources given, %d expected", desc.Label, len(initial), desc.SubresourceCount())
	}
	format := VulkanFormat(desc.Format)
	if format == vk.FormatUndefined {
		return nil, core.WrapError(core.ErrResourceCreation, "texture %s: format %s has no Vulkan equivalent", desc.Label, desc.Format)
	}

	img, err := d.createImage(desc, format)
	if err != nil {
		return nil, err
	}
	switch {
	case initial != nil:
		err = d.uploadImage(img, desc, initial)
	case desc.Bind&metadata.BindShaderResource != 0:
		// Sampled before anything was written: still has to be readable.
		err = d.singleUse(func(cmd vk.CommandBuffer) {
			transitionImage(cmd, img, desc, vk.ImageLayoutShaderReadOnlyOptimal)
		})
	}
	if err != nil {
		d.destroyImage(img)
		return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "texture %s", desc.Label)
	}

	return &metadata.Texture{
		Handle:   d.backend.tracker.Track(metadata.ResourceKindTexture, desc.Label, func() { d.retire(func() { d.destroyImage(img) }) }),
		Desc:     desc,
		Internal: img,
	}, nil
}

// uploadImage copies every subresource through one staging buffer and leaves
// the image ready for sampling.
func (d *Device) uploadImage(img *deviceImage, desc metadata.TextureDesc, initial []metadata.SubresourceData) error {
	info, ok := desc.Format.Info()
	if !ok {
		return core.WrapError(core.ErrResourceCreation, "unknown format %s", desc.Format)
	}

	var size uint64
	offsets := make([]uint64, len(initial))
	for i, sub := range initial {
		size = alignUp(size, 16)
		offsets[i] = size
		size += uint64(len(sub.Data))
	}
	data := make([]byte, size)
	for i, sub := range initial {
		copy(data[offsets[i]:], sub.Data)
	}
	staging, stagingMemory, err := d.stage(data)
	if err != nil {
		return err
	}
	defer func() {
		vk.DestroyBuffer(d.logical, staging, nil)
		vk.FreeMemory(d.logical, stagingMemory, nil)
	}()

	regions := make([]vk.BufferImageCopy, 0, len(initial))
	for slice := uint32(0); slice < desc.ArraySize; slice++ {
		for mip := uint32(0); mip < desc.MipLevels; mip++ {
			index := desc.SubresourceIndex(mip, slice)
			width := max(desc.Width>>mip, 1)
			height := max(desc.Height>>mip, 1)
			// Buffer row length is counted in texels, compressed rows in blocks.
			rowLength := uint32(0)
			if pitch := initial[index].RowPitch; pitch > 0 && info.BytesPerBlock > 0 {
				rowLength = pitch / info.BytesPerBlock * info.BlockWidth
			}
			regions = append(regions, vk.BufferImageCopy{
				BufferOffset:    vk.DeviceSize(offsets[index]),
				BufferRowLength: rowLength,
				ImageSubresource: vk.ImageSubresourceLayers{
					AspectMask:     aspectMask(desc.Format),
					MipLevel:       mip,
					BaseArrayLayer: slice,
					LayerCount:     1,
				},
				ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: 1},
			})
		}
	}

	return d.singleUse(func(cmd vk.CommandBuffer) {
		transitionImage(cmd, img, desc, vk.ImageLayoutTransferDstOptimal)
		vk.CmdCopyBufferToImage(cmd, staging, img.image, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)
		transitionImage(cmd, img, desc, vk.ImageLayoutShaderReadOnlyOptimal)
	})
}

// transitionImage records a barrier moving every subresource of img to
// layout and remembers the new layout.
func transitionImage(cmd vk.CommandBuffer, img *deviceImage, desc metadata.TextureDesc, layout vk.ImageLayout) {
	imageBarrier(cmd, img.image, aspectMask(desc.Format), desc.MipLevels, desc.ArraySize, img.layout, layout)
	img.layout = layout
}

func imageBarrier(cmd vk.CommandBuffer, image vk.Image, aspect vk.ImageAspectFlags, levels, layers uint32, from, to vk.ImageLayout) {
	srcAccess, srcStage := layoutAccess(from)
	dstAccess, dstStage := layoutAccess(to)
	vk.CmdPipelineBarrier(cmd, srcStage, dstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       srcAccess,
		DstAccessMask:       dstAccess,
		OldLayout:           from,
		NewLayout:           to,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               image,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: levels,
			LayerCount: layers,
		},
	}})
}

func layoutAccess(layout vk.ImageLayout) (vk.AccessFlags, vk.PipelineStageFlags) {
	switch layout {
	case vk.ImageLayoutTransferDstOptimal:
		return vk.AccessFlags(vk.AccessTransferWriteBit), vk.PipelineStageFlags(vk.PipelineStageTransferBit)
	case vk.ImageLayoutShaderReadOnlyOptimal:
		return vk.AccessFlags(vk.AccessShaderReadBit), vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit)
	case vk.ImageLayoutColorAttachmentOptimal:
		return vk.AccessFlags(vk.AccessColorAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)
	case vk.ImageLayoutDepthStencilAttachmentOptimal:
		return vk.AccessFlags(vk.AccessDepthStencilAttachmentWriteBit), vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit)
	case vk.ImageLayoutPresentSrc:
		return 0, vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit)
	}
	return 0, vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit)
}

func (d *Device) createImageView(image vk.Image, viewType vk.ImageViewType, format vk.Format, aspect vk.ImageAspectFlags, mips, layers uint32) (vk.ImageView, error) {
	var view vk.ImageView
	err := check(core.ErrResourceCreation, vk.CreateImageView(d.logical, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: mips,
			LayerCount: layers,
		},
	}, nil, &view), "vkCreateImageView")
	return view, err
}

// releaseView destroys an image view once no frame in flight can use it,
// together with the descriptor sets and framebuffers built on it.
func (d *Device) releaseView(id core.Identifier, view vk.ImageView) {
	sets := d.descriptors.forget(id)
	framebuffers := d.forgetFramebuffers(view)
	d.retire(func() {
		d.descriptors.free(d.logical, sets)
		for _, fb := range framebuffers {
			fb.Destroy(d.logical)
		}
		if view != vk.NullImageView {
			vk.DestroyImageView(d.logical, view, nil)
		}
	})
}

func (d *Device) trackView(kind metadata.ResourceKind, tex *metadata.Texture, desc metadata.ViewDesc, v *deviceView) *metadata.View {
	out := &metadata.View{Desc: desc, Texture: tex, Internal: v}
	out.Handle = d.backend.tracker.Track(kind, desc.Label, func() {
		if v.swapchain != nil {
			v.swapchain.outstanding--
			return
		}
		d.releaseView(out.ID(), v.view)
	})
	return out
}

func (d *Device) CreateShaderResourceView(tex *metadata.Texture, desc metadata.ViewDesc) (*metadata.View, error) {
	if tex == nil || tex.Released() {
		return nil, core.WrapError(core.ErrResourceCreation, "shader resource view %s of a released texture", desc.Label)
	}
	img, ok := tex.Internal.(*deviceImage)
	if !ok {
		return nil, core.WrapError(core.ErrResourceCreation, "shader resource view %s: texture %s cannot be sampled", desc.Label, tex.Desc.Label)
	}
	if tex.Desc.Bind&metadata.BindShaderResource == 0 {
		return nil, core.WrapError(core.ErrResourceCreation, "shader resource view %s: texture %s is not bound for sampling", desc.Label, tex.Desc.Label)
	}
	viewType := vk.ImageViewType2d
	if desc.Dimension == metadata.ViewDimensionTextureCube {
		if !tex.Desc.Cube {
			return nil, core.WrapError(core.ErrResourceCreation, "cube view of 2D texture %s", tex.Desc.Label)
		}
		viewType = vk.ImageViewTypeCube
	}
	format := img.format
	if desc.Format != metadata.FormatUnknown {
		format = VulkanFormat(desc.Format)
	}
	view, err := d.createImageView(img.image, viewType, format, aspectMask(tex.Desc.Format), tex.Desc.MipLevels, tex.Desc.ArraySize)
	if err != nil {
		return nil, err
	}
	return d.trackView(metadata.ResourceKindShaderResourceView, tex, desc, &deviceView{view: view, image: img}), nil
}

func (d *Device) CreateRenderTargetView(tex *metadata.Texture) (*metadata.View, error) {
	if tex == nil || tex.Released() {
		return nil, core.WrapError(core.ErrResourceCreation, "render target view of a released texture")
	}
	desc := metadata.ViewDesc{Label: tex.Desc.Label + " rtv", Format: tex.Desc.Format}
	switch internal := tex.Internal.(type) {
	case *backBuffer:
		internal.swapchain.outstanding++
		return d.trackView(metadata.ResourceKindRenderTargetView, tex, desc, &deviceView{swapchain: internal.swapchain}), nil
	case *deviceImage:
		if tex.Desc.Bind&metadata.BindRenderTarget == 0 {
			return nil, core.WrapError(core.ErrResourceCreation, "texture %s is not bound as a render target", tex.Desc.Label)
		}
		view, err := d.createImageView(internal.image, vk.ImageViewType2d, internal.format, aspectMask(tex.Desc.Format), 1, 1)
		if err != nil {
			return nil, err
		}
		return d.trackView(metadata.ResourceKindRenderTargetView, tex, desc, &deviceView{view: view, image: internal}), nil
	}
	return nil, core.WrapError(core.ErrResourceCreation, "render target view of foreign texture %s", tex.Desc.Label)
}

func (d *Device) CreateDepthStencilView(tex *metadata.Texture) (*metadata.View, error) {
	if tex == nil || tex.Released() {
		return nil, core.WrapError(core.ErrResourceCreation, "depth stencil view of a released texture")
	}
	if info, ok := tex.Desc.Format.Info(); !ok || !info.Depth {
		return nil, core.WrapError(core.ErrResourceCreation, "depth stencil view of %s texture %s", tex.Desc.Format, tex.Desc.Label)
	}
	img, ok := tex.Internal.(*deviceImage)
	if !ok {
		return nil, core.WrapError(core.ErrResourceCreation, "depth stencil view of foreign texture %s", tex.Desc.Label)
	}
	view, err := d.createImageView(img.image, vk.ImageViewType2d, img.format, aspectMask(tex.Desc.Format), 1, 1)
	if err != nil {
		return nil, err
	}
	desc := metadata.ViewDesc{Label: tex.Desc.Label + " dsv", Format: tex.Desc.Format}
	return d.trackView(metadata.ResourceKindDepthStencilView, tex, desc, &deviceView{view: view, image: img}), nil
}

func (d *Device) shaderModule(label string, code []uint32) (vk.ShaderModule, error) {
	var module vk.ShaderModule
	err := check(core.ErrShaderCompile, vk.CreateShaderModule(d.logical, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(code) * 4),
		PCode:    code,
	}, nil, &module), "vkCreateShaderModule %s", label)
	return module, err
}

func (d *Device) CreateShader(desc metadata.ShaderDesc) (*metadata.Shader, error) {
	if len(desc.Code) == 0 {
		return nil, core.WrapError(core.ErrShaderCompile, "shader %s has no code", desc.Label)
	}
	module, err := d.shaderModule(desc.Label, desc.Code)
	if err != nil {
		return nil, err
	}
	return &metadata.Shader{
		Handle: d.backend.tracker.Track(metadata.ResourceKindShader, desc.Label, func() {
			vk.DestroyShaderModule(d.logical, module, nil)
		}),
		Desc:     desc,
		Internal: module,
	}, nil
}

func (d *Device) CreateSampler(desc metadata.SamplerDesc) (*metadata.Sampler, error) {
	info, err := d.samplerInfo(desc)
	if err != nil {
		return nil, err
	}
	var sampler vk.Sampler
	if err := check(core.ErrResourceCreation, vk.CreateSampler(d.logical, &info, nil, &sampler), "vkCreateSampler %s", desc.Label); err != nil {
		return nil, err
	}
	out := &metadata.Sampler{Desc: desc, Internal: sampler}
	out.Handle = d.backend.tracker.Track(metadata.ResourceKindSampler, desc.Label, func() {
		sets := d.descriptors.forget(out.ID())
		d.retire(func() {
			d.descriptors.free(d.logical, sets)
			vk.DestroySampler(d.logical, sampler, nil)
		})
	})
	return out, nil
}

func (d *Device) samplerInfo(desc metadata.SamplerDesc) (vk.SamplerCreateInfo, error) {
	filter, mipmap := filterModes(desc.Filter)
	info := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               filter,
		MinFilter:               filter,
		MipmapMode:              mipmap,
		AddressModeU:            addressMode(desc.AddressU),
		AddressModeV:            addressMode(desc.AddressV),
		AddressModeW:            addressMode(desc.AddressW),
		MipLodBias:              desc.MipLODBias,
		MinLod:                  desc.MinLOD,
		MaxLod:                  desc.MaxLOD,
		BorderColor:             vk.BorderColorFloatOpaqueWhite,
		UnnormalizedCoordinates: vk.False,
		CompareEnable:           vk.False,
		AnisotropyEnable:        vk.False,
	}
	if desc.Filter == metadata.FilterAnisotropic {
		if desc.MaxAnisotropy < 1 || desc.MaxAnisotropy > 16 {
			return info, core.WrapError(core.ErrResourceCreation, "sampler %s: max anisotropy %d out of range", desc.Label, desc.MaxAnisotropy)
		}
		if d.physical.features.SamplerAnisotropy != vk.True {
			return info, core.WrapError(core.ErrResourceCreation, "sampler %s: the device has no anisotropic filtering", desc.Label)
		}
		info.AnisotropyEnable = vk.True
		info.MaxAnisotropy = min(float32(desc.MaxAnisotropy), d.maxAnisotropy)
	}
	return info, nil
}

func (d *Device) CreatePipelineState(desc metadata.PipelineDesc) (*metadata.PipelineState, error) {
	if desc.VS == nil || desc.PS == nil {
		return nil, core.WrapError(core.ErrShaderCompile, "pipeline %s is missing a shader stage", desc.Label)
	}
	if desc.VS.Released() || desc.PS.Released() {
		return nil, core.WrapError(core.ErrShaderCompile, "pipeline %s uses a released shader", desc.Label)
	}
	for _, el := range desc.Layout.Elements {
		if VulkanFormat(el.Format) == vk.FormatUndefined {
			return nil, core.WrapError(core.ErrShaderCompile, "pipeline %s: input %s has format %s", desc.Label, el.Semantic, el.Format)
		}
	}
	// Variants are built lazily, so the bundle owns modules that outlive the
	// shader objects it was declared with.
	vs, err := d.shaderModule(desc.VS.Desc.Label, desc.VS.Desc.Code)
	if err != nil {
		return nil, err
	}
	ps, err := d.shaderModule(desc.PS.Desc.Label, desc.PS.Desc.Code)
	if err != nil {
		vk.DestroyShaderModule(d.logical, vs, nil)
		return nil, err
	}
	p := newPipelineVariants(d, desc, vs, ps)
	return &metadata.PipelineState{
		Handle:   d.backend.tracker.Track(metadata.ResourceKindPipelineState, desc.Label, func() { d.retire(p.destroy) }),
		Desc:     desc,
		Internal: p,
	}, nil
}

// fallbackResources back texture and sampler slots nothing was bound to.
type fallbackResources struct {
	image   *deviceImage
	view    vk.ImageView
	sampler vk.Sampler
}

func newFallbackResources(d *Device) (*fallbackResources, error) {
	desc := metadata.TextureDesc{
		Label:     "fallback white",
		Width:     1,
		Height:    1,
		MipLevels: 1,
		ArraySize: 1,
		Format:    metadata.FormatR8G8B8A8Unorm,
		Bind:      metadata.BindShaderResource,
	}
	f := &fallbackResources{}
	img, err := d.createImage(desc, vk.FormatR8g8b8a8Unorm)
	if err != nil {
		return nil, err
	}
	f.image = img
	white := []metadata.SubresourceData{{Data: []byte{0xff, 0xff, 0xff, 0xff}, RowPitch: 4, SlicePitch: 4}}
	if err := d.uploadImage(img, desc, white); err != nil {
		f.destroy(d.logical)
		return nil, err
	}
	if f.view, err = d.createImageView(img.image, vk.ImageViewType2d, img.format, aspectMask(desc.Format), 1, 1); err != nil {
		f.destroy(d.logical)
		return nil, err
	}
	info, _ := d.samplerInfo(metadata.SamplerDesc{Label: "fallback", Filter: metadata.FilterLinear, MaxLOD: 1})
	if err := check(core.ErrDeviceCreation, vk.CreateSampler(d.logical, &info, nil, &f.sampler), "vkCreateSampler fallback"); err != nil {
		f.destroy(d.logical)
		return nil, err
	}
	return f, nil
}

func (f *fallbackResources) destroy(device vk.Device) {
	if f.sampler != nil {
		vk.DestroySampler(device, f.sampler, nil)
		f.sampler = nil
	}
	if f.view != vk.NullImageView {
		vk.DestroyImageView(device, f.view, nil)
		f.view = vk.NullImageView
	}
	if f.image != nil {
		if f.image.image != vk.NullImage {
			vk.DestroyImage(device, f.image.image, nil)
		}
		if f.image.memory != vk.NullDeviceMemory {
			vk.FreeMemory(device, f.image.memory, nil)
		}
		f.image = nil
	}
}

func (d *Device) CreateSwapchain(window metadata.WindowHandle, desc metadata.SwapchainDesc) (metadata.Swapchain, error) {
	if d.swapchain != nil && !d.swapchain.Released() {
		return nil, core.WrapError(core.ErrResourceCreation, "device already presents to a swapchain")
	}
	if d.backend.window == nil || window != metadata.WindowHandle(d.backend.window) {
		return nil, core.WrapError(core.ErrResourceCreation, "swapchain window differs from the one adapters were enumerated for")
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, core.WrapError(core.ErrResourceCreation, "swapchain extent %dx%d", desc.Width, desc.Height)
	}
	s := &Swapchain{device: d, desc: desc}
	if err := s.create(); err != nil {
		s.destroy()
		return nil, err
	}
	s.Handle = d.backend.tracker.Track(metadata.ResourceKindSwapchain, fmt.Sprintf("swapchain %dx%d", desc.Width, desc.Height), s.destroy)
	d.swapchain = s
	return s, nil
}
