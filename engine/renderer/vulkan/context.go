package vulkan

import (
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// Context implements the immediate context on top of one command buffer per
// frame in flight. A frame starts with the first command that records, the
// render pass starts with the first draw and Present submits everything.
type Context struct {
	*metadata.Handle
	device *Device
	err    error

	frame *frame
	// acquired is the swapchain whose image the frame waits on.
	acquired *Swapchain

	pass       *VulkanRenderpass
	passExtent vk.Extent2D
	passColor  *metadata.View
	passDepth  *metadata.View
	bound      vk.Pipeline

	rtv, dsv    *metadata.View
	viewport    metadata.Viewport
	viewportSet bool
	scissor     metadata.Rect
	scissorSet  bool

	pipeline    *metadata.PipelineState
	vertex      *metadata.Buffer
	vertexOff   uint32
	index       *metadata.Buffer
	indexFormat metadata.IndexFormat
	indexOff    uint32
	constants   [constantSlots]*metadata.Buffer
	resource    *metadata.View
	sampler     *metadata.Sampler

	// Clears wait here until a pass on their view begins.
	colorClears map[*metadata.View][4]float32
	depthClears map[*metadata.View]float32
}

func newContext(d *Device) *Context {
	c := &Context{
		device:      d,
		colorClears: make(map[*metadata.View][4]float32),
		depthClears: make(map[*metadata.View]float32),
	}
	c.Handle = d.backend.tracker.Track(metadata.ResourceKindDeviceContext, "immediate context", c.abandonFrame)
	return c
}

// fail keeps the first error for the next call that can report it.
func (c *Context) fail(err error) {
	if c.err == nil && err != nil {
		c.err = err
	}
}

func (c *Context) take() error {
	err := c.err
	c.err = nil
	return err
}

func (c *Context) cmd() *VulkanCommandBuffer { return c.frame.cmd }

// beginFrame waits until the frame slot is free again and opens its command
// buffer.
func (c *Context) beginFrame() error {
	if c.frame != nil {
		return nil
	}
	d := c.device
	if d.logical == nil {
		return core.WrapError(core.ErrRender, "device is released")
	}
	index := d.frameIndex
	f := d.frames[index]
	if err := f.fence.Wait(d.logical, vk.MaxUint64); err != nil {
		return err
	}
	d.collect(index)
	d.ring.reset(index)
	if err := f.cmd.Reset(); err != nil {
		return err
	}
	if err := f.cmd.Begin(true); err != nil {
		return err
	}
	d.mu.Lock()
	d.recording = true
	d.mu.Unlock()
	c.frame = f
	c.bound = vk.NullPipeline
	return nil
}

// submit closes the frame. With present set, it signals the semaphore the
// presentation waits on.
func (c *Context) submit(present bool) error {
	d := c.device
	f := c.frame
	c.endPass()
	c.frame = nil
	waited := c.acquired
	c.acquired = nil

	defer func() {
		d.mu.Lock()
		d.recording = false
		d.frameIndex = (d.frameIndex + 1) % maxFramesInFlight
		d.mu.Unlock()
	}()

	if err := f.cmd.End(); err != nil {
		return err
	}
	if err := f.fence.Reset(d.logical); err != nil {
		return err
	}
	info := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{f.cmd.Handle},
	}
	if waited != nil {
		info.WaitSemaphoreCount = 1
		info.PWaitSemaphores = []vk.Semaphore{f.imageAvailable}
		info.PWaitDstStageMask = []vk.PipelineStageFlags{vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit)}
	}
	if present {
		info.SignalSemaphoreCount = 1
		info.PSignalSemaphores = []vk.Semaphore{f.renderFinished}
	}
	err := d.locks.SafeQueueCall(d.graphicsFamily, func() error {
		return check(core.ErrRender, vk.QueueSubmit(d.graphicsQueue, 1, []vk.SubmitInfo{info}, f.fence.Handle), "vkQueueSubmit")
	})
	if err != nil {
		// Nothing will signal it, do not wait on it again.
		f.fence.IsSignaled = true
		return err
	}
	f.cmd.UpdateSubmitted()
	return nil
}

// abandonFrame submits what was recorded without presenting it.
func (c *Context) abandonFrame() {
	if c.frame == nil {
		return
	}
	if err := c.submit(false); err != nil {
		core.LogWarn("abandoned frame failed to submit: %s", err)
	}
}

// attachment is a view resolved to the image it renders to this frame.
type attachment struct {
	image   vk.Image
	view    vk.ImageView
	format  vk.Format
	extent  vk.Extent2D
	layout  *vk.ImageLayout
	present bool
}

func (c *Context) resolve(v *metadata.View) (attachment, error) {
	dv, ok := v.Internal.(*deviceView)
	if !ok || v.Released() {
		return attachment{}, core.WrapError(core.ErrRender, "view %s is not usable as a target", v.Label())
	}
	if s := dv.swapchain; s != nil {
		if err := s.acquire(c.frame.imageAvailable); err != nil {
			return attachment{}, err
		}
		c.acquired = s
		image, view, layout := s.target()
		return attachment{image: image, view: view, format: s.format.Format, extent: s.extent, layout: layout, present: true}, nil
	}
	return attachment{
		image:  dv.image.image,
		view:   dv.view,
		format: dv.image.format,
		extent: dv.image.extent,
		layout: &dv.image.layout,
	}, nil
}

// beginPass opens a render pass on rtv and dsv, either of which may be nil.
// Pending clears of both views turn into load operations.
func (c *Context) beginPass(rtv, dsv *metadata.View) error {
	if err := c.beginFrame(); err != nil {
		return err
	}
	key := renderPassKey{
		color:     vk.FormatUndefined,
		depth:     vk.FormatUndefined,
		colorLoad: vk.AttachmentLoadOpDontCare,
		depthLoad: vk.AttachmentLoadOpDontCare,
	}
	var color, depth attachment
	var extent vk.Extent2D
	clearColor := [4]float32{}
	clearDepth := float32(0)

	if rtv != nil {
		var err error
		if color, err = c.resolve(rtv); err != nil {
			return err
		}
		extent = color.extent
		key.color = color.format
		key.colorLoad = vk.AttachmentLoadOpLoad
		key.colorInitial = *color.layout
		if cc, ok := c.colorClears[rtv]; ok {
			delete(c.colorClears, rtv)
			clearColor = cc
			key.colorLoad = vk.AttachmentLoadOpClear
			key.colorInitial = vk.ImageLayoutUndefined
		}
		key.colorFinal = vk.ImageLayoutShaderReadOnlyOptimal
		if color.present {
			key.colorFinal = vk.ImageLayoutPresentSrc
		}
	}
	if dsv != nil {
		var err error
		if depth, err = c.resolve(dsv); err != nil {
			return err
		}
		if rtv != nil && depth.extent != extent {
			return core.WrapError(core.ErrRender, "depth target %dx%d does not match color target %dx%d",
				depth.extent.Width, depth.extent.Height, extent.Width, extent.Height)
		}
		extent = depth.extent
		key.depth = depth.format
		key.depthLoad = vk.AttachmentLoadOpLoad
		key.depthInitial = *depth.layout
		if cd, ok := c.depthClears[dsv]; ok {
			delete(c.depthClears, dsv)
			clearDepth = cd
			key.depthLoad = vk.AttachmentLoadOpClear
			key.depthInitial = vk.ImageLayoutUndefined
		}
	}

	d := c.device
	pass, err := d.renderPass(key)
	if err != nil {
		return err
	}
	fb, err := d.framebuffer(framebufferKey{color: color.view, depth: depth.view, pass: pass.Handle, width: extent.Width, height: extent.Height})
	if err != nil {
		return err
	}
	pass.Begin(c.cmd(), fb, clearColor, clearDepth)
	if rtv != nil {
		*color.layout = key.colorFinal
	}
	if dsv != nil {
		*depth.layout = vk.ImageLayoutDepthStencilAttachmentOptimal
	}
	c.pass, c.passExtent = pass, extent
	c.passColor, c.passDepth = rtv, dsv
	c.bound = vk.NullPipeline
	c.applyViewport()
	c.applyScissor()
	return nil
}

func (c *Context) endPass() {
	if c.pass == nil {
		return
	}
	c.pass.End(c.cmd())
	c.pass = nil
	c.passColor, c.passDepth = nil, nil
	c.bound = vk.NullPipeline
}

// flushClears runs the clears no draw picked up, each in an empty pass.
func (c *Context) flushClears() error {
	for v := range c.colorClears {
		if v.Released() {
			delete(c.colorClears, v)
			continue
		}
		if err := c.beginPass(v, nil); err != nil {
			return err
		}
		c.endPass()
	}
	for v := range c.depthClears {
		if v.Released() {
			delete(c.depthClears, v)
			continue
		}
		if err := c.beginPass(nil, v); err != nil {
			return err
		}
		c.endPass()
	}
	return nil
}

func (c *Context) applyViewport() {
	if c.pass == nil {
		return
	}
	vp := metadata.Viewport{Width: float32(c.passExtent.Width), Height: float32(c.passExtent.Height), MaxDepth: 1}
	if c.viewportSet && c.viewport.Width > 0 && c.viewport.Height > 0 {
		vp = c.viewport
	}
	vk.CmdSetViewport(c.cmd().Handle, 0, 1, []vk.Viewport{vulkanViewport(vp)})
}

func (c *Context) applyScissor() {
	if c.pass == nil {
		return
	}
	full := metadata.Rect{Right: int32(c.passExtent.Width), Bottom: int32(c.passExtent.Height)}
	rect := full
	if c.scissorSet {
		rect = clampRect(c.scissor, full)
	}
	vk.CmdSetScissor(c.cmd().Handle, 0, 1, []vk.Rect2D{vulkanScissor(rect)})
}

// clampRect intersects r with bounds. Vulkan rejects negative offsets.
func clampRect(r, bounds metadata.Rect) metadata.Rect {
	return metadata.Rect{
		Left:   min(max(r.Left, bounds.Left), bounds.Right),
		Top:    min(max(r.Top, bounds.Top), bounds.Bottom),
		Right:  min(max(r.Right, bounds.Left), bounds.Right),
		Bottom: min(max(r.Bottom, bounds.Top), bounds.Bottom),
	}
}

func (c *Context) ClearState() {
	c.endPass()
	c.rtv, c.dsv = nil, nil
	c.viewport, c.viewportSet = metadata.Viewport{}, false
	c.scissor, c.scissorSet = metadata.Rect{}, false
	c.pipeline = nil
	c.vertex, c.vertexOff = nil, 0
	c.index, c.indexOff = nil, 0
	c.constants = [constantSlots]*metadata.Buffer{}
	c.resource = nil
	c.sampler = nil
}

func (c *Context) write(op string, buf *metadata.Buffer, data []byte) error {
	if err := c.take(); err != nil {
		return err
	}
	if buf == nil || buf.Released() {
		return core.WrapError(core.ErrRender, "%s on a released buffer", op)
	}
	b, ok := buf.Internal.(*deviceBuffer)
	if !ok {
		return core.WrapError(core.ErrRender, "%s on a foreign buffer", op)
	}
	if uint64(len(data)) > buf.Desc.Size {
		return core.WrapError(core.ErrRender, "%s: %d bytes into %s of %d bytes", op, len(data), buf.Desc.Label, buf.Desc.Size)
	}
	dst := b.shadow
	if dst == nil {
		dst = b.mapped
	}
	if dst == nil {
		return core.WrapError(core.ErrRender, "%s: buffer %s is not CPU writable", op, buf.Desc.Label)
	}
	n := copy(dst, data)
	if op == "MapDiscard" {
		clear(dst[n:])
	}
	return nil
}

// MapDiscard writes straight into a dynamic buffer. Constant buffers are
// snapshotted at every draw so frames in flight keep what they read.
func (c *Context) MapDiscard(buf *metadata.Buffer, data []byte) error {
	if buf != nil && buf.Desc.Usage != metadata.UsageDynamic {
		return core.WrapError(core.ErrRender, "MapDiscard on non dynamic buffer %s", buf.Desc.Label)
	}
	return c.write("MapDiscard", buf, data)
}

func (c *Context) UpdateSubresource(buf *metadata.Buffer, data []byte) error {
	if buf != nil && buf.Desc.Usage != metadata.UsageDefault {
		return core.WrapError(core.ErrRender, "UpdateSubresource on buffer %s without default usage", buf.Desc.Label)
	}
	return c.write("UpdateSubresource", buf, data)
}

func (c *Context) SetRenderTargets(rtv *metadata.View, dsv *metadata.View) {
	if rtv == c.rtv && dsv == c.dsv {
		return
	}
	c.endPass()
	c.rtv, c.dsv = rtv, dsv
}

func (c *Context) ClearRenderTargetView(rtv *metadata.View, color [4]float32) {
	if rtv == nil {
		return
	}
	if c.pass != nil && rtv == c.passColor {
		c.clearAttachment(vk.ClearAttachment{
			AspectMask:      vk.ImageAspectFlags(vk.ImageAspectColorBit),
			ColorAttachment: 0,
		}, func(v *vk.ClearValue) { v.SetColor(color[:]) })
		return
	}
	c.colorClears[rtv] = color
}

func (c *Context) ClearDepthStencilView(dsv *metadata.View, depth float32) {
	if dsv == nil {
		return
	}
	if c.pass != nil && dsv == c.passDepth {
		c.clearAttachment(vk.ClearAttachment{
			AspectMask: vk.ImageAspectFlags(vk.ImageAspectDepthBit),
		}, func(v *vk.ClearValue) { v.SetDepthStencil(depth, 0) })
		return
	}
	c.depthClears[dsv] = depth
}

// clearAttachment clears an attachment of the open pass over its whole area.
func (c *Context) clearAttachment(a vk.ClearAttachment, value func(*vk.ClearValue)) {
	value(&a.ClearValue)
	vk.CmdClearAttachments(c.cmd().Handle, 1, []vk.ClearAttachment{a}, 1, []vk.ClearRect{{
		Rect:       vk.Rect2D{Extent: c.passExtent},
		LayerCount: 1,
	}})
}

func (c *Context) SetViewport(viewport metadata.Viewport) {
	c.viewport, c.viewportSet = viewport, true
	c.applyViewport()
}

func (c *Context) SetScissorRect(rect metadata.Rect) {
	c.scissor, c.scissorSet = rect, true
	c.applyScissor()
}

func (c *Context) SetPipelineState(pipeline *metadata.PipelineState) {
	if pipeline != nil {
		if _, ok := pipeline.Internal.(*pipelineVariants); !ok {
			c.fail(core.WrapError(core.ErrRender, "pipeline %s belongs to another backend", pipeline.Label()))
			return
		}
	}
	c.pipeline = pipeline
}

func (c *Context) SetVertexBuffer(buf *metadata.Buffer, stride, offset uint32) {
	if buf != nil && stride != 0 && buf.Desc.Stride != 0 && stride != buf.Desc.Stride {
		c.fail(core.WrapError(core.ErrRender, "vertex buffer %s bound with stride %d, created with %d", buf.Desc.Label, stride, buf.Desc.Stride))
	}
	c.vertex, c.vertexOff = buf, offset
}

func (c *Context) SetIndexBuffer(buf *metadata.Buffer, format metadata.IndexFormat, offset uint32) {
	c.index, c.indexFormat, c.indexOff = buf, format, offset
}

// SetConstantBuffer binds slot for every stage; the slots are shared.
func (c *Context) SetConstantBuffer(stage metadata.ShaderStage, slot uint32, buf *metadata.Buffer) {
	if slot >= constantSlots {
		c.fail(core.WrapError(core.ErrRender, "constant buffer slot %d out of range", slot))
		return
	}
	if buf != nil && buf.Desc.Bind&metadata.BindConstantBuffer == 0 {
		c.fail(core.WrapError(core.ErrRender, "buffer %s is not a constant buffer", buf.Desc.Label))
		return
	}
	c.constants[slot] = buf
}

func (c *Context) SetShaderResource(stage metadata.ShaderStage, slot uint32, view *metadata.View) {
	if slot != 0 {
		c.fail(core.WrapError(core.ErrRender, "shader resource slot %d out of range", slot))
		return
	}
	c.resource = view
}

func (c *Context) SetSampler(stage metadata.ShaderStage, slot uint32, sampler *metadata.Sampler) {
	if slot != 0 {
		c.fail(core.WrapError(core.ErrRender, "sampler slot %d out of range", slot))
		return
	}
	c.sampler = sampler
}

func (c *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	if err := c.take(); err != nil {
		return err
	}
	switch {
	case c.pipeline == nil || c.pipeline.Released():
		return core.WrapError(core.ErrRender, "draw without a pipeline")
	case c.vertex == nil || c.index == nil || c.vertex.Released() || c.index.Released():
		return core.WrapError(core.ErrRender, "draw without geometry")
	case c.rtv == nil:
		return core.WrapError(core.ErrRender, "draw without a render target")
	}
	vb, _ := c.vertex.Internal.(*deviceBuffer)
	ib, _ := c.index.Internal.(*deviceBuffer)
	if vb == nil || vb.buffer == vk.NullBuffer || ib == nil || ib.buffer == vk.NullBuffer {
		return core.WrapError(core.ErrRender, "draw with geometry the GPU cannot read")
	}
	if uint64(startIndex+indexCount)*uint64(c.indexFormat.Size())+uint64(c.indexOff) > c.index.Desc.Size {
		return core.WrapError(core.ErrRender, "draw of %d indices overruns index buffer %s", indexCount, c.index.Desc.Label)
	}

	if c.pass == nil || c.passColor != c.rtv || c.passDepth != c.dsv {
		c.endPass()
		if err := c.beginPass(c.rtv, c.dsv); err != nil {
			return err
		}
	}
	d := c.device
	cmd := c.cmd()

	pipeline, err := c.pipeline.Internal.(*pipelineVariants).get(c.pass)
	if err != nil {
		return err
	}
	if pipeline.Handle != c.bound {
		pipeline.Bind(cmd)
		c.bound = pipeline.Handle
	}

	offsets := make([]uint32, constantSlots)
	for slot, buf := range c.constants {
		var data []byte
		if buf != nil && !buf.Released() {
			if b, ok := buf.Internal.(*deviceBuffer); ok {
				data = b.shadow
			}
		}
		if offsets[slot], err = d.ring.push(data); err != nil {
			return err
		}
	}

	key := descriptorKey{view: core.InvalidIdentifier, sampler: core.InvalidIdentifier}
	imageView, sampler := d.fallback.view, d.fallback.sampler
	if c.resource != nil && !c.resource.Released() {
		dv, ok := c.resource.Internal.(*deviceView)
		if !ok || dv.swapchain != nil {
			return core.WrapError(core.ErrRender, "view %s cannot be sampled", c.resource.Label())
		}
		imageView, key.view = dv.view, c.resource.ID()
	}
	if c.sampler != nil && !c.sampler.Released() {
		s, ok := c.sampler.Internal.(vk.Sampler)
		if !ok {
			return core.WrapError(core.ErrRender, "sampler %s belongs to another backend", c.sampler.Label())
		}
		sampler, key.sampler = s, c.sampler.ID()
	}
	set, err := d.descriptors.get(d.logical, key, d.ring.buffer, imageView, sampler)
	if err != nil {
		return err
	}

	vk.CmdBindDescriptorSets(cmd.Handle, vk.PipelineBindPointGraphics, d.descriptors.pipelineLayout,
		0, 1, []vk.DescriptorSet{set}, uint32(len(offsets)), offsets)
	vk.CmdBindVertexBuffers(cmd.Handle, 0, 1, []vk.Buffer{vb.buffer}, []vk.DeviceSize{vk.DeviceSize(c.vertexOff)})
	vk.CmdBindIndexBuffer(cmd.Handle, ib.buffer, vk.DeviceSize(c.indexOff), indexType(c.indexFormat))
	vk.CmdDrawIndexed(cmd.Handle, indexCount, 1, startIndex, baseVertex, 0)
	return nil
}

// present closes the frame recorded so far and queues the acquired image.
func (c *Context) present(s *Swapchain) error {
	if err := c.take(); err != nil {
		c.abandonFrame()
		return err
	}
	if err := c.beginFrame(); err != nil {
		return err
	}
	c.endPass()
	if err := c.flushClears(); err != nil {
		c.abandonFrame()
		return err
	}
	if c.acquired == nil {
		// Nothing rendered to the back buffer: present it as it is.
		if err := s.acquire(c.frame.imageAvailable); err != nil {
			c.abandonFrame()
			return err
		}
		c.acquired = s
	}
	image, _, layout := s.target()
	if *layout != vk.ImageLayoutPresentSrc {
		imageBarrier(c.cmd().Handle, image, vk.ImageAspectFlags(vk.ImageAspectColorBit), 1, 1, *layout, vk.ImageLayoutPresentSrc)
		*layout = vk.ImageLayoutPresentSrc
	}
	f := c.frame
	if err := c.submit(true); err != nil {
		return err
	}
	return s.queuePresent(f.renderFinished)
}
