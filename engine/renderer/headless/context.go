package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// Call is one recorded context call.
type Call struct {
	Op   string
	Args []interface{}
}

// Draw is a recorded DrawIndexed together with the state it ran with.
type Draw struct {
	Pipeline   string
	IndexCount uint32
	StartIndex uint32
	Viewport   metadata.Viewport
	// Constants holds the content of every vertex stage constant buffer slot
	// at the time of the draw.
	Constants map[uint32][]byte
	Textures  map[uint32]string
}

type Context struct {
	*metadata.Handle
	device *Device

	calls    []Call
	draws    []Draw
	err      error
	presents int

	rtv        *metadata.View
	dsv        *metadata.View
	viewport   metadata.Viewport
	scissor    metadata.Rect
	pipeline   *metadata.PipelineState
	vertex     *metadata.Buffer
	index      *metadata.Buffer
	constants  map[uint32]*metadata.Buffer
	resources  map[uint32]*metadata.View
	samplers   map[uint32]*metadata.Sampler
	clearColor [4]float32
	clearDepth float32
}

func newContext(d *Device) *Context {
	c := &Context{device: d}
	c.Handle = d.backend.tracker.Track(metadata.ResourceKindDeviceContext, "immediate context", nil)
	c.reset()
	return c
}

func (c *Context) reset() {
	c.rtv, c.dsv = nil, nil
	c.viewport = metadata.Viewport{}
	c.scissor = metadata.Rect{}
	c.pipeline = nil
	c.vertex, c.index = nil, nil
	c.constants = make(map[uint32]*metadata.Buffer)
	c.resources = make(map[uint32]*metadata.View)
	c.samplers = make(map[uint32]*metadata.Sampler)
}

func (c *Context) record(op string, args ...interface{}) {
	c.calls = append(c.calls, Call{Op: op, Args: args})
}

func (c *Context) fail(op string) error {
	if c.err != nil {
		return c.err
	}
	if err := c.device.backend.failure(op); err != nil {
		c.err = err
		return err
	}
	return nil
}

// Calls returns every call recorded since the last ResetRecording.
func (c *Context) Calls() []Call { return c.calls }

// Ops returns only the operation names, in order.
func (c *Context) Ops() []string {
	out := make([]string, len(c.calls))
	for i, call := range c.calls {
		out[i] = call.Op
	}
	return out
}

func (c *Context) Draws() []Draw { return c.draws }

// Viewport is the viewport currently bound.
func (c *Context) Viewport() metadata.Viewport { return c.viewport }

func (c *Context) ScissorRect() metadata.Rect { return c.scissor }

func (c *Context) ClearColor() [4]float32 { return c.clearColor }

func (c *Context) ClearDepth() float32 { return c.clearDepth }

// ResetRecording drops recorded calls and draws but keeps bound state.
func (c *Context) ResetRecording() {
	c.calls = nil
	c.draws = nil
}

func (c *Context) ClearState() {
	c.record("ClearState")
	c.reset()
}

func (c *Context) write(op string, buf *metadata.Buffer, data []byte) error {
	c.record(op, bufferLabel(buf), len(data))
	if err := c.fail(op); err != nil {
		return err
	}
	if buf == nil || buf.Released() {
		return fmt.Errorf("%s on a released buffer", op)
	}
	b, ok := buf.Internal.(*buffer)
	if !ok {
		return fmt.Errorf("%s on a foreign buffer", op)
	}
	if uint64(len(data)) > buf.Desc.Size {
		return fmt.Errorf("%s: %d bytes into %s of %d bytes", op, len(data), buf.Desc.Label, buf.Desc.Size)
	}
	copy(b.data, data)
	return nil
}

func (c *Context) MapDiscard(buf *metadata.Buffer, data []byte) error {
	if buf != nil && buf.Desc.Usage != metadata.UsageDynamic {
		return fmt.Errorf("MapDiscard on non dynamic buffer %s", buf.Desc.Label)
	}
	return c.write("MapDiscard", buf, data)
}

func (c *Context) UpdateSubresource(buf *metadata.Buffer, data []byte) error {
	if buf != nil && buf.Desc.Usage != metadata.UsageDefault {
		return fmt.Errorf("UpdateSubresource on buffer %s without default usage", buf.Desc.Label)
	}
	return c.write("UpdateSubresource", buf, data)
}

func (c *Context) SetRenderTargets(rtv *metadata.View, dsv *metadata.View) {
	c.record("SetRenderTargets", viewLabel(rtv), viewLabel(dsv))
	c.rtv, c.dsv = rtv, dsv
}

func (c *Context) ClearRenderTargetView(rtv *metadata.View, color [4]float32) {
	c.record("ClearRenderTargetView", viewLabel(rtv), color)
	c.clearColor = color
}

func (c *Context) ClearDepthStencilView(dsv *metadata.View, depth float32) {
	c.record("ClearDepthStencilView", viewLabel(dsv), depth)
	c.clearDepth = depth
}

func (c *Context) SetViewport(viewport metadata.Viewport) {
	c.record("SetViewport", viewport)
	c.viewport = viewport
}

func (c *Context) SetScissorRect(rect metadata.Rect) {
	c.record("SetScissorRect", rect)
	c.scissor = rect
}

func (c *Context) SetPipelineState(pipeline *metadata.PipelineState) {
	name := ""
	if pipeline != nil {
		name = pipeline.Label()
	}
	c.record("SetPipelineState", name)
	c.pipeline = pipeline
}

func (c *Context) SetVertexBuffer(buf *metadata.Buffer, stride, offset uint32) {
	c.record("SetVertexBuffer", bufferLabel(buf), stride, offset)
	c.vertex = buf
}

func (c *Context) SetIndexBuffer(buf *metadata.Buffer, format metadata.IndexFormat, offset uint32) {
	c.record("SetIndexBuffer", bufferLabel(buf), format, offset)
	c.index = buf
}

func (c *Context) SetConstantBuffer(stage metadata.ShaderStage, slot uint32, buf *metadata.Buffer) {
	c.record("SetConstantBuffer", stage, slot, bufferLabel(buf))
	if stage&metadata.ShaderStageVertex != 0 {
		c.constants[slot] = buf
	}
}

func (c *Context) SetShaderResource(stage metadata.ShaderStage, slot uint32, view *metadata.View) {
	c.record("SetShaderResource", stage, slot, viewLabel(view))
	c.resources[slot] = view
}

func (c *Context) SetSampler(stage metadata.ShaderStage, slot uint32, sampler *metadata.Sampler) {
	name := ""
	if sampler != nil {
		name = sampler.Label()
	}
	c.record("SetSampler", stage, slot, name)
	c.samplers[slot] = sampler
}

func (c *Context) DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error {
	c.record("DrawIndexed", indexCount, startIndex, baseVertex)
	if err := c.fail("DrawIndexed"); err != nil {
		return err
	}
	switch {
	case c.pipeline == nil:
		return fmt.Errorf("draw without a pipeline")
	case c.vertex == nil || c.index == nil:
		return fmt.Errorf("draw without geometry")
	case c.rtv == nil:
		return fmt.Errorf("draw without a render target")
	}
	if c.index.Desc.Stride > 0 && uint64(startIndex+indexCount)*uint64(c.index.Desc.Stride) > c.index.Desc.Size {
		return fmt.Errorf("draw of %d indices overruns index buffer %s", indexCount, c.index.Desc.Label)
	}
	d := Draw{
		Pipeline:   c.pipeline.Label(),
		IndexCount: indexCount,
		StartIndex: startIndex,
		Viewport:   c.viewport,
		Constants:  make(map[uint32][]byte, len(c.constants)),
		Textures:   make(map[uint32]string, len(c.resources)),
	}
	for slot, buf := range c.constants {
		if buf == nil {
			continue
		}
		if b, ok := buf.Internal.(*buffer); ok {
			d.Constants[slot] = append([]byte(nil), b.data...)
		}
	}
	for slot, view := range c.resources {
		if view != nil && view.Texture != nil {
			d.Textures[slot] = view.Texture.Label()
		}
	}
	c.draws = append(c.draws, d)
	return nil
}

// Presents is the number of successful presents on this device.
func (c *Context) Presents() int { return c.presents }

func bufferLabel(b *metadata.Buffer) string {
	if b == nil {
		return ""
	}
	return b.Label()
}

func viewLabel(v *metadata.View) string {
	if v == nil {
		return ""
	}
	return v.Label()
}
