package headless

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func newDevice(t *testing.T, b *Backend, debug bool) *Device {
	t.Helper()
	d, err := b.CreateDevice(b.Adapters[1], metadata.DeviceConfig{Debug: debug, MinFeatureLevel: metadata.FeatureLevel11_0})
	require.NoError(t, err)
	return d.(*Device)
}

func TestBackendIsRegistered(t *testing.T) {
	assert.Contains(t, metadata.AvailableBackends(), BackendName)
	assert.IsType(t, &Backend{}, metadata.GetBackend(BackendName))
}

func TestCreateDeviceRejectsFeatureLevel(t *testing.T) {
	b := New()
	adapter := b.Adapters[1]
	adapter.FeatureLevel = metadata.FeatureLevel10_1
	_, err := b.CreateDevice(adapter, metadata.DeviceConfig{MinFeatureLevel: metadata.FeatureLevel11_0})
	assert.Error(t, err)
	assert.Equal(t, 0, b.Tracker().Live())
}

func TestResizeRefusedWhileBackBufferViewsLive(t *testing.T) {
	b := New()
	d := newDevice(t, b, false)
	sc, err := d.CreateSwapchain(nil, metadata.SwapchainDesc{Width: 64, Height: 32, BufferCount: 2, Format: metadata.FormatR8G8B8A8Unorm})
	require.NoError(t, err)

	back, err := sc.GetBuffer(0)
	require.NoError(t, err)
	rtv, err := d.CreateRenderTargetView(back)
	require.NoError(t, err)
	back.Release()

	assert.Error(t, sc.ResizeBuffers(2, 128, 64, metadata.FormatUnknown))
	rtv.Release()
	require.NoError(t, sc.ResizeBuffers(2, 128, 64, metadata.FormatUnknown))
	assert.Equal(t, uint32(128), sc.Desc().Width)
	assert.Equal(t, metadata.FormatR8G8B8A8Unorm, sc.Desc().Format)
}

func TestContextRecordsDrawState(t *testing.T) {
	b := New()
	d := newDevice(t, b, false)
	ctx := d.Context()

	vb, err := d.CreateBuffer(metadata.BufferDesc{Label: "vb", Size: 64, Usage: metadata.UsageImmutable, Bind: metadata.BindVertexBuffer}, make([]byte, 64))
	require.NoError(t, err)
	ib, err := d.CreateBuffer(metadata.BufferDesc{Label: "ib", Size: 12, Stride: 2, Usage: metadata.UsageImmutable, Bind: metadata.BindIndexBuffer}, make([]byte, 12))
	require.NoError(t, err)
	cb, err := d.CreateBuffer(metadata.BufferDesc{Label: "cb", Size: 4, Bind: metadata.BindConstantBuffer}, nil)
	require.NoError(t, err)
	shader, err := d.CreateShader(metadata.ShaderDesc{Label: "s", Code: []uint32{0x07230203}})
	require.NoError(t, err)
	pso, err := d.CreatePipelineState(metadata.PipelineDesc{Label: "pso", VS: shader, PS: shader})
	require.NoError(t, err)
	tex, err := d.CreateTexture(metadata.TextureDesc{Label: "target", Width: 4, Height: 4, MipLevels: 1, ArraySize: 1, Format: metadata.FormatR8G8B8A8Unorm}, nil)
	require.NoError(t, err)
	rtv, err := d.CreateRenderTargetView(tex)
	require.NoError(t, err)

	ctx.SetRenderTargets(rtv, nil)
	ctx.SetPipelineState(pso)
	ctx.SetVertexBuffer(vb, 12, 0)
	ctx.SetIndexBuffer(ib, metadata.IndexFormatUint16, 0)
	ctx.SetConstantBuffer(metadata.ShaderStageVertex, 0, cb)
	require.NoError(t, ctx.UpdateSubresource(cb, []byte{1, 2, 3, 4}))
	require.NoError(t, ctx.DrawIndexed(6, 0, 0))
	require.NoError(t, ctx.UpdateSubresource(cb, []byte{5, 6, 7, 8}))
	require.NoError(t, ctx.DrawIndexed(6, 0, 0))

	draws := ctx.Draws()
	require.Len(t, draws, 2)
	assert.Equal(t, "pso", draws[0].Pipeline)
	assert.Equal(t, []byte{1, 2, 3, 4}, draws[0].Constants[0])
	assert.Equal(t, []byte{5, 6, 7, 8}, draws[1].Constants[0])

	assert.Error(t, ctx.DrawIndexed(7, 0, 0), "overrun")
	assert.Error(t, ctx.MapDiscard(cb, []byte{0}), "not dynamic")
}

func TestFailureInjectionIsSticky(t *testing.T) {
	b := New()
	d := newDevice(t, b, false)
	boom := errors.New("device removed")
	b.FailOn("DrawIndexed", boom)

	ctx := d.Context()
	assert.ErrorIs(t, ctx.DrawIndexed(3, 0, 0), boom)
	b.FailOn("DrawIndexed", nil)

	sc, err := d.CreateSwapchain(nil, metadata.SwapchainDesc{Width: 8, Height: 8, BufferCount: 2})
	require.NoError(t, err)
	assert.ErrorIs(t, sc.Present(0, 0), boom)
	assert.Equal(t, 0, ctx.Presents())
}

func TestDebugLayerOutlivesDevice(t *testing.T) {
	b := New()
	d := newDevice(t, b, true)
	d.Context().Release()
	d.Release()

	assert.Equal(t, 1, b.Tracker().Live())
	assert.Equal(t, 1, b.Tracker().LiveByKind(metadata.ResourceKindDebug))
	b.Shutdown()
	assert.Equal(t, 0, b.Tracker().Live())
}
