package renderer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/headless"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type fakeWindow struct{ w, h int }

func (f fakeWindow) FramebufferSize() (int, int) { return f.w, f.h }

type fakeAssets struct {
	textureErr error
	shaderErr  error
	loads      int
}

func (a *fakeAssets) Texture(name string) (*metadata.TextureData, error) {
	a.loads++
	if a.textureErr != nil {
		return nil, a.textureErr
	}
	desc := metadata.TextureDesc{Width: 4, Height: 4, MipLevels: 1, ArraySize: 1, Format: metadata.FormatBC1Unorm}
	faces := 1
	if name == TextureSkybox {
		desc.ArraySize, desc.Cube, faces = 6, true, 6
	}
	data := &metadata.TextureData{Name: name, Desc: desc}
	for i := 0; i < faces; i++ {
		data.Subresources = append(data.Subresources, metadata.SubresourceData{Data: make([]byte, 8), RowPitch: 8, SlicePitch: 8})
	}
	return data, nil
}

func (a *fakeAssets) Shader(name string) (*metadata.ShaderSource, error) {
	if a.shaderErr != nil {
		return nil, a.shaderErr
	}
	return &metadata.ShaderSource{Name: name, VSEntry: "vs", PSEntry: "ps", Compiled: []uint32{0x07230203, 0x00010000}}, nil
}

func (a *fakeAssets) Mesh(name string) (*metadata.MeshData, error) {
	return nil, core.WrapError(core.ErrAssetLoad, "no mesh %s", name)
}

type fakeScene struct {
	model  math.Mat4
	camera math.Mat4
}

func newFakeScene() *fakeScene {
	return &fakeScene{
		model:  math.NewMat4Identity(),
		camera: math.NewMat4Translation(math.NewVec3(0, 0, -8)),
	}
}

func (s *fakeScene) ModelTransform() math.Mat4  { return s.model }
func (s *fakeScene) CameraTransform() math.Mat4 { return s.camera }

func startRenderer(t *testing.T, debug bool, width, height uint32) (*FrameRenderer, *headless.Backend) {
	t.Helper()
	backend := headless.New()
	r := NewFrameRenderer(backend, RendererConfig{Surface: SurfaceConfig{Debug: debug}})
	require.NoError(t, r.Initialize(fakeWindow{int(width), int(height)}, width, height, &fakeAssets{}))
	require.Equal(t, RendererStateRunning, r.State())
	return r, backend
}

func contextOf(t *testing.T, backend *headless.Backend) *headless.Context {
	t.Helper()
	devices := backend.Devices()
	require.NotEmpty(t, devices)
	return devices[len(devices)-1].Context()
}

func TestEndToEndFrameWithoutLeaks(t *testing.T) {
	r, backend := startRenderer(t, false, 1280, 720)
	ctx := contextOf(t, backend)

	require.NoError(t, r.Render(newFakeScene()))
	assert.Equal(t, 1, ctx.Presents())
	assert.Equal(t, uint64(1), r.Frames())

	draws := ctx.Draws()
	require.Len(t, draws, 9)
	assert.Equal(t, PipelineTextured, draws[0].Pipeline)
	assert.Equal(t, uint32(36), draws[0].IndexCount)
	assert.Equal(t, PipelineSkybox, draws[2].Pipeline)
	assert.Equal(t, uint32(1080), draws[2].IndexCount)
	for _, d := range draws[3:] {
		assert.Equal(t, PipelineTransparent, d.Pipeline)
	}
	assert.Equal(t, [4]float32{0.5, 0.25, 0.75, 1}, ctx.ClearColor())
	assert.Equal(t, float32(0), ctx.ClearDepth())
	assert.Equal(t, "ClearState", ctx.Ops()[0])

	r.Shutdown()
	assert.Equal(t, RendererStateStopped, r.State())
	assert.Equal(t, 0, backend.Tracker().Live(), backend.Tracker().Report())
}

func TestResizeThenRenderUsesExactViewport(t *testing.T) {
	r, backend := startRenderer(t, false, 1280, 720)
	ctx := contextOf(t, backend)

	require.NoError(t, r.Resize(1024, 600))
	require.NoError(t, r.Render(newFakeScene()))

	want := metadata.Viewport{Width: 1024, Height: 600, MinDepth: 0, MaxDepth: 1}
	assert.Equal(t, want, ctx.Viewport())
	assert.Equal(t, metadata.Rect{Right: 1024, Bottom: 600}, ctx.ScissorRect())
	for _, d := range ctx.Draws() {
		assert.Equal(t, want, d.Viewport)
	}
	assert.InDelta(t, 600.0/1024.0, r.LastFrame().Aspect, 1e-6)
	r.Shutdown()
}

func TestResizeClampsToMinimum(t *testing.T) {
	r, backend := startRenderer(t, false, 1280, 720)
	ctx := contextOf(t, backend)

	require.NoError(t, r.Resize(4, 4))
	w, h := r.Surface().Size()
	assert.Equal(t, uint32(8), w)
	assert.Equal(t, uint32(8), h)

	require.NoError(t, r.Render(newFakeScene()))
	assert.Equal(t, metadata.Viewport{Width: 8, Height: 8, MaxDepth: 1}, ctx.Viewport())
	r.Shutdown()
}

func TestIdenticalResizeKeepsViews(t *testing.T) {
	r, backend := startRenderer(t, false, 800, 600)
	tracker := backend.Tracker()

	rtvs := tracker.Created(metadata.ResourceKindRenderTargetView)
	dsvs := tracker.Created(metadata.ResourceKindDepthStencilView)
	textures := tracker.Created(metadata.ResourceKindTexture)
	color := r.Surface().ColorView()

	require.NoError(t, r.Resize(800, 600))
	assert.Equal(t, rtvs, tracker.Created(metadata.ResourceKindRenderTargetView))
	assert.Equal(t, dsvs, tracker.Created(metadata.ResourceKindDepthStencilView))
	assert.Equal(t, textures, tracker.Created(metadata.ResourceKindTexture))
	assert.Same(t, color, r.Surface().ColorView())

	// Both sizes clamp to 8x8, so the second resize is a no-op as well.
	require.NoError(t, r.Resize(2, 3))
	rtvs = tracker.Created(metadata.ResourceKindRenderTargetView)
	require.NoError(t, r.Resize(5, 1))
	assert.Equal(t, rtvs, tracker.Created(metadata.ResourceKindRenderTargetView))
	r.Shutdown()
}

func TestTeardownLeavesOnlyDebugLayer(t *testing.T) {
	r, backend := startRenderer(t, true, 1280, 720)
	require.NoError(t, r.Render(newFakeScene()))
	r.Shutdown()

	assert.LessOrEqual(t, r.Surface().LiveObjects(), 1)
	assert.Equal(t, 1, backend.Tracker().LiveByKind(metadata.ResourceKindDebug))
	backend.Shutdown()
	assert.Equal(t, 0, backend.Tracker().Live())
}

func TestTransparentPassDrawsBackToFront(t *testing.T) {
	r, backend := startRenderer(t, false, 1280, 720)
	ctx := contextOf(t, backend)
	require.NoError(t, r.Render(newFakeScene()))

	draws := ctx.Draws()[3:]
	require.Len(t, draws, 6)
	var depths []float32
	for _, d := range draws {
		c, err := DecodeSceneConstants(d.Constants[SceneConstantsSlot])
		require.NoError(t, err)
		assert.InDelta(t, 0.5, c.Tint.W, 1e-6)
		depths = append(depths, c.Model.Translation().Z+8)
	}
	for i := 1; i < len(depths); i++ {
		assert.GreaterOrEqual(t, depths[i-1], depths[i])
	}
	first, err := DecodeSceneConstants(draws[0].Constants[SceneConstantsSlot])
	require.NoError(t, err)
	assert.Equal(t, math.NewVec3(-0.5, 3, 5.5), first.Model.Translation())
	r.Shutdown()
}

func TestViewConstantsCarryCameraAndReversedDepth(t *testing.T) {
	r, backend := startRenderer(t, false, 1280, 720)
	ctx := contextOf(t, backend)
	require.NoError(t, r.Render(newFakeScene()))

	c, err := DecodeViewConstants(ctx.Draws()[0].Constants[ViewConstantsSlot])
	require.NoError(t, err)
	assert.Equal(t, math.NewVec4(0, 0, -8, 1), c.CameraPosition)

	// A point on the near plane in front of the camera lands at depth 1, the far plane at 0.
	near := math.NewVec4(0, 0, -8+0.1, 1).Transform(c.ViewProjection)
	far := math.NewVec4(0, 0, -8+100, 1).Transform(c.ViewProjection)
	assert.InDelta(t, 1, near.Z/near.W, 1e-4)
	assert.InDelta(t, 0, far.Z/far.W, 1e-4)
	r.Shutdown()
}

func TestInitializeRejectsDeniedAdapters(t *testing.T) {
	backend := headless.New()
	backend.Adapters = backend.Adapters[:1]
	backend.Adapters = append(backend.Adapters, metadata.AdapterInfo{Name: "llvmpipe (LLVM 15.0.7, 256 bits)", Type: metadata.AdapterTypeOther, FeatureLevel: metadata.FeatureLevel11_0})

	r := NewFrameRenderer(backend, RendererConfig{})
	err := r.Initialize(fakeWindow{640, 480}, 640, 480, &fakeAssets{})
	assert.ErrorIs(t, err, core.ErrDeviceCreation)
	assert.Equal(t, RendererStateStopped, r.State())
}

func TestInitializeRejectsLowFeatureLevel(t *testing.T) {
	backend := headless.New()
	backend.Adapters[1].FeatureLevel = metadata.FeatureLevel10_0

	r := NewFrameRenderer(backend, RendererConfig{})
	err := r.Initialize(fakeWindow{640, 480}, 640, 480, &fakeAssets{})
	assert.ErrorIs(t, err, core.ErrDeviceCreation)
	assert.Equal(t, 0, backend.Tracker().Live())
}

func TestResourceFailureUnwindsEverything(t *testing.T) {
	for _, op := range []string{"CreateSampler", "CreatePipelineState", "CreateShaderResourceView", "CreateShader"} {
		t.Run(op, func(t *testing.T) {
			backend := headless.New()
			backend.FailOn(op, errors.New("out of memory"))

			r := NewFrameRenderer(backend, RendererConfig{})
			err := r.Initialize(fakeWindow{640, 480}, 640, 480, &fakeAssets{})
			assert.ErrorIs(t, err, core.ErrResourceCreation)
			assert.Equal(t, RendererStateStopped, r.State())
			assert.Equal(t, 0, backend.Tracker().Live(), backend.Tracker().Report())
		})
	}
}

func TestAssetErrorsKeepTheirKind(t *testing.T) {
	backend := headless.New()
	r := NewFrameRenderer(backend, RendererConfig{})
	err := r.Initialize(fakeWindow{640, 480}, 640, 480, &fakeAssets{shaderErr: core.WrapError(core.ErrShaderCompile, "SimpleTexture.wgsl: bad token")})
	assert.ErrorIs(t, err, core.ErrShaderCompile)
	assert.Equal(t, 0, backend.Tracker().Live())

	err = r.Initialize(fakeWindow{640, 480}, 640, 480, &fakeAssets{textureErr: core.WrapError(core.ErrAssetLoad, "kitty.dds missing")})
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	assert.Equal(t, 0, backend.Tracker().Live())
}

func TestPresentFailureStopsRenderer(t *testing.T) {
	r, backend := startRenderer(t, false, 320, 240)
	backend.FailOn("Present", errors.New("device removed"))

	err := r.Render(newFakeScene())
	assert.ErrorIs(t, err, core.ErrRender)
	assert.Equal(t, RendererStateStopped, r.State())

	err = r.Render(newFakeScene())
	assert.ErrorIs(t, err, core.ErrRender)
	r.Shutdown()
	assert.Equal(t, 0, backend.Tracker().Live())
}

func TestResizeFailureIsResizeError(t *testing.T) {
	r, backend := startRenderer(t, false, 320, 240)
	backend.FailOn("ResizeBuffers", errors.New("lost"))

	err := r.Resize(640, 480)
	assert.ErrorIs(t, err, core.ErrResize)
	assert.Equal(t, RendererStateStopped, r.State())
	r.Shutdown()
	assert.Equal(t, 0, backend.Tracker().Live())
}

func TestReloadSwapsResources(t *testing.T) {
	r, backend := startRenderer(t, false, 320, 240)
	before := r.Resources()
	assets := &fakeAssets{}

	require.NoError(t, r.Reload(assets))
	assert.NotSame(t, before, r.Resources())
	assert.Equal(t, 2, assets.loads)
	require.NoError(t, r.Render(newFakeScene()))

	r.Shutdown()
	assert.Equal(t, 0, backend.Tracker().Live())
}
