package renderer

import (
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-labs/engine/renderer/views"
)

type RendererState uint8

const (
	RendererStateStopped RendererState = iota
	RendererStateRunning
)

func (s RendererState) String() string {
	if s == RendererStateRunning {
		return "running"
	}
	return "stopped"
}

// Scene provides the transforms the renderer reads every frame.
type Scene interface {
	ModelTransform() math.Mat4
	CameraTransform() math.Mat4
}

type FrameConfig struct {
	FovDegrees float32
	Near       float32
	Far        float32
	ClearColor [4]float32
}

func DefaultFrameConfig() FrameConfig {
	return FrameConfig{
		FovDegrees: 90,
		Near:       0.1,
		Far:        100,
		ClearColor: [4]float32{0.5, 0.25, 0.75, 1},
	}
}

type RendererConfig struct {
	Surface   SurfaceConfig
	Frame     FrameConfig
	Resources ResourceConfig
}

// FrameRenderer drives one surface and one resource store through the pass list.
type FrameRenderer struct {
	config    RendererConfig
	surface   *SurfaceManager
	resources *ResourceStore
	views     []views.RenderView
	state     RendererState
	frame     metadata.FrameData
	frames    uint64
}

func NewFrameRenderer(backend metadata.Backend, config RendererConfig) *FrameRenderer {
	if config.Frame == (FrameConfig{}) {
		config.Frame = DefaultFrameConfig()
	}
	if config.Resources.Passes == nil {
		config.Resources.Passes = DefaultPasses()
	}
	if config.Resources.Pipelines == nil {
		config.Resources.Pipelines = DefaultPipelines()
	}
	return &FrameRenderer{
		config:  config,
		surface: NewSurfaceManager(backend, config.Surface),
		state:   RendererStateStopped,
	}
}

// Initialize brings up the surface and loads the scene resources. On success
// the renderer is running.
func (r *FrameRenderer) Initialize(window metadata.WindowHandle, width, height uint32, assets AssetSource) error {
	if r.state == RendererStateRunning {
		return nil
	}
	if err := r.surface.Initialize(window, width, height); err != nil {
		return err
	}
	resources, err := LoadResources(r.surface.Device(), assets, r.config.Resources)
	if err != nil {
		r.surface.Teardown()
		return err
	}
	r.resources = resources

	r.views = r.views[:0]
	for _, p := range r.config.Resources.Passes {
		v, err := views.New(p)
		if err != nil {
			r.Shutdown()
			return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create view for pass %s", p.Name)
		}
		r.views = append(r.views, v)
	}
	w, h := r.surface.Size()
	for _, v := range r.views {
		v.OnResize(w, h)
	}
	r.state = RendererStateRunning
	return nil
}

// Reload swaps the resource store for a freshly loaded one. It runs between frames.
func (r *FrameRenderer) Reload(assets AssetSource) error {
	if r.state != RendererStateRunning {
		return core.WrapError(core.ErrResourceCreation, "reload while the renderer is %s", r.state)
	}
	r.resources.Release()
	r.resources = nil
	resources, err := LoadResources(r.surface.Device(), assets, r.config.Resources)
	if err != nil {
		r.state = RendererStateStopped
		return err
	}
	r.resources = resources
	core.LogInfo("scene resources reloaded")
	return nil
}

func (r *FrameRenderer) fail(err error) error {
	r.state = RendererStateStopped
	if core.IsFatal(err) {
		return err
	}
	return core.WrapErrorCause(core.ErrRender, err, "frame %d", r.frames)
}

// Render draws and presents one frame. Any failure stops the renderer.
func (r *FrameRenderer) Render(scene Scene) error {
	if r.state != RendererStateRunning {
		return core.WrapError(core.ErrRender, "render while the renderer is %s", r.state)
	}
	ctx := r.surface.Context()
	ctx.ClearState()

	width, height := r.surface.Size()
	fov := math.DegToRad(r.config.Frame.FovDegrees)
	aspect := float32(height) / float32(width)
	camera := scene.CameraTransform()
	r.frame = metadata.FrameData{
		Model:          scene.ModelTransform(),
		Camera:         camera,
		View:           camera.Inverse(),
		Projection:     math.NewMat4PerspectiveReversed(fov, aspect, r.config.Frame.Near, r.config.Frame.Far),
		CameraPosition: camera.Translation(),
		Width:          width,
		Height:         height,
		Near:           r.config.Frame.Near,
		Far:            r.config.Frame.Far,
		FovX:           fov,
		Aspect:         aspect,
	}

	viewConstants := ViewConstants{
		ViewProjection: r.frame.View.Mul(r.frame.Projection),
		CameraPosition: camera.Row(3),
	}
	if err := ctx.MapDiscard(r.resources.ViewConstants, viewConstants.Bytes()); err != nil {
		return r.fail(err)
	}

	ctx.SetRenderTargets(r.surface.ColorView(), r.surface.DepthView())
	ctx.ClearRenderTargetView(r.surface.ColorView(), r.config.Frame.ClearColor)
	// Reversed depth: far is 0.
	ctx.ClearDepthStencilView(r.surface.DepthView(), 0.0)
	ctx.SetViewport(metadata.Viewport{Width: float32(width), Height: float32(height), MinDepth: 0, MaxDepth: 1})
	ctx.SetScissorRect(metadata.Rect{Right: int32(width), Bottom: int32(height)})

	for _, v := range r.views {
		if err := r.drawPass(ctx, v); err != nil {
			return r.fail(err)
		}
	}

	if err := r.surface.Present(); err != nil {
		return r.fail(err)
	}
	r.frames++
	return nil
}

func (r *FrameRenderer) drawPass(ctx metadata.DeviceContext, v views.RenderView) error {
	pass := v.Config()
	pipeline, ok := r.resources.Pipelines.Get(pass.Pipeline)
	if !ok {
		return core.WrapError(core.ErrRender, "pass %s: pipeline %s is gone", pass.Name, pass.Pipeline)
	}
	mesh, ok := r.resources.Mesh(pass.Mesh)
	if !ok {
		return core.WrapError(core.ErrRender, "pass %s: mesh %s is gone", pass.Name, pass.Mesh)
	}

	ctx.SetPipelineState(pipeline)
	ctx.SetVertexBuffer(mesh.Vertices, mesh.Layout.Stride, 0)
	ctx.SetIndexBuffer(mesh.Indices, metadata.IndexFormatUint16, 0)
	ctx.SetConstantBuffer(metadata.ShaderStageAll, SceneConstantsSlot, r.resources.SceneConstants)
	ctx.SetConstantBuffer(metadata.ShaderStageAll, ViewConstantsSlot, r.resources.ViewConstants)
	for slot, name := range pass.Textures {
		tex, ok := r.resources.Texture(name)
		if !ok {
			return core.WrapError(core.ErrRender, "pass %s: texture %s is gone", pass.Name, name)
		}
		ctx.SetShaderResource(metadata.ShaderStageFragment, uint32(slot), tex.View)
	}
	ctx.SetSampler(metadata.ShaderStageFragment, 0, r.resources.Sampler)

	items, err := v.OnBuildPacket(&r.frame)
	if err != nil {
		return err
	}
	for _, item := range items {
		constants := SceneConstants{Model: item.Model, Tint: item.Tint}
		if err := ctx.UpdateSubresource(r.resources.SceneConstants, constants.Bytes()); err != nil {
			return err
		}
		if err := ctx.DrawIndexed(mesh.IndexCount, 0, 0); err != nil {
			return err
		}
	}
	return nil
}

// Resize forwards to the surface and caches the clamped size for the views.
func (r *FrameRenderer) Resize(width, height uint32) error {
	if err := r.surface.Resize(width, height); err != nil {
		r.state = RendererStateStopped
		return err
	}
	w, h := r.surface.Size()
	for _, v := range r.views {
		v.OnResize(w, h)
	}
	return nil
}

// Shutdown releases the resources, then the surface.
func (r *FrameRenderer) Shutdown() {
	r.resources.Release()
	r.resources = nil
	r.views = nil
	r.surface.Teardown()
	r.state = RendererStateStopped
}

func (r *FrameRenderer) State() RendererState          { return r.state }
func (r *FrameRenderer) Surface() *SurfaceManager      { return r.surface }
func (r *FrameRenderer) Resources() *ResourceStore     { return r.resources }
func (r *FrameRenderer) Frames() uint64                { return r.frames }
func (r *FrameRenderer) Views() []views.RenderView     { return r.views }
func (r *FrameRenderer) LastFrame() metadata.FrameData { return r.frame }
