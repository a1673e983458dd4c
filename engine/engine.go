package engine

import (
	"sync/atomic"
	"time"

	"github.com/spaghettifunk/anima-labs/engine/assets"
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/platform"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
	"github.com/spaghettifunk/anima-labs/engine/renderer/vulkan"
)

type Stage uint8

const (
	// Engine is in an uninitialized state
	EngineStageUninitialized Stage = iota
	// Engine is currently initializing
	EngineStageInitializing
	// Engine initialization is complete
	EngineStageInitialized
	// Engine is currently running
	EngineStageRunning
	// Engine is in the process of shutting down
	EngineStageShuttingDown
	// Everything is released
	EngineStageStopped
)

// fixedWindow stands in for the platform window on headless runs.
type fixedWindow struct {
	width, height int
}

func (w *fixedWindow) FramebufferSize() (int, int) { return w.width, w.height }

type Engine struct {
	currentStage Stage
	gameInstance *Game
	config       *ApplicationConfig

	isRunning   atomic.Bool
	isSuspended bool
	// fatal is the first error raised from an event handler.
	fatal error

	bus          *core.EventBus
	input        *core.Input
	platform     *platform.Platform
	window       metadata.WindowHandle
	backend      metadata.Backend
	assetManager *assets.AssetManager
	renderer     *renderer.FrameRenderer

	width    uint32
	height   uint32
	clock    *core.Clock
	metrics  *core.Metrics
	lastTime float64
	frames   uint64
}

func New(g *Game) (*Engine, error) {
	if g.ApplicationConfig == nil {
		g.ApplicationConfig = DefaultApplicationConfig()
	}
	if g.Scene == nil {
		return nil, core.WrapError(core.ErrUnknown, "game has no scene")
	}
	cfg := g.ApplicationConfig
	core.SetLogLevel(core.ParseLogLevel(cfg.LogLevel))

	bus := core.NewEventBus()
	e := &Engine{
		currentStage: EngineStageUninitialized,
		gameInstance: g,
		config:       cfg,
		bus:          bus,
		input:        core.NewInput(bus),
		clock:        core.NewClock(),
		metrics:      core.NewMetrics(),
		width:        cfg.Window.Width,
		height:       cfg.Window.Height,
	}
	return e, nil
}

func (e *Engine) headless() bool {
	return e.config.Renderer.Backend == renderer.BackendHeadless
}

func (e *Engine) Initialize() error {
	e.currentStage = EngineStageInitializing
	cfg := e.config

	if e.gameInstance.FnBoot != nil {
		if err := e.gameInstance.FnBoot(cfg); err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
	}

	// The engine listens first so Escape and resizes never reach the game.
	e.bus.Register(core.EVENT_CODE_APPLICATION_QUIT, e, e.onEvent)
	e.bus.Register(core.EVENT_CODE_KEY_PRESSED, e, e.onKey)
	e.bus.Register(core.EVENT_CODE_RESIZED, e, e.onResized)

	backend, err := renderer.NewBackend(cfg.Renderer.Backend)
	if err != nil {
		return err
	}
	if vb, ok := backend.(*vulkan.Backend); ok {
		vb.Validation = cfg.Renderer.Debug
		vb.ApplicationName = cfg.Window.Name
	}
	e.backend = backend

	if e.headless() {
		e.window = &fixedWindow{width: int(cfg.Window.Width), height: int(cfg.Window.Height)}
	} else {
		e.platform = platform.New(e.bus, e.input)
		if err := e.platform.Startup(cfg.Window.Name, cfg.Window.X, cfg.Window.Y, cfg.Window.Width, cfg.Window.Height); err != nil {
			return core.WrapErrorCause(core.ErrDeviceCreation, err, "window")
		}
		e.window = e.platform
		w, h := e.platform.FramebufferSize()
		e.width, e.height = uint32(w), uint32(h)
	}

	am, err := assets.NewAssetManager(cfg.Assets.Root, cfg.Assets.Watch)
	if err != nil {
		return err
	}
	e.assetManager = am

	resources, err := e.resourceConfig()
	if err != nil {
		return err
	}
	if err := am.Preload(textureNames(resources)); err != nil {
		return err
	}
	e.renderer = renderer.NewFrameRenderer(backend, cfg.RendererConfig(resources))
	if err := e.renderer.Initialize(e.window, e.width, e.height, am); err != nil {
		return err
	}

	if e.gameInstance.FnInitialize != nil {
		if err := e.gameInstance.FnInitialize(e.bus, e.input); err != nil {
			return err
		}
	}
	if e.gameInstance.FnOnResize != nil {
		w, h := e.renderer.Surface().Size()
		if err := e.gameInstance.FnOnResize(w, h); err != nil {
			return err
		}
	}
	e.currentStage = EngineStageInitialized
	return nil
}

// resourceConfig resolves the pass layout and registers the overlay text.
func (e *Engine) resourceConfig() (renderer.ResourceConfig, error) {
	cfg := e.config.Assets
	resources := renderer.ResourceConfig{
		Passes:    renderer.DefaultPasses(),
		Pipelines: renderer.DefaultPipelines(),
	}
	if cfg.Layout != "" {
		layout, err := e.assetManager.Layout(cfg.Layout)
		if err != nil {
			return resources, err
		}
		resources = layout.ResourceConfig()
	}
	if cfg.Font == "" {
		return resources, nil
	}
	if err := e.assetManager.RegisterText(renderer.MeshOverlay, renderer.TextureFont, cfg.Font, cfg.HelpText); err != nil {
		return resources, err
	}
	for _, p := range resources.Passes {
		if p.Kind == metadata.PassKindOverlay {
			return resources, nil
		}
	}
	resources.Passes = append(resources.Passes, renderer.OverlayPass())
	return resources, nil
}

func textureNames(resources renderer.ResourceConfig) []string {
	var names []string
	for _, p := range resources.Passes {
		names = append(names, p.Textures...)
	}
	return names
}

// Run paces the loop to the configured frame rate until the game quits, the
// frame limit is reached or a frame fails.
func (e *Engine) Run() error {
	e.currentStage = EngineStageRunning
	e.isRunning.Store(true)
	e.clock.Start()
	e.clock.Update()
	e.lastTime = e.clock.Elapsed()

	targetFrameSeconds := 1.0 / e.config.Renderer.FrameRate

	for e.isRunning.Load() {
		if e.platform != nil {
			e.platform.PumpMessages()
		}
		if e.fatal != nil {
			return e.fatal
		}
		if err := e.applyReloads(); err != nil {
			return err
		}
		if e.isSuspended {
			time.Sleep(time.Duration(targetFrameSeconds * float64(time.Second)))
			continue
		}

		e.clock.Update()
		currentTime := e.clock.Elapsed()
		delta := currentTime - e.lastTime
		frameStart := time.Now()

		if e.gameInstance.FnUpdate != nil {
			if err := e.gameInstance.FnUpdate(delta); err != nil {
				core.LogError("game update failed, shutting down: %s", err)
				return err
			}
		}
		if err := e.renderer.Render(e.gameInstance.Scene); err != nil {
			core.LogError("render failed, shutting down: %s", err)
			return err
		}
		e.input.Update(delta)
		e.lastTime = currentTime
		e.frames++

		if e.metrics.Update(delta) {
			fps, ms := e.metrics.Frame()
			core.LogDebug("%.0f fps, %.2f ms/frame", fps, ms)
		}
		if e.config.MaxFrames > 0 && e.frames >= e.config.MaxFrames {
			core.LogInfo("rendered %d frames, stopping", e.frames)
			break
		}

		if remaining := targetFrameSeconds - time.Since(frameStart).Seconds(); remaining > 0 && !e.headless() {
			time.Sleep(time.Duration(remaining * float64(time.Second)))
		}
	}
	return nil
}

// applyReloads drains the asset change queue and reloads the scene resources
// once if a shader or a texture changed.
func (e *Engine) applyReloads() error {
	reload := false
drain:
	for {
		select {
		case c, ok := <-e.assetManager.Changes():
			if !ok {
				break drain
			}
			e.bus.Fire(e, core.EventContext{Type: core.EVENT_CODE_ASSET_CHANGED, Data: &core.AssetEvent{Path: c.Path}})
			switch c.Type {
			case metadata.ResourceTypeShader, metadata.ResourceTypeTexture, metadata.ResourceTypeImage:
				core.LogInfo("%s changed", c.Path)
				reload = true
			}
		default:
			break drain
		}
	}
	if !reload {
		return nil
	}
	return e.renderer.Reload(e.assetManager)
}

// Stop ends the loop after the current frame. Safe from any goroutine.
func (e *Engine) Stop() {
	e.isRunning.Store(false)
}

// Shutdown releases everything in reverse creation order. Safe to call more
// than once.
func (e *Engine) Shutdown() {
	if e.currentStage == EngineStageStopped {
		return
	}
	e.currentStage = EngineStageShuttingDown
	e.isRunning.Store(false)

	if e.gameInstance.FnShutdown != nil {
		if err := e.gameInstance.FnShutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	if e.renderer != nil {
		e.renderer.Shutdown()
	}
	if e.backend != nil {
		e.backend.Shutdown()
	}
	if e.assetManager != nil {
		e.assetManager.Shutdown()
	}
	if e.platform != nil {
		if err := e.platform.Shutdown(); err != nil {
			core.LogError(err.Error())
		}
	}
	e.bus.Reset()
	e.currentStage = EngineStageStopped
}

func (e *Engine) Stage() Stage                         { return e.currentStage }
func (e *Engine) Frames() uint64                       { return e.frames }
func (e *Engine) Renderer() *renderer.FrameRenderer    { return e.renderer }
func (e *Engine) EventBus() *core.EventBus             { return e.bus }
func (e *Engine) GetFramebufferSize() (uint32, uint32) { return e.width, e.height }

func (e *Engine) onEvent(sender interface{}, listener interface{}, context core.EventContext) bool {
	if context.Type == core.EVENT_CODE_APPLICATION_QUIT {
		core.LogInfo("EVENT_CODE_APPLICATION_QUIT received, shutting down.")
		e.Stop()
		return true
	}
	return false
}

func (e *Engine) onKey(sender interface{}, listener interface{}, context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	if ke.KeyCode == core.KEY_ESCAPE {
		e.bus.Fire(e, core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		return true
	}
	return false
}

func (e *Engine) onResized(sender interface{}, listener interface{}, context core.EventContext) bool {
	se, ok := context.Data.(*core.SystemEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	width, height := se.WindowWidth, se.WindowHeight
	if width == e.width && height == e.height {
		return true
	}
	e.width, e.height = width, height
	core.LogDebug("Window resize: %d, %d", width, height)

	if width == 0 || height == 0 {
		core.LogInfo("Window minimized, suspending application.")
		e.isSuspended = true
		return true
	}
	if e.isSuspended {
		core.LogInfo("Window restored, resuming application.")
		e.isSuspended = false
	}
	if err := e.renderer.Resize(width, height); err != nil {
		e.fail(err)
		return true
	}
	if e.gameInstance.FnOnResize != nil {
		w, h := e.renderer.Surface().Size()
		if err := e.gameInstance.FnOnResize(w, h); err != nil {
			e.fail(err)
		}
	}
	return true
}

func (e *Engine) fail(err error) {
	core.LogError(err.Error())
	if e.fatal == nil {
		e.fatal = err
	}
}
