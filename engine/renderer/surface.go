package renderer

import (
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	// MinSurfaceSize is the smallest width or height the surface accepts.
	MinSurfaceSize uint32 = 8
	// SwapchainBufferCount is double buffering.
	SwapchainBufferCount uint32 = 2
	SurfaceFormat               = metadata.FormatR8G8B8A8Unorm
	DepthFormat                 = metadata.FormatD32Float
)

type SurfaceConfig struct {
	ApplicationName string
	Debug           bool
	AdapterDenylist []string
	MinFeatureLevel metadata.FeatureLevel
}

// SurfaceManager owns the device, its immediate context, the swapchain and the
// size dependent views.
type SurfaceManager struct {
	backend metadata.Backend
	config  SurfaceConfig

	device       metadata.Device
	context      metadata.DeviceContext
	swapchain    metadata.Swapchain
	colorView    *metadata.View
	depthTexture *metadata.Texture
	depthView    *metadata.View
	tracker      *metadata.Tracker

	width  uint32
	height uint32
}

func NewSurfaceManager(backend metadata.Backend, config SurfaceConfig) *SurfaceManager {
	if config.MinFeatureLevel == 0 {
		config.MinFeatureLevel = metadata.FeatureLevel11_0
	}
	if config.AdapterDenylist == nil {
		config.AdapterDenylist = DefaultAdapterDenylist
	}
	return &SurfaceManager{
		backend: backend,
		config:  config,
	}
}

func clampSurfaceSize(width, height uint32) (uint32, uint32) {
	return math.Max(width, MinSurfaceSize), math.Max(height, MinSurfaceSize)
}

func (s *SurfaceManager) Initialize(window metadata.WindowHandle, width, height uint32) error {
	width, height = clampSurfaceSize(width, height)

	adapters, err := s.backend.EnumerateAdapters(window)
	if err != nil {
		return core.WrapErrorCause(core.ErrDeviceCreation, err, "could not enumerate adapters")
	}
	adapter, err := SelectAdapter(adapters, s.config.AdapterDenylist)
	if err != nil {
		return err
	}
	core.LogInfo("selected adapter %q (%s)", adapter.Name, adapter.Type)

	device, err := s.backend.CreateDevice(adapter, metadata.DeviceConfig{
		Debug:             s.config.Debug,
		MinFeatureLevel:   s.config.MinFeatureLevel,
		ApplicationName:   s.config.ApplicationName,
		RequireAnisotropy: true,
	})
	if err != nil {
		return core.WrapErrorCause(core.ErrDeviceCreation, err, "device on %s rejected feature level %s", adapter.Name, s.config.MinFeatureLevel)
	}
	s.device = device
	s.context = device.ImmediateContext()
	s.tracker = device.Tracker()

	swapchain, err := device.CreateSwapchain(window, metadata.SwapchainDesc{
		Width:       width,
		Height:      height,
		Format:      SurfaceFormat,
		BufferCount: SwapchainBufferCount,
	})
	if err != nil {
		s.Teardown()
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the swapchain")
	}
	s.swapchain = swapchain

	if err := s.createViews(width, height); err != nil {
		s.Teardown()
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the surface views")
	}
	s.width, s.height = width, height
	core.LogDebug("surface initialized at %dx%d", width, height)
	return nil
}

// createViews builds the back buffer view, the depth texture and its view.
// On failure nothing it created is left alive.
func (s *SurfaceManager) createViews(width, height uint32) error {
	var stack metadata.ReleaseStack

	back, err := s.swapchain.GetBuffer(0)
	if err != nil {
		return err
	}
	color, err := s.device.CreateRenderTargetView(back)
	// The view keeps what it needs of the back buffer.
	back.Release()
	if err != nil {
		return err
	}
	stack.Push(color)

	depth, err := s.device.CreateTexture(metadata.TextureDesc{
		Label:     "depth buffer",
		Width:     width,
		Height:    height,
		MipLevels: 1,
		ArraySize: 1,
		Format:    DepthFormat,
		Usage:     metadata.UsageDefault,
		Bind:      metadata.BindDepthStencil,
	}, nil)
	if err != nil {
		stack.ReleaseAll()
		return err
	}
	stack.Push(depth)

	depthView, err := s.device.CreateDepthStencilView(depth)
	if err != nil {
		stack.ReleaseAll()
		return err
	}

	s.colorView, s.depthTexture, s.depthView = color, depth, depthView
	return nil
}

func (s *SurfaceManager) releaseViews() {
	s.colorView.Release()
	s.depthView.Release()
	s.depthTexture.Release()
	s.colorView, s.depthView, s.depthTexture = nil, nil, nil
}

// Resize clamps both axes to MinSurfaceSize and does nothing if the size did
// not change. Only the views and the depth buffer are recreated.
func (s *SurfaceManager) Resize(width, height uint32) error {
	if s.swapchain == nil {
		return core.WrapError(core.ErrResize, "surface is not initialized")
	}
	width, height = clampSurfaceSize(width, height)
	if width == s.width && height == s.height {
		return nil
	}

	s.releaseViews()
	if err := s.swapchain.ResizeBuffers(SwapchainBufferCount, width, height, SurfaceFormat); err != nil {
		return core.WrapErrorCause(core.ErrResize, err, "could not resize the swapchain to %dx%d", width, height)
	}
	if err := s.createViews(width, height); err != nil {
		return core.WrapErrorCause(core.ErrResize, err, "could not recreate the surface views at %dx%d", width, height)
	}
	s.width, s.height = width, height
	core.LogDebug("surface resized to %dx%d", width, height)
	return nil
}

// Present shows the back buffer without waiting for vertical sync.
func (s *SurfaceManager) Present() error {
	if s.swapchain == nil {
		return core.WrapError(core.ErrRender, "present without a swapchain")
	}
	if err := s.swapchain.Present(0, 0); err != nil {
		return core.WrapErrorCause(core.ErrRender, err, "present failed")
	}
	return nil
}

// Teardown releases everything in reverse creation order. It is safe to call
// on a partially initialized manager and more than once.
func (s *SurfaceManager) Teardown() {
	s.releaseViews()
	if s.swapchain != nil {
		s.swapchain.Release()
		s.swapchain = nil
	}
	if s.context != nil {
		s.context.Release()
		s.context = nil
	}
	if s.device != nil {
		if s.config.Debug {
			for _, obj := range s.device.LiveObjects() {
				core.LogWarn("live object before device release: %s", obj)
			}
		}
		s.device.Release()
		s.device = nil
	}
	s.width, s.height = 0, 0
}

// LiveObjects is the number of objects still alive on the device arena.
func (s *SurfaceManager) LiveObjects() int {
	if s.tracker == nil {
		return 0
	}
	return s.tracker.Live()
}

func (s *SurfaceManager) Device() metadata.Device         { return s.device }
func (s *SurfaceManager) Context() metadata.DeviceContext { return s.context }
func (s *SurfaceManager) ColorView() *metadata.View       { return s.colorView }
func (s *SurfaceManager) DepthView() *metadata.View       { return s.depthView }
func (s *SurfaceManager) Size() (width, height uint32)    { return s.width, s.height }
func (s *SurfaceManager) Tracker() *metadata.Tracker      { return s.tracker }
func (s *SurfaceManager) Backend() metadata.Backend       { return s.backend }
