package engine

import (
	"errors"
	"io/fs"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
)

type WindowConfig struct {
	// The application name used in windowing, if applicable.
	Name string `toml:"name"`
	// Window starting position, if applicable.
	X uint32 `toml:"x"`
	Y uint32 `toml:"y"`
	// Window starting size. Headless runs render at this size.
	Width  uint32 `toml:"width"`
	Height uint32 `toml:"height"`
}

type RendererSettings struct {
	Backend         string     `toml:"backend"`
	Debug           bool       `toml:"debug"`
	FovDegrees      float32    `toml:"fov_degrees"`
	Near            float32    `toml:"near"`
	Far             float32    `toml:"far"`
	ClearColor      [4]float32 `toml:"clear_color"`
	AdapterDenylist []string   `toml:"adapter_denylist"`
	FrameRate       float64    `toml:"frame_rate"`
}

type AssetSettings struct {
	Root string `toml:"root"`
	// Layout is a YAML pass layout; empty means the built in scene.
	Layout string `toml:"layout"`
	Watch  bool   `toml:"watch"`
	// Font enables the help overlay when set to a bitmap font asset name.
	Font     string `toml:"font"`
	HelpText string `toml:"help_text"`
}

type ApplicationConfig struct {
	LogLevel string           `toml:"log_level"`
	Window   WindowConfig     `toml:"window"`
	Renderer RendererSettings `toml:"renderer"`
	Assets   AssetSettings    `toml:"assets"`

	// MaxFrames stops the loop after that many frames when non zero.
	MaxFrames uint64 `toml:"-"`
}

const defaultHelpText = "LMB drag: look  wheel: zoom\nWASD: move  F: first person\nSpace: pause  Esc: quit"

func DefaultApplicationConfig() *ApplicationConfig {
	frame := renderer.DefaultFrameConfig()
	return &ApplicationConfig{
		LogLevel: "info",
		Window: WindowConfig{
			Name:   "Anima Labs",
			X:      100,
			Y:      100,
			Width:  1280,
			Height: 720,
		},
		Renderer: RendererSettings{
			Backend:         renderer.BackendVulkan,
			FovDegrees:      frame.FovDegrees,
			Near:            frame.Near,
			Far:             frame.Far,
			ClearColor:      frame.ClearColor,
			AdapterDenylist: append([]string(nil), renderer.DefaultAdapterDenylist...),
			FrameRate:       60,
		},
		Assets: AssetSettings{
			Root:     "assets",
			HelpText: defaultHelpText,
		},
	}
}

// LoadApplicationConfig reads path over the defaults. A missing file is not
// an error.
func LoadApplicationConfig(path string) (*ApplicationConfig, error) {
	cfg := DefaultApplicationConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		core.LogWarn("config %s not found, using defaults", path)
		return cfg, nil
	}
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *ApplicationConfig) Validate() error {
	switch {
	case c.Window.Width == 0 || c.Window.Height == 0:
		return core.WrapError(core.ErrAssetLoad, "window size %dx%d is empty", c.Window.Width, c.Window.Height)
	case c.Renderer.FovDegrees <= 0 || c.Renderer.FovDegrees >= 180:
		return core.WrapError(core.ErrAssetLoad, "fov_degrees %g out of (0, 180)", c.Renderer.FovDegrees)
	case c.Renderer.Near <= 0 || c.Renderer.Far <= c.Renderer.Near:
		return core.WrapError(core.ErrAssetLoad, "clip range %g..%g is invalid", c.Renderer.Near, c.Renderer.Far)
	case c.Renderer.FrameRate <= 0:
		return core.WrapError(core.ErrAssetLoad, "frame_rate %g must be positive", c.Renderer.FrameRate)
	}
	return nil
}

// RendererConfig maps the settings onto the renderer. Passes and pipelines
// come from the layout and are filled in by the engine.
func (c *ApplicationConfig) RendererConfig(resources renderer.ResourceConfig) renderer.RendererConfig {
	return renderer.RendererConfig{
		Surface: renderer.SurfaceConfig{
			ApplicationName: c.Window.Name,
			Debug:           c.Renderer.Debug,
			AdapterDenylist: c.Renderer.AdapterDenylist,
		},
		Frame: renderer.FrameConfig{
			FovDegrees: c.Renderer.FovDegrees,
			Near:       c.Renderer.Near,
			Far:        c.Renderer.Far,
			ClearColor: c.Renderer.ClearColor,
		},
		Resources: resources,
	}
}
