package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
)

func TestMissingConfigFallsBackToDefaults(t *testing.T) {
	cfg, err := LoadApplicationConfig(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultApplicationConfig(), cfg)
}

func TestConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "anima.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level = "debug"

[window]
width = 800

[renderer]
backend = "headless"
fov_degrees = 75.0
adapter_denylist = ["llvmpipe"]

[assets]
watch = true
`), 0o644))

	cfg, err := LoadApplicationConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, uint32(800), cfg.Window.Width)
	assert.Equal(t, uint32(720), cfg.Window.Height, "unset keys keep their default")
	assert.Equal(t, renderer.BackendHeadless, cfg.Renderer.Backend)
	assert.Equal(t, []string{"llvmpipe"}, cfg.Renderer.AdapterDenylist)
	assert.True(t, cfg.Assets.Watch)

	rc := cfg.RendererConfig(renderer.ResourceConfig{})
	assert.Equal(t, float32(75), rc.Frame.FovDegrees)
	assert.Equal(t, [4]float32{0.5, 0.25, 0.75, 1}, rc.Frame.ClearColor)
}

func TestInvalidConfigIsRejected(t *testing.T) {
	for name, body := range map[string]string{
		"syntax":    "[window",
		"fov":       "[renderer]\nfov_degrees = 190.0",
		"clip":      "[renderer]\nnear = 10.0\nfar = 1.0",
		"size":      "[window]\nheight = 0",
		"framerate": "[renderer]\nframe_rate = 0.0",
	} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "anima.toml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadApplicationConfig(path)
			assert.ErrorIs(t, err, core.ErrAssetLoad)
		})
	}
}
