package engine

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/assets/loaders"
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	_ "github.com/spaghettifunk/anima-labs/engine/renderer/headless"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type staticScene struct{}

func (staticScene) ModelTransform() math.Mat4  { return math.NewMat4Identity() }
func (staticScene) CameraTransform() math.Mat4 { return math.NewMat4Translation(math.NewVec3(0, 0, -8)) }

func writeAssets(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	for _, dir := range []string{"shaders", "textures/skybox"} {
		require.NoError(t, os.MkdirAll(filepath.Join(root, dir), 0o755))
	}

	kitty := &metadata.TextureData{
		Name: "kitty",
		Desc: metadata.TextureDesc{Width: 4, Height: 4, MipLevels: 1, ArraySize: 1, Format: metadata.FormatR8G8B8A8Unorm},
		Subresources: []metadata.SubresourceData{
			{Data: make([]byte, 64), RowPitch: 16, SlicePitch: 64},
		},
	}
	raw, err := loaders.EncodeDDS(kitty)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "kitty.dds"), raw, 0o644))

	for _, face := range loaders.CubeFaces {
		f, err := os.Create(filepath.Join(root, "textures", "skybox", face+".png"))
		require.NoError(t, err)
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.SetRGBA(0, 0, color.RGBA{B: 255, A: 255})
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	spv, err := binary.Append(nil, binary.LittleEndian, []uint32{0x07230203, 0x00010000, 0, 4, 0})
	require.NoError(t, err)
	for _, p := range renderer.DefaultPipelines() {
		require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", p.Shader+".spv"), spv, 0o644))
	}
	return root
}

func headlessGame(t *testing.T, frames uint64) *Game {
	cfg := DefaultApplicationConfig()
	cfg.Renderer.Backend = renderer.BackendHeadless
	cfg.Assets.Root = writeAssets(t)
	cfg.MaxFrames = frames
	return &Game{ApplicationConfig: cfg, Scene: staticScene{}}
}

func TestHeadlessRunRendersRequestedFrames(t *testing.T) {
	g := headlessGame(t, 3)
	updates := 0
	g.FnUpdate = func(float64) error { updates++; return nil }

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	require.NoError(t, e.Run())
	assert.Equal(t, uint64(3), e.Frames())
	assert.Equal(t, 3, updates)

	surface := e.Renderer().Surface()
	e.Shutdown()
	assert.Equal(t, EngineStageStopped, e.Stage())
	assert.LessOrEqual(t, surface.LiveObjects(), 1)

	// A second shutdown is a no-op.
	e.Shutdown()
}

func TestResizeEventReachesRenderer(t *testing.T) {
	g := headlessGame(t, 1)
	var resized [2]uint32
	g.FnOnResize = func(w, h uint32) error { resized = [2]uint32{w, h}; return nil }

	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()
	assert.Equal(t, [2]uint32{1280, 720}, resized)

	e.EventBus().Fire(nil, core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 4, WindowHeight: 600}})
	assert.Equal(t, [2]uint32{8, 600}, resized)

	require.NoError(t, e.Run())
	assert.Equal(t, uint32(8), e.Renderer().LastFrame().Width)
}

func TestMinimizeSuspendsInsteadOfResizing(t *testing.T) {
	g := headlessGame(t, 1)
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	e.EventBus().Fire(nil, core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{}})
	assert.True(t, e.isSuspended)
	w, h := e.Renderer().Surface().Size()
	assert.Equal(t, [2]uint32{1280, 720}, [2]uint32{w, h})

	e.EventBus().Fire(nil, core.EventContext{Type: core.EVENT_CODE_RESIZED, Data: &core.SystemEvent{WindowWidth: 640, WindowHeight: 480}})
	assert.False(t, e.isSuspended)
	w, h = e.Renderer().Surface().Size()
	assert.Equal(t, [2]uint32{640, 480}, [2]uint32{w, h})
}

func TestEscapeStopsTheLoop(t *testing.T) {
	g := headlessGame(t, 0)
	g.FnUpdate = nil
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()

	g.FnUpdate = func(float64) error {
		e.EventBus().Fire(nil, core.EventContext{Type: core.EVENT_CODE_KEY_PRESSED, Data: &core.KeyEvent{KeyCode: core.KEY_ESCAPE}})
		return nil
	}
	require.NoError(t, e.Run())
	assert.Equal(t, uint64(1), e.Frames())
}

func TestUpdateErrorEndsRun(t *testing.T) {
	g := headlessGame(t, 10)
	boom := errors.New("boom")
	g.FnUpdate = func(float64) error { return boom }
	e, err := New(g)
	require.NoError(t, err)
	require.NoError(t, e.Initialize())
	defer e.Shutdown()
	assert.ErrorIs(t, e.Run(), boom)
}

func TestMissingAssetsFailInitialize(t *testing.T) {
	g := headlessGame(t, 1)
	g.ApplicationConfig.Assets.Root = filepath.Join(t.TempDir(), "nothing")
	e, err := New(g)
	require.NoError(t, err)
	err = e.Initialize()
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	e.Shutdown()
}

func TestNewRequiresScene(t *testing.T) {
	_, err := New(&Game{})
	assert.Error(t, err)
}
