package renderer

import (
	"bytes"
	"encoding/binary"
	"errors"
	gomath "math"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/headless"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func TestSelectAdapterSkipsDenylistAndSoftware(t *testing.T) {
	adapters := []metadata.AdapterInfo{
		{Name: "Microsoft Basic Render Driver", Type: metadata.AdapterTypeOther},
		{Name: "Some CPU rasterizer", Type: metadata.AdapterTypeSoftware},
		{Name: "LLVMPIPE (LLVM 17)", Type: metadata.AdapterTypeOther},
		{Name: "Radeon RX 7600", Type: metadata.AdapterTypeDiscrete},
		{Name: "Intel UHD 770", Type: metadata.AdapterTypeIntegrated},
	}
	a, err := SelectAdapter(adapters, DefaultAdapterDenylist)
	require.NoError(t, err)
	assert.Equal(t, "Radeon RX 7600", a.Name)

	a, err = SelectAdapter(adapters, append([]string{"radeon"}, DefaultAdapterDenylist...))
	require.NoError(t, err)
	assert.Equal(t, "Intel UHD 770", a.Name)

	_, err = SelectAdapter(adapters[:3], DefaultAdapterDenylist)
	assert.ErrorIs(t, err, core.ErrDeviceCreation)
}

func TestSurfaceInitFailureReleasesDevice(t *testing.T) {
	for _, op := range []string{"CreateSwapchain", "CreateDepthStencilView", "GetBuffer"} {
		t.Run(op, func(t *testing.T) {
			backend := headless.New()
			backend.FailOn(op, errors.New("no memory"))
			s := NewSurfaceManager(backend, SurfaceConfig{})

			err := s.Initialize(fakeWindow{100, 100}, 100, 100)
			assert.ErrorIs(t, err, core.ErrResourceCreation)
			assert.Equal(t, 0, backend.Tracker().Live(), backend.Tracker().Report())
		})
	}
}

func TestSurfaceTeardownIsRepeatable(t *testing.T) {
	backend := headless.New()
	s := NewSurfaceManager(backend, SurfaceConfig{})
	require.NoError(t, s.Initialize(fakeWindow{100, 100}, 100, 100))
	require.NoError(t, s.Present())

	s.Teardown()
	s.Teardown()
	assert.Equal(t, 0, s.LiveObjects())
	assert.ErrorIs(t, s.Resize(10, 10), core.ErrResize)
	assert.ErrorIs(t, s.Present(), core.ErrRender)
}

func TestNewBackendLooksUpRegistry(t *testing.T) {
	b, err := NewBackend("Headless")
	require.NoError(t, err)
	assert.Equal(t, BackendHeadless, b.Name())

	_, err = NewBackend("direct3d")
	assert.ErrorIs(t, err, core.ErrDeviceCreation)
}

func TestConstantsLayout(t *testing.T) {
	c := SceneConstants{Model: math.NewMat4Translation(math.NewVec3(1, 2, 3)), Tint: math.NewVec4(0.1, 0.2, 0.3, 0.5)}
	b := c.Bytes()
	require.Len(t, b, SceneConstantsSize)

	// Translation is the fourth matrix row, the tint follows the matrix.
	assert.Equal(t, float32(1), gomath.Float32frombits(binary.LittleEndian.Uint32(b[48:])))
	assert.Equal(t, float32(3), gomath.Float32frombits(binary.LittleEndian.Uint32(b[56:])))
	assert.Equal(t, float32(0.5), gomath.Float32frombits(binary.LittleEndian.Uint32(b[76:])))
	assert.Len(t, ViewConstants{}.Bytes(), ViewConstantsSize)
}

func TestDebugTeardownWarnsAboutLiveObjects(t *testing.T) {
	var out bytes.Buffer
	core.SetLogOutput(&out)
	core.SetLogLevel(core.LogLevelInfo)
	defer func() {
		core.SetLogOutput(os.Stderr)
		core.SetLogLevel(core.LogLevelDebug)
	}()

	backend := headless.New()
	defer backend.Shutdown()
	s := NewSurfaceManager(backend, SurfaceConfig{Debug: true})
	require.NoError(t, s.Initialize(fakeWindow{64, 64}, 64, 64))
	_, err := s.Device().CreateBuffer(metadata.BufferDesc{
		Label: "leaked constants",
		Size:  16,
		Usage: metadata.UsageDefault,
		Bind:  metadata.BindConstantBuffer,
	}, nil)
	require.NoError(t, err)

	s.Teardown()
	assert.Contains(t, out.String(), "live object before device release")
	assert.Contains(t, out.String(), "leaked constants")
}
