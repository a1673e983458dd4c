package views

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func TestSkyboxEnclosesNearPlaneCorners(t *testing.T) {
	const near = float32(0.1)
	fov := math.DegToRad(90)
	const aspect = float32(0.5625)

	r := SkyboxRadius(near, fov, aspect)

	// Corner of the near plane: half width is near*tan(45deg) = near.
	halfW := near
	halfH := aspect * halfW
	corner := math32.Sqrt(near*near + halfW*halfW + halfH*halfH)
	assert.InDelta(t, corner, r, 1e-6)

	// The sphere mesh is generated with radius 1.2 so even its flat faces lie
	// beyond the corner once scaled.
	vertices, indices := math.GenerateSphere(20, 10, 1.2)
	assert.Greater(t, math.InscribedRadius(vertices, indices)*r, corner)
}

func TestSkyboxViewScalesSphere(t *testing.T) {
	view, err := New(metadata.PassConfig{Name: "skybox", Kind: metadata.PassKindSkybox, Pipeline: "skybox", Mesh: "sphere"})
	require.NoError(t, err)

	frame := &metadata.FrameData{Near: 0.1, FovX: math.DegToRad(90), Aspect: 0.5625}
	items, err := view.OnBuildPacket(frame)
	require.NoError(t, err)
	require.Len(t, items, 1)

	r := SkyboxRadius(0.1, math.DegToRad(90), 0.5625)
	assert.InDelta(t, r, items[0].Model.Data[0], 1e-6)
	assert.InDelta(t, r, items[0].Model.Data[10], 1e-6)
	assert.Equal(t, math.NewVec3Zero(), items[0].Model.Translation())
}

func TestOverlayViewMapsPixelsToClipSpace(t *testing.T) {
	view, err := New(metadata.PassConfig{Name: "overlay", Kind: metadata.PassKindOverlay, Pipeline: "overlay", Mesh: "overlay",
		Objects: []metadata.ObjectConfig{{Name: "help", Position: math.NewVec3(10, 20, 0)}}})
	require.NoError(t, err)
	view.OnResize(200, 100)

	items, err := view.OnBuildPacket(&metadata.FrameData{})
	require.NoError(t, err)
	require.Len(t, items, 1)

	topLeft := math.NewVec4(0, 0, 0, 1).Transform(items[0].Model)
	assert.InDelta(t, -0.9, topLeft.X, 1e-5)
	assert.InDelta(t, 0.6, topLeft.Y, 1e-5)
}

func TestNewRejectsInvalidPass(t *testing.T) {
	_, err := New(metadata.PassConfig{Name: "x", Kind: "mystery", Pipeline: "p", Mesh: "m"})
	assert.Error(t, err)
	_, err = New(metadata.PassConfig{Name: "x", Kind: metadata.PassKindObjects, Pipeline: "p", Mesh: "m"})
	assert.Error(t, err)
}
