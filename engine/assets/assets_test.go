package assets

import (
	"encoding/binary"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/assets/loaders"
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

var _ renderer.AssetSource = (*AssetManager)(nil)

func writeAssetTree(t *testing.T) string {
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
	require.NoError(t, os.WriteFile(filepath.Join(root, "textures", "Kitty.dds"), raw, 0o644))

	for _, face := range loaders.CubeFaces {
		f, err := os.Create(filepath.Join(root, "textures", "skybox", face+".png"))
		require.NoError(t, err)
		img := image.NewRGBA(image.Rect(0, 0, 2, 2))
		img.SetRGBA(0, 0, color.RGBA{R: 255, A: 255})
		require.NoError(t, png.Encode(f, img))
		require.NoError(t, f.Close())
	}

	spv, err := binary.Append(nil, binary.LittleEndian, []uint32{0x07230203, 0x00010000, 0, 4, 0})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "SimpleTexture.spv"), spv, 0o644))
	return root
}

func TestAssetManagerResolvesNames(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), false)
	require.NoError(t, err)
	defer am.Shutdown()

	kitty, err := am.Texture("kitty")
	require.NoError(t, err)
	assert.Equal(t, uint32(4), kitty.Desc.Width)
	assert.False(t, kitty.Desc.Cube)

	sky, err := am.Texture(renderer.TextureSkybox)
	require.NoError(t, err)
	assert.True(t, sky.Desc.Cube)
	assert.Len(t, sky.Subresources, 6*2)

	shader, err := am.Shader("simpletexture")
	require.NoError(t, err)
	assert.Equal(t, uint32(0x07230203), shader.Compiled[0])
	assert.Equal(t, "vs", shader.VSEntry)
}

func TestAssetManagerMissingAssets(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), false)
	require.NoError(t, err)
	defer am.Shutdown()

	_, err = am.Texture("nope")
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	_, err = am.Shader("nope")
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	_, err = am.Mesh(renderer.MeshOverlay)
	assert.ErrorIs(t, err, core.ErrAssetLoad)

	_, err = NewAssetManager(filepath.Join(t.TempDir(), "missing"), false)
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}

func TestAssetManagerRegisteredMesh(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), false)
	require.NoError(t, err)
	defer am.Shutdown()

	mesh, err := renderer.CubeMeshData()
	require.NoError(t, err)
	mesh.Name = "crate"
	am.RegisterMesh(mesh)

	got, err := am.Mesh("crate")
	require.NoError(t, err)
	assert.Same(t, mesh, got)
}

func TestAssetManagerReportsChanges(t *testing.T) {
	root := writeAssetTree(t)
	am, err := NewAssetManager(root, true)
	require.NoError(t, err)
	defer am.Shutdown()

	require.NoError(t, os.WriteFile(filepath.Join(root, "shaders", "Overlay.wgsl"), []byte("// edited"), 0o644))

	deadline := time.After(5 * time.Second)
	for {
		select {
		case c := <-am.Changes():
			if c.Name != "overlay" {
				continue
			}
			assert.Equal(t, metadata.ResourceTypeShader, c.Type)
			return
		case <-deadline:
			t.Fatal("no change reported for the edited shader")
		}
	}
}

func TestAssetManagerShutdownTwice(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), true)
	require.NoError(t, err)
	am.Shutdown()
	am.Shutdown()
	_, open := <-am.Changes()
	assert.False(t, open)
}
