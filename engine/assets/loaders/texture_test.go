package loaders

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func solidImage(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, c)
		}
	}
	return img
}

func writePNG(t *testing.T, path string, img image.Image) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestImageTextureBuildsMipChain(t *testing.T) {
	c := color.RGBA{R: 200, G: 100, B: 50, A: 255}
	tex, err := ImageTexture("tile", solidImage(8, 4, c), true)
	require.NoError(t, err)

	assert.Equal(t, uint32(4), tex.Desc.MipLevels)
	require.Len(t, tex.Subresources, 4)
	for i, pitch := range []uint32{32, 16, 8, 4} {
		s := tex.Subresources[i]
		assert.Equal(t, pitch, s.RowPitch, "mip %d", i)
		assert.Equal(t, []byte{c.R, c.G, c.B, c.A}, s.Data[:4], "mip %d keeps the color", i)
	}

	single, err := ImageTexture("tile", solidImage(8, 4, c), false)
	require.NoError(t, err)
	assert.Len(t, single.Subresources, 1)
}

func writeCube(t *testing.T, dir string, size func(face string) int) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	for i, face := range CubeFaces {
		n := size(face)
		writePNG(t, filepath.Join(dir, face+".png"), solidImage(n, n, color.RGBA{R: uint8(i * 40), A: 255}))
	}
}

func TestTextureLoaderSixFileCube(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skybox")
	writeCube(t, dir, func(string) int { return 4 })

	tl := &TextureLoader{}
	res, err := tl.Load(dir, metadata.ResourceTypeTexture, nil)
	require.NoError(t, err)
	tex := res.Data.(*metadata.TextureData)

	assert.Equal(t, "skybox", tex.Name)
	assert.True(t, tex.Desc.Cube)
	assert.Equal(t, uint32(6), tex.Desc.ArraySize)
	assert.Equal(t, uint32(3), tex.Desc.MipLevels)
	require.Len(t, tex.Subresources, 18)
	// Face major: the fourth subresource is the top mip of negx.
	assert.Equal(t, byte(40), tex.Subresources[3].Data[0])
}

func TestTextureLoaderRejectsMismatchedFaces(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "skybox")
	writeCube(t, dir, func(face string) int {
		if face == "negz" {
			return 8
		}
		return 4
	})
	_, err := (&TextureLoader{}).Load(dir, metadata.ResourceTypeTexture, nil)
	assert.ErrorIs(t, err, core.ErrAssetLoad)

	require.NoError(t, os.Remove(filepath.Join(dir, "negz.png")))
	_, err = (&TextureLoader{}).Load(dir, metadata.ResourceTypeTexture, nil)
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}

func TestTextureLoaderDispatchesOnExtension(t *testing.T) {
	dir := t.TempDir()
	raw, err := EncodeDDS(bc1Texture(t, 8, 8, 2))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Kitty.DDS"), raw, 0o644))

	res, err := (&TextureLoader{}).Load(filepath.Join(dir, "Kitty.DDS"), metadata.ResourceTypeTexture, map[string]string{"name": "kitty"})
	require.NoError(t, err)
	tex := res.Data.(*metadata.TextureData)
	assert.Equal(t, "kitty", tex.Name)
	assert.Equal(t, metadata.FormatBC1Unorm, tex.Desc.Format)
}
