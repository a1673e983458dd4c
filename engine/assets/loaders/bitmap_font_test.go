package loaders

import (
	"encoding/binary"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const testFont = `info face="Test" size=16 bold=0 italic=0 charset="" unicode=1 stretchH=100 smooth=1 aa=1 padding=0,0,0,0 spacing=1,1 outline=0
common lineHeight=18 base=14 scaleW=64 scaleH=64 pages=1 packed=0 alphaChnl=0 redChnl=4 greenChnl=4 blueChnl=4
page id=0 file="test.png"
chars count=2
char id=32   x=0     y=0     width=0     height=0     xoffset=0     yoffset=0     xadvance=4     page=0  chnl=15
char id=65   x=16    y=32    width=8     height=10    xoffset=0     yoffset=2     xadvance=9     page=0  chnl=15
kernings count=1
kerning first=65  second=65  amount=-1
`

func loadTestFont(t *testing.T) *BitmapFont {
	t.Helper()
	dir := t.TempDir()
	writePNG(t, filepath.Join(dir, "test.png"), solidImage(64, 64, color.RGBA{A: 255}))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "test.fnt"), []byte(testFont), 0o644))

	res, err := (&BitmapFontLoader{}).Load(filepath.Join(dir, "test.fnt"), metadata.ResourceTypeBitmapFont, nil)
	require.NoError(t, err)
	return res.Data.(*BitmapFont)
}

func TestBitmapFontLoader(t *testing.T) {
	f := loadTestFont(t)
	assert.Equal(t, "Test", f.Face)
	assert.Equal(t, 18, f.LineHeight)
	require.NotNil(t, f.Atlas)
	assert.Equal(t, uint32(1), f.Atlas.Desc.MipLevels)
	assert.Equal(t, uint32(64), f.Atlas.Desc.Width)
}

func TestTextMeshLayout(t *testing.T) {
	f := loadTestFont(t)
	mesh, err := f.TextMesh("help", "AA?\nA")
	require.NoError(t, err)

	assert.Equal(t, uint32(12), mesh.VertexCount)
	assert.Len(t, mesh.Indices, 18)
	assert.Equal(t, renderer.TexturedLayout, mesh.Layout)

	vertex := func(i int) math.TextureVertex {
		var v math.TextureVertex
		off := i * int(mesh.Layout.Stride)
		_, err := binary.Decode(mesh.Vertices[off:off+int(mesh.Layout.Stride)], binary.LittleEndian, &v)
		require.NoError(t, err)
		return v
	}
	first := vertex(0)
	assert.Equal(t, math.NewVec3(0, 2, 0), first.Position)
	assert.Equal(t, math.NewVec2(0.25, 0.5), first.Texcoord)
	// Kerning pulls the second glyph one pixel left.
	assert.Equal(t, float32(8), vertex(4).Position.X)
	// The unknown rune is skipped and the newline moves down one line.
	third := vertex(8)
	assert.Equal(t, math.NewVec3(0, 20, 0), third.Position)
}

func TestTextMeshWithoutGlyphs(t *testing.T) {
	f := loadTestFont(t)
	_, err := f.TextMesh("blank", "   ")
	assert.Error(t, err)
}
