package loaders

import (
	"encoding/binary"
	"path/filepath"
	"strings"

	"github.com/fzipp/bmfont"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// BitmapFont is a loaded AngelCode font with its first page as a texture.
type BitmapFont struct {
	Face       string
	Size       int
	LineHeight int
	Baseline   int
	Descriptor *bmfont.Descriptor
	Atlas      *metadata.TextureData
}

type BitmapFontLoader struct {
	image ImageLoader
}

func (fl *BitmapFontLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	font, err := bmfont.Load(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "bitmap font %s", path)
	}
	desc := font.Descriptor
	if len(desc.Pages) != 1 {
		return nil, core.WrapError(core.ErrAssetLoad, "bitmap font %s has %d pages, only single page fonts are supported", path, len(desc.Pages))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}

	out := &BitmapFont{
		Face:       desc.Info.Face,
		Size:       desc.Info.Size,
		LineHeight: desc.Common.LineHeight,
		Baseline:   desc.Common.Base,
		Descriptor: desc,
	}
	for _, p := range desc.Pages {
		fl.image.SkipMips = true
		res, err := fl.image.Load(filepath.Join(filepath.Dir(path), p.File), metadata.ResourceTypeImage, map[string]string{"name": name})
		if err != nil {
			return nil, err
		}
		out.Atlas = res.Data.(*metadata.TextureData)
	}

	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeBitmapFont,
		DataSize: uint64(len(out.Atlas.Subresources[0].Data)),
		Data:     out,
	}, nil
}

func (fl *BitmapFontLoader) Unload(resource *metadata.Resource) error {
	if resource.Data != nil {
		data := resource.Data.(*BitmapFont)
		data.Descriptor = nil
		data.Atlas = nil
		resource.Data = nil
		resource.DataSize = 0
		resource.FullPath = ""
	}
	return nil
}

// TextMesh lays out text as one quad per glyph, in pixels with y pointing
// down and the origin at the top left of the first line. Unknown runes are
// skipped and '\n' starts a new line.
func (f *BitmapFont) TextMesh(name, text string) (*metadata.MeshData, error) {
	desc := f.Descriptor
	scaleW, scaleH := float32(desc.Common.ScaleW), float32(desc.Common.ScaleH)
	if scaleW == 0 || scaleH == 0 {
		return nil, core.WrapError(core.ErrAssetLoad, "font %s has no atlas size", f.Face)
	}

	var vertices []math.TextureVertex
	var indices []uint16
	penX, penY := 0, 0
	var prev rune
	for _, r := range text {
		if r == '\n' {
			penX, penY, prev = 0, penY+f.LineHeight, 0
			continue
		}
		g, ok := desc.Chars[r]
		if !ok {
			prev = 0
			continue
		}
		if k, ok := desc.Kerning[bmfont.CharPair{First: prev, Second: r}]; ok && prev != 0 {
			penX += k.Amount
		}
		if g.Width > 0 && g.Height > 0 {
			if len(vertices)+4 > 0xffff {
				return nil, core.WrapError(core.ErrAssetLoad, "text %s is too long for 16 bit indices", name)
			}
			x0 := float32(penX + g.XOffset)
			y0 := float32(penY + g.YOffset)
			x1, y1 := x0+float32(g.Width), y0+float32(g.Height)
			u0, v0 := float32(g.X)/scaleW, float32(g.Y)/scaleH
			u1, v1 := float32(g.X+g.Width)/scaleW, float32(g.Y+g.Height)/scaleH

			base := uint16(len(vertices))
			vertices = append(vertices,
				math.TextureVertex{Position: math.NewVec3(x0, y0, 0), Texcoord: math.NewVec2(u0, v0)},
				math.TextureVertex{Position: math.NewVec3(x1, y0, 0), Texcoord: math.NewVec2(u1, v0)},
				math.TextureVertex{Position: math.NewVec3(x0, y1, 0), Texcoord: math.NewVec2(u0, v1)},
				math.TextureVertex{Position: math.NewVec3(x1, y1, 0), Texcoord: math.NewVec2(u1, v1)},
			)
			indices = append(indices, base, base+1, base+2, base+2, base+1, base+3)
		}
		penX += g.XAdvance
		prev = r
	}
	if len(indices) == 0 {
		return nil, core.WrapError(core.ErrAssetLoad, "text %s has no drawable glyphs", name)
	}

	raw, err := binary.Append(nil, binary.LittleEndian, vertices)
	if err != nil {
		return nil, err
	}
	return &metadata.MeshData{
		Name:        name,
		Vertices:    raw,
		VertexCount: uint32(len(vertices)),
		Indices:     indices,
		Layout:      renderer.TexturedLayout,
	}, nil
}
