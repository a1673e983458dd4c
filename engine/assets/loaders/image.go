package loaders

import (
	"image"
	"image/draw"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	xdraw "golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// ImageLoader decodes plain images into RGBA8 and builds the full mip chain
// on the CPU.
type ImageLoader struct {
	// SkipMips keeps only the top level. Fonts and UI atlases use it.
	SkipMips bool
}

func (il *ImageLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "open %s", path)
	}
	defer f.Close()

	img, format, err := image.Decode(f)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "decode %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}
	core.LogDebug("decoded %s image %s (%v)", format, path, img.Bounds().Size())

	tex, err := ImageTexture(name, img, !il.SkipMips)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeImage,
		DataSize: uint64(len(tex.Subresources[0].Data)),
		Data:     tex,
	}, nil
}

func (il *ImageLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// ImageTexture converts img to an RGBA8 texture, downsampling each level
// from the previous one with a bilinear filter.
func ImageTexture(name string, img image.Image, mips bool) (*metadata.TextureData, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, core.WrapError(core.ErrAssetLoad, "image %s is empty", name)
	}
	width, height := uint32(b.Dx()), uint32(b.Dy())
	levels := uint32(1)
	if mips {
		levels = metadata.FullMipCount(width, height)
	}
	chain, err := metadata.MipChain(metadata.FormatR8G8B8A8Unorm, width, height, levels)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "image %s", name)
	}

	top := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(top, top.Bounds(), img, b.Min, draw.Src)

	tex := &metadata.TextureData{
		Name: name,
		Desc: metadata.TextureDesc{
			Label:     name,
			Width:     width,
			Height:    height,
			MipLevels: levels,
			ArraySize: 1,
			Format:    metadata.FormatR8G8B8A8Unorm,
			Usage:     metadata.UsageImmutable,
			Bind:      metadata.BindShaderResource,
		},
	}
	prev := top
	for i, m := range chain {
		level := prev
		if i > 0 {
			level = image.NewRGBA(image.Rect(0, 0, int(m.Width), int(m.Height)))
			xdraw.BiLinear.Scale(level, level.Bounds(), prev, prev.Bounds(), xdraw.Src, nil)
		}
		tex.Subresources = append(tex.Subresources, metadata.SubresourceData{
			Data:       level.Pix,
			RowPitch:   uint32(level.Stride),
			SlicePitch: uint32(len(level.Pix)),
		})
		prev = level
	}
	return tex, nil
}
