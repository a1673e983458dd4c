package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// CubeFaces are the file names of a six file cubemap, in face order.
var CubeFaces = []string{"posx", "negx", "posy", "negy", "posz", "negz"}

// TextureLoader picks the DDS or image loader by extension. A directory is
// read as a six file cubemap.
type TextureLoader struct {
	dds   DDSLoader
	image ImageLoader
}

func (tl *TextureLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "texture %s", path)
	}
	if fi.IsDir() {
		tex, err := tl.loadCube(path)
		if err != nil {
			return nil, err
		}
		if p, ok := params.(map[string]string); ok && p["name"] != "" {
			tex.Name, tex.Desc.Label = p["name"], p["name"]
		}
		return &metadata.Resource{
			Name:     tex.Name,
			FullPath: path,
			Type:     metadata.ResourceTypeTexture,
			Data:     tex,
		}, nil
	}
	return tl.loader(path).Load(path, assetType, params)
}

func (tl *TextureLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

func (tl *TextureLoader) loader(path string) interface {
	Load(string, metadata.ResourceType, interface{}) (*metadata.Resource, error)
} {
	if strings.EqualFold(filepath.Ext(path), ".dds") {
		return &tl.dds
	}
	return &tl.image
}

// loadCube stacks the six face files of dir into one cube texture. Every face
// must agree on format, size and mip count.
func (tl *TextureLoader) loadCube(dir string) (*metadata.TextureData, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "cubemap %s", dir)
	}
	files := make(map[string]string, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		base := strings.ToLower(strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())))
		files[base] = filepath.Join(dir, e.Name())
	}

	name := filepath.Base(dir)
	var cube *metadata.TextureData
	for _, face := range CubeFaces {
		path, ok := files[face]
		if !ok {
			return nil, core.WrapError(core.ErrAssetLoad, "cubemap %s is missing face %s", dir, face)
		}
		res, err := tl.loader(path).Load(path, metadata.ResourceTypeTexture, nil)
		if err != nil {
			return nil, err
		}
		tex := res.Data.(*metadata.TextureData)
		if tex.Desc.Cube {
			return nil, core.WrapError(core.ErrAssetLoad, "cubemap face %s is itself a cubemap", path)
		}
		if cube == nil {
			cube = &metadata.TextureData{Name: name, Desc: tex.Desc}
			cube.Desc.Label = name
			cube.Desc.ArraySize = 6
			cube.Desc.Cube = true
		} else if tex.Desc.Format != cube.Desc.Format ||
			tex.Desc.Width != cube.Desc.Width ||
			tex.Desc.Height != cube.Desc.Height ||
			tex.Desc.MipLevels != cube.Desc.MipLevels {
			return nil, core.WrapError(core.ErrAssetLoad, "cubemap face %s is %dx%d %s with %d mips, want %dx%d %s with %d mips",
				path, tex.Desc.Width, tex.Desc.Height, tex.Desc.Format, tex.Desc.MipLevels,
				cube.Desc.Width, cube.Desc.Height, cube.Desc.Format, cube.Desc.MipLevels)
		}
		cube.Subresources = append(cube.Subresources, tex.Subresources...)
	}
	return cube, cube.Validate()
}
