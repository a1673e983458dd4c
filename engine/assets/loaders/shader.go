package loaders

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gogpu/naga"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	VertexEntryPoint   = "vs"
	FragmentEntryPoint = "ps"
)

// ShaderLoader compiles a WGSL file holding both stages to SPIR-V. A .spv
// file next to it is used as is.
type ShaderLoader struct {
	binary BinaryLoader
}

func (sl *ShaderLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}
	src := &metadata.ShaderSource{
		Name:    name,
		Path:    path,
		VSEntry: VertexEntryPoint,
		PSEntry: FragmentEntryPoint,
	}

	if strings.EqualFold(filepath.Ext(path), ".spv") {
		res, err := sl.binary.Load(path, assetType, params)
		if err != nil {
			return nil, err
		}
		src.Compiled = res.Data.([]uint32)
		return &metadata.Resource{Name: name, FullPath: path, Type: metadata.ResourceTypeShader, DataSize: res.DataSize, Data: src}, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "read %s", path)
	}
	src.Source = string(data)
	if src.Compiled, err = CompileWGSL(name, src.Source); err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeShader,
		DataSize: uint64(len(src.Compiled) * 4),
		Data:     src,
	}, nil
}

func (sl *ShaderLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// CompileWGSL runs source through naga. Diagnostics only go to the debug log.
func CompileWGSL(name, source string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(source)
	if err != nil {
		core.LogDebug("shader %s diagnostics:\n%s", name, err)
		return nil, core.WrapErrorCause(core.ErrShaderCompile, err, "shader %s", name)
	}
	if len(spirvBytes) == 0 || len(spirvBytes)%4 != 0 {
		return nil, core.WrapError(core.ErrShaderCompile, "shader %s: naga produced %d bytes", name, len(spirvBytes))
	}
	return bytesToBytecode(spirvBytes), nil
}
