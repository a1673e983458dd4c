package loaders

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// SceneLayout is the YAML form of the pass list and the pipeline table.
// Empty sections fall back to the built in defaults.
type SceneLayout struct {
	Passes    []metadata.PassConfig     `yaml:"passes"`
	Pipelines []renderer.PipelineConfig `yaml:"pipelines"`
}

// ResourceConfig fills the gaps of the layout with the defaults.
func (l *SceneLayout) ResourceConfig() renderer.ResourceConfig {
	cfg := renderer.ResourceConfig{Passes: l.Passes, Pipelines: l.Pipelines}
	if len(cfg.Passes) == 0 {
		cfg.Passes = renderer.DefaultPasses()
	}
	if len(cfg.Pipelines) == 0 {
		cfg.Pipelines = renderer.DefaultPipelines()
	}
	return cfg
}

type LayoutLoader struct{}

func (ll *LayoutLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "read %s", path)
	}
	layout, err := ParseLayout(data)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "layout %s", path)
	}
	return &metadata.Resource{
		Name:     path,
		FullPath: path,
		Type:     metadata.ResourceTypeLayout,
		DataSize: uint64(len(data)),
		Data:     layout,
	}, nil
}

func (ll *LayoutLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	return nil
}

func ParseLayout(data []byte) (*SceneLayout, error) {
	layout := &SceneLayout{}
	if err := yaml.Unmarshal(data, layout); err != nil {
		return nil, err
	}
	for _, p := range layout.Passes {
		if err := p.Validate(); err != nil {
			return nil, err
		}
	}
	return layout, nil
}
