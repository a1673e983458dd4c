package renderer

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	PipelineTextured    = "textured"
	PipelineSkybox      = "skybox"
	PipelineTransparent = "transparent"
	PipelineOverlay     = "overlay"

	VertexEntryPoint   = "vs"
	FragmentEntryPoint = "ps"
)

// PipelineConfig declares one pipeline state bundle by name.
type PipelineConfig struct {
	Name   string `yaml:"name"`
	Shader string `yaml:"shader"`
	// Layout is "position" or "textured".
	Layout string `yaml:"layout"`
	// Blend is "opaque" or "alpha".
	Blend string `yaml:"blend"`
	// Depth is "read_write", "read" or "disabled".
	Depth string `yaml:"depth"`
	// Cull is "back" or "none".
	Cull string `yaml:"cull"`
}

// DefaultPipelines is the table the lab scene uses.
func DefaultPipelines() []PipelineConfig {
	return []PipelineConfig{
		{Name: PipelineTextured, Shader: "SimpleTexture", Layout: "textured", Blend: "opaque", Depth: "read_write", Cull: "back"},
		{Name: PipelineSkybox, Shader: "SimpleSkybox", Layout: "position", Blend: "opaque", Depth: "read", Cull: "back"},
		{Name: PipelineTransparent, Shader: "SimpleTransTexture", Layout: "textured", Blend: "alpha", Depth: "read", Cull: "back"},
		{Name: PipelineOverlay, Shader: "Overlay", Layout: "textured", Blend: "alpha", Depth: "disabled", Cull: "none"},
	}
}

func (c PipelineConfig) desc(vs, ps *metadata.Shader) (metadata.PipelineDesc, error) {
	d := metadata.PipelineDesc{
		Label:    c.Name,
		VS:       vs,
		PS:       ps,
		Topology: metadata.TopologyTriangleList,
	}
	switch c.Layout {
	case "position":
		d.Layout = PositionLayout
	case "textured", "":
		d.Layout = TexturedLayout
	default:
		return d, fmt.Errorf("pipeline %s: unknown layout %q", c.Name, c.Layout)
	}
	switch c.Blend {
	case "opaque", "":
		d.Blend = metadata.BlendOpaque
	case "alpha":
		d.Blend = metadata.BlendAlpha
	default:
		return d, fmt.Errorf("pipeline %s: unknown blend mode %q", c.Name, c.Blend)
	}
	switch c.Depth {
	case "read_write", "":
		d.Depth = metadata.DepthReadWrite
	case "read":
		d.Depth = metadata.DepthRead
	case "disabled":
		d.Depth = metadata.DepthDisabled
	default:
		return d, fmt.Errorf("pipeline %s: unknown depth mode %q", c.Name, c.Depth)
	}
	switch c.Cull {
	case "back", "":
		d.Cull = metadata.CullBack
	case "none":
		d.Cull = metadata.CullNone
	default:
		return d, fmt.Errorf("pipeline %s: unknown cull mode %q", c.Name, c.Cull)
	}
	return d, nil
}

// ShaderProgram is the vertex and fragment stage of one shader source.
type ShaderProgram struct {
	Name string
	VS   *metadata.Shader
	PS   *metadata.Shader
}

func (p *ShaderProgram) Release() {
	if p == nil {
		return
	}
	p.PS.Release()
	p.VS.Release()
}

// NewShaderProgram creates both stages from a compiled source.
func NewShaderProgram(device metadata.Device, src *metadata.ShaderSource) (*ShaderProgram, error) {
	if len(src.Compiled) == 0 {
		return nil, core.WrapError(core.ErrShaderCompile, "shader %s was not compiled", src.Name)
	}
	vsEntry, psEntry := src.VSEntry, src.PSEntry
	if vsEntry == "" {
		vsEntry = VertexEntryPoint
	}
	if psEntry == "" {
		psEntry = FragmentEntryPoint
	}
	vs, err := device.CreateShader(metadata.ShaderDesc{
		Label:      src.Name + "." + vsEntry,
		Stage:      metadata.ShaderStageVertex,
		EntryPoint: vsEntry,
		Code:       src.Compiled,
	})
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "vertex shader %s", src.Name)
	}
	ps, err := device.CreateShader(metadata.ShaderDesc{
		Label:      src.Name + "." + psEntry,
		Stage:      metadata.ShaderStageFragment,
		EntryPoint: psEntry,
		Code:       src.Compiled,
	})
	if err != nil {
		vs.Release()
		return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "fragment shader %s", src.Name)
	}
	return &ShaderProgram{Name: src.Name, VS: vs, PS: ps}, nil
}

// PipelineTable maps pipeline names to their state bundles.
type PipelineTable struct {
	states map[string]*metadata.PipelineState
	order  []string
}

// BuildPipelineTable creates every configured bundle. On failure the bundles
// already built are released.
func BuildPipelineTable(device metadata.Device, programs map[string]*ShaderProgram, configs []PipelineConfig) (*PipelineTable, error) {
	t := &PipelineTable{states: make(map[string]*metadata.PipelineState, len(configs))}
	for _, c := range configs {
		if _, dup := t.states[c.Name]; dup {
			t.Release()
			return nil, core.WrapError(core.ErrResourceCreation, "pipeline %s declared twice", c.Name)
		}
		program, ok := programs[c.Shader]
		if !ok {
			t.Release()
			return nil, core.WrapError(core.ErrResourceCreation, "pipeline %s: shader %s is not loaded", c.Name, c.Shader)
		}
		desc, err := c.desc(program.VS, program.PS)
		if err != nil {
			t.Release()
			return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "pipeline %s", c.Name)
		}
		state, err := device.CreatePipelineState(desc)
		if err != nil {
			t.Release()
			return nil, core.WrapErrorCause(core.ErrResourceCreation, err, "pipeline %s", c.Name)
		}
		t.states[c.Name] = state
		t.order = append(t.order, c.Name)
	}
	return t, nil
}

func (t *PipelineTable) Get(name string) (*metadata.PipelineState, bool) {
	s, ok := t.states[name]
	return s, ok
}

func (t *PipelineTable) Names() []string { return t.order }

// Release frees the bundles in reverse creation order.
func (t *PipelineTable) Release() {
	if t == nil {
		return
	}
	for i := len(t.order) - 1; i >= 0; i-- {
		t.states[t.order[i]].Release()
	}
	t.states = map[string]*metadata.PipelineState{}
	t.order = nil
}
