package renderer

import (
	gomath "math"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// AssetSource loads everything the resource store reads from disk.
type AssetSource interface {
	Texture(name string) (*metadata.TextureData, error)
	Shader(name string) (*metadata.ShaderSource, error)
	Mesh(name string) (*metadata.MeshData, error)
}

type ResourceConfig struct {
	Passes    []metadata.PassConfig
	Pipelines []PipelineConfig
}

// TextureResource is an immutable texture and the view shaders sample it through.
type TextureResource struct {
	Name    string
	Texture *metadata.Texture
	View    *metadata.View
}

func (t *TextureResource) Release() {
	if t == nil {
		return
	}
	t.View.Release()
	t.Texture.Release()
}

// ResourceStore holds every scene resource. Only the two constant buffers are
// written after creation.
type ResourceStore struct {
	meshes         map[string]*Mesh
	textures       map[string]*TextureResource
	programs       map[string]*ShaderProgram
	Sampler        *metadata.Sampler
	SceneConstants *metadata.Buffer
	ViewConstants  *metadata.Buffer
	Pipelines      *PipelineTable

	stack metadata.ReleaseStack
}

// DefaultSamplerDesc is anisotropic filtering with wrapping and no LOD clamp.
func DefaultSamplerDesc() metadata.SamplerDesc {
	return metadata.SamplerDesc{
		Label:         "anisotropic wrap",
		Filter:        metadata.FilterAnisotropic,
		AddressU:      metadata.AddressModeWrap,
		AddressV:      metadata.AddressModeWrap,
		AddressW:      metadata.AddressModeWrap,
		MaxAnisotropy: 16,
		MinLOD:        -gomath.MaxFloat32,
		MaxLOD:        gomath.MaxFloat32,
	}
}

// LoadResources builds meshes, textures, the sampler, the constant buffers,
// the shaders and the pipeline table, in that order. If anything fails all
// that was built is released before the error returns.
func LoadResources(device metadata.Device, assets AssetSource, config ResourceConfig) (*ResourceStore, error) {
	s := &ResourceStore{
		meshes:   make(map[string]*Mesh),
		textures: make(map[string]*TextureResource),
		programs: make(map[string]*ShaderProgram),
	}
	if err := s.load(device, assets, config); err != nil {
		s.Release()
		return nil, err
	}
	core.LogDebug("resource store loaded: %d meshes, %d textures, %d pipelines",
		len(s.meshes), len(s.textures), len(s.Pipelines.Names()))
	return s, nil
}

func (s *ResourceStore) load(device metadata.Device, assets AssetSource, config ResourceConfig) error {
	for _, p := range config.Passes {
		if err := p.Validate(); err != nil {
			return core.WrapErrorCause(core.ErrResourceCreation, err, "invalid pass layout")
		}
	}

	// Meshes: the built-in sphere and cube first, then any loaded ones.
	for _, build := range []func() (*metadata.MeshData, error){SphereMeshData, CubeMeshData} {
		data, err := build()
		if err != nil {
			return core.WrapErrorCause(core.ErrResourceCreation, err, "could not build mesh")
		}
		if err := s.addMesh(device, data); err != nil {
			return err
		}
	}
	for _, p := range config.Passes {
		if _, ok := s.meshes[p.Mesh]; ok {
			continue
		}
		data, err := assets.Mesh(p.Mesh)
		if err != nil {
			return err
		}
		if err := s.addMesh(device, data); err != nil {
			return err
		}
	}

	for _, p := range config.Passes {
		for _, name := range p.Textures {
			if _, ok := s.textures[name]; ok {
				continue
			}
			if err := s.addTexture(device, assets, name); err != nil {
				return err
			}
		}
	}

	sampler, err := device.CreateSampler(DefaultSamplerDesc())
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the sampler")
	}
	s.Sampler = sampler
	s.stack.Push(sampler)

	scene, err := device.CreateBuffer(metadata.BufferDesc{
		Label: "scene constants",
		Size:  SceneConstantsSize,
		Usage: metadata.UsageDefault,
		Bind:  metadata.BindConstantBuffer,
	}, nil)
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the scene constant buffer")
	}
	s.SceneConstants = scene
	s.stack.Push(scene)

	view, err := device.CreateBuffer(metadata.BufferDesc{
		Label:     "view constants",
		Size:      ViewConstantsSize,
		Usage:     metadata.UsageDynamic,
		Bind:      metadata.BindConstantBuffer,
		CPUAccess: metadata.CPUAccessWrite,
	}, nil)
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the view constant buffer")
	}
	s.ViewConstants = view
	s.stack.Push(view)

	pipelines := usedPipelines(config)
	for _, pc := range pipelines {
		if _, ok := s.programs[pc.Shader]; ok {
			continue
		}
		src, err := assets.Shader(pc.Shader)
		if err != nil {
			return err
		}
		program, err := NewShaderProgram(device, src)
		if err != nil {
			return err
		}
		s.programs[pc.Shader] = program
		s.stack.Push(program)
	}

	table, err := BuildPipelineTable(device, s.programs, pipelines)
	if err != nil {
		return err
	}
	s.Pipelines = table
	s.stack.Push(table)

	for _, p := range config.Passes {
		if _, ok := table.Get(p.Pipeline); !ok {
			return core.WrapError(core.ErrResourceCreation, "pass %s uses unknown pipeline %s", p.Name, p.Pipeline)
		}
	}
	return nil
}

// usedPipelines keeps the configured pipelines some pass refers to, in table order.
func usedPipelines(config ResourceConfig) []PipelineConfig {
	used := make(map[string]bool)
	for _, p := range config.Passes {
		used[p.Pipeline] = true
	}
	var out []PipelineConfig
	for _, pc := range config.Pipelines {
		if used[pc.Name] {
			out = append(out, pc)
		}
	}
	return out
}

func (s *ResourceStore) addMesh(device metadata.Device, data *metadata.MeshData) error {
	mesh, err := NewMesh(device, data)
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create mesh %s", data.Name)
	}
	s.meshes[data.Name] = mesh
	s.stack.Push(mesh)
	return nil
}

func (s *ResourceStore) addTexture(device metadata.Device, assets AssetSource, name string) error {
	data, err := assets.Texture(name)
	if err != nil {
		return err
	}
	if err := data.Validate(); err != nil {
		return core.WrapErrorCause(core.ErrAssetLoad, err, "texture %s", name)
	}
	desc := data.Desc
	desc.Label = name
	desc.Usage = metadata.UsageImmutable
	desc.Bind = metadata.BindShaderResource
	tex, err := device.CreateTexture(desc, data.Subresources)
	if err != nil {
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create texture %s", name)
	}
	dim := metadata.ViewDimensionTexture2D
	if desc.Cube {
		dim = metadata.ViewDimensionTextureCube
	}
	view, err := device.CreateShaderResourceView(tex, metadata.ViewDesc{Label: name + " srv", Format: desc.Format, Dimension: dim})
	if err != nil {
		tex.Release()
		return core.WrapErrorCause(core.ErrResourceCreation, err, "could not create the view of texture %s", name)
	}
	res := &TextureResource{Name: name, Texture: tex, View: view}
	s.textures[name] = res
	s.stack.Push(res)
	return nil
}

func (s *ResourceStore) Mesh(name string) (*Mesh, bool) {
	m, ok := s.meshes[name]
	return m, ok
}

func (s *ResourceStore) Texture(name string) (*TextureResource, bool) {
	t, ok := s.textures[name]
	return t, ok
}

// Release frees everything in reverse creation order.
func (s *ResourceStore) Release() {
	if s == nil {
		return
	}
	s.stack.ReleaseAll()
	s.meshes = map[string]*Mesh{}
	s.textures = map[string]*TextureResource{}
	s.programs = map[string]*ShaderProgram{}
	s.Sampler, s.SceneConstants, s.ViewConstants, s.Pipelines = nil, nil, nil, nil
}
