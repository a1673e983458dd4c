package metadata

// Buffer is a vertex, index or constant buffer.
type Buffer struct {
	*Handle
	Desc BufferDesc
	// Internal is the backend object.
	Internal interface{}
}

func (b *Buffer) Release() {
	if b == nil {
		return
	}
	b.Handle.Release()
}

type Texture struct {
	*Handle
	Desc     TextureDesc
	Internal interface{}
}

func (t *Texture) Release() {
	if t == nil {
		return
	}
	t.Handle.Release()
}

// View is a shader resource, render target or depth stencil view of a texture.
type View struct {
	*Handle
	Desc     ViewDesc
	Texture  *Texture
	Internal interface{}
}

func (v *View) Release() {
	if v == nil {
		return
	}
	v.Handle.Release()
}

type Shader struct {
	*Handle
	Desc     ShaderDesc
	Internal interface{}
}

func (s *Shader) Release() {
	if s == nil {
		return
	}
	s.Handle.Release()
}

type Sampler struct {
	*Handle
	Desc     SamplerDesc
	Internal interface{}
}

func (s *Sampler) Release() {
	if s == nil {
		return
	}
	s.Handle.Release()
}

// PipelineState bundles shaders, input layout, blend, depth and raster state.
// Bundles hold no per-frame data and are shared between passes.
type PipelineState struct {
	*Handle
	Desc     PipelineDesc
	Internal interface{}
}

func (p *PipelineState) Release() {
	if p == nil {
		return
	}
	p.Handle.Release()
}
