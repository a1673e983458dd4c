package headless

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

type Device struct {
	*metadata.Handle
	backend *Backend
	adapter metadata.AdapterInfo
	level   metadata.FeatureLevel
	debug   bool
	context *Context
}

// texture is the private side of a headless texture.
type texture struct {
	swapchain *Swapchain
	data      [][]byte
}

// buffer holds the last content written to a headless buffer.
type buffer struct {
	data []byte
}

func (d *Device) Adapter() metadata.AdapterInfo            { return d.adapter }
func (d *Device) FeatureLevel() metadata.FeatureLevel      { return d.level }
func (d *Device) Tracker() *metadata.Tracker               { return d.backend.tracker }
func (d *Device) ImmediateContext() metadata.DeviceContext { return d.context }

// Context is the concrete immediate context, for tests that inspect calls.
func (d *Device) Context() *Context { return d.context }

func (d *Device) CreateSwapchain(window metadata.WindowHandle, desc metadata.SwapchainDesc) (metadata.Swapchain, error) {
	if err := d.backend.failure("CreateSwapchain"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 {
		return nil, fmt.Errorf("swapchain extent %dx%d", desc.Width, desc.Height)
	}
	s := &Swapchain{device: d, desc: desc}
	s.Handle = d.backend.tracker.Track(metadata.ResourceKindSwapchain, "swapchain", nil)
	return s, nil
}

func (d *Device) CreateBuffer(desc metadata.BufferDesc, initial []byte) (*metadata.Buffer, error) {
	if err := d.backend.failure("CreateBuffer"); err != nil {
		return nil, err
	}
	if desc.Size == 0 {
		return nil, fmt.Errorf("buffer %s has zero size", desc.Label)
	}
	if desc.Usage == metadata.UsageImmutable && initial == nil {
		return nil, fmt.Errorf("immutable buffer %s without initial data", desc.Label)
	}
	if uint64(len(initial)) > desc.Size {
		return nil, fmt.Errorf("buffer %s: %d bytes of initial data for %d bytes", desc.Label, len(initial), desc.Size)
	}
	data := make([]byte, desc.Size)
	copy(data, initial)
	return &metadata.Buffer{
		Handle:   d.backend.tracker.Track(metadata.ResourceKindBuffer, desc.Label, nil),
		Desc:     desc,
		Internal: &buffer{data: data},
	}, nil
}

func (d *Device) CreateTexture(desc metadata.TextureDesc, initial []metadata.SubresourceData) (*metadata.Texture, error) {
	if err := d.backend.failure("CreateTexture"); err != nil {
		return nil, err
	}
	if desc.Width == 0 || desc.Height == 0 || desc.MipLevels == 0 || desc.ArraySize == 0 {
		return nil, fmt.Errorf("texture %s has an empty extent", desc.Label)
	}
	if desc.Cube && desc.ArraySize != 6 {
		return nil, fmt.Errorf("cube texture %s with %d faces", desc.Label, desc.ArraySize)
	}
	if initial != nil && uint32(len(initial)) != desc.SubresourceCount() {
		return nil, fmt.Errorf("texture %s: %d subresources given, %d expected", desc.Label, len(initial), desc.SubresourceCount())
	}
	t := &texture{}
	for _, s := range initial {
		t.data = append(t.data, s.Data)
	}
	return &metadata.Texture{
		Handle:   d.backend.tracker.Track(metadata.ResourceKindTexture, desc.Label, nil),
		Desc:     desc,
		Internal: t,
	}, nil
}

func (d *Device) createView(kind metadata.ResourceKind, tex *metadata.Texture, desc metadata.ViewDesc) (*metadata.View, error) {
	if tex == nil || tex.Released() {
		return nil, fmt.Errorf("%s of a released texture", kind)
	}
	var destroy func()
	if t, ok := tex.Internal.(*texture); ok && t.swapchain != nil {
		sc := t.swapchain
		sc.outstanding++
		destroy = func() { sc.outstanding-- }
	}
	return &metadata.View{
		Handle:  d.backend.tracker.Track(kind, desc.Label, destroy),
		Desc:    desc,
		Texture: tex,
	}, nil
}

func (d *Device) CreateShaderResourceView(tex *metadata.Texture, desc metadata.ViewDesc) (*metadata.View, error) {
	if err := d.backend.failure("CreateShaderResourceView"); err != nil {
		return nil, err
	}
	if desc.Dimension == metadata.ViewDimensionTextureCube && tex != nil && !tex.Desc.Cube {
		return nil, fmt.Errorf("cube view of 2D texture %s", tex.Desc.Label)
	}
	return d.createView(metadata.ResourceKindShaderResourceView, tex, desc)
}

func (d *Device) CreateRenderTargetView(tex *metadata.Texture) (*metadata.View, error) {
	if err := d.backend.failure("CreateRenderTargetView"); err != nil {
		return nil, err
	}
	if tex == nil {
		return nil, fmt.Errorf("render target view of nil texture")
	}
	return d.createView(metadata.ResourceKindRenderTargetView, tex, metadata.ViewDesc{Label: tex.Desc.Label + " rtv", Format: tex.Desc.Format})
}

func (d *Device) CreateDepthStencilView(tex *metadata.Texture) (*metadata.View, error) {
	if err := d.backend.failure("CreateDepthStencilView"); err != nil {
		return nil, err
	}
	if tex == nil {
		return nil, fmt.Errorf("depth stencil view of nil texture")
	}
	if info, ok := tex.Desc.Format.Info(); !ok || !info.Depth {
		return nil, fmt.Errorf("depth stencil view of %s texture %s", tex.Desc.Format, tex.Desc.Label)
	}
	return d.createView(metadata.ResourceKindDepthStencilView, tex, metadata.ViewDesc{Label: tex.Desc.Label + " dsv", Format: tex.Desc.Format})
}

func (d *Device) CreateShader(desc metadata.ShaderDesc) (*metadata.Shader, error) {
	if err := d.backend.failure("CreateShader"); err != nil {
		return nil, err
	}
	if len(desc.Code) == 0 {
		return nil, fmt.Errorf("shader %s has no code", desc.Label)
	}
	return &metadata.Shader{
		Handle: d.backend.tracker.Track(metadata.ResourceKindShader, desc.Label, nil),
		Desc:   desc,
	}, nil
}

func (d *Device) CreateSampler(desc metadata.SamplerDesc) (*metadata.Sampler, error) {
	if err := d.backend.failure("CreateSampler"); err != nil {
		return nil, err
	}
	if desc.Filter == metadata.FilterAnisotropic && (desc.MaxAnisotropy < 1 || desc.MaxAnisotropy > 16) {
		return nil, fmt.Errorf("sampler %s: max anisotropy %d out of range", desc.Label, desc.MaxAnisotropy)
	}
	return &metadata.Sampler{
		Handle: d.backend.tracker.Track(metadata.ResourceKindSampler, desc.Label, nil),
		Desc:   desc,
	}, nil
}

func (d *Device) CreatePipelineState(desc metadata.PipelineDesc) (*metadata.PipelineState, error) {
	if err := d.backend.failure("CreatePipelineState"); err != nil {
		return nil, err
	}
	if desc.VS == nil || desc.PS == nil {
		return nil, fmt.Errorf("pipeline %s is missing a shader stage", desc.Label)
	}
	return &metadata.PipelineState{
		Handle: d.backend.tracker.Track(metadata.ResourceKindPipelineState, desc.Label, nil),
		Desc:   desc,
	}, nil
}

func (d *Device) LiveObjects() []string {
	return d.backend.tracker.Report()
}
