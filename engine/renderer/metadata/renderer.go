package metadata

// WindowHandle is the part of the platform window a backend needs.
type WindowHandle interface {
	FramebufferSize() (width, height int)
}

// Backend is a GPU API the engine can run on.
type Backend interface {
	Name() string
	EnumerateAdapters(window WindowHandle) ([]AdapterInfo, error)
	CreateDevice(adapter AdapterInfo, config DeviceConfig) (Device, error)
	// Shutdown releases whatever outlives the devices, the debug layer included.
	Shutdown()
}

// Device creates GPU objects. Every object it returns is registered in Tracker.
type Device interface {
	Adapter() AdapterInfo
	FeatureLevel() FeatureLevel
	Tracker() *Tracker
	ImmediateContext() DeviceContext

	CreateSwapchain(window WindowHandle, desc SwapchainDesc) (Swapchain, error)
	CreateBuffer(desc BufferDesc, initial []byte) (*Buffer, error)
	CreateTexture(desc TextureDesc, initial []SubresourceData) (*Texture, error)
	CreateShaderResourceView(texture *Texture, desc ViewDesc) (*View, error)
	CreateRenderTargetView(texture *Texture) (*View, error)
	CreateDepthStencilView(texture *Texture) (*View, error)
	CreateShader(desc ShaderDesc) (*Shader, error)
	CreateSampler(desc SamplerDesc) (*Sampler, error)
	CreatePipelineState(desc PipelineDesc) (*PipelineState, error)

	// LiveObjects lists every object the device still knows about.
	LiveObjects() []string
	Release()
}

// DeviceContext records commands against the device. Binding calls never fail
// on their own; a backend keeps the first failure and returns it from the next
// call that can report one.
type DeviceContext interface {
	ClearState()

	// MapDiscard replaces the whole content of a dynamic buffer.
	MapDiscard(buffer *Buffer, data []byte) error
	UpdateSubresource(buffer *Buffer, data []byte) error

	SetRenderTargets(rtv *View, dsv *View)
	ClearRenderTargetView(rtv *View, color [4]float32)
	ClearDepthStencilView(dsv *View, depth float32)
	SetViewport(viewport Viewport)
	SetScissorRect(rect Rect)

	SetPipelineState(pipeline *PipelineState)
	SetVertexBuffer(buffer *Buffer, stride, offset uint32)
	SetIndexBuffer(buffer *Buffer, format IndexFormat, offset uint32)
	SetConstantBuffer(stage ShaderStage, slot uint32, buffer *Buffer)
	SetShaderResource(stage ShaderStage, slot uint32, view *View)
	SetSampler(stage ShaderStage, slot uint32, sampler *Sampler)

	DrawIndexed(indexCount, startIndex uint32, baseVertex int32) error

	Release()
}

type Swapchain interface {
	Desc() SwapchainDesc
	// GetBuffer returns a new reference to back buffer index. The caller releases it.
	GetBuffer(index uint32) (*Texture, error)
	// ResizeBuffers fails while any view of the back buffers is still alive.
	ResizeBuffers(count, width, height uint32, format Format) error
	Present(syncInterval uint32, flags PresentFlags) error
	Release()
}
