package metadata

import "fmt"

type FeatureLevel uint32

const (
	FeatureLevel10_0 FeatureLevel = 0xa000
	FeatureLevel10_1 FeatureLevel = 0xa100
	FeatureLevel11_0 FeatureLevel = 0xb000
	FeatureLevel11_1 FeatureLevel = 0xb100
	FeatureLevel12_0 FeatureLevel = 0xc000
)

func (f FeatureLevel) String() string {
	return fmt.Sprintf("%d_%d", uint32(f)>>12, (uint32(f)>>8)&0xf)
}

type AdapterType int

const (
	AdapterTypeOther AdapterType = iota
	AdapterTypeIntegrated
	AdapterTypeDiscrete
	AdapterTypeVirtual
	AdapterTypeSoftware
)

func (t AdapterType) String() string {
	switch t {
	case AdapterTypeIntegrated:
		return "integrated"
	case AdapterTypeDiscrete:
		return "discrete"
	case AdapterTypeVirtual:
		return "virtual"
	case AdapterTypeSoftware:
		return "software"
	}
	return "other"
}

// AdapterInfo is what a backend reports about one physical GPU.
type AdapterInfo struct {
	Index        int
	Name         string
	Type         AdapterType
	VendorID     uint32
	DeviceID     uint32
	VideoMemory  uint64
	FeatureLevel FeatureLevel
	// Handle is backend private, e.g. the physical device.
	Handle interface{}
}

type DeviceConfig struct {
	Debug             bool
	MinFeatureLevel   FeatureLevel
	ApplicationName   string
	RequireAnisotropy bool
}

type Usage int

const (
	// GPU read and write, CPU updates through UpdateSubresource.
	UsageDefault Usage = iota
	// Written once at creation.
	UsageImmutable
	// CPU writes every frame through MapDiscard.
	UsageDynamic
)

type BindFlags uint32

const (
	BindVertexBuffer BindFlags = 1 << iota
	BindIndexBuffer
	BindConstantBuffer
	BindShaderResource
	BindRenderTarget
	BindDepthStencil
)

type CPUAccess uint32

const (
	CPUAccessNone  CPUAccess = 0
	CPUAccessWrite CPUAccess = 1 << 0
)

type BufferDesc struct {
	Label     string
	Size      uint64
	Usage     Usage
	Bind      BindFlags
	CPUAccess CPUAccess
	Stride    uint32
}

// SubresourceData is the initial content of one subresource.
type SubresourceData struct {
	Data       []byte
	RowPitch   uint32
	SlicePitch uint32
}

type TextureDesc struct {
	Label     string
	Width     uint32
	Height    uint32
	MipLevels uint32
	// 6 for a cube texture.
	ArraySize uint32
	Format    Format
	Usage     Usage
	Bind      BindFlags
	Cube      bool
}

// SubresourceIndex is the D3D-style flat index of a mip in an array slice.
func (d TextureDesc) SubresourceIndex(mip, slice uint32) uint32 {
	return mip + slice*d.MipLevels
}

func (d TextureDesc) SubresourceCount() uint32 {
	return d.MipLevels * d.ArraySize
}

type ViewDimension int

const (
	ViewDimensionTexture2D ViewDimension = iota
	ViewDimensionTextureCube
)

type ViewDesc struct {
	Label     string
	Format    Format
	Dimension ViewDimension
}

type ShaderStage uint32

const (
	ShaderStageVertex ShaderStage = 1 << iota
	ShaderStageFragment
)

const ShaderStageAll = ShaderStageVertex | ShaderStageFragment

func (s ShaderStage) String() string {
	switch s {
	case ShaderStageVertex:
		return "vertex"
	case ShaderStageFragment:
		return "fragment"
	case ShaderStageAll:
		return "all"
	}
	return fmt.Sprintf("stage(%d)", uint32(s))
}

// ShaderDesc carries a compiled SPIR-V module for a single stage.
type ShaderDesc struct {
	Label      string
	Stage      ShaderStage
	EntryPoint string
	Code       []uint32
}

type Filter int

const (
	FilterPoint Filter = iota
	FilterLinear
	FilterAnisotropic
)

type AddressMode int

const (
	AddressModeWrap AddressMode = iota
	AddressModeClamp
	AddressModeMirror
)

type SamplerDesc struct {
	Label         string
	Filter        Filter
	AddressU      AddressMode
	AddressV      AddressMode
	AddressW      AddressMode
	MaxAnisotropy uint32
	MinLOD        float32
	MaxLOD        float32
	MipLODBias    float32
}

type InputElement struct {
	Semantic string
	Location uint32
	Format   Format
	Offset   uint32
}

type InputLayout struct {
	Stride   uint32
	Elements []InputElement
}

type BlendFactor int

const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendInvSrcAlpha
)

type ColorWriteMask uint8

const (
	ColorWriteRed ColorWriteMask = 1 << iota
	ColorWriteGreen
	ColorWriteBlue
	ColorWriteAlpha

	ColorWriteRGB = ColorWriteRed | ColorWriteGreen | ColorWriteBlue
	ColorWriteAll = ColorWriteRGB | ColorWriteAlpha
)

type BlendDesc struct {
	Enabled   bool
	SrcColor  BlendFactor
	DstColor  BlendFactor
	SrcAlpha  BlendFactor
	DstAlpha  BlendFactor
	WriteMask ColorWriteMask
}

type CompareFunc int

const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareLessEqual
	CompareEqual
	CompareGreater
	CompareGreaterEqual
	CompareAlways
)

type DepthDesc struct {
	TestEnabled  bool
	WriteEnabled bool
	Compare      CompareFunc
}

type CullMode int

const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

type Topology int

const (
	TopologyTriangleList Topology = iota
	TopologyTriangleStrip
	TopologyLineList
)

type PipelineDesc struct {
	Label    string
	VS       *Shader
	PS       *Shader
	Layout   InputLayout
	Blend    BlendDesc
	Depth    DepthDesc
	Cull     CullMode
	Topology Topology
}

var (
	BlendOpaque = BlendDesc{WriteMask: ColorWriteAll}
	// Straight alpha on color, the destination alpha is overwritten with one.
	BlendAlpha = BlendDesc{
		Enabled:   true,
		SrcColor:  BlendSrcAlpha,
		DstColor:  BlendInvSrcAlpha,
		SrcAlpha:  BlendOne,
		DstAlpha:  BlendZero,
		WriteMask: ColorWriteRGB,
	}

	// Reversed depth: near is 1, far is 0.
	DepthReadWrite = DepthDesc{TestEnabled: true, WriteEnabled: true, Compare: CompareGreaterEqual}
	DepthRead      = DepthDesc{TestEnabled: true, WriteEnabled: false, Compare: CompareGreaterEqual}
	DepthDisabled  = DepthDesc{}
)

type Viewport struct {
	X, Y          float32
	Width, Height float32
	MinDepth      float32
	MaxDepth      float32
}

type Rect struct {
	Left, Top, Right, Bottom int32
}

type SwapchainDesc struct {
	Width       uint32
	Height      uint32
	Format      Format
	BufferCount uint32
}

type PresentFlags uint32
