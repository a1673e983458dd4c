package vulkan

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

var vulkanFormats = map[metadata.Format]vk.Format{
	metadata.FormatR8G8B8A8Unorm:     vk.FormatR8g8b8a8Unorm,
	metadata.FormatR8G8B8A8UnormSRGB: vk.FormatR8g8b8a8Srgb,
	metadata.FormatB8G8R8A8Unorm:     vk.FormatB8g8r8a8Unorm,
	metadata.FormatBC1Unorm:          vk.FormatBc1RgbaUnormBlock,
	metadata.FormatBC2Unorm:          vk.FormatBc2UnormBlock,
	metadata.FormatBC3Unorm:          vk.FormatBc3UnormBlock,
	metadata.FormatBC4Unorm:          vk.FormatBc4UnormBlock,
	metadata.FormatBC5Unorm:          vk.FormatBc5UnormBlock,
	metadata.FormatBC7Unorm:          vk.FormatBc7UnormBlock,
	metadata.FormatD32Float:          vk.FormatD32Sfloat,
	metadata.FormatR32G32Float:       vk.FormatR32g32Sfloat,
	metadata.FormatR32G32B32Float:    vk.FormatR32g32b32Sfloat,
	metadata.FormatR32G32B32A32Float: vk.FormatR32g32b32a32Sfloat,
}

// VulkanFormat returns FormatUndefined for formats the backend cannot express.
func VulkanFormat(f metadata.Format) vk.Format {
	if vf, ok := vulkanFormats[f]; ok {
		return vf
	}
	return vk.FormatUndefined
}

func metadataFormat(f vk.Format) (metadata.Format, bool) {
	for mf, vf := range vulkanFormats {
		if vf == f {
			return mf, true
		}
	}
	return metadata.FormatUnknown, false
}

func VulkanFormatName(f vk.Format) string {
	if mf, ok := metadataFormat(f); ok {
		return mf.String()
	}
	return fmt.Sprintf("VkFormat(%d)", int32(f))
}

func aspectMask(f metadata.Format) vk.ImageAspectFlags {
	if info, ok := f.Info(); ok && info.Depth {
		return vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	}
	return vk.ImageAspectFlags(vk.ImageAspectColorBit)
}

func blendFactor(f metadata.BlendFactor) vk.BlendFactor {
	switch f {
	case metadata.BlendOne:
		return vk.BlendFactorOne
	case metadata.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case metadata.BlendInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	}
	return vk.BlendFactorZero
}

func colorWriteMask(m metadata.ColorWriteMask) vk.ColorComponentFlags {
	var out vk.ColorComponentFlags
	if m&metadata.ColorWriteRed != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentRBit)
	}
	if m&metadata.ColorWriteGreen != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentGBit)
	}
	if m&metadata.ColorWriteBlue != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentBBit)
	}
	if m&metadata.ColorWriteAlpha != 0 {
		out |= vk.ColorComponentFlags(vk.ColorComponentABit)
	}
	return out
}

func compareOp(c metadata.CompareFunc) vk.CompareOp {
	switch c {
	case metadata.CompareLess:
		return vk.CompareOpLess
	case metadata.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case metadata.CompareEqual:
		return vk.CompareOpEqual
	case metadata.CompareGreater:
		return vk.CompareOpGreater
	case metadata.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case metadata.CompareAlways:
		return vk.CompareOpAlways
	}
	return vk.CompareOpNever
}

func cullMode(c metadata.CullMode) vk.CullModeFlags {
	switch c {
	case metadata.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case metadata.CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	}
	return vk.CullModeFlags(vk.CullModeNone)
}

func topology(t metadata.Topology) vk.PrimitiveTopology {
	switch t {
	case metadata.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case metadata.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	}
	return vk.PrimitiveTopologyTriangleList
}

func addressMode(m metadata.AddressMode) vk.SamplerAddressMode {
	switch m {
	case metadata.AddressModeClamp:
		return vk.SamplerAddressModeClampToEdge
	case metadata.AddressModeMirror:
		return vk.SamplerAddressModeMirroredRepeat
	}
	return vk.SamplerAddressModeRepeat
}

func filterModes(f metadata.Filter) (vk.Filter, vk.SamplerMipmapMode) {
	if f == metadata.FilterPoint {
		return vk.FilterNearest, vk.SamplerMipmapModeNearest
	}
	return vk.FilterLinear, vk.SamplerMipmapModeLinear
}

func indexType(f metadata.IndexFormat) vk.IndexType {
	if f == metadata.IndexFormatUint32 {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func adapterType(t vk.PhysicalDeviceType) metadata.AdapterType {
	switch t {
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return metadata.AdapterTypeIntegrated
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return metadata.AdapterTypeDiscrete
	case vk.PhysicalDeviceTypeVirtualGpu:
		return metadata.AdapterTypeVirtual
	case vk.PhysicalDeviceTypeCpu:
		return metadata.AdapterTypeSoftware
	}
	return metadata.AdapterTypeOther
}

// vulkanViewport flips the y axis with a negative height so clip space keeps
// y up and framebuffer rows keep y down.
func vulkanViewport(v metadata.Viewport) vk.Viewport {
	return vk.Viewport{
		X:        v.X,
		Y:        v.Y + v.Height,
		Width:    v.Width,
		Height:   -v.Height,
		MinDepth: v.MinDepth,
		MaxDepth: v.MaxDepth,
	}
}

func vulkanScissor(r metadata.Rect) vk.Rect2D {
	w, h := r.Right-r.Left, r.Bottom-r.Top
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return vk.Rect2D{
		Offset: vk.Offset2D{X: r.Left, Y: r.Top},
		Extent: vk.Extent2D{Width: uint32(w), Height: uint32(h)},
	}
}

// featureLevel grades a physical device. 11_0 needs anisotropic filtering, BC
// compression and the negative viewport height of Vulkan 1.1.
func featureLevel(apiVersion uint32, anisotropy, bc bool) metadata.FeatureLevel {
	major, minor := apiVersion>>22, (apiVersion>>12)&0x3ff
	if major < 1 || (major == 1 && minor < 1) || !anisotropy || !bc {
		return metadata.FeatureLevel10_0
	}
	switch {
	case major == 1 && minor == 1:
		return metadata.FeatureLevel11_0
	case major == 1 && minor == 2:
		return metadata.FeatureLevel11_1
	}
	return metadata.FeatureLevel12_0
}
