package vulkan

import (
	"math"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func version(major, minor uint32) uint32 {
	return major<<22 | minor<<12
}

func TestFormatRoundTrip(t *testing.T) {
	for mf, vf := range vulkanFormats {
		assert.Equal(t, vf, VulkanFormat(mf))
		back, ok := metadataFormat(vf)
		assert.True(t, ok)
		assert.Equal(t, mf, back)
	}
	assert.Equal(t, vk.FormatUndefined, VulkanFormat(metadata.FormatUnknown))
	assert.Equal(t, "VkFormat(0)", VulkanFormatName(vk.FormatUndefined))
}

func TestDepthFormatsUseDepthAspect(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectMask(metadata.FormatD32Float))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectMask(metadata.FormatR8G8B8A8Unorm))
}

func TestReversedDepthCompare(t *testing.T) {
	assert.Equal(t, vk.CompareOpGreaterOrEqual, compareOp(metadata.CompareGreaterEqual))
}

func TestViewportFlipsY(t *testing.T) {
	v := vulkanViewport(metadata.Viewport{Width: 1280, Height: 720, MaxDepth: 1})
	assert.Equal(t, float32(720), v.Y)
	assert.Equal(t, float32(-720), v.Height)
	assert.Equal(t, float32(1280), v.Width)

	s := vulkanScissor(metadata.Rect{Left: 10, Top: 20, Right: 5, Bottom: 60})
	assert.Equal(t, uint32(0), s.Extent.Width)
	assert.Equal(t, uint32(40), s.Extent.Height)
}

func TestFeatureLevel(t *testing.T) {
	assert.Equal(t, metadata.FeatureLevel10_0, featureLevel(version(1, 0), true, true))
	assert.Equal(t, metadata.FeatureLevel10_0, featureLevel(version(1, 3), false, true))
	assert.Equal(t, metadata.FeatureLevel11_0, featureLevel(version(1, 1), true, true))
	assert.Equal(t, metadata.FeatureLevel11_1, featureLevel(version(1, 2), true, true))
	assert.Equal(t, metadata.FeatureLevel12_0, featureLevel(version(1, 3), true, true))
}

func TestChooseSurfaceFormat(t *testing.T) {
	bgra := vk.SurfaceFormat{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	rgba := vk.SurfaceFormat{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear}
	other := vk.SurfaceFormat{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear}

	assert.Equal(t, rgba, chooseSurfaceFormat([]vk.SurfaceFormat{bgra, rgba}, vk.FormatR8g8b8a8Unorm))
	assert.Equal(t, bgra, chooseSurfaceFormat([]vk.SurfaceFormat{other, bgra}, vk.FormatR8g8b8a8Unorm))
	assert.Equal(t, other, chooseSurfaceFormat([]vk.SurfaceFormat{other}, vk.FormatR8g8b8a8Unorm))
}

func TestChoosePresentMode(t *testing.T) {
	all := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}
	assert.Equal(t, vk.PresentModeMailbox, choosePresentMode(all, 0))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode(all, 1))
	assert.Equal(t, vk.PresentModeFifo, choosePresentMode([]vk.PresentMode{vk.PresentModeFifo}, 0))
}

func TestChooseExtentAndImageCount(t *testing.T) {
	caps := vk.SurfaceCapabilities{
		CurrentExtent:  vk.Extent2D{Width: math.MaxUint32, Height: math.MaxUint32},
		MinImageExtent: vk.Extent2D{Width: 8, Height: 8},
		MaxImageExtent: vk.Extent2D{Width: 4096, Height: 4096},
		MinImageCount:  3,
		MaxImageCount:  4,
	}
	assert.Equal(t, vk.Extent2D{Width: 8, Height: 4096}, chooseExtent(caps, 4, 9000))
	assert.Equal(t, uint32(3), chooseImageCount(caps, 2))

	caps.CurrentExtent = vk.Extent2D{Width: 800, Height: 600}
	assert.Equal(t, caps.CurrentExtent, chooseExtent(caps, 1280, 720))
	caps.MaxImageCount = 0
	assert.Equal(t, uint32(6), chooseImageCount(caps, 6))
}

func TestStringHelpers(t *testing.T) {
	assert.Equal(t, "VK_KHR_surface\x00", VulkanSafeString("VK_KHR_surface"))
	assert.Equal(t, "x\x00", VulkanSafeString("x\x00"))
	assert.Equal(t, "llvmpipe", cString([]byte("llvmpipe\x00\x00\x00")))
	assert.Equal(t, uint64(256), alignUp(80, 256))
	assert.Equal(t, uint64(80), alignUp(80, 0))
}
