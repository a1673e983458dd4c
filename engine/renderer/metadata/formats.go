package metadata

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/math"
)

type Format int

const (
	FormatUnknown Format = iota
	FormatR8G8B8A8Unorm
	FormatR8G8B8A8UnormSRGB
	FormatB8G8R8A8Unorm
	FormatBC1Unorm
	FormatBC2Unorm
	FormatBC3Unorm
	FormatBC4Unorm
	FormatBC5Unorm
	FormatBC7Unorm
	FormatD32Float
	FormatR32G32Float
	FormatR32G32B32Float
	FormatR32G32B32A32Float
)

// FormatInfo describes the memory layout of a pixel format. Uncompressed
// formats report 1x1 blocks.
type FormatInfo struct {
	Name          string
	BlockWidth    uint32
	BlockHeight   uint32
	BytesPerBlock uint32
	Compressed    bool
	Depth         bool
}

var formatInfos = map[Format]FormatInfo{
	FormatR8G8B8A8Unorm:     {"R8G8B8A8_UNORM", 1, 1, 4, false, false},
	FormatR8G8B8A8UnormSRGB: {"R8G8B8A8_UNORM_SRGB", 1, 1, 4, false, false},
	FormatB8G8R8A8Unorm:     {"B8G8R8A8_UNORM", 1, 1, 4, false, false},
	FormatBC1Unorm:          {"BC1_UNORM", 4, 4, 8, true, false},
	FormatBC2Unorm:          {"BC2_UNORM", 4, 4, 16, true, false},
	FormatBC3Unorm:          {"BC3_UNORM", 4, 4, 16, true, false},
	FormatBC4Unorm:          {"BC4_UNORM", 4, 4, 8, true, false},
	FormatBC5Unorm:          {"BC5_UNORM", 4, 4, 16, true, false},
	FormatBC7Unorm:          {"BC7_UNORM", 4, 4, 16, true, false},
	FormatD32Float:          {"D32_FLOAT", 1, 1, 4, false, true},
	FormatR32G32Float:       {"R32G32_FLOAT", 1, 1, 8, false, false},
	FormatR32G32B32Float:    {"R32G32B32_FLOAT", 1, 1, 12, false, false},
	FormatR32G32B32A32Float: {"R32G32B32A32_FLOAT", 1, 1, 16, false, false},
}

func (f Format) Info() (FormatInfo, bool) {
	info, ok := formatInfos[f]
	return info, ok
}

func (f Format) String() string {
	if info, ok := formatInfos[f]; ok {
		return info.Name
	}
	return fmt.Sprintf("FORMAT(%d)", int(f))
}

// MaxTextureDimension is the largest width or height of a 2-D texture.
const MaxTextureDimension = 16384

// Pitches are 32 bit, so no level may exceed it.
const maxSliceSize = 1<<32 - 1

// MipLevel is the layout of one level of a texture in a tightly packed upload.
type MipLevel struct {
	Width      uint32
	Height     uint32
	RowPitch   uint32
	SlicePitch uint32
	Offset     uint64
}

// MipChain lays out levels mips of a width x height image. Block counts halve
// per level and never drop below one block.
func MipChain(format Format, width, height, levels uint32) ([]MipLevel, error) {
	info, ok := format.Info()
	if !ok {
		return nil, fmt.Errorf("unsupported format %s", format)
	}
	if width == 0 || height == 0 || levels == 0 {
		return nil, fmt.Errorf("invalid mip chain %dx%d with %d levels", width, height, levels)
	}
	if full := FullMipCount(width, height); levels > full {
		return nil, fmt.Errorf("%d levels for %dx%d, at most %d", levels, width, height, full)
	}
	blockWidth := math.DivUp(width, info.BlockWidth)
	blockHeight := math.DivUp(height, info.BlockHeight)
	w, h := width, height
	var offset uint64
	out := make([]MipLevel, 0, levels)
	for i := uint32(0); i < levels; i++ {
		pitch := uint64(blockWidth) * uint64(info.BytesPerBlock)
		slice := pitch * uint64(blockHeight)
		if slice > maxSliceSize {
			return nil, fmt.Errorf("mip %d of %dx%d is %d bytes, larger than %d", i, width, height, slice, uint64(maxSliceSize))
		}
		out = append(out, MipLevel{
			Width:      w,
			Height:     h,
			RowPitch:   uint32(pitch),
			SlicePitch: uint32(slice),
			Offset:     offset,
		})
		offset += slice
		blockWidth = math.Max(blockWidth/2, 1)
		blockHeight = math.Max(blockHeight/2, 1)
		w = math.Max(w/2, 1)
		h = math.Max(h/2, 1)
	}
	return out, nil
}

// MipChainSize is the byte size of the whole chain.
func MipChainSize(levels []MipLevel) uint64 {
	if len(levels) == 0 {
		return 0
	}
	last := levels[len(levels)-1]
	return last.Offset + uint64(last.SlicePitch)
}

// FullMipCount is the number of levels down to 1x1.
func FullMipCount(width, height uint32) uint32 {
	n := uint32(1)
	for m := math.Max(width, height); m > 1; m >>= 1 {
		n++
	}
	return n
}

type IndexFormat int

const (
	IndexFormatUint16 IndexFormat = iota
	IndexFormatUint32
)

func (f IndexFormat) Size() uint32 {
	if f == IndexFormatUint32 {
		return 4
	}
	return 2
}
