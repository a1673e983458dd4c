package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMipChainPitchHalvesDownToOneBlock(t *testing.T) {
	// 256 pixels wide is 64 blocks of 4 bytes.
	levels, err := MipChain(FormatR8G8B8A8Unorm, 64, 64, 7)
	require.NoError(t, err)
	var pitches []uint32
	for _, l := range levels {
		pitches = append(pitches, l.RowPitch)
	}
	assert.Equal(t, []uint32{256, 128, 64, 32, 16, 8, 4}, pitches)

	// Compressed: ceil(256/4) = 64 blocks at 4 bytes per block.
	bc := FormatInfo{BlockWidth: 4, BlockHeight: 4, BytesPerBlock: 4}
	formatInfos[Format(1000)] = bc
	defer delete(formatInfos, Format(1000))

	levels, err = MipChain(Format(1000), 256, 256, 9)
	require.NoError(t, err)
	pitches = pitches[:0]
	for _, l := range levels {
		pitches = append(pitches, l.RowPitch)
	}
	assert.Equal(t, []uint32{256, 128, 64, 32, 16, 8, 4, 4, 4}, pitches)
	assert.Equal(t, uint32(1), levels[8].Width)
}

func TestMipChainOffsets(t *testing.T) {
	levels, err := MipChain(FormatBC1Unorm, 16, 8, 4)
	require.NoError(t, err)
	require.Len(t, levels, 4)

	// 4x2 blocks, 2x1, 1x1, 1x1 at 8 bytes each.
	assert.Equal(t, uint32(32), levels[0].RowPitch)
	assert.Equal(t, uint32(64), levels[0].SlicePitch)
	assert.Equal(t, uint64(0), levels[0].Offset)
	assert.Equal(t, uint64(64), levels[1].Offset)
	assert.Equal(t, uint64(80), levels[2].Offset)
	assert.Equal(t, uint64(88), levels[3].Offset)
	assert.Equal(t, uint64(96), MipChainSize(levels))
}

func TestMipChainRejectsBadInput(t *testing.T) {
	_, err := MipChain(FormatUnknown, 4, 4, 1)
	assert.Error(t, err)
	_, err = MipChain(FormatBC3Unorm, 0, 4, 1)
	assert.Error(t, err)
	_, err = MipChain(FormatBC1Unorm, 4, 4, 0xffffffff)
	assert.Error(t, err)
	_, err = MipChain(FormatBC1Unorm, 4, 4, 4)
	assert.Error(t, err)
	// 2^30 texels of 4 bytes wrap a 32 bit row pitch.
	_, err = MipChain(FormatR8G8B8A8Unorm, 1<<30, 1, 1)
	assert.Error(t, err)
}

func TestFullMipCount(t *testing.T) {
	assert.Equal(t, uint32(9), FullMipCount(256, 256))
	assert.Equal(t, uint32(11), FullMipCount(1024, 3))
	assert.Equal(t, uint32(1), FullMipCount(1, 1))
}

func TestFeatureLevelString(t *testing.T) {
	assert.Equal(t, "11_0", FeatureLevel11_0.String())
	assert.Equal(t, "10_1", FeatureLevel10_1.String())
}
