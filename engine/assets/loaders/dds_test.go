package loaders

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func bc1Texture(t *testing.T, width, height, levels uint32) *metadata.TextureData {
	t.Helper()
	mips, err := metadata.MipChain(metadata.FormatBC1Unorm, width, height, levels)
	require.NoError(t, err)
	tex := &metadata.TextureData{
		Name: "bc1",
		Desc: metadata.TextureDesc{Width: width, Height: height, MipLevels: levels, ArraySize: 1, Format: metadata.FormatBC1Unorm},
	}
	for i, m := range mips {
		data := make([]byte, m.SlicePitch)
		for j := range data {
			data[j] = byte(i + 1)
		}
		tex.Subresources = append(tex.Subresources, metadata.SubresourceData{Data: data, RowPitch: m.RowPitch, SlicePitch: m.SlicePitch})
	}
	return tex
}

func TestParseDDSBlockCompressedMips(t *testing.T) {
	raw, err := EncodeDDS(bc1Texture(t, 16, 8, 3))
	require.NoError(t, err)

	tex, err := ParseDDS("kitty", raw)
	require.NoError(t, err)
	assert.Equal(t, metadata.FormatBC1Unorm, tex.Desc.Format)
	assert.Equal(t, uint32(3), tex.Desc.MipLevels)
	assert.False(t, tex.Desc.Cube)
	require.Len(t, tex.Subresources, 3)

	pitches := []uint32{32, 16, 8}
	sizes := []int{64, 16, 8}
	for i, s := range tex.Subresources {
		assert.Equal(t, pitches[i], s.RowPitch, "mip %d", i)
		assert.Len(t, s.Data, sizes[i], "mip %d", i)
		assert.Equal(t, byte(i+1), s.Data[0], "mip %d starts at its own offset", i)
	}
}

func legacyCubeDDS(fourcc string, size uint32, faceBytes int) []byte {
	hdr := ddsHeader{
		Size:        ddsHeaderSize,
		Width:       size,
		Height:      size,
		MipMapCount: 1,
		PixelFormat: ddsPixelFormat{Size: 32, Flags: ddpfFourCC, FourCC: fourCC(fourcc)},
		Caps2:       ddsCaps2Cubemap | ddsCaps2AllFaces,
	}
	out := binary.LittleEndian.AppendUint32(nil, ddsMagic)
	out, _ = binary.Append(out, binary.LittleEndian, hdr)
	for f := 0; f < 6; f++ {
		for i := 0; i < faceBytes; i++ {
			out = append(out, byte(f))
		}
	}
	return out
}

func TestParseDDSLegacyCubemap(t *testing.T) {
	tex, err := ParseDDS("sky", legacyCubeDDS("DXT5", 4, 16))
	require.NoError(t, err)
	assert.Equal(t, metadata.FormatBC3Unorm, tex.Desc.Format)
	assert.True(t, tex.Desc.Cube)
	assert.Equal(t, uint32(6), tex.Desc.ArraySize)
	require.Len(t, tex.Subresources, 6)
	for f, s := range tex.Subresources {
		assert.Equal(t, uint32(16), s.RowPitch)
		assert.Equal(t, byte(f), s.Data[0])
	}
}

func TestParseDDSRejectsBadInput(t *testing.T) {
	_, err := ParseDDS("png", []byte("\x89PNG\r\n\x1a\n"))
	assert.ErrorIs(t, err, core.ErrAssetLoad)

	raw := legacyCubeDDS("DXT5", 4, 16)
	_, err = ParseDDS("short", raw[:len(raw)-1])
	assert.ErrorIs(t, err, core.ErrAssetLoad)

	_, err = ParseDDS("unknown", legacyCubeDDS("ETC2", 4, 16))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}

// patchHeader rewrites one little endian header word of a DDS file. Offsets
// count from the start of the file, magic included.
func patchHeader(raw []byte, offset int, value uint32) []byte {
	out := append([]byte(nil), raw...)
	binary.LittleEndian.PutUint32(out[offset:], value)
	return out
}

const (
	ddsHeightOffset   = 12
	ddsWidthOffset    = 16
	ddsMipCountOffset = 28
)

func TestParseDDSRejectsHugeMipCount(t *testing.T) {
	raw, err := EncodeDDS(bc1Texture(t, 4, 4, 1))
	require.NoError(t, err)

	_, err = ParseDDS("mips", patchHeader(raw, ddsMipCountOffset, 0xffffffff))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	_, err = ParseDDS("mips", patchHeader(raw, ddsMipCountOffset, 4))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}

func TestParseDDSRejectsOversizedDimensions(t *testing.T) {
	tex := &metadata.TextureData{
		Name: "rgba",
		Desc: metadata.TextureDesc{Width: 1, Height: 1, MipLevels: 1, ArraySize: 1, Format: metadata.FormatR8G8B8A8Unorm},
		Subresources: []metadata.SubresourceData{
			{Data: make([]byte, 4), RowPitch: 4, SlicePitch: 4},
		},
	}
	raw, err := EncodeDDS(tex)
	require.NoError(t, err)

	_, err = ParseDDS("wide", patchHeader(raw, ddsWidthOffset, 1<<30))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	_, err = ParseDDS("tall", patchHeader(raw, ddsHeightOffset, metadata.MaxTextureDimension+1))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
	_, err = ParseDDS("empty", patchHeader(raw, ddsWidthOffset, 0))
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}
