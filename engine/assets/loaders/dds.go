package loaders

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	ddsMagic      = 0x20534444 // "DDS "
	ddsHeaderSize = 124

	ddpfAlphaPixels = 0x1
	ddpfFourCC      = 0x4
	ddpfRGB         = 0x40

	ddsCaps2Cubemap     = 0x200
	ddsCaps2AllFaces    = 0xfc00
	dx10MiscTextureCube = 0x4
)

type ddsPixelFormat struct {
	Size        uint32
	Flags       uint32
	FourCC      uint32
	RGBBitCount uint32
	RBitMask    uint32
	GBitMask    uint32
	BBitMask    uint32
	ABitMask    uint32
}

type ddsHeader struct {
	Size              uint32
	Flags             uint32
	Height            uint32
	Width             uint32
	PitchOrLinearSize uint32
	Depth             uint32
	MipMapCount       uint32
	Reserved1         [11]uint32
	PixelFormat       ddsPixelFormat
	Caps              uint32
	Caps2             uint32
	Caps3             uint32
	Caps4             uint32
	Reserved2         uint32
}

type ddsHeaderDX10 struct {
	DXGIFormat        uint32
	ResourceDimension uint32
	MiscFlag          uint32
	ArraySize         uint32
	MiscFlags2        uint32
}

func fourCC(s string) uint32 {
	return uint32(s[0]) | uint32(s[1])<<8 | uint32(s[2])<<16 | uint32(s[3])<<24
}

var fourCCFormats = map[uint32]metadata.Format{
	fourCC("DXT1"): metadata.FormatBC1Unorm,
	fourCC("DXT2"): metadata.FormatBC2Unorm,
	fourCC("DXT3"): metadata.FormatBC2Unorm,
	fourCC("DXT4"): metadata.FormatBC3Unorm,
	fourCC("DXT5"): metadata.FormatBC3Unorm,
	fourCC("ATI1"): metadata.FormatBC4Unorm,
	fourCC("BC4U"): metadata.FormatBC4Unorm,
	fourCC("ATI2"): metadata.FormatBC5Unorm,
	fourCC("BC5U"): metadata.FormatBC5Unorm,
}

// DXGI_FORMAT values found in DX10 headers.
var dxgiFormats = map[uint32]metadata.Format{
	28: metadata.FormatR8G8B8A8Unorm,
	29: metadata.FormatR8G8B8A8UnormSRGB,
	87: metadata.FormatB8G8R8A8Unorm,
	71: metadata.FormatBC1Unorm,
	72: metadata.FormatBC1Unorm,
	74: metadata.FormatBC2Unorm,
	75: metadata.FormatBC2Unorm,
	77: metadata.FormatBC3Unorm,
	78: metadata.FormatBC3Unorm,
	80: metadata.FormatBC4Unorm,
	83: metadata.FormatBC5Unorm,
	98: metadata.FormatBC7Unorm,
	99: metadata.FormatBC7Unorm,
}

// DDSLoader reads DirectDraw Surface containers. The payload is already in
// GPU layout so only the subresource offsets are computed.
type DDSLoader struct{}

func (dl *DDSLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "read %s", path)
	}
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}
	tex, err := ParseDDS(name, raw)
	if err != nil {
		return nil, err
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeTexture,
		DataSize: uint64(len(raw)),
		Data:     tex,
	}, nil
}

func (dl *DDSLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// ParseDDS decodes a DDS file held in memory. Faces of a cubemap are stored
// one after another, each with its full mip chain.
func ParseDDS(name string, raw []byte) (*metadata.TextureData, error) {
	r := bytes.NewReader(raw)
	var magic uint32
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil || magic != ddsMagic {
		return nil, core.WrapError(core.ErrAssetLoad, "%s is not a DDS file", name)
	}
	var hdr ddsHeader
	if err := binary.Read(r, binary.LittleEndian, &hdr); err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "%s: truncated header", name)
	}
	if hdr.Size != ddsHeaderSize || hdr.PixelFormat.Size != 32 {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: bad header size %d", name, hdr.Size)
	}

	if hdr.Width == 0 || hdr.Height == 0 || hdr.Width > metadata.MaxTextureDimension || hdr.Height > metadata.MaxTextureDimension {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: size %dx%d outside 1..%d", name, hdr.Width, hdr.Height, metadata.MaxTextureDimension)
	}
	if full := metadata.FullMipCount(hdr.Width, hdr.Height); hdr.MipMapCount > full {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: %d mip levels, at most %d for %dx%d", name, hdr.MipMapCount, full, hdr.Width, hdr.Height)
	}

	desc := metadata.TextureDesc{
		Label:     name,
		Width:     hdr.Width,
		Height:    hdr.Height,
		MipLevels: hdr.MipMapCount,
		ArraySize: 1,
		Usage:     metadata.UsageImmutable,
		Bind:      metadata.BindShaderResource,
	}
	if desc.MipLevels == 0 {
		desc.MipLevels = 1
	}

	pf := hdr.PixelFormat
	switch {
	case pf.Flags&ddpfFourCC != 0 && pf.FourCC == fourCC("DX10"):
		var ext ddsHeaderDX10
		if err := binary.Read(r, binary.LittleEndian, &ext); err != nil {
			return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "%s: truncated DX10 header", name)
		}
		f, ok := dxgiFormats[ext.DXGIFormat]
		if !ok {
			return nil, core.WrapError(core.ErrAssetLoad, "%s: unsupported DXGI format %d", name, ext.DXGIFormat)
		}
		desc.Format = f
		if ext.ArraySize > 1 {
			return nil, core.WrapError(core.ErrAssetLoad, "%s: texture arrays are not supported", name)
		}
		if ext.MiscFlag&dx10MiscTextureCube != 0 {
			desc.Cube, desc.ArraySize = true, 6
		}
	case pf.Flags&ddpfFourCC != 0:
		f, ok := fourCCFormats[pf.FourCC]
		if !ok {
			return nil, core.WrapError(core.ErrAssetLoad, "%s: unsupported four-cc %q", name, string(binary.LittleEndian.AppendUint32(nil, pf.FourCC)))
		}
		desc.Format = f
	case pf.Flags&ddpfRGB != 0 && pf.RGBBitCount == 32:
		switch {
		case pf.RBitMask == 0x000000ff && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x00ff0000:
			desc.Format = metadata.FormatR8G8B8A8Unorm
		case pf.RBitMask == 0x00ff0000 && pf.GBitMask == 0x0000ff00 && pf.BBitMask == 0x000000ff:
			desc.Format = metadata.FormatB8G8R8A8Unorm
		default:
			return nil, core.WrapError(core.ErrAssetLoad, "%s: unsupported RGB masks", name)
		}
	default:
		return nil, core.WrapError(core.ErrAssetLoad, "%s: unsupported pixel format flags %#x", name, pf.Flags)
	}

	if hdr.Caps2&ddsCaps2Cubemap != 0 {
		if hdr.Caps2&ddsCaps2AllFaces != ddsCaps2AllFaces {
			return nil, core.WrapError(core.ErrAssetLoad, "%s: partial cubemaps are not supported", name)
		}
		desc.Cube, desc.ArraySize = true, 6
	}

	mips, err := metadata.MipChain(desc.Format, desc.Width, desc.Height, desc.MipLevels)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "%s", name)
	}
	chain := metadata.MipChainSize(mips)
	payload := raw[len(raw)-r.Len():]
	if need := chain * uint64(desc.ArraySize); uint64(len(payload)) < need {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: %d bytes of texel data, %d expected", name, len(payload), need)
	}

	tex := &metadata.TextureData{Name: name, Desc: desc}
	for face := uint32(0); face < desc.ArraySize; face++ {
		base := uint64(face) * chain
		for _, m := range mips {
			start := base + m.Offset
			tex.Subresources = append(tex.Subresources, metadata.SubresourceData{
				Data:       payload[start : start+uint64(m.SlicePitch)],
				RowPitch:   m.RowPitch,
				SlicePitch: m.SlicePitch,
			})
		}
	}
	return tex, tex.Validate()
}

// EncodeDDS writes tex as a DX10 DDS file. Used by the asset tooling to bake
// images into GPU layout and by tests.
func EncodeDDS(tex *metadata.TextureData) ([]byte, error) {
	var code uint32
	for k, f := range dxgiFormats {
		if f == tex.Desc.Format && (code == 0 || k < code) {
			code = k
		}
	}
	if code == 0 {
		return nil, fmt.Errorf("format %s has no DXGI code", tex.Desc.Format)
	}
	hdr := ddsHeader{
		Size:        ddsHeaderSize,
		Flags:       0x1 | 0x2 | 0x4 | 0x1000 | 0x20000,
		Height:      tex.Desc.Height,
		Width:       tex.Desc.Width,
		MipMapCount: tex.Desc.MipLevels,
		PixelFormat: ddsPixelFormat{Size: 32, Flags: ddpfFourCC, FourCC: fourCC("DX10")},
		Caps:        0x1000,
	}
	ext := ddsHeaderDX10{DXGIFormat: code, ResourceDimension: 3, ArraySize: 1}
	if tex.Desc.Cube {
		hdr.Caps2 = ddsCaps2Cubemap | ddsCaps2AllFaces
		ext.MiscFlag = dx10MiscTextureCube
	}
	out, err := binary.Append(nil, binary.LittleEndian, uint32(ddsMagic))
	if err != nil {
		return nil, err
	}
	if out, err = binary.Append(out, binary.LittleEndian, hdr); err != nil {
		return nil, err
	}
	if out, err = binary.Append(out, binary.LittleEndian, ext); err != nil {
		return nil, err
	}
	for _, s := range tex.Subresources {
		out = append(out, s.Data...)
	}
	return out, nil
}
