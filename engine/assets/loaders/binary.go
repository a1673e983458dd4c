package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const spirvMagic = 0x07230203

// BinaryLoader reads precompiled SPIR-V modules.
type BinaryLoader struct{}

func (bl *BinaryLoader) Load(path string, assetType metadata.ResourceType, params interface{}) (*metadata.Resource, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, core.WrapErrorCause(core.ErrAssetLoad, err, "read %s", path)
	}
	if len(buf) < 20 || len(buf)%4 != 0 {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: %d bytes is not a SPIR-V module", path, len(buf))
	}
	res := bytesToBytecode(buf)
	if res[0] != spirvMagic {
		return nil, core.WrapError(core.ErrAssetLoad, "%s: bad SPIR-V magic %#x", path, res[0])
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if p, ok := params.(map[string]string); ok && p["name"] != "" {
		name = p["name"]
	}
	return &metadata.Resource{
		Name:     name,
		FullPath: path,
		Type:     metadata.ResourceTypeBinary,
		DataSize: uint64(len(buf)),
		Data:     res,
	}, nil
}

func (bl *BinaryLoader) Unload(resource *metadata.Resource) error {
	resource.Data = nil
	resource.DataSize = 0
	return nil
}

// SPIR-V words are little-endian.
func bytesToBytecode(b []byte) []uint32 {
	byteCode := make([]uint32, len(b)/4)
	for i := range byteCode {
		byteCode[i] = binary.LittleEndian.Uint32(b[i*4:])
	}
	return byteCode
}
