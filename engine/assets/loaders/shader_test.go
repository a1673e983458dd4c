package loaders

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func TestCompileWGSLReportsShaderCompile(t *testing.T) {
	_, err := CompileWGSL("broken", "@vertex fn vs( -> {")
	assert.ErrorIs(t, err, core.ErrShaderCompile)
}

func TestShaderLoaderUsesPrecompiledModule(t *testing.T) {
	path := filepath.Join(t.TempDir(), "SimpleTexture.spv")
	words := []uint32{spirvMagic, 0x00010000, 0, 8, 0}
	raw, err := binary.Append(nil, binary.LittleEndian, words)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, raw, 0o644))

	res, err := (&ShaderLoader{}).Load(path, metadata.ResourceTypeShader, nil)
	require.NoError(t, err)
	src := res.Data.(*metadata.ShaderSource)
	assert.Equal(t, "SimpleTexture", src.Name)
	assert.Equal(t, words, src.Compiled)
	assert.Equal(t, VertexEntryPoint, src.VSEntry)
	assert.Equal(t, FragmentEntryPoint, src.PSEntry)
}

func TestBinaryLoaderRejectsNonSPIRV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.spv")
	require.NoError(t, os.WriteFile(path, make([]byte, 20), 0o644))
	_, err := (&BinaryLoader{}).Load(path, metadata.ResourceTypeBinary, nil)
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}
