package loaders

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const layoutYAML = `
passes:
  - name: transparent
    kind: objects
    pipeline: transparent
    mesh: cube
    textures: [kitty]
    sort: back_to_front
    objects:
      - name: red
        position: {x: -2.25, y: 0, z: -0.5}
        tint: {x: 1, y: 0, z: 0, w: 0.5}
`

func TestParseLayout(t *testing.T) {
	layout, err := ParseLayout([]byte(layoutYAML))
	require.NoError(t, err)
	require.Len(t, layout.Passes, 1)

	p := layout.Passes[0]
	assert.Equal(t, metadata.PassKindObjects, p.Kind)
	assert.Equal(t, metadata.SortBackToFront, p.Sort)
	assert.Equal(t, []string{"kitty"}, p.Textures)
	assert.Equal(t, math.NewVec3(-2.25, 0, -0.5), p.Objects[0].Position)
	assert.Equal(t, math.NewVec4(1, 0, 0, 0.5), p.Objects[0].Tint)

	cfg := layout.ResourceConfig()
	assert.Equal(t, layout.Passes, cfg.Passes)
	assert.Equal(t, renderer.DefaultPipelines(), cfg.Pipelines)
}

func TestParseLayoutRejectsUnknownKind(t *testing.T) {
	_, err := ParseLayout([]byte("passes:\n  - {name: x, kind: lights, pipeline: p, mesh: m}\n"))
	assert.Error(t, err)
}

func TestEmptyLayoutUsesDefaults(t *testing.T) {
	layout, err := ParseLayout([]byte("{}"))
	require.NoError(t, err)
	cfg := layout.ResourceConfig()
	assert.Equal(t, renderer.DefaultPasses(), cfg.Passes)
}

func TestShippedLayoutMatchesDefaults(t *testing.T) {
	data, err := os.ReadFile("../../../assets/layouts/lab5.yaml")
	require.NoError(t, err)
	layout, err := ParseLayout(data)
	require.NoError(t, err)
	assert.Equal(t, renderer.DefaultPasses(), layout.Passes)
	assert.Equal(t, renderer.DefaultPipelines(), layout.Pipelines)
}
