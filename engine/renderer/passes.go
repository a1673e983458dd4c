package renderer

import (
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	TextureKitty  = "kitty"
	TextureSkybox = "skybox"
	TextureFont   = "font"
	MeshOverlay   = "overlay"
)

// DefaultPasses is the lab scene: opaque cubes, the sky, then the sorted
// transparent cubes.
func DefaultPasses() []metadata.PassConfig {
	red := math.NewVec4(1, 0, 0, 0.5)
	green := math.NewVec4(0, 1, 0, 0.5)
	blue := math.NewVec4(0, 0, 1, 0.5)
	return []metadata.PassConfig{
		{
			Name:     "opaque",
			Kind:     metadata.PassKindObjects,
			Pipeline: PipelineTextured,
			Mesh:     MeshCube,
			Textures: []string{TextureKitty},
			Objects: []metadata.ObjectConfig{
				{Name: "animated", SceneModel: true},
				{Name: "static", Position: math.NewVec3(0.5, 0, 0.5)},
			},
		},
		{
			Name:     "skybox",
			Kind:     metadata.PassKindSkybox,
			Pipeline: PipelineSkybox,
			Mesh:     MeshSphere,
			Textures: []string{TextureSkybox},
		},
		{
			Name:     "transparent",
			Kind:     metadata.PassKindObjects,
			Pipeline: PipelineTransparent,
			Mesh:     MeshCube,
			Textures: []string{TextureKitty},
			Sort:     metadata.SortBackToFront,
			Objects: []metadata.ObjectConfig{
				{Name: "red-1", Position: math.NewVec3(-2.25, 0, -0.5), Tint: red},
				{Name: "green-1", Position: math.NewVec3(-4.5, 0, 0.5), Tint: green},
				{Name: "blue-1", Position: math.NewVec3(-4.5, 3, 0.5), Tint: blue},
				{Name: "red-2", Position: math.NewVec3(-7.25, 0, -0.5), Tint: red},
				{Name: "green-2", Position: math.NewVec3(-4.5, 0, 3.5), Tint: green},
				{Name: "blue-2", Position: math.NewVec3(-0.5, 3, 5.5), Tint: blue},
			},
		},
	}
}

// OverlayPass draws the help text mesh in the top left corner.
func OverlayPass() metadata.PassConfig {
	return metadata.PassConfig{
		Name:     "overlay",
		Kind:     metadata.PassKindOverlay,
		Pipeline: PipelineOverlay,
		Mesh:     MeshOverlay,
		Textures: []string{TextureFont},
		Objects: []metadata.ObjectConfig{
			{Name: "help", Position: math.NewVec3(8, 8, 0), Tint: math.NewVec4(1, 1, 1, 0.9)},
		},
	}
}
