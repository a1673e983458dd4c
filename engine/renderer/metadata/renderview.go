package metadata

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/math"
)

type PassKind string

const (
	// PassKindObjects draws a fixed list of objects.
	PassKindObjects PassKind = "objects"
	// PassKindSkybox draws one sphere enclosing the near plane around the camera.
	PassKindSkybox PassKind = "skybox"
	// PassKindOverlay draws a screen-space mesh in pixel units.
	PassKindOverlay PassKind = "overlay"
)

type SortMode string

const (
	SortNone SortMode = "none"
	// SortBackToFront orders by camera-space depth, farthest first.
	SortBackToFront SortMode = "back_to_front"
)

// ObjectConfig places one instance of a pass mesh.
type ObjectConfig struct {
	Name string `yaml:"name"`
	// SceneModel uses the animated model transform of the scene instead of Position.
	SceneModel bool      `yaml:"scene_model"`
	Position   math.Vec3 `yaml:"position"`
	Scale      float32   `yaml:"scale"`
	Tint       math.Vec4 `yaml:"tint"`
}

// Transform is the model matrix of the object given the scene model transform.
func (o ObjectConfig) Transform(sceneModel math.Mat4) math.Mat4 {
	if o.SceneModel {
		return sceneModel
	}
	m := math.NewMat4Translation(o.Position)
	if o.Scale != 0 && o.Scale != 1 {
		m = math.NewMat4Scale(math.NewVec3(o.Scale, o.Scale, o.Scale)).Mul(m)
	}
	return m
}

// TintOrWhite treats an all zero tint as opaque white.
func (o ObjectConfig) TintOrWhite() math.Vec4 {
	if o.Tint == (math.Vec4{}) {
		return math.NewVec4(1, 1, 1, 1)
	}
	return o.Tint
}

// PassConfig declares one render pass. Passes run in the order they are listed.
type PassConfig struct {
	Name     string         `yaml:"name"`
	Kind     PassKind       `yaml:"kind"`
	Pipeline string         `yaml:"pipeline"`
	Mesh     string         `yaml:"mesh"`
	Textures []string       `yaml:"textures"`
	Sort     SortMode       `yaml:"sort"`
	Objects  []ObjectConfig `yaml:"objects"`
}

func (p PassConfig) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("pass without a name")
	}
	switch p.Kind {
	case PassKindObjects, PassKindSkybox, PassKindOverlay:
	default:
		return fmt.Errorf("pass %s: unknown kind %q", p.Name, p.Kind)
	}
	switch p.Sort {
	case "", SortNone, SortBackToFront:
	default:
		return fmt.Errorf("pass %s: unknown sort mode %q", p.Name, p.Sort)
	}
	if p.Pipeline == "" || p.Mesh == "" {
		return fmt.Errorf("pass %s needs a pipeline and a mesh", p.Name)
	}
	if p.Kind == PassKindObjects && len(p.Objects) == 0 {
		return fmt.Errorf("pass %s has no objects", p.Name)
	}
	return nil
}

// FrameData is everything a pass view needs to produce its draw items.
type FrameData struct {
	Model          math.Mat4
	Camera         math.Mat4
	View           math.Mat4
	Projection     math.Mat4
	CameraPosition math.Vec3
	Width          uint32
	Height         uint32
	Near           float32
	Far            float32
	FovX           float32
	// Aspect is height over width.
	Aspect float32
}

// DrawItem is one draw of a pass mesh.
type DrawItem struct {
	Name  string
	Model math.Mat4
	Tint  math.Vec4
	// Depth is the camera-space depth, only filled in by sorted passes.
	Depth float32
}
