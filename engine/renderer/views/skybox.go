package views

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// RenderViewSkybox draws the sky sphere. The sphere stays centered on the
// camera in the shader, the view only scales it.
type RenderViewSkybox struct {
	config metadata.PassConfig
	items  [1]metadata.DrawItem
}

func NewRenderViewSkybox(config metadata.PassConfig) *RenderViewSkybox {
	return &RenderViewSkybox{config: config}
}

func (vs *RenderViewSkybox) Name() string                { return vs.config.Name }
func (vs *RenderViewSkybox) Config() metadata.PassConfig { return vs.config }

func (vs *RenderViewSkybox) OnResize(width, height uint32) {}

func (vs *RenderViewSkybox) OnBuildPacket(frame *metadata.FrameData) ([]metadata.DrawItem, error) {
	r := SkyboxRadius(frame.Near, frame.FovX, frame.Aspect)
	vs.items[0] = metadata.DrawItem{
		Name:  vs.config.Name,
		Model: math.NewMat4Scale(math.NewVec3(r, r, r)),
		Tint:  math.NewVec4(1, 1, 1, 1),
	}
	return vs.items[:], nil
}

// SkyboxRadius is the distance from the eye to a corner of the near plane,
// fovX is horizontal and aspect is height over width.
func SkyboxRadius(near, fovX, aspect float32) float32 {
	w := 2 * near * math32.Tan(fovX/2)
	h := aspect * w
	return math32.Sqrt(near*near + (w/2)*(w/2) + (h/2)*(h/2))
}
