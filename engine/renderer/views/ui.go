package views

import (
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// RenderViewUI draws a mesh laid out in pixels from the top left corner.
type RenderViewUI struct {
	config     metadata.PassConfig
	projection math.Mat4
	items      []metadata.DrawItem
}

func NewRenderViewUI(config metadata.PassConfig) *RenderViewUI {
	return &RenderViewUI{
		config:     config,
		projection: math.NewMat4Identity(),
	}
}

func (vu *RenderViewUI) Name() string                { return vu.config.Name }
func (vu *RenderViewUI) Config() metadata.PassConfig { return vu.config }

func (vu *RenderViewUI) OnResize(width, height uint32) {
	vu.projection = math.NewMat4Orthographic(0, float32(width), float32(height), 0, 0, 1)
}

func (vu *RenderViewUI) OnBuildPacket(frame *metadata.FrameData) ([]metadata.DrawItem, error) {
	vu.items = vu.items[:0]
	objects := vu.config.Objects
	if len(objects) == 0 {
		objects = []metadata.ObjectConfig{{Name: vu.config.Name}}
	}
	for _, o := range objects {
		vu.items = append(vu.items, metadata.DrawItem{
			Name:  o.Name,
			Model: math.NewMat4Translation(o.Position).Mul(vu.projection),
			Tint:  o.TintOrWhite(),
		})
	}
	return vu.items, nil
}
