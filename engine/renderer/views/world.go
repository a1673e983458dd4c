package views

import (
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// RenderViewWorld draws a fixed set of objects, optionally sorted back to front.
type RenderViewWorld struct {
	config metadata.PassConfig
	items  []metadata.DrawItem
}

func NewRenderViewWorld(config metadata.PassConfig) *RenderViewWorld {
	return &RenderViewWorld{
		config: config,
		items:  make([]metadata.DrawItem, 0, len(config.Objects)),
	}
}

func (vw *RenderViewWorld) Name() string                { return vw.config.Name }
func (vw *RenderViewWorld) Config() metadata.PassConfig { return vw.config }

func (vw *RenderViewWorld) OnResize(width, height uint32) {}

func (vw *RenderViewWorld) OnBuildPacket(frame *metadata.FrameData) ([]metadata.DrawItem, error) {
	vw.items = vw.items[:0]
	for _, o := range vw.config.Objects {
		vw.items = append(vw.items, metadata.DrawItem{
			Name:  o.Name,
			Model: o.Transform(frame.Model),
			Tint:  o.TintOrWhite(),
		})
	}
	if vw.config.Sort == metadata.SortBackToFront {
		SortBackToFront(vw.items, frame.View)
	}
	return vw.items, nil
}
