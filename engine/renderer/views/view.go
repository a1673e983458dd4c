package views

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// RenderView turns the frame data of one pass into the draw items for its mesh.
type RenderView interface {
	Name() string
	Config() metadata.PassConfig
	OnResize(width, height uint32)
	OnBuildPacket(frame *metadata.FrameData) ([]metadata.DrawItem, error)
}

// New creates the view for a pass according to its kind.
func New(config metadata.PassConfig) (RenderView, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	switch config.Kind {
	case metadata.PassKindObjects:
		return NewRenderViewWorld(config), nil
	case metadata.PassKindSkybox:
		return NewRenderViewSkybox(config), nil
	case metadata.PassKindOverlay:
		return NewRenderViewUI(config), nil
	}
	return nil, fmt.Errorf("pass %s: no view for kind %q", config.Name, config.Kind)
}
