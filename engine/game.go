package engine

import (
	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
)

// Game is what the engine drives. Scene is read by the renderer every frame.
type Game struct {
	ApplicationConfig *ApplicationConfig
	Scene             renderer.Scene
	State             interface{}
	FnBoot            Boot
	FnInitialize      Initialize
	FnUpdate          Update
	FnOnResize        OnResize
	FnShutdown        Shutdown
}

// Boot runs before the window exists and may still change the config.
type Boot func(config *ApplicationConfig) error
type Initialize func(bus *core.EventBus, input *core.Input) error
type Update func(deltaTime float64) error
type OnResize func(width uint32, height uint32) error
type Shutdown func() error
