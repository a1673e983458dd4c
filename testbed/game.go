package testbed

import (
	"github.com/spaghettifunk/anima-labs/engine"
	"github.com/spaghettifunk/anima-labs/engine/core"
)

type TestGame struct {
	*engine.Game
}

type gameState struct {
	scene *Scene
	bus   *core.EventBus

	width  uint32
	height uint32
}

func NewTestGame(config *engine.ApplicationConfig) *TestGame {
	scene := NewScene()
	tg := &TestGame{
		Game: &engine.Game{
			ApplicationConfig: config,
			Scene:             scene,
			State:             &gameState{scene: scene},
		},
	}

	tg.FnBoot = tg.Boot
	tg.FnInitialize = tg.Initialize
	tg.FnUpdate = tg.Update
	tg.FnOnResize = tg.OnResize
	tg.FnShutdown = tg.Shutdown

	return tg
}

func (g *TestGame) state() *gameState {
	return g.State.(*gameState)
}

func (g *TestGame) Boot(config *engine.ApplicationConfig) error {
	core.LogInfo("booting testbed...")
	if config.Window.Name == "" {
		config.Window.Name = "Anima Labs"
	}
	return nil
}

func (g *TestGame) Initialize(bus *core.EventBus, input *core.Input) error {
	s := g.state()
	s.bus = bus
	s.scene.Subscribe(bus)
	return nil
}

func (g *TestGame) Update(deltaTime float64) error {
	g.state().scene.Update(deltaTime)
	return nil
}

func (g *TestGame) OnResize(width uint32, height uint32) error {
	s := g.state()
	s.width, s.height = width, height
	return nil
}

func (g *TestGame) Shutdown() error {
	s := g.state()
	if s.bus != nil {
		s.scene.Unsubscribe(s.bus)
		s.bus = nil
	}
	core.LogInfo("testbed shut down")
	return nil
}
