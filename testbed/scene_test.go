package testbed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
)

func press(bus *core.EventBus, key core.KeyCode, down bool) {
	code := core.EVENT_CODE_KEY_RELEASED
	if down {
		code = core.EVENT_CODE_KEY_PRESSED
	}
	bus.Fire(nil, core.EventContext{Type: code, Data: &core.KeyEvent{KeyCode: key}})
}

func TestModelBobsAndSpins(t *testing.T) {
	s := NewScene()
	assert.InDelta(t, 0.25, s.ModelTransform().Translation().Y, 1e-6)

	// A quarter turn of phase takes one second at 0.25 Hz.
	s.Update(1)
	m := s.ModelTransform()
	assert.InDelta(t, 0, m.Translation().Y, 1e-5)
}

func TestSpacePausesAnimation(t *testing.T) {
	bus := core.NewEventBus()
	s := NewScene()
	s.Subscribe(bus)

	press(bus, core.KEY_SPACE, true)
	press(bus, core.KEY_SPACE, false)
	require.False(t, s.Playing())

	before := s.ModelTransform()
	s.Update(0.7)
	assert.True(t, before.Compare(s.ModelTransform(), 1e-6))
}

func TestWASDMovesWhileHeld(t *testing.T) {
	bus := core.NewEventBus()
	s := NewScene()
	s.Subscribe(bus)

	press(bus, core.KEY_W, true)
	s.Update(0.1)
	press(bus, core.KEY_W, false)
	s.Update(0.1)
	assert.InDelta(t, 1, s.Camera().Origin.Z, 1e-5)
}

func TestMouseDragRotatesCamera(t *testing.T) {
	bus := core.NewEventBus()
	s := NewScene()
	s.Subscribe(bus)

	bus.Fire(nil, core.EventContext{Type: core.EVENT_CODE_BUTTON_PRESSED, Data: &core.MouseEvent{Button: core.BUTTON_LEFT, PosX: 10, PosY: 10}})
	bus.Fire(nil, core.EventContext{Type: core.EVENT_CODE_MOUSE_MOVED, Data: &core.MouseEvent{PosX: 210, PosY: 10}})
	bus.Fire(nil, core.EventContext{Type: core.EVENT_CODE_BUTTON_RELEASED, Data: &core.MouseEvent{Button: core.BUTTON_LEFT, PosX: 210, PosY: 10}})
	assert.InDelta(t, 1, s.Camera().Yaw, 1e-6)
}

func TestWheelZoomsAndFTogglesFirstPerson(t *testing.T) {
	bus := core.NewEventBus()
	s := NewScene()
	s.Subscribe(bus)

	bus.Fire(nil, core.EventContext{Type: core.EVENT_CODE_MOUSE_WHEEL, Data: &core.MouseEvent{Scroll: 10}})
	assert.InDelta(t, 6, s.Camera().Zoom, 1e-6)

	press(bus, core.KEY_F, true)
	pos := s.CameraTransform().Translation()
	assert.True(t, pos.Compare(math.NewVec3(0, 1.5, 0), 1e-5), "got %v", pos)

	s.Unsubscribe(bus)
	press(bus, core.KEY_F, false)
	press(bus, core.KEY_F, true)
	assert.True(t, s.Camera().FirstPerson)
}
