package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventBusStopsAtFirstHandler(t *testing.T) {
	bus := NewEventBus()
	var calls []string

	first, second := "first", "second"
	require.True(t, bus.Register(EVENT_CODE_KEY_PRESSED, first, func(sender, listener interface{}, ctx EventContext) bool {
		calls = append(calls, listener.(string))
		return true
	}))
	require.True(t, bus.Register(EVENT_CODE_KEY_PRESSED, second, func(sender, listener interface{}, ctx EventContext) bool {
		calls = append(calls, listener.(string))
		return false
	}))

	handled := bus.Fire(nil, EventContext{Type: EVENT_CODE_KEY_PRESSED, Data: &KeyEvent{KeyCode: KEY_A}})
	assert.True(t, handled)
	assert.Equal(t, []string{"first"}, calls)
}

func TestEventBusRejectsDuplicateListener(t *testing.T) {
	bus := NewEventBus()
	noop := func(sender, listener interface{}, ctx EventContext) bool { return false }

	assert.True(t, bus.Register(EVENT_CODE_RESIZED, "l", noop))
	assert.False(t, bus.Register(EVENT_CODE_RESIZED, "l", noop))
	assert.True(t, bus.Unregister(EVENT_CODE_RESIZED, "l"))
	assert.False(t, bus.Unregister(EVENT_CODE_RESIZED, "l"))
	assert.False(t, bus.Fire(nil, EventContext{Type: EVENT_CODE_RESIZED}))
}

func TestInputFiresOnlyOnChange(t *testing.T) {
	bus := NewEventBus()
	in := NewInput(bus)

	var pressed, released int
	bus.Register(EVENT_CODE_KEY_PRESSED, "t", func(sender, listener interface{}, ctx EventContext) bool {
		pressed++
		return false
	})
	bus.Register(EVENT_CODE_KEY_RELEASED, "t", func(sender, listener interface{}, ctx EventContext) bool {
		released++
		return false
	})

	in.ProcessKey(KEY_W, true)
	in.ProcessKey(KEY_W, true)
	assert.True(t, in.IsKeyDown(KEY_W))
	assert.False(t, in.WasKeyDown(KEY_W))

	in.Update(0.016)
	assert.True(t, in.WasKeyDown(KEY_W))

	in.ProcessKey(KEY_W, false)
	assert.Equal(t, 1, pressed)
	assert.Equal(t, 1, released)
	assert.True(t, in.IsKeyUp(KEY_W))
}

func TestInputMouseEventsCarryPosition(t *testing.T) {
	bus := NewEventBus()
	in := NewInput(bus)

	var got *MouseEvent
	bus.Register(EVENT_CODE_BUTTON_PRESSED, "t", func(sender, listener interface{}, ctx EventContext) bool {
		got = ctx.Data.(*MouseEvent)
		return true
	})

	in.ProcessMouseMove(120, 45)
	in.ProcessButton(BUTTON_LEFT, true)

	require.NotNil(t, got)
	assert.Equal(t, BUTTON_LEFT, got.Button)
	assert.Equal(t, int32(120), got.PosX)
	assert.Equal(t, int32(45), got.PosY)
}
