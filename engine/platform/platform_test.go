package platform

import (
	"testing"

	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

func TestTranslateKey(t *testing.T) {
	code, ok := translateKey(glfw.KeyW)
	require.True(t, ok)
	assert.Equal(t, core.KEY_W, code)

	code, ok = translateKey(glfw.KeyF5)
	require.True(t, ok)
	assert.Equal(t, core.KEY_F5, code)

	code, ok = translateKey(glfw.KeyEscape)
	require.True(t, ok)
	assert.Equal(t, core.KEY_ESCAPE, code)

	_, ok = translateKey(glfw.KeyKP5)
	assert.False(t, ok)
}

func TestDispatchFeedsInputAndBus(t *testing.T) {
	bus := core.NewEventBus()
	input := core.NewInput(bus)
	p := New(bus, input)

	var resized *core.SystemEvent
	quit := false
	bus.Register(core.EVENT_CODE_RESIZED, t, func(sender, listener interface{}, ctx core.EventContext) bool {
		resized = ctx.Data.(*core.SystemEvent)
		return true
	})
	bus.Register(core.EVENT_CODE_APPLICATION_QUIT, t, func(sender, listener interface{}, ctx core.EventContext) bool {
		quit = true
		return true
	})

	p.keyCallback(nil, glfw.KeyA, 0, glfw.Press, 0)
	p.keyCallback(nil, glfw.KeyA, 0, glfw.Repeat, 0)
	p.mouseButtonCallback(nil, glfw.MouseButtonLeft, glfw.Press, 0)
	p.cursorPosCallback(nil, 12.7, 40.2)
	p.framebufferSizeCallback(nil, 640, 0)
	p.closeCallback(nil)
	assert.Equal(t, 5, p.events.Len())

	p.dispatch()
	assert.True(t, p.events.IsEmpty())
	assert.True(t, input.IsKeyDown(core.KEY_A))
	assert.True(t, input.IsButtonDown(core.BUTTON_LEFT))
	x, y := input.MousePosition()
	assert.Equal(t, int32(12), x)
	assert.Equal(t, int32(40), y)
	require.NotNil(t, resized)
	assert.Equal(t, uint32(640), resized.WindowWidth)
	assert.Equal(t, uint32(0), resized.WindowHeight)
	w, h := p.FramebufferSize()
	assert.Equal(t, 640, w)
	assert.Equal(t, 0, h)
	assert.True(t, quit)
}

func TestFullQueueDropsEvents(t *testing.T) {
	p := New(core.NewEventBus(), core.NewInput(core.NewEventBus()))
	for i := 0; i < eventQueueSize+10; i++ {
		p.scrollCallback(nil, 0, 1)
	}
	assert.Equal(t, eventQueueSize, p.events.Len())
}
