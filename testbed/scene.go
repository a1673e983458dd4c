package testbed

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/components"
)

// Animation speed in turns per second.
const animationFrequency = 0.25

// Scene is the animated cube and the camera looking at it. It only changes
// through input events and Update.
type Scene struct {
	camera  *components.Camera
	phase   float64
	playing bool
	held    components.Direction
	model   *math.Transform
}

func NewScene() *Scene {
	s := &Scene{
		camera:  components.NewCamera(),
		playing: true,
		model:   math.TransformCreate(),
	}
	s.Update(0)
	return s
}

// Subscribe routes the input events the scene reacts to.
func (s *Scene) Subscribe(bus *core.EventBus) {
	bus.Register(core.EVENT_CODE_KEY_PRESSED, s, s.onKey)
	bus.Register(core.EVENT_CODE_KEY_RELEASED, s, s.onKey)
	bus.Register(core.EVENT_CODE_BUTTON_PRESSED, s, s.onButton)
	bus.Register(core.EVENT_CODE_BUTTON_RELEASED, s, s.onButton)
	bus.Register(core.EVENT_CODE_MOUSE_MOVED, s, s.onMouseMove)
	bus.Register(core.EVENT_CODE_MOUSE_WHEEL, s, s.onWheel)
}

func (s *Scene) Unsubscribe(bus *core.EventBus) {
	for _, code := range []core.EventCode{
		core.EVENT_CODE_KEY_PRESSED, core.EVENT_CODE_KEY_RELEASED,
		core.EVENT_CODE_BUTTON_PRESSED, core.EVENT_CODE_BUTTON_RELEASED,
		core.EVENT_CODE_MOUSE_MOVED, core.EVENT_CODE_MOUSE_WHEEL,
	} {
		bus.Unregister(code, s)
	}
}

func (s *Scene) Update(deltaTime float64) {
	if s.playing {
		s.phase += deltaTime * 2 * math32.Pi * animationFrequency
	}
	phase := float32(s.phase)
	s.model.SetYaw(-phase)
	s.model.SetPosition(math.NewVec3(0, (1+math32.Sin(-phase))/4, 0))
	s.camera.Move(s.held, float32(deltaTime))
}

func (s *Scene) ModelTransform() math.Mat4 {
	return s.model.GetLocal()
}

func (s *Scene) CameraTransform() math.Mat4 {
	return s.camera.GetTransform()
}

func (s *Scene) Camera() *components.Camera {
	return s.camera
}

func (s *Scene) Playing() bool {
	return s.playing
}

func (s *Scene) onKey(sender interface{}, listener interface{}, context core.EventContext) bool {
	ke, ok := context.Data.(*core.KeyEvent)
	if !ok {
		core.LogError("wrong event associated with the event type `%d`", context.Type)
		return false
	}
	pressed := context.Type == core.EVENT_CODE_KEY_PRESSED

	var dir components.Direction
	switch ke.KeyCode {
	case core.KEY_W:
		dir = components.DirectionForward
	case core.KEY_A:
		dir = components.DirectionLeft
	case core.KEY_S:
		dir = components.DirectionBackward
	case core.KEY_D:
		dir = components.DirectionRight
	case core.KEY_SPACE:
		if pressed {
			s.playing = !s.playing
		}
		return true
	case core.KEY_F:
		if pressed {
			s.camera.ToggleFirstPerson()
		}
		return true
	default:
		return false
	}
	if pressed {
		s.held |= dir
	} else {
		s.held &^= dir
	}
	return true
}

func (s *Scene) onButton(sender interface{}, listener interface{}, context core.EventContext) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok || me.Button != core.BUTTON_LEFT {
		return false
	}
	if context.Type == core.EVENT_CODE_BUTTON_PRESSED {
		s.camera.BeginDrag(me.PosX, me.PosY)
	} else {
		s.camera.EndDrag(me.PosX, me.PosY)
	}
	return true
}

func (s *Scene) onMouseMove(sender interface{}, listener interface{}, context core.EventContext) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	s.camera.Drag(me.PosX, me.PosY)
	// Other listeners may want the move too.
	return false
}

func (s *Scene) onWheel(sender interface{}, listener interface{}, context core.EventContext) bool {
	me, ok := context.Data.(*core.MouseEvent)
	if !ok {
		return false
	}
	s.camera.Scroll(float32(me.Scroll))
	return true
}
