package platform

import (
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"

	"github.com/spaghettifunk/anima-labs/engine/containers"
	"github.com/spaghettifunk/anima-labs/engine/core"
)

// Maximum number of window events buffered between two PumpMessages calls.
const eventQueueSize = 256

func init() {
	// GLFW event handling must run on the main OS thread
	runtime.LockOSThread()
}

type eventKind uint8

const (
	eventKey eventKind = iota
	eventButton
	eventCursor
	eventScroll
	eventFramebuffer
	eventClose
)

// windowEvent is what the glfw callbacks record. They only enqueue; the
// engine dispatches the queue once per frame from PumpMessages.
type windowEvent struct {
	kind    eventKind
	key     glfw.Key
	button  glfw.MouseButton
	pressed bool
	x, y    float64
	width   int
	height  int
}

type Platform struct {
	Window *glfw.Window

	bus    *core.EventBus
	input  *core.Input
	events *containers.RingQueue[windowEvent]

	width, height int
	startTime     float64
}

func New(bus *core.EventBus, input *core.Input) *Platform {
	return &Platform{
		bus:    bus,
		input:  input,
		events: containers.NewRingQueue[windowEvent](eventQueueSize),
	}
}

func (p *Platform) Startup(applicationName string, x uint32, y uint32, width uint32, height uint32) error {
	if err := glfw.Init(); err != nil {
		core.LogError("failed to initialize glfw: %s", err)
		return err
	}

	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.Resizable, glfw.True)
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI) // Required for Vulkan.

	window, err := glfw.CreateWindow(int(width), int(height), applicationName, nil, nil)
	if err != nil {
		core.LogError("failed to create window: %s", err)
		glfw.Terminate()
		return err
	}
	p.Window = window

	p.Window.SetKeyCallback(p.keyCallback)
	p.Window.SetMouseButtonCallback(p.mouseButtonCallback)
	p.Window.SetCursorPosCallback(p.cursorPosCallback)
	p.Window.SetScrollCallback(p.scrollCallback)
	p.Window.SetFramebufferSizeCallback(p.framebufferSizeCallback)
	p.Window.SetCloseCallback(p.closeCallback)
	p.Window.SetPos(int(x), int(y))
	p.Window.Show()

	p.width, p.height = p.Window.GetFramebufferSize()
	p.startTime = glfw.GetTime()

	return nil
}

func (p *Platform) Shutdown() error {
	if p.Window != nil {
		p.Window.Destroy()
		p.Window = nil
	}
	glfw.Terminate()
	return nil
}

// FramebufferSize is the drawable size in pixels, which differs from the
// window size on high DPI displays.
func (p *Platform) FramebufferSize() (int, int) {
	return p.width, p.height
}

// RequiredInstanceExtensions lists the Vulkan instance extensions the window
// surface needs.
func (p *Platform) RequiredInstanceExtensions() []string {
	if p.Window == nil {
		return nil
	}
	return p.Window.GetRequiredInstanceExtensions()
}

// CreateWindowSurface creates a VkSurfaceKHR for the window.
func (p *Platform) CreateWindowSurface(instance interface{}, allocCallbacks unsafe.Pointer) (uintptr, error) {
	return p.Window.CreateWindowSurface(instance, allocCallbacks)
}

// GetVulkanProcAddress is the vkGetInstanceProcAddr glfw loaded.
func (p *Platform) GetVulkanProcAddress() unsafe.Pointer {
	return glfw.GetVulkanGetInstanceProcAddress()
}

// Elapsed is the time in seconds since Startup.
func (p *Platform) Elapsed() float64 {
	return glfw.GetTime() - p.startTime
}

// PumpMessages polls the OS and dispatches the queued window events to the
// input state and the event bus.
func (p *Platform) PumpMessages() {
	glfw.PollEvents()
	p.dispatch()
}

func (p *Platform) dispatch() {
	for !p.events.IsEmpty() {
		e, err := p.events.Dequeue()
		if err != nil {
			return
		}
		switch e.kind {
		case eventKey:
			if code, ok := translateKey(e.key); ok {
				p.input.ProcessKey(code, e.pressed)
			}
		case eventButton:
			if b, ok := translateButton(e.button); ok {
				p.input.ProcessButton(b, e.pressed)
			}
		case eventCursor:
			p.input.ProcessMouseMove(int32(e.x), int32(e.y))
		case eventScroll:
			p.input.ProcessMouseWheel(e.y)
		case eventFramebuffer:
			p.width, p.height = e.width, e.height
			p.bus.Fire(p, core.EventContext{
				Type: core.EVENT_CODE_RESIZED,
				Data: &core.SystemEvent{WindowWidth: uint32(e.width), WindowHeight: uint32(e.height)},
			})
		case eventClose:
			p.bus.Fire(p, core.EventContext{Type: core.EVENT_CODE_APPLICATION_QUIT})
		}
	}
}

func (p *Platform) enqueue(e windowEvent) {
	if err := p.events.Enqueue(e); err != nil {
		core.LogWarn("window event dropped: %s", err)
	}
}

func (p *Platform) keyCallback(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if action == glfw.Repeat {
		return
	}
	p.enqueue(windowEvent{kind: eventKey, key: key, pressed: action == glfw.Press})
}

func (p *Platform) mouseButtonCallback(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
	p.enqueue(windowEvent{kind: eventButton, button: button, pressed: action == glfw.Press})
}

func (p *Platform) cursorPosCallback(w *glfw.Window, xpos, ypos float64) {
	p.enqueue(windowEvent{kind: eventCursor, x: xpos, y: ypos})
}

func (p *Platform) scrollCallback(w *glfw.Window, xoff, yoff float64) {
	p.enqueue(windowEvent{kind: eventScroll, x: xoff, y: yoff})
}

func (p *Platform) framebufferSizeCallback(w *glfw.Window, width, height int) {
	p.enqueue(windowEvent{kind: eventFramebuffer, width: width, height: height})
}

func (p *Platform) closeCallback(w *glfw.Window) {
	p.enqueue(windowEvent{kind: eventClose})
}
