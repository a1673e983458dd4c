package components

import (
	"github.com/chewxy/math32"

	"github.com/spaghettifunk/anima-labs/engine/math"
)

const (
	// Radians of rotation per pixel dragged.
	DragSensitivity float32 = 1.0 / 200.0
	// Units per second along the ground plane.
	MoveSpeed float32 = 10
	// Zoom change per wheel notch.
	ZoomStep    float32 = 1.0 / 5.0
	DefaultZoom float32 = 8
)

// Direction is a bit set of the movement keys held down.
type Direction uint8

const (
	DirectionForward Direction = 1 << iota
	DirectionLeft
	DirectionBackward
	DirectionRight
)

/**
 * @brief An orbit camera that can switch to a free-fly first person mode.
 * The camera transform places the camera in the world; the renderer inverts
 * it to get the view matrix.
 */
type Camera struct {
	/** @brief Distance from the orbit origin. Also the first person eye height times four. */
	Zoom float32
	/** @brief Rotation about the X axis, clamped to straight up or down. */
	Pitch float32
	/** @brief Rotation about the Y axis. */
	Yaw float32
	/** @brief The orbit origin on the ground plane. Y is unused. */
	Origin      math.Vec3
	FirstPerson bool

	dragging   bool
	dragStartX int32
	dragStartY int32
	dragLastX  int32
	dragLastY  int32

	/** @brief Internal flag used to determine when the transform needs to be rebuilt. */
	IsDirty   bool
	transform math.Mat4
}

func NewCamera() *Camera {
	camera := &Camera{}
	camera.Reset()
	return camera
}

func (c *Camera) Reset() {
	c.Zoom = DefaultZoom
	c.Pitch, c.Yaw = 0, 0
	c.Origin = math.NewVec3Zero()
	c.FirstPerson = false
	c.dragging = false
	c.IsDirty = true
}

// angles returns pitch and yaw with the live drag applied.
func (c *Camera) angles() (float32, float32) {
	pitch, yaw := c.Pitch, c.Yaw
	if c.dragging {
		pitch += float32(c.dragLastY-c.dragStartY) * DragSensitivity
		yaw += float32(c.dragLastX-c.dragStartX) * DragSensitivity
	}
	return clampPitch(pitch), yaw
}

func clampPitch(pitch float32) float32 {
	return math.Clamp(pitch, -math.K_HALF_PI, math.K_HALF_PI)
}

func (c *Camera) BeginDrag(x, y int32) {
	if c.dragging {
		return
	}
	c.dragging = true
	c.dragStartX, c.dragStartY = x, y
	c.dragLastX, c.dragLastY = x, y
}

func (c *Camera) Drag(x, y int32) {
	if !c.dragging {
		return
	}
	c.dragLastX, c.dragLastY = x, y
	c.IsDirty = true
}

// EndDrag commits the drag into the stored angles.
func (c *Camera) EndDrag(x, y int32) {
	if !c.dragging {
		return
	}
	c.dragLastX, c.dragLastY = x, y
	c.Pitch, c.Yaw = c.angles()
	c.dragging = false
	c.IsDirty = true
}

func (c *Camera) Dragging() bool {
	return c.dragging
}

// Scroll zooms in for positive notches. Zoom never goes below zero.
func (c *Camera) Scroll(notches float32) {
	c.Zoom = math.Max(c.Zoom-notches*ZoomStep, 0)
	c.IsDirty = true
}

func (c *Camera) ToggleFirstPerson() {
	c.FirstPerson = !c.FirstPerson
	c.IsDirty = true
}

// Move walks the origin along the current yaw for deltaTime seconds.
func (c *Camera) Move(held Direction, deltaTime float32) {
	if held == 0 {
		return
	}
	_, yaw := c.angles()
	s, co := math32.Sincos(yaw)
	step := MoveSpeed * deltaTime
	if held&DirectionForward != 0 {
		c.Origin.X += step * s
		c.Origin.Z += step * co
	}
	if held&DirectionBackward != 0 {
		c.Origin.X -= step * s
		c.Origin.Z -= step * co
	}
	if held&DirectionLeft != 0 {
		c.Origin.X -= step * co
		c.Origin.Z += step * s
	}
	if held&DirectionRight != 0 {
		c.Origin.X += step * co
		c.Origin.Z -= step * s
	}
	c.IsDirty = true
}

// GetTransform is the camera to world matrix. Its row 3 is the eye position.
func (c *Camera) GetTransform() math.Mat4 {
	if c.IsDirty {
		pitch, yaw := c.angles()
		m := math.NewMat4Identity()
		lift := float32(0)
		if c.FirstPerson {
			lift = c.Zoom / 4
		} else {
			m = m.Mul(math.NewMat4Translation(math.NewVec3(0, 0, -c.Zoom)))
		}
		m = m.Mul(math.NewMat4EulerX(pitch))
		m = m.Mul(math.NewMat4EulerY(yaw))
		m = m.Mul(math.NewMat4Translation(math.NewVec3(c.Origin.X, lift, c.Origin.Z)))
		c.transform = m
		c.IsDirty = false
	}
	return c.transform
}

// GetPosition is the eye position in world space.
func (c *Camera) GetPosition() math.Vec3 {
	return c.GetTransform().Translation()
}
