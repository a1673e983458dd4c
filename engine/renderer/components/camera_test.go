package components

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spaghettifunk/anima-labs/engine/math"
)

func TestOrbitCameraSitsBehindOrigin(t *testing.T) {
	c := NewCamera()
	pos := c.GetPosition()
	assert.True(t, pos.Compare(math.NewVec3(0, 0, -DefaultZoom), 1e-5), "got %v", pos)
}

func TestFirstPersonLiftsByQuarterZoom(t *testing.T) {
	c := NewCamera()
	c.ToggleFirstPerson()
	pos := c.GetPosition()
	assert.True(t, pos.Compare(math.NewVec3(0, DefaultZoom/4, 0), 1e-5), "got %v", pos)
}

func TestScrollClampsAtZero(t *testing.T) {
	c := NewCamera()
	c.Scroll(5)
	assert.InDelta(t, DefaultZoom-1, c.Zoom, 1e-6)
	c.Scroll(1000)
	assert.Equal(t, float32(0), c.Zoom)
}

func TestDragAppliesLiveAndCommitsOnEnd(t *testing.T) {
	c := NewCamera()
	c.BeginDrag(100, 100)
	c.Drag(300, 100)
	live := c.GetTransform()
	assert.Equal(t, float32(0), c.Yaw, "stored yaw only changes on release")

	c.EndDrag(300, 100)
	assert.InDelta(t, 1.0, c.Yaw, 1e-6)
	assert.False(t, c.Dragging())
	assert.True(t, live.Compare(c.GetTransform(), 1e-5))
}

func TestPitchIsClamped(t *testing.T) {
	c := NewCamera()
	c.BeginDrag(0, 0)
	c.EndDrag(0, 10000)
	assert.InDelta(t, math.K_HALF_PI, c.Pitch, 1e-6)
}

func TestMoveFollowsYaw(t *testing.T) {
	c := NewCamera()
	c.Move(DirectionForward, 0.5)
	assert.InDelta(t, 5, c.Origin.Z, 1e-5)
	assert.InDelta(t, 0, c.Origin.X, 1e-5)

	c.Origin = math.NewVec3Zero()
	c.Move(DirectionRight, 1)
	assert.InDelta(t, 10, c.Origin.X, 1e-5)

	c.Origin = math.NewVec3Zero()
	c.Move(DirectionForward|DirectionBackward, 1)
	assert.InDelta(t, 0, c.Origin.Z, 1e-5)
}
