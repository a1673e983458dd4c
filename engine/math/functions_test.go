package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const tolerance = 1e-4

func TestInverseRoundTrip(t *testing.T) {
	m := NewMat4Scale(NewVec3(2, 3, 4)).
		Mul(NewMat4EulerY(0.7)).
		Mul(NewMat4EulerX(-0.3)).
		Mul(NewMat4Translation(NewVec3(1, -2, 5)))

	product := m.Mul(m.Inverse())
	assert.True(t, product.Compare(NewMat4Identity(), tolerance), "m * inverse(m) = %v", product.Data)
}

func TestInverseOfSingularIsIdentity(t *testing.T) {
	assert.Equal(t, NewMat4Identity(), Mat4{}.Inverse())
}

func TestTranslationLivesInRowThree(t *testing.T) {
	m := NewMat4Translation(NewVec3(1, 2, 3))
	assert.Equal(t, NewVec4(1, 2, 3, 1), m.Row(3))
	assert.Equal(t, NewVec3(5, 7, 9), NewVec3(4, 5, 6).Transform(m))
}

func TestRotationAxisMatchesEuler(t *testing.T) {
	assert.True(t, NewMat4RotationAxis(NewVec3(0, 1, 0), 1.1).Compare(NewMat4EulerY(1.1), tolerance))
	assert.True(t, NewMat4RotationAxis(NewVec3(2, 0, 0), -0.4).Compare(NewMat4EulerX(-0.4), tolerance))
	assert.True(t, NewMat4RotationAxis(NewVec3(0, 0, 1), 0.25).Compare(NewMat4EulerZ(0.25), tolerance))
	assert.Equal(t, NewMat4Identity(), NewMat4RotationAxis(Vec3{}, 1))
}

func TestPerspectiveReversedMapsNearToOneAndFarToZero(t *testing.T) {
	near, far := float32(0.1), float32(100)
	p := NewMat4PerspectiveReversed(K_HALF_PI, 0.5625, near, far)

	depth := func(z float32) float32 {
		clip := NewVec4(0, 0, z, 1).Transform(p)
		return clip.Z / clip.W
	}
	assert.InDelta(t, 1.0, depth(near), tolerance)
	assert.InDelta(t, 0.0, depth(far), tolerance)
	assert.Greater(t, depth(1), depth(10))

	// A point on the right edge of the horizontal field of view lands on x = 1.
	clip := NewVec4(5, 0, 5, 1).Transform(p)
	assert.InDelta(t, 1.0, clip.X/clip.W, tolerance)
}

func TestOrthographicPixelSpace(t *testing.T) {
	o := NewMat4Orthographic(0, 800, 600, 0, 0, 1)
	topLeft := NewVec4(0, 0, 0, 1).Transform(o)
	bottomRight := NewVec4(800, 600, 0, 1).Transform(o)
	assert.True(t, topLeft.Compare(NewVec4(-1, 1, 0, 1), tolerance), "%v", topLeft)
	assert.True(t, bottomRight.Compare(NewVec4(1, -1, 0, 1), tolerance), "%v", bottomRight)
}

func TestClampAndDivUp(t *testing.T) {
	assert.Equal(t, uint32(8), Max(uint32(4), 8))
	assert.Equal(t, float32(1), Clamp(float32(3), -1, 1))
	assert.Equal(t, uint32(64), DivUp(uint32(256), 4))
	assert.Equal(t, uint32(1), DivUp(uint32(1), 4))
}
