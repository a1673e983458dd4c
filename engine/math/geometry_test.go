package math

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateSphereCounts(t *testing.T) {
	vertices, indices := GenerateSphere(20, 10, 1.2)
	assert.Len(t, vertices, 21*11)
	assert.Len(t, indices, 20*9*6)
	for _, v := range vertices {
		assert.InDelta(t, 1.2, v.Position.Length(), 1e-4)
	}
	for _, i := range indices {
		assert.Less(t, int(i), len(vertices))
	}
}

func TestSphereTrianglesFaceInward(t *testing.T) {
	// The skybox is viewed from inside, so the winding keeps every triangle's
	// geometric normal pointing at the centre.
	vertices, indices := GenerateSphere(20, 10, 1)
	for i := 0; i < len(indices); i += 3 {
		a := vertices[indices[i]].Position
		b := vertices[indices[i+1]].Position
		c := vertices[indices[i+2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		require.Greater(t, n.LengthSquared(), float32(0), "degenerate triangle %d", i/3)
		centroid := a.Add(b).Add(c).MulScalar(1.0 / 3.0)
		assert.Less(t, n.Dot(centroid), float32(0), "triangle %d", i/3)
	}
}

func TestInscribedRadiusOfSphere(t *testing.T) {
	vertices, indices := GenerateSphere(20, 10, 1.2)
	r := InscribedRadius(vertices, indices)
	assert.Greater(t, r, float32(1.1))
	assert.Less(t, r, float32(1.2))
}

func TestGenerateCube(t *testing.T) {
	vertices, indices := GenerateCube(1)
	assert.Len(t, vertices, 24)
	assert.Len(t, indices, 36)
	for i := 0; i < len(indices); i += 3 {
		a := vertices[indices[i]].Position
		b := vertices[indices[i+1]].Position
		c := vertices[indices[i+2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		centroid := a.Add(b).Add(c).MulScalar(1.0 / 3.0)
		// Seen from outside every face winds clockwise, so the right-handed cross product points out.
		assert.Greater(t, n.Dot(centroid), float32(0), "triangle %d", i/3)
	}
}

func TestTransformLocal(t *testing.T) {
	tr := TransformFromPositionYawScale(NewVec3(1, 2, 3), 0, NewVec3(2, 2, 2))
	m := tr.GetLocal()
	assert.Equal(t, NewVec3(1, 2, 3), m.Translation())
	assert.Equal(t, NewVec3(3, 2, 3), NewVec3(1, 0, 0).Transform(m))

	parent := TransformFromPosition(NewVec3(10, 0, 0))
	tr.Parent = parent
	assert.Equal(t, NewVec3(11, 2, 3), tr.GetWorld().Translation())
	assert.Equal(t, NewMat4Identity(), (*Transform)(nil).GetLocal())
}
