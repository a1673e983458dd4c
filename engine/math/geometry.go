package math

import "github.com/chewxy/math32"

/**
 * @brief Generates a latitude/longitude sphere centred at the origin.
 *
 * @param hRes Number of longitude bands.
 * @param wRes Number of latitude bands.
 * @param radius The sphere radius.
 * @return The (hRes+1)*(wRes+1) vertices and the triangle list indices.
 * The pole bands emit one triangle per quad, every other band two, so the
 * index count is hRes*(wRes-1)*6.
 */
func GenerateSphere(hRes, wRes int, radius float32) ([]Vertex, []uint16) {
	vertices := make([]Vertex, 0, (hRes+1)*(wRes+1))
	for w := 0; w <= wRes; w++ {
		for h := 0; h <= hRes; h++ {
			alpha := K_PI_2 * float32(h) / float32(hRes)
			beta := K_PI * float32(w) / float32(wRes)
			sinBeta, cosBeta := math32.Sincos(beta)
			sinAlpha, cosAlpha := math32.Sincos(alpha)
			vertices = append(vertices, Vertex{Position: Vec3{
				X: radius * sinBeta * cosAlpha,
				Y: radius * cosBeta,
				Z: radius * sinBeta * sinAlpha,
			}})
		}
	}

	indices := make([]uint16, 0, hRes*(wRes-1)*6)
	for w := 0; w < wRes; w++ {
		for h := 0; h < hRes; h++ {
			i := uint16(w*(hRes+1) + h)
			iNext := i + uint16(hRes+1)
			// The top band collapses to the pole, so its upper triangle is degenerate.
			if w != 0 {
				indices = append(indices, iNext+1, i+1, i)
			}
			// Same for the lower triangle of the bottom band.
			if w+1 != wRes {
				indices = append(indices, i, iNext, iNext+1)
			}
		}
	}
	return vertices, indices
}

/**
 * @brief Generates an axis-aligned cube spanning [-halfExtent, halfExtent] with
 * four vertices per face so every face gets its own texture coordinates.
 * @return 24 vertices and 36 indices.
 */
func GenerateCube(halfExtent float32) ([]TextureVertex, []uint16) {
	e := halfExtent
	v := func(x, y, z, u, w float32) TextureVertex {
		return TextureVertex{Position: Vec3{x * e, y * e, z * e}, Texcoord: Vec2{u, w}}
	}
	vertices := []TextureVertex{
		// -Z
		v(-1, -1, -1, 0, 1), v(-1, 1, -1, 0, 0), v(1, 1, -1, 1, 0), v(1, -1, -1, 1, 1),
		// +Z
		v(1, -1, 1, 0, 1), v(1, 1, 1, 0, 0), v(-1, 1, 1, 1, 0), v(-1, -1, 1, 1, 1),
		// -X
		v(-1, -1, 1, 0, 1), v(-1, 1, 1, 0, 0), v(-1, 1, -1, 1, 0), v(-1, -1, -1, 1, 1),
		// +X
		v(1, -1, -1, 0, 1), v(1, 1, -1, 0, 0), v(1, 1, 1, 1, 0), v(1, -1, 1, 1, 1),
		// +Y
		v(-1, 1, -1, 0, 1), v(-1, 1, 1, 0, 0), v(1, 1, 1, 1, 0), v(1, 1, -1, 1, 1),
		// -Y
		v(-1, -1, 1, 0, 1), v(-1, -1, -1, 0, 0), v(1, -1, -1, 1, 0), v(1, -1, 1, 1, 1),
	}

	indices := make([]uint16, 0, 36)
	for face := uint16(0); face < 6; face++ {
		b := face * 4
		indices = append(indices, b, b+1, b+2, b+2, b+3, b)
	}
	return vertices, indices
}

/**
 * @brief Returns the smallest distance from the origin to the plane of any
 * non-degenerate triangle. For a closed convex mesh around the origin this is
 * the radius of the largest sphere the mesh fully contains.
 */
func InscribedRadius(vertices []Vertex, indices []uint16) float32 {
	best := float32(-1)
	for i := 0; i+2 < len(indices); i += 3 {
		a := vertices[indices[i]].Position
		b := vertices[indices[i+1]].Position
		c := vertices[indices[i+2]].Position
		n := b.Sub(a).Cross(c.Sub(a))
		if n.LengthSquared() < K_FLOAT_EPSILON {
			continue
		}
		d := math32.Abs(n.Normalized().Dot(a))
		if best < 0 || d < best {
			best = d
		}
	}
	return best
}
