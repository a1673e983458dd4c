package math

// Vec2 represents a 2D vector
type Vec2 struct {
	X, Y float32
}

// Vec3 represents a 3D vector
type Vec3 struct {
	X, Y, Z float32
}

// Vec4 represents a 4D vector
type Vec4 struct {
	X, Y, Z, W float32
}

/**
 * @brief a 4x4 matrix stored row-major and used with row vectors
 * (v' = v * M), so translation lives in Data[12..14].
 */
type Mat4 struct {
	/** @brief The matrix elements */
	Data [16]float32
}

/**
 * @brief A position-only vertex, used by the skybox sphere.
 */
type Vertex struct {
	Position Vec3
}

/**
 * @brief A vertex with a position and a texture coordinate.
 */
type TextureVertex struct {
	/** @brief The position of the vertex */
	Position Vec3
	/** @brief The texture coordinate of the vertex. */
	Texcoord Vec2
}

/**
 * @brief Represents the transform of an object in the world.
 * The local matrix is Scale * RotationY * Translation and is rebuilt lazily.
 */
type Transform struct {
	/** @brief The position in the world. */
	Position Vec3
	/** @brief Rotation about the Y axis, in radians. */
	Yaw float32
	/** @brief The scale in the world. */
	Scale Vec3
	/** @brief Set when position, rotation or scale changed since the last Local call. */
	IsDirty bool
	/** @brief The cached local transformation matrix. */
	local Mat4
	/** @brief An optional parent transform. */
	Parent *Transform
}
