package metadata

type ResourceType int

/** @brief Pre-defined resource types. */
const (
	ResourceTypeNone ResourceType = iota
	/** @brief Raw bytes. */
	ResourceTypeBinary
	/** @brief A compiled or compilable shader. */
	ResourceTypeShader
	/** @brief A DDS container, already in GPU layout. */
	ResourceTypeTexture
	/** @brief An uncompressed image that needs a mip chain. */
	ResourceTypeImage
	/** @brief Bitmap font descriptor. */
	ResourceTypeBitmapFont
	/** @brief Declarative pass layout. */
	ResourceTypeLayout
)

func (t ResourceType) String() string {
	switch t {
	case ResourceTypeBinary:
		return "binary"
	case ResourceTypeShader:
		return "shader"
	case ResourceTypeTexture:
		return "texture"
	case ResourceTypeImage:
		return "image"
	case ResourceTypeBitmapFont:
		return "bitmap-font"
	case ResourceTypeLayout:
		return "layout"
	}
	return "none"
}

/**
 * @brief A generic structure for a resource. All resource loaders
 * load data into these.
 */
type Resource struct {
	/** @brief The name of the resource. */
	Name string
	/** @brief The full file path of the resource. */
	FullPath string
	Type     ResourceType
	/** @brief The size of the resource data in bytes. */
	DataSize uint64
	/** @brief The resource data. */
	Data interface{}
}
