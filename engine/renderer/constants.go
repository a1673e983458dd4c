package renderer

import (
	"encoding/binary"

	"github.com/spaghettifunk/anima-labs/engine/math"
)

const (
	// Constant buffer slots shared by every shader.
	SceneConstantsSlot uint32 = 0
	ViewConstantsSlot  uint32 = 1

	SceneConstantsSize = 80
	ViewConstantsSize  = 80
)

// SceneConstants is uploaded before every draw.
type SceneConstants struct {
	Model math.Mat4
	Tint  math.Vec4
}

// ViewConstants is uploaded once per frame.
type ViewConstants struct {
	ViewProjection math.Mat4
	CameraPosition math.Vec4
}

// Bytes is the little endian layout the shaders read. Row major matrices read
// as column major in WGSL, which turns row vector products into M * v.
func (c SceneConstants) Bytes() []byte {
	out, _ := binary.Append(make([]byte, 0, SceneConstantsSize), binary.LittleEndian, c)
	return out
}

func (c ViewConstants) Bytes() []byte {
	out, _ := binary.Append(make([]byte, 0, ViewConstantsSize), binary.LittleEndian, c)
	return out
}

// DecodeSceneConstants reads back what Bytes wrote.
func DecodeSceneConstants(b []byte) (SceneConstants, error) {
	var c SceneConstants
	_, err := binary.Decode(b, binary.LittleEndian, &c)
	return c, err
}

func DecodeViewConstants(b []byte) (ViewConstants, error) {
	var c ViewConstants
	_, err := binary.Decode(b, binary.LittleEndian, &c)
	return c, err
}
