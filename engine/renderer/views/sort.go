package views

import (
	"sort"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// CameraDepth is the camera-space z of the origin of model.
func CameraDepth(model, view math.Mat4) float32 {
	return model.Mul(view).Row(3).Z
}

// SortBackToFront fills in the depth of every item and orders them farthest
// first. Items at equal depth keep their relative order.
func SortBackToFront(items []metadata.DrawItem, view math.Mat4) {
	for i := range items {
		items[i].Depth = CameraDepth(items[i].Model, view)
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Depth > items[j].Depth
	})
}
