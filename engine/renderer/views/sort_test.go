package views

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/math"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

func item(name string, z float32) metadata.DrawItem {
	return metadata.DrawItem{Name: name, Model: math.NewMat4Translation(math.NewVec3(0, 0, z))}
}

func names(items []metadata.DrawItem) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.Name
	}
	return out
}

func TestSortBackToFrontIsDescendingAndStable(t *testing.T) {
	items := []metadata.DrawItem{
		item("a", 1),
		item("b", 5),
		item("c", 3),
		item("d", 5),
		item("e", 1),
		item("f", 3),
	}
	SortBackToFront(items, math.NewMat4Identity())

	assert.Equal(t, []string{"b", "d", "c", "f", "a", "e"}, names(items))
	for i := 1; i < len(items); i++ {
		assert.GreaterOrEqual(t, items[i-1].Depth, items[i].Depth)
	}
}

func TestSortUsesCameraSpaceDepth(t *testing.T) {
	// Camera at z = -8 looking down +z: view is the inverse of its transform.
	camera := math.NewMat4Translation(math.NewVec3(0, 0, -8))
	view := camera.Inverse()

	items := []metadata.DrawItem{item("near", -7), item("far", 4), item("mid", 0)}
	SortBackToFront(items, view)

	require.Equal(t, []string{"far", "mid", "near"}, names(items))
	assert.InDelta(t, 12, items[0].Depth, 1e-5)
	assert.InDelta(t, 1, items[2].Depth, 1e-5)
}

func TestSortedWorldViewMatchesLabScene(t *testing.T) {
	config := metadata.PassConfig{
		Name:     "transparent",
		Kind:     metadata.PassKindObjects,
		Pipeline: "transparent",
		Mesh:     "cube",
		Sort:     metadata.SortBackToFront,
		Objects: []metadata.ObjectConfig{
			{Name: "red-1", Position: math.NewVec3(-2.25, 0, -0.5)},
			{Name: "green-1", Position: math.NewVec3(-4.5, 0, 0.5)},
			{Name: "blue-1", Position: math.NewVec3(-4.5, 3, 0.5)},
			{Name: "red-2", Position: math.NewVec3(-7.25, 0, -0.5)},
			{Name: "green-2", Position: math.NewVec3(-4.5, 0, 3.5)},
			{Name: "blue-2", Position: math.NewVec3(-0.5, 3, 5.5)},
		},
	}
	view, err := New(config)
	require.NoError(t, err)

	camera := math.NewMat4Translation(math.NewVec3(0, 0, -8))
	frame := &metadata.FrameData{Model: math.NewMat4Identity(), View: camera.Inverse()}
	items, err := view.OnBuildPacket(frame)
	require.NoError(t, err)

	// Objects sharing z = -0.5 and z = 0.5 keep their listed order.
	assert.Equal(t, []string{"blue-2", "green-2", "green-1", "blue-1", "red-1", "red-2"}, names(items))
	for _, it := range items {
		assert.Equal(t, math.NewVec4(1, 1, 1, 1), it.Tint)
	}
}
