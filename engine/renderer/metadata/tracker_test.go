package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleReleaseIsIdempotent(t *testing.T) {
	tracker := NewTracker()
	destroyed := 0
	h := tracker.Track(ResourceKindBuffer, "scene constants", func() { destroyed++ })

	require.Equal(t, 1, tracker.Live())
	h.Release()
	h.Release()

	assert.Equal(t, 1, destroyed)
	assert.Equal(t, 0, tracker.Live())
	assert.True(t, h.Released())
	assert.Equal(t, uint64(1), tracker.Created(ResourceKindBuffer))
	assert.Equal(t, uint64(1), tracker.Released(ResourceKindBuffer))
}

func TestNilHandleRelease(t *testing.T) {
	var h *Handle
	assert.NotPanics(t, h.Release)
	assert.True(t, h.Released())

	var b *Buffer
	assert.NotPanics(t, b.Release)
}

func TestTrackerReportAndReleaseAllOrder(t *testing.T) {
	tracker := NewTracker()
	var order []string
	for _, name := range []string{"device", "swapchain", "view"} {
		name := name
		tracker.Track(ResourceKindTexture, name, func() { order = append(order, name) })
	}

	report := tracker.Report()
	require.Len(t, report, 3)
	assert.Contains(t, report[0], `"device"`)
	assert.Contains(t, report[2], `"view"`)
	assert.Equal(t, 3, tracker.LiveByKind(ResourceKindTexture))
	assert.Equal(t, 0, tracker.LiveByKind(ResourceKindSampler))

	tracker.ReleaseAll()
	assert.Equal(t, []string{"view", "swapchain", "device"}, order)
	assert.Equal(t, 0, tracker.Live())
}

func TestReleaseStackUnwindsInReverse(t *testing.T) {
	tracker := NewTracker()
	var order []string
	var stack ReleaseStack
	for _, name := range []string{"sphere", "cube", "sampler"} {
		name := name
		stack.Push(tracker.Track(ResourceKindBuffer, name, func() { order = append(order, name) }))
	}
	stack.Push(nil)
	require.Equal(t, 3, stack.Len())

	stack.ReleaseAll()
	assert.Equal(t, []string{"sampler", "cube", "sphere"}, order)
	assert.Equal(t, 0, stack.Len())
	assert.Equal(t, 0, tracker.Live())
}
