package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMetricsAverageAndFPS(t *testing.T) {
	m := NewMetrics()
	sampled := false
	for i := 0; i < 70; i++ {
		if m.Update(1.0 / 60.0) {
			sampled = true
		}
	}
	assert.True(t, sampled)
	assert.InDelta(t, 1000.0/60.0, m.FrameTime(), 1e-6)
	assert.InDelta(t, 60, m.FPS(), 1)
}
