package assets

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer"
)

func TestJobSystemRunsEveryJob(t *testing.T) {
	js, err := NewJobSystem(4, 8)
	require.NoError(t, err)

	var done, failed atomic.Int32
	for i := 0; i < 20; i++ {
		js.Submit(Job{
			Name: "count",
			OnStart: func() (interface{}, error) {
				if i%5 == 0 {
					return nil, errors.New("fail")
				}
				return i, nil
			},
			OnComplete: func(interface{}) { done.Add(1) },
			OnFailure:  func(error) { failed.Add(1) },
		})
	}
	js.Shutdown()
	assert.Equal(t, int32(16), done.Load())
	assert.Equal(t, int32(4), failed.Load())
}

func TestJobSystemRejectsBadSizes(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestPreloadHandsOutEachTextureOnce(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), false)
	require.NoError(t, err)
	defer am.Shutdown()

	require.NoError(t, am.Preload([]string{"kitty", renderer.TextureSkybox, "KITTY"}))
	first, ok := am.takePreloaded("kitty")
	require.True(t, ok)
	assert.Equal(t, uint32(4), first.Desc.Width)
	_, ok = am.takePreloaded("kitty")
	assert.False(t, ok)

	sky, err := am.Texture(renderer.TextureSkybox)
	require.NoError(t, err)
	assert.True(t, sky.Desc.Cube)
}

func TestPreloadReportsMissingTexture(t *testing.T) {
	am, err := NewAssetManager(writeAssetTree(t), false)
	require.NoError(t, err)
	defer am.Shutdown()

	err = am.Preload([]string{"kitty", "nope"})
	assert.ErrorIs(t, err, core.ErrAssetLoad)
}
