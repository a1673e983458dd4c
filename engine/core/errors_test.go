package core

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrapErrorKeepsSentinel(t *testing.T) {
	err := WrapError(ErrAssetLoad, "texture %q", "kitty.dds")
	assert.ErrorIs(t, err, ErrAssetLoad)
	assert.Contains(t, err.Error(), "kitty.dds")
	assert.True(t, IsFatal(err))
}

func TestWrapErrorCauseKeepsBoth(t *testing.T) {
	err := WrapErrorCause(ErrResourceCreation, io.ErrUnexpectedEOF, "vertex buffer")
	assert.ErrorIs(t, err, ErrResourceCreation)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)

	err = WrapErrorCause(ErrRender, nil, "present")
	assert.ErrorIs(t, err, ErrRender)
}

func TestIsFatalIgnoresForeignErrors(t *testing.T) {
	assert.False(t, IsFatal(errors.New("boom")))
	assert.False(t, IsFatal(ErrSwapchainBooting))
}

func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, LogLevelDebug, ParseLogLevel("DEBUG"))
	assert.Equal(t, LogLevelWarn, ParseLogLevel("warning"))
	assert.Equal(t, LogLevelError, ParseLogLevel("error"))
	assert.Equal(t, LogLevelInfo, ParseLogLevel("chatty"))
}
