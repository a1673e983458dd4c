package core

import (
	"errors"
	"fmt"
)

var (
	// No qualifying adapter, or the device rejected the minimum feature level.
	ErrDeviceCreation = errors.New("device creation failed")
	// Any GPU object allocation failure.
	ErrResourceCreation = errors.New("resource creation failed")
	// Shader source failed to compile. The diagnostics are logged at debug level.
	ErrShaderCompile = errors.New("shader compilation failed")
	// Missing or malformed asset file.
	ErrAssetLoad = errors.New("asset load failed")
	// Any per-frame GPU call failure, present included.
	ErrRender = errors.New("render failed")
	// Surface resize failure.
	ErrResize = errors.New("resize failed")

	// The presentation surface went out of date and must be resized before the next frame.
	ErrSwapchainBooting = errors.New("swapchain resized or recreated, booting")
	ErrUnknown          = errors.New("unknown")
)

// WrapError attaches a formatted message to one of the sentinel errors above
// so callers can still match it with errors.Is.
func WrapError(sentinel error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}

// WrapErrorCause is WrapError with an underlying cause kept in the chain.
func WrapErrorCause(sentinel error, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return WrapError(sentinel, format, args...)
	}
	return fmt.Errorf("%w: %s: %w", sentinel, fmt.Sprintf(format, args...), cause)
}

// IsFatal reports whether err belongs to the engine taxonomy. Every member is fatal.
func IsFatal(err error) bool {
	for _, s := range []error{ErrDeviceCreation, ErrResourceCreation, ErrShaderCompile, ErrAssetLoad, ErrRender, ErrResize} {
		if errors.Is(err, s) {
			return true
		}
	}
	return false
}
