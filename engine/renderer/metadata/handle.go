package metadata

import (
	"fmt"

	"github.com/spaghettifunk/anima-labs/engine/core"
)

type ResourceKind int

const (
	ResourceKindDevice ResourceKind = iota
	ResourceKindDeviceContext
	ResourceKindSwapchain
	ResourceKindBuffer
	ResourceKindTexture
	ResourceKindShaderResourceView
	ResourceKindRenderTargetView
	ResourceKindDepthStencilView
	ResourceKindShader
	ResourceKindSampler
	ResourceKindPipelineState
	ResourceKindDebug
	ResourceKindMax
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceKindDevice:
		return "device"
	case ResourceKindDeviceContext:
		return "device-context"
	case ResourceKindSwapchain:
		return "swapchain"
	case ResourceKindBuffer:
		return "buffer"
	case ResourceKindTexture:
		return "texture"
	case ResourceKindShaderResourceView:
		return "shader-resource-view"
	case ResourceKindRenderTargetView:
		return "render-target-view"
	case ResourceKindDepthStencilView:
		return "depth-stencil-view"
	case ResourceKindShader:
		return "shader"
	case ResourceKindSampler:
		return "sampler"
	case ResourceKindPipelineState:
		return "pipeline-state"
	case ResourceKindDebug:
		return "debug"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Handle is the owned reference to one device object. It lives in the arena of
// the Tracker that created it and releases the object exactly once.
type Handle struct {
	id       core.Identifier
	kind     ResourceKind
	label    string
	seq      uint64
	tracker  *Tracker
	destroy  func()
	released bool
}

func (h *Handle) ID() core.Identifier {
	if h == nil {
		return core.InvalidIdentifier
	}
	return h.id
}

func (h *Handle) Kind() ResourceKind {
	if h == nil {
		return ResourceKindMax
	}
	return h.kind
}

func (h *Handle) Label() string {
	if h == nil {
		return ""
	}
	return h.label
}

// Released reports whether Release already ran. A nil handle counts as released.
func (h *Handle) Released() bool {
	if h == nil {
		return true
	}
	if h.tracker == nil {
		return h.released
	}
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	return h.released
}

// Release destroys the underlying object and drops it from the arena.
// Calling it again, or on a nil handle, does nothing.
func (h *Handle) Release() {
	if h == nil {
		return
	}
	var destroy func()
	if h.tracker != nil {
		h.tracker.mu.Lock()
		if h.released {
			h.tracker.mu.Unlock()
			return
		}
		h.released = true
		delete(h.tracker.live, h.id)
		h.tracker.released[h.kind]++
		destroy = h.destroy
		h.tracker.mu.Unlock()
	} else {
		if h.released {
			return
		}
		h.released = true
		destroy = h.destroy
	}
	h.destroy = nil
	if destroy != nil {
		destroy()
	}
}

func (h *Handle) String() string {
	if h == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q [%s]", h.kind, h.label, core.ShortIdentifier(h.id))
}
