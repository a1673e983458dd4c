package renderer

import (
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	BackendVulkan   = "vulkan"
	BackendHeadless = "headless"
)

// NewBackend returns the registered backend called name. Backend packages
// register themselves when imported.
func NewBackend(name string) (metadata.Backend, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = BackendVulkan
	}
	b := metadata.GetBackend(name)
	if b == nil {
		return nil, core.WrapError(core.ErrDeviceCreation, "renderer backend %q is not available (have %s)",
			name, strings.Join(metadata.AvailableBackends(), ", "))
	}
	core.LogInfo("using %s renderer backend", b.Name())
	return b, nil
}
