package renderer

import (
	"strings"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

// DefaultAdapterDenylist names the software rasterizers that are never picked.
var DefaultAdapterDenylist = []string{
	"Microsoft Basic Render Driver",
	"llvmpipe",
	"SwiftShader",
}

// AdapterDenied reports whether adapter is a software adapter or its name
// contains any denylist entry, ignoring case.
func AdapterDenied(adapter metadata.AdapterInfo, denylist []string) bool {
	if adapter.Type == metadata.AdapterTypeSoftware {
		return true
	}
	name := strings.ToLower(adapter.Name)
	for _, d := range denylist {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(name, d) {
			return true
		}
	}
	return false
}

// SelectAdapter returns the first adapter, in enumeration order, that is not denied.
func SelectAdapter(adapters []metadata.AdapterInfo, denylist []string) (metadata.AdapterInfo, error) {
	for _, a := range adapters {
		if AdapterDenied(a, denylist) {
			core.LogDebug("skipping adapter %q (%s)", a.Name, a.Type)
			continue
		}
		return a, nil
	}
	return metadata.AdapterInfo{}, core.WrapError(core.ErrDeviceCreation, "no qualifying adapter among %d", len(adapters))
}
