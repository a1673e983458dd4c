// Package headless is a backend that creates no GPU objects. It tracks every
// object like a real device does, records every context call and can be told
// to fail any operation, which makes it the backend of choice for tests and CI.
package headless

import (
	"fmt"
	"strings"
	"sync"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const BackendName = "headless"

func init() {
	metadata.RegisterBackend(BackendName, func() metadata.Backend {
		return New()
	})
}

// DefaultAdapters is what a fresh backend enumerates: a software rasterizer
// listed first and a capable discrete GPU.
func DefaultAdapters() []metadata.AdapterInfo {
	return []metadata.AdapterInfo{
		{
			Index:        0,
			Name:         "Microsoft Basic Render Driver",
			Type:         metadata.AdapterTypeSoftware,
			FeatureLevel: metadata.FeatureLevel12_0,
		},
		{
			Index:        1,
			Name:         "Headless Discrete GPU",
			Type:         metadata.AdapterTypeDiscrete,
			VendorID:     0x10de,
			DeviceID:     0x2684,
			VideoMemory:  8 << 30,
			FeatureLevel: metadata.FeatureLevel11_1,
		},
	}
}

type Backend struct {
	mu       sync.Mutex
	Adapters []metadata.AdapterInfo
	tracker  *metadata.Tracker
	failures map[string]error
	debug    *metadata.Handle
	devices  []*Device
}

func New() *Backend {
	return &Backend{
		Adapters: DefaultAdapters(),
		tracker:  metadata.NewTracker(),
		failures: make(map[string]error),
	}
}

func (b *Backend) Name() string { return BackendName }

// Tracker is the arena shared by every device of this backend.
func (b *Backend) Tracker() *metadata.Tracker { return b.tracker }

// FailOn makes every later call of op return err. A nil err clears it.
func (b *Backend) FailOn(op string, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err == nil {
		delete(b.failures, op)
		return
	}
	b.failures[op] = err
}

func (b *Backend) failure(op string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.failures[op]
}

// Devices returns every device created so far, released ones included.
func (b *Backend) Devices() []*Device {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*Device, len(b.devices))
	copy(out, b.devices)
	return out
}

func (b *Backend) EnumerateAdapters(window metadata.WindowHandle) ([]metadata.AdapterInfo, error) {
	if err := b.failure("EnumerateAdapters"); err != nil {
		return nil, err
	}
	out := make([]metadata.AdapterInfo, len(b.Adapters))
	copy(out, b.Adapters)
	return out, nil
}

func (b *Backend) CreateDevice(adapter metadata.AdapterInfo, config metadata.DeviceConfig) (metadata.Device, error) {
	if err := b.failure("CreateDevice"); err != nil {
		return nil, err
	}
	if adapter.FeatureLevel < config.MinFeatureLevel {
		return nil, fmt.Errorf("adapter %s supports feature level %s, %s required",
			adapter.Name, adapter.FeatureLevel, config.MinFeatureLevel)
	}
	if config.Debug {
		b.mu.Lock()
		if b.debug == nil {
			b.debug = b.tracker.Track(metadata.ResourceKindDebug, "debug layer", nil)
		}
		b.mu.Unlock()
	}
	d := &Device{
		backend: b,
		adapter: adapter,
		level:   adapter.FeatureLevel,
		debug:   config.Debug,
	}
	d.Handle = b.tracker.Track(metadata.ResourceKindDevice, adapter.Name, nil)
	d.context = newContext(d)

	b.mu.Lock()
	b.devices = append(b.devices, d)
	b.mu.Unlock()

	core.LogDebug("headless device created on %s (feature level %s)", adapter.Name, adapter.FeatureLevel)
	return d, nil
}

// Shutdown releases the debug layer. Anything else still alive is a leak and
// is reported before it is released.
func (b *Backend) Shutdown() {
	b.mu.Lock()
	debug := b.debug
	b.debug = nil
	b.mu.Unlock()
	debug.Release()

	if leaks := b.tracker.Report(); len(leaks) > 0 {
		core.LogWarn("headless backend shut down with %d live objects: %s", len(leaks), strings.Join(leaks, ", "))
		b.tracker.ReleaseAll()
	}
}
