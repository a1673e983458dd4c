// Package vulkan runs the renderer on Vulkan through goki/vulkan. It exposes
// the immediate-context model of the metadata package on top of command
// buffers, render passes and descriptor sets.
package vulkan

import (
	"runtime"
	"strings"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/anima-labs/engine/core"
	"github.com/spaghettifunk/anima-labs/engine/renderer/metadata"
)

const (
	BackendName     = "vulkan"
	validationLayer = "VK_LAYER_KHRONOS_validation"
)

func init() {
	metadata.RegisterBackend(BackendName, func() metadata.Backend {
		return New()
	})
}

// SurfaceProvider is the part of the platform window Vulkan needs on top of
// its size.
type SurfaceProvider interface {
	metadata.WindowHandle
	RequiredInstanceExtensions() []string
	CreateWindowSurface(instance interface{}, allocator unsafe.Pointer) (uintptr, error)
	GetVulkanProcAddress() unsafe.Pointer
}

type Backend struct {
	// Validation enables the Khronos validation layer on the instance. It must
	// be set before the first EnumerateAdapters.
	Validation      bool
	ApplicationName string

	mu            sync.Mutex
	tracker       *metadata.Tracker
	window        SurfaceProvider
	instance      vk.Instance
	surface       vk.Surface
	validating    bool
	debugCallback vk.DebugReportCallback
	debug         *metadata.Handle
}

func New() *Backend {
	return &Backend{
		ApplicationName: "Anima Labs",
		tracker:         metadata.NewTracker(),
	}
}

func (b *Backend) Name() string { return BackendName }

func (b *Backend) Tracker() *metadata.Tracker { return b.tracker }

func (b *Backend) EnumerateAdapters(window metadata.WindowHandle) ([]metadata.AdapterInfo, error) {
	provider, ok := window.(SurfaceProvider)
	if !ok {
		return nil, core.WrapError(core.ErrDeviceCreation, "window %T cannot host a Vulkan surface", window)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.window != nil && b.window != provider {
		return nil, core.WrapError(core.ErrDeviceCreation, "backend is already bound to another window")
	}
	if b.instance == nil {
		if err := b.createInstance(provider); err != nil {
			return nil, err
		}
	}
	if b.surface == vk.NullSurface {
		ptr, err := provider.CreateWindowSurface(b.instance, nil)
		if err != nil {
			return nil, core.WrapErrorCause(core.ErrDeviceCreation, err, "window surface creation failed")
		}
		b.surface = vk.SurfaceFromPointer(ptr)
		b.window = provider
		core.LogDebug("Vulkan surface created.")
	}

	var count uint32
	if err := check(core.ErrDeviceCreation, vk.EnumeratePhysicalDevices(b.instance, &count, nil), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, core.WrapError(core.ErrDeviceCreation, "no devices which support Vulkan were found")
	}
	physical := make([]vk.PhysicalDevice, count)
	if err := check(core.ErrDeviceCreation, vk.EnumeratePhysicalDevices(b.instance, &count, physical), "vkEnumeratePhysicalDevices"); err != nil {
		return nil, err
	}

	var out []metadata.AdapterInfo
	for _, pd := range physical {
		pa, ok := queryAdapter(pd, b.surface)
		if !ok {
			continue
		}
		out = append(out, metadata.AdapterInfo{
			Index:        len(out),
			Name:         cString(pa.properties.DeviceName[:]),
			Type:         adapterType(pa.properties.DeviceType),
			VendorID:     pa.properties.VendorID,
			DeviceID:     pa.properties.DeviceID,
			VideoMemory:  pa.localMemory(),
			FeatureLevel: pa.featureLevel(),
			Handle:       pa,
		})
	}
	return out, nil
}

func (b *Backend) createInstance(provider SurfaceProvider) error {
	procAddr := provider.GetVulkanProcAddress()
	if procAddr == nil {
		return core.WrapError(core.ErrDeviceCreation, "GetInstanceProcAddress is nil")
	}
	vk.SetGetInstanceProcAddr(procAddr)
	if err := vk.Init(); err != nil {
		return core.WrapErrorCause(core.ErrDeviceCreation, err, "failed to initialize vulkan")
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(b.ApplicationName),
		PEngineName:        VulkanSafeString("Anima Engine"),
	}
	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	extensions := provider.RequiredInstanceExtensions()
	if runtime.GOOS == "darwin" {
		extensions = append(extensions, "VK_KHR_portability_enumeration", "VK_KHR_get_physical_device_properties2")
		createInfo.Flags |= 1
	}

	var layers []string
	if b.Validation {
		if instanceLayerAvailable(validationLayer) {
			layers = append(layers, validationLayer)
			extensions = append(extensions, vk.ExtDebugReportExtensionName)
			b.validating = true
		} else {
			core.LogWarn("validation requested but %s is not installed", validationLayer)
		}
	}
	core.LogDebug("instance extensions: %s", strings.Join(extensions, ", "))

	createInfo.EnabledExtensionCount = uint32(len(extensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(extensions)
	createInfo.EnabledLayerCount = uint32(len(layers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(layers)

	var instance vk.Instance
	if err := check(core.ErrDeviceCreation, vk.CreateInstance(&createInfo, nil, &instance), "vkCreateInstance"); err != nil {
		return err
	}
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return core.WrapErrorCause(core.ErrDeviceCreation, err, "vkInitInstance")
	}
	b.instance = instance
	core.LogInfo("Vulkan instance created (validation: %t).", b.validating)
	return nil
}

func instanceLayerAvailable(name string) bool {
	var count uint32
	if res := vk.EnumerateInstanceLayerProperties(&count, nil); res != vk.Success {
		return false
	}
	layers := make([]vk.LayerProperties, count)
	if res := vk.EnumerateInstanceLayerProperties(&count, layers); res != vk.Success {
		return false
	}
	for i := range layers {
		layers[i].Deref()
		if cString(layers[i].LayerName[:]) == name {
			return true
		}
	}
	return false
}

func (b *Backend) CreateDevice(adapter metadata.AdapterInfo, config metadata.DeviceConfig) (metadata.Device, error) {
	pa, ok := adapter.Handle.(*physicalAdapter)
	if !ok {
		return nil, core.WrapError(core.ErrDeviceCreation, "adapter %s was not enumerated by the vulkan backend", adapter.Name)
	}
	if adapter.FeatureLevel < config.MinFeatureLevel {
		return nil, core.WrapError(core.ErrDeviceCreation, "adapter %s supports feature level %s, %s required",
			adapter.Name, adapter.FeatureLevel, config.MinFeatureLevel)
	}
	if config.RequireAnisotropy && pa.features.SamplerAnisotropy == vk.False {
		return nil, core.WrapError(core.ErrDeviceCreation, "adapter %s has no anisotropic filtering", adapter.Name)
	}
	if config.Debug {
		b.enableDebug()
	}

	d, err := newDevice(b, pa, adapter, config)
	if err != nil {
		return nil, err
	}
	core.LogInfo("Vulkan device created on %s (feature level %s)", adapter.Name, adapter.FeatureLevel)
	return d, nil
}

// enableDebug installs the debug report callback once. It is the object that
// outlives every device and is released by Shutdown.
func (b *Backend) enableDebug() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.debug != nil {
		return
	}
	if !b.validating {
		core.LogWarn("debug device requested without the validation layer, set Validation before enumerating adapters")
		return
	}
	info := vk.DebugReportCallbackCreateInfo{
		SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
		Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
		PfnCallback: dbgCallbackFunc,
	}
	var cb vk.DebugReportCallback
	if res := vk.CreateDebugReportCallback(b.instance, &info, nil, &cb); res != vk.Success {
		core.LogError("vkCreateDebugReportCallback failed with %s", VulkanResultString(res))
		return
	}
	b.debugCallback = cb
	instance := b.instance
	b.debug = b.tracker.Track(metadata.ResourceKindDebug, "debug report callback", func() {
		vk.DestroyDebugReportCallback(instance, cb, nil)
	})
	core.LogDebug("Vulkan debugger created.")
}

// Shutdown releases the debug callback, anything leaked, the surface and the
// instance, in that order.
func (b *Backend) Shutdown() {
	b.mu.Lock()
	debug := b.debug
	b.debug = nil
	b.mu.Unlock()

	debug.Release()
	if leaks := b.tracker.Report(); len(leaks) > 0 {
		core.LogWarn("vulkan backend shut down with %d live objects: %s", len(leaks), strings.Join(leaks, ", "))
		b.tracker.ReleaseAll()
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.surface != vk.NullSurface {
		vk.DestroySurface(b.instance, b.surface, nil)
		b.surface = vk.NullSurface
	}
	if b.instance != nil {
		vk.DestroyInstance(b.instance, nil)
		b.instance = nil
	}
	b.window = nil
	core.LogDebug("Vulkan instance destroyed.")
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("performance [%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogDebug("[%s] code %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
