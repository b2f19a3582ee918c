package gpuvk

import (
	"fmt"
	"log"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/window"
)

// InstanceOptions configures instance creation. AppName/AppVersion are
// forwarded into VkApplicationInfo; Debug enables the Khronos validation
// layer and a VK_EXT_debug_report callback when both are available on the
// platform.
type InstanceOptions struct {
	AppName    string
	AppVersion uint32
	Debug      bool
}

// instanceExtensions lists the instance extensions available on the
// platform, mirroring the teacher's InstanceExtensions helper.
func instanceExtensions() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceExtensionProperties("", &count, nil)
	if isError(ret) {
		return nil, vkError("EnumerateInstanceExtensionProperties", ret, false)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateInstanceExtensionProperties("", &count, list)
	if isError(ret) {
		return nil, vkError("EnumerateInstanceExtensionProperties", ret, false)
	}
	names := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		names = append(names, vk.ToString(ext.ExtensionName[:]))
	}
	return names, nil
}

// validationLayers lists the instance validation layers available on the
// platform.
func validationLayers() ([]string, error) {
	var count uint32
	ret := vk.EnumerateInstanceLayerProperties(&count, nil)
	if isError(ret) {
		return nil, vkError("EnumerateInstanceLayerProperties", ret, false)
	}
	list := make([]vk.LayerProperties, count)
	ret = vk.EnumerateInstanceLayerProperties(&count, list)
	if isError(ret) {
		return nil, vkError("EnumerateInstanceLayerProperties", ret, false)
	}
	names := make([]string, 0, count)
	for _, layer := range list {
		layer.Deref()
		names = append(names, vk.ToString(layer.LayerName[:]))
	}
	return names, nil
}

// checkExisting intersects wanted against available, returning the subset
// present plus a count of anything requested but missing.
func checkExisting(available, wanted []string) (present []string, missing int) {
	set := make(map[string]bool, len(available))
	for _, a := range available {
		set[a] = true
	}
	for _, w := range wanted {
		if set[w] {
			present = append(present, w)
		} else {
			missing++
		}
	}
	return present, missing
}

const validationLayerName = "VK_LAYER_KHRONOS_validation"

// createInstance builds a VkInstance enabling win's required surface
// extensions plus, if opts.Debug is set and the platform supports it,
// VK_EXT_debug_report and the Khronos validation layer.
func createInstance(opts InstanceOptions, win window.Window) (vk.Instance, vk.DebugReportCallback, error) {
	available, err := instanceExtensions()
	if err != nil {
		return nil, nil, newGPUError(KindInit, "createInstance", err)
	}

	wanted := append([]string{}, win.InstanceExtensions()...)
	if opts.Debug {
		wanted = append(wanted, "VK_EXT_debug_report")
	}
	enabled, missing := checkExisting(available, wanted)
	if missing > 0 {
		log.Printf("gpuvk: warning: %d required instance extensions missing", missing)
	}

	var layers []string
	if opts.Debug {
		avail, err := validationLayers()
		if err != nil {
			return nil, nil, newGPUError(KindInit, "createInstance", err)
		}
		layers, _ = checkExisting(avail, []string{validationLayerName})
	}

	appName := opts.AppName
	if appName == "" {
		appName = "gpuvk application"
	}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:              vk.StructureTypeApplicationInfo,
			ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
			ApplicationVersion: opts.AppVersion,
			PApplicationName:   safeString(appName),
			PEngineName:        safeString("gpuvk"),
		},
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
		EnabledLayerCount:       uint32(len(layers)),
		PpEnabledLayerNames:     layers,
	}, nil, &instance)
	if isError(ret) {
		return nil, nil, newGPUError(KindInit, "createInstance", vkError("vkCreateInstance", ret, opts.Debug))
	}
	vk.InitInstance(instance)

	var debugCallback vk.DebugReportCallback
	if opts.Debug {
		ret := vk.CreateDebugReportCallback(instance, &vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: debugReportCallback,
		}, nil, &debugCallback)
		if isError(ret) {
			log.Printf("gpuvk: warning: failed to install debug report callback: result %d", int32(ret))
			debugCallback = nil
		}
	}

	return instance, debugCallback, nil
}

func debugReportCallback(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType,
	object uint64, location uint, messageCode int32, pLayerPrefix string,
	pMessage string, pUserData unsafe.Pointer) vk.Bool32 {

	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		log.Printf("gpuvk: VALIDATION ERROR [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		log.Printf("gpuvk: VALIDATION PERF [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		log.Printf("gpuvk: VALIDATION WARN [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	default:
		log.Printf("gpuvk: VALIDATION INFO [%s] %d: %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}

func safeString(s string) string {
	if len(s) == 0 || s[len(s)-1] != 0 {
		return s + "\x00"
	}
	return s
}

func destroyInstance(instance vk.Instance, debugCallback vk.DebugReportCallback) {
	if debugCallback != nil {
		vk.DestroyDebugReportCallback(instance, debugCallback, nil)
	}
	vk.DestroyInstance(instance, nil)
}

var errNoSuitableGPU = fmt.Errorf("gpuvk: no suitable Vulkan physical device found")
