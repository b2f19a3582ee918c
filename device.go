package gpuvk

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/cmdengine"
	"github.com/kestrelgpu/gpuvk/internal/descriptor"
	"github.com/kestrelgpu/gpuvk/internal/dispose"
	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/passcache"
	"github.com/kestrelgpu/gpuvk/internal/resource"
	"github.com/kestrelgpu/gpuvk/internal/swapchain"
	"github.com/kestrelgpu/gpuvk/window"
)

// DeviceOptions configures GPUDevice creation.
type DeviceOptions struct {
	InstanceOptions
	// PreferredDeviceIndex selects which enumerated GPU to use; -1 (or any
	// out-of-range index) picks the first enumerated device, matching the
	// teacher's "multiple GPUs not supported yet" simplification.
	PreferredDeviceIndex int
	// AllowedFramesInFlight bounds how many frames each claimed window
	// paces itself against: the size of its acquire/present semaphore
	// ring and a floor on its swapchain image count (§4.9). Zero defaults
	// to 2 (double-buffered), matching the teacher's platform ring.
	AllowedFramesInFlight int
}

// GPUDevice is the root handle the frontend operates on: the Vulkan
// instance/device/queue plus every backend component (C1-C9) wired
// together. It is the type-erased "driver" §4.10 describes, minus the
// vtable indirection — Go interfaces at the package boundary serve that
// role instead.
type GPUDevice struct {
	instance       vk.Instance
	debugCallback  vk.DebugReportCallback
	physicalDevice vk.PhysicalDevice
	device         vk.Device
	queue          vk.Queue
	queueFamily    uint32

	memProps  vk.PhysicalDeviceMemoryProperties
	gpuProps  vk.PhysicalDeviceProperties
	warnOnce  memalloc.WarnOnce

	gpuAllocators     map[uint32]*memalloc.SubAllocator
	uniformAllocators map[uint32]*memalloc.SubAllocator
	transferAllocators map[uint32]*memalloc.SubAllocator
	textureAllocators map[uint32]*memalloc.SubAllocator
	allocMu           sync.Mutex

	Dispose     *dispose.Queue
	Layouts     *descriptor.LayoutTable
	RenderPasses *passcache.RenderPassCache
	Framebuffers *passcache.FramebufferCache
	ResourceLayouts *passcache.ResourceLayoutCache
	Pipelines   *passcache.PipelineCache
	Engine      *cmdengine.Engine
	Swapchains  *swapchain.Manager

	// acquireUniformBufferLock guards the pool of spare uniform buffers
	// handed out when a command buffer's current one overflows (§5).
	uniformMu   sync.Mutex
	uniformPool []*resource.UniformBuffer

	debug bool
}

// NewDevice brings up a complete Vulkan instance/device and every backend
// component, mirroring the teacher's NewPlatform flow: select instance
// extensions/layers, create the instance, pick a GPU, select a queue family,
// create the logical device, then construct the caches and engines that sit
// on top of it.
func NewDevice(opts DeviceOptions, win window.Window) (*GPUDevice, error) {
	instance, debugCallback, err := createInstance(opts.InstanceOptions, win)
	if err != nil {
		return nil, err
	}

	gpu, queueFamily, err := selectPhysicalDevice(instance, opts.PreferredDeviceIndex)
	if err != nil {
		destroyInstance(instance, debugCallback)
		return nil, newGPUError(KindInit, "NewDevice", err)
	}

	var gpuProps vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(gpu, &gpuProps)
	gpuProps.Deref()

	var memProps vk.PhysicalDeviceMemoryProperties
	vk.GetPhysicalDeviceMemoryProperties(gpu, &memProps)
	memProps.Deref()

	device, queue, err := createLogicalDevice(gpu, queueFamily)
	if err != nil {
		destroyInstance(instance, debugCallback)
		return nil, newGPUError(KindInit, "NewDevice", err)
	}

	d := &GPUDevice{
		instance:       instance,
		debugCallback:  debugCallback,
		physicalDevice: gpu,
		device:         device,
		queue:          queue,
		queueFamily:    queueFamily,
		memProps:       memProps,
		gpuProps:       gpuProps,
		debug:          opts.Debug,

		gpuAllocators:      make(map[uint32]*memalloc.SubAllocator),
		uniformAllocators:  make(map[uint32]*memalloc.SubAllocator),
		transferAllocators: make(map[uint32]*memalloc.SubAllocator),
		textureAllocators:  make(map[uint32]*memalloc.SubAllocator),

		Dispose: dispose.New(),
	}

	d.Layouts = descriptor.NewLayoutTable(device)
	d.RenderPasses = passcache.NewRenderPassCache(device)
	d.Framebuffers = passcache.NewFramebufferCache(device)
	d.ResourceLayouts = passcache.NewResourceLayoutCache(device)

	pipelines, err := passcache.NewPipelineCache(device)
	if err != nil {
		d.Destroy()
		return nil, newGPUError(KindInit, "NewDevice", err)
	}
	d.Pipelines = pipelines

	d.Engine = cmdengine.NewEngine(device, queueFamily, queue, d.Layouts)
	d.Swapchains = swapchain.NewManager(instance, gpu, device, opts.AllowedFramesInFlight)

	return d, nil
}

// selectPhysicalDevice enumerates physical devices, takes the first (or
// opts-preferred) one, and returns its first queue family with both
// GRAPHICS and COMPUTE bits, mirroring the teacher's single-queue-family
// search in platform.go. Other devices are not tried when the chosen one
// has no such family, and presentation support is not checked.
func selectPhysicalDevice(instance vk.Instance, preferredIndex int) (vk.PhysicalDevice, uint32, error) {
	var gpuCount uint32
	ret := vk.EnumeratePhysicalDevices(instance, &gpuCount, nil)
	if isError(ret) || gpuCount == 0 {
		return nil, 0, errNoSuitableGPU
	}
	gpus := make([]vk.PhysicalDevice, gpuCount)
	ret = vk.EnumeratePhysicalDevices(instance, &gpuCount, gpus)
	if isError(ret) {
		return nil, 0, errNoSuitableGPU
	}

	idx := 0
	if preferredIndex >= 0 && preferredIndex < int(gpuCount) {
		idx = preferredIndex
	}
	gpu := gpus[idx]

	var queueCount uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, nil)
	queueProps := make([]vk.QueueFamilyProperties, queueCount)
	vk.GetPhysicalDeviceQueueFamilyProperties(gpu, &queueCount, queueProps)

	required := vk.QueueFlags(vk.QueueGraphicsBit | vk.QueueComputeBit)
	for i := uint32(0); i < queueCount; i++ {
		queueProps[i].Deref()
		if queueProps[i].QueueFlags&required == required {
			return gpu, i, nil
		}
	}
	return nil, 0, fmt.Errorf("gpuvk: no queue family with combined graphics+compute support")
}

// createLogicalDevice creates a single-queue VkDevice on queueFamily.
func createLogicalDevice(gpu vk.PhysicalDevice, queueFamily uint32) (vk.Device, vk.Queue, error) {
	enabled, err := deviceExtensions(gpu, []string{"VK_KHR_swapchain"})
	if err != nil {
		return nil, nil, err
	}

	queueInfos := []vk.DeviceQueueCreateInfo{{
		SType:            vk.StructureTypeDeviceQueueCreateInfo,
		QueueFamilyIndex: queueFamily,
		QueueCount:       1,
		PQueuePriorities: []float32{1.0},
	}}

	var device vk.Device
	ret := vk.CreateDevice(gpu, &vk.DeviceCreateInfo{
		SType:                   vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount:    uint32(len(queueInfos)),
		PQueueCreateInfos:       queueInfos,
		EnabledExtensionCount:   uint32(len(enabled)),
		PpEnabledExtensionNames: enabled,
	}, nil, &device)
	if isError(ret) {
		return nil, nil, vkError("vkCreateDevice", ret, false)
	}

	var queue vk.Queue
	vk.GetDeviceQueue(device, queueFamily, 0, &queue)
	return device, queue, nil
}

func deviceExtensions(gpu vk.PhysicalDevice, wanted []string) ([]string, error) {
	var count uint32
	ret := vk.EnumerateDeviceExtensionProperties(gpu, "", &count, nil)
	if isError(ret) {
		return nil, vkError("EnumerateDeviceExtensionProperties", ret, false)
	}
	list := make([]vk.ExtensionProperties, count)
	ret = vk.EnumerateDeviceExtensionProperties(gpu, "", &count, list)
	if isError(ret) {
		return nil, vkError("EnumerateDeviceExtensionProperties", ret, false)
	}
	available := make([]string, 0, count)
	for _, ext := range list {
		ext.Deref()
		available = append(available, vk.ToString(ext.ExtensionName[:]))
	}
	enabled, _ := checkExisting(available, wanted)
	return enabled, nil
}

// allocatorFor lazily creates the per-memory-type SubAllocator for
// typeIndex, caching it so every resource bound to the same type shares one
// sub-allocator's free-region index (§3 SubAllocator: "one per
// memory-type-index").
func (d *GPUDevice) allocatorFor(bucket map[uint32]*memalloc.SubAllocator, typeIndex uint32, hostVisible bool) *memalloc.SubAllocator {
	d.allocMu.Lock()
	defer d.allocMu.Unlock()
	if a, ok := bucket[typeIndex]; ok {
		return a
	}
	a := memalloc.NewSubAllocator(d.device, typeIndex, hostVisible)
	bucket[typeIndex] = a
	return a
}

// Destroy waits for the device to go idle, then tears down every backend
// component in reverse dependency order and destroys the logical
// device/instance.
func (d *GPUDevice) Destroy() {
	if d.device != nil {
		vk.DeviceWaitIdle(d.device)
	}
	if d.Engine != nil {
		d.Engine.Destroy()
	}
	if d.Pipelines != nil {
		d.Pipelines.Destroy()
	}
	if d.ResourceLayouts != nil {
		d.ResourceLayouts.Destroy()
	}
	if d.Framebuffers != nil {
		d.Framebuffers.Destroy()
	}
	if d.RenderPasses != nil {
		d.RenderPasses.Destroy()
	}
	if d.Layouts != nil {
		d.Layouts.Destroy()
	}
	for _, bucket := range []map[uint32]*memalloc.SubAllocator{d.gpuAllocators, d.uniformAllocators, d.transferAllocators, d.textureAllocators} {
		for _, a := range bucket {
			a.Destroy()
		}
	}
	if d.device != nil {
		vk.DestroyDevice(d.device, nil)
	}
	destroyInstance(d.instance, d.debugCallback)
}
