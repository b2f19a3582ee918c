package memalloc

import (
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// mapPersistent maps the whole allocation once at creation time and leaves
// it mapped for the allocation's lifetime, per §3 "a persistent CPU map
// pointer (if host-visible)". Vulkan permits a single persistent map per
// VkDeviceMemory, which is exactly the granularity SubAllocator manages at.
func mapPersistent(device vk.Device, mem vk.DeviceMemory, size uint64) unsafe.Pointer {
	var ptr unsafe.Pointer
	ret := vk.MapMemory(device, mem, 0, vk.DeviceSize(size), 0, &ptr)
	if ret != vk.Success {
		return nil
	}
	return ptr
}
