package memalloc

import (
	"sync"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"
)

// Allocation is a single VkDeviceMemory handle with its free/used region
// partition. Invariant: Σ Free.Size + Σ Used.Size == Size at all times
// outside a Bind call.
type Allocation struct {
	Memory          vk.DeviceMemory
	Size            uint64
	MemoryTypeIndex uint32
	MappedPtr       unsafe.Pointer // non-nil when host-visible; persistent map

	Free []FreeRegion
	Used []*UsedRegion

	// Available is false while the allocation is hidden from the
	// suballocator's free index because it has been picked as a defrag
	// source (§4.8).
	Available bool

	owner *SubAllocator

	// memoryLock serializes vkBindBufferMemory/vkBindImageMemory on this
	// VkDeviceMemory, which the Vulkan spec forbids calling concurrently
	// on the same device memory object.
	memoryLock sync.Mutex
}

// Lock acquires the allocation's per-allocation bind lock. Callers must
// respect the documented lock order: acquire -> allocator -> memory -> dispose.
func (a *Allocation) Lock() { a.memoryLock.Lock() }

// Unlock releases the per-allocation bind lock.
func (a *Allocation) Unlock() { a.memoryLock.Unlock() }

// FreeBytes returns the total bytes across all free regions.
func (a *Allocation) FreeBytes() uint64 {
	var total uint64
	for _, r := range a.Free {
		total += r.Size
	}
	return total
}

// FragmentCount reports how many free regions this allocation currently
// holds; the defragmenter targets allocations with >= 2.
func (a *Allocation) FragmentCount() int { return len(a.Free) }

// largestFree returns the index of the largest free region, or -1 if none.
func (a *Allocation) largestFree() int {
	best := -1
	for i, r := range a.Free {
		if best == -1 || r.Size > a.Free[best].Size {
			best = i
		}
	}
	return best
}
