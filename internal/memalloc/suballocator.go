package memalloc

import (
	"fmt"
	"sort"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

const (
	smallRequestCeiling = 2 * 1024 * 1024  // 2 MiB — the small/large size-class split (§4.1)
	smallPageSize       = 16 * 1024 * 1024 // 16 MiB pages serve small requests
	largePageRound      = 64 * 1024 * 1024 // large requests round up to a 64 MiB page
)

// MemoryRequirements mirrors the subset of vk.MemoryRequirements the
// suballocator cares about, kept backend-agnostic so callers don't need to
// populate an entire Deref'd Vulkan struct to ask for a bind.
type MemoryRequirements struct {
	Size           uint64
	Alignment      uint64
	MemoryTypeBits uint32
}

// SubAllocator owns every Allocation for a single Vulkan memory-type index
// and the size-sorted index of free regions considered available for
// binding (component C1). One SubAllocator exists per memory-type index, up
// to vk.MaxMemoryTypes.
type SubAllocator struct {
	// allocatorLock guards everything below: the allocation list, each
	// allocation's free/used regions, and allocationsToDefrag.
	mu sync.Mutex

	device          vk.Device
	memoryTypeIndex uint32
	hostVisible     bool

	allocations []*Allocation

	// allocationsToDefrag holds allocations the defragmenter has claimed;
	// they are removed from allocation scanning (availableForAllocation is
	// false) until the defrag command buffer completes.
	allocationsToDefrag []*Allocation
	defragInProgress    bool
}

// NewSubAllocator creates an empty suballocator bound to a single Vulkan
// memory-type index.
func NewSubAllocator(device vk.Device, memoryTypeIndex uint32, hostVisible bool) *SubAllocator {
	return &SubAllocator{
		device:          device,
		memoryTypeIndex: memoryTypeIndex,
		hostVisible:     hostVisible,
	}
}

func pageSizeFor(requiredSize uint64) uint64 {
	if requiredSize <= smallRequestCeiling {
		return smallPageSize
	}
	return ceilAlign(requiredSize, largePageRound)
}

// freeIndexEntry is one row of the size-sorted free-region index: a pointer
// back to the owning allocation plus the index of the region within it.
type freeIndexEntry struct {
	alloc    *Allocation
	regionAt int
	size     uint64
}

// sortedFreeIndex rebuilds the free-region index across every "available"
// allocation, sorted largest-to-smallest. Rebuilding on every Bind call
// trades allocator throughput for simplicity.
// TODO: maintain this incrementally (e.g. as a max-heap) instead of
// resorting the whole index on every bind.
func (sa *SubAllocator) sortedFreeIndex() []freeIndexEntry {
	var idx []freeIndexEntry
	for _, a := range sa.allocations {
		if !a.Available {
			continue
		}
		for i, r := range a.Free {
			idx = append(idx, freeIndexEntry{alloc: a, regionAt: i, size: r.Size})
		}
	}
	sort.Slice(idx, func(i, j int) bool { return idx[i].size > idx[j].size })
	return idx
}

// Bind finds or creates room for a resource requiring the given Vulkan
// memory requirements and returns the UsedRegion covering it. dedicated
// requests skip the shared free-region scan and always get their own
// Allocation sized exactly to the request (large textures/dedicated
// buffers).
func (sa *SubAllocator) Bind(req MemoryRequirements, dedicated bool, kind ResourceKind, owner interface{}) (*UsedRegion, error) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	if dedicated {
		alloc, err := sa.createAllocation(req.Size)
		if err != nil {
			return nil, err
		}
		return sa.carveFrom(alloc, 0, req, kind, owner)
	}

	for _, entry := range sa.sortedFreeIndex() {
		region := entry.alloc.Free[entry.regionAt]
		alignedOffset := ceilAlign(region.Offset, req.Alignment)
		if alignedOffset+req.Size > region.Offset+region.Size {
			continue
		}
		return sa.carveFrom(entry.alloc, entry.regionAt, req, kind, owner)
	}

	pageSize := pageSizeFor(req.Size)
	alloc, err := sa.createAllocation(pageSize)
	if err != nil {
		// No room for a fresh page. If a defrag pass isn't already
		// running, mark fragmented allocations as defrag targets so the
		// next bind (post-defrag) has a chance of succeeding.
		if !sa.defragInProgress {
			sa.markAllocationsForDefrag()
		}
		return nil, fmt.Errorf("memalloc: bind failed for %d bytes in memory type %d: %w", req.Size, sa.memoryTypeIndex, err)
	}
	return sa.carveFrom(alloc, 0, req, kind, owner)
}

// carveFrom splits the free region at regionAt within alloc to produce a
// UsedRegion for req, per the region math in §4.1: the used region covers
// [region.Offset, alignedOffset+req.Size), so leading alignment padding is
// charged to the used region, not left as a separate tiny free region.
func (sa *SubAllocator) carveFrom(alloc *Allocation, regionAt int, req MemoryRequirements, kind ResourceKind, owner interface{}) (*UsedRegion, error) {
	region := alloc.Free[regionAt]
	alignedOffset := ceilAlign(region.Offset, req.Alignment)
	usedEnd := alignedOffset + req.Size
	alloc.removeFreeAt(regionAt)

	if trailing := (region.Offset + region.Size) - usedEnd; trailing > 0 {
		alloc.insertFree(FreeRegion{Offset: usedEnd, Size: trailing})
	}

	used := &UsedRegion{
		Offset:     region.Offset,
		Size:       usedEnd - region.Offset,
		Kind:       kind,
		Owner:      owner,
		Allocation: alloc,
	}
	alloc.Used = append(alloc.Used, used)
	return used, nil
}

// Release returns a UsedRegion's bytes to its allocation's free list,
// coalescing with adjacent free regions, and reclaims the allocation
// entirely once it holds no more used regions.
func (sa *SubAllocator) Release(region *UsedRegion) {
	sa.mu.Lock()
	defer sa.mu.Unlock()

	alloc := region.Allocation
	for i, u := range alloc.Used {
		if u == region {
			alloc.Used[i] = alloc.Used[len(alloc.Used)-1]
			alloc.Used = alloc.Used[:len(alloc.Used)-1]
			break
		}
	}
	alloc.insertFree(FreeRegion{Offset: region.Offset, Size: region.Size})

	if len(alloc.Used) == 0 {
		sa.destroyAllocation(alloc)
	}
}

func (sa *SubAllocator) createAllocation(size uint64) (*Allocation, error) {
	var mem vk.DeviceMemory
	ret := vk.AllocateMemory(sa.device, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  vk.DeviceSize(size),
		MemoryTypeIndex: sa.memoryTypeIndex,
	}, nil, &mem)
	if ret != vk.Success {
		return nil, fmt.Errorf("vkAllocateMemory: result %d", int32(ret))
	}

	alloc := &Allocation{
		Memory:          mem,
		Size:            size,
		MemoryTypeIndex: sa.memoryTypeIndex,
		Available:       true,
		owner:           sa,
		Free:            []FreeRegion{{Offset: 0, Size: size}},
	}

	if sa.hostVisible {
		alloc.MappedPtr = mapPersistent(sa.device, mem, size)
	}

	sa.allocations = append(sa.allocations, alloc)
	return alloc, nil
}

func (sa *SubAllocator) destroyAllocation(alloc *Allocation) {
	for i, a := range sa.allocations {
		if a == alloc {
			sa.allocations[i] = sa.allocations[len(sa.allocations)-1]
			sa.allocations = sa.allocations[:len(sa.allocations)-1]
			break
		}
	}
	if alloc.MappedPtr != nil {
		vk.UnmapMemory(sa.device, alloc.Memory)
	}
	vk.FreeMemory(sa.device, alloc.Memory, nil)
}

// AllocationCount reports the number of live allocations, for tests and
// diagnostics.
func (sa *SubAllocator) AllocationCount() int {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return len(sa.allocations)
}

// Destroy frees every VkDeviceMemory this sub-allocator still owns. Callers
// must ensure every resource bound against it has already been released;
// this is a device-teardown operation, not a reclaim-on-demand one.
func (sa *SubAllocator) Destroy() {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	for _, alloc := range sa.allocations {
		if alloc.MappedPtr != nil {
			vk.UnmapMemory(sa.device, alloc.Memory)
		}
		vk.FreeMemory(sa.device, alloc.Memory, nil)
	}
	sa.allocations = nil
}
