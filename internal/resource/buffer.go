package resource

import (
	"fmt"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// Buffer is a single VkBuffer bound to a suballocated memory region. Buffers
// are refcounted rather than owned outright: a command buffer that
// references a buffer holds a reference until its fence signals, so the
// frontend's Release call only queues the buffer for deferred destruction
// once the refcount reaches zero (component C7).
type Buffer struct {
	Handle      vk.Buffer
	Size        uint64
	Usage       restrack.BufferUsage
	DefaultMode restrack.UsageMode
	Region      *memalloc.UsedRegion

	refcount int32
}

// CreateBuffer allocates a VkBuffer of size bytes supporting usage, binding
// it into suballoc. The caller selects which per-memory-type SubAllocator
// to pass in (via memalloc.SelectMemoryType against the resource kind's
// tier request, e.g. memalloc.GPUBufferRequest for device-local buffers).
func CreateBuffer(device vk.Device, suballoc *memalloc.SubAllocator, size uint64, usage restrack.BufferUsage) (*Buffer, error) {
	mode, err := restrack.DefaultBufferMode(usage)
	if err != nil {
		return nil, fmt.Errorf("resource: CreateBuffer: %w", err)
	}

	var handle vk.Buffer
	createInfo := vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       bufferUsageToVk(usage),
		SharingMode: vk.SharingModeExclusive,
	}
	ret := vk.CreateBuffer(device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("resource: vkCreateBuffer failed: result %d", int32(ret))
	}

	var memReqs vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(device, handle, &memReqs)
	memReqs.Deref()

	region, err := suballoc.Bind(memalloc.MemoryRequirements{
		Size:           uint64(memReqs.Size),
		Alignment:      uint64(memReqs.Alignment),
		MemoryTypeBits: memReqs.MemoryTypeBits,
	}, false, memalloc.ResourceKindBuffer, nil)
	if err != nil {
		vk.DestroyBuffer(device, handle, nil)
		return nil, fmt.Errorf("resource: CreateBuffer: bind failed: %w", err)
	}

	ret = vk.BindBufferMemory(device, handle, region.Allocation.Memory, vk.DeviceSize(region.Offset))
	if ret != vk.Success {
		suballoc.Release(region)
		vk.DestroyBuffer(device, handle, nil)
		return nil, fmt.Errorf("resource: vkBindBufferMemory failed: result %d", int32(ret))
	}

	b := &Buffer{
		Handle:      handle,
		Size:        size,
		Usage:       usage,
		DefaultMode: mode,
		Region:      region,
		refcount:    1,
	}
	region.Owner = b
	return b, nil
}

// AddRef increments the buffer's reference count, called whenever a command
// buffer binds it.
func (b *Buffer) AddRef() { atomic.AddInt32(&b.refcount, 1) }

// Release decrements the reference count and reports whether it reached
// zero, meaning the buffer is safe to actually destroy.
func (b *Buffer) Release() bool {
	return atomic.AddInt32(&b.refcount, -1) == 0
}

// Destroy frees the underlying VkBuffer and its memory region. Callers must
// only invoke this once Release has returned true and the buffer's last use
// has retired (component C7's deferred-destruction queue enforces this).
func (b *Buffer) Destroy(device vk.Device, suballoc *memalloc.SubAllocator) {
	vk.DestroyBuffer(device, b.Handle, nil)
	suballoc.Release(b.Region)
}

// Refcount reports the buffer's current reference count. The defragmenter
// (component C8) uses this to skip a used region whose owner has already
// been released and is only waiting on the dispose queue to drain.
func (b *Buffer) Refcount() int32 { return atomic.LoadInt32(&b.refcount) }

// Relocate repoints b at a freshly bound VkBuffer, used by the defragmenter
// once it has copied b's contents into newHandle/newRegion. b's identity is
// preserved so outstanding frontend handles keep working unchanged.
func (b *Buffer) Relocate(newHandle vk.Buffer, newRegion *memalloc.UsedRegion) {
	b.Handle = newHandle
	b.Region = newRegion
	newRegion.Owner = b
}
