package resource

import (
	"fmt"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// UniformBufferSize is the fixed size of every pooled uniform buffer (§4.2).
const UniformBufferSize = 1024 * 1024

// UniformBuffer is a fixed-size, host-visible ring buffer used to stage
// push-uniform-data writes before a draw/dispatch call. writeOffset tracks
// the next free byte for PushUniformData; drawOffset is the offset bound
// into the descriptor set for the draw call currently being recorded. A
// command buffer acquires a fresh UniformBuffer whenever a push would
// overflow the current one (component C6's recording logic owns that
// policy; this type only exposes the offsets and the write itself).
type UniformBuffer struct {
	Buffer      *Buffer
	writeOffset uint64
	drawOffset  uint64
	drawSize    uint64
}

// AcquireUniformBuffer creates a new pooled uniform buffer backed by
// host-visible, host-coherent memory, persistently mapped so writes need no
// explicit flush call on coherent memory types.
func AcquireUniformBuffer(device vk.Device, suballoc *memalloc.SubAllocator) (*UniformBuffer, error) {
	buf, err := CreateBuffer(device, suballoc, UniformBufferSize, restrack.BufferUsage(0))
	if err != nil {
		return nil, fmt.Errorf("resource: AcquireUniformBuffer: %w", err)
	}
	if buf.Region.Allocation.MappedPtr == nil {
		return nil, fmt.Errorf("resource: AcquireUniformBuffer: backing allocation is not host-mapped")
	}
	return &UniformBuffer{Buffer: buf}, nil
}

// Remaining reports how many bytes remain before this buffer is exhausted.
func (u *UniformBuffer) Remaining() uint64 {
	return UniformBufferSize - u.writeOffset
}

// Push copies data into the buffer at the current write offset (rounded up
// to minUniformBufferOffsetAlignment by the caller before calling Push),
// advances writeOffset, and sets drawOffset to where the write began. It
// returns false without mutating state if data would overflow the buffer;
// the caller must then acquire a fresh UniformBuffer and retry.
func (u *UniformBuffer) Push(alignedOffset uint64, data []byte) bool {
	if alignedOffset+uint64(len(data)) > UniformBufferSize {
		return false
	}
	mapped := u.Buffer.Region.Allocation.MappedPtr
	base := u.Buffer.Region.Offset
	dst := unsafe.Slice((*byte)(unsafe.Add(mapped, base+alignedOffset)), len(data))
	copy(dst, data)
	u.drawOffset = alignedOffset
	u.drawSize = uint64(len(data))
	u.writeOffset = alignedOffset + uint64(len(data))
	return true
}

// DrawOffset returns the offset to bind for the draw call currently being
// recorded.
func (u *UniformBuffer) DrawOffset() uint64 { return u.drawOffset }

// DrawSize returns the byte range to bind alongside DrawOffset for the draw
// call currently being recorded.
func (u *UniformBuffer) DrawSize() uint64 { return u.drawSize }
