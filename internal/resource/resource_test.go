package resource

import (
	"testing"
	"unsafe"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

func TestBufferUsageToVkAlwaysIncludesTransfer(t *testing.T) {
	flags := bufferUsageToVk(restrack.BufferUsage(0))
	if flags&vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit) == 0 {
		t.Fatalf("every buffer must support transfer-src regardless of declared usage")
	}
	if flags&vk.BufferUsageFlags(vk.BufferUsageTransferDstBit) == 0 {
		t.Fatalf("every buffer must support transfer-dst regardless of declared usage")
	}
}

func TestTextureUsageToVkAlwaysIncludesTransfer(t *testing.T) {
	flags := textureUsageToVk(restrack.TextureUsage(0))
	if flags&vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit) == 0 {
		t.Fatalf("every texture must support transfer-src regardless of declared usage")
	}
	if flags&vk.ImageUsageFlags(vk.ImageUsageTransferDstBit) == 0 {
		t.Fatalf("every texture must support transfer-dst regardless of declared usage")
	}
}

func TestAspectMaskExcludesStencilFromFullView(t *testing.T) {
	mask := AspectMask(FormatD24UnormS8Uint, false)
	if mask&vk.ImageAspectFlags(vk.ImageAspectStencilBit) != 0 {
		t.Fatalf("full view must exclude the stencil aspect even for combined depth/stencil formats")
	}
	if mask&vk.ImageAspectFlags(vk.ImageAspectDepthBit) == 0 {
		t.Fatalf("depth aspect must still be present")
	}
}

func TestAspectMaskIncludesStencilWhenRequested(t *testing.T) {
	mask := AspectMask(FormatD24UnormS8Uint, true)
	if mask&vk.ImageAspectFlags(vk.ImageAspectStencilBit) == 0 {
		t.Fatalf("stencil-only subresource view must include the stencil aspect")
	}
}

func TestAspectMaskColorFormatIsColorOnly(t *testing.T) {
	mask := AspectMask(FormatR8G8B8A8Unorm, true)
	if mask != vk.ImageAspectFlags(vk.ImageAspectColorBit) {
		t.Fatalf("color format must report only the color aspect, got %#x", mask)
	}
}

func TestBufferRefcountTracksAddRefAndRelease(t *testing.T) {
	b := &Buffer{refcount: 1}
	b.AddRef()
	if b.Refcount() != 2 {
		t.Fatalf("expected refcount 2 after AddRef, got %d", b.Refcount())
	}
	if b.Release() {
		t.Fatalf("Release must report false while references remain")
	}
	if !b.Release() {
		t.Fatalf("Release must report true once the refcount reaches zero")
	}
	if b.Refcount() != 0 {
		t.Fatalf("expected refcount 0 after matching Release calls, got %d", b.Refcount())
	}
}

func TestBufferRelocatePreservesIdentityAndRepointsRegion(t *testing.T) {
	b := &Buffer{Handle: vk.Buffer(1), Region: &memalloc.UsedRegion{}, refcount: 1}
	newRegion := &memalloc.UsedRegion{Offset: 64}
	b.Relocate(vk.Buffer(2), newRegion)

	if b.Handle != vk.Buffer(2) {
		t.Fatalf("Relocate must repoint Handle, got %v", b.Handle)
	}
	if b.Region != newRegion {
		t.Fatalf("Relocate must repoint Region to the new region")
	}
	if newRegion.Owner != b {
		t.Fatalf("Relocate must set the new region's Owner back to b, so defrag recognizes it on a later pass")
	}
}

func TestUniformBufferPushSetsDrawOffsetAndSize(t *testing.T) {
	backing := make([]byte, 512)
	region := &memalloc.UsedRegion{
		Allocation: &memalloc.Allocation{MappedPtr: unsafe.Pointer(&backing[0])},
	}
	u := &UniformBuffer{Buffer: &Buffer{Region: region}}
	data := make([]byte, 48)
	if ok := u.Push(256, data); !ok {
		t.Fatalf("Push of a well-formed write must succeed")
	}
	if u.DrawOffset() != 256 {
		t.Fatalf("DrawOffset() = %d, want 256", u.DrawOffset())
	}
	if u.DrawSize() != 48 {
		t.Fatalf("DrawSize() = %d, want 48", u.DrawSize())
	}
}

func TestUniformBufferPushRejectsOverflow(t *testing.T) {
	u := &UniformBuffer{Buffer: &Buffer{}}
	ok := u.Push(UniformBufferSize-10, make([]byte, 64))
	if ok {
		t.Fatalf("Push must reject writes that would overflow the fixed-size uniform buffer")
	}
	if u.writeOffset != 0 {
		t.Fatalf("a rejected Push must not mutate writeOffset")
	}
}
