// Package resource implements the resource factory (component C2):
// buffers, textures, samplers, shaders, and pooled uniform buffers.
package resource

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// TextureFormat mirrors the frontend's public texture format enum (§6),
// re-declared here to avoid an import cycle with the root package.
type TextureFormat int

const (
	FormatInvalid TextureFormat = iota
	FormatR8G8B8A8Unorm
	FormatB8G8R8A8Unorm
	FormatR8Unorm
	FormatR16G16B16A16Float
	FormatR32G32B32A32Float
	FormatD16Unorm
	FormatD32Float
	FormatD24UnormS8Uint
	FormatD32FloatS8Uint
	FormatBC1RGBAUnorm
	FormatBC3RGBAUnorm
	FormatBC7RGBAUnorm
)

// vkFormatTable maps every supported TextureFormat to its VkFormat.
var vkFormatTable = map[TextureFormat]vk.Format{
	FormatR8G8B8A8Unorm:     vk.FormatR8g8b8a8Unorm,
	FormatB8G8R8A8Unorm:     vk.FormatB8g8r8a8Unorm,
	FormatR8Unorm:           vk.FormatR8Unorm,
	FormatR16G16B16A16Float: vk.FormatR16g16b16a16Sfloat,
	FormatR32G32B32A32Float: vk.FormatR32g32b32a32Sfloat,
	FormatD16Unorm:          vk.FormatD16Unorm,
	FormatD32Float:          vk.FormatD32Sfloat,
	FormatD24UnormS8Uint:    vk.FormatD24UnormS8Uint,
	FormatD32FloatS8Uint:    vk.FormatD32SfloatS8Uint,
	FormatBC1RGBAUnorm:      vk.FormatBc1RgbaUnormBlock,
	FormatBC3RGBAUnorm:      vk.FormatBc3UnormBlock,
	FormatBC7RGBAUnorm:      vk.FormatBc7UnormBlock,
}

// ToVkFormat resolves a TextureFormat to its VkFormat. ok is false for a
// format this backend does not support on any known device.
func ToVkFormat(f TextureFormat) (vk.Format, bool) {
	vf, ok := vkFormatTable[f]
	return vf, ok
}

// IsDepthFormat reports whether f carries a depth aspect.
func IsDepthFormat(f TextureFormat) bool {
	switch f {
	case FormatD16Unorm, FormatD32Float, FormatD24UnormS8Uint, FormatD32FloatS8Uint:
		return true
	default:
		return false
	}
}

// IsStencilFormat reports whether f carries a stencil aspect.
func IsStencilFormat(f TextureFormat) bool {
	switch f {
	case FormatD24UnormS8Uint, FormatD32FloatS8Uint:
		return true
	default:
		return false
	}
}

// AspectMask derives the VkImageAspectFlags for f, used both for the "full"
// view (which excludes stencil per §4.2) and for explicit depth/stencil-only
// views.
func AspectMask(f TextureFormat, includeStencil bool) vk.ImageAspectFlags {
	if !IsDepthFormat(f) {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	mask := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if includeStencil && IsStencilFormat(f) {
		mask |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return mask
}

// bufferUsageToVk maps the public restrack.BufferUsage bitmask onto Vulkan
// buffer usage bits. Transfer-src and transfer-dst are always included
// (§4.2): every buffer must support Upload/Download/Copy regardless of its
// declared usage.
func bufferUsageToVk(usage restrack.BufferUsage) vk.BufferUsageFlags {
	flags := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if usage&restrack.BufferUsageVertex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if usage&restrack.BufferUsageIndex != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if usage&restrack.BufferUsageIndirect != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageIndirectBufferBit)
	}
	if usage&(restrack.BufferUsageGraphicsStorageRead|restrack.BufferUsageComputeStorageRead|restrack.BufferUsageComputeStorageReadWrite) != 0 {
		flags |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	return flags
}

// textureUsageToVk maps the public restrack.TextureUsage bitmask onto
// Vulkan image usage bits, also always including transfer-src/dst.
func textureUsageToVk(usage restrack.TextureUsage) vk.ImageUsageFlags {
	flags := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	if usage&restrack.TextureUsageSampler != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&restrack.TextureUsageColorTarget != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if usage&restrack.TextureUsageDepthStencilTarget != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if usage&restrack.TextureUsageGraphicsStorageRead != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if usage&(restrack.TextureUsageComputeStorageRead|restrack.TextureUsageComputeStorageWrite|restrack.TextureUsageComputeSimultaneousReadWrite) != 0 {
		flags |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	return flags
}
