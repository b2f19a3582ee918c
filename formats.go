package gpuvk

import vk "github.com/vulkan-go/vulkan"

// vkTextureFormatTable maps every recognized TextureFormat (§6) to its
// VkFormat. Formats absent from this table (e.g. ASTC, which this backend
// does not yet map to a concrete VkFormat) report ok=false from
// ToVkTextureFormat rather than silently picking something close.
var vkTextureFormatTable = map[TextureFormat]vk.Format{
	TextureFormatA8Unorm:              vk.FormatR8Unorm,
	TextureFormatR8Unorm:              vk.FormatR8Unorm,
	TextureFormatR8G8Unorm:            vk.FormatR8g8Unorm,
	TextureFormatR8G8B8A8Unorm:        vk.FormatR8g8b8a8Unorm,
	TextureFormatR16Unorm:             vk.FormatR16Unorm,
	TextureFormatR16G16Unorm:          vk.FormatR16g16Unorm,
	TextureFormatR16G16B16A16Unorm:    vk.FormatR16g16b16a16Unorm,
	TextureFormatR10G10B10A2Unorm:     vk.FormatA2b10g10r10UnormPack32,
	TextureFormatB5G6R5Unorm:          vk.FormatR5g6b5UnormPack16,
	TextureFormatB5G5R5A1Unorm:        vk.FormatA1r5g5b5UnormPack16,
	TextureFormatB4G4R4A4Unorm:        vk.FormatB4g4r4a4UnormPack16,
	TextureFormatB8G8R8A8Unorm:        vk.FormatB8g8r8a8Unorm,
	TextureFormatBC1RGBAUnorm:         vk.FormatBc1RgbaUnormBlock,
	TextureFormatBC2Unorm:             vk.FormatBc2UnormBlock,
	TextureFormatBC3Unorm:             vk.FormatBc3UnormBlock,
	TextureFormatBC4Unorm:             vk.FormatBc4UnormBlock,
	TextureFormatBC5Unorm:             vk.FormatBc5UnormBlock,
	TextureFormatBC6HFloat:            vk.FormatBc6hSfloatBlock,
	TextureFormatBC6HUfloat:           vk.FormatBc6hUfloatBlock,
	TextureFormatBC7Unorm:             vk.FormatBc7UnormBlock,
	TextureFormatR8SNorm:              vk.FormatR8Snorm,
	TextureFormatR8G8SNorm:            vk.FormatR8g8Snorm,
	TextureFormatR8G8B8A8SNorm:        vk.FormatR8g8b8a8Snorm,
	TextureFormatR16SNorm:             vk.FormatR16Snorm,
	TextureFormatR16G16SNorm:          vk.FormatR16g16Snorm,
	TextureFormatR16G16B16A16SNorm:    vk.FormatR16g16b16a16Snorm,
	TextureFormatR16Sfloat:            vk.FormatR16Sfloat,
	TextureFormatR16G16Sfloat:         vk.FormatR16g16Sfloat,
	TextureFormatR16G16B16A16Sfloat:   vk.FormatR16g16b16a16Sfloat,
	TextureFormatR32Sfloat:            vk.FormatR32Sfloat,
	TextureFormatR32G32Sfloat:         vk.FormatR32g32Sfloat,
	TextureFormatR32G32B32A32Sfloat:   vk.FormatR32g32b32a32Sfloat,
	TextureFormatR8Uint:               vk.FormatR8Uint,
	TextureFormatR8G8Uint:             vk.FormatR8g8Uint,
	TextureFormatR8G8B8A8Uint:         vk.FormatR8g8b8a8Uint,
	TextureFormatR16Uint:              vk.FormatR16Uint,
	TextureFormatR16G16Uint:           vk.FormatR16g16Uint,
	TextureFormatR16G16B16A16Uint:     vk.FormatR16g16b16a16Uint,
	TextureFormatR8Int:                vk.FormatR8Sint,
	TextureFormatR8G8Int:              vk.FormatR8g8Sint,
	TextureFormatR8G8B8A8Int:          vk.FormatR8g8b8a8Sint,
	TextureFormatR16Int:               vk.FormatR16Sint,
	TextureFormatR16G16Int:            vk.FormatR16g16Sint,
	TextureFormatR16G16B16A16Int:      vk.FormatR16g16b16a16Sint,
	TextureFormatR8G8B8A8UnormSrgb:    vk.FormatR8g8b8a8Srgb,
	TextureFormatB8G8R8A8UnormSrgb:    vk.FormatB8g8r8a8Srgb,
	TextureFormatBC1RGBAUnormSrgb:     vk.FormatBc1RgbaSrgbBlock,
	TextureFormatBC2UnormSrgb:         vk.FormatBc2SrgbBlock,
	TextureFormatBC3UnormSrgb:         vk.FormatBc3SrgbBlock,
	TextureFormatBC7UnormSrgb:         vk.FormatBc7SrgbBlock,
	TextureFormatD16Unorm:             vk.FormatD16Unorm,
	TextureFormatD24Unorm:             vk.FormatX8D24UnormPack32,
	TextureFormatD32Sfloat:            vk.FormatD32Sfloat,
	TextureFormatD24UnormS8Uint:       vk.FormatD24UnormS8Uint,
	TextureFormatD32SfloatS8Uint:      vk.FormatD32SfloatS8Uint,
}

// ToVkTextureFormat resolves a TextureFormat to its VkFormat. ok is false
// for INVALID or any format this backend has no VkFormat mapping for
// (ASTC is in the public enum per §6 but not in this table; see DESIGN.md).
func ToVkTextureFormat(f TextureFormat) (vk.Format, bool) {
	vkFormat, ok := vkTextureFormatTable[f]
	return vkFormat, ok
}

func isDepthFormat(f TextureFormat) bool {
	switch f {
	case TextureFormatD16Unorm, TextureFormatD24Unorm, TextureFormatD32Sfloat,
		TextureFormatD24UnormS8Uint, TextureFormatD32SfloatS8Uint:
		return true
	default:
		return false
	}
}

func isStencilFormat(f TextureFormat) bool {
	return f == TextureFormatD24UnormS8Uint || f == TextureFormatD32SfloatS8Uint
}
