// Package swapchain implements swapchain lifecycle management (component
// C9): per-window swapchain creation/recreation, image acquisition with the
// zero-extent "try again" sentinel, and present-time composition/format
// selection.
package swapchain

import vk "github.com/vulkan-go/vulkan"

// Composition mirrors the frontend's SwapchainComposition enum, redeclared
// here to avoid an import cycle with the root package.
type Composition int

const (
	CompositionSDR Composition = iota
	CompositionSDRLinear
	CompositionHDRExtendedLinear
	CompositionHDR10ST2084
)

// formatCandidate is one (format, colorspace) pair acceptable for a given
// Composition, in descending preference order.
type formatCandidate struct {
	Format     vk.Format
	ColorSpace vk.ColorSpace
}

var compositionTable = map[Composition][]formatCandidate{
	CompositionSDR: {
		{vk.FormatB8g8r8a8Unorm, vk.ColorSpaceSrgbNonlinear},
		{vk.FormatR8g8b8a8Unorm, vk.ColorSpaceSrgbNonlinear},
	},
	CompositionSDRLinear: {
		{vk.FormatB8g8r8a8Srgb, vk.ColorSpaceSrgbNonlinear},
		{vk.FormatR8g8b8a8Srgb, vk.ColorSpaceSrgbNonlinear},
	},
	CompositionHDRExtendedLinear: {
		{vk.FormatR16g16b16a16Sfloat, vk.ColorSpace(1000104002)}, // VK_COLOR_SPACE_EXTENDED_SRGB_LINEAR_EXT
	},
	CompositionHDR10ST2084: {
		{vk.FormatA2b10g10r10UnormPack32, vk.ColorSpace(1000104008)}, // VK_COLOR_SPACE_HDR10_ST2084_EXT
	},
}

// SelectSurfaceFormat picks the first candidate in comp's preference list
// present in available, per §4.9. ok is false if the surface supports none
// of them, meaning ClaimWindow must fail for that composition.
func SelectSurfaceFormat(comp Composition, available []vk.SurfaceFormat) (vk.SurfaceFormat, bool) {
	for _, cand := range compositionTable[comp] {
		for _, sf := range available {
			if sf.Format == cand.Format && sf.ColorSpace == cand.ColorSpace {
				return sf, true
			}
		}
	}
	return vk.SurfaceFormat{}, false
}

// SelectPresentMode maps the frontend's requested present mode onto a
// VkPresentModeKHR, falling back to FIFO (always supported) if the
// requested mode is unavailable.
func SelectPresentMode(wantMailbox, wantImmediate bool, available []vk.PresentMode) vk.PresentMode {
	has := func(m vk.PresentMode) bool {
		for _, a := range available {
			if a == m {
				return true
			}
		}
		return false
	}
	if wantMailbox && has(vk.PresentModeMailbox) {
		return vk.PresentModeMailbox
	}
	if wantImmediate && has(vk.PresentModeImmediate) {
		return vk.PresentModeImmediate
	}
	return vk.PresentModeFifo
}
