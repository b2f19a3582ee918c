package swapchain

import (
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestSelectSurfaceFormatPrefersFirstMatch(t *testing.T) {
	available := []vk.SurfaceFormat{
		{Format: vk.FormatR8g8b8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
		{Format: vk.FormatB8g8r8a8Unorm, ColorSpace: vk.ColorSpaceSrgbNonlinear},
	}
	got, ok := SelectSurfaceFormat(CompositionSDR, available)
	if !ok {
		t.Fatalf("expected a match for SDR composition")
	}
	if got.Format != vk.FormatB8g8r8a8Unorm {
		t.Fatalf("expected the first preference-order candidate (BGRA8) to win, got %v", got.Format)
	}
}

func TestSelectSurfaceFormatNoMatch(t *testing.T) {
	available := []vk.SurfaceFormat{{Format: vk.FormatR16g16b16a16Sfloat, ColorSpace: vk.ColorSpaceSrgbNonlinear}}
	_, ok := SelectSurfaceFormat(CompositionSDR, available)
	if ok {
		t.Fatalf("expected no match since only an HDR format is available")
	}
}

func TestSelectPresentModeFallsBackToFifo(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo}
	if got := SelectPresentMode(true, true, available); got != vk.PresentModeFifo {
		t.Fatalf("expected FIFO fallback when mailbox/immediate are unsupported, got %v", got)
	}
}

func TestSelectPresentModePrefersMailboxOverImmediate(t *testing.T) {
	available := []vk.PresentMode{vk.PresentModeFifo, vk.PresentModeImmediate, vk.PresentModeMailbox}
	if got := SelectPresentMode(true, true, available); got != vk.PresentModeMailbox {
		t.Fatalf("expected mailbox to win when both mailbox and immediate are requested and available, got %v", got)
	}
}
