// Package window declares the windowing surface gpuvk needs from a host
// toolkit: enough to create a VkSurfaceKHR, report the instance extensions
// that require, and learn about size changes so the swapchain manager
// (internal/swapchain) knows when to recreate. github.com/kestrelgpu/gpuvk/window/glfwwindow
// is the reference implementation, built the same way the teacher's
// CoreDisplay wraps a *glfw.Window.
package window

import vk "github.com/vulkan-go/vulkan"

// Window is whatever ClaimWindow needs from a host window. A value
// implementing it is the windowToken passed to the swapchain manager and the
// frontend's ClaimWindow call.
type Window interface {
	// CreateSurface creates a VkSurfaceKHR for instance, owned by the
	// caller from then on (the window does not destroy it).
	CreateSurface(instance vk.Instance) (vk.Surface, error)

	// InstanceExtensions lists the instance extensions the platform's
	// presentation support requires (e.g. VK_KHR_surface plus a
	// platform-specific VK_KHR_*_surface), to be folded into the
	// instance's enabled extension list before any window is claimed.
	InstanceExtensions() []string

	// PixelSize returns the current framebuffer size in pixels, which may
	// differ from the window's logical size on HiDPI displays.
	PixelSize() (width, height int)

	// SizeChanged reports, once per call, whether the window's pixel
	// size has changed since the last call. The swapchain manager does not
	// call it; the render loop polls it (see cmd/example) and recreates the
	// swapchain itself, since Vulkan recreation must happen synchronously
	// with the render loop.
	SizeChanged() bool

	// ShouldClose reports whether the host has requested the window be
	// closed (e.g. the user clicked the close button).
	ShouldClose() bool
}
