// Package glfwwindow is the reference window.Window implementation, a thin
// wrapper over a *glfw.Window in the same spirit as the teacher's
// CoreDisplay wraps one for asche/dieselvk.
package glfwwindow

import (
	"fmt"
	"sync/atomic"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"
)

// Window wraps a *glfw.Window and satisfies window.Window.
type Window struct {
	handle  *glfw.Window
	resized int32 // set by the framebuffer-size callback, cleared by SizeChanged
}

// Options configures window creation.
type Options struct {
	Width, Height int
	Title         string
	Resizable     bool
}

// New creates a GLFW window configured for Vulkan presentation: no client
// API (glfw must not create a GL/GLES context). It does not initialize
// GLFW; the application calls glfw.Init before the first New.
func New(opts Options) (*Window, error) {
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	glfw.WindowHint(glfw.Visible, glfw.True)
	resizable := glfw.False
	if opts.Resizable {
		resizable = glfw.True
	}
	glfw.WindowHint(glfw.Resizable, resizable)

	handle, err := glfw.CreateWindow(opts.Width, opts.Height, opts.Title, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("glfwwindow: create window: %w", err)
	}

	w := &Window{handle: handle}
	handle.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		atomic.StoreInt32(&w.resized, 1)
	})
	return w, nil
}

// Handle returns the underlying *glfw.Window, for callers that need to poll
// input or set additional callbacks beyond what window.Window exposes.
func (w *Window) Handle() *glfw.Window {
	return w.handle
}

func (w *Window) CreateSurface(instance vk.Instance) (vk.Surface, error) {
	surfPtr, err := w.handle.CreateWindowSurface(instance, nil)
	if err != nil {
		return vk.NullSurface, fmt.Errorf("glfwwindow: create window surface: %w", err)
	}
	return vk.SurfaceFromPointer(surfPtr), nil
}

func (w *Window) InstanceExtensions() []string {
	return w.handle.GetRequiredInstanceExtensions()
}

func (w *Window) PixelSize() (width, height int) {
	return w.handle.GetFramebufferSize()
}

// SizeChanged reports and clears the resize flag set by the framebuffer-size
// callback since the last call.
func (w *Window) SizeChanged() bool {
	return atomic.SwapInt32(&w.resized, 0) != 0
}

func (w *Window) ShouldClose() bool {
	return w.handle.ShouldClose()
}

// Destroy destroys the underlying GLFW window. It does not call
// glfw.Terminate; the application owns the library's lifetime since it may
// create more than one window.
func (w *Window) Destroy() {
	w.handle.Destroy()
}
