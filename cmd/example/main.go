// Command example opens a window, claims a swapchain, and clears it to a
// solid color every frame - the smallest loop that exercises instance
// creation, device selection, swapchain acquisition, command recording, and
// presentation end to end. It mirrors the teacher's render_test.go loop
// shape (glfw.Init, create window, poll events until close) but drives it
// through gpuvk instead of dieselvk.
package main

import (
	"log"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk"
	"github.com/kestrelgpu/gpuvk/internal/cmdengine"
	"github.com/kestrelgpu/gpuvk/internal/passcache"
	"github.com/kestrelgpu/gpuvk/window/glfwwindow"
)

func main() {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		log.Fatalf("glfw.Init: %v", err)
	}
	defer glfw.Terminate()
	vk.SetGetInstanceProcAddr(glfw.GetVulkanGetInstanceProcAddress())
	if err := vk.Init(); err != nil {
		log.Fatalf("vk.Init: %v", err)
	}

	win, err := glfwwindow.New(glfwwindow.Options{
		Width:     1280,
		Height:    720,
		Title:     "gpuvk example",
		Resizable: true,
	})
	if err != nil {
		log.Fatalf("create window: %v", err)
	}
	defer win.Destroy()

	device, err := gpuvk.NewDevice(gpuvk.DeviceOptions{
		InstanceOptions: gpuvk.InstanceOptions{
			AppName:    "gpuvk-example",
			AppVersion: 1,
			Debug:      true,
		},
		PreferredDeviceIndex: -1,
	}, win)
	if err != nil {
		log.Fatalf("gpuvk.NewDevice: %v", err)
	}
	defer device.Destroy()

	const token = "main"
	wd, err := device.ClaimWindow(token, win, gpuvk.SwapchainCompositionSDR, gpuvk.PresentModeVsync)
	if err != nil {
		log.Fatalf("ClaimWindow: %v", err)
	}
	defer device.ReleaseWindow(token)

	frame := uint32(0)
	for !win.ShouldClose() {
		glfw.PollEvents()
		device.ProcessRetired(token)

		if win.SizeChanged() {
			if err := device.Swapchains.Recreate(wd); err != nil {
				log.Printf("recreate swapchain: %v", err)
				continue
			}
		}

		result, err := device.AcquireSwapchainTexture(wd)
		if err != nil {
			log.Printf("acquire swapchain texture: %v", err)
			continue
		}
		if result == nil {
			// Minimized or mid-recreate; skip this frame rather than error.
			continue
		}

		renderPass, err := device.RenderPasses.Acquire(passcache.RenderPassKey{
			Colors: [passcache.MaxColorAttachments]passcache.ColorTargetKey{
				{Format: wd.Format.Format, LoadOp: vk.AttachmentLoadOpClear, StoreOp: vk.AttachmentStoreOpStore},
			},
			NumColors: 1,
			Samples:   vk.SampleCount1Bit,
		})
		if err != nil {
			log.Printf("acquire render pass: %v", err)
			continue
		}

		framebuffer, err := device.Framebuffers.Acquire(passcache.FramebufferKey{
			RenderPass: renderPass,
			Views:      [passcache.MaxColorAttachments + 1]vk.ImageView{result.ImageView},
			NumViews:   1,
			Width:      result.Extent.Width,
			Height:     result.Extent.Height,
		})
		if err != nil {
			log.Printf("acquire framebuffer: %v", err)
			continue
		}

		cb, err := device.AcquireCommandBuffer(token)
		if err != nil {
			log.Printf("acquire command buffer: %v", err)
			continue
		}

		clear := [4]float32{0.0, 0.0, float32(frame%256) / 255.0, 1.0}
		colors := []cmdengine.ColorTargetInfo{{
			View:       result.ImageView,
			LoadOp:     vk.AttachmentLoadOpClear,
			StoreOp:    vk.AttachmentStoreOpStore,
			ClearColor: clear,
		}}
		if err := cb.Inner().BeginRenderPass(renderPass, framebuffer, result.Extent, colors, cmdengine.DepthStencilTargetInfo{}, nil); err != nil {
			log.Printf("begin render pass: %v", err)
			device.CancelCommandBuffer(cb)
			continue
		}
		if err := cb.Inner().EndRenderPass(nil); err != nil {
			log.Printf("end render pass: %v", err)
			device.CancelCommandBuffer(cb)
			continue
		}

		cb.Inner().AcquireWaitSemaphores = append(cb.Inner().AcquireWaitSemaphores, result.AcquiredSem)
		cb.Inner().PresentSwapchains = append(cb.Inner().PresentSwapchains, cmdengine.PresentRequest{
			Swapchain:     wd.Handle(),
			ImageIndex:    result.ImageIndex,
			WaitSemaphore: result.DrawCompleteSem,
		})

		if _, err := device.Submit(cb); err != nil {
			log.Printf("submit: %v", err)
		}
		frame++
	}

	if err := device.WaitForFences(true, []uint64{frame}); err != nil {
		log.Printf("wait for fences on shutdown: %v", err)
	}
}
