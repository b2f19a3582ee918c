package swapchain

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// defaultFrameLag is the frame-lag used when the caller doesn't request a
// specific AllowedFramesInFlight, matching the reference engine's
// double-buffered ring.
const defaultFrameLag = 2

// ErrSwapchainZeroExtent is a sentinel, not a true error: the caller should
// retry acquisition next frame rather than tear anything down (§4.9, §7 —
// a minimized window reports a zero-extent surface).
var ErrSwapchainZeroExtent = fmt.Errorf("swapchain: surface currently has zero extent, try again next frame")

// WindowData is everything the manager tracks for one claimed window: its
// surface, the live VkSwapchain, the per-image resources, and the
// frame-lagged semaphore/fence ring used to pace acquisition.
type WindowData struct {
	Surface     vk.Surface
	Composition Composition
	Format      vk.SurfaceFormat
	PresentMode vk.PresentMode

	swapchain vk.Swapchain
	extent    vk.Extent2D

	images     []vk.Image
	imageViews []vk.ImageView

	imageAcquired []vk.Semaphore
	drawComplete  []vk.Semaphore
	frameFences   []vk.Fence
	frameIndex    int

	// windowLock guards recreation of this window's swapchain, images, and
	// views against concurrent Acquire/Present calls.
	mu sync.Mutex
}

// Manager owns every claimed window's swapchain state.
type Manager struct {
	instance       vk.Instance
	physicalDevice vk.PhysicalDevice
	device         vk.Device

	// frameLag is AllowedFramesInFlight from DeviceOptions: the size of
	// every claimed window's semaphore/fence ring and a floor on its
	// swapchain image count (§4.9).
	frameLag int

	// windowLock guards the windows map itself (claim/release); per-window
	// state is separately guarded by WindowData.mu.
	mu      sync.Mutex
	windows map[interface{}]*WindowData
}

// NewManager builds a Manager. allowedFramesInFlight <= 0 falls back to
// defaultFrameLag.
func NewManager(instance vk.Instance, physicalDevice vk.PhysicalDevice, device vk.Device, allowedFramesInFlight int) *Manager {
	if allowedFramesInFlight <= 0 {
		allowedFramesInFlight = defaultFrameLag
	}
	return &Manager{
		instance:       instance,
		physicalDevice: physicalDevice,
		device:         device,
		frameLag:       allowedFramesInFlight,
		windows:        make(map[interface{}]*WindowData),
	}
}

// ClaimWindow creates a swapchain for surface under windowToken (typically
// the *Window value itself), selecting a format for comp and a present
// mode per the caller's vsync/mailbox/immediate preference.
func (m *Manager) ClaimWindow(windowToken interface{}, surface vk.Surface, comp Composition, wantMailbox, wantImmediate bool) (*WindowData, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.windows[windowToken]; ok {
		return nil, fmt.Errorf("swapchain: window already claimed")
	}

	var formatCount uint32
	vk.GetPhysicalDeviceSurfaceFormats(m.physicalDevice, surface, &formatCount, nil)
	formats := make([]vk.SurfaceFormat, formatCount)
	vk.GetPhysicalDeviceSurfaceFormats(m.physicalDevice, surface, &formatCount, formats)
	for i := range formats {
		formats[i].Deref()
	}

	format, ok := SelectSurfaceFormat(comp, formats)
	if !ok {
		return nil, fmt.Errorf("swapchain: surface does not support composition %v", comp)
	}

	var presentModeCount uint32
	vk.GetPhysicalDeviceSurfacePresentModes(m.physicalDevice, surface, &presentModeCount, nil)
	presentModes := make([]vk.PresentMode, presentModeCount)
	vk.GetPhysicalDeviceSurfacePresentModes(m.physicalDevice, surface, &presentModeCount, presentModes)
	presentMode := SelectPresentMode(wantMailbox, wantImmediate, presentModes)

	wd := &WindowData{
		Surface:     surface,
		Composition: comp,
		Format:      format,
		PresentMode: presentMode,
	}

	if err := m.recreate(wd); err != nil {
		return nil, err
	}

	for i := 0; i < m.frameLag; i++ {
		var acquired, complete vk.Semaphore
		vk.CreateSemaphore(m.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &acquired)
		vk.CreateSemaphore(m.device, &vk.SemaphoreCreateInfo{SType: vk.StructureTypeSemaphoreCreateInfo}, nil, &complete)
		var fence vk.Fence
		vk.CreateFence(m.device, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo, Flags: vk.FenceCreateFlags(vk.FenceCreateSignaledBit)}, nil, &fence)
		wd.imageAcquired = append(wd.imageAcquired, acquired)
		wd.drawComplete = append(wd.drawComplete, complete)
		wd.frameFences = append(wd.frameFences, fence)
	}

	m.windows[windowToken] = wd
	return wd, nil
}

// recreate (re)creates wd's VkSwapchain from current surface capabilities,
// destroying the previous swapchain only after the new one succeeds so a
// transient failure leaves the window still presentable.
func (m *Manager) recreate(wd *WindowData) error {
	var caps vk.SurfaceCapabilities
	ret := vk.GetPhysicalDeviceSurfaceCapabilities(m.physicalDevice, wd.Surface, &caps)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: vkGetPhysicalDeviceSurfaceCapabilities failed: result %d", int32(ret))
	}
	caps.Deref()
	caps.CurrentExtent.Deref()

	if caps.CurrentExtent.Width == 0 || caps.CurrentExtent.Height == 0 {
		return ErrSwapchainZeroExtent
	}

	// Floor the image count at AllowedFramesInFlight so the presentation
	// engine always has enough images to keep that many frames in flight;
	// MAILBOX additionally wants a spare image to discard into without
	// blocking, so it's bumped to 3 regardless of frameLag (§4.9).
	want := m.frameLag
	if wd.PresentMode == vk.PresentModeMailbox && want < 3 {
		want = 3
	}
	imageCount := caps.MinImageCount
	if want > imageCount {
		imageCount = want
	}
	if caps.MaxImageCount > 0 && imageCount > caps.MaxImageCount {
		imageCount = caps.MaxImageCount
	}

	old := wd.swapchain
	var newSwapchain vk.Swapchain
	createInfo := vk.SwapchainCreateInfo{
		SType:            vk.StructureTypeSwapchainCreateInfo,
		Surface:          wd.Surface,
		MinImageCount:    imageCount,
		ImageFormat:      wd.Format.Format,
		ImageColorSpace:  wd.Format.ColorSpace,
		ImageExtent:      caps.CurrentExtent,
		ImageArrayLayers: 1,
		ImageUsage:       vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit),
		ImageSharingMode: vk.SharingModeExclusive,
		PreTransform:     caps.CurrentTransform,
		CompositeAlpha:   vk.CompositeAlphaOpaqueBit,
		PresentMode:      wd.PresentMode,
		Clipped:          vk.True,
		OldSwapchain:     old,
	}
	ret = vk.CreateSwapchain(m.device, &createInfo, nil, &newSwapchain)
	if ret != vk.Success {
		return fmt.Errorf("swapchain: vkCreateSwapchain failed: result %d", int32(ret))
	}

	if old != vk.NullSwapchain {
		for _, v := range wd.imageViews {
			vk.DestroyImageView(m.device, v, nil)
		}
		vk.DestroySwapchain(m.device, old, nil)
	}

	wd.swapchain = newSwapchain
	wd.extent = caps.CurrentExtent

	var count uint32
	vk.GetSwapchainImages(m.device, newSwapchain, &count, nil)
	images := make([]vk.Image, count)
	vk.GetSwapchainImages(m.device, newSwapchain, &count, images)
	wd.images = images

	views := make([]vk.ImageView, count)
	for i, img := range images {
		var view vk.ImageView
		viewInfo := vk.ImageViewCreateInfo{
			SType:    vk.StructureTypeImageViewCreateInfo,
			Image:    img,
			ViewType: vk.ImageViewType2d,
			Format:   wd.Format.Format,
			Components: vk.ComponentMapping{
				R: vk.ComponentSwizzleIdentity,
				G: vk.ComponentSwizzleIdentity,
				B: vk.ComponentSwizzleIdentity,
				A: vk.ComponentSwizzleIdentity,
			},
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask: vk.ImageAspectFlags(vk.ImageAspectColorBit),
				LevelCount: 1,
				LayerCount: 1,
			},
		}
		ret = vk.CreateImageView(m.device, &viewInfo, nil, &view)
		if ret != vk.Success {
			return fmt.Errorf("swapchain: vkCreateImageView failed: result %d", int32(ret))
		}
		views[i] = view
	}
	wd.imageViews = views
	return nil
}

// AcquireResult is what Acquire hands back on success.
type AcquireResult struct {
	ImageIndex     uint32
	ImageView      vk.ImageView
	Extent         vk.Extent2D
	AcquiredSem    vk.Semaphore
	DrawCompleteSem vk.Semaphore
	Fence          vk.Fence
}

// Acquire waits on wd's next-in-ring fence, then acquires a swapchain
// image. An out-of-date result triggers an internal Recreate and one retry;
// a suboptimal result is returned as success since the image is still
// presentable. ErrSwapchainZeroExtent propagates unchanged so the caller
// can skip this frame's render entirely.
func (m *Manager) Acquire(wd *WindowData) (*AcquireResult, error) {
	wd.mu.Lock()
	defer wd.mu.Unlock()

	ring := wd.frameIndex % m.frameLag
	fence := wd.frameFences[ring]
	vk.WaitForFences(m.device, 1, []vk.Fence{fence}, vk.True, vk.MaxUint64)
	vk.ResetFences(m.device, 1, []vk.Fence{fence})

	acquiredSem := wd.imageAcquired[ring]
	var imageIndex uint32
	ret := vk.AcquireNextImage(m.device, wd.swapchain, vk.MaxUint64, acquiredSem, vk.NullFence, &imageIndex)

	if ret == vk.ErrorOutOfDate {
		if err := m.recreate(wd); err != nil {
			return nil, err
		}
		ret = vk.AcquireNextImage(m.device, wd.swapchain, vk.MaxUint64, acquiredSem, vk.NullFence, &imageIndex)
	}
	if ret == vk.ErrorSurfaceLost {
		return nil, fmt.Errorf("swapchain: surface lost")
	}
	if ret != vk.Success && ret != vk.Suboptimal {
		return nil, fmt.Errorf("swapchain: vkAcquireNextImage failed: result %d", int32(ret))
	}

	wd.frameIndex++
	return &AcquireResult{
		ImageIndex:      imageIndex,
		ImageView:       wd.imageViews[imageIndex],
		Extent:          wd.extent,
		AcquiredSem:     acquiredSem,
		DrawCompleteSem: wd.drawComplete[ring],
		Fence:           fence,
	}, nil
}

// Handle returns wd's current VkSwapchain, for callers building a
// cmdengine.PresentRequest after a successful Acquire.
func (wd *WindowData) Handle() vk.Swapchain {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	return wd.swapchain
}

// Recreate forces wd's swapchain to be rebuilt, called when the owning
// window reports a resize.
func (m *Manager) Recreate(wd *WindowData) error {
	wd.mu.Lock()
	defer wd.mu.Unlock()
	return m.recreate(wd)
}

// ReleaseWindow destroys every Vulkan object the manager owns for token.
func (m *Manager) ReleaseWindow(windowToken interface{}) {
	m.mu.Lock()
	wd, ok := m.windows[windowToken]
	delete(m.windows, windowToken)
	m.mu.Unlock()
	if !ok {
		return
	}

	wd.mu.Lock()
	defer wd.mu.Unlock()
	for i := 0; i < m.frameLag; i++ {
		vk.WaitForFences(m.device, 1, []vk.Fence{wd.frameFences[i]}, vk.True, vk.MaxUint64)
		vk.DestroyFence(m.device, wd.frameFences[i], nil)
		vk.DestroySemaphore(m.device, wd.imageAcquired[i], nil)
		vk.DestroySemaphore(m.device, wd.drawComplete[i], nil)
	}
	for _, v := range wd.imageViews {
		vk.DestroyImageView(m.device, v, nil)
	}
	vk.DestroySwapchain(m.device, wd.swapchain, nil)
}
