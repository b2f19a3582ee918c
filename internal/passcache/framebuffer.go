package passcache

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// FramebufferKey interns VkFramebuffer objects by attachment identity plus
// extent, per §4.5: "keyed by attachment views + width + height; invalidated
// on view destroy".
type FramebufferKey struct {
	RenderPass vk.RenderPass
	Views      [MaxColorAttachments + 1]vk.ImageView // color views, then depth/stencil if present
	NumViews   int
	Width      uint32
	Height     uint32
}

// FramebufferCache interns VkFramebuffer handles. Entries referencing a
// destroyed VkImageView are invalidated explicitly via Invalidate rather
// than detected lazily, since Vulkan gives no signal on view destruction.
type FramebufferCache struct {
	mu     sync.Mutex
	device vk.Device
	byKey  map[FramebufferKey]vk.Framebuffer
	// byView indexes which keys reference a given view, so Invalidate can
	// evict every framebuffer touching a view about to be destroyed.
	byView map[vk.ImageView][]FramebufferKey
}

func NewFramebufferCache(device vk.Device) *FramebufferCache {
	return &FramebufferCache{
		device: device,
		byKey:  make(map[FramebufferKey]vk.Framebuffer),
		byView: make(map[vk.ImageView][]FramebufferKey),
	}
}

func (c *FramebufferCache) Acquire(key FramebufferKey) (vk.Framebuffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if fb, ok := c.byKey[key]; ok {
		return fb, nil
	}

	views := make([]vk.ImageView, key.NumViews)
	copy(views, key.Views[:key.NumViews])

	createInfo := vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      key.RenderPass,
		AttachmentCount: uint32(len(views)),
		Width:           key.Width,
		Height:          key.Height,
		Layers:          1,
	}
	if len(views) > 0 {
		createInfo.PAttachments = views
	}

	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(c.device, &createInfo, nil, &fb)
	if ret != vk.Success {
		return nil, fmt.Errorf("passcache: vkCreateFramebuffer failed: result %d", int32(ret))
	}

	c.byKey[key] = fb
	for _, v := range views {
		c.byView[v] = append(c.byView[v], key)
	}
	return fb, nil
}

// Invalidate destroys and evicts every framebuffer referencing view. Called
// when the owning texture/swapchain image view is about to be destroyed.
func (c *FramebufferCache) Invalidate(view vk.ImageView) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byView[view]
	for _, k := range keys {
		if fb, ok := c.byKey[k]; ok {
			vk.DestroyFramebuffer(c.device, fb, nil)
			delete(c.byKey, k)
		}
	}
	delete(c.byView, view)
}

func (c *FramebufferCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, fb := range c.byKey {
		vk.DestroyFramebuffer(c.device, fb, nil)
	}
	c.byKey = make(map[FramebufferKey]vk.Framebuffer)
	c.byView = make(map[vk.ImageView][]FramebufferKey)
}
