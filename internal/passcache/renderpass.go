// Package passcache implements the render-pass, framebuffer, and
// pipeline-resource-layout caches (component C5). Render passes used for
// pipeline creation are acquired from the same cache as the render passes
// recorded in BeginRenderPass, and stay cached after the pipeline is built;
// TransientRenderPass creates an uncached pass but nothing in the module
// calls it.
package passcache

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// MaxColorAttachments bounds the fixed-size color-target array in a
// RenderPassKey, matching the frontend's maximum simultaneous color target
// count (§6).
const MaxColorAttachments = 4

// ColorTargetKey is the per-color-attachment part of a RenderPassKey.
type ColorTargetKey struct {
	Format       vk.Format
	LoadOp       vk.AttachmentLoadOp
	StoreOp      vk.AttachmentStoreOp
	ResolveFormat vk.Format // 0 if this target has no resolve attachment
}

// DepthStencilKey is the optional depth/stencil-attachment part of a
// RenderPassKey.
type DepthStencilKey struct {
	Present      bool
	Format       vk.Format
	LoadOp       vk.AttachmentLoadOp
	StoreOp      vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
}

// RenderPassKey is the full interning key for §4.5's render-pass cache:
// per-color-target format/loadOp/storeOp plus resolve formats, the
// depth/stencil descriptor, and the sample count.
type RenderPassKey struct {
	Colors  [MaxColorAttachments]ColorTargetKey
	NumColors int
	Depth   DepthStencilKey
	Samples vk.SampleCountFlagBits
}

// RenderPassCache interns VkRenderPass handles by RenderPassKey.
type RenderPassCache struct {
	// renderPassFetchLock guards this cache.
	mu     sync.Mutex
	device vk.Device
	byKey  map[RenderPassKey]vk.RenderPass
}

func NewRenderPassCache(device vk.Device) *RenderPassCache {
	return &RenderPassCache{device: device, byKey: make(map[RenderPassKey]vk.RenderPass)}
}

// Acquire returns the cached render pass for key, creating it on first use.
func (c *RenderPassCache) Acquire(key RenderPassKey) (vk.RenderPass, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if rp, ok := c.byKey[key]; ok {
		return rp, nil
	}

	var attachments []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	var resolveRefs []vk.AttachmentReference
	hasResolve := false

	for i := 0; i < key.NumColors; i++ {
		ct := key.Colors[i]
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         ct.Format,
			Samples:        key.Samples,
			LoadOp:         ct.LoadOp,
			StoreOp:        ct.StoreOp,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		if ct.ResolveFormat != 0 {
			hasResolve = true
		}
	}

	if hasResolve {
		for i := 0; i < key.NumColors; i++ {
			ct := key.Colors[i]
			if ct.ResolveFormat == 0 {
				resolveRefs = append(resolveRefs, vk.AttachmentReference{Attachment: vk.AttachmentUnused})
				continue
			}
			attachments = append(attachments, vk.AttachmentDescription{
				Format:        ct.ResolveFormat,
				Samples:       vk.SampleCount1Bit,
				LoadOp:        vk.AttachmentLoadOpDontCare,
				StoreOp:       vk.AttachmentStoreOpStore,
				InitialLayout: vk.ImageLayoutUndefined,
				FinalLayout:   vk.ImageLayoutColorAttachmentOptimal,
			})
			resolveRefs = append(resolveRefs, vk.AttachmentReference{
				Attachment: uint32(len(attachments) - 1),
				Layout:     vk.ImageLayoutColorAttachmentOptimal,
			})
		}
	}

	var depthRef *vk.AttachmentReference
	if key.Depth.Present {
		attachments = append(attachments, vk.AttachmentDescription{
			Format:         key.Depth.Format,
			Samples:        key.Samples,
			LoadOp:         key.Depth.LoadOp,
			StoreOp:        key.Depth.StoreOp,
			StencilLoadOp:  key.Depth.StencilLoadOp,
			StencilStoreOp: key.Depth.StencilStoreOp,
			InitialLayout:  vk.ImageLayoutUndefined,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
		depthRef = &vk.AttachmentReference{
			Attachment: uint32(len(attachments) - 1),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
	}

	subpass := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
	}
	if len(colorRefs) > 0 {
		subpass.PColorAttachments = colorRefs
	}
	if hasResolve {
		subpass.PResolveAttachments = resolveRefs
	}
	if depthRef != nil {
		subpass.PDepthStencilAttachment = depthRef
	}

	createInfo := vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(attachments)),
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{subpass},
	}
	if len(attachments) > 0 {
		createInfo.PAttachments = attachments
	}

	var rp vk.RenderPass
	ret := vk.CreateRenderPass(c.device, &createInfo, nil, &rp)
	if ret != vk.Success {
		return nil, fmt.Errorf("passcache: vkCreateRenderPass failed: result %d", int32(ret))
	}
	c.byKey[key] = rp
	return rp, nil
}

func (c *RenderPassCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rp := range c.byKey {
		vk.DestroyRenderPass(c.device, rp, nil)
	}
	c.byKey = make(map[RenderPassKey]vk.RenderPass)
}

// TransientRenderPass builds a one-off, uncached render pass for use during
// VkPipeline creation only: pipelines need a render-pass-compatible handle
// at creation time, but the actual recorded pass may differ (Vulkan allows
// this as long as they are "compatible"), so caching it here would be
// wasted state with no hit rate.
func TransientRenderPass(device vk.Device, key RenderPassKey) (vk.RenderPass, error) {
	tmp := NewRenderPassCache(device)
	rp, err := tmp.Acquire(key)
	if err != nil {
		return nil, err
	}
	delete(tmp.byKey, key)
	return rp, nil
}
