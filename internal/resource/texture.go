package resource

import (
	"fmt"
	"sync"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// Subresource identifies a single (mip level, array layer) pair within a
// Texture. Per-subresource views are created lazily, the first time a
// render-target, compute read/write, or depth-stencil binding actually
// needs one — most textures are only ever sampled through the full view.
type Subresource struct {
	MipLevel   uint32
	ArrayLayer uint32
}

// Texture is a VkImage bound to a suballocated memory region, plus its
// lazily-created views. The "full" view spans every mip level and array
// layer and excludes the stencil aspect even for combined depth/stencil
// formats (§4.2): stencil is only ever bound through a subresource view.
type Texture struct {
	Handle      vk.Image
	Format      TextureFormat
	Width       uint32
	Height      uint32
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	Samples     vk.SampleCountFlagBits
	Usage       restrack.TextureUsage
	DefaultMode restrack.UsageMode
	Region      *memalloc.UsedRegion
	Cube        bool

	mu         sync.Mutex
	fullView   vk.ImageView
	subViews   map[Subresource]vk.ImageView

	refcount int32
}

type TextureCreateInfo struct {
	Format      TextureFormat
	Width       uint32
	Height      uint32
	Depth       uint32 // 1 for 2D textures
	MipLevels   uint32
	ArrayLayers uint32
	Samples     vk.SampleCountFlagBits
	Usage       restrack.TextureUsage
	Cube        bool
}

// CreateTexture allocates a VkImage per info, binding it into suballoc.
func CreateTexture(device vk.Device, suballoc *memalloc.SubAllocator, info TextureCreateInfo) (*Texture, error) {
	mode, err := restrack.DefaultTextureMode(info.Usage)
	if err != nil {
		return nil, fmt.Errorf("resource: CreateTexture: %w", err)
	}
	vkFormat, ok := ToVkFormat(info.Format)
	if !ok {
		return nil, fmt.Errorf("resource: CreateTexture: unsupported format %v", info.Format)
	}

	imageType := vk.ImageType2d
	if info.Depth > 1 {
		imageType = vk.ImageType3d
	}

	var flags vk.ImageCreateFlags
	if info.Cube {
		flags = vk.ImageCreateFlags(vk.ImageCreateCubeCompatibleBit)
	}

	var handle vk.Image
	createInfo := vk.ImageCreateInfo{
		SType:       vk.StructureTypeImageCreateInfo,
		Flags:       flags,
		ImageType:   imageType,
		Format:      vkFormat,
		Extent:      vk.Extent3D{Width: info.Width, Height: info.Height, Depth: info.Depth},
		MipLevels:   info.MipLevels,
		ArrayLayers: info.ArrayLayers,
		Samples:     info.Samples,
		Tiling:      vk.ImageTilingOptimal,
		Usage:       textureUsageToVk(info.Usage),
		SharingMode: vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}
	ret := vk.CreateImage(device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("resource: vkCreateImage failed: result %d", int32(ret))
	}

	var memReqs vk.MemoryRequirements
	vk.GetImageMemoryRequirements(device, handle, &memReqs)
	memReqs.Deref()

	// Color and depth-stencil render targets get a dedicated allocation,
	// whatever their size or layer/mip count: they are big and long-lived, so
	// sharing a page buys nothing and only adds fragmentation risk the
	// defragmenter would otherwise have to undo.
	dedicated := info.Usage&(restrack.TextureUsageColorTarget|restrack.TextureUsageDepthStencilTarget) != 0

	region, err := suballoc.Bind(memalloc.MemoryRequirements{
		Size:           uint64(memReqs.Size),
		Alignment:      uint64(memReqs.Alignment),
		MemoryTypeBits: memReqs.MemoryTypeBits,
	}, dedicated, memalloc.ResourceKindTexture, nil)
	if err != nil {
		vk.DestroyImage(device, handle, nil)
		return nil, fmt.Errorf("resource: CreateTexture: bind failed: %w", err)
	}

	ret = vk.BindImageMemory(device, handle, region.Allocation.Memory, vk.DeviceSize(region.Offset))
	if ret != vk.Success {
		suballoc.Release(region)
		vk.DestroyImage(device, handle, nil)
		return nil, fmt.Errorf("resource: vkBindImageMemory failed: result %d", int32(ret))
	}

	t := &Texture{
		Handle:      handle,
		Format:      info.Format,
		Width:       info.Width,
		Height:      info.Height,
		Depth:       info.Depth,
		MipLevels:   info.MipLevels,
		ArrayLayers: info.ArrayLayers,
		Samples:     info.Samples,
		Usage:       info.Usage,
		DefaultMode: mode,
		Region:      region,
		Cube:        info.Cube,
		subViews:    make(map[Subresource]vk.ImageView),
		refcount:    1,
	}
	region.Owner = t
	return t, nil
}

// FullView returns (creating on first use) the view spanning every mip
// level and array layer, excluding the stencil aspect.
func (t *Texture) FullView(device vk.Device) (vk.ImageView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fullView != nil {
		return t.fullView, nil
	}

	viewType := vk.ImageViewType2d
	if t.ArrayLayers > 1 {
		viewType = vk.ImageViewType2dArray
	}
	if t.Depth > 1 {
		viewType = vk.ImageViewType3d
	}

	vkFormat, _ := ToVkFormat(t.Format)
	view, err := createView(device, t.Handle, vkFormat, viewType, AspectMask(t.Format, false), 0, t.MipLevels, 0, t.ArrayLayers)
	if err != nil {
		return nil, err
	}
	t.fullView = view
	return view, nil
}

// SubresourceView returns (creating on first use) the view for a single
// mip level and array layer, used for render-target, compute read/write,
// and depth-stencil bindings that must address one slice at a time.
func (t *Texture) SubresourceView(device vk.Device, sub Subresource, includeStencil bool) (vk.ImageView, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.subViews[sub]; ok {
		return v, nil
	}

	vkFormat, _ := ToVkFormat(t.Format)
	view, err := createView(device, t.Handle, vkFormat, vk.ImageViewType2d, AspectMask(t.Format, includeStencil), sub.MipLevel, 1, sub.ArrayLayer, 1)
	if err != nil {
		return nil, err
	}
	t.subViews[sub] = view
	return view, nil
}

func createView(device vk.Device, image vk.Image, format vk.Format, viewType vk.ImageViewType, aspect vk.ImageAspectFlags, baseMip, mipCount, baseLayer, layerCount uint32) (vk.ImageView, error) {
	var view vk.ImageView
	createInfo := vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    image,
		ViewType: viewType,
		Format:   format,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask:     aspect,
			BaseMipLevel:   baseMip,
			LevelCount:     mipCount,
			BaseArrayLayer: baseLayer,
			LayerCount:     layerCount,
		},
	}
	ret := vk.CreateImageView(device, &createInfo, nil, &view)
	if ret != vk.Success {
		return nil, fmt.Errorf("resource: vkCreateImageView failed: result %d", int32(ret))
	}
	return view, nil
}

func (t *Texture) AddRef() { atomic.AddInt32(&t.refcount, 1) }

func (t *Texture) Release() bool {
	return atomic.AddInt32(&t.refcount, -1) == 0
}

// Views returns every view this texture has created so far, so the caller
// (deferred-destruction queue / framebuffer cache) can invalidate or
// destroy them before the image itself is destroyed.
func (t *Texture) Views() []vk.ImageView {
	t.mu.Lock()
	defer t.mu.Unlock()
	views := make([]vk.ImageView, 0, len(t.subViews)+1)
	if t.fullView != nil {
		views = append(views, t.fullView)
	}
	for _, v := range t.subViews {
		views = append(views, v)
	}
	return views
}

func (t *Texture) Destroy(device vk.Device, suballoc *memalloc.SubAllocator) {
	for _, v := range t.Views() {
		vk.DestroyImageView(device, v, nil)
	}
	vk.DestroyImage(device, t.Handle, nil)
	suballoc.Release(t.Region)
}

// Refcount reports the texture's current reference count. The defragmenter
// (component C8) uses this to skip a used region whose owner has already
// been released and is only waiting on the dispose queue to drain.
func (t *Texture) Refcount() int32 { return atomic.LoadInt32(&t.refcount) }

// Relocate repoints t at a freshly bound VkImage, used by the defragmenter
// once it has copied every subresource into newHandle/newRegion. Every view
// created against the old image is destroyed here since it is no longer
// valid; callers needing a view again get one lazily via FullView /
// SubresourceView against the new handle.
func (t *Texture) Relocate(device vk.Device, newHandle vk.Image, newRegion *memalloc.UsedRegion) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fullView != nil {
		vk.DestroyImageView(device, t.fullView, nil)
		t.fullView = nil
	}
	for _, v := range t.subViews {
		vk.DestroyImageView(device, v, nil)
	}
	t.subViews = make(map[Subresource]vk.ImageView)
	t.Handle = newHandle
	t.Region = newRegion
	newRegion.Owner = t
}
