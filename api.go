package gpuvk

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/cmdengine"
	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/resource"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
	"github.com/kestrelgpu/gpuvk/internal/swapchain"
	"github.com/kestrelgpu/gpuvk/window"
)

// resourceFormatTable maps the public TextureFormat enum onto the subset
// resource.CreateTexture currently supports. A format outside this table
// still exists in the public enum (§6 requires the full closed set) but
// CreateTexture reports KindUnsupported for it rather than silently
// substituting a different format.
var resourceFormatTable = map[TextureFormat]resource.TextureFormat{
	TextureFormatR8G8B8A8Unorm:      resource.FormatR8G8B8A8Unorm,
	TextureFormatB8G8R8A8Unorm:      resource.FormatB8G8R8A8Unorm,
	TextureFormatR8Unorm:            resource.FormatR8Unorm,
	TextureFormatR16G16B16A16Sfloat: resource.FormatR16G16B16A16Float,
	TextureFormatR32G32B32A32Sfloat: resource.FormatR32G32B32A32Float,
	TextureFormatD16Unorm:           resource.FormatD16Unorm,
	TextureFormatD32Sfloat:          resource.FormatD32Float,
	TextureFormatD24UnormS8Uint:     resource.FormatD24UnormS8Uint,
	TextureFormatD32SfloatS8Uint:    resource.FormatD32FloatS8Uint,
	TextureFormatBC1RGBAUnorm:       resource.FormatBC1RGBAUnorm,
	TextureFormatBC3Unorm:           resource.FormatBC3RGBAUnorm,
	TextureFormatBC7Unorm:           resource.FormatBC7RGBAUnorm,
}

// Buffer is a public handle to a buffer *container*: 1..N backing
// resource.Buffer instances plus an index naming which one is active
// (§3's Buffer/BufferContainer pattern - the frontend only ever hands
// callers a container, never a bare buffer). A write against the
// container can request cycling (discard-write): if the active instance
// is still referenced by in-flight GPU work, the container selects
// another idle instance or allocates a fresh one rather than stalling on
// that work to finish, growing to 1..N instances over its lifetime.
type Buffer struct {
	mu        sync.Mutex
	instances []*resource.Buffer
	active    int
	size      uint64
	usage     BufferUsage
	suballoc  *memalloc.SubAllocator
	debugName string
}

// Active returns the buffer instance currently selected for reads, binds,
// and in-place (non-cycling) writes.
func (b *Buffer) Active() *resource.Buffer {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.instances[b.active]
}

// Texture is the texture equivalent of Buffer. cycleable is false for
// containers wrapping a driver-owned image (swapchain textures, §4.9/§56):
// those are never grown, since there is only ever one VkImage for a given
// swapchain slot and the driver - not this container - owns its lifetime.
type Texture struct {
	mu         sync.Mutex
	instances  []*resource.Texture
	active     int
	createInfo resource.TextureCreateInfo
	suballoc   *memalloc.SubAllocator
	cycleable  bool
	debugName  string
}

func (t *Texture) Active() *resource.Texture {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.instances[t.active]
}

type Sampler struct {
	inner *resource.Sampler
}

// BufferUsage and TextureUsage re-export restrack's bitmasks at the public
// surface, matching the frontend's own abstract usage flags (§6).
type BufferUsage = restrack.BufferUsage
type TextureUsage = restrack.TextureUsage

const (
	BufferUsageVertex                 = restrack.BufferUsageVertex
	BufferUsageIndex                  = restrack.BufferUsageIndex
	BufferUsageIndirect                = restrack.BufferUsageIndirect
	BufferUsageGraphicsStorageRead     = restrack.BufferUsageGraphicsStorageRead
	BufferUsageComputeStorageRead      = restrack.BufferUsageComputeStorageRead
	BufferUsageComputeStorageReadWrite = restrack.BufferUsageComputeStorageReadWrite

	TextureUsageSampler                      = restrack.TextureUsageSampler
	TextureUsageColorTarget                  = restrack.TextureUsageColorTarget
	TextureUsageDepthStencilTarget            = restrack.TextureUsageDepthStencilTarget
	TextureUsageGraphicsStorageRead           = restrack.TextureUsageGraphicsStorageRead
	TextureUsageComputeStorageRead            = restrack.TextureUsageComputeStorageRead
	TextureUsageComputeStorageWrite           = restrack.TextureUsageComputeStorageWrite
	TextureUsageComputeSimultaneousReadWrite  = restrack.TextureUsageComputeSimultaneousReadWrite
)

// gpuAllocatorFor picks the sub-allocator for a buffer/texture request of
// the given memory-type request, selecting the concrete memory type from
// the device's properties (§4.1). A fallback to a less-preferred memory type
// is not logged.
func (d *GPUDevice) gpuAllocatorFor(req memalloc.MemoryTypeRequest, bucket map[uint32]*memalloc.SubAllocator, typeBits uint32) (*memalloc.SubAllocator, error) {
	typeIndex, _, err := memalloc.SelectMemoryType(d.memProps, typeBits, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrOutOfDeviceMemory, err.Error())
	}
	memType := d.memProps.MemoryTypes[typeIndex]
	memType.Deref()
	hostVisible := memType.PropertyFlags&vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit) != 0
	return d.allocatorFor(bucket, typeIndex, hostVisible), nil
}

// CreateBuffer allocates a device buffer of size bytes for usage.
func (d *GPUDevice) CreateBuffer(size uint64, usage BufferUsage, props Properties) (*Buffer, error) {
	if err := validateBufferCreate(size); err != nil {
		return nil, err
	}

	// Memory requirements aren't known until vkCreateBuffer runs, but the
	// Vulkan spec guarantees memoryTypeBits only narrows the device's full
	// type set, so probe with "every type" first and let Bind re-check.
	suballoc, err := d.gpuAllocatorFor(memalloc.GPUBufferRequest, d.gpuAllocators, ^uint32(0))
	if err != nil {
		return nil, newGPUError(KindOutOfDeviceMemory, "CreateBuffer", err)
	}

	inner, err := resource.CreateBuffer(d.device, suballoc, size, usage)
	if err != nil {
		return nil, newGPUError(KindInit, "CreateBuffer", err)
	}
	name := d.debugName(props, PropBufferCreateNameString)
	d.setDebugName("buffer", name)
	return &Buffer{instances: []*resource.Buffer{inner}, size: size, usage: usage, suballoc: suballoc, debugName: name}, nil
}

// ReleaseBuffer decrements the refcount of every instance the container has
// accumulated and, for each one that reaches zero, queues it for deferred
// destruction at fence generation gen (§4.7). A cycled container can hold
// more than one instance, all of which are released together here - the
// container itself is freed eagerly, only the Vulkan-backed instances go
// through the deferred queue (§4.7 "Containers are eagerly freed on
// release").
func (d *GPUDevice) ReleaseBuffer(gen uint64, b *Buffer) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, inst := range b.instances {
		if inst.Release() {
			d.Dispose.DeferBuffer(gen, bufferDestroyer{device: d.device, suballoc: b.suballoc, buffer: inst})
		}
	}
}

// acquireBufferForWrite returns the instance a write against b should
// target. With cycle false, or the active instance not currently
// referenced by any in-flight command buffer, the active instance is
// reused in place. Otherwise the container looks for an idle instance
// (refcount back down to the baseline-1 "owned but unbound" level - see
// resource.Buffer.AddRef/Release) to reactivate, or allocates a fresh one,
// implementing §3's "cycling the container selects a replacement whose
// refcount is zero, or allocates a new one".
func (d *GPUDevice) acquireBufferForWrite(b *Buffer, cycle bool) (*resource.Buffer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	cur := b.instances[b.active]
	if !cycle || cur.Refcount() <= 1 {
		return cur, nil
	}

	for i, inst := range b.instances {
		if inst.Refcount() <= 1 {
			b.active = i
			return inst, nil
		}
	}

	fresh, err := resource.CreateBuffer(d.device, b.suballoc, b.size, b.usage)
	if err != nil {
		return nil, fmt.Errorf("gpuvk: cycle buffer: %w", err)
	}
	d.setDebugName("buffer", b.debugName)
	b.instances = append(b.instances, fresh)
	b.active = len(b.instances) - 1
	return fresh, nil
}

type bufferDestroyer struct {
	device   vk.Device
	suballoc *memalloc.SubAllocator
	buffer   *resource.Buffer
}

func (bd bufferDestroyer) Destroy() { bd.buffer.Destroy(bd.device, bd.suballoc) }

// CreateTexture allocates a device texture per info.
func (d *GPUDevice) CreateTexture(info TextureCreateInfo, props Properties) (*Texture, error) {
	if err := validateTextureCreate(info); err != nil {
		return nil, err
	}
	resFormat, ok := resourceFormatTable[info.Format]
	if !ok {
		return nil, newGPUError(KindUnsupported, "CreateTexture", fmt.Errorf("format %v has no backend mapping", info.Format))
	}

	suballoc, err := d.gpuAllocatorFor(memalloc.TextureRequest, d.textureAllocators, ^uint32(0))
	if err != nil {
		return nil, newGPUError(KindOutOfDeviceMemory, "CreateTexture", err)
	}

	mipLevels, arrayLayers := info.MipLevels, info.ArrayLayers
	if mipLevels == 0 {
		mipLevels = 1
	}
	if arrayLayers == 0 {
		arrayLayers = 1
	}
	depth := info.Depth
	if depth == 0 {
		depth = 1
	}

	createInfo := resource.TextureCreateInfo{
		Format:      resFormat,
		Width:       info.Width,
		Height:      info.Height,
		Depth:       depth,
		MipLevels:   mipLevels,
		ArrayLayers: arrayLayers,
		Samples:     sampleCountToVk(info.SampleCount),
		Usage:       info.Usage,
		Cube:        info.Cube,
	}
	inner, err := resource.CreateTexture(d.device, suballoc, createInfo)
	if err != nil {
		return nil, newGPUError(KindInit, "CreateTexture", err)
	}
	name := d.debugName(props, PropTextureCreateNameString)
	d.setDebugName("texture", name)
	return &Texture{
		instances:  []*resource.Texture{inner},
		createInfo: createInfo,
		suballoc:   suballoc,
		cycleable:  true,
		debugName:  name,
	}, nil
}

// TextureCreateInfo is the public texture creation description (§6).
type TextureCreateInfo struct {
	Format      TextureFormat
	Width       uint32
	Height      uint32
	Depth       uint32
	MipLevels   uint32
	ArrayLayers uint32
	SampleCount SampleCount
	Usage       TextureUsage
	Cube        bool
}

// ReleaseTexture decrements the refcount of every instance the container
// has accumulated and, for each one that reaches zero, queues it (and every
// view it has created) for deferred destruction.
func (d *GPUDevice) ReleaseTexture(gen uint64, t *Texture) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, inst := range t.instances {
		if inst.Release() {
			d.Dispose.DeferTexture(gen, textureDestroyer{device: d.device, suballoc: t.suballoc, texture: inst})
		}
	}
}

// acquireTextureForWrite is acquireBufferForWrite's texture counterpart,
// additionally refusing to cycle a non-cycleable container (swapchain
// textures, §3/§4.9 "cycling a texture requires the container to be
// declared cycleable").
func (d *GPUDevice) acquireTextureForWrite(t *Texture, cycle bool) (*resource.Texture, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	cur := t.instances[t.active]
	if !cycle || !t.cycleable || cur.Refcount() <= 1 {
		return cur, nil
	}

	for i, inst := range t.instances {
		if inst.Refcount() <= 1 {
			t.active = i
			return inst, nil
		}
	}

	fresh, err := resource.CreateTexture(d.device, t.suballoc, t.createInfo)
	if err != nil {
		return nil, fmt.Errorf("gpuvk: cycle texture: %w", err)
	}
	d.setDebugName("texture", t.debugName)
	t.instances = append(t.instances, fresh)
	t.active = len(t.instances) - 1
	return fresh, nil
}

type textureDestroyer struct {
	device   vk.Device
	suballoc *memalloc.SubAllocator
	texture  *resource.Texture
}

func (td textureDestroyer) Destroy() { td.texture.Destroy(td.device, td.suballoc) }

// SamplerCreateInfo is the public sampler creation description.
type SamplerCreateInfo struct {
	MinFilter     vk.Filter
	MagFilter     vk.Filter
	MipmapMode    vk.SamplerMipmapMode
	AddressModeU  vk.SamplerAddressMode
	AddressModeV  vk.SamplerAddressMode
	AddressModeW  vk.SamplerAddressMode
	MaxAnisotropy float32
	CompareEnable bool
	CompareOp     CompareOp
	MinLod        float32
	MaxLod        float32
}

func (d *GPUDevice) CreateSampler(info SamplerCreateInfo, props Properties) (*Sampler, error) {
	inner, err := resource.CreateSampler(d.device, resource.SamplerCreateInfo{
		MinFilter:     info.MinFilter,
		MagFilter:     info.MagFilter,
		MipmapMode:    info.MipmapMode,
		AddressModeU:  info.AddressModeU,
		AddressModeV:  info.AddressModeV,
		AddressModeW:  info.AddressModeW,
		MaxAnisotropy: info.MaxAnisotropy,
		CompareEnable: info.CompareEnable,
		CompareOp:     compareOpToVk(info.CompareOp),
		MinLod:        info.MinLod,
		MaxLod:        info.MaxLod,
	})
	if err != nil {
		return nil, newGPUError(KindInit, "CreateSampler", err)
	}
	d.setDebugName("sampler", d.debugName(props, PropSamplerCreateNameString))
	return &Sampler{inner: inner}, nil
}

func (d *GPUDevice) ReleaseSampler(gen uint64, s *Sampler) {
	d.Dispose.DeferSampler(gen, samplerDestroyer{device: d.device, sampler: s.inner})
}

type samplerDestroyer struct {
	device  vk.Device
	sampler *resource.Sampler
}

func (sd samplerDestroyer) Destroy() { sd.sampler.Destroy(sd.device) }

// CommandBuffer is the public recording handle; it wraps cmdengine's
// CommandBuffer, hiding the raw Vulkan type from callers who only ever
// thread the handle back through Submit/Cancel.
type CommandBuffer struct {
	inner *cmdengine.CommandBuffer
	token interface{}
}

// Inner exposes the underlying cmdengine.CommandBuffer for callers that
// need the full recording surface (BeginRenderPass, Draw, Dispatch, ...);
// kept separate from the opaque handle so acquire/submit/cancel stay
// generic over recording details.
func (cb *CommandBuffer) Inner() *cmdengine.CommandBuffer { return cb.inner }

// AcquireCommandBuffer returns a ready-to-record command buffer for the
// calling thread. token identifies the calling thread's pool (§4.6); pass
// the same token consistently from one goroutine to reuse that goroutine's
// pool across calls.
func (d *GPUDevice) AcquireCommandBuffer(token interface{}) (*CommandBuffer, error) {
	inner, err := d.Engine.AcquireCommandBuffer(token)
	if err != nil {
		return nil, newGPUError(KindInit, "AcquireCommandBuffer", err)
	}
	return &CommandBuffer{inner: inner, token: token}, nil
}

// Submit ends recording and submits cb to the unified queue, returning the
// fence generation the dispose queue should drain against once it retires.
func (d *GPUDevice) Submit(cb *CommandBuffer) (uint64, error) {
	if err := cb.inner.End(); err != nil {
		return 0, newGPUError(KindValidation, "Submit", err)
	}

	var waitStages []vk.PipelineStageFlags
	for range cb.inner.AcquireWaitSemaphores {
		waitStages = append(waitStages, vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit))
	}
	var signalSemaphores []vk.Semaphore
	for _, p := range cb.inner.PresentSwapchains {
		signalSemaphores = append(signalSemaphores, p.WaitSemaphore)
	}
	waitSemaphores := cb.inner.AcquireWaitSemaphores

	gen, err := d.Engine.Submit(cb.token, cb.inner, waitSemaphores, waitStages, signalSemaphores)
	if err != nil {
		return 0, newGPUError(KindDeviceLost, "Submit", err)
	}

	if len(cb.inner.PresentSwapchains) > 0 {
		if _, err := d.Engine.Submitter.Present(cb.inner.PresentSwapchains); err != nil {
			return gen, newGPUError(KindDeviceLost, "Submit", err)
		}
	}
	return gen, nil
}

// CancelCommandBuffer resets cb without submitting it (§5 Cancellation):
// legal only for a buffer that was acquired but never submitted.
func (d *GPUDevice) CancelCommandBuffer(cb *CommandBuffer) {
	d.Engine.Cancel(cb.token, cb.inner)
}

// ProcessRetired reaps every inflight command buffer on token's pool whose
// fence has signaled and drains the dispose queue for the retired fence
// generations, per §5's refcount/deferred-destroy invariants. Callers
// should call this once per frame (e.g. right before acquiring next
// frame's command buffer).
func (d *GPUDevice) ProcessRetired(token interface{}) {
	d.Engine.ReapSignaled(token)
	d.Dispose.Drain(d.Engine.Submitter.Retired())
}

// WaitForFences blocks until either every (waitAll=true) or any
// (waitAll=false) of gens has retired, with an effectively infinite
// timeout per §5; the only failure is device loss.
//
// The engine tracks inflight work with a single shared queue rather than
// per-command-buffer wait handles, so "wait for generation N" reduces to
// vkDeviceWaitIdle followed by reaping every pool - there is no cheaper
// wait available once ReapSignaled hasn't already observed the fence.
func (d *GPUDevice) WaitForFences(waitAll bool, gens []uint64) error {
	if len(gens) == 0 {
		return nil
	}
	target := gens[0]
	for _, g := range gens {
		if waitAll {
			if g > target {
				target = g
			}
		} else if g < target {
			target = g
		}
	}
	if d.Engine.Submitter.Retired() >= target {
		return nil
	}
	if ret := vk.DeviceWaitIdle(d.device); isError(ret) {
		return newGPUError(KindDeviceLost, "WaitForFences", vkError("vkDeviceWaitIdle", ret, d.debug))
	}
	// vkDeviceWaitIdle waits for literally everything submitted so far, so
	// every generation up to target (and likely beyond) has now retired.
	d.Engine.Submitter.MarkRetired(target)
	return nil
}

// QueryFence reports whether gen has retired, without blocking.
func (d *GPUDevice) QueryFence(gen uint64) bool {
	return d.Engine.Submitter.Retired() >= gen
}

// UploadBuffer records a host-to-device copy from src into dst, resolving
// each container to its current write target first. dst may request
// cycling; src (typically a mapped staging buffer the caller writes to
// immediately before this call) never cycles, since it is read-only here.
func (d *GPUDevice) UploadBuffer(cb *CommandBuffer, src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64, cycle bool) error {
	srcInst, err := d.acquireBufferForWrite(src, false)
	if err != nil {
		return newGPUError(KindInit, "UploadBuffer", err)
	}
	dstInst, err := d.acquireBufferForWrite(dst, cycle)
	if err != nil {
		return newGPUError(KindInit, "UploadBuffer", err)
	}
	if err := cb.inner.Upload(srcInst, srcOffset, dstInst, dstOffset, size); err != nil {
		return newGPUError(KindValidation, "UploadBuffer", err)
	}
	return nil
}

// DownloadBuffer is UploadBuffer's device-to-host mirror.
func (d *GPUDevice) DownloadBuffer(cb *CommandBuffer, src *Buffer, srcOffset uint64, dst *Buffer, dstOffset, size uint64) error {
	srcInst, err := d.acquireBufferForWrite(src, false)
	if err != nil {
		return newGPUError(KindInit, "DownloadBuffer", err)
	}
	dstInst, err := d.acquireBufferForWrite(dst, false)
	if err != nil {
		return newGPUError(KindInit, "DownloadBuffer", err)
	}
	if err := cb.inner.Download(srcInst, srcOffset, dstInst, dstOffset, size); err != nil {
		return newGPUError(KindValidation, "DownloadBuffer", err)
	}
	return nil
}

// UploadTexture uploads pixel data from a staging buffer into a texture
// subresource, resolving dst's write target (cycling it if requested)
// first.
func (d *GPUDevice) UploadTexture(cb *CommandBuffer, src *Buffer, srcOffset uint64, dst *Texture, sub resource.Subresource, width, height, depth uint32, cycle bool) error {
	srcInst, err := d.acquireBufferForWrite(src, false)
	if err != nil {
		return newGPUError(KindInit, "UploadTexture", err)
	}
	dstInst, err := d.acquireTextureForWrite(dst, cycle)
	if err != nil {
		return newGPUError(KindInit, "UploadTexture", err)
	}
	if err := cb.inner.CopyBufferToTexture(srcInst, srcOffset, dstInst, sub, width, height, depth); err != nil {
		return newGPUError(KindValidation, "UploadTexture", err)
	}
	return nil
}

// ColorTarget pairs a color render-target container with the render-pass
// load/store ops and an optional cycle request for it (§3's discard-write
// model applied to a BeginRenderPass target).
type ColorTarget struct {
	Texture    *Texture
	Cycle      bool
	LoadOp     LoadOp
	StoreOp    StoreOp
	ClearColor [4]float32
}

// DepthStencilTarget is the optional depth/stencil render-pass attachment.
// A nil Texture means no depth/stencil attachment is bound.
type DepthStencilTarget struct {
	Texture        *Texture
	Cycle          bool
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
	ClearDepth     float32
	ClearStencil   uint32
}

// BeginRenderPass resolves each target container to its write instance
// (cycling where requested) and opens the render pass. Swapchain images
// are never passed through here: they are non-cycleable driver-owned
// views bound directly via cmdengine.ColorTargetInfo by the caller instead
// (see cmd/example's render loop).
func (d *GPUDevice) BeginRenderPass(cb *CommandBuffer, renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, colors []ColorTarget, depth DepthStencilTarget) error {
	var colorInfos []cmdengine.ColorTargetInfo
	var targets []*resource.Texture
	for _, c := range colors {
		inst, err := d.acquireTextureForWrite(c.Texture, c.Cycle)
		if err != nil {
			return newGPUError(KindInit, "BeginRenderPass", err)
		}
		view, err := inst.FullView(d.device)
		if err != nil {
			return newGPUError(KindInit, "BeginRenderPass", err)
		}
		colorInfos = append(colorInfos, cmdengine.ColorTargetInfo{
			View:       view,
			LoadOp:     loadOpToVk(c.LoadOp),
			StoreOp:    storeOpToVk(c.StoreOp),
			ClearColor: c.ClearColor,
		})
		targets = append(targets, inst)
	}

	var depthInfo cmdengine.DepthStencilTargetInfo
	if depth.Texture != nil {
		inst, err := d.acquireTextureForWrite(depth.Texture, depth.Cycle)
		if err != nil {
			return newGPUError(KindInit, "BeginRenderPass", err)
		}
		view, err := inst.FullView(d.device)
		if err != nil {
			return newGPUError(KindInit, "BeginRenderPass", err)
		}
		depthInfo = cmdengine.DepthStencilTargetInfo{
			Present:        true,
			View:           view,
			LoadOp:         loadOpToVk(depth.LoadOp),
			StoreOp:        storeOpToVk(depth.StoreOp),
			StencilLoadOp:  loadOpToVk(depth.StencilLoadOp),
			StencilStoreOp: storeOpToVk(depth.StencilStoreOp),
			ClearDepth:     depth.ClearDepth,
			ClearStencil:   depth.ClearStencil,
		}
		targets = append(targets, inst)
	}

	if err := cb.inner.BeginRenderPass(renderPass, framebuffer, extent, colorInfos, depthInfo, targets); err != nil {
		return newGPUError(KindValidation, "BeginRenderPass", err)
	}
	return nil
}

// EndRenderPass closes the render pass opened by BeginRenderPass, reusing
// each target's already-resolved active instance (cycling never happens a
// second time within the same pass).
func (d *GPUDevice) EndRenderPass(cb *CommandBuffer, colors []ColorTarget, depth DepthStencilTarget) error {
	var targets []*resource.Texture
	for _, c := range colors {
		targets = append(targets, c.Texture.Active())
	}
	if depth.Texture != nil {
		targets = append(targets, depth.Texture.Active())
	}
	if err := cb.inner.EndRenderPass(targets); err != nil {
		return newGPUError(KindValidation, "EndRenderPass", err)
	}
	return nil
}

// ComputeWriteTarget pairs a read-write storage texture container with an
// optional cycle request for the compute pass about to write it.
type ComputeWriteTarget struct {
	Texture *Texture
	Cycle   bool
}

// BeginComputePass resolves every read-only storage texture to its active
// instance and every read-write target to its write instance (cycling
// where requested), then opens engine-side compute bookkeeping.
func (d *GPUDevice) BeginComputePass(cb *CommandBuffer, storageTextures []*Texture, readWrite []ComputeWriteTarget) error {
	var roInst []*resource.Texture
	for _, t := range storageTextures {
		roInst = append(roInst, t.Active())
	}
	var rwInst []*resource.Texture
	for _, rw := range readWrite {
		inst, err := d.acquireTextureForWrite(rw.Texture, rw.Cycle)
		if err != nil {
			return newGPUError(KindInit, "BeginComputePass", err)
		}
		rwInst = append(rwInst, inst)
	}
	if err := cb.inner.BeginComputePass(roInst, rwInst); err != nil {
		return newGPUError(KindValidation, "BeginComputePass", err)
	}
	return nil
}

func (d *GPUDevice) EndComputePass(cb *CommandBuffer, storageTextures []*Texture, readWrite []ComputeWriteTarget) error {
	var roInst []*resource.Texture
	for _, t := range storageTextures {
		roInst = append(roInst, t.Active())
	}
	var rwInst []*resource.Texture
	for _, rw := range readWrite {
		rwInst = append(rwInst, rw.Texture.Active())
	}
	if err := cb.inner.EndComputePass(roInst, rwInst); err != nil {
		return newGPUError(KindValidation, "EndComputePass", err)
	}
	return nil
}

// BindGraphicsPipeline and BindComputePipeline bind the pipeline and thread
// its per-set descriptor layouts into cb so the Bind*/FlushDescriptors
// calls that follow know which set each binding belongs to (§4.4).
func (d *GPUDevice) BindGraphicsPipeline(cb *CommandBuffer, gp *GraphicsPipeline) error {
	if err := cb.inner.BindGraphicsPipeline(gp.Pipeline, gp.Layout, gp.vertexRead, gp.vertexUniform, gp.fragRead, gp.fragUniform); err != nil {
		return newGPUError(KindValidation, "BindGraphicsPipeline", err)
	}
	return nil
}

func (d *GPUDevice) BindComputePipeline(cb *CommandBuffer, cp *ComputePipeline) error {
	if err := cb.inner.BindComputePipeline(cp.Pipeline, cp.Layout, cp.readOnly, cp.uniforms); err != nil {
		return newGPUError(KindValidation, "BindComputePipeline", err)
	}
	return nil
}

// BindSampler, BindStorageTexture, BindStorageBuffer and BindUniformBuffer
// stage a descriptor-set binding for stage's read-only set; call
// FlushGraphicsDescriptors/FlushComputeDescriptors once every resource for
// the upcoming draw/dispatch has been staged.
func (d *GPUDevice) BindSampler(cb *CommandBuffer, stage vk.ShaderStageFlagBits, tex *Texture, sampler *Sampler) error {
	if err := cb.inner.BindSampler(d.device, stage, tex.Active(), sampler.inner); err != nil {
		return newGPUError(KindValidation, "BindSampler", err)
	}
	return nil
}

func (d *GPUDevice) BindStorageTexture(cb *CommandBuffer, stage vk.ShaderStageFlagBits, tex *Texture) error {
	if err := cb.inner.BindStorageTexture(d.device, stage, tex.Active()); err != nil {
		return newGPUError(KindValidation, "BindStorageTexture", err)
	}
	return nil
}

func (d *GPUDevice) BindStorageBuffer(cb *CommandBuffer, stage vk.ShaderStageFlagBits, buf *Buffer, offset, size uint64) error {
	if err := cb.inner.BindStorageBuffer(stage, buf.Active(), offset, size); err != nil {
		return newGPUError(KindValidation, "BindStorageBuffer", err)
	}
	return nil
}

func (d *GPUDevice) BindUniformBuffer(cb *CommandBuffer, stage vk.ShaderStageFlagBits) error {
	if err := cb.inner.BindUniformBuffer(stage); err != nil {
		return newGPUError(KindValidation, "BindUniformBuffer", err)
	}
	return nil
}

func (d *GPUDevice) FlushGraphicsDescriptors(cb *CommandBuffer) error {
	if err := cb.inner.FlushDescriptors(d.device, vk.PipelineBindPointGraphics); err != nil {
		return newGPUError(KindValidation, "FlushGraphicsDescriptors", err)
	}
	return nil
}

func (d *GPUDevice) FlushComputeDescriptors(cb *CommandBuffer) error {
	if err := cb.inner.FlushDescriptors(d.device, vk.PipelineBindPointCompute); err != nil {
		return newGPUError(KindValidation, "FlushComputeDescriptors", err)
	}
	return nil
}

// Composition re-exports swapchain's enum at the public surface.
type Composition = swapchain.Composition

// ClaimWindow creates a swapchain for win under windowToken, selecting a
// format for comp and present mode per the vsync/mailbox/immediate
// preference (§4.9).
func (d *GPUDevice) ClaimWindow(windowToken interface{}, win window.Window, comp SwapchainComposition, mode PresentMode) (*swapchain.WindowData, error) {
	surface, err := win.CreateSurface(d.instance)
	if err != nil {
		return nil, newGPUError(KindInit, "ClaimWindow", err)
	}
	wantMailbox := mode == PresentModeMailbox
	wantImmediate := mode == PresentModeImmediate
	wd, err := d.Swapchains.ClaimWindow(windowToken, surface, swapchain.Composition(comp), wantMailbox, wantImmediate)
	if err != nil {
		return nil, newGPUError(KindInit, "ClaimWindow", err)
	}
	return wd, nil
}

// ReleaseWindow tears down windowToken's swapchain.
func (d *GPUDevice) ReleaseWindow(windowToken interface{}) {
	d.Swapchains.ReleaseWindow(windowToken)
}

// AcquireSwapchainTexture acquires the next presentable image for wd. A nil
// *AcquireResult with a nil error means "skip this frame" (the window's
// surface has a zero extent, e.g. minimized), per §7 - this is not an error
// condition. A suboptimal image is returned as usual; an out-of-date
// swapchain is recreated and the acquire retried once inside the manager.
func (d *GPUDevice) AcquireSwapchainTexture(wd *swapchain.WindowData) (*swapchain.AcquireResult, error) {
	result, err := d.Swapchains.Acquire(wd)
	if err != nil {
		if err == swapchain.ErrSwapchainZeroExtent {
			return nil, nil
		}
		return nil, newGPUError(KindDeviceLost, "AcquireSwapchainTexture", err)
	}
	return result, nil
}
