package cmdengine

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/descriptor"
	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/resource"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// ColorTargetInfo describes one render-pass color attachment binding.
type ColorTargetInfo struct {
	View     vk.ImageView
	LoadOp   vk.AttachmentLoadOp
	StoreOp  vk.AttachmentStoreOp
	ClearColor [4]float32
}

// DepthStencilTargetInfo describes the optional depth/stencil attachment.
type DepthStencilTargetInfo struct {
	Present        bool
	View           vk.ImageView
	LoadOp         vk.AttachmentLoadOp
	StoreOp        vk.AttachmentStoreOp
	StencilLoadOp  vk.AttachmentLoadOp
	StencilStoreOp vk.AttachmentStoreOp
	ClearDepth     float32
	ClearStencil   uint32
}

// Begin starts command-buffer recording. Vulkan forbids re-beginning a
// command buffer that is already recording or pending; the caller must
// have called Reset after the prior submission's fence signaled.
func (cb *CommandBuffer) Begin() error {
	beginInfo := vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
		Flags: vk.CommandBufferUsageFlags(vk.CommandBufferUsageOneTimeSubmitBit),
	}
	ret := vk.BeginCommandBuffer(cb.Handle, &beginInfo)
	if ret != vk.Success {
		return fmt.Errorf("cmdengine: vkBeginCommandBuffer failed: result %d", int32(ret))
	}
	return nil
}

func (cb *CommandBuffer) End() error {
	ret := vk.EndCommandBuffer(cb.Handle)
	if ret != vk.Success {
		return fmt.Errorf("cmdengine: vkEndCommandBuffer failed: result %d", int32(ret))
	}
	return nil
}

// BeginRenderPass transitions every color/depth target from its default
// usage mode into the attachment mode, then opens the Vulkan render pass.
// Pipeline barriers are only ever recorded outside a render pass, so every
// transition here happens before vkCmdBeginRenderPass.
func (cb *CommandBuffer) BeginRenderPass(renderPass vk.RenderPass, framebuffer vk.Framebuffer, extent vk.Extent2D, colors []ColorTargetInfo, depth DepthStencilTargetInfo, targets []*resource.Texture) error {
	if cb.pass != passNone {
		return fmt.Errorf("cmdengine: BeginRenderPass called while a %v pass is already open", cb.pass)
	}

	var barriers []vk.ImageMemoryBarrier
	for _, tex := range targets {
		dstMode := restrack.ModeColorAttachment
		if restrack.TextureUsage(tex.Usage)&restrack.TextureUsageDepthStencilTarget != 0 {
			dstMode = restrack.ModeDepthStencilAttachment
		}
		b := restrack.TransitionFromDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, tex.DefaultMode, dstMode)
		barriers = append(barriers, b.Barrier)
	}
	if len(barriers) > 0 {
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit|vk.PipelineStageEarlyFragmentTestsBit),
			0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
	}

	var clearValues []vk.ClearValue
	for _, c := range colors {
		cv := vk.NewClearValue([]float32{c.ClearColor[0], c.ClearColor[1], c.ClearColor[2], c.ClearColor[3]})
		clearValues = append(clearValues, cv)
	}
	if depth.Present {
		cv := vk.NewClearDepthStencil(depth.ClearDepth, depth.ClearStencil)
		clearValues = append(clearValues, cv)
	}

	beginInfo := vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  renderPass,
		Framebuffer: framebuffer,
		RenderArea:  vk.Rect2D{Offset: vk.Offset2D{X: 0, Y: 0}, Extent: extent},
		ClearValueCount: uint32(len(clearValues)),
	}
	if len(clearValues) > 0 {
		beginInfo.PClearValues = clearValues
	}

	vk.CmdBeginRenderPass(cb.Handle, &beginInfo, vk.SubpassContentsInline)

	// Every graphics pipeline declares VK_DYNAMIC_STATE_VIEWPORT/SCISSOR
	// (§4.9), so nothing is a valid draw target until both are set at least
	// once per render pass; they persist across every Draw call in this
	// pass until set again.
	viewport := vk.Viewport{
		X: 0, Y: 0,
		Width:    float32(extent.Width),
		Height:   float32(extent.Height),
		MinDepth: 0,
		MaxDepth: 1,
	}
	vk.CmdSetViewport(cb.Handle, 0, 1, []vk.Viewport{viewport})
	scissor := vk.Rect2D{Offset: vk.Offset2D{X: 0, Y: 0}, Extent: extent}
	vk.CmdSetScissor(cb.Handle, 0, 1, []vk.Rect2D{scissor})

	cb.pass = passRender
	return nil
}

// EndRenderPass closes the Vulkan render pass and transitions every bound
// target back to its default usage mode.
func (cb *CommandBuffer) EndRenderPass(targets []*resource.Texture) error {
	if cb.pass != passRender {
		return fmt.Errorf("cmdengine: EndRenderPass called outside a render pass")
	}
	vk.CmdEndRenderPass(cb.Handle)

	var barriers []vk.ImageMemoryBarrier
	for _, tex := range targets {
		srcMode := restrack.ModeColorAttachment
		if restrack.TextureUsage(tex.Usage)&restrack.TextureUsageDepthStencilTarget != 0 {
			srcMode = restrack.ModeDepthStencilAttachment
		}
		b := restrack.TransitionToDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, srcMode, tex.DefaultMode)
		barriers = append(barriers, b.Barrier)
	}
	if len(barriers) > 0 {
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit|vk.PipelineStageLateFragmentTestsBit),
			vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
	}
	cb.pass = passNone
	return nil
}

// BeginComputePass transitions the read-only storage textures into
// ComputeStorageRead and the read-write textures into
// ComputeStorageReadWrite; storage buffers are not transitioned here.
// There is no Vulkan "compute pass"
// object, so this only opens engine-side bookkeeping and records barriers.
func (cb *CommandBuffer) BeginComputePass(storageTextures []*resource.Texture, readWrite []*resource.Texture) error {
	if cb.pass != passNone {
		return fmt.Errorf("cmdengine: BeginComputePass called while a %v pass is already open", cb.pass)
	}
	var barriers []vk.ImageMemoryBarrier
	for _, tex := range storageTextures {
		b := restrack.TransitionFromDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, tex.DefaultMode, restrack.ModeComputeStorageRead)
		barriers = append(barriers, b.Barrier)
	}
	for _, tex := range readWrite {
		b := restrack.TransitionFromDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, tex.DefaultMode, restrack.ModeComputeStorageReadWrite)
		barriers = append(barriers, b.Barrier)
	}
	if len(barriers) > 0 {
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
	}
	cb.pass = passCompute
	return nil
}

func (cb *CommandBuffer) EndComputePass(storageTextures, readWrite []*resource.Texture) error {
	if cb.pass != passCompute {
		return fmt.Errorf("cmdengine: EndComputePass called outside a compute pass")
	}
	var barriers []vk.ImageMemoryBarrier
	for _, tex := range storageTextures {
		b := restrack.TransitionToDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, restrack.ModeComputeStorageRead, tex.DefaultMode)
		barriers = append(barriers, b.Barrier)
	}
	for _, tex := range readWrite {
		b := restrack.TransitionToDefault(tex.Handle, resourceAspect(tex), tex.ArrayLayers, tex.MipLevels, restrack.ModeComputeStorageReadWrite, tex.DefaultMode)
		barriers = append(barriers, b.Barrier)
	}
	if len(barriers) > 0 {
		vk.CmdPipelineBarrier(cb.Handle,
			vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
			vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
			0, 0, nil, 0, nil, uint32(len(barriers)), barriers)
	}
	cb.pass = passNone
	return nil
}

// BeginCopyPass opens bookkeeping for upload/download/copy/blit calls; no
// Vulkan object corresponds to it.
func (cb *CommandBuffer) BeginCopyPass() error {
	if cb.pass != passNone {
		return fmt.Errorf("cmdengine: BeginCopyPass called while a %v pass is already open", cb.pass)
	}
	cb.pass = passCopy
	return nil
}

func (cb *CommandBuffer) EndCopyPass() error {
	if cb.pass != passCopy {
		return fmt.Errorf("cmdengine: EndCopyPass called outside a copy pass")
	}
	cb.pass = passNone
	return nil
}

// BindGraphicsPipeline binds pipeline/layout, records a reference so the
// pipeline cannot be destroyed while this submission is in flight, and
// remembers the four descriptor-set layouts (vertex-read, vertex-uniform,
// fragment-read, fragment-uniform) it was built against so the upcoming
// Bind*/FlushDescriptors calls know which set each binding belongs to.
func (cb *CommandBuffer) BindGraphicsPipeline(pipeline vk.Pipeline, layout vk.PipelineLayout, vertexRead, vertexUniform, fragRead, fragUniform *descriptor.Layout) error {
	if cb.pass != passRender {
		return fmt.Errorf("cmdengine: BindGraphicsPipeline called outside a render pass")
	}
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointGraphics, pipeline)
	cb.binding.pipeline = pipeline
	cb.binding.pipelineLayout = layout
	cb.binding.vertexReadLayout = vertexRead
	cb.binding.vertexUniformLayout = vertexUniform
	cb.binding.fragReadLayout = fragRead
	cb.binding.fragUniformLayout = fragUniform
	cb.binding.vertexRead = readSetBinding{}
	cb.binding.fragRead = readSetBinding{}
	return nil
}

func (cb *CommandBuffer) BindComputePipeline(pipeline vk.Pipeline, layout vk.PipelineLayout, readOnly, uniforms *descriptor.Layout) error {
	if cb.pass != passCompute {
		return fmt.Errorf("cmdengine: BindComputePipeline called outside a compute pass")
	}
	vk.CmdBindPipeline(cb.Handle, vk.PipelineBindPointCompute, pipeline)
	cb.binding.pipeline = pipeline
	cb.binding.pipelineLayout = layout
	cb.binding.computeReadLayout = readOnly
	cb.binding.computeUniformLayout = uniforms
	cb.binding.computeRead = readSetBinding{}
	return nil
}

// readSetFor returns the staging area for stage's read-only descriptor set
// (samplers, storage textures, storage buffers) - the set every
// BindSampler/BindStorageTexture/BindStorageBuffer call writes into.
func (cb *CommandBuffer) readSetFor(stage vk.ShaderStageFlagBits) (*readSetBinding, error) {
	switch stage {
	case vk.ShaderStageVertexBit:
		return &cb.binding.vertexRead, nil
	case vk.ShaderStageFragmentBit:
		return &cb.binding.fragRead, nil
	case vk.ShaderStageComputeBit:
		return &cb.binding.computeRead, nil
	default:
		return nil, fmt.Errorf("cmdengine: unsupported shader stage %v for descriptor binding", stage)
	}
}

// BindSampler stages a combined-image-sampler binding for stage's read-only
// descriptor set, at the next binding index in sampler category order
// (descriptor.LayoutTable.Intern lays out samplers before storage textures
// and storage buffers within a set). Samplers are not refcounted (see
// resource.Sampler), so only the texture is added to the reference list.
func (cb *CommandBuffer) BindSampler(device vk.Device, stage vk.ShaderStageFlagBits, tex *resource.Texture, sampler *resource.Sampler) error {
	set, err := cb.readSetFor(stage)
	if err != nil {
		return fmt.Errorf("cmdengine: BindSampler: %w", err)
	}
	view, err := tex.FullView(device)
	if err != nil {
		return fmt.Errorf("cmdengine: BindSampler: %w", err)
	}
	cb.bindResource(tex)
	set.samplers = append(set.samplers, boundSampler{Sampler: sampler.Handle, View: view})
	return nil
}

// BindStorageTexture stages a read-only sampled-image binding for stage's
// read-only descriptor set.
func (cb *CommandBuffer) BindStorageTexture(device vk.Device, stage vk.ShaderStageFlagBits, tex *resource.Texture) error {
	set, err := cb.readSetFor(stage)
	if err != nil {
		return fmt.Errorf("cmdengine: BindStorageTexture: %w", err)
	}
	view, err := tex.FullView(device)
	if err != nil {
		return fmt.Errorf("cmdengine: BindStorageTexture: %w", err)
	}
	cb.bindResource(tex)
	set.storageTextures = append(set.storageTextures, view)
	return nil
}

// BindStorageBuffer stages a read-only storage-buffer binding for stage's
// read-only descriptor set.
func (cb *CommandBuffer) BindStorageBuffer(stage vk.ShaderStageFlagBits, buf *resource.Buffer, offset, size uint64) error {
	set, err := cb.readSetFor(stage)
	if err != nil {
		return fmt.Errorf("cmdengine: BindStorageBuffer: %w", err)
	}
	cb.bindResource(buf)
	set.storageBuffers = append(set.storageBuffers, boundBufferRange{Buffer: buf.Handle, Offset: offset, Range: size})
	return nil
}

// BindUniformBuffer marks stage's uniform descriptor set as wanting the
// command buffer's active UniformBuffer bound at flush time. The data
// itself must already have been staged by a prior PushUniformData call;
// FlushDescriptors reads the offset/size it recorded there.
func (cb *CommandBuffer) BindUniformBuffer(stage vk.ShaderStageFlagBits) error {
	if _, err := cb.readSetFor(stage); err != nil {
		return fmt.Errorf("cmdengine: BindUniformBuffer: %w", err)
	}
	if cb.binding.uniformBuf == nil {
		return fmt.Errorf("cmdengine: BindUniformBuffer: no uniform data has been pushed via PushUniformData")
	}
	return nil
}

// FlushDescriptors acquires, writes, and binds every descriptor set staged
// by the Bind* calls made since the active pipeline was bound. It must run
// after every Bind*/PushUniformData call for a draw or dispatch and before
// the Draw*/Dispatch call itself, mirroring the teacher's bind-then-flush
// ordering for descriptor updates. Sets are bound individually rather than
// batched, since a shader may leave any of the four graphics sets (or the
// compute read-only set) entirely unused.
func (cb *CommandBuffer) FlushDescriptors(device vk.Device, bindPoint vk.PipelineBindPoint) error {
	if cb.descriptors == nil {
		return fmt.Errorf("cmdengine: FlushDescriptors: command buffer has no descriptor cache")
	}

	type boundSet struct {
		index  uint32
		layout *descriptor.Layout
		read   *readSetBinding
	}

	var sets []boundSet
	if bindPoint == vk.PipelineBindPointCompute {
		sets = []boundSet{
			{0, cb.binding.computeReadLayout, &cb.binding.computeRead},
			{2, cb.binding.computeUniformLayout, nil},
		}
	} else {
		sets = []boundSet{
			{0, cb.binding.vertexReadLayout, &cb.binding.vertexRead},
			{1, cb.binding.vertexUniformLayout, nil},
			{2, cb.binding.fragReadLayout, &cb.binding.fragRead},
			{3, cb.binding.fragUniformLayout, nil},
		}
	}

	for _, s := range sets {
		if s.layout == nil {
			continue
		}
		set, err := cb.descriptors.Acquire(s.layout)
		if err != nil {
			return fmt.Errorf("cmdengine: FlushDescriptors: %w", err)
		}

		var writes []vk.WriteDescriptorSet
		var dynamicOffsets []uint32
		binding := uint32(0)

		if s.read != nil {
			for _, smp := range s.read.samplers {
				info := vk.DescriptorImageInfo{Sampler: smp.Sampler, ImageView: smp.View, ImageLayout: vk.ImageLayoutShaderReadOnlyOptimal}
				writes = append(writes, vk.WriteDescriptorSet{
					SType: vk.StructureTypeWriteDescriptorSet, DstSet: set, DstBinding: binding,
					DescriptorCount: 1, DescriptorType: vk.DescriptorTypeCombinedImageSampler,
					PImageInfo: []vk.DescriptorImageInfo{info},
				})
				binding++
			}
			for _, view := range s.read.storageTextures {
				info := vk.DescriptorImageInfo{ImageView: view, ImageLayout: vk.ImageLayoutGeneral}
				writes = append(writes, vk.WriteDescriptorSet{
					SType: vk.StructureTypeWriteDescriptorSet, DstSet: set, DstBinding: binding,
					DescriptorCount: 1, DescriptorType: vk.DescriptorTypeSampledImage,
					PImageInfo: []vk.DescriptorImageInfo{info},
				})
				binding++
			}
			for _, br := range s.read.storageBuffers {
				info := vk.DescriptorBufferInfo{Buffer: br.Buffer, Offset: vk.DeviceSize(br.Offset), Range: vk.DeviceSize(br.Range)}
				writes = append(writes, vk.WriteDescriptorSet{
					SType: vk.StructureTypeWriteDescriptorSet, DstSet: set, DstBinding: binding,
					DescriptorCount: 1, DescriptorType: vk.DescriptorTypeStorageBuffer,
					PBufferInfo: []vk.DescriptorBufferInfo{info},
				})
				binding++
			}
		} else {
			if cb.binding.uniformBuf == nil {
				return fmt.Errorf("cmdengine: FlushDescriptors: uniform set declared but no data has been pushed")
			}
			rng := cb.binding.uniformBuf.DrawSize()
			if rng == 0 {
				rng = 1
			}
			for i := 0; i < s.layout.Key.UniformBuffers; i++ {
				info := vk.DescriptorBufferInfo{Buffer: cb.binding.uniformBuf.Buffer.Handle, Offset: 0, Range: vk.DeviceSize(rng)}
				writes = append(writes, vk.WriteDescriptorSet{
					SType: vk.StructureTypeWriteDescriptorSet, DstSet: set, DstBinding: uint32(i),
					DescriptorCount: 1, DescriptorType: vk.DescriptorTypeUniformBufferDynamic,
					PBufferInfo: []vk.DescriptorBufferInfo{info},
				})
				dynamicOffsets = append(dynamicOffsets, uint32(cb.binding.uniformBuf.DrawOffset()))
			}
		}

		if len(writes) > 0 {
			vk.UpdateDescriptorSets(device, uint32(len(writes)), writes, 0, nil)
		}
		vk.CmdBindDescriptorSets(cb.Handle, bindPoint, cb.binding.pipelineLayout, s.index, 1, []vk.DescriptorSet{set}, uint32(len(dynamicOffsets)), dynamicOffsets)
	}
	return nil
}

func (cb *CommandBuffer) BindVertexBuffers(firstBinding uint32, buffers []*resource.Buffer, offsets []uint64) {
	handles := make([]vk.Buffer, len(buffers))
	vkOffsets := make([]vk.DeviceSize, len(offsets))
	for i, b := range buffers {
		handles[i] = b.Handle
		cb.bindResource(b)
	}
	for i, o := range offsets {
		vkOffsets[i] = vk.DeviceSize(o)
	}
	vk.CmdBindVertexBuffers(cb.Handle, firstBinding, uint32(len(handles)), handles, vkOffsets)
}

func (cb *CommandBuffer) BindIndexBuffer(buffer *resource.Buffer, offset uint64, indexType vk.IndexType) {
	cb.bindResource(buffer)
	vk.CmdBindIndexBuffer(cb.Handle, buffer.Handle, vk.DeviceSize(offset), indexType)
}

// PushUniformData stages data into the active UniformBuffer at an aligned
// offset and binds the resulting descriptor offset, acquiring a fresh
// UniformBuffer and retrying exactly once if the current one would
// overflow (§4.2/§4.6): a single push can never legitimately need a second
// retry since UniformBufferSize already bounds every valid push size.
func (cb *CommandBuffer) PushUniformData(device vk.Device, suballoc *memalloc.SubAllocator, alignment uint64, data []byte) error {
	if cb.binding.uniformBuf == nil {
		ub, err := resource.AcquireUniformBuffer(device, suballoc)
		if err != nil {
			return fmt.Errorf("cmdengine: PushUniformData: %w", err)
		}
		cb.binding.uniformBuf = ub
		cb.bindResource(ub.Buffer)
	}

	offset := ceilAlign(uniformWriteOffset(cb.binding.uniformBuf), alignment)
	if ok := cb.binding.uniformBuf.Push(offset, data); ok {
		return nil
	}

	ub, err := resource.AcquireUniformBuffer(device, suballoc)
	if err != nil {
		return fmt.Errorf("cmdengine: PushUniformData: fresh buffer: %w", err)
	}
	cb.binding.uniformBuf = ub
	cb.bindResource(ub.Buffer)
	if ok := ub.Push(0, data); !ok {
		return fmt.Errorf("cmdengine: PushUniformData: push of %d bytes exceeds UniformBufferSize", len(data))
	}
	return nil
}

func uniformWriteOffset(ub *resource.UniformBuffer) uint64 {
	return resource.UniformBufferSize - ub.Remaining()
}

func ceilAlign(offset, alignment uint64) uint64 {
	if alignment == 0 {
		return offset
	}
	rem := offset % alignment
	if rem == 0 {
		return offset
	}
	return offset + (alignment - rem)
}

func (cb *CommandBuffer) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) error {
	if cb.pass != passRender {
		return fmt.Errorf("cmdengine: Draw called outside a render pass")
	}
	vk.CmdDraw(cb.Handle, vertexCount, instanceCount, firstVertex, firstInstance)
	return nil
}

func (cb *CommandBuffer) DrawIndexed(indexCount, instanceCount, firstIndex uint32, vertexOffset int32, firstInstance uint32) error {
	if cb.pass != passRender {
		return fmt.Errorf("cmdengine: DrawIndexed called outside a render pass")
	}
	vk.CmdDrawIndexed(cb.Handle, indexCount, instanceCount, firstIndex, vertexOffset, firstInstance)
	return nil
}

// DrawIndirectMulti emulates a multi-draw-indirect call on devices lacking
// VK_KHR_multi_draw/the core 1.2+ feature, by issuing drawCount individual
// vkCmdDrawIndirect calls at a fixed stride — functionally identical, just
// not a single driver-side batch.
func (cb *CommandBuffer) DrawIndirectMulti(buffer *resource.Buffer, offset uint64, drawCount uint32, stride uint32, hasNativeMultiDraw bool) error {
	if cb.pass != passRender {
		return fmt.Errorf("cmdengine: DrawIndirectMulti called outside a render pass")
	}
	cb.bindResource(buffer)
	if hasNativeMultiDraw {
		vk.CmdDrawIndirect(cb.Handle, buffer.Handle, vk.DeviceSize(offset), drawCount, stride)
		return nil
	}
	for i := uint32(0); i < drawCount; i++ {
		vk.CmdDrawIndirect(cb.Handle, buffer.Handle, vk.DeviceSize(offset+uint64(i*stride)), 1, stride)
	}
	return nil
}

func (cb *CommandBuffer) Dispatch(groupX, groupY, groupZ uint32) error {
	if cb.pass != passCompute {
		return fmt.Errorf("cmdengine: Dispatch called outside a compute pass")
	}
	vk.CmdDispatch(cb.Handle, groupX, groupY, groupZ)
	return nil
}

// Upload records a host-to-device buffer copy from a transfer-src buffer
// (typically a mapped staging buffer) into dst.
func (cb *CommandBuffer) Upload(src *resource.Buffer, srcOffset uint64, dst *resource.Buffer, dstOffset, size uint64) error {
	if cb.pass != passCopy {
		return fmt.Errorf("cmdengine: Upload called outside a copy pass")
	}
	cb.bindResource(src)
	cb.bindResource(dst)
	region := vk.BufferCopy{SrcOffset: vk.DeviceSize(srcOffset), DstOffset: vk.DeviceSize(dstOffset), Size: vk.DeviceSize(size)}
	vk.CmdCopyBuffer(cb.Handle, src.Handle, dst.Handle, 1, []vk.BufferCopy{region})
	return nil
}

// Download records a device-to-host buffer copy, the mirror of Upload.
func (cb *CommandBuffer) Download(src *resource.Buffer, srcOffset uint64, dst *resource.Buffer, dstOffset, size uint64) error {
	return cb.Upload(src, srcOffset, dst, dstOffset, size)
}

// CopyBufferToTexture uploads pixel data from a staging buffer into a
// texture subresource.
func (cb *CommandBuffer) CopyBufferToTexture(src *resource.Buffer, srcOffset uint64, dst *resource.Texture, sub resource.Subresource, width, height, depth uint32) error {
	if cb.pass != passCopy {
		return fmt.Errorf("cmdengine: CopyBufferToTexture called outside a copy pass")
	}
	cb.bindResource(src)
	cb.bindResource(dst)

	b := restrack.TransitionFromDefault(dst.Handle, resourceAspect(dst), 1, 1, dst.DefaultMode, restrack.ModeCopyDestination)
	vk.CmdPipelineBarrier(cb.Handle, b.SrcStage, b.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{b.Barrier})

	region := vk.BufferImageCopy{
		BufferOffset: vk.DeviceSize(srcOffset),
		ImageSubresource: vk.ImageSubresourceLayers{
			AspectMask:     resourceAspect(dst),
			MipLevel:       sub.MipLevel,
			BaseArrayLayer: sub.ArrayLayer,
			LayerCount:     1,
		},
		ImageExtent: vk.Extent3D{Width: width, Height: height, Depth: depth},
	}
	vk.CmdCopyBufferToImage(cb.Handle, src.Handle, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.BufferImageCopy{region})

	back := restrack.TransitionToDefault(dst.Handle, resourceAspect(dst), 1, 1, restrack.ModeCopyDestination, dst.DefaultMode)
	vk.CmdPipelineBarrier(cb.Handle, back.SrcStage, back.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{back.Barrier})
	return nil
}

// Blit copies and optionally scales/flips one texture region into another.
// Axis inversion is implemented by swapping the source region's min/max X
// or Y coordinates in the VkImageBlit rather than by a separate flip pass.
func (cb *CommandBuffer) Blit(src *resource.Texture, dst *resource.Texture, srcX0, srcY0, srcX1, srcY1 int32, dstX0, dstY0, dstX1, dstY1 int32, flipHorizontal, flipVertical bool, filter vk.Filter) error {
	if cb.pass != passCopy {
		return fmt.Errorf("cmdengine: Blit called outside a copy pass")
	}
	cb.bindResource(src)
	cb.bindResource(dst)

	if flipHorizontal {
		srcX0, srcX1 = srcX1, srcX0
	}
	if flipVertical {
		srcY0, srcY1 = srcY1, srcY0
	}

	region := vk.ImageBlit{
		SrcSubresource: vk.ImageSubresourceLayers{AspectMask: resourceAspect(src), LayerCount: 1},
		SrcOffsets:     [2]vk.Offset3D{{X: srcX0, Y: srcY0, Z: 0}, {X: srcX1, Y: srcY1, Z: 1}},
		DstSubresource: vk.ImageSubresourceLayers{AspectMask: resourceAspect(dst), LayerCount: 1},
		DstOffsets:     [2]vk.Offset3D{{X: dstX0, Y: dstY0, Z: 0}, {X: dstX1, Y: dstY1, Z: 1}},
	}

	srcBarrier := restrack.TransitionFromDefault(src.Handle, resourceAspect(src), 1, 1, src.DefaultMode, restrack.ModeCopySource)
	dstBarrier := restrack.TransitionFromDefault(dst.Handle, resourceAspect(dst), 1, 1, dst.DefaultMode, restrack.ModeCopyDestination)
	vk.CmdPipelineBarrier(cb.Handle, srcBarrier.SrcStage, srcBarrier.DstStage, 0, 0, nil, 0, nil, 2,
		[]vk.ImageMemoryBarrier{srcBarrier.Barrier, dstBarrier.Barrier})

	vk.CmdBlitImage(cb.Handle, src.Handle, vk.ImageLayoutTransferSrcOptimal, dst.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{region}, filter)

	srcBack := restrack.TransitionToDefault(src.Handle, resourceAspect(src), 1, 1, restrack.ModeCopySource, src.DefaultMode)
	dstBack := restrack.TransitionToDefault(dst.Handle, resourceAspect(dst), 1, 1, restrack.ModeCopyDestination, dst.DefaultMode)
	vk.CmdPipelineBarrier(cb.Handle, srcBack.SrcStage, dstBack.DstStage, 0, 0, nil, 0, nil, 2,
		[]vk.ImageMemoryBarrier{srcBack.Barrier, dstBack.Barrier})
	return nil
}

// GenerateMipmaps blits mip level N into N+1 repeatedly down to the bottom
// of the chain, the standard software-mipmap-generation sequence used when
// the format doesn't support linear blit auto-generation via a dedicated
// extension.
func (cb *CommandBuffer) GenerateMipmaps(tex *resource.Texture) error {
	if cb.pass != passCopy {
		return fmt.Errorf("cmdengine: GenerateMipmaps called outside a copy pass")
	}
	cb.bindResource(tex)

	w, h := int32(tex.Width), int32(tex.Height)
	for level := uint32(1); level < tex.MipLevels; level++ {
		nextW, nextH := w/2, h/2
		if nextW < 1 {
			nextW = 1
		}
		if nextH < 1 {
			nextH = 1
		}
		region := vk.ImageBlit{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: resourceAspect(tex), MipLevel: level - 1, LayerCount: 1},
			SrcOffsets:     [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: w, Y: h, Z: 1}},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: resourceAspect(tex), MipLevel: level, LayerCount: 1},
			DstOffsets:     [2]vk.Offset3D{{X: 0, Y: 0, Z: 0}, {X: nextW, Y: nextH, Z: 1}},
		}
		vk.CmdBlitImage(cb.Handle, tex.Handle, vk.ImageLayoutTransferSrcOptimal, tex.Handle, vk.ImageLayoutTransferDstOptimal, 1, []vk.ImageBlit{region}, vk.FilterLinear)
		w, h = nextW, nextH
	}
	return nil
}

// InsertDebugLabel, PushDebugGroup, and PopDebugGroup are generic hook
// points: the caller supplies whatever callback it wants run against the
// raw command buffer handle (a log line, a future VK_EXT_debug_utils call
// if the binding ever wraps one - see properties.go's setDebugName for why
// it doesn't today). A nil callback makes the call a no-op rather than an
// error, since debug tooling is never required to be present.
func (cb *CommandBuffer) InsertDebugLabel(name string, insert func(vk.CommandBuffer, string)) {
	if insert != nil {
		insert(cb.Handle, name)
	}
}

func (cb *CommandBuffer) PushDebugGroup(name string, push func(vk.CommandBuffer, string)) {
	if push != nil {
		push(cb.Handle, name)
	}
}

func (cb *CommandBuffer) PopDebugGroup(pop func(vk.CommandBuffer)) {
	if pop != nil {
		pop(cb.Handle)
	}
}

func resourceAspect(tex *resource.Texture) vk.ImageAspectFlags {
	return resource.AspectMask(tex.Format, true)
}
