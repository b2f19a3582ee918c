package restrack

import vk "github.com/vulkan-go/vulkan"

// modeTriple is the fixed (stage, access, layout) triple each UsageMode maps
// to, per §4.3. Buffers ignore Layout.
type modeTriple struct {
	Stage  vk.PipelineStageFlags
	Access vk.AccessFlags
	Layout vk.ImageLayout
}

var modeTriples = map[UsageMode]modeTriple{
	ModeUndefined: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTopOfPipeBit),
		Access: 0,
		Layout: vk.ImageLayoutUndefined,
	},
	ModeVertexRead: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		Access: vk.AccessFlags(vk.AccessVertexAttributeReadBit),
	},
	ModeIndexRead: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageVertexInputBit),
		Access: vk.AccessFlags(vk.AccessIndexReadBit),
	},
	ModeIndirectRead: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageDrawIndirectBit),
		Access: vk.AccessFlags(vk.AccessIndirectCommandReadBit),
	},
	ModeGraphicsStorageRead: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageVertexShaderBit | vk.PipelineStageFragmentShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit),
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	},
	ModeComputeStorageRead: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit),
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	},
	ModeComputeStorageReadWrite: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		Layout: vk.ImageLayoutGeneral,
	},
	ModeSampler: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageFragmentShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit),
		Layout: vk.ImageLayoutShaderReadOnlyOptimal,
	},
	ModeColorAttachment: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageColorAttachmentOutputBit),
		Access: vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit),
		Layout: vk.ImageLayoutColorAttachmentOptimal,
	},
	ModeDepthStencilAttachment: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageEarlyFragmentTestsBit | vk.PipelineStageLateFragmentTestsBit),
		Access: vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit),
		Layout: vk.ImageLayoutDepthStencilAttachmentOptimal,
	},
	ModeComputeStorageWrite: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderWriteBit),
		Layout: vk.ImageLayoutGeneral,
	},
	ModeComputeSimultaneousReadWrite: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageComputeShaderBit),
		Access: vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit),
		Layout: vk.ImageLayoutGeneral,
	},
	ModeCopySource: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferReadBit),
		Layout: vk.ImageLayoutTransferSrcOptimal,
	},
	ModeCopyDestination: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		Access: vk.AccessFlags(vk.AccessTransferWriteBit),
		Layout: vk.ImageLayoutTransferDstOptimal,
	},
	ModePresent: {
		Stage:  vk.PipelineStageFlags(vk.PipelineStageBottomOfPipeBit),
		Access: 0,
		Layout: vk.ImageLayoutPresentSrc,
	},
}

// BufferBarrier is a resolved vk.BufferMemoryBarrier plus the pipeline
// stage pair vkCmdPipelineBarrier needs.
type BufferBarrier struct {
	SrcStage vk.PipelineStageFlags
	DstStage vk.PipelineStageFlags
	Barrier  vk.BufferMemoryBarrier
}

// ImageBarrier is a resolved vk.ImageMemoryBarrier plus its stage pair.
type ImageBarrier struct {
	SrcStage vk.PipelineStageFlags
	DstStage vk.PipelineStageFlags
	Barrier  vk.ImageMemoryBarrier
}

// TransitionBuffer builds the barrier moving buffer from one usage mode to
// another. Pipeline barriers must never be recorded inside a render pass
// (Vulkan rule) — that invariant is enforced by cmdengine, not here.
func TransitionBuffer(buffer vk.Buffer, size vk.DeviceSize, from, to UsageMode) BufferBarrier {
	src := modeTriples[from]
	dst := modeTriples[to]
	return BufferBarrier{
		SrcStage: src.Stage,
		DstStage: dst.Stage,
		Barrier: vk.BufferMemoryBarrier{
			SType:               vk.StructureTypeBufferMemoryBarrier,
			SrcAccessMask:       src.Access,
			DstAccessMask:       dst.Access,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Buffer:              buffer,
			Offset:              0,
			Size:                size,
		},
	}
}

// TransitionImage builds the barrier moving a texture subresource range
// from one usage mode to another.
func TransitionImage(image vk.Image, aspect vk.ImageAspectFlags, baseLayer, layerCount, baseLevel, levelCount uint32, from, to UsageMode) ImageBarrier {
	src := modeTriples[from]
	dst := modeTriples[to]
	return ImageBarrier{
		SrcStage: src.Stage,
		DstStage: dst.Stage,
		Barrier: vk.ImageMemoryBarrier{
			SType:               vk.StructureTypeImageMemoryBarrier,
			SrcAccessMask:       src.Access,
			DstAccessMask:       dst.Access,
			OldLayout:           src.Layout,
			NewLayout:           dst.Layout,
			SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
			DstQueueFamilyIndex: vk.QueueFamilyIgnored,
			Image:               image,
			SubresourceRange: vk.ImageSubresourceRange{
				AspectMask:     aspect,
				BaseMipLevel:   baseLevel,
				LevelCount:     levelCount,
				BaseArrayLayer: baseLayer,
				LayerCount:     layerCount,
			},
		},
	}
}

// TransitionFromDefault builds the barrier moving a texture from its
// default usage mode into dst, used on BeginRenderPass / compute bind.
func TransitionFromDefault(image vk.Image, aspect vk.ImageAspectFlags, layerCount, levelCount uint32, defaultMode, dst UsageMode) ImageBarrier {
	return TransitionImage(image, aspect, 0, layerCount, 0, levelCount, defaultMode, dst)
}

// TransitionToDefault builds the barrier moving a texture back to its
// default usage mode, used on EndRenderPass / compute pass end.
func TransitionToDefault(image vk.Image, aspect vk.ImageAspectFlags, layerCount, levelCount uint32, src, defaultMode UsageMode) ImageBarrier {
	return TransitionImage(image, aspect, 0, layerCount, 0, levelCount, src, defaultMode)
}
