package cmdengine

import (
	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/descriptor"
	"github.com/kestrelgpu/gpuvk/internal/resource"
)

// passKind discriminates which kind of pass a CommandBuffer is currently
// recording, to reject calls (e.g. Draw during a copy pass) that don't
// belong in the current pass per §5's state-machine invariants.
type passKind int

const (
	passNone passKind = iota
	passRender
	passCompute
	passCopy
)

// boundSampler pairs a sampler with the view it samples, staged for a
// CombinedImageSampler descriptor write.
type boundSampler struct {
	Sampler vk.Sampler
	View    vk.ImageView
}

// boundBufferRange stages a single VkDescriptorBufferInfo.
type boundBufferRange struct {
	Buffer vk.Buffer
	Offset uint64
	Range  uint64
}

// readSetBinding stages the bindings for one read-oriented descriptor set,
// in the category order descriptor.LayoutKey lays them out in: samplers,
// then storage textures, then storage buffers.
type readSetBinding struct {
	samplers        []boundSampler
	storageTextures []vk.ImageView
	storageBuffers  []boundBufferRange
}

// bindingState holds whatever the current pass has bound so far: the
// active pipeline, the descriptor-set layouts it was built against, the
// resources staged into each set, the uniform buffer currently being
// pushed into, and the resources referenced (for refcounting on fence
// signal). A graphics pipeline layout is four sets (vertex-read,
// vertex-uniform, fragment-read, fragment-uniform); a compute pipeline
// layout is three (read-only, read-write, uniforms) - only the read-only
// set and the uniform set are staged here, since the four Bind* methods
// this type supports are all read-oriented (no write-storage binding).
type bindingState struct {
	pipeline       vk.Pipeline
	pipelineLayout vk.PipelineLayout

	vertexReadLayout     *descriptor.Layout
	vertexUniformLayout  *descriptor.Layout
	fragReadLayout       *descriptor.Layout
	fragUniformLayout    *descriptor.Layout
	computeReadLayout    *descriptor.Layout
	computeUniformLayout *descriptor.Layout

	vertexRead  readSetBinding
	fragRead    readSetBinding
	computeRead readSetBinding

	uniformBuf *resource.UniformBuffer
	referenced []refHolder
}

// refHolder is anything CommandBuffer must AddRef on bind and Release once
// the command buffer's fence signals.
type refHolder interface {
	AddRef()
	Release() bool
}

// CommandBuffer wraps one VkCommandBuffer plus the engine's bookkeeping: its
// current pass kind, binding state, presentation data (if it will present a
// swapchain image this submission), and whether this buffer belongs to the
// defragmenter rather than to user-recorded work. Cycling (discard-write on
// a resource still referenced by in-flight GPU work) is a per-operation
// decision made by the frontend's Buffer/Texture containers, not a
// per-command-buffer flag - see api.go.
type CommandBuffer struct {
	Handle vk.CommandBuffer
	Pool   vk.CommandPool
	Fence  vk.Fence

	// FenceGeneration is the monotonic counter value this submission will
	// retire; the dispose queue drains anything queued at or below it once
	// the fence signals.
	FenceGeneration uint64

	pass    passKind
	binding bindingState

	descriptors *descriptor.Cache

	// IsDefrag marks a command buffer used internally by the defragmenter,
	// which must never be the target of a user Submit call.
	IsDefrag bool

	// PresentSwapchains holds the swapchains this command buffer will
	// present once it is submitted. AcquireSwapchainTexture does not add to
	// it; the caller appends a PresentRequest for each acquired image (see
	// cmd/example).
	PresentSwapchains []PresentRequest

	// AcquireWaitSemaphores holds the image-acquired semaphores submission
	// must wait on before the color attachment output stage runs, one per
	// swapchain image this command buffer renders into.
	AcquireWaitSemaphores []vk.Semaphore
}

// PresentRequest names a swapchain image this command buffer will present
// on submission, plus the semaphore the present call must wait on.
type PresentRequest struct {
	Swapchain       vk.Swapchain
	ImageIndex      uint32
	WaitSemaphore   vk.Semaphore
}

func (cb *CommandBuffer) bindResource(r refHolder) {
	r.AddRef()
	cb.binding.referenced = append(cb.binding.referenced, r)
}

// ReleaseReferences drops this command buffer's references to every
// resource it bound, called once its fence has signaled. Resources whose
// refcount reaches zero here are the caller's signal to actually queue them
// for deferred destruction if they were already released by the frontend.
func (cb *CommandBuffer) ReleaseReferences() []refHolder {
	var freed []refHolder
	for _, r := range cb.binding.referenced {
		if r.Release() {
			freed = append(freed, r)
		}
	}
	cb.binding.referenced = nil
	return freed
}

// Reset clears per-submission state so the command buffer can be recorded
// again once its fence has signaled and vkResetCommandBuffer has run.
func (cb *CommandBuffer) Reset() {
	cb.pass = passNone
	cb.binding = bindingState{}
	cb.IsDefrag = false
	cb.PresentSwapchains = nil
	cb.AcquireWaitSemaphores = nil
	if cb.descriptors != nil {
		cb.descriptors.Reset()
	}
}
