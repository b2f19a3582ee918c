package cmdengine

import (
	"fmt"
	"sync"
	"sync/atomic"

	vk "github.com/vulkan-go/vulkan"
)

// Submitter serializes access to a single VkQueue and hands out monotonic
// fence generations, so the dispose queue can tell which in-flight
// submissions have retired.
type Submitter struct {
	// submitLock serializes vkQueueSubmit and vkQueuePresentKHR on this
	// queue; Vulkan forbids calling either concurrently on the same queue
	// from multiple threads.
	mu    sync.Mutex
	queue vk.Queue

	generation uint64
	retired    uint64
}

func NewSubmitter(queue vk.Queue) *Submitter {
	return &Submitter{queue: queue}
}

// NextGeneration reserves the fence generation a command buffer about to be
// submitted will retire, for the caller to stamp onto every resource it
// defers destruction for.
func (s *Submitter) NextGeneration() uint64 {
	return atomic.AddUint64(&s.generation, 1)
}

// Submit submits cb's recorded commands, waiting on waitSemaphores at the
// given stages and signaling signalSemaphores plus cb.Fence.
func (s *Submitter) Submit(cb *CommandBuffer, waitSemaphores []vk.Semaphore, waitStages []vk.PipelineStageFlags, signalSemaphores []vk.Semaphore) error {
	if cb.IsDefrag {
		return fmt.Errorf("cmdengine: Submit called on a defragmenter-owned command buffer")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	submitInfo := vk.SubmitInfo{
		SType:                vk.StructureTypeSubmitInfo,
		CommandBufferCount:   1,
		PCommandBuffers:      []vk.CommandBuffer{cb.Handle},
		SignalSemaphoreCount: uint32(len(signalSemaphores)),
	}
	if len(signalSemaphores) > 0 {
		submitInfo.PSignalSemaphores = signalSemaphores
	}
	if len(waitSemaphores) > 0 {
		submitInfo.WaitSemaphoreCount = uint32(len(waitSemaphores))
		submitInfo.PWaitSemaphores = waitSemaphores
		submitInfo.PWaitDstStageMask = waitStages
	}

	ret := vk.QueueSubmit(s.queue, 1, []vk.SubmitInfo{submitInfo}, cb.Fence)
	if ret != vk.Success {
		return fmt.Errorf("cmdengine: vkQueueSubmit failed: result %d", int32(ret))
	}
	return nil
}

// SubmitDefrag submits a defragmenter-owned command buffer directly,
// bypassing the guard Submit enforces against user-facing submission. A
// defrag command buffer never waits on or signals a semaphore: its only
// synchronization is the fence the caller waits on before repointing any
// resource's live handle.
func (s *Submitter) SubmitDefrag(cb *CommandBuffer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	submitInfo := vk.SubmitInfo{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: 1,
		PCommandBuffers:    []vk.CommandBuffer{cb.Handle},
	}
	ret := vk.QueueSubmit(s.queue, 1, []vk.SubmitInfo{submitInfo}, cb.Fence)
	if ret != vk.Success {
		return fmt.Errorf("cmdengine: vkQueueSubmit (defrag) failed: result %d", int32(ret))
	}
	return nil
}

// Present submits every PresentRequest queued on cb via vkQueuePresentKHR,
// called after Submit so the wait semaphore set by the render work is
// already signaled-on-completion. A suboptimal or out-of-date result per
// swapchain is reported back to the caller rather than treated as a Submit
// error (§7: "Swapchain suboptimal/out-of-date — not an error").
func (s *Submitter) Present(requests []PresentRequest) (map[vk.Swapchain]vk.Result, error) {
	if len(requests) == 0 {
		return nil, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	swapchains := make([]vk.Swapchain, len(requests))
	imageIndices := make([]uint32, len(requests))
	waits := make([]vk.Semaphore, 0, len(requests))
	for i, r := range requests {
		swapchains[i] = r.Swapchain
		imageIndices[i] = r.ImageIndex
		if r.WaitSemaphore != nil {
			waits = append(waits, r.WaitSemaphore)
		}
	}

	results := make([]vk.Result, len(requests))
	presentInfo := vk.PresentInfo{
		SType:              vk.StructureTypePresentInfo,
		SwapchainCount:     uint32(len(swapchains)),
		PSwapchains:        swapchains,
		PImageIndices:      imageIndices,
		PResults:           results,
		WaitSemaphoreCount: uint32(len(waits)),
	}
	if len(waits) > 0 {
		presentInfo.PWaitSemaphores = waits
	}

	ret := vk.QueuePresent(s.queue, &presentInfo)
	out := make(map[vk.Swapchain]vk.Result, len(requests))
	for i, r := range requests {
		out[r.Swapchain] = results[i]
	}
	if ret != vk.Success && ret != vk.Suboptimal && ret != vk.ErrorOutOfDate {
		return out, fmt.Errorf("cmdengine: vkQueuePresentKHR failed: result %d", int32(ret))
	}
	return out, nil
}

// MarkRetired records that every fence generation up to gen has signaled,
// so the dispose queue knows it is safe to drain entries queued at or
// below it.
func (s *Submitter) MarkRetired(gen uint64) {
	atomic.StoreUint64(&s.retired, gen)
}

func (s *Submitter) Retired() uint64 {
	return atomic.LoadUint64(&s.retired)
}
