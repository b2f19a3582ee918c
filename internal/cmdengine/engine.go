package cmdengine

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/descriptor"
)

// perPool tracks the primary command buffers allocated from one token's
// VkCommandPool, split into inactive (available to acquire) and inflight
// (submitted, awaiting fence signal) per §4.6.
type perPool struct {
	pool     vk.CommandPool
	inactive []*CommandBuffer
	inflight map[vk.CommandBuffer]*CommandBuffer
}

// Engine is the full command-buffer acquisition/submission surface C6
// exposes to the frontend: per-thread pools (via PoolTable), a descriptor
// cache pool shared across command buffers, and the inflight/inactive
// bookkeeping that lets AcquireCommandBuffer reuse a buffer whose fence has
// already signaled instead of allocating a fresh one.
type Engine struct {
	device  vk.Device
	table   *PoolTable
	layouts *descriptor.LayoutTable

	Submitter *Submitter

	// acquireCommandBufferLock guards pools and the descriptor-set-cache
	// pool, per the mutex inventory.
	mu          sync.Mutex
	pools       map[interface{}]*perPool
	descriptors []*descriptor.Cache
}

func NewEngine(device vk.Device, queueFamily uint32, queue vk.Queue, layouts *descriptor.LayoutTable) *Engine {
	return &Engine{
		device:    device,
		table:     NewPoolTable(device, queueFamily),
		layouts:   layouts,
		Submitter: NewSubmitter(queue),
		pools:     make(map[interface{}]*perPool),
	}
}

func (e *Engine) poolFor(token interface{}) (*perPool, error) {
	pool, err := e.table.PoolFor(token)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if p, ok := e.pools[token]; ok {
		return p, nil
	}
	p := &perPool{pool: pool, inflight: make(map[vk.CommandBuffer]*CommandBuffer)}
	e.pools[token] = p
	return p, nil
}

func (e *Engine) acquireDescriptorCache() *descriptor.Cache {
	e.mu.Lock()
	defer e.mu.Unlock()
	if n := len(e.descriptors); n > 0 {
		c := e.descriptors[n-1]
		e.descriptors = e.descriptors[:n-1]
		return c
	}
	return descriptor.NewCache(e.device, e.layouts)
}

func (e *Engine) releaseDescriptorCache(c *descriptor.Cache) {
	c.Reset()
	e.mu.Lock()
	e.descriptors = append(e.descriptors, c)
	e.mu.Unlock()
}

// AcquireCommandBuffer returns a ready-to-record CommandBuffer owned by
// token's pool: reusing an inactive instance if one is available, else
// allocating a fresh primary command buffer from the pool (creating the
// pool itself on first use by token).
func (e *Engine) AcquireCommandBuffer(token interface{}) (*CommandBuffer, error) {
	p, err := e.poolFor(token)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	var cb *CommandBuffer
	if n := len(p.inactive); n > 0 {
		cb = p.inactive[n-1]
		p.inactive = p.inactive[:n-1]
	}
	e.mu.Unlock()

	if cb == nil {
		var handle vk.CommandBuffer
		allocInfo := vk.CommandBufferAllocateInfo{
			SType:              vk.StructureTypeCommandBufferAllocateInfo,
			CommandPool:        p.pool,
			Level:              vk.CommandBufferLevelPrimary,
			CommandBufferCount: 1,
		}
		buffers := []vk.CommandBuffer{handle}
		ret := vk.AllocateCommandBuffers(e.device, &allocInfo, buffers)
		if ret != vk.Success {
			return nil, fmt.Errorf("cmdengine: vkAllocateCommandBuffers failed: result %d", int32(ret))
		}
		var fence vk.Fence
		ret = vk.CreateFence(e.device, &vk.FenceCreateInfo{SType: vk.StructureTypeFenceCreateInfo}, nil, &fence)
		if ret != vk.Success {
			return nil, fmt.Errorf("cmdengine: vkCreateFence failed: result %d", int32(ret))
		}
		cb = &CommandBuffer{Handle: buffers[0], Pool: p.pool, Fence: fence}
	}

	cb.descriptors = e.acquireDescriptorCache()
	if err := cb.Begin(); err != nil {
		return nil, err
	}
	return cb, nil
}

// Submit reserves a fence generation, stamps it onto cb, and hands cb to
// the Submitter. The caller must have already called cb.End().
func (e *Engine) Submit(token interface{}, cb *CommandBuffer, waitSemaphores []vk.Semaphore, waitStages []vk.PipelineStageFlags, signalSemaphores []vk.Semaphore) (uint64, error) {
	gen := e.Submitter.NextGeneration()
	cb.FenceGeneration = gen

	e.mu.Lock()
	p := e.pools[token]
	p.inflight[cb.Handle] = cb
	e.mu.Unlock()

	if err := e.Submitter.Submit(cb, waitSemaphores, waitStages, signalSemaphores); err != nil {
		return 0, err
	}
	return gen, nil
}

// ReapSignaled moves every inflight command buffer on token's pool whose
// fence has signaled back onto the inactive list, releasing its tracked
// resource references and returning its descriptor cache to the pool. It
// returns the resources whose refcount reached zero, for the caller to hand
// to the dispose queue.
func (e *Engine) ReapSignaled(token interface{}) []refHolder {
	e.mu.Lock()
	p, ok := e.pools[token]
	e.mu.Unlock()
	if !ok {
		return nil
	}

	var freed []refHolder
	var retired uint64
	e.mu.Lock()
	defer e.mu.Unlock()
	for handle, cb := range p.inflight {
		status := vk.GetFenceStatus(e.device, cb.Fence)
		if status != vk.Success {
			continue
		}
		if cb.FenceGeneration > retired {
			retired = cb.FenceGeneration
		}
		delete(p.inflight, handle)
		freed = append(freed, cb.ReleaseReferences()...)
		e.releaseDescriptorCacheLocked(cb)
		cb.Reset()
		p.inactive = append(p.inactive, cb)
	}
	if retired > e.Submitter.Retired() {
		e.Submitter.MarkRetired(retired)
	}
	return freed
}

func (e *Engine) releaseDescriptorCacheLocked(cb *CommandBuffer) {
	if cb.descriptors == nil {
		return
	}
	cb.descriptors.Reset()
	e.descriptors = append(e.descriptors, cb.descriptors)
	cb.descriptors = nil
}

// Cancel resets a command buffer that was acquired but never submitted
// (§5 "Cancellation"): no fence wait is needed since no GPU work was ever
// enqueued.
func (e *Engine) Cancel(token interface{}, cb *CommandBuffer) []refHolder {
	vk.ResetCommandBuffer(cb.Handle, vk.CommandBufferResetFlags(vk.CommandBufferResetReleaseResourcesBit))
	freed := cb.ReleaseReferences()

	e.mu.Lock()
	e.releaseDescriptorCacheLocked(cb)
	e.mu.Unlock()
	cb.Reset()

	e.mu.Lock()
	if p, ok := e.pools[token]; ok {
		p.inactive = append(p.inactive, cb)
	}
	e.mu.Unlock()
	return freed
}

func (e *Engine) Destroy() {
	e.mu.Lock()
	for _, p := range e.pools {
		for _, cb := range p.inactive {
			vk.DestroyFence(e.device, cb.Fence, nil)
		}
		for _, cb := range p.inflight {
			vk.DestroyFence(e.device, cb.Fence, nil)
		}
	}
	e.pools = make(map[interface{}]*perPool)
	for _, c := range e.descriptors {
		c.Destroy()
	}
	e.descriptors = nil
	e.mu.Unlock()

	e.table.Destroy()
}
