// Package cmdengine implements the multithreaded command-buffer engine
// (component C6): per-thread VkCommandPool ownership, command-buffer
// acquisition/recording/submission, and the thread-safety rules that let
// multiple goroutines record independent command buffers concurrently
// while serializing everything that touches shared queue/device state.
package cmdengine

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// PoolTable owns one VkCommandPool per calling goroutine, keyed by a
// caller-supplied thread token rather than a true thread-local (Go has no
// native TLS); callers that want pool affinity pass the same token across
// calls from the same goroutine. Every new token gets its own pool, created
// under the table's mutex; there is no shared fallback pool.
type PoolTable struct {
	device      vk.Device
	queueFamily uint32

	// acquireCommandBufferLock guards the pool map itself (insertion of new
	// per-token pools); it does not serialize use of an already-owned pool.
	mu    sync.Mutex
	pools map[interface{}]*vk.CommandPool
}

func NewPoolTable(device vk.Device, queueFamily uint32) *PoolTable {
	return &PoolTable{device: device, queueFamily: queueFamily, pools: make(map[interface{}]*vk.CommandPool)}
}

// PoolFor returns the VkCommandPool owned by token, creating it on first
// use. VkCommandPool objects (and the command buffers allocated from them)
// must never be used from two goroutines at once; the token scheme only
// protects pool *creation*, not concurrent *use* — that contract is on the
// caller.
func (t *PoolTable) PoolFor(token interface{}) (vk.CommandPool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if p, ok := t.pools[token]; ok {
		return *p, nil
	}

	var pool vk.CommandPool
	createInfo := vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
		QueueFamilyIndex: t.queueFamily,
	}
	ret := vk.CreateCommandPool(t.device, &createInfo, nil, &pool)
	if ret != vk.Success {
		return nil, fmt.Errorf("cmdengine: vkCreateCommandPool failed: result %d", int32(ret))
	}
	t.pools[token] = &pool
	return pool, nil
}

func (t *PoolTable) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, p := range t.pools {
		vk.DestroyCommandPool(t.device, *p, nil)
	}
	t.pools = make(map[interface{}]*vk.CommandPool)
}
