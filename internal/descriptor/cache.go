package descriptor

import (
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// Cache is the per-command-buffer descriptor-set cache: an array of Pool
// indexed by Layout.ID, grown lazily as new layouts are interned. Each
// CommandBuffer owns one Cache; resetting it after fence-signal rewinds
// every Pool without destroying the underlying VkDescriptorPool batches.
type Cache struct {
	// descriptorSetCacheFetchLock guards growth of pools.
	mu      sync.Mutex
	device  vk.Device
	layouts *LayoutTable
	pools   []*Pool
}

func NewCache(device vk.Device, layouts *LayoutTable) *Cache {
	return &Cache{device: device, layouts: layouts}
}

// Acquire returns a descriptor set for the given layout, growing the pool
// array if layout.ID has not been seen by this cache yet.
func (c *Cache) Acquire(layout *Layout) (vk.DescriptorSet, error) {
	c.mu.Lock()
	for len(c.pools) <= layout.ID {
		c.pools = append(c.pools, nil)
	}
	if c.pools[layout.ID] == nil {
		c.pools[layout.ID] = NewPool(c.device, layout)
	}
	pool := c.pools[layout.ID]
	c.mu.Unlock()

	return pool.Acquire()
}

// Reset rewinds every pool this cache has allocated, called once the
// owning command buffer's fence has signaled.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		if p != nil {
			p.Reset()
		}
	}
}

func (c *Cache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pools {
		if p != nil {
			p.Destroy()
		}
	}
	c.pools = nil
}
