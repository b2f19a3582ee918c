package passcache

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// ResourceLayoutKey interns VkPipelineLayout objects by per-stage resource
// counts, per §4.5: graphics pipelines get a fixed 4-slot layout
// {0: vertex-read, 1: vertex-uniform, 2: fragment-read, 3: fragment-uniform},
// compute pipelines a fixed 3-slot layout {0: read-only, 1: read-write,
// 2: uniforms}.
type ResourceLayoutKey struct {
	Compute bool

	// Graphics slots.
	VertexReadSet     vk.DescriptorSetLayout
	VertexUniformSet  vk.DescriptorSetLayout
	FragmentReadSet   vk.DescriptorSetLayout
	FragmentUniformSet vk.DescriptorSetLayout

	// Compute slots.
	ReadOnlySet  vk.DescriptorSetLayout
	ReadWriteSet vk.DescriptorSetLayout
	UniformSet   vk.DescriptorSetLayout
}

// ResourceLayoutCache interns VkPipelineLayout handles by ResourceLayoutKey.
type ResourceLayoutCache struct {
	mu     sync.Mutex
	device vk.Device
	byKey  map[ResourceLayoutKey]vk.PipelineLayout
}

func NewResourceLayoutCache(device vk.Device) *ResourceLayoutCache {
	return &ResourceLayoutCache{device: device, byKey: make(map[ResourceLayoutKey]vk.PipelineLayout)}
}

func (c *ResourceLayoutCache) Acquire(key ResourceLayoutKey) (vk.PipelineLayout, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pl, ok := c.byKey[key]; ok {
		return pl, nil
	}

	var sets []vk.DescriptorSetLayout
	if key.Compute {
		sets = []vk.DescriptorSetLayout{key.ReadOnlySet, key.ReadWriteSet, key.UniformSet}
	} else {
		sets = []vk.DescriptorSetLayout{key.VertexReadSet, key.VertexUniformSet, key.FragmentReadSet, key.FragmentUniformSet}
	}

	createInfo := vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(sets)),
		PSetLayouts:    sets,
	}

	var pl vk.PipelineLayout
	ret := vk.CreatePipelineLayout(c.device, &createInfo, nil, &pl)
	if ret != vk.Success {
		return nil, fmt.Errorf("passcache: vkCreatePipelineLayout failed: result %d", int32(ret))
	}
	c.byKey[key] = pl
	return pl, nil
}

func (c *ResourceLayoutCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, pl := range c.byKey {
		vk.DestroyPipelineLayout(c.device, pl, nil)
	}
	c.byKey = make(map[ResourceLayoutKey]vk.PipelineLayout)
}
