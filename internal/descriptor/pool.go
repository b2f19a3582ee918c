package descriptor

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// poolBatchSize is the number of descriptor sets a single VkDescriptorPool
// is sized for. When a Pool's current batch is exhausted a new
// VkDescriptorPool is allocated and appended.
const poolBatchSize = 128

// Pool hands out descriptor sets of a single Layout, allocating fresh
// VkDescriptorPool batches on demand. Sets are never individually freed;
// the whole pool is reset once its command buffer cycles.
type Pool struct {
	device vk.Device
	layout *Layout

	batches   []vk.DescriptorPool
	sets      []vk.DescriptorSet
	nextIndex int
}

func NewPool(device vk.Device, layout *Layout) *Pool {
	return &Pool{device: device, layout: layout}
}

// Acquire returns the next unused descriptor set, growing the pool with a
// fresh batch when the current one is exhausted.
func (p *Pool) Acquire() (vk.DescriptorSet, error) {
	if p.nextIndex >= len(p.sets) {
		if err := p.allocBatch(); err != nil {
			return nil, err
		}
	}
	set := p.sets[p.nextIndex]
	p.nextIndex++
	return set, nil
}

// Reset rewinds the pool to its first set without freeing any
// VkDescriptorPool batches, for reuse once a command buffer's fence signals.
func (p *Pool) Reset() {
	p.nextIndex = 0
}

func (p *Pool) allocBatch() error {
	sizes := poolSizesFor(p.layout.Key)
	var vkPool vk.DescriptorPool
	createInfo := vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       poolBatchSize,
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}
	ret := vk.CreateDescriptorPool(p.device, &createInfo, nil, &vkPool)
	if ret != vk.Success {
		return fmt.Errorf("descriptor: vkCreateDescriptorPool failed: result %d", int32(ret))
	}
	p.batches = append(p.batches, vkPool)

	layouts := make([]vk.DescriptorSetLayout, poolBatchSize)
	for i := range layouts {
		layouts[i] = p.layout.Handle
	}
	sets := make([]vk.DescriptorSet, poolBatchSize)
	allocInfo := vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     vkPool,
		DescriptorSetCount: poolBatchSize,
		PSetLayouts:        layouts,
	}
	ret = vk.AllocateDescriptorSets(p.device, &allocInfo, &sets[0])
	if ret != vk.Success {
		return fmt.Errorf("descriptor: vkAllocateDescriptorSets failed: result %d", int32(ret))
	}
	p.sets = append(p.sets, sets...)
	return nil
}

func (p *Pool) Destroy() {
	for _, b := range p.batches {
		vk.DestroyDescriptorPool(p.device, b, nil)
	}
	p.batches = nil
	p.sets = nil
	p.nextIndex = 0
}

func poolSizesFor(key LayoutKey) []vk.DescriptorPoolSize {
	var sizes []vk.DescriptorPoolSize
	add := func(count int, descType vk.DescriptorType) {
		if count == 0 {
			return
		}
		sizes = append(sizes, vk.DescriptorPoolSize{
			Type:            descType,
			DescriptorCount: uint32(count * poolBatchSize),
		})
	}
	add(key.Samplers, vk.DescriptorTypeCombinedImageSampler)
	add(key.StorageTextures, vk.DescriptorTypeSampledImage)
	add(key.StorageBuffers, vk.DescriptorTypeStorageBuffer)
	add(key.WriteStorageTextures, vk.DescriptorTypeStorageImage)
	add(key.WriteStorageBuffers, vk.DescriptorTypeStorageBuffer)
	add(key.UniformBuffers, vk.DescriptorTypeUniformBufferDynamic)
	return sizes
}
