// Package descriptor implements the descriptor-set-layout interning table
// and per-command-buffer descriptor-set pools (component C4).
package descriptor

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// LayoutKey is the tuple DescriptorSetLayout is interned on, per §3:
// (stage, #samplers, #storage-textures, #storage-buffers,
// #write-storage-textures, #write-storage-buffers, #uniforms).
type LayoutKey struct {
	Stage                vk.ShaderStageFlagBits
	Samplers             int
	StorageTextures       int
	StorageBuffers        int
	WriteStorageTextures int
	WriteStorageBuffers   int
	UniformBuffers        int
}

// Layout is an interned VkDescriptorSetLayout plus its monotonic layoutId,
// used to index per-command-buffer pool arrays.
type Layout struct {
	ID     int
	Handle vk.DescriptorSetLayout
	Key    LayoutKey
}

// LayoutTable interns descriptor-set layouts by LayoutKey. Bindings are laid
// out contiguously in category order within a layout: samplers,
// sampled-images (used for read-only storage textures, so shader
// declarations are uniform), storage-buffers, storage-images (write),
// storage-buffers (write), dynamic-uniform-buffers — binding indices start
// at 0 and continue to increment across categories in that fixed order.
type LayoutTable struct {
	// descriptorSetLayoutFetchLock guards this table.
	mu      sync.Mutex
	device  vk.Device
	byKey   map[LayoutKey]*Layout
	nextID  int
}

func NewLayoutTable(device vk.Device) *LayoutTable {
	return &LayoutTable{
		device: device,
		byKey:  make(map[LayoutKey]*Layout),
	}
}

// Intern returns the cached Layout for key, creating it on first use.
func (t *LayoutTable) Intern(key LayoutKey) (*Layout, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if l, ok := t.byKey[key]; ok {
		return l, nil
	}

	var bindings []vk.DescriptorSetLayoutBinding
	binding := uint32(0)
	appendBindings := func(count int, descType vk.DescriptorType) {
		for i := 0; i < count; i++ {
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         binding,
				DescriptorType:  descType,
				DescriptorCount: 1,
				StageFlags:      vk.ShaderStageFlags(key.Stage),
			})
			binding++
		}
	}

	appendBindings(key.Samplers, vk.DescriptorTypeCombinedImageSampler)
	appendBindings(key.StorageTextures, vk.DescriptorTypeSampledImage)
	appendBindings(key.StorageBuffers, vk.DescriptorTypeStorageBuffer)
	appendBindings(key.WriteStorageTextures, vk.DescriptorTypeStorageImage)
	appendBindings(key.WriteStorageBuffers, vk.DescriptorTypeStorageBuffer)
	appendBindings(key.UniformBuffers, vk.DescriptorTypeUniformBufferDynamic)

	var handle vk.DescriptorSetLayout
	createInfo := vk.DescriptorSetLayoutCreateInfo{
		SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
		BindingCount: uint32(len(bindings)),
	}
	if len(bindings) > 0 {
		createInfo.PBindings = bindings
	}
	ret := vk.CreateDescriptorSetLayout(t.device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("descriptor: vkCreateDescriptorSetLayout failed: result %d", int32(ret))
	}

	l := &Layout{ID: t.nextID, Handle: handle, Key: key}
	t.nextID++
	t.byKey[key] = l
	return l, nil
}

// Count reports how many distinct layouts have been interned, for sizing
// the per-command-buffer pool array.
func (t *LayoutTable) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.nextID
}

func (t *LayoutTable) Destroy() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, l := range t.byKey {
		vk.DestroyDescriptorSetLayout(t.device, l.Handle, nil)
	}
	t.byKey = make(map[LayoutKey]*Layout)
}
