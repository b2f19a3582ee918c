package passcache

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// GraphicsPipelineKey identifies a cached VkPipeline: the render pass it was
// built against plus the full fixed-function state the frontend exposes
// (vertex input, rasterizer, blend, depth/stencil state and the shader
// pair). Equality of this struct is sufficient for a cache hit since every
// field is a value type or handle.
type GraphicsPipelineKey struct {
	RenderPass     vk.RenderPass
	Layout         vk.PipelineLayout
	VertexShader   vk.ShaderModule
	FragmentShader vk.ShaderModule
	PrimitiveType  vk.PrimitiveTopology
	PolygonMode    vk.PolygonMode
	CullMode       vk.CullModeFlagBits
	FrontFace      vk.FrontFace
	SampleCount    vk.SampleCountFlagBits
	DepthTestEnable  bool
	DepthWriteEnable bool
	DepthCompareOp   vk.CompareOp
	BlendEnable      bool
	NumColorTargets  int
}

// ComputePipelineKey identifies a cached compute VkPipeline.
type ComputePipelineKey struct {
	Layout vk.PipelineLayout
	Shader vk.ShaderModule
}

// PipelineCache interns both graphics and compute VkPipeline handles,
// wrapping a VkPipelineCache for cross-process/driver-side caching in
// addition to the in-process handle cache.
type PipelineCache struct {
	mu       sync.Mutex
	device   vk.Device
	vkCache  vk.PipelineCache
	graphics map[GraphicsPipelineKey]vk.Pipeline
	compute  map[ComputePipelineKey]vk.Pipeline
}

func NewPipelineCache(device vk.Device) (*PipelineCache, error) {
	createInfo := vk.PipelineCacheCreateInfo{SType: vk.StructureTypePipelineCacheCreateInfo}
	var vkCache vk.PipelineCache
	ret := vk.CreatePipelineCache(device, &createInfo, nil, &vkCache)
	if ret != vk.Success {
		return nil, fmt.Errorf("passcache: vkCreatePipelineCache failed: result %d", int32(ret))
	}
	return &PipelineCache{
		device:   device,
		vkCache:  vkCache,
		graphics: make(map[GraphicsPipelineKey]vk.Pipeline),
		compute:  make(map[ComputePipelineKey]vk.Pipeline),
	}, nil
}

// AcquireGraphics returns the cached pipeline for key, creating it via
// build on first use. build receives the resolved VkPipelineCache handle so
// the driver can still dedupe internally across distinct keys that happen
// to compile to the same SPIR-V.
func (c *PipelineCache) AcquireGraphics(key GraphicsPipelineKey, build func(vk.PipelineCache) (vk.Pipeline, error)) (vk.Pipeline, error) {
	c.mu.Lock()
	if p, ok := c.graphics[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := build(c.vkCache)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.graphics[key]; ok {
		vk.DestroyPipeline(c.device, p, nil)
		return existing, nil
	}
	c.graphics[key] = p
	return p, nil
}

// AcquireCompute mirrors AcquireGraphics for compute pipelines.
func (c *PipelineCache) AcquireCompute(key ComputePipelineKey, build func(vk.PipelineCache) (vk.Pipeline, error)) (vk.Pipeline, error) {
	c.mu.Lock()
	if p, ok := c.compute[key]; ok {
		c.mu.Unlock()
		return p, nil
	}
	c.mu.Unlock()

	p, err := build(c.vkCache)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.compute[key]; ok {
		vk.DestroyPipeline(c.device, p, nil)
		return existing, nil
	}
	c.compute[key] = p
	return p, nil
}

func (c *PipelineCache) Destroy() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.graphics {
		vk.DestroyPipeline(c.device, p, nil)
	}
	for _, p := range c.compute {
		vk.DestroyPipeline(c.device, p, nil)
	}
	vk.DestroyPipelineCache(c.device, c.vkCache, nil)
	c.graphics = make(map[GraphicsPipelineKey]vk.Pipeline)
	c.compute = make(map[ComputePipelineKey]vk.Pipeline)
}
