package resource

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// defaultEntryPoint is the entry point name used when a shader's creation
// info does not name one explicitly, matching the SPIR-V toolchain default.
const defaultEntryPoint = "main"

// ResourceCounts records the per-stage resource counts a shader declares,
// used to pick the DescriptorSetLayout it binds against (component C4).
type ResourceCounts struct {
	Samplers            int
	StorageTextures      int
	StorageBuffers       int
	UniformBuffers       int
}

// Shader is a VkShaderModule plus the metadata the pipeline cache and
// descriptor layout table need about it.
type Shader struct {
	Handle     vk.ShaderModule
	Stage      vk.ShaderStageFlagBits
	EntryPoint string
	Counts     ResourceCounts

	refcount int32
}

// CreateShader loads a SPIR-V module (spirv must be a byte slice whose
// length is a multiple of 4) for the given stage.
func CreateShader(device vk.Device, spirv []byte, stage vk.ShaderStageFlagBits, entryPoint string, counts ResourceCounts) (*Shader, error) {
	if len(spirv) == 0 || len(spirv)%4 != 0 {
		return nil, fmt.Errorf("resource: CreateShader: SPIR-V byte length %d is not a multiple of 4", len(spirv))
	}
	if entryPoint == "" {
		entryPoint = defaultEntryPoint
	}

	words := make([]uint32, len(spirv)/4)
	for i := range words {
		words[i] = uint32(spirv[i*4]) | uint32(spirv[i*4+1])<<8 | uint32(spirv[i*4+2])<<16 | uint32(spirv[i*4+3])<<24
	}

	var handle vk.ShaderModule
	createInfo := vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint(len(spirv)),
		PCode:    words,
	}
	ret := vk.CreateShaderModule(device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("resource: vkCreateShaderModule failed: result %d", int32(ret))
	}

	return &Shader{
		Handle:     handle,
		Stage:      stage,
		EntryPoint: entryPoint,
		Counts:     counts,
		refcount:   1,
	}, nil
}

func (s *Shader) Destroy(device vk.Device) {
	vk.DestroyShaderModule(device, s.Handle, nil)
}
