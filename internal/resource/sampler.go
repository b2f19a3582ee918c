package resource

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"
)

// SamplerCreateInfo mirrors the frontend's public sampler description.
type SamplerCreateInfo struct {
	MinFilter    vk.Filter
	MagFilter    vk.Filter
	MipmapMode   vk.SamplerMipmapMode
	AddressModeU vk.SamplerAddressMode
	AddressModeV vk.SamplerAddressMode
	AddressModeW vk.SamplerAddressMode
	MaxAnisotropy float32
	CompareOp    vk.CompareOp
	CompareEnable bool
	MinLod       float32
	MaxLod       float32
}

// Sampler is a VkSampler; samplers are small and immutable so they are not
// refcounted the way buffers/textures are. They are not interned either:
// every CreateSampler call creates a new VkSampler.
type Sampler struct {
	Handle vk.Sampler
}

func CreateSampler(device vk.Device, info SamplerCreateInfo) (*Sampler, error) {
	var handle vk.Sampler
	createInfo := vk.SamplerCreateInfo{
		SType:                   vk.StructureTypeSamplerCreateInfo,
		MagFilter:               info.MagFilter,
		MinFilter:               info.MinFilter,
		MipmapMode:              info.MipmapMode,
		AddressModeU:            info.AddressModeU,
		AddressModeV:            info.AddressModeV,
		AddressModeW:            info.AddressModeW,
		AnisotropyEnable:        vk.Bool32(boolToUint32(info.MaxAnisotropy > 1)),
		MaxAnisotropy:           info.MaxAnisotropy,
		CompareEnable:           vk.Bool32(boolToUint32(info.CompareEnable)),
		CompareOp:               info.CompareOp,
		MinLod:                  info.MinLod,
		MaxLod:                  info.MaxLod,
		BorderColor:             vk.BorderColorFloatTransparentBlack,
		UnnormalizedCoordinates: vk.False,
	}
	ret := vk.CreateSampler(device, &createInfo, nil, &handle)
	if ret != vk.Success {
		return nil, fmt.Errorf("resource: vkCreateSampler failed: result %d", int32(ret))
	}
	return &Sampler{Handle: handle}, nil
}

func (s *Sampler) Destroy(device vk.Device) {
	vk.DestroySampler(device, s.Handle, nil)
}

func boolToUint32(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
