package memalloc

import (
	"fmt"
	"sync"

	vk "github.com/vulkan-go/vulkan"
)

// MemoryTypeRequest describes what a resource kind wants from a candidate
// memory type: a hard Required mask, a soft Preferred mask, and whether
// lacking the preferred mask is Tolerable at all (textures set it false).
type MemoryTypeRequest struct {
	Required  vk.MemoryPropertyFlags
	Preferred vk.MemoryPropertyFlags
	Tolerable bool
}

// Requests for the resource kinds named in §4.1.
var (
	GPUBufferRequest = MemoryTypeRequest{
		Required:  0,
		Preferred: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Tolerable: true,
	}
	UniformBufferRequest = MemoryTypeRequest{
		Required:  vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		Preferred: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Tolerable: true,
	}
	TransferBufferRequest = MemoryTypeRequest{
		Required:  vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit),
		Preferred: vk.MemoryPropertyFlags(vk.MemoryPropertyHostCachedBit),
		Tolerable: true,
	}
	TextureRequest = MemoryTypeRequest{
		Required:  0,
		Preferred: vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit),
		Tolerable: false,
	}
)

// WarnOnce tracks the "warn once" requirements of §4.1: each distinct
// fallback warning fires at most one time per Device lifetime.
type WarnOnce struct {
	gpuNotDeviceLocal sync.Once
	uniformNoBAR      sync.Once
	transferUMA       sync.Once
}

func (w *WarnOnce) WarnGPUNotDeviceLocal(log func(string)) {
	w.gpuNotDeviceLocal.Do(func() {
		log("memalloc: GPU buffer memory is not device-local on this device")
	})
}

func (w *WarnOnce) WarnUniformNoBAR(log func(string)) {
	w.uniformNoBAR.Do(func() {
		log("memalloc: uniform buffer memory has no device-local (BAR) path on this device")
	})
}

func (w *WarnOnce) NoticeTransferUMA(log func(string)) {
	w.transferUMA.Do(func() {
		log("memalloc: transfer buffer memory is device-local (unified memory architecture)")
	})
}

// candidateTiers builds the preference-ordered candidate list described in
// §4.1: (required ∧ preferred ∧ ¬tolerable), (required alone),
// (required ∧ preferred ∧ tolerable), (required ∧ tolerable). When
// Tolerable is false only the first two tiers are produced, since there is
// no fallback tier to tolerate a miss.
func candidateTiers(req MemoryTypeRequest) []vk.MemoryPropertyFlags {
	tiers := []vk.MemoryPropertyFlags{req.Required | req.Preferred}
	if req.Tolerable {
		tiers = append(tiers, req.Required, req.Required|req.Preferred, req.Required)
	} else {
		tiers = append(tiers, req.Required)
	}
	return tiers
}

// SelectMemoryType picks a memory-type index from props satisfying req,
// scanning tiers from most- to least-preferred. typeBits is the
// resource's vk.MemoryRequirements.MemoryTypeBits.
func SelectMemoryType(props vk.PhysicalDeviceMemoryProperties, typeBits uint32, req MemoryTypeRequest) (uint32, bool, error) {
	tiers := candidateTiers(req)
	count := int(props.MemoryTypeCount)

	for tierIdx, want := range tiers {
		for i := 0; i < count; i++ {
			if typeBits&(1<<uint(i)) == 0 {
				continue
			}
			props.MemoryTypes[i].Deref()
			flags := props.MemoryTypes[i].PropertyFlags
			if flags&want == want {
				// tierIdx 0 is the strict (required+preferred, not
				// tolerating a miss) tier; any other tier means we fell
				// back and the caller should warn once.
				return uint32(i), tierIdx > 0, nil
			}
		}
	}
	return 0, false, fmt.Errorf("memalloc: no memory type satisfies required=%#x typeBits=%#x", req.Required, typeBits)
}
