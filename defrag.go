package gpuvk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/memalloc"
	"github.com/kestrelgpu/gpuvk/internal/resource"
	"github.com/kestrelgpu/gpuvk/internal/restrack"
)

// bufferRelocation and textureRelocation carry a recorded-but-not-yet-applied
// move: the copy has been recorded into the defrag command buffer, but the
// owner's live Handle/Region are only repointed once that command buffer's
// fence has signaled, so a mid-recording failure never leaves a resource
// half-relocated.
type bufferRelocation struct {
	owner       *resource.Buffer
	newHandle   vk.Buffer
	newRegion   *memalloc.UsedRegion
	staleHandle vk.Buffer
}

type textureRelocation struct {
	owner       *resource.Texture
	newHandle   vk.Image
	newRegion   *memalloc.UsedRegion
	staleHandle vk.Image
}

// Defragment relocates at most one allocation's worth of live resources per
// call (§4.8): it picks the first sub-allocator with defrag work pending and
// no defrag already in flight, copies every still-referenced used region
// into freshly bound storage via a single command buffer marked IsDefrag,
// waits for it to retire, then frees the drained allocation. Callers
// typically invoke this once per frame from the thread that owns token's
// command pool, after ProcessRetired.
func (d *GPUDevice) Defragment(token interface{}) error {
	for _, bucket := range []map[uint32]*memalloc.SubAllocator{d.gpuAllocators, d.textureAllocators} {
		for _, suballoc := range bucket {
			if suballoc.DefragInProgress() || suballoc.PendingDefragCount() == 0 {
				continue
			}
			return d.defragmentOne(token, suballoc)
		}
	}
	return nil
}

func (d *GPUDevice) defragmentOne(token interface{}, suballoc *memalloc.SubAllocator) error {
	alloc := suballoc.PopPendingDefrag()
	if alloc == nil {
		return nil
	}
	suballoc.SetDefragInProgress(true)

	cb, err := d.Engine.AcquireCommandBuffer(token)
	if err != nil {
		suballoc.SetDefragInProgress(false)
		return newGPUError(KindInit, "Defragment", err)
	}
	cb.IsDefrag = true

	var bufferRelocs []*bufferRelocation
	var textureRelocs []*textureRelocation

	for _, ur := range memalloc.UsedRegions(alloc) {
		switch owner := ur.Owner.(type) {
		case *resource.Buffer:
			if owner.Refcount() <= 0 {
				// Already released; the dispose queue owns its destruction
				// once this generation retires, not the defragmenter.
				continue
			}
			reloc, err := recordBufferRelocation(d.device, suballoc, cb.Handle, owner)
			if err != nil {
				d.Engine.Cancel(token, cb)
				suballoc.SetDefragInProgress(false)
				return newGPUError(KindOutOfDeviceMemory, "Defragment", err)
			}
			bufferRelocs = append(bufferRelocs, reloc)
		case *resource.Texture:
			if owner.Refcount() <= 0 {
				continue
			}
			reloc, err := recordTextureRelocation(d.device, suballoc, cb.Handle, owner)
			if err != nil {
				d.Engine.Cancel(token, cb)
				suballoc.SetDefragInProgress(false)
				return newGPUError(KindOutOfDeviceMemory, "Defragment", err)
			}
			textureRelocs = append(textureRelocs, reloc)
		}
	}

	if err := cb.End(); err != nil {
		d.Engine.Cancel(token, cb)
		suballoc.SetDefragInProgress(false)
		return newGPUError(KindInit, "Defragment", err)
	}
	if err := d.Engine.Submitter.SubmitDefrag(cb); err != nil {
		d.Engine.Cancel(token, cb)
		suballoc.SetDefragInProgress(false)
		return newGPUError(KindDeviceLost, "Defragment", err)
	}
	if ret := vk.WaitForFences(d.device, 1, []vk.Fence{cb.Fence}, vk.True, vk.MaxUint64); isError(ret) {
		suballoc.SetDefragInProgress(false)
		return newGPUError(KindDeviceLost, "Defragment", vkError("vkWaitForFences", ret, d.debug))
	}
	vk.ResetFences(d.device, 1, []vk.Fence{cb.Fence})

	for _, r := range bufferRelocs {
		r.owner.Relocate(r.newHandle, r.newRegion)
		vk.DestroyBuffer(d.device, r.staleHandle, nil)
	}
	for _, r := range textureRelocs {
		r.owner.Relocate(d.device, r.newHandle, r.newRegion)
		vk.DestroyImage(d.device, r.staleHandle, nil)
	}

	suballoc.FinishDefrag(alloc)
	suballoc.SetDefragInProgress(false)
	d.Engine.Cancel(token, cb)
	return nil
}

// recordBufferRelocation allocates a fresh buffer of owner's size/usage and
// records the barrier-guarded copy of owner's entire contents into it. It
// does not touch owner itself; the caller repoints owner only after the
// recorded command buffer has actually executed.
func recordBufferRelocation(device vk.Device, suballoc *memalloc.SubAllocator, cmd vk.CommandBuffer, owner *resource.Buffer) (*bufferRelocation, error) {
	newBuf, err := resource.CreateBuffer(device, suballoc, owner.Size, owner.Usage)
	if err != nil {
		return nil, fmt.Errorf("defrag: allocate replacement buffer: %w", err)
	}

	oldBarrier := restrack.TransitionBuffer(owner.Handle, vk.DeviceSize(owner.Size), owner.DefaultMode, restrack.ModeCopySource)
	newBarrier := restrack.TransitionBuffer(newBuf.Handle, vk.DeviceSize(newBuf.Size), restrack.ModeUndefined, restrack.ModeCopyDestination)
	vk.CmdPipelineBarrier(cmd, oldBarrier.SrcStage|newBarrier.SrcStage, oldBarrier.DstStage|newBarrier.DstStage,
		0, 0, nil, 2, []vk.BufferMemoryBarrier{oldBarrier.Barrier, newBarrier.Barrier}, 0, nil)

	vk.CmdCopyBuffer(cmd, owner.Handle, newBuf.Handle, 1, []vk.BufferCopy{{Size: vk.DeviceSize(owner.Size)}})

	backNew := restrack.TransitionBuffer(newBuf.Handle, vk.DeviceSize(newBuf.Size), restrack.ModeCopyDestination, owner.DefaultMode)
	vk.CmdPipelineBarrier(cmd, backNew.SrcStage, backNew.DstStage, 0, 0, nil, 1, []vk.BufferMemoryBarrier{backNew.Barrier}, 0, nil)

	return &bufferRelocation{owner: owner, newHandle: newBuf.Handle, newRegion: newBuf.Region, staleHandle: owner.Handle}, nil
}

// recordTextureRelocation allocates a fresh image matching owner's
// CreateInfo and records a per-mip-level barrier-guarded copy of every
// array layer into it.
func recordTextureRelocation(device vk.Device, suballoc *memalloc.SubAllocator, cmd vk.CommandBuffer, owner *resource.Texture) (*textureRelocation, error) {
	newTex, err := resource.CreateTexture(device, suballoc, resource.TextureCreateInfo{
		Format:      owner.Format,
		Width:       owner.Width,
		Height:      owner.Height,
		Depth:       owner.Depth,
		MipLevels:   owner.MipLevels,
		ArrayLayers: owner.ArrayLayers,
		Samples:     owner.Samples,
		Usage:       owner.Usage,
		Cube:        owner.Cube,
	})
	if err != nil {
		return nil, fmt.Errorf("defrag: allocate replacement texture: %w", err)
	}

	aspect := resource.AspectMask(owner.Format, true)
	oldBarrier := restrack.TransitionFromDefault(owner.Handle, aspect, owner.ArrayLayers, owner.MipLevels, owner.DefaultMode, restrack.ModeCopySource)
	newBarrier := restrack.TransitionImage(newTex.Handle, aspect, 0, newTex.ArrayLayers, 0, newTex.MipLevels, restrack.ModeUndefined, restrack.ModeCopyDestination)
	vk.CmdPipelineBarrier(cmd, oldBarrier.SrcStage|newBarrier.SrcStage, oldBarrier.DstStage|newBarrier.DstStage,
		0, 0, nil, 0, nil, 2, []vk.ImageMemoryBarrier{oldBarrier.Barrier, newBarrier.Barrier})

	regions := make([]vk.ImageCopy, 0, owner.MipLevels)
	for level := uint32(0); level < owner.MipLevels; level++ {
		regions = append(regions, vk.ImageCopy{
			SrcSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: level, LayerCount: owner.ArrayLayers},
			DstSubresource: vk.ImageSubresourceLayers{AspectMask: aspect, MipLevel: level, LayerCount: owner.ArrayLayers},
			Extent:         mipExtent(owner.Width, owner.Height, owner.Depth, level),
		})
	}
	vk.CmdCopyImage(cmd, owner.Handle, vk.ImageLayoutTransferSrcOptimal, newTex.Handle, vk.ImageLayoutTransferDstOptimal, uint32(len(regions)), regions)

	backNew := restrack.TransitionImage(newTex.Handle, aspect, 0, newTex.ArrayLayers, 0, newTex.MipLevels, restrack.ModeCopyDestination, owner.DefaultMode)
	vk.CmdPipelineBarrier(cmd, backNew.SrcStage, backNew.DstStage, 0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{backNew.Barrier})

	return &textureRelocation{owner: owner, newHandle: newTex.Handle, newRegion: newTex.Region, staleHandle: owner.Handle}, nil
}

func mipExtent(width, height, depth, level uint32) vk.Extent3D {
	w := width >> level
	if w < 1 {
		w = 1
	}
	h := height >> level
	if h < 1 {
		h = 1
	}
	dpt := depth >> level
	if dpt < 1 {
		dpt = 1
	}
	return vk.Extent3D{Width: w, Height: h, Depth: dpt}
}
