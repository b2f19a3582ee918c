// Package restrack implements the automatic resource-state tracker
// (component C3): it derives a default usage mode for each buffer/texture
// from its usage bitmask and builds the pipeline barriers needed to move a
// resource between usage modes.
package restrack

import "fmt"

// BufferUsage is a bitmask mirroring the public buffer usage flags the
// frontend exposes.
type BufferUsage uint32

const (
	BufferUsageVertex BufferUsage = 1 << iota
	BufferUsageIndex
	BufferUsageIndirect
	BufferUsageGraphicsStorageRead
	BufferUsageComputeStorageRead
	BufferUsageComputeStorageReadWrite
)

// TextureUsage is a bitmask mirroring the public texture usage flags.
type TextureUsage uint32

const (
	TextureUsageSampler TextureUsage = 1 << iota
	TextureUsageColorTarget
	TextureUsageDepthStencilTarget
	TextureUsageGraphicsStorageRead
	TextureUsageComputeStorageRead
	TextureUsageComputeStorageWrite
	TextureUsageComputeSimultaneousReadWrite
)

// UsageMode is the abstract barrier state the glossary calls "Usage mode":
// CopySource, Sampler, ColorAttachment, ComputeStorageReadWrite, etc.
type UsageMode int

const (
	ModeUndefined UsageMode = iota
	ModeVertexRead
	ModeIndexRead
	ModeIndirectRead
	ModeGraphicsStorageRead
	ModeComputeStorageRead
	ModeComputeStorageReadWrite
	ModeSampler
	ModeColorAttachment
	ModeDepthStencilAttachment
	ModeComputeStorageWrite
	ModeComputeSimultaneousReadWrite
	ModeCopySource
	ModeCopyDestination
	ModePresent
)

// ErrAmbiguousUsage is returned when a usage flag combination has no single
// well-defined default mode (§4.3: e.g. SAMPLER together with a
// graphics-storage bit).
type ErrAmbiguousUsage struct {
	Detail string
}

func (e *ErrAmbiguousUsage) Error() string {
	return fmt.Sprintf("restrack: ambiguous usage combination: %s", e.Detail)
}

// DefaultBufferMode derives a buffer's default usage mode from its usage
// bits, in the priority order fixed by §4.3: Vertex > Index > Indirect >
// GraphicsStorageRead > ComputeStorageRead > ComputeStorageReadWrite.
func DefaultBufferMode(usage BufferUsage) (UsageMode, error) {
	switch {
	case usage&BufferUsageVertex != 0:
		return ModeVertexRead, nil
	case usage&BufferUsageIndex != 0:
		return ModeIndexRead, nil
	case usage&BufferUsageIndirect != 0:
		return ModeIndirectRead, nil
	case usage&BufferUsageGraphicsStorageRead != 0:
		return ModeGraphicsStorageRead, nil
	case usage&BufferUsageComputeStorageRead != 0:
		return ModeComputeStorageRead, nil
	case usage&BufferUsageComputeStorageReadWrite != 0:
		return ModeComputeStorageReadWrite, nil
	default:
		return ModeUndefined, &ErrAmbiguousUsage{Detail: fmt.Sprintf("buffer usage %#x maps to no default mode", usage)}
	}
}

// DefaultTextureMode derives a texture's default usage mode in the priority
// order fixed by §4.3: Sampler > GraphicsStorageRead > ColorAttachment >
// DepthStencil > ComputeStorageRead > ComputeStorageWrite >
// ComputeSimultaneousReadWrite.
//
// SAMPLER combined with any graphics-storage bit is forbidden: a texture
// sampled by one pipeline and storage-bound by another within the same
// default-mode window cannot have one unambiguous default.
func DefaultTextureMode(usage TextureUsage) (UsageMode, error) {
	if usage&TextureUsageSampler != 0 && usage&TextureUsageGraphicsStorageRead != 0 {
		return ModeUndefined, &ErrAmbiguousUsage{Detail: "SAMPLER combined with a graphics-storage usage bit"}
	}
	switch {
	case usage&TextureUsageSampler != 0:
		return ModeSampler, nil
	case usage&TextureUsageGraphicsStorageRead != 0:
		return ModeGraphicsStorageRead, nil
	case usage&TextureUsageColorTarget != 0:
		return ModeColorAttachment, nil
	case usage&TextureUsageDepthStencilTarget != 0:
		return ModeDepthStencilAttachment, nil
	case usage&TextureUsageComputeStorageRead != 0:
		return ModeComputeStorageRead, nil
	case usage&TextureUsageComputeStorageWrite != 0:
		return ModeComputeStorageWrite, nil
	case usage&TextureUsageComputeSimultaneousReadWrite != 0:
		return ModeComputeSimultaneousReadWrite, nil
	default:
		return ModeUndefined, &ErrAmbiguousUsage{Detail: fmt.Sprintf("texture usage %#x maps to no default mode", usage)}
	}
}
