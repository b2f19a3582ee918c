package gpuvk

// TextureFormat is the bit-stable, closed enum of texture formats the
// frontend accepts. Index 0 is always the invalid sentinel so a
// zero-valued CreateInfo fails validation rather than silently picking a
// format.
type TextureFormat uint32

const (
	TextureFormatInvalid TextureFormat = iota
	TextureFormatA8Unorm
	TextureFormatR8Unorm
	TextureFormatR8G8Unorm
	TextureFormatR8G8B8A8Unorm
	TextureFormatR16Unorm
	TextureFormatR16G16Unorm
	TextureFormatR16G16B16A16Unorm
	TextureFormatR10G10B10A2Unorm
	TextureFormatB5G6R5Unorm
	TextureFormatB5G5R5A1Unorm
	TextureFormatB4G4R4A4Unorm
	TextureFormatB8G8R8A8Unorm
	TextureFormatBC1RGBAUnorm
	TextureFormatBC2Unorm
	TextureFormatBC3Unorm
	TextureFormatBC4Unorm
	TextureFormatBC5Unorm
	TextureFormatBC6HFloat
	TextureFormatBC6HUfloat
	TextureFormatBC7Unorm
	TextureFormatR8SNorm
	TextureFormatR8G8SNorm
	TextureFormatR8G8B8A8SNorm
	TextureFormatR16SNorm
	TextureFormatR16G16SNorm
	TextureFormatR16G16B16A16SNorm
	TextureFormatR16Sfloat
	TextureFormatR16G16Sfloat
	TextureFormatR16G16B16A16Sfloat
	TextureFormatR32Sfloat
	TextureFormatR32G32Sfloat
	TextureFormatR32G32B32A32Sfloat
	TextureFormatR8Uint
	TextureFormatR8G8Uint
	TextureFormatR8G8B8A8Uint
	TextureFormatR16Uint
	TextureFormatR16G16Uint
	TextureFormatR16G16B16A16Uint
	TextureFormatR8Int
	TextureFormatR8G8Int
	TextureFormatR8G8B8A8Int
	TextureFormatR16Int
	TextureFormatR16G16Int
	TextureFormatR16G16B16A16Int
	TextureFormatR8G8B8A8UnormSrgb
	TextureFormatB8G8R8A8UnormSrgb
	TextureFormatBC1RGBAUnormSrgb
	TextureFormatBC2UnormSrgb
	TextureFormatBC3UnormSrgb
	TextureFormatBC7UnormSrgb
	TextureFormatD16Unorm
	TextureFormatD24Unorm
	TextureFormatD32Sfloat
	TextureFormatD24UnormS8Uint
	TextureFormatD32SfloatS8Uint
	TextureFormatASTC4x4Unorm
	TextureFormatASTC4x4UnormSrgb
	TextureFormatASTC4x4Float
	TextureFormatASTC12x12Unorm
	TextureFormatASTC12x12UnormSrgb
	TextureFormatASTC12x12Float
)

// VertexElementFormat is the closed enum of vertex attribute wire formats.
type VertexElementFormat uint32

const (
	VertexElementFormatInvalid VertexElementFormat = iota
	VertexElementFormatInt1
	VertexElementFormatInt2
	VertexElementFormatInt3
	VertexElementFormatInt4
	VertexElementFormatUint1
	VertexElementFormatUint2
	VertexElementFormatUint3
	VertexElementFormatUint4
	VertexElementFormatFloat1
	VertexElementFormatFloat2
	VertexElementFormatFloat3
	VertexElementFormatFloat4
	VertexElementFormatByte2
	VertexElementFormatByte4
	VertexElementFormatUbyte2
	VertexElementFormatUbyte4
	VertexElementFormatByte2Norm
	VertexElementFormatByte4Norm
	VertexElementFormatUbyte2Norm
	VertexElementFormatUbyte4Norm
	VertexElementFormatShort2
	VertexElementFormatShort4
	VertexElementFormatUshort2
	VertexElementFormatUshort4
	VertexElementFormatShort2Norm
	VertexElementFormatShort4Norm
	VertexElementFormatUshort2Norm
	VertexElementFormatUshort4Norm
	VertexElementFormatHalf2
	VertexElementFormatHalf4
)

type PrimitiveType uint32

const (
	PrimitiveTypeTriangleList PrimitiveType = iota
	PrimitiveTypeTriangleStrip
	PrimitiveTypeLineList
	PrimitiveTypeLineStrip
	PrimitiveTypePointList
)

type CompareOp uint32

const (
	CompareOpInvalid CompareOp = iota
	CompareOpNever
	CompareOpLess
	CompareOpEqual
	CompareOpLessOrEqual
	CompareOpGreater
	CompareOpNotEqual
	CompareOpGreaterOrEqual
	CompareOpAlways
)

type BlendFactor uint32

const (
	BlendFactorInvalid BlendFactor = iota
	BlendFactorZero
	BlendFactorOne
	BlendFactorSrcColor
	BlendFactorOneMinusSrcColor
	BlendFactorDstColor
	BlendFactorOneMinusDstColor
	BlendFactorSrcAlpha
	BlendFactorOneMinusSrcAlpha
	BlendFactorDstAlpha
	BlendFactorOneMinusDstAlpha
	BlendFactorConstantColor
	BlendFactorOneMinusConstantColor
	BlendFactorSrcAlphaSaturate
)

type BlendOp uint32

const (
	BlendOpInvalid BlendOp = iota
	BlendOpAdd
	BlendOpSubtract
	BlendOpReverseSubtract
	BlendOpMin
	BlendOpMax
)

type StencilOp uint32

const (
	StencilOpInvalid StencilOp = iota
	StencilOpKeep
	StencilOpZero
	StencilOpReplace
	StencilOpIncrementAndClamp
	StencilOpDecrementAndClamp
	StencilOpInvert
	StencilOpIncrementAndWrap
	StencilOpDecrementAndWrap
)

type LoadOp uint32

const (
	LoadOpLoad LoadOp = iota
	LoadOpClear
	LoadOpDontCare
)

type StoreOp uint32

const (
	StoreOpStore StoreOp = iota
	StoreOpDontCare
	StoreOpResolve
	StoreOpResolveAndStore
)

type SampleCount uint32

const (
	SampleCount1 SampleCount = 1
	SampleCount2 SampleCount = 2
	SampleCount4 SampleCount = 4
	SampleCount8 SampleCount = 8
)

type PresentMode uint32

const (
	PresentModeVsync PresentMode = iota
	PresentModeImmediate
	PresentModeMailbox
)

// SwapchainComposition indexes the format + colorspace selection table
// used by ClaimWindow (§4.9).
type SwapchainComposition uint32

const (
	SwapchainCompositionSDR SwapchainComposition = iota
	SwapchainCompositionSDRLinear
	SwapchainCompositionHDRExtendedLinear
	SwapchainCompositionHDR10ST2084
)

// FlipMode controls Blit axis inversion (§4.6, §8 boundary behavior).
type FlipMode uint32

const (
	FlipModeNone FlipMode = 0
	FlipModeHorizontal FlipMode = 1 << 0
	FlipModeVertical   FlipMode = 1 << 1
)

// Binding slot limits (§6 "Binding slot limits"). Shared compile-time
// constants between frontend validation and the backend's descriptor
// layout interning.
const (
	MaxTextureSamplersPerStage      = 16
	MaxStorageTexturesPerStage      = 8
	MaxStorageBuffersPerStage       = 8
	MaxUniformBuffersPerStage       = 4
	MaxColorTargetBindings          = 4
	MaxVertexBuffers                = 16
	MaxComputeWriteTextures         = 8
	MaxComputeWriteBuffers          = 8
)
