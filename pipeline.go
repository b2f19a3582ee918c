package gpuvk

import (
	"fmt"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/descriptor"
	"github.com/kestrelgpu/gpuvk/internal/passcache"
	"github.com/kestrelgpu/gpuvk/internal/resource"
)

// Shader is a compiled SPIR-V module bound to one pipeline stage.
type Shader struct {
	inner *resource.Shader
	stage vk.ShaderStageFlagBits
}

// ShaderResourceCounts records how many of each bound-resource category a
// shader declares, used to pick its descriptor-set layout (§4.4).
type ShaderResourceCounts struct {
	Samplers        int
	StorageTextures int
	StorageBuffers  int
	UniformBuffers  int
}

// CreateShader loads spirv for one pipeline stage. entryPoint defaults to
// "main" when empty (§6).
func (d *GPUDevice) CreateShader(spirv []byte, stage vk.ShaderStageFlagBits, entryPoint string, counts ShaderResourceCounts, props Properties) (*Shader, error) {
	if err := validateShaderCreate(spirv, counts); err != nil {
		return nil, err
	}
	inner, err := resource.CreateShader(d.device, spirv, stage, entryPoint, resource.ResourceCounts{
		Samplers:        counts.Samplers,
		StorageTextures: counts.StorageTextures,
		StorageBuffers:  counts.StorageBuffers,
		UniformBuffers:  counts.UniformBuffers,
	})
	if err != nil {
		return nil, newGPUError(KindInit, "CreateShader", err)
	}
	d.setDebugName("shader", d.debugName(props, PropShaderCreateNameString))
	return &Shader{inner: inner, stage: stage}, nil
}

// ReleaseShader queues the shader module for destruction once fence
// generation gen retires.
func (d *GPUDevice) ReleaseShader(gen uint64, s *Shader) {
	d.Dispose.DeferShader(gen, shaderDestroyer{device: d.device, shader: s.inner})
}

type shaderDestroyer struct {
	device vk.Device
	shader *resource.Shader
}

func (sd shaderDestroyer) Destroy() { sd.shader.Destroy(sd.device) }

// VertexElementFormat -> VkFormat, per the wire-format table in §6.
var vertexFormatTable = map[VertexElementFormat]vk.Format{
	VertexElementFormatInt1:         vk.FormatR32Sint,
	VertexElementFormatInt2:         vk.FormatR32g32Sint,
	VertexElementFormatInt3:         vk.FormatR32g32b32Sint,
	VertexElementFormatInt4:         vk.FormatR32g32b32a32Sint,
	VertexElementFormatUint1:        vk.FormatR32Uint,
	VertexElementFormatUint2:        vk.FormatR32g32Uint,
	VertexElementFormatUint3:        vk.FormatR32g32b32Uint,
	VertexElementFormatUint4:        vk.FormatR32g32b32a32Uint,
	VertexElementFormatFloat1:       vk.FormatR32Sfloat,
	VertexElementFormatFloat2:       vk.FormatR32g32Sfloat,
	VertexElementFormatFloat3:       vk.FormatR32g32b32Sfloat,
	VertexElementFormatFloat4:       vk.FormatR32g32b32a32Sfloat,
	VertexElementFormatByte2:        vk.FormatR8g8Sint,
	VertexElementFormatByte4:        vk.FormatR8g8b8a8Sint,
	VertexElementFormatUbyte2:       vk.FormatR8g8Uint,
	VertexElementFormatUbyte4:       vk.FormatR8g8b8a8Uint,
	VertexElementFormatByte2Norm:    vk.FormatR8g8Snorm,
	VertexElementFormatByte4Norm:    vk.FormatR8g8b8a8Snorm,
	VertexElementFormatUbyte2Norm:   vk.FormatR8g8Unorm,
	VertexElementFormatUbyte4Norm:   vk.FormatR8g8b8a8Unorm,
	VertexElementFormatShort2:       vk.FormatR16g16Sint,
	VertexElementFormatShort4:       vk.FormatR16g16b16a16Sint,
	VertexElementFormatUshort2:      vk.FormatR16g16Uint,
	VertexElementFormatUshort4:      vk.FormatR16g16b16a16Uint,
	VertexElementFormatShort2Norm:   vk.FormatR16g16Snorm,
	VertexElementFormatShort4Norm:   vk.FormatR16g16b16a16Snorm,
	VertexElementFormatUshort2Norm:  vk.FormatR16g16Unorm,
	VertexElementFormatUshort4Norm:  vk.FormatR16g16b16a16Unorm,
	VertexElementFormatHalf2:        vk.FormatR16g16Sfloat,
	VertexElementFormatHalf4:        vk.FormatR16g16b16a16Sfloat,
}

// VertexAttribute describes one shader input location sourced from a vertex
// buffer slot at a byte offset.
type VertexAttribute struct {
	Location   uint32
	BufferSlot uint32
	Format     VertexElementFormat
	Offset     uint32
}

// VertexBufferDescription describes the stride and step rate of one vertex
// buffer slot bound at draw time.
type VertexBufferDescription struct {
	Slot          uint32
	Pitch         uint32
	InstanceInput bool
}

// ColorTargetDescription is one color-attachment slot a graphics pipeline
// writes, with its fixed-function blend state and render-pass load/store
// ops (§4.5 render-pass keying folds these straight into RenderPassKey).
type ColorTargetDescription struct {
	Format              TextureFormat
	BlendEnable         bool
	SrcColorBlendFactor BlendFactor
	DstColorBlendFactor BlendFactor
	ColorBlendOp        BlendOp
	SrcAlphaBlendFactor BlendFactor
	DstAlphaBlendFactor BlendFactor
	AlphaBlendOp        BlendOp
	LoadOp              LoadOp
	StoreOp             StoreOp
}

// DepthStencilDescription is the optional depth/stencil attachment a
// graphics pipeline writes.
type DepthStencilDescription struct {
	Enable         bool
	Format         TextureFormat
	WriteEnable    bool
	CompareOp      CompareOp
	LoadOp         LoadOp
	StoreOp        StoreOp
	StencilLoadOp  LoadOp
	StencilStoreOp StoreOp
}

// RasterizerState is the fixed-function rasterizer configuration (§6).
type RasterizerState struct {
	Wireframe bool // FILLMODE_LINE; falls back to FILL if unsupported (§7 Unsupported feature)
	CullBack  bool
	CullFront bool
	FrontCCW  bool
}

// GraphicsPipelineCreateInfo is the public graphics-pipeline description.
type GraphicsPipelineCreateInfo struct {
	VertexShader   *Shader
	FragmentShader *Shader
	VertexBuffers  []VertexBufferDescription
	VertexAttrs    []VertexAttribute
	Primitive      PrimitiveType
	Rasterizer     RasterizerState
	SampleCount    SampleCount
	DepthStencil   DepthStencilDescription
	ColorTargets   []ColorTargetDescription
	Properties     Properties
}

// ComputePipelineCreateInfo is the public compute-pipeline description.
type ComputePipelineCreateInfo struct {
	Shader                   *Shader
	ReadOnlyStorageTextures  int
	ReadOnlyStorageBuffers   int
	ReadWriteStorageTextures int
	ReadWriteStorageBuffers  int
	UniformBuffers           int
	Properties               Properties
}

// GraphicsPipeline and ComputePipeline are opaque handles returned by
// CreateGraphicsPipeline/CreateComputePipeline; bind them via the returned
// vk.Pipeline/vk.PipelineLayout pair on a CommandBuffer. The per-set
// descriptor.Layout fields are unexported - BindGraphicsPipeline/
// BindComputePipeline thread them into cmdengine so Bind*/FlushDescriptors
// calls know which descriptor set each binding belongs to.
type GraphicsPipeline struct {
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout

	vertexRead    *descriptor.Layout
	vertexUniform *descriptor.Layout
	fragRead      *descriptor.Layout
	fragUniform   *descriptor.Layout
}

type ComputePipeline struct {
	Pipeline vk.Pipeline
	Layout   vk.PipelineLayout

	readOnly *descriptor.Layout
	uniforms *descriptor.Layout
}

func primitiveTopology(p PrimitiveType) vk.PrimitiveTopology {
	switch p {
	case PrimitiveTypeTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case PrimitiveTypeLineList:
		return vk.PrimitiveTopologyLineList
	case PrimitiveTypeLineStrip:
		return vk.PrimitiveTopologyLineStrip
	case PrimitiveTypePointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func blendFactorToVk(f BlendFactor) vk.BlendFactor {
	switch f {
	case BlendFactorOne:
		return vk.BlendFactorOne
	case BlendFactorSrcColor:
		return vk.BlendFactorSrcColor
	case BlendFactorOneMinusSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case BlendFactorDstColor:
		return vk.BlendFactorDstColor
	case BlendFactorOneMinusDstColor:
		return vk.BlendFactorOneMinusDstColor
	case BlendFactorSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case BlendFactorOneMinusSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case BlendFactorDstAlpha:
		return vk.BlendFactorDstAlpha
	case BlendFactorOneMinusDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	case BlendFactorConstantColor:
		return vk.BlendFactorConstantColor
	case BlendFactorOneMinusConstantColor:
		return vk.BlendFactorOneMinusConstantColor
	case BlendFactorSrcAlphaSaturate:
		return vk.BlendFactorSrcAlphaSaturate
	default:
		return vk.BlendFactorZero
	}
}

func blendOpToVk(op BlendOp) vk.BlendOp {
	switch op {
	case BlendOpSubtract:
		return vk.BlendOpSubtract
	case BlendOpReverseSubtract:
		return vk.BlendOpReverseSubtract
	case BlendOpMin:
		return vk.BlendOpMin
	case BlendOpMax:
		return vk.BlendOpMax
	default:
		return vk.BlendOpAdd
	}
}

func compareOpToVk(op CompareOp) vk.CompareOp {
	switch op {
	case CompareOpNever:
		return vk.CompareOpNever
	case CompareOpEqual:
		return vk.CompareOpEqual
	case CompareOpLessOrEqual:
		return vk.CompareOpLessOrEqual
	case CompareOpGreater:
		return vk.CompareOpGreater
	case CompareOpNotEqual:
		return vk.CompareOpNotEqual
	case CompareOpGreaterOrEqual:
		return vk.CompareOpGreaterOrEqual
	case CompareOpAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpLess
	}
}

func loadOpToVk(op LoadOp) vk.AttachmentLoadOp {
	switch op {
	case LoadOpClear:
		return vk.AttachmentLoadOpClear
	case LoadOpDontCare:
		return vk.AttachmentLoadOpDontCare
	default:
		return vk.AttachmentLoadOpLoad
	}
}

func storeOpToVk(op StoreOp) vk.AttachmentStoreOp {
	if op == StoreOpDontCare {
		return vk.AttachmentStoreOpDontCare
	}
	return vk.AttachmentStoreOpStore
}

// graphicsDescriptorLayouts retains the four interned per-set layouts
// graphicsResourceLayout built, so the caller can store them on
// GraphicsPipeline for later Bind*/FlushDescriptors calls.
type graphicsDescriptorLayouts struct {
	VertexRead    *descriptor.Layout
	VertexUniform *descriptor.Layout
	FragRead      *descriptor.Layout
	FragUniform   *descriptor.Layout
}

type computeDescriptorLayouts struct {
	ReadOnly *descriptor.Layout
	Uniforms *descriptor.Layout
}

// graphicsResourceLayout interns the fixed 4-slot {vertex-read,
// vertex-uniform, fragment-read, fragment-uniform} pipeline layout for a
// vertex/fragment shader pair (§4.5).
func (d *GPUDevice) graphicsResourceLayout(vs, fs *Shader) (vk.PipelineLayout, graphicsDescriptorLayouts, error) {
	vertexRead, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:           vk.ShaderStageVertexBit,
		Samplers:        vs.inner.Counts.Samplers,
		StorageTextures: vs.inner.Counts.StorageTextures,
		StorageBuffers:  vs.inner.Counts.StorageBuffers,
	})
	if err != nil {
		return nil, graphicsDescriptorLayouts{}, err
	}
	vertexUniform, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:          vk.ShaderStageVertexBit,
		UniformBuffers: vs.inner.Counts.UniformBuffers,
	})
	if err != nil {
		return nil, graphicsDescriptorLayouts{}, err
	}
	fragRead, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:           vk.ShaderStageFragmentBit,
		Samplers:        fs.inner.Counts.Samplers,
		StorageTextures: fs.inner.Counts.StorageTextures,
		StorageBuffers:  fs.inner.Counts.StorageBuffers,
	})
	if err != nil {
		return nil, graphicsDescriptorLayouts{}, err
	}
	fragUniform, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:          vk.ShaderStageFragmentBit,
		UniformBuffers: fs.inner.Counts.UniformBuffers,
	})
	if err != nil {
		return nil, graphicsDescriptorLayouts{}, err
	}
	pipelineLayout, err := d.ResourceLayouts.Acquire(passcache.ResourceLayoutKey{
		VertexReadSet:      vertexRead.Handle,
		VertexUniformSet:   vertexUniform.Handle,
		FragmentReadSet:    fragRead.Handle,
		FragmentUniformSet: fragUniform.Handle,
	})
	if err != nil {
		return nil, graphicsDescriptorLayouts{}, err
	}
	return pipelineLayout, graphicsDescriptorLayouts{
		VertexRead:    vertexRead,
		VertexUniform: vertexUniform,
		FragRead:      fragRead,
		FragUniform:   fragUniform,
	}, nil
}

// computeResourceLayout interns the fixed 3-slot {read-only, read-write,
// uniforms} compute pipeline layout.
func (d *GPUDevice) computeResourceLayout(info ComputePipelineCreateInfo) (vk.PipelineLayout, computeDescriptorLayouts, error) {
	readOnly, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:           vk.ShaderStageComputeBit,
		Samplers:        info.ReadOnlyStorageTextures,
		StorageTextures: 0,
		StorageBuffers:  info.ReadOnlyStorageBuffers,
	})
	if err != nil {
		return nil, computeDescriptorLayouts{}, err
	}
	readWrite, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:                vk.ShaderStageComputeBit,
		WriteStorageTextures: info.ReadWriteStorageTextures,
		WriteStorageBuffers:  info.ReadWriteStorageBuffers,
	})
	if err != nil {
		return nil, computeDescriptorLayouts{}, err
	}
	uniforms, err := d.Layouts.Intern(descriptor.LayoutKey{
		Stage:          vk.ShaderStageComputeBit,
		UniformBuffers: info.UniformBuffers,
	})
	if err != nil {
		return nil, computeDescriptorLayouts{}, err
	}
	pipelineLayout, err := d.ResourceLayouts.Acquire(passcache.ResourceLayoutKey{
		Compute:      true,
		ReadOnlySet:  readOnly.Handle,
		ReadWriteSet: readWrite.Handle,
		UniformSet:   uniforms.Handle,
	})
	if err != nil {
		return nil, computeDescriptorLayouts{}, err
	}
	return pipelineLayout, computeDescriptorLayouts{ReadOnly: readOnly, Uniforms: uniforms}, nil
}

// CreateGraphicsPipeline builds (or returns a cached) VkPipeline for info,
// following the teacher's PipelineBuilder stage-by-stage construction.
func (d *GPUDevice) CreateGraphicsPipeline(info GraphicsPipelineCreateInfo) (*GraphicsPipeline, error) {
	if err := validateGraphicsPipelineCreate(info); err != nil {
		return nil, err
	}

	layout, descLayouts, err := d.graphicsResourceLayout(info.VertexShader, info.FragmentShader)
	if err != nil {
		return nil, newGPUError(KindInit, "CreateGraphicsPipeline", err)
	}

	var colorKeys [passcache.MaxColorAttachments]passcache.ColorTargetKey
	for i, ct := range info.ColorTargets {
		vkFormat, ok := ToVkTextureFormat(ct.Format)
		if !ok {
			return nil, newGPUError(KindValidation, "CreateGraphicsPipeline", fmt.Errorf("unsupported color target format %v", ct.Format))
		}
		colorKeys[i] = passcache.ColorTargetKey{Format: vkFormat, LoadOp: loadOpToVk(ct.LoadOp), StoreOp: storeOpToVk(ct.StoreOp)}
	}

	var depthKey passcache.DepthStencilKey
	if info.DepthStencil.Enable {
		vkFormat, ok := ToVkTextureFormat(info.DepthStencil.Format)
		if !ok {
			return nil, newGPUError(KindValidation, "CreateGraphicsPipeline", fmt.Errorf("unsupported depth format %v", info.DepthStencil.Format))
		}
		depthKey = passcache.DepthStencilKey{
			Present:        true,
			Format:         vkFormat,
			LoadOp:         loadOpToVk(info.DepthStencil.LoadOp),
			StoreOp:        storeOpToVk(info.DepthStencil.StoreOp),
			StencilLoadOp:  loadOpToVk(info.DepthStencil.StencilLoadOp),
			StencilStoreOp: storeOpToVk(info.DepthStencil.StencilStoreOp),
		}
	}

	samples := sampleCountToVk(info.SampleCount)

	renderPass, err := d.RenderPasses.Acquire(passcache.RenderPassKey{
		Colors:    colorKeys,
		NumColors: len(info.ColorTargets),
		Depth:     depthKey,
		Samples:   samples,
	})
	if err != nil {
		return nil, newGPUError(KindInit, "CreateGraphicsPipeline", err)
	}

	blendEnableAny := false
	for _, ct := range info.ColorTargets {
		blendEnableAny = blendEnableAny || ct.BlendEnable
	}

	cullMode := vk.CullModeFlags(vk.CullModeNone)
	switch {
	case info.Rasterizer.CullBack:
		cullMode = vk.CullModeFlags(vk.CullModeBackBit)
	case info.Rasterizer.CullFront:
		cullMode = vk.CullModeFlags(vk.CullModeFrontBit)
	}
	frontFace := vk.FrontFaceClockwise
	if info.Rasterizer.FrontCCW {
		frontFace = vk.FrontFaceCounterClockwise
	}
	polygonMode := vk.PolygonModeFill
	if info.Rasterizer.Wireframe {
		polygonMode = vk.PolygonModeLine
	}

	key := passcache.GraphicsPipelineKey{
		RenderPass:       renderPass,
		Layout:           layout,
		VertexShader:     info.VertexShader.inner.Handle,
		FragmentShader:   info.FragmentShader.inner.Handle,
		PrimitiveType:    primitiveTopology(info.Primitive),
		PolygonMode:      polygonMode,
		CullMode:         vk.CullModeFlagBits(cullMode),
		FrontFace:        frontFace,
		SampleCount:      samples,
		DepthTestEnable:  info.DepthStencil.Enable,
		DepthWriteEnable: info.DepthStencil.WriteEnable,
		DepthCompareOp:   compareOpToVk(info.DepthStencil.CompareOp),
		BlendEnable:      blendEnableAny,
		NumColorTargets:  len(info.ColorTargets),
	}

	pipeline, err := d.Pipelines.AcquireGraphics(key, func(vkCache vk.PipelineCache) (vk.Pipeline, error) {
		return buildGraphicsPipeline(d.device, vkCache, info, key, layout, renderPass)
	})
	if err != nil {
		return nil, newGPUError(KindInit, "CreateGraphicsPipeline", err)
	}

	d.setDebugName("pipeline", d.debugName(info.Properties, PropPipelineCreateNameString))
	return &GraphicsPipeline{
		Pipeline:      pipeline,
		Layout:        layout,
		vertexRead:    descLayouts.VertexRead,
		vertexUniform: descLayouts.VertexUniform,
		fragRead:      descLayouts.FragRead,
		fragUniform:   descLayouts.FragUniform,
	}, nil
}

func buildGraphicsPipeline(device vk.Device, vkCache vk.PipelineCache, info GraphicsPipelineCreateInfo, key passcache.GraphicsPipelineKey, layout vk.PipelineLayout, renderPass vk.RenderPass) (vk.Pipeline, error) {
	stages := []vk.PipelineShaderStageCreateInfo{
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageVertexBit,
			Module: info.VertexShader.inner.Handle,
			PName:  safeString(info.VertexShader.inner.EntryPoint),
		},
		{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: info.FragmentShader.inner.Handle,
			PName:  safeString(info.FragmentShader.inner.EntryPoint),
		},
	}

	bindings := make([]vk.VertexInputBindingDescription, len(info.VertexBuffers))
	for i, vb := range info.VertexBuffers {
		rate := vk.VertexInputRateVertex
		if vb.InstanceInput {
			rate = vk.VertexInputRateInstance
		}
		bindings[i] = vk.VertexInputBindingDescription{Binding: vb.Slot, Stride: vb.Pitch, InputRate: rate}
	}
	attrs := make([]vk.VertexInputAttributeDescription, len(info.VertexAttrs))
	for i, a := range info.VertexAttrs {
		vkFormat, ok := vertexFormatTable[a.Format]
		if !ok {
			return nil, fmt.Errorf("gpuvk: unsupported vertex element format %v", a.Format)
		}
		attrs[i] = vk.VertexInputAttributeDescription{Location: a.Location, Binding: a.BufferSlot, Format: vkFormat, Offset: a.Offset}
	}

	vertexInput := vk.PipelineVertexInputStateCreateInfo{
		SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
		VertexBindingDescriptionCount:   uint32(len(bindings)),
		PVertexBindingDescriptions:      bindings,
		VertexAttributeDescriptionCount: uint32(len(attrs)),
		PVertexAttributeDescriptions:    attrs,
	}

	inputAssembly := vk.PipelineInputAssemblyStateCreateInfo{
		SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
		Topology: key.PrimitiveType,
	}

	// Viewport/scissor are dynamic: the swapchain's extent can change across
	// frames without rebuilding every pipeline that targets it (§4.9).
	viewportState := vk.PipelineViewportStateCreateInfo{
		SType:         vk.StructureTypePipelineViewportStateCreateInfo,
		ViewportCount: 1,
		ScissorCount:  1,
	}
	dynamicStates := []vk.DynamicState{vk.DynamicStateViewport, vk.DynamicStateScissor}
	dynamicState := vk.PipelineDynamicStateCreateInfo{
		SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
		DynamicStateCount: uint32(len(dynamicStates)),
		PDynamicStates:    dynamicStates,
	}

	rasterizer := vk.PipelineRasterizationStateCreateInfo{
		SType:       vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode: key.PolygonMode,
		CullMode:    vk.CullModeFlags(key.CullMode),
		FrontFace:   key.FrontFace,
		LineWidth:   1.0,
	}

	multisample := vk.PipelineMultisampleStateCreateInfo{
		SType:                vk.StructureTypePipelineMultisampleStateCreateInfo,
		RasterizationSamples: key.SampleCount,
		MinSampleShading:     1.0,
	}

	depthStencil := vk.PipelineDepthStencilStateCreateInfo{
		SType:            vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:  vkBool(key.DepthTestEnable),
		DepthWriteEnable: vkBool(key.DepthWriteEnable),
		DepthCompareOp:   key.DepthCompareOp,
	}

	var blendAttachments []vk.PipelineColorBlendAttachmentState
	for _, ct := range info.ColorTargets {
		blendAttachments = append(blendAttachments, vk.PipelineColorBlendAttachmentState{
			BlendEnable:         vkBool(ct.BlendEnable),
			SrcColorBlendFactor: blendFactorToVk(ct.SrcColorBlendFactor),
			DstColorBlendFactor: blendFactorToVk(ct.DstColorBlendFactor),
			ColorBlendOp:        blendOpToVk(ct.ColorBlendOp),
			SrcAlphaBlendFactor: blendFactorToVk(ct.SrcAlphaBlendFactor),
			DstAlphaBlendFactor: blendFactorToVk(ct.DstAlphaBlendFactor),
			AlphaBlendOp:        blendOpToVk(ct.AlphaBlendOp),
			ColorWriteMask: vk.ColorComponentFlags(vk.ColorComponentRBit) | vk.ColorComponentFlags(vk.ColorComponentGBit) |
				vk.ColorComponentFlags(vk.ColorComponentBBit) | vk.ColorComponentFlags(vk.ColorComponentABit),
		})
	}
	colorBlend := vk.PipelineColorBlendStateCreateInfo{
		SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
		LogicOp:         vk.LogicOpCopy,
		AttachmentCount: uint32(len(blendAttachments)),
		PAttachments:    blendAttachments,
	}

	createInfo := vk.GraphicsPipelineCreateInfo{
		SType:               vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount:          uint32(len(stages)),
		PStages:             stages,
		PVertexInputState:   &vertexInput,
		PInputAssemblyState: &inputAssembly,
		PViewportState:      &viewportState,
		PRasterizationState: &rasterizer,
		PMultisampleState:   &multisample,
		PDepthStencilState:  &depthStencil,
		PColorBlendState:    &colorBlend,
		PDynamicState:       &dynamicState,
		Layout:              layout,
		RenderPass:          renderPass,
	}

	pipelines := []vk.Pipeline{vk.NullPipeline}
	ret := vk.CreateGraphicsPipelines(device, vkCache, 1, []vk.GraphicsPipelineCreateInfo{createInfo}, nil, pipelines)
	if ret != vk.Success {
		return nil, fmt.Errorf("gpuvk: vkCreateGraphicsPipelines failed: result %d", int32(ret))
	}
	return pipelines[0], nil
}

// CreateComputePipeline builds (or returns a cached) compute VkPipeline.
func (d *GPUDevice) CreateComputePipeline(info ComputePipelineCreateInfo) (*ComputePipeline, error) {
	if err := validateComputePipelineCreate(info); err != nil {
		return nil, err
	}

	layout, descLayouts, err := d.computeResourceLayout(info)
	if err != nil {
		return nil, newGPUError(KindInit, "CreateComputePipeline", err)
	}

	key := passcache.ComputePipelineKey{Layout: layout, Shader: info.Shader.inner.Handle}
	pipeline, err := d.Pipelines.AcquireCompute(key, func(vkCache vk.PipelineCache) (vk.Pipeline, error) {
		stage := vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: info.Shader.inner.Handle,
			PName:  safeString(info.Shader.inner.EntryPoint),
		}
		createInfo := vk.ComputePipelineCreateInfo{
			SType:  vk.StructureTypeComputePipelineCreateInfo,
			Stage:  stage,
			Layout: layout,
		}
		pipelines := []vk.Pipeline{vk.NullPipeline}
		ret := vk.CreateComputePipelines(d.device, vkCache, 1, []vk.ComputePipelineCreateInfo{createInfo}, nil, pipelines)
		if ret != vk.Success {
			return nil, fmt.Errorf("gpuvk: vkCreateComputePipelines failed: result %d", int32(ret))
		}
		return pipelines[0], nil
	})
	if err != nil {
		return nil, newGPUError(KindInit, "CreateComputePipeline", err)
	}

	d.setDebugName("pipeline", d.debugName(info.Properties, PropPipelineCreateNameString))
	return &ComputePipeline{
		Pipeline: pipeline,
		Layout:   layout,
		readOnly: descLayouts.ReadOnly,
		uniforms: descLayouts.Uniforms,
	}, nil
}

// ReleaseGraphicsPipeline and ReleaseComputePipeline queue a pipeline for
// deferred destruction. The pipeline cache itself keeps the handle alive
// until Destroy, so these are no-ops unless the caller wants an eagerly
// evicted pipeline - provided for API symmetry with the other Release calls.
func (d *GPUDevice) ReleaseGraphicsPipeline(gen uint64, p *GraphicsPipeline) {
	d.Dispose.DeferPipeline(gen, noopDestroyer{})
}

func (d *GPUDevice) ReleaseComputePipeline(gen uint64, p *ComputePipeline) {
	d.Dispose.DeferPipeline(gen, noopDestroyer{})
}

type noopDestroyer struct{}

func (noopDestroyer) Destroy() {}

func vkBool(b bool) vk.Bool32 {
	if b {
		return vk.True
	}
	return vk.False
}

func sampleCountToVk(s SampleCount) vk.SampleCountFlagBits {
	switch s {
	case SampleCount2:
		return vk.SampleCount2Bit
	case SampleCount4:
		return vk.SampleCount4Bit
	case SampleCount8:
		return vk.SampleCount8Bit
	default:
		return vk.SampleCount1Bit
	}
}
