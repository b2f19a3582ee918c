package gpuvk

import "fmt"

// Parameter validation (§4.10): sizes, null checks, capacity limits. These
// run on every public entry point before any Vulkan call is made, so a bad
// caller never reaches the driver. Semantic enforcement (layout rules,
// usage-mode ambiguity) stays in the backend packages (restrack, resource).

func validateBufferCreate(size uint64) error {
	if size == 0 {
		return newGPUError(KindValidation, "CreateBuffer", fmt.Errorf("size must be non-zero"))
	}
	return nil
}

func validateTextureCreate(info TextureCreateInfo) error {
	if info.Width == 0 || info.Height == 0 {
		return newGPUError(KindValidation, "CreateTexture", fmt.Errorf("width and height must be non-zero"))
	}
	if info.Format == TextureFormatInvalid {
		return newGPUError(KindValidation, "CreateTexture", fmt.Errorf("format must not be INVALID"))
	}
	if info.MipLevels == 0 {
		info.MipLevels = 1
	}
	if info.ArrayLayers == 0 {
		info.ArrayLayers = 1
	}
	return nil
}

func validateShaderCreate(spirv []byte, counts ShaderResourceCounts) error {
	if len(spirv) == 0 {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("spirv must not be empty"))
	}
	if len(spirv)%4 != 0 {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("spirv length %d is not a multiple of 4", len(spirv)))
	}
	if counts.Samplers > MaxTextureSamplersPerStage {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("samplers %d exceeds per-stage limit %d", counts.Samplers, MaxTextureSamplersPerStage))
	}
	if counts.StorageTextures > MaxStorageTexturesPerStage {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("storage textures %d exceeds per-stage limit %d", counts.StorageTextures, MaxStorageTexturesPerStage))
	}
	if counts.StorageBuffers > MaxStorageBuffersPerStage {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("storage buffers %d exceeds per-stage limit %d", counts.StorageBuffers, MaxStorageBuffersPerStage))
	}
	if counts.UniformBuffers > MaxUniformBuffersPerStage {
		return newGPUError(KindValidation, "CreateShader", fmt.Errorf("uniform buffers %d exceeds per-stage limit %d", counts.UniformBuffers, MaxUniformBuffersPerStage))
	}
	return nil
}

func validateGraphicsPipelineCreate(info GraphicsPipelineCreateInfo) error {
	if info.VertexShader == nil || info.FragmentShader == nil {
		return newGPUError(KindValidation, "CreateGraphicsPipeline", fmt.Errorf("vertex and fragment shaders are required"))
	}
	if len(info.ColorTargets) > MaxColorTargetBindings {
		return newGPUError(KindValidation, "CreateGraphicsPipeline", fmt.Errorf("%d color targets exceeds limit %d", len(info.ColorTargets), MaxColorTargetBindings))
	}
	if len(info.VertexBuffers) > MaxVertexBuffers {
		return newGPUError(KindValidation, "CreateGraphicsPipeline", fmt.Errorf("%d vertex buffers exceeds limit %d", len(info.VertexBuffers), MaxVertexBuffers))
	}
	return nil
}

func validateComputePipelineCreate(info ComputePipelineCreateInfo) error {
	if info.Shader == nil {
		return newGPUError(KindValidation, "CreateComputePipeline", fmt.Errorf("shader is required"))
	}
	if info.ReadWriteStorageTextures+info.ReadWriteStorageBuffers > MaxComputeWriteTextures+MaxComputeWriteBuffers {
		return newGPUError(KindValidation, "CreateComputePipeline", fmt.Errorf("read-write bindings exceed compute write limits"))
	}
	return nil
}
