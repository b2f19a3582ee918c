package gpuvk

import "log"

// Properties is the string-keyed property bag creation calls accept (§6).
// The only entries this backend recognizes are debug-name strings; any
// other key is ignored rather than rejected, matching SDL_GPU's own
// "properties are a superset across backends" contract.
type Properties map[string]string

// Debug-name property keys (§6 "Properties").
const (
	PropTextureCreateNameString  = "gpuvk.texture.create.name"
	PropBufferCreateNameString   = "gpuvk.buffer.create.name"
	PropSamplerCreateNameString  = "gpuvk.sampler.create.name"
	PropShaderCreateNameString   = "gpuvk.shader.create.name"
	PropPipelineCreateNameString = "gpuvk.pipeline.create.name"
)

// debugName extracts a name from props under key, or "" if none was set or
// debug mode is off (names are only logged in debug mode).
func (d *GPUDevice) debugName(props Properties, key string) string {
	if !d.debug || props == nil {
		return ""
	}
	return props[key]
}

// setDebugName logs name with log.Printf when one is set; it makes no driver
// call. The vulkan-go binding this backend is built against does not
// wrap VK_EXT_debug_utils, so naming is surfaced through the same debug log
// channel as validation messages instead of a native vkSetDebugUtilsObjectNameEXT
// call - still visible to a developer running with Debug: true, just not
// attached to the object in a capture tool.
func (d *GPUDevice) setDebugName(kind, name string) {
	if name == "" {
		return
	}
	log.Printf("gpuvk: %s named %q", kind, name)
}
