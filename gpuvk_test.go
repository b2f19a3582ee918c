package gpuvk

import (
	"errors"
	"testing"

	vk "github.com/vulkan-go/vulkan"

	"github.com/kestrelgpu/gpuvk/internal/cmdengine"
)

func TestMipExtentHalvesDownToOne(t *testing.T) {
	cases := []struct {
		w, h, d, level uint32
		wantW, wantH, wantD uint32
	}{
		{256, 256, 1, 0, 256, 256, 1},
		{256, 256, 1, 1, 128, 128, 1},
		{256, 256, 1, 8, 1, 1, 1},
		{3, 5, 2, 1, 1, 2, 1},
	}
	for _, c := range cases {
		got := mipExtent(c.w, c.h, c.d, c.level)
		if got.Width != c.wantW || got.Height != c.wantH || got.Depth != c.wantD {
			t.Fatalf("mipExtent(%d,%d,%d,%d) = %+v, want {%d %d %d}", c.w, c.h, c.d, c.level, got, c.wantW, c.wantH, c.wantD)
		}
	}
}

func TestResourceFormatTableOnlyMapsFormatsWithVkFormat(t *testing.T) {
	for pub, internal := range resourceFormatTable {
		if _, ok := ToVkTextureFormat(pub); !ok {
			t.Fatalf("resourceFormatTable maps %v to %v but ToVkTextureFormat has no VkFormat for it", pub, internal)
		}
	}
}

func TestToVkTextureFormatRejectsUnmappedASTC(t *testing.T) {
	if _, ok := ToVkTextureFormat(TextureFormatASTC4x4Unorm); ok {
		t.Fatalf("ASTC formats are not yet mapped to a VkFormat; ok must be false")
	}
}

func TestToVkTextureFormatRejectsInvalid(t *testing.T) {
	if _, ok := ToVkTextureFormat(TextureFormatInvalid); ok {
		t.Fatalf("TextureFormatInvalid must never resolve to a VkFormat")
	}
}

func TestVkErrorClassifiesOutOfDeviceMemory(t *testing.T) {
	err := vkError("CreateBuffer", vk.ErrorOutOfDeviceMemory, false)
	if !errors.Is(err, ErrOutOfDeviceMemory) {
		t.Fatalf("out-of-device-memory results must wrap ErrOutOfDeviceMemory, got %v", err)
	}
	var gerr *GPUError
	if !errors.As(err, &gerr) {
		t.Fatalf("wrapped error must still unwrap to a *GPUError, got %v", err)
	}
	if gerr.Kind != KindOutOfDeviceMemory {
		t.Fatalf("expected KindOutOfDeviceMemory, got %v", gerr.Kind)
	}
}

func TestVkErrorOmitsUnderlyingDetailWithoutDebug(t *testing.T) {
	err := vkError("CreateBuffer", vk.ErrorDeviceLost, false)
	var gerr *GPUError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected a *GPUError, got %v", err)
	}
	if gerr.Err != nil {
		t.Fatalf("debug=false must not attach the raw vk.Result detail, got %v", gerr.Err)
	}
	if gerr.Kind != KindDeviceLost {
		t.Fatalf("ErrorDeviceLost and ErrorSurfaceLost must both classify as KindDeviceLost, got %v", gerr.Kind)
	}
}

func TestVkErrorSuccessIsNil(t *testing.T) {
	if err := vkError("Anything", vk.Success, true); err != nil {
		t.Fatalf("vk.Success must decode to a nil error, got %v", err)
	}
}

func TestGPUErrorStringIncludesOpAndKind(t *testing.T) {
	err := newGPUError(KindValidation, "CreateTexture", nil)
	want := "gpuvk: CreateTexture: validation"
	if err.Error() != want {
		t.Fatalf("GPUError.Error() = %q, want %q", err.Error(), want)
	}
}

func TestValidateBufferCreateRejectsZeroSize(t *testing.T) {
	if err := validateBufferCreate(0); err == nil {
		t.Fatalf("CreateBuffer must reject a zero size")
	}
	if err := validateBufferCreate(1); err != nil {
		t.Fatalf("CreateBuffer must accept a non-zero size, got %v", err)
	}
}

func TestValidateTextureCreateRejectsZeroExtentAndInvalidFormat(t *testing.T) {
	if err := validateTextureCreate(TextureCreateInfo{Width: 0, Height: 4, Format: TextureFormatR8Unorm}); err == nil {
		t.Fatalf("CreateTexture must reject a zero width")
	}
	if err := validateTextureCreate(TextureCreateInfo{Width: 4, Height: 4, Format: TextureFormatInvalid}); err == nil {
		t.Fatalf("CreateTexture must reject TextureFormatInvalid")
	}
	if err := validateTextureCreate(TextureCreateInfo{Width: 4, Height: 4, Format: TextureFormatR8Unorm}); err != nil {
		t.Fatalf("CreateTexture must accept a well-formed info, got %v", err)
	}
}

func TestQueryFenceReportsRetiredGeneration(t *testing.T) {
	d := &GPUDevice{Engine: &cmdengine.Engine{Submitter: cmdengine.NewSubmitter(nil)}}
	if d.QueryFence(1) {
		t.Fatalf("generation 1 must not be retired before MarkRetired is called")
	}
	d.Engine.Submitter.MarkRetired(1)
	if !d.QueryFence(1) {
		t.Fatalf("generation 1 must report retired once MarkRetired(1) has run")
	}
	if d.QueryFence(2) {
		t.Fatalf("generation 2 must not be retired when only generation 1 has")
	}
}

func TestWaitForFencesNoGensIsNoop(t *testing.T) {
	d := &GPUDevice{Engine: &cmdengine.Engine{Submitter: cmdengine.NewSubmitter(nil)}}
	if err := d.WaitForFences(true, nil); err != nil {
		t.Fatalf("WaitForFences with no generations must be a no-op, got %v", err)
	}
}

func TestWaitForFencesSkipsWaitWhenAlreadyRetired(t *testing.T) {
	d := &GPUDevice{Engine: &cmdengine.Engine{Submitter: cmdengine.NewSubmitter(nil)}}
	d.Engine.Submitter.MarkRetired(5)
	// Generation 3 already retired: WaitForFences must return before ever
	// touching vkDeviceWaitIdle, so this is safe to call without a real device.
	if err := d.WaitForFences(false, []uint64{3}); err != nil {
		t.Fatalf("WaitForFences must short-circuit on an already-retired generation, got %v", err)
	}
}
