package restrack

import "testing"

func TestDefaultBufferModePriority(t *testing.T) {
	mode, err := DefaultBufferMode(BufferUsageVertex | BufferUsageComputeStorageRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeVertexRead {
		t.Fatalf("Vertex must win over ComputeStorageRead, got %v", mode)
	}
}

func TestDefaultBufferModeUnknownIsAmbiguous(t *testing.T) {
	if _, err := DefaultBufferMode(0); err == nil {
		t.Fatalf("expected an ambiguous-usage error for an empty usage mask")
	}
}

func TestDefaultTextureModeForbidsSamplerWithGraphicsStorage(t *testing.T) {
	_, err := DefaultTextureMode(TextureUsageSampler | TextureUsageGraphicsStorageRead)
	if err == nil {
		t.Fatalf("expected SAMPLER + GraphicsStorageRead to be rejected as ambiguous")
	}
	var ambiguous *ErrAmbiguousUsage
	if !asAmbiguous(err, &ambiguous) {
		t.Fatalf("expected *ErrAmbiguousUsage, got %T", err)
	}
}

func asAmbiguous(err error, target **ErrAmbiguousUsage) bool {
	if e, ok := err.(*ErrAmbiguousUsage); ok {
		*target = e
		return true
	}
	return false
}

func TestDefaultTextureModePriority(t *testing.T) {
	mode, err := DefaultTextureMode(TextureUsageColorTarget | TextureUsageComputeStorageRead)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mode != ModeColorAttachment {
		t.Fatalf("ColorAttachment must win over ComputeStorageRead, got %v", mode)
	}
}
