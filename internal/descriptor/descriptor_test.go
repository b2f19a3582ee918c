package descriptor

import "testing"

func TestPoolSizesForScalesWithBatchSize(t *testing.T) {
	sizes := poolSizesFor(LayoutKey{Samplers: 2, UniformBuffers: 1})
	if len(sizes) != 2 {
		t.Fatalf("expected two distinct pool-size entries, got %d", len(sizes))
	}
	for _, s := range sizes {
		if s.DescriptorCount == 0 || s.DescriptorCount%poolBatchSize != 0 {
			t.Fatalf("descriptor count must scale with poolBatchSize, got %d", s.DescriptorCount)
		}
	}
}

func TestPoolSizesForOmitsUnusedCategories(t *testing.T) {
	sizes := poolSizesFor(LayoutKey{StorageBuffers: 1})
	if len(sizes) != 1 {
		t.Fatalf("expected only the storage-buffer category, got %d entries", len(sizes))
	}
}
