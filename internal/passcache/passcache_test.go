package passcache

import (
	"sync"
	"testing"

	vk "github.com/vulkan-go/vulkan"
)

func TestPipelineCacheAcquireGraphicsDedupesConcurrentBuilds(t *testing.T) {
	c := &PipelineCache{
		graphics: make(map[GraphicsPipelineKey]vk.Pipeline),
		compute:  make(map[ComputePipelineKey]vk.Pipeline),
	}
	key := GraphicsPipelineKey{PrimitiveType: vk.PrimitiveTopologyTriangleList}

	var built uint64
	var mu sync.Mutex
	var wg sync.WaitGroup
	results := make([]vk.Pipeline, 8)
	for i := 0; i < 8; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			p, err := c.AcquireGraphics(key, func(vk.PipelineCache) (vk.Pipeline, error) {
				mu.Lock()
				built++
				h := built
				mu.Unlock()
				return vk.Pipeline(h), nil
			})
			if err != nil {
				t.Errorf("AcquireGraphics: %v", err)
			}
			results[i] = p
		}()
	}
	wg.Wait()

	first := results[0]
	for _, r := range results {
		if r != first {
			t.Fatalf("all concurrent acquires of the same key must converge on one pipeline handle")
		}
	}
}

func TestResourceLayoutKeyDistinguishesComputeAndGraphics(t *testing.T) {
	a := ResourceLayoutKey{Compute: false}
	b := ResourceLayoutKey{Compute: true}
	if a == b {
		t.Fatalf("compute and graphics layout keys with zero-value sets must still differ")
	}
}
