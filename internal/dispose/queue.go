// Package dispose implements deferred destruction (component C7): resources
// released by the frontend are not destroyed immediately, since a prior
// command buffer referencing them may still be in flight. Each resource
// kind gets its own typed list; Drain sweeps every list once the command
// buffer that last touched a given fence generation has signaled.
package dispose

import "sync"

// Destroyer destroys the underlying Vulkan object(s) for one queued entry.
// Implementations close over whatever device/allocator handle they need.
type Destroyer interface {
	Destroy()
}

type entry struct {
	fenceGen uint64
	obj      Destroyer
}

// Queue holds the seven typed deferred-destroy lists named in §4.7:
// framebuffers, samplers, shaders, pipelines, buffers, textures, and
// descriptor-set layouts. Every entry in every list is ref-gated: Destroy is
// only invoked once the fence generation it was queued under has retired.
type Queue struct {
	// disposeLock guards every list below. Lock order: acquire -> allocator
	// -> memory -> dispose, so dispose never blocks waiting on a lock
	// acquired after it.
	mu sync.Mutex

	framebuffers []entry
	samplers     []entry
	shaders      []entry
	pipelines    []entry
	buffers      []entry
	textures     []entry
	setLayouts   []entry
}

func New() *Queue { return &Queue{} }

func (q *Queue) enqueue(list *[]entry, gen uint64, obj Destroyer) {
	q.mu.Lock()
	*list = append(*list, entry{fenceGen: gen, obj: obj})
	q.mu.Unlock()
}

func (q *Queue) DeferFramebuffer(gen uint64, obj Destroyer) { q.enqueue(&q.framebuffers, gen, obj) }
func (q *Queue) DeferSampler(gen uint64, obj Destroyer)     { q.enqueue(&q.samplers, gen, obj) }
func (q *Queue) DeferShader(gen uint64, obj Destroyer)      { q.enqueue(&q.shaders, gen, obj) }
func (q *Queue) DeferPipeline(gen uint64, obj Destroyer)    { q.enqueue(&q.pipelines, gen, obj) }
func (q *Queue) DeferBuffer(gen uint64, obj Destroyer)      { q.enqueue(&q.buffers, gen, obj) }
func (q *Queue) DeferTexture(gen uint64, obj Destroyer)     { q.enqueue(&q.textures, gen, obj) }
func (q *Queue) DeferSetLayout(gen uint64, obj Destroyer)   { q.enqueue(&q.setLayouts, gen, obj) }

// Drain destroys every queued entry whose fence generation is <= retired,
// in the fixed order framebuffers, pipelines, set layouts, samplers,
// shaders, textures, buffers — framebuffers and pipelines first since they
// are the objects most likely to still reference the rest.
func (q *Queue) Drain(retired uint64) {
	q.mu.Lock()
	lists := []*[]entry{
		&q.framebuffers, &q.pipelines, &q.setLayouts,
		&q.samplers, &q.shaders, &q.textures, &q.buffers,
	}
	var toDestroy []Destroyer
	for _, list := range lists {
		kept := (*list)[:0]
		for _, e := range *list {
			if e.fenceGen <= retired {
				toDestroy = append(toDestroy, e.obj)
			} else {
				kept = append(kept, e)
			}
		}
		*list = kept
	}
	q.mu.Unlock()

	for _, obj := range toDestroy {
		obj.Destroy()
	}
}

// Pending reports the total number of entries still awaiting their fence
// generation, for diagnostics and tests.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.framebuffers) + len(q.samplers) + len(q.shaders) +
		len(q.pipelines) + len(q.buffers) + len(q.textures) + len(q.setLayouts)
}

