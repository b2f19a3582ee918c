package memalloc

// markAllocationsForDefrag scans this suballocator's allocations and moves
// every allocation with >= 2 free regions onto allocationsToDefrag, hiding
// it from the free index by clearing Available. Caller must already hold
// sa.mu.
func (sa *SubAllocator) markAllocationsForDefrag() {
	var kept []*Allocation
	for _, a := range sa.allocations {
		if a.Available && a.FragmentCount() >= 2 {
			a.Available = false
			sa.allocationsToDefrag = append(sa.allocationsToDefrag, a)
		} else {
			kept = append(kept, a)
		}
	}
	_ = kept // allocations stay in sa.allocations regardless of Available
}

// PendingDefragCount reports how many allocations are currently queued for
// defragmentation in this suballocator.
func (sa *SubAllocator) PendingDefragCount() int {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return len(sa.allocationsToDefrag)
}

// PopPendingDefrag removes and returns the next allocation queued for
// defragmentation, or nil if none are pending. At most one allocation is
// defragged per submission (§4.8), so the defrag orchestrator (outside this
// package, since copying buffer/texture contents needs the resource
// factory and command-buffer engine) calls this once per submit.
func (sa *SubAllocator) PopPendingDefrag() *Allocation {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	if len(sa.allocationsToDefrag) == 0 {
		return nil
	}
	alloc := sa.allocationsToDefrag[0]
	sa.allocationsToDefrag = sa.allocationsToDefrag[1:]
	return alloc
}

// FinishDefrag is called once the defrag command buffer's fence has
// signaled and every used region in alloc has been repointed to a fresh
// allocation elsewhere. Since defrag drains the source allocation
// completely, it is simply destroyed; markedForDestroy sources are skipped
// by the caller before this is invoked (the destruction queue owns those).
func (sa *SubAllocator) FinishDefrag(alloc *Allocation) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.destroyAllocation(alloc)
}

// SetDefragInProgress records whether a defrag command buffer is currently
// in flight for this suballocator, gating whether Bind failures enqueue
// more defrag work.
func (sa *SubAllocator) SetDefragInProgress(v bool) {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	sa.defragInProgress = v
}

func (sa *SubAllocator) DefragInProgress() bool {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	return sa.defragInProgress
}

// Allocations exposes the live allocation set for defrag execution (copying
// used regions out of a source allocation requires walking Used directly).
func (sa *SubAllocator) Allocations() []*Allocation {
	sa.mu.Lock()
	defer sa.mu.Unlock()
	out := make([]*Allocation, len(sa.allocations))
	copy(out, sa.allocations)
	return out
}

// UsedRegions returns a snapshot of alloc's used regions for the defrag
// executor to copy out one by one.
func UsedRegions(alloc *Allocation) []*UsedRegion {
	out := make([]*UsedRegion, len(alloc.Used))
	copy(out, alloc.Used)
	return out
}
