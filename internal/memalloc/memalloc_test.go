package memalloc

import "testing"

// fakeAllocation builds an Allocation in isolation from Vulkan, for testing
// region math without a device.
func fakeAllocation(size uint64) *Allocation {
	return &Allocation{
		Size:      size,
		Available: true,
		Free:      []FreeRegion{{Offset: 0, Size: size}},
	}
}

func partitionSize(a *Allocation) uint64 {
	var total uint64
	for _, r := range a.Free {
		total += r.Size
	}
	for _, u := range a.Used {
		total += u.Size
	}
	return total
}

func TestInsertFreeCoalescesAdjacentRegions(t *testing.T) {
	a := fakeAllocation(100)
	a.Free = nil
	a.insertFree(FreeRegion{Offset: 0, Size: 10})
	a.insertFree(FreeRegion{Offset: 20, Size: 10})
	a.insertFree(FreeRegion{Offset: 10, Size: 10})

	if len(a.Free) != 1 {
		t.Fatalf("expected regions to coalesce into one, got %d: %+v", len(a.Free), a.Free)
	}
	if a.Free[0].Offset != 0 || a.Free[0].Size != 30 {
		t.Fatalf("unexpected merged region: %+v", a.Free[0])
	}
}

func TestInsertFreeNoAdjacencyAtRest(t *testing.T) {
	a := fakeAllocation(100)
	a.Free = nil
	a.insertFree(FreeRegion{Offset: 0, Size: 10})
	a.insertFree(FreeRegion{Offset: 50, Size: 10})
	a.insertFree(FreeRegion{Offset: 10, Size: 5})

	for i := range a.Free {
		for j := range a.Free {
			if i == j {
				continue
			}
			ri, rj := a.Free[i], a.Free[j]
			if ri.Offset+ri.Size == rj.Offset {
				t.Fatalf("adjacent free regions survived merge: %+v %+v", ri, rj)
			}
		}
	}
}

func TestCarveFromAccountsLeadingAlignment(t *testing.T) {
	sa := &SubAllocator{hostVisible: false}
	alloc := fakeAllocation(1024)
	sa.allocations = []*Allocation{alloc}

	region, err := sa.carveFrom(alloc, 0, MemoryRequirements{Size: 100, Alignment: 64}, ResourceKindBuffer, nil)
	if err != nil {
		t.Fatalf("carveFrom: %v", err)
	}
	if region.Offset != 0 {
		t.Fatalf("expected used region to start at 0 (padding charged to used region), got %d", region.Offset)
	}
	if region.Size != 100 {
		t.Fatalf("expected used region size 100 since offset already aligned, got %d", region.Size)
	}
	if partitionSize(alloc) != alloc.Size {
		t.Fatalf("free+used must partition the whole allocation: got %d want %d", partitionSize(alloc), alloc.Size)
	}
}

func TestCarveFromWithPaddingChargesUsedRegion(t *testing.T) {
	sa := &SubAllocator{}
	alloc := fakeAllocation(1024)
	alloc.Free = []FreeRegion{{Offset: 10, Size: 1000}}
	sa.allocations = []*Allocation{alloc}

	region, err := sa.carveFrom(alloc, 0, MemoryRequirements{Size: 100, Alignment: 64}, ResourceKindBuffer, nil)
	if err != nil {
		t.Fatalf("carveFrom: %v", err)
	}
	// alignedOffset = ceil(10, 64) = 64; used region covers [10, 164)
	if region.Offset != 10 {
		t.Fatalf("used region must start at the original region offset, got %d", region.Offset)
	}
	if region.Size != 164-10 {
		t.Fatalf("used region must include leading alignment padding, got size %d", region.Size)
	}
}

func TestReleaseReclaimsEmptyAllocation(t *testing.T) {
	sa := &SubAllocator{}
	alloc := fakeAllocation(256)
	sa.allocations = []*Allocation{alloc}

	region, err := sa.carveFrom(alloc, 0, MemoryRequirements{Size: 256, Alignment: 1}, ResourceKindBuffer, nil)
	if err != nil {
		t.Fatalf("carveFrom: %v", err)
	}

	sa.Release(region)
	if sa.AllocationCount() != 0 {
		t.Fatalf("expected allocation to be reclaimed once its last used region is released, got %d allocations", len(sa.allocations))
	}
}

func TestMarkAllocationsForDefragHidesFragmentedAllocations(t *testing.T) {
	sa := &SubAllocator{}
	fragmented := fakeAllocation(1024)
	fragmented.Free = []FreeRegion{{Offset: 0, Size: 100}, {Offset: 500, Size: 100}}
	clean := fakeAllocation(1024)
	sa.allocations = []*Allocation{fragmented, clean}

	sa.markAllocationsForDefrag()

	if fragmented.Available {
		t.Fatalf("fragmented allocation should be hidden from the free index")
	}
	if !clean.Available {
		t.Fatalf("allocation with < 2 free regions must stay available")
	}
	if sa.PendingDefragCount() != 1 {
		t.Fatalf("expected exactly one allocation queued for defrag, got %d", sa.PendingDefragCount())
	}
}

func TestPageSizeFor(t *testing.T) {
	if pageSizeFor(1024) != smallPageSize {
		t.Fatalf("small request must round to the 16 MiB page size")
	}
	if got := pageSizeFor(65 * 1024 * 1024); got != 128*1024*1024 {
		t.Fatalf("large request must round up to a 64 MiB multiple, got %d", got)
	}
}
