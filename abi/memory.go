package abi

import (
	"sync"
)

// Allocation is one guest allocation made on behalf of a call.
type Allocation struct {
	Ptr   uint32
	Size  uint32
	Align uint32
}

// AllocationList records the guest allocations the host owns for one call.
type AllocationList struct {
	allocations []Allocation
}

var allocationListPool = sync.Pool{
	New: func() any {
		return &AllocationList{allocations: make([]Allocation, 0, 8)}
	},
}

func NewAllocationList() *AllocationList {
	return allocationListPool.Get().(*AllocationList)
}

const maxPooledAllocationCapacity = 128

// Release returns to pool. Must call after Free(); list invalid after Release.
func (al *AllocationList) Release() {
	// Only pool small lists to prevent memory bloat
	if cap(al.allocations) > maxPooledAllocationCapacity {
		return
	}
	al.Reset()
	allocationListPool.Put(al)
}

func (al *AllocationList) FreeAndRelease(allocator Allocator) {
	al.Free(allocator)
	al.Release()
}

func (al *AllocationList) Add(ptr, size, align uint32) {
	al.allocations = append(al.allocations, Allocation{
		Ptr:   ptr,
		Size:  size,
		Align: align,
	})
}

// Take removes the allocation at ptr from the list and reports whether it
// was present. Ownership of a taken allocation passes to the caller.
func (al *AllocationList) Take(ptr uint32) (Allocation, bool) {
	for i, a := range al.allocations {
		if a.Ptr == ptr {
			al.allocations = append(al.allocations[:i], al.allocations[i+1:]...)
			return a, true
		}
	}
	return Allocation{}, false
}

// Free returns every recorded allocation to the guest, each pointer once,
// and empties the list.
func (al *AllocationList) Free(allocator Allocator) {
	if allocator == nil {
		return
	}
	for i, a := range al.allocations {
		if a.Ptr == 0 || freedEarlier(al.allocations[:i], a.Ptr) {
			continue
		}
		allocator.Free(a.Ptr, a.Size, a.Align)
	}
	al.Reset()
}

func freedEarlier(prev []Allocation, ptr uint32) bool {
	for _, p := range prev {
		if p.Ptr == ptr {
			return true
		}
	}
	return false
}

func (al *AllocationList) Reset() {
	al.allocations = al.allocations[:0]
}

func (al *AllocationList) Count() int {
	return len(al.allocations)
}

// Bytes returns the total size of the recorded allocations.
func (al *AllocationList) Bytes() uint64 {
	var n uint64
	for _, a := range al.allocations {
		n += uint64(a.Size)
	}
	return n
}
