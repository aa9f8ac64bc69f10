// Package arena provides a batch allocator for text payloads.
//
// An Arena hands out text storage by bumping through pooled slabs. Releasing a
// value allocated from the arena only updates bookkeeping; the storage is
// reclaimed all at once by Reset, typically after every value produced for a
// call batch has been consumed:
//
//	a := arena.New()
//	args := make([]value.Value, 0, len(strs))
//	for _, s := range strs {
//	    v, err := value.NewTextWith(a, []byte(s))
//	    if err != nil {
//	        return err
//	    }
//	    args = append(args, v)
//	}
//	// ... use args ...
//	for _, v := range args {
//	    v.Release()
//	}
//	if err := a.Reset(); err != nil {
//	    return err
//	}
//
// Reset refuses to recycle slabs while any value is still live, so storage is
// never reused underneath an unreleased payload. An Arena is not safe for
// concurrent allocation.
package arena

import (
	"sync"

	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

const (
	// SlabSize is the capacity of a pooled slab.
	SlabSize = 4096

	// Payloads larger than this get a dedicated buffer instead of slab space.
	maxSlabAlloc = SlabSize / 4
)

var slabPool = sync.Pool{
	New: func() any {
		buf := make([]byte, SlabSize)
		return &buf
	},
}

func getSlab() *[]byte {
	return slabPool.Get().(*[]byte)
}

func putSlab(buf *[]byte) {
	if buf == nil || cap(*buf) != SlabSize {
		return // reject foreign sizes
	}
	*buf = (*buf)[:SlabSize]
	slabPool.Put(buf)
}

// Arena is a value.Allocator that amortizes text allocation over a batch.
type Arena struct {
	slabs     []*[]byte
	off       int
	live      int
	allocated int
	limit     int
}

// New creates an empty arena. Slabs are taken from a shared pool on demand.
func New() *Arena {
	return &Arena{limit: value.MaxTextSize}
}

// NewWithLimit creates an arena that refuses to hold more than limit bytes
// between resets.
func NewWithLimit(limit int) *Arena {
	return &Arena{limit: limit}
}

// Alloc implements value.Allocator.
func (a *Arena) Alloc(n int) ([]byte, error) {
	if n < 0 || a.allocated+n > a.limit {
		return nil, errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Value(n).
			Detail("arena limit %d exceeded (%d in use)", a.limit, a.allocated).
			Build()
	}

	var buf []byte
	switch {
	case n > maxSlabAlloc:
		buf = make([]byte, n)
	default:
		if len(a.slabs) == 0 || a.off+n > SlabSize {
			a.slabs = append(a.slabs, getSlab())
			a.off = 0
		}
		slab := *a.slabs[len(a.slabs)-1]
		buf = slab[a.off : a.off+n : a.off+n]
		clear(buf)
		a.off += n
	}

	a.live++
	a.allocated += n
	return buf, nil
}

// Free implements value.Allocator. The storage stays reserved until Reset.
// Freeing more payloads than were allocated panics with a double_release
// error.
func (a *Arena) Free([]byte) {
	if a.live == 0 {
		panic(errors.New(errors.PhaseRelease, errors.KindDoubleRelease).
			Detail("arena free with no live payload").
			Build())
	}
	a.live--
}

// Live returns the number of allocated payloads not yet released.
func (a *Arena) Live() int {
	return a.live
}

// Allocated returns the number of bytes handed out since the last Reset.
func (a *Arena) Allocated() int {
	return a.allocated
}

// Slabs returns the number of pooled slabs currently held.
func (a *Arena) Slabs() int {
	return len(a.slabs)
}

// Reset returns every slab to the pool. It fails while payloads allocated
// from the arena are still live.
func (a *Arena) Reset() error {
	if a.live != 0 {
		return errors.New(errors.PhaseRelease, errors.KindReleasedWhileBorrowed).
			Value(a.live).
			Detail("arena reset with %d live payload(s)", a.live).
			Build()
	}
	for i, s := range a.slabs {
		putSlab(s)
		a.slabs[i] = nil
	}
	a.slabs = a.slabs[:0]
	a.off = 0
	a.allocated = 0
	return nil
}

var _ value.Allocator = (*Arena)(nil)
