package value

import (
	"github.com/wippyai/ffivalue/errors"
)

// MaxTextSize bounds a single text payload (1 GB).
const MaxTextSize = 1 << 30

// Allocator provides backing storage for owned text payloads.
// Free receives exactly the slice returned by Alloc, once.
type Allocator interface {
	Alloc(n int) ([]byte, error)
	Free(buf []byte)
}

// Heap is the default allocator. Storage comes from the Go heap and Free
// leaves reclamation to the garbage collector.
var Heap Allocator = heapAllocator{}

type heapAllocator struct{}

func (heapAllocator) Alloc(n int) ([]byte, error) {
	if n < 0 || n > MaxTextSize {
		return nil, errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Value(n).
			Detail("text size %d exceeds limit %d", n, MaxTextSize).
			Build()
	}
	return make([]byte, n), nil
}

func (heapAllocator) Free([]byte) {}
