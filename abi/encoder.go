package abi

import (
	"bytes"
	"math"
	"strconv"

	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

// Encoder writes values into guest memory.
type Encoder struct {
	// Text selects who frees argument strings. Lent strings are recorded in
	// the AllocationList; transferred ones are not.
	Text Ownership
}

// NewEncoder creates an encoder with the default Lend convention.
func NewEncoder() *Encoder {
	return &Encoder{Text: Lend}
}

// Encode writes v as an FFIValue at addr. Text payloads are copied into a
// fresh guest allocation. Under Transfer the allocation is handed to the
// guest only once the value is fully written; on error it stays in list.
func (e *Encoder) Encode(v value.Value, addr uint32, mem Memory, alloc Allocator, list *AllocationList) error {
	ptr, err := e.encode(v, addr, mem, alloc, list, nil)
	if err != nil {
		return err
	}
	e.handOver(list, ptr)
	return nil
}

// EncodeArgs writes args as an argv array and returns its address. An empty
// argument list encodes as a NULL argv. Transferred strings are handed to
// the guest only when every argument has been written; if any argument fails
// they remain in list and are freed with the rest of the call's allocations.
func (e *Encoder) EncodeArgs(args []value.Value, mem Memory, alloc Allocator, list *AllocationList) (uint32, error) {
	if len(args) == 0 {
		return 0, nil
	}
	if alloc == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "allocator")
	}
	if list == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "allocation list")
	}

	size, ok := safeMulU32(uint32(len(args)), ValueSize)
	if !ok {
		return 0, errors.Overflow(errors.PhaseEncode, nil, len(args), "argv size")
	}
	argv, err := alloc.Alloc(size, ValueAlign)
	if err != nil {
		return 0, errors.Wrap(errors.PhaseEncode, errors.KindAllocation, err, "allocate argv")
	}
	list.Add(argv, size, ValueAlign)

	var texts []uint32
	for i, arg := range args {
		path := []string{"args[" + strconv.Itoa(i) + "]"}
		ptr, err := e.encode(arg, argv+uint32(i)*ValueSize, mem, alloc, list, path)
		if err != nil {
			return 0, err
		}
		if ptr != 0 {
			texts = append(texts, ptr)
		}
	}
	for _, ptr := range texts {
		e.handOver(list, ptr)
	}
	return argv, nil
}

// handOver drops a transferred string from list so the host never frees it.
func (e *Encoder) handOver(list *AllocationList, ptr uint32) {
	if e.Text == Transfer && ptr != 0 {
		list.Take(ptr)
	}
}

// encode writes one cell and returns the guest pointer of its text payload,
// or 0 for scalars.
func (e *Encoder) encode(v value.Value, addr uint32, mem Memory, alloc Allocator, list *AllocationList, path []string) (uint32, error) {
	var (
		payload uint64
		ptr     uint32
	)

	switch v.Type() {
	case value.TypeAbsent:
	case value.TypeInteger:
		i, _ := v.AsInt()
		if i < math.MinInt32 || i > math.MaxInt32 {
			return 0, errors.Overflow(errors.PhaseEncode, path, i, "int32")
		}
		payload = uint64(uint32(int32(i)))
	case value.TypeFloat:
		f, _ := v.AsFloat()
		payload = math.Float64bits(f)
	case value.TypeBoolean:
		if b, _ := v.AsBool(); b {
			payload = 1
		}
	case value.TypeText:
		p, err := e.encodeText(v, mem, alloc, list, path)
		if err != nil {
			return 0, err
		}
		ptr = p
		payload = uint64(p)
	default:
		return 0, errors.InvalidDiscriminant(errors.PhaseEncode, path, uint32(v.Type()), uint32(value.MaxType))
	}

	// tag word with its padding, then the payload word
	if err := mem.WriteU64(addr+TagOffset, uint64(v.Type())); err != nil {
		return 0, cellWriteError(path, addr, err)
	}
	if err := mem.WriteU64(addr+PayloadOffset, payload); err != nil {
		return 0, cellWriteError(path, addr, err)
	}
	return ptr, nil
}

func cellWriteError(path []string, addr uint32, err error) error {
	return errors.New(errors.PhaseEncode, errors.KindOutOfBounds).
		Path(path...).
		Cause(err).
		Detail("write FFIValue at 0x%x", addr).
		Build()
}

// encodeText copies v into a guest string. The allocation is always
// recorded in list; Transfer hands it over later through handOver.
func (e *Encoder) encodeText(v value.Value, mem Memory, alloc Allocator, list *AllocationList, path []string) (uint32, error) {
	if alloc == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "allocator")
	}
	if list == nil {
		return 0, errors.NotInitialized(errors.PhaseEncode, "allocation list")
	}

	if v.Released() {
		return 0, errors.New(errors.PhaseEncode, errors.KindUseAfterRelease).
			Path(path...).
			Detail("text argument released before the call").
			Build()
	}

	var ptr uint32
	err := v.WithText(func(view value.TextView) error {
		data := view.Bytes()
		if bytes.IndexByte(data, 0) >= 0 {
			return errors.InvalidData(errors.PhaseEncode, path, "text contains NUL byte")
		}
		if len(data) >= value.MaxTextSize {
			return errors.Overflow(errors.PhaseEncode, path, len(data), "text size")
		}

		size := uint32(len(data)) + 1
		p, err := alloc.Alloc(size, textAlign)
		if err != nil {
			return errors.New(errors.PhaseEncode, errors.KindAllocation).
				Path(path...).
				Cause(err).
				Detail("allocate %d bytes of text", size).
				Build()
		}
		list.Add(p, size, textAlign)

		buf := make([]byte, size)
		copy(buf, data)
		if err := mem.Write(p, buf); err != nil {
			return errors.New(errors.PhaseEncode, errors.KindOutOfBounds).
				Path(path...).
				Cause(err).
				Detail("write text at 0x%x", p).
				Build()
		}
		ptr = p
		return nil
	})
	if err != nil {
		return 0, err
	}
	return ptr, nil
}

func safeMulU32(a, b uint32) (uint32, bool) {
	r := uint64(a) * uint64(b)
	if r > math.MaxUint32 {
		return 0, false
	}
	return uint32(r), true
}
