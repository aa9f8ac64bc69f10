package abi

import (
	"bytes"
	"math"
	"strconv"

	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

// strlen scan granularity
const scanChunk = 256

// Decoder reads values out of guest memory.
type Decoder struct {
	// ZeroCopy makes owned text results alias guest memory instead of being
	// copied to the Go heap. Such values are only valid while the guest
	// instance is alive and its memory has not grown.
	ZeroCopy bool

	// Text allocates copied result text. Nil means value.Heap.
	Text value.Allocator
}

// NewDecoder creates a decoder in copy mode.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode reads the FFIValue at addr and takes ownership of a returned
// string: the guest allocation is freed through alloc either immediately
// (copy mode) or when the returned Value is released (zero-copy mode). If the
// string is one of the allocations recorded in list, it is taken out of list
// first so it is not freed twice.
func (d *Decoder) Decode(addr uint32, mem Memory, alloc Allocator, list *AllocationList) (value.Value, error) {
	tag, payload, err := readCell(addr, mem, nil)
	if err != nil {
		return value.Value{}, err
	}
	if tag != value.TypeText {
		return scalar(tag, payload, nil)
	}
	if alloc == nil {
		return value.Value{}, errors.NotInitialized(errors.PhaseDecode, "allocator")
	}

	ptr := uint32(payload)
	data, err := readCString(ptr, mem, nil)
	if err != nil {
		return value.Value{}, err
	}
	size := uint32(len(data)) + 1
	if list != nil {
		if a, ok := list.Take(ptr); ok {
			size = a.Size
		}
	}
	free := func([]byte) { alloc.Free(ptr, size, textAlign) }

	if d.ZeroCopy {
		return value.Adopt(data, free), nil
	}

	a := d.Text
	if a == nil {
		a = value.Heap
	}
	v, err := value.NewTextWith(a, data)
	free(nil)
	if err != nil {
		return value.Value{}, err
	}
	return v, nil
}

// DecodeBorrowed reads the FFIValue at addr without taking ownership. A text
// result is a borrowed view of guest memory; whoever allocated the string
// remains responsible for freeing it.
func (d *Decoder) DecodeBorrowed(addr uint32, mem Memory) (value.Value, error) {
	return decodeBorrowed(addr, mem, nil)
}

// DecodeArgs reads an argv array of argc values as borrowed values. Text
// arguments stay valid while their owner keeps the allocations alive,
// normally for the duration of the call.
func (d *Decoder) DecodeArgs(argc, argv uint32, mem Memory) ([]value.Value, error) {
	if argc == 0 {
		return nil, nil
	}
	if argv == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, nil, "NULL argv with non-zero argc")
	}
	if _, ok := safeMulU32(argc, ValueSize); !ok {
		return nil, errors.Overflow(errors.PhaseDecode, nil, argc, "argv size")
	}

	args := make([]value.Value, argc)
	for i := uint32(0); i < argc; i++ {
		path := []string{"args[" + strconv.FormatUint(uint64(i), 10) + "]"}
		v, err := decodeBorrowed(argv+i*ValueSize, mem, path)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}
	return args, nil
}

func decodeBorrowed(addr uint32, mem Memory, path []string) (value.Value, error) {
	tag, payload, err := readCell(addr, mem, path)
	if err != nil {
		return value.Value{}, err
	}
	if tag != value.TypeText {
		return scalar(tag, payload, path)
	}
	data, err := readCString(uint32(payload), mem, path)
	if err != nil {
		return value.Value{}, err
	}
	return value.Adopt(data, nil).Borrow(), nil
}

func readCell(addr uint32, mem Memory, path []string) (value.Type, uint64, error) {
	tag, err := mem.ReadU32(addr + TagOffset)
	if err != nil {
		return 0, 0, cellReadError(path, addr, err)
	}
	if tag > uint32(value.MaxType) {
		return 0, 0, errors.InvalidDiscriminant(errors.PhaseDecode, path, tag, uint32(value.MaxType))
	}
	payload, err := mem.ReadU64(addr + PayloadOffset)
	if err != nil {
		return 0, 0, cellReadError(path, addr, err)
	}
	return value.Type(tag), payload, nil
}

func cellReadError(path []string, addr uint32, err error) error {
	return errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
		Path(path...).
		Cause(err).
		Detail("read FFIValue at 0x%x", addr).
		Build()
}

// scalar interprets the payload word of a non-text cell. Only the bytes
// the C union member occupies are significant.
func scalar(tag value.Type, payload uint64, path []string) (value.Value, error) {
	switch tag {
	case value.TypeAbsent:
		return value.Absent(), nil
	case value.TypeInteger:
		return value.Int(int(int32(uint32(payload)))), nil
	case value.TypeFloat:
		return value.Float(math.Float64frombits(payload)), nil
	case value.TypeBoolean:
		switch b := uint8(payload); b {
		case 0:
			return value.Bool(false), nil
		case 1:
			return value.Bool(true), nil
		default:
			return value.Value{}, errors.New(errors.PhaseDecode, errors.KindInvalidData).
				Path(path...).
				Value(b).
				Detail("bool byte %d is neither 0 nor 1", b).
				Build()
		}
	default:
		return value.Value{}, errors.InvalidDiscriminant(errors.PhaseDecode, path, uint32(tag), uint32(value.MaxType))
	}
}

// readCString returns the bytes at ptr up to, not including, the first NUL.
// The slice aliases mem when the Memory implementation does.
func readCString(ptr uint32, mem Memory, path []string) ([]byte, error) {
	if ptr == 0 {
		return nil, errors.InvalidData(errors.PhaseDecode, path, "NULL text pointer")
	}
	size := mem.Size()
	if ptr >= size {
		return nil, errors.OutOfBounds(errors.PhaseDecode, path, int(ptr), int(size))
	}

	avail := size - ptr
	var n uint32
	for n < avail {
		chunk := min(uint32(scanChunk), avail-n)
		data, err := mem.Read(ptr+n, chunk)
		if err != nil {
			return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
				Path(path...).
				Cause(err).
				Detail("read text at 0x%x", ptr+n).
				Build()
		}
		if i := bytes.IndexByte(data, 0); i >= 0 {
			n += uint32(i)
			break
		}
		n += chunk
		if n > value.MaxTextSize {
			return nil, errors.Overflow(errors.PhaseDecode, path, n, "text size")
		}
		if n == avail {
			return nil, errors.InvalidData(errors.PhaseDecode, path, "unterminated text")
		}
	}

	data, err := mem.Read(ptr, n)
	if err != nil {
		return nil, errors.New(errors.PhaseDecode, errors.KindOutOfBounds).
			Path(path...).
			Cause(err).
			Detail("read text at 0x%x", ptr).
			Build()
	}
	return data, nil
}
