package value

import (
	"math"
	"strconv"

	"github.com/wippyai/ffivalue/errors"
)

// Value is a boundary scalar. The zero Value is Absent.
//
// Only the payload field selected by typ is meaningful: bits carries
// integer, float and boolean payloads; text carries the text payload.
type Value struct {
	text  *payload
	bits  uint64
	typ   Type
	owned bool
}

// Absent returns the value representing "no value".
func Absent() Value {
	return Value{}
}

// Int creates an integer value.
func Int(i int) Value {
	return Value{typ: TypeInteger, bits: uint64(int64(i))}
}

// Float creates a float value. The bit pattern of f, including NaN payloads
// and the sign of zero, is kept as is.
func Float(f float64) Value {
	return Value{typ: TypeFloat, bits: math.Float64bits(f)}
}

// Bool creates a boolean value.
func Bool(b bool) Value {
	v := Value{typ: TypeBoolean}
	if b {
		v.bits = 1
	}
	return v
}

// NewText creates an owned text value holding a copy of data on the Go heap.
func NewText(data []byte) (Value, error) {
	return NewTextWith(Heap, data)
}

// String creates an owned text value holding a copy of s.
func String(s string) (Value, error) {
	v, err := alloc(Heap, len(s))
	if err != nil {
		return Value{}, err
	}
	copy(v.text.data, s)
	return v, nil
}

// NewTextWith creates an owned text value holding a copy of data in storage
// obtained from a. Releasing the value returns the storage to a.
func NewTextWith(a Allocator, data []byte) (Value, error) {
	v, err := alloc(a, len(data))
	if err != nil {
		return Value{}, err
	}
	copy(v.text.data, data)
	return v, nil
}

func alloc(a Allocator, n int) (Value, error) {
	if a == nil {
		return Value{}, errors.NotInitialized(errors.PhaseConstruct, "allocator")
	}
	buf, err := a.Alloc(n)
	if err != nil {
		if isAllocation(err) {
			return Value{}, err
		}
		return Value{}, errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Value(n).
			Cause(err).
			Detail("allocate %d bytes of text", n).
			Build()
	}
	if len(buf) != n {
		return Value{}, errors.New(errors.PhaseConstruct, errors.KindAllocation).
			Value(n).
			Detail("allocator returned %d bytes, want %d", len(buf), n).
			Build()
	}
	return Adopt(buf, a.Free), nil
}

func isAllocation(err error) bool {
	e, ok := err.(*errors.Error)
	return ok && e.Kind == errors.KindAllocation
}

// TakeText creates an owned text value that takes data without copying.
// The caller gives up data: reading it is allowed only through the value,
// and writing to it afterwards is undefined. Use NewText when the slice may
// still be modified elsewhere.
func TakeText(data []byte) Value {
	return Adopt(data, nil)
}

// Adopt creates an owned text value over storage allocated elsewhere.
// free, if non-nil, is invoked exactly once with data when the value is
// released; it is how storage belonging to a foreign allocator is returned.
func Adopt(data []byte, free func([]byte)) Value {
	if data == nil {
		data = []byte{}
	}
	return Value{
		typ:   TypeText,
		text:  &payload{data: data, free: free},
		owned: true,
	}
}

// Type returns the discriminant. It always succeeds.
func (v Value) Type() Type {
	return v.typ
}

// IsAbsent reports whether v carries no value.
func (v Value) IsAbsent() bool {
	return v.typ == TypeAbsent
}

// AsInt returns the integer payload.
func (v Value) AsInt() (int, error) {
	if v.typ != TypeInteger {
		return 0, &TypeMismatch{Expected: TypeInteger, Actual: v.typ}
	}
	return int(int64(v.bits)), nil
}

// AsFloat returns the float payload.
func (v Value) AsFloat() (float64, error) {
	if v.typ != TypeFloat {
		return 0, &TypeMismatch{Expected: TypeFloat, Actual: v.typ}
	}
	return math.Float64frombits(v.bits), nil
}

// AsBool returns the boolean payload.
func (v Value) AsBool() (bool, error) {
	if v.typ != TypeBoolean {
		return false, &TypeMismatch{Expected: TypeBoolean, Actual: v.typ}
	}
	return v.bits != 0, nil
}

// AsText returns a borrowed view of the text payload. The view is valid
// until the owner releases the payload; use WithText to keep the payload
// pinned while the view is in use.
func (v Value) AsText() (TextView, error) {
	if v.typ != TypeText {
		return TextView{}, &TypeMismatch{Expected: TypeText, Actual: v.typ}
	}
	if v.text.isReleased() {
		return TextView{}, errors.UseAfterRelease(errors.PhaseAccess)
	}
	return TextView{p: v.text}, nil
}

// String returns a readable rendering for logs and diagnostics.
func (v Value) String() string {
	switch v.typ {
	case TypeAbsent:
		return "absent"
	case TypeText:
		if v.text.isReleased() {
			return "<released text>"
		}
		return strconv.Quote(string(v.text.data))
	case TypeInteger:
		return strconv.FormatInt(int64(v.bits), 10)
	case TypeFloat:
		return strconv.FormatFloat(math.Float64frombits(v.bits), 'g', -1, 64)
	case TypeBoolean:
		return strconv.FormatBool(v.bits != 0)
	default:
		return "<invalid>"
	}
}
