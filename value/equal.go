package value

import (
	"bytes"
	"math"
)

// Equal reports whether v and other have the same tag and equal payloads.
//
// Floats compare with IEEE-754 equality, so NaN is never equal to itself and
// +0 equals -0. Values of different tags are never equal. A released text
// payload is not equal to anything.
func (v Value) Equal(other Value) bool {
	if v.typ != other.typ {
		return false
	}
	switch v.typ {
	case TypeAbsent:
		return true
	case TypeText:
		if v.text.isReleased() || other.text.isReleased() {
			return false
		}
		return bytes.Equal(v.text.data, other.text.data)
	case TypeFloat:
		return math.Float64frombits(v.bits) == math.Float64frombits(other.bits)
	case TypeInteger, TypeBoolean:
		return v.bits == other.bits
	default:
		return false
	}
}
