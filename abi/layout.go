package abi

import (
	"go.bytecodealliance.org/wit"

	ffivalue "github.com/wippyai/ffivalue"
	"github.com/wippyai/ffivalue/value"
)

type Memory = ffivalue.Memory
type Allocator = ffivalue.Allocator

const (
	ValueSize     = 16 // sizeof(FFIValue)
	ValueAlign    = 8  // alignof(FFIValue)
	TagOffset     = 0
	PayloadOffset = 8

	textAlign = 1
)

// Ownership declares who releases text arguments after a call.
type Ownership int

const (
	// Lend keeps argument strings host-owned for the duration of the call.
	Lend Ownership = iota
	// Transfer hands argument strings to the guest, which must free them.
	Transfer
)

func (o Ownership) String() string {
	switch o {
	case Lend:
		return "lend"
	case Transfer:
		return "transfer"
	default:
		return "unknown"
	}
}

// WITType returns the WIT primitive carrying the payload of t on the guest.
// Absent has no payload and maps to nil.
func WITType(t value.Type) wit.Type {
	switch t {
	case value.TypeText:
		return wit.String{}
	case value.TypeInteger:
		return wit.S32{}
	case value.TypeFloat:
		return wit.F64{}
	case value.TypeBoolean:
		return wit.Bool{}
	default:
		return nil
	}
}

// TypeOfWIT is the inverse of WITType. Integer WIT types of any width map
// to TypeInteger.
func TypeOfWIT(t wit.Type) (value.Type, bool) {
	switch t.(type) {
	case nil:
		return value.TypeAbsent, true
	case wit.String:
		return value.TypeText, true
	case wit.S8, wit.S16, wit.S32, wit.S64, wit.U8, wit.U16, wit.U32, wit.U64:
		return value.TypeInteger, true
	case wit.F32, wit.F64:
		return value.TypeFloat, true
	case wit.Bool:
		return value.TypeBoolean, true
	default:
		return value.TypeAbsent, false
	}
}

// WITName returns the WIT spelling of a primitive, or "_" for nil.
func WITName(t wit.Type) string {
	switch t.(type) {
	case nil:
		return "_"
	case wit.Bool:
		return "bool"
	case wit.U8:
		return "u8"
	case wit.S8:
		return "s8"
	case wit.U16:
		return "u16"
	case wit.S16:
		return "s16"
	case wit.U32:
		return "u32"
	case wit.S32:
		return "s32"
	case wit.U64:
		return "u64"
	case wit.S64:
		return "s64"
	case wit.F32:
		return "f32"
	case wit.F64:
		return "f64"
	case wit.String:
		return "string"
	default:
		return "unknown"
	}
}

// ParseWIT resolves a primitive WIT type name as printed by WITName.
func ParseWIT(name string) (wit.Type, bool) {
	switch name {
	case "_":
		return nil, true
	case "bool":
		return wit.Bool{}, true
	case "u8":
		return wit.U8{}, true
	case "s8":
		return wit.S8{}, true
	case "u16":
		return wit.U16{}, true
	case "s16":
		return wit.S16{}, true
	case "u32":
		return wit.U32{}, true
	case "s32":
		return wit.S32{}, true
	case "u64":
		return wit.U64{}, true
	case "s64":
		return wit.S64{}, true
	case "f32":
		return wit.F32{}, true
	case "f64":
		return wit.F64{}, true
	case "string":
		return wit.String{}, true
	default:
		return nil, false
	}
}
