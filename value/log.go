package value

import (
	"math"

	"go.uber.org/zap/zapcore"
)

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (v Value) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", v.typ.String())
	switch v.typ {
	case TypeText:
		if v.text.isReleased() {
			enc.AddBool("released", true)
			return nil
		}
		enc.AddInt("len", len(v.text.data))
		enc.AddBool("owned", v.owned)
	case TypeInteger:
		enc.AddInt64("value", int64(v.bits))
	case TypeFloat:
		enc.AddFloat64("value", math.Float64frombits(v.bits))
	case TypeBoolean:
		enc.AddBool("value", v.bits != 0)
	}
	return nil
}

// Values adapts a slice of values for zap.Array.
type Values []Value

// MarshalLogArray implements zapcore.ArrayMarshaler.
func (vs Values) MarshalLogArray(enc zapcore.ArrayEncoder) error {
	for _, v := range vs {
		if err := enc.AppendObject(v); err != nil {
			return err
		}
	}
	return nil
}
