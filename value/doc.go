// Package value provides the tagged scalar that crosses the host/guest boundary.
//
// A Value holds exactly one of five variants, identified by a Type whose
// ordinals are part of the boundary ABI:
//
//	Type         Ordinal  Payload
//	──────────────────────────────────────────────
//	TypeAbsent   0        none
//	TypeText     1        byte sequence with an explicit owner
//	TypeInteger  2        int (native width)
//	TypeFloat    3        float64, IEEE-754 bits preserved
//	TypeBoolean  4        bool
//
// Fields are unexported, so the only way to produce a Value is a constructor
// and the only way to read one is a type-checked accessor:
//
//	v := value.Int(5)
//	n, err := v.AsInt()      // 5, nil
//	_, err = v.AsText()      // *TypeMismatch{Expected: TypeText, Actual: TypeInteger}
//
// There is no coercion between variants.
//
// # Text Ownership
//
// A text payload has exactly one owner. Constructors return owned values;
// Borrow returns a non-owning view of the same payload:
//
//	owner, err := value.NewText([]byte("hello"))
//	if err != nil {
//	    return err
//	}
//	defer owner.Release()
//
//	view := owner.Borrow()   // cannot Release, fails once owner releases
//
// Release frees an owned payload exactly once. Releasing twice, releasing a
// borrowed value, or releasing while WithText holds the payload pinned are
// ownership violations and panic with a structured error. Accessing a
// released payload through AsText returns a use_after_release error.
//
// # Thread Safety
//
// Values are immutable after construction and may be shared between
// goroutines. TakeText and Adopt do not copy; their callers give up the
// slice and must not write to it afterwards. The ownership state of a text payload is updated atomically, so
// a release racing with a pinned borrow is detected rather than missed.
package value
