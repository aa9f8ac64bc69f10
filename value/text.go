package value

import (
	"sync/atomic"

	"github.com/wippyai/ffivalue/errors"
)

// released marks a payload whose storage has been returned.
// Non-negative states count active pins.
const released = -1

type payload struct {
	free  func([]byte)
	data  []byte
	state atomic.Int64
}

func (p *payload) isReleased() bool {
	return p.state.Load() == released
}

func (p *payload) pin() bool {
	for {
		s := p.state.Load()
		if s == released {
			return false
		}
		if p.state.CompareAndSwap(s, s+1) {
			return true
		}
	}
}

func (p *payload) unpin() {
	p.state.Add(-1)
}

func (p *payload) release() {
	for {
		s := p.state.Load()
		switch {
		case s == released:
			panic(errors.DoubleRelease(len(p.data)))
		case s > 0:
			panic(errors.ReleasedWhileBorrowed(s))
		}
		if p.state.CompareAndSwap(0, released) {
			break
		}
	}
	if p.free != nil {
		p.free(p.data)
	}
}

// Owned reports whether v is responsible for releasing its payload.
// Only text values obtained from a constructor are owned.
func (v Value) Owned() bool {
	return v.owned
}

// Released reports whether v's text payload has been released.
func (v Value) Released() bool {
	return v.typ == TypeText && v.text.isReleased()
}

// Borrow returns a non-owning value sharing v's payload. For variants other
// than text it returns v unchanged.
func (v Value) Borrow() Value {
	v.owned = false
	return v
}

// Release frees an owned text payload. It is a no-op for other variants.
//
// Release panics with a double_release error if the payload was already
// released, with borrowed_release if v does not own it, and with
// released_while_borrowed if WithText currently pins it.
func (v Value) Release() {
	if v.typ != TypeText {
		return
	}
	if !v.owned {
		panic(errors.BorrowedRelease())
	}
	v.text.release()
}

// WithText pins the text payload and calls fn with a view of it. The owner
// cannot release the payload until fn returns.
func (v Value) WithText(fn func(TextView) error) error {
	if v.typ != TypeText {
		return &TypeMismatch{Expected: TypeText, Actual: v.typ}
	}
	if !v.text.pin() {
		return errors.UseAfterRelease(errors.PhaseAccess)
	}
	defer v.text.unpin()
	return fn(TextView{p: v.text})
}

// TextView is a borrowed view of a text payload.
type TextView struct {
	p *payload
}

// Len returns the payload length in bytes.
func (t TextView) Len() int {
	return len(t.live())
}

// Bytes returns the payload. The slice aliases the owner's storage: it must
// not be modified or retained past the owner's release.
func (t TextView) Bytes() []byte {
	return t.live()
}

// String returns a copy of the payload.
func (t TextView) String() string {
	return string(t.live())
}

func (t TextView) live() []byte {
	if t.p == nil {
		return nil
	}
	if t.p.isReleased() {
		panic(errors.UseAfterRelease(errors.PhaseAccess))
	}
	return t.p.data
}
