package value

import (
	"github.com/wippyai/ffivalue/errors"
)

var (
	// ErrTypeMismatch matches every *TypeMismatch via errors.Is.
	ErrTypeMismatch = &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindTypeMismatch}

	// ErrUseAfterRelease matches access to a released text payload.
	ErrUseAfterRelease = &errors.Error{Phase: errors.PhaseAccess, Kind: errors.KindUseAfterRelease}

	// ErrAllocation matches text construction failures.
	ErrAllocation = &errors.Error{Phase: errors.PhaseConstruct, Kind: errors.KindAllocation}
)

// TypeMismatch is returned by an accessor whose variant does not match the
// Value's tag.
type TypeMismatch struct {
	Expected Type
	Actual   Type
}

func (e *TypeMismatch) Error() string {
	return e.structured().Error()
}

// Is reports whether target is a type_mismatch error from the access phase.
func (e *TypeMismatch) Is(target error) bool {
	return e.structured().Is(target)
}

func (e *TypeMismatch) structured() *errors.Error {
	return errors.TypeMismatch(errors.PhaseAccess, e.Expected.String(), e.Actual.String())
}
