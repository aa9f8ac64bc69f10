// Package errors provides structured error types for the ffivalue library.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error category).
// The Error type includes rich context: argument path, expected/actual tag names, and cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseEncode, errors.KindOverflow).
//		Path("args[1]").
//		Expected("int32").
//		Detail("value %d does not fit", v).
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.TypeMismatch(errors.PhaseAccess, "integer", "text")
//	err := errors.OutOfBounds(errors.PhaseDecode, path, 10, 5)
//
// Errors of the release family (double_release, borrowed_release,
// released_while_borrowed) describe ownership violations. They are raised
// with panic by the value package and never returned.
//
// All errors implement the standard error interface and support errors.Is/As.
package errors
