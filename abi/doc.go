// Package abi lays out values in guest linear memory using the C FFIValue
// struct shared with native code.
//
//	┌──────────────────────────────────────────────────────────────┐
//	│ value.Value ←→ [abi] ←→ FFIValue in guest linear memory       │
//	└──────────────────────────────────────────────────────────────┘
//
// # Memory Layout
//
// FFIValue on a 32-bit guest (wasm32) is 16 bytes with 8-byte alignment:
//
//	Offset  Size  Field
//	──────────────────────────────────────
//	0       4     tag (value.Type ordinal)
//	4       4     padding
//	8       4     text: char* (NUL-terminated)
//	8       4     integer: int (i32)
//	8       8     float: double
//	8       1     boolean: bool (0 or 1)
//
// Arguments are passed as an argv array of FFIValue; results come back
// through a caller-provided return area of the same layout.
//
// # Ownership
//
// Text crosses the boundary as guest allocations made through the guest's
// allocator (cabi_realloc) and returned through cabi_free, never through
// the Go heap:
//
//   - Arguments: with Lend (default) the host allocates the string, records it
//     in an AllocationList and frees it after the call returns; the guest only
//     borrows it for the call. With Transfer the guest becomes the owner once
//     every argument has been written; until then the string stays in the
//     AllocationList, so a failed encode still frees it.
//   - Results: the host becomes the owner of a returned string. In copy mode
//     the string is copied into a Go-heap Value and freed in the guest right
//     away; in zero-copy mode the Value aliases guest memory and frees the
//     guest string when it is released.
//
// A result pointer that is one of the call's own argument allocations is taken
// out of the AllocationList, so the string is freed exactly once.
//
// # Limits
//
// Integers are C int (32-bit) on the guest; encoding an int outside that range
// fails with an overflow error. Text containing a NUL byte cannot be expressed
// as a C string and fails with invalid_data.
//
// # Thread Safety
//
// Encoder and Decoder are stateless values and safe for concurrent use; the
// Memory and Allocator they are given usually are not.
package abi
