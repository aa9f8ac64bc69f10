// Package ffivalue defines one tagged value representation shared by a Go
// host and native code running as a WebAssembly guest.
//
// Every value crossing the boundary is one of a closed set of primitives:
// absent, text, integer, float or boolean. Text is the only variant with a
// heap payload, and its payload always has exactly one owner.
//
// # Architecture Overview
//
//	ffivalue/            Root package with core Memory and Allocator interfaces
//	├── value/           Tagged Value, type-checked access, text ownership
//	├── arena/           Batch allocator for many short-lived text values
//	├── abi/             C FFIValue layout in guest memory, encode and decode
//	├── host/            wazero runtime calling guest boundary functions
//	├── errors/          Structured error types for debugging
//	└── cmd/ffi-call/    CLI for calling boundary functions
//
// # Quick Start
//
// Call a guest function and read its result:
//
//	rt, err := host.New(ctx, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer inst.Close(ctx)
//
//	name, _ := value.String("World")
//	defer name.Release()
//
//	result, err := inst.Call(ctx, "greet", name)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer result.Release()
//	fmt.Println(result) // "Hello, World!"
//
// # Ownership
//
// A text Value is either owned, and released exactly once by its owner, or a
// borrowed view that must not be released. Releasing twice, releasing a
// borrow, or releasing while a WithText callback is running panics. Any
// access after release fails with a use_after_release error.
//
// Argument text is lent to the guest by default: the host copies it into
// guest memory and frees the copies when the call returns. Text returned by
// the guest is always handed to the host, which frees the guest string.
//
// # Thread Safety
//
// Values may be shared between goroutines; release and borrow state
// transitions are atomic so misuse is detected rather than raced. Runtime and
// Module are safe for concurrent use. Instance is NOT thread-safe.
package ffivalue
