// Package host calls guest functions across the value boundary using wazero.
//
// A guest function callable from the host has the C signature
//
//	FFIValue fn(int argc, const FFIValue *argv);
//
// which a wasm32 compiler lowers to a core function taking the return area
// first:
//
//	(func (param $retptr i32) (param $argc i32) (param $argv i32))
//
// The guest must export its linear memory as "memory" and an allocator pair,
// cabi_realloc(old_ptr, old_size, align, new_size) -> ptr (or a simple
// alloc(size) -> ptr) and cabi_free(ptr, size, align) (or free(ptr)).
//
// # Quick Start
//
//	rt, err := host.New(ctx, nil)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	mod, err := rt.Load(ctx, wasmBytes)
//	if err != nil {
//	    return err
//	}
//
//	inst, err := mod.Instantiate(ctx)
//	if err != nil {
//	    return err
//	}
//	defer inst.Close(ctx)
//
//	arg, _ := value.String("World")
//	defer arg.Release()
//
//	result, err := inst.Call(ctx, "greet", arg)
//	if err != nil {
//	    return err
//	}
//	defer result.Release()
//
// # Ownership Convention
//
// Text arguments are lent by default: the host copies them into guest memory,
// the guest may read them until it returns, and the host frees them
// afterwards. CallOptions{Text: abi.Transfer} hands them to the guest instead.
// A text result always becomes host-owned; the caller releases it.
//
// # Thread Safety
//
// Runtime and Module are safe for concurrent use. Instance is NOT thread-safe
// and should be used by a single goroutine, or access must be synchronized.
package host
