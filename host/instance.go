package host

import (
	"context"
	"sync"
	"time"

	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffivalue/abi"
	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

// CallOptions selects the ownership conventions of one call.
type CallOptions struct {
	// Text is the convention for argument strings. The zero value lends
	// them: the host frees them after the guest returns.
	Text abi.Ownership

	// ZeroCopy returns result text aliasing guest memory instead of a copy.
	// Releasing the result frees the guest string. The result must be
	// released before the instance is closed or its memory grows.
	ZeroCopy bool

	// Results allocates copied result text, for example an arena.Arena
	// shared by a batch of calls. Nil means the Go heap.
	Results value.Allocator
}

// Instance is an instantiated guest module. It is not safe for concurrent
// use; calls on one instance must be serialized by the caller.
type Instance struct {
	module    *Module
	instance  api.Module
	memory    *wazeroMemory
	alloc     *wazeroAllocator
	logger    *zap.Logger
	funcCache map[string]api.Function
	stackBuf  []uint64
	cacheMu   sync.RWMutex
}

// Call invokes the boundary function name with args, lending argument text.
// The result is owned by the caller; release it when it holds text.
func (i *Instance) Call(ctx context.Context, name string, args ...value.Value) (value.Value, error) {
	return i.CallWith(ctx, name, CallOptions{}, args...)
}

// CallWith invokes the boundary function name with explicit ownership
// conventions.
func (i *Instance) CallWith(ctx context.Context, name string, opts CallOptions, args ...value.Value) (result value.Value, err error) {
	ctx, span := startCall(ctx, name, len(args))
	start := time.Now()
	defer func() {
		endCall(ctx, span, name, err, time.Since(start))
	}()

	fn, err := i.function(name)
	if err != nil {
		return value.Value{}, err
	}

	i.alloc.setContext(ctx)
	defer i.alloc.setContext(nil)

	list := abi.NewAllocationList()
	defer list.FreeAndRelease(i.alloc)

	enc := abi.Encoder{Text: opts.Text}
	argv, err := enc.EncodeArgs(args, i.memory, i.alloc, list)
	if err != nil {
		return value.Value{}, err
	}
	recordText(ctx, name, "in", textBytesOf(args))

	retptr, err := i.alloc.Alloc(abi.ValueSize, abi.ValueAlign)
	if err != nil {
		return value.Value{}, err
	}
	list.Add(retptr, abi.ValueSize, abi.ValueAlign)
	// a guest that returns without writing leaves Absent behind
	if err := i.memory.Write(retptr, make([]byte, abi.ValueSize)); err != nil {
		return value.Value{}, errors.Wrap(errors.PhaseCall, errors.KindOutOfBounds, err, "clear result slot")
	}

	i.logger.Debug("call",
		zap.String("function", name),
		zap.Array("args", value.Values(args)),
		zap.Stringer("text", opts.Text),
		zap.Uint32("retptr", retptr),
		zap.Uint32("argv", argv))

	i.stackBuf[0] = uint64(retptr)
	i.stackBuf[1] = uint64(len(args))
	i.stackBuf[2] = uint64(argv)
	if err := fn.CallWithStack(ctx, i.stackBuf[:3]); err != nil {
		return value.Value{}, errors.Trap(name, err)
	}

	dec := abi.Decoder{ZeroCopy: opts.ZeroCopy, Text: opts.Results}
	result, err = dec.Decode(retptr, i.memory, i.alloc, list)
	if err != nil {
		return value.Value{}, err
	}
	recordText(ctx, name, "out", textBytesOf([]value.Value{result}))

	i.logger.Debug("call returned",
		zap.String("function", name),
		zap.Object("result", result))

	return result, nil
}

func (i *Instance) function(name string) (api.Function, error) {
	i.cacheMu.RLock()
	fn, ok := i.funcCache[name]
	i.cacheMu.RUnlock()
	if ok {
		return fn, nil
	}

	fn = i.instance.ExportedFunction(name)
	if fn == nil || isAllocatorExport(name) {
		return nil, errors.NotFound(errors.PhaseCall, "function", name)
	}
	if !isBoundarySignature(fn.Definition()) {
		return nil, errors.New(errors.PhaseCall, errors.KindTypeMismatch).
			Path(name).
			Expected("func(i32, i32, i32)").
			Actual(signature(fn.Definition())).
			Build()
	}

	i.cacheMu.Lock()
	i.funcCache[name] = fn
	i.cacheMu.Unlock()
	return fn, nil
}

// MemorySize returns the guest linear memory size in bytes.
func (i *Instance) MemorySize() uint32 {
	return i.memory.Size()
}

// Close closes the instance. Zero-copy results still held become dangling.
func (i *Instance) Close(ctx context.Context) error {
	return i.instance.Close(ctx)
}

func textBytesOf(vs []value.Value) uint64 {
	var n uint64
	for _, v := range vs {
		if v.Type() != value.TypeText {
			continue
		}
		if t, err := v.AsText(); err == nil {
			n += uint64(t.Len())
		}
	}
	return n
}

func signature(def api.FunctionDefinition) string {
	s := "func("
	for j, p := range def.ParamTypes() {
		if j > 0 {
			s += ", "
		}
		s += api.ValueTypeName(p)
	}
	s += ")"
	if results := def.ResultTypes(); len(results) > 0 {
		s += " ("
		for j, r := range results {
			if j > 0 {
				s += ", "
			}
			s += api.ValueTypeName(r)
		}
		s += ")"
	}
	return s
}
