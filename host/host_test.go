package host

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/wippyai/ffivalue/abi"
	"github.com/wippyai/ffivalue/arena"
	"github.com/wippyai/ffivalue/errors"
	"github.com/wippyai/ffivalue/value"
)

func newGuest(t *testing.T, cfg *Config) *Instance {
	t.Helper()
	ctx := context.Background()

	rt, err := New(ctx, cfg)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	t.Cleanup(func() { rt.Close(ctx) })

	mod, err := rt.Load(ctx, guestWASM)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	inst, err := mod.Instantiate(ctx)
	if err != nil {
		t.Fatalf("Instantiate error: %v", err)
	}
	t.Cleanup(func() { inst.Close(ctx) })
	return inst
}

func frees(t *testing.T, inst *Instance) uint64 {
	t.Helper()
	g := inst.instance.ExportedGlobal("frees")
	if g == nil {
		t.Fatal("guest does not export frees")
	}
	return g.Get()
}

func text(t *testing.T, s string) value.Value {
	t.Helper()
	v, err := value.String(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func isKind(err error, phase errors.Phase, kind errors.Kind) bool {
	return stderrors.Is(err, &errors.Error{Phase: phase, Kind: kind})
}

func TestModule_Functions(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer rt.Close(ctx)

	mod, err := rt.Load(ctx, guestWASM)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	want := []string{"count", "echo", "fail", "hello", "noop", "tagof"}
	if diff := cmp.Diff(want, mod.Functions()); diff != "" {
		t.Errorf("Functions mismatch (-want +got):\n%s", diff)
	}
	if !mod.HasFunction("echo") {
		t.Error("HasFunction(echo) = false")
	}
	if mod.HasFunction("add") || mod.HasFunction("cabi_free") {
		t.Error("non-boundary export reported as callable")
	}
}

func TestRuntime_LoadInvalid(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, &Config{MemoryLimitPages: 16})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer rt.Close(ctx)

	_, err = rt.Load(ctx, []byte("not wasm"))
	if !isKind(err, errors.PhaseLoad, errors.KindInvalidData) {
		t.Errorf("expected load error, got %v", err)
	}
}

func TestRuntime_EnableWASI(t *testing.T) {
	ctx := context.Background()
	rt, err := New(ctx, &Config{EnableWASI: true})
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	defer rt.Close(ctx)

	if _, err := rt.Load(ctx, guestWASM); err != nil {
		t.Fatalf("Load error: %v", err)
	}
}

func TestInstance_Scalars(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	tests := []struct {
		name string
		arg  value.Value
	}{
		{"absent", value.Absent()},
		{"integer", value.Int(42)},
		{"negative", value.Int(-7)},
		{"float", value.Float(3.5)},
		{"true", value.Bool(true)},
		{"false", value.Bool(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inst.Call(ctx, "echo", tt.arg)
			if err != nil {
				t.Fatalf("echo error: %v", err)
			}
			if !got.Equal(tt.arg) {
				t.Errorf("echo(%v) = %v", tt.arg, got)
			}
		})
	}
}

func TestInstance_EchoText(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	arg := text(t, "hello")
	defer arg.Release()

	before := frees(t, inst)
	got, err := inst.Call(ctx, "echo", arg)
	if err != nil {
		t.Fatalf("echo error: %v", err)
	}
	defer got.Release()

	if !got.Equal(arg) {
		t.Errorf("echo = %v, want %v", got, arg)
	}
	if !got.Owned() {
		t.Error("result text should be owned by the host")
	}
	// argument string, argv and the result slot, each exactly once
	if n := frees(t, inst) - before; n != 3 {
		t.Errorf("guest frees = %d, want 3", n)
	}

	// arguments stay usable after a lent call
	view, err := arg.AsText()
	if err != nil {
		t.Fatalf("AsText error: %v", err)
	}
	if view.String() != "hello" {
		t.Errorf("arg = %q after call", view.String())
	}
}

func TestInstance_EchoIntFrees(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	before := frees(t, inst)
	if _, err := inst.Call(ctx, "echo", value.Int(1)); err != nil {
		t.Fatalf("echo error: %v", err)
	}
	if n := frees(t, inst) - before; n != 2 {
		t.Errorf("guest frees = %d, want 2", n)
	}
}

func TestInstance_ZeroCopy(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	arg := text(t, "zero")
	defer arg.Release()

	before := frees(t, inst)
	got, err := inst.CallWith(ctx, "echo", CallOptions{ZeroCopy: true}, arg)
	if err != nil {
		t.Fatalf("echo error: %v", err)
	}
	if n := frees(t, inst) - before; n != 2 {
		t.Errorf("guest frees before release = %d, want 2", n)
	}

	view, err := got.AsText()
	if err != nil {
		t.Fatalf("AsText error: %v", err)
	}
	if view.String() != "zero" {
		t.Errorf("result = %q, want %q", view.String(), "zero")
	}

	got.Release()
	if n := frees(t, inst) - before; n != 3 {
		t.Errorf("guest frees after release = %d, want 3", n)
	}
}

func TestInstance_TransferText(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	arg := text(t, "mine now")
	defer arg.Release()

	tests := []struct {
		name  string
		text  abi.Ownership
		frees uint64
	}{
		{"lend", abi.Lend, 3},
		{"transfer", abi.Transfer, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := frees(t, inst)
			got, err := inst.CallWith(ctx, "count", CallOptions{Text: tt.text}, arg)
			if err != nil {
				t.Fatalf("count error: %v", err)
			}
			if n, _ := got.AsInt(); n != 1 {
				t.Errorf("count = %d, want 1", n)
			}
			if n := frees(t, inst) - before; n != tt.frees {
				t.Errorf("guest frees = %d, want %d", n, tt.frees)
			}
		})
	}
}

func TestInstance_Count(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	for argc := 0; argc < 4; argc++ {
		args := make([]value.Value, argc)
		for i := range args {
			args[i] = value.Int(i)
		}
		got, err := inst.Call(ctx, "count", args...)
		if err != nil {
			t.Fatalf("count(%d args) error: %v", argc, err)
		}
		n, err := got.AsInt()
		if err != nil {
			t.Fatalf("AsInt error: %v", err)
		}
		if n != argc {
			t.Errorf("count = %d, want %d", n, argc)
		}
	}
}

func TestInstance_TagOf(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	hi := text(t, "hi")
	defer hi.Release()

	args := []value.Value{value.Absent(), hi, value.Int(5), value.Float(0.5), value.Bool(true)}
	for _, arg := range args {
		got, err := inst.Call(ctx, "tagof", arg)
		if err != nil {
			t.Fatalf("tagof(%v) error: %v", arg, err)
		}
		if n, _ := got.AsInt(); n != int(arg.Type()) {
			t.Errorf("tagof(%v) = %d, want %d", arg, n, arg.Type())
		}
	}
}

func TestInstance_Hello(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	got, err := inst.Call(ctx, "hello")
	if err != nil {
		t.Fatalf("hello error: %v", err)
	}
	defer got.Release()

	if got.Type() != value.TypeText {
		t.Fatalf("hello type = %v, want text", got.Type())
	}
	view, _ := got.AsText()
	if view.String() != "hello" || view.Len() != 5 {
		t.Errorf("hello = %q (len %d)", view.String(), view.Len())
	}
}

func TestInstance_NoopReturnsAbsent(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	got, err := inst.Call(ctx, "noop", value.Int(1))
	if err != nil {
		t.Fatalf("noop error: %v", err)
	}
	if !got.IsAbsent() {
		t.Errorf("noop = %v, want absent", got)
	}
}

func TestInstance_Errors(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	t.Run("trap frees arguments", func(t *testing.T) {
		before := frees(t, inst)
		_, err := inst.Call(ctx, "fail", text(t, "x"))
		if !isKind(err, errors.PhaseCall, errors.KindTrap) {
			t.Fatalf("expected trap, got %v", err)
		}
		if n := frees(t, inst) - before; n != 3 {
			t.Errorf("guest frees = %d, want 3", n)
		}
	})

	t.Run("instance usable after trap", func(t *testing.T) {
		got, err := inst.Call(ctx, "count")
		if err != nil {
			t.Fatalf("count error: %v", err)
		}
		if n, _ := got.AsInt(); n != 0 {
			t.Errorf("count = %d", n)
		}
	})

	t.Run("not found", func(t *testing.T) {
		_, err := inst.Call(ctx, "nope")
		if !isKind(err, errors.PhaseCall, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})

	t.Run("allocator export", func(t *testing.T) {
		_, err := inst.Call(ctx, "cabi_free")
		if !isKind(err, errors.PhaseCall, errors.KindNotFound) {
			t.Errorf("expected not_found, got %v", err)
		}
	})

	t.Run("wrong signature", func(t *testing.T) {
		_, err := inst.Call(ctx, "add")
		if !isKind(err, errors.PhaseCall, errors.KindTypeMismatch) {
			t.Fatalf("expected type_mismatch, got %v", err)
		}
		var e *errors.Error
		if stderrors.As(err, &e) && e.Actual != "func(i32, i32) (i32)" {
			t.Errorf("Actual = %q", e.Actual)
		}
	})

	t.Run("integer overflow", func(t *testing.T) {
		_, err := inst.Call(ctx, "echo", value.Int(1<<40))
		if !isKind(err, errors.PhaseEncode, errors.KindOverflow) {
			t.Errorf("expected overflow, got %v", err)
		}
	})

	t.Run("released argument", func(t *testing.T) {
		v := text(t, "gone")
		v.Release()
		_, err := inst.Call(ctx, "echo", v)
		if !isKind(err, errors.PhaseEncode, errors.KindUseAfterRelease) {
			t.Errorf("expected use_after_release, got %v", err)
		}
	})
}

func TestInstance_Logging(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zapcore.DebugLevel)
	inst := newGuest(t, &Config{Logger: zap.New(core)})

	if _, err := inst.Call(ctx, "count", value.Int(1), value.Bool(false)); err != nil {
		t.Fatalf("count error: %v", err)
	}

	calls := logs.FilterMessage("call").All()
	if len(calls) != 1 {
		t.Fatalf("expected 1 call log, got %d", len(calls))
	}
	if fn := calls[0].ContextMap()["function"]; fn != "count" {
		t.Errorf("function = %v, want count", fn)
	}
	if logs.FilterMessage("call returned").Len() != 1 {
		t.Error("missing call returned log")
	}
}

func TestInstance_MemorySize(t *testing.T) {
	inst := newGuest(t, nil)
	if got := inst.MemorySize(); got != 65536 {
		t.Errorf("MemorySize = %d, want 65536", got)
	}
}

func TestInstance_ArenaResults(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)
	a := arena.New()
	opts := CallOptions{Results: a}

	var results []value.Value
	for _, s := range []string{"one", "two", "three"} {
		arg := text(t, s)
		got, err := inst.CallWith(ctx, "echo", opts, arg)
		arg.Release()
		if err != nil {
			t.Fatalf("echo(%q) error: %v", s, err)
		}
		results = append(results, got)
	}

	if a.Live() != 3 {
		t.Errorf("Live = %d, want 3", a.Live())
	}
	if err := a.Reset(); err == nil {
		t.Error("Reset should refuse while results are live")
	}

	for i, want := range []string{"one", "two", "three"} {
		view, err := results[i].AsText()
		if err != nil || view.String() != want {
			t.Errorf("result %d = %v, %v", i, results[i], err)
		}
		results[i].Release()
	}
	if err := a.Reset(); err != nil {
		t.Errorf("Reset error: %v", err)
	}
}

func TestInstance_EncodeFailureFreesText(t *testing.T) {
	ctx := context.Background()
	inst := newGuest(t, nil)

	arg := text(t, "never delivered")
	defer arg.Release()

	for _, mode := range []abi.Ownership{abi.Lend, abi.Transfer} {
		t.Run(mode.String(), func(t *testing.T) {
			before := frees(t, inst)
			_, err := inst.CallWith(ctx, "count", CallOptions{Text: mode}, arg, value.Int(1<<40))
			if !isKind(err, errors.PhaseEncode, errors.KindOverflow) {
				t.Fatalf("expected overflow, got %v", err)
			}
			// the guest never ran, so argv and the string return to it
			if n := frees(t, inst) - before; n != 2 {
				t.Errorf("guest frees = %d, want 2", n)
			}
		})
	}
}
