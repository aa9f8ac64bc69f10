package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/ffivalue/abi"
	"github.com/wippyai/ffivalue/host"
)

type options struct {
	wasmFile string
	funcName string
	sig      string
	args     argList
	list     bool
	transfer bool
	zeroCopy bool
	wasi     bool
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.wasmFile, "wasm", "", "Path to guest wasm module")
	flag.StringVar(&opts.funcName, "func", "", "Function to call (optional if the module exports one)")
	flag.Var(&opts.args, "arg", "Argument literal: null, true, false, 42, 1.5, \"text\" (repeatable)")
	flag.StringVar(&opts.sig, "sig", "", "Parameter types as WIT primitives (s32,string,f64,bool,_)")
	flag.BoolVar(&opts.list, "list", false, "List boundary functions and exit")
	flag.BoolVar(&opts.transfer, "transfer", false, "Transfer argument text to the guest instead of lending it")
	flag.BoolVar(&opts.zeroCopy, "zero-copy", false, "Read result text in place before freeing it")
	flag.BoolVar(&opts.wasi, "wasi", false, "Provide wasi_snapshot_preview1 imports")
	flag.BoolVar(&opts.verbose, "v", false, "Verbose logging")
	interactive := flag.Bool("i", false, "Interactive mode with TUI")
	flag.Parse()

	if opts.wasmFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: ffi-call -wasm <file.wasm> [-func name] [-arg literal ...] [-sig s32,string]")
		fmt.Fprintln(os.Stderr, "       ffi-call -wasm <file.wasm> -list")
		fmt.Fprintln(os.Stderr, "       ffi-call -wasm <file.wasm> -i  (interactive mode)")
		os.Exit(1)
	}

	logger := zap.NewNop()
	if opts.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		logger = l
	}
	defer logger.Sync()
	host.SetLogger(logger)

	if *interactive {
		if !term.IsTerminal(int(os.Stdout.Fd())) {
			fmt.Fprintln(os.Stderr, "Error: interactive mode requires a terminal")
			os.Exit(1)
		}
		if err := runInteractive(opts); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(context.Background(), os.Stdout, opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (o options) callOptions() host.CallOptions {
	opts := host.CallOptions{ZeroCopy: o.zeroCopy}
	if o.transfer {
		opts.Text = abi.Transfer
	}
	return opts
}

func load(ctx context.Context, opts options) (*host.Runtime, *host.Module, error) {
	data, err := os.ReadFile(opts.wasmFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read file: %w", err)
	}

	rt, err := host.New(ctx, &host.Config{
		Logger:     host.Logger(),
		EnableWASI: opts.wasi,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create runtime: %w", err)
	}

	mod, err := rt.Load(ctx, data)
	if err != nil {
		rt.Close(ctx)
		return nil, nil, fmt.Errorf("load module: %w", err)
	}
	return rt, mod, nil
}

func run(ctx context.Context, out io.Writer, opts options) error {
	sig, err := parseSignature(opts.sig)
	if err != nil {
		return fmt.Errorf("signature: %w", err)
	}

	rt, mod, err := load(ctx, opts)
	if err != nil {
		return err
	}
	defer rt.Close(ctx)

	funcs := mod.Functions()
	fmt.Fprintf(out, "Module: %s\n", opts.wasmFile)
	fmt.Fprintf(out, "\nBoundary functions:\n")
	for _, name := range funcs {
		fmt.Fprintf(out, "  %s\n", name)
	}

	if opts.list {
		return nil
	}

	funcName := opts.funcName
	if funcName == "" {
		if len(funcs) != 1 {
			fmt.Fprintf(out, "\nNo function specified. Use -func to pick one.\n")
			return nil
		}
		funcName = funcs[0]
	}

	args, err := parseArgs(opts.args, sig)
	if err != nil {
		return err
	}
	defer releaseAll(args)

	instance, err := mod.Instantiate(ctx)
	if err != nil {
		return fmt.Errorf("instantiate: %w", err)
	}
	defer instance.Close(ctx)

	strs := make([]string, len(args))
	for i, a := range args {
		strs[i] = a.String()
	}
	fmt.Fprintf(out, "\nCalling %s(%s)...\n", funcName, strings.Join(strs, ", "))

	result, err := instance.CallWith(ctx, funcName, opts.callOptions(), args...)
	if err != nil {
		return fmt.Errorf("call %s: %w", funcName, err)
	}
	defer result.Release()

	fmt.Fprintf(out, "Result: %s (%s)\n", result, result.Type())
	return nil
}
