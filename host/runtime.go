package host

import (
	"context"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"

	"github.com/wippyai/ffivalue/errors"
)

// Config holds configuration for runtime creation
type Config struct {
	// Logger overrides the package logger for this runtime.
	Logger *zap.Logger

	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means default (65536 pages = 4GB).
	// 256 = 16MB, 1024 = 64MB, 4096 = 256MB
	MemoryLimitPages uint32

	// EnableWASI instantiates wasi_snapshot_preview1 so guests compiled for
	// wasm32-wasi can be loaded.
	EnableWASI bool
}

// Runtime owns a wazero runtime and compiles guest modules.
type Runtime struct {
	runtime wazero.Runtime
	logger  *zap.Logger
}

// New creates a runtime. A nil cfg uses defaults.
func New(ctx context.Context, cfg *Config) (*Runtime, error) {
	runtimeCfg := wazero.NewRuntimeConfig()
	log := Logger()

	if cfg != nil {
		if cfg.MemoryLimitPages > 0 {
			runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
		}
		if cfg.Logger != nil {
			log = cfg.Logger
		}
	}

	r := &Runtime{
		runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg),
		logger:  log,
	}

	if cfg != nil && cfg.EnableWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, r.runtime); err != nil {
			_ = r.runtime.Close(ctx)
			return nil, errors.Load("instantiate WASI", err)
		}
	}

	return r, nil
}

// Close releases all runtime resources, closing every instance.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}

// Load compiles a core WebAssembly module.
func (r *Runtime) Load(ctx context.Context, wasm []byte) (*Module, error) {
	compiled, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, errors.Load("compile module", err)
	}

	m := &Module{
		runtime:  r,
		compiled: compiled,
	}
	m.functions = boundaryFunctions(compiled)

	r.logger.Debug("module loaded",
		zap.Int("size", len(wasm)),
		zap.Strings("functions", m.functions))

	return m, nil
}
