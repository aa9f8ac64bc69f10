package host

import (
	"context"
	"slices"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/ffivalue/errors"
)

const (
	CabiRealloc = "cabi_realloc"
	CabiFree    = "cabi_free"

	// Fallbacks for guests exporting a plain malloc/free pair
	simpleAlloc = "alloc"
	simpleFree  = "free"

	memoryExport = "memory"
)

func isAllocatorExport(name string) bool {
	switch name {
	case CabiRealloc, CabiFree, simpleAlloc, simpleFree:
		return true
	}
	return false
}

// Module is a compiled guest module.
type Module struct {
	runtime   *Runtime
	compiled  wazero.CompiledModule
	functions []string
}

// Functions returns the sorted names of exports with the boundary signature
// (retptr i32, argc i32, argv i32) -> ().
func (m *Module) Functions() []string {
	return slices.Clone(m.functions)
}

// HasFunction reports whether name is a callable boundary export.
func (m *Module) HasFunction(name string) bool {
	_, found := slices.BinarySearch(m.functions, name)
	return found
}

// Close releases the compiled module.
func (m *Module) Close(ctx context.Context) error {
	return m.compiled.Close(ctx)
}

// Instantiate creates a new guest instance.
func (m *Module) Instantiate(ctx context.Context) (*Instance, error) {
	// anonymous for parallel instantiation; reactors initialize via _initialize
	modConfig := wazero.NewModuleConfig().
		WithName("").
		WithStartFunctions("_initialize")

	instance, err := m.runtime.runtime.InstantiateModule(ctx, m.compiled, modConfig)
	if err != nil {
		return nil, errors.Instantiation(err)
	}

	inst := &Instance{
		module:    m,
		instance:  instance,
		logger:    m.runtime.logger,
		funcCache: make(map[string]api.Function),
		stackBuf:  make([]uint64, 4),
	}

	mem := instance.ExportedMemory(memoryExport)
	if mem == nil {
		mem = instance.Memory()
	}
	if mem == nil {
		_ = instance.Close(ctx)
		return nil, errors.NotFound(errors.PhaseLoad, "export", memoryExport)
	}
	inst.memory = &wazeroMemory{mem: mem}

	allocName := CabiRealloc
	allocFn := instance.ExportedFunction(allocName)
	if allocFn == nil {
		allocName = simpleAlloc
		allocFn = instance.ExportedFunction(allocName)
	}
	if allocFn == nil {
		_ = instance.Close(ctx)
		return nil, errors.NotFound(errors.PhaseLoad, "export", CabiRealloc)
	}

	freeFn := instance.ExportedFunction(CabiFree)
	if freeFn == nil {
		freeFn = instance.ExportedFunction(simpleFree)
	}
	if freeFn == nil {
		m.runtime.logger.Warn("guest exports no free function; returned text will leak in guest memory")
	}

	inst.alloc = &wazeroAllocator{
		allocFn:       allocFn,
		freeFn:        freeFn,
		logger:        m.runtime.logger,
		stackBuf:      make([]uint64, 4),
		isSimpleAlloc: len(allocFn.Definition().ParamTypes()) < 4,
	}

	m.runtime.logger.Debug("instance created",
		zap.String("allocator", allocName),
		zap.Bool("simple", inst.alloc.isSimpleAlloc),
		zap.Uint32("memory", inst.memory.Size()))

	return inst, nil
}

func boundaryFunctions(compiled wazero.CompiledModule) []string {
	var names []string
	for name, def := range compiled.ExportedFunctions() {
		if isAllocatorExport(name) || !isBoundarySignature(def) {
			continue
		}
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

func isBoundarySignature(def api.FunctionDefinition) bool {
	params := def.ParamTypes()
	if len(params) != 3 || len(def.ResultTypes()) != 0 {
		return false
	}
	for _, p := range params {
		if p != api.ValueTypeI32 {
			return false
		}
	}
	return true
}
