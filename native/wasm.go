package native

import (
	"context"
	"sort"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"

	"github.com/wippyai/wordcall"
	"github.com/wippyai/wordcall/errors"
)

// Guest allocator exports used to place strings in linear memory.
const (
	MallocExport = "malloc"
	FreeExport   = "free"
)

// Config holds configuration for engine creation.
type Config struct {
	// MemoryLimitPages sets the maximum memory per instance in pages (64KB each).
	// 0 means the wazero default.
	MemoryLimitPages uint32
}

// Engine compiles and instantiates wasm modules whose exports serve as
// native functions.
type Engine struct {
	runtime wazero.Runtime
}

// NewEngine creates a wazero-backed engine. cfg may be nil.
func NewEngine(ctx context.Context, cfg *Config) *Engine {
	runtimeCfg := wazero.NewRuntimeConfig()
	if cfg != nil && cfg.MemoryLimitPages > 0 {
		runtimeCfg = runtimeCfg.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Engine{runtime: wazero.NewRuntimeWithConfig(ctx, runtimeCfg)}
}

// Instantiate compiles and instantiates a core wasm module under name.
func (e *Engine) Instantiate(ctx context.Context, name string, wasmBytes []byte) (*Module, error) {
	compiled, err := e.runtime.CompileModule(ctx, wasmBytes)
	if err != nil {
		return nil, errors.Load("compile "+name, err)
	}
	mod, err := e.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(name))
	if err != nil {
		return nil, errors.Load("instantiate "+name, err)
	}
	Logger().Debug("module instantiated",
		zap.String("module", name),
		zap.Int("exports", len(mod.ExportedFunctionDefinitions())))
	return &Module{name: name, mod: mod, funcs: make(map[string]*wasmFunc)}, nil
}

// Close releases the runtime and every module it instantiated.
func (e *Engine) Close(ctx context.Context) error {
	return e.runtime.Close(ctx)
}

// Module is an instantiated wasm module.
type Module struct {
	mod   api.Module
	funcs map[string]*wasmFunc
	name  string
	mu    sync.Mutex
}

// Name returns the instance name.
func (m *Module) Name() string { return m.name }

// Func returns the export name as a native function. Every parameter must be
// i32 or i64, and there is at most one result of those types.
func (m *Module) Func(name string) (Func, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if f, ok := m.funcs[name]; ok {
		return f, nil
	}
	def, ok := m.mod.ExportedFunctionDefinitions()[name]
	if !ok {
		return nil, errors.NotFound(errors.PhaseLoad, "export", name)
	}
	if err := checkWordSignature(name, def); err != nil {
		return nil, err
	}
	f := &wasmFunc{
		name:    m.name + "." + name,
		fn:      m.mod.ExportedFunction(name),
		params:  def.ParamTypes(),
		results: def.ResultTypes(),
	}
	m.funcs[name] = f
	return f, nil
}

// Exports lists the exports usable as native functions, sorted by name.
func (m *Module) Exports() []string {
	var names []string
	for name, def := range m.mod.ExportedFunctionDefinitions() {
		if checkWordSignature(name, def) == nil {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Heap returns a heap placing strings in the module's linear memory through
// its exported malloc and free.
func (m *Module) Heap() (*WasmHeap, error) {
	mem := m.mod.Memory()
	if mem == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "memory", m.name)
	}
	malloc := m.mod.ExportedFunction(MallocExport)
	if malloc == nil {
		return nil, errors.NotFound(errors.PhaseLoad, "export", MallocExport)
	}
	return &WasmHeap{
		mem:    mem,
		malloc: malloc,
		free:   m.mod.ExportedFunction(FreeExport),
	}, nil
}

// Memory exposes the module's linear memory, or nil.
func (m *Module) Memory() api.Memory { return m.mod.Memory() }

// Close closes the module instance.
func (m *Module) Close(ctx context.Context) error {
	return m.mod.Close(ctx)
}

func checkWordSignature(name string, def api.FunctionDefinition) error {
	params := def.ParamTypes()
	if len(params) > wordcall.MaxArgs {
		return errors.TooManyArguments(errors.PhaseLoad, len(params), wordcall.MaxArgs)
	}
	for i, p := range params {
		if p != api.ValueTypeI32 && p != api.ValueTypeI64 {
			return errors.New(errors.PhaseLoad, errors.KindType).
				Path(name, errors.Arg(i)).
				Provided(api.ValueTypeName(p)).
				Expected("i32 or i64").
				Build()
		}
	}
	results := def.ResultTypes()
	if len(results) > 1 {
		return errors.New(errors.PhaseLoad, errors.KindType).
			Path(name, "result").
			Detail("%d results, at most one allowed", len(results)).
			Build()
	}
	if len(results) == 1 && results[0] != api.ValueTypeI32 && results[0] != api.ValueTypeI64 {
		return errors.New(errors.PhaseLoad, errors.KindType).
			Path(name, "result").
			Provided(api.ValueTypeName(results[0])).
			Expected("i32 or i64").
			Build()
	}
	return nil
}

type wasmFunc struct {
	fn      api.Function
	name    string
	params  []api.ValueType
	results []api.ValueType
}

func (f *wasmFunc) Name() string { return f.name }
func (f *wasmFunc) Arity() int   { return len(f.params) }

func (f *wasmFunc) Call(ctx context.Context, args []wordcall.Word) (wordcall.Word, error) {
	if len(args) != len(f.params) {
		return 0, errors.New(errors.PhaseInvoke, errors.KindInternal).
			Path(f.name).
			Detail("called with %d words, arity is %d", len(args), len(f.params)).
			Build()
	}
	stack := make([]uint64, len(args))
	for i, w := range args {
		if f.params[i] == api.ValueTypeI32 {
			stack[i] = api.EncodeU32(uint32(w))
		} else {
			stack[i] = uint64(w)
		}
	}
	res, err := f.fn.Call(ctx, stack...)
	if err != nil {
		return 0, errors.Native(f.name, err)
	}
	if len(f.results) == 0 {
		return 0, nil
	}
	if f.results[0] == api.ValueTypeI32 {
		// sign-extend so negative ints survive the trip through a Word
		return wordcall.Word(int64(api.DecodeI32(res[0]))), nil
	}
	return wordcall.Word(res[0]), nil
}

// WasmHeap places NUL-terminated strings in guest linear memory.
type WasmHeap struct {
	mem    api.Memory
	malloc api.Function
	free   api.Function
}

var _ wordcall.Heap = (*WasmHeap)(nil)

// PutString allocates len(s)+1 bytes in the guest and copies s there.
func (h *WasmHeap) PutString(ctx context.Context, s string) (wordcall.Word, error) {
	res, err := h.malloc.Call(ctx, api.EncodeU32(uint32(len(s)+1)))
	if err != nil {
		return 0, errors.Native(MallocExport, err)
	}
	ptr := api.DecodeU32(res[0])
	if ptr == 0 {
		return 0, errors.New(errors.PhaseConvert, errors.KindAllocation).
			Detail("guest malloc(%d) returned null", len(s)+1).
			Build()
	}
	buf := make([]byte, len(s)+1)
	copy(buf, s)
	if !h.mem.Write(ptr, buf) {
		return 0, errors.New(errors.PhaseConvert, errors.KindAllocation).
			Detail("write %d bytes at %#x out of range", len(buf), ptr).
			Build()
	}
	return wordcall.Word(ptr), nil
}

// String reads the NUL-terminated string at addr.
func (h *WasmHeap) String(_ context.Context, addr wordcall.Word) (string, error) {
	var buf []byte
	for off := uint32(addr); ; off++ {
		b, ok := h.mem.ReadByte(off)
		if !ok {
			return "", errors.New(errors.PhaseReturn, errors.KindValue).
				Value(addr).
				Detail("unterminated string at %#x", uint32(addr)).
				Build()
		}
		if b == 0 {
			return string(buf), nil
		}
		buf = append(buf, b)
	}
}

// Release calls the guest free. Without a free export the memory leaks.
func (h *WasmHeap) Release(ctx context.Context, addr wordcall.Word) {
	if h.free == nil {
		return
	}
	if _, err := h.free.Call(ctx, api.EncodeU32(uint32(addr))); err != nil {
		Logger().Warn("guest free failed", zap.Uint32("addr", uint32(addr)), zap.Error(err))
	}
}
