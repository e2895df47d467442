package loader

import (
	"context"
	"fmt"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.bytecodealliance.org/wit"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/typesys"
)

// WasmConfig configures the wazero runtime behind a Wasm loader.
type WasmConfig struct {
	// MemoryLimitPages caps linear memory per module (64KiB pages).
	// Zero keeps the wazero default.
	MemoryLimitPages uint32
}

// Wasm loads core WebAssembly modules. All modules share one wazero
// runtime, released by Close.
type Wasm struct {
	runtime wazero.Runtime
}

func NewWasm(ctx context.Context, cfg WasmConfig) *Wasm {
	rc := wazero.NewRuntimeConfig()
	if cfg.MemoryLimitPages > 0 {
		rc = rc.WithMemoryLimitPages(cfg.MemoryLimitPages)
	}
	return &Wasm{runtime: wazero.NewRuntimeWithConfig(ctx, rc)}
}

// Load reads the binary at path and its WIT sidecar.
func (w *Wasm) Load(ctx context.Context, name, path string) (*typesys.Module, error) {
	binary, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	witPath := strings.TrimSuffix(path, ".wasm") + ".wit"
	witText, err := os.ReadFile(witPath)
	if err != nil {
		return nil, fmt.Errorf("read WIT sidecar: %w", err)
	}
	return w.Define(ctx, name, binary, string(witText))
}

// Define instantiates binary and describes its exports as witText says.
func (w *Wasm) Define(ctx context.Context, name string, binary []byte, witText string) (*typesys.Module, error) {
	ifaces, err := parseWIT(witText)
	if err != nil {
		return nil, err
	}

	compiled, err := w.runtime.CompileModule(ctx, binary)
	if err != nil {
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Detail("compile module").
			Cause(err).
			Build()
	}
	// Anonymous, so one binary can back several kernel modules.
	inst, err := w.runtime.InstantiateModule(ctx, compiled, wazero.NewModuleConfig().WithName(""))
	if err != nil {
		_ = compiled.Close(ctx)
		return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
			Detail("instantiate module").
			Cause(err).
			Build()
	}

	m := typesys.NewModule(name)
	m.OnClose(moduleCloser{inst: inst, compiled: compiled})

	var mu sync.Mutex
	for _, iface := range ifaces {
		t := m.Type(typesys.KebabToPascal(iface.name))
		for _, fn := range iface.funcs {
			export := iface.name + "#" + fn.name
			f := inst.ExportedFunction(export)
			if f == nil {
				_ = m.Close()
				return nil, errors.New(errors.PhaseLoad, errors.KindInvalidInput).
					Target(export).
					Detail("export declared in WIT but missing from module").
					Build()
			}
			call, err := exportThunk(f, fn, &mu)
			if err != nil {
				_ = m.Close()
				return nil, errors.New(errors.PhaseLoad, errors.KindUnsupported).
					Target(export).
					Cause(err).
					Build()
			}
			t.StaticThunk(typesys.KebabToCamel(fn.name), call)
		}
	}
	return m, nil
}

// Close releases the wazero runtime and every module it instantiated.
func (w *Wasm) Close(ctx context.Context) error {
	return w.runtime.Close(ctx)
}

type moduleCloser struct {
	inst     api.Module
	compiled wazero.CompiledModule
}

func (c moduleCloser) Close() error {
	ctx := context.Background()
	err := c.inst.Close(ctx)
	if cerr := c.compiled.Close(ctx); err == nil {
		err = cerr
	}
	return err
}

// exportThunk binds a core export. Calls into one instance are
// serialized by mu.
func exportThunk(f api.Function, fn witFunc, mu *sync.Mutex) (typesys.Func, error) {
	params := make([]scalar, len(fn.params))
	for i, p := range fn.params {
		s, ok := scalarFor(p)
		if !ok {
			return nil, fmt.Errorf("param %d: unsupported WIT type %s", i, witName(p))
		}
		params[i] = s
	}
	if len(fn.results) > 1 {
		return nil, fmt.Errorf("multiple results")
	}
	var result *scalar
	if len(fn.results) == 1 {
		s, ok := scalarFor(fn.results[0])
		if !ok {
			return nil, fmt.Errorf("result: unsupported WIT type %s", witName(fn.results[0]))
		}
		result = &s
	}

	return func(ctx context.Context, _ any, args []any) (any, error) {
		if len(args) > len(params) {
			return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path("args").
				Detail("expects %d arguments, got %d", len(params), len(args)).
				Build()
		}
		stack := make([]uint64, len(params))
		for i, p := range params {
			var arg any
			if i < len(args) {
				arg = args[i]
			}
			v, err := typesys.Coerce(arg, p.goType, []string{"args", fmt.Sprint(i)})
			if err != nil {
				return nil, err
			}
			stack[i] = p.lower(v)
		}

		if ctx == nil {
			ctx = context.Background()
		}
		mu.Lock()
		out, err := f.Call(ctx, stack...)
		mu.Unlock()
		if err != nil {
			return nil, err
		}
		if result == nil || len(out) == 0 {
			return nil, nil
		}
		return result.lift(out[0]), nil
	}, nil
}

// scalar maps a WIT scalar onto a core value type.
type scalar struct {
	goType reflect.Type
	lower  func(reflect.Value) uint64
	lift   func(uint64) any
}

func scalarFor(t wit.Type) (scalar, bool) {
	switch t.(type) {
	case wit.Bool:
		return scalar{
			goType: reflect.TypeOf(false),
			lower: func(v reflect.Value) uint64 {
				if v.Bool() {
					return 1
				}
				return 0
			},
			lift: func(x uint64) any { return uint32(x) != 0 },
		}, true
	case wit.S8:
		return signed(reflect.TypeOf(int8(0)), func(x int32) any { return int8(x) }), true
	case wit.S16:
		return signed(reflect.TypeOf(int16(0)), func(x int32) any { return int16(x) }), true
	case wit.S32:
		return signed(reflect.TypeOf(int32(0)), func(x int32) any { return x }), true
	case wit.U8:
		return unsigned(reflect.TypeOf(uint8(0)), func(x uint32) any { return uint8(x) }), true
	case wit.U16:
		return unsigned(reflect.TypeOf(uint16(0)), func(x uint32) any { return uint16(x) }), true
	case wit.U32:
		return unsigned(reflect.TypeOf(uint32(0)), func(x uint32) any { return x }), true
	case wit.S64:
		return scalar{
			goType: reflect.TypeOf(int64(0)),
			lower:  func(v reflect.Value) uint64 { return api.EncodeI64(v.Int()) },
			lift:   func(x uint64) any { return int64(x) },
		}, true
	case wit.U64:
		return scalar{
			goType: reflect.TypeOf(uint64(0)),
			lower:  func(v reflect.Value) uint64 { return v.Uint() },
			lift:   func(x uint64) any { return x },
		}, true
	case wit.F32:
		return scalar{
			goType: reflect.TypeOf(float32(0)),
			lower:  func(v reflect.Value) uint64 { return api.EncodeF32(float32(v.Float())) },
			lift:   func(x uint64) any { return api.DecodeF32(x) },
		}, true
	case wit.F64:
		return scalar{
			goType: reflect.TypeOf(float64(0)),
			lower:  func(v reflect.Value) uint64 { return api.EncodeF64(v.Float()) },
			lift:   func(x uint64) any { return api.DecodeF64(x) },
		}, true
	}
	return scalar{}, false
}

func signed(rt reflect.Type, lift func(int32) any) scalar {
	return scalar{
		goType: rt,
		lower:  func(v reflect.Value) uint64 { return api.EncodeI32(int32(v.Int())) },
		lift:   func(x uint64) any { return lift(api.DecodeI32(x)) },
	}
}

func unsigned(rt reflect.Type, lift func(uint32) any) scalar {
	return scalar{
		goType: rt,
		lower:  func(v reflect.Value) uint64 { return api.EncodeU32(uint32(v.Uint())) },
		lift:   func(x uint64) any { return lift(api.DecodeU32(x)) },
	}
}

func witName(t wit.Type) string {
	return fmt.Sprintf("%T", t)
}
