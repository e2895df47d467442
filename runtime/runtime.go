package runtime

import (
	"context"
	stderrors "errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/wippyai/jsii-kernel/config"
	"github.com/wippyai/jsii-kernel/engine"
	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/loader"
	"github.com/wippyai/jsii-kernel/resource"
)

// Version is reported in the server handshake.
const Version = "0.1.0"

// Options configures a Runtime.
type Options struct {
	Logger *zap.Logger
	// TraceLogger receives the trace lines. Defaults to Logger named
	// "trace".
	TraceLogger *zap.Logger
	Trace       engine.TraceOptions
	Wasm        loader.WasmConfig
}

// OptionsFrom builds runtime options from a configuration. tty reports
// whether the trace would go to a terminal.
func OptionsFrom(cfg *config.Config, log *zap.Logger, tty bool) Options {
	return Options{
		Logger: log,
		Trace: engine.TraceOptions{
			Enabled:   cfg.TraceEnabled(tty),
			MaxArgLen: cfg.Trace.MaxArgLen,
		},
		Wasm: loader.WasmConfig{MemoryLimitPages: cfg.Wasm.MemoryLimitPages},
	}
}

// Runtime is one kernel context: the loaders, the module registry, the
// handle table and the kernel dispatching over them.
type Runtime struct {
	log         *zap.Logger
	catalog     *loader.Catalog
	wasm        *loader.Wasm
	registry    *linker.Registry
	table       *resource.Table
	kernel      *engine.Kernel
	unsubscribe func()
}

func New(ctx context.Context, opts Options) *Runtime {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	catalog := loader.NewCatalog()
	wasm := loader.NewWasm(ctx, opts.Wasm)
	mux := loader.NewMux()
	mux.Handle(loader.SchemeGo, catalog)
	mux.Handle(loader.SchemeWasm, wasm)

	registry := linker.NewRegistry(mux)
	table := resource.NewTable()
	traceLog := opts.TraceLogger
	if traceLog == nil {
		traceLog = log.Named("trace")
	}

	r := &Runtime{
		log:      log,
		catalog:  catalog,
		wasm:     wasm,
		registry: registry,
		table:    table,
		kernel: engine.New(registry, table,
			engine.WithTrace(engine.NewTrace(traceLog, opts.Trace))),
	}
	r.unsubscribe = table.Subscribe(resource.ObserverFunc(r.onObject))
	return r
}

// Kernel returns the kernel of this runtime.
func (r *Runtime) Kernel() *engine.Kernel {
	return r.kernel
}

// Catalog returns the in-process module catalog behind "go:" locators.
func (r *Runtime) Catalog() *loader.Catalog {
	return r.catalog
}

// Server returns a channel server for this runtime's kernel.
func (r *Runtime) Server() *Server {
	return NewServer(r.kernel, r.log)
}

// Preload loads modules concurrently and returns the first failure.
// Modules that loaded stay loaded.
func (r *Runtime) Preload(ctx context.Context, modules []config.Module) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(preloadLimit)
	for _, m := range modules {
		g.Go(func() error {
			return r.kernel.Load(gctx, m.Name, m.Locator)
		})
	}
	return g.Wait()
}

const preloadLimit = 4

// Close releases all handles, closes the loaded modules and shuts the
// WebAssembly runtime down.
func (r *Runtime) Close(ctx context.Context) error {
	r.unsubscribe()
	return stderrors.Join(
		r.table.Close(),
		r.registry.Close(),
		r.wasm.Close(ctx),
	)
}

func (r *Runtime) onObject(e resource.Event) {
	switch e.Type {
	case resource.EventInterned:
		r.log.Debug("object interned", zap.Stringer("handle", e.Handle))
	case resource.EventReleased:
		r.log.Debug("object released", zap.Stringer("handle", e.Handle))
	}
}
