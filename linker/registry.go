package linker

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/loader"
	"github.com/wippyai/jsii-kernel/typesys"
)

// Registry maps symbolic module names to loaded modules. A name is bound
// once; later loads of the same name are no-ops that never consult the
// locator.
type Registry struct {
	loader  loader.Loader
	modules map[string]*typesys.Module
	index   map[reflect.Type]*typesys.Type
	group   singleflight.Group
	mu      sync.RWMutex
}

func NewRegistry(l loader.Loader) *Registry {
	return &Registry{
		loader:  l,
		modules: make(map[string]*typesys.Module),
		index:   make(map[reflect.Type]*typesys.Type),
	}
}

// Load binds name to the module locator resolves to. Failures are
// reported as ModuleLoadError and leave the registry unchanged.
func (r *Registry) Load(ctx context.Context, name, locator string) error {
	if name == "" {
		return errors.ModuleLoad(name, locator, fmt.Errorf("module name is empty"))
	}
	if _, ok := r.Module(name); ok {
		Logger().Debug("module already loaded", zap.String("name", name))
		return nil
	}

	_, err, shared := r.group.Do(name, func() (any, error) {
		if _, ok := r.Module(name); ok {
			return nil, nil
		}
		m, err := r.loader.Load(ctx, name, locator)
		if err != nil {
			return nil, errors.ModuleLoad(name, locator, err)
		}
		if m.Name() != name {
			_ = m.Close()
			return nil, errors.ModuleLoad(name, locator, fmt.Errorf("loader returned module %q", m.Name()))
		}
		r.add(m)
		Logger().Info("module loaded", zap.String("name", name), zap.String("locator", locator))
		return nil, nil
	})
	if shared {
		Logger().Debug("joined in-flight load", zap.String("name", name))
	}
	return err
}

func (r *Registry) add(m *typesys.Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Name()] = m
	m.Walk(func(t *typesys.Type) {
		gt := t.GoType()
		if gt == nil {
			return
		}
		if _, taken := r.index[gt]; !taken {
			r.index[gt] = t
		}
	})
}

// Module returns a loaded module.
func (r *Registry) Module(name string) (*typesys.Module, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.modules[name]
	return m, ok
}

// Names lists loaded module names in order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.modules))
	for n := range r.modules {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// TypeFor returns the type describing native values of rt. When several
// modules describe one Go type, the first loaded wins.
func (r *Registry) TypeFor(rt reflect.Type) (*typesys.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.index[rt]
	return t, ok
}

// Close closes every loaded module and empties the registry.
func (r *Registry) Close() error {
	r.mu.Lock()
	mods := r.modules
	r.modules = make(map[string]*typesys.Module)
	r.index = make(map[reflect.Type]*typesys.Type)
	r.mu.Unlock()

	var errs []error
	for _, m := range mods {
		if err := m.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}
