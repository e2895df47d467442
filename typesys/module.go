package typesys

import (
	stderrors "errors"
	"io"
	"reflect"
	"sort"
	"strings"
)

// Module is a named export graph of types.
//
// Builder methods on Type record the first problem they hit in the module
// instead of returning it, so a definition reads as a list of
// declarations; loaders check Err once the definition is complete.
type Module struct {
	types   map[string]*Type
	index   map[reflect.Type]*Type
	name    string
	closers []io.Closer
	errs    []error
}

// NewModule creates an empty module.
func NewModule(name string) *Module {
	return &Module{
		name:  name,
		types: make(map[string]*Type),
		index: make(map[reflect.Type]*Type),
	}
}

// Name returns the symbolic module name.
func (m *Module) Name() string { return m.name }

// Type returns the type at the dotted path relative to the module,
// creating it and any missing parents.
func (m *Module) Type(path string) *Type {
	segs := strings.Split(path, ".")
	fqn := m.name

	t, ok := m.types[segs[0]]
	fqn += "." + segs[0]
	if !ok {
		t = newType(m, fqn, segs[0])
		m.types[segs[0]] = t
	}
	for _, seg := range segs[1:] {
		fqn += "." + seg
		next, ok := t.nested[seg]
		if !ok {
			next = newType(m, fqn, seg)
			t.nested[seg] = next
		}
		t = next
	}
	return t
}

// Lookup walks path through the export graph. On failure it returns the
// first missing segment.
func (m *Module) Lookup(path []string) (*Type, string, bool) {
	if len(path) == 0 {
		return nil, "", false
	}
	t, ok := m.types[path[0]]
	if !ok {
		return nil, path[0], false
	}
	for _, seg := range path[1:] {
		t, ok = t.nested[seg]
		if !ok {
			return nil, seg, false
		}
	}
	return t, "", true
}

// TypeFor returns the type registered for a native Go type.
func (m *Module) TypeFor(rt reflect.Type) (*Type, bool) {
	t, ok := m.index[rt]
	return t, ok
}

// Walk visits every type depth-first in name order.
func (m *Module) Walk(fn func(*Type)) {
	var visit func(map[string]*Type)
	visit = func(types map[string]*Type) {
		names := make([]string, 0, len(types))
		for n := range types {
			names = append(names, n)
		}
		sort.Strings(names)
		for _, n := range names {
			fn(types[n])
			visit(types[n].nested)
		}
	}
	visit(m.types)
}

// Err returns the problems recorded while the module was defined.
func (m *Module) Err() error {
	return stderrors.Join(m.errs...)
}

// OnClose registers a resource released with the module.
func (m *Module) OnClose(c io.Closer) {
	m.closers = append(m.closers, c)
}

// Close releases resources registered with OnClose.
func (m *Module) Close() error {
	var errs []error
	for i := len(m.closers) - 1; i >= 0; i-- {
		if err := m.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	m.closers = nil
	return stderrors.Join(errs...)
}

func (m *Module) fail(err error) {
	m.errs = append(m.errs, err)
}

func (m *Module) bind(rt reflect.Type, t *Type) {
	if _, taken := m.index[rt]; !taken {
		m.index[rt] = t
	}
}
