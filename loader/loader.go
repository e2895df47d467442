package loader

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/wippyai/jsii-kernel/typesys"
)

// Loader resolves a locator into a module named name.
type Loader interface {
	Load(ctx context.Context, name, locator string) (*typesys.Module, error)
}

// Func adapts a function to Loader.
type Func func(ctx context.Context, name, locator string) (*typesys.Module, error)

func (f Func) Load(ctx context.Context, name, locator string) (*typesys.Module, error) {
	return f(ctx, name, locator)
}

// Mux routes locators to loaders by scheme. The scheme is stripped before
// the loader sees the locator.
type Mux struct {
	schemes map[string]Loader
	mu      sync.RWMutex
}

func NewMux() *Mux {
	return &Mux{schemes: make(map[string]Loader)}
}

// Handle registers l for scheme, replacing any previous loader.
func (m *Mux) Handle(scheme string, l Loader) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schemes[scheme] = l
}

// Schemes lists the registered schemes.
func (m *Mux) Schemes() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.schemes))
	for s := range m.schemes {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (m *Mux) Load(ctx context.Context, name, locator string) (*typesys.Module, error) {
	scheme, rest := splitLocator(locator)

	m.mu.RLock()
	l, ok := m.schemes[scheme]
	m.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no loader for locator %q", locator)
	}
	return l.Load(ctx, name, rest)
}

// splitLocator separates the scheme from a locator. A single letter
// before the colon is a Windows drive, not a scheme.
func splitLocator(locator string) (scheme, rest string) {
	if s, r, ok := strings.Cut(locator, ":"); ok && len(s) > 1 && !strings.ContainsAny(s, `/\.`) {
		return s, r
	}
	if strings.HasSuffix(locator, ".wasm") {
		return SchemeWasm, locator
	}
	return "", locator
}

const (
	SchemeGo   = "go"
	SchemeWasm = "wasm"
)
