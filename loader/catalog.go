package loader

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/wippyai/jsii-kernel/typesys"
)

// Definer declares types into a module.
type Definer func(m *typesys.Module)

// Catalog holds modules implemented in this process. Each Load builds a
// fresh module under the requested name from the definers registered for
// the locator.
type Catalog struct {
	defs map[string][]Definer
	mu   sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string][]Definer)}
}

// Register adds a definer under key. Several definers may share a key;
// they run in registration order.
func (c *Catalog) Register(key string, def Definer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.defs[key] = append(c.defs[key], def)
}

// Keys lists the registered keys.
func (c *Catalog) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.defs))
	for k := range c.defs {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Load(_ context.Context, name, key string) (*typesys.Module, error) {
	c.mu.RLock()
	defs := c.defs[key]
	c.mu.RUnlock()
	if len(defs) == 0 {
		return nil, fmt.Errorf("no in-process module %q", key)
	}

	m := typesys.NewModule(name)
	for _, def := range defs {
		def(m)
	}
	if err := m.Err(); err != nil {
		return nil, err
	}
	return m, nil
}
