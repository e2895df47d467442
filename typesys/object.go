package typesys

import (
	"sort"
	"sync"
)

// ObjectFQN is the name of the type-erased object type. It resolves
// without any module.
const ObjectFQN = "Object"

// Object is a type-erased bag of properties, the result of
// create("Object").
type Object struct {
	props map[string]any
	mu    sync.RWMutex
}

// NewObject creates an empty object.
func NewObject() *Object {
	return &Object{props: make(map[string]any)}
}

// Get returns a property.
func (o *Object) Get(name string) (any, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	v, ok := o.props[name]
	return v, ok
}

// Set writes a property.
func (o *Object) Set(name string, v any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.props[name] = v
}

// Keys returns the property names in order.
func (o *Object) Keys() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	keys := make([]string, 0, len(o.props))
	for k := range o.props {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
