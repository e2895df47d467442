package resource

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/google/uuid"

	"github.com/wippyai/jsii-kernel/errors"
)

// Table maps handles to native objects and objects back to handles.
// It is safe for concurrent use. The object lock is not held while
// observers or Drop methods run.
type Table struct {
	objects   map[Handle]entry
	handles   map[any]Handle
	observers []subscription
	nextSub   int
	mu        sync.RWMutex
	obsMu     sync.RWMutex
	closed    bool
}

type entry struct {
	value any
	fqn   string
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{
		objects: make(map[Handle]entry),
		handles: make(map[any]Handle),
	}
}

// Intern returns the handle of v, allocating one on first sight. v must be
// a non-nil pointer: identity is pointer identity.
func (t *Table) Intern(fqn string, v any) (Handle, error) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return "", errors.New(errors.PhaseEncode, errors.KindUnsupported).
			GoType(fmt.Sprintf("%T", v)).
			Detail("only non-nil pointers can be interned").
			Build()
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return "", errors.InvalidInput(errors.PhaseEncode, "object table closed")
	}
	if h, ok := t.handles[v]; ok {
		t.mu.Unlock()
		return h, nil
	}
	h := Handle(fqn + "@" + uuid.NewString())
	t.objects[h] = entry{value: v, fqn: fqn}
	t.handles[v] = h
	t.mu.Unlock()

	t.notify(Event{Type: EventInterned, Handle: h, FQN: fqn, Value: v})
	return h, nil
}

// Lookup returns the handle already issued for v, if any.
func (t *Table) Lookup(v any) (Handle, bool) {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer {
		return "", false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	h, ok := t.handles[v]
	return h, ok
}

// Resolve returns the object behind h.
func (t *Table) Resolve(h Handle) (any, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.objects[h]
	if !ok {
		return nil, errors.UnknownHandle(string(h))
	}
	return e.value, nil
}

// FQN returns the type name h was interned with.
func (t *Table) FQN(h Handle) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.objects[h]
	return e.fqn, ok
}

// Release forgets h. The object's Drop method runs if it has one.
func (t *Table) Release(h Handle) error {
	return t.remove(h, true)
}

// Forget removes h without running Drop. It undoes an Intern whose
// operation failed afterwards; the object is still owned natively.
func (t *Table) Forget(h Handle) error {
	return t.remove(h, false)
}

func (t *Table) remove(h Handle, drop bool) error {
	t.mu.Lock()
	e, ok := t.objects[h]
	if !ok {
		t.mu.Unlock()
		return errors.UnknownHandle(string(h))
	}
	delete(t.objects, h)
	delete(t.handles, e.value)
	t.mu.Unlock()

	if d, ok := e.value.(Dropper); ok && drop {
		d.Drop()
	}
	t.notify(Event{Type: EventReleased, Handle: h, FQN: e.fqn, Value: e.value})
	return nil
}

type subscription struct {
	observer Observer
	id       int
}

// Subscribe adds an observer for lifecycle events and returns a function
// that removes it again.
func (t *Table) Subscribe(o Observer) (unsubscribe func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextSub++
	id := t.nextSub
	t.observers = append(t.observers, subscription{observer: o, id: id})

	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		for i, s := range t.observers {
			if s.id == id {
				t.observers = append(t.observers[:i], t.observers[i+1:]...)
				return
			}
		}
	}
}

// Len returns the number of live handles.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.objects)
}

// Close releases every handle and stops accepting new ones.
func (t *Table) Close() error {
	t.mu.Lock()
	t.closed = true
	handles := make([]Handle, 0, len(t.objects))
	for h := range t.objects {
		handles = append(handles, h)
	}
	t.mu.Unlock()

	for _, h := range handles {
		_ = t.Release(h)
	}
	return nil
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	for _, s := range t.observers {
		s.observer.OnObjectEvent(e)
	}
}
