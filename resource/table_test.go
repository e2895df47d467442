package resource

import (
	stderrors "errors"
	"strings"
	"sync"
	"testing"

	"github.com/wippyai/jsii-kernel/errors"
)

type widget struct {
	n int
}

type testObserver struct {
	events []Event
}

func (o *testObserver) OnObjectEvent(e Event) {
	o.events = append(o.events, e)
}

func TestTable_Basic(t *testing.T) {
	table := NewTable()
	w := &widget{n: 1}

	h, err := table.Intern("calc.Widget", w)
	if err != nil {
		t.Fatalf("Intern failed: %v", err)
	}
	if h == "" {
		t.Fatal("Expected non-empty handle")
	}
	if !strings.HasPrefix(string(h), "calc.Widget@") {
		t.Fatalf("Expected fqn prefix, got %s", h)
	}

	val, err := table.Resolve(h)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if val.(*widget) != w {
		t.Fatal("Resolve returned a different object")
	}

	fqn, ok := table.FQN(h)
	if !ok || fqn != "calc.Widget" {
		t.Fatalf("FQN = %q, %v", fqn, ok)
	}

	if err := table.Release(h); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected Len() == 0 after Release")
	}
	if _, err := table.Resolve(h); !stderrors.Is(err, errors.ErrUnknownHandle) {
		t.Fatalf("Expected UnknownHandleError after Release, got %v", err)
	}
}

func TestTable_IdentityNotEquality(t *testing.T) {
	table := NewTable()
	a := &widget{n: 1}
	b := &widget{n: 1}

	ha, _ := table.Intern("calc.Widget", a)
	again, _ := table.Intern("calc.Widget", a)
	hb, _ := table.Intern("calc.Widget", b)

	if ha != again {
		t.Fatalf("same instance produced two handles: %s, %s", ha, again)
	}
	if ha == hb {
		t.Fatal("equal but distinct instances share a handle")
	}
	if table.Len() != 2 {
		t.Fatalf("Expected 2 live handles, got %d", table.Len())
	}
	if h, ok := table.Lookup(a); !ok || h != ha {
		t.Fatalf("Lookup = %s, %v", h, ok)
	}
}

func TestTable_ReleasedHandlesAreNotReused(t *testing.T) {
	table := NewTable()
	w := &widget{}

	h1, _ := table.Intern("calc.Widget", w)
	if err := table.Release(h1); err != nil {
		t.Fatal(err)
	}
	h2, _ := table.Intern("calc.Widget", w)
	if h1 == h2 {
		t.Fatal("re-interning after release reused the old handle")
	}
}

func TestTable_UnknownHandle(t *testing.T) {
	table := NewTable()
	if _, err := table.Resolve("nonexistent"); !stderrors.Is(err, errors.ErrUnknownHandle) {
		t.Fatalf("Expected UnknownHandleError, got %v", err)
	}
	if err := table.Release("nonexistent"); !stderrors.Is(err, errors.ErrUnknownHandle) {
		t.Fatalf("Expected UnknownHandleError, got %v", err)
	}
}

func TestTable_RejectsNonPointers(t *testing.T) {
	table := NewTable()
	for _, v := range []any{nil, 42, "str", widget{}, (*widget)(nil)} {
		if _, err := table.Intern("x", v); err == nil {
			t.Errorf("Intern(%#v) should fail", v)
		}
	}
}

func TestTable_Observer(t *testing.T) {
	table := NewTable()
	obs := &testObserver{}
	unsubscribe := table.Subscribe(obs)

	h, _ := table.Intern("calc.Widget", &widget{})
	if len(obs.events) != 1 || obs.events[0].Type != EventInterned || obs.events[0].Handle != h {
		t.Fatalf("Expected one EventInterned, got %+v", obs.events)
	}

	// re-intern is not a new event
	v, _ := table.Resolve(h)
	table.Intern("calc.Widget", v)
	if len(obs.events) != 1 {
		t.Fatalf("Expected no event on re-intern, got %d", len(obs.events))
	}

	table.Release(h)
	if len(obs.events) != 2 || obs.events[1].Type != EventReleased {
		t.Fatalf("Expected EventReleased, got %+v", obs.events)
	}

	unsubscribe()
	table.Intern("calc.Widget", &widget{})
	if len(obs.events) != 2 {
		t.Fatal("Should not receive events after unsubscribe")
	}
}

type dropCounter struct {
	count int
}

func (d *dropCounter) Drop() {
	d.count++
}

func TestTable_DropperInterface(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h, _ := table.Intern("calc.Counter", d)
	table.Release(h)

	if d.count != 1 {
		t.Fatalf("Expected Drop() to be called once, called %d times", d.count)
	}
}

func TestTable_Forget(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}

	h, _ := table.Intern("calc.Counter", d)
	if err := table.Forget(h); err != nil {
		t.Fatalf("Forget failed: %v", err)
	}
	if d.count != 0 {
		t.Fatal("Forget must not call Drop")
	}
	if _, err := table.Resolve(h); err == nil {
		t.Fatal("Expected forgotten handle to be unknown")
	}
	if err := table.Forget(h); err == nil {
		t.Fatal("Expected second Forget to fail")
	}
}

func TestTable_Close(t *testing.T) {
	table := NewTable()
	d := &dropCounter{}
	table.Intern("calc.Counter", d)
	table.Intern("calc.Widget", &widget{})

	if err := table.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if table.Len() != 0 {
		t.Fatal("Expected empty table after Close")
	}
	if d.count != 1 {
		t.Fatal("Expected Drop on Close")
	}
	if _, err := table.Intern("calc.Widget", &widget{}); err == nil {
		t.Fatal("Expected Intern to fail after Close")
	}
}

func TestTable_ConcurrentIntern(t *testing.T) {
	table := NewTable()
	w := &widget{}

	var wg sync.WaitGroup
	handles := make([]Handle, 32)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			handles[i], _ = table.Intern("calc.Widget", w)
		}(i)
	}
	wg.Wait()

	for _, h := range handles[1:] {
		if h != handles[0] {
			t.Fatalf("concurrent interns disagree: %s vs %s", h, handles[0])
		}
	}
}
