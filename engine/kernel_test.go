package engine

import (
	"context"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/loader"
	"github.com/wippyai/jsii-kernel/resource"
	"github.com/wippyai/jsii-kernel/testbed/calc"
	"github.com/wippyai/jsii-kernel/typesys"
	"github.com/wippyai/jsii-kernel/wire"
)

func defineBoom(m *typesys.Module) {
	m.Type("Bomb").
		StaticMethod("explode", func() int { panic("kaboom") }).
		StaticMethod("channel", func() chan int { return make(chan int) })
}

func newKernel(t *testing.T, opts ...Option) *Kernel {
	t.Helper()
	cat := loader.NewCatalog()
	cat.Register(calc.Name, calc.Define)
	cat.Register("boom", defineBoom)
	mux := loader.NewMux()
	mux.Handle(loader.SchemeGo, cat)

	reg := linker.NewRegistry(mux)
	table := resource.NewTable()
	t.Cleanup(func() {
		_ = table.Close()
		_ = reg.Close()
	})

	k := New(reg, table, opts...)
	do(t, k, wire.Request{API: wire.APILoad, Name: "calc", Locator: "go:calc"})
	return k
}

func do(t *testing.T, k *Kernel, req wire.Request) any {
	t.Helper()
	resp := k.Handle(context.Background(), req)
	require.NoError(t, resp.Err(), "request %s", req)
	return resp.Result
}

func fail(t *testing.T, k *Kernel, req wire.Request) *wire.Fault {
	t.Helper()
	resp := k.Handle(context.Background(), req)
	require.NotNil(t, resp.Fault, "request %s should fail, got %v", req, resp.Result)
	return resp.Fault
}

func create(t *testing.T, k *Kernel, fqn string, args ...any) string {
	t.Helper()
	ref := do(t, k, wire.Request{API: wire.APICreate, FQN: fqn, Args: args})
	h, ok := wire.AsRef(ref)
	require.True(t, ok, "create should return a reference, got %v", ref)
	return h
}

func TestScenario_Adder(t *testing.T) {
	k := newKernel(t)

	h1 := create(t, k, "calc.Adder", 10.0)
	assert.True(t, strings.HasPrefix(h1, "calc.Adder@"), "handle %q", h1)

	got := do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h1, Method: "add", Args: []any{5.0}})
	assert.Equal(t, 15.0, got)

	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: "unknown-handle", Method: "add", Args: []any{5.0}})
	assert.Equal(t, "UnknownHandleError", f.Name)

	do(t, k, wire.Request{API: wire.APISet, ObjRef: h1, Property: "base", Value: 20.0, HasValue: true})
	got = do(t, k, wire.Request{API: wire.APIGet, ObjRef: h1, Property: "base"})
	assert.Equal(t, 20.0, got)
}

func TestScenario_StaticCall(t *testing.T) {
	k := newKernel(t)
	got := do(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "calc.MathUtils", Method: "square", Args: []any{4.0}})
	assert.Equal(t, 16.0, got)
	assert.Equal(t, 0, k.Table().Len(), "static call needs no instance")
}

func TestIdentityPreservation(t *testing.T) {
	k := newKernel(t)
	h := create(t, k, "calc.Adder", 1.0)

	self := do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "self"})
	assert.Equal(t, wire.Ref(h), self)

	clone := do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "clone"})
	ch, ok := wire.AsRef(clone)
	require.True(t, ok)
	assert.NotEqual(t, h, ch, "equal but distinct instances get distinct handles")

	a, _ := k.Table().Resolve(resource.Handle(h))
	b, _ := k.Table().Resolve(resource.Handle(ch))
	assert.NotSame(t, a, b)
}

func TestIdempotentLoad(t *testing.T) {
	k := newKernel(t)
	before, _ := k.Registry().Module("calc")

	do(t, k, wire.Request{API: wire.APILoad, Name: "calc", Locator: "go:does-not-exist"})
	after, _ := k.Registry().Module("calc")
	assert.Same(t, before, after)

	f := fail(t, k, wire.Request{API: wire.APILoad, Name: "other", Locator: "go:does-not-exist"})
	assert.Equal(t, "ModuleLoadError", f.Name)
}

func TestTypeErasedObject(t *testing.T) {
	k := newKernel(t)
	h := create(t, k, typesys.ObjectFQN)
	assert.True(t, strings.HasPrefix(h, "Object@"))

	adder := create(t, k, "calc.Adder", 2.0)
	do(t, k, wire.Request{API: wire.APISet, ObjRef: h, Property: "peer", Value: wire.Ref(adder), HasValue: true})
	do(t, k, wire.Request{API: wire.APISet, ObjRef: h, Property: "n", Value: 3.0, HasValue: true})

	assert.Equal(t, wire.Ref(adder), do(t, k, wire.Request{API: wire.APIGet, ObjRef: h, Property: "peer"}))
	assert.Equal(t, 3.0, do(t, k, wire.Request{API: wire.APIGet, ObjRef: h, Property: "n"}))
	assert.Nil(t, do(t, k, wire.Request{API: wire.APIGet, ObjRef: h, Property: "unset"}))

	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "anything"})
	assert.Equal(t, "MemberNotFoundError", f.Name)

	other := create(t, k, typesys.ObjectFQN)
	assert.NotEqual(t, h, other, "each create returns a fresh object")
}

func TestResolutionErrors(t *testing.T) {
	k := newKernel(t)
	h := create(t, k, "calc.Adder", 1.0)

	tests := []struct {
		name string
		req  wire.Request
		want string
	}{
		{"unloaded module", wire.Request{API: wire.APICreate, FQN: "nope.Adder"}, "ModuleNotFoundError"},
		{"missing type", wire.Request{API: wire.APICreate, FQN: "calc.Subtractor"}, "MemberNotFoundError"},
		{"no constructor", wire.Request{API: wire.APICreate, FQN: "calc.MathUtils"}, "MemberNotFoundError"},
		{"missing method", wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "subtract"}, "MemberNotFoundError"},
		{"property as method", wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "base"}, "MemberNotFoundError"},
		{"method as property", wire.Request{API: wire.APIGet, ObjRef: h, Property: "add"}, "MemberNotFoundError"},
		{"static as instance", wire.Request{API: wire.APIStaticInvoke, FQN: "calc.Adder", Method: "add"}, "MemberNotFoundError"},
		{"missing static property", wire.Request{API: wire.APIStaticGet, FQN: "calc.MathUtils", Property: "nope"}, "MemberNotFoundError"},
		{"set static method", wire.Request{API: wire.APIStaticSet, FQN: "calc.MathUtils", Property: "square", Value: 1.0, HasValue: true}, "MemberNotFoundError"},
		{"unknown handle in args", wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "add", Args: []any{wire.Ref("calc.Adder@gone")}}, "UnknownHandleError"},
		{"unknown enum member", wire.Request{API: wire.APIStaticInvoke, FQN: "calc.Calculator", Method: "apply", Args: []any{wire.Enum("calc.Op", "DIV"), 1.0, 2.0}}, "MemberNotFoundError"},
		{"unknown api", wire.Request{API: "frobnicate"}, "ProtocolError"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := fail(t, k, tt.req)
			assert.Equal(t, tt.want, f.Name, f.Message)
		})
	}

	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "subtract"})
	assert.Contains(t, f.Message, "calc.Adder")
	assert.Contains(t, f.Message, "subtract")
}

func TestInvocationErrors(t *testing.T) {
	k := newKernel(t)
	do(t, k, wire.Request{API: wire.APILoad, Name: "boom", Locator: "go:boom"})
	h := create(t, k, "calc.Adder", 1.0)

	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "divide", Args: []any{0.0}})
	assert.Equal(t, "InvocationError", f.Name)
	assert.Contains(t, f.Message, "division by zero")

	f = fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "add", Args: []any{"five"}})
	assert.Equal(t, "InvocationError", f.Name, "argument coercion happens inside the native call")

	f = fail(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "boom.Bomb", Method: "explode"})
	assert.Equal(t, "InvocationError", f.Name)
	assert.Contains(t, f.Message, "kaboom")
	assert.NotEmpty(t, f.Stack, "panic stack is forwarded")

	f = fail(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "boom.Bomb", Method: "channel"})
	assert.Equal(t, "UnsupportedError", f.Name)

	// The kernel keeps working after a panic.
	assert.Equal(t, 3.0, do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "add", Args: []any{2.0}}))
}

func TestFailedOperationsLeaveStateUnchanged(t *testing.T) {
	k := newKernel(t)
	h := create(t, k, "calc.Adder", 1.0)
	before := k.Table().Len()
	modules := k.Registry().Names()

	fail(t, k, wire.Request{API: wire.APICreate, FQN: "calc.Adder", Args: []any{wire.Ref("calc.Adder@gone")}})
	fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "divide", Args: []any{0.0}})
	fail(t, k, wire.Request{API: wire.APILoad, Name: "x", Locator: "go:missing"})
	fail(t, k, wire.Request{API: wire.APISet, ObjRef: h, Property: "base", Value: "str", HasValue: true})

	assert.Equal(t, before, k.Table().Len())
	assert.Equal(t, modules, k.Registry().Names())
	assert.Equal(t, 1.0, do(t, k, wire.Request{API: wire.APIGet, ObjRef: h, Property: "base"}))
}

func TestStaticProperty(t *testing.T) {
	k := newKernel(t)
	original := calc.Precision()
	t.Cleanup(func() { _ = calc.SetPrecision(original) })

	do(t, k, wire.Request{API: wire.APIStaticSet, FQN: "calc.MathUtils", Property: "precision", Value: 4.0, HasValue: true})
	assert.Equal(t, 4.0, do(t, k, wire.Request{API: wire.APIStaticGet, FQN: "calc.MathUtils", Property: "precision"}))

	f := fail(t, k, wire.Request{API: wire.APIStaticSet, FQN: "calc.MathUtils", Property: "precision", Value: -1.0, HasValue: true})
	assert.Equal(t, "InvocationError", f.Name)
	assert.Equal(t, 4, calc.Precision())
}

func TestValues(t *testing.T) {
	k := newKernel(t)

	got := do(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "calc.Calculator", Method: "apply",
		Args: []any{wire.Enum("calc.Op", "MUL"), 3.0, 4.0}})
	assert.Equal(t, 12.0, got)

	day := time.Date(2024, 2, 28, 0, 0, 0, 0, time.UTC)
	got = do(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "calc.Clock", Method: "addDays",
		Args: []any{wire.Date(day), 2.0}})
	assert.Equal(t, wire.Date(day.AddDate(0, 0, 2)), got)

	got = do(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "calc.MathUtils", Method: "midpoint",
		Args: []any{map[string]any{"x": 0.0, "y": 0.0}, map[string]any{"x": 2.0, "y": 4.0}}})
	assert.Equal(t, map[string]any{"x": 1.0, "y": 2.0}, got)

	h := create(t, k, "calc.Geometry.Circle", 1.0)
	assert.InDelta(t, math.Pi, do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "area"}), 1e-12)
}

func TestReentrancy(t *testing.T) {
	k := newKernel(t)
	relay := create(t, k, "calc.Relay")

	got := do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: relay, Method: "squareSum", Args: []any{3.0, 4.0}})
	assert.Equal(t, 25.0, got)

	got = do(t, k, wire.Request{API: wire.APIInvoke, ObjRef: relay, Method: "addThrough", Args: []any{10.0, 5.0}})
	assert.Equal(t, 15.0, got, "nested create and invoke on a different handle")

	got = do(t, k, wire.Request{API: wire.APIStaticInvoke, FQN: "calc.Relay", Method: "countdown", Args: []any{5.0}})
	assert.Equal(t, 5.0, got)

	assert.Equal(t, 3.0, do(t, k, wire.Request{API: wire.APIGet, ObjRef: relay, Property: "calls"}))
}

func TestReentrantFailure_Handles(t *testing.T) {
	k := newKernel(t)
	ctx := typesys.WithCaller(context.Background(), k)

	// A nested failure is an ordinary response to the native caller.
	caller, ok := typesys.CallerFrom(ctx)
	require.True(t, ok)
	resp := caller.Call(ctx, wire.Request{API: wire.APIInvoke, ObjRef: "nope", Method: "x"})
	require.NotNil(t, resp.Fault)
	assert.Equal(t, "UnknownHandleError", resp.Fault.Name)
	assert.Zero(t, k.Table().Len())

	relay := create(t, k, "calc.Relay")
	require.Equal(t, 1, k.Table().Len())

	// The nested create completes, then the nested add overflows to +Inf
	// and fails to encode. The created Adder stays interned; the failed
	// outer call adds nothing else.
	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: relay, Method: "addThrough", Args: []any{1e308, 1e308}})
	assert.Equal(t, "InvocationError", f.Name)
	assert.Contains(t, f.Message, "non-finite")
	assert.Equal(t, 2, k.Table().Len())

	// Arguments rejected before the native call reach no nested create.
	f = fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: relay, Method: "addThrough", Args: []any{"x", 1.0}})
	assert.Equal(t, "InvocationError", f.Name)
	assert.Equal(t, 2, k.Table().Len())
}

func TestDelete(t *testing.T) {
	k := newKernel(t)
	h := create(t, k, "calc.Adder", 1.0)

	assert.Nil(t, do(t, k, wire.Request{API: wire.APIDelete, ObjRef: h}))
	f := fail(t, k, wire.Request{API: wire.APIInvoke, ObjRef: h, Method: "add", Args: []any{1.0}})
	assert.Equal(t, "UnknownHandleError", f.Name)

	f = fail(t, k, wire.Request{API: wire.APIDelete, ObjRef: h})
	assert.Equal(t, "UnknownHandleError", f.Name)

	again := create(t, k, "calc.Adder", 1.0)
	assert.NotEqual(t, h, again, "handles are never reused")
}

func TestKernelMethods(t *testing.T) {
	k := newKernel(t)
	ctx := context.Background()

	ref, err := k.Create(ctx, "calc.Adder", []any{2.0})
	require.NoError(t, err)
	h, _ := wire.AsRef(ref)

	got, err := k.Invoke(ctx, h, "add", []any{3.0})
	require.NoError(t, err)
	assert.Equal(t, 5.0, got)

	got, err = k.InvokeStatic(ctx, "calc.MathUtils", "square", []any{3.0})
	require.NoError(t, err)
	assert.Equal(t, 9.0, got)

	require.NoError(t, k.Set(ctx, h, "base", 7.0))
	got, err = k.Get(ctx, h, "base")
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)

	require.NoError(t, k.Delete(ctx, h))
	_, err = k.Get(ctx, h, "base")
	assert.Error(t, err)
}
