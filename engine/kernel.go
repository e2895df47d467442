package engine

import (
	"context"
	stderrors "errors"
	"fmt"
	"reflect"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/linker"
	"github.com/wippyai/jsii-kernel/resource"
	"github.com/wippyai/jsii-kernel/transcoder"
	"github.com/wippyai/jsii-kernel/typesys"
	"github.com/wippyai/jsii-kernel/wire"
)

// Kernel executes kernel operations against one registry and one handle
// table. It is safe for concurrent use; requests issued from native code
// during a call nest on the caller's stack.
type Kernel struct {
	registry *linker.Registry
	resolver *linker.Resolver
	table    *resource.Table
	codec    *transcoder.Codec
	trace    *Trace
}

// Option configures a Kernel.
type Option func(*Kernel)

// WithTrace attaches a trace sink.
func WithTrace(t *Trace) Option {
	return func(k *Kernel) { k.trace = t }
}

func New(reg *linker.Registry, table *resource.Table, opts ...Option) *Kernel {
	res := linker.NewResolver(reg)
	k := &Kernel{
		registry: reg,
		resolver: res,
		table:    table,
		codec:    transcoder.New(table, res),
	}
	for _, opt := range opts {
		opt(k)
	}
	return k
}

// Registry returns the module registry.
func (k *Kernel) Registry() *linker.Registry { return k.registry }

// Table returns the handle table.
func (k *Kernel) Table() *resource.Table { return k.table }

type depthKey struct{}

func depthFrom(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Handle executes req and converts the outcome into a Response.
func (k *Kernel) Handle(ctx context.Context, req wire.Request) (resp wire.Response) {
	if ctx == nil {
		ctx = context.Background()
	}
	depth := depthFrom(ctx)
	k.trace.Before(depth, req)
	defer func() {
		if r := recover(); r != nil {
			resp = wire.Failure(errors.Invocation(req.String(), fmt.Errorf("panic: %v", r), string(debug.Stack())))
		}
		k.trace.After(depth, req, resp)
	}()

	ctx = typesys.WithCaller(context.WithValue(ctx, depthKey{}, depth+1), k)
	result, err := k.dispatch(ctx, req)
	if err != nil {
		Logger().Debug("operation failed", zap.Stringer("request", req), zap.Error(err))
		return wire.Failure(err)
	}
	return wire.OK(result)
}

// Call implements typesys.Caller.
func (k *Kernel) Call(ctx context.Context, req wire.Request) wire.Response {
	return k.Handle(ctx, req)
}

func (k *Kernel) dispatch(ctx context.Context, req wire.Request) (any, error) {
	switch req.API {
	case wire.APILoad:
		return nil, k.Load(ctx, req.Name, req.Locator)
	case wire.APICreate:
		return k.Create(ctx, req.FQN, req.Args)
	case wire.APIInvoke:
		return k.Invoke(ctx, req.ObjRef, req.Method, req.Args)
	case wire.APIStaticInvoke:
		return k.InvokeStatic(ctx, req.FQN, req.Method, req.Args)
	case wire.APIGet:
		return k.Get(ctx, req.ObjRef, req.Property)
	case wire.APIStaticGet:
		return k.GetStatic(ctx, req.FQN, req.Property)
	case wire.APISet:
		return nil, k.Set(ctx, req.ObjRef, req.Property, req.Value)
	case wire.APIStaticSet:
		return nil, k.SetStatic(ctx, req.FQN, req.Property, req.Value)
	case wire.APIDelete:
		return nil, k.Delete(ctx, req.ObjRef)
	}
	return nil, errors.Protocol("unknown api %q", req.API)
}

// Load binds name to the module locator resolves to. Loading a bound
// name again does nothing.
func (k *Kernel) Load(ctx context.Context, name, locator string) error {
	return k.registry.Load(ctx, name, locator)
}

// Create constructs an instance of fqn and returns its handle reference.
// The name "Object" creates an empty type-erased object without touching
// the registry.
func (k *Kernel) Create(ctx context.Context, fqn string, args []any) (any, error) {
	if fqn == typesys.ObjectFQN {
		return k.codec.Encode(typesys.NewObject())
	}

	t, err := k.resolver.ResolveType(fqn)
	if err != nil {
		return nil, err
	}
	ctor := t.Ctor()
	if ctor == nil {
		return nil, errors.MemberNotFound(t.FQN(), "constructor")
	}
	in, err := k.codec.DecodeArgs(args)
	if err != nil {
		return nil, err
	}

	obj, err := k.native(ctx, t.FQN(), func(ctx context.Context) (any, error) {
		return ctor.Call(ctx, nil, in)
	})
	if err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.Invocation(t.FQN(), fmt.Errorf("constructor returned nil"), "")
	}

	h, err := k.table.Intern(t.FQN(), obj)
	if err != nil {
		return nil, err
	}
	return wire.Ref(string(h)), nil
}

// Invoke calls a method on the object behind ref.
func (k *Kernel) Invoke(ctx context.Context, ref, method string, args []any) (any, error) {
	obj, t, err := k.instance(ref)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, errors.MemberNotFound(typesys.ObjectFQN, method)
	}
	m, err := k.resolver.ResolveMember(t, method, false)
	if err != nil {
		return nil, err
	}
	if m.Call == nil {
		return nil, errors.MemberNotFound(t.FQN(), method)
	}
	return k.call(ctx, t.FQN()+"."+method, m, obj, args)
}

// InvokeStatic calls a static method of fqn.
func (k *Kernel) InvokeStatic(ctx context.Context, fqn, method string, args []any) (any, error) {
	t, m, err := k.static(fqn, method)
	if err != nil {
		return nil, err
	}
	if m.Call == nil {
		return nil, errors.MemberNotFound(t.FQN(), method)
	}
	return k.call(ctx, t.FQN()+"."+method, m, nil, args)
}

// Get reads a property of the object behind ref.
func (k *Kernel) Get(ctx context.Context, ref, property string) (any, error) {
	obj, t, err := k.instance(ref)
	if err != nil {
		return nil, err
	}
	if o, ok := obj.(*typesys.Object); ok {
		v, _ := o.Get(property)
		return k.codec.Encode(v)
	}
	m, err := k.property(t, property)
	if err != nil {
		return nil, err
	}
	return k.read(ctx, t.FQN()+"."+property, m, obj)
}

// GetStatic reads a static property of fqn.
func (k *Kernel) GetStatic(ctx context.Context, fqn, property string) (any, error) {
	t, m, err := k.static(fqn, property)
	if err != nil {
		return nil, err
	}
	if m.Get == nil {
		return nil, errors.MemberNotFound(t.FQN(), property)
	}
	return k.read(ctx, t.FQN()+"."+property, m, nil)
}

// Set writes a property of the object behind ref.
func (k *Kernel) Set(ctx context.Context, ref, property string, value any) error {
	obj, t, err := k.instance(ref)
	if err != nil {
		return err
	}
	v, err := k.codec.Decode(value)
	if err != nil {
		return err
	}
	if o, ok := obj.(*typesys.Object); ok {
		o.Set(property, v)
		return nil
	}
	m, err := k.property(t, property)
	if err != nil {
		return err
	}
	return k.write(ctx, t.FQN()+"."+property, m, obj, v)
}

// SetStatic writes a static property of fqn.
func (k *Kernel) SetStatic(ctx context.Context, fqn, property string, value any) error {
	t, m, err := k.static(fqn, property)
	if err != nil {
		return err
	}
	if m.Get == nil && m.Set == nil {
		return errors.MemberNotFound(t.FQN(), property)
	}
	v, err := k.codec.Decode(value)
	if err != nil {
		return err
	}
	return k.write(ctx, t.FQN()+"."+property, m, nil, v)
}

// Delete releases ref. Later requests naming it fail with
// UnknownHandleError.
func (k *Kernel) Delete(_ context.Context, ref string) error {
	return k.table.Release(resource.Handle(ref))
}

// instance resolves a handle and the type describing its object. The type
// is nil for type-erased objects.
func (k *Kernel) instance(ref string) (any, *typesys.Type, error) {
	h := resource.Handle(ref)
	obj, err := k.table.Resolve(h)
	if err != nil {
		return nil, nil, err
	}
	if _, ok := obj.(*typesys.Object); ok {
		return obj, nil, nil
	}
	if t, ok := k.resolver.TypeFor(reflect.TypeOf(obj)); ok {
		return obj, t, nil
	}
	fqn, _ := k.table.FQN(h)
	t, err := k.resolver.ResolveType(fqn)
	if err != nil {
		return nil, nil, err
	}
	return obj, t, nil
}

func (k *Kernel) static(fqn, name string) (*typesys.Type, *typesys.Member, error) {
	t, err := k.resolver.ResolveType(fqn)
	if err != nil {
		return nil, nil, err
	}
	m, err := k.resolver.ResolveMember(t, name, true)
	if err != nil {
		return nil, nil, err
	}
	return t, m, nil
}

func (k *Kernel) property(t *typesys.Type, name string) (*typesys.Member, error) {
	m, err := k.resolver.ResolveMember(t, name, false)
	if err != nil {
		return nil, err
	}
	if m.Get == nil && m.Set == nil {
		return nil, errors.MemberNotFound(t.FQN(), name)
	}
	return m, nil
}

func (k *Kernel) call(ctx context.Context, target string, m *typesys.Member, recv any, args []any) (any, error) {
	in, err := k.codec.DecodeArgs(args)
	if err != nil {
		return nil, err
	}
	out, err := k.native(ctx, target, func(ctx context.Context) (any, error) {
		return m.Call(ctx, recv, in)
	})
	if err != nil {
		return nil, err
	}
	return k.codec.Encode(out)
}

func (k *Kernel) read(ctx context.Context, target string, m *typesys.Member, recv any) (any, error) {
	if m.Get == nil {
		return nil, errors.Invocation(target, fmt.Errorf("property is write-only"), "")
	}
	v, err := k.native(ctx, target, func(ctx context.Context) (any, error) {
		return m.Get(ctx, recv)
	})
	if err != nil {
		return nil, err
	}
	return k.codec.Encode(v)
}

func (k *Kernel) write(ctx context.Context, target string, m *typesys.Member, recv, v any) error {
	if m.Readonly() {
		return errors.Invocation(target, fmt.Errorf("property is read-only"), "")
	}
	_, err := k.native(ctx, target, func(ctx context.Context) (any, error) {
		return nil, m.Set(ctx, recv, v)
	})
	return err
}

// native runs fn and reports its failure, or a panic, as InvocationError.
func (k *Kernel) native(ctx context.Context, target string, fn func(context.Context) (any, error)) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = errors.Invocation(target, fmt.Errorf("panic: %v", r), string(debug.Stack()))
		}
	}()

	result, err = fn(ctx)
	if err != nil {
		var stack string
		var fault *wire.Fault
		if stderrors.As(err, &fault) {
			stack = fault.Stack
		}
		return nil, errors.Invocation(target, err, stack)
	}
	return result, nil
}
