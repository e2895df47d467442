package typesys

import (
	"context"
	"fmt"
	"reflect"
	"slices"

	"github.com/wippyai/jsii-kernel/errors"
)

var (
	ctxType = reflect.TypeOf((*context.Context)(nil)).Elem()
	errType = reflect.TypeOf((*error)(nil)).Elem()
)

// Constructor makes the type constructible with fn, which must return a
// pointer (optionally with an error). The returned type's methods and
// fields become the instance members.
func (t *Type) Constructor(fn any) *Type {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		t.module.fail(t.registrationErr("constructor", fmt.Errorf("want a function, got %T", fn)))
		return t
	}
	ft := fv.Type()
	if ft.NumOut() == 0 || ft.Out(0).Kind() != reflect.Pointer {
		t.module.fail(t.registrationErr("constructor", fmt.Errorf("%s must return a pointer", ft)))
		return t
	}

	call, err := bindFunc(fv, false)
	if err != nil {
		t.module.fail(t.registrationErr("constructor", err))
		return t
	}
	t.ctor = &Member{Name: t.name, Kind: KindConstructor, Call: call}
	t.describe(ft.Out(0))
	return t
}

// Class describes instances of sample's pointer type without making the
// type constructible, for objects that only come out of other calls.
func (t *Type) Class(sample any) *Type {
	rt := reflect.TypeOf(sample)
	if rt == nil || rt.Kind() != reflect.Pointer {
		t.module.fail(t.registrationErr("class", fmt.Errorf("want a pointer, got %T", sample)))
		return t
	}
	t.describe(rt)
	return t
}

func (t *Type) describe(rt reflect.Type) {
	t.goType = rt
	t.module.bind(rt, t)

	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() {
			continue
		}
		call, err := bindFunc(m.Func, true)
		if err != nil {
			t.module.fail(t.registrationErr(m.Name, err))
			continue
		}
		name := LowerCamel(m.Name)
		t.members[name] = &Member{Name: name, Kind: KindMethod, Call: call}
	}

	elem := rt.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}
	for _, f := range reflect.VisibleFields(elem) {
		if f.Anonymous {
			continue
		}
		name, ok := FieldName(f)
		if !ok {
			continue
		}
		if _, clash := t.members[name]; clash {
			continue
		}
		t.members[name] = &Member{
			Name: name,
			Kind: KindProperty,
			Get:  fieldGetter(f.Index),
			Set:  fieldSetter(f.Index, f.Type, name),
		}
	}
}

// Method adds an instance method. fn takes the receiver as its first
// parameter.
func (t *Type) Method(name string, fn any) *Type {
	call, err := bindValue(fn, true)
	if err != nil {
		t.module.fail(t.registrationErr(name, err))
		return t
	}
	t.members[name] = &Member{Name: name, Kind: KindMethod, Call: call}
	return t
}

// Property adds a computed instance property. get takes the receiver;
// set takes the receiver and the new value and may be nil.
func (t *Type) Property(name string, get, set any) *Type {
	m, err := bindProperty(name, KindProperty, get, set, true)
	if err != nil {
		t.module.fail(t.registrationErr(name, err))
		return t
	}
	t.members[name] = m
	return t
}

// StaticMethod adds a static method.
func (t *Type) StaticMethod(name string, fn any) *Type {
	call, err := bindValue(fn, false)
	if err != nil {
		t.module.fail(t.registrationErr(name, err))
		return t
	}
	t.statics[name] = &Member{Name: name, Kind: KindStaticMethod, Call: call}
	return t
}

// StaticThunk adds a static method backed by a prepared thunk, for
// members that are not Go functions.
func (t *Type) StaticThunk(name string, call Func) *Type {
	t.statics[name] = &Member{Name: name, Kind: KindStaticMethod, Call: call}
	return t
}

// StaticProperty adds a static property. set may be nil.
func (t *Type) StaticProperty(name string, get, set any) *Type {
	m, err := bindProperty(name, KindStaticProperty, get, set, false)
	if err != nil {
		t.module.fail(t.registrationErr(name, err))
		return t
	}
	t.statics[name] = m
	return t
}

// Statics adds every exported method of host as a static method bound to
// host. Methods named in skip are left out.
func (t *Type) Statics(host any, skip ...string) *Type {
	rv := reflect.ValueOf(host)
	if !rv.IsValid() {
		t.module.fail(t.registrationErr("statics", fmt.Errorf("nil host")))
		return t
	}
	rt := rv.Type()
	for i := 0; i < rt.NumMethod(); i++ {
		m := rt.Method(i)
		if !m.IsExported() || slices.Contains(skip, m.Name) {
			continue
		}
		name := LowerCamel(m.Name)
		call, err := bindFunc(rv.Method(i), false)
		if err != nil {
			t.module.fail(t.registrationErr(name, err))
			continue
		}
		t.statics[name] = &Member{Name: name, Kind: KindStaticMethod, Call: call}
	}
	return t
}

// Enum declares enum members. All values must share one comparable Go
// type, which the codec then recognizes on the way out.
func (t *Type) Enum(members map[string]any) *Type {
	var rt reflect.Type
	values := make(map[string]any, len(members))
	names := make(map[any]string, len(members))
	for name, v := range members {
		vt := reflect.TypeOf(v)
		if vt == nil || !vt.Comparable() {
			t.module.fail(t.registrationErr(name, fmt.Errorf("enum value %v is not comparable", v)))
			return t
		}
		if rt == nil {
			rt = vt
		} else if vt != rt {
			t.module.fail(t.registrationErr(name, fmt.Errorf("enum mixes %s and %s", rt, vt)))
			return t
		}
		values[name] = v
		names[v] = name
	}
	t.enum = values
	t.enumNames = names
	if rt != nil {
		t.goType = rt
		t.module.bind(rt, t)
	}
	return t
}

func (t *Type) registrationErr(member string, cause error) error {
	return errors.Registration(t.fqn, member, cause)
}

func bindValue(fn any, hasRecv bool) (Func, error) {
	fv := reflect.ValueOf(fn)
	if fv.Kind() != reflect.Func {
		return nil, fmt.Errorf("want a function, got %T", fn)
	}
	return bindFunc(fv, hasRecv)
}

func bindProperty(name string, kind Kind, get, set any, hasRecv bool) (*Member, error) {
	getter, err := bindValue(get, hasRecv)
	if err != nil {
		return nil, fmt.Errorf("getter: %w", err)
	}
	m := &Member{
		Name: name,
		Kind: kind,
		Get: func(ctx context.Context, recv any) (any, error) {
			return getter(ctx, recv, nil)
		},
	}
	if set != nil {
		setter, err := bindValue(set, hasRecv)
		if err != nil {
			return nil, fmt.Errorf("setter: %w", err)
		}
		m.Set = func(ctx context.Context, recv any, value any) error {
			_, err := setter(ctx, recv, []any{value})
			return err
		}
	}
	return m, nil
}

func fieldGetter(index []int) Getter {
	return func(_ context.Context, recv any) (any, error) {
		f, err := field(recv, index)
		if err != nil {
			return nil, err
		}
		return f.Interface(), nil
	}
}

func fieldSetter(index []int, ft reflect.Type, name string) Setter {
	return func(_ context.Context, recv any, value any) error {
		f, err := field(recv, index)
		if err != nil {
			return err
		}
		v, err := Coerce(value, ft, []string{name})
		if err != nil {
			return err
		}
		f.Set(v)
		return nil
	}
}

func field(recv any, index []int) (reflect.Value, error) {
	rv := reflect.ValueOf(recv)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return reflect.Value{}, errors.InvalidInput(errors.PhaseDispatch, fmt.Sprintf("receiver %T is not a live object", recv))
	}
	return rv.Elem().FieldByIndexErr(index)
}
