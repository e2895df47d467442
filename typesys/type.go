package typesys

import (
	"context"
	"reflect"
	"sort"
)

// Kind tags a member descriptor.
type Kind uint8

const (
	KindConstructor Kind = iota
	KindMethod
	KindStaticMethod
	KindProperty
	KindStaticProperty
)

func (k Kind) String() string {
	switch k {
	case KindConstructor:
		return "constructor"
	case KindMethod:
		return "method"
	case KindStaticMethod:
		return "static method"
	case KindProperty:
		return "property"
	case KindStaticProperty:
		return "static property"
	}
	return "unknown"
}

// Static reports whether members of this kind live on the type itself.
func (k Kind) Static() bool {
	return k == KindStaticMethod || k == KindStaticProperty
}

// Func is a bound invocation thunk. recv is nil for constructors and
// static members.
type Func func(ctx context.Context, recv any, args []any) (any, error)

// Getter reads a property.
type Getter func(ctx context.Context, recv any) (any, error)

// Setter writes a property.
type Setter func(ctx context.Context, recv any, value any) error

// Member is a resolved constructor, method or property.
type Member struct {
	Call Func
	Get  Getter
	Set  Setter
	Name string
	Kind Kind
}

// Readonly reports whether a property has no setter.
func (m *Member) Readonly() bool {
	return m.Set == nil
}

// Type describes one exported type: a class, a bag of statics, an enum,
// or a namespace holding nested types.
type Type struct {
	goType    reflect.Type
	module    *Module
	ctor      *Member
	members   map[string]*Member
	statics   map[string]*Member
	nested    map[string]*Type
	enum      map[string]any
	enumNames map[any]string
	fqn       string
	name      string
}

func newType(m *Module, fqn, name string) *Type {
	return &Type{
		module:  m,
		fqn:     fqn,
		name:    name,
		members: make(map[string]*Member),
		statics: make(map[string]*Member),
		nested:  make(map[string]*Type),
	}
}

// FQN returns the fully-qualified name.
func (t *Type) FQN() string { return t.fqn }

// Name returns the last segment of the FQN.
func (t *Type) Name() string { return t.name }

// GoType returns the native type instances or enum values have, or nil.
func (t *Type) GoType() reflect.Type { return t.goType }

// Ctor returns the constructor, or nil if the type cannot be
// constructed.
func (t *Type) Ctor() *Member { return t.ctor }

// Nested returns a nested type by name.
func (t *Type) Nested(name string) (*Type, bool) {
	n, ok := t.nested[name]
	return n, ok
}

// Member looks up an instance or static member.
func (t *Type) Member(name string, static bool) (*Member, bool) {
	if static {
		m, ok := t.statics[name]
		return m, ok
	}
	m, ok := t.members[name]
	return m, ok
}

// Members lists instance or static members sorted by name.
func (t *Type) Members(static bool) []*Member {
	src := t.members
	if static {
		src = t.statics
	}
	out := make([]*Member, 0, len(src))
	for _, m := range src {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// IsEnum reports whether the type declares enum members.
func (t *Type) IsEnum() bool { return t.enum != nil }

// EnumValue returns the native value of an enum member.
func (t *Type) EnumValue(member string) (any, bool) {
	v, ok := t.enum[member]
	return v, ok
}

// EnumName returns the member name of a native enum value.
func (t *Type) EnumName(v any) (string, bool) {
	n, ok := t.enumNames[v]
	return n, ok
}

// EnumMembers lists member names sorted.
func (t *Type) EnumMembers() []string {
	out := make([]string, 0, len(t.enum))
	for n := range t.enum {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Invocable reports whether the type has anything to dispatch to.
func (t *Type) Invocable() bool {
	return t.ctor != nil || len(t.statics) > 0 || t.enum != nil || t.goType != nil
}
