package linker

import (
	"reflect"
	"strings"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/typesys"
)

// Resolver maps symbolic names onto descriptors. It is purely structural:
// whether arguments fit a member is decided by the member itself.
type Resolver struct {
	reg *Registry
}

func NewResolver(reg *Registry) *Resolver {
	return &Resolver{reg: reg}
}

// ResolveType walks fqn: the first segment selects the module, the rest
// walk nested types. A type that only holds nested types cannot be the
// target of an operation and is reported as missing.
func (r *Resolver) ResolveType(fqn string) (*typesys.Type, error) {
	segs := strings.Split(fqn, ".")
	mod, ok := r.reg.Module(segs[0])
	if !ok {
		return nil, errors.ModuleNotFound(segs[0])
	}
	if len(segs) == 1 {
		return nil, errors.TypeNotFound(fqn, "")
	}
	t, missing, ok := mod.Lookup(segs[1:])
	if !ok {
		return nil, errors.TypeNotFound(fqn, missing)
	}
	if !t.Invocable() {
		return nil, errors.TypeNotFound(fqn, t.Name())
	}
	return t, nil
}

// ResolveMember finds an instance or static member of t.
func (r *Resolver) ResolveMember(t *typesys.Type, name string, static bool) (*typesys.Member, error) {
	m, ok := t.Member(name, static)
	if !ok {
		return nil, errors.MemberNotFound(t.FQN(), name)
	}
	return m, nil
}

// TypeFor returns the type describing native values of rt.
func (r *Resolver) TypeFor(rt reflect.Type) (*typesys.Type, bool) {
	return r.reg.TypeFor(rt)
}

// EnumMember resolves "<TypeFQN>/<Member>" to the native enum value.
func (r *Resolver) EnumMember(ref string) (any, error) {
	fqn, member, ok := cutLast(ref, "/")
	if !ok {
		return nil, errors.MemberNotFound(ref, "")
	}
	t, err := r.ResolveType(fqn)
	if err != nil {
		return nil, err
	}
	v, ok := t.EnumValue(member)
	if !ok {
		return nil, errors.MemberNotFound(fqn, member)
	}
	return v, nil
}

func cutLast(s, sep string) (before, after string, found bool) {
	i := strings.LastIndex(s, sep)
	if i < 0 {
		return s, "", false
	}
	return s[:i], s[i+len(sep):], true
}
