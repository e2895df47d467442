package transcoder

import (
	"math"
	"reflect"
	"strconv"
	"sync"
	"time"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/resource"
	"github.com/wippyai/jsii-kernel/typesys"
	"github.com/wippyai/jsii-kernel/wire"
)

// maxDepth bounds recursion through nested values and pointer cycles.
const maxDepth = 64

// Types is the type knowledge the codec needs from the resolver.
type Types interface {
	TypeFor(rt reflect.Type) (*typesys.Type, bool)
	EnumMember(ref string) (any, error)
}

// Codec translates values in both directions. It is safe for concurrent
// use.
type Codec struct {
	table  *resource.Table
	types  Types
	fields sync.Map // reflect.Type -> []fieldPlan
}

type fieldPlan struct {
	name  string
	index []int
}

func New(table *resource.Table, types Types) *Codec {
	return &Codec{table: table, types: types}
}

// Decode converts a wire value into its native form.
func (c *Codec) Decode(v any) (any, error) {
	return c.decode(v, nil)
}

// DecodeArgs decodes an argument list.
func (c *Codec) DecodeArgs(args []any) ([]any, error) {
	out := make([]any, len(args))
	for i, a := range args {
		v, err := c.decode(a, []string{"args", strconv.Itoa(i)})
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (c *Codec) decode(v any, path []string) (any, error) {
	if len(path) > maxDepth {
		return nil, tooDeep(errors.PhaseDecode, path)
	}
	switch x := v.(type) {
	case []any:
		if x == nil {
			return nil, nil
		}
		out := make([]any, len(x))
		for i, e := range x {
			d, err := c.decode(e, appendPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = d
		}
		return out, nil
	case map[string]any:
		if h, ok := wire.AsRef(x); ok {
			return c.table.Resolve(resource.Handle(h))
		}
		if s, ok := wire.AsDate(x); ok {
			t, err := time.Parse(wire.DateLayout, s)
			if err != nil {
				return nil, errors.New(errors.PhaseDecode, errors.KindProtocol).
					Path(path...).
					Value(s).
					Detail("malformed date").
					Cause(err).
					Build()
			}
			return t, nil
		}
		if ref, ok := wire.AsEnum(x); ok {
			return c.types.EnumMember(ref)
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			d, err := c.decode(e, appendPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = d
		}
		return out, nil
	}
	return v, nil
}

// Encode converts a native value into its wire form, interning objects
// that cross by reference. If encoding fails, handles it issued are
// withdrawn again.
func (c *Codec) Encode(v any) (any, error) {
	e := &encoder{Codec: c}
	out, err := e.encode(v, nil)
	if err != nil {
		for _, h := range e.fresh {
			_ = c.table.Forget(h)
		}
		return nil, err
	}
	return out, nil
}

// encoder carries the handles issued during one Encode call.
type encoder struct {
	*Codec
	fresh []resource.Handle
}

func (c *encoder) encode(v any, path []string) (any, error) {
	if len(path) > maxDepth {
		return nil, tooDeep(errors.PhaseEncode, path)
	}
	switch x := v.(type) {
	case nil:
		return nil, nil
	case bool, string:
		return x, nil
	case float64:
		return finite(x, path)
	case time.Time:
		return wire.Date(x), nil
	case *typesys.Object:
		if x == nil {
			return nil, nil
		}
		return c.ref(typesys.ObjectFQN, x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			enc, err := c.encode(e, appendPath(path, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			out[i] = enc
		}
		return out, nil
	case map[string]any:
		if x == nil {
			return nil, nil
		}
		out := make(map[string]any, len(x))
		for k, e := range x {
			enc, err := c.encode(e, appendPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	}

	rv := reflect.ValueOf(v)
	if t, ok := c.types.TypeFor(rv.Type()); ok {
		if t.IsEnum() {
			name, ok := t.EnumName(v)
			if !ok {
				return nil, errors.New(errors.PhaseEncode, errors.KindInvalidInput).
					Path(path...).
					GoType(rv.Type().String()).
					Value(v).
					Detail("not a member of %s", t.FQN()).
					Build()
			}
			return wire.Enum(t.FQN(), name), nil
		}
		if rv.Kind() == reflect.Pointer && rv.IsNil() {
			return nil, nil
		}
		return c.ref(t.FQN(), v)
	}
	return c.encodeValue(rv, path)
}

func (c *encoder) encodeValue(rv reflect.Value, path []string) (any, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return float64(rv.Uint()), nil
	case reflect.Float32, reflect.Float64:
		return finite(rv.Float(), path)
	case reflect.Slice:
		if rv.IsNil() {
			return nil, nil
		}
		return c.encodeList(rv, path)
	case reflect.Array:
		return c.encodeList(rv, path)
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		if rv.IsNil() {
			return nil, nil
		}
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			enc, err := c.encode(iter.Value().Interface(), appendPath(path, k))
			if err != nil {
				return nil, err
			}
			out[k] = enc
		}
		return out, nil
	case reflect.Struct:
		out := make(map[string]any)
		for _, f := range c.plan(rv.Type()) {
			fv, err := rv.FieldByIndexErr(f.index)
			if err != nil || !fv.CanInterface() {
				continue
			}
			enc, err := c.encode(fv.Interface(), appendPath(path, f.name))
			if err != nil {
				return nil, err
			}
			out[f.name] = enc
		}
		return out, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return nil, nil
		}
		return c.encode(rv.Elem().Interface(), path)
	}

	return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
		Path(path...).
		GoType(rv.Type().String()).
		Detail("%s values cannot cross the boundary", rv.Kind()).
		Build()
}

func (c *encoder) encodeList(rv reflect.Value, path []string) (any, error) {
	out := make([]any, rv.Len())
	for i := range out {
		enc, err := c.encode(rv.Index(i).Interface(), appendPath(path, strconv.Itoa(i)))
		if err != nil {
			return nil, err
		}
		out[i] = enc
	}
	return out, nil
}

// plan returns the exposed fields of a struct type, computed once per type.
func (c *Codec) plan(rt reflect.Type) []fieldPlan {
	if cached, ok := c.fields.Load(rt); ok {
		return cached.([]fieldPlan)
	}
	var plan []fieldPlan
	for _, f := range reflect.VisibleFields(rt) {
		if f.Anonymous {
			continue
		}
		name, ok := typesys.FieldName(f)
		if !ok {
			continue
		}
		plan = append(plan, fieldPlan{name: name, index: f.Index})
	}
	c.fields.Store(rt, plan)
	return plan
}

func (c *encoder) ref(fqn string, v any) (any, error) {
	_, known := c.table.Lookup(v)
	h, err := c.table.Intern(fqn, v)
	if err != nil {
		return nil, err
	}
	if !known {
		c.fresh = append(c.fresh, h)
	}
	return wire.Ref(string(h)), nil
}

// finite rejects NaN and infinities, which have no wire form.
func finite(f float64, path []string) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errors.New(errors.PhaseEncode, errors.KindUnsupported).
			Path(path...).
			Detail("non-finite number %v", f).
			Build()
	}
	return f, nil
}

func tooDeep(phase errors.Phase, path []string) error {
	return errors.New(phase, errors.KindUnsupported).
		Path(path...).
		Detail("value nesting exceeds %d levels", maxDepth).
		Build()
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
