package typesys

import (
	"math"
	"reflect"
	"strconv"

	"github.com/wippyai/jsii-kernel/errors"
)

// Coerce converts a decoded wire value into a value of type t. Numbers
// arrive as float64 and are narrowed to integer kinds only when integral
// and in range. Lists fill slices and arrays, maps fill maps and structs.
func Coerce(v any, t reflect.Type, path []string) (reflect.Value, error) {
	if v == nil {
		return reflect.Zero(t), nil
	}
	rv := reflect.ValueOf(v)
	if rv.Type().AssignableTo(t) {
		return rv, nil
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if f, ok := number(rv); ok {
			if f != math.Trunc(f) {
				break
			}
			out := reflect.New(t).Elem()
			if f < math.MinInt64 || f >= math.MaxInt64 || out.OverflowInt(int64(f)) {
				return reflect.Value{}, overflow(path, t, v)
			}
			out.SetInt(int64(f))
			return out, nil
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		if f, ok := number(rv); ok {
			if f != math.Trunc(f) {
				break
			}
			out := reflect.New(t).Elem()
			if f < 0 || f >= math.MaxUint64 || out.OverflowUint(uint64(f)) {
				return reflect.Value{}, overflow(path, t, v)
			}
			out.SetUint(uint64(f))
			return out, nil
		}
	case reflect.Float32, reflect.Float64:
		if f, ok := number(rv); ok {
			out := reflect.New(t).Elem()
			out.SetFloat(f)
			return out, nil
		}
	case reflect.String, reflect.Bool:
		if rv.Kind() == t.Kind() {
			return rv.Convert(t), nil
		}
	case reflect.Slice:
		if list, ok := v.([]any); ok {
			out := reflect.MakeSlice(t, len(list), len(list))
			for i, e := range list {
				ev, err := Coerce(e, t.Elem(), appendPath(path, strconv.Itoa(i)))
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case reflect.Array:
		if list, ok := v.([]any); ok && len(list) <= t.Len() {
			out := reflect.New(t).Elem()
			for i, e := range list {
				ev, err := Coerce(e, t.Elem(), appendPath(path, strconv.Itoa(i)))
				if err != nil {
					return reflect.Value{}, err
				}
				out.Index(i).Set(ev)
			}
			return out, nil
		}
	case reflect.Map:
		if m, ok := v.(map[string]any); ok && t.Key().Kind() == reflect.String {
			out := reflect.MakeMapWithSize(t, len(m))
			for k, e := range m {
				ev, err := Coerce(e, t.Elem(), appendPath(path, k))
				if err != nil {
					return reflect.Value{}, err
				}
				out.SetMapIndex(reflect.ValueOf(k).Convert(t.Key()), ev)
			}
			return out, nil
		}
	case reflect.Struct:
		if m, ok := v.(map[string]any); ok {
			return fillStruct(m, t, path)
		}
	case reflect.Pointer:
		if m, ok := v.(map[string]any); ok && t.Elem().Kind() == reflect.Struct {
			sv, err := fillStruct(m, t.Elem(), path)
			if err != nil {
				return reflect.Value{}, err
			}
			out := reflect.New(t.Elem())
			out.Elem().Set(sv)
			return out, nil
		}
	}

	if rv.Type().ConvertibleTo(t) && rv.Kind() == t.Kind() {
		return rv.Convert(t), nil
	}
	return reflect.Value{}, errors.TypeMismatch(errors.PhaseDecode, path, t.String(), v)
}

func fillStruct(m map[string]any, t reflect.Type, path []string) (reflect.Value, error) {
	out := reflect.New(t).Elem()
	for _, f := range reflect.VisibleFields(t) {
		if f.Anonymous {
			continue
		}
		name, ok := FieldName(f)
		if !ok {
			continue
		}
		e, present := m[name]
		if !present {
			continue
		}
		ev, err := Coerce(e, f.Type, appendPath(path, name))
		if err != nil {
			return reflect.Value{}, err
		}
		fv, err := out.FieldByIndexErr(f.Index)
		if err != nil {
			return reflect.Value{}, err
		}
		if fv.CanSet() {
			fv.Set(ev)
		}
	}
	return out, nil
}

func number(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	}
	return 0, false
}

func overflow(path []string, t reflect.Type, v any) error {
	return errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
		Path(path...).
		GoType(t.String()).
		Value(v).
		Detail("%v overflows %s", v, t).
		Build()
}

func appendPath(path []string, seg string) []string {
	out := make([]string, len(path), len(path)+1)
	copy(out, path)
	return append(out, seg)
}
