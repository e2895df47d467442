package typesys

import (
	"context"
	"fmt"
	"reflect"
	"strconv"

	"github.com/wippyai/jsii-kernel/errors"
)

// bindFunc wraps a Go function as a Func. With hasRecv the first parameter
// receives recv. A context.Context parameter right after it (or first,
// without a receiver) receives the call context. Remaining parameters take
// the call arguments; missing trailing arguments are zero values.
func bindFunc(fv reflect.Value, hasRecv bool) (Func, error) {
	ft := fv.Type()
	first := 0
	if hasRecv {
		if ft.NumIn() == 0 {
			return nil, fmt.Errorf("%s has no receiver parameter", ft)
		}
		first = 1
	}
	wantCtx := ft.NumIn() > first && ft.In(first) == ctxType
	if wantCtx {
		first++
	}

	switch ft.NumOut() {
	case 0, 1:
	case 2:
		if ft.Out(1) != errType {
			return nil, fmt.Errorf("%s: second result must be error", ft)
		}
	default:
		return nil, fmt.Errorf("%s: too many results", ft)
	}

	variadic := ft.IsVariadic()
	fixed := ft.NumIn() - first
	if variadic {
		fixed--
	}

	return func(ctx context.Context, recv any, args []any) (any, error) {
		if !variadic && len(args) > fixed {
			return nil, errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
				Path("args").
				Detail("expects %d arguments, got %d", fixed, len(args)).
				Build()
		}

		in := make([]reflect.Value, 0, ft.NumIn()+len(args))
		if hasRecv {
			rv, err := Coerce(recv, ft.In(0), []string{"this"})
			if err != nil {
				return nil, err
			}
			in = append(in, rv)
		}
		if wantCtx {
			if ctx == nil {
				ctx = context.Background()
			}
			in = append(in, reflect.ValueOf(ctx))
		}
		for i := 0; i < fixed; i++ {
			pt := ft.In(first + i)
			if i >= len(args) {
				in = append(in, reflect.Zero(pt))
				continue
			}
			v, err := Coerce(args[i], pt, argPath(i))
			if err != nil {
				return nil, err
			}
			in = append(in, v)
		}
		if variadic {
			et := ft.In(ft.NumIn() - 1).Elem()
			for i := fixed; i < len(args); i++ {
				v, err := Coerce(args[i], et, argPath(i))
				if err != nil {
					return nil, err
				}
				in = append(in, v)
			}
		}

		return results(fv.Call(in))
	}, nil
}

func results(out []reflect.Value) (any, error) {
	switch len(out) {
	case 0:
		return nil, nil
	case 1:
		if out[0].Type() == errType {
			if out[0].IsNil() {
				return nil, nil
			}
			return nil, out[0].Interface().(error)
		}
		return value(out[0]), nil
	default:
		if !out[1].IsNil() {
			return nil, out[1].Interface().(error)
		}
		return value(out[0]), nil
	}
}

// value unwraps v, turning typed nils into plain nil.
func value(v reflect.Value) any {
	switch v.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if v.IsNil() {
			return nil
		}
	}
	return v.Interface()
}

func argPath(i int) []string {
	return []string{"args", strconv.Itoa(i)}
}
