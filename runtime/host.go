package runtime

import (
	"fmt"
	"reflect"
	"strings"

	"go.uber.org/zap"

	"github.com/wippyai/jsii-kernel/errors"
	"github.com/wippyai/jsii-kernel/loader"
	"github.com/wippyai/jsii-kernel/typesys"
)

// Host is a Go value exposed as a type of static methods. Every exported
// method except Namespace becomes a static method named in lowerCamel case
// (AddDays -> addDays).
type Host interface {
	// Namespace returns the fully qualified type name, e.g. "env.Clock".
	Namespace() string
}

// ExplicitRegistrar lets a host name its static methods itself when the
// method names don't map onto the wanted member names.
type ExplicitRegistrar interface {
	Register() map[string]any
}

// RegisterHost declares h under its namespace. The module is assembled
// when it is loaded, so hosts must be registered before the "go:" load of
// their module.
func (r *Runtime) RegisterHost(h Host) error {
	module, path, err := splitNamespace(h.Namespace())
	if err != nil {
		return err
	}

	if er, ok := h.(ExplicitRegistrar); ok {
		funcs := er.Register()
		for name, fn := range funcs {
			if err := checkFunc(name, fn); err != nil {
				return err
			}
		}
		r.catalog.Register(module, func(m *typesys.Module) {
			t := m.Type(path)
			for name, fn := range funcs {
				t.StaticMethod(name, fn)
			}
		})
	} else {
		r.catalog.Register(module, func(m *typesys.Module) {
			m.Type(path).Statics(h, "Namespace", "Register")
		})
	}

	r.log.Debug("host registered", zap.String("namespace", h.Namespace()))
	return nil
}

// RegisterFunc declares a single static method fqn.name.
func (r *Runtime) RegisterFunc(fqn, name string, fn any) error {
	module, path, err := splitNamespace(fqn)
	if err != nil {
		return err
	}
	if name == "" {
		return errors.InvalidInput(errors.PhaseHost, "function name cannot be empty")
	}
	if err := checkFunc(name, fn); err != nil {
		return err
	}
	r.catalog.Register(module, func(m *typesys.Module) {
		m.Type(path).StaticMethod(name, fn)
	})
	return nil
}

// RegisterModule adds a definer for "go:<key>" locators.
func (r *Runtime) RegisterModule(key string, def loader.Definer) {
	r.catalog.Register(key, def)
}

func splitNamespace(ns string) (module, path string, err error) {
	module, path, ok := strings.Cut(ns, ".")
	if !ok || module == "" || path == "" {
		return "", "", errors.InvalidInput(errors.PhaseHost, fmt.Sprintf("namespace must be <module>.<Type>, got %q", ns))
	}
	return module, path, nil
}

func checkFunc(name string, fn any) error {
	if fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
		return errors.New(errors.PhaseHost, errors.KindTypeMismatch).
			Target(name).
			GoType(fmt.Sprintf("%T", fn)).
			Detail("handler must be a function").
			Build()
	}
	return nil
}
