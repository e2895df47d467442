package errors

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:  PhaseDecode,
				Kind:   KindTypeMismatch,
				Path:   []string{"args", "0", "base"},
				GoType: "float64",
				Detail: "cannot convert",
			},
			contains: []string{"[decode]", "type_mismatch", "args.0.base", "float64", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseResolve,
				Kind:  KindMemberNotFound,
			},
			contains: []string{"[resolve]", "member_not_found"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseDispatch,
				Kind:   KindInvocation,
				Target: "calc.Adder.add",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[dispatch]", "invocation", "calc.Adder.add", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := Invocation("calc.Adder.add", cause, "")

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(err, cause) {
		t.Error("errors.Is did not find cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseDecode,
		Kind:  KindUnknownHandle,
	}

	if !err.Is(&Error{Phase: PhaseDecode, Kind: KindUnknownHandle}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindUnknownHandle}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseDecode, Kind: KindProtocol}) {
		t.Error("Is should not match different kind")
	}
	if !errors.Is(err, ErrUnknownHandle) {
		t.Error("sentinel without phase should match on kind")
	}
	if errors.Is(err, ErrMemberNotFound) {
		t.Error("sentinel of another kind should not match")
	}
}

func TestError_Name(t *testing.T) {
	tests := []struct {
		err  *Error
		want string
	}{
		{ModuleLoad("calc", "go:calc", errors.New("x")), "ModuleLoadError"},
		{ModuleNotFound("calc"), "ModuleNotFoundError"},
		{MemberNotFound("calc.Adder", "mul"), "MemberNotFoundError"},
		{TypeNotFound("calc.Nope", "Nope"), "MemberNotFoundError"},
		{UnknownHandle("h"), "UnknownHandleError"},
		{Invocation("calc.Adder.add", errors.New("boom"), ""), "InvocationError"},
		{Protocol("unknown api %q", "frob"), "ProtocolError"},
		{FieldMissing("create", "fqn"), "ProtocolError"},
		{&Error{Kind: "mystery"}, "Error"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := tt.err.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseDecode, KindTypeMismatch).
		Path("args", "1").
		GoType("int").
		Target("calc.Adder.add").
		Value("x").
		Cause(cause).
		Stack("goroutine 1").
		Detail("expected %s, got %s", "number", "string").
		Build()

	if err.Phase != PhaseDecode {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseDecode)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "args" || err.Path[1] != "1" {
		t.Errorf("Path = %v, want [args 1]", err.Path)
	}
	if err.GoType != "int" || err.Target != "calc.Adder.add" {
		t.Errorf("GoType=%v Target=%v", err.GoType, err.Target)
	}
	if err.Value != "x" {
		t.Errorf("Value = %v, want x", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Stack != "goroutine 1" {
		t.Errorf("Stack = %q", err.Stack)
	}
	if err.Detail != "expected number, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
}

func TestMemberNotFound_Detail(t *testing.T) {
	err := MemberNotFound("calc.Adder", "mul")
	if !strings.Contains(err.Error(), "calc.Adder") || !strings.Contains(err.Error(), `"mul"`) {
		t.Errorf("message should name type and member, got %q", err.Error())
	}
}
