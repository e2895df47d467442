package errors

import (
	"fmt"
	"strings"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseLoad     Phase = "load"     // module loading
	PhaseResolve  Phase = "resolve"  // fqn and member resolution
	PhaseDecode   Phase = "decode"   // wire to native
	PhaseEncode   Phase = "encode"   // native to wire
	PhaseDispatch Phase = "dispatch" // native call
	PhaseProtocol Phase = "protocol" // request parsing and framing
	PhaseHost     Phase = "host"     // host type registration
	PhaseParse    Phase = "parse"    // WIT sidecar parsing
)

// Kind categorizes the error
type Kind string

const (
	KindModuleLoad     Kind = "module_load"
	KindModuleNotFound Kind = "module_not_found"
	KindMemberNotFound Kind = "member_not_found"
	KindUnknownHandle  Kind = "unknown_handle"
	KindInvocation     Kind = "invocation"
	KindProtocol       Kind = "protocol"
	KindTypeMismatch   Kind = "type_mismatch"
	KindUnsupported    Kind = "unsupported"
	KindInvalidInput   Kind = "invalid_input"
	KindRegistration   Kind = "registration"
)

// names maps kinds to the taxonomy names reported to clients.
var names = map[Kind]string{
	KindModuleLoad:     "ModuleLoadError",
	KindModuleNotFound: "ModuleNotFoundError",
	KindMemberNotFound: "MemberNotFoundError",
	KindUnknownHandle:  "UnknownHandleError",
	KindInvocation:     "InvocationError",
	KindProtocol:       "ProtocolError",
	KindTypeMismatch:   "TypeMismatchError",
	KindUnsupported:    "UnsupportedError",
	KindInvalidInput:   "InvalidInputError",
	KindRegistration:   "RegistrationError",
}

// Sentinels for errors.Is. They match any phase.
var (
	ErrModuleLoad     = &Error{Kind: KindModuleLoad}
	ErrModuleNotFound = &Error{Kind: KindModuleNotFound}
	ErrMemberNotFound = &Error{Kind: KindMemberNotFound}
	ErrUnknownHandle  = &Error{Kind: KindUnknownHandle}
	ErrInvocation     = &Error{Kind: KindInvocation}
	ErrProtocol       = &Error{Kind: KindProtocol}
	ErrUnsupported    = &Error{Kind: KindUnsupported}
)

// Error is the structured error type used throughout the kernel
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	GoType string
	Target string // fqn, handle or member the error is about
	Detail string
	Stack  string // native stack trace, when one was captured
	Path   []string
}

// Name returns the taxonomy name, e.g. "UnknownHandleError".
func (e *Error) Name() string {
	if n, ok := names[e.Kind]; ok {
		return n
	}
	return "Error"
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.Target != "" {
		b.WriteString(" ")
		b.WriteString(e.Target)
	}

	if e.GoType != "" {
		b.WriteString(": Go type ")
		b.WriteString(e.GoType)
	}

	if e.Detail != "" {
		if e.GoType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error. A target without a
// phase matches on kind alone.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Phase == "" {
		return e.Kind == t.Kind
	}
	return e.Phase == t.Phase && e.Kind == t.Kind
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the value path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// Target sets the fqn, handle or member the error concerns
func (b *Builder) Target(t string) *Builder {
	b.err.Target = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Stack attaches a native stack trace
func (b *Builder) Stack(s string) *Builder {
	b.err.Stack = s
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the kernel taxonomy

// ModuleLoad creates a module loading error
func ModuleLoad(name, locator string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindModuleLoad,
		Target: name,
		Detail: fmt.Sprintf("cannot load %q", locator),
		Cause:  cause,
	}
}

// ModuleNotFound creates an error for an fqn that names an unloaded module
func ModuleNotFound(module string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindModuleNotFound,
		Target: module,
		Detail: fmt.Sprintf("module %q not found, was it loaded?", module),
	}
}

// MemberNotFound reports the resolved type fqn and the requested member
func MemberNotFound(fqn, member string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMemberNotFound,
		Target: fqn,
		Detail: fmt.Sprintf("no member %q on %s", member, fqn),
	}
}

// TypeNotFound reports a missing path segment while walking an fqn
func TypeNotFound(fqn, segment string) *Error {
	return &Error{
		Phase:  PhaseResolve,
		Kind:   KindMemberNotFound,
		Target: fqn,
		Detail: fmt.Sprintf("no type %q in %s", segment, fqn),
	}
}

// UnknownHandle creates an unknown handle error
func UnknownHandle(handle string) *Error {
	return &Error{
		Phase:  PhaseDecode,
		Kind:   KindUnknownHandle,
		Target: handle,
		Detail: fmt.Sprintf("object reference %q not found", handle),
	}
}

// Invocation wraps an error raised by native code
func Invocation(target string, cause error, stack string) *Error {
	return &Error{
		Phase:  PhaseDispatch,
		Kind:   KindInvocation,
		Target: target,
		Cause:  cause,
		Stack:  stack,
	}
}

// Protocol creates a malformed request error
func Protocol(detail string, args ...any) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindProtocol,
		Detail: fmt.Sprintf(detail, args...),
	}
}

// FieldMissing creates a protocol error for a required request field
func FieldMissing(api, field string) *Error {
	return &Error{
		Phase:  PhaseProtocol,
		Kind:   KindProtocol,
		Target: api,
		Detail: fmt.Sprintf("required field %q not found", field),
	}
}

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType string, value any) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTypeMismatch,
		Path:   path,
		GoType: goType,
		Value:  value,
		Detail: fmt.Sprintf("cannot use %T", value),
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a host type registration error
func Registration(module, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s.%s", module, name),
		Cause:  cause,
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidInput,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
