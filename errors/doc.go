// Package errors provides structured error types for the bridging kernel.
//
// Errors are categorized by Phase (where the error occurred) and Kind (error
// category). Each Kind maps to one name of the client-facing taxonomy
// (ModuleLoadError, ModuleNotFoundError, MemberNotFoundError,
// UnknownHandleError, InvocationError, ProtocolError), which is what the
// dispatch engine puts into error responses.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseDecode, errors.KindTypeMismatch).
//		Path("args", "0").
//		GoType("float64").
//		Detail("cannot convert string to number").
//		Build()
//
// Or use convenience constructors for common patterns:
//
//	err := errors.UnknownHandle("calc.Adder@...")
//	err := errors.MemberNotFound("calc.Adder", "mul")
//
// The package-level sentinels match on kind alone:
//
//	if errors.Is(err, kerrors.ErrUnknownHandle) { ... }
package errors
