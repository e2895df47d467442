// Package linker holds the loaded modules and resolves names against
// them.
//
// # Main Types
//
//   - Registry: symbolic module name -> loaded module, loads idempotently
//   - Resolver: fqn -> type, (type, name) -> member, Go type -> type
//
// # Thread Safety
//
// Registry and Resolver are safe for concurrent use. Concurrent first
// loads of one name share a single loader call.
//
// # Example
//
//	reg := linker.NewRegistry(mux)
//	_ = reg.Load(ctx, "calc", "go:calc")
//	res := linker.NewResolver(reg)
//	t, _ := res.ResolveType("calc.Adder")
//	m, _ := res.ResolveMember(t, "add", false)
package linker
