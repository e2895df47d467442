// Package resource implements the kernel's object reference table.
//
// Every native object that crosses the boundary is interned once and
// referred to by an opaque Handle afterwards. Interning is identity based:
// the same pointer always yields the same handle, two equal but distinct
// objects get two handles.
//
//	table := resource.NewTable()
//
//	h, err := table.Intern("calc.Adder", adder)
//	again, _ := table.Intern("calc.Adder", adder) // again == h
//
//	v, err := table.Resolve(h) // v == adder
//
// # Lifetime
//
// Handles live until they are released explicitly (the "del" request) or
// the table is closed. There is no garbage collection across the
// boundary; a client that never releases handles grows the table for the
// life of the process. Released handles are never reissued: tokens embed
// a random UUID.
//
// # Observers
//
// Observers see every intern and release, which the trace sink uses to
// log handle creation:
//
//	table.Subscribe(resource.ObserverFunc(func(e resource.Event) {
//	    log.Printf("%s %s", e.FQN, e.Handle)
//	}))
package resource
