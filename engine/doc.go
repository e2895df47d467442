// Package engine dispatches kernel operations.
//
// A Kernel ties the module registry, the handle table and the value codec
// together and executes requests:
//
//	API       Kernel method   Result
//	────────────────────────────────────────────
//	load      Load            null
//	create    Create          byref of the new instance
//	invoke    Invoke          encoded return value
//	sinvoke   InvokeStatic    encoded return value
//	get       Get             encoded property value
//	sget      GetStatic       encoded property value
//	set       Set             null
//	sset      SetStatic       null
//	del       Delete          null
//
// # Operation Boundary
//
// Handle is the boundary: every error, including a panic in native code,
// becomes an error Response. Arguments are decoded before the native call
// and new handles are issued only once the call has succeeded, so a
// failed operation leaves the handle table and registry as they were.
//
// # Reentrancy
//
// Native code receives a context carrying the Kernel as its
// typesys.Caller. A nested request runs to completion on the same call
// stack before the outer call resumes; no dispatch state is kept outside
// that stack.
//
// # Trace
//
// A Trace writes one line before and one after every operation. Nested
// operations are indented by depth.
package engine
