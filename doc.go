// Package jsiikernel is an object bridging kernel: it hosts Go and
// WebAssembly modules and lets a client written in another language
// create objects, call methods and read properties over a message channel.
//
// Objects never cross the channel. The client holds opaque handles, the
// kernel keeps the objects and maps handles back to them.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	jsiikernel/
//	├── runtime/         Kernel context assembly, host registration, channel server
//	├── engine/          Request dispatch (load, create, invoke, get, set, ...) and trace
//	├── linker/          Module registry and fqn/member resolution
//	├── loader/          Module loaders: in-process catalog, wazero-backed WASM
//	├── typesys/         Type descriptors, reflection builder, type-erased Object
//	├── transcoder/      Wire value <-> native value conversion
//	├── resource/        Handle table with pointer identity
//	├── wire/            Requests, responses, tags, JSON and CBOR framing
//	├── config/          YAML / TOML configuration
//	├── errors/          Structured error types and the client-facing taxonomy
//	└── cmd/jsii-kernel  CLI: serve, console, version
//
// # Quick Start
//
// Serve the demo module over stdin/stdout:
//
//	$ jsii-kernel serve
//	{"hello":"jsii-kernel@0.1.0"}
//	{"api":"load","name":"calc","locator":"go:calc"}
//	{"result":null}
//	{"api":"create","fqn":"calc.Adder","args":[10]}
//	{"result":{"$jsii.byref":"calc.Adder@7f0c..."}}
//	{"api":"invoke","objref":{"$jsii.byref":"calc.Adder@7f0c..."},"method":"add","args":[5]}
//	{"result":15}
//
// Embed it:
//
//	rt := runtime.New(ctx, runtime.Options{Logger: log})
//	defer rt.Close(ctx)
//	rt.RegisterModule("calc", calc.Define)
//	resp := rt.Kernel().Handle(ctx, wire.Request{API: wire.APILoad, Name: "calc", Locator: "go:calc"})
package jsiikernel
