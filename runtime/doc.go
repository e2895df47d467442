// Package runtime assembles a kernel context and serves it over a channel.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt := runtime.New(ctx, runtime.Options{Logger: log})
//	defer rt.Close(ctx)
//
//	// Expose Go code under "go:env"
//	if err := rt.RegisterHost(&Clock{}); err != nil { // Namespace() == "env.Clock"
//	    log.Fatal(err)
//	}
//
//	// Serve line-delimited JSON on stdin/stdout
//	err := rt.Server().Serve(ctx, wire.NewJSONFramer(os.Stdin, os.Stdout))
//
// # Locators
//
//	go:<key>              module declared in-process (RegisterHost, RegisterModule)
//	<path>.wasm           core WebAssembly module, signatures from <path>.wit
//	wasm:<path>           same, explicit scheme
//
// # Channel
//
// The server first writes {"hello": "jsii-kernel@<version>"}, then one
// response per request, in order. Requests issued by native code during a
// call are answered inside that call and never appear on the channel.
package runtime
