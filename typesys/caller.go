package typesys

import (
	"context"

	"github.com/wippyai/jsii-kernel/wire"
)

// Caller accepts requests from native code running inside a dispatch.
// Calls nest: the inner request completes before the outer one resumes.
type Caller interface {
	Call(ctx context.Context, req wire.Request) wire.Response
}

type callerKey struct{}

// WithCaller returns a context carrying c.
func WithCaller(ctx context.Context, c Caller) context.Context {
	return context.WithValue(ctx, callerKey{}, c)
}

// CallerFrom returns the Caller of the dispatch ctx belongs to.
func CallerFrom(ctx context.Context) (Caller, bool) {
	c, ok := ctx.Value(callerKey{}).(Caller)
	return c, ok
}
