package kestrel

import (
	"context"
)

type contextKey struct {
	name string
}

var callInfoKey = &contextKey{"call_info"}

// CallInfo identifies the registered endpoint a request belongs to.
type CallInfo struct {
	Provider string
	Endpoint string
	Resource string
}

// Key returns the registry key, "provider.endpoint".
func (c *CallInfo) Key() string {
	return c.Provider + "." + c.Endpoint
}

// CallFromContext returns the call info attached by the Dispatcher.
func CallFromContext(ctx context.Context) (*CallInfo, bool) {
	info, ok := ctx.Value(callInfoKey).(*CallInfo)
	return info, ok
}

// WithCall attaches info to ctx. The Dispatcher does this for every
// dispatched call; tests and direct Client users may do it themselves.
func WithCall(ctx context.Context, info *CallInfo) context.Context {
	return context.WithValue(ctx, callInfoKey, info)
}
