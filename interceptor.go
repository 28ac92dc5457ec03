package kestrel

import (
	"context"
	"net/http"
)

// Invoker sends a prepared request. It is passed to [Interceptor] functions
// to invoke the next interceptor or the transport itself.
type Invoker func(ctx context.Context, req *http.Request) (*Response, error)

// Interceptor wraps every request a Client sends.
//
//	func timing(ctx context.Context, req *http.Request, next kestrel.Invoker) (*kestrel.Response, error) {
//	    start := time.Now()
//	    res, err := next(ctx, req)
//	    log.Printf("%s %s took %v", req.Method, req.URL.Path, time.Since(start))
//	    return res, err
//	}
//
// Interceptors can:
//   - Inspect or modify the request (headers, session cookies) before calling next
//   - Inspect the response after calling next
//   - Short-circuit by returning without calling next
//
// Interceptors must not mutate shared state without their own locking;
// calls run concurrently.
type Interceptor func(ctx context.Context, req *http.Request, next Invoker) (*Response, error)

// chainInterceptors combines interceptors around final.
// The first interceptor in the slice is the outer-most one (runs first).
func chainInterceptors(interceptors []Interceptor, final Invoker) Invoker {
	chain := final
	for i := len(interceptors) - 1; i >= 0; i-- {
		current := interceptors[i]
		next := chain
		chain = func(ctx context.Context, req *http.Request) (*Response, error) {
			return current(ctx, req, next)
		}
	}
	return chain
}
