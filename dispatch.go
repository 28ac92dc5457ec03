package kestrel

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// Dispatcher validates arguments and starts endpoint calls on a shared
// Client. Each call progresses independently; no ordering exists between
// calls, so a caller that needs one must Wait before dispatching the next.
type Dispatcher struct {
	client   *Client
	registry *Registry
	logger   *slog.Logger
}

// NewDispatcher creates a dispatcher issuing calls through c.
func NewDispatcher(c *Client) *Dispatcher {
	return &Dispatcher{client: c}
}

// WithRegistry sets the registry used by Call.
func (d *Dispatcher) WithRegistry(r *Registry) *Dispatcher {
	d.registry = r
	return d
}

// WithLogger sets a custom logger for the dispatcher.
// If not set, slog.Default() will be used.
func (d *Dispatcher) WithLogger(logger *slog.Logger) *Dispatcher {
	d.logger = logger
	return d
}

func (d *Dispatcher) log() *slog.Logger {
	if d.logger == nil {
		return slog.Default()
	}
	return d.logger
}

// Dispatch instantiates the entry's parameter model from args and starts
// the call. Arguments are either a single value of the model's struct type
// (or a pointer to one), or positional values followed by an optional
// Named set; see Model.New.
//
// Invalid arguments are reported synchronously as a *ValidationError and
// nothing is sent. Otherwise Dispatch returns at once with a Handle.
// Cancelling ctx cancels the call; so does Handle.Cancel.
func (d *Dispatcher) Dispatch(ctx context.Context, e *Entry, args ...any) (*Handle, error) {
	params, err := e.prepare(args)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithCancel(ctx)
	callCtx = WithCall(callCtx, &CallInfo{
		Provider: e.provider,
		Endpoint: e.name,
		Resource: e.resource,
	})

	h := &Handle{
		entry:  e,
		done:   make(chan struct{}),
		cancel: cancel,
	}

	d.log().DebugContext(ctx, "dispatching call", slog.String("endpoint", e.Key()))

	go func() {
		defer close(h.done)
		defer cancel()
		defer func() {
			if rec := recover(); rec != nil {
				d.log().Error("PANIC recovered",
					slog.String("endpoint", e.Key()),
					slog.Any("panic", rec),
					slog.String("stack", string(debug.Stack())))
				h.resp, h.err = nil, Errorf(CodeInternal, "%s: panic: %v", e.Key(), rec)
			}
		}()
		h.resp, h.err = e.invoke(callCtx, d.client, params)
	}()

	return h, nil
}

// Call looks up (provider, name) in the dispatcher's registry and
// dispatches it. An unknown endpoint yields an *Error with CodeNotFound.
func (d *Dispatcher) Call(ctx context.Context, provider, name string, args ...any) (*Handle, error) {
	if d.registry == nil {
		return nil, NewError(CodeInternal, "dispatcher has no registry")
	}
	e, ok := d.registry.Lookup(provider, name)
	if !ok {
		return nil, Errorf(CodeNotFound, "endpoint %s.%s not found", provider, name).
			WithDetail("provider", provider).
			WithDetail("endpoint", name)
	}
	return d.Dispatch(ctx, e, args...)
}

// Handle is one dispatched call. It resolves exactly once, to a Response
// or an error.
type Handle struct {
	entry  *Entry
	done   chan struct{}
	cancel context.CancelFunc
	resp   *Response
	err    error
}

// Endpoint returns the key of the dispatched endpoint.
func (h *Handle) Endpoint() string { return h.entry.Key() }

// Done is closed when the call has resolved.
func (h *Handle) Done() <-chan struct{} { return h.done }

// Cancel abandons the call. Other handles are unaffected. Cancelling a
// resolved handle has no effect.
func (h *Handle) Cancel() { h.cancel() }

// Wait blocks until the call resolves or ctx ends. ctx bounds only the
// wait; the call keeps running if ctx ends first.
func (h *Handle) Wait(ctx context.Context) (*Response, error) {
	// A resolved call wins over an ended ctx.
	select {
	case <-h.done:
		return h.resp, h.err
	default:
	}
	select {
	case <-h.done:
		return h.resp, h.err
	case <-ctx.Done():
		return nil, fmt.Errorf("wait %s: %w", h.Endpoint(), ctx.Err())
	}
}

// Result is the outcome of one handle collected by Gather.
type Result struct {
	Endpoint string
	Response *Response
	Err      error
}

// Gather waits for all handles and returns their results in the order
// given. A failed call does not affect the others. Once ctx ends, calls
// that have not resolved report ctx's error while resolved ones still
// report their outcome.
func Gather(ctx context.Context, handles ...*Handle) []Result {
	results := make([]Result, len(handles))
	for i, h := range handles {
		resp, err := h.Wait(ctx)
		results[i] = Result{Endpoint: h.Endpoint(), Response: resp, Err: err}
	}
	return results
}
