package kestrel

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"runtime"
	"slices"
	"strings"
	"sync"
)

// EndpointFunc implements one remote operation taking validated parameters.
type EndpointFunc[P any] func(ctx context.Context, c *Client, p *P) (*Response, error)

// BareFunc implements one remote operation that takes no parameters.
type BareFunc func(ctx context.Context, c *Client) (*Response, error)

// Entry is a registered endpoint. Entries are immutable.
type Entry struct {
	provider string
	name     string
	resource string
	model    *Model
	funcName string
	invoke   func(ctx context.Context, c *Client, p any) (*Response, error)
}

// Provider returns the provider the endpoint is registered under.
func (e *Entry) Provider() string { return e.provider }

// Name returns the endpoint name.
func (e *Entry) Name() string { return e.name }

// Resource returns the grouping tag, e.g. "orders".
func (e *Entry) Resource() string { return e.resource }

// Model returns the parameter model, or nil for parameterless endpoints.
func (e *Entry) Model() *Model { return e.model }

// Key returns "provider.name".
func (e *Entry) Key() string { return e.provider + "." + e.name }

// FuncName returns the fully-qualified name of the implementation.
func (e *Entry) FuncName() string { return e.funcName }

// prepare instantiates the entry's model from args.
func (e *Entry) prepare(args []any) (any, error) {
	var (
		params any
		err    error
	)
	switch {
	case e.model == nil:
		if len(args) > 0 {
			err = &ValidationError{Fields: []FieldError{{
				Message: fmt.Sprintf("takes no arguments but %d were given", len(args)),
			}}}
		}
	case len(args) == 1 && e.model.accepts(args[0]):
		params, err = e.model.Bind(args[0])
	default:
		params, err = e.model.New(args...)
	}
	if err != nil {
		if verr, ok := err.(*ValidationError); ok {
			verr.Endpoint = e.Key()
		}
		return nil, err
	}
	return params, nil
}

// Registry maps (provider, endpoint name) to registered endpoints.
//
// A registry has two phases. During registration endpoints are added,
// typically by one explicit pass per provider at startup. Seal ends that
// phase; afterwards the registry is read-only and safe for concurrent
// lookups, and any further registration panics.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*Entry
	sealed  bool
	logger  *slog.Logger
}

// NewRegistry creates an empty registry in its registration phase.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[string]*Entry),
	}
}

// WithLogger sets a custom logger for the registry.
// If not set, slog.Default() will be used.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

func (r *Registry) log() *slog.Logger {
	if r.logger == nil {
		return slog.Default()
	}
	return r.logger
}

// Provider returns a namespace for registering a provider's endpoints.
func (r *Registry) Provider(name string) *Provider {
	return &Provider{
		registry: r,
		name:     name,
	}
}

// Seal ends the registration phase.
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Sealed reports whether Seal has been called.
func (r *Registry) Sealed() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sealed
}

// Lookup returns the endpoint registered under (provider, name).
// A missing endpoint is reported by ok == false, never by a panic or error.
func (r *Registry) Lookup(provider, name string) (e *Entry, ok bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok = r.entries[provider+"."+name]
	return e, ok
}

// Entries returns all registered endpoints sorted by key.
func (r *Registry) Entries() []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *Entry) int {
		return strings.Compare(a.Key(), b.Key())
	})
	return out
}

// add stores e. If an endpoint is already registered under the same key it
// is replaced and a warning is logged.
func (r *Registry) add(e *Entry) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		panic(fmt.Sprintf("kestrel: register %s: registry is sealed", e.Key()))
	}

	if prev, exists := r.entries[e.Key()]; exists {
		r.log().Warn("duplicate endpoint registration",
			slog.String("provider", e.provider),
			slog.String("endpoint", e.name),
			slog.String("previous", prev.funcName),
			slog.String("replacement", e.funcName))
	}

	r.entries[e.Key()] = e
}

// Provider is a registration namespace within a Registry.
type Provider struct {
	registry *Registry
	name     string
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return p.name }

// Register adds an endpoint whose parameters are described by the struct
// type P. It panics if P is not a valid parameter model or the registry is
// sealed.
func Register[P any](p *Provider, name, resource string, fn EndpointFunc[P]) *Entry {
	model, err := ModelOf[P]()
	if err != nil {
		panic(err)
	}
	e := &Entry{
		provider: p.name,
		name:     name,
		resource: resource,
		model:    model,
		funcName: funcName(fn),
		invoke: func(ctx context.Context, c *Client, params any) (*Response, error) {
			return fn(ctx, c, params.(*P))
		},
	}
	p.registry.add(e)
	return e
}

// RegisterBare adds an endpoint that takes no parameters.
func (p *Provider) RegisterBare(name, resource string, fn BareFunc) *Entry {
	e := &Entry{
		provider: p.name,
		name:     name,
		resource: resource,
		funcName: funcName(fn),
		invoke: func(ctx context.Context, c *Client, _ any) (*Response, error) {
			return fn(ctx, c)
		},
	}
	p.registry.add(e)
	return e
}

func funcName(fn any) string {
	if f := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()); f != nil {
		return f.Name()
	}
	return ""
}
