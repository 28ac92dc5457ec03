package kestrel

import (
	"bytes"
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"
)

type echoParams struct {
	Text  string `param:"text" validate:"required"`
	Times *int   `param:"times,default=1"`
}

func echoEndpoint(ctx context.Context, c *Client, p *echoParams) (*Response, error) {
	q, err := Query(p, ByAlias)
	if err != nil {
		return nil, err
	}
	return c.Get(ctx, "/echo", q)
}

func echoAgainEndpoint(ctx context.Context, c *Client, p *echoParams) (*Response, error) {
	return c.Post(ctx, "/echo", p)
}

func pingEndpoint(ctx context.Context, c *Client) (*Response, error) {
	return c.Get(ctx, "/ping", nil)
}

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	if reg == nil {
		t.Fatal("expected non-nil registry")
	}
	if reg.entries == nil {
		t.Error("expected entries map to be initialized")
	}
	if reg.Sealed() {
		t.Error("new registry should not be sealed")
	}
}

func TestRegister(t *testing.T) {
	reg := NewRegistry()
	p := reg.Provider("sandbox")

	e := Register(p, "echo", "misc", echoEndpoint)
	p.RegisterBare("ping", "misc", pingEndpoint)

	if e.Key() != "sandbox.echo" {
		t.Errorf("expected key sandbox.echo, got %s", e.Key())
	}
	if e.Provider() != "sandbox" || e.Name() != "echo" || e.Resource() != "misc" {
		t.Errorf("unexpected entry identity: %s %s %s", e.Provider(), e.Name(), e.Resource())
	}
	if e.Model() == nil || e.Model().Type() != reflect.TypeFor[echoParams]() {
		t.Error("expected echoParams model")
	}
	if !strings.HasSuffix(e.FuncName(), ".echoEndpoint") {
		t.Errorf("expected implementation name to end in .echoEndpoint, got %s", e.FuncName())
	}

	got, ok := reg.Lookup("sandbox", "echo")
	if !ok || got != e {
		t.Error("expected lookup to return the registered entry")
	}

	ping, ok := reg.Lookup("sandbox", "ping")
	if !ok {
		t.Fatal("expected ping to be registered")
	}
	if ping.Model() != nil {
		t.Error("expected bare endpoint to have no model")
	}
}

func TestRegistry_LookupMissing(t *testing.T) {
	reg := NewRegistry()
	Register(reg.Provider("sandbox"), "echo", "misc", echoEndpoint)

	tests := []struct {
		provider string
		name     string
	}{
		{"sandbox", "nope"},
		{"other", "echo"},
		{"", ""},
	}
	for _, tt := range tests {
		if e, ok := reg.Lookup(tt.provider, tt.name); ok || e != nil {
			t.Errorf("expected %s.%s to be absent", tt.provider, tt.name)
		}
	}
}

func TestRegistry_DuplicateReplaces(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	reg := NewRegistry().WithLogger(logger)
	p := reg.Provider("sandbox")

	Register(p, "echo", "misc", echoEndpoint)
	second := Register(p, "echo", "misc", echoAgainEndpoint)

	got, ok := reg.Lookup("sandbox", "echo")
	if !ok || got != second {
		t.Error("expected the later registration to win")
	}
	if len(reg.Entries()) != 1 {
		t.Errorf("expected 1 entry, got %d", len(reg.Entries()))
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "duplicate endpoint registration") {
		t.Errorf("expected duplicate warning, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "level=WARN") {
		t.Errorf("expected WARN level, got %q", logOutput)
	}
	if !strings.Contains(logOutput, "echoAgainEndpoint") {
		t.Errorf("expected replacement name in warning, got %q", logOutput)
	}
}

func TestRegistry_SealedPanics(t *testing.T) {
	reg := NewRegistry()
	p := reg.Provider("sandbox")
	Register(p, "echo", "misc", echoEndpoint)
	reg.Seal()

	if !reg.Sealed() {
		t.Fatal("expected registry to be sealed")
	}

	defer func() {
		rec := recover()
		if rec == nil {
			t.Fatal("expected panic when registering after Seal")
		}
		if !strings.Contains(rec.(string), "sealed") {
			t.Errorf("unexpected panic: %v", rec)
		}
		if _, ok := reg.Lookup("sandbox", "echo"); !ok {
			t.Error("existing entries should survive a rejected registration")
		}
	}()
	p.RegisterBare("ping", "misc", pingEndpoint)
}

func TestRegister_InvalidModelPanics(t *testing.T) {
	type broken struct {
		Period int64 `param:"period,transform=days"`
	}
	fn := func(ctx context.Context, c *Client, p *broken) (*Response, error) { return nil, nil }

	defer func() {
		if recover() == nil {
			t.Error("expected panic for an invalid parameter model")
		}
	}()
	Register(NewRegistry().Provider("sandbox"), "broken", "misc", fn)
}

func TestRegistry_EntriesSorted(t *testing.T) {
	reg := NewRegistry()
	ibkr := reg.Provider("ibkr")
	sandbox := reg.Provider("sandbox")

	sandbox.RegisterBare("ping", "misc", pingEndpoint)
	Register(ibkr, "zeta", "misc", echoEndpoint)
	Register(ibkr, "alpha", "misc", echoEndpoint)

	var keys []string
	for _, e := range reg.Entries() {
		keys = append(keys, e.Key())
	}
	want := []string{"ibkr.alpha", "ibkr.zeta", "sandbox.ping"}
	if strings.Join(keys, " ") != strings.Join(want, " ") {
		t.Errorf("expected %v, got %v", want, keys)
	}
}

func TestEntry_Prepare(t *testing.T) {
	reg := NewRegistry()
	e := Register(reg.Provider("sandbox"), "echo", "misc", echoEndpoint)
	ping := reg.Provider("sandbox").RegisterBare("ping", "misc", pingEndpoint)

	t.Run("typed struct", func(t *testing.T) {
		p, err := e.prepare([]any{echoParams{Text: "hi"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.(*echoParams); got.Times == nil || *got.Times != 1 {
			t.Errorf("expected default times=1, got %v", got.Times)
		}
	})

	t.Run("keyword", func(t *testing.T) {
		p, err := e.prepare([]any{Named{"text": "hi", "times": "3"}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := p.(*echoParams); *got.Times != 3 {
			t.Errorf("expected times=3, got %d", *got.Times)
		}
	})

	t.Run("error names endpoint", func(t *testing.T) {
		_, err := e.prepare(nil)
		verr := validationError(t, err)
		if verr.Endpoint != "sandbox.echo" {
			t.Errorf("expected endpoint sandbox.echo, got %s", verr.Endpoint)
		}
	})

	t.Run("bare with arguments", func(t *testing.T) {
		_, err := ping.prepare([]any{1})
		verr := validationError(t, err)
		if !strings.Contains(verr.Error(), "takes no arguments") {
			t.Errorf("unexpected error: %v", verr)
		}
	})
}
