package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kestrelquant/kestrel"
)

func newTestLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewJSONHandler(buf, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

func callContext(provider, endpoint string) context.Context {
	return kestrel.WithCall(context.Background(), &kestrel.CallInfo{
		Provider: provider,
		Endpoint: endpoint,
	})
}

func TestLoggingInterceptor_Success(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newTestLogger(&buf))

	ctx := callContext("ibkr", "all_orders")
	req := httptest.NewRequest(http.MethodGet, "/iserver/account/orders", nil)

	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		return &kestrel.Response{StatusCode: http.StatusOK}, nil
	}

	res, err := interceptor(ctx, req, next)
	if err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if res == nil || res.StatusCode != http.StatusOK {
		t.Errorf("expected 200 response, got %+v", res)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "request started") {
		t.Error("expected 'request started' in log output")
	}
	if !strings.Contains(logOutput, "request completed") {
		t.Error("expected 'request completed' in log output")
	}
	if !strings.Contains(logOutput, "ibkr.all_orders") {
		t.Error("expected endpoint key in log output")
	}
	if !strings.Contains(logOutput, `"status":200`) {
		t.Error("expected status in log output")
	}
}

func TestLoggingInterceptor_Error(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newTestLogger(&buf))

	ctx := callContext("ibkr", "all_orders")
	req := httptest.NewRequest(http.MethodGet, "/iserver/account/orders", nil)

	testErr := &kestrel.TransportError{Method: "GET", Path: "/iserver/account/orders", Err: errors.New("connection refused")}
	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		return nil, testErr
	}

	res, err := interceptor(ctx, req, next)
	if err != testErr {
		t.Errorf("expected test error, got %v", err)
	}
	if res != nil {
		t.Errorf("expected nil response, got %v", res)
	}

	logOutput := buf.String()
	if !strings.Contains(logOutput, "request failed") {
		t.Error("expected 'request failed' in log output")
	}
	if !strings.Contains(logOutput, "connection refused") {
		t.Error("expected error message in log output")
	}
}

func TestLoggingInterceptor_ErrorStatusIsNotFailure(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newTestLogger(&buf))

	req := httptest.NewRequest(http.MethodPost, "/iserver/account/U1/orders", nil)
	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		return &kestrel.Response{StatusCode: http.StatusInternalServerError}, nil
	}

	if _, err := interceptor(context.Background(), req, next); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	logOutput := buf.String()
	if strings.Contains(logOutput, "request failed") {
		t.Error("5xx status should not be logged as a failure")
	}
	if !strings.Contains(logOutput, `"status":500`) {
		t.Error("expected status 500 in log output")
	}
}

func TestLoggingInterceptor_NilLogger(t *testing.T) {
	// Should not panic with nil logger, should use default
	interceptor := LoggingInterceptor(nil)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		return &kestrel.Response{StatusCode: http.StatusNoContent}, nil
	}

	if _, err := interceptor(context.Background(), req, next); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoggingInterceptor_LogsDuration(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newTestLogger(&buf))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		return &kestrel.Response{StatusCode: http.StatusOK}, nil
	}

	if _, err := interceptor(context.Background(), req, next); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	if !strings.Contains(buf.String(), "duration") {
		t.Error("expected 'duration' in log output")
	}
}

func TestLoggingInterceptor_PropagatesContext(t *testing.T) {
	interceptor := LoggingInterceptor(newTestLogger(&bytes.Buffer{}))

	type ctxKey string
	key := ctxKey("test-key")
	ctx := context.WithValue(callContext("ibkr", "all_orders"), key, "test-value")
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
		if ctx.Value(key) != "test-value" {
			t.Error("expected context value to be propagated")
		}
		return &kestrel.Response{StatusCode: http.StatusOK}, nil
	}

	if _, err := interceptor(ctx, req, next); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoggingInterceptor_EndpointKeyInLogs(t *testing.T) {
	var buf bytes.Buffer
	interceptor := LoggingInterceptor(newTestLogger(&buf))

	tests := []struct {
		provider string
		endpoint string
		key      string
	}{
		{"ibkr", "place_order", "ibkr.place_order"},
		{"ibkr", "security_search", "ibkr.security_search"},
		{"sandbox", "echo", "sandbox.echo"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			buf.Reset()

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			next := func(ctx context.Context, req *http.Request) (*kestrel.Response, error) {
				return &kestrel.Response{StatusCode: http.StatusOK}, nil
			}

			_, _ = interceptor(callContext(tt.provider, tt.endpoint), req, next)

			if !strings.Contains(buf.String(), tt.key) {
				t.Errorf("expected endpoint key %s in log output", tt.key)
			}
		})
	}
}
