// Package testutil provides a fake broker gateway and assertion helpers for
// endpoint tests. It does not import kestrel and can be used from any package.
package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
)

// Request is one request received by a Broker.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v.
func (r Request) JSON(t *testing.T, v any) {
	t.Helper()
	if err := json.Unmarshal(r.Body, v); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, r.Body)
	}
}

// Broker is an in-process HTTP server standing in for a broker gateway.
// Every request is recorded. Routes not configured with Handle answer
// 200 with an empty JSON object.
type Broker struct {
	*httptest.Server

	mu       sync.Mutex
	requests []Request
	routes   map[string]http.HandlerFunc
}

// NewBroker starts a Broker and registers its shutdown with t.Cleanup.
func NewBroker(t *testing.T) *Broker {
	t.Helper()
	b := &Broker{routes: make(map[string]http.HandlerFunc)}
	b.Server = httptest.NewServer(http.HandlerFunc(b.serve))
	t.Cleanup(b.Close)
	return b
}

// Handle sets the handler for method and path, e.g. ("GET", "/trsrv/stocks").
func (b *Broker) Handle(method, path string, h http.HandlerFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[method+" "+path] = h
}

// Reply makes method and path answer status with v encoded as JSON.
func (b *Broker) Reply(method, path string, status int, v any) {
	b.Handle(method, path, func(w http.ResponseWriter, r *http.Request) {
		WriteJSON(w, status, v)
	})
}

func (b *Broker) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	b.mu.Lock()
	b.requests = append(b.requests, Request{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	h := b.routes[r.Method+" "+r.URL.Path]
	b.mu.Unlock()

	if h == nil {
		WriteJSON(w, http.StatusOK, map[string]any{})
		return
	}
	h(w, r)
}

// Requests returns a copy of everything received so far.
func (b *Broker) Requests() []Request {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Request, len(b.requests))
	copy(out, b.requests)
	return out
}

// Last returns the most recent request. It fails the test if none arrived.
func (b *Broker) Last(t *testing.T) Request {
	t.Helper()
	reqs := b.Requests()
	if len(reqs) == 0 {
		t.Fatal("expected at least one request, got none")
	}
	return reqs[len(reqs)-1]
}

// WriteJSON writes v as a JSON response.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// AssertNoRequests checks that the broker was never contacted.
func AssertNoRequests(t *testing.T, b *Broker) {
	t.Helper()
	if reqs := b.Requests(); len(reqs) != 0 {
		t.Errorf("expected no requests, got %d (first: %s %s)", len(reqs), reqs[0].Method, reqs[0].Path)
	}
}

// AssertRequest checks the method and path of r.
func AssertRequest(t *testing.T, r Request, method, path string) {
	t.Helper()
	if r.Method != method || r.Path != path {
		t.Errorf("expected %s %s, got %s %s", method, path, r.Method, r.Path)
	}
}

// AssertQuery checks that r carries exactly the expected query values.
func AssertQuery(t *testing.T, r Request, expected map[string]string) {
	t.Helper()
	for k, v := range expected {
		if got := r.Query.Get(k); got != v {
			t.Errorf("expected query %s=%q, got %q", k, v, got)
		}
	}
	for k := range r.Query {
		if _, ok := expected[k]; !ok {
			t.Errorf("unexpected query parameter %s=%q", k, r.Query.Get(k))
		}
	}
}

// AssertJSONBody compares the request body with expected as JSON.
func AssertJSONBody(t *testing.T, r Request, expected any) {
	t.Helper()

	expectedJSON, _ := json.Marshal(expected)

	var expectedData, actualData any
	if err := json.Unmarshal(expectedJSON, &expectedData); err != nil {
		t.Fatalf("failed to encode expected body: %v", err)
	}
	if err := json.Unmarshal(r.Body, &actualData); err != nil {
		t.Fatalf("failed to decode request body: %v\nBody: %s", err, r.Body)
	}

	expectedStr, _ := json.MarshalIndent(expectedData, "", "  ")
	actualStr, _ := json.MarshalIndent(actualData, "", "  ")

	if string(expectedStr) != string(actualStr) {
		t.Errorf("body mismatch:\nExpected:\n%s\nActual:\n%s", expectedStr, actualStr)
	}
}
