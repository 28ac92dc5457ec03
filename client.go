package kestrel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Client is the shared transport used by every dispatched call. It is
// configured once and then only read; timeouts, TLS and connection pooling
// belong to the wrapped *http.Client.
type Client struct {
	baseURL      string
	hc           *http.Client
	header       http.Header
	interceptors []Interceptor
}

// NewClient creates a client that resolves endpoint paths against baseURL.
// A nil hc uses http.DefaultClient.
func NewClient(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		hc:      hc,
		header:  make(http.Header),
	}
}

// WithInterceptor adds an interceptor. Interceptors run in the order added,
// the first being outermost. Configure before dispatching any call.
func (c *Client) WithInterceptor(i Interceptor) *Client {
	c.interceptors = append(c.interceptors, i)
	return c
}

// WithHeader sets a header sent with every request.
func (c *Client) WithHeader(key, value string) *Client {
	c.header.Set(key, value)
	return c
}

// BaseURL returns the URL paths are resolved against.
func (c *Client) BaseURL() string { return c.baseURL }

// Get issues a GET request with the given query.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, query, nil)
}

// Post issues a POST request. A non-nil body is sent as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, nil, body)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, nil)
}

// Do sends one request and reads the whole response. Only failures to
// complete the exchange are returned as errors (*TransportError); any HTTP
// status, including 4xx and 5xx, is returned as a Response.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("kestrel: encode %s %s body: %w", method, path, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("kestrel: build %s %s: %w", method, path, err)
	}
	for k, vs := range c.header {
		req.Header[k] = append([]string(nil), vs...)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	return chainInterceptors(c.interceptors, c.send)(ctx, req)
}

func (c *Client) send(ctx context.Context, req *http.Request) (*Response, error) {
	fail := func(err error) error {
		te := &TransportError{Method: req.Method, Path: req.URL.Path, Err: err}
		if info, ok := CallFromContext(ctx); ok {
			te.Endpoint = info.Key()
		}
		return te
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fail(err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fail(err)
	}

	return &Response{
		Method:     req.Method,
		URL:        req.URL.String(),
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}

// Response is a completed HTTP exchange with its body fully read.
// The status code is not interpreted.
type Response struct {
	Method     string
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx.
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the JSON body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("kestrel: decode %s %s: %w", r.Method, r.URL, err)
	}
	return nil
}
