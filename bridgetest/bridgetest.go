// Package bridgetest provides typed test helpers that dispatch neutral
// requests against a bridge.App without any transport.
package bridgetest

import (
	"context"
	"strings"
	"testing"

	"github.com/bytedance/sonic"

	"github.com/bjaus/bridge"
)

// Client dispatches requests against an App.
type Client struct {
	App *bridge.App

	// Header is sent with every request.
	Header bridge.Header
}

// NewClient creates a test client for app.
func NewClient(t testing.TB, app *bridge.App) *Client {
	t.Helper()
	return &Client{App: app, Header: bridge.Header{}}
}

// Response holds a dispatched response with its decoded JSON body.
type Response[T any] struct {
	Status int
	Header bridge.Header
	Body   *T
	Raw    *bridge.Response
}

// RequestOption modifies a request before it is dispatched.
type RequestOption func(*bridge.Request)

// WithHeader sets a request header.
func WithHeader(key, value string) RequestOption {
	return func(r *bridge.Request) {
		r.Header.Set(key, value)
	}
}

// WithContext dispatches the request with ctx.
func WithContext(ctx context.Context) RequestOption {
	return func(r *bridge.Request) {
		*r = *r.WithContext(ctx)
	}
}

// WithRawBody replaces the request body. The Content-Type header is left
// untouched.
func WithRawBody(body []byte) RequestOption {
	return func(r *bridge.Request) {
		r.Body = body
	}
}

// Get sends a typed GET request.
func Get[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, bridge.MethodGet, path, nil, opts...)
}

// Post sends a typed POST request with a JSON body.
func Post[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, bridge.MethodPost, path, body, opts...)
}

// Put sends a typed PUT request with a JSON body.
func Put[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, bridge.MethodPut, path, body, opts...)
}

// Patch sends a typed PATCH request with a JSON body.
func Patch[Req, Resp any](t testing.TB, c *Client, path string, body *Req, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, bridge.MethodPatch, path, body, opts...)
}

// Delete sends a typed DELETE request.
func Delete[Resp any](t testing.TB, c *Client, path string, opts ...RequestOption) *Response[Resp] {
	t.Helper()
	return Do[Resp](t, c, bridge.MethodDelete, path, nil, opts...)
}

// Do dispatches a request. path may carry a query string. A non-nil body is
// JSON encoded. The response body is decoded as JSON into Resp when the
// response has one; a body that does not decode leaves Body nil.
func Do[Resp any](t testing.TB, c *Client, method bridge.Method, path string, body any, opts ...RequestOption) *Response[Resp] {
	t.Helper()

	raw := Dispatch(t, c, method, path, body, opts...)
	result := &Response[Resp]{
		Status: raw.Status,
		Header: raw.Header,
		Raw:    raw,
	}

	if len(raw.Body) > 0 {
		var decoded Resp
		if err := sonic.ConfigStd.Unmarshal(raw.Body, &decoded); err == nil {
			result.Body = &decoded
		}
	}
	return result
}

// Dispatch builds a request and returns the raw response.
func Dispatch(t testing.TB, c *Client, method bridge.Method, path string, body any, opts ...RequestOption) *bridge.Response {
	t.Helper()

	req := NewRequest(t, method, path)
	for k, v := range c.Header {
		req.Header.Set(k, v)
	}
	if body != nil {
		b, err := sonic.ConfigStd.Marshal(body)
		if err != nil {
			t.Fatalf("bridgetest: marshal request body: %v", err)
		}
		req.Body = b
		req.Header.Set("Content-Type", "application/json")
	}
	for _, opt := range opts {
		opt(req)
	}

	return c.App.Dispatch(req.Context(), req)
}

// NewRequest builds a neutral request from a method and a path that may
// carry a query string.
func NewRequest(t testing.TB, method bridge.Method, target string) *bridge.Request {
	t.Helper()

	path, query, _ := strings.Cut(target, "?")

	req, err := bridge.NewRequest(string(method), path)
	if err != nil {
		t.Fatalf("bridgetest: create request: %v", err)
	}
	req.Query = bridge.ParseQuery(query)
	return req
}
