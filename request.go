package bridge

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Method is an HTTP request method.
type Method string

// Supported methods.
const (
	MethodGet     Method = "GET"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodPatch   Method = "PATCH"
	MethodHead    Method = "HEAD"
	MethodOptions Method = "OPTIONS"
)

// ParseMethod parses s case-insensitively. An empty or unknown method is a
// bad request.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(s)))
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch, MethodHead, MethodOptions:
		return m, nil
	case "":
		return "", badRequest(http.StatusBadRequest, "missing request method", ErrInvalidMethod)
	default:
		return "", badRequest(http.StatusBadRequest, fmt.Sprintf("unsupported request method %q", s), ErrInvalidMethod)
	}
}

// Request is the platform-neutral request every adapter produces.
//
// Body always holds the decoded payload bytes; IsBase64Encoded only records
// that the originating transport delivered it base64 encoded.
type Request struct {
	Method          Method
	Path            string
	Query           map[string]string
	Header          Header
	PathParams      map[string]string
	Body            []byte
	IsBase64Encoded bool

	ctx context.Context
}

// NewRequest returns a Request for method and path. An empty path becomes
// "/" and a missing leading slash is added.
func NewRequest(method, path string) (*Request, error) {
	m, err := ParseMethod(method)
	if err != nil {
		return nil, err
	}
	return &Request{
		Method:     m,
		Path:       NormalizePath(path),
		Query:      map[string]string{},
		Header:     Header{},
		PathParams: map[string]string{},
	}, nil
}

// NormalizePath ensures path starts with "/".
func NormalizePath(path string) string {
	if path == "" {
		return "/"
	}
	if path[0] != '/' {
		return "/" + path
	}
	return path
}

// Context returns the request's context, never nil.
func (r *Request) Context() context.Context {
	if r.ctx != nil {
		return r.ctx
	}
	return context.Background()
}

// WithContext returns a shallow copy of r with its context changed to ctx.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx == nil {
		panic("bridge: nil context")
	}
	r2 := *r
	r2.ctx = ctx
	return &r2
}

// Clone returns a deep copy of r carrying ctx.
func (r *Request) Clone(ctx context.Context) *Request {
	r2 := r.WithContext(ctx)
	r2.Query = maps.Clone(r.Query)
	r2.Header = r.Header.Clone()
	r2.PathParams = maps.Clone(r.PathParams)
	if r.Body != nil {
		r2.Body = append([]byte(nil), r.Body...)
	}
	return r2
}

// Param returns the named path parameter.
func (r *Request) Param(name string) string { return r.PathParams[name] }

// QueryValue returns the named query parameter.
func (r *Request) QueryValue(name string) string { return r.Query[name] }

// DecodeJSON decodes the body as JSON into v.
func (r *Request) DecodeJSON(v any) error {
	if len(r.Body) == 0 {
		return ErrMissingBody
	}
	return jsonCodec{}.Unmarshal(r.Body, v)
}

// ParseQuery parses a raw query string. Keys and values are percent-decoded
// with '+' read as a space; malformed escapes are kept verbatim. A key
// without '=' maps to "", and the last value wins for repeated keys.
func ParseQuery(raw string) map[string]string {
	params := map[string]string{}
	raw = strings.TrimPrefix(raw, "?")
	for pair := range strings.SplitSeq(raw, "&") {
		if pair == "" {
			continue
		}
		key, value, _ := strings.Cut(pair, "=")
		params[unescape(key)] = unescape(value)
	}
	return params
}

// unescape decodes %XX sequences and '+' without rejecting malformed input.
// Invalid UTF-8 produced by decoding is replaced with U+FFFD.
func unescape(s string) string {
	if !strings.ContainsAny(s, "%+") {
		return s
	}
	b := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '+':
			b = append(b, ' ')
		case c == '%' && i+2 < len(s) && ishex(s[i+1]) && ishex(s[i+2]):
			b = append(b, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 2
		default:
			b = append(b, c)
		}
	}
	if !utf8.Valid(b) {
		return strings.ToValidUTF8(string(b), "�")
	}
	return string(b)
}

func ishex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
