package bridge

import (
	"fmt"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Response is the platform-neutral response every adapter renders.
type Response struct {
	Status          int
	Header          Header
	Body            []byte
	IsBase64Encoded bool
}

// NewResponse returns an empty response with the given status.
func NewResponse(status int) *Response {
	return &Response{Status: status, Header: Header{}}
}

// JSON returns a response with v encoded as JSON.
func JSON(status int, v any) (*Response, error) {
	b, err := jsonCodec{}.Marshal(v)
	if err != nil {
		return nil, internalFault("response serialization failed", fmt.Errorf("%w: %w", ErrEncodeBody, err))
	}
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "application/json")
	resp.Body = b
	return resp, nil
}

// Text returns a plain text response.
func Text(status int, s string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "text/plain; charset=utf-8")
	resp.Body = []byte(s)
	return resp
}

// HTML returns an HTML response.
func HTML(status int, s string) *Response {
	resp := NewResponse(status)
	resp.Header.Set("Content-Type", "text/html; charset=utf-8")
	resp.Body = []byte(s)
	return resp
}

// Bytes returns a response carrying data verbatim. Bodies that are not
// valid UTF-8 are flagged as base64 for transports that need it.
func Bytes(status int, contentType string, data []byte) *Response {
	resp := NewResponse(status)
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	resp.Header.Set("Content-Type", contentType)
	resp.Body = data
	resp.IsBase64Encoded = !utf8.Valid(data)
	return resp
}

// Redirect returns a redirect to url. A zero status means 302 Found.
func Redirect(status int, url string) *Response {
	if status == 0 {
		status = http.StatusFound
	}
	resp := NewResponse(status)
	resp.Header.Set("Location", url)
	return resp
}

// WithHeader sets a header and returns r.
func (r *Response) WithHeader(key, value string) *Response {
	if r.Header == nil {
		r.Header = Header{}
	}
	r.Header.Set(key, value)
	return r
}

// SetCookie appends c to the Set-Cookie header. Multiple cookies share one
// comma-joined value; adapters split it back with SplitSetCookie. Invalid
// cookies are dropped.
func (r *Response) SetCookie(c *http.Cookie) {
	v := c.String()
	if v == "" {
		return
	}
	if r.Header == nil {
		r.Header = Header{}
	}
	r.Header.Add("Set-Cookie", v)
}

// SetCookieValues returns the individual Set-Cookie values of r.
func (r *Response) SetCookieValues() []string {
	return SplitSetCookie(r.Header.Get("Set-Cookie"))
}

// SplitSetCookie splits a comma-joined Set-Cookie value into individual
// cookies. Commas inside an Expires date do not split.
func SplitSetCookie(v string) []string {
	var out []string
	start := 0
	for i := 0; i < len(v); i++ {
		if v[i] != ',' {
			continue
		}
		attr := v[start:i]
		if j := strings.LastIndexByte(attr, ';'); j >= 0 {
			attr = attr[j+1:]
		}
		attr = strings.TrimSpace(attr)
		// "Expires=Wed, 21 Oct 2015 07:28:00 GMT": the weekday comma.
		if len(attr) >= 8 && strings.EqualFold(attr[:8], "expires=") && !strings.Contains(attr[8:], " ") {
			continue
		}
		if c := strings.TrimSpace(v[start:i]); c != "" {
			out = append(out, c)
		}
		start = i + 1
	}
	if c := strings.TrimSpace(v[start:]); c != "" {
		out = append(out, c)
	}
	return out
}

// CookieSetter is optionally implemented by response types to set cookies.
type CookieSetter interface {
	Cookies() []*http.Cookie
}

// HeaderSetter is optionally implemented by response types to set response headers.
type HeaderSetter interface {
	SetHeaders(h Header)
}

// Void is used as a response type when a handler returns no body
// (results in 204 No Content).
type Void struct{}

// Blob is returned from a handler to send raw bytes with a content type,
// bypassing serialization.
type Blob struct {
	ContentType string
	Data        []byte
}

// finalize enforces the terminal response invariants.
func finalize(resp *Response) *Response {
	if resp == nil {
		resp = NewResponse(http.StatusInternalServerError)
	}
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	if resp.Header == nil {
		resp.Header = Header{}
	}
	return resp
}
