package bridge

import (
	"context"
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type requestIDKey struct{}

// RequestIDConfig configures the RequestID middleware.
type RequestIDConfig struct {
	Header    string        // default: "X-Request-ID"
	Generator func() string // default: NewULID
}

// RequestID returns middleware that assigns a unique request ID to each
// request. The ID is read from the request header (if present) or
// generated, stored in the context and echoed on the response header.
func RequestID(cfg ...RequestIDConfig) Middleware {
	c := RequestIDConfig{
		Header:    "X-Request-ID",
		Generator: NewULID,
	}
	if len(cfg) > 0 {
		if cfg[0].Header != "" {
			c.Header = cfg[0].Header
		}
		if cfg[0].Generator != nil {
			c.Generator = cfg[0].Generator
		}
	}

	return Middleware{
		Name: "request_id",
		Pre: func(req *Request) (*Request, error) {
			id := req.Header.Get(c.Header)
			if id == "" {
				id = c.Generator()
			}
			return req.WithContext(context.WithValue(req.Context(), requestIDKey{}, id)), nil
		},
		Post: func(req *Request, resp *Response) (*Response, error) {
			// Pre-hooks are skipped on a routing miss.
			id := GetRequestID(req.Context())
			if id == "" {
				id = req.Header.Get(c.Header)
			}
			if id == "" {
				id = c.Generator()
			}
			resp.Header.Set(c.Header, id)
			return resp, nil
		},
	}
}

// GetRequestID extracts the request ID from the context.
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey{}).(string); ok {
		return id
	}
	return ""
}

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// NewULID returns a time-sortable ULID encoded as a 26-character string.
func NewULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}
