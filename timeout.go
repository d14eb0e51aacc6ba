package bridge

import (
	"context"
	"time"
)

type cancelKey struct{}

// Timeout returns middleware that adds a deadline to the request context.
// A handler that fails because the deadline passed yields 503 Service
// Unavailable.
func Timeout(d time.Duration) Middleware {
	return Middleware{
		Name: "timeout",
		Pre: func(req *Request) (*Request, error) {
			ctx, cancel := context.WithTimeout(req.Context(), d)
			ctx = context.WithValue(ctx, cancelKey{}, cancel)
			return req.WithContext(ctx), nil
		},
		Post: func(req *Request, resp *Response) (*Response, error) {
			if cancel, ok := req.Context().Value(cancelKey{}).(context.CancelFunc); ok {
				cancel()
			}
			return resp, nil
		},
	}
}
