package bridge

import (
	"context"
	"log/slog"
	"time"
)

type startKey struct{}

// markStart records the dispatch start time once per request.
func markStart(req *Request) *Request {
	if _, ok := req.Context().Value(startKey{}).(time.Time); ok {
		return req
	}
	return req.WithContext(context.WithValue(req.Context(), startKey{}, time.Now()))
}

// elapsed returns the time since markStart, or zero when the pre-chain did
// not run.
func elapsed(req *Request) time.Duration {
	if t, ok := req.Context().Value(startKey{}).(time.Time); ok {
		return time.Since(t)
	}
	return 0
}

// Logger returns middleware that logs each request using the provided slog.Logger.
func Logger(logger *slog.Logger) Middleware {
	return Middleware{
		Name: "logger",
		Pre: func(req *Request) (*Request, error) {
			return markStart(req), nil
		},
		Post: func(req *Request, resp *Response) (*Response, error) {
			attrs := []slog.Attr{
				slog.String("method", string(req.Method)),
				slog.String("path", req.Path),
				slog.Int("status", resp.Status),
				slog.Duration("latency", elapsed(req)),
				slog.Int("size", len(resp.Body)),
			}

			if ri, ok := MatchedRoute(req); ok {
				attrs = append(attrs, slog.String("route", ri.Pattern))
			}
			if id := GetRequestID(req.Context()); id != "" {
				attrs = append(attrs, slog.String("request_id", id))
			}

			level := slog.LevelInfo
			if resp.Status >= 500 {
				level = slog.LevelError
			}
			logger.LogAttrs(req.Context(), level, "request", attrs...)
			return resp, nil
		},
	}
}
