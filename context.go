package bridge

import "context"

type contextKey[T any] struct{}

// SetValue returns a copy of req whose context carries val, keyed by its
// type. For use in pre-hooks.
func SetValue[T any](req *Request, val T) *Request {
	ctx := context.WithValue(req.Context(), contextKey[T]{}, val)
	return req.WithContext(ctx)
}

// GetValue retrieves a typed value stored by SetValue. For use in handlers
// and post-hooks.
func GetValue[T any](ctx context.Context) (T, bool) {
	val, ok := ctx.Value(contextKey[T]{}).(T)
	return val, ok
}
