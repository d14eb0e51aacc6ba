package bridge

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"runtime/debug"
	"slices"
	"sync"
)

// ErrorHandler renders an error as a response. Returning nil falls back to
// the default problem+json rendering. req is nil when an adapter could not
// build a request.
type ErrorHandler func(req *Request, err error) *Response

// Builder accumulates routes and middleware. Build freezes them into an App.
type Builder struct {
	routes     []*route
	middleware []Middleware

	logger       *slog.Logger
	validator    Validator
	errorHandler ErrorHandler

	encoders []Encoder
	decoders []Decoder
	codecs   *codecRegistry

	mu sync.Mutex
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the logger used for dispatch diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		b.logger = l
	}
}

// WithValidator sets a global request body validator.
func WithValidator(v Validator) Option {
	return func(b *Builder) {
		b.validator = v
	}
}

// WithErrorHandler sets a custom error renderer.
func WithErrorHandler(h ErrorHandler) Option {
	return func(b *Builder) {
		b.errorHandler = h
	}
}

// WithEncoder registers an additional response encoder.
func WithEncoder(enc Encoder) Option {
	return func(b *Builder) {
		b.encoders = append(b.encoders, enc)
	}
}

// WithDecoder registers an additional request body decoder.
func WithDecoder(dec Decoder) Option {
	return func(b *Builder) {
		b.decoders = append(b.decoders, dec)
	}
}

// New creates a Builder with the given options.
func New(opts ...Option) *Builder {
	b := &Builder{logger: slog.Default()}
	for _, opt := range opts {
		opt(b)
	}
	b.codecs = newCodecRegistry(b.encoders, b.decoders)
	return b
}

// Use adds middleware. Pre-hooks run in the order added.
func (b *Builder) Use(mw ...Middleware) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.middleware = append(b.middleware, mw...)
}

func (b *Builder) addRoute(rt *route) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if rt.pattern.Anchored() {
		b.logger.Warn("route pattern anchors added", "method", rt.method, "pattern", rt.pattern.String())
	}
	rt.index = len(b.routes)
	b.routes = append(b.routes, rt)
}

func (b *Builder) handlerEnv() handlerEnv {
	return handlerEnv{codecs: b.codecs, validator: b.validator}
}

// Build returns an immutable App holding the routes and middleware
// registered so far. Routes are ordered most specific first: deeper
// patterns, then patterns with more literal segments, then registration
// order.
func (b *Builder) Build() *App {
	b.mu.Lock()
	defer b.mu.Unlock()

	routes := slices.Clone(b.routes)
	slices.SortStableFunc(routes, func(x, y *route) int {
		switch {
		case moreSpecific(x.pattern, y.pattern):
			return -1
		case moreSpecific(y.pattern, x.pattern):
			return 1
		default:
			return 0
		}
	})

	return &App{
		routes:       routes,
		middleware:   slices.Clone(b.middleware),
		logger:       b.logger,
		errorHandler: b.errorHandler,
	}
}

// App is a built application. It is safe for concurrent use.
type App struct {
	routes     []*route
	middleware []Middleware

	logger       *slog.Logger
	errorHandler ErrorHandler
}

// Match is a successful route lookup.
type Match struct {
	Route  RouteInfo
	Params map[string]string

	rt *route
}

// Match resolves method and path to the first matching route.
func (a *App) Match(method Method, path string) (Match, bool) {
	for _, rt := range a.routes {
		if rt.method != method {
			continue
		}
		if params, ok := rt.pattern.Match(path); ok {
			return Match{Route: rt.info(), Params: params, rt: rt}, true
		}
	}
	return Match{}, false
}

// Routes returns the registered routes in match order.
func (a *App) Routes() []RouteInfo {
	out := make([]RouteInfo, len(a.routes))
	for i, rt := range a.routes {
		out[i] = rt.info()
	}
	return out
}

type routeKey struct{}

// MatchedRoute returns the route the request was dispatched to.
func MatchedRoute(req *Request) (RouteInfo, bool) {
	ri, ok := req.Context().Value(routeKey{}).(RouteInfo)
	return ri, ok
}

// Dispatch runs one request through routing, the pre-chain, the handler
// and the post-chain. It always returns a response: failures at any stage,
// including panics, are rendered as error responses. The request context is
// canceled when Dispatch returns.
func (a *App) Dispatch(ctx context.Context, req *Request) *Response {
	// Contexts derived by hooks are released even when a post-hook aborts
	// the chain.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if req == nil {
		req = &Request{Path: "/", Header: Header{}, Query: map[string]string{}, PathParams: map[string]string{}}
		req = req.WithContext(ctx)
		return a.postProcess(req, a.ErrorResponse(req, badRequest(http.StatusBadRequest, "missing request", nil)))
	}

	r := req.WithContext(ctx)
	r.Path = NormalizePath(req.Path)
	r.Header = req.Header.Clone()
	r.Query = maps.Clone(req.Query)
	if r.Query == nil {
		r.Query = map[string]string{}
	}
	r.PathParams = map[string]string{}

	m, ok := a.Match(r.Method, r.Path)
	if !ok {
		a.logger.DebugContext(ctx, "route not found", "method", r.Method, "path", r.Path)
		f := &Fault{
			Kind:    KindRoutingMiss,
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("no route for %s %s", r.Method, r.Path),
			Err:     ErrNotFound,
		}
		return a.postProcess(r, a.ErrorResponse(r, f))
	}
	r.PathParams = m.Params
	r = r.WithContext(context.WithValue(ctx, routeKey{}, m.Route))
	a.logger.DebugContext(ctx, "route matched", "method", r.Method, "path", r.Path, "pattern", m.Route.Pattern)

	r, err := a.preProcess(r)
	if err != nil {
		return a.postProcess(r, a.ErrorResponse(r, err))
	}

	return a.postProcess(r, a.handle(r, m.rt))
}

func (a *App) handle(req *Request, rt *route) (resp *Response) {
	ctx := req.Context()
	if err := ctx.Err(); err != nil {
		return a.ErrorResponse(req, classify(err, KindHandler))
	}

	defer func() {
		if rec := recover(); rec != nil {
			resp = a.ErrorResponse(req, a.recovered(req, "handler", rec))
		}
	}()

	out, err := rt.handler.invoke(ctx, req)
	if err != nil {
		return a.ErrorResponse(req, classify(err, KindHandler))
	}
	if out == nil {
		return NewResponse(http.StatusNoContent)
	}
	return out
}

func (a *App) recovered(req *Request, stage string, rec any) *Fault {
	a.logger.ErrorContext(req.Context(), "panic recovered",
		"stage", stage,
		"panic", rec,
		"stack", string(debug.Stack()),
		"method", req.Method,
		"path", req.Path,
	)
	return panicFault(rec)
}

// ErrorResponse renders err as a response, using the configured
// ErrorHandler when there is one.
func (a *App) ErrorResponse(req *Request, err error) *Response {
	ctx := context.Background()
	var method Method
	var path string
	if req != nil {
		ctx, method, path = req.Context(), req.Method, req.Path
	}
	status := ErrorStatus(err)
	if status >= http.StatusInternalServerError {
		a.logger.ErrorContext(ctx, "request failed", "method", method, "path", path, "status", status, "kind", KindOf(err).String(), "err", err)
	} else {
		a.logger.DebugContext(ctx, "request rejected", "method", method, "path", path, "status", status, "err", err)
	}

	if a.errorHandler != nil {
		if resp := a.customError(req, err); resp != nil {
			return finalize(resp)
		}
	}
	return ProblemResponse(req, err)
}

// customError runs the configured ErrorHandler. A panicking handler falls
// back to the default rendering.
func (a *App) customError(req *Request, err error) (resp *Response) {
	defer func() {
		if rec := recover(); rec != nil {
			a.logger.Error("error handler panicked", "panic", rec, "err", err)
			resp = nil
		}
	}()
	return a.errorHandler(req, err)
}

// ProblemResponse renders err as an RFC 9457 application/problem+json
// response. Details of server errors are limited to the fault's own
// message so wrapped internal errors are not exposed.
func ProblemResponse(req *Request, err error) *Response {
	var (
		p      *ProblemDetail
		header Header
	)
	if !errors.As(err, &p) {
		f := classify(err, KindInternal)
		status := f.StatusCode()
		p = &ProblemDetail{Type: "about:blank", Title: http.StatusText(status), Status: status}
		if status < http.StatusInternalServerError {
			p.Detail = f.Error()
		} else {
			p.Detail = f.Message
		}
		if p.Title == "" {
			p.Title = "Error"
		}
		if req != nil {
			p.Instance = req.Path
		}
		header = f.Header
	}

	resp := NewResponse(p.Status)
	for k, v := range header {
		resp.Header.Set(k, v)
	}
	resp.Header.Set("Content-Type", "application/problem+json")
	body, mErr := jsonCodec{}.Marshal(p)
	if mErr != nil {
		body = []byte(`{"title":"Internal Server Error","status":500}`)
		resp.Status = http.StatusInternalServerError
	}
	resp.Body = body
	return resp
}
