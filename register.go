package bridge

// Registrar is the interface accepted by the registration functions.
// Both *Builder and *Group implement it.
type Registrar interface {
	addRoute(rt *route)
	handlerEnv() handlerEnv
}

// register compiles the pattern, applies options and hands the route to reg.
// A malformed pattern panics, aborting application startup.
func register(reg Registrar, method Method, pattern string, h func(env handlerEnv) invoker, opts []RouteOption) {
	p, err := CompilePattern(pattern)
	if err != nil {
		panic("bridge: " + string(method) + " " + err.Error())
	}
	rt := &route{method: method, pattern: p}
	for _, opt := range opts {
		opt(rt)
	}
	env := reg.handlerEnv()
	env.status = rt.status
	rt.handler = h(env)
	reg.addRoute(rt)
}

// Handle registers a handler that builds its own Response.
func Handle(reg Registrar, method Method, pattern string, h HandlerFunc, opts ...RouteOption) {
	register(reg, method, pattern, func(handlerEnv) invoker { return h }, opts)
}

// Route registers a typed handler for any method.
func Route[Resp any](reg Registrar, method Method, pattern string, h Handler[Resp], opts ...RouteOption) {
	register(reg, method, pattern, func(env handlerEnv) invoker {
		return typedHandler[Resp]{h: h, env: env}
	}, opts)
}

// RouteWithBody registers a typed handler with a decoded body for any method.
func RouteWithBody[Body, Resp any](reg Registrar, method Method, pattern string, h BodyHandler[Body, Resp], opts ...RouteOption) {
	register(reg, method, pattern, func(env handlerEnv) invoker {
		return bodyHandler[Body, Resp]{h: h, env: env}
	}, opts)
}

// RouteAsync registers an asynchronous handler for any method.
func RouteAsync[Resp any](reg Registrar, method Method, pattern string, h AsyncHandler[Resp], opts ...RouteOption) {
	register(reg, method, pattern, func(env handlerEnv) invoker {
		return asyncHandler[Resp]{h: h, env: env}
	}, opts)
}

// RouteAsyncWithBody registers an asynchronous handler with a decoded body.
func RouteAsyncWithBody[Body, Resp any](reg Registrar, method Method, pattern string, h AsyncBodyHandler[Body, Resp], opts ...RouteOption) {
	register(reg, method, pattern, func(env handlerEnv) invoker {
		return asyncBodyHandler[Body, Resp]{h: h, env: env}
	}, opts)
}

// Get registers a GET handler.
func Get[Resp any](reg Registrar, pattern string, h Handler[Resp], opts ...RouteOption) {
	Route(reg, MethodGet, pattern, h, opts...)
}

// Head registers a HEAD handler.
func Head[Resp any](reg Registrar, pattern string, h Handler[Resp], opts ...RouteOption) {
	Route(reg, MethodHead, pattern, h, opts...)
}

// Options registers an OPTIONS handler.
func Options[Resp any](reg Registrar, pattern string, h Handler[Resp], opts ...RouteOption) {
	Route(reg, MethodOptions, pattern, h, opts...)
}

// Delete registers a DELETE handler.
func Delete[Resp any](reg Registrar, pattern string, h Handler[Resp], opts ...RouteOption) {
	Route(reg, MethodDelete, pattern, h, opts...)
}

// Post registers a POST handler. The request body is required.
func Post[Body, Resp any](reg Registrar, pattern string, h BodyHandler[Body, Resp], opts ...RouteOption) {
	RouteWithBody(reg, MethodPost, pattern, h, opts...)
}

// Put registers a PUT handler. The request body is required.
func Put[Body, Resp any](reg Registrar, pattern string, h BodyHandler[Body, Resp], opts ...RouteOption) {
	RouteWithBody(reg, MethodPut, pattern, h, opts...)
}

// Patch registers a PATCH handler. The request body is required.
func Patch[Body, Resp any](reg Registrar, pattern string, h BodyHandler[Body, Resp], opts ...RouteOption) {
	RouteWithBody(reg, MethodPatch, pattern, h, opts...)
}

// GetAsync registers an asynchronous GET handler.
func GetAsync[Resp any](reg Registrar, pattern string, h AsyncHandler[Resp], opts ...RouteOption) {
	RouteAsync(reg, MethodGet, pattern, h, opts...)
}

// DeleteAsync registers an asynchronous DELETE handler.
func DeleteAsync[Resp any](reg Registrar, pattern string, h AsyncHandler[Resp], opts ...RouteOption) {
	RouteAsync(reg, MethodDelete, pattern, h, opts...)
}

// PostAsync registers an asynchronous POST handler.
func PostAsync[Body, Resp any](reg Registrar, pattern string, h AsyncBodyHandler[Body, Resp], opts ...RouteOption) {
	RouteAsyncWithBody(reg, MethodPost, pattern, h, opts...)
}

// PutAsync registers an asynchronous PUT handler.
func PutAsync[Body, Resp any](reg Registrar, pattern string, h AsyncBodyHandler[Body, Resp], opts ...RouteOption) {
	RouteAsyncWithBody(reg, MethodPut, pattern, h, opts...)
}

// PatchAsync registers an asynchronous PATCH handler.
func PatchAsync[Body, Resp any](reg Registrar, pattern string, h AsyncBodyHandler[Body, Resp], opts ...RouteOption) {
	RouteAsyncWithBody(reg, MethodPatch, pattern, h, opts...)
}
