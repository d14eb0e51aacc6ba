package bridge

// route is an immutable entry in the registry.
type route struct {
	method  Method
	pattern *Pattern
	name    string
	index   int

	// status is the success status for typed results; zero means the
	// result type decides (204 for Void and nil, 200 otherwise).
	status int

	handler invoker
}

// RouteOption configures a route at registration time.
type RouteOption func(*route)

// WithStatus sets the default HTTP status code for the response.
func WithStatus(code int) RouteOption {
	return func(rt *route) {
		rt.status = code
	}
}

// WithName sets a name for the route, reported by RouteName and used as
// the span name by Tracing.
func WithName(name string) RouteOption {
	return func(rt *route) {
		rt.name = name
	}
}

// RouteInfo describes a registered route.
type RouteInfo struct {
	Method  Method
	Pattern string
	Name    string
}

func (rt *route) info() RouteInfo {
	return RouteInfo{Method: rt.method, Pattern: rt.pattern.String(), Name: rt.name}
}
