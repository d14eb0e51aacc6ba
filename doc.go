// Package bridge is a platform-neutral request handling layer. One set of
// routes and middleware runs unchanged behind an AWS Lambda function, a
// long-running HTTP server, or a single-shot CGI process.
//
// Adapters translate their native input into a [Request], hand it to
// [App.Dispatch], and render the returned [Response]. Dispatch never fails:
// routing misses, bad input, handler and middleware errors, panics and
// cancellation all become error responses rendered as RFC 9457 problem
// details.
//
// Routes are registered with package-level generic functions:
//
//	b := bridge.New()
//	bridge.Get(b, "/items/{id}", getItem)
//	bridge.Post(b, "/items", createItem, bridge.WithStatus(http.StatusCreated))
//	bridge.Handle(b, bridge.MethodGet, `^/files/(?P<name>.+)$`, serveFile)
//	app := b.Build()
//
// Template patterns start with "/" and use {name}, {name:regex} and
// {name...} placeholders. Patterns starting with "^" or ending with "$" are
// regular expressions whose named groups become path parameters. The most
// deeply nested pattern wins, then the one with more literal segments, then
// the first registered.
//
// Middleware is a pair of optional hooks. Pre-hooks run in registration
// order and may replace the request or short-circuit with an error;
// post-hooks run in reverse order and see every response, including error
// responses:
//
//	b.Use(bridge.RequestID(), bridge.Logger(slog.Default()), bridge.CORS())
//
// The lambda, server and cgi subpackages provide the adapters.
package bridge
