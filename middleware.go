package bridge

// PreFunc runs before the handler. It returns the request to pass on, or
// an error that short-circuits the rest of the pre-chain and the handler.
// A nil request with a nil error keeps the incoming request.
type PreFunc func(req *Request) (*Request, error)

// PostFunc runs after the handler, and also after a routing miss or a
// failed pre-hook. It returns the response to pass on, or an error that
// replaces the response and skips the remaining post-hooks. A nil response
// with a nil error keeps the incoming response.
type PostFunc func(req *Request, resp *Response) (*Response, error)

// Middleware is a pair of optional hooks. Pre-hooks run in registration
// order; post-hooks run in reverse registration order, so the first
// registered middleware wraps all the others.
type Middleware struct {
	Name string
	Pre  PreFunc
	Post PostFunc
}

// Before returns a middleware with only a pre-hook.
func Before(name string, fn PreFunc) Middleware {
	return Middleware{Name: name, Pre: fn}
}

// After returns a middleware with only a post-hook.
func After(name string, fn PostFunc) Middleware {
	return Middleware{Name: name, Post: fn}
}

func (a *App) callPre(mw Middleware, req *Request) (out *Request, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, a.recovered(req, "pre:"+mw.Name, rec)
		}
	}()
	return mw.Pre(req)
}

func (a *App) callPost(mw Middleware, req *Request, resp *Response) (out *Response, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out, err = nil, a.recovered(req, "post:"+mw.Name, rec)
		}
	}()
	return mw.Post(req, resp)
}

// preProcess runs the pre-chain. On error it returns the last request that
// made it through, for the post-chain to observe.
func (a *App) preProcess(req *Request) (*Request, error) {
	for _, mw := range a.middleware {
		if mw.Pre == nil {
			continue
		}
		next, err := a.callPre(mw, req)
		if err != nil {
			return req, classify(err, KindMiddleware)
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// postProcess runs the post-chain in reverse registration order and
// finalizes the response.
func (a *App) postProcess(req *Request, resp *Response) *Response {
	for i := len(a.middleware) - 1; i >= 0; i-- {
		mw := a.middleware[i]
		if mw.Post == nil {
			continue
		}
		next, err := a.callPost(mw, req, finalize(resp))
		if err != nil {
			return finalize(a.ErrorResponse(req, classify(err, KindMiddleware)))
		}
		if next != nil {
			resp = next
		}
	}
	return finalize(resp)
}
