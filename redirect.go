package bridge

import (
	"net/http"
	"net/url"
	"strings"
)

// HTTPSRedirect returns middleware that redirects requests forwarded over
// plain HTTP to https on the same host. The neutral request carries no TLS
// state, so only an X-Forwarded-Proto of "http" triggers it.
func HTTPSRedirect() Middleware {
	return Before("https-redirect", func(req *Request) (*Request, error) {
		host := req.Header.Get("Host")
		if host == "" || !strings.EqualFold(req.Header.Get("X-Forwarded-Proto"), "http") {
			return req, nil
		}
		return nil, redirectFault(req.Method, "https://"+host+requestURI(req.Path, req.Query))
	})
}

// NonWWWRedirect returns middleware that redirects a www subdomain to the
// bare host, keeping the forwarded scheme (https when unknown).
func NonWWWRedirect() Middleware {
	return Before("non-www-redirect", func(req *Request) (*Request, error) {
		host := req.Header.Get("Host")
		bare, ok := strings.CutPrefix(host, "www.")
		if !ok {
			return req, nil
		}
		scheme := strings.ToLower(req.Header.Get("X-Forwarded-Proto"))
		if scheme != "http" {
			scheme = "https"
		}
		return nil, redirectFault(req.Method, scheme+"://"+bare+requestURI(req.Path, req.Query))
	})
}

// TrailingSlash returns middleware that answers an unrouted path ending in
// "/" with a redirect to the path without it. Routed paths are untouched.
func TrailingSlash() Middleware {
	return After("trailing-slash", func(req *Request, resp *Response) (*Response, error) {
		if _, routed := MatchedRoute(req); routed || req.Path == "/" || !strings.HasSuffix(req.Path, "/") {
			return resp, nil
		}
		target := NormalizePath(strings.TrimRight(req.Path, "/"))
		return Redirect(redirectStatus(req.Method), requestURI(target, req.Query)), nil
	})
}

// redirectFault aborts the pre-chain with a redirect. Unsafe methods get 308
// so clients repeat the method and body.
func redirectFault(m Method, location string) *Fault {
	return &Fault{
		Kind:    KindMiddleware,
		Status:  redirectStatus(m),
		Message: "redirecting to " + location,
		Header:  Header{"Location": location},
	}
}

func redirectStatus(m Method) int {
	if isSafeMethod(m) {
		return http.StatusMovedPermanently
	}
	return http.StatusPermanentRedirect
}

// requestURI rebuilds path and query. Query keys are sorted.
func requestURI(path string, query map[string]string) string {
	if len(query) == 0 {
		return path
	}
	vals := make(url.Values, len(query))
	for k, v := range query {
		vals.Set(k, v)
	}
	return path + "?" + vals.Encode()
}
