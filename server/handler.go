// Package server runs a bridge.App as a long-lived HTTP server, on net/http
// or fasthttp.
package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/bjaus/bridge"
)

// Handler returns a catch-all http.Handler that dispatches every request
// to app.
func Handler(app *bridge.App, opts ...Option) http.Handler {
	return httpHandler(app, newConfig(opts))
}

func httpHandler(app *bridge.App, cfg config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req, err := ToRequest(w, r, cfg.maxBodySize)
		var resp *bridge.Response
		if err != nil {
			cfg.logger.DebugContext(r.Context(), "request translation failed", "method", r.Method, "path", r.URL.Path, "err", err)
			resp = app.ErrorResponse(nil, err)
		} else {
			resp = app.Dispatch(r.Context(), req)
		}
		WriteResponse(w, r.Method, resp)
	})
}

// ToRequest converts r into a Request. Repeated headers are joined with
// ", " and repeated Cookie headers with "; ". The body is read up to
// maxBody bytes; a larger body is a 413.
func ToRequest(w http.ResponseWriter, r *http.Request, maxBody int64) (*bridge.Request, error) {
	req, err := bridge.NewRequest(r.Method, r.URL.Path)
	if err != nil {
		return nil, err
	}
	req.Query = bridge.ParseQuery(r.URL.RawQuery)

	for k, vs := range r.Header {
		sep := ", "
		if k == "Cookie" {
			sep = "; "
		}
		req.Header.Set(k, strings.Join(vs, sep))
	}
	if r.Host != "" {
		req.Header.Set("Host", r.Host)
	}

	if r.Body == nil || r.Body == http.NoBody {
		return req, nil
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, bridge.PayloadTooLarge(maxBody)
		}
		return nil, bridge.Errorf(http.StatusBadRequest, "read request body: %v", err)
	}
	if len(body) > 0 {
		req.Body = body
	}
	return req, nil
}

// WriteResponse writes resp to w. Each Set-Cookie is written as its own
// header line, Content-Length is computed, and the body is omitted for HEAD
// and for statuses that forbid one.
func WriteResponse(w http.ResponseWriter, method string, resp *bridge.Response) {
	h := w.Header()
	for k, v := range resp.Header {
		switch bridge.CanonicalHeaderKey(k) {
		case "Set-Cookie":
			for _, c := range bridge.SplitSetCookie(v) {
				h.Add("Set-Cookie", c)
			}
		case "Content-Length":
		default:
			h.Set(k, v)
		}
	}

	allowed := bodyAllowed(resp.Status)
	if allowed {
		h.Set("Content-Length", strconv.Itoa(len(resp.Body)))
	}
	w.WriteHeader(resp.Status)

	if !allowed || method == http.MethodHead || len(resp.Body) == 0 {
		return
	}
	_, _ = w.Write(resp.Body)
}

func bodyAllowed(status int) bool {
	switch {
	case status >= 100 && status < 200:
		return false
	case status == http.StatusNoContent, status == http.StatusNotModified:
		return false
	default:
		return true
	}
}
