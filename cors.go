package bridge

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfig configures the CORS middleware.
type CORSConfig struct {
	AllowOrigins     []string
	AllowMethods     []string
	AllowHeaders     []string
	ExposeHeaders    []string
	AllowCredentials bool
	MaxAge           int // seconds
}

// CORS returns middleware that handles Cross-Origin Resource Sharing.
// If no config is provided, permissive defaults are used. An OPTIONS
// request with no route of its own is answered as a preflight with 204.
func CORS(cfg ...CORSConfig) Middleware {
	c := CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Content-Type", "Authorization"},
	}
	if len(cfg) > 0 {
		c = cfg[0]
	}

	origins := strings.Join(c.AllowOrigins, ", ")
	methods := strings.Join(c.AllowMethods, ", ")
	headers := strings.Join(c.AllowHeaders, ", ")
	expose := strings.Join(c.ExposeHeaders, ", ")
	maxAge := ""
	if c.MaxAge > 0 {
		maxAge = strconv.Itoa(c.MaxAge)
	}

	return After("cors", func(req *Request, resp *Response) (*Response, error) {
		if req.Method == MethodOptions {
			if _, routed := MatchedRoute(req); !routed {
				resp = NewResponse(http.StatusNoContent)
			}
		}

		resp.Header.Set("Access-Control-Allow-Origin", origins)
		resp.Header.Set("Access-Control-Allow-Methods", methods)
		resp.Header.Set("Access-Control-Allow-Headers", headers)

		if expose != "" {
			resp.Header.Set("Access-Control-Expose-Headers", expose)
		}
		if c.AllowCredentials {
			resp.Header.Set("Access-Control-Allow-Credentials", "true")
		}
		if maxAge != "" {
			resp.Header.Set("Access-Control-Max-Age", maxAge)
		}

		resp.Header.AddToken("Vary", "Origin")
		return resp, nil
	})
}
