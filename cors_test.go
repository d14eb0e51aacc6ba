package bridge_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/bridgetest"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg         []bridge.CORSConfig
		method      bridge.Method
		path        string
		wantStatus  int
		wantOrigin  string
		wantHeaders map[string]string
	}{
		"default config": {
			method:     bridge.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
			wantOrigin: "*",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Methods": "GET, POST, PUT, PATCH, DELETE, OPTIONS",
				"Vary":                         "Origin",
			},
		},
		"preflight without a route": {
			method:     bridge.MethodOptions,
			path:       "/",
			wantStatus: http.StatusNoContent,
			wantOrigin: "*",
		},
		"custom config": {
			cfg: []bridge.CORSConfig{{
				AllowOrigins:     []string{"https://example.com"},
				AllowMethods:     []string{"GET"},
				AllowHeaders:     []string{"X-Custom"},
				ExposeHeaders:    []string{"X-Request-ID"},
				AllowCredentials: true,
				MaxAge:           600,
			}},
			method:     bridge.MethodGet,
			path:       "/",
			wantStatus: http.StatusOK,
			wantOrigin: "https://example.com",
			wantHeaders: map[string]string{
				"Access-Control-Allow-Headers":     "X-Custom",
				"Access-Control-Expose-Headers":    "X-Request-ID",
				"Access-Control-Allow-Credentials": "true",
				"Access-Control-Max-Age":           "600",
			},
		},
		"error responses carry headers": {
			method:     bridge.MethodGet,
			path:       "/missing",
			wantStatus: http.StatusNotFound,
			wantOrigin: "*",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := bridge.New()
			b.Use(bridge.CORS(tc.cfg...))
			bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
				return bridge.Text(http.StatusOK, "ok"), nil
			})

			resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), tc.method, tc.path, nil)

			assert.Equal(t, tc.wantStatus, resp.Status)
			assert.Equal(t, tc.wantOrigin, resp.Header.Get("Access-Control-Allow-Origin"))
			for k, v := range tc.wantHeaders {
				assert.Equal(t, v, resp.Header.Get(k), k)
			}
		})
	}
}
