package bridge_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/bridgetest"
)

type greeting struct {
	Message string `json:"message"`
}

func helloApp(t *testing.T) *bridge.App {
	t.Helper()

	b := bridge.New()
	bridge.Get(b, "/hello", func(_ context.Context, req *bridge.Request) (*greeting, error) {
		name := req.QueryValue("name")
		if name == "" {
			name = "World"
		}
		return &greeting{Message: "Hello, " + name + "!"}, nil
	})
	return b.Build()
}

func TestDispatch_hello(t *testing.T) {
	t.Parallel()

	c := bridgetest.NewClient(t, helloApp(t))
	resp := bridgetest.Get[greeting](t, c, "/hello?name=Alice")

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.JSONEq(t, `{"message":"Hello, Alice!"}`, string(resp.Raw.Body))
}

func TestDispatch_notFound(t *testing.T) {
	t.Parallel()

	c := bridgetest.NewClient(t, helloApp(t))
	resp := bridgetest.Get[bridge.ProblemDetail](t, c, "/nonexistent")

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "application/problem+json", resp.Header.Get("Content-Type"))
	assert.Contains(t, string(resp.Raw.Body), "Not Found")
	require.NotNil(t, resp.Body)
	assert.Equal(t, "/nonexistent", resp.Body.Instance)
}

func TestDispatch_methodMismatchIsNotFound(t *testing.T) {
	t.Parallel()

	c := bridgetest.NewClient(t, helloApp(t))
	resp := bridgetest.Delete[bridge.ProblemDetail](t, c, "/hello")

	assert.Equal(t, http.StatusNotFound, resp.Status)
}

func TestDispatch_nilRequest(t *testing.T) {
	t.Parallel()

	resp := helloApp(t).Dispatch(context.Background(), nil)
	assert.Equal(t, http.StatusBadRequest, resp.Status)
}

func TestDispatch_pathIsNormalized(t *testing.T) {
	t.Parallel()

	req := &bridge.Request{Method: bridge.MethodGet, Path: "hello"}
	resp := helloApp(t).Dispatch(context.Background(), req)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.NotNil(t, resp.Header)
}

func TestDispatch_doesNotMutateInput(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	b.Use(bridge.Before("mutate", func(req *bridge.Request) (*bridge.Request, error) {
		req.Header.Set("X-Injected", "1")
		req.Query["injected"] = "1"
		return req, nil
	}))
	bridge.Handle(b, bridge.MethodGet, "/items/{id}", func(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
		return bridge.Text(http.StatusOK, req.Param("id")), nil
	})

	req := bridgetest.NewRequest(t, bridge.MethodGet, "/items/7")
	resp := b.Build().Dispatch(context.Background(), req)

	assert.Equal(t, "7", string(resp.Body))
	assert.False(t, req.Header.Has("X-Injected"))
	assert.NotContains(t, req.Query, "injected")
	assert.Empty(t, req.PathParams)
}

func TestDispatch_pathParams(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	bridge.Handle(b, bridge.MethodGet, "/orgs/{org}/users/{user}", func(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
		return bridge.JSON(http.StatusOK, req.PathParams)
	})
	bridge.Handle(b, bridge.MethodGet, `^/legacy/(?P<id>\d+)$`, func(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
		return bridge.Text(http.StatusOK, "legacy "+req.Param("id")), nil
	})
	c := bridgetest.NewClient(t, b.Build())

	resp := bridgetest.Get[map[string]string](t, c, "/orgs/acme/users/bob")
	require.NotNil(t, resp.Body)
	assert.Equal(t, map[string]string{"org": "acme", "user": "bob"}, *resp.Body)

	raw := bridgetest.Dispatch(t, c, bridge.MethodGet, "/legacy/12", nil)
	assert.Equal(t, "legacy 12", string(raw.Body))
}

func TestBuild_ordering(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		register []string
		path     string
		want     string
	}{
		"deeper pattern wins over earlier shallow catch-all": {
			register: []string{`^/.*$`, "/api/users/{id}"},
			path:     "/api/users/1",
			want:     "/api/users/{id}",
		},
		"literal beats placeholder at equal depth": {
			register: []string{"/items/{id}", "/items/special"},
			path:     "/items/special",
			want:     "/items/special",
		},
		"placeholder still matches other ids": {
			register: []string{"/items/{id}", "/items/special"},
			path:     "/items/9",
			want:     "/items/{id}",
		},
		"registration order breaks remaining ties": {
			register: []string{"/a/{x}", "/a/{y}"},
			path:     "/a/1",
			want:     "/a/{x}",
		},
		"shallow catch-all still serves shallow paths": {
			register: []string{`^/.*$`, "/api/users/{id}"},
			path:     "/other",
			want:     `^/.*$`,
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := bridge.New()
			for _, p := range tc.register {
				bridge.Handle(b, bridge.MethodGet, p, func(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
					ri, _ := bridge.MatchedRoute(req)
					return bridge.Text(http.StatusOK, ri.Pattern), nil
				})
			}
			app := b.Build()

			m, ok := app.Match(bridge.MethodGet, tc.path)
			require.True(t, ok)
			assert.Equal(t, tc.want, m.Route.Pattern)

			resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, tc.path, nil)
			assert.Equal(t, tc.want, string(resp.Body))
		})
	}
}

func TestApp_routes(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	noop := func(context.Context, *bridge.Request) (*bridge.Response, error) { return nil, nil }
	bridge.Handle(b, bridge.MethodGet, "/a", noop, bridge.WithName("a"))
	bridge.Handle(b, bridge.MethodPost, "/a/b", noop)

	assert.Equal(t, []bridge.RouteInfo{
		{Method: bridge.MethodPost, Pattern: "/a/b"},
		{Method: bridge.MethodGet, Pattern: "/a", Name: "a"},
	}, b.Build().Routes())
}

func TestBuild_isSnapshot(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	noop := func(context.Context, *bridge.Request) (*bridge.Response, error) { return nil, nil }
	bridge.Handle(b, bridge.MethodGet, "/a", noop)
	app := b.Build()
	bridge.Handle(b, bridge.MethodGet, "/b", noop)

	assert.Len(t, app.Routes(), 1)
	assert.Len(t, b.Build().Routes(), 2)
}

func TestRegister_invalidPatternPanics(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	assert.Panics(t, func() {
		bridge.Handle(b, bridge.MethodGet, "/items/{id", func(context.Context, *bridge.Request) (*bridge.Response, error) {
			return nil, nil
		})
	})
}

func TestRegister_anchorWarning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	b := bridge.New(bridge.WithLogger(logger))
	bridge.Handle(b, bridge.MethodGet, `^/x`, func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return nil, nil
	})

	assert.Contains(t, buf.String(), "anchors added")
}

func TestDispatch_handlerErrors(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		err        error
		wantStatus int
		wantDetail string
	}{
		"declared status": {
			err:        bridge.Error(http.StatusForbidden, "forbidden"),
			wantStatus: http.StatusForbidden,
			wantDetail: "forbidden",
		},
		"plain error hides details": {
			err:        errors.New("connection refused on 10.0.0.3"),
			wantStatus: http.StatusInternalServerError,
		},
		"canceled": {
			err:        context.Canceled,
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "request canceled",
		},
		"problem detail passes through": {
			err:        &bridge.ProblemDetail{Status: http.StatusConflict, Title: "Conflict", Detail: "exists"},
			wantStatus: http.StatusConflict,
			wantDetail: "exists",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			b := bridge.New()
			bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
				return nil, tc.err
			})
			c := bridgetest.NewClient(t, b.Build())

			resp := bridgetest.Get[bridge.ProblemDetail](t, c, "/")
			assert.Equal(t, tc.wantStatus, resp.Status)
			require.NotNil(t, resp.Body)
			assert.Equal(t, tc.wantStatus, resp.Body.Status)
			assert.Equal(t, tc.wantDetail, resp.Body.Detail)
			assert.NotContains(t, string(resp.Raw.Body), "10.0.0.3")
		})
	}
}

func TestDispatch_handlerPanic(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	b := bridge.New(bridge.WithLogger(slog.New(slog.NewTextHandler(&buf, nil))))
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		panic("kaboom")
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/", nil)

	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.NotContains(t, string(resp.Body), "kaboom")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestDispatch_nilResponseIsNoContent(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	bridge.Handle(b, bridge.MethodDelete, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return nil, nil
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodDelete, "/", nil)
	assert.Equal(t, http.StatusNoContent, resp.Status)
}

func TestDispatch_zeroStatusBecomesOK(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return &bridge.Response{Body: []byte("ok")}, nil
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.NotNil(t, resp.Header)
}

func TestDispatch_canceledContext(t *testing.T) {
	t.Parallel()

	called := false
	b := bridge.New()
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		called = true
		return nil, nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/", nil, bridgetest.WithContext(ctx))

	assert.Equal(t, http.StatusServiceUnavailable, resp.Status)
	assert.False(t, called)
}

func TestDispatch_customErrorHandler(t *testing.T) {
	t.Parallel()

	b := bridge.New(bridge.WithErrorHandler(func(_ *bridge.Request, err error) *bridge.Response {
		return bridge.Text(bridge.ErrorStatus(err), "custom: "+strings.ToLower(http.StatusText(bridge.ErrorStatus(err))))
	}))
	app := b.Build()

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, "custom: not found", string(resp.Body))
}

func TestDispatch_concurrent(t *testing.T) {
	t.Parallel()

	app := helloApp(t)
	c := bridgetest.NewClient(t, app)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Go(func() {
			name := strings.Repeat("x", i%5+1)
			resp := bridgetest.Get[greeting](t, c, "/hello?name="+name)
			assert.Equal(t, http.StatusOK, resp.Status)
			if assert.NotNil(t, resp.Body) {
				assert.Equal(t, "Hello, "+name+"!", resp.Body.Message)
			}
		})
	}
	wg.Wait()
}

func TestProblemResponse_faultHeader(t *testing.T) {
	t.Parallel()

	err := &bridge.Fault{Kind: bridge.KindMiddleware, Status: http.StatusTooManyRequests, Message: "slow down", Header: bridge.Header{"Retry-After": "3"}}
	resp := bridge.ProblemResponse(nil, err)

	assert.Equal(t, http.StatusTooManyRequests, resp.Status)
	assert.Equal(t, "3", resp.Header.Get("Retry-After"))
	assert.Contains(t, string(resp.Body), "slow down")
}
