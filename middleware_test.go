package bridge_test

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/bridgetest"
)

// hookLog records hook invocations in order.
type hookLog struct {
	mu    sync.Mutex
	calls []string
}

func (tr *hookLog) add(s string) {
	tr.mu.Lock()
	defer tr.mu.Unlock()
	tr.calls = append(tr.calls, s)
}

func (tr *hookLog) mw(name string) bridge.Middleware {
	return bridge.Middleware{
		Name: name,
		Pre: func(req *bridge.Request) (*bridge.Request, error) {
			tr.add("pre:" + name)
			return req, nil
		},
		Post: func(_ *bridge.Request, resp *bridge.Response) (*bridge.Response, error) {
			tr.add("post:" + name)
			return resp, nil
		},
	}
}

func tracedApp(tr *hookLog, mw ...bridge.Middleware) *bridge.App {
	b := bridge.New()
	b.Use(mw...)
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		tr.add("handler")
		return bridge.Text(http.StatusOK, "ok"), nil
	})
	return b.Build()
}

func TestMiddleware_order(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		order []string
		want  []string
	}{
		"A then B": {
			order: []string{"A", "B"},
			want:  []string{"pre:A", "pre:B", "handler", "post:B", "post:A"},
		},
		"B then A": {
			order: []string{"B", "A"},
			want:  []string{"pre:B", "pre:A", "handler", "post:A", "post:B"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			tr := &hookLog{}
			var mws []bridge.Middleware
			for _, n := range tc.order {
				mws = append(mws, tr.mw(n))
			}
			resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, tracedApp(tr, mws...)), bridge.MethodGet, "/", nil)

			assert.Equal(t, http.StatusOK, resp.Status)
			assert.Equal(t, tc.want, tr.calls)
		})
	}
}

func TestMiddleware_preErrorShortCircuits(t *testing.T) {
	t.Parallel()

	tr := &hookLog{}
	deny := bridge.Middleware{
		Name: "deny",
		Pre: func(*bridge.Request) (*bridge.Request, error) {
			tr.add("pre:deny")
			return nil, bridge.Error(http.StatusForbidden, "Forbidden")
		},
		Post: func(_ *bridge.Request, resp *bridge.Response) (*bridge.Response, error) {
			tr.add("post:deny")
			return resp, nil
		},
	}
	app := tracedApp(tr, tr.mw("A"), deny, tr.mw("C"))

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, "/", nil)

	assert.Equal(t, http.StatusForbidden, resp.Status)
	assert.Equal(t, []string{"pre:A", "pre:deny", "post:C", "post:deny", "post:A"}, tr.calls)
}

func TestMiddleware_preErrorWithoutStatus(t *testing.T) {
	t.Parallel()

	app := tracedApp(&hookLog{}, bridge.Before("broken", func(*bridge.Request) (*bridge.Request, error) {
		return nil, errors.New("backend unavailable")
	}))

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, "/", nil)
	assert.Equal(t, http.StatusInternalServerError, resp.Status)
	assert.NotContains(t, string(resp.Body), "backend unavailable")
}

func TestMiddleware_postErrorSkipsRemaining(t *testing.T) {
	t.Parallel()

	tr := &hookLog{}
	failing := bridge.After("failing", func(*bridge.Request, *bridge.Response) (*bridge.Response, error) {
		tr.add("post:failing")
		return nil, bridge.Error(http.StatusBadGateway, "upstream")
	})
	app := tracedApp(tr, tr.mw("A"), failing, tr.mw("C"))

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, "/", nil)

	assert.Equal(t, http.StatusBadGateway, resp.Status)
	assert.Equal(t, []string{"pre:A", "pre:C", "handler", "post:C", "post:failing"}, tr.calls)
}

func TestMiddleware_routingMissRunsPostOnly(t *testing.T) {
	t.Parallel()

	tr := &hookLog{}
	app := tracedApp(tr, tr.mw("A"), tr.mw("B"))

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, app), bridge.MethodGet, "/missing", nil)

	assert.Equal(t, http.StatusNotFound, resp.Status)
	assert.Equal(t, []string{"post:B", "post:A"}, tr.calls)
}

func TestMiddleware_handlerErrorFlowsThroughPost(t *testing.T) {
	t.Parallel()

	var seen int
	b := bridge.New()
	b.Use(bridge.After("observe", func(_ *bridge.Request, resp *bridge.Response) (*bridge.Response, error) {
		seen = resp.Status
		return resp, nil
	}))
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return nil, bridge.Error(http.StatusConflict, "conflict")
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/", nil)
	assert.Equal(t, http.StatusConflict, resp.Status)
	assert.Equal(t, http.StatusConflict, seen)
}

func TestMiddleware_panics(t *testing.T) {
	t.Parallel()

	tests := map[string]bridge.Middleware{
		"pre": bridge.Before("boom", func(*bridge.Request) (*bridge.Request, error) {
			panic("pre boom")
		}),
		"post": bridge.After("boom", func(*bridge.Request, *bridge.Response) (*bridge.Response, error) {
			panic("post boom")
		}),
	}

	for name, mw := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, tracedApp(&hookLog{}, mw)), bridge.MethodGet, "/", nil)
			assert.Equal(t, http.StatusInternalServerError, resp.Status)
			assert.NotContains(t, string(resp.Body), "boom")
		})
	}
}

func TestMiddleware_preReplacesRequest(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	b.Use(bridge.Before("auth", func(req *bridge.Request) (*bridge.Request, error) {
		user := strings.TrimPrefix(req.Header.Get("Authorization"), "User ")
		return bridge.SetValue(req, user), nil
	}))
	b.Use(bridge.Before("noop", func(*bridge.Request) (*bridge.Request, error) {
		return nil, nil
	}))
	bridge.Handle(b, bridge.MethodGet, "/me", func(ctx context.Context, _ *bridge.Request) (*bridge.Response, error) {
		user, ok := bridge.GetValue[string](ctx)
		if !ok {
			return nil, bridge.Error(http.StatusUnauthorized, "no user")
		}
		return bridge.Text(http.StatusOK, user), nil
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/me", nil,
		bridgetest.WithHeader("Authorization", "User alice"))

	require.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, "alice", string(resp.Body))
}

func TestMiddleware_postReplacesResponse(t *testing.T) {
	t.Parallel()

	b := bridge.New()
	b.Use(bridge.After("wrap", func(_ *bridge.Request, resp *bridge.Response) (*bridge.Response, error) {
		return bridge.Text(resp.Status, "wrapped:"+string(resp.Body)), nil
	}))
	b.Use(bridge.After("keep", func(*bridge.Request, *bridge.Response) (*bridge.Response, error) {
		return nil, nil
	}))
	bridge.Handle(b, bridge.MethodGet, "/", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return bridge.Text(http.StatusOK, "inner"), nil
	})

	resp := bridgetest.Dispatch(t, bridgetest.NewClient(t, b.Build()), bridge.MethodGet, "/", nil)
	assert.Equal(t, "wrapped:inner", string(resp.Body))
}
