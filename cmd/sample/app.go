package main

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/internal/config"
)

const requestTimeout = 15 * time.Second

var greetings = map[string]string{
	"ja": "こんにちは、%s!",
	"fr": "Bonjour, %s !",
	"es": "¡Hola, %s!",
	"de": "Hallo, %s!",
}

// newApp builds the sample application. Metrics are registered on reg.
func newApp(cfg *config.Config, logger *slog.Logger, reg prometheus.Registerer) *bridge.App {
	b := bridge.New(bridge.WithLogger(logger))

	b.Use(
		bridge.RequestID(),
		bridge.Logger(logger),
		bridge.Metrics(bridge.MetricsConfig{Registerer: reg, Namespace: "sample"}),
		bridge.Tracing(),
		bridge.Timeout(requestTimeout),
		bridge.CORS(bridge.CORSConfig{
			AllowOrigins:  []string{"*"},
			AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:  []string{"Content-Type", "X-Auth-Token"},
			ExposeHeaders: []string{"X-Request-ID", "ETag"},
			MaxAge:        600,
		}),
		bridge.Secure(),
	)
	if cfg.RateLimit.RPS > 0 {
		b.Use(bridge.RateLimit(bridge.RateLimitConfig{Rate: cfg.RateLimit.RPS, Burst: cfg.RateLimit.Burst}))
	}
	if cfg.Auth.Token != "" {
		b.Use(requireToken(cfg.Auth.Token))
	}
	b.Use(bridge.TrailingSlash(), bridge.ETag(), bridge.Compress())

	store := newItemStore()

	bridge.Get(b, "/health", handleHealth)
	bridge.Get(b, "/hello", handleHello)
	bridge.Handle(b, bridge.MethodPost, "/echo", handleEcho)
	bridge.Handle(b, bridge.MethodGet, "/api/custom-headers", handleCustomHeaders)

	bridge.Get(b, "/items", store.handleList)
	bridge.Post(b, "/items", store.handleCreate, bridge.WithStatus(http.StatusCreated))

	items := b.Group("/items")
	bridge.Get(items, "/{id}", store.handleGet, bridge.WithName("item"))
	bridge.Put(items, "/{id}", store.handleUpdate)
	bridge.Delete(items, "/{id}", store.handleDelete)
	bridge.GetAsync(items, "/summary", store.handleSummary)

	// Legacy item URLs redirect to their canonical form.
	bridge.Handle(b, bridge.MethodGet, `^/legacy/items/(?P<id>[0-9A-Za-z]+)$`, handleLegacyItem)

	return b.Build()
}

// requireToken rejects mutating requests whose X-Auth-Token differs from
// token.
func requireToken(token string) bridge.Middleware {
	return bridge.Before("auth", func(req *bridge.Request) (*bridge.Request, error) {
		switch req.Method {
		case bridge.MethodGet, bridge.MethodHead, bridge.MethodOptions:
			return req, nil
		}
		if req.Header.Get("X-Auth-Token") != token {
			return nil, bridge.Error(http.StatusForbidden, "invalid auth token")
		}
		return req, nil
	})
}

type healthResp struct {
	Status string    `json:"status"`
	Time   time.Time `json:"time"`
}

func handleHealth(context.Context, *bridge.Request) (*healthResp, error) {
	return &healthResp{Status: "ok", Time: time.Now().UTC()}, nil
}

type helloParams struct {
	Name string `query:"name" default:"World" maxLength:"64"`
	Lang string `query:"lang" default:"en" enum:"en,ja,fr,es,de"`
}

type helloResp struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

func handleHello(_ context.Context, req *bridge.Request) (*helloResp, error) {
	var p helloParams
	if err := bridge.Bind(req, &p); err != nil {
		return nil, err
	}
	return &helloResp{Message: greet(p.Lang, p.Name), Timestamp: time.Now().UTC()}, nil
}

func greet(lang, name string) string {
	format, ok := greetings[lang]
	if !ok {
		format = "Hello, %s!"
	}
	return fmt.Sprintf(format, name)
}

func handleEcho(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
	ct := cmp.Or(req.Header.Get("Content-Type"), "application/octet-stream")
	return bridge.Bytes(http.StatusOK, ct, req.Body), nil
}

func handleCustomHeaders(context.Context, *bridge.Request) (*bridge.Response, error) {
	resp, err := bridge.JSON(http.StatusOK, map[string]string{
		"message": "This response includes custom headers",
		"status":  "success",
	})
	if err != nil {
		return nil, err
	}
	return resp.
		WithHeader("X-API-Version", "1.0").
		WithHeader("X-Rate-Limit", "100").
		WithHeader("X-Rate-Limit-Reset", "3600"), nil
}

func handleLegacyItem(_ context.Context, req *bridge.Request) (*bridge.Response, error) {
	return bridge.Redirect(http.StatusMovedPermanently, "/items/"+req.Param("id")), nil
}

// Item is the sample's stored entity.
type Item struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Tags      []string  `json:"tags,omitempty"`
	Quantity  int       `json:"quantity"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type itemInput struct {
	Name     string   `json:"name" minLength:"1" maxLength:"100"`
	Tags     []string `json:"tags" maxItems:"10"`
	Quantity int      `json:"quantity" minimum:"0" maximum:"10000"`
}

type listParams struct {
	Limit  int    `query:"limit" default:"50" minimum:"1" maximum:"500"`
	Offset int    `query:"offset" default:"0" minimum:"0"`
	Tag    string `query:"tag"`
}

type listResp struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

type summaryResp struct {
	Count    int `json:"count"`
	Quantity int `json:"quantity"`
}

type itemStore struct {
	mu    sync.RWMutex
	items map[string]*Item
	now   func() time.Time
}

func newItemStore() *itemStore {
	return &itemStore{items: map[string]*Item{}, now: func() time.Time { return time.Now().UTC() }}
}

func (s *itemStore) handleList(_ context.Context, req *bridge.Request) (*listResp, error) {
	var p listParams
	if err := bridge.Bind(req, &p); err != nil {
		return nil, err
	}

	s.mu.RLock()
	out := make([]Item, 0, len(s.items))
	for _, it := range s.items {
		if p.Tag != "" && !slices.Contains(it.Tags, p.Tag) {
			continue
		}
		out = append(out, *it)
	}
	s.mu.RUnlock()

	// ULIDs sort by creation time.
	slices.SortFunc(out, func(a, b Item) int { return cmp.Compare(a.ID, b.ID) })
	total := len(out)
	out = out[min(p.Offset, total):]
	out = out[:min(p.Limit, len(out))]
	return &listResp{Items: out, Total: total}, nil
}

func (s *itemStore) handleCreate(_ context.Context, _ *bridge.Request, in *itemInput) (*Item, error) {
	now := s.now()
	it := &Item{
		ID:        bridge.NewULID(),
		Name:      in.Name,
		Tags:      in.Tags,
		Quantity:  in.Quantity,
		CreatedAt: now,
		UpdatedAt: now,
	}

	s.mu.Lock()
	s.items[it.ID] = it
	s.mu.Unlock()

	cp := *it
	return &cp, nil
}

func (s *itemStore) handleGet(_ context.Context, req *bridge.Request) (*Item, error) {
	id := req.Param("id")

	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[id]
	if !ok {
		return nil, bridge.Errorf(http.StatusNotFound, "item %s not found", id)
	}
	cp := *it
	return &cp, nil
}

func (s *itemStore) handleUpdate(_ context.Context, req *bridge.Request, in *itemInput) (*Item, error) {
	id := req.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, bridge.Errorf(http.StatusNotFound, "item %s not found", id)
	}
	it.Name = in.Name
	it.Tags = in.Tags
	it.Quantity = in.Quantity
	it.UpdatedAt = s.now()
	cp := *it
	return &cp, nil
}

func (s *itemStore) handleDelete(_ context.Context, req *bridge.Request) (*bridge.Void, error) {
	id := req.Param("id")

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return nil, bridge.Errorf(http.StatusNotFound, "item %s not found", id)
	}
	delete(s.items, id)
	return &bridge.Void{}, nil
}

func (s *itemStore) handleSummary(ctx context.Context, _ *bridge.Request) *bridge.Task[summaryResp] {
	return bridge.Go(ctx, func(ctx context.Context) (*summaryResp, error) {
		s.mu.RLock()
		defer s.mu.RUnlock()

		var sum summaryResp
		for _, it := range s.items {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			sum.Count++
			sum.Quantity += it.Quantity
		}
		return &sum, nil
	})
}
