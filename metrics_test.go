package bridge_test

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/bridgetest"
)

func TestMetrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	b := bridge.New()
	b.Use(bridge.Metrics(bridge.MetricsConfig{Registerer: reg, Namespace: "test"}))
	bridge.Handle(b, bridge.MethodGet, "/items/{id}", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return bridge.Text(http.StatusOK, "item"), nil
	})
	bridge.Handle(b, bridge.MethodPost, "/items", func(context.Context, *bridge.Request) (*bridge.Response, error) {
		return nil, bridge.Error(http.StatusBadGateway, "upstream")
	})
	c := bridgetest.NewClient(t, b.Build())

	bridgetest.Dispatch(t, c, bridge.MethodGet, "/items/1", nil)
	bridgetest.Dispatch(t, c, bridge.MethodGet, "/items/2", nil)
	bridgetest.Dispatch(t, c, bridge.MethodPost, "/items", nil)
	bridgetest.Dispatch(t, c, bridge.MethodGet, "/nowhere", nil)

	expected := `
# HELP test_requests_total Total requests
# TYPE test_requests_total counter
test_requests_total{method="GET",route="/items/{id}",status="2xx"} 2
test_requests_total{method="GET",route="unmatched",status="4xx"} 1
test_requests_total{method="POST",route="/items",status="5xx"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "test_requests_total"))

	count, err := testutil.GatherAndCount(reg, "test_request_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_reusesCollectors(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	cfg := bridge.MetricsConfig{Registerer: reg}

	assert.NotPanics(t, func() {
		bridge.Metrics(cfg)
		bridge.Metrics(cfg)
	})
}
