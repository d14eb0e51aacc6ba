package bridge

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the Metrics middleware.
type MetricsConfig struct {
	Registerer prometheus.Registerer // default: prometheus.DefaultRegisterer
	Namespace  string                // default: "bridge"
	Buckets    []float64             // default: prometheus.DefBuckets
}

// Metrics returns middleware that records a request counter labelled by
// method, route and status class, and a duration histogram labelled by
// method and route. Unrouted requests use the route label "unmatched".
//
// Collectors already registered under the same names are reused, so the
// middleware may be constructed more than once against one registry.
func Metrics(cfg MetricsConfig) Middleware {
	if cfg.Registerer == nil {
		cfg.Registerer = prometheus.DefaultRegisterer
	}
	if cfg.Namespace == "" {
		cfg.Namespace = "bridge"
	}
	if cfg.Buckets == nil {
		cfg.Buckets = prometheus.DefBuckets
	}

	requests := registerCollector(cfg.Registerer, prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Name:      "requests_total",
			Help:      "Total requests",
		},
		[]string{"method", "route", "status"},
	))
	duration := registerCollector(cfg.Registerer, prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Name:      "request_duration_seconds",
			Help:      "Request duration",
			Buckets:   cfg.Buckets,
		},
		[]string{"method", "route"},
	))

	return Middleware{
		Name: "metrics",
		Pre: func(req *Request) (*Request, error) {
			return markStart(req), nil
		},
		Post: func(req *Request, resp *Response) (*Response, error) {
			route := "unmatched"
			if ri, ok := MatchedRoute(req); ok {
				route = ri.Pattern
			}
			method := string(req.Method)
			class := strconv.Itoa(resp.Status/100) + "xx"

			requests.WithLabelValues(method, route, class).Inc()
			duration.WithLabelValues(method, route).Observe(elapsed(req).Seconds())
			return resp, nil
		},
	}
}

func registerCollector[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		panic("bridge: register metrics: " + err.Error())
	}
	return c
}
