// Command sample serves one bridge application under whichever platform it
// finds itself on: AWS Lambda, a long-running HTTP server, or CGI.
//
// Run as a server:
//
//	go run ./cmd/sample
//	BRIDGE_ENGINE=fasthttp go run ./cmd/sample -config bridge.yaml
//
// Run as a CGI program:
//
//	REQUEST_METHOD=GET PATH_INFO=/hello QUERY_STRING=lang=ja ./sample
//
// Under Lambda the mode is detected from AWS_LAMBDA_RUNTIME_API.
//
// Routes:
//
//	GET    /health
//	GET    /hello?name=&lang=
//	POST   /echo
//	GET    /api/custom-headers
//	GET    /items?limit=&offset=&tag=
//	POST   /items
//	GET    /items/{id}
//	PUT    /items/{id}
//	DELETE /items/{id}
//	GET    /items/summary
//	GET    /legacy/items/{id}
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bjaus/bridge"
	"github.com/bjaus/bridge/cgi"
	"github.com/bjaus/bridge/internal/config"
	"github.com/bjaus/bridge/lambda"
	"github.com/bjaus/bridge/server"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "sample:", err)
		os.Exit(1)
	}

	// Stdout belongs to the CGI response, so diagnostics always go to stderr.
	logger := cfg.Log.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("sample failed", "mode", cfg.Mode, "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	app := newApp(cfg, logger, reg)

	switch cfg.Mode {
	case config.ModeLambda:
		lambda.Start(app, lambda.WithLogger(logger))
		return nil
	case config.ModeCGI:
		return cgi.Run(app,
			cgi.WithLogger(logger),
			cgi.WithMaxBodySize(cfg.Server.MaxBodySize),
			cgi.WithErrorLogFile(cfg.CGI.ErrorLogFile),
		)
	default:
		return serve(cfg, logger, reg, app)
	}
}

func serve(cfg *config.Config, logger *slog.Logger, reg *prometheus.Registry, app *bridge.App) error {
	engine, err := server.ParseEngine(cfg.Server.Engine)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Metrics.Enabled {
		go serveMetrics(ctx, cfg.Metrics, reg, logger)
	}

	srv := server.New(app,
		server.WithHostPort(cfg.Server.Host, cfg.Server.Port),
		server.WithEngine(engine),
		server.WithMaxBodySize(cfg.Server.MaxBodySize),
		server.WithReadHeaderTimeout(cfg.Server.ReadHeaderTimeout),
		server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		server.WithLogger(logger),
	)
	if err := srv.ListenAndServe(ctx); err != nil && !server.IsClosed(err) {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// serveMetrics exposes reg, and optionally pprof, on its own listener until
// ctx ends.
func serveMetrics(ctx context.Context, cfg config.MetricsConfig, reg *prometheus.Registry, logger *slog.Logger) {
	srv := &http.Server{Addr: cfg.Addr, Handler: metricsMux(cfg, reg), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening", "addr", cfg.Addr, "pprof", cfg.Pprof)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server", "err", err)
	}
}

func metricsMux(cfg config.MetricsConfig, reg *prometheus.Registry) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	if !cfg.Pprof {
		return mux
	}

	const prefix = "/debug/pprof"
	mux.HandleFunc("GET "+prefix+"/", pprof.Index)
	mux.HandleFunc("GET "+prefix+"/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET "+prefix+"/profile", pprof.Profile)
	mux.HandleFunc("GET "+prefix+"/symbol", pprof.Symbol)
	mux.HandleFunc("GET "+prefix+"/trace", pprof.Trace)
	for _, name := range []string{"goroutine", "heap", "allocs", "block", "mutex", "threadcreate"} {
		mux.Handle("GET "+prefix+"/"+name, pprof.Handler(name))
	}
	return mux
}
