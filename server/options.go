package server

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/bjaus/bridge"
)

// Engine selects the HTTP implementation a Server runs on.
type Engine int

const (
	// EngineNetHTTP serves with net/http.
	EngineNetHTTP Engine = iota
	// EngineFastHTTP serves with github.com/valyala/fasthttp.
	EngineFastHTTP
)

func (e Engine) String() string {
	switch e {
	case EngineNetHTTP:
		return "nethttp"
	case EngineFastHTTP:
		return "fasthttp"
	default:
		return "unknown"
	}
}

// ParseEngine parses an engine name as returned by String.
func ParseEngine(s string) (Engine, error) {
	switch strings.ToLower(s) {
	case "", "nethttp":
		return EngineNetHTTP, nil
	case "fasthttp":
		return EngineFastHTTP, nil
	default:
		return 0, fmt.Errorf("unknown engine %q", s)
	}
}

const (
	defaultAddr              = ":8080"
	defaultReadHeaderTimeout = 10 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
)

type config struct {
	addr              string
	maxBodySize       int64
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	logger            *slog.Logger
	engine            Engine
}

func newConfig(opts []Option) config {
	cfg := config{
		addr:              defaultAddr,
		maxBodySize:       bridge.DefaultMaxBodySize,
		readHeaderTimeout: defaultReadHeaderTimeout,
		shutdownTimeout:   defaultShutdownTimeout,
		logger:            slog.Default(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Option configures a Server or handler.
type Option func(*config)

// WithAddr sets the listen address, e.g. ":8080".
func WithAddr(addr string) Option {
	return func(c *config) {
		c.addr = addr
	}
}

// WithHostPort sets the listen address from a host and port.
func WithHostPort(host string, port int) Option {
	return func(c *config) {
		c.addr = net.JoinHostPort(host, strconv.Itoa(port))
	}
}

// WithMaxBodySize sets the request body limit. Larger bodies get 413.
// n <= 0 keeps the default.
func WithMaxBodySize(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// WithReadHeaderTimeout sets how long a client may take to send headers.
func WithReadHeaderTimeout(d time.Duration) Option {
	return func(c *config) {
		c.readHeaderTimeout = d
	}
}

// WithShutdownTimeout bounds graceful shutdown after the serve context ends.
func WithShutdownTimeout(d time.Duration) Option {
	return func(c *config) {
		c.shutdownTimeout = d
	}
}

// WithLogger sets the logger for lifecycle and translation events.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		c.logger = l
	}
}

// WithEngine selects the HTTP implementation.
func WithEngine(e Engine) Option {
	return func(c *config) {
		c.engine = e
	}
}
