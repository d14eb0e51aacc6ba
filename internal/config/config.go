// Package config loads the sample command's settings.
//
// Settings are layered:
//  1. Built-in defaults
//  2. YAML file (explicit path, BRIDGE_CONFIG, or ./bridge.yaml)
//  3. Variables from a .env file, beneath the process environment
//  4. BRIDGE_* environment overrides
//  5. Validation
package config

import (
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/bjaus/bridge"
)

// Mode selects the adapter the sample command runs under.
type Mode string

const (
	ModeServer Mode = "server"
	ModeLambda Mode = "lambda"
	ModeCGI    Mode = "cgi"
)

// Config holds all settings for the sample command.
type Config struct {
	Mode      Mode            `yaml:"mode"` // auto-detected when empty
	Server    ServerConfig    `yaml:"server"`
	CGI       CGIConfig       `yaml:"cgi"`
	Log       LogConfig       `yaml:"log"`
	Auth      AuthConfig      `yaml:"auth"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// ServerConfig holds long-running server settings.
type ServerConfig struct {
	Host              string        `yaml:"host"`                // default: ""
	Port              int           `yaml:"port"`                // default: 8080
	Engine            string        `yaml:"engine"`              // "nethttp" or "fasthttp"
	MaxBodySize       int64         `yaml:"max_body_size"`       // default: 5 MiB
	ReadHeaderTimeout time.Duration `yaml:"read_header_timeout"` // default: 10s
	ShutdownTimeout   time.Duration `yaml:"shutdown_timeout"`    // default: 30s
}

// CGIConfig holds single-shot settings.
type CGIConfig struct {
	ErrorLogFile string `yaml:"error_log_file"`
}

// LogConfig holds diagnostics settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// AuthConfig holds the token required on mutating routes. Empty disables
// the check.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// MetricsConfig holds the Prometheus listener, used in server mode only.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`  // default: ":9090"
	Pprof   bool   `yaml:"pprof"` // mount /debug/pprof on the same listener
}

// RateLimitConfig holds the per-client token bucket. A zero RPS disables it.
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

// Defaults returns the built-in settings.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:              8080,
			Engine:            "nethttp",
			MaxBodySize:       bridge.DefaultMaxBodySize,
			ReadHeaderTimeout: 10 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Addr:    ":9090",
		},
		RateLimit: RateLimitConfig{
			Burst: 20,
		},
	}
}

// SlogLevel maps Level onto a slog level, defaulting to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// NewLogger builds a logger writing to w in the configured format.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
