package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the configuration for valid values. Every problem is
// reported, each with its field path.
func (c *Config) Validate() error {
	var errs []error

	switch c.Mode {
	case ModeServer, ModeLambda, ModeCGI:
	default:
		errs = append(errs, fmt.Errorf("mode must be \"server\", \"lambda\" or \"cgi\", got %q", c.Mode))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port))
	}

	switch c.Server.Engine {
	case "nethttp", "fasthttp":
	default:
		errs = append(errs, fmt.Errorf("server.engine must be \"nethttp\" or \"fasthttp\", got %q", c.Server.Engine))
	}

	if c.Server.MaxBodySize <= 0 {
		errs = append(errs, fmt.Errorf("server.max_body_size must be > 0, got %d", c.Server.MaxBodySize))
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.read_header_timeout must be > 0, got %s", c.Server.ReadHeaderTimeout))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout must be > 0, got %s", c.Server.ShutdownTimeout))
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level))
	}
	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format must be \"text\" or \"json\", got %q", c.Log.Format))
	}

	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		errs = append(errs, errors.New("metrics.addr is required when metrics.enabled is true"))
	}

	if c.RateLimit.RPS < 0 {
		errs = append(errs, fmt.Errorf("rate_limit.rps must be >= 0, got %g", c.RateLimit.RPS))
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst <= 0 {
		errs = append(errs, fmt.Errorf("rate_limit.burst must be > 0 when rate_limit.rps is set, got %d", c.RateLimit.Burst))
	}

	return errors.Join(errs...)
}
