package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	configEnv   = "BRIDGE_CONFIG"
	defaultFile = "bridge.yaml"
	dotEnvFile  = ".env"
)

// Source describes where Load reads settings from. The zero value reads
// nothing but defaults.
type Source struct {
	// ConfigPath is an explicit YAML file. It wins over BRIDGE_CONFIG and
	// Dir/bridge.yaml.
	ConfigPath string
	// Dir is searched for bridge.yaml and .env.
	Dir string
	// Getenv looks up process variables, which shadow .env entries.
	Getenv func(string) string
}

// Load reads settings for the running process from the working directory
// and environment. An empty configPath triggers discovery.
func Load(configPath string) (*Config, error) {
	return Source{ConfigPath: configPath, Dir: ".", Getenv: os.Getenv}.Load()
}

// Load applies every layer of s on top of Defaults and validates the result.
func (s Source) Load() (*Config, error) {
	lookup, err := s.lookup()
	if err != nil {
		return nil, err
	}

	cfg := Defaults()
	if path := s.discover(lookup); path != "" {
		if err := loadYAMLFile(path, cfg); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	if err := applyEnvOverrides(cfg, lookup); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if cfg.Mode == "" {
		cfg.Mode = detectMode(lookup)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// lookup merges the .env file beneath the process environment. A missing
// .env file is not an error.
func (s Source) lookup() (func(string) string, error) {
	getenv := s.Getenv
	if getenv == nil {
		getenv = func(string) string { return "" }
	}
	if s.Dir == "" {
		return getenv, nil
	}

	dotenv, err := godotenv.Read(filepath.Join(s.Dir, dotEnvFile))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", dotEnvFile, err)
	}
	return func(key string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return dotenv[key]
	}, nil
}

func (s Source) discover(lookup func(string) string) string {
	if s.ConfigPath != "" {
		return s.ConfigPath
	}
	if p := lookup(configEnv); p != "" {
		return p
	}
	if s.Dir == "" {
		return ""
	}
	p := filepath.Join(s.Dir, defaultFile)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return ""
}

// loadYAMLFile parses path into cfg. Fields absent from the file keep their
// current values.
func loadYAMLFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func detectMode(lookup func(string) string) Mode {
	switch {
	case lookup("AWS_LAMBDA_RUNTIME_API") != "":
		return ModeLambda
	case lookup("GATEWAY_INTERFACE") != "":
		return ModeCGI
	default:
		return ModeServer
	}
}

func applyEnvOverrides(cfg *Config, lookup func(string) string) error {
	var errs []error
	str := func(key string, dst *string) {
		if v := lookup(key); v != "" {
			*dst = v
		}
	}
	num := func(key string, parse func(string) error) {
		if v := lookup(key); v != "" {
			if err := parse(v); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", key, err))
			}
		}
	}

	if v := lookup("BRIDGE_MODE"); v != "" {
		cfg.Mode = Mode(v)
	}
	str("BRIDGE_HOST", &cfg.Server.Host)
	str("BRIDGE_ENGINE", &cfg.Server.Engine)
	str("BRIDGE_LOG_LEVEL", &cfg.Log.Level)
	str("BRIDGE_LOG_FORMAT", &cfg.Log.Format)
	str("BRIDGE_AUTH_TOKEN", &cfg.Auth.Token)
	str("BRIDGE_ERROR_LOG", &cfg.CGI.ErrorLogFile)
	str("BRIDGE_METRICS_ADDR", &cfg.Metrics.Addr)

	num("PORT", func(v string) (err error) {
		cfg.Server.Port, err = strconv.Atoi(v)
		return err
	})
	num("BRIDGE_PORT", func(v string) (err error) {
		cfg.Server.Port, err = strconv.Atoi(v)
		return err
	})
	num("BRIDGE_MAX_BODY_SIZE", func(v string) (err error) {
		cfg.Server.MaxBodySize, err = strconv.ParseInt(v, 10, 64)
		return err
	})
	num("BRIDGE_SHUTDOWN_TIMEOUT", func(v string) (err error) {
		cfg.Server.ShutdownTimeout, err = time.ParseDuration(v)
		return err
	})
	num("BRIDGE_METRICS_ENABLED", func(v string) (err error) {
		cfg.Metrics.Enabled, err = strconv.ParseBool(v)
		return err
	})
	num("BRIDGE_RATE_LIMIT", func(v string) (err error) {
		cfg.RateLimit.RPS, err = strconv.ParseFloat(v, 64)
		return err
	})
	num("BRIDGE_RATE_BURST", func(v string) (err error) {
		cfg.RateLimit.Burst, err = strconv.Atoi(v)
		return err
	})

	return errors.Join(errs...)
}
