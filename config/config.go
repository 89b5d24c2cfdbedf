// Package config loads and validates the gateway's YAML configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/goccy/go-yaml"

	"github.com/striped-zebra-dev/oagw/internal/logging"
)

// Config is the root gateway configuration.
type Config struct {
	// Listen is the bind address of the HTTP server.
	Listen string `yaml:"listen"`

	Logging logging.Config `yaml:"logging"`

	Proxy ProxyConfig `yaml:"proxy"`

	Credentials CredentialsConfig `yaml:"credentials"`

	Repository RepositoryConfig `yaml:"repository"`

	Metrics MetricsConfig `yaml:"metrics"`
}

// ProxyConfig tunes the data plane pipeline.
type ProxyConfig struct {
	// ConnectTimeout bounds outbound TCP connection establishment.
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
	// RequestHeaderTimeout bounds the wait for upstream response headers.
	RequestHeaderTimeout time.Duration `yaml:"request_header_timeout"`
	// MaxBodyBytes caps inbound proxy request bodies.
	MaxBodyBytes int64 `yaml:"max_body_bytes"`
}

// CredentialsConfig selects the credential sources, tried in order:
// static entries, then the file store, then the environment.
type CredentialsConfig struct {
	// Static maps secret references to values supplied inline.
	Static map[string]string `yaml:"static"`
	// File is a YAML credential store watched for changes.
	File string `yaml:"file"`
	// Env enables OAGW_CRED_* environment lookups.
	Env bool `yaml:"env"`
}

// RepositoryConfig selects the entity store backend. Only "memory" is
// implemented; the DSN is reserved for persistent backends behind the
// repository contracts.
type RepositoryConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// MetricsConfig toggles the prometheus endpoint.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Listen: ":8080",
		Logging: logging.Config{
			Level:  "info",
			Output: "stdout",
		},
		Proxy: ProxyConfig{
			ConnectTimeout:       10 * time.Second,
			RequestHeaderTimeout: 30 * time.Second,
			MaxBodyBytes:         100 * 1024 * 1024,
		},
		Repository: RepositoryConfig{Driver: "memory"},
		Metrics:    MetricsConfig{Enabled: true},
	}
}

// Load reads a YAML file over the defaults, applies environment
// overrides, and validates the result. An empty path loads defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides maps OAGW_* environment variables onto the config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("OAGW_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("OAGW_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("OAGW_CREDENTIALS_FILE"); v != "" {
		cfg.Credentials.File = v
	}
	if v := os.Getenv("OAGW_MAX_BODY_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			cfg.Proxy.MaxBodyBytes = n
		}
	}
	if v := os.Getenv("OAGW_REQUEST_HEADER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.Proxy.RequestHeaderTimeout = d
		}
	}
}

// Validate checks the configuration for operator mistakes.
func (c *Config) Validate() error {
	if c.Listen == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.Proxy.ConnectTimeout <= 0 {
		return fmt.Errorf("proxy.connect_timeout must be positive")
	}
	if c.Proxy.RequestHeaderTimeout <= 0 {
		return fmt.Errorf("proxy.request_header_timeout must be positive")
	}
	if c.Proxy.MaxBodyBytes <= 0 {
		return fmt.Errorf("proxy.max_body_bytes must be positive")
	}
	switch c.Repository.Driver {
	case "", "memory":
	default:
		return fmt.Errorf("unsupported repository driver %q", c.Repository.Driver)
	}
	return nil
}
