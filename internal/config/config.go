// Package config loads and validates application configuration from YAML
// files and environment variables. Configuration is read once at startup and
// treated as immutable for the process lifetime.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root application configuration.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backends      BackendsConfig      `yaml:"backends"`
	HTTP          HTTPClientConfig    `yaml:"http"`
	Page          PageConfig          `yaml:"page"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig describes HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	HandlerTimeout  time.Duration `yaml:"handler_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// BackendsConfig holds the base URLs of the three composed services.
type BackendsConfig struct {
	CatalogBaseURL string `yaml:"catalog_base_url"`
	OrderBaseURL   string `yaml:"order_base_url"`
	UserBaseURL    string `yaml:"user_base_url"`
}

// HTTPClientConfig describes the shared outbound HTTP client and its retry
// policy. MaxRetries is the number of retries after the first attempt;
// BackoffBase seeds the exponential backoff between attempts.
type HTTPClientConfig struct {
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BackoffBase time.Duration `yaml:"backoff_base"`
}

// PageConfig describes pagination limits for list and search endpoints.
type PageConfig struct {
	DefaultSize int `yaml:"default_size"`
	MaxSize     int `yaml:"max_size"`
}

// ObservabilityConfig describes logging, tracing, and metrics settings.
type ObservabilityConfig struct {
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Metrics  MetricsConfig `yaml:"metrics"`
}

// TracingConfig describes distributed tracing settings.
type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// MetricsConfig describes Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Defaults returns a Config with sensible default values.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			HandlerTimeout:  25 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
		HTTP: HTTPClientConfig{
			Timeout:     5 * time.Second,
			MaxRetries:  2,
			BackoffBase: 50 * time.Millisecond,
		},
		Page: PageConfig{
			DefaultSize: 10,
			MaxSize:     100,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
			Tracing: TracingConfig{
				Exporter:     "otlp",
				SamplingRate: 0.1,
			},
			Metrics: MetricsConfig{
				Enabled: true,
				Path:    "/metrics",
			},
		},
	}
}

// Load reads a YAML config file, applies environment variable overrides,
// and validates required fields. An empty path skips the file and uses
// defaults plus environment overrides only.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required fields are present and valid.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 1 and 65535")
	}
	if c.Backends.CatalogBaseURL == "" {
		errs = append(errs, "backends.catalog_base_url is required")
	}
	if c.Backends.OrderBaseURL == "" {
		errs = append(errs, "backends.order_base_url is required")
	}
	if c.Backends.UserBaseURL == "" {
		errs = append(errs, "backends.user_base_url is required")
	}
	if c.HTTP.MaxRetries < 0 {
		errs = append(errs, "http.max_retries must be >= 0")
	}
	if c.HTTP.BackoffBase <= 0 {
		errs = append(errs, "http.backoff_base must be > 0")
	}
	if c.Page.DefaultSize < 1 || c.Page.DefaultSize > c.Page.MaxSize {
		errs = append(errs, "page.default_size must be between 1 and page.max_size")
	}

	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

// ClampPageSize coerces a requested page size into the configured range.
// A negative value means unspecified and yields the default; everything
// else is silently clamped to [1, max]. Out-of-range sizes are never
// rejected.
func (c *Config) ClampPageSize(requested int) int {
	if requested < 0 {
		return c.Page.DefaultSize
	}
	if requested < 1 {
		return 1
	}
	if requested > c.Page.MaxSize {
		return c.Page.MaxSize
	}
	return requested
}

// applyEnvOverrides reads GATEWAY_* environment variables and overrides
// config values. Only the most commonly overridden fields are supported.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("GATEWAY_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("GATEWAY_CATALOG_BASE_URL"); v != "" {
		cfg.Backends.CatalogBaseURL = v
	}
	if v := os.Getenv("GATEWAY_ORDER_BASE_URL"); v != "" {
		cfg.Backends.OrderBaseURL = v
	}
	if v := os.Getenv("GATEWAY_USER_BASE_URL"); v != "" {
		cfg.Backends.UserBaseURL = v
	}
	if v := os.Getenv("GATEWAY_HTTP_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.HTTP.Timeout = d
		}
	}
	if v := os.Getenv("GATEWAY_HTTP_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HTTP.MaxRetries = n
		}
	}
	if v := os.Getenv("GATEWAY_LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}
}
