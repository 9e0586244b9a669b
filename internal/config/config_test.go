package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_valid(t *testing.T) {
	cfg, err := Load("testdata/valid.yaml")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("Server.ReadTimeout = %v, want 15s", cfg.Server.ReadTimeout)
	}
	if cfg.Backends.CatalogBaseURL != "https://catalog.internal" {
		t.Errorf("Backends.CatalogBaseURL = %q", cfg.Backends.CatalogBaseURL)
	}
	if cfg.Backends.OrderBaseURL != "https://orders.internal" {
		t.Errorf("Backends.OrderBaseURL = %q", cfg.Backends.OrderBaseURL)
	}
	if cfg.Backends.UserBaseURL != "https://users.internal" {
		t.Errorf("Backends.UserBaseURL = %q", cfg.Backends.UserBaseURL)
	}
	if cfg.HTTP.Timeout != 3*time.Second {
		t.Errorf("HTTP.Timeout = %v, want 3s", cfg.HTTP.Timeout)
	}
	if cfg.HTTP.MaxRetries != 4 {
		t.Errorf("HTTP.MaxRetries = %d, want 4", cfg.HTTP.MaxRetries)
	}
	if cfg.HTTP.BackoffBase != 25*time.Millisecond {
		t.Errorf("HTTP.BackoffBase = %v, want 25ms", cfg.HTTP.BackoffBase)
	}
	if cfg.Page.DefaultSize != 20 || cfg.Page.MaxSize != 50 {
		t.Errorf("Page = %+v", cfg.Page)
	}
	if cfg.Observability.LogLevel != "debug" {
		t.Errorf("Observability.LogLevel = %q", cfg.Observability.LogLevel)
	}
	if !cfg.Observability.Tracing.Enabled || cfg.Observability.Tracing.Exporter != "stdout" {
		t.Errorf("Observability.Tracing = %+v", cfg.Observability.Tracing)
	}
}

func TestLoad_missingBackendsFailsValidation(t *testing.T) {
	if _, err := Load(""); err == nil {
		t.Error("Load() with no backends = nil error, want validation failure")
	}
}

func TestLoad_envOverrides(t *testing.T) {
	os.Setenv("GATEWAY_CATALOG_BASE_URL", "https://catalog.override")
	os.Setenv("GATEWAY_ORDER_BASE_URL", "https://orders.override")
	os.Setenv("GATEWAY_USER_BASE_URL", "https://users.override")
	os.Setenv("GATEWAY_HTTP_MAX_RETRIES", "7")
	defer func() {
		os.Unsetenv("GATEWAY_CATALOG_BASE_URL")
		os.Unsetenv("GATEWAY_ORDER_BASE_URL")
		os.Unsetenv("GATEWAY_USER_BASE_URL")
		os.Unsetenv("GATEWAY_HTTP_MAX_RETRIES")
	}()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Backends.CatalogBaseURL != "https://catalog.override" {
		t.Errorf("CatalogBaseURL = %q", cfg.Backends.CatalogBaseURL)
	}
	if cfg.HTTP.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.HTTP.MaxRetries)
	}
}

func TestClampPageSize(t *testing.T) {
	cfg := Defaults()
	cfg.Page.DefaultSize = 10
	cfg.Page.MaxSize = 100

	cases := []struct {
		requested int
		want      int
	}{
		{-1, 10}, // unspecified -> default
		{0, 1},   // explicit zero -> policy minimum
		{1, 1},
		{42, 42}, // in range
		{100, 100},
		{101, 100}, // above max -> max
		{5000, 100},
	}
	for _, tc := range cases {
		if got := cfg.ClampPageSize(tc.requested); got != tc.want {
			t.Errorf("ClampPageSize(%d) = %d, want %d", tc.requested, got, tc.want)
		}
	}
}

func TestDefaults_areValidOnceBackendsSet(t *testing.T) {
	cfg := Defaults()
	cfg.Backends = BackendsConfig{
		CatalogBaseURL: "http://catalog",
		OrderBaseURL:   "http://orders",
		UserBaseURL:    "http://users",
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}
