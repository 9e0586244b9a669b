// Package integration provides a reusable test harness for end-to-end
// integration testing of the composite gateway. It starts a full HTTP server
// wired against mock catalog, order, and user backends.
package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/order"
	"github.com/hirewear/composite-gateway/internal/search"
	"github.com/hirewear/composite-gateway/internal/transport"
)

// TestHarness encapsulates a fully wired gateway instance with mock backends
// for integration testing.
type TestHarness struct {
	t      *testing.T
	server *httptest.Server

	Catalog *MockBackend
	Orders  *MockBackend
	Users   *MockBackend

	cfg *config.Config
}

// HarnessOption configures the test harness.
type HarnessOption func(*config.Config)

// WithMaxRetries sets the backend retry budget.
func WithMaxRetries(n int) HarnessOption {
	return func(cfg *config.Config) {
		cfg.HTTP.MaxRetries = n
	}
}

// WithBackoffBase sets the base backoff delay between retries.
func WithBackoffBase(d time.Duration) HarnessOption {
	return func(cfg *config.Config) {
		cfg.HTTP.BackoffBase = d
	}
}

// WithPageSizes sets the default and maximum page sizes.
func WithPageSizes(def, max int) HarnessOption {
	return func(cfg *config.Config) {
		cfg.Page.DefaultSize = def
		cfg.Page.MaxSize = max
	}
}

// NewHarness creates a fully wired gateway with three mock backends and
// starts it on an httptest server. All resources are cleaned up when the
// test finishes.
func NewHarness(t *testing.T, opts ...HarnessOption) *TestHarness {
	t.Helper()

	h := &TestHarness{
		t:       t,
		Catalog: newMockBackend(t, "catalog"),
		Orders:  newMockBackend(t, "order"),
		Users:   newMockBackend(t, "user"),
	}

	cfg := config.Defaults()
	cfg.Backends.CatalogBaseURL = h.Catalog.BaseURL()
	cfg.Backends.OrderBaseURL = h.Orders.BaseURL()
	cfg.Backends.UserBaseURL = h.Users.BaseURL()
	cfg.HTTP.Timeout = 2 * time.Second
	cfg.HTTP.BackoffBase = time.Millisecond
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("harness config invalid: %v", err)
	}
	h.cfg = cfg

	logger := zap.NewNop()
	client := invoker.New(invoker.NewHTTPClient(cfg.HTTP), invoker.RetryPolicy{
		MaxRetries: cfg.HTTP.MaxRetries,
		Backoff:    cfg.HTTP.BackoffBase,
	}, logger)

	router := transport.NewRouter(transport.Dependencies{
		Config:     cfg,
		Logger:     logger,
		Invoker:    client,
		Aggregator: search.NewAggregator(client, cfg, logger),
		Workflow:   order.NewWorkflow(client, cfg, logger),
	})

	h.server = httptest.NewServer(router)
	t.Cleanup(h.server.Close)
	return h
}

// URL returns the base URL of the gateway under test.
func (h *TestHarness) URL() string {
	return h.server.URL
}

// Get performs a GET request against the gateway with optional headers given
// as alternating key/value pairs.
func (h *TestHarness) Get(path string, headers ...string) *http.Response {
	h.t.Helper()
	return h.do(http.MethodGet, path, nil, headers...)
}

// Post performs a POST request with a JSON-encoded body.
func (h *TestHarness) Post(path string, body any, headers ...string) *http.Response {
	h.t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			h.t.Fatalf("encoding request body: %v", err)
		}
	}
	return h.do(http.MethodPost, path, &buf, headers...)
}

func (h *TestHarness) do(method, path string, body io.Reader, headers ...string) *http.Response {
	h.t.Helper()

	req, err := http.NewRequest(method, h.server.URL+path, body)
	if err != nil {
		h.t.Fatalf("building request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := h.server.Client().Do(req)
	if err != nil {
		h.t.Fatalf("%s %s: %v", method, path, err)
	}
	h.t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

// DecodeJSON reads and decodes the response body into a generic map.
func DecodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decoding response body %q: %v", raw, err)
	}
	return out
}

// ErrorCode extracts the error code from a gateway error envelope.
func ErrorCode(t *testing.T, resp *http.Response) string {
	t.Helper()

	body := DecodeJSON(t, resp)
	env, ok := body["error"].(map[string]any)
	if !ok {
		t.Fatalf("response is not an error envelope: %v", body)
	}
	code, _ := env["code"].(string)
	return code
}
