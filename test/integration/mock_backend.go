package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// MockBackend is a configurable HTTP test server that simulates one of the
// downstream services (catalog, orders, users). Responses are configured per
// method+path, and every received request is recorded for later assertion.
type MockBackend struct {
	t      *testing.T
	name   string
	server *httptest.Server

	mu       sync.RWMutex
	routes   map[string]*routeConfig
	received map[string][]*RecordedRequest
}

// RecordedRequest captures the details of a request received by the mock backend.
type RecordedRequest struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers http.Header
	Body    map[string]any
	RawBody []byte
}

type routeConfig struct {
	mu        sync.Mutex
	responses []*mockResponse
	current   int
}

type mockResponse struct {
	status  int
	body    any
	headers map[string]string
	delay   time.Duration
}

// RouteMock is a builder for configuring responses for a single method+path.
type RouteMock struct {
	backend *MockBackend
	key     string
}

func newMockBackend(t *testing.T, name string) *MockBackend {
	t.Helper()

	b := &MockBackend{
		t:        t,
		name:     name,
		routes:   make(map[string]*routeConfig),
		received: make(map[string][]*RecordedRequest),
	}
	b.server = httptest.NewServer(http.HandlerFunc(b.handle))
	t.Cleanup(b.server.Close)
	return b
}

// BaseURL returns the base URL of the mock backend server.
func (b *MockBackend) BaseURL() string {
	return b.server.URL
}

// On begins configuring responses for the given method and path.
func (b *MockBackend) On(method, path string) *RouteMock {
	return &RouteMock{backend: b, key: method + " " + path}
}

// Respond queues a response with the given status and JSON body. Calling it
// multiple times queues a sequence; the last configured response repeats once
// the sequence is exhausted.
func (m *RouteMock) Respond(status int, body any) *RouteMock {
	return m.push(&mockResponse{status: status, body: body})
}

// RespondWithHeaders queues a response carrying extra headers.
func (m *RouteMock) RespondWithHeaders(status int, body any, headers map[string]string) *RouteMock {
	return m.push(&mockResponse{status: status, body: body, headers: headers})
}

// RespondAfter queues a response that is delayed before being written.
func (m *RouteMock) RespondAfter(delay time.Duration, status int, body any) *RouteMock {
	return m.push(&mockResponse{status: status, body: body, delay: delay})
}

func (m *RouteMock) push(resp *mockResponse) *RouteMock {
	b := m.backend
	b.mu.Lock()
	defer b.mu.Unlock()

	route, ok := b.routes[m.key]
	if !ok {
		route = &routeConfig{}
		b.routes[m.key] = route
	}
	route.responses = append(route.responses, resp)
	return m
}

// Received returns all recorded requests for the given method and path.
func (b *MockBackend) Received(method, path string) []*RecordedRequest {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]*RecordedRequest(nil), b.received[method+" "+path]...)
}

// CallCount returns how many requests the given method and path received.
func (b *MockBackend) CallCount(method, path string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.received[method+" "+path])
}

func (b *MockBackend) handle(w http.ResponseWriter, r *http.Request) {
	key := r.Method + " " + r.URL.Path

	raw, _ := io.ReadAll(r.Body)
	rec := &RecordedRequest{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   make(map[string]string),
		Headers: r.Header.Clone(),
		RawBody: raw,
	}
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			rec.Query[k] = v[0]
		}
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &rec.Body)
	}

	b.mu.Lock()
	b.received[key] = append(b.received[key], rec)
	route := b.routes[key]
	b.mu.Unlock()

	if route == nil {
		b.t.Logf("%s backend: unexpected request %s", b.name, key)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"not found"}`))
		return
	}

	route.mu.Lock()
	resp := route.responses[route.current]
	if route.current < len(route.responses)-1 {
		route.current++
	}
	route.mu.Unlock()

	if resp.delay > 0 {
		time.Sleep(resp.delay)
	}
	for k, v := range resp.headers {
		w.Header().Set(k, v)
	}
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(resp.status)
	if resp.body != nil {
		_ = json.NewEncoder(w).Encode(resp.body)
	}
}
