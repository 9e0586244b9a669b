package invoker

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hirewear/composite-gateway/model"
)

func testClient(maxRetries int) *Client {
	return New(
		&http.Client{Timeout: time.Second},
		RetryPolicy{MaxRetries: maxRetries, Backoff: time.Millisecond},
		zap.NewNop(),
	)
}

func TestDo_retryBound(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	res, err := testClient(2).Do(context.Background(), "catalog", Call{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("Do() error = %v, want last response", err)
	}
	if got := attempts.Load(); got != 3 {
		t.Errorf("attempts = %d, want 3 (1 initial + 2 retries)", got)
	}
	// Exhaustion returns the last >=500 response as-is for translation.
	if res.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", res.StatusCode)
	}
}

func TestDo_noRetryOnClientError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	res, err := testClient(3).Do(context.Background(), "catalog", Call{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if res.StatusCode != http.StatusNotFound {
		t.Errorf("StatusCode = %d, want 404", res.StatusCode)
	}
	if got := attempts.Load(); got != 1 {
		t.Errorf("attempts = %d, want 1 (4xx is never retried)", got)
	}
}

func TestDo_recoversAfterTransientServerError(t *testing.T) {
	var attempts atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	res, err := testClient(2).Do(context.Background(), "order", Call{
		Method: http.MethodGet,
		URL:    srv.URL,
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if res.StatusCode != http.StatusOK {
		t.Errorf("StatusCode = %d, want 200", res.StatusCode)
	}
	if got := res.Header.Get("ETag"); got != `"v1"` {
		t.Errorf("ETag = %q", got)
	}
	if string(res.Body) != `{"ok":true}` {
		t.Errorf("Body = %s", res.Body)
	}
	if got := attempts.Load(); got != 2 {
		t.Errorf("attempts = %d, want 2", got)
	}
}

func TestDo_transportFailureExhaustsToClassifiedError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	addr := srv.URL
	srv.Close() // connection refused from here on

	_, err := testClient(1).Do(context.Background(), "user", Call{
		Method: http.MethodGet,
		URL:    addr,
	})
	if err == nil {
		t.Fatal("Do() = nil error, want transport failure")
	}
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok {
		t.Fatalf("error type = %T, want *model.ErrorEnvelope", err)
	}
	if ee.Code != model.ErrBackendUnavailable {
		t.Errorf("Code = %s, want %s", ee.Code, model.ErrBackendUnavailable)
	}
}

func TestDo_queryAndHeadersForwarded(t *testing.T) {
	var gotQuery url.Values
	var gotHeader http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		gotHeader = r.Header.Clone()
		w.Write([]byte("{}"))
	}))
	defer srv.Close()

	header := http.Header{}
	header.Set("If-None-Match", `"v1"`)
	_, err := testClient(0).Do(context.Background(), "user", Call{
		Method: http.MethodGet,
		URL:    srv.URL,
		Query:  url.Values{"q": {"dress"}, "pageSize": {"5"}},
		Header: header,
	})
	if err != nil {
		t.Fatalf("Do() error = %v", err)
	}
	if gotQuery.Get("q") != "dress" || gotQuery.Get("pageSize") != "5" {
		t.Errorf("query = %v", gotQuery)
	}
	if gotHeader.Get("If-None-Match") != `"v1"` {
		t.Errorf("If-None-Match = %q", gotHeader.Get("If-None-Match"))
	}
	if gotHeader.Get("Accept") != "application/json" {
		t.Errorf("Accept = %q", gotHeader.Get("Accept"))
	}
}

func TestDo_cancelledContextStopsBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := New(
		&http.Client{Timeout: time.Second},
		RetryPolicy{MaxRetries: 5, Backoff: 200 * time.Millisecond},
		zap.NewNop(),
	)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := client.Do(ctx, "catalog", Call{Method: http.MethodGet, URL: srv.URL})
	if err == nil {
		t.Fatal("Do() = nil error, want context error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Do() kept retrying for %v after cancellation", elapsed)
	}
}

func TestBackoffDelay_bounds(t *testing.T) {
	base := 10 * time.Millisecond
	for attempt := 0; attempt < 4; attempt++ {
		for i := 0; i < 50; i++ {
			d := backoffDelay(base, attempt)
			min := base * (1 << attempt)
			max := min + base
			if d < min || d >= max {
				t.Fatalf("backoffDelay(base, %d) = %v, want [%v, %v)", attempt, d, min, max)
			}
		}
	}
}
