// Package invoker performs outbound HTTP calls against the composed backend
// services. It is the sole point of contact with any backend and recovers
// transient failures through bounded retries with exponential backoff.
package invoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/model"
)

// maxResponseBytes caps upstream response bodies read into memory.
const maxResponseBytes = 10 << 20

// Call is an immutable description of one outbound request.
type Call struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Result is the outcome of one upstream call. It is owned exclusively by
// the caller that issued the call and never shared across branches.
type Result struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// RetryPolicy bounds the retry loop. MaxRetries is the number of retries
// after the first attempt; Backoff seeds the exponential delay.
type RetryPolicy struct {
	MaxRetries int
	Backoff    time.Duration
}

// Recorder receives backend invocation observations. Implemented by the
// observability metrics; a nil Recorder disables recording.
type Recorder interface {
	ObserveBackendRequest(service, method string, status int, elapsed time.Duration)
	IncBackendRetry(service string)
}

// Client issues calls through a single process-wide pooled HTTP transport.
// It is safe for concurrent use.
type Client struct {
	http     *http.Client
	policy   RetryPolicy
	logger   *zap.Logger
	recorder Recorder
}

// Option configures a Client.
type Option func(*Client)

// WithRecorder attaches a backend metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(c *Client) { c.recorder = r }
}

// NewHTTPClient builds the shared pooled HTTP client honoring the configured
// per-call timeout. Its lifetime is process-wide: created at startup, idle
// connections released at shutdown.
func NewHTTPClient(cfg config.HTTPClientConfig) *http.Client {
	return &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxConnsPerHost:     50,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
		},
	}
}

// New creates a Client around the shared HTTP client.
func New(httpClient *http.Client, policy RetryPolicy, logger *zap.Logger, opts ...Option) *Client {
	c := &Client{
		http:   httpClient,
		policy: policy,
		logger: logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do executes the call, retrying transport failures and >=500 responses
// until the policy is exhausted. Any other response (2xx, 3xx, 4xx) is
// returned immediately: client errors will not change outcome on retry.
// At exhaustion the last transport error is propagated as a classified
// error, or the last >=500 response is returned as-is for the caller to
// translate. The service name labels logs, metrics, and error messages.
func (c *Client) Do(ctx context.Context, service string, call Call) (*Result, error) {
	ctx, span := observability.Tracer().Start(ctx, "backend.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(observability.AttrService.String(service)),
	)
	attempt := 0
	defer func() {
		span.SetAttributes(observability.AttrRetryCount.Int(attempt))
		span.End()
	}()
	for {
		result, err := c.once(ctx, service, call)
		if err != nil {
			if attempt >= c.policy.MaxRetries {
				return nil, c.classify(service, err)
			}
			c.logger.Debug("retrying after transport failure",
				zap.String("service", service),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if c.recorder != nil {
				c.recorder.IncBackendRetry(service)
			}
			if err := c.sleep(ctx, backoffDelay(c.policy.Backoff, attempt)); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		if result.StatusCode >= http.StatusInternalServerError && attempt < c.policy.MaxRetries {
			c.logger.Debug("retrying after server error",
				zap.String("service", service),
				zap.Int("attempt", attempt),
				zap.Int("status", result.StatusCode),
			)
			if c.recorder != nil {
				c.recorder.IncBackendRetry(service)
			}
			if err := c.sleep(ctx, backoffDelay(c.policy.Backoff, attempt)); err != nil {
				return nil, err
			}
			attempt++
			continue
		}

		return result, nil
	}
}

// once performs a single attempt.
func (c *Client) once(ctx context.Context, service string, call Call) (*Result, error) {
	reqURL := call.URL
	if len(call.Query) > 0 {
		reqURL += "?" + call.Query.Encode()
	}

	var body io.Reader
	if call.Body != nil {
		body = bytes.NewReader(call.Body)
	}

	req, err := http.NewRequestWithContext(ctx, call.Method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("invoker: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if call.Body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for name, values := range call.Header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		if c.recorder != nil {
			c.recorder.ObserveBackendRequest(service, call.Method, 0, time.Since(start))
		}
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("invoker: read response: %w", err)
	}

	if c.recorder != nil {
		c.recorder.ObserveBackendRequest(service, call.Method, resp.StatusCode, time.Since(start))
	}

	return &Result{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       respBody,
	}, nil
}

// classify maps an exhausted transport failure to a stable error. Timeouts
// and connection-level failures become gateway error envelopes; anything
// else propagates wrapped.
func (c *Client) classify(service string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
		return model.NewBackendTimeoutError(service)
	}
	if isConnectionError(err) {
		return model.NewBackendUnavailableError(service)
	}
	return fmt.Errorf("invoker: %s request failed: %w", service, err)
}

// sleep waits for the given delay or until the context is done.
func (c *Client) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoffDelay computes the delay before retrying attempt k (0-indexed):
// base * 2^k plus uniform jitter in [0, base).
func backoffDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	return base*(1<<attempt) + time.Duration(rand.Int63n(int64(base)))
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}
