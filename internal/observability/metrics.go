package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Histogram bucket definitions.
var (
	httpDurationBuckets    = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10}
	backendDurationBuckets = []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}
)

// Metrics holds all Prometheus metric instruments for the gateway.
type Metrics struct {
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	BackendRequestsTotal   *prometheus.CounterVec
	BackendRequestDuration *prometheus.HistogramVec
	BackendRetriesTotal    *prometheus.CounterVec

	SearchDuration      prometheus.Histogram
	OrderFanoutDuration prometheus.Histogram
}

// InitMetrics creates and registers all Prometheus metric instruments.
func InitMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of inbound HTTP requests.",
		}, []string{"method", "path_pattern", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "Inbound HTTP request duration in seconds.",
			Buckets: httpDurationBuckets,
		}, []string{"method", "path_pattern"}),
		BackendRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_backend_requests_total",
			Help: "Total number of upstream backend requests.",
		}, []string{"service", "method", "status"}),
		BackendRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_backend_request_duration_seconds",
			Help:    "Upstream backend request duration in seconds.",
			Buckets: backendDurationBuckets,
		}, []string{"service", "method"}),
		BackendRetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_backend_retries_total",
			Help: "Total number of upstream retry attempts.",
		}, []string{"service"}),
		SearchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_search_duration_seconds",
			Help:    "End-to-end aggregated search duration in seconds.",
			Buckets: httpDurationBuckets,
		}),
		OrderFanoutDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_order_fanout_duration_seconds",
			Help:    "Duration of the concurrent reference-check phase in seconds.",
			Buckets: backendDurationBuckets,
		}),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BackendRequestsTotal,
		m.BackendRequestDuration,
		m.BackendRetriesTotal,
		m.SearchDuration,
		m.OrderFanoutDuration,
	)
	return m
}

// ObserveBackendRequest records one upstream call. A zero status means the
// call never produced a response.
func (m *Metrics) ObserveBackendRequest(service, method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.BackendRequestsTotal.WithLabelValues(service, method, label).Inc()
	m.BackendRequestDuration.WithLabelValues(service, method).Observe(elapsed.Seconds())
}

// IncBackendRetry records one retry attempt against a backend.
func (m *Metrics) IncBackendRetry(service string) {
	m.BackendRetriesTotal.WithLabelValues(service).Inc()
}

// MetricsMiddleware records inbound request counts and durations. The path
// pattern is resolved by chi after routing, so recording happens on the way
// out.
func (m *Metrics) MetricsMiddleware(patternOf func(r *http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			pattern := patternOf(r)
			m.HTTPRequestsTotal.WithLabelValues(r.Method, pattern, strconv.Itoa(sw.status)).Inc()
			m.HTTPRequestDuration.WithLabelValues(r.Method, pattern).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the default Prometheus registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

type statusRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (w *statusRecorder) WriteHeader(code int) {
	if !w.written {
		w.status = code
		w.written = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if !w.written {
		w.written = true
	}
	return w.ResponseWriter.Write(b)
}
