package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/internal/order"
	"github.com/hirewear/composite-gateway/internal/search"
)

// Dependencies holds all injected dependencies for the HTTP transport layer.
type Dependencies struct {
	Config     *config.Config
	Logger     *zap.Logger
	Invoker    *invoker.Client
	Aggregator *search.Aggregator
	Workflow   *order.Workflow
	Metrics    *observability.Metrics

	MetricsHandler http.Handler
}

// NewRouter creates a chi.Router with the full middleware pipeline and all
// route registrations. Health, readiness, and metrics endpoints bypass the
// handler timeout and request logging.
func NewRouter(deps Dependencies) chi.Router {
	r := chi.NewRouter()

	r.Use(Recovery(deps.Logger))
	r.Use(TraceID)
	r.Use(SecurityHeaders)

	r.Get("/healthz", observability.HandleHealth())
	r.Get("/readyz", observability.HandleReady())
	if deps.MetricsHandler != nil {
		r.Method(http.MethodGet, deps.Config.Observability.Metrics.Path, deps.MetricsHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(HandlerTimeout(deps.Config.Server.HandlerTimeout))
		r.Use(RequestLogging(deps.Logger))

		r.Get("/search", handleSearch(deps.Aggregator, deps.Metrics))
		r.Post("/orders", handleCreateOrder(deps.Workflow, deps.Metrics))
		r.Get("/orders/{orderId}", handleGetOrder(deps.Invoker, deps.Config))
		r.Post("/orders/{orderId}/confirm", handleConfirmOrder(deps.Invoker, deps.Config))
		r.Get("/items", handleListItems(deps.Invoker, deps.Config))
		r.Get("/items/{itemId}", handleGetItem(deps.Invoker, deps.Config))
		r.Get("/users/{userId}", handleGetUser(deps.Invoker, deps.Config))
		r.Get("/jobs/{jobId}", handleGetJob(deps.Invoker, deps.Config))
	})

	return r
}

// RoutePattern resolves the chi route pattern after routing, for metric
// labels. Falls back to the raw path when routing did not match.
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
