// Package search implements the cross-source search aggregation: one inbound
// query fans out to the catalog and order services concurrently and the
// responses are reconciled into a single page with one composite cursor and
// one derived validator.
package search

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/etag"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/internal/pagination"
	"github.com/hirewear/composite-gateway/model"
)

// Source names used in composite cursors and result tagging.
const (
	sourceCatalog = "items"
	sourceOrders  = "orders"
)

// bodySeparator joins raw response bodies for the content-hash fallback.
var bodySeparator = []byte("|")

// Page is one aggregated search page.
type Page struct {
	Results       []map[string]any `json:"results"`
	NextPageToken string           `json:"nextPageToken,omitempty"`
	PageSize      int              `json:"pageSize"`
	ETag          string           `json:"-"`
}

// catalogPage is the catalog service's list response shape.
type catalogPage struct {
	Items         []map[string]any `json:"items"`
	NextPageToken string           `json:"nextPageToken"`
}

// orderPage is the order service's list response shape.
type orderPage struct {
	Orders        []map[string]any `json:"orders"`
	NextPageToken string           `json:"nextPageToken"`
}

// Aggregator fans out search reads to the catalog and order services.
type Aggregator struct {
	invoker *invoker.Client
	cfg     *config.Config
	logger  *zap.Logger
}

// NewAggregator creates an Aggregator.
func NewAggregator(inv *invoker.Client, cfg *config.Config, logger *zap.Logger) *Aggregator {
	return &Aggregator{invoker: inv, cfg: cfg, logger: logger}
}

// Search issues both upstream reads concurrently and merges the results.
// Either source failing after retry exhaustion fails the whole operation:
// a partial result set with wrong pagination semantics is worse than an
// error. The merged sequence is truncated to the resolved page size after
// tagging each entry with its source.
func (a *Aggregator) Search(ctx context.Context, query string, requestedSize int, pageToken string) (*Page, error) {
	size := a.cfg.ClampPageSize(requestedSize)
	cursors := pagination.Split(pageToken)

	ctx, span := observability.Tracer().Start(ctx, "search.aggregate",
		trace.WithAttributes(
			observability.AttrQuery.String(query),
			observability.AttrPageSize.Int(size),
		),
	)
	defer span.End()

	var catalogRes, ordersRes *invoker.Result

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := a.fetch(ctx, "catalog", a.cfg.Backends.CatalogBaseURL+"/catalog/items",
			query, size, cursors[sourceCatalog])
		catalogRes = res
		return err
	})
	g.Go(func() error {
		res, err := a.fetch(ctx, "order", a.cfg.Backends.OrderBaseURL+"/orders",
			query, size, cursors[sourceOrders])
		ordersRes = res
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var catalogBody catalogPage
	if err := json.Unmarshal(catalogRes.Body, &catalogBody); err != nil {
		a.logger.Warn("catalog search response is not valid JSON", zap.Error(err))
		return nil, model.NewUpstreamError("catalog", catalogRes.StatusCode)
	}
	var ordersBody orderPage
	if err := json.Unmarshal(ordersRes.Body, &ordersBody); err != nil {
		a.logger.Warn("order search response is not valid JSON", zap.Error(err))
		return nil, model.NewUpstreamError("order", ordersRes.StatusCode)
	}

	merged := make([]map[string]any, 0, len(catalogBody.Items)+len(ordersBody.Orders))
	for _, item := range catalogBody.Items {
		merged = append(merged, tagged("catalog", item))
	}
	for _, ord := range ordersBody.Orders {
		merged = append(merged, tagged("order", ord))
	}
	// Truncation happens after the by-source concatenation, so a full first
	// source can starve the second one's share of the page.
	if len(merged) > size {
		merged = merged[:size]
	}

	nextToken := pagination.Merge(map[string]string{
		sourceCatalog: catalogBody.NextPageToken,
		sourceOrders:  ordersBody.NextPageToken,
	})

	validator, ok := etag.Combine([]string{
		catalogRes.Header.Get("ETag"),
		ordersRes.Header.Get("ETag"),
	})
	if !ok {
		joined := make([]byte, 0, len(catalogRes.Body)+len(bodySeparator)+len(ordersRes.Body))
		joined = append(joined, catalogRes.Body...)
		joined = append(joined, bodySeparator...)
		joined = append(joined, ordersRes.Body...)
		validator = etag.Strong(joined)
	}

	return &Page{
		Results:       merged,
		NextPageToken: nextToken,
		PageSize:      size,
		ETag:          validator,
	}, nil
}

// fetch issues one upstream read through the invoker and rejects anything
// outside 2xx.
func (a *Aggregator) fetch(ctx context.Context, service, baseURL, query string, size int, cursor string) (*invoker.Result, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("pageSize", strconv.Itoa(size))
	if cursor != "" {
		params.Set("pageToken", cursor)
	}

	res, err := a.invoker.Do(ctx, service, invoker.Call{
		Method: http.MethodGet,
		URL:    baseURL,
		Query:  params,
	})
	if err != nil {
		return nil, err
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, model.NewUpstreamError(service, res.StatusCode)
	}
	return res, nil
}

// tagged copies an entry with its source name. The entry's own keys win on
// collision, matching upstream precedence.
func tagged(source string, entry map[string]any) map[string]any {
	out := make(map[string]any, len(entry)+1)
	out["source"] = source
	for k, v := range entry {
		out[k] = v
	}
	return out
}
