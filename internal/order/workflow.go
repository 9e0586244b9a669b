// Package order orchestrates the multi-step order creation protocol: both
// referenced resources are checked concurrently, the item's availability is
// verified, and only then is the order committed against the order service.
// Phases never overlap; each one is a strict barrier over its calls.
package order

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/etag"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/model"
)

// Phase identifies a step in the order creation workflow.
type Phase int

const (
	PhaseValidating Phase = iota
	PhaseCheckingRefs
	PhaseCheckingAvailability
	PhaseCommitting
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseValidating:
		return "validating"
	case PhaseCheckingRefs:
		return "checking_refs"
	case PhaseCheckingAvailability:
		return "checking_availability"
	case PhaseCommitting:
		return "committing"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// FanoutServices names the upstream calls the workflow issues, in order.
// Emitted on the X-Composite-Fanout response header.
const FanoutServices = "user,item,availability,order"

// CreateResult is the outcome of a committed order creation.
type CreateResult struct {
	Body     []byte
	ETag     string
	Location string
	// ParallelMs is the wall-clock duration of the concurrent reference
	// check pair, exposed as an observability signal.
	ParallelMs int64
}

// state is the transient per-request workflow record. It exists only for
// the duration of one creation and is destroyed when the handler returns.
type state struct {
	phase      Phase
	userRes    *invoker.Result
	itemRes    *invoker.Result
	createRes  *invoker.Result
	parallelMs int64
}

// Workflow runs order creations against the three backend services.
type Workflow struct {
	invoker *invoker.Client
	cfg     *config.Config
	logger  *zap.Logger
}

// NewWorkflow creates a Workflow.
func NewWorkflow(inv *invoker.Client, cfg *config.Config, logger *zap.Logger) *Workflow {
	return &Workflow{invoker: inv, cfg: cfg, logger: logger}
}

// Create runs the full workflow for one intent. Any phase failure is
// terminal for the whole workflow; there is no compensating rollback since
// the gateway is a proxy, not a transaction coordinator. Once the commit
// call has been issued it is not silently re-run beyond what the invoker's
// own retry policy provides, to avoid duplicating order creation.
func (w *Workflow) Create(ctx context.Context, intent model.OrderIntent) (*CreateResult, error) {
	st := &state{phase: PhaseValidating}

	ctx, span := observability.Tracer().Start(ctx, "order.create")
	defer func() {
		span.SetAttributes(observability.AttrPhase.String(st.phase.String()))
		span.End()
	}()

	if err := w.validate(intent); err != nil {
		return nil, err
	}

	st.phase = PhaseCheckingRefs
	if err := w.checkRefs(ctx, st, intent); err != nil {
		return nil, err
	}

	st.phase = PhaseCheckingAvailability
	if err := w.checkAvailability(ctx, intent); err != nil {
		return nil, err
	}

	st.phase = PhaseCommitting
	if err := w.commit(ctx, st, intent); err != nil {
		return nil, err
	}

	st.phase = PhaseDone
	result := w.finish(st)

	w.logger.Info("order created",
		zap.String("userId", intent.UserID),
		zap.String("itemId", intent.ItemID),
		zap.String("location", result.Location),
		zap.Int64("parallel_ms", result.ParallelMs),
	)
	return result, nil
}

// validate rejects the intent before any network call is issued.
func (w *Workflow) validate(intent model.OrderIntent) error {
	if intent.UserID == "" || intent.ItemID == "" {
		return model.NewValidationFailedError("userId and itemId are required")
	}
	return nil
}

// checkRefs issues the user and item lookups concurrently and joins both
// before evaluating. On a transport failure the sibling call is cancelled
// through the group context, and no partial results are exposed. The user
// check is evaluated first when both lookups are 404.
func (w *Workflow) checkRefs(ctx context.Context, st *state, intent model.OrderIntent) error {
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		res, err := w.invoker.Do(gctx, "user", invoker.Call{
			Method: http.MethodGet,
			URL:    w.cfg.Backends.UserBaseURL + "/users/" + url.PathEscape(intent.UserID),
		})
		st.userRes = res
		return err
	})
	g.Go(func() error {
		res, err := w.invoker.Do(gctx, "catalog", invoker.Call{
			Method: http.MethodGet,
			URL:    w.cfg.Backends.CatalogBaseURL + "/items/" + url.PathEscape(intent.ItemID),
		})
		st.itemRes = res
		return err
	})
	if err := g.Wait(); err != nil {
		return err
	}
	st.parallelMs = time.Since(start).Milliseconds()

	if st.userRes.StatusCode == http.StatusNotFound {
		return model.NewUserRefNotFoundError()
	}
	if st.itemRes.StatusCode == http.StatusNotFound {
		return model.NewItemRefNotFoundError()
	}
	if !is2xx(st.userRes.StatusCode) {
		return model.NewUpstreamError("user", st.userRes.StatusCode)
	}
	if !is2xx(st.itemRes.StatusCode) {
		return model.NewUpstreamError("catalog", st.itemRes.StatusCode)
	}
	return nil
}

// checkAvailability asks the catalog whether the item can be ordered for
// the requested window. Date filters are omitted when the client did not
// supply them.
func (w *Workflow) checkAvailability(ctx context.Context, intent model.OrderIntent) error {
	params := url.Values{}
	if intent.StartDate != "" {
		params.Set("startDate", intent.StartDate)
	}
	if intent.EndDate != "" {
		params.Set("endDate", intent.EndDate)
	}

	res, err := w.invoker.Do(ctx, "catalog", invoker.Call{
		Method: http.MethodGet,
		URL: fmt.Sprintf("%s/items/%s/availability",
			w.cfg.Backends.CatalogBaseURL, url.PathEscape(intent.ItemID)),
		Query: params,
	})
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusConflict {
		return model.NewItemUnavailableError()
	}
	if !is2xx(res.StatusCode) {
		return model.NewUpstreamError("catalog", res.StatusCode)
	}
	return nil
}

// commit creates the order, forwarding the validated intent including its
// extra-fields bag.
func (w *Workflow) commit(ctx context.Context, st *state, intent model.OrderIntent) error {
	body, err := json.Marshal(intent)
	if err != nil {
		return fmt.Errorf("order: marshal intent: %w", err)
	}

	res, err := w.invoker.Do(ctx, "order", invoker.Call{
		Method: http.MethodPost,
		URL:    w.cfg.Backends.OrderBaseURL + "/orders",
		Body:   body,
	})
	if err != nil {
		return err
	}
	if res.StatusCode == http.StatusConflict {
		var details any
		if err := json.Unmarshal(res.Body, &details); err != nil {
			details = string(res.Body)
		}
		return model.NewOrderConflictError(details)
	}
	if res.StatusCode >= http.StatusBadRequest {
		return model.NewUpstreamError("order", res.StatusCode)
	}

	st.createRes = res
	return nil
}

// finish derives the composite validator and resource location from the
// collected results.
func (w *Workflow) finish(st *state) *CreateResult {
	validator, ok := etag.Combine([]string{
		st.userRes.Header.Get("ETag"),
		st.itemRes.Header.Get("ETag"),
		st.createRes.Header.Get("ETag"),
	})
	if !ok {
		validator = etag.Strong(st.createRes.Body)
	}

	location := st.createRes.Header.Get("Location")
	if location == "" {
		var created struct {
			ID string `json:"id"`
		}
		// Best effort: an unparseable body still yields a usable path.
		_ = json.Unmarshal(st.createRes.Body, &created)
		location = "/orders/" + created.ID
	}

	return &CreateResult{
		Body:       st.createRes.Body,
		ETag:       validator,
		Location:   location,
		ParallelMs: st.parallelMs,
	}
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}
