package transport

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/internal/order"
	"github.com/hirewear/composite-gateway/model"
)

func handleCreateOrder(wf *order.Workflow, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var intent model.OrderIntent
		if err := json.NewDecoder(r.Body).Decode(&intent); err != nil {
			WriteError(w, r, model.NewValidationFailedError("request body must be a JSON order"))
			return
		}

		result, err := wf.Create(r.Context(), intent)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if metrics != nil {
			metrics.OrderFanoutDuration.Observe(float64(result.ParallelMs) / 1000)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Location", result.Location)
		w.Header().Set("ETag", result.ETag)
		w.Header().Set("X-Composite-Parallel-Ms", strconv.FormatInt(result.ParallelMs, 10))
		w.Header().Set("X-Composite-Fanout", order.FanoutServices)
		w.Header().Set("X-Composite-Threaded", "true")
		w.WriteHeader(http.StatusCreated)
		w.Write(result.Body)
	}
}

func handleGetOrder(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		res, err := inv.Do(r.Context(), "order", invoker.Call{
			Method: http.MethodGet,
			URL:    cfg.Backends.OrderBaseURL + "/orders/" + orderID,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if res.StatusCode == http.StatusNotFound {
			WriteError(w, r, model.NewNotFoundError(model.ErrOrderNotFound, "Order not found"))
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			WriteError(w, r, model.NewUpstreamError("order", res.StatusCode))
			return
		}

		writeUpstream(w, res)
	}
}
