package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/etag"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/model"
)

// handleConfirmOrder proxies the asynchronous confirmation to the order
// service, which replies 202 with a job Location to poll.
func handleConfirmOrder(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		orderID := chi.URLParam(r, "orderId")

		res, err := inv.Do(r.Context(), "order", invoker.Call{
			Method: http.MethodPost,
			URL:    cfg.Backends.OrderBaseURL + "/orders/" + orderID + "/confirm",
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if res.StatusCode == http.StatusNotFound {
			WriteError(w, r, model.NewNotFoundError(model.ErrOrderNotFound, "Order not found"))
			return
		}
		if res.StatusCode != http.StatusAccepted && (res.StatusCode < 200 || res.StatusCode >= 300) {
			WriteError(w, r, model.NewUpstreamError("order", res.StatusCode))
			return
		}

		location := res.Header.Get("Location")
		if location == "" {
			location = "/jobs/unknown"
		}
		w.Header().Set("Location", location)
		w.Header().Set("ETag", etag.Strong(res.Body))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(res.StatusCode)
		w.Write(res.Body)
	}
}

// handleGetJob is a pure pass-through to the order service's asynchronous
// job resource.
func handleGetJob(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jobID := chi.URLParam(r, "jobId")

		res, err := inv.Do(r.Context(), "order", invoker.Call{
			Method: http.MethodGet,
			URL:    cfg.Backends.OrderBaseURL + "/jobs/" + jobID,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if res.StatusCode == http.StatusNotFound {
			WriteError(w, r, model.NewNotFoundError(model.ErrJobNotFound, "Job not found"))
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			WriteError(w, r, model.NewUpstreamError("order", res.StatusCode))
			return
		}

		writeUpstream(w, res)
	}
}
