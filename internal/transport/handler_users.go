package transport

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/model"
)

func handleGetUser(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")

		header := http.Header{}
		if match := r.Header.Get("If-None-Match"); match != "" {
			header.Set("If-None-Match", match)
		}

		res, err := inv.Do(r.Context(), "user", invoker.Call{
			Method: http.MethodGet,
			URL:    cfg.Backends.UserBaseURL + "/users/" + userID,
			Header: header,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}

		// Conditional short-circuit passes straight through with no body.
		if res.StatusCode == http.StatusNotModified {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if res.StatusCode == http.StatusNotFound {
			WriteError(w, r, model.NewNotFoundError(model.ErrUserNotFound, "User not found"))
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			WriteError(w, r, model.NewUpstreamError("user", res.StatusCode))
			return
		}

		writeUpstream(w, res, "Cache-Control", "Last-Modified")
	}
}
