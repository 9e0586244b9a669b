package transport

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/hirewear/composite-gateway/internal/config"
	"github.com/hirewear/composite-gateway/internal/invoker"
	"github.com/hirewear/composite-gateway/model"
)

func handleListItems(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := r.URL.Query()
		params.Set("pageSize", strconv.Itoa(cfg.ClampPageSize(queryInt(r, "pageSize"))))

		res, err := inv.Do(r.Context(), "catalog", invoker.Call{
			Method: http.MethodGet,
			URL:    cfg.Backends.CatalogBaseURL + "/catalog/items",
			Query:  params,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			WriteError(w, r, model.NewUpstreamError("catalog", res.StatusCode))
			return
		}

		writeUpstream(w, res, "Cache-Control", "Next-Page-Token")
	}
}

func handleGetItem(inv *invoker.Client, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		itemID := chi.URLParam(r, "itemId")

		res, err := inv.Do(r.Context(), "catalog", invoker.Call{
			Method: http.MethodGet,
			URL:    cfg.Backends.CatalogBaseURL + "/catalog/items/" + itemID,
		})
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if res.StatusCode == http.StatusNotFound {
			WriteError(w, r, model.NewNotFoundError(model.ErrItemNotFound, "Item not found"))
			return
		}
		if res.StatusCode < 200 || res.StatusCode >= 300 {
			WriteError(w, r, model.NewUpstreamError("catalog", res.StatusCode))
			return
		}

		writeUpstream(w, res, "Cache-Control", "Last-Modified")
	}
}
