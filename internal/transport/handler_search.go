package transport

import (
	"net/http"
	"strconv"
	"time"

	"github.com/hirewear/composite-gateway/internal/observability"
	"github.com/hirewear/composite-gateway/internal/search"
)

func handleSearch(agg *search.Aggregator, metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")
		pageSize := queryInt(r, "pageSize")
		pageToken := r.URL.Query().Get("pageToken")

		start := time.Now()
		page, err := agg.Search(r.Context(), query, pageSize, pageToken)
		if err != nil {
			WriteError(w, r, err)
			return
		}
		if metrics != nil {
			metrics.SearchDuration.Observe(time.Since(start).Seconds())
		}

		w.Header().Set("ETag", page.ETag)
		WriteJSON(w, http.StatusOK, page)
	}
}

// queryInt parses an integer query parameter; missing or malformed values
// yield -1, meaning unspecified.
func queryInt(r *http.Request, name string) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return -1
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return n
}
