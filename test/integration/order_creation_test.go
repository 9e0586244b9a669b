package integration

import (
	"net/http"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func validIntent() map[string]any {
	return map[string]any{
		"userId":    "u-1",
		"itemId":    "i-1",
		"startDate": "2026-09-01",
		"endDate":   "2026-09-05",
	}
}

func stubHappyBackends(h *TestHarness) {
	h.Users.On(http.MethodGet, "/users/u-1").RespondWithHeaders(http.StatusOK,
		map[string]any{"id": "u-1", "name": "Ada"}, map[string]string{"ETag": `"user-v3"`})
	h.Catalog.On(http.MethodGet, "/items/i-1").RespondWithHeaders(http.StatusOK,
		map[string]any{"id": "i-1"}, map[string]string{"ETag": `"item-v8"`})
	h.Catalog.On(http.MethodGet, "/items/i-1/availability").Respond(http.StatusOK,
		map[string]any{"available": true})
	h.Orders.On(http.MethodPost, "/orders").RespondWithHeaders(http.StatusCreated,
		map[string]any{"id": "order-55", "status": "pending"},
		map[string]string{"ETag": `"order-v1"`, "Location": "/orders/order-55"})
}

func TestCreateOrder_happyPathCarriesCompositionHeaders(t *testing.T) {
	h := NewHarness(t)
	stubHappyBackends(h)

	resp := h.Post("/orders", validIntent())
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "/orders/order-55", resp.Header.Get("Location"))
	require.NotEmpty(t, resp.Header.Get("ETag"))
	require.Equal(t, "user,item,availability,order", resp.Header.Get("X-Composite-Fanout"))
	require.Equal(t, "true", resp.Header.Get("X-Composite-Threaded"))

	parallel, err := strconv.Atoi(resp.Header.Get("X-Composite-Parallel-Ms"))
	require.NoError(t, err, "X-Composite-Parallel-Ms must be numeric")
	require.GreaterOrEqual(t, parallel, 0)

	body := DecodeJSON(t, resp)
	require.Equal(t, "order-55", body["id"])

	// The availability probe forwards the requested window.
	checks := h.Catalog.Received(http.MethodGet, "/items/i-1/availability")
	require.Len(t, checks, 1)
	require.Equal(t, "2026-09-01", checks[0].Query["startDate"])
	require.Equal(t, "2026-09-05", checks[0].Query["endDate"])
}

func TestCreateOrder_missingUserStopsBeforeCommit(t *testing.T) {
	h := NewHarness(t)

	h.Users.On(http.MethodGet, "/users/u-1").Respond(http.StatusNotFound, map[string]any{"detail": "no such user"})
	h.Catalog.On(http.MethodGet, "/items/i-1").Respond(http.StatusOK, map[string]any{"id": "i-1"})

	resp := h.Post("/orders", validIntent())
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "FK_USER_NOT_FOUND", ErrorCode(t, resp))
	require.Zero(t, h.Orders.CallCount(http.MethodPost, "/orders"))
	require.Zero(t, h.Catalog.CallCount(http.MethodGet, "/items/i-1/availability"))
}

func TestCreateOrder_unknownFieldsReachTheOrderService(t *testing.T) {
	h := NewHarness(t)
	stubHappyBackends(h)

	intent := validIntent()
	intent["giftWrap"] = true
	resp := h.Post("/orders", intent)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	commits := h.Orders.Received(http.MethodPost, "/orders")
	require.Len(t, commits, 1)
	require.Equal(t, true, commits[0].Body["giftWrap"])
	require.Equal(t, "u-1", commits[0].Body["userId"])
}

func TestCreateOrder_conflictSurfacesUpstreamDetails(t *testing.T) {
	h := NewHarness(t)
	stubHappyBackends(h)
	h.Orders.On(http.MethodPost, "/orders").Respond(http.StatusConflict,
		map[string]any{"detail": "overlapping booking", "existingOrderId": "order-11"})

	resp := h.Post("/orders", validIntent())
	require.Equal(t, http.StatusConflict, resp.StatusCode)

	env, ok := DecodeJSON(t, resp)["error"].(map[string]any)
	require.True(t, ok, "response is not an error envelope")
	require.Equal(t, "ORDER_CONFLICT", env["code"])
	details, ok := env["details"].(map[string]any)
	require.True(t, ok, "conflict must carry upstream details")
	require.Equal(t, "order-11", details["existingOrderId"])
}

func TestCreateOrder_malformedBodyIsRejectedWithoutBackendCalls(t *testing.T) {
	h := NewHarness(t)

	req, err := http.NewRequest(http.MethodPost, h.URL()+"/orders", nil)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	require.Equal(t, "FK_VALIDATION_FAILED", ErrorCode(t, resp))
	require.Zero(t, h.Users.CallCount(http.MethodGet, "/users/u-1"))
}
