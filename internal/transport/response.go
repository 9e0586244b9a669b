// Package transport contains the HTTP router, middleware chain, and all
// request handlers for the gateway API.
package transport

import (
	"encoding/json"
	"net/http"

	"github.com/hirewear/composite-gateway/model"
)

// statusForCode maps ErrorEnvelope codes to HTTP status codes. An envelope
// carrying an explicit Status (the upstream passthrough class) overrides
// this table.
var statusForCode = map[string]int{
	model.ErrValidationFailed:   http.StatusUnprocessableEntity,
	model.ErrUserRefNotFound:    http.StatusUnprocessableEntity,
	model.ErrItemRefNotFound:    http.StatusUnprocessableEntity,
	model.ErrItemUnavailable:    http.StatusConflict,
	model.ErrOrderConflict:      http.StatusConflict,
	model.ErrOrderNotFound:      http.StatusNotFound,
	model.ErrItemNotFound:       http.StatusNotFound,
	model.ErrUserNotFound:       http.StatusNotFound,
	model.ErrJobNotFound:        http.StatusNotFound,
	model.ErrBackendUnavailable: http.StatusBadGateway,
	model.ErrBackendTimeout:     http.StatusGatewayTimeout,
	model.ErrInternalError:      http.StatusInternalServerError,
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		json.NewEncoder(w).Encode(body)
	}
}

// WriteError writes an ErrorEnvelope as a JSON response with the matching
// HTTP status code, attaching the request's trace id. A non-envelope error
// becomes a generic 500 so no internal detail leaks.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	ee, ok := err.(*model.ErrorEnvelope)
	if !ok {
		ee = model.NewInternalError()
	}
	if traceID := TraceIDFrom(r.Context()); traceID != "" {
		ee = ee.WithTraceID(traceID)
	}

	status := ee.Status
	if status == 0 {
		status = statusForCode[ee.Code]
	}
	if status == 0 {
		status = http.StatusInternalServerError
	}

	type errorResponse struct {
		Error *model.ErrorEnvelope `json:"error"`
	}
	WriteJSON(w, status, errorResponse{Error: ee})
}
