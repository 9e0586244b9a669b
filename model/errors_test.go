package model

import (
	"net/http"
	"testing"
)

func TestErrorEnvelope_errorInterface(t *testing.T) {
	var err error = NewItemUnavailableError()
	want := "ITEM_UNAVAILABLE: Item is not available for the requested window"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestWithTraceID_doesNotMutateOriginal(t *testing.T) {
	original := NewInternalError()
	traced := original.WithTraceID("trace-9")

	if traced.TraceID != "trace-9" {
		t.Errorf("traced.TraceID = %q", traced.TraceID)
	}
	if original.TraceID != "" {
		t.Error("WithTraceID mutated the original envelope")
	}
}

func TestNewUpstreamError_statusPassthrough(t *testing.T) {
	if got := NewUpstreamError("order", 503).Status; got != 503 {
		t.Errorf("Status = %d, want 503 passthrough", got)
	}
	if got := NewUpstreamError("order", 418).Status; got != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502 for client error", got)
	}
}
