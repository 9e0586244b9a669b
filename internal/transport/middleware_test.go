package transport

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestTraceID_echoesInboundHeader(t *testing.T) {
	var seen string
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = TraceIDFrom(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Trace-Id", "trace-abc")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if seen != "trace-abc" {
		t.Errorf("context trace id = %q, want trace-abc", seen)
	}
	if got := w.Header().Get("X-Trace-Id"); got != "trace-abc" {
		t.Errorf("response X-Trace-Id = %q, want trace-abc", got)
	}
}

func TestTraceID_generatesWhenMissing(t *testing.T) {
	h := TraceID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if got := w.Header().Get("X-Trace-Id"); got == "" {
		t.Error("response X-Trace-Id missing")
	}
}

func TestRecovery_turnsPanicInto500(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestCopyAllowedHeaders(t *testing.T) {
	src := http.Header{}
	src.Set("Cache-Control", "max-age=60")
	src.Set("Last-Modified", "Mon, 02 Jan 2006 15:04:05 GMT")
	src.Set("X-Internal-Secret", "nope")

	dst := http.Header{}
	copyAllowedHeaders(src, dst, []string{"Cache-Control", "Last-Modified"})

	if dst.Get("Cache-Control") != "max-age=60" {
		t.Errorf("Cache-Control = %q", dst.Get("Cache-Control"))
	}
	if dst.Get("Last-Modified") == "" {
		t.Error("Last-Modified not propagated")
	}
	if dst.Get("X-Internal-Secret") != "" {
		t.Error("non-allow-listed header leaked")
	}
}
