package transport

import (
	"net/http"

	"github.com/hirewear/composite-gateway/internal/etag"
	"github.com/hirewear/composite-gateway/internal/invoker"
)

// writeUpstream forwards an upstream result: status code, body bytes,
// content type, the upstream ETag or one derived from the body, and any
// allow-listed headers.
func writeUpstream(w http.ResponseWriter, res *invoker.Result, allow ...string) {
	validator := res.Header.Get("ETag")
	if validator == "" {
		validator = etag.Strong(res.Body)
	}
	w.Header().Set("ETag", validator)

	contentType := res.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/json"
	}
	w.Header().Set("Content-Type", contentType)

	copyAllowedHeaders(res.Header, w.Header(), allow)

	w.WriteHeader(res.StatusCode)
	w.Write(res.Body)
}

// copyAllowedHeaders propagates only the allow-listed headers from an
// upstream response.
func copyAllowedHeaders(src http.Header, dst http.Header, allow []string) {
	for _, name := range allow {
		if v := src.Get(name); v != "" {
			dst.Set(name, v)
		}
	}
}
