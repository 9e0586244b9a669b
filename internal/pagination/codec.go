// Package pagination implements the composite cursor codec. A single opaque
// client-facing token carries independent per-source pagination cursors so
// that one gateway page can advance several backends at once.
package pagination

import (
	"encoding/base64"
	"encoding/json"
)

// envelope is the wire shape of a composite cursor:
// base64url(json({"sources": {name: cursor, ...}})).
type envelope struct {
	Sources map[string]string `json:"sources"`
}

// Merge combines per-source cursors into one opaque token. Sources with an
// empty cursor are dropped; when nothing remains the result is "" meaning
// no further pages from any source. Serialization is deterministic since
// encoding/json emits map keys in sorted order.
func Merge(sources map[string]string) string {
	compact := make(map[string]string, len(sources))
	for name, cursor := range sources {
		if cursor != "" {
			compact[name] = cursor
		}
	}
	if len(compact) == 0 {
		return ""
	}

	packed, err := json.Marshal(envelope{Sources: compact})
	if err != nil {
		// A map[string]string cannot fail to marshal.
		return ""
	}
	return base64.URLEncoding.EncodeToString(packed)
}

// Split decodes an opaque token back into per-source cursors. An empty or
// malformed token yields an empty map rather than an error: pagination
// degrades to "start from the beginning" per source instead of failing the
// request.
func Split(token string) map[string]string {
	if token == "" {
		return map[string]string{}
	}

	raw, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return map[string]string{}
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return map[string]string{}
	}

	sources := make(map[string]string, len(env.Sources))
	for name, cursor := range env.Sources {
		if cursor != "" {
			sources[name] = cursor
		}
	}
	return sources
}
