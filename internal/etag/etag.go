// Package etag derives strong HTTP validators for composed responses. One
// gateway response may represent several upstream representations; Combine
// folds their validators into a single strong validator, and Strong hashes
// raw body bytes when no upstream validator exists.
package etag

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Strong renders a strong validator from body bytes: the hex SHA-256 digest
// wrapped in double quotes. The same bytes always produce the same validator.
func Strong(b []byte) string {
	sum := sha256.Sum256(b)
	return `"` + hex.EncodeToString(sum[:]) + `"`
}

// Combine derives one strong validator from zero or more upstream validators.
// Quote delimiters are stripped and empties discarded; the survivors are
// sorted so that combining [A,B] and [B,A] yields the same result, joined
// with a fixed delimiter, and hashed. Returns ("", false) when no validator
// survives; the caller must then fall back to Strong over body bytes.
func Combine(validators []string) (string, bool) {
	parts := make([]string, 0, len(validators))
	for _, v := range validators {
		stripped := strings.Trim(v, `"`)
		if stripped != "" {
			parts = append(parts, stripped)
		}
	}
	if len(parts) == 0 {
		return "", false
	}

	sort.Strings(parts)
	return Strong([]byte(strings.Join(parts, ","))), true
}
