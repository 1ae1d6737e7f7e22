// Package checksum fingerprints note files so the store can tell its own
// writes from external edits.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag quotes a checksum for use in HTTP headers.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// FromETag strips the quotes and weak prefix of an If-Match value.
func FromETag(tag string) string {
	tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
	return strings.Trim(tag, `"`)
}
