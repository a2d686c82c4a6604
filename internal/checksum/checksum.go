// Package checksum fingerprints persisted blobs and index rows.
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

// Fields returns the digest of the given fields joined by a unit separator,
// so ("ab", "c") and ("a", "bc") differ.
func Fields(fields ...string) string {
	return Sum([]byte(strings.Join(fields, "\x1f")))
}

// ETag quotes a checksum for use in an HTTP ETag header.
func ETag(sum string) string {
	return `"` + sum + `"`
}

// MatchETag reports whether an If-Match header value refers to sum. The
// wildcard "*" matches any sum; weak validators are compared by value.
func MatchETag(header, sum string) bool {
	for _, part := range strings.Split(header, ",") {
		tag := strings.TrimSpace(part)
		if tag == "*" {
			return true
		}
		tag = strings.TrimPrefix(tag, "W/")
		if strings.Trim(tag, `"`) == sum {
			return true
		}
	}
	return false
}
