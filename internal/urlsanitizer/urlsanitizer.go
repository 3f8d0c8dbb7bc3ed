// Package urlsanitizer normalizes stored image references. Legacy rows may
// hold double-encoded JSON, truncated values or raw data URIs; Sanitize
// turns any of them into a displayable string, or "" when nothing usable
// can be recovered.
package urlsanitizer

import (
	"encoding/json"
	"regexp"
	"strings"
)

var referencePattern = regexp.MustCompile(`(https?://\S+|data:image/\S+)`)

const dataURIPrefix = "data:image"

// Sanitize is total and never fails. Inputs that are already displayable
// (plain URLs, data URIs) pass through unchanged, so applying Sanitize
// twice gives the same result.
func Sanitize(raw string) string {
	if strings.HasPrefix(raw, `{"`) {
		return sanitizeJSONEncoded(raw)
	}

	if strings.HasPrefix(raw, dataURIPrefix) {
		return raw
	}

	// Truncated or concatenated legacy rows can bury the reference inside
	// unrelated text. Prefer the embedded reference when one is present.
	if match := extractFirstReference(raw); match != "" {
		return match
	}

	return raw
}

// sanitizeJSONEncoded handles rows where a JSON value was stored instead of
// the plain reference. A JSON string yields its content; any other valid
// JSON value is re-serialized; unparseable input falls back to scanning for
// the first embedded URL or data URI.
func sanitizeJSONEncoded(raw string) string {
	var parsed interface{}
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return extractFirstReference(raw)
	}

	if asString, ok := parsed.(string); ok {
		return asString
	}

	serialized, err := json.Marshal(parsed)
	if err != nil {
		return extractFirstReference(raw)
	}

	return string(serialized)
}

func extractFirstReference(raw string) string {
	return referencePattern.FindString(raw)
}
