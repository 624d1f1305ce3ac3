// Package keys builds Redis keys and content fingerprints for sources.
package keys

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cespare/xxhash/v2"
)

const Prefix = "fs:source:"

// Source is the Redis key holding the GeoJSON document of source id.
// Ids that need sanitizing get a hash suffix so distinct ids stay distinct.
func Source(id string) string {
	id = strings.TrimSpace(id)
	safe := SanitizeID(id)
	if safe == id {
		return Prefix + safe
	}
	return fmt.Sprintf("%s%s:h=%016x", Prefix, safe, xxhash.Sum64String(id))
}

// Fingerprint identifies a document by content.
func Fingerprint(b []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(b))
}

// SanitizeID keeps letters, digits and ":_-." and folds every other run of
// characters into a single '-' (whitespace becomes '_').
func SanitizeID(s string) string {
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	var prev rune
	for _, r := range s {
		out := rune(0)
		switch {
		case unicode.IsSpace(r):
			out = '_'
		case isAlphaNum(r) || r == ':' || r == '_' || r == '-' || r == '.':
			out = r
		default:
			out = '-'
		}
		if (out == '_' || out == '-') && out == prev {
			continue
		}
		b.WriteRune(out)
		prev = out
	}
	return b.String()
}

func isAlphaNum(r rune) bool {
	return (r >= 'a' && r <= 'z') ||
		(r >= 'A' && r <= 'Z') ||
		(r >= '0' && r <= '9')
}
