// Package redact masks secret values before they reach reports or logs.
package redact

import "strings"

// keep is how many leading characters of a secret stay visible.
const keep = 4

// Mask hides all but a short prefix of s. Well-known insecure prefixes such
// as Django's "django-insecure-" stay visible because they are not secret
// and explain the finding.
func Mask(s string) string {
	prefix := ""
	for _, p := range insecurePrefixes {
		if strings.HasPrefix(s, p) {
			prefix, s = p, s[len(p):]
			break
		}
	}
	if len(s) <= keep {
		return prefix + strings.Repeat("*", len(s))
	}
	return prefix + s[:keep] + strings.Repeat("*", 8)
}

var insecurePrefixes = []string{"django-insecure-"}
