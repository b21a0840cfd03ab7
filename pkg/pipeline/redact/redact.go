package redact

import (
	"regexp"
	"strings"
)

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Form-encoded and key=value credentials that leak through request dumps.
	passwordKVRe = regexp.MustCompile(`(?i)\b(password|passwd|pass)\b\s*[:=]\s*[^\s&"']+`)

	// Session cookies set by the portal.
	sessionCookieRe = regexp.MustCompile(`(?i)\b(PHPSESSID|session[_-]?id)\b\s*[:=]\s*[^\s;&"']+`)

	apiKeyKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key)\b\s*[:=]\s*[^\s"']+`)
)

// Secrets removes obvious secret-bearing substrings from error/log strings.
func Secrets(s string) string {
	if s == "" {
		return ""
	}
	out := s
	out = bearerTokenRe.ReplaceAllString(out, "Bearer <redacted>")
	out = passwordKVRe.ReplaceAllString(out, "$1=<redacted>")
	out = sessionCookieRe.ReplaceAllString(out, "$1=<redacted>")
	out = apiKeyKVRe.ReplaceAllString(out, "<redacted_kv>")
	return strings.TrimSpace(out)
}
