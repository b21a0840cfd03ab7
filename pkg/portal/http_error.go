package portal

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/shpitdev/fiofix/pkg/pipeline/core"
	"github.com/shpitdev/fiofix/pkg/pipeline/redact"
)

var (
	// ErrLoginRejected means the portal sent us back to the login form.
	ErrLoginRejected = errors.New("portal rejected the credentials")
	// ErrSessionExpired means an authenticated page redirected to login.
	ErrSessionExpired = errors.New("portal session expired")
	// ErrFormNotFound means the profile page has no name form.
	ErrFormNotFound = errors.New("profile form with a fio field not found")
)

// HTTPError is a sanitized summary of a non-2xx portal response.
//
// Important: do not include raw response bodies here (can leak PII/cookies).
type HTTPError struct {
	Op         string
	StatusCode int
	Status     string

	// Snippet is a redacted, truncated hint of the body.
	Snippet string
}

func (e *HTTPError) Error() string {
	if e == nil {
		return "portal http error"
	}
	parts := []string{
		fmt.Sprintf("portal error: op=%s status=%s", strings.TrimSpace(e.Op), strings.TrimSpace(e.Status)),
	}
	if strings.TrimSpace(e.Snippet) != "" {
		parts = append(parts, "body="+strings.TrimSpace(e.Snippet))
	}
	return strings.Join(parts, " ")
}

// Retryable reports whether the request may succeed when repeated.
func (e *HTTPError) Retryable() bool {
	if e == nil {
		return false
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// newHTTPError builds an *HTTPError, wrapped in core.TransientError when the
// status is worth retrying.
func newHTTPError(op string, resp *http.Response, body []byte) error {
	h := &HTTPError{Op: op}
	if resp != nil {
		h.StatusCode = resp.StatusCode
		h.Status = resp.Status
	}
	h.Snippet = redactAndTruncate(body)
	if h.Retryable() {
		return &core.TransientError{Err: h}
	}
	return h
}

func redactAndTruncate(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	// Keep this small: response bodies can contain sensitive data.
	const limit = 256
	b := body
	if len(b) > limit {
		b = b[:limit]
	}
	s := redact.Secrets(strings.ToValidUTF8(string(b), ""))
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if len(body) > limit {
		return s + "..."
	}
	return s
}
