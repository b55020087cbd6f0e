package service

import (
	"context"
	"errors"
	"net"
	"net/http"
	"regexp"
	"strings"

	"github.com/hugo-lorenzo-mato/travel-buddy/internal/core"
)

// ErrorKind is the retry classification of a failed generation call.
type ErrorKind string

const (
	KindFatal     ErrorKind = "fatal"
	KindRateLimit ErrorKind = "rate_limit"
	KindTransient ErrorKind = "transient"
)

// Retryable reports whether the kind is worth another attempt.
func (k ErrorKind) Retryable() bool {
	return k == KindRateLimit || k == KindTransient
}

// Classify decides whether err is fatal, a rate limit, or transient.
// A structured status from *core.ServiceError wins; message markers are
// the fallback when the provider gave no status.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindFatal
	}
	if errors.Is(err, context.Canceled) {
		return KindFatal
	}

	var se *core.ServiceError
	if errors.As(err, &se) && se.StatusCode != 0 {
		if kind, ok := classifyStatus(se.StatusCode, se.Code); ok {
			return kind
		}
		return KindFatal
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTransient
	}

	return classifyMessage(err.Error())
}

func classifyStatus(status int, code string) (ErrorKind, bool) {
	switch {
	case status == http.StatusTooManyRequests:
		return KindRateLimit, true
	case strings.EqualFold(code, "RESOURCE_EXHAUSTED"):
		return KindRateLimit, true
	case status == http.StatusRequestTimeout:
		return KindTransient, true
	case status >= 500 && status <= 599:
		// Includes Anthropic's non-standard 529 overloaded.
		return KindTransient, true
	default:
		return "", false
	}
}

var rateLimitMarkers = []string{
	"rate limit",
	"rate_limit",
	"ratelimit",
	"quota",
	"resource exhausted",
	"resource_exhausted",
	"resourceexhausted",
	"too many requests",
}

var transientMarkers = []string{
	"service unavailable",
	"temporarily unavailable",
	"code = unavailable",
	"internal server error",
	"bad gateway",
	"gateway timeout",
	"timeout",
	"timed out",
	"deadline exceeded",
	"deadline_exceeded",
	"overloaded",
	"connection reset",
	"connection refused",
	"temporary failure",
}

// Status codes count only as whole numbers, so "4290 tokens" or
// "max_tokens 15000" stay fatal.
var (
	rateLimitCode = regexp.MustCompile(`\b429\b`)
	transientCode = regexp.MustCompile(`\b(?:500|502|503|504|529)\b`)
)

func classifyMessage(msg string) ErrorKind {
	if rateLimitCode.MatchString(msg) || containsAny(msg, rateLimitMarkers...) {
		return KindRateLimit
	}
	if transientCode.MatchString(msg) || containsAny(msg, transientMarkers...) {
		return KindTransient
	}
	return KindFatal
}

// containsAny checks if s contains any of the substrings (case-insensitive).
func containsAny(s string, substrs ...string) bool {
	lower := strings.ToLower(s)
	for _, sub := range substrs {
		if strings.Contains(lower, sub) {
			return true
		}
	}
	return false
}
