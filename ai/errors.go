package ai

import "strings"

// ErrorClass represents whether a completion call should be retried or not.
type ErrorClass int

const (
	// ErrorClassRetryable indicates the call should be retried (transient errors).
	ErrorClassRetryable ErrorClass = iota
	// ErrorClassFatal indicates the call should not be retried (permanent errors).
	ErrorClassFatal
	// ErrorClassUnknown indicates the error type cannot be determined.
	ErrorClassUnknown
)

// String returns a human-readable name for the error class.
func (ec ErrorClass) String() string {
	switch ec {
	case ErrorClassRetryable:
		return "retryable"
	case ErrorClassFatal:
		return "fatal"
	case ErrorClassUnknown:
		return "unknown"
	default:
		return "unknown"
	}
}

// ClassifyCompletionError classifies completion API errors into retryable vs
// fatal categories.
//
// Fatal errors (non-retryable):
// - Authentication errors (invalid key, 401/403)
// - Invalid request errors (bad model, context length, 400)
//
// Retryable errors (transient):
// - Rate limiting (429)
// - Server errors (500, 502, 503, 504)
// - Network errors (timeouts, connection reset, DNS failures)
//
// Unknown errors don't match known patterns and are treated as retryable so a
// transient failure is never dropped on the floor.
func ClassifyCompletionError(err error) ErrorClass {
	if err == nil {
		return ErrorClassUnknown
	}
	lower := strings.ToLower(err.Error())

	if strings.Contains(lower, "429") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "500") ||
		strings.Contains(lower, "502") ||
		strings.Contains(lower, "503") ||
		strings.Contains(lower, "504") ||
		strings.Contains(lower, "internal server error") ||
		strings.Contains(lower, "bad gateway") ||
		strings.Contains(lower, "service unavailable") ||
		strings.Contains(lower, "gateway timeout") ||
		strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "deadline exceeded") ||
		strings.Contains(lower, "connection reset") ||
		strings.Contains(lower, "connection refused") ||
		strings.Contains(lower, "no such host") ||
		strings.Contains(lower, "eof") {
		return ErrorClassRetryable
	}

	if strings.Contains(lower, "401") ||
		strings.Contains(lower, "403") ||
		strings.Contains(lower, "invalid api key") ||
		strings.Contains(lower, "incorrect api key") ||
		strings.Contains(lower, "400") ||
		strings.Contains(lower, "invalid request") ||
		strings.Contains(lower, "context length") ||
		strings.Contains(lower, "model not found") {
		return ErrorClassFatal
	}

	return ErrorClassUnknown
}
