package apiclient

import (
	"fmt"
	"time"
)

// APIError is the generic failure for a request that exhausted its retry
// budget or got a non-retryable response. It carries enough context to
// correlate a failure with the per-attempt log lines.
type APIError struct {
	Service    string
	StatusCode int
	RequestID  string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error (status %d, request %s): %s",
		e.Service, e.StatusCode, e.RequestID, e.Message)
}

// AuthError means the service rejected our credentials (HTTP 401). It is
// terminal for the request: retrying with the same credential cannot succeed.
type AuthError struct {
	Service string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed", e.Service)
}

// RateLimitError means the service throttled us (HTTP 429). RetryAfter is the
// server-provided delay; the client waits it out without consuming a retry
// attempt.
type RateLimitError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s, retry after %s", e.Service, e.RetryAfter)
}

// TimeoutError means the transport deadline was exceeded on the final attempt.
type TimeoutError struct {
	Service string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.Service, e.Timeout)
}
