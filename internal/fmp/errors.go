package fmp

import (
	"errors"
	"fmt"
)

// RateLimitError means the provider refused the call because the daily
// quota is exhausted. It is signalled either by HTTP 429 or by a
// "Limit Reach" message in an otherwise successful response.
type RateLimitError struct {
	Endpoint   string
	StatusCode int
	Message    string
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("fmp rate limit reached on %s (status %d): %s", e.Endpoint, e.StatusCode, e.Message)
}

// TransientError covers network failures, unexpected statuses and
// undecodable payloads. The caller may retry on a later tick.
type TransientError struct {
	Endpoint   string
	StatusCode int
	Err        error
}

func (e *TransientError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fmp request to %s failed (status %d): %v", e.Endpoint, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fmp request to %s failed: %v", e.Endpoint, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsRateLimit reports whether err is or wraps a *RateLimitError
func IsRateLimit(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}
