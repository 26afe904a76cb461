// Package retry implements the bounded-attempt, exponential-backoff
// helper every outbound HTTP/SMTP/SQL call subject to the transient
// retry policy wraps itself in (spec.md §5, §7.2).
package retry

import (
	"context"
	"time"
)

// ClassifyFunc reports whether an error is transient and worth
// retrying. Classification is explicit, never exception-type-based
// (spec.md §9 design note).
type ClassifyFunc func(error) bool

// AlwaysTransient treats every non-nil error as retryable.
func AlwaysTransient(error) bool { return true }

// Do calls fn up to attempts times. Between attempts it sleeps
// baseDelay * 2^(attempt-1). It stops early and returns the last error
// unretried once classify reports the error is not transient.
func Do(ctx context.Context, attempts int, baseDelay time.Duration, classify ClassifyFunc, fn func(ctx context.Context) error) error {
	if attempts < 1 {
		attempts = 1
	}
	if classify == nil {
		classify = AlwaysTransient
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !classify(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := baseDelay * time.Duration(1<<(attempt-1))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
