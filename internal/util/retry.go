package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// maxRetryDelay caps the exponential backoff between attempts.
const maxRetryDelay = 30 * time.Second

type permanentError struct{ err error }

func (p permanentError) Error() string { return p.err.Error() }
func (p permanentError) Unwrap() error { return p.err }

// Permanent marks err as not worth retrying. Retry returns it unwrapped on
// the attempt that produced it.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanentError{err: err}
}

// Retry calls fn up to maxAttempts times, doubling the delay after each
// failure from baseDelay up to maxRetryDelay. fn receives the 1-based attempt
// number. Retry stops early on a Permanent error or when ctx is done; after
// the last failed attempt it returns that error annotated with the count.
func Retry(ctx context.Context, maxAttempts int, baseDelay time.Duration, fn func(attempt int) error) error {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	delay := baseDelay

	var err error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err = fn(attempt); err == nil {
			return nil
		}
		var perm permanentError
		if errors.As(err, &perm) {
			return perm.err
		}
		if attempt == maxAttempts {
			break
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		delay = min(delay*2, maxRetryDelay)
	}

	return fmt.Errorf("after %d attempts: %w", maxAttempts, err)
}
