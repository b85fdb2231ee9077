package domain

import (
	"context"
	"errors"
	"time"
)

// Backoff is a bounded retry policy applied to repository calls that fail
// with ErrStorageUnavailable. It replaces ad hoc sleep loops at call sites.
type Backoff struct {
	// MaxAttempts is the total number of tries, including the first.
	MaxAttempts int

	// Delay is the wait before the second attempt; it doubles on each
	// further attempt up to MaxDelay.
	Delay    time.Duration
	MaxDelay time.Duration
}

// DefaultBackoff retries transient storage failures a handful of times over
// roughly a second.
func DefaultBackoff() Backoff {
	return Backoff{
		MaxAttempts: 5,
		Delay:       100 * time.Millisecond,
		MaxDelay:    2 * time.Second,
	}
}

// Retry runs fn until it succeeds, fails with a non-transient error, the
// policy is exhausted, or ctx is cancelled.
func Retry(ctx context.Context, b Backoff, fn func() error) error {
	attempts := b.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	delay := b.Delay
	var err error
	for i := 0; i < attempts; i++ {
		if err = fn(); err == nil || !errors.Is(err, ErrStorageUnavailable) {
			return err
		}
		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
		if b.MaxDelay > 0 && delay > b.MaxDelay {
			delay = b.MaxDelay
		}
	}
	return err
}
