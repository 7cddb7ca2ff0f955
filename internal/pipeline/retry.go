package pipeline

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/dgallion1/docchunk/internal/store"
)

const (
	MaxRetries  = 4
	backoffBase = 50 * time.Millisecond
	backoffCap  = 2 * time.Second
)

// IsRetryable checks if an error is worth retrying.
func IsRetryable(err error) bool {
	return errors.Is(err, store.ErrBusy)
}

// Backoff returns a duration for attempt n (0-indexed) with up to 50% jitter.
func Backoff(attempt int) time.Duration {
	base := backoffCap
	if attempt < 16 {
		base = min(backoffBase<<uint(attempt), backoffCap)
	}
	jitter := time.Duration(rand.Int64N(int64(base) / 2))
	return base + jitter
}

// retry calls fn until it succeeds, fails with a non-retryable error, or
// MaxRetries attempts have been made. onRetry is called before each wait.
func retry(ctx context.Context, fn func() error, onRetry func(attempt int, err error)) error {
	var err error
	for attempt := range MaxRetries {
		if err = fn(); err == nil || !IsRetryable(err) {
			return err
		}
		if attempt == MaxRetries-1 {
			break
		}
		if onRetry != nil {
			onRetry(attempt, err)
		}
		select {
		case <-time.After(Backoff(attempt)):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}
