package flow

import (
	"context"
	"log"
	"time"
)

// retryPolicy bounds automatic retries for transient failures in generation
// and posting steps. Security gate failures are never routed through here.
type retryPolicy struct {
	MaxRetries   int
	InitialDelay time.Duration
}

func defaultRetryPolicy() retryPolicy {
	return retryPolicy{MaxRetries: 2, InitialDelay: 10 * time.Second}
}

// do runs fn, retrying with doubling delays until the retry budget or the
// context is exhausted.
func (p retryPolicy) do(ctx context.Context, op string, fn func() error) error {
	delay := p.InitialDelay
	var lastErr error

	for attempt := 0; attempt <= p.MaxRetries; attempt++ {
		if attempt > 0 {
			log.Printf("Retrying %s (attempt %d/%d) after %v: %v", op, attempt+1, p.MaxRetries+1, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
			delay *= 2
		}

		if lastErr = fn(); lastErr == nil {
			return nil
		}
	}

	return lastErr
}
