package embeddings

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
)

// Retrying wraps a provider with capped exponential backoff on transient
// failures. Malformed output is never retried.
type Retrying struct {
	inner    Provider
	attempts uint64
}

func NewRetrying(inner Provider, attempts int) *Retrying {
	if attempts < 1 {
		attempts = 1
	}
	return &Retrying{inner: inner, attempts: uint64(attempts)}
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float32, error) {
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewExponential(200*time.Millisecond))
	backoff = retry.WithMaxRetries(r.attempts-1, backoff)

	var embedding []float32
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var err error
		embedding, err = r.inner.Embed(ctx, text)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return embedding, nil
}
