package analyzer

import (
	"context"
	"time"
)

type retrying struct {
	inner    FieldExtractor
	attempts int
	backoff  time.Duration
}

// NewRetrying wraps a FieldExtractor with bounded retry. Only transient
// failures are retried; backoff doubles between attempts. Non-transient
// provider errors surface immediately.
func NewRetrying(inner FieldExtractor, attempts int, backoff time.Duration) FieldExtractor {
	if attempts < 1 {
		attempts = 1
	}
	return &retrying{
		inner:    inner,
		attempts: attempts,
		backoff:  backoff,
	}
}

func (r *retrying) ExtractFields(ctx context.Context, content, documentType string) (map[string]string, error) {
	var lastErr error
	delay := r.backoff

	for attempt := 0; attempt < r.attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		fields, err := r.inner.ExtractFields(ctx, content, documentType)
		if err == nil {
			return fields, nil
		}
		if !IsTransient(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, lastErr
}
