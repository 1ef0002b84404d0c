package analyzer

import (
	"context"
	"errors"
)

// Provider failure classification. Transient failures are retried with
// bounded backoff; everything else surfaces once as a per-document issue.
var (
	ErrTimeout  = errors.New("field extraction timed out")
	ErrProvider = errors.New("field extraction provider error")
)

// IsTransient reports whether a provider failure is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
