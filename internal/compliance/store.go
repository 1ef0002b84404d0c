package compliance

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"
	"time"
)

// Store holds the process-wide dataset snapshot. Readers always observe one
// complete snapshot: Initialize builds the replacement fully before a single
// pointer swap publishes it, and a failed load leaves the prior snapshot in
// effect.
type Store struct {
	current atomic.Pointer[Dataset]
	logger  *slog.Logger
}

// NewStore creates an empty Store. Snapshot returns ErrUninitialized until
// the first successful Initialize.
func NewStore(logger *slog.Logger) *Store {
	return &Store{
		logger: logger.With("system", "compliance"),
	}
}

// Initialize reads, validates, and parses the ruleset at source, then
// atomically swaps it into visibility. Any failure returns ErrLoadFailed
// and keeps the prior snapshot untouched.
func (s *Store) Initialize(ctx context.Context, source string) error {
	data, err := os.ReadFile(source)
	if err != nil {
		return fmt.Errorf("%w: read %s: %w", ErrLoadFailed, source, err)
	}

	ds, err := parseDataset(data)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrLoadFailed, source, err)
	}

	ds.Source = source
	ds.LoadedAt = time.Now().UTC()

	s.current.Store(ds)
	s.logger.InfoContext(
		ctx, "compliance dataset loaded",
		"source", source,
		"rules", len(ds.Rules),
	)

	return nil
}

// Snapshot returns the most recently completed dataset load.
func (s *Store) Snapshot() (*Dataset, error) {
	ds := s.current.Load()
	if ds == nil {
		return nil, ErrUninitialized
	}
	return ds, nil
}
