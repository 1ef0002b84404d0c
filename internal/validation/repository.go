package validation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/pkg/repository"
)

// ResultStore is the cache contract for validation results. Get returns
// (nil, nil) when no run has ever completed for the shipment; Save
// overwrites the prior result.
type ResultStore interface {
	Get(ctx context.Context, shipmentID uuid.UUID) (*Result, error)
	Save(ctx context.Context, result *Result) error
}

type resultRepo struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewResultStore creates a Postgres-backed ResultStore. Issues and document
// outcomes are stored as JSONB alongside the derived status columns.
func NewResultStore(db *sql.DB, logger *slog.Logger) ResultStore {
	return &resultRepo{
		db:     db,
		logger: logger.With("system", "validation"),
	}
}

func (r *resultRepo) Get(ctx context.Context, shipmentID uuid.UUID) (*Result, error) {
	q := `
		SELECT shipment_id, status, score, issues, documents, computed_at
		FROM validation_results
		WHERE shipment_id = $1`

	result, err := repository.QueryOne(ctx, r.db, q, []any{shipmentID}, scanResult)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query validation result: %w", err)
	}
	return &result, nil
}

func (r *resultRepo) Save(ctx context.Context, result *Result) error {
	issues, err := json.Marshal(result.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}

	outcomes, err := json.Marshal(result.Documents)
	if err != nil {
		return fmt.Errorf("encode document outcomes: %w", err)
	}

	q := `
		INSERT INTO validation_results(shipment_id, status, score, issues, documents, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (shipment_id) DO UPDATE SET
			status = EXCLUDED.status,
			score = EXCLUDED.score,
			issues = EXCLUDED.issues,
			documents = EXCLUDED.documents,
			computed_at = EXCLUDED.computed_at`

	args := []any{
		result.ShipmentID,
		string(result.Status),
		result.Score,
		issues,
		outcomes,
		result.ComputedAt,
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		_, err := tx.ExecContext(ctx, q, args...)
		return struct{}{}, err
	})
	if err != nil {
		return fmt.Errorf("save validation result: %w", err)
	}

	r.logger.Info(
		"validation result saved",
		"shipment_id", result.ShipmentID,
		"status", result.Status,
	)
	return nil
}

func scanResult(s repository.Scanner) (Result, error) {
	var (
		result   Result
		status   string
		issues   []byte
		outcomes []byte
	)

	if err := s.Scan(
		&result.ShipmentID,
		&status,
		&result.Score,
		&issues,
		&outcomes,
		&result.ComputedAt,
	); err != nil {
		return result, err
	}

	result.Status = Status(status)

	if err := json.Unmarshal(issues, &result.Issues); err != nil {
		return result, fmt.Errorf("decode issues: %w", err)
	}
	if err := json.Unmarshal(outcomes, &result.Documents); err != nil {
		return result, fmt.Errorf("decode document outcomes: %w", err)
	}

	return result, nil
}
