package requests

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/internal/events"
	"github.com/preclear-labs/preclear/pkg/repository"
)

const requestColumns = `id, shipment_id, broker_id, requested_names, message, status, created_at, fulfilled_at`

type repo struct {
	db     *sql.DB
	events events.Emitter
	logger *slog.Logger
}

// New creates a document request repository implementing the System interface.
func New(db *sql.DB, emitter events.Emitter, logger *slog.Logger) System {
	return &repo{
		db:     db,
		events: emitter,
		logger: logger.With("system", "requests"),
	}
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*DocumentRequest, error) {
	if len(cmd.RequestedNames) == 0 {
		return nil, ErrNoNames
	}

	names, err := json.Marshal(cmd.RequestedNames)
	if err != nil {
		return nil, fmt.Errorf("encode requested names: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO document_requests(id, shipment_id, broker_id, requested_names, message, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING %s`, requestColumns)

	args := []any{
		uuid.New(),
		cmd.ShipmentID,
		cmd.BrokerID,
		names,
		cmd.Message,
		string(StatusPending),
	}

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (DocumentRequest, error) {
		return repository.QueryOne(ctx, tx, q, args, scanRequest)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(
		ctx, "document request created",
		"id", req.ID,
		"shipment_id", req.ShipmentID,
		"names", req.RequestedNames,
	)
	return &req, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*DocumentRequest, error) {
	q := fmt.Sprintf(`SELECT %s FROM document_requests WHERE id = $1`, requestColumns)

	req, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanRequest)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &req, nil
}

func (r *repo) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]DocumentRequest, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM document_requests
		WHERE shipment_id = $1
		ORDER BY created_at, id`, requestColumns)

	reqs, err := repository.QueryMany(ctx, r.db, q, []any{shipmentID}, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("query document requests: %w", err)
	}
	return reqs, nil
}

// FulfillOnUpload transitions matching pending requests to fulfilled. The
// status guard in the UPDATE keeps the transition one-way even under
// concurrent uploads.
func (r *repo) FulfillOnUpload(ctx context.Context, shipmentID uuid.UUID, documentName string) ([]DocumentRequest, error) {
	open, err := r.listPending(ctx, shipmentID)
	if err != nil {
		return nil, err
	}

	var fulfilled []DocumentRequest
	for _, req := range open {
		if !req.Matches(documentName) {
			continue
		}

		updated, err := r.fulfill(ctx, req.ID)
		if err != nil {
			return nil, err
		}
		if updated == nil {
			continue
		}

		fulfilled = append(fulfilled, *updated)
		r.events.Emit(ctx, events.RequestFulfilled(shipmentID, updated.ID))
	}

	if len(fulfilled) > 0 {
		r.logger.InfoContext(
			ctx, "document requests fulfilled",
			"shipment_id", shipmentID,
			"document_name", documentName,
			"count", len(fulfilled),
		)
	}
	return fulfilled, nil
}

func (r *repo) listPending(ctx context.Context, shipmentID uuid.UUID) ([]DocumentRequest, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM document_requests
		WHERE shipment_id = $1 AND status = $2
		ORDER BY created_at, id`, requestColumns)

	reqs, err := repository.QueryMany(ctx, r.db, q, []any{shipmentID, string(StatusPending)}, scanRequest)
	if err != nil {
		return nil, fmt.Errorf("query pending requests: %w", err)
	}
	return reqs, nil
}

// fulfill returns nil without error when another caller already fulfilled
// the request.
func (r *repo) fulfill(ctx context.Context, id uuid.UUID) (*DocumentRequest, error) {
	q := fmt.Sprintf(`
		UPDATE document_requests
		SET status = $2, fulfilled_at = now()
		WHERE id = $1 AND status = $3
		RETURNING %s`, requestColumns)

	req, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (DocumentRequest, error) {
		return repository.QueryOne(ctx, tx, q, []any{id, string(StatusFulfilled), string(StatusPending)}, scanRequest)
	})
	if err != nil {
		mapped := repository.MapError(err, ErrNotFound, ErrDuplicate)
		if errors.Is(mapped, ErrNotFound) {
			return nil, nil
		}
		return nil, mapped
	}
	return &req, nil
}

func scanRequest(s repository.Scanner) (DocumentRequest, error) {
	var (
		req    DocumentRequest
		names  []byte
		status string
	)

	if err := s.Scan(
		&req.ID,
		&req.ShipmentID,
		&req.BrokerID,
		&names,
		&req.Message,
		&status,
		&req.CreatedAt,
		&req.FulfilledAt,
	); err != nil {
		return req, err
	}

	req.Status = RequestStatus(status)

	if err := json.Unmarshal(names, &req.RequestedNames); err != nil {
		return req, fmt.Errorf("decode requested names: %w", err)
	}
	return req, nil
}
