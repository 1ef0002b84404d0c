package approvals

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/internal/events"
	"github.com/preclear-labs/preclear/pkg/repository"
)

const approvalColumns = `shipment_id, shipper_approved, shipper_approved_at, broker_approved, broker_approved_at, token, token_issued_at`

type repo struct {
	db     *sql.DB
	events events.Emitter
	logger *slog.Logger
}

// New creates an approval repository implementing the System interface.
func New(db *sql.DB, emitter events.Emitter, logger *slog.Logger) System {
	return &repo{
		db:     db,
		events: emitter,
		logger: logger.With("system", "approvals"),
	}
}

func (r *repo) Get(ctx context.Context, shipmentID uuid.UUID) (*ApprovalState, error) {
	q := fmt.Sprintf(`SELECT %s FROM shipment_approvals WHERE shipment_id = $1`, approvalColumns)

	a, err := repository.QueryOne(ctx, r.db, q, []any{shipmentID}, scanApproval)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &ApprovalState{ShipmentID: shipmentID}, nil
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &a, nil
}

// Approve records one party's approval. The upsert keeps an already-set
// flag and its timestamp, so re-approval is a no-op.
func (r *repo) Approve(ctx context.Context, shipmentID uuid.UUID, party Party) (*ApprovalState, error) {
	var q string
	switch party {
	case PartyShipper:
		q = fmt.Sprintf(`
			INSERT INTO shipment_approvals(shipment_id, shipper_approved, shipper_approved_at)
			VALUES ($1, TRUE, now())
			ON CONFLICT (shipment_id) DO UPDATE SET
				shipper_approved = TRUE,
				shipper_approved_at = COALESCE(shipment_approvals.shipper_approved_at, now())
			RETURNING %s`, approvalColumns)
	case PartyBroker:
		q = fmt.Sprintf(`
			INSERT INTO shipment_approvals(shipment_id, broker_approved, broker_approved_at)
			VALUES ($1, TRUE, now())
			ON CONFLICT (shipment_id) DO UPDATE SET
				broker_approved = TRUE,
				broker_approved_at = COALESCE(shipment_approvals.broker_approved_at, now())
			RETURNING %s`, approvalColumns)
	default:
		return nil, fmt.Errorf("unknown approval party %q", party)
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (ApprovalState, error) {
		return repository.QueryOne(ctx, tx, q, []any{shipmentID}, scanApproval)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.InfoContext(
		ctx, "approval recorded",
		"shipment_id", shipmentID,
		"party", party,
	)
	return &a, nil
}

// GenerateTokenIfBothApprovalsComplete issues the approval token. The mint
// is a single conditional write; the WHERE clause guarantees only one of any
// number of concurrent callers mints, and everyone else reads the winner's
// token back.
func (r *repo) GenerateTokenIfBothApprovalsComplete(ctx context.Context, shipmentID uuid.UUID) (bool, string, error) {
	candidate := newToken()

	minted, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (bool, error) {
		res, err := tx.ExecContext(ctx, `
			UPDATE shipment_approvals
			SET token = $2, token_issued_at = now()
			WHERE shipment_id = $1
			  AND shipper_approved AND broker_approved
			  AND token IS NULL`,
			shipmentID, candidate,
		)
		if err != nil {
			return false, err
		}

		rows, err := res.RowsAffected()
		if err != nil {
			return false, err
		}
		return rows == 1, nil
	})
	if err != nil {
		return false, "", fmt.Errorf("mint approval token: %w", err)
	}

	state, err := r.Get(ctx, shipmentID)
	if err != nil {
		return false, "", err
	}

	if !state.BothComplete() || !state.TokenIssued() {
		return false, "", nil
	}

	if minted {
		r.events.Emit(ctx, events.TokenIssued(shipmentID, *state.Token))
		r.logger.InfoContext(ctx, "approval token issued", "shipment_id", shipmentID)
	}

	return true, *state.Token, nil
}

func scanApproval(s repository.Scanner) (ApprovalState, error) {
	var a ApprovalState
	err := s.Scan(
		&a.ShipmentID,
		&a.ShipperApproved,
		&a.ShipperApprovedAt,
		&a.BrokerApproved,
		&a.BrokerApprovedAt,
		&a.Token,
		&a.TokenIssuedAt,
	)
	return a, err
}
