package approvals

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for dual-approval operations.
type System interface {
	Get(ctx context.Context, shipmentID uuid.UUID) (*ApprovalState, error)
	Approve(ctx context.Context, shipmentID uuid.UUID, party Party) (*ApprovalState, error)

	// GenerateTokenIfBothApprovalsComplete returns (false, "") unless both
	// approvals are complete. The first successful call mints the token;
	// later calls return the same token. Two concurrent callers observing
	// "both complete" for the first time never mint distinct tokens.
	GenerateTokenIfBothApprovalsComplete(ctx context.Context, shipmentID uuid.UUID) (bool, string, error)
}
