package documents

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for shipment document operations.
type System interface {
	Create(ctx context.Context, cmd CreateCommand) (*Document, error)
	Find(ctx context.Context, id uuid.UUID) (*Document, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]Document, error)
	Download(ctx context.Context, id uuid.UUID) ([]byte, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByShipment(ctx context.Context, shipmentID, shipperID uuid.UUID) (int, error)
}
