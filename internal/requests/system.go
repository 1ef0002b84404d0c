package requests

import (
	"context"

	"github.com/google/uuid"
)

// System defines the public contract for document request tracking.
type System interface {
	Create(ctx context.Context, cmd CreateCommand) (*DocumentRequest, error)
	Find(ctx context.Context, id uuid.UUID) (*DocumentRequest, error)
	ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]DocumentRequest, error)

	// FulfillOnUpload marks every pending request on the shipment whose
	// requested names include the uploaded document name as fulfilled,
	// returning the requests it transitioned.
	FulfillOnUpload(ctx context.Context, shipmentID uuid.UUID, documentName string) ([]DocumentRequest, error)
}
