// Package events defines the semantic events the pipeline emits for the
// notification collaborator. Emission is fire-and-forget: the pipeline never
// blocks on or fails because of a notification.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Kind identifies a semantic event type.
type Kind string

// Event kinds emitted by the pipeline.
const (
	KindValidationCompleted Kind = "validation.completed"
	KindTokenIssued         Kind = "token.issued"
	KindRequestFulfilled    Kind = "request.fulfilled"
)

// Event is a discrete, typed occurrence the notification collaborator may
// turn into a user-facing message.
type Event struct {
	Kind       Kind
	ShipmentID uuid.UUID
	// Subject identifies the entity the event concerns beyond the shipment:
	// a validation status, a token, or a request ID.
	Subject    string
	OccurredAt time.Time
}

// Emitter receives pipeline events. Implementations must not block.
type Emitter interface {
	Emit(ctx context.Context, e Event)
}

// ValidationCompleted builds a validation.completed event.
func ValidationCompleted(shipmentID uuid.UUID, status string) Event {
	return Event{
		Kind:       KindValidationCompleted,
		ShipmentID: shipmentID,
		Subject:    status,
		OccurredAt: time.Now().UTC(),
	}
}

// TokenIssued builds a token.issued event.
func TokenIssued(shipmentID uuid.UUID, token string) Event {
	return Event{
		Kind:       KindTokenIssued,
		ShipmentID: shipmentID,
		Subject:    token,
		OccurredAt: time.Now().UTC(),
	}
}

// RequestFulfilled builds a request.fulfilled event.
func RequestFulfilled(shipmentID, requestID uuid.UUID) Event {
	return Event{
		Kind:       KindRequestFulfilled,
		ShipmentID: shipmentID,
		Subject:    requestID.String(),
		OccurredAt: time.Now().UTC(),
	}
}

type logEmitter struct {
	logger *slog.Logger
}

// NewLogEmitter returns an Emitter that records events to the structured log.
// It stands in for the notification delivery collaborator.
func NewLogEmitter(logger *slog.Logger) Emitter {
	return &logEmitter{logger: logger.With("system", "events")}
}

func (l *logEmitter) Emit(ctx context.Context, e Event) {
	l.logger.InfoContext(
		ctx, "event emitted",
		"kind", e.Kind,
		"shipment_id", e.ShipmentID,
		"subject", e.Subject,
	)
}
