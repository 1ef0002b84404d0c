// Package requests implements broker-initiated document requests and their
// fulfillment when a shipper uploads a matching document.
package requests

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestStatus is a one-way progression: pending → fulfilled. A fulfilled
// request never reverts.
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusFulfilled RequestStatus = "fulfilled"
)

// DocumentRequest is a broker's ask for specific named documents on a
// shipment. RequestedNames is immutable after creation.
type DocumentRequest struct {
	ID             uuid.UUID     `json:"id"`
	ShipmentID     uuid.UUID     `json:"shipment_id"`
	BrokerID       uuid.UUID     `json:"broker_id"`
	RequestedNames []string      `json:"requested_names"`
	Message        string        `json:"message,omitempty"`
	Status         RequestStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	FulfilledAt    *time.Time    `json:"fulfilled_at,omitempty"`
}

// CreateCommand carries the data needed to open a document request.
type CreateCommand struct {
	ShipmentID     uuid.UUID
	BrokerID       uuid.UUID
	RequestedNames []string
	Message        string
}

// Fulfill transitions a pending request to fulfilled at the given time. It
// reports false when the request is already fulfilled; the transition never
// reverts.
func (r DocumentRequest) Fulfill(at time.Time) (DocumentRequest, bool) {
	if r.Status == StatusFulfilled {
		return r, false
	}
	r.Status = StatusFulfilled
	r.FulfilledAt = &at
	return r, true
}

// Matches reports whether an uploaded document name satisfies this request.
// Matching is case-insensitive exact; uploading any one of several requested
// names fulfills the whole request.
func (r DocumentRequest) Matches(documentName string) bool {
	for _, name := range r.RequestedNames {
		if strings.EqualFold(name, documentName) {
			return true
		}
	}
	return false
}
