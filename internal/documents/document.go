// Package documents implements the shipment document domain. It provides
// types, data access, and blob storage integration for documents submitted
// against a shipment.
package documents

import (
	"time"

	"github.com/google/uuid"
)

// Document represents a file submitted for a shipment, with its metadata
// and blob storage reference.
type Document struct {
	ID           uuid.UUID `json:"id"`
	ShipmentID   uuid.UUID `json:"shipment_id"`
	ShipperID    uuid.UUID `json:"shipper_id"`
	DocumentType string    `json:"document_type"`
	Filename     string    `json:"filename"`
	ContentType  string    `json:"content_type"`
	SizeBytes    int64     `json:"size_bytes"`
	StorageKey   string    `json:"storage_key"`
	UploadedBy   string    `json:"uploaded_by"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// CreateCommand carries the data needed to upload and register a document.
// Data holds the raw file bytes.
type CreateCommand struct {
	ShipmentID   uuid.UUID
	ShipperID    uuid.UUID
	DocumentType string
	Filename     string
	ContentType  string
	UploadedBy   string
	Data         []byte
}
