// Package storage provides blob storage operations with Azure Blob Storage
// and Amazon S3 implementations.
package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/preclear-labs/preclear/pkg/lifecycle"
)

// System manages blob storage operations and lifecycle coordination.
type System interface {
	// Start registers a startup hook that initializes the storage container.
	Start(lc *lifecycle.Coordinator) error
	// Upload streams data to a blob at the given key with the specified content type.
	Upload(ctx context.Context, key string, reader io.Reader, contentType string) error
	// Download returns a stream for the blob at the given key. The caller must close the reader.
	// Returns ErrNotFound if the blob does not exist.
	Download(ctx context.Context, key string) (io.ReadCloser, error)
	// Delete removes the blob at the given key. Returns ErrNotFound if the blob does not exist.
	Delete(ctx context.Context, key string) error
	// DeleteByPrefix removes every blob under the given key prefix and
	// returns the number of blobs deleted.
	DeleteByPrefix(ctx context.Context, prefix string) (int, error)
	// Exists reports whether a blob exists at the given key.
	Exists(ctx context.Context, key string) (bool, error)
}

// New creates a storage system for the configured provider.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	switch cfg.Provider {
	case ProviderAzure:
		return newAzure(cfg, logger)
	case ProviderS3:
		return newS3(cfg, logger)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// ShipmentKey builds the blob key for a shipment document following the
// shippers/{shipper}/shipments/{shipment}/{filename} layout.
func ShipmentKey(shipperID, shipmentID, filename string) string {
	return fmt.Sprintf("shippers/%s/shipments/%s/%s", shipperID, shipmentID, filename)
}

// ShipmentPrefix builds the key prefix covering all documents of a shipment.
func ShipmentPrefix(shipperID, shipmentID string) string {
	return fmt.Sprintf("shippers/%s/shipments/%s/", shipperID, shipmentID)
}

func validateKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	if strings.Contains(key, "..") {
		return ErrInvalidKey
	}
	return nil
}
