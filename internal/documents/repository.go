package documents

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/pkg/repository"
	"github.com/preclear-labs/preclear/pkg/storage"
)

const documentColumns = `id, shipment_id, shipper_id, document_type, filename, content_type, size_bytes, storage_key, uploaded_by, uploaded_at`

type repo struct {
	db      *sql.DB
	storage storage.System
	logger  *slog.Logger
}

// New creates a document repository implementing the System interface.
func New(db *sql.DB, store storage.System, logger *slog.Logger) System {
	return &repo{
		db:      db,
		storage: store,
		logger:  logger.With("system", "documents"),
	}
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Document, error) {
	id := uuid.New()
	key := storage.ShipmentKey(
		cmd.ShipperID.String(),
		cmd.ShipmentID.String(),
		sanitizeFilename(cmd.Filename),
	)

	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := fmt.Sprintf(`
		INSERT INTO shipment_documents(id, shipment_id, shipper_id, document_type, filename, content_type, size_bytes, storage_key, uploaded_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING %s`, documentColumns)

	insertArgs := []any{
		id,
		cmd.ShipmentID,
		cmd.ShipperID,
		cmd.DocumentType,
		cmd.Filename,
		cmd.ContentType,
		int64(len(cmd.Data)),
		key,
		cmd.UploadedBy,
	}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Document, error) {
		return repository.QueryOne(ctx, tx, q, insertArgs, scanDocument)
	})

	if err != nil {
		if delErr := r.storage.Delete(ctx, key); delErr != nil {
			r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info(
		"document created",
		"id", d.ID,
		"shipment_id", d.ShipmentID,
		"filename", d.Filename,
	)
	return &d, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	q := fmt.Sprintf(`SELECT %s FROM shipment_documents WHERE id = $1`, documentColumns)

	d, err := repository.QueryOne(ctx, r.db, q, []any{id}, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

// ListByShipment returns a shipment's documents ordered by upload time,
// with ID as a tiebreaker so repeated reads see a stable order.
func (r *repo) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]Document, error) {
	q := fmt.Sprintf(`
		SELECT %s FROM shipment_documents
		WHERE shipment_id = $1
		ORDER BY uploaded_at, id`, documentColumns)

	docs, err := repository.QueryMany(ctx, r.db, q, []any{shipmentID}, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query shipment documents: %w", err)
	}
	return docs, nil
}

func (r *repo) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	reader, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document blob: %w", err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read document blob: %w", err)
	}
	return data, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if err := repository.ExecExpectOne(
			ctx, tx,
			"DELETE FROM shipment_documents WHERE id = $1",
			id,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})

	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if delErr := r.storage.Delete(ctx, doc.StorageKey); delErr != nil {
		r.logger.Warn(
			"blob delete failed after DB delete",
			"key", doc.StorageKey,
			"error", delErr,
		)
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

// DeleteByShipment removes a shipment's rows and its blob prefix, returning
// the number of blobs removed.
func (r *repo) DeleteByShipment(ctx context.Context, shipmentID, shipperID uuid.UUID) (int, error) {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		if _, err := tx.ExecContext(
			ctx,
			"DELETE FROM shipment_documents WHERE shipment_id = $1",
			shipmentID,
		); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	if err != nil {
		return 0, fmt.Errorf("delete shipment documents: %w", err)
	}

	prefix := storage.ShipmentPrefix(shipperID.String(), shipmentID.String())
	count, err := r.storage.DeleteByPrefix(ctx, prefix)
	if err != nil {
		return 0, fmt.Errorf("delete shipment blobs: %w", err)
	}

	r.logger.Info(
		"shipment documents deleted",
		"shipment_id", shipmentID,
		"blobs_removed", count,
	)
	return count, nil
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" {
		name = "document"
	}
	return url.PathEscape(name)
}

func scanDocument(s repository.Scanner) (Document, error) {
	var d Document
	err := s.Scan(
		&d.ID,
		&d.ShipmentID,
		&d.ShipperID,
		&d.DocumentType,
		&d.Filename,
		&d.ContentType,
		&d.SizeBytes,
		&d.StorageKey,
		&d.UploadedBy,
		&d.UploadedAt,
	)
	return d, err
}
