package validation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/preclear-labs/preclear/internal/events"
)

// System defines the public contract for the validation engine.
type System interface {
	ValidateShipmentDocuments(ctx context.Context, shipmentID uuid.UUID) (*Result, error)
	ExtractShipmentDocuments(ctx context.Context, shipmentID, shipperID uuid.UUID) ([]ExtractedDocument, error)
	GetValidationResult(ctx context.Context, shipmentID uuid.UUID) (*Result, error)
	SaveValidationResult(ctx context.Context, result *Result) error
}

type engine struct {
	rt    *Runtime
	group singleflight.Group
}

// NewEngine creates the validation engine over a configured Runtime.
func NewEngine(rt *Runtime) System {
	return &engine{rt: rt}
}

// ValidateShipmentDocuments runs the pipeline for a shipment. At most one
// run per shipment id is in flight at a time; a caller arriving while a run
// is active waits for and shares that run's result. Different shipments
// proceed fully in parallel. The in-flight run executes under the first
// caller's context.
func (e *engine) ValidateShipmentDocuments(ctx context.Context, shipmentID uuid.UUID) (*Result, error) {
	val, err, shared := e.group.Do(shipmentID.String(), func() (any, error) {
		return e.run(ctx, shipmentID)
	})
	if err != nil {
		return nil, err
	}

	if shared {
		e.rt.Logger.InfoContext(
			ctx, "validation run shared",
			"shipment_id", shipmentID,
		)
	}

	return val.(*Result), nil
}

// run executes the pipeline and saves the result. A cancelled run saves
// nothing; the prior cached result stays the answer until a run completes.
func (e *engine) run(ctx context.Context, shipmentID uuid.UUID) (*Result, error) {
	// Surface an uninitialized dataset as a distinct error before any work
	// happens, so callers can trigger initialization. The store only moves
	// from uninitialized to loaded, never back.
	if _, err := e.rt.Dataset.Snapshot(); err != nil {
		return nil, err
	}

	result, err := Execute(ctx, e.rt, shipmentID)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if err := e.rt.Results.Save(ctx, result); err != nil {
		return nil, err
	}

	e.rt.Events.Emit(ctx, events.ValidationCompleted(shipmentID, string(result.Status)))

	e.rt.Logger.InfoContext(
		ctx, "validation run complete",
		"shipment_id", shipmentID,
		"status", result.Status,
		"score", result.Score,
	)
	return result, nil
}

// ExtractShipmentDocuments is a read-only projection for preview and
// debugging. It runs content and field extraction without rule matching and
// never touches the cached result.
func (e *engine) ExtractShipmentDocuments(ctx context.Context, shipmentID, shipperID uuid.UUID) ([]ExtractedDocument, error) {
	docs, err := e.rt.Documents.ListByShipment(ctx, shipmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadDocuments, err)
	}

	scoped := docs[:0:0]
	for _, doc := range docs {
		if doc.ShipperID == shipperID {
			scoped = append(scoped, doc)
		}
	}

	extracted := make([]ExtractedDocument, len(scoped))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(e.rt, len(scoped)))

	for i := range scoped {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			doc := scoped[i]
			record := ExtractedDocument{
				ShipmentID:   doc.ShipmentID,
				DocumentID:   doc.ID,
				DocumentType: doc.DocumentType,
				Fields:       map[string]string{},
			}

			data, err := e.rt.Documents.Download(gctx, doc.ID)
			if err != nil {
				extracted[i] = record
				return nil
			}

			content, err := e.rt.Extractor.Extract(data, doc.ContentType)
			if err != nil {
				extracted[i] = record
				return nil
			}
			record.Text = content.Text

			fields, err := e.rt.Fields.ExtractFields(gctx, content.Text, doc.DocumentType)
			if err != nil {
				record.Fields = mergeFields(content.FieldCandidates, nil)
			} else {
				record.Fields = mergeFields(content.FieldCandidates, fields)
			}

			extracted[i] = record
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return extracted, nil
}

func (e *engine) GetValidationResult(ctx context.Context, shipmentID uuid.UUID) (*Result, error) {
	return e.rt.Results.Get(ctx, shipmentID)
}

func (e *engine) SaveValidationResult(ctx context.Context, result *Result) error {
	return e.rt.Results.Save(ctx, result)
}
