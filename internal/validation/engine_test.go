package validation_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/internal/analyzer"
	"github.com/preclear-labs/preclear/internal/compliance"
	"github.com/preclear-labs/preclear/internal/documents"
	"github.com/preclear-labs/preclear/internal/events"
	"github.com/preclear-labs/preclear/internal/extraction"
	"github.com/preclear-labs/preclear/internal/validation"
)

const invoiceRuleset = `{
  "rules": [
    {"id": "INV-001", "document_type": "invoice", "required_fields": ["invoice_number"]}
  ]
}`

type stubDocuments struct {
	docs  []documents.Document
	blobs map[uuid.UUID][]byte
}

func (s *stubDocuments) Create(ctx context.Context, cmd documents.CreateCommand) (*documents.Document, error) {
	return nil, errors.New("not implemented")
}

func (s *stubDocuments) Find(ctx context.Context, id uuid.UUID) (*documents.Document, error) {
	for i := range s.docs {
		if s.docs[i].ID == id {
			return &s.docs[i], nil
		}
	}
	return nil, documents.ErrNotFound
}

func (s *stubDocuments) ListByShipment(ctx context.Context, shipmentID uuid.UUID) ([]documents.Document, error) {
	var matched []documents.Document
	for _, d := range s.docs {
		if d.ShipmentID == shipmentID {
			matched = append(matched, d)
		}
	}
	return matched, nil
}

func (s *stubDocuments) Download(ctx context.Context, id uuid.UUID) ([]byte, error) {
	data, ok := s.blobs[id]
	if !ok {
		return nil, documents.ErrNotFound
	}
	return data, nil
}

func (s *stubDocuments) Delete(ctx context.Context, id uuid.UUID) error {
	return errors.New("not implemented")
}

func (s *stubDocuments) DeleteByShipment(ctx context.Context, shipmentID, shipperID uuid.UUID) (int, error) {
	return 0, errors.New("not implemented")
}

type stubFields struct {
	calls atomic.Int32
	fn    func(ctx context.Context, content, documentType string) (map[string]string, error)
}

func (s *stubFields) ExtractFields(ctx context.Context, content, documentType string) (map[string]string, error) {
	s.calls.Add(1)
	return s.fn(ctx, content, documentType)
}

type memResults struct {
	mu    sync.Mutex
	saved map[uuid.UUID]*validation.Result
	saves int
}

func newMemResults() *memResults {
	return &memResults{saved: make(map[uuid.UUID]*validation.Result)}
}

func (m *memResults) Get(ctx context.Context, shipmentID uuid.UUID) (*validation.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[shipmentID], nil
}

func (m *memResults) Save(ctx context.Context, result *validation.Result) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved[result.ShipmentID] = result
	m.saves++
	return nil
}

func (m *memResults) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(ctx context.Context, e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recordingEmitter) kinds() []events.Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]events.Kind, len(r.events))
	for i, e := range r.events {
		kinds[i] = e.Kind
	}
	return kinds
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func loadedStore(t *testing.T, ruleset string) *compliance.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(ruleset), 0o644); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}
	store := compliance.NewStore(discardLogger())
	if err := store.Initialize(context.Background(), path); err != nil {
		t.Fatalf("initialize dataset: %v", err)
	}
	return store
}

type testHarness struct {
	engine  validation.System
	docs    *stubDocuments
	fields  *stubFields
	results *memResults
	emitter *recordingEmitter
}

func newHarness(t *testing.T, store *compliance.Store, docs *stubDocuments, fields *stubFields) *testHarness {
	t.Helper()

	results := newMemResults()
	emitter := &recordingEmitter{}

	engine := validation.NewEngine(&validation.Runtime{
		Documents: docs,
		Extractor: extraction.New(),
		Fields:    fields,
		Dataset:   store,
		Results:   results,
		Events:    emitter,
		Logger:    discardLogger(),
		Workers:   4,
	})

	return &testHarness{
		engine:  engine,
		docs:    docs,
		fields:  fields,
		results: results,
		emitter: emitter,
	}
}

func invoiceDoc(shipmentID uuid.UUID, uploadedAt time.Time) documents.Document {
	return documents.Document{
		ID:           uuid.New(),
		ShipmentID:   shipmentID,
		ShipperID:    uuid.New(),
		DocumentType: "invoice",
		Filename:     "invoice.txt",
		ContentType:  "text/plain",
		UploadedAt:   uploadedAt,
	}
}

func TestValidatePassesWithRequiredField(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{"invoice_number": "INV-1"}, nil
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusPassed {
		t.Errorf("status = %q, want passed", result.Status)
	}
	if len(result.Issues) != 0 {
		t.Errorf("issues = %v, want none", result.Issues)
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100", result.Score)
	}
	if len(result.Documents) != 1 || !result.Documents[0].RulesEvaluated {
		t.Errorf("document outcomes = %+v, want one with rules evaluated", result.Documents)
	}

	if h.results.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", h.results.saveCount())
	}
	if kinds := h.emitter.kinds(); len(kinds) != 1 || kinds[0] != events.KindValidationCompleted {
		t.Errorf("events = %v, want one validation.completed", kinds)
	}
}

func TestValidateFailsOnMissingRequiredField(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("no fields here")},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{}, nil
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusFailed {
		t.Errorf("status = %q, want failed", result.Status)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(result.Issues))
	}

	issue := result.Issues[0]
	if issue.Field != "invoice_number" {
		t.Errorf("field = %q, want invoice_number", issue.Field)
	}
	if issue.Severity != compliance.SeverityFailed {
		t.Errorf("severity = %q, want failed", issue.Severity)
	}
	if issue.Kind != validation.KindRuleViolation {
		t.Errorf("kind = %q, want rule_violation", issue.Kind)
	}
	if issue.DocumentID != doc.ID {
		t.Errorf("document id = %s, want %s", issue.DocumentID, doc.ID)
	}
}

func TestValidateNeedsReviewOnProviderTimeout(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return nil, fmt.Errorf("model call: %w", analyzer.ErrTimeout)
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusNeedsReview {
		t.Errorf("status = %q, want needs_review", result.Status)
	}
	if len(result.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(result.Issues))
	}
	if result.Issues[0].Kind != validation.KindProviderFailure {
		t.Errorf("kind = %q, want provider_failure", result.Issues[0].Kind)
	}
}

func TestValidateNeedsReviewOnUnsupportedFormat(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())
	doc.ContentType = "image/png"

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: {0x89, 0x50, 0x4e, 0x47}},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			t.Error("field extraction reached for unsupported format")
			return nil, nil
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusNeedsReview {
		t.Errorf("status = %q, want needs_review", result.Status)
	}
	if len(result.Issues) != 1 || result.Issues[0].Kind != validation.KindExtractionFailure {
		t.Errorf("issues = %+v, want one extraction_failure", result.Issues)
	}
}

func TestValidateNotRunWithZeroDocuments(t *testing.T) {
	shipmentID := uuid.New()

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{blobs: map[uuid.UUID][]byte{}},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			t.Error("field extraction reached for empty shipment")
			return nil, nil
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusNotRun {
		t.Errorf("status = %q, want not_run", result.Status)
	}
	if len(result.Issues) != 0 || len(result.Documents) != 0 {
		t.Errorf("result = %+v, want empty issues and outcomes", result)
	}
	if h.results.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", h.results.saveCount())
	}
}

func TestValidateUninitializedDatasetSavesNothing(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		compliance.NewStore(discardLogger()),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{}, nil
		}},
	)

	_, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if !errors.Is(err, compliance.ErrUninitialized) {
		t.Errorf("error = %v, want ErrUninitialized", err)
	}
	if h.results.saveCount() != 0 {
		t.Errorf("saves = %d, want 0", h.results.saveCount())
	}
}

func TestValidateIdempotentIssueOrdering(t *testing.T) {
	shipmentID := uuid.New()
	base := time.Now()

	first := invoiceDoc(shipmentID, base)
	second := invoiceDoc(shipmentID, base.Add(time.Minute))
	second.Filename = "invoice-2.txt"

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs: []documents.Document{first, second},
			blobs: map[uuid.UUID][]byte{
				first.ID:  []byte("one"),
				second.ID: []byte("two"),
			},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{}, nil
		}},
	)

	run := func() *validation.Result {
		t.Helper()
		result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
		if err != nil {
			t.Fatalf("validate: %v", err)
		}
		return result
	}

	a, b := run(), run()

	aIssues, _ := json.Marshal(a.Issues)
	bIssues, _ := json.Marshal(b.Issues)
	if string(aIssues) != string(bIssues) {
		t.Errorf("issue lists differ between runs:\n%s\n%s", aIssues, bIssues)
	}

	// Upload order, not completion order.
	if a.Issues[0].DocumentID != first.ID || a.Issues[1].DocumentID != second.ID {
		t.Errorf("issues not in upload order: %+v", a.Issues)
	}
}

func TestValidateDedupSharesInFlightRun(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	release := make(chan struct{})
	fields := &stubFields{fn: func(ctx context.Context, _, _ string) (map[string]string, error) {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		return map[string]string{"invoice_number": "INV-1"}, nil
	}}

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		fields,
	)

	var wg sync.WaitGroup
	results := make([]*validation.Result, 2)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
			if err != nil {
				t.Errorf("validate: %v", err)
				return
			}
			results[i] = r
		}()
	}

	// Let both callers arrive before the run can finish.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if fields.calls.Load() != 1 {
		t.Errorf("field extraction calls = %d, want 1 shared run", fields.calls.Load())
	}
	if results[0] != results[1] {
		t.Error("concurrent callers received different results")
	}
	if h.results.saveCount() != 1 {
		t.Errorf("saves = %d, want 1", h.results.saveCount())
	}
}

func TestValidateCancellationSavesNothing(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		&stubFields{fn: func(ctx context.Context, _, _ string) (map[string]string, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		}},
	)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := h.engine.ValidateShipmentDocuments(ctx, shipmentID)
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err == nil {
			t.Error("cancelled run returned a result")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("cancelled run did not return")
	}

	if h.results.saveCount() != 0 {
		t.Errorf("saves = %d, want 0 after cancellation", h.results.saveCount())
	}
}

func TestValidateUsesCandidatesWhenProviderFindsNothing(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())
	doc.ContentType = "application/json"
	doc.Filename = "invoice.json"

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte(`{"invoice_number": "INV-55"}`)},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{}, nil
		}},
	)

	result, err := h.engine.ValidateShipmentDocuments(context.Background(), shipmentID)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}

	if result.Status != validation.StatusPassed {
		t.Errorf("status = %q, want passed via structured candidate", result.Status)
	}
}

func TestGetValidationResultBeforeAnyRun(t *testing.T) {
	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{blobs: map[uuid.UUID][]byte{}},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return nil, nil
		}},
	)

	result, err := h.engine.GetValidationResult(context.Background(), uuid.New())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if result != nil {
		t.Errorf("result = %+v, want nil before any run", result)
	}
}

func TestExtractShipmentDocumentsIsReadOnly(t *testing.T) {
	shipmentID := uuid.New()
	doc := invoiceDoc(shipmentID, time.Now())

	h := newHarness(t,
		loadedStore(t, invoiceRuleset),
		&stubDocuments{
			docs:  []documents.Document{doc},
			blobs: map[uuid.UUID][]byte{doc.ID: []byte("Invoice INV-1")},
		},
		&stubFields{fn: func(context.Context, string, string) (map[string]string, error) {
			return map[string]string{"invoice_number": "INV-1"}, nil
		}},
	)

	extracted, err := h.engine.ExtractShipmentDocuments(context.Background(), shipmentID, doc.ShipperID)
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if len(extracted) != 1 {
		t.Fatalf("extracted = %d, want 1", len(extracted))
	}
	if extracted[0].Fields["invoice_number"] != "INV-1" {
		t.Errorf("fields = %v, want invoice_number=INV-1", extracted[0].Fields)
	}
	if extracted[0].Text != "Invoice INV-1" {
		t.Errorf("text = %q, want normalized document text", extracted[0].Text)
	}

	if h.results.saveCount() != 0 {
		t.Errorf("saves = %d, want 0 for read-only projection", h.results.saveCount())
	}
	if len(h.emitter.kinds()) != 0 {
		t.Errorf("events = %v, want none for read-only projection", h.emitter.kinds())
	}
}
