package validation

import (
	"log/slog"

	"github.com/preclear-labs/preclear/internal/analyzer"
	"github.com/preclear-labs/preclear/internal/compliance"
	"github.com/preclear-labs/preclear/internal/documents"
	"github.com/preclear-labs/preclear/internal/events"
	"github.com/preclear-labs/preclear/internal/extraction"
)

// Runtime bundles the dependencies that pipeline nodes require. It is
// constructed by higher-level composition code from infrastructure and
// domain systems.
type Runtime struct {
	Documents documents.System
	Extractor extraction.Extractor
	Fields    analyzer.FieldExtractor
	Dataset   *compliance.Store
	Results   ResultStore
	Events    events.Emitter
	Logger    *slog.Logger
	Workers   int
}
