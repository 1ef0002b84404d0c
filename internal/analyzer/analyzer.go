// Package analyzer defines the AI field-extraction boundary. The validation
// pipeline is polymorphic over any provider satisfying FieldExtractor; the
// default implementation sends document text to a language model agent.
package analyzer

import "context"

// FieldExtractor extracts structured fields from normalized document text.
// An empty mapping is a valid result, not an error. Implementations must
// honor ctx cancellation and deadlines.
type FieldExtractor interface {
	ExtractFields(ctx context.Context, content, documentType string) (map[string]string, error)
}
