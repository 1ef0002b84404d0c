package validation

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/go-agents-orchestration/pkg/state"

	"github.com/preclear-labs/preclear/internal/compliance"
	"github.com/preclear-labs/preclear/internal/documents"
)

// docAnalysis holds one document's pipeline output. Analyses are stored
// indexed by upload order so issue aggregation is deterministic regardless
// of goroutine completion order.
type docAnalysis struct {
	Outcome   DocumentOutcome
	Issues    []Issue
	Extracted ExtractedDocument
}

// AnalyzeNode returns a state node that runs the per-document pipeline
// (download → content extraction → AI field extraction → rule matching)
// with bounded errgroup concurrency. Per-document failures are captured as
// issues; only context cancellation aborts the run.
func AnalyzeNode(rt *Runtime) state.StateNode {
	return state.NewFunctionNode(func(ctx context.Context, s state.State) (state.State, error) {
		docs, err := extractDocuments(s)
		if err != nil {
			return s, fmt.Errorf("analyze: %w", err)
		}

		ds, err := extractDataset(s)
		if err != nil {
			return s, fmt.Errorf("analyze: %w", err)
		}

		analyses, err := analyzeDocuments(ctx, rt, docs, ds)
		if err != nil {
			return s, fmt.Errorf("analyze: %w", err)
		}

		rt.Logger.InfoContext(
			ctx, "analyze node complete",
			"document_count", len(analyses),
		)

		s = s.Set(KeyAnalyses, analyses)
		return s, nil
	})
}

func analyzeDocuments(
	ctx context.Context,
	rt *Runtime,
	docs []documents.Document,
	ds *compliance.Dataset,
) ([]docAnalysis, error) {
	analyses := make([]docAnalysis, len(docs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workerCount(rt, len(docs)))

	for i := range docs {
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}

			analyses[i] = analyzeDocument(gctx, rt, docs[i], ds)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return analyses, nil
}

// analyzeDocument runs one document through the pipeline. Failures never
// propagate as errors; they become issues on the analysis so one document
// cannot abort the others.
func analyzeDocument(
	ctx context.Context,
	rt *Runtime,
	doc documents.Document,
	ds *compliance.Dataset,
) docAnalysis {
	analysis := docAnalysis{
		Outcome: DocumentOutcome{
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
		},
		Extracted: ExtractedDocument{
			ShipmentID:   doc.ShipmentID,
			DocumentID:   doc.ID,
			DocumentType: doc.DocumentType,
			Fields:       map[string]string{},
		},
	}

	data, err := rt.Documents.Download(ctx, doc.ID)
	if err != nil {
		analysis.Issues = append(analysis.Issues, Issue{
			DocumentID: doc.ID,
			Kind:       KindExtractionFailure,
			Severity:   compliance.SeverityWarn,
			Message:    fmt.Sprintf("download failed: %v", err),
		})
		return analysis
	}

	content, err := rt.Extractor.Extract(data, doc.ContentType)
	if err != nil {
		analysis.Issues = append(analysis.Issues, Issue{
			DocumentID: doc.ID,
			Kind:       KindExtractionFailure,
			Severity:   compliance.SeverityWarn,
			Message:    err.Error(),
		})
		return analysis
	}
	analysis.Extracted.Text = content.Text

	fields, err := rt.Fields.ExtractFields(ctx, content.Text, doc.DocumentType)
	if err != nil {
		analysis.Issues = append(analysis.Issues, Issue{
			DocumentID: doc.ID,
			Kind:       KindProviderFailure,
			Severity:   compliance.SeverityWarn,
			Message:    err.Error(),
		})
		return analysis
	}

	merged := mergeFields(content.FieldCandidates, fields)
	analysis.Extracted.Fields = merged

	findings, ruleCount := compliance.Match(merged, doc.DocumentType, ds)
	analysis.Outcome.RulesEvaluated = ruleCount > 0

	for _, f := range findings {
		analysis.Issues = append(analysis.Issues, Issue{
			DocumentID:      doc.ID,
			Field:           f.Field,
			RuleID:          f.RuleID,
			Kind:            KindRuleViolation,
			Severity:        f.Severity,
			Message:         f.Message,
			SuggestedAction: f.SuggestedAction,
		})
	}

	return analysis
}

// mergeFields overlays AI-extracted fields on structured-format candidates.
// The model's answer wins on conflict; candidates fill its gaps.
func mergeFields(candidates, fields map[string]string) map[string]string {
	merged := make(map[string]string, len(candidates)+len(fields))
	for k, v := range candidates {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return merged
}
