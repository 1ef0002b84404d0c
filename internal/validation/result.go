// Package validation implements the compliance validation pipeline: it pulls
// a shipment's documents, extracts content and structured fields, matches
// them against the loaded compliance dataset, and aggregates one cached
// ValidationResult per shipment.
package validation

import (
	"time"

	"github.com/google/uuid"

	"github.com/preclear-labs/preclear/internal/compliance"
)

// Status is the overall outcome of a validation run.
type Status string

const (
	StatusNotRun      Status = "not_run"
	StatusPending     Status = "pending"
	StatusPassed      Status = "passed"
	StatusFailed      Status = "failed"
	StatusNeedsReview Status = "needs_review"
)

// IssueKind distinguishes rule violations from pipeline failures that were
// captured as per-document issues instead of aborting the run.
type IssueKind string

const (
	KindRuleViolation     IssueKind = "rule_violation"
	KindExtractionFailure IssueKind = "extraction_failure"
	KindProviderFailure   IssueKind = "provider_failure"
)

// Issue is a single finding against one document. Issues are ordered by
// document upload order, then rule evaluation order within a document, so
// re-running against unchanged inputs yields an identical list.
type Issue struct {
	DocumentID      uuid.UUID           `json:"document_id"`
	Field           string              `json:"field,omitempty"`
	RuleID          string              `json:"rule_id,omitempty"`
	Kind            IssueKind           `json:"kind"`
	Severity        compliance.Severity `json:"severity"`
	Message         string              `json:"message"`
	SuggestedAction string              `json:"suggested_action,omitempty"`
}

// DocumentOutcome records per-document evaluation metadata. RulesEvaluated
// distinguishes "no applicable rules" from "rules evaluated and passed".
type DocumentOutcome struct {
	DocumentID     uuid.UUID `json:"document_id"`
	DocumentType   string    `json:"document_type"`
	RulesEvaluated bool      `json:"rules_evaluated"`
}

// Result is the aggregated, cached outcome of one validation run. One
// logical result exists per shipment; each successful run overwrites the
// prior one.
type Result struct {
	ShipmentID uuid.UUID         `json:"shipment_id"`
	Status     Status            `json:"status"`
	Score      int               `json:"score"`
	Issues     []Issue           `json:"issues"`
	Documents  []DocumentOutcome `json:"documents"`
	ComputedAt time.Time         `json:"computed_at"`
}

// ExtractedDocument is the ephemeral per-document projection produced by a
// run or by the read-only preview operation. Safe to recompute.
type ExtractedDocument struct {
	ShipmentID   uuid.UUID         `json:"shipment_id"`
	DocumentID   uuid.UUID         `json:"document_id"`
	DocumentType string            `json:"document_type"`
	Fields       map[string]string `json:"fields"`
	Text         string            `json:"text"`
}

// deriveStatus folds per-document issues into the overall status. Severity
// failed dominates, then captured pipeline failures, then passed. A shipment
// with no documents was never evaluated.
func deriveStatus(documentCount int, issues []Issue) Status {
	if documentCount == 0 {
		return StatusNotRun
	}

	review := false
	for _, issue := range issues {
		if issue.Severity == compliance.SeverityFailed {
			return StatusFailed
		}
		if issue.Kind == KindExtractionFailure || issue.Kind == KindProviderFailure {
			review = true
		}
	}

	if review {
		return StatusNeedsReview
	}
	return StatusPassed
}

// computeScore produces a coarse 0-100 compliance score from issue
// severities. Not used for gating; surfaced for broker triage.
func computeScore(issues []Issue) int {
	score := 100
	for _, issue := range issues {
		switch issue.Severity {
		case compliance.SeverityFailed:
			score -= 30
		default:
			score -= 5
		}
	}
	if score < 0 {
		score = 0
	}
	return score
}
