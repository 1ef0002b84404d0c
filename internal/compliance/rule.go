// Package compliance implements the compliance ruleset: loading a validated
// dataset from an external source, exposing an atomically swapped process-wide
// snapshot, and matching extracted document fields against applicable rules.
package compliance

import (
	"regexp"
	"strings"
	"time"
)

// Severity classifies the weight of a finding.
type Severity string

// Finding severities. A failed finding blocks validation; a warn finding
// flags a format mismatch the shipper can fix by resubmitting.
const (
	SeverityFailed Severity = "failed"
	SeverityWarn   Severity = "warn"
)

// Constraint restricts the value of a single extracted field.
// Allowed and Min/Max violations are failed findings; Pattern mismatches
// are warn findings since a resubmission may fix the formatting.
type Constraint struct {
	Field   string   `json:"field"`
	Pattern string   `json:"pattern,omitempty"`
	Allowed []string `json:"allowed,omitempty"`
	Min     *float64 `json:"min,omitempty"`
	Max     *float64 `json:"max,omitempty"`

	compiled *regexp.Regexp
}

// Rule is one immutable compliance rule. DocumentType is the primary
// applicability predicate; Jurisdiction and Classification narrow it further
// when set. Classification matches as an HS-code prefix.
type Rule struct {
	ID              string       `json:"id"`
	DocumentType    string       `json:"document_type"`
	Jurisdiction    string       `json:"jurisdiction,omitempty"`
	Classification  string       `json:"classification,omitempty"`
	RequiredFields  []string     `json:"required_fields"`
	Constraints     []Constraint `json:"constraints,omitempty"`
	SuggestedAction string       `json:"suggested_action,omitempty"`
}

// AppliesTo reports whether the rule covers a document of the given type
// with the given jurisdiction and product classification. Empty rule
// predicates match anything.
func (r *Rule) AppliesTo(documentType, jurisdiction, classification string) bool {
	if !strings.EqualFold(r.DocumentType, documentType) {
		return false
	}
	if r.Jurisdiction != "" && !strings.EqualFold(r.Jurisdiction, jurisdiction) {
		return false
	}
	if r.Classification != "" && !strings.HasPrefix(classification, r.Classification) {
		return false
	}
	return true
}

// Dataset is one immutable, fully loaded ruleset snapshot.
type Dataset struct {
	Rules    []Rule
	Source   string
	LoadedAt time.Time

	byType map[string][]*Rule
}

// Applicable returns the rules covering the given document type, jurisdiction,
// and classification, in rule-ID order.
func (d *Dataset) Applicable(documentType, jurisdiction, classification string) []*Rule {
	candidates := d.byType[strings.ToLower(documentType)]

	var matched []*Rule
	for _, r := range candidates {
		if r.AppliesTo(documentType, jurisdiction, classification) {
			matched = append(matched, r)
		}
	}
	return matched
}

// Finding is one rule evaluation outcome for a single field.
type Finding struct {
	RuleID          string
	Field           string
	Severity        Severity
	Message         string
	SuggestedAction string
}
