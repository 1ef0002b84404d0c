package compliance

import (
	"fmt"
	"strconv"
	"strings"
)

// Extracted field names the matcher reads to narrow rule applicability.
const (
	fieldDestinationCountry = "destination_country"
	fieldHsCode             = "hs_code"
)

// Match evaluates every rule applicable to the document type against the
// extracted fields and returns the findings in deterministic order: rules in
// ID order, and within a rule, required fields then constraints in their
// declared order. The second return value is the number of rules evaluated;
// zero means no rule applied, which is a pass distinct from "rules passed."
func Match(fields map[string]string, documentType string, ds *Dataset) ([]Finding, int) {
	jurisdiction := fields[fieldDestinationCountry]
	classification := fields[fieldHsCode]

	rules := ds.Applicable(documentType, jurisdiction, classification)

	findings := make([]Finding, 0)
	for _, rule := range rules {
		findings = append(findings, evaluate(rule, fields)...)
	}

	return findings, len(rules)
}

func evaluate(rule *Rule, fields map[string]string) []Finding {
	var findings []Finding

	for _, name := range rule.RequiredFields {
		if strings.TrimSpace(fields[name]) != "" {
			continue
		}
		findings = append(findings, Finding{
			RuleID:          rule.ID,
			Field:           name,
			Severity:        SeverityFailed,
			Message:         fmt.Sprintf("required field %s is missing", name),
			SuggestedAction: rule.SuggestedAction,
		})
	}

	for i := range rule.Constraints {
		c := &rule.Constraints[i]
		value, present := fields[c.Field]
		if !present || strings.TrimSpace(value) == "" {
			// Presence is enforced by required_fields, not constraints.
			continue
		}

		if f, violated := checkConstraint(rule, c, value); violated {
			findings = append(findings, f)
		}
	}

	return findings
}

func checkConstraint(rule *Rule, c *Constraint, value string) (Finding, bool) {
	if len(c.Allowed) > 0 && !allowedContains(c.Allowed, value) {
		return Finding{
			RuleID:          rule.ID,
			Field:           c.Field,
			Severity:        SeverityFailed,
			Message:         fmt.Sprintf("value %q is not among allowed values", value),
			SuggestedAction: rule.SuggestedAction,
		}, true
	}

	if c.Min != nil || c.Max != nil {
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		switch {
		case err != nil:
			return Finding{
				RuleID:          rule.ID,
				Field:           c.Field,
				Severity:        SeverityFailed,
				Message:         fmt.Sprintf("value %q is not numeric", value),
				SuggestedAction: rule.SuggestedAction,
			}, true
		case c.Min != nil && n < *c.Min:
			return Finding{
				RuleID:          rule.ID,
				Field:           c.Field,
				Severity:        SeverityFailed,
				Message:         fmt.Sprintf("value %v is below minimum %v", n, *c.Min),
				SuggestedAction: rule.SuggestedAction,
			}, true
		case c.Max != nil && n > *c.Max:
			return Finding{
				RuleID:          rule.ID,
				Field:           c.Field,
				Severity:        SeverityFailed,
				Message:         fmt.Sprintf("value %v is above maximum %v", n, *c.Max),
				SuggestedAction: rule.SuggestedAction,
			}, true
		}
	}

	if c.compiled != nil && !c.compiled.MatchString(value) {
		return Finding{
			RuleID:          rule.ID,
			Field:           c.Field,
			Severity:        SeverityWarn,
			Message:         fmt.Sprintf("value %q does not match expected format", value),
			SuggestedAction: rule.SuggestedAction,
		}, true
	}

	return Finding{}, false
}

func allowedContains(allowed []string, value string) bool {
	for _, a := range allowed {
		if strings.EqualFold(a, value) {
			return true
		}
	}
	return false
}
