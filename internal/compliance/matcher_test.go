package compliance_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/preclear-labs/preclear/internal/compliance"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func writeRuleset(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "rules.json")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write ruleset: %v", err)
	}
	return path
}

func loadDataset(t *testing.T, content string) *compliance.Dataset {
	t.Helper()
	store := compliance.NewStore(discardLogger())
	if err := store.Initialize(context.Background(), writeRuleset(t, content)); err != nil {
		t.Fatalf("initialize dataset: %v", err)
	}
	ds, err := store.Snapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	return ds
}

const invoiceRuleset = `{
  "version": "1",
  "rules": [
    {
      "id": "INV-001",
      "document_type": "invoice",
      "required_fields": ["invoice_number"],
      "suggested_action": "resubmit the commercial invoice"
    }
  ]
}`

func TestMatchRequiredFieldPresent(t *testing.T) {
	ds := loadDataset(t, invoiceRuleset)

	findings, evaluated := compliance.Match(
		map[string]string{"invoice_number": "INV-1"},
		"invoice", ds,
	)

	if evaluated != 1 {
		t.Errorf("evaluated = %d, want 1", evaluated)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %v, want none", findings)
	}
}

func TestMatchRequiredFieldMissing(t *testing.T) {
	ds := loadDataset(t, invoiceRuleset)

	findings, evaluated := compliance.Match(map[string]string{}, "invoice", ds)

	if evaluated != 1 {
		t.Errorf("evaluated = %d, want 1", evaluated)
	}
	if len(findings) != 1 {
		t.Fatalf("findings = %d, want 1", len(findings))
	}

	f := findings[0]
	if f.Field != "invoice_number" {
		t.Errorf("field = %q, want invoice_number", f.Field)
	}
	if f.Severity != compliance.SeverityFailed {
		t.Errorf("severity = %q, want failed", f.Severity)
	}
	if f.RuleID != "INV-001" {
		t.Errorf("rule id = %q, want INV-001", f.RuleID)
	}
}

func TestMatchNoApplicableRules(t *testing.T) {
	ds := loadDataset(t, invoiceRuleset)

	findings, evaluated := compliance.Match(map[string]string{}, "packing_list", ds)

	if evaluated != 0 {
		t.Errorf("evaluated = %d, want 0", evaluated)
	}
	if len(findings) != 0 {
		t.Errorf("findings = %d, want 0", len(findings))
	}
}

func TestMatchConstraints(t *testing.T) {
	ds := loadDataset(t, `{
	  "rules": [
	    {
	      "id": "CST-001",
	      "document_type": "invoice",
	      "constraints": [
	        {"field": "origin_country", "allowed": ["US", "CA"]},
	        {"field": "weight_kg", "min": 0.1, "max": 1000},
	        {"field": "invoice_number", "pattern": "^INV-[0-9]+$"}
	      ]
	    }
	  ]
	}`)

	tests := []struct {
		name     string
		fields   map[string]string
		count    int
		severity compliance.Severity
		field    string
	}{
		{
			"all satisfied",
			map[string]string{"origin_country": "US", "weight_kg": "12.5", "invoice_number": "INV-42"},
			0, "", "",
		},
		{
			"allowed set violation fails",
			map[string]string{"origin_country": "MX"},
			1, compliance.SeverityFailed, "origin_country",
		},
		{
			"case-insensitive allowed match",
			map[string]string{"origin_country": "us"},
			0, "", "",
		},
		{
			"value above range fails",
			map[string]string{"weight_kg": "1500"},
			1, compliance.SeverityFailed, "weight_kg",
		},
		{
			"non-numeric range value fails",
			map[string]string{"weight_kg": "heavy"},
			1, compliance.SeverityFailed, "weight_kg",
		},
		{
			"format mismatch warns",
			map[string]string{"invoice_number": "42"},
			1, compliance.SeverityWarn, "invoice_number",
		},
		{
			"absent fields are skipped",
			map[string]string{},
			0, "", "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			findings, evaluated := compliance.Match(tt.fields, "invoice", ds)
			if evaluated != 1 {
				t.Fatalf("evaluated = %d, want 1", evaluated)
			}
			if len(findings) != tt.count {
				t.Fatalf("findings = %v, want %d", findings, tt.count)
			}
			if tt.count == 0 {
				return
			}
			if findings[0].Severity != tt.severity {
				t.Errorf("severity = %q, want %q", findings[0].Severity, tt.severity)
			}
			if findings[0].Field != tt.field {
				t.Errorf("field = %q, want %q", findings[0].Field, tt.field)
			}
		})
	}
}

func TestMatchApplicabilityPredicates(t *testing.T) {
	ds := loadDataset(t, `{
	  "rules": [
	    {
	      "id": "JUR-001",
	      "document_type": "invoice",
	      "jurisdiction": "DE",
	      "required_fields": ["total_value"]
	    },
	    {
	      "id": "HSC-001",
	      "document_type": "invoice",
	      "classification": "8471",
	      "required_fields": ["tracking_number"]
	    }
	  ]
	}`)

	t.Run("jurisdiction narrows by destination country", func(t *testing.T) {
		_, evaluated := compliance.Match(
			map[string]string{"destination_country": "FR"},
			"invoice", ds,
		)
		if evaluated != 0 {
			t.Errorf("evaluated = %d, want 0", evaluated)
		}

		_, evaluated = compliance.Match(
			map[string]string{"destination_country": "DE", "total_value": "100"},
			"invoice", ds,
		)
		if evaluated != 1 {
			t.Errorf("evaluated = %d, want 1", evaluated)
		}
	})

	t.Run("classification matches hs code prefix", func(t *testing.T) {
		_, evaluated := compliance.Match(
			map[string]string{"hs_code": "847130", "tracking_number": "TRK-1"},
			"invoice", ds,
		)
		if evaluated != 1 {
			t.Errorf("evaluated = %d, want 1", evaluated)
		}
	})
}

func TestMatchDeterministicOrdering(t *testing.T) {
	ruleset := `{
	  "rules": [
	    {"id": "B-002", "document_type": "invoice", "required_fields": ["b_field", "a_field"]},
	    {"id": "A-001", "document_type": "invoice", "required_fields": ["z_field"]}
	  ]
	}`
	ds := loadDataset(t, ruleset)

	first, _ := compliance.Match(map[string]string{}, "invoice", ds)
	second, _ := compliance.Match(map[string]string{}, "invoice", ds)

	if len(first) != 3 {
		t.Fatalf("findings = %d, want 3", len(first))
	}

	// Rules in ID order, fields in declared order within a rule.
	wantOrder := []string{"z_field", "b_field", "a_field"}
	for i, want := range wantOrder {
		if first[i].Field != want {
			t.Errorf("finding %d field = %q, want %q", i, first[i].Field, want)
		}
	}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("finding %d differs between runs: %v vs %v", i, first[i], second[i])
		}
	}
}
