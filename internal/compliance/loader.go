package compliance

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// datasetSchema constrains the ruleset source file. Validating up front keeps
// malformed sources from ever reaching the rule index.
const datasetSchema = `{
  "type": "object",
  "required": ["rules"],
  "properties": {
    "version": { "type": "string" },
    "rules": {
      "type": "array",
      "items": {
        "type": "object",
        "required": ["id", "document_type"],
        "properties": {
          "id": { "type": "string", "minLength": 1 },
          "document_type": { "type": "string", "minLength": 1 },
          "jurisdiction": { "type": "string" },
          "classification": { "type": "string" },
          "required_fields": { "type": "array", "items": { "type": "string" } },
          "suggested_action": { "type": "string" },
          "constraints": {
            "type": "array",
            "items": {
              "type": "object",
              "required": ["field"],
              "properties": {
                "field": { "type": "string", "minLength": 1 },
                "pattern": { "type": "string" },
                "allowed": { "type": "array", "items": { "type": "string" } },
                "min": { "type": "number" },
                "max": { "type": "number" }
              }
            }
          }
        }
      }
    }
  }
}`

type datasetFile struct {
	Version string `json:"version"`
	Rules   []Rule `json:"rules"`
}

// parseDataset validates raw ruleset bytes against the dataset schema,
// decodes them, compiles constraint patterns, and builds the rule index.
// Rules are sorted by ID so matching order is stable across loads.
func parseDataset(data []byte) (*Dataset, error) {
	if err := validateSchema(data); err != nil {
		return nil, err
	}

	var file datasetFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode ruleset: %w", err)
	}

	sort.Slice(file.Rules, func(i, j int) bool {
		return file.Rules[i].ID < file.Rules[j].ID
	})

	seen := make(map[string]struct{}, len(file.Rules))
	for i := range file.Rules {
		r := &file.Rules[i]

		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("duplicate rule id %s", r.ID)
		}
		seen[r.ID] = struct{}{}

		for j := range r.Constraints {
			c := &r.Constraints[j]
			if c.Pattern == "" {
				continue
			}
			compiled, err := regexp.Compile(c.Pattern)
			if err != nil {
				return nil, fmt.Errorf("rule %s: compile pattern %q: %w", r.ID, c.Pattern, err)
			}
			c.compiled = compiled
		}
	}

	ds := &Dataset{
		Rules:  file.Rules,
		byType: make(map[string][]*Rule),
	}
	for i := range ds.Rules {
		key := strings.ToLower(ds.Rules[i].DocumentType)
		ds.byType[key] = append(ds.byType[key], &ds.Rules[i])
	}

	return ds, nil
}

func validateSchema(data []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("dataset.json", strings.NewReader(datasetSchema)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}

	schema, err := compiler.Compile("dataset.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}

	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("decode ruleset: %w", err)
	}

	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("ruleset does not match schema: %w", err)
	}

	return nil
}
