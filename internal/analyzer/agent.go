package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/JaimeStill/go-agents/pkg/agent"
	gaconfig "github.com/JaimeStill/go-agents/pkg/config"

	"github.com/preclear-labs/preclear/pkg/formatting"
)

const promptTemplate = `You are an expert document parser for %s documents.
Extract the fields below from the provided text. Return ONLY a valid JSON
object mapping field names to string values, with no additional text.

Fields:
- invoice_number
- tracking_number
- weight_kg
- total_value
- hs_code
- origin_country
- destination_country

Rules:
- Omit fields that are not present in the document
- Extract exact values from the document
- Respond with ONLY the JSON object

Document text:
%s

JSON Response:`

type agentExtractor struct {
	config gaconfig.AgentConfig
	logger *slog.Logger
}

// NewAgentExtractor creates a FieldExtractor backed by a language model
// agent. A fresh agent is created per call; the config carries provider,
// model, and authentication settings.
func NewAgentExtractor(cfg gaconfig.AgentConfig, logger *slog.Logger) FieldExtractor {
	return &agentExtractor{
		config: cfg,
		logger: logger.With("system", "analyzer"),
	}
}

func (e *agentExtractor) ExtractFields(ctx context.Context, content, documentType string) (map[string]string, error) {
	if strings.TrimSpace(content) == "" {
		return map[string]string{}, nil
	}

	a, err := agent.New(&e.config)
	if err != nil {
		return nil, fmt.Errorf("%w: create agent: %w", ErrProvider, err)
	}

	prompt := fmt.Sprintf(promptTemplate, documentType, content)

	resp, err := a.Chat(ctx, prompt)
	if err != nil {
		return nil, classify(err)
	}

	parsed, err := formatting.Parse[map[string]string](resp.Content())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	fields := make(map[string]string, len(parsed))
	for k, v := range parsed {
		if strings.TrimSpace(v) == "" {
			continue
		}
		fields[k] = v
	}

	e.logger.DebugContext(
		ctx, "fields extracted",
		"document_type", documentType,
		"field_count", len(fields),
	)

	return fields, nil
}

func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	return fmt.Errorf("%w: %w", ErrProvider, err)
}
