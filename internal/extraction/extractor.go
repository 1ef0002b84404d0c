// Package extraction converts raw document bytes into normalized text and,
// for structured formats, field candidates. Extraction is deterministic:
// identical bytes and content type always produce identical output.
package extraction

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
)

// Content is the normalized output of extracting one document.
type Content struct {
	// Text is the normalized plain-text rendering of the document.
	Text string
	// FieldCandidates maps field names to values recovered directly from
	// structured formats (CSV header rows, JSON objects). Empty for
	// unstructured formats.
	FieldCandidates map[string]string
}

// Extractor converts raw document bytes into normalized content.
type Extractor interface {
	Extract(data []byte, contentType string) (*Content, error)
}

type extractor struct{}

// New creates the default content extractor supporting PDF, CSV, JSON,
// and plain text.
func New() Extractor {
	return extractor{}
}

func (extractor) Extract(data []byte, contentType string) (*Content, error) {
	switch normalizeContentType(contentType) {
	case "application/pdf":
		return extractPDF(data)
	case "text/csv":
		return extractCSV(data)
	case "application/json":
		return extractJSON(data)
	case "text/plain":
		return extractText(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, contentType)
	}
}

func normalizeContentType(contentType string) string {
	// Strip parameters such as "; charset=utf-8".
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = contentType[:i]
	}
	return strings.ToLower(strings.TrimSpace(contentType))
}

func extractText(data []byte) (*Content, error) {
	return &Content{Text: normalizeText(string(data))}, nil
}

func extractCSV(data []byte) (*Content, error) {
	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: parse csv: %w", ErrCorruptDocument, err)
	}

	content := &Content{Text: normalizeText(string(data))}

	// The first data row under the header yields field candidates.
	if len(records) >= 2 {
		content.FieldCandidates = make(map[string]string)
		header, row := records[0], records[1]
		for i, name := range header {
			if i >= len(row) {
				break
			}
			key := candidateKey(name)
			if key == "" || row[i] == "" {
				continue
			}
			content.FieldCandidates[key] = strings.TrimSpace(row[i])
		}
	}

	return content, nil
}

func extractJSON(data []byte) (*Content, error) {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: parse json: %w", ErrCorruptDocument, err)
	}

	content := &Content{
		Text:            normalizeText(string(data)),
		FieldCandidates: make(map[string]string),
	}

	for key, raw := range doc {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if s != "" {
				content.FieldCandidates[candidateKey(key)] = s
			}
			continue
		}
		var n float64
		if err := json.Unmarshal(raw, &n); err == nil {
			content.FieldCandidates[candidateKey(key)] = strings.TrimSpace(string(raw))
		}
	}

	return content, nil
}

func candidateKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.ReplaceAll(key, " ", "_")
}

func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	return strings.TrimSpace(s)
}
