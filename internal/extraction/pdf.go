package extraction

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// pdfStringLiteral matches text-show string operands inside a page content
// stream, including escaped parentheses.
var pdfStringLiteral = regexp.MustCompile(`\((?:\\.|[^\\()])*\)`)

var pdfEscapes = strings.NewReplacer(
	`\(`, "(",
	`\)`, ")",
	`\\`, `\`,
	`\n`, "\n",
	`\r`, "",
	`\t`, " ",
)

func extractPDF(data []byte) (*Content, error) {
	conf := model.NewDefaultConfiguration()

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, fmt.Errorf("%w: read pdf: %w", ErrCorruptDocument, err)
	}

	if err := api.ValidateContext(ctx); err != nil {
		return nil, fmt.Errorf("%w: validate pdf: %w", ErrCorruptDocument, err)
	}

	var pages []string
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		reader, err := pdfcpu.ExtractPageContent(ctx, pageNr)
		if err != nil {
			return nil, fmt.Errorf("%w: extract page %d: %w", ErrCorruptDocument, pageNr, err)
		}
		if reader == nil {
			continue
		}

		stream, err := io.ReadAll(reader)
		if err != nil {
			return nil, fmt.Errorf("%w: read page %d: %w", ErrCorruptDocument, pageNr, err)
		}

		if text := harvestText(stream); text != "" {
			pages = append(pages, text)
		}
	}

	return &Content{Text: strings.Join(pages, "\n")}, nil
}

// harvestText pulls string operands out of a decoded content stream.
// It is a lexical extraction, not a full layout reconstruction: operands
// appear in content-stream order, joined by spaces.
func harvestText(stream []byte) string {
	literals := pdfStringLiteral.FindAll(stream, -1)
	if len(literals) == 0 {
		return ""
	}

	parts := make([]string, 0, len(literals))
	for _, lit := range literals {
		s := string(lit[1 : len(lit)-1])
		s = pdfEscapes.Replace(s)
		if strings.TrimSpace(s) == "" {
			continue
		}
		parts = append(parts, s)
	}

	return normalizeText(strings.Join(parts, " "))
}
