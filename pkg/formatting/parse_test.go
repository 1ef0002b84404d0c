package formatting_test

import (
	"errors"
	"testing"

	"github.com/preclear-labs/preclear/pkg/formatting"
)

type sample struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

func TestParse(t *testing.T) {
	t.Run("direct JSON", func(t *testing.T) {
		got, err := formatting.Parse[sample](`{"name":"test","value":42}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "test" || got.Value != 42 {
			t.Errorf("Parse = %+v, want {Name:test Value:42}", got)
		}
	})

	t.Run("json code fence", func(t *testing.T) {
		content := "```json\n{\"name\":\"fenced\",\"value\":7}\n```"
		got, err := formatting.Parse[sample](content)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "fenced" || got.Value != 7 {
			t.Errorf("Parse = %+v, want {Name:fenced Value:7}", got)
		}
	})

	t.Run("bare code fence", func(t *testing.T) {
		content := "```\n{\"name\":\"bare\",\"value\":1}\n```"
		got, err := formatting.Parse[sample](content)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "bare" {
			t.Errorf("Parse = %+v, want {Name:bare}", got)
		}
	})

	t.Run("fence with surrounding prose", func(t *testing.T) {
		content := "Here is the extraction:\n```json\n{\"name\":\"prose\",\"value\":3}\n```\nLet me know if you need more."
		got, err := formatting.Parse[sample](content)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got.Name != "prose" {
			t.Errorf("Parse = %+v, want {Name:prose}", got)
		}
	})

	t.Run("string map", func(t *testing.T) {
		got, err := formatting.Parse[map[string]string](`{"invoice_number":"INV-1"}`)
		if err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if got["invoice_number"] != "INV-1" {
			t.Errorf("Parse = %v, want invoice_number=INV-1", got)
		}
	})

	t.Run("unparseable content", func(t *testing.T) {
		_, err := formatting.Parse[sample]("the model refused to answer")
		if !errors.Is(err, formatting.ErrParseFailed) {
			t.Errorf("error = %v, want ErrParseFailed", err)
		}
	})
}
