package format

import (
	"bytes"
	"strings"
	"testing"
)

type pair struct{ a, b string }

func (p pair) Header() []string { return []string{"name", "stage"} }
func (p pair) Rows() [][]string { return [][]string{{p.a, p.b}} }

func TestWrite_JSONEnvelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: map[string]int{"n": 1}}, "json", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	if got := strings.TrimSpace(buf.String()); got != `{"data":{"n":1}}` {
		t.Fatalf("unexpected output %q", got)
	}
}

func TestWrite_TableUnwrapsEnvelope(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := Write(&buf, Envelope{Data: pair{"Ada", "Qualified"}}, "table", false); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"name", "stage", "Ada", "Qualified"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in table:\n%s", want, out)
		}
	}
}

func TestWrite_TableRejectsNonTabular(t *testing.T) {
	t.Parallel()

	if err := Write(&bytes.Buffer{}, Envelope{Data: 3}, "table", false); err == nil {
		t.Fatalf("expected error for non-tabular value")
	}
	if err := Write(&bytes.Buffer{}, 3, "edn", false); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestWriteTable_EmptyAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := WriteTable(&buf, Fields{}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "(empty)" {
		t.Fatalf("expected (empty), got %q", buf.String())
	}
	buf.Reset()
	if err := WriteTable(&buf, Fields{{"contact", "ada@example.com"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "ada@example.com") {
		t.Fatalf("missing value:\n%s", buf.String())
	}
}
