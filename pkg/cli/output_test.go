package cli

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/store"
)

var sampleTotals = []store.Total{
	{Provider: "groq", Model: "llama-3.3-70b", Requests: 12, PromptTokens: 1200, CompletionTokens: 340, CostUSD: 0},
	{Provider: "openai", Model: "gpt-4o-mini", Requests: 3, PromptTokens: 90, CompletionTokens: 45, CostUSD: 0.0123},
}

func TestParseFormat(t *testing.T) {
	for _, valid := range []string{"text", "json", "csv"} {
		if _, err := ParseFormat(valid); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", valid, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
}

func TestWriteTotalsText(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTotals(&buf, FormatText, sampleTotals); err != nil {
		t.Fatalf("WriteTotals() error = %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "PROVIDER") {
		t.Error("missing header row")
	}
	if !strings.Contains(out, "groq") || !strings.Contains(out, "gpt-4o-mini") {
		t.Errorf("missing rows in output:\n%s", out)
	}
}

func TestWriteTotalsJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTotals(&buf, FormatJSON, sampleTotals); err != nil {
		t.Fatalf("WriteTotals() error = %v", err)
	}
	var rows []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[1]["cost_usd"].(float64) != 0.0123 {
		t.Errorf("cost_usd = %v", rows[1]["cost_usd"])
	}
}

func TestWriteTotalsCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTotals(&buf, FormatCSV, sampleTotals); err != nil {
		t.Fatalf("WriteTotals() error = %v", err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("records = %d, want header plus 2 rows", len(records))
	}
	if records[1][0] != "groq" || records[2][5] != "0.0123" {
		t.Errorf("unexpected rows: %v", records)
	}
}
