// Package cli renders command output for the switchboard binary.
package cli

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/switchboard-ai/switchboard/pkg/store"
)

// Format selects how usage reports are rendered.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
)

// ParseFormat validates a format flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON, FormatCSV:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (expected text, json or csv)", s)
	}
}

// WriteTotals renders aggregated usage totals to w.
func WriteTotals(w io.Writer, format Format, totals []store.Total) error {
	switch format {
	case FormatJSON:
		return writeTotalsJSON(w, totals)
	case FormatCSV:
		return writeTotalsCSV(w, totals)
	default:
		return writeTotalsText(w, totals)
	}
}

func writeTotalsText(w io.Writer, totals []store.Total) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PROVIDER\tMODEL\tREQUESTS\tPROMPT\tCOMPLETION\tCOST USD")
	for _, t := range totals {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.4f\n",
			t.Provider, t.Model, t.Requests, t.PromptTokens, t.CompletionTokens, t.CostUSD)
	}
	return tw.Flush()
}

func writeTotalsJSON(w io.Writer, totals []store.Total) error {
	type row struct {
		Provider         string  `json:"provider"`
		Model            string  `json:"model"`
		Requests         int64   `json:"requests"`
		PromptTokens     int64   `json:"prompt_tokens"`
		CompletionTokens int64   `json:"completion_tokens"`
		CostUSD          float64 `json:"cost_usd"`
	}
	rows := make([]row, 0, len(totals))
	for _, t := range totals {
		rows = append(rows, row{
			Provider:         t.Provider,
			Model:            t.Model,
			Requests:         t.Requests,
			PromptTokens:     t.PromptTokens,
			CompletionTokens: t.CompletionTokens,
			CostUSD:          t.CostUSD,
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeTotalsCSV(w io.Writer, totals []store.Total) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"provider", "model", "requests", "prompt_tokens", "completion_tokens", "cost_usd"}); err != nil {
		return err
	}
	for _, t := range totals {
		record := []string{
			t.Provider,
			t.Model,
			strconv.FormatInt(t.Requests, 10),
			strconv.FormatInt(t.PromptTokens, 10),
			strconv.FormatInt(t.CompletionTokens, 10),
			strconv.FormatFloat(t.CostUSD, 'f', 4, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
