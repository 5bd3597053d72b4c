// Package store persists per-request usage accounting. Persistence is
// best-effort: routing correctness never depends on it, and a failing
// backend degrades to dropped accounting rather than failed requests.
package store

import (
	"context"
	"time"
)

// UsageRecord is one completed request attempt.
type UsageRecord struct {
	Time             time.Time
	Tenant           string
	Provider         string
	Model            string
	Endpoint         string
	PromptTokens     int
	CompletionTokens int
	CostUSD          float64
	LatencyMS        int64
	Outcome          string
}

// Total aggregates usage for one provider/model pair.
type Total struct {
	Provider         string
	Model            string
	Requests         int64
	PromptTokens     int64
	CompletionTokens int64
	CostUSD          float64
}

// Backend stores usage records.
type Backend interface {
	// SaveBatch persists a batch of records.
	SaveBatch(ctx context.Context, records []UsageRecord) error

	// Totals aggregates records at or after since, grouped by
	// provider and model.
	Totals(ctx context.Context, since time.Time) ([]Total, error)

	// PurgeBefore deletes records older than cutoff and reports how
	// many were removed.
	PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error)

	Close() error
}
