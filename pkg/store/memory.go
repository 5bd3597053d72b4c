package store

import (
	"context"
	"sync"
	"time"
)

// MemoryBackend keeps usage records in process memory. It is the
// default backend and the right choice when accounting does not need to
// survive restarts.
type MemoryBackend struct {
	mu      sync.Mutex
	records []UsageRecord
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

// SaveBatch implements Backend.
func (m *MemoryBackend) SaveBatch(_ context.Context, records []UsageRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, records...)
	return nil
}

// Totals implements Backend.
func (m *MemoryBackend) Totals(_ context.Context, since time.Time) ([]Total, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	type key struct{ provider, model string }
	agg := make(map[key]*Total)
	var order []key

	for _, r := range m.records {
		if r.Time.Before(since) {
			continue
		}
		k := key{r.Provider, r.Model}
		t, ok := agg[k]
		if !ok {
			t = &Total{Provider: r.Provider, Model: r.Model}
			agg[k] = t
			order = append(order, k)
		}
		t.Requests++
		t.PromptTokens += int64(r.PromptTokens)
		t.CompletionTokens += int64(r.CompletionTokens)
		t.CostUSD += r.CostUSD
	}

	out := make([]Total, 0, len(order))
	for _, k := range order {
		out = append(out, *agg[k])
	}
	return out, nil
}

// PurgeBefore implements Backend.
func (m *MemoryBackend) PurgeBefore(_ context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kept := m.records[:0]
	var purged int64
	for _, r := range m.records {
		if r.Time.Before(cutoff) {
			purged++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return purged, nil
}

// Close implements Backend.
func (m *MemoryBackend) Close() error { return nil }
