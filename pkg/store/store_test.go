package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func sampleRecords(base time.Time) []UsageRecord {
	return []UsageRecord{
		{Time: base, Tenant: "acme", Provider: "groq", Model: "llama-3.3-70b",
			Endpoint: "chat.completions", PromptTokens: 100, CompletionTokens: 50, Outcome: "success"},
		{Time: base.Add(time.Minute), Tenant: "acme", Provider: "groq", Model: "llama-3.3-70b",
			Endpoint: "chat.completions", PromptTokens: 10, CompletionTokens: 5, CostUSD: 0.001, Outcome: "success"},
		{Time: base.Add(2 * time.Minute), Tenant: "globex", Provider: "openai", Model: "gpt-4o-mini",
			Endpoint: "embeddings", PromptTokens: 7, Outcome: "transient"},
	}
}

// backendTest exercises the Backend contract against any implementation.
func backendTest(t *testing.T, b Backend) {
	t.Helper()
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	if err := b.SaveBatch(ctx, sampleRecords(base)); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}

	totals, err := b.Totals(ctx, base)
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("len(totals) = %d, want 2 provider/model groups", len(totals))
	}
	for _, tot := range totals {
		if tot.Provider == "groq" {
			if tot.Requests != 2 || tot.PromptTokens != 110 || tot.CompletionTokens != 55 {
				t.Errorf("groq totals = %+v", tot)
			}
		}
	}

	// Totals with a later cutoff exclude earlier records.
	totals, err = b.Totals(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("Totals(cutoff) error = %v", err)
	}
	if len(totals) != 1 || totals[0].Provider != "openai" {
		t.Errorf("cutoff totals = %+v, want only openai", totals)
	}

	purged, err := b.PurgeBefore(ctx, base.Add(90*time.Second))
	if err != nil {
		t.Fatalf("PurgeBefore() error = %v", err)
	}
	if purged != 2 {
		t.Errorf("purged = %d, want 2", purged)
	}
	totals, _ = b.Totals(ctx, time.Time{})
	if len(totals) != 1 {
		t.Errorf("totals after purge = %+v, want only openai", totals)
	}
}

func TestMemoryBackend(t *testing.T) {
	b := NewMemoryBackend()
	defer b.Close()
	backendTest(t, b)
}

func TestSQLiteBackend(t *testing.T) {
	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "usage.db"))
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error = %v", err)
	}
	defer b.Close()
	backendTest(t, b)
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "usage.db")
	ctx := context.Background()
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	b, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("NewSQLiteBackend() error = %v", err)
	}
	if err := b.SaveBatch(ctx, sampleRecords(base)); err != nil {
		t.Fatalf("SaveBatch() error = %v", err)
	}
	b.Close()

	b2, err := NewSQLiteBackend(path)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer b2.Close()

	totals, err := b2.Totals(ctx, time.Time{})
	if err != nil {
		t.Fatalf("Totals() after reopen error = %v", err)
	}
	if len(totals) != 2 {
		t.Errorf("totals after reopen = %+v, want persisted data", totals)
	}
}

func TestAccountantBuffersAndFlushes(t *testing.T) {
	b := NewMemoryBackend()
	a := NewAccountant(b, time.Hour, nil) // interval long; flush manually
	defer a.Close()

	a.Record(UsageRecord{Time: time.Now(), Provider: "groq", Model: "llama-3.3-70b"})
	a.Record(UsageRecord{Time: time.Now(), Provider: "groq", Model: "llama-3.3-70b"})

	// Nothing hits the backend until a flush.
	totals, _ := b.Totals(context.Background(), time.Time{})
	if len(totals) != 0 {
		t.Fatalf("backend totals before flush = %+v, want empty", totals)
	}

	totals, err := a.Totals(context.Background(), time.Time{})
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if len(totals) != 1 || totals[0].Requests != 2 {
		t.Errorf("totals = %+v, want 2 flushed requests", totals)
	}
}

func TestMaintenancePurges(t *testing.T) {
	b := NewMemoryBackend()
	a := NewAccountant(b, time.Hour, nil)
	defer a.Close()

	old := time.Now().Add(-48 * time.Hour)
	a.Record(UsageRecord{Time: old, Provider: "groq", Model: "llama-3.3-70b"})
	a.Record(UsageRecord{Time: time.Now(), Provider: "groq", Model: "llama-3.3-70b"})

	m, err := NewMaintenance(a, "@every 50ms", 24*time.Hour, nil)
	if err != nil {
		t.Fatalf("NewMaintenance() error = %v", err)
	}
	m.Start()
	defer m.Stop()

	deadline := time.After(3 * time.Second)
	for {
		totals, _ := b.Totals(context.Background(), time.Time{})
		if len(totals) == 1 && totals[0].Requests == 1 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("maintenance never purged old records: %+v", totals)
		case <-time.After(20 * time.Millisecond):
		}
	}
}
