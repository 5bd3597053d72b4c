package quota

import (
	"testing"
	"time"
)

func newTestTracker() (*Tracker, *time.Time) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	t := NewTracker()
	t.now = func() time.Time { return now }
	return t, &now
}

func TestUnlimitedAlwaysAllows(t *testing.T) {
	tr, _ := newTestTracker()
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	for i := 0; i < 1000; i++ {
		tr.RecordRequest(k)
	}
	d := tr.Check(k, 0, 0)
	if !d.Allowed || d.Headroom != 1 {
		t.Errorf("unlimited check = %+v, want allowed with headroom 1", d)
	}
}

func TestRPMBudget(t *testing.T) {
	tr, now := newTestTracker()
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	for i := 0; i < 29; i++ {
		tr.RecordRequest(k)
	}
	if d := tr.Check(k, 30, 0); !d.Allowed {
		t.Fatalf("29/30 requests should admit one more: %+v", d)
	}

	tr.RecordRequest(k)
	d := tr.Check(k, 30, 0)
	if d.Allowed {
		t.Fatalf("30/30 requests should reject: %+v", d)
	}
	if d.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", d.RetryAfter)
	}

	// The window slides: a minute later the budget is free again.
	*now = now.Add(61 * time.Second)
	if d := tr.Check(k, 30, 0); !d.Allowed || d.Headroom != 1 {
		t.Errorf("check after window slide = %+v, want full headroom", d)
	}
}

func TestTPMBudget(t *testing.T) {
	tr, _ := newTestTracker()
	k := Key{Provider: "openai", Model: "gpt-4o-mini"}

	tr.RecordUsage(k, 5500)
	if d := tr.Check(k, 0, 6000); !d.Allowed {
		t.Fatalf("5500/6000 tokens should still admit: %+v", d)
	}

	tr.RecordUsage(k, 500)
	if d := tr.Check(k, 0, 6000); d.Allowed {
		t.Fatalf("6000/6000 tokens should reject: %+v", d)
	}
}

func TestHeadroomIsTighterBudget(t *testing.T) {
	tr, _ := newTestTracker()
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	// 50% of requests used, 90% of tokens used.
	for i := 0; i < 5; i++ {
		tr.RecordRequest(k)
	}
	tr.RecordUsage(k, 900)

	got := tr.Headroom(k, 10, 1000)
	if got < 0.09 || got > 0.11 {
		t.Errorf("Headroom = %v, want ~0.1 (token budget is tighter)", got)
	}
}

func TestZeroTokenUsageIgnored(t *testing.T) {
	tr, _ := newTestTracker()
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	tr.RecordUsage(k, 0)
	tr.RecordUsage(k, -5)
	if d := tr.Check(k, 0, 10); d.Headroom != 1 {
		t.Errorf("Headroom = %v, want 1 after ignored usage", d.Headroom)
	}
}

func TestBindingsAreIndependent(t *testing.T) {
	tr, _ := newTestTracker()
	a := Key{Provider: "groq", Model: "llama-3.3-70b"}
	b := Key{Provider: "groq", Model: "mixtral-8x7b"}

	for i := 0; i < 30; i++ {
		tr.RecordRequest(a)
	}
	if d := tr.Check(b, 30, 0); !d.Allowed {
		t.Errorf("budget on one binding must not affect another: %+v", d)
	}
}

func TestSlidingWindowPartialExpiry(t *testing.T) {
	tr, now := newTestTracker()
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	// 20 requests now, 10 requests 30s later.
	for i := 0; i < 20; i++ {
		tr.RecordRequest(k)
	}
	*now = now.Add(30 * time.Second)
	for i := 0; i < 10; i++ {
		tr.RecordRequest(k)
	}

	if d := tr.Check(k, 30, 0); d.Allowed {
		t.Fatalf("30 requests in window should reject: %+v", d)
	}

	// 31s later the first burst has left the window; only 10 remain.
	*now = now.Add(31 * time.Second)
	d := tr.Check(k, 30, 0)
	if !d.Allowed {
		t.Fatalf("after partial expiry check should admit: %+v", d)
	}
	if d.Headroom < 0.6 || d.Headroom > 0.7 {
		t.Errorf("Headroom = %v, want ~0.66", d.Headroom)
	}
}
