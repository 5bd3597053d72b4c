package health

import (
	"testing"
	"time"
)

// fixedClock lets tests advance time deterministically.
type fixedClock struct{ t time.Time }

func (c *fixedClock) now() time.Time            { return c.t }
func (c *fixedClock) advance(d time.Duration)   { c.t = c.t.Add(d) }

func newTestStore(base, max time.Duration) (*Store, *fixedClock) {
	clock := &fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := NewStore(base, max)
	s.now = clock.now
	return s, clock
}

func TestUnknownBindingIsHealthy(t *testing.T) {
	s, _ := newTestStore(10*time.Second, 5*time.Minute)
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	if !s.IsHealthy(k) {
		t.Error("untracked binding should be healthy")
	}
	if got := s.SafetyScore(k); got != 1 {
		t.Errorf("SafetyScore = %v, want 1", got)
	}
}

func TestCooldownDoubles(t *testing.T) {
	s, clock := newTestStore(10*time.Second, 5*time.Minute)
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	// First failure: 10s cooldown.
	s.MarkFailure(k)
	if s.IsHealthy(k) {
		t.Fatal("binding should be cooling down after failure")
	}
	clock.advance(9 * time.Second)
	if s.IsHealthy(k) {
		t.Fatal("cooldown should still hold at 9s")
	}
	clock.advance(time.Second)
	if !s.IsHealthy(k) {
		t.Fatal("cooldown should expire at 10s")
	}

	// Second consecutive failure: 20s cooldown.
	s.MarkFailure(k)
	clock.advance(19 * time.Second)
	if s.IsHealthy(k) {
		t.Fatal("second cooldown should be 20s")
	}
	clock.advance(time.Second)
	if !s.IsHealthy(k) {
		t.Fatal("second cooldown should expire at 20s")
	}

	// Third: 40s.
	s.MarkFailure(k)
	clock.advance(39 * time.Second)
	if s.IsHealthy(k) {
		t.Fatal("third cooldown should be 40s")
	}
}

func TestCooldownCapped(t *testing.T) {
	s, clock := newTestStore(10*time.Second, time.Minute)
	k := Key{Provider: "openai", Model: "gpt-4o-mini"}

	// 10 failures would be 10s * 2^9 uncapped; the cap holds it at 1m.
	for i := 0; i < 10; i++ {
		s.MarkFailure(k)
	}
	clock.advance(time.Minute - time.Second)
	if s.IsHealthy(k) {
		t.Fatal("capped cooldown should still hold just before the cap")
	}
	clock.advance(time.Second)
	if !s.IsHealthy(k) {
		t.Fatal("capped cooldown should expire at the cap")
	}
}

func TestSuccessResets(t *testing.T) {
	s, _ := newTestStore(10*time.Second, 5*time.Minute)
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	s.MarkFailure(k)
	s.MarkFailure(k)
	s.MarkSuccess(k)

	if !s.IsHealthy(k) {
		t.Error("success should clear the cooldown")
	}
	if got := s.SafetyScore(k); got != 1 {
		t.Errorf("SafetyScore after success = %v, want 1", got)
	}

	// The failure streak restarts from the base cooldown.
	s.MarkFailure(k)
	st := find(t, s, k)
	if st.ConsecutiveFailures != 1 {
		t.Errorf("ConsecutiveFailures = %d, want 1 after reset", st.ConsecutiveFailures)
	}
}

func TestSafetyScoreDegrades(t *testing.T) {
	s, clock := newTestStore(10*time.Second, 5*time.Minute)
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	s.MarkFailure(k)
	if got := s.SafetyScore(k); got != 0 {
		t.Errorf("SafetyScore during cooldown = %v, want 0", got)
	}

	clock.advance(time.Minute)
	got := s.SafetyScore(k)
	if got != 0.75 {
		t.Errorf("SafetyScore after one failure = %v, want 0.75", got)
	}

	// Heavy failure history floors at 0.1 once routable again.
	for i := 0; i < 10; i++ {
		s.MarkFailure(k)
	}
	clock.advance(10 * time.Minute)
	if got := s.SafetyScore(k); got != 0.1 {
		t.Errorf("SafetyScore floor = %v, want 0.1", got)
	}
}

func TestMarkFailureForUsesFixedCooldown(t *testing.T) {
	s, clock := newTestStore(10*time.Second, 5*time.Minute)
	k := Key{Provider: "groq", Model: "llama-3.3-70b"}

	// Rate-limit pushback: fixed 30s regardless of failure count.
	s.MarkFailureFor(k, 30*time.Second)
	s.MarkFailureFor(k, 30*time.Second)

	clock.advance(29 * time.Second)
	if s.IsHealthy(k) {
		t.Fatal("fixed cooldown should still hold at 29s")
	}
	clock.advance(time.Second)
	if !s.IsHealthy(k) {
		t.Fatal("fixed cooldown should expire at 30s")
	}

	// The cap still applies to caller-chosen cooldowns.
	s.MarkFailureFor(k, time.Hour)
	clock.advance(5 * time.Minute)
	if !s.IsHealthy(k) {
		t.Fatal("fixed cooldown should be capped at the store max")
	}
}

func TestBindingsAreIndependent(t *testing.T) {
	s, _ := newTestStore(10*time.Second, 5*time.Minute)
	a := Key{Provider: "groq", Model: "llama-3.3-70b"}
	b := Key{Provider: "groq", Model: "mixtral-8x7b"}

	s.MarkFailure(a)
	if !s.IsHealthy(b) {
		t.Error("failure on one binding must not affect another")
	}
}

func find(t *testing.T, s *Store, k Key) Status {
	t.Helper()
	for _, st := range s.Snapshot() {
		if st.Key == k {
			return st
		}
	}
	t.Fatalf("binding %v not in snapshot", k)
	return Status{}
}
