package routing

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/health"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/quota"
)

func costKeyFor(c Candidate) costs.Key { return costs.Key(c.QuotaKey()) }

func healthKeyFor(k quota.Key) health.Key {
	return health.Key{Provider: k.Provider, Model: k.Model}
}

// scriptedRun returns canned outcomes per provider and counts calls.
type scriptedRun struct {
	errs  map[string]error
	calls []string
}

func (s *scriptedRun) run(_ context.Context, cand Candidate) (*Result, error) {
	key := cand.Definition.Key
	s.calls = append(s.calls, key)
	if err, ok := s.errs[key]; ok && err != nil {
		return nil, err
	}
	return &Result{Response: &providers.Response{
		ID:    "resp-" + key,
		Model: cand.Binding.CanonicalID,
		Usage: providers.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}}, nil
}

func newTestOrchestrator(t *testing.T, r *Router) *Orchestrator {
	t.Helper()
	return &Orchestrator{
		Router:  r,
		Health:  r.Health,
		Quota:   r.Quota,
		Latency: r.Latency,
	}
}

func TestExecuteFirstCandidateWins(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Candidate.Definition.Key != "groq" {
		t.Errorf("served by %q, want groq (free tier first)", out.Candidate.Definition.Key)
	}
	if out.Tier != 2 {
		t.Errorf("Tier = %d, want 2", out.Tier)
	}
	if len(out.Attempts) != 0 {
		t.Errorf("Attempts = %v, want none", out.Attempts)
	}
	if len(s.calls) != 1 {
		t.Errorf("calls = %v, want single attempt", s.calls)
	}

	// Success feeds the latency EMA and the health store.
	if _, ok := r.Latency.Estimate(costKeyFor(out.Candidate)); !ok {
		t.Error("success should record a latency observation")
	}
	if !r.Health.IsHealthy(out.Candidate.HealthKey()) {
		t.Error("successful binding must stay healthy")
	}
}

func TestExecutePreferredProviderFirst(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "openai", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Candidate.Definition.Key != "openai" || out.Tier != 1 {
		t.Errorf("served by %q tier %d, want openai tier 1", out.Candidate.Definition.Key, out.Tier)
	}
}

func TestExecuteFallsOverOnTransient(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq": providers.NewError(providers.KindTransient, "groq", "boom"),
	}}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Candidate.Definition.Key != "azure" {
		t.Errorf("served by %q, want azure (next in order)", out.Candidate.Definition.Key)
	}
	if len(out.Attempts) != 1 || out.Attempts[0].Kind != providers.KindTransient {
		t.Errorf("Attempts = %+v, want one transient failure", out.Attempts)
	}

	// The failed binding entered cooldown.
	failed := quota.Key{Provider: "groq", Model: "llama-3.3-70b"}
	if r.Health.IsHealthy(healthKeyFor(failed)) {
		t.Error("transient failure should cool the binding down")
	}
}

func TestExecuteTerminalStopsImmediately(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq": providers.NewError(providers.KindContextLengthExceeded, "groq", "too long"),
	}}

	_, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if providers.KindOf(err) != providers.KindContextLengthExceeded {
		t.Fatalf("Execute() kind = %v, want context_length_exceeded", providers.KindOf(err))
	}
	if len(s.calls) != 1 {
		t.Errorf("calls = %v, terminal faults must not fall over", s.calls)
	}

	// Client faults are not provider outages.
	failed := quota.Key{Provider: "groq", Model: "llama-3.3-70b"}
	if !r.Health.IsHealthy(healthKeyFor(failed)) {
		t.Error("terminal client fault must not mark the binding unhealthy")
	}
}

func TestExecuteCanceledStops(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq": providers.NewError(providers.KindCanceled, "groq", "client went away"),
	}}

	_, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if providers.KindOf(err) != providers.KindCanceled {
		t.Fatalf("Execute() kind = %v, want canceled", providers.KindOf(err))
	}
	if len(s.calls) != 1 {
		t.Errorf("calls = %v, cancellation must stop the loop", s.calls)
	}
}

func TestExecuteRateLimitedContinues(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq": &providers.Error{
			Kind: providers.KindRateLimited, Provider: "groq",
			Message: "slow down", RetryAfter: time.Minute,
		},
	}}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Candidate.Definition.Key != "azure" {
		t.Errorf("served by %q, want azure", out.Candidate.Definition.Key)
	}

	failed := quota.Key{Provider: "groq", Model: "llama-3.3-70b"}
	if r.Health.IsHealthy(healthKeyFor(failed)) {
		t.Error("rate-limited binding should honor the Retry-After cooldown")
	}
}

func TestExecuteEmergencyTierIgnoresQuota(t *testing.T) {
	cfg := routerConfig()
	cfg.Models[0].Bindings[2].RPM = 1 // groq
	r := newTestRouter(t, cfg)
	o := newTestOrchestrator(t, r)

	// Exhaust groq's request budget, and fail both paid providers.
	r.Quota.RecordRequest(quota.Key{Provider: "groq", Model: "llama-3.3-70b"})
	s := &scriptedRun{errs: map[string]error{
		"azure":  providers.NewError(providers.KindUpstreamUnavailable, "azure", "down"),
		"openai": providers.NewError(providers.KindUpstreamUnavailable, "openai", "down"),
	}}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if out.Candidate.Definition.Key != "groq" || out.Tier != 4 {
		t.Errorf("served by %q tier %d, want groq via emergency tier 4", out.Candidate.Definition.Key, out.Tier)
	}
	if len(out.Attempts) != 2 {
		t.Errorf("Attempts = %+v, want the two paid failures", out.Attempts)
	}
}

func TestExecuteExhaustionEnumeratesAttempts(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq":   providers.NewError(providers.KindTransient, "groq", "a"),
		"azure":  providers.NewError(providers.KindUpstreamUnavailable, "azure", "b"),
		"openai": providers.NewError(providers.KindTransient, "openai", "c"),
	}}

	_, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if providers.KindOf(err) != providers.KindUpstreamUnavailable {
		t.Fatalf("Execute() kind = %v, want upstream_unavailable", providers.KindOf(err))
	}
	for _, part := range []string{"groq", "azure", "openai", "transient"} {
		if !strings.Contains(err.Error(), part) {
			t.Errorf("exhaustion error %q should mention %q", err.Error(), part)
		}
	}
}

func TestExecuteFailedAttemptLeavesQuotaUntouched(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{errs: map[string]error{
		"groq": providers.NewError(providers.KindRateLimited, "groq", "slow down"),
	}}

	out, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run)
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	reqs, _ := r.Quota.Headrooms(quota.Key{Provider: "groq", Model: "llama-3.3-70b"}, 10, 0)
	if reqs != 1 {
		t.Errorf("request headroom for rate-limited groq = %v, want untouched (1)", reqs)
	}
	reqs, _ = r.Quota.Headrooms(out.Candidate.QuotaKey(), 10, 0)
	if reqs >= 1 {
		t.Errorf("request headroom for serving %q = %v, want reduced", out.Candidate.Definition.Key, reqs)
	}
}

func TestTierCandidatesPreferredSkippedInTierOne(t *testing.T) {
	o := &Orchestrator{}
	plan := &Plan{Candidates: []Candidate{
		{Definition: providers.Definition{Key: "groq"}, Free: true},
		{Definition: providers.Definition{Key: "azure"}, Free: true},
		{Definition: providers.Definition{Key: "openai"}},
	}}

	keys := func(cands []Candidate) []string {
		out := make([]string, 0, len(cands))
		for _, c := range cands {
			out = append(out, c.Definition.Key)
		}
		return out
	}

	// Tier 1 attempted the preferred candidate: exclude it from its
	// natural tier.
	got := keys(o.tierCandidates(plan, 2, "groq", true))
	if len(got) != 1 || got[0] != "azure" {
		t.Errorf("tier 2 after attempted tier 1 = %v, want [azure]", got)
	}

	// Tier 1 skipped it (health or quota): it stays eligible.
	got = keys(o.tierCandidates(plan, 2, "groq", false))
	if len(got) != 2 || got[0] != "groq" || got[1] != "azure" {
		t.Errorf("tier 2 after skipped tier 1 = %v, want [groq azure]", got)
	}

	got = keys(o.tierCandidates(plan, 3, "openai", false))
	if len(got) != 1 || got[0] != "openai" {
		t.Errorf("tier 3 after skipped tier 1 = %v, want [openai]", got)
	}
}

func TestExecuteContextCanceledBeforeAttempt(t *testing.T) {
	r := newTestRouter(t, routerConfig())
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := o.Execute(ctx, Query{Model: "llama-3.3-70b"}, "", s.run)
	if providers.KindOf(err) != providers.KindCanceled {
		t.Fatalf("Execute() kind = %v, want canceled", providers.KindOf(err))
	}
	if len(s.calls) != 0 {
		t.Errorf("calls = %v, want none with canceled context", s.calls)
	}
}

func TestExecuteRecordsUsage(t *testing.T) {
	cfg := routerConfig()
	cfg.Models[0].Bindings[2].TPM = 1000 // groq
	r := newTestRouter(t, cfg)
	o := newTestOrchestrator(t, r)
	s := &scriptedRun{}

	if _, err := o.Execute(context.Background(), Query{Model: "llama-3.3-70b"}, "", s.run); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	_, tok := r.Quota.Headrooms(quota.Key{Provider: "groq", Model: "llama-3.3-70b"}, 0, 1000)
	if tok >= 1 {
		t.Errorf("token headroom = %v, want reduced by recorded usage", tok)
	}
}
