package routing

import (
	"testing"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/health"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/quota"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// routerConfig builds a catalog with one model served by a free tier-2
// provider and two paid providers on tiers 1 and 3.
func routerConfig() *config.Config {
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"groq":   {BaseURL: "https://api.groq.com/openai/v1", Tier: 2, Free: true},
			"azure":  {BaseURL: "https://example.openai.azure.com/v1", Tier: 1},
			"openai": {BaseURL: "https://api.openai.com/v1", Tier: 3},
		},
		Models: []config.ModelConfig{
			{
				ID: "llama-3.3-70b", ContextWindow: 131072,
				Capabilities: []string{"chat", "streaming"},
				Bindings: []config.BindingConfig{
					{Provider: "azure", ModelID: "llama-azure"},
					{Provider: "openai", ModelID: "llama-oai"},
					{Provider: "groq", ModelID: "llama-3.3-70b-versatile"},
				},
			},
		},
	}
	config.ApplyDefaults(cfg)
	return cfg
}

func newTestRouter(t *testing.T, cfg *config.Config) *Router {
	t.Helper()
	reg, err := registry.FromConfig(cfg, nil)
	if err != nil {
		t.Fatalf("FromConfig() error = %v", err)
	}
	return &Router{
		Registry: reg,
		Health:   health.NewStore(10*time.Second, 5*time.Minute),
		Quota:    quota.NewTracker(),
		Latency:  costs.NewLatencyView(),
		Routing:  &cfg.Routing,
	}
}

func TestBuildOrdering(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	plan, err := r.Build(Query{Model: "llama-3.3-70b"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(plan.Candidates) != 3 {
		t.Fatalf("len(candidates) = %d, want 3", len(plan.Candidates))
	}

	// Free first; equal-scored paid candidates tie-break on tier.
	got := []string{
		plan.Candidates[0].Definition.Key,
		plan.Candidates[1].Definition.Key,
		plan.Candidates[2].Definition.Key,
	}
	want := []string{"groq", "azure", "openai"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("candidate order = %v, want %v", got, want)
		}
	}

	if plan.Candidates[0].Score <= plan.Candidates[1].Score {
		t.Errorf("free candidate should outscore paid via bonus: %v vs %v",
			plan.Candidates[0].Score, plan.Candidates[1].Score)
	}
}

func TestBuildUnknownModel(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	_, err := r.Build(Query{Model: "missing"})
	if providers.KindOf(err) != providers.KindNotFound {
		t.Errorf("Build(unknown) kind = %v, want not_found", providers.KindOf(err))
	}
}

func TestBuildDeniedModel(t *testing.T) {
	cfg := routerConfig()
	cfg.Routing.Tenants = map[string]config.PolicyOverride{
		"acme": {Denied: []string{"llama-3.3-70b"}},
	}
	r := newTestRouter(t, cfg)

	_, err := r.Build(Query{Model: "llama-3.3-70b", Tenant: "acme"})
	if providers.KindOf(err) != providers.KindNotFound {
		t.Errorf("Build(denied) kind = %v, want not_found", providers.KindOf(err))
	}

	// Other tenants are unaffected.
	if _, err := r.Build(Query{Model: "llama-3.3-70b", Tenant: "globex"}); err != nil {
		t.Errorf("Build(other tenant) error = %v", err)
	}
}

func TestBuildMinScoreDropsAll(t *testing.T) {
	cfg := routerConfig()
	high := 1000.0
	cfg.Routing.Policy.MinScore = &high
	r := newTestRouter(t, cfg)

	_, err := r.Build(Query{Model: "llama-3.3-70b"})
	if providers.KindOf(err) != providers.KindUpstreamUnavailable {
		t.Errorf("Build(min score) kind = %v, want upstream_unavailable", providers.KindOf(err))
	}
}

func TestBuildMarksOverQuota(t *testing.T) {
	cfg := routerConfig()
	cfg.Models[0].Bindings[2].RPM = 1 // groq
	r := newTestRouter(t, cfg)

	r.Quota.RecordRequest(quota.Key{Provider: "groq", Model: "llama-3.3-70b"})

	plan, err := r.Build(Query{Model: "llama-3.3-70b"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	for _, c := range plan.Candidates {
		if c.Definition.Key == "groq" && !c.OverQuota {
			t.Error("groq should be flagged over quota in the plan")
		}
	}
}

func TestBuildCapabilityFilter(t *testing.T) {
	r := newTestRouter(t, routerConfig())

	_, err := r.Build(Query{
		Model:        "llama-3.3-70b",
		Capabilities: registry.NewCapabilitySet("vision"),
	})
	if providers.KindOf(err) != providers.KindNotFound {
		t.Errorf("Build(vision) kind = %v, want not_found", providers.KindOf(err))
	}
}
