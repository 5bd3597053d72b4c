package routing

import (
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

func resolverSnapshot(t *testing.T) *registry.Snapshot {
	t.Helper()
	unavailable := false
	cfg := &config.Config{
		Providers: map[string]config.ProviderConfig{
			"groq":   {BaseURL: "https://api.groq.com/openai/v1", Tier: 2, Free: true},
			"openai": {BaseURL: "https://api.openai.com/v1", Tier: 3},
		},
		Models: []config.ModelConfig{
			{
				ID: "llama-3.3-70b", ContextWindow: 131072,
				Capabilities: []string{"chat", "tools", "streaming"},
				Bindings: []config.BindingConfig{
					{Provider: "groq", ModelID: "llama-3.3-70b-versatile"},
				},
			},
			{
				ID: "gpt-4o-mini", ContextWindow: 128000,
				Capabilities: []string{"chat", "vision", "tools", "json_mode", "streaming"},
				Bindings: []config.BindingConfig{
					{Provider: "openai", ModelID: "gpt-4o-mini"},
				},
			},
			{
				ID: "dead-model", ContextWindow: 8192,
				Capabilities: []string{"chat"},
				Bindings: []config.BindingConfig{
					{Provider: "openai", ModelID: "dead", Available: &unavailable},
				},
			},
		},
		Aliases: []config.AliasConfig{
			{Name: "fast", Targets: []string{"llama-3.3-70b", "gpt-4o-mini"}},
			{Name: "fast", Tenant: "acme", Targets: []string{"gpt-4o-mini"}},
			{Name: "retired", Targets: []string{"dead-model", "gpt-4o-mini"}},
		},
	}
	config.ApplyDefaults(cfg)
	snap, err := registry.NewSnapshot(cfg)
	if err != nil {
		t.Fatalf("NewSnapshot() error = %v", err)
	}
	return snap
}

func TestResolve(t *testing.T) {
	snap := resolverSnapshot(t)

	tests := []struct {
		name   string
		tenant string
		model  string
		caps   registry.CapabilitySet
		wantOK bool
		wantID string
	}{
		{
			name: "global alias takes first target",
			model: "fast", wantOK: true, wantID: "llama-3.3-70b",
		},
		{
			name: "tenant alias shadows global",
			tenant: "acme", model: "fast", wantOK: true, wantID: "gpt-4o-mini",
		},
		{
			name: "capability skips to next target",
			model: "fast", caps: registry.NewCapabilitySet("vision"),
			wantOK: true, wantID: "gpt-4o-mini",
		},
		{
			name: "canonical id resolves directly",
			model: "gpt-4o-mini", wantOK: true, wantID: "gpt-4o-mini",
		},
		{
			name: "no available bindings skips candidate",
			model: "retired", wantOK: true, wantID: "gpt-4o-mini",
		},
		{
			name: "unknown model",
			model: "nope", wantOK: false,
		},
		{
			name: "capability nobody has",
			model: "fast", caps: registry.NewCapabilitySet("embedding"),
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, ok := Resolve(snap, tt.tenant, tt.model, tt.caps)
			if ok != tt.wantOK {
				t.Fatalf("Resolve() ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if res.CanonicalID != tt.wantID {
				t.Errorf("CanonicalID = %q, want %q", res.CanonicalID, tt.wantID)
			}
			if len(res.Bindings) == 0 {
				t.Error("resolution must carry at least one binding")
			}
			for _, b := range res.Bindings {
				if !b.Available {
					t.Errorf("unavailable binding %s leaked into resolution", b.ProviderKey)
				}
			}
		})
	}
}
