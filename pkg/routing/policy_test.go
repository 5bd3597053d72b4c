package routing

import (
	"testing"

	"github.com/switchboard-ai/switchboard/pkg/config"
)

func f(v float64) *float64 { return &v }
func b(v bool) *bool       { return &v }

func TestPolicyForMerge(t *testing.T) {
	cfg := &config.RoutingConfig{
		Policy: config.PolicyConfig{
			Weights:       config.WeightsConfig{Quality: f(0.5), Quota: f(0.2), Safety: f(0.2), Latency: f(0.1)},
			FreeTierBonus: f(50),
			PreferFree:    b(true),
		},
		Tenants: map[string]config.PolicyOverride{
			"acme": {
				Weights: config.WeightsConfig{Quality: f(0.9)},
				Denied:  []string{"expensive-model"},
			},
		},
		Users: map[string]config.PolicyOverride{
			"alice": {
				FreeTierBonus: f(0),
				PreferFree:    b(false),
				Denied:        []string{"other-model"},
			},
		},
	}

	t.Run("global only", func(t *testing.T) {
		p := PolicyFor(cfg, "", "")
		if p.WeightQuality != 0.5 || p.FreeTierBonus != 50 || !p.PreferFree {
			t.Errorf("global policy = %+v", p)
		}
		if len(p.Denied) != 0 {
			t.Errorf("global policy should deny nothing, got %v", p.Denied)
		}
	})

	t.Run("tenant overrides inherit rest", func(t *testing.T) {
		p := PolicyFor(cfg, "acme", "")
		if p.WeightQuality != 0.9 {
			t.Errorf("WeightQuality = %v, want tenant override 0.9", p.WeightQuality)
		}
		if p.WeightQuota != 0.2 || p.FreeTierBonus != 50 {
			t.Errorf("unset tenant fields must inherit global: %+v", p)
		}
		if !p.Denied["expensive-model"] {
			t.Error("tenant denial missing")
		}
	})

	t.Run("user layer wins and denials accumulate", func(t *testing.T) {
		p := PolicyFor(cfg, "acme", "alice")
		if p.WeightQuality != 0.9 {
			t.Errorf("WeightQuality = %v, want tenant value 0.9", p.WeightQuality)
		}
		if p.FreeTierBonus != 0 || p.PreferFree {
			t.Errorf("user overrides not applied: %+v", p)
		}
		if !p.Denied["expensive-model"] || !p.Denied["other-model"] {
			t.Errorf("denials should accumulate across levels: %v", p.Denied)
		}
	})

	t.Run("unknown principals use global", func(t *testing.T) {
		p := PolicyFor(cfg, "globex", "bob")
		if p.WeightQuality != 0.5 || p.FreeTierBonus != 50 {
			t.Errorf("unknown principal policy = %+v", p)
		}
	})
}

func TestPolicyForDefaults(t *testing.T) {
	p := PolicyFor(&config.RoutingConfig{}, "", "")
	if p.WeightQuality != config.DefaultWeightQuality {
		t.Errorf("WeightQuality = %v, want default", p.WeightQuality)
	}
	if p.FreeTierBonus != config.DefaultFreeTierBonus {
		t.Errorf("FreeTierBonus = %v, want default %v", p.FreeTierBonus, config.DefaultFreeTierBonus)
	}
	if !p.PreferFree {
		t.Error("PreferFree should default to true")
	}
}
