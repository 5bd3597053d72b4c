package routing

import "github.com/switchboard-ai/switchboard/pkg/config"

// Policy is the effective scoring policy for one principal after the
// three merge levels (global, tenant, user) are applied.
type Policy struct {
	// Scoring dimension weights, each finite and non-negative.
	WeightQuality float64
	WeightQuota   float64
	WeightSafety  float64
	WeightLatency float64

	// FreeTierBonus is added to free candidates when PreferFree is set.
	FreeTierBonus float64

	// MinScore drops candidates scoring below it.
	MinScore float64

	// PreferFree grants the free-tier bonus.
	PreferFree bool

	// Denied lists canonical model IDs this principal may not use.
	Denied map[string]bool
}

// PolicyFor merges the global policy with tenant and user overrides.
// Each field inherits from the broader level unless explicitly set at
// the narrower one; denied model lists accumulate across levels.
func PolicyFor(cfg *config.RoutingConfig, tenant, user string) Policy {
	p := Policy{
		WeightQuality: deref(cfg.Policy.Weights.Quality, config.DefaultWeightQuality),
		WeightQuota:   deref(cfg.Policy.Weights.Quota, config.DefaultWeightQuota),
		WeightSafety:  deref(cfg.Policy.Weights.Safety, config.DefaultWeightSafety),
		WeightLatency: deref(cfg.Policy.Weights.Latency, config.DefaultWeightLatency),
		FreeTierBonus: deref(cfg.Policy.FreeTierBonus, config.DefaultFreeTierBonus),
		MinScore:      deref(cfg.Policy.MinScore, 0),
		PreferFree:    deref(cfg.Policy.PreferFree, true),
		Denied:        make(map[string]bool),
	}

	if tenant != "" {
		if o, ok := cfg.Tenants[tenant]; ok {
			p.apply(o)
		}
	}
	if user != "" {
		if o, ok := cfg.Users[user]; ok {
			p.apply(o)
		}
	}
	return p
}

func (p *Policy) apply(o config.PolicyOverride) {
	if o.Weights.Quality != nil {
		p.WeightQuality = *o.Weights.Quality
	}
	if o.Weights.Quota != nil {
		p.WeightQuota = *o.Weights.Quota
	}
	if o.Weights.Safety != nil {
		p.WeightSafety = *o.Weights.Safety
	}
	if o.Weights.Latency != nil {
		p.WeightLatency = *o.Weights.Latency
	}
	if o.FreeTierBonus != nil {
		p.FreeTierBonus = *o.FreeTierBonus
	}
	if o.MinScore != nil {
		p.MinScore = *o.MinScore
	}
	if o.PreferFree != nil {
		p.PreferFree = *o.PreferFree
	}
	for _, id := range o.Denied {
		p.Denied[id] = true
	}
}

func deref[T any](p *T, def T) T {
	if p != nil {
		return *p
	}
	return def
}
