package routing

import (
	"log/slog"
	"sort"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/health"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/quota"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// Query describes one routing decision.
type Query struct {
	// Model is the client-supplied model name or alias.
	Model string

	// Endpoint is the API surface the request arrived on.
	Endpoint providers.EndpointKind

	// Capabilities are derived from the request body.
	Capabilities registry.CapabilitySet

	// Tenant and User identify the authenticated principal.
	Tenant string
	User   string
}

// Candidate is one scored provider binding able to serve a query.
type Candidate struct {
	Model      *registry.CanonicalModel
	Binding    providers.Binding
	Definition providers.Definition

	// Free reports whether the provider or binding is free tier.
	Free bool

	// Score is the policy-weighted score, higher better.
	Score float64

	// Healthy and OverQuota are the states observed at planning time.
	// The orchestrator re-checks both before each attempt.
	Healthy   bool
	OverQuota bool
}

// HealthKey is the candidate's key in the health store.
func (c Candidate) HealthKey() health.Key {
	return health.Key{Provider: c.Binding.ProviderKey, Model: c.Binding.CanonicalID}
}

// QuotaKey is the candidate's key in the quota tracker.
func (c Candidate) QuotaKey() quota.Key {
	return quota.Key{Provider: c.Binding.ProviderKey, Model: c.Binding.CanonicalID}
}

// Plan is the ordered routing plan for one query.
type Plan struct {
	Resolution Resolution
	Policy     Policy

	// Candidates are ordered free-first, then score descending, then
	// provider tier ascending.
	Candidates []Candidate
}

// Router builds routing plans from the live catalog snapshot and the
// health, quota, and latency views.
type Router struct {
	Registry *registry.Registry
	Health   *health.Store
	Quota    *quota.Tracker
	Latency  *costs.LatencyView
	Routing  *config.RoutingConfig
	Logger   *slog.Logger
}

// Build resolves and scores a query into an ordered plan. It returns a
// providers.Error with KindNotFound when no canonical model satisfies
// the query, and with KindUpstreamUnavailable when the model exists but
// every candidate is denied or below the score threshold.
func (r *Router) Build(q Query) (*Plan, error) {
	snap := r.Registry.Current()

	res, ok := Resolve(snap, q.Tenant, q.Model, q.Capabilities)
	if !ok {
		return nil, providers.Errorf(providers.KindNotFound, "",
			"model %q not found or does not support the requested capabilities", q.Model)
	}

	policy := PolicyFor(r.Routing, q.Tenant, q.User)
	if policy.Denied[res.CanonicalID] {
		return nil, providers.Errorf(providers.KindNotFound, "",
			"model %q is not available to this principal", q.Model)
	}

	plan := &Plan{Resolution: res, Policy: policy}
	for _, b := range res.Bindings {
		def, ok := snap.Provider(b.ProviderKey)
		if !ok || !def.Enabled {
			continue
		}

		c := Candidate{
			Model:      res.Model,
			Binding:    b,
			Definition: def,
			Free:       b.FreeTier || def.Free,
		}

		reqHeadroom, tokHeadroom := r.Quota.Headrooms(c.QuotaKey(), b.RateLimitRPM, b.RateLimitTPM)
		lat, observed := r.Latency.Estimate(costs.Key(c.QuotaKey()))

		c.Healthy = r.Health.IsHealthy(c.HealthKey())
		c.OverQuota = !r.Quota.Check(c.QuotaKey(), b.RateLimitRPM, b.RateLimitTPM).Allowed
		c.Score = Score(policy, Factors{
			Quality: res.Model.Quality,
			Quota:   tokHeadroom,
			Safety:  reqHeadroom,
			Latency: latencyFactor(lat, observed),
			Cost:    costFactor(res.Model, b),
		}, c.Free)

		if c.Score < policy.MinScore {
			continue
		}
		plan.Candidates = append(plan.Candidates, c)
	}

	if len(plan.Candidates) == 0 {
		return nil, providers.Errorf(providers.KindUpstreamUnavailable, "",
			"no routable candidates for model %q", q.Model)
	}

	sort.SliceStable(plan.Candidates, func(i, j int) bool {
		a, b := plan.Candidates[i], plan.Candidates[j]
		if a.Free != b.Free {
			return a.Free
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Definition.Tier < b.Definition.Tier
	})

	if r.Logger != nil {
		r.Logger.Debug("routing plan built",
			"model", q.Model,
			"canonical", res.CanonicalID,
			"candidates", len(plan.Candidates),
		)
	}
	return plan, nil
}
