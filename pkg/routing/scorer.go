package routing

import (
	"time"

	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// costWeight is the fixed weight of the price factor. It is not policy
// controlled; it exists to break ties between otherwise equal
// candidates, not to let price dominate routing.
const costWeight = 0.1

// Normalization bounds for the latency and price factors.
const (
	maxLatency     = 5 * time.Second
	maxPricePer1K  = 0.1 // USD per 1K tokens at the top of the scale
	neutralLatency = 0.5 // factor for bindings with no latency history
)

// Factors are the normalized scoring inputs of one candidate, each in
// [0,1].
type Factors struct {
	// Quality is the canonical model's quality score.
	Quality float64

	// Quota is the remaining fraction of the token budget.
	Quota float64

	// Safety is the remaining fraction of the request budget.
	Safety float64

	// Latency is 1 for instant bindings, 0 at maxLatency and beyond.
	Latency float64

	// Cost is 1 for free bindings, 0 at maxPricePer1K and beyond.
	Cost float64
}

// Score computes the candidate's weighted score on a 0-100 scale, plus
// the free-tier bonus when the policy prefers free candidates.
func Score(p Policy, f Factors, free bool) float64 {
	s := 100 * (p.WeightQuality*f.Quality +
		p.WeightQuota*f.Quota +
		p.WeightSafety*f.Safety +
		p.WeightLatency*f.Latency +
		costWeight*f.Cost)
	if free && p.PreferFree {
		s += p.FreeTierBonus
	}
	return s
}

// latencyFactor maps a smoothed latency observation onto [0,1].
func latencyFactor(d time.Duration, observed bool) float64 {
	if !observed {
		return neutralLatency
	}
	f := 1 - float64(d)/float64(maxLatency)
	return clamp01(f)
}

// costFactor maps a binding's blended price onto [0,1], cheaper higher.
func costFactor(model *registry.CanonicalModel, binding providers.Binding) float64 {
	pricing := costs.PricingFor(model, binding)
	per1K := pricing.Blended() / 1000
	return clamp01(1 - per1K/maxPricePer1K)
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
