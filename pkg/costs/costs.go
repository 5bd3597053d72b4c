// Package costs computes per-binding pricing and maintains observed
// latency estimates for routing decisions.
package costs

import (
	"sync"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// emaAlpha is the smoothing factor of the latency moving average. Higher
// values react faster to latency shifts.
const emaAlpha = 0.2

// tokensPerMillion converts per-1M prices to per-token prices.
const tokensPerMillion = 1_000_000

// Pricing is the effective USD price of one binding.
type Pricing struct {
	InputPer1M  float64
	OutputPer1M float64
}

// PricingFor resolves the effective pricing of a binding: binding-level
// overrides win over the canonical model's prices, and free-tier
// bindings always price at zero.
func PricingFor(model *registry.CanonicalModel, binding providers.Binding) Pricing {
	if binding.FreeTier {
		return Pricing{}
	}

	p := Pricing{
		InputPer1M:  model.InputPricePer1M,
		OutputPer1M: model.OutputPricePer1M,
	}
	if binding.OverrideInputPrice != nil {
		p.InputPer1M = *binding.OverrideInputPrice
	}
	if binding.OverrideOutputPrice != nil {
		p.OutputPer1M = *binding.OverrideOutputPrice
	}
	return p
}

// Cost returns the USD cost of a completed call under this pricing.
func (p Pricing) Cost(usage providers.Usage) float64 {
	in := float64(usage.PromptTokens) * p.InputPer1M / tokensPerMillion
	out := float64(usage.CompletionTokens) * p.OutputPer1M / tokensPerMillion
	return in + out
}

// Blended returns a single comparable per-1M price assuming a typical
// 3:1 input to output token mix.
func (p Pricing) Blended() float64 {
	return (3*p.InputPer1M + p.OutputPer1M) / 4
}

// Key identifies one binding in the latency view.
type Key struct {
	Provider string
	Model    string
}

// LatencyView maintains an exponential moving average of observed
// request latency per binding.
type LatencyView struct {
	mu      sync.Mutex
	entries map[Key]time.Duration
}

// NewLatencyView creates an empty latency view.
func NewLatencyView() *LatencyView {
	return &LatencyView{entries: make(map[Key]time.Duration)}
}

// Observe folds one observed latency into the binding's moving average.
func (v *LatencyView) Observe(k Key, latency time.Duration) {
	if latency <= 0 {
		return
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	prev, ok := v.entries[k]
	if !ok {
		v.entries[k] = latency
		return
	}
	v.entries[k] = time.Duration(emaAlpha*float64(latency) + (1-emaAlpha)*float64(prev))
}

// Estimate returns the binding's smoothed latency. Unobserved bindings
// return ok=false; callers treat them neutrally.
func (v *LatencyView) Estimate(k Key) (time.Duration, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()

	d, ok := v.entries[k]
	return d, ok
}
