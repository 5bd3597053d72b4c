package routing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/health"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/quota"
)

// defaultRateLimitCooldown is applied on RateLimited or QuotaExhausted
// outcomes when the upstream does not send a Retry-After hint.
const defaultRateLimitCooldown = 30 * time.Second

// Result is what one attempt produced. Exactly one of Response or
// Stream is set.
type Result struct {
	// Response is the completed non-streaming result.
	Response *providers.Response

	// Stream is a live chunk stream. The orchestrator considers a
	// streaming attempt successful once the run function returns it;
	// usage is reported later via RecordStreamUsage.
	Stream <-chan *providers.StreamChunk
}

// RunFunc performs one provider attempt. Implementations must return a
// providers.Error (or an error wrapping one) on failure so the
// orchestrator can classify the outcome.
type RunFunc func(ctx context.Context, cand Candidate) (*Result, error)

// Attempt records one failed provider attempt for diagnostics.
type Attempt struct {
	Provider string
	Model    string
	Kind     providers.Kind
	Err      error
	Latency  time.Duration
}

// Outcome is a successful execution.
type Outcome struct {
	Result    *Result
	Candidate Candidate

	// Attempts lists the failures that preceded the success.
	Attempts []Attempt

	// Tier is the fallback tier (1-4) that produced the result.
	Tier int
}

// Observer receives orchestration events for metrics.
type Observer interface {
	AttemptFinished(provider, model, outcome string, latency time.Duration)
	FallbackDepth(depth int)
}

// Orchestrator drives the four-tier fallback loop over a routing plan.
type Orchestrator struct {
	Router   *Router
	Health   *health.Store
	Quota    *quota.Tracker
	Latency  *costs.LatencyView
	Logger   *slog.Logger
	Observer Observer

	// RateLimitCooldown overrides the default pushback cooldown.
	RateLimitCooldown time.Duration
}

// Execute resolves the query and walks the fallback tiers until an
// attempt succeeds:
//
//	T1: exactly the preferred provider, when present in the plan.
//	T2: free candidates, in plan order.
//	T3: paid candidates, in plan order.
//	T4: emergency; every candidate that is healthy, quota ignored.
//
// Health and quota are re-checked immediately before each attempt.
// Client-side faults (invalid request, auth, not found, context
// overflow) and cancellation stop the loop; rate limits and transient
// upstream failures mark the binding and move on. When every tier is
// exhausted the error is KindUpstreamUnavailable and enumerates the
// per-attempt failures.
func (o *Orchestrator) Execute(ctx context.Context, q Query, preferred string, run RunFunc) (*Outcome, error) {
	plan, err := o.Router.Build(q)
	if err != nil {
		return nil, err
	}
	return o.executePlan(ctx, plan, preferred, run)
}

func (o *Orchestrator) executePlan(ctx context.Context, plan *Plan, preferred string, run RunFunc) (*Outcome, error) {
	var attempts []Attempt
	var preferredAttempted bool

	for tier := 1; tier <= 4; tier++ {
		for _, cand := range o.tierCandidates(plan, tier, preferred, preferredAttempted) {
			if ctx.Err() != nil {
				return nil, &providers.Error{
					Kind: providers.KindCanceled, Message: "request canceled", Cause: ctx.Err(),
				}
			}

			hk, qk := cand.HealthKey(), cand.QuotaKey()
			if !o.Health.IsHealthy(hk) {
				continue
			}
			if tier < 4 {
				d := o.Quota.Check(qk, cand.Binding.RateLimitRPM, cand.Binding.RateLimitTPM)
				if !d.Allowed {
					continue
				}
			}

			if tier == 1 {
				preferredAttempted = true
			}
			start := time.Now()
			result, err := run(ctx, cand)
			latency := time.Since(start)

			if err == nil {
				o.Health.MarkSuccess(hk)
				o.Latency.Observe(costs.Key(qk), latency)
				// Quota counts only what the upstream actually served; a
				// failed attempt must not eat into the binding's budget.
				o.Quota.RecordRequest(qk)
				if result != nil && result.Response != nil {
					o.Quota.RecordUsage(qk, result.Response.Usage.TotalTokens)
				}
				o.observe(cand, "success", latency)
				o.observeDepth(len(attempts))
				if o.Logger != nil && len(attempts) > 0 {
					o.Logger.Info("request served after fallback",
						"provider", cand.Definition.Key,
						"model", cand.Binding.CanonicalID,
						"tier", tier,
						"failed_attempts", len(attempts),
					)
				}
				return &Outcome{Result: result, Candidate: cand, Attempts: attempts, Tier: tier}, nil
			}

			kind := providers.KindOf(err)
			attempts = append(attempts, Attempt{
				Provider: cand.Definition.Key,
				Model:    cand.Binding.CanonicalID,
				Kind:     kind,
				Err:      err,
				Latency:  latency,
			})
			o.observe(cand, kind.String(), latency)

			switch {
			case kind == providers.KindCanceled:
				return nil, err

			case kind.Terminal():
				// Client-side faults are not provider outages; surface
				// them without touching the health store.
				return nil, err

			case kind == providers.KindRateLimited || kind == providers.KindQuotaExhausted:
				o.Health.MarkFailureFor(hk, o.pushbackCooldown(err))

			default:
				o.Health.MarkFailure(hk)
			}

			if o.Logger != nil {
				o.Logger.Warn("provider attempt failed",
					"provider", cand.Definition.Key,
					"model", cand.Binding.CanonicalID,
					"tier", tier,
					"kind", kind.String(),
					"error", err,
				)
			}
		}
	}

	return nil, exhaustionError(attempts)
}

// RecordStreamUsage reports token usage and latency once a streaming
// attempt finishes; streams report usage only on their terminal chunk,
// long after Execute has returned.
func (o *Orchestrator) RecordStreamUsage(cand Candidate, usage *providers.Usage, latency time.Duration) {
	if usage != nil {
		o.Quota.RecordUsage(cand.QuotaKey(), usage.TotalTokens)
	}
	if latency > 0 {
		o.Latency.Observe(costs.Key(cand.QuotaKey()), latency)
	}
}

// tierCandidates filters the plan for one tier, preserving plan order.
// The preferred candidate is excluded from tiers 2 and 3 only when tier 1
// actually attempted it; a preferred binding skipped by the health or
// quota checks stays eligible in its natural tier.
func (o *Orchestrator) tierCandidates(plan *Plan, tier int, preferred string, preferredAttempted bool) []Candidate {
	var out []Candidate
	for _, c := range plan.Candidates {
		switch tier {
		case 1:
			if preferred != "" && c.Definition.Key == preferred {
				out = append(out, c)
			}
		case 2:
			if c.Free && !(preferredAttempted && c.Definition.Key == preferred) {
				out = append(out, c)
			}
		case 3:
			if !c.Free && !(preferredAttempted && c.Definition.Key == preferred) {
				out = append(out, c)
			}
		case 4:
			out = append(out, c)
		}
	}
	return out
}

func (o *Orchestrator) pushbackCooldown(err error) time.Duration {
	var pe *providers.Error
	if errors.As(err, &pe) && pe.RetryAfter > 0 {
		return pe.RetryAfter
	}
	if o.RateLimitCooldown > 0 {
		return o.RateLimitCooldown
	}
	return defaultRateLimitCooldown
}

func (o *Orchestrator) observe(cand Candidate, outcome string, latency time.Duration) {
	if o.Observer != nil {
		o.Observer.AttemptFinished(cand.Definition.Key, cand.Binding.CanonicalID, outcome, latency)
	}
}

func (o *Orchestrator) observeDepth(depth int) {
	if o.Observer != nil {
		o.Observer.FallbackDepth(depth)
	}
}

// exhaustionError summarizes every failed attempt into one
// KindUpstreamUnavailable error.
func exhaustionError(attempts []Attempt) error {
	if len(attempts) == 0 {
		return providers.NewError(providers.KindUpstreamUnavailable, "",
			"no provider available: all candidates skipped by health or quota checks")
	}

	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s/%s: %s", a.Provider, a.Model, a.Kind))
	}
	return providers.NewError(providers.KindUpstreamUnavailable, "",
		"all providers exhausted: "+strings.Join(parts, "; "))
}
