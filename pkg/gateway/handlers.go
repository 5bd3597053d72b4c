package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/switchboard-ai/switchboard/pkg/costs"
	"github.com/switchboard-ai/switchboard/pkg/dedup"
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/routing"
	"github.com/switchboard-ai/switchboard/pkg/store"
)

// handleInvoke serves the four inference endpoints. Non-streaming
// requests run through the deduplicator; streams go straight to the
// orchestrator.
func (g *Gateway) handleInvoke(endpoint providers.EndpointKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", http.MethodPost)
			badRequest(w, r, "method %s not allowed", r.Method)
			return
		}

		start := time.Now()
		req, err := decodeRequest(r, endpoint)
		if err != nil {
			writeError(w, r, err)
			g.observeRequest(endpoint, "invalid_request", start)
			return
		}

		principal := PrincipalFrom(r.Context())
		query := routing.Query{
			Model:        req.Model,
			Endpoint:     endpoint,
			Capabilities: deriveCapabilities(endpoint, req),
			Tenant:       principal.Tenant,
			User:         principal.User,
		}
		preferred := r.Header.Get(PreferredProviderHeader)

		if req.Stream {
			g.serveStream(w, r, query, preferred, req)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), g.requestDeadline)
		defer cancel()

		payload, err := g.executeDeduped(ctx, endpoint, principal, query, preferred, req)
		if err != nil {
			writeError(w, r, err)
			g.observeRequest(endpoint, providers.KindOf(err).String(), start)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(payload)
		g.observeRequest(endpoint, "success", start)
	}
}

// executeDeduped runs the orchestrator under the in-flight
// deduplicator. The cached payload is the fully rendered client body,
// so joiners skip both routing and the upstream call.
func (g *Gateway) executeDeduped(ctx context.Context, endpoint providers.EndpointKind, principal Principal, query routing.Query, preferred string, req *providers.Request) ([]byte, error) {
	run := func(ctx context.Context) ([]byte, error) {
		outcome, err := g.orchestrator.Execute(ctx, query, preferred, g.runAttempt(req, false))
		if err != nil {
			return nil, err
		}
		g.account(endpoint, principal, outcome, outcome.Result.Response.Usage)
		return json.Marshal(renderResponse(endpoint, outcome.Candidate.Binding.CanonicalID, outcome.Result.Response))
	}

	fp, err := dedup.Fingerprint(endpoint, principal.Tenant, req)
	if err != nil {
		// An unfingerprintable body still gets served, just not deduped.
		g.logger.Warn("fingerprint failed, bypassing dedup", "error", err)
		if g.metrics != nil {
			g.metrics.RecordDedup("bypass")
		}
		return run(ctx)
	}

	payload, shared, err := g.dedup.Execute(ctx, fp, run)
	if g.metrics != nil && err == nil {
		if shared {
			g.metrics.RecordDedup("shared")
		} else {
			g.metrics.RecordDedup("owner")
		}
	}
	return payload, err
}

// runAttempt adapts one routing candidate into an upstream invocation.
func (g *Gateway) runAttempt(req *providers.Request, stream bool) routing.RunFunc {
	return func(ctx context.Context, cand routing.Candidate) (*routing.Result, error) {
		adapter, ok := g.adapters[cand.Definition.Kind]
		if !ok {
			return nil, providers.Errorf(providers.KindInternal, cand.Definition.Key,
				"no adapter for provider kind %q", cand.Definition.Kind)
		}

		attempt := req.Clone()
		attempt.Model = cand.Binding.ProviderSpecificID
		attempt.Stream = stream

		if stream {
			ch, err := adapter.InvokeStream(ctx, cand.Definition, cand.Binding, attempt)
			if err != nil {
				return nil, err
			}
			return &routing.Result{Stream: ch}, nil
		}

		ctx, cancel := context.WithTimeout(ctx, g.attemptTimeout)
		defer cancel()
		resp, err := adapter.Invoke(ctx, cand.Definition, cand.Binding, attempt)
		if err != nil {
			return nil, err
		}
		return &routing.Result{Response: resp}, nil
	}
}

// account records one served request into the usage store.
func (g *Gateway) account(endpoint providers.EndpointKind, principal Principal, outcome *routing.Outcome, usage providers.Usage) {
	if g.accountant == nil {
		return
	}
	pricing := costs.PricingFor(outcome.Candidate.Model, outcome.Candidate.Binding)
	g.accountant.Record(store.UsageRecord{
		Time:             time.Now(),
		Tenant:           principal.Tenant,
		Provider:         outcome.Candidate.Definition.Key,
		Model:            outcome.Candidate.Binding.CanonicalID,
		Endpoint:         string(endpoint),
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		CostUSD:          pricing.Cost(usage),
		Outcome:          "success",
	})
	if g.metrics != nil {
		g.metrics.RecordUsage(outcome.Candidate.Definition.Key, outcome.Candidate.Binding.CanonicalID,
			usage.PromptTokens, usage.CompletionTokens, pricing.Cost(usage))
	}
}

func (g *Gateway) observeRequest(endpoint providers.EndpointKind, status string, start time.Time) {
	if g.metrics != nil {
		g.metrics.RecordRequest(string(endpoint), status, time.Since(start))
	}
}
