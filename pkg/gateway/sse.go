package gateway

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/routing"
)

// serveStream drives a streaming request: the orchestrator selects the
// upstream, then chunks are framed as server-sent events until the
// terminal chunk. A client disconnect cancels the upstream through the
// request context.
func (g *Gateway) serveStream(w http.ResponseWriter, r *http.Request, query routing.Query, preferred string, req *providers.Request) {
	start := time.Now()
	endpoint := query.Endpoint

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, providers.NewError(providers.KindInternal, "",
			"response writer does not support streaming"))
		return
	}

	outcome, err := g.orchestrator.Execute(r.Context(), query, preferred, g.runAttempt(req, true))
	if err != nil {
		writeError(w, r, err)
		g.observeRequest(endpoint, providers.KindOf(err).String(), start)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	principal := PrincipalFrom(r.Context())
	canonicalID := outcome.Candidate.Binding.CanonicalID
	streamID := "chatcmpl-" + uuid.NewString()
	var usage *providers.Usage
	status := "success"

	for chunk := range outcome.Result.Stream {
		if chunk.Err != nil {
			// Headers are long gone; all we can do is log, drop the
			// buffered tail and close the connection without [DONE].
			g.logger.Warn("stream terminated by upstream error",
				"provider", outcome.Candidate.Definition.Key,
				"model", canonicalID,
				"error", chunk.Err,
				"request_id", RequestIDFrom(r.Context()),
			)
			status = providers.KindOf(chunk.Err).String()
			g.finishStream(endpoint, principal, outcome, usage, start, status)
			return
		}
		if chunk.Usage != nil {
			usage = chunk.Usage
		}
		if chunk.Done {
			break
		}
		if chunk.ID != "" {
			streamID = chunk.ID
		}

		frame, err := json.Marshal(renderChunk(streamID, canonicalID, chunk))
		if err != nil {
			g.logger.Error("chunk marshal failed", "error", err)
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", frame)
		flusher.Flush()
	}

	fmt.Fprint(w, "data: [DONE]\n\n")
	flusher.Flush()
	g.finishStream(endpoint, principal, outcome, usage, start, status)
}

// finishStream reports usage and metrics once the stream is over.
// Streams report usage on their terminal frames, long after the
// orchestrator returned.
func (g *Gateway) finishStream(endpoint providers.EndpointKind, principal Principal, outcome *routing.Outcome, usage *providers.Usage, start time.Time, status string) {
	latency := time.Since(start)
	g.orchestrator.RecordStreamUsage(outcome.Candidate, usage, latency)
	if usage != nil && status == "success" {
		g.account(endpoint, principal, outcome, *usage)
	}
	g.observeRequest(endpoint, status, start)
}
