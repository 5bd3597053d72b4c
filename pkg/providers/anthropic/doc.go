// Package anthropic implements the adapter for Anthropic-style upstreams
// speaking the Messages API: system prompt as a top-level field, content as
// typed blocks, event-named SSE frames, and x-api-key authentication.
package anthropic
