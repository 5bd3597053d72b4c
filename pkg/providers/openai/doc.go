// Package openai implements the adapter for OpenAI-compatible upstreams.
//
// Because the gateway's normalized request shape is itself OpenAI-shaped,
// the wire transformation is thin: substitute the provider-specific model
// id, pick the endpoint path, attach auth headers, and decode the response
// or SSE stream back into the normalized types. The same adapter serves the
// openai-compatible, generic, cloudflare-ai and gemini provider kinds; all
// of them speak this dialect on their compatibility endpoints.
package openai
