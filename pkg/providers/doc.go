// Package providers defines the provider adapter contract for the gateway.
//
// An Adapter sends one normalized, OpenAI-shaped request to one upstream
// provider, translating the request to the provider's wire format and
// normalizing the response, the stream, and every error into the closed
// Kind taxonomy. The routing and fallback layers branch on Kind; an error
// that escapes normalization is a bug in the adapter, not in the caller.
//
// Concrete adapters live in subpackages (openai, anthropic). The HTTPAdapter
// base in this package provides the shared pooled transport, fallback
// endpoint handling, and status-code normalization they build on.
package providers
