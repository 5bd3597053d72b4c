// Switchboard is an OpenAI-compatible gateway that routes LLM requests
// across multiple upstream providers.
//
// It scores candidate providers on quality, quota headroom, health and
// latency, prefers free tiers when policy allows, and falls back across
// providers when an upstream degrades.
//
// Usage:
//
//	# Start the gateway
//	switchboard run --config config.yaml
//
//	# Verify a configuration without serving
//	switchboard validate --config config.yaml
//
//	# Show version information
//	switchboard version
package main

func main() {
	Execute()
}
