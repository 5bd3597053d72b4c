// Package routing selects which provider binding serves a request and
// drives the fallback loop across them.
//
// The pipeline has four stages. The resolver turns the client's model
// name into a canonical model via the alias tables. The scorer ranks
// each binding of that model using the merged scoring policy, quota
// headroom, health, latency, and price. The router assembles the
// ordered candidate list. The orchestrator walks the list in fallback
// tiers, invoking the caller's run function and reporting each outcome
// back to the health and quota stores.
package routing
