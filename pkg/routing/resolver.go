package routing

import (
	"github.com/switchboard-ai/switchboard/pkg/providers"
	"github.com/switchboard-ai/switchboard/pkg/registry"
)

// Resolution is the outcome of resolving a client model name.
type Resolution struct {
	// CanonicalID is the canonical model that will serve the request.
	CanonicalID string

	// Model is the resolved catalog entry.
	Model *registry.CanonicalModel

	// Bindings are the model's available bindings, in catalog order.
	Bindings []providers.Binding
}

// Resolve maps a client-supplied model name to the first canonical
// model that satisfies the required capabilities and has at least one
// available binding.
//
// The candidate order is: tenant alias targets, then global alias
// targets, then the name itself as a canonical ID. A tenant alias
// shadows a global alias of the same name entirely. Candidates that
// are unknown, lack a required capability, or have no available
// binding are skipped; resolution is all-or-nothing per candidate.
func Resolve(snap *registry.Snapshot, tenant, name string, required registry.CapabilitySet) (Resolution, bool) {
	var candidates []string
	if alias, ok := snap.ResolveAlias(tenant, name); ok {
		candidates = alias.Targets
	}
	candidates = append(candidates, name)

	for _, id := range candidates {
		model, ok := snap.LookupCanonical(id)
		if !ok {
			continue
		}
		if !model.Capabilities.Superset(required) {
			continue
		}

		var available []providers.Binding
		for _, b := range snap.BindingsFor(id) {
			if b.Available {
				available = append(available, b)
			}
		}
		if len(available) == 0 {
			continue
		}

		return Resolution{CanonicalID: id, Model: model, Bindings: available}, true
	}
	return Resolution{}, false
}
