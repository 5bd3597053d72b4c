package registry

import "github.com/switchboard-ai/switchboard/pkg/providers"

// Capability names one thing a model can do.
type Capability string

// Known capabilities.
const (
	CapChat       Capability = "chat"
	CapCompletion Capability = "completion"
	CapEmbedding  Capability = "embedding"
	CapVision     Capability = "vision"
	CapTools      Capability = "tools"
	CapJSONMode   Capability = "json_mode"
	CapStreaming  Capability = "streaming"
	CapLogProbs   Capability = "logprobs"
	CapAudio      Capability = "audio"
	CapReasoning  Capability = "reasoning"
)

// CapabilitySet is a set of model capabilities.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from capability names.
func NewCapabilitySet(names ...string) CapabilitySet {
	s := make(CapabilitySet, len(names))
	for _, n := range names {
		s[Capability(n)] = struct{}{}
	}
	return s
}

// Has reports whether the set contains c.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Superset reports whether the set contains every capability in required.
func (s CapabilitySet) Superset(required CapabilitySet) bool {
	for c := range required {
		if !s.Has(c) {
			return false
		}
	}
	return true
}

// Names returns the capabilities as sorted-insensitive string slice.
func (s CapabilitySet) Names() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, string(c))
	}
	return out
}

// CanonicalModel is one entry of the canonical model catalog.
type CanonicalModel struct {
	// ID is the canonical model identifier.
	ID string

	// Family groups related models.
	Family string

	// ContextWindow is the maximum combined token window.
	ContextWindow int

	// MaxOutputTokens caps completion length; 0 means provider default.
	MaxOutputTokens int

	// Capabilities is what the model supports.
	Capabilities CapabilitySet

	// ReleaseDate is an ISO date used for recency tie-breaking.
	ReleaseDate string

	// Quality is the normalized quality score in [0,1].
	Quality float64

	// InputPricePer1M and OutputPricePer1M are USD prices per million
	// tokens; binding-level overrides take precedence.
	InputPricePer1M  float64
	OutputPricePer1M float64

	// Bindings lists the provider bindings that can serve this model,
	// in configuration order.
	Bindings []providers.Binding
}

// Alias maps a user-facing name onto an ordered candidate list of
// canonical model IDs.
type Alias struct {
	// Name is the alias as clients send it.
	Name string

	// Tenant scopes the alias; empty means global.
	Tenant string

	// Targets is the ordered candidate list of canonical model IDs.
	Targets []string
}
