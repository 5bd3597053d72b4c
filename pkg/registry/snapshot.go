package registry

import (
	"fmt"
	"sort"

	"github.com/switchboard-ai/switchboard/pkg/config"
	"github.com/switchboard-ai/switchboard/pkg/providers"
)

// Snapshot is an immutable view of the catalog. All lookups are safe for
// concurrent use; a snapshot is never mutated after construction.
type Snapshot struct {
	version uint64

	models        map[string]*CanonicalModel
	providersByKey map[string]providers.Definition
	globalAliases map[string]Alias
	tenantAliases map[string]map[string]Alias
}

// NewSnapshot builds a snapshot from a validated configuration. Binding
// fields that are unset inherit the provider's defaults; bindings to
// disabled providers are kept in the catalog but marked unavailable.
func NewSnapshot(cfg *config.Config) (*Snapshot, error) {
	snap := &Snapshot{
		models:        make(map[string]*CanonicalModel, len(cfg.Models)),
		providersByKey: make(map[string]providers.Definition, len(cfg.Providers)),
		globalAliases: make(map[string]Alias),
		tenantAliases: make(map[string]map[string]Alias),
	}

	for name, p := range cfg.Providers {
		snap.providersByKey[name] = providers.Definition{
			Key:              name,
			Kind:             providers.ProviderKind(p.Kind),
			BaseEndpoint:     p.BaseURL,
			FallbackEndpoint: p.FallbackURL,
			Tier:             p.Tier,
			Enabled:          p.Enabled == nil || *p.Enabled,
			Free:             p.Free,
			CredentialRef:    name,
			DefaultRPM:       p.DefaultRPM,
			DefaultTPM:       p.DefaultTPM,
		}
	}

	for _, m := range cfg.Models {
		model := &CanonicalModel{
			ID:               m.ID,
			Family:           m.Family,
			ContextWindow:    m.ContextWindow,
			MaxOutputTokens:  m.MaxOutputTokens,
			Capabilities:     NewCapabilitySet(m.Capabilities...),
			ReleaseDate:      m.ReleaseDate,
			InputPricePer1M:  m.InputPricePer1M,
			OutputPricePer1M: m.OutputPricePer1M,
		}
		if m.Quality != nil {
			model.Quality = *m.Quality
		}

		for _, b := range m.Bindings {
			def, ok := snap.providersByKey[b.Provider]
			if !ok {
				return nil, fmt.Errorf("model %q binds unknown provider %q", m.ID, b.Provider)
			}

			binding := providers.Binding{
				CanonicalID:        m.ID,
				ProviderKey:        b.Provider,
				ProviderSpecificID: b.ModelID,
				Available:          (b.Available == nil || *b.Available) && def.Enabled,
				OverrideInputPrice: b.InputPricePer1M,
				OverrideOutputPrice: b.OutputPricePer1M,
				RateLimitRPM:       b.RPM,
				RateLimitTPM:       b.TPM,
				FreeTier:           b.FreeTier || def.Free,
			}
			if binding.RateLimitRPM == 0 {
				binding.RateLimitRPM = def.DefaultRPM
			}
			if binding.RateLimitTPM == 0 {
				binding.RateLimitTPM = def.DefaultTPM
			}
			model.Bindings = append(model.Bindings, binding)
		}

		snap.models[m.ID] = model
	}

	for _, a := range cfg.Aliases {
		alias := Alias{Name: a.Name, Tenant: a.Tenant, Targets: append([]string(nil), a.Targets...)}
		if a.Tenant == "" {
			snap.globalAliases[a.Name] = alias
			continue
		}
		if snap.tenantAliases[a.Tenant] == nil {
			snap.tenantAliases[a.Tenant] = make(map[string]Alias)
		}
		snap.tenantAliases[a.Tenant][a.Name] = alias
	}

	return snap, nil
}

// Version is the monotonically increasing snapshot generation, assigned
// when the snapshot is installed into a Registry.
func (s *Snapshot) Version() uint64 { return s.version }

// LookupCanonical returns the canonical model with the given ID.
func (s *Snapshot) LookupCanonical(id string) (*CanonicalModel, bool) {
	m, ok := s.models[id]
	return m, ok
}

// ResolveAlias resolves a user-facing name to its candidate list. A
// tenant-scoped alias shadows a global alias of the same name entirely;
// the global candidate list is not consulted as a fallback.
func (s *Snapshot) ResolveAlias(tenant, name string) (Alias, bool) {
	if tenant != "" {
		if scoped, ok := s.tenantAliases[tenant]; ok {
			if a, ok := scoped[name]; ok {
				return a, true
			}
		}
	}
	a, ok := s.globalAliases[name]
	return a, ok
}

// Aliases returns the aliases visible to a tenant, ordered by name.
// Tenant-scoped aliases shadow same-named global ones.
func (s *Snapshot) Aliases(tenant string) []Alias {
	visible := make(map[string]Alias, len(s.globalAliases))
	for name, a := range s.globalAliases {
		visible[name] = a
	}
	if tenant != "" {
		for name, a := range s.tenantAliases[tenant] {
			visible[name] = a
		}
	}

	out := make([]Alias, 0, len(visible))
	for _, a := range visible {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// BindingsFor returns the bindings able to serve a canonical model, in
// configuration order. The slice must not be modified.
func (s *Snapshot) BindingsFor(canonicalID string) []providers.Binding {
	m, ok := s.models[canonicalID]
	if !ok {
		return nil
	}
	return m.Bindings
}

// Provider returns the definition for a provider key.
func (s *Snapshot) Provider(key string) (providers.Definition, bool) {
	def, ok := s.providersByKey[key]
	return def, ok
}

// Models returns all canonical models ordered by ID.
func (s *Snapshot) Models() []*CanonicalModel {
	out := make([]*CanonicalModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// CapabilityMatch reports whether the canonical model supports every
// required capability. Unknown models never match.
func (s *Snapshot) CapabilityMatch(canonicalID string, required CapabilitySet) bool {
	m, ok := s.models[canonicalID]
	if !ok {
		return false
	}
	return m.Capabilities.Superset(required)
}
