package gateway

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/switchboard-ai/switchboard/pkg/providers"
)

type wireModel struct {
	ID      string `json:"id"`
	Object  string `json:"object"`
	OwnedBy string `json:"owned_by"`

	// Aliases lists the names that resolve to this canonical model for
	// the calling principal.
	Aliases []string `json:"aliases,omitempty"`
}

type wireModelList struct {
	Object string      `json:"object"`
	Data   []wireModel `json:"data"`
}

// handleModels lists the canonical catalog plus the aliases visible to
// the caller's tenant.
func (g *Gateway) handleModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		badRequest(w, r, "method %s not allowed", r.Method)
		return
	}

	snap := g.registry.Current()
	tenant := PrincipalFrom(r.Context()).Tenant

	aliasesByModel := make(map[string][]string)
	for _, m := range snap.Models() {
		aliasesByModel[m.ID] = nil
	}
	for _, a := range snap.Aliases(tenant) {
		if len(a.Targets) == 0 {
			continue
		}
		primary := a.Targets[0]
		aliasesByModel[primary] = append(aliasesByModel[primary], a.Name)
	}

	list := wireModelList{Object: "list"}
	for _, m := range snap.Models() {
		names := aliasesByModel[m.ID]
		sort.Strings(names)
		list.Data = append(list.Data, wireModel{
			ID: m.ID, Object: "model", OwnedBy: "switchboard", Aliases: names,
		})
	}

	writeJSON(w, http.StatusOK, list)
}

// handleModel serves /v1/models/{id}; the id may be a canonical model
// or an alias visible to the caller.
func (g *Gateway) handleModel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		badRequest(w, r, "method %s not allowed", r.Method)
		return
	}

	id := strings.TrimPrefix(r.URL.Path, "/v1/models/")
	snap := g.registry.Current()
	tenant := PrincipalFrom(r.Context()).Tenant

	canonical := id
	if alias, ok := snap.ResolveAlias(tenant, id); ok && len(alias.Targets) > 0 {
		canonical = alias.Targets[0]
	}

	if _, ok := snap.LookupCanonical(canonical); !ok {
		writeError(w, r, providers.Errorf(providers.KindNotFound, "",
			"model %q not found", id))
		return
	}

	writeJSON(w, http.StatusOK, wireModel{ID: canonical, Object: "model", OwnedBy: "switchboard"})
}

// handleHealth is the liveness probe.
func (g *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready once the catalog contains at least one
// model with an available binding.
func (g *Gateway) handleReady(w http.ResponseWriter, _ *http.Request) {
	snap := g.registry.Current()
	for _, m := range snap.Models() {
		for _, b := range m.Bindings {
			if b.Available {
				writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
				return
			}
		}
	}
	writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "no available bindings"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
