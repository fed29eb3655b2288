package hermes

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bsc-ssrg/hermes/registry"
)

// DebugServer exposes a read-only HTTP surface over an engine: Prometheus
// metrics, and the registry contents (including JSON Schema for typed
// request/response records declared through Declare) for operator
// inspection. Nothing here is on the request hot path.
type DebugServer struct {
	engine *Engine
	router chi.Router
}

// NewDebugServer builds the router; call ListenAndServe yourself (or mount
// Router() under an existing chi app) so the caller controls the bind
// address and TLS config.
func NewDebugServer(e *Engine) *DebugServer {
	ds := &DebugServer{engine: e, router: chi.NewRouter()}
	ds.router.Get("/metrics", promhttp.HandlerFor(e.stats.registry, promhttp.HandlerOpts{}).ServeHTTP)
	ds.router.Get("/debug/registry", ds.listRegistry)
	ds.router.Get("/debug/registry/{id}", ds.describeRequestType)
	ds.router.Get("/healthz", ds.healthz)
	return ds
}

func (ds *DebugServer) Router() chi.Router { return ds.router }

type registryEntry struct {
	ID               uint16 `json:"id"`
	Name             string `json:"name"`
	RequiresResponse bool   `json:"requires_response"`
}

func (ds *DebugServer) listRegistry(w http.ResponseWriter, _ *http.Request) {
	all := registry.All()
	entries := make([]registryEntry, 0, len(all))
	for _, d := range all {
		entries = append(entries, registryEntry{ID: d.ID, Name: d.Name, RequiresResponse: d.RequiresResponse})
	}
	writeJSON(w, http.StatusOK, entries)
}

type requestTypeDetail struct {
	registryEntry
	InputSchema  any `json:"input_schema,omitempty"`
	OutputSchema any `json:"output_schema,omitempty"`
}

func (ds *DebugServer) describeRequestType(w http.ResponseWriter, r *http.Request) {
	idStr := chi.URLParam(r, "id")
	var id uint16
	if _, err := fmt.Sscan(idStr, &id); err != nil {
		http.Error(w, "bad request type id", http.StatusBadRequest)
		return
	}
	d, ok := registry.Lookup(id)
	if !ok {
		http.Error(w, "unknown request type", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, requestTypeDetail{
		registryEntry: registryEntry{ID: d.ID, Name: d.Name, RequiresResponse: d.RequiresResponse},
		InputSchema:   d.InputSchema,
		OutputSchema:  d.OutputSchema,
	})
}

func (ds *DebugServer) healthz(w http.ResponseWriter, _ *http.Request) {
	if ds.engine.running.Load() {
		w.WriteHeader(http.StatusOK)
		return
	}
	w.WriteHeader(http.StatusServiceUnavailable)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
