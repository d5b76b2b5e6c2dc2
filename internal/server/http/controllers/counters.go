package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/rzbill/flashlog/internal/counters"
	"github.com/rzbill/flashlog/internal/runtime"
)

// CountersController serves the persisted update counters.
type CountersController struct {
	rt *runtime.Runtime
}

// NewCountersController creates a new counters controller.
func NewCountersController(rt *runtime.Runtime) *CountersController {
	return &CountersController{rt: rt}
}

// RegisterRoutes registers counter routes with the given mux.
func (c *CountersController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/counters", c.handleCounters)
}

// handleCounters returns the counters on GET and sets one on PUT with a
// {"kind": "update"|"current", "value": n} body.
func (c *CountersController) handleCounters(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, c.rt.Counters().Read())
	case http.MethodPut, http.MethodPost:
		var req counterReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Value == nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		kind, err := counters.ParseKind(req.Kind)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		cur, err := c.rt.Counters().Set(kind, *req.Value)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, "Failed to store counter")
			return
		}
		writeJSON(w, cur)
	default:
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}
