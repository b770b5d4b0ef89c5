// Package handlers provides HTTP handlers for QAOA portfolio optimization.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aristath/qfolio/internal/modules/qaoa"
	"github.com/aristath/qfolio/internal/modules/runs"
	"github.com/rs/zerolog"
)

// Default grid resolution used when a request omits it.
const defaultGridResolution = 50

// Handler handles QAOA optimization HTTP requests.
type Handler struct {
	service *qaoa.Service
	runRepo *runs.Repository // optional; nil disables run persistence
	workers int
	log     zerolog.Logger
}

// NewHandler creates a new QAOA handler. runRepo may be nil when run history
// persistence is disabled; workers sets the grid-search parallelism.
func NewHandler(service *qaoa.Service, runRepo *runs.Repository, workers int, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		runRepo: runRepo,
		workers: workers,
		log:     log.With().Str("handler", "qaoa").Logger(),
	}
}

// OptimizeRequest represents a request to run an optimization.
type OptimizeRequest struct {
	Risk      [][]float64 `json:"risk"`
	Budget    int         `json:"budget"`
	Penalty   float64     `json:"penalty"`
	Layers    int         `json:"layers"`
	GridGamma int         `json:"grid_gamma"`
	GridBeta  int         `json:"grid_beta"`
	Refine    bool        `json:"refine"`
}

// HandleOptimize handles POST /api/qaoa/optimize.
func (h *Handler) HandleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Error().Err(err).Msg("Failed to decode request body")
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	grid := qaoa.GridResolution{Gamma: req.GridGamma, Beta: req.GridBeta}
	if req.Layers > 0 {
		if grid.Gamma == 0 {
			grid.Gamma = defaultGridResolution
		}
		if grid.Beta == 0 {
			grid.Beta = defaultGridResolution
		}
	}

	prob := qaoa.Problem{Risk: req.Risk, Budget: req.Budget, Penalty: req.Penalty}
	opts := qaoa.SearchOptions{Workers: h.workers, Refine: req.Refine}

	started := time.Now()
	sol, err := h.service.Optimize(prob, req.Layers, grid, opts)
	if err != nil {
		h.writeOptimizeError(w, err)
		return
	}

	runUUID := h.recordRun(req, grid, sol)

	response := map[string]interface{}{
		"data": sol,
		"metadata": map[string]interface{}{
			"timestamp":   time.Now().Format(time.RFC3339),
			"duration_ms": time.Since(started).Milliseconds(),
			"run_uuid":    runUUID,
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// HandleLimits handles GET /api/qaoa/limits. An optional ?qubits=N query
// reports the storage estimate for a candidate problem size.
func (h *Handler) HandleLimits(w http.ResponseWriter, r *http.Request) {
	limits := h.service.Limits()
	maxQubits := limits.MaxQubits
	if maxQubits <= 0 {
		maxQubits = qaoa.DefaultMaxQubits
	}

	data := map[string]interface{}{
		"max_qubits": maxQubits,
	}
	if q := r.URL.Query().Get("qubits"); q != "" {
		qubits, err := strconv.Atoi(q)
		if err != nil || qubits < 1 {
			http.Error(w, "qubits must be a positive integer", http.StatusBadRequest)
			return
		}
		data["qubits"] = qubits
		data["estimated_bytes"] = qaoa.EstimateBytes(qubits)
		data["within_limits"] = limits.Check(qubits) == nil
	}

	response := map[string]interface{}{
		"data": data,
		"metadata": map[string]interface{}{
			"timestamp": time.Now().Format(time.RFC3339),
		},
	}
	h.writeJSON(w, http.StatusOK, response)
}

// recordRun persists the run when a repository is wired; persistence failures
// are logged but never fail the request.
func (h *Handler) recordRun(req OptimizeRequest, grid qaoa.GridResolution, sol *qaoa.Solution) string {
	if h.runRepo == nil {
		return ""
	}

	params := make([]runs.LayerParams, len(sol.Parameters))
	for i, layer := range sol.Parameters {
		params[i] = runs.LayerParams{Gamma: layer.Gamma, Beta: layer.Beta}
	}

	runUUID, err := h.runRepo.Create(runs.Run{
		Assets:       len(req.Risk),
		Budget:       req.Budget,
		Penalty:      req.Penalty,
		Layers:       req.Layers,
		GridGamma:    grid.Gamma,
		GridBeta:     grid.Beta,
		BitString:    sol.BitString,
		Cost:         sol.Cost,
		Expectation:  sol.Expectation,
		Feasible:     sol.Feasible,
		Parameters:   params,
		Distribution: sol.Distribution,
	})
	if err != nil {
		h.log.Warn().Err(err).Msg("Failed to persist optimization run")
		return ""
	}
	return runUUID
}

// writeOptimizeError maps engine error kinds to HTTP statuses: validation
// errors are the caller's fault, resource limits mean the instance is too
// large, and consistency errors are engine defects.
func (h *Handler) writeOptimizeError(w http.ResponseWriter, err error) {
	var verr *qaoa.ValidationError
	var rerr *qaoa.ResourceLimitError
	var cerr *qaoa.InternalConsistencyError

	switch {
	case errors.As(err, &verr):
		http.Error(w, verr.Error(), http.StatusBadRequest)
	case errors.As(err, &rerr):
		http.Error(w, rerr.Error(), http.StatusRequestEntityTooLarge)
	case errors.As(err, &cerr):
		h.log.Error().Err(err).Msg("Internal consistency violation during optimization")
		http.Error(w, cerr.Error(), http.StatusInternalServerError)
	default:
		h.log.Error().Err(err).Msg("Optimization failed")
		http.Error(w, "Optimization failed", http.StatusInternalServerError)
	}
}

// writeJSON writes a JSON response.
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
