package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// RunsHandler handles cost run history requests.
type RunsHandler struct {
	*Base
}

// NewRunsHandler creates a new runs handler.
func NewRunsHandler(svc *service.CostService, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{Base: NewBase(svc, logger)}
}

// List handles GET /api/tenants/{tenant}/runs - newest first.
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := ParseIntParam(r, "limit", 20)

	runs, err := h.service.ListRuns(r.Context(), TenantParam(r), limit)
	if err != nil {
		h.WriteServiceError(w, r, err, "runs")
		return
	}

	if runs == nil {
		runs = []storage.CostRun{}
	}
	h.WriteJSON(w, http.StatusOK, dto.RunListResponse{Runs: runs, Count: len(runs)})
}

// Get handles GET /api/runs/{id} - returns a single run by ID.
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("run ID is required"))
		return
	}

	run, err := h.service.GetRun(r.Context(), id)
	if err != nil {
		h.WriteServiceError(w, r, err, "cost run")
		return
	}

	h.WriteJSON(w, http.StatusOK, run)
}
