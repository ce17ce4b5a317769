package handlers

import (
	"log/slog"
	"net/http"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/adapters/manifest"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
)

// MaxManifestBytes caps the size of an uploaded manifest
const MaxManifestBytes = 32 << 20

// CostingHandler triggers recalculation and manifest import runs.
type CostingHandler struct {
	*Base
}

// NewCostingHandler creates a new costing handler.
func NewCostingHandler(svc *service.CostService, logger *slog.Logger) *CostingHandler {
	return &CostingHandler{Base: NewBase(svc, logger)}
}

// Recalculate handles POST /api/tenants/{tenant}/recalculate?dry_run=true
func (h *CostingHandler) Recalculate(w http.ResponseWriter, r *http.Request) {
	tenant := TenantParam(r)
	if tenant == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("tenant is required"))
		return
	}

	opts := costing.Options{DryRun: ParseBoolParam(r, "dry_run", false)}
	result, err := h.service.Recalculate(r.Context(), tenant, opts)
	if err != nil {
		h.WriteServiceError(w, r, err, "tenant")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// Import handles POST /api/tenants/{tenant}/delivery-imports.
// The body is a CSV manifest or a JSON array of rows, chosen by the
// format query parameter or else the Content-Type header.
func (h *CostingHandler) Import(w http.ResponseWriter, r *http.Request) {
	tenant := TenantParam(r)
	if tenant == "" {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("tenant is required"))
		return
	}

	hint := r.URL.Query().Get("format")
	if hint == "" {
		hint = r.Header.Get("Content-Type")
	}

	body := http.MaxBytesReader(w, r.Body, MaxManifestBytes)
	rows, err := manifest.Parse(body, manifest.DetectFormat(hint))
	if err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError(err.Error()))
		return
	}
	if len(rows) == 0 {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("manifest has no rows"))
		return
	}

	opts := costing.Options{DryRun: ParseBoolParam(r, "dry_run", false)}
	result, err := h.service.ImportManifest(r.Context(), tenant, rows, opts)
	if err != nil {
		h.WriteServiceError(w, r, err, "tenant")
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}
