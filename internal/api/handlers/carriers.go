package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
)

// CarriersHandler handles carrier cost configuration requests.
type CarriersHandler struct {
	*Base
}

// NewCarriersHandler creates a new carriers handler.
func NewCarriersHandler(svc *service.CostService, logger *slog.Logger) *CarriersHandler {
	return &CarriersHandler{Base: NewBase(svc, logger)}
}

// List handles GET /api/tenants/{tenant}/carriers
func (h *CarriersHandler) List(w http.ResponseWriter, r *http.Request) {
	tenant := TenantParam(r)

	carriers, err := h.service.ListCarriers(r.Context(), tenant)
	if err != nil {
		h.WriteServiceError(w, r, err, "carriers")
		return
	}

	h.WriteJSON(w, http.StatusOK, dto.CarrierListResponse{
		Tenant:   tenant,
		Carriers: carriers,
		Count:    len(carriers),
	})
}

// Set handles PUT /api/tenants/{tenant}/carriers/{label}.
// The label may be any spelling the normalizer understands.
func (h *CarriersHandler) Set(w http.ResponseWriter, r *http.Request) {
	var req dto.SetCarrierCostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.WriteError(w, http.StatusBadRequest, dto.BadRequestError("invalid request body"))
		return
	}
	if req.CostPerShipment == nil {
		h.WriteError(w, http.StatusBadRequest, dto.ValidationError("cost_per_shipment is required"))
		return
	}

	cc, err := h.service.SetCarrierCost(r.Context(), TenantParam(r), chi.URLParam(r, "label"), *req.CostPerShipment, req.Active())
	if err != nil {
		h.WriteServiceError(w, r, err, "carrier")
		return
	}

	h.WriteJSON(w, http.StatusOK, cc)
}
