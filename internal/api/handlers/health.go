package handlers

import (
	"context"
	"net/http"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
)

// SchemaChecker reports the applied migration version. *storage.Storage
// implements it.
type SchemaChecker interface {
	SchemaVersion(ctx context.Context) (int64, error)
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	*Base
	schema SchemaChecker
}

// NewHealthHandler creates a new health handler. schema may be nil, in which
// case the response carries no schema version.
func NewHealthHandler(schema SchemaChecker) *HealthHandler {
	return &HealthHandler{Base: NewBase(nil, nil), schema: schema}
}

// ServeHTTP handles GET /health. A database that cannot report its schema
// version is unhealthy.
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var version int64
	if h.schema != nil {
		v, err := h.schema.SchemaVersion(r.Context())
		if err != nil {
			h.WriteJSON(w, http.StatusServiceUnavailable, dto.HealthResponse{Status: "unavailable"})
			return
		}
		version = v
	}
	h.WriteJSON(w, http.StatusOK, dto.NewHealthResponse(version))
}
