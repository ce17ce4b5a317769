package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// Base provides shared functionality for all handlers.
type Base struct {
	service *service.CostService
	logger  *slog.Logger
}

// NewBase creates a new base handler around the cost service.
func NewBase(svc *service.CostService, logger *slog.Logger) *Base {
	if logger == nil {
		logger = slog.Default()
	}
	return &Base{service: svc, logger: logger}
}

// WriteJSON writes a JSON response with the given status code.
func (b *Base) WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteError writes an error response with the given status code.
func (b *Base) WriteError(w http.ResponseWriter, status int, err dto.APIError) {
	b.WriteJSON(w, status, err)
}

// WriteServiceError maps a service error onto a status code and envelope.
// Unrecognized errors are logged and reported as internal errors.
func (b *Base) WriteServiceError(w http.ResponseWriter, r *http.Request, err error, resource string) {
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		b.WriteError(w, http.StatusConflict, dto.ConflictError(TenantParam(r)))
	case errors.Is(err, service.ErrUnknownCarrier), errors.Is(err, service.ErrInvalidCost):
		b.WriteError(w, http.StatusBadRequest, dto.ValidationError(err.Error()))
	case errors.Is(err, storage.ErrNotFound):
		b.WriteError(w, http.StatusNotFound, dto.NotFoundError(resource))
	default:
		b.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		b.WriteError(w, http.StatusInternalServerError, dto.InternalError())
	}
}

// TenantParam returns the {tenant} URL parameter, trimmed
func TenantParam(r *http.Request) string {
	return strings.TrimSpace(chi.URLParam(r, "tenant"))
}

// ParseIntParam parses an integer query parameter with a default value.
func ParseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return parsed
}

// ParseBoolParam parses a boolean query parameter with a default value.
func ParseBoolParam(r *http.Request, name string, defaultVal bool) bool {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	return val == "true" || val == "1"
}
