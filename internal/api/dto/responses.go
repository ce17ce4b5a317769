package dto

import (
	"time"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// HealthResponse is returned by the health check endpoint.
type HealthResponse struct {
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	SchemaVersion int64  `json:"schema_version,omitempty"`
}

// NewHealthResponse reports a healthy service at the current time
func NewHealthResponse(schemaVersion int64) HealthResponse {
	return HealthResponse{
		Status:        "ok",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		SchemaVersion: schemaVersion,
	}
}

// RunListResponse is a page of cost runs
type RunListResponse struct {
	Runs  []storage.CostRun `json:"runs"`
	Count int               `json:"count"`
}

// CarrierListResponse lists every canonical carrier for a tenant
type CarrierListResponse struct {
	Tenant   string                `json:"tenant"`
	Carriers []service.CarrierView `json:"carriers"`
	Count    int                   `json:"count"`
}
