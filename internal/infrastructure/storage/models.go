package storage

import (
	"errors"
	"time"
)

// MaxBatchSize is the largest product batch a single write accepts.
const MaxBatchSize = 25

var (
	// ErrNotFound is returned when a record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrBatchTooLarge is returned when a product batch exceeds MaxBatchSize
	ErrBatchTooLarge = errors.New("product batch exceeds maximum size")
)

// RunKind identifies what triggered a cost run
type RunKind string

const (
	RunKindRecalculate RunKind = "recalculate"
	RunKindImport      RunKind = "import"
)

// Run statuses
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// CostRun represents a cost run record
type CostRun struct {
	ID                string    `json:"id"`
	Tenant            string    `json:"tenant"`
	Kind              RunKind   `json:"kind"`
	DryRun            bool      `json:"dry_run"`
	Status            string    `json:"status"`
	StartedAt         time.Time `json:"started_at"`
	CompletedAt       time.Time `json:"completed_at,omitempty"`
	OrdersRead        int       `json:"orders_read"`
	OrdersUsed        int       `json:"orders_used"`
	ProductsUpdated   int       `json:"products_updated"`
	ProductsUnchanged int       `json:"products_unchanged"`
	ErrorMessage      string    `json:"error_message,omitempty"`
}

// RunSummary holds the counts recorded when a run completes
type RunSummary struct {
	Status            string
	OrdersRead        int
	OrdersUsed        int
	ProductsUpdated   int
	ProductsUnchanged int
	ErrorMessage      string
}
