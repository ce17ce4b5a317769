package storage

import (
	"context"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// Repository defines the complete storage interface.
// This interface allows swapping implementations (SQLite, in-memory, etc.)
// and makes testing the costing engine with mocks straightforward.
type Repository interface {
	OrderRepository
	ProductRepository
	CarrierCostRepository
	CostRunRepository
	Close() error
}

// OrderRepository handles order reads and delivery annotation
type OrderRepository interface {
	// GetAllOrders returns every order for the tenant
	GetAllOrders(ctx context.Context, tenant string) ([]*model.Order, error)

	// GetAllOrdersWithDeliveryData returns only orders annotated by a manifest
	GetAllOrdersWithDeliveryData(ctx context.Context, tenant string) ([]*model.Order, error)

	// UpdateOrderDelivery sets the delivery annotation on one order
	UpdateOrderDelivery(ctx context.Context, tenant, orderID string, annotation model.DeliveryAnnotation) error

	// SaveOrders inserts or replaces orders (ingestion boundary)
	SaveOrders(ctx context.Context, tenant string, orders []*model.Order) error
}

// ProductRepository handles product reads and delivery cost writes
type ProductRepository interface {
	// GetAllProducts returns the tenant's catalog
	GetAllProducts(ctx context.Context, tenant string) ([]*model.Product, error)

	// BatchPutProducts upserts at most MaxBatchSize products in one call.
	// Existing products only take the delivery cost fields; title, category
	// and weight are set on insert and never overwritten.
	BatchPutProducts(ctx context.Context, tenant string, products []*model.Product) error
}

// CarrierCostRepository handles carrier cost configuration
type CarrierCostRepository interface {
	// GetAllCarrierCosts returns every configured carrier row
	GetAllCarrierCosts(ctx context.Context, tenant string) ([]model.CarrierCost, error)

	// PutCarrierCost inserts or replaces one carrier row
	PutCarrierCost(ctx context.Context, tenant string, cost model.CarrierCost) error
}

// CostRunRepository handles cost run tracking
type CostRunRepository interface {
	// StartRun records the start of a run and returns the run ID
	StartRun(ctx context.Context, tenant string, kind RunKind, dryRun bool) (string, error)

	// CompleteRun records the outcome of a run
	CompleteRun(ctx context.Context, runID string, summary RunSummary) error

	// ListRuns returns the tenant's most recent runs, newest first
	ListRuns(ctx context.Context, tenant string, limit int) ([]CostRun, error)

	// GetRun retrieves a run by ID
	GetRun(ctx context.Context, runID string) (*CostRun, error)
}
