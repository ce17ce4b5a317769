package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// MockRepository is an in-memory implementation of Repository for testing.
// Records are copied on the way in and out so callers never share state
// with the store. It is safe for concurrent use.
type MockRepository struct {
	mu       sync.Mutex
	orders   map[string]map[string]*model.Order
	products map[string]map[string]*model.Product
	carriers map[string]map[string]model.CarrierCost
	runs     map[string]*CostRun

	// Hooks for test assertions
	BatchPutCalls       int
	ProductsWritten     int
	MaxBatchSeen        int
	UpdateDeliveryCalls int
	PutCarrierCalls     int

	// Error injection for testing error paths
	GetAllOrdersErr    error
	GetAllProductsErr  error
	GetCarrierCostsErr error
	BatchPutErr        error
	UpdateDeliveryErr  error
	PutCarrierCostErr  error
	StartRunErr        error
	CompleteRunErr     error
}

// NewMockRepository creates a new mock repository for testing
func NewMockRepository() *MockRepository {
	return &MockRepository{
		orders:   make(map[string]map[string]*model.Order),
		products: make(map[string]map[string]*model.Product),
		carriers: make(map[string]map[string]model.CarrierCost),
		runs:     make(map[string]*CostRun),
	}
}

// Compile-time check that MockRepository implements Repository
var _ Repository = (*MockRepository)(nil)

// Close does nothing for mock
func (m *MockRepository) Close() error {
	return nil
}

// GetAllOrders returns copies of every order for the tenant, oldest first
func (m *MockRepository) GetAllOrders(_ context.Context, tenant string) ([]*model.Order, error) {
	return m.listOrders(tenant, false)
}

// GetAllOrdersWithDeliveryData returns annotated orders only
func (m *MockRepository) GetAllOrdersWithDeliveryData(_ context.Context, tenant string) ([]*model.Order, error) {
	return m.listOrders(tenant, true)
}

func (m *MockRepository) listOrders(tenant string, annotatedOnly bool) ([]*model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAllOrdersErr != nil {
		return nil, m.GetAllOrdersErr
	}

	var out []*model.Order
	for _, o := range m.orders[tenant] {
		if annotatedOnly && !o.HasDeliveryData() {
			continue
		}
		out = append(out, copyOrder(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OrderDate.Equal(out[j].OrderDate) {
			return out[i].OrderDate.Before(out[j].OrderDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// UpdateOrderDelivery sets the annotation on a stored order
func (m *MockRepository) UpdateOrderDelivery(_ context.Context, tenant, orderID string, annotation model.DeliveryAnnotation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.UpdateDeliveryCalls++
	if m.UpdateDeliveryErr != nil {
		return m.UpdateDeliveryErr
	}

	o, ok := m.orders[tenant][orderID]
	if !ok {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	o.DeliveryCarrier = annotation.Carrier
	o.DeliveryCarrierRaw = annotation.RawCarrier
	o.DeliveryParcels = model.Int(annotation.Parcels)
	return nil
}

// SaveOrders stores copies of the orders
func (m *MockRepository) SaveOrders(_ context.Context, tenant string, orders []*model.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	if m.orders[tenant] == nil {
		m.orders[tenant] = make(map[string]*model.Order)
	}
	for _, o := range orders {
		m.orders[tenant][o.ID] = copyOrder(o)
	}
	return nil
}

// GetAllProducts returns copies of the tenant's catalog ordered by SKU
func (m *MockRepository) GetAllProducts(_ context.Context, tenant string) ([]*model.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetAllProductsErr != nil {
		return nil, m.GetAllProductsErr
	}

	out := make([]*model.Product, 0, len(m.products[tenant]))
	for _, p := range m.products[tenant] {
		out = append(out, copyProduct(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

// BatchPutProducts stores copies of the products
func (m *MockRepository) BatchPutProducts(_ context.Context, tenant string, products []*model.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BatchPutCalls++
	if len(products) > m.MaxBatchSeen {
		m.MaxBatchSeen = len(products)
	}
	if m.BatchPutErr != nil {
		return m.BatchPutErr
	}
	if len(products) > MaxBatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(products), MaxBatchSize)
	}

	if m.products[tenant] == nil {
		m.products[tenant] = make(map[string]*model.Product)
	}
	for _, p := range products {
		stored := copyProduct(p)
		if existing, ok := m.products[tenant][p.SKU]; ok {
			stored.Title = existing.Title
			stored.Category = existing.Category
			stored.Weight = existing.Weight
		}
		m.products[tenant][p.SKU] = stored
	}
	m.ProductsWritten += len(products)
	return nil
}

// Product returns a copy of one stored product, or nil
func (m *MockRepository) Product(tenant, sku string) *model.Product {
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.products[tenant][sku]
	if !ok {
		return nil
	}
	return copyProduct(p)
}

// Order returns a copy of one stored order, or nil
func (m *MockRepository) Order(tenant, id string) *model.Order {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[tenant][id]
	if !ok {
		return nil
	}
	return copyOrder(o)
}

// ResetCounters clears the assertion hooks
func (m *MockRepository) ResetCounters() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.BatchPutCalls = 0
	m.ProductsWritten = 0
	m.MaxBatchSeen = 0
	m.UpdateDeliveryCalls = 0
	m.PutCarrierCalls = 0
}

// GetAllCarrierCosts returns the tenant's carrier rows ordered by ID
func (m *MockRepository) GetAllCarrierCosts(_ context.Context, tenant string) ([]model.CarrierCost, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.GetCarrierCostsErr != nil {
		return nil, m.GetCarrierCostsErr
	}

	out := make([]model.CarrierCost, 0, len(m.carriers[tenant]))
	for _, c := range m.carriers[tenant] {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CarrierID < out[j].CarrierID })
	return out, nil
}

// PutCarrierCost stores one carrier row
func (m *MockRepository) PutCarrierCost(_ context.Context, tenant string, cost model.CarrierCost) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.PutCarrierCalls++
	if m.PutCarrierCostErr != nil {
		return m.PutCarrierCostErr
	}
	if m.carriers[tenant] == nil {
		m.carriers[tenant] = make(map[string]model.CarrierCost)
	}
	m.carriers[tenant][cost.CarrierID] = cost
	return nil
}

// StartRun records a new running cost run
func (m *MockRepository) StartRun(_ context.Context, tenant string, kind RunKind, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.StartRunErr != nil {
		return "", m.StartRunErr
	}

	id := uuid.NewString()
	m.runs[id] = &CostRun{
		ID:        id,
		Tenant:    tenant,
		Kind:      kind,
		DryRun:    dryRun,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	return id, nil
}

// CompleteRun records a run outcome
func (m *MockRepository) CompleteRun(_ context.Context, runID string, summary RunSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.CompleteRunErr != nil {
		return m.CompleteRunErr
	}

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	run.Status = summary.Status
	if run.Status == "" {
		run.Status = RunStatusCompleted
	}
	run.CompletedAt = time.Now().UTC()
	run.OrdersRead = summary.OrdersRead
	run.OrdersUsed = summary.OrdersUsed
	run.ProductsUpdated = summary.ProductsUpdated
	run.ProductsUnchanged = summary.ProductsUnchanged
	run.ErrorMessage = summary.ErrorMessage
	return nil
}

// ListRuns returns the tenant's runs, newest first
func (m *MockRepository) ListRuns(_ context.Context, tenant string, limit int) ([]CostRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []CostRun
	for _, r := range m.runs {
		if r.Tenant == tenant {
			out = append(out, *r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartedAt.Equal(out[j].StartedAt) {
			return out[i].StartedAt.After(out[j].StartedAt)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// GetRun retrieves a run by ID
func (m *MockRepository) GetRun(_ context.Context, runID string) (*CostRun, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	copied := *r
	return &copied, nil
}

func copyOrder(o *model.Order) *model.Order {
	copied := *o
	copied.Lines = append([]model.OrderLine(nil), o.Lines...)
	if o.DeliveryParcels != nil {
		copied.DeliveryParcels = model.Int(*o.DeliveryParcels)
	}
	return &copied
}

func copyProduct(p *model.Product) *model.Product {
	copied := *p
	if p.DeliveryCost != nil {
		copied.DeliveryCost = model.Float(*p.DeliveryCost)
	}
	if p.DeliveryCarrierBreakdown != nil {
		copied.DeliveryCarrierBreakdown = make(map[string]int, len(p.DeliveryCarrierBreakdown))
		for k, v := range p.DeliveryCarrierBreakdown {
			copied.DeliveryCarrierBreakdown[k] = v
		}
	}
	return &copied
}
