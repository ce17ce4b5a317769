package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/carrier"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

var (
	// ErrRunInProgress is returned when the tenant already has a run going
	ErrRunInProgress = errors.New("cost run already in progress for tenant")

	// ErrUnknownCarrier is returned when a label maps to no canonical carrier
	ErrUnknownCarrier = errors.New("unknown carrier")

	// ErrInvalidCost is returned for negative carrier costs
	ErrInvalidCost = errors.New("carrier cost must not be negative")
)

// Recorder receives run level metrics. *observability.Metrics implements it.
type Recorder interface {
	costing.Recorder
	RunFinished(kind, status string, elapsed time.Duration)
}

// RecalculateResult pairs a recalculation report with its run record
type RecalculateResult struct {
	RunID  string          `json:"run_id"`
	Report *costing.Report `json:"report"`
}

// ImportResult pairs an import report with its run record
type ImportResult struct {
	RunID  string                `json:"run_id"`
	Report *costing.ImportReport `json:"report"`
}

// CarrierView is one canonical carrier with its configuration, if any
type CarrierView struct {
	CarrierID       string    `json:"carrier_id"`
	Name            string    `json:"name"`
	CostPerShipment float64   `json:"cost_per_shipment"`
	IsActive        bool      `json:"is_active"`
	Configured      bool      `json:"configured"`
	Billable        bool      `json:"billable"`
	LastUpdated     time.Time `json:"last_updated,omitempty"`
}

// CostService runs cost passes and manages carrier configuration.
// Only one run per tenant may be in flight at a time.
type CostService struct {
	repo     storage.Repository
	engine   *costing.Engine
	recorder Recorder
	logger   *slog.Logger
	now      func() time.Time

	// Tenant-level locking (only one run per tenant at a time)
	tenantLocks map[string]*sync.Mutex
	locksMutex  sync.Mutex
}

// NewCostService creates a new cost service. recorder may be nil.
func NewCostService(repo storage.Repository, cfg costing.Config, recorder Recorder, logger *slog.Logger) *CostService {
	if logger == nil {
		logger = slog.Default()
	}
	var engineRecorder costing.Recorder
	if recorder != nil {
		engineRecorder = recorder
	}
	return &CostService{
		repo:        repo,
		engine:      costing.NewEngine(repo, cfg, engineRecorder, logger),
		recorder:    recorder,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
		tenantLocks: make(map[string]*sync.Mutex),
	}
}

// Recalculate runs a full recalculation for the tenant and records it
func (s *CostService) Recalculate(ctx context.Context, tenant string, opts costing.Options) (*RecalculateResult, error) {
	if !s.tryLockTenant(tenant) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, tenant)
	}
	defer s.unlockTenant(tenant)

	runID, err := s.repo.StartRun(ctx, tenant, storage.RunKindRecalculate, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	start := time.Now()
	report, err := s.engine.Recalculate(ctx, tenant, opts)
	s.finishRun(ctx, runID, storage.RunKindRecalculate, start, report, err)
	if err != nil {
		return nil, err
	}
	return &RecalculateResult{RunID: runID, Report: report}, nil
}

// ImportManifest annotates orders from manifest rows, recalculates, and
// records the run
func (s *CostService) ImportManifest(ctx context.Context, tenant string, rows []matcher.ManifestRow, opts costing.Options) (*ImportResult, error) {
	if !s.tryLockTenant(tenant) {
		return nil, fmt.Errorf("%w: %s", ErrRunInProgress, tenant)
	}
	defer s.unlockTenant(tenant)

	runID, err := s.repo.StartRun(ctx, tenant, storage.RunKindImport, opts.DryRun)
	if err != nil {
		return nil, fmt.Errorf("failed to record run start: %w", err)
	}

	start := time.Now()
	report, err := s.engine.ImportManifest(ctx, tenant, rows, opts)
	var recalc *costing.Report
	if report != nil {
		recalc = report.Recalculation
	}
	s.finishRun(ctx, runID, storage.RunKindImport, start, recalc, err)
	if err != nil {
		return nil, err
	}
	return &ImportResult{RunID: runID, Report: report}, nil
}

// finishRun records the run outcome. Failing to record it is logged, not
// returned, so the caller still sees the run's own result.
func (s *CostService) finishRun(ctx context.Context, runID string, kind storage.RunKind, start time.Time, report *costing.Report, runErr error) {
	summary := storage.RunSummary{Status: storage.RunStatusCompleted}
	if report != nil {
		summary.OrdersRead = report.OrdersRead
		summary.OrdersUsed = report.OrdersUsed
		summary.ProductsUpdated = report.Updated()
		summary.ProductsUnchanged = report.Unchanged
	}
	if runErr != nil {
		summary.Status = storage.RunStatusFailed
		summary.ErrorMessage = runErr.Error()
	}

	// a cancelled request must still close its run record
	if err := s.repo.CompleteRun(context.WithoutCancel(ctx), runID, summary); err != nil {
		s.logger.Warn("failed to record run completion", "run_id", runID, "error", err)
	}
	if s.recorder != nil {
		s.recorder.RunFinished(string(kind), summary.Status, time.Since(start))
	}
}

// ListRuns returns the tenant's recent runs, newest first
func (s *CostService) ListRuns(ctx context.Context, tenant string, limit int) ([]storage.CostRun, error) {
	runs, err := s.repo.ListRuns(ctx, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run record
func (s *CostService) GetRun(ctx context.Context, runID string) (*storage.CostRun, error) {
	return s.repo.GetRun(ctx, runID)
}

// ListCarriers returns every canonical carrier with its configuration
func (s *CostService) ListCarriers(ctx context.Context, tenant string) ([]CarrierView, error) {
	costs, err := s.repo.GetAllCarrierCosts(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load carrier costs: %w", err)
	}
	registry := carrier.NewRegistry(costs)

	configured := make(map[string]model.CarrierCost, len(costs))
	for _, c := range costs {
		configured[c.CarrierID] = c
	}

	var out []CarrierView
	for _, c := range carrier.All() {
		if c == carrier.Unknown {
			continue
		}
		view := CarrierView{CarrierID: string(c), Name: c.DisplayName()}
		if cc, ok := configured[string(c)]; ok {
			view.CostPerShipment = cc.CostPerShipment
			view.IsActive = cc.IsActive
			view.Configured = true
			view.LastUpdated = cc.LastUpdated
		}
		_, view.Billable = registry.CostOf(c)
		out = append(out, view)
	}
	return out, nil
}

// SetCarrierCost sets the flat per-shipment cost for a carrier label.
// The label is normalized first so "Royal Mail 48" configures royal_mail.
func (s *CostService) SetCarrierCost(ctx context.Context, tenant, label string, cost float64, active bool) (*model.CarrierCost, error) {
	c, ok := carrier.Parse(label)
	if !ok {
		c = carrier.Normalize(label)
	}
	if c == carrier.Unknown {
		return nil, fmt.Errorf("%w: %q", ErrUnknownCarrier, label)
	}
	if cost < 0 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCost, cost)
	}

	cc := model.CarrierCost{
		CarrierID:       string(c),
		Name:            c.DisplayName(),
		CostPerShipment: cost,
		IsActive:        active,
		LastUpdated:     s.now(),
	}
	if err := s.repo.PutCarrierCost(ctx, tenant, cc); err != nil {
		return nil, fmt.Errorf("failed to save carrier cost: %w", err)
	}

	s.logger.Info("carrier cost updated", "tenant", tenant, "carrier", cc.CarrierID, "cost", cost, "active", active)
	return &cc, nil
}

// tryLockTenant attempts to acquire the run lock for a tenant.
func (s *CostService) tryLockTenant(tenant string) bool {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if _, exists := s.tenantLocks[tenant]; !exists {
		s.tenantLocks[tenant] = &sync.Mutex{}
	}
	return s.tenantLocks[tenant].TryLock()
}

// unlockTenant releases the run lock for a tenant.
func (s *CostService) unlockTenant(tenant string) {
	s.locksMutex.Lock()
	defer s.locksMutex.Unlock()

	if lock, exists := s.tenantLocks[tenant]; exists {
		lock.Unlock()
	}
}
