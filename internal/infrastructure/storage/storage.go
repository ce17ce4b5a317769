package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// GetAllProducts returns the tenant's catalog ordered by SKU
func (s *Storage) GetAllProducts(ctx context.Context, tenant string) ([]*model.Product, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT sku, title, category, weight, delivery_cost, delivery_cost_source, carrier_breakdown_json
	FROM products WHERE tenant = ? ORDER BY sku
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var products []*model.Product
	for rows.Next() {
		p := &model.Product{}
		var cost sql.NullFloat64
		var source string
		var breakdown sql.NullString
		if err := rows.Scan(&p.SKU, &p.Title, &p.Category, &p.Weight, &cost, &source, &breakdown); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		if cost.Valid {
			p.DeliveryCost = model.Float(cost.Float64)
		}
		p.DeliveryCostSource = model.CostSource(source)
		if breakdown.Valid && breakdown.String != "" {
			if err := json.Unmarshal([]byte(breakdown.String), &p.DeliveryCarrierBreakdown); err != nil {
				return nil, fmt.Errorf("failed to decode breakdown for %s: %w", p.SKU, err)
			}
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// BatchPutProducts upserts up to MaxBatchSize products in one transaction
func (s *Storage) BatchPutProducts(ctx context.Context, tenant string, products []*model.Product) error {
	if len(products) > MaxBatchSize {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(products), MaxBatchSize)
	}
	if len(products) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, p := range products {
		var cost sql.NullFloat64
		if p.DeliveryCost != nil {
			cost = sql.NullFloat64{Float64: *p.DeliveryCost, Valid: true}
		}
		var breakdown sql.NullString
		if len(p.DeliveryCarrierBreakdown) > 0 {
			data, err := json.Marshal(p.DeliveryCarrierBreakdown)
			if err != nil {
				return err
			}
			breakdown = sql.NullString{String: string(data), Valid: true}
		}

		_, err := tx.ExecContext(ctx, `
		INSERT INTO products
		(tenant, sku, title, category, weight, delivery_cost, delivery_cost_source, carrier_breakdown_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant, sku) DO UPDATE SET
			delivery_cost = excluded.delivery_cost,
			delivery_cost_source = excluded.delivery_cost_source,
			carrier_breakdown_json = excluded.carrier_breakdown_json
		`, tenant, p.SKU, p.Title, p.Category, p.Weight, cost, string(p.DeliveryCostSource), breakdown)
		if err != nil {
			return fmt.Errorf("failed to put product %s: %w", p.SKU, err)
		}
	}

	return tx.Commit()
}

// GetAllCarrierCosts returns every carrier row for the tenant
func (s *Storage) GetAllCarrierCosts(ctx context.Context, tenant string) ([]model.CarrierCost, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT carrier_id, name, cost_per_shipment, is_active, last_updated
	FROM carrier_costs WHERE tenant = ? ORDER BY carrier_id
	`, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to query carrier costs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var costs []model.CarrierCost
	for rows.Next() {
		var c model.CarrierCost
		if err := rows.Scan(&c.CarrierID, &c.Name, &c.CostPerShipment, &c.IsActive, &c.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan carrier cost: %w", err)
		}
		costs = append(costs, c)
	}

	return costs, rows.Err()
}

// PutCarrierCost inserts or replaces one carrier row
func (s *Storage) PutCarrierCost(ctx context.Context, tenant string, cost model.CarrierCost) error {
	if cost.LastUpdated.IsZero() {
		cost.LastUpdated = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
	INSERT OR REPLACE INTO carrier_costs
	(tenant, carrier_id, name, cost_per_shipment, is_active, last_updated)
	VALUES (?, ?, ?, ?, ?, ?)
	`, tenant, cost.CarrierID, cost.Name, cost.CostPerShipment, cost.IsActive, cost.LastUpdated)
	if err != nil {
		return fmt.Errorf("failed to put carrier cost %s: %w", cost.CarrierID, err)
	}
	return nil
}

// StartRun records the start of a cost run
func (s *Storage) StartRun(ctx context.Context, tenant string, kind RunKind, dryRun bool) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
	INSERT INTO cost_runs (id, tenant, kind, dry_run, status, started_at)
	VALUES (?, ?, ?, ?, ?, ?)
	`, id, tenant, string(kind), dryRun, RunStatusRunning, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("failed to start run: %w", err)
	}
	return id, nil
}

// CompleteRun records the outcome of a cost run
func (s *Storage) CompleteRun(ctx context.Context, runID string, summary RunSummary) error {
	status := summary.Status
	if status == "" {
		status = RunStatusCompleted
	}

	result, err := s.db.ExecContext(ctx, `
	UPDATE cost_runs
	SET completed_at = ?, status = ?, orders_read = ?, orders_used = ?,
	    products_updated = ?, products_unchanged = ?, error_message = ?
	WHERE id = ?
	`, time.Now().UTC(), status, summary.OrdersRead, summary.OrdersUsed,
		summary.ProductsUpdated, summary.ProductsUnchanged, summary.ErrorMessage, runID)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return nil
}

const runColumns = `id, tenant, kind, dry_run, status, started_at, completed_at,
	       orders_read, orders_used, products_updated, products_unchanged, error_message`

// ListRuns returns the tenant's most recent runs, newest first
func (s *Storage) ListRuns(ctx context.Context, tenant string, limit int) ([]CostRun, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM cost_runs
	WHERE tenant = ? ORDER BY started_at DESC, id LIMIT ?`, tenant, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []CostRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}

	return runs, rows.Err()
}

// GetRun retrieves a run by ID
func (s *Storage) GetRun(ctx context.Context, runID string) (*CostRun, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM cost_runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", runID, ErrNotFound)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*CostRun, error) {
	run := &CostRun{}
	var kind string
	var completed sql.NullTime
	err := row.Scan(
		&run.ID,
		&run.Tenant,
		&kind,
		&run.DryRun,
		&run.Status,
		&run.StartedAt,
		&completed,
		&run.OrdersRead,
		&run.OrdersUsed,
		&run.ProductsUpdated,
		&run.ProductsUnchanged,
		&run.ErrorMessage,
	)
	if err != nil {
		return nil, err
	}
	run.Kind = RunKind(kind)
	if completed.Valid {
		run.CompletedAt = completed.Time
	}
	return run, nil
}
