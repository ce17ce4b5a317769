package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// Storage provides SQLite database access for orders, products, carrier
// costs and cost runs. Every row is scoped to a tenant.
// It implements the Repository interface.
type Storage struct {
	db *sql.DB
}

// Compile-time check that Storage implements Repository
var _ Repository = (*Storage)(nil)

// NewStorage creates a new storage instance with SQLite database
func NewStorage(dbPath string) (*Storage, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer
	db.SetMaxOpenConns(1)

	s := &Storage{db: db}

	if err := s.runMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// NewStorageWithDB wraps an existing connection without running migrations
func NewStorageWithDB(db *sql.DB) *Storage {
	return &Storage{db: db}
}

// Close closes the database connection
func (s *Storage) Close() error {
	return s.db.Close()
}

const orderColumns = `id, channel_order_number, order_date, delivery_carrier,
	       delivery_carrier_raw, delivery_parcels, lines_json`

// GetAllOrders returns every order for the tenant
func (s *Storage) GetAllOrders(ctx context.Context, tenant string) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders WHERE tenant = ? ORDER BY order_date, id`
	return s.queryOrders(ctx, query, tenant)
}

// GetAllOrdersWithDeliveryData returns orders that carry a delivery annotation
func (s *Storage) GetAllOrdersWithDeliveryData(ctx context.Context, tenant string) ([]*model.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders
	WHERE tenant = ? AND delivery_carrier != ''
	ORDER BY order_date, id`
	return s.queryOrders(ctx, query, tenant)
}

func (s *Storage) queryOrders(ctx context.Context, query string, args ...any) ([]*model.Order, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var orders []*model.Order
	for rows.Next() {
		o := &model.Order{}
		var parcels sql.NullInt64
		var linesJSON string
		if err := rows.Scan(
			&o.ID,
			&o.ChannelOrderNumber,
			&o.OrderDate,
			&o.DeliveryCarrier,
			&o.DeliveryCarrierRaw,
			&parcels,
			&linesJSON,
		); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		if parcels.Valid {
			o.DeliveryParcels = model.Int(int(parcels.Int64))
		}
		if linesJSON != "" {
			if err := json.Unmarshal([]byte(linesJSON), &o.Lines); err != nil {
				return nil, fmt.Errorf("failed to decode lines for order %s: %w", o.ID, err)
			}
		}
		orders = append(orders, o)
	}

	return orders, rows.Err()
}

// UpdateOrderDelivery writes the delivery annotation onto an order
func (s *Storage) UpdateOrderDelivery(ctx context.Context, tenant, orderID string, annotation model.DeliveryAnnotation) error {
	result, err := s.db.ExecContext(ctx, `
	UPDATE orders
	SET delivery_carrier = ?, delivery_carrier_raw = ?, delivery_parcels = ?
	WHERE tenant = ? AND id = ?
	`, annotation.Carrier, annotation.RawCarrier, annotation.Parcels, tenant, orderID)
	if err != nil {
		return fmt.Errorf("failed to update delivery for order %s: %w", orderID, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("order %s: %w", orderID, ErrNotFound)
	}
	return nil
}

// SaveOrders inserts or replaces orders in a single transaction
func (s *Storage) SaveOrders(ctx context.Context, tenant string, orders []*model.Order) error {
	for _, o := range orders {
		if err := o.Validate(); err != nil {
			return err
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
	INSERT OR REPLACE INTO orders
	(tenant, id, channel_order_number, order_date, delivery_carrier,
	 delivery_carrier_raw, delivery_parcels, lines_json)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer func() { _ = stmt.Close() }()

	for _, o := range orders {
		linesJSON, err := json.Marshal(o.Lines)
		if err != nil {
			return err
		}
		var parcels sql.NullInt64
		if o.DeliveryParcels != nil {
			parcels = sql.NullInt64{Int64: int64(*o.DeliveryParcels), Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			tenant,
			o.ID,
			o.ChannelOrderNumber,
			o.OrderDate,
			o.DeliveryCarrier,
			o.DeliveryCarrierRaw,
			parcels,
			string(linesJSON),
		); err != nil {
			return fmt.Errorf("failed to save order %s: %w", o.ID, err)
		}
	}

	return tx.Commit()
}
