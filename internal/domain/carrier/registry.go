package carrier

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// CostStore persists carrier cost rows.
type CostStore interface {
	PutCarrierCost(ctx context.Context, tenant string, cost model.CarrierCost) error
}

// Registry holds a tenant's configured carrier costs for one run.
type Registry struct {
	costs map[Carrier]model.CarrierCost
}

// NewRegistry builds a registry from stored cost rows. Rows whose id is not a
// known carrier are ignored.
func NewRegistry(costs []model.CarrierCost) *Registry {
	r := &Registry{costs: make(map[Carrier]model.CarrierCost, len(costs))}
	for _, cc := range costs {
		c, ok := Parse(cc.CarrierID)
		if !ok {
			continue
		}
		r.costs[c] = cc
	}
	return r
}

// CostOf returns the configured cost per shipment. Missing, inactive or
// zero-cost rows report false: there is no billing evidence yet.
func (r *Registry) CostOf(c Carrier) (float64, bool) {
	if c == Unknown {
		return 0, false
	}
	cc, ok := r.costs[c]
	if !ok || !cc.IsActive || cc.CostPerShipment <= 0 {
		return 0, false
	}
	return cc.CostPerShipment, true
}

// Has reports whether a configuration row exists, whatever its cost.
func (r *Registry) Has(c Carrier) bool {
	_, ok := r.costs[c]
	return ok
}

// Costs returns the configuration rows sorted by carrier id.
func (r *Registry) Costs() []model.CarrierCost {
	out := make([]model.CarrierCost, 0, len(r.costs))
	for _, cc := range r.costs {
		out = append(out, cc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CarrierID < out[j].CarrierID })
	return out
}

// Set stores a configuration row in the registry.
func (r *Registry) Set(cc model.CarrierCost) {
	if c, ok := Parse(cc.CarrierID); ok {
		r.costs[c] = cc
	}
}

// EnsureConfigured creates a zero-cost, active placeholder row for every
// observed carrier without configuration, so an operator can fill it in.
// Unknown never gets a row. Returns the carriers it created.
func (r *Registry) EnsureConfigured(ctx context.Context, store CostStore, tenant string, observed []Carrier, now time.Time) ([]Carrier, error) {
	var created []Carrier
	seen := make(map[Carrier]bool, len(observed))
	for _, c := range observed {
		if c == Unknown || seen[c] || r.Has(c) {
			continue
		}
		seen[c] = true

		placeholder := model.CarrierCost{
			CarrierID:       string(c),
			Name:            c.DisplayName(),
			CostPerShipment: 0,
			IsActive:        true,
			LastUpdated:     now,
		}
		if err := store.PutCarrierCost(ctx, tenant, placeholder); err != nil {
			return created, fmt.Errorf("failed to create carrier placeholder %s: %w", c, err)
		}
		r.costs[c] = placeholder
		created = append(created, c)
	}
	return created, nil
}
