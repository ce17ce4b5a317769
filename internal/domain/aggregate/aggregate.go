// Package aggregate accumulates allocated delivery costs per SKU across all
// orders and yields a quantity-weighted per-unit cost.
//
// Stats are plain sums, so two Aggregators built over disjoint sets of orders
// can be merged in any order with the same result.
package aggregate

import (
	"sort"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/allocator"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/carrier"
)

// SkuDeliveryStats is the running aggregate for one SKU.
type SkuDeliveryStats struct {
	SKU               string
	CarrierCounts     map[carrier.Carrier]int
	TotalDeliveryCost float64
	TotalQuantity     float64
	OrderCount        int
}

// HasEvidence reports whether the SKU carries usable direct evidence.
// SKUs seen only in zero-cost orders do not.
func (s *SkuDeliveryStats) HasEvidence() bool {
	return s.TotalDeliveryCost > 0 && s.TotalQuantity > 0
}

// PerUnit returns the weighted per-unit delivery cost rounded to cents.
func (s *SkuDeliveryStats) PerUnit() (float64, bool) {
	if s.TotalQuantity <= 0 {
		return 0, false
	}
	return allocator.RoundToCents(s.TotalDeliveryCost / s.TotalQuantity), true
}

// DominantCarrier returns the carrier seen on most orders, ties broken by id.
func (s *SkuDeliveryStats) DominantCarrier() carrier.Carrier {
	best := carrier.Unknown
	bestCount := 0
	for c, n := range s.CarrierCounts {
		if n > bestCount || (n == bestCount && c < best) {
			best, bestCount = c, n
		}
	}
	return best
}

// Breakdown returns carrier counts keyed by canonical id.
func (s *SkuDeliveryStats) Breakdown() map[string]int {
	out := make(map[string]int, len(s.CarrierCounts))
	for c, n := range s.CarrierCounts {
		out[string(c)] = n
	}
	return out
}

// Aggregator collects SkuDeliveryStats for one recomputation pass.
type Aggregator struct {
	stats  map[string]*SkuDeliveryStats
	orders int
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{stats: make(map[string]*SkuDeliveryStats)}
}

// Add folds one order's allocation into the per-SKU stats. A SKU appearing on
// several lines of the same order counts as one order.
func (a *Aggregator) Add(c carrier.Carrier, result *allocator.Result) {
	if result == nil {
		return
	}
	a.orders++

	touched := make(map[string]bool, len(result.Allocations))
	for _, alloc := range result.Allocations {
		if alloc.SKU == "" {
			continue
		}
		s := a.get(alloc.SKU)
		s.TotalDeliveryCost += alloc.AllocatedCost
		s.TotalQuantity += alloc.Quantity
		if !touched[alloc.SKU] {
			touched[alloc.SKU] = true
			s.OrderCount++
			s.CarrierCounts[c]++
		}
	}
}

// Merge folds other into a. other must not be used afterwards.
func (a *Aggregator) Merge(other *Aggregator) {
	if other == nil {
		return
	}
	a.orders += other.orders
	for sku, o := range other.stats {
		s := a.get(sku)
		s.TotalDeliveryCost += o.TotalDeliveryCost
		s.TotalQuantity += o.TotalQuantity
		s.OrderCount += o.OrderCount
		for c, n := range o.CarrierCounts {
			s.CarrierCounts[c] += n
		}
	}
}

// Stats returns the stats for a SKU, or nil.
func (a *Aggregator) Stats(sku string) *SkuDeliveryStats {
	return a.stats[sku]
}

// PerUnit returns the direct per-unit cost for a SKU with evidence.
func (a *Aggregator) PerUnit(sku string) (float64, bool) {
	s, ok := a.stats[sku]
	if !ok || !s.HasEvidence() {
		return 0, false
	}
	return s.PerUnit()
}

// OrderCount is the number of orders folded in.
func (a *Aggregator) OrderCount() int {
	return a.orders
}

// Len is the number of SKUs seen.
func (a *Aggregator) Len() int {
	return len(a.stats)
}

// SKUs returns every SKU seen, sorted.
func (a *Aggregator) SKUs() []string {
	out := make([]string, 0, len(a.stats))
	for sku := range a.stats {
		out = append(out, sku)
	}
	sort.Strings(out)
	return out
}

func (a *Aggregator) get(sku string) *SkuDeliveryStats {
	s, ok := a.stats[sku]
	if !ok {
		s = &SkuDeliveryStats{SKU: sku, CarrierCounts: make(map[carrier.Carrier]int)}
		a.stats[sku] = s
	}
	return s
}
