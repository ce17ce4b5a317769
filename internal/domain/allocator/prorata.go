// Package allocator splits one order's delivery cost across its lines.
//
// The value-share allocator distributes the carrier's flat per-shipment cost
// proportionally to each line's monetary value:
//
//	share = line_value / sum(line_values)
//	line_cost = order_cost * share
//
// When the order has no value at all, every line gets an equal share.
// Allocations are not rounded, so they always sum back to the order cost.
package allocator

import (
	"errors"
	"math"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

var (
	// ErrNoLines is returned for orders without line items.
	ErrNoLines = errors.New("order has no lines to allocate")

	// ErrNegativeCost is returned when the order cost is below zero.
	ErrNegativeCost = errors.New("order delivery cost cannot be negative")
)

// Allocation is the delivery cost attributed to one order line.
type Allocation struct {
	SKU           string
	Quantity      float64
	Value         float64
	Share         float64
	AllocatedCost float64
}

// Result contains the allocation for one order.
type Result struct {
	OrderCost      float64
	TotalValue     float64
	EqualSplit     bool
	Allocations    []Allocation
	TotalAllocated float64
}

// Allocate distributes orderCost across lines by value share.
func Allocate(lines []model.OrderLine, orderCost float64) (*Result, error) {
	if len(lines) == 0 {
		return nil, ErrNoLines
	}
	if orderCost < 0 || math.IsNaN(orderCost) {
		return nil, ErrNegativeCost
	}

	// Step 1: Sum line values
	values := make([]float64, len(lines))
	var totalValue float64
	for i, line := range lines {
		values[i] = line.Value()
		totalValue += values[i]
	}

	result := &Result{
		OrderCost:   orderCost,
		TotalValue:  totalValue,
		EqualSplit:  totalValue <= 0,
		Allocations: make([]Allocation, len(lines)),
	}

	// Step 2: Allocate each line its share
	n := float64(len(lines))
	for i, line := range lines {
		share := 1 / n
		allocated := orderCost / n
		if !result.EqualSplit {
			share = values[i] / totalValue
			allocated = orderCost * values[i] / totalValue
		}
		result.Allocations[i] = Allocation{
			SKU:           line.SKU,
			Quantity:      line.Quantity,
			Value:         values[i],
			Share:         share,
			AllocatedCost: allocated,
		}
		result.TotalAllocated += allocated
	}

	return result, nil
}

// RoundToCents rounds an amount to 2 decimal places.
func RoundToCents(amount float64) float64 {
	return math.Round(amount*100) / 100
}
