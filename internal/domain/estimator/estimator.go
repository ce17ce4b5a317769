// Package estimator fills delivery cost gaps for SKUs without direct order
// evidence, using the average per-unit cost of evidenced SKUs in the same
// primary category, then the overall average.
package estimator

import (
	"sort"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/allocator"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// CategoryAverage is the running average for one primary category.
type CategoryAverage struct {
	Category string
	Sum      float64
	Count    int
}

// Average returns Sum / Count.
func (c CategoryAverage) Average() float64 {
	if c.Count == 0 {
		return 0
	}
	return c.Sum / float64(c.Count)
}

// Estimate is a fallback value and where it came from.
type Estimate struct {
	Value    float64
	Source   model.CostSource
	Category string
}

// Estimator holds category and overall averages for one pass.
type Estimator struct {
	categories map[string]*CategoryAverage
	overall    CategoryAverage
}

// New creates an empty estimator.
func New() *Estimator {
	return &Estimator{categories: make(map[string]*CategoryAverage)}
}

// Observe adds one evidenced SKU's per-unit cost under its product category.
// Only call it for SKUs with direct evidence.
func (e *Estimator) Observe(category string, perUnit float64) {
	e.overall.Sum += perUnit
	e.overall.Count++

	primary := model.PrimaryCategory(category)
	if primary == "" {
		return
	}
	avg, ok := e.categories[primary]
	if !ok {
		avg = &CategoryAverage{Category: primary}
		e.categories[primary] = avg
	}
	avg.Sum += perUnit
	avg.Count++
}

// Estimate returns the fallback for a product without direct evidence:
// category average, else overall average, else SourceNone.
func (e *Estimator) Estimate(category string) Estimate {
	primary := model.PrimaryCategory(category)
	if avg, ok := e.categories[primary]; ok && primary != "" && avg.Count > 0 {
		return Estimate{
			Value:    allocator.RoundToCents(avg.Average()),
			Source:   model.SourceCategoryAverage,
			Category: primary,
		}
	}
	if e.overall.Count > 0 {
		return Estimate{
			Value:  allocator.RoundToCents(e.overall.Average()),
			Source: model.SourceOverallAverage,
		}
	}
	return Estimate{Source: model.SourceNone}
}

// CategoryAverage returns the average for a primary category.
func (e *Estimator) CategoryAverage(category string) (CategoryAverage, bool) {
	avg, ok := e.categories[model.PrimaryCategory(category)]
	if !ok {
		return CategoryAverage{}, false
	}
	return *avg, true
}

// Overall returns the overall average across every evidenced SKU.
func (e *Estimator) Overall() (float64, bool) {
	if e.overall.Count == 0 {
		return 0, false
	}
	return allocator.RoundToCents(e.overall.Average()), true
}

// Categories returns all category averages sorted by name.
func (e *Estimator) Categories() []CategoryAverage {
	out := make([]CategoryAverage, 0, len(e.categories))
	for _, avg := range e.categories {
		out = append(out, *avg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}
