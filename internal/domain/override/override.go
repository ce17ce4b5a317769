// Package override applies fixed business rules that supersede direct and
// estimated delivery costs for oversized or heavy products.
//
// An override only ever raises a cost: a product already costing more than
// the override amount keeps its value.
package override

import (
	"fmt"
	"strings"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

const (
	DefaultAmount        = 45.0
	DefaultHeavyWeightKg = 30.0
	DefaultKeyword       = "suite"
)

// Rule decides whether a product needs the override.
type Rule interface {
	Name() string
	Applies(p *model.Product) bool
}

// TitleKeywordRule triggers when the title contains a keyword, ignoring case.
type TitleKeywordRule struct {
	Keyword string
}

// Name implements Rule.
func (r TitleKeywordRule) Name() string {
	return fmt.Sprintf("title contains %q", r.Keyword)
}

// Applies implements Rule.
func (r TitleKeywordRule) Applies(p *model.Product) bool {
	if r.Keyword == "" {
		return false
	}
	return strings.Contains(strings.ToLower(p.Title), strings.ToLower(r.Keyword))
}

// HeavyItemRule triggers when weight exceeds the threshold.
type HeavyItemRule struct {
	ThresholdKg float64
}

// Name implements Rule.
func (r HeavyItemRule) Name() string {
	return fmt.Sprintf("weight over %gkg", r.ThresholdKg)
}

// Applies implements Rule.
func (r HeavyItemRule) Applies(p *model.Product) bool {
	return p.Weight > r.ThresholdKg
}

// Config holds override engine configuration.
type Config struct {
	Amount        float64
	HeavyWeightKg float64
	Keyword       string
}

// DefaultConfig returns the standard suite/heavy rules.
func DefaultConfig() Config {
	return Config{
		Amount:        DefaultAmount,
		HeavyWeightKg: DefaultHeavyWeightKg,
		Keyword:       DefaultKeyword,
	}
}

// Decision is the outcome of evaluating a product.
type Decision struct {
	Triggered bool
	Rule      string
	Value     float64
	Raised    bool
}

// Engine evaluates rules in order.
type Engine struct {
	amount float64
	rules  []Rule
}

// NewEngine creates an engine with the configured suite and heavy rules.
func NewEngine(cfg Config) *Engine {
	return NewEngineWithRules(cfg.Amount,
		TitleKeywordRule{Keyword: cfg.Keyword},
		HeavyItemRule{ThresholdKg: cfg.HeavyWeightKg},
	)
}

// NewEngineWithRules creates an engine with custom rules.
func NewEngineWithRules(amount float64, rules ...Rule) *Engine {
	return &Engine{amount: amount, rules: rules}
}

// Amount returns the override amount.
func (e *Engine) Amount() float64 {
	return e.amount
}

// Match returns the first rule that applies to the product.
func (e *Engine) Match(p *model.Product) (Rule, bool) {
	for _, r := range e.rules {
		if r.Applies(p) {
			return r, true
		}
	}
	return nil, false
}

// Apply evaluates the product against the current computed value. When a
// rule triggers the result is max(current, amount).
func (e *Engine) Apply(p *model.Product, current float64) Decision {
	rule, ok := e.Match(p)
	if !ok {
		return Decision{Value: current}
	}
	d := Decision{Triggered: true, Rule: rule.Name(), Value: current}
	if current < e.amount {
		d.Value = e.amount
		d.Raised = true
	}
	return d
}
