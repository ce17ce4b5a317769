// Package matcher matches delivery manifest rows to known orders.
//
// Matching is two-step:
//   - Exact match of the manifest order number against channel order numbers
//   - If that fails and the number contains a separator, the text after the
//     first separator is stripped and the base number is looked up in an
//     index of orders stripped the same way ("1001-REM" finds "1001-A")
//
// Several split shipments can share a base number. The matcher never picks
// one silently: every candidate is returned and the configured tie-break
// policy selects which orders get annotated.
//
// Example usage:
//
//	m := matcher.NewMatcher(matcher.DefaultConfig(), orders)
//	result := m.Match(row)
//	for _, order := range result.Selected {
//		// annotate order
//	}
package matcher

import (
	"sort"
	"strings"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// Matcher matches manifest rows against an order snapshot
type Matcher struct {
	config Config
	exact  map[string][]*model.Order
	base   map[string][]*model.Order
}

// NewMatcher indexes orders by channel order number and by base number
func NewMatcher(config Config, orders []*model.Order) *Matcher {
	if config.Separators == "" {
		config.Separators = DefaultConfig().Separators
	}
	if config.TieBreak == "" {
		config.TieBreak = TieBreakReject
	}

	m := &Matcher{
		config: config,
		exact:  make(map[string][]*model.Order, len(orders)),
		base:   make(map[string][]*model.Order, len(orders)),
	}
	for _, o := range orders {
		number := normalizeNumber(o.ChannelOrderNumber)
		if number == "" {
			continue
		}
		m.exact[number] = append(m.exact[number], o)
		b := m.BaseNumber(number)
		m.base[b] = append(m.base[b], o)
	}
	for _, list := range m.exact {
		sortOrders(list)
	}
	for _, list := range m.base {
		sortOrders(list)
	}
	return m
}

// BaseNumber strips everything from the first separator onwards
func (m *Matcher) BaseNumber(number string) string {
	if i := strings.IndexAny(number, m.config.Separators); i >= 0 {
		return number[:i]
	}
	return number
}

// Match finds the order(s) a manifest row refers to
func (m *Matcher) Match(row ManifestRow) *MatchResult {
	result := &MatchResult{Row: row, Kind: MatchNone}

	number := normalizeNumber(row.OrderNumber)
	if number == "" {
		return result
	}

	// Step 1: exact channel order number
	if candidates := m.exact[number]; len(candidates) > 0 {
		result.Kind = MatchExact
		result.Candidates = candidates
		m.selectCandidates(result)
		return result
	}

	// Step 2: base number, only when the manifest carries a suffix
	if !strings.ContainsAny(number, m.config.Separators) {
		return result
	}
	base := m.BaseNumber(number)
	if base == "" {
		return result
	}
	result.BaseNumber = base
	if candidates := m.base[base]; len(candidates) > 0 {
		result.Kind = MatchBase
		result.Candidates = candidates
		m.selectCandidates(result)
	}
	return result
}

// selectCandidates applies the tie-break policy
func (m *Matcher) selectCandidates(result *MatchResult) {
	if len(result.Candidates) == 1 {
		result.Selected = result.Candidates
		return
	}

	switch m.config.TieBreak {
	case TieBreakAll:
		result.Selected = result.Candidates
	case TieBreakEarliest:
		// Candidates are already sorted by date then number
		result.Selected = result.Candidates[:1]
	default:
		result.Kind = MatchAmbiguous
		result.Selected = nil
	}
}

// normalizeNumber trims whitespace and uppercases suffix letters
func normalizeNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}

// sortOrders orders candidates deterministically
func sortOrders(orders []*model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.OrderDate.Equal(b.OrderDate) {
			return a.OrderDate.Before(b.OrderDate)
		}
		if a.ChannelOrderNumber != b.ChannelOrderNumber {
			return a.ChannelOrderNumber < b.ChannelOrderNumber
		}
		return a.ID < b.ID
	})
}
