package matcher

import (
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/carrier"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// Annotation is one order write produced by a manifest.
type Annotation struct {
	Order      *model.Order
	Annotation model.DeliveryAnnotation
	Kind       MatchKind
}

// ManifestResult contains results from matching a whole manifest
type ManifestResult struct {
	Annotations []Annotation   // One per order to annotate, last row wins per order
	Matched     []*MatchResult // Rows that selected at least one order
	Ambiguous   []*MatchResult // Rows rejected by the tie-break policy
	Unmatched   []ManifestRow  // Rows with no candidate order
	Excluded    []ManifestRow  // Rows whose carrier label must never be billed
	Carriers    map[carrier.Carrier]int
}

// MatchManifest matches every row of a manifest.
// Excluded-carrier rows are set aside before matching and never annotate.
// If two rows select the same order the later row wins, so re-running the
// same manifest always converges to the same annotations.
func (m *Matcher) MatchManifest(rows []ManifestRow) *ManifestResult {
	result := &ManifestResult{Carriers: make(map[carrier.Carrier]int)}

	position := make(map[string]int)
	for _, row := range rows {
		if carrier.IsExcluded(row.Carrier) {
			result.Excluded = append(result.Excluded, row)
			continue
		}

		match := m.Match(row)
		switch {
		case match.Kind == MatchAmbiguous:
			result.Ambiguous = append(result.Ambiguous, match)
			continue
		case !match.Matched():
			result.Unmatched = append(result.Unmatched, row)
			continue
		}
		result.Matched = append(result.Matched, match)

		c := carrier.Normalize(row.Carrier)
		result.Carriers[c]++

		parcels := row.Parcels
		if parcels < 0 {
			parcels = 0
		}
		for _, order := range match.Selected {
			a := Annotation{
				Order: order,
				Annotation: model.DeliveryAnnotation{
					Carrier:    string(c),
					RawCarrier: row.Carrier,
					Parcels:    parcels,
				},
				Kind: match.Kind,
			}
			if i, ok := position[order.ID]; ok {
				result.Annotations[i] = a
				continue
			}
			position[order.ID] = len(result.Annotations)
			result.Annotations = append(result.Annotations, a)
		}
	}

	return result
}

// ObservedCarriers returns the known canonical carriers seen on matched rows.
func (r *ManifestResult) ObservedCarriers() []carrier.Carrier {
	out := make([]carrier.Carrier, 0, len(r.Carriers))
	for _, c := range carrier.All() {
		if c != carrier.Unknown && r.Carriers[c] > 0 {
			out = append(out, c)
		}
	}
	return out
}
