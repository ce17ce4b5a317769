package matcher

import (
	"fmt"
	"strings"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
)

// TieBreakPolicy decides what happens when a stripped base number matches
// more than one order.
type TieBreakPolicy string

const (
	// TieBreakReject reports the row as ambiguous and annotates nothing.
	TieBreakReject TieBreakPolicy = "reject"
	// TieBreakEarliest picks the earliest order date, then lowest order number.
	TieBreakEarliest TieBreakPolicy = "earliest"
	// TieBreakAll annotates every candidate.
	TieBreakAll TieBreakPolicy = "all"
)

// ParseTieBreak parses a policy name. Empty means TieBreakReject.
func ParseTieBreak(s string) (TieBreakPolicy, error) {
	switch p := TieBreakPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return TieBreakReject, nil
	case TieBreakReject, TieBreakEarliest, TieBreakAll:
		return p, nil
	default:
		return "", fmt.Errorf("unknown tie-break policy %q", s)
	}
}

// Config holds matcher configuration
type Config struct {
	Separators string         // Default: "-_/"
	TieBreak   TieBreakPolicy // Default: reject
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Separators: "-_/",
		TieBreak:   TieBreakReject,
	}
}

// ManifestRow is one line of an imported delivery manifest.
type ManifestRow struct {
	OrderNumber string `json:"orderNumber"`
	Parcels     int    `json:"parcels"`
	Carrier     string `json:"carrier"`

	// ParcelsDefaulted is set when the parcel cell was unreadable and one
	// parcel was assumed.
	ParcelsDefaulted bool `json:"-"`
}

// MatchKind describes how a row was matched.
type MatchKind string

const (
	MatchExact     MatchKind = "exact"
	MatchBase      MatchKind = "base"
	MatchAmbiguous MatchKind = "ambiguous"
	MatchNone      MatchKind = "none"
)

// MatchResult contains match information for one manifest row.
type MatchResult struct {
	Row        ManifestRow
	Kind       MatchKind
	BaseNumber string         // Set when the base-number index was used
	Candidates []*model.Order // Every order the row could refer to
	Selected   []*model.Order // Orders to annotate after the tie-break
}

// Matched reports whether at least one order will be annotated.
func (r *MatchResult) Matched() bool {
	return len(r.Selected) > 0
}
