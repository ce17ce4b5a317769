// Package carrier normalizes free-text carrier labels from delivery manifests
// into a closed set of canonical carriers and holds their configured costs.
//
// Normalization is a pure lookup: labels are folded (case, width, accents,
// punctuation) and matched against known aliases and keywords. Anything that
// does not match becomes Unknown, so a typo never creates a new carrier.
//
// Example usage:
//
//	c := carrier.Normalize("DPD Next Day")  // carrier.DPD
//	if carrier.IsExcluded(raw) {
//		// never billed
//	}
package carrier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// Carrier is a canonical carrier identifier.
type Carrier string

const (
	Unknown     Carrier = "unknown"
	DPD         Carrier = "dpd"
	DX          Carrier = "dx"
	RoyalMail   Carrier = "royal_mail"
	Parcelforce Carrier = "parcelforce"
	Evri        Carrier = "evri"
	Yodel       Carrier = "yodel"
	UPS         Carrier = "ups"
	DHL         Carrier = "dhl"
	FedEx       Carrier = "fedex"
	Palletways  Carrier = "palletways"
	InHouse     Carrier = "in_house"
)

var displayNames = map[Carrier]string{
	Unknown:     "Unknown",
	DPD:         "DPD",
	DX:          "DX",
	RoyalMail:   "Royal Mail",
	Parcelforce: "Parcelforce",
	Evri:        "Evri",
	Yodel:       "Yodel",
	UPS:         "UPS",
	DHL:         "DHL",
	FedEx:       "FedEx",
	Palletways:  "Palletways",
	InHouse:     "In-house Van",
}

// All returns every known carrier, Unknown last.
func All() []Carrier {
	return []Carrier{DPD, DX, RoyalMail, Parcelforce, Evri, Yodel, UPS, DHL, FedEx, Palletways, InHouse, Unknown}
}

// DisplayName returns a human readable name.
func (c Carrier) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// String implements fmt.Stringer.
func (c Carrier) String() string {
	return string(c)
}

// Parse converts a stored canonical id back into a Carrier.
// Ids outside the closed set return Unknown and false.
func Parse(id string) (Carrier, bool) {
	c := Carrier(strings.ToLower(strings.TrimSpace(id)))
	if _, ok := displayNames[c]; ok {
		return c, true
	}
	return Unknown, false
}

// exact aliases, keyed by folded label.
var aliases = map[string]Carrier{
	"dpd":                   DPD,
	"dpd local":             DPD,
	"dpdlocal":              DPD,
	"dpd next day":          DPD,
	"dpd classic":           DPD,
	"dx":                    DX,
	"dx freight":            DX,
	"dx secure":             DX,
	"royal mail":            RoyalMail,
	"royalmail":             RoyalMail,
	"rm":                    RoyalMail,
	"rm tracked 24":         RoyalMail,
	"rm tracked 48":         RoyalMail,
	"tracked 24":            RoyalMail,
	"tracked 48":            RoyalMail,
	"parcelforce":           Parcelforce,
	"parcel force":          Parcelforce,
	"parcelforce worldwide": Parcelforce,
	"pfw":                   Parcelforce,
	"evri":                  Evri,
	"hermes":                Evri,
	"myhermes":              Evri,
	"yodel":                 Yodel,
	"ups":                   UPS,
	"ups standard":          UPS,
	"dhl":                   DHL,
	"dhl express":           DHL,
	"dhl parcel":            DHL,
	"fedex":                 FedEx,
	"fed ex":                FedEx,
	"tnt":                   FedEx,
	"palletways":            Palletways,
	"own van":               InHouse,
	"in house":              InHouse,
	"in house delivery":     InHouse,
	"local delivery":        InHouse,
}

// keyword rules for vendor-specific service names, first match wins.
var keywords = []struct {
	token   string
	carrier Carrier
}{
	{"parcelforce", Parcelforce},
	{"royal mail", RoyalMail},
	{"royalmail", RoyalMail},
	{"myhermes", Evri},
	{"hermes", Evri},
	{"evri", Evri},
	{"yodel", Yodel},
	{"palletways", Palletways},
	{"fedex", FedEx},
	{"tnt", FedEx},
	{"dhl", DHL},
	{"ups", UPS},
	{"dpd", DPD},
	{"dx", DX},
}

// excludedLabels exclude only when they are the whole folded label.
var excludedLabels = map[string]bool{
	"hold":          true,
	"on hold":       true,
	"consolidation": true,
	"collection":    true,
	"collected":     true,
}

// excludedMarkers exclude wherever they appear in the folded label.
var excludedMarkers = []string{
	"hold for consolidation",
	"awaiting consolidation",
	"same day despatch",
	"same day dispatch",
	"sdd marker",
	"do not ship",
	"no delivery",
	"click and collect",
	"customer collection",
	"collect in store",
}

// Normalize maps a free-text label onto a canonical carrier.
func Normalize(raw string) Carrier {
	label := Fold(raw)
	if label == "" {
		return Unknown
	}
	if c, ok := aliases[label]; ok {
		return c
	}
	padded := " " + splitDigits(label) + " "
	for _, k := range keywords {
		if strings.Contains(padded, " "+k.token+" ") {
			return k.carrier
		}
	}
	return Unknown
}

// splitDigits separates a trailing service number from a word, so
// "parcelforce48" reads as "parcelforce 48".
func splitDigits(label string) string {
	var b strings.Builder
	b.Grow(len(label) + 4)
	var prev rune
	for i, r := range label {
		if i > 0 && unicode.IsDigit(r) && unicode.IsLetter(prev) {
			b.WriteByte(' ')
		}
		b.WriteRune(r)
		prev = r
	}
	return b.String()
}

// IsExcluded reports whether a label marks a non-shippable state that must
// never be billed or aggregated.
func IsExcluded(raw string) bool {
	label := Fold(raw)
	if label == "" {
		return false
	}
	if excludedLabels[label] {
		return true
	}
	padded := " " + label + " "
	for _, m := range excludedMarkers {
		if strings.Contains(padded, " "+m+" ") {
			return true
		}
	}
	return false
}

// Fold lowercases a label, strips accents, folds full-width forms and
// collapses punctuation and whitespace to single spaces.
func Fold(raw string) string {
	t := transform.Chain(width.Fold, norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(t, raw)
	if err != nil {
		s = raw
	}
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte(' ')
			}
			space = false
			b.WriteRune(r)
		case r == '&':
			if b.Len() > 0 {
				b.WriteByte(' ')
			}
			b.WriteString("and")
			space = true
		default:
			space = true
		}
	}
	return b.String()
}
