// Package manifest reads delivery manifests exported by carriers and
// warehouse tools into matcher rows.
//
// Two layouts are accepted: CSV with a header row, and a JSON array of
// objects. CSV headers are matched loosely so "Order No", "order_number"
// and "Reference" all land in the order number column.
package manifest

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
)

// Format is the encoding of a manifest file
type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
)

var (
	// ErrMissingColumn is returned when a CSV header has no order number or carrier column
	ErrMissingColumn = errors.New("manifest header is missing a required column")

	// ErrMissingOrderNumber is returned when a JSON row has no order number
	ErrMissingOrderNumber = errors.New("manifest row has no order number")
)

// Header aliases, compared after normalizeHeader
var (
	orderNumberHeaders = []string{"order_number", "ordernumber", "order_no", "order", "order_id", "channel_order_number", "reference", "ref"}
	parcelHeaders      = []string{"parcels", "parcel_count", "parcel", "packages", "boxes", "qty_parcels"}
	carrierHeaders     = []string{"carrier", "courier", "service", "delivery_service", "shipping_service"}
)

// jsonRow is one element of a JSON manifest. Both orderNumber and
// order_number are accepted.
type jsonRow struct {
	OrderNumber      string `json:"orderNumber"`
	OrderNumberSnake string `json:"order_number"`
	Parcels          *int   `json:"parcels"`
	Carrier          string `json:"carrier"`
}

func (jr jsonRow) orderNumber() string {
	if n := strings.TrimSpace(jr.OrderNumber); n != "" {
		return n
	}
	return strings.TrimSpace(jr.OrderNumberSnake)
}

// DetectFormat guesses the format from a file name or a Content-Type value.
// Anything that does not look like JSON is treated as CSV.
func DetectFormat(hint string) Format {
	hint = strings.ToLower(strings.TrimSpace(hint))
	if strings.Contains(hint, "json") || filepath.Ext(hint) == ".json" {
		return FormatJSON
	}
	return FormatCSV
}

// Parse reads manifest rows in the given format
func Parse(r io.Reader, format Format) ([]matcher.ManifestRow, error) {
	switch format {
	case FormatJSON:
		return ParseJSON(r)
	case FormatCSV, "":
		return ParseCSV(r)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
}

// ParseJSON parses a JSON array of {orderNumber, parcels, carrier} objects.
// A missing parcel count defaults to one parcel. A row without an order
// number fails the parse.
func ParseJSON(r io.Reader) ([]matcher.ManifestRow, error) {
	var raw []jsonRow
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("failed to decode manifest: %w", err)
	}

	rows := make([]matcher.ManifestRow, 0, len(raw))
	for i, jr := range raw {
		number := jr.orderNumber()
		if number == "" {
			return nil, fmt.Errorf("row %d: %w", i+1, ErrMissingOrderNumber)
		}
		row := matcher.ManifestRow{
			OrderNumber: number,
			Carrier:     strings.TrimSpace(jr.Carrier),
			Parcels:     1,
		}
		if jr.Parcels != nil {
			row.Parcels = *jr.Parcels
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// ParseCSV parses a CSV manifest with a header row. Blank lines are skipped,
// short rows are padded, and an empty parcel cell means one parcel. A parcel
// cell that is not a whole number also counts as one parcel and the row is
// flagged with ParcelsDefaulted.
func ParseCSV(r io.Reader) ([]matcher.ManifestRow, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest header: %w", err)
	}

	orderCol := findColumn(header, orderNumberHeaders)
	carrierCol := findColumn(header, carrierHeaders)
	parcelCol := findColumn(header, parcelHeaders)
	if orderCol < 0 || carrierCol < 0 {
		return nil, fmt.Errorf("%w: need order number and carrier, got %q", ErrMissingColumn, header)
	}

	var rows []matcher.ManifestRow
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read manifest: %w", err)
		}
		if blankRecord(record) {
			continue
		}

		parcels, ok := parseParcels(cell(record, parcelCol))
		rows = append(rows, matcher.ManifestRow{
			OrderNumber:      cell(record, orderCol),
			Parcels:          parcels,
			Carrier:          cell(record, carrierCol),
			ParcelsDefaulted: !ok,
		})
	}
	return rows, nil
}

// parseParcels parses a parcel count like "2". Empty means one parcel;
// anything unreadable is one parcel and ok is false.
func parseParcels(s string) (int, bool) {
	if s == "" {
		return 1, true
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 1, false
	}
	return n, true
}

func findColumn(header []string, aliases []string) int {
	for i, h := range header {
		name := normalizeHeader(h)
		for _, alias := range aliases {
			if name == alias {
				return i
			}
		}
	}
	return -1
}

// normalizeHeader lowercases a header and joins words with underscores.
// Excel exports often start with a byte order mark.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.TrimSuffix(h, ".")
	return strings.Join(strings.FieldsFunc(h, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '.'
	}), "_")
}

func cell(record []string, col int) string {
	if col < 0 || col >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[col])
}

func blankRecord(record []string) bool {
	for _, f := range record {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
