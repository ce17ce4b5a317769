package costing

import (
	"time"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/override"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/config"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// Reasons an annotated order is left out of aggregation
const (
	SkipExcludedCarrier     = "excluded_carrier"
	SkipUnconfiguredCarrier = "unconfigured_carrier"
	SkipNoLines             = "no_lines"
	SkipInvalidCost         = "invalid_cost"
)

// Config holds engine configuration
type Config struct {
	WriteTolerance   float64
	BatchSize        int
	WriteConcurrency int
	AggregateWorkers int
	SampleSize       int
	Override         override.Config
	Matcher          matcher.Config
}

// DefaultConfig returns the engine defaults
func DefaultConfig() Config {
	return Config{
		WriteTolerance:   0.01,
		BatchSize:        storage.MaxBatchSize,
		WriteConcurrency: 4,
		AggregateWorkers: 4,
		SampleSize:       50,
		Override:         override.DefaultConfig(),
		Matcher:          matcher.DefaultConfig(),
	}
}

// ConfigFromSettings converts the costing section of the application config
func ConfigFromSettings(s config.CostingConfig) (Config, error) {
	policy, err := matcher.ParseTieBreak(s.TieBreak)
	if err != nil {
		return Config{}, err
	}

	cfg := DefaultConfig()
	cfg.WriteTolerance = s.WriteTolerance
	cfg.BatchSize = s.BatchSize
	cfg.WriteConcurrency = s.WriteConcurrency
	cfg.AggregateWorkers = s.AggregateWorkers
	cfg.SampleSize = s.SampleSize
	cfg.Override = override.Config{
		Amount:        s.OverrideAmount,
		HeavyWeightKg: s.HeavyWeightKg,
		Keyword:       s.OverrideKeyword,
	}
	cfg.Matcher.TieBreak = policy
	return cfg, nil
}

// Options holds per-run settings
type Options struct {
	DryRun bool
}

// Recorder receives engine counters. *observability.Metrics implements it.
type Recorder interface {
	ProductsWritten(source string, n int)
	OrdersSkipped(reason string, n int)
	ManifestRows(outcome string, n int)
}

type nopRecorder struct{}

func (nopRecorder) ProductsWritten(string, int) {}
func (nopRecorder) OrdersSkipped(string, int) {}
func (nopRecorder) ManifestRows(string, int) {}

// ChangeSample describes one product value change
type ChangeSample struct {
	SKU      string           `json:"sku"`
	Old      *float64         `json:"old,omitempty"`
	New      float64          `json:"new"`
	Source   model.CostSource `json:"source"`
	Carrier  string           `json:"carrier,omitempty"`
	Category string           `json:"category,omitempty"`
	Rule     string           `json:"rule,omitempty"`
}

// Samples holds the first changes of each kind
type Samples struct {
	Direct   []ChangeSample `json:"direct,omitempty"`
	Category []ChangeSample `json:"category,omitempty"`
	Overall  []ChangeSample `json:"overall,omitempty"`
	Override []ChangeSample `json:"override,omitempty"`
}

// WriteReport counts what the writer did with each product
type WriteReport struct {
	UpdatedDirect   int     `json:"updated_direct"`
	UpdatedCategory int     `json:"updated_category"`
	UpdatedOverall  int     `json:"updated_overall"`
	Overridden      int     `json:"overridden"`
	Unchanged       int     `json:"unchanged"`
	NoValue         int     `json:"no_value"`
	Written         int     `json:"written"`
	Samples         Samples `json:"samples"`
}

// UpdatedEstimated is the number of products updated from either average
func (r *WriteReport) UpdatedEstimated() int {
	return r.UpdatedCategory + r.UpdatedOverall
}

// Updated is the number of products whose value changed
func (r *WriteReport) Updated() int {
	return r.UpdatedDirect + r.UpdatedEstimated() + r.Overridden
}

// Report is the outcome of a recalculation pass
type Report struct {
	Tenant               string             `json:"tenant"`
	DryRun               bool               `json:"dry_run"`
	OrdersRead           int                `json:"orders_read"`
	OrdersUsed           int                `json:"orders_used"`
	Skipped              map[string]int     `json:"skipped,omitempty"`
	UnconfiguredCarriers map[string]int     `json:"unconfigured_carriers,omitempty"`
	PlaceholdersCreated  []string           `json:"placeholders_created,omitempty"`
	ProductsRead         int                `json:"products_read"`
	SKUsWithEvidence     int                `json:"skus_with_evidence"`
	CategoryAverages     map[string]float64 `json:"category_averages,omitempty"`
	OverallAverage       *float64           `json:"overall_average,omitempty"`
	WriteReport
	Duration time.Duration `json:"duration"`
}

// ManifestSample describes one manifest row that did not annotate an order
type ManifestSample struct {
	OrderNumber string   `json:"order_number"`
	Carrier     string   `json:"carrier"`
	Candidates  []string `json:"candidates,omitempty"`
}

// ImportReport is the outcome of a manifest import
type ImportReport struct {
	Rows                int              `json:"rows"`
	Matched             int              `json:"matched"`
	Ambiguous           int              `json:"ambiguous"`
	Unmatched           int              `json:"unmatched"`
	Excluded            int              `json:"excluded"`
	ParcelsDefaulted    int              `json:"parcels_defaulted,omitempty"`
	Annotated           int              `json:"annotated"`
	CarriersFound       map[string]int   `json:"carriers_found,omitempty"`
	PlaceholdersCreated []string         `json:"placeholders_created,omitempty"`
	AmbiguousSamples    []ManifestSample `json:"ambiguous_samples,omitempty"`
	UnmatchedSamples    []ManifestSample `json:"unmatched_samples,omitempty"`
	ExcludedSamples     []ManifestSample `json:"excluded_samples,omitempty"`
	Recalculation       *Report          `json:"recalculation"`
}
