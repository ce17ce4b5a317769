package costing

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// Decision is the value the pipeline assigned to one product
type Decision struct {
	Product   *model.Product
	Value     float64
	HasValue  bool
	Source    model.CostSource
	Carrier   string
	Category  string
	Rule      string
	Breakdown map[string]int
}

// Writer persists changed delivery costs in bounded, concurrent chunks
type Writer struct {
	repo        storage.ProductRepository
	tolerance   float64
	batchSize   int
	concurrency int
	sampleSize  int
	logger      *slog.Logger
}

// NewWriter creates a writer. Batch size is capped at storage.MaxBatchSize.
func NewWriter(repo storage.ProductRepository, cfg Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	batch := cfg.BatchSize
	if batch <= 0 || batch > storage.MaxBatchSize {
		batch = storage.MaxBatchSize
	}
	concurrency := cfg.WriteConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	return &Writer{
		repo:        repo,
		tolerance:   cfg.WriteTolerance,
		batchSize:   batch,
		concurrency: concurrency,
		sampleSize:  cfg.SampleSize,
		logger:      logger,
	}
}

// Changed reports whether value differs enough from the stored cost to write.
// A product with no stored cost always counts as changed.
func (w *Writer) Changed(p *model.Product, value float64) bool {
	if p.DeliveryCost == nil {
		return true
	}
	return math.Abs(value-*p.DeliveryCost) > w.tolerance
}

// Write classifies every decision, then writes the changed products unless
// dryRun is set. Decisions must be in a deterministic order; samples follow it.
func (w *Writer) Write(ctx context.Context, tenant string, decisions []Decision, dryRun bool) (*WriteReport, error) {
	report := &WriteReport{}
	var pending []*model.Product

	for _, d := range decisions {
		if !d.HasValue {
			report.NoValue++
			continue
		}
		if !w.Changed(d.Product, d.Value) {
			report.Unchanged++
			continue
		}

		sample := ChangeSample{
			SKU:      d.Product.SKU,
			Old:      d.Product.DeliveryCost,
			New:      d.Value,
			Source:   d.Source,
			Carrier:  d.Carrier,
			Category: d.Category,
			Rule:     d.Rule,
		}
		switch d.Source {
		case model.SourceDirect:
			report.UpdatedDirect++
			report.Samples.Direct = w.appendSample(report.Samples.Direct, sample)
		case model.SourceCategoryAverage:
			report.UpdatedCategory++
			report.Samples.Category = w.appendSample(report.Samples.Category, sample)
		case model.SourceOverallAverage:
			report.UpdatedOverall++
			report.Samples.Overall = w.appendSample(report.Samples.Overall, sample)
		case model.SourceOverride:
			report.Overridden++
			report.Samples.Override = w.appendSample(report.Samples.Override, sample)
		}

		updated := *d.Product
		updated.DeliveryCost = model.Float(d.Value)
		updated.DeliveryCostSource = d.Source
		updated.DeliveryCarrierBreakdown = d.Breakdown
		pending = append(pending, &updated)
	}

	if dryRun || len(pending) == 0 {
		return report, nil
	}

	written, err := w.writeChunks(ctx, tenant, pending)
	report.Written = written
	if err != nil {
		return report, err
	}
	return report, nil
}

func (w *Writer) appendSample(samples []ChangeSample, s ChangeSample) []ChangeSample {
	if len(samples) >= w.sampleSize {
		return samples
	}
	return append(samples, s)
}

// writeChunks writes products in chunks of at most batchSize, with up to
// concurrency chunks in flight. It stops starting new chunks on the first
// error or when ctx is cancelled.
func (w *Writer) writeChunks(ctx context.Context, tenant string, products []*model.Product) (int, error) {
	chunks := Chunk(products, w.batchSize)
	written := make([]int, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)

	for i, chunk := range chunks {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := w.repo.BatchPutProducts(gctx, tenant, chunk); err != nil {
				return fmt.Errorf("failed to write chunk %d of %d: %w", i+1, len(chunks), err)
			}
			written[i] = len(chunk)
			w.logger.Debug("wrote product chunk", "chunk", i+1, "size", len(chunk))
			return nil
		})
	}

	err := g.Wait()
	total := 0
	for _, n := range written {
		total += n
	}
	return total, err
}

// Chunk splits items into consecutive slices of at most size elements
func Chunk[T any](items []T, size int) [][]T {
	if size <= 0 {
		size = len(items)
	}
	var chunks [][]T
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}
		chunks = append(chunks, items[start:end])
	}
	return chunks
}
