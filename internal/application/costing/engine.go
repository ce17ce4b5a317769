// Package costing turns order-level carrier charges into per-unit product
// delivery costs and writes the ones that changed.
package costing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/aggregate"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/allocator"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/carrier"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/estimator"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/override"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// Engine runs recalculation and manifest import passes for one repository
type Engine struct {
	repo      storage.Repository
	config    Config
	overrides *override.Engine
	writer    *Writer
	recorder  Recorder
	logger    *slog.Logger
	now       func() time.Time
}

// NewEngine creates a costing engine. A nil recorder disables metrics.
func NewEngine(repo storage.Repository, cfg Config, recorder Recorder, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}
	if cfg.AggregateWorkers <= 0 {
		cfg.AggregateWorkers = 1
	}
	return &Engine{
		repo:      repo,
		config:    cfg,
		overrides: override.NewEngine(cfg.Override),
		writer:    NewWriter(repo, cfg, logger),
		recorder:  recorder,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// billable is an annotated order with a configured carrier cost
type billable struct {
	order   *model.Order
	carrier carrier.Carrier
	cost    float64
}

// Recalculate recomputes delivery cost for the whole catalog from every
// annotated order in the tenant's history.
func (e *Engine) Recalculate(ctx context.Context, tenant string, opts Options) (*Report, error) {
	orders, err := e.repo.GetAllOrdersWithDeliveryData(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}
	return e.run(ctx, tenant, orders, opts)
}

// run executes the pipeline over already loaded annotated orders
func (e *Engine) run(ctx context.Context, tenant string, orders []*model.Order, opts Options) (*Report, error) {
	start := time.Now()
	logger := e.logger.With("tenant", tenant, "dry_run", opts.DryRun)

	var products []*model.Product
	var costs []model.CarrierCost
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		products, err = e.repo.GetAllProducts(gctx, tenant)
		if err != nil {
			return fmt.Errorf("failed to load products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		costs, err = e.repo.GetAllCarrierCosts(gctx, tenant)
		if err != nil {
			return fmt.Errorf("failed to load carrier costs: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &Report{
		Tenant:       tenant,
		DryRun:       opts.DryRun,
		OrdersRead:   len(orders),
		ProductsRead: len(products),
		Skipped:      make(map[string]int),
	}

	registry := carrier.NewRegistry(costs)
	work := e.selectBillable(orders, registry, report)

	if !opts.DryRun {
		created, err := registry.EnsureConfigured(ctx, e.repo, tenant, observedCarriers(orders), e.now())
		for _, c := range created {
			report.PlaceholdersCreated = append(report.PlaceholdersCreated, string(c))
		}
		if err != nil {
			return nil, err
		}
		if len(created) > 0 {
			logger.Info("created carrier placeholders", "carriers", report.PlaceholdersCreated)
		}
	}

	agg, err := e.aggregate(ctx, work, report)
	if err != nil {
		return nil, err
	}
	for reason, n := range report.Skipped {
		e.recorder.OrdersSkipped(reason, n)
	}

	logger.Info("aggregated orders",
		"orders_read", report.OrdersRead,
		"orders_used", report.OrdersUsed,
		"skus", agg.Len(),
	)

	decisions := e.decide(products, agg, report)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	wr, err := e.writer.Write(ctx, tenant, decisions, opts.DryRun)
	if wr != nil {
		report.WriteReport = *wr
	}
	if err != nil {
		return report, err
	}

	if !opts.DryRun {
		e.recorder.ProductsWritten(string(model.SourceDirect), report.UpdatedDirect)
		e.recorder.ProductsWritten(string(model.SourceCategoryAverage), report.UpdatedCategory)
		e.recorder.ProductsWritten(string(model.SourceOverallAverage), report.UpdatedOverall)
		e.recorder.ProductsWritten(string(model.SourceOverride), report.Overridden)
	}

	report.Duration = time.Since(start)
	logger.Info("recalculation complete",
		"direct", report.UpdatedDirect,
		"estimated", report.UpdatedEstimated(),
		"overridden", report.Overridden,
		"unchanged", report.Unchanged,
		"no_value", report.NoValue,
		"written", report.Written,
	)
	return report, nil
}

// selectBillable keeps annotated orders whose carrier is billable and
// counts the rest by reason.
func (e *Engine) selectBillable(orders []*model.Order, registry *carrier.Registry, report *Report) []billable {
	work := make([]billable, 0, len(orders))
	for _, o := range orders {
		if !o.HasDeliveryData() {
			continue
		}
		if carrier.IsExcluded(o.DeliveryCarrierRaw) || carrier.IsExcluded(o.DeliveryCarrier) {
			report.Skipped[SkipExcludedCarrier]++
			continue
		}

		c := orderCarrier(o)
		cost, ok := registry.CostOf(c)
		if !ok {
			report.Skipped[SkipUnconfiguredCarrier]++
			if report.UnconfiguredCarriers == nil {
				report.UnconfiguredCarriers = make(map[string]int)
			}
			report.UnconfiguredCarriers[string(c)]++
			continue
		}
		work = append(work, billable{order: o, carrier: c, cost: cost})
	}
	return work
}

// aggregate allocates every billable order and folds the allocations into
// per-SKU stats. Orders are partitioned across workers and the partial
// aggregates merged in partition order.
func (e *Engine) aggregate(ctx context.Context, work []billable, report *Report) (*aggregate.Aggregator, error) {
	workers := e.config.AggregateWorkers
	if workers > len(work) {
		workers = len(work)
	}
	if workers == 0 {
		return aggregate.New(), nil
	}

	type partial struct {
		agg     *aggregate.Aggregator
		used    int
		skipped map[string]int
	}
	partials := make([]partial, workers)
	size := (len(work) + workers - 1) / workers

	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < workers; i++ {
		lo := i * size
		if lo >= len(work) {
			break
		}
		hi := lo + size
		if hi > len(work) {
			hi = len(work)
		}
		g.Go(func() error {
			p := partial{agg: aggregate.New(), skipped: make(map[string]int)}
			for _, b := range work[lo:hi] {
				if err := gctx.Err(); err != nil {
					return err
				}
				result, err := allocator.Allocate(b.order.Lines, b.cost)
				switch {
				case errors.Is(err, allocator.ErrNoLines):
					p.skipped[SkipNoLines]++
					continue
				case err != nil:
					p.skipped[SkipInvalidCost]++
					continue
				}
				p.agg.Add(b.carrier, result)
				p.used++
			}
			partials[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := aggregate.New()
	for _, p := range partials {
		if p.agg == nil {
			continue
		}
		merged.Merge(p.agg)
		report.OrdersUsed += p.used
		for reason, n := range p.skipped {
			report.Skipped[reason] += n
		}
	}
	return merged, nil
}

// decide assigns each catalog product its value and source. Direct
// evidence wins, override rules only raise, and estimates fill the rest.
func (e *Engine) decide(products []*model.Product, agg *aggregate.Aggregator, report *Report) []Decision {
	est := estimator.New()
	for _, p := range products {
		if perUnit, ok := agg.PerUnit(p.SKU); ok {
			est.Observe(p.Category, perUnit)
			report.SKUsWithEvidence++
		}
	}
	if cats := est.Categories(); len(cats) > 0 {
		report.CategoryAverages = make(map[string]float64, len(cats))
		for _, c := range cats {
			report.CategoryAverages[c.Category] = allocator.RoundToCents(c.Average())
		}
	}
	if overall, ok := est.Overall(); ok {
		report.OverallAverage = model.Float(overall)
	}

	decisions := make([]Decision, 0, len(products))
	for _, p := range products {
		d := Decision{Product: p, Source: model.SourceNone}

		if perUnit, ok := agg.PerUnit(p.SKU); ok {
			stats := agg.Stats(p.SKU)
			d.Value = perUnit
			d.HasValue = true
			d.Source = model.SourceDirect
			d.Carrier = string(stats.DominantCarrier())
			d.Breakdown = stats.Breakdown()
		}

		if rule, triggered := e.overrides.Match(p); triggered {
			current := d.Value
			if !d.HasValue {
				// without fresh evidence the stored value is what must not drop
				current = p.CurrentDeliveryCost()
			}
			decision := e.overrides.Apply(p, current)
			switch {
			case decision.Raised:
				d.Value = decision.Value
				d.HasValue = true
				d.Source = model.SourceOverride
				d.Rule = rule.Name()
			case !d.HasValue && p.DeliveryCost != nil:
				d.Value = current
				d.HasValue = true
				d.Source = p.DeliveryCostSource
				d.Rule = rule.Name()
			}
			decisions = append(decisions, d)
			continue
		}

		if !d.HasValue {
			fallback := est.Estimate(p.Category)
			if fallback.Source != model.SourceNone {
				d.Value = fallback.Value
				d.HasValue = true
				d.Source = fallback.Source
				d.Category = fallback.Category
			}
		}
		decisions = append(decisions, d)
	}
	return decisions
}

// orderCarrier resolves an order's stored carrier to a canonical id
func orderCarrier(o *model.Order) carrier.Carrier {
	if c, ok := carrier.Parse(o.DeliveryCarrier); ok {
		return c
	}
	if c := carrier.Normalize(o.DeliveryCarrier); c != carrier.Unknown {
		return c
	}
	return carrier.Normalize(o.DeliveryCarrierRaw)
}

// observedCarriers lists the distinct known carriers on annotated orders
func observedCarriers(orders []*model.Order) []carrier.Carrier {
	seen := make(map[carrier.Carrier]bool)
	var out []carrier.Carrier
	for _, o := range orders {
		if !o.HasDeliveryData() || carrier.IsExcluded(o.DeliveryCarrierRaw) {
			continue
		}
		c := orderCarrier(o)
		if c == carrier.Unknown || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	return out
}
