package costing

import (
	"context"
	"errors"
	"fmt"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/matcher"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

// Manifest match outcomes reported to the recorder
const (
	OutcomeMatched   = "matched"
	OutcomeAmbiguous = "ambiguous"
	OutcomeUnmatched = "unmatched"
	OutcomeExcluded  = "excluded"
)

// ImportManifest annotates orders from a carrier manifest, then recomputes
// the whole catalog so averages stay consistent with the new evidence.
func (e *Engine) ImportManifest(ctx context.Context, tenant string, rows []matcher.ManifestRow, opts Options) (*ImportReport, error) {
	logger := e.logger.With("tenant", tenant, "dry_run", opts.DryRun)

	orders, err := e.repo.GetAllOrders(ctx, tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to load orders: %w", err)
	}

	m := matcher.NewMatcher(e.config.Matcher, orders)
	result := m.MatchManifest(rows)

	report := &ImportReport{
		Rows:      len(rows),
		Matched:   len(result.Matched),
		Ambiguous: len(result.Ambiguous),
		Unmatched: len(result.Unmatched),
		Excluded:  len(result.Excluded),
	}
	for _, row := range rows {
		if row.ParcelsDefaulted {
			report.ParcelsDefaulted++
		}
	}
	e.fillSamples(report, result)
	for c, n := range result.Carriers {
		if report.CarriersFound == nil {
			report.CarriersFound = make(map[string]int)
		}
		report.CarriersFound[string(c)] = n
	}

	e.recorder.ManifestRows(OutcomeMatched, report.Matched)
	e.recorder.ManifestRows(OutcomeAmbiguous, report.Ambiguous)
	e.recorder.ManifestRows(OutcomeUnmatched, report.Unmatched)
	e.recorder.ManifestRows(OutcomeExcluded, report.Excluded)

	logger.Info("matched manifest",
		"rows", report.Rows,
		"matched", report.Matched,
		"ambiguous", report.Ambiguous,
		"unmatched", report.Unmatched,
		"excluded", report.Excluded,
		"parcels_defaulted", report.ParcelsDefaulted,
	)

	for _, a := range result.Annotations {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		if !opts.DryRun {
			err := e.repo.UpdateOrderDelivery(ctx, tenant, a.Order.ID, a.Annotation)
			if errors.Is(err, storage.ErrNotFound) {
				logger.Warn("order vanished before annotation", "order_id", a.Order.ID)
				continue
			}
			if err != nil {
				return report, fmt.Errorf("failed to annotate order %s: %w", a.Order.ID, err)
			}
		}
		a.Order.DeliveryCarrier = a.Annotation.Carrier
		a.Order.DeliveryCarrierRaw = a.Annotation.RawCarrier
		a.Order.DeliveryParcels = model.Int(a.Annotation.Parcels)
		report.Annotated++
	}

	annotated := make([]*model.Order, 0, len(orders))
	for _, o := range orders {
		if o.HasDeliveryData() {
			annotated = append(annotated, o)
		}
	}

	recalc, err := e.run(ctx, tenant, annotated, opts)
	report.Recalculation = recalc
	if recalc != nil {
		report.PlaceholdersCreated = recalc.PlaceholdersCreated
	}
	if err != nil {
		return report, err
	}
	return report, nil
}

func (e *Engine) fillSamples(report *ImportReport, result *matcher.ManifestResult) {
	limit := e.config.SampleSize
	for _, r := range result.Ambiguous {
		if len(report.AmbiguousSamples) >= limit {
			break
		}
		s := ManifestSample{OrderNumber: r.Row.OrderNumber, Carrier: r.Row.Carrier}
		for _, c := range r.Candidates {
			s.Candidates = append(s.Candidates, c.ChannelOrderNumber)
		}
		report.AmbiguousSamples = append(report.AmbiguousSamples, s)
	}
	for _, row := range result.Unmatched {
		if len(report.UnmatchedSamples) >= limit {
			break
		}
		report.UnmatchedSamples = append(report.UnmatchedSamples, ManifestSample{OrderNumber: row.OrderNumber, Carrier: row.Carrier})
	}
	for _, row := range result.Excluded {
		if len(report.ExcludedSamples) >= limit {
			break
		}
		report.ExcludedSamples = append(report.ExcludedSamples, ManifestSample{OrderNumber: row.OrderNumber, Carrier: row.Carrier})
	}
}
