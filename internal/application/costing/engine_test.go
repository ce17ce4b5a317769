package costing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/logging"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

const tenant = "acme"

var day = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) ProductsWritten(source string, n int) {
	m.Called(source, n)
}

func (m *mockRecorder) OrdersSkipped(reason string, n int) {
	m.Called(reason, n)
}

func (m *mockRecorder) ManifestRows(outcome string, n int) {
	m.Called(outcome, n)
}

func line(sku string, qty, total float64) model.OrderLine {
	return model.OrderLine{SKU: sku, Quantity: qty, LineTotalInclVat: total}
}

func shipped(id, carrierID string, lines ...model.OrderLine) *model.Order {
	return &model.Order{
		ID:                 id,
		ChannelOrderNumber: "N-" + id,
		OrderDate:          day,
		DeliveryCarrier:    carrierID,
		DeliveryCarrierRaw: carrierID,
		DeliveryParcels:    model.Int(1),
		Lines:              lines,
	}
}

func cost(id string, amount float64) model.CarrierCost {
	return model.CarrierCost{CarrierID: id, Name: id, CostPerShipment: amount, IsActive: true, LastUpdated: day}
}

func seed(t *testing.T, orders []*model.Order, products []*model.Product, costs ...model.CarrierCost) *storage.MockRepository {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMockRepository()
	require.NoError(t, repo.SaveOrders(ctx, tenant, orders))
	for _, batch := range Chunk(products, storage.MaxBatchSize) {
		require.NoError(t, repo.BatchPutProducts(ctx, tenant, batch))
	}
	for _, c := range costs {
		require.NoError(t, repo.PutCarrierCost(ctx, tenant, c))
	}
	repo.ResetCounters()
	return repo
}

func newTestEngine(repo storage.Repository) *Engine {
	return NewEngine(repo, DefaultConfig(), nil, logging.Discard())
}

func costOf(t *testing.T, repo *storage.MockRepository, sku string) (float64, model.CostSource) {
	t.Helper()
	p := repo.Product(tenant, sku)
	require.NotNil(t, p, sku)
	require.NotNil(t, p.DeliveryCost, "%s has no delivery cost", sku)
	return *p.DeliveryCost, p.DeliveryCostSource
}

func TestEngine_ValueShareScenario(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("O1", "dpd", line("A", 1, 80), line("B", 1, 20))},
		[]*model.Product{{SKU: "A"}, {SKU: "B"}},
		cost("dpd", 10),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	a, src := costOf(t, repo, "A")
	assert.Equal(t, 8.0, a)
	assert.Equal(t, model.SourceDirect, src)
	b, _ := costOf(t, repo, "B")
	assert.Equal(t, 2.0, b)

	assert.Equal(t, 1, report.OrdersUsed)
	assert.Equal(t, 2, report.UpdatedDirect)
	assert.Equal(t, 2, report.Written)
	assert.Equal(t, map[string]int{"dpd": 1}, repo.Product(tenant, "A").DeliveryCarrierBreakdown)
}

func TestEngine_PerUnitAcrossOrders(t *testing.T) {
	var orders []*model.Order
	for i := 0; i < 4; i++ {
		orders = append(orders, shipped(fmt.Sprintf("o%d", i), "royal_mail", line("A", 1, 15)))
	}
	repo := seed(t, orders, []*model.Product{{SKU: "A"}}, cost("royal_mail", 8))

	_, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	a, _ := costOf(t, repo, "A")
	assert.Equal(t, 8.0, a, "32.00 over 4 units")
}

func TestEngine_CategoryFallback(t *testing.T) {
	repo := seed(t,
		[]*model.Order{
			shipped("o1", "dpd", line("X", 1, 10)),
			shipped("o2", "evri", line("Y", 1, 10)),
		},
		[]*model.Product{
			{SKU: "X", Category: "Taps, Kitchen"},
			{SKU: "Y", Category: "Taps"},
			{SKU: "C", Category: "Taps"},
			{SKU: "D", Category: "Mirrors"},
			{SKU: "E"},
		},
		cost("dpd", 3), cost("evri", 4),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	c, src := costOf(t, repo, "C")
	assert.Equal(t, 3.5, c)
	assert.Equal(t, model.SourceCategoryAverage, src)

	d, src := costOf(t, repo, "D")
	assert.Equal(t, 3.5, d)
	assert.Equal(t, model.SourceOverallAverage, src)

	assert.Equal(t, 1, report.UpdatedCategory)
	assert.Equal(t, 2, report.UpdatedOverall)
	assert.Equal(t, 3, report.UpdatedEstimated())
	assert.Equal(t, map[string]float64{"Taps": 3.5}, report.CategoryAverages)
	require.Len(t, report.Samples.Category, 1)
	assert.Equal(t, "Taps", report.Samples.Category[0].Category)
}

func TestEngine_EvidenceBeatsEstimate(t *testing.T) {
	repo := seed(t,
		[]*model.Order{
			shipped("o1", "dpd", line("X", 1, 10)),
			shipped("o2", "evri", line("Y", 1, 10)),
		},
		[]*model.Product{{SKU: "X", Category: "Taps"}, {SKU: "Y", Category: "Taps"}},
		cost("dpd", 2), cost("evri", 10),
	)

	_, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	x, src := costOf(t, repo, "X")
	assert.Equal(t, 2.0, x, "own evidence is never blended with the category average of 6")
	assert.Equal(t, model.SourceDirect, src)
}

func TestEngine_Overrides(t *testing.T) {
	repo := seed(t,
		[]*model.Order{
			shipped("o1", "palletways", line("SUITE-1", 1, 500)),
			shipped("o2", "dpd", line("SUITE-2", 1, 300)),
			shipped("o3", "dpd", line("TAP", 1, 30)),
		},
		[]*model.Product{
			{SKU: "SUITE-1", Title: "Corner Bathroom Suite"},
			{SKU: "SUITE-2", Title: "Compact SUITE"},
			{SKU: "TAP", Title: "Mixer tap", Category: "Taps"},
			{SKU: "HEAVY", Title: "Cast iron bath", Category: "Taps", Weight: 35},
			{SKU: "KEPT", Title: "Vanity suite", DeliveryCost: model.Float(70), DeliveryCostSource: model.SourceOverride},
		},
		cost("palletways", 60), cost("dpd", 10),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	v, src := costOf(t, repo, "SUITE-1")
	assert.Equal(t, 60.0, v, "override never lowers")
	assert.Equal(t, model.SourceDirect, src)

	v, src = costOf(t, repo, "SUITE-2")
	assert.Equal(t, 45.0, v, "override raises direct evidence")
	assert.Equal(t, model.SourceOverride, src)

	v, src = costOf(t, repo, "HEAVY")
	assert.Equal(t, 45.0, v, "heavy item skips the category average")
	assert.Equal(t, model.SourceOverride, src)

	v, _ = costOf(t, repo, "KEPT")
	assert.Equal(t, 70.0, v, "stored value above the override amount is kept")

	assert.Equal(t, 2, report.Overridden)
	assert.Equal(t, 1, report.Unchanged)
	require.Len(t, report.Samples.Override, 2)
	assert.Equal(t, "HEAVY", report.Samples.Override[0].SKU)
	assert.Equal(t, `weight over 30kg`, report.Samples.Override[0].Rule)
}

func TestEngine_Idempotent(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("O1", "dpd", line("A", 1, 80), line("B", 1, 20))},
		[]*model.Product{{SKU: "A"}, {SKU: "B"}, {SKU: "C"}},
		cost("dpd", 10),
	)
	engine := newTestEngine(repo)

	first, err := engine.Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)
	assert.Equal(t, 3, first.Written)

	repo.ResetCounters()
	second, err := engine.Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	assert.Equal(t, 0, repo.BatchPutCalls)
	assert.Equal(t, 0, second.Written)
	assert.Equal(t, 0, second.Updated())
	assert.Equal(t, 3, second.Unchanged)
}

func TestEngine_ToleranceGuard(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("o1", "dpd", line("A", 1, 10))},
		[]*model.Product{{SKU: "A", DeliveryCost: model.Float(5.005)}},
		cost("dpd", 5),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 0, repo.BatchPutCalls)
}

func TestEngine_ExcludedAndUnconfiguredCarriers(t *testing.T) {
	held := shipped("o1", "dpd", line("A", 1, 10))
	held.DeliveryCarrierRaw = "Hold for consolidation"

	repo := seed(t,
		[]*model.Order{
			held,
			shipped("o2", "yodel", line("B", 1, 10)),
			shipped("o3", "dx", line("C", 1, 10)),
			shipped("o4", "unknown", line("D", 1, 10)),
			shipped("o5", "dpd", line("E", 1, 10)),
		},
		[]*model.Product{{SKU: "A"}, {SKU: "B"}, {SKU: "C"}, {SKU: "D"}, {SKU: "E"}},
		cost("dpd", 4),
		model.CarrierCost{CarrierID: "dx", Name: "DX", CostPerShipment: 12, IsActive: false, LastUpdated: day},
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, report.Skipped[SkipExcludedCarrier])
	assert.Equal(t, 3, report.Skipped[SkipUnconfiguredCarrier])
	assert.Equal(t, map[string]int{"yodel": 1, "dx": 1, "unknown": 1}, report.UnconfiguredCarriers)
	assert.Equal(t, []string{"yodel"}, report.PlaceholdersCreated)
	assert.Equal(t, 1, report.OrdersUsed)

	a, src := costOf(t, repo, "A")
	assert.Equal(t, 4.0, a, "excluded order contributes nothing; A falls back to the overall average")
	assert.Equal(t, model.SourceOverallAverage, src)

	costs, err := repo.GetAllCarrierCosts(context.Background(), tenant)
	require.NoError(t, err)
	var yodel *model.CarrierCost
	for i := range costs {
		if costs[i].CarrierID == "yodel" {
			yodel = &costs[i]
		}
	}
	require.NotNil(t, yodel)
	assert.Equal(t, 0.0, yodel.CostPerShipment)
	assert.True(t, yodel.IsActive)
}

func TestEngine_SkipsOrdersWithoutLines(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("o1", "dpd"), shipped("o2", "dpd", line("A", 2, 10))},
		[]*model.Product{{SKU: "A"}},
		cost("dpd", 6),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Skipped[SkipNoLines])

	a, _ := costOf(t, repo, "A")
	assert.Equal(t, 3.0, a)
}

func TestEngine_NoEvidenceAnywhere(t *testing.T) {
	repo := seed(t, nil, []*model.Product{{SKU: "A"}, {SKU: "B"}})

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)
	assert.Equal(t, 2, report.NoValue)
	assert.Nil(t, report.OverallAverage)
	assert.Nil(t, repo.Product(tenant, "A").DeliveryCost)
}

func TestEngine_ChunkedWrites(t *testing.T) {
	var lines []model.OrderLine
	var products []*model.Product
	for i := 0; i < 60; i++ {
		sku := fmt.Sprintf("SKU-%02d", i)
		lines = append(lines, line(sku, 1, 10))
		products = append(products, &model.Product{SKU: sku})
	}
	repo := seed(t, []*model.Order{shipped("big", "dpd", lines...)}, products, cost("dpd", 60))

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	assert.Equal(t, 60, report.Written)
	assert.Equal(t, 3, repo.BatchPutCalls)
	assert.Equal(t, storage.MaxBatchSize, repo.MaxBatchSeen)
	assert.Len(t, report.Samples.Direct, 50, "samples are capped")
}

func TestEngine_DryRun(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("o1", "yodel", line("A", 1, 10)), shipped("o2", "dpd", line("B", 1, 10))},
		[]*model.Product{{SKU: "A"}, {SKU: "B"}},
		cost("dpd", 5),
	)

	report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{DryRun: true})
	require.NoError(t, err)

	assert.True(t, report.DryRun)
	assert.Equal(t, 2, report.Updated())
	assert.Equal(t, 0, report.Written)
	assert.Equal(t, 0, repo.BatchPutCalls)
	assert.Equal(t, 0, repo.PutCarrierCalls, "dry run creates no placeholders")
}

func TestEngine_WorkerCountDoesNotChangeResults(t *testing.T) {
	var orders []*model.Order
	var products []*model.Product
	for i := 0; i < 40; i++ {
		sku := fmt.Sprintf("S%d", i%7)
		orders = append(orders, shipped(fmt.Sprintf("o%02d", i), []string{"dpd", "evri"}[i%2],
			line(sku, float64(1+i%3), float64(5+i)),
			line("COMMON", 1, 3),
		))
	}
	for i := 0; i < 7; i++ {
		products = append(products, &model.Product{SKU: fmt.Sprintf("S%d", i)})
	}
	products = append(products, &model.Product{SKU: "COMMON"})

	results := make(map[int]map[string]float64)
	for _, workers := range []int{1, 3, 16} {
		repo := seed(t, orders, products, cost("dpd", 7.5), cost("evri", 3.2))
		cfg := DefaultConfig()
		cfg.AggregateWorkers = workers
		_, err := NewEngine(repo, cfg, nil, logging.Discard()).Recalculate(context.Background(), tenant, Options{})
		require.NoError(t, err)

		got := make(map[string]float64)
		for _, p := range products {
			v, _ := costOf(t, repo, p.SKU)
			got[p.SKU] = v
		}
		results[workers] = got
	}
	assert.Equal(t, results[1], results[3])
	assert.Equal(t, results[1], results[16])
}

func TestEngine_DefaultWorkersWithUnevenOrderCounts(t *testing.T) {
	for n := 1; n <= 13; n++ {
		t.Run(fmt.Sprintf("%d orders", n), func(t *testing.T) {
			var orders []*model.Order
			for i := 0; i < n; i++ {
				orders = append(orders, shipped(fmt.Sprintf("o%02d", i), "dpd", line("A", 1, 10)))
			}
			repo := seed(t, orders, []*model.Product{{SKU: "A"}}, cost("dpd", 10))

			report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
			require.NoError(t, err)
			assert.Equal(t, n, report.OrdersUsed)

			a, src := costOf(t, repo, "A")
			assert.InDelta(t, 10.0, a, 1e-9)
			assert.Equal(t, model.SourceDirect, src)
		})
	}
}

func TestEngine_RepositoryErrors(t *testing.T) {
	boom := errors.New("table locked")

	t.Run("orders", func(t *testing.T) {
		repo := seed(t, nil, nil)
		repo.GetAllOrdersErr = boom
		_, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("products", func(t *testing.T) {
		repo := seed(t, nil, nil)
		repo.GetAllProductsErr = boom
		_, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
		assert.ErrorIs(t, err, boom)
	})

	t.Run("writes", func(t *testing.T) {
		repo := seed(t,
			[]*model.Order{shipped("o1", "dpd", line("A", 1, 10))},
			[]*model.Product{{SKU: "A"}},
			cost("dpd", 5),
		)
		repo.BatchPutErr = boom
		report, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
		assert.ErrorIs(t, err, boom)
		require.NotNil(t, report)
		assert.Equal(t, 0, report.Written)
	})

	t.Run("placeholders", func(t *testing.T) {
		repo := seed(t, []*model.Order{shipped("o1", "yodel", line("A", 1, 10))}, nil)
		repo.PutCarrierCostErr = boom
		_, err := newTestEngine(repo).Recalculate(context.Background(), tenant, Options{})
		assert.ErrorIs(t, err, boom)
	})
}

func TestEngine_CancelledContext(t *testing.T) {
	repo := seed(t,
		[]*model.Order{shipped("o1", "dpd", line("A", 1, 10))},
		[]*model.Product{{SKU: "A"}},
		cost("dpd", 5),
	)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(repo).Recalculate(ctx, tenant, Options{})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, repo.BatchPutCalls)
}

func TestEngine_RecordsMetrics(t *testing.T) {
	repo := seed(t,
		[]*model.Order{
			shipped("o1", "dpd", line("A", 1, 10)),
			shipped("o2", "yodel", line("B", 1, 10)),
		},
		[]*model.Product{{SKU: "A"}, {SKU: "B"}},
		cost("dpd", 5),
	)

	rec := &mockRecorder{}
	rec.On("OrdersSkipped", SkipUnconfiguredCarrier, 1).Once()
	rec.On("ProductsWritten", "direct", 1).Once()
	rec.On("ProductsWritten", "overall average", 1).Once()
	rec.On("ProductsWritten", mock.Anything, 0)

	engine := NewEngine(repo, DefaultConfig(), rec, logging.Discard())
	_, err := engine.Recalculate(context.Background(), tenant, Options{})
	require.NoError(t, err)

	rec.AssertExpectations(t)
}
