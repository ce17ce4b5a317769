package costing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/logging"
)

// slowRepo records how many batch writes run at once
type slowRepo struct {
	mu       sync.Mutex
	inFlight int32
	peak     int32
	batches  [][]string
	failOn   string
}

func (r *slowRepo) GetAllProducts(context.Context, string) ([]*model.Product, error) {
	return nil, nil
}

func (r *slowRepo) BatchPutProducts(_ context.Context, _ string, products []*model.Product) error {
	n := atomic.AddInt32(&r.inFlight, 1)
	defer atomic.AddInt32(&r.inFlight, -1)
	for {
		peak := atomic.LoadInt32(&r.peak)
		if n <= peak || atomic.CompareAndSwapInt32(&r.peak, peak, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)

	skus := make([]string, 0, len(products))
	for _, p := range products {
		if p.SKU == r.failOn {
			return errors.New("write rejected")
		}
		skus = append(skus, p.SKU)
	}
	r.mu.Lock()
	r.batches = append(r.batches, skus)
	r.mu.Unlock()
	return nil
}

func decisionsFor(n int) []Decision {
	out := make([]Decision, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Decision{
			Product:  &model.Product{SKU: fmt.Sprintf("P%03d", i)},
			Value:    float64(i) + 1,
			HasValue: true,
			Source:   model.SourceDirect,
		})
	}
	return out
}

func TestWriter_Changed(t *testing.T) {
	w := NewWriter(nil, DefaultConfig(), logging.Discard())

	assert.True(t, w.Changed(&model.Product{}, 0), "no stored cost always counts as changed")
	assert.False(t, w.Changed(&model.Product{DeliveryCost: model.Float(5)}, 5.01))
	assert.True(t, w.Changed(&model.Product{DeliveryCost: model.Float(5)}, 5.02))
	assert.True(t, w.Changed(&model.Product{DeliveryCost: model.Float(5)}, 4.98))
}

func TestWriter_BoundedConcurrency(t *testing.T) {
	repo := &slowRepo{}
	cfg := DefaultConfig()
	cfg.BatchSize = 10
	cfg.WriteConcurrency = 2
	w := NewWriter(repo, cfg, logging.Discard())

	report, err := w.Write(context.Background(), tenant, decisionsFor(55), false)
	require.NoError(t, err)

	assert.Equal(t, 55, report.Written)
	assert.Len(t, repo.batches, 6)
	assert.LessOrEqual(t, atomic.LoadInt32(&repo.peak), int32(2))
	for _, b := range repo.batches {
		assert.LessOrEqual(t, len(b), 10)
	}
}

func TestWriter_BatchSizeIsCapped(t *testing.T) {
	repo := &slowRepo{}
	cfg := DefaultConfig()
	cfg.BatchSize = 100
	w := NewWriter(repo, cfg, logging.Discard())

	_, err := w.Write(context.Background(), tenant, decisionsFor(30), false)
	require.NoError(t, err)
	assert.Len(t, repo.batches, 2)
}

func TestWriter_ChunkFailure(t *testing.T) {
	repo := &slowRepo{failOn: "P012"}
	cfg := DefaultConfig()
	cfg.BatchSize = 5
	cfg.WriteConcurrency = 1
	w := NewWriter(repo, cfg, logging.Discard())

	report, err := w.Write(context.Background(), tenant, decisionsFor(20), false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chunk 3 of 4")
	assert.Equal(t, 10, report.Written, "chunks before the failure were written")
}

func TestWriter_Classification(t *testing.T) {
	w := NewWriter(nil, DefaultConfig(), logging.Discard())
	decisions := []Decision{
		{Product: &model.Product{SKU: "A"}, Value: 1, HasValue: true, Source: model.SourceDirect, Carrier: "dpd"},
		{Product: &model.Product{SKU: "B"}, Value: 2, HasValue: true, Source: model.SourceCategoryAverage, Category: "Taps"},
		{Product: &model.Product{SKU: "C"}, Value: 3, HasValue: true, Source: model.SourceOverallAverage},
		{Product: &model.Product{SKU: "D"}, Value: 45, HasValue: true, Source: model.SourceOverride, Rule: "weight over 30kg"},
		{Product: &model.Product{SKU: "E", DeliveryCost: model.Float(9)}, Value: 9, HasValue: true, Source: model.SourceDirect},
		{Product: &model.Product{SKU: "F"}, Source: model.SourceNone},
	}

	report, err := w.Write(context.Background(), tenant, decisions, true)
	require.NoError(t, err)

	assert.Equal(t, 1, report.UpdatedDirect)
	assert.Equal(t, 1, report.UpdatedCategory)
	assert.Equal(t, 1, report.UpdatedOverall)
	assert.Equal(t, 2, report.UpdatedEstimated())
	assert.Equal(t, 1, report.Overridden)
	assert.Equal(t, 1, report.Unchanged)
	assert.Equal(t, 1, report.NoValue)
	assert.Equal(t, 4, report.Updated())
	assert.Equal(t, 0, report.Written)

	require.Len(t, report.Samples.Direct, 1)
	assert.Equal(t, "dpd", report.Samples.Direct[0].Carrier)
	assert.Nil(t, report.Samples.Direct[0].Old)
	assert.Equal(t, "Taps", report.Samples.Category[0].Category)
	assert.Equal(t, "weight over 30kg", report.Samples.Override[0].Rule)
}

func TestChunk(t *testing.T) {
	assert.Nil(t, Chunk([]int(nil), 25))
	assert.Equal(t, [][]int{{1, 2}, {3, 4}, {5}}, Chunk([]int{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int{{1, 2, 3}}, Chunk([]int{1, 2, 3}, 0))
}
