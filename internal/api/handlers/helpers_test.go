package handlers_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/costing"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/application/service"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/logging"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/storage"
)

const tenant = "acme"

var orderDate = time.Date(2025, 10, 16, 9, 0, 0, 0, time.UTC)

// newTestService seeds one unshipped order with two lines and a configured DPD cost
func newTestService(t *testing.T) (*service.CostService, *storage.MockRepository) {
	t.Helper()
	ctx := context.Background()
	repo := storage.NewMockRepository()

	require.NoError(t, repo.SaveOrders(ctx, tenant, []*model.Order{{
		ID:                 "o1",
		ChannelOrderNumber: "1001",
		OrderDate:          orderDate,
		Lines: []model.OrderLine{
			{SKU: "A", Quantity: 1, LineTotalInclVat: 80},
			{SKU: "B", Quantity: 1, LineTotalInclVat: 20},
		},
	}}))
	require.NoError(t, repo.BatchPutProducts(ctx, tenant, []*model.Product{
		{SKU: "A", Category: "Taps"},
		{SKU: "B", Category: "Taps"},
	}))
	require.NoError(t, repo.PutCarrierCost(ctx, tenant, model.CarrierCost{
		CarrierID: "dpd", Name: "DPD", CostPerShipment: 10, IsActive: true, LastUpdated: orderDate,
	}))
	repo.ResetCounters()

	return service.NewCostService(repo, costing.DefaultConfig(), nil, logging.Discard()), repo
}

// newRequest builds a request with chi URL parameters given as key, value pairs
func newRequest(method, target string, body io.Reader, params ...string) *http.Request {
	req := httptest.NewRequest(method, target, body)
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(params); i += 2 {
		rctx.URLParams.Add(params[i], params[i+1])
	}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}
