package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/dto"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/api/handlers"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/domain/model"
	"github.com/GavinSmith1983/trading-dashboard-sub000/internal/infrastructure/logging"
)

func TestCarriersHandler_List(t *testing.T) {
	svc, _ := newTestService(t)
	handler := handlers.NewCarriersHandler(svc, logging.Discard())

	rec := httptest.NewRecorder()
	handler.List(rec, newRequest(http.MethodGet, "/api/tenants/acme/carriers", nil, "tenant", tenant))

	require.Equal(t, http.StatusOK, rec.Code)

	var response dto.CarrierListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, tenant, response.Tenant)
	assert.Equal(t, len(response.Carriers), response.Count)

	var dpdFound bool
	for _, c := range response.Carriers {
		assert.NotEqual(t, "unknown", c.CarrierID)
		if c.CarrierID == "dpd" {
			dpdFound = true
			assert.True(t, c.Configured)
			assert.True(t, c.Billable)
			assert.Equal(t, 10.0, c.CostPerShipment)
		}
	}
	assert.True(t, dpdFound)
}

func TestCarriersHandler_Set(t *testing.T) {
	t.Run("normalizes the label and defaults to active", func(t *testing.T) {
		svc, repo := newTestService(t)
		handler := handlers.NewCarriersHandler(svc, logging.Discard())

		req := newRequest(http.MethodPut, "/x", strings.NewReader(`{"cost_per_shipment": 4.5}`),
			"tenant", tenant, "label", "Royal Mail 48")
		rec := httptest.NewRecorder()

		handler.Set(rec, req)

		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var cc model.CarrierCost
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&cc))
		assert.Equal(t, "royal_mail", cc.CarrierID)
		assert.True(t, cc.IsActive)
		assert.Equal(t, 1, repo.PutCarrierCalls)
	})

	t.Run("inactive flag is honored", func(t *testing.T) {
		svc, _ := newTestService(t)
		handler := handlers.NewCarriersHandler(svc, logging.Discard())

		req := newRequest(http.MethodPut, "/x", strings.NewReader(`{"cost_per_shipment": 6, "is_active": false}`),
			"tenant", tenant, "label", "dpd")
		rec := httptest.NewRecorder()

		handler.Set(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		var cc model.CarrierCost
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&cc))
		assert.False(t, cc.IsActive)
	})

	tests := []struct {
		name   string
		label  string
		body   string
		status int
		code   string
	}{
		{"unknown carrier", "Bob's Couriers", `{"cost_per_shipment": 5}`, http.StatusBadRequest, dto.ErrCodeValidation},
		{"negative cost", "dpd", `{"cost_per_shipment": -1}`, http.StatusBadRequest, dto.ErrCodeValidation},
		{"missing cost", "dpd", `{"is_active": true}`, http.StatusBadRequest, dto.ErrCodeValidation},
		{"invalid json", "dpd", `{`, http.StatusBadRequest, dto.ErrCodeBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService(t)
			handler := handlers.NewCarriersHandler(svc, logging.Discard())

			req := newRequest(http.MethodPut, "/x", strings.NewReader(tt.body), "tenant", tenant, "label", tt.label)
			rec := httptest.NewRecorder()

			handler.Set(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			var apiErr dto.APIError
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&apiErr))
			assert.Equal(t, tt.code, apiErr.Code)
			assert.Zero(t, repo.PutCarrierCalls)
		})
	}
}
