package marketapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_GetPortfolio(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/portfolios/1", r.URL.Path)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"user_id": 1,
			"holdings": [
				{
					"id": 11,
					"added_at": "2026-01-15T10:30:00",
					"contract": {"id": 7, "energy_type": "Wind", "quantity_mwh": 100, "price_per_mwh": 40, "delivery_start": "2026-02-01", "delivery_end": "2026-03-01", "location": "Texas", "status": "Available"}
				}
			]
		}`))
	}))
	defer server.Close()

	portfolio, err := NewClient(server.URL, nil).GetPortfolio(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, portfolio)

	assert.Equal(t, 1, portfolio.UserID)
	require.Len(t, portfolio.Holdings, 1)
	assert.Equal(t, 11, portfolio.Holdings[0].ID)
	assert.Equal(t, "2026-01-15T10:30:00", portfolio.Holdings[0].AddedAt)
	assert.Equal(t, 7, portfolio.Holdings[0].Contract.ID)
}

func TestClient_GetPortfolio_NoHoldings(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"user_id": 1, "holdings": null}`))
	}))
	defer server.Close()

	portfolio, err := NewClient(server.URL, nil).GetPortfolio(context.Background(), 1)
	require.NoError(t, err)
	assert.NotNil(t, portfolio.Holdings)
	assert.Empty(t, portfolio.Holdings)
}

func TestClient_GetPortfolioMetrics(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/portfolios/1/metrics", r.URL.Path)
		_, _ = w.Write([]byte(`{
			"total_contracts": 2,
			"total_capacity_mwh": "300.0",
			"total_cost": "11000.0",
			"weighted_avg_price_per_mwh": "36.666666",
			"breakdown_by_energy_type": [
				{"energy_type": "Solar", "total_contracts": 1, "total_capacity_mwh": 100, "total_cost": 5000, "weighted_avg_price_per_mwh": 50},
				{"energy_type": "Wind", "total_contracts": 1, "total_capacity_mwh": "200", "total_cost": "6000", "weighted_avg_price_per_mwh": "30"}
			]
		}`))
	}))
	defer server.Close()

	metrics, err := NewClient(server.URL, nil).GetPortfolioMetrics(context.Background(), 1)
	require.NoError(t, err)

	assert.Equal(t, 2, metrics.TotalContracts)
	assert.Equal(t, 300.0, metrics.TotalCapacityMWh.Float64())
	assert.Equal(t, 11000.0, metrics.TotalCost.Float64())
	assert.InDelta(t, 36.67, metrics.WeightedAvgPricePerMWh.Float64(), 0.01)
	require.Len(t, metrics.BreakdownByEnergyType, 2)
	assert.Equal(t, EnergyWind, metrics.BreakdownByEnergyType[1].EnergyType)
	assert.Equal(t, Number(6000), metrics.BreakdownByEnergyType[1].TotalCost)
}

func TestClient_AddContract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolios/1/contracts/7", r.URL.Path)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":       12,
			"added_at": "2026-01-20T08:00:00",
			"contract": map[string]any{"id": 7, "energy_type": "Wind"},
		})
	}))
	defer server.Close()

	holding, err := NewClient(server.URL, nil).AddContract(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, holding.ID)
	assert.Equal(t, 7, holding.Contract.ID)
}

func TestClient_AddContract_NotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Contract not found"}`))
	}))
	defer server.Close()

	holding, err := NewClient(server.URL, nil).AddContract(context.Background(), 1, 999)
	require.Error(t, err)
	assert.Nil(t, holding)
	assert.Equal(t, "Contract not found", Message(err, "fallback"))
}

func TestClient_RemoveContract(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/portfolios/1/contracts/7", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	err := NewClient(server.URL, nil).RemoveContract(context.Background(), 1, 7)
	assert.NoError(t, err)
}

func TestClient_RemoveContract_Error(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"detail":"Portfolio holding not found"}`))
	}))
	defer server.Close()

	err := NewClient(server.URL, nil).RemoveContract(context.Background(), 1, 7)
	require.Error(t, err)
	assert.Equal(t, "Portfolio holding not found", Message(err, "fallback"))
}

func TestNumber_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		input string
		want  Number
		err   bool
	}{
		{`12.5`, 12.5, false},
		{`"12.5"`, 12.5, false},
		{`""`, 0, false},
		{`null`, 0, false},
		{`"abc"`, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			var n Number
			err := json.Unmarshal([]byte(tt.input), &n)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, n)
		})
	}
}
