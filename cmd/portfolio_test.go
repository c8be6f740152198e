package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const portfolioBody = `{
  "user_id": 1,
  "holdings": [
    {"id": 11, "added_at": "2026-02-03T10:15:00",
     "contract": {"id": 4, "energy_type": "Solar", "quantity_mwh": 100, "price_per_mwh": 40,
       "delivery_start": "2026-01-01", "delivery_end": "2026-03-31", "location": "Texas",
       "status": "Available"}}
  ]
}`

const metricsBody = `{
  "total_contracts": 1,
  "total_capacity_mwh": "100.00",
  "total_cost": "4000.00",
  "weighted_avg_price_per_mwh": "40.00",
  "breakdown_by_energy_type": [
    {"energy_type": "Solar", "total_contracts": 1, "total_capacity_mwh": "100.00",
     "total_cost": "4000.00", "weighted_avg_price_per_mwh": "40.00"}
  ]
}`

func newPortfolioServer(t *testing.T, userID string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/portfolios/" + userID:
			_, _ = w.Write([]byte(portfolioBody))
		case "/portfolios/" + userID + "/metrics":
			_, _ = w.Write([]byte(metricsBody))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func TestPortfolioShowCmd(t *testing.T) {
	server := newPortfolioServer(t, "1")
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})

	require.NoError(t, cmd.Execute())

	output := out.String()
	assert.Contains(t, output, "Total cost:")
	assert.Contains(t, output, "$4,000.00")
	assert.Contains(t, output, "Holdings")
	assert.Contains(t, output, "Solar")
	assert.Contains(t, output, "Feb 03, 2026")
}

func TestPortfolioShowCmd_UserFlag(t *testing.T) {
	server := newPortfolioServer(t, "7")
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"show", "--user", "7"})

	require.NoError(t, cmd.Execute())
}

func TestPortfolioShowCmd_JSON(t *testing.T) {
	server := newPortfolioServer(t, "1")
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, true))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"show"})

	require.NoError(t, cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Contains(t, got, "holdings")
	assert.Contains(t, got, "metrics")
}

func TestPortfolioShowCmd_MetricsFailureFailsSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/portfolios/1/metrics" {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`{"detail": "metrics unavailable"}`))
			return
		}
		_, _ = w.Write([]byte(portfolioBody))
	}))
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"show"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metrics unavailable")
}

func TestPortfolioMetricsCmd(t *testing.T) {
	server := newPortfolioServer(t, "1")
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"metrics"})

	require.NoError(t, cmd.Execute())

	output := out.String()
	assert.Contains(t, output, "Weighted avg price:")
	assert.Contains(t, output, "$40.00/MWh")
	assert.Contains(t, output, "By energy type")
	assert.Contains(t, output, "AVG PRICE/MWh")
}

func TestPortfolioAddCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/portfolios/1/contracts/4", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id": 11, "added_at": "2026-02-03T10:15:00", "contract": {"id": 4}}`))
	}))
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"add", "4"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Added contract #4 to portfolio.")
}

func TestPortfolioAddCmd_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail": "Contract is not available"}`))
	}))
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, false))
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"add", "4"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unable to add contract to portfolio.")
	assert.Contains(t, err.Error(), "Contract is not available")
}

func TestPortfolioRemoveCmd(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/portfolios/1/contracts/4", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	cmd := newPortfolioCmd(newTestAPIOptions(server.URL, true))
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"rm", "4"})

	require.NoError(t, cmd.Execute())

	var got map[string]any
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, true, got["removed"])
	assert.Equal(t, 4.0, got["contract_id"])
}
