package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

func lastQuery(t *testing.T, b *fakeBackend) marketapi.ContractQuery {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	require.NotEmpty(t, b.queries)
	return b.queries[len(b.queries)-1]
}

func TestContracts_EnergyMode(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("e"))
	assert.Equal(t, ContractsModeEnergy, m.contracts.Mode)
	assert.Contains(t, m.View(), "space toggle")

	m = run(t, m, key("space"))
	m = run(t, m, key("l"))
	m = run(t, m, key("space"))
	assert.Equal(t, []marketapi.EnergyType{marketapi.EnergySolar, marketapi.EnergyWind}, lastQuery(t, backend).EnergyTypes)

	m = run(t, m, key("enter"))
	assert.Equal(t, ContractsModeNormal, m.contracts.Mode)
	assert.Contains(t, m.View(), "Filters (1)")

	// Moving left from the first chip wraps to the last
	m = run(t, m, key("e"))
	m = run(t, m, key("h"))
	m = run(t, m, key("h"))
	assert.Equal(t, len(marketapi.EnergyTypes)-1, m.contracts.EnergyCursor)
}

func TestContracts_StatusAndSort(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("s"))
	assert.Equal(t, marketapi.StatusAvailable, lastQuery(t, backend).Status)
	assert.Contains(t, m.View(), "Status: Available")

	m = run(t, m, key("o"))
	q := lastQuery(t, backend)
	assert.Equal(t, marketapi.SortPricePerMWh, q.SortBy)
	assert.Equal(t, marketapi.SortAsc, q.SortDirection)

	m = run(t, m, key("d"))
	assert.Equal(t, marketapi.SortDesc, lastQuery(t, backend).SortDirection)
	assert.Contains(t, m.View(), "Sort: price desc")
}

func TestContracts_RangeKeys(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("]"))
	m = run(t, m, key("]"))
	q := lastQuery(t, backend)
	require.NotNil(t, q.PriceMin)
	assert.Equal(t, 2*market.PriceRange.Step, *q.PriceMin)
	assert.Nil(t, q.PriceMax)

	m = run(t, m, key("<"))
	q = lastQuery(t, backend)
	require.NotNil(t, q.QuantityMax)
	assert.Equal(t, market.QuantityRange.Max-market.QuantityRange.Step, *q.QuantityMax)
	assert.Contains(t, m.View(), "Filters (2)")

	// Lowering the minimum below the domain edge stops sending it
	m = run(t, m, key("["))
	m = run(t, m, key("["))
	m = run(t, m, key("["))
	assert.Nil(t, lastQuery(t, backend).PriceMin)
	assert.Contains(t, m.View(), "Price: any - any")
}

func TestContracts_ResetFilters(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("s"))
	m = run(t, m, key(")"))
	assert.Contains(t, m.View(), "Filters (2)")

	m = run(t, m, key("x"))
	q := lastQuery(t, backend)
	assert.Empty(t, q.Status)
	assert.Nil(t, q.QuantityMin)
	assert.Contains(t, m.View(), "Filters (0)")
}

func TestContracts_LocationInput(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("/"))
	require.True(t, m.contracts.Capturing())
	assert.Contains(t, m.View(), "Location:")

	m = typeText(t, m, "Texas")
	assert.Equal(t, "Texas", lastQuery(t, backend).Location)

	m = run(t, m, key("enter"))
	assert.False(t, m.contracts.Capturing())
	assert.Equal(t, "Texas", m.session.Filters().Location)
	assert.Contains(t, m.View(), "Location: Texas")
}

func TestContracts_LocationInputEscRestores(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("/"))
	m = typeText(t, m, "Oregon")
	m = run(t, m, key("esc"))

	assert.False(t, m.contracts.Capturing())
	assert.Empty(t, m.session.Filters().Location)
	assert.Empty(t, lastQuery(t, backend).Location)
}

func TestContracts_SingleCharacterLocationNotSent(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("/"))
	m = typeText(t, m, "T")
	assert.Empty(t, lastQuery(t, backend).Location)
	assert.Contains(t, m.View(), "Filters (0)")
}

func TestContracts_DeliveryInput(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("f"))
	assert.Equal(t, ContractsModeDeliveryFrom, m.contracts.Mode)
	m = typeText(t, m, "2026-13-01")
	m = run(t, m, key("enter"))
	assert.Equal(t, ContractsModeDeliveryFrom, m.contracts.Mode)
	assert.Contains(t, m.View(), "expected YYYY-MM-DD")

	m = run(t, m, key("esc"))
	assert.Equal(t, ContractsModeNormal, m.contracts.Mode)
	assert.Empty(t, m.session.Filters().DeliveryStartFrom)

	m = run(t, m, key("f"))
	m = typeText(t, m, "2026-04-01")
	m = run(t, m, key("enter"))
	q := lastQuery(t, backend)
	assert.Equal(t, "2026-04-01", q.DeliveryStartFrom)
	assert.Equal(t, "2026-04-01", q.DeliveryEndTo)

	// An end before the start pulls the start back
	m = run(t, m, key("u"))
	assert.Equal(t, "2026-04-01", m.contracts.Input.Value())
	for range len("2026-04-01") {
		m = run(t, m, key("backspace"))
	}
	m = typeText(t, m, "2026-03-20")
	m = run(t, m, key("enter"))
	q = lastQuery(t, backend)
	assert.Equal(t, "2026-03-20", q.DeliveryStartFrom)
	assert.Equal(t, "2026-03-20", q.DeliveryEndTo)
}

func TestContracts_Comparison(t *testing.T) {
	m := start(t, newTestModel(t, newFakeBackend()))

	m = run(t, m, key("c"))
	view := m.View()
	assert.Contains(t, view, "Compare (1/3)")
	assert.Contains(t, view, "Select at least 2 contracts to compare.")
	assert.Contains(t, view, "◆")

	m = run(t, m, key("down"))
	m = run(t, m, key("c"))
	view = m.View()
	assert.Contains(t, view, "Compare (2/3)")
	assert.Contains(t, view, "#1, #2")
	assert.Contains(t, view, "spread")
	assert.NotContains(t, view, "Select at least 2")

	m = run(t, m, key("C"))
	assert.NotContains(t, m.View(), "Compare (")
}

func TestContracts_ComparisonErrorRetry(t *testing.T) {
	backend := newFakeBackend()
	backend.compareErr = errors.New("comparison service unavailable")
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("c"))
	m = run(t, m, key("down"))
	m = run(t, m, key("c"))
	assert.Contains(t, m.View(), "comparison service unavailable")
	assert.Contains(t, m.View(), "retry comparison")

	backend.mu.Lock()
	backend.compareErr = nil
	backend.mu.Unlock()

	m = run(t, m, key("t"))
	assert.NotContains(t, m.View(), "comparison service unavailable")
	assert.Contains(t, m.View(), "spread")
}

func TestContracts_RetryAfterBothFail(t *testing.T) {
	backend := newFakeBackend()
	backend.compareErr = errors.New("comparison service unavailable")
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("c"))
	m = run(t, m, key("down"))
	m = run(t, m, key("c"))

	backend.mu.Lock()
	backend.listErr = &marketapi.APIError{StatusCode: 500, Message: "database unavailable"}
	backend.mu.Unlock()
	m = run(t, m, key("r"))

	view := m.View()
	assert.Contains(t, view, "database unavailable")
	assert.Contains(t, view, "comparison service unavailable")

	backend.mu.Lock()
	backend.listErr = nil
	backend.compareErr = nil
	backend.mu.Unlock()

	m = run(t, m, key("t"))
	view = m.View()
	assert.NotContains(t, view, "database unavailable")
	assert.NotContains(t, view, "comparison service unavailable")
	assert.Contains(t, view, "Texas")
	assert.Contains(t, view, "spread")
}

func TestContracts_AddToPortfolio(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))
	assert.NotContains(t, m.View(), "✓ held")

	m = run(t, m, key("a"))
	assert.Equal(t, []int{1}, backend.addCalls)
	assert.Contains(t, m.View(), "✓ held")
	assert.Contains(t, m.View(), "[2] Portfolio (1)")

	// Held contracts are not added twice
	m = run(t, m, key("a"))
	assert.Equal(t, []int{1}, backend.addCalls)
}

func TestContracts_LoadErrorAndRetry(t *testing.T) {
	backend := newFakeBackend()
	backend.listErr = &marketapi.APIError{StatusCode: 500, Message: "database unavailable"}
	m := start(t, newTestModel(t, backend))

	view := m.View()
	assert.Contains(t, view, "Error: database unavailable")
	assert.Contains(t, view, "try again")
	assert.NotContains(t, view, "retry filters")

	backend.mu.Lock()
	backend.listErr = nil
	backend.mu.Unlock()

	m = run(t, m, key("t"))
	assert.Contains(t, m.View(), "Contracts (3)")
	assert.NotContains(t, m.View(), "database unavailable")
}

func TestContracts_FilterErrorHint(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))

	backend.mu.Lock()
	backend.listErr = errors.New("bad filter")
	backend.mu.Unlock()

	m = run(t, m, key("s"))
	assert.Contains(t, m.View(), "retry filters")
}

func TestContracts_EmptyList(t *testing.T) {
	backend := newFakeBackend()
	backend.contracts = nil
	m := start(t, newTestModel(t, backend))

	view := m.View()
	assert.Contains(t, view, "Contracts (0)")
	assert.Contains(t, view, "No contracts match the current filters.")
	assert.Contains(t, view, "reset filters")
}

func TestContracts_SelectedFollowsCursor(t *testing.T) {
	m := start(t, newTestModel(t, newFakeBackend()))

	c, ok := m.contracts.Selected(m.session)
	require.True(t, ok)
	assert.Equal(t, 1, c.ID)

	m = run(t, m, key("down"))
	m = run(t, m, key("down"))
	c, ok = m.contracts.Selected(m.session)
	require.True(t, ok)
	assert.Equal(t, 3, c.ID)
}
