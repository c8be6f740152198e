package tui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

var testNow = time.Date(2026, 3, 15, 9, 30, 0, 0, time.UTC)

type fakeBackend struct {
	mu sync.Mutex

	contracts []marketapi.Contract
	holdings  []marketapi.Holding

	listErr      error
	compareErr   error
	portfolioErr error
	addErr       error

	queries     []marketapi.ContractQuery
	addCalls    []int
	removeCalls []int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		contracts: []marketapi.Contract{
			{ID: 1, EnergyType: marketapi.EnergySolar, QuantityMWh: 100, PricePerMWh: 40, DeliveryStart: "2026-04-01", DeliveryEnd: "2026-06-30", Location: "Texas", Status: marketapi.StatusAvailable},
			{ID: 2, EnergyType: marketapi.EnergyWind, QuantityMWh: 50, PricePerMWh: 55, DeliveryStart: "2026-05-01", DeliveryEnd: "2026-05-31", Location: "Oregon", Status: marketapi.StatusAvailable},
			{ID: 3, EnergyType: marketapi.EnergyHydro, QuantityMWh: 80, PricePerMWh: 35, DeliveryStart: "2026-07-01", DeliveryEnd: "2026-09-30", Location: "Washington", Status: marketapi.StatusReserved},
		},
	}
}

func (b *fakeBackend) ListContracts(_ context.Context, q marketapi.ContractQuery) ([]marketapi.Contract, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queries = append(b.queries, q)
	if b.listErr != nil {
		return nil, b.listErr
	}
	return append([]marketapi.Contract{}, b.contracts...), nil
}

func (b *fakeBackend) CompareContracts(_ context.Context, ids []int) (*marketapi.Comparison, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.compareErr != nil {
		return nil, b.compareErr
	}
	out := &marketapi.Comparison{
		Metrics: marketapi.ComparisonMetrics{
			PricePerMWh: marketapi.MetricRange{Min: 40, Max: 55, Spread: 15},
		},
	}
	for _, id := range ids {
		for _, c := range b.contracts {
			if c.ID == id {
				out.Contracts = append(out.Contracts, marketapi.ComparedContract{Contract: c, DurationDays: 30})
			}
		}
	}
	return out, nil
}

func (b *fakeBackend) GetPortfolio(_ context.Context, userID int) (*marketapi.Portfolio, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.portfolioErr != nil {
		return nil, b.portfolioErr
	}
	return &marketapi.Portfolio{UserID: userID, Holdings: append([]marketapi.Holding{}, b.holdings...)}, nil
}

func (b *fakeBackend) GetPortfolioMetrics(_ context.Context, _ int) (*marketapi.PortfolioMetrics, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.portfolioErr != nil {
		return nil, b.portfolioErr
	}
	var capacity, cost float64
	for _, h := range b.holdings {
		capacity += h.Contract.QuantityMWh
		cost += h.Contract.QuantityMWh * h.Contract.PricePerMWh
	}
	return &marketapi.PortfolioMetrics{
		TotalContracts:   len(b.holdings),
		TotalCapacityMWh: marketapi.Number(capacity),
		TotalCost:        marketapi.Number(cost),
	}, nil
}

func (b *fakeBackend) AddContract(_ context.Context, _ int, contractID int) (*marketapi.Holding, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.addCalls = append(b.addCalls, contractID)
	if b.addErr != nil {
		return nil, b.addErr
	}
	for _, c := range b.contracts {
		if c.ID == contractID {
			h := marketapi.Holding{ID: 100 + contractID, AddedAt: "2026-03-15T09:30:00Z", Contract: c}
			b.holdings = append(b.holdings, h)
			return &h, nil
		}
	}
	return nil, &marketapi.APIError{StatusCode: 404, Message: "Contract not found"}
}

func (b *fakeBackend) RemoveContract(_ context.Context, _ int, contractID int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeCalls = append(b.removeCalls, contractID)
	kept := b.holdings[:0]
	for _, h := range b.holdings {
		if h.Contract.ID != contractID {
			kept = append(kept, h)
		}
	}
	b.holdings = kept
	return nil
}

// newTestModel returns a sized model whose debounced reloads fire at once.
func newTestModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	session := market.NewSession(backend, market.Options{
		Schedule: func(_ time.Duration, msg tea.Msg) tea.Cmd {
			return func() tea.Msg { return msg }
		},
		Now: func() time.Time { return testNow },
	})
	t.Cleanup(session.Close)

	m := New(session, WithClock(func() time.Time { return testNow }))
	m.width = 320
	m.height = 40
	m.ready = true
	return m
}

// run feeds msg to the model and executes the resulting commands until none
// are left. Spinner ticks and quit are not followed.
func run(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]

		updated, cmd := m.Update(next)
		m = updated.(Model)
		queue = append(queue, collect(cmd)...)
	}
	return m
}

func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	switch msg := cmd().(type) {
	case nil, spinner.TickMsg, tea.QuitMsg:
		return nil
	case tea.BatchMsg:
		var out []tea.Msg
		for _, c := range msg {
			out = append(out, collect(c)...)
		}
		return out
	default:
		return []tea.Msg{msg}
	}
}

// start runs Init to completion.
func start(t *testing.T, m Model) Model {
	t.Helper()
	for _, msg := range collect(m.Init()) {
		m = run(t, m, msg)
	}
	return m
}

func key(s string) tea.KeyMsg {
	switch s {
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	case "space":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()
	for _, r := range text {
		m = run(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
	return m
}

func TestNew(t *testing.T) {
	m := New(market.NewSession(newFakeBackend(), market.Options{}))
	assert.Equal(t, ViewContracts, m.currentView)
	assert.False(t, m.ready)
	assert.Equal(t, "Loading...", m.View())
}

func TestModelInit(t *testing.T) {
	m := New(market.NewSession(newFakeBackend(), market.Options{}))
	assert.NotNil(t, m.Init())
}

func TestModelStartLoadsBothTabs(t *testing.T) {
	backend := newFakeBackend()
	backend.holdings = []marketapi.Holding{{ID: 10, AddedAt: "2026-03-01T10:00:00Z", Contract: backend.contracts[0]}}

	m := start(t, newTestModel(t, backend))

	view := m.View()
	assert.Contains(t, view, "emkt")
	assert.Contains(t, view, "[1] Contracts (3)")
	assert.Contains(t, view, "[2] Portfolio (1)")
	assert.Contains(t, view, "Filters (0)")
	assert.Contains(t, view, "Texas")
	assert.Contains(t, view, "✓ held")
	assert.Contains(t, view, "q quit")
	require.Len(t, backend.queries, 1)
}

func TestModelViewBeforeData(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	view := m.View()
	assert.Contains(t, view, "[1] Contracts")
	assert.NotContains(t, view, "Contracts (")
	assert.Contains(t, view, "Loading contracts...")
}

func TestModelSwitchViews(t *testing.T) {
	m := start(t, newTestModel(t, newFakeBackend()))

	m = run(t, m, key("2"))
	assert.Equal(t, ViewPortfolio, m.currentView)
	assert.Contains(t, m.View(), "Portfolio Summary")

	m = run(t, m, key("1"))
	assert.Equal(t, ViewContracts, m.currentView)

	m = run(t, m, key("tab"))
	assert.Equal(t, ViewPortfolio, m.currentView)
	m = run(t, m, key("tab"))
	assert.Equal(t, ViewContracts, m.currentView)
}

func TestModelQuit(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	for _, k := range []string{"q", "ctrl+c"} {
		_, cmd := m.Update(key(k))
		require.NotNil(t, cmd, k)
		assert.Equal(t, tea.Quit(), cmd(), k)
	}
}

func TestModelInputModeCapturesGlobalKeys(t *testing.T) {
	m := start(t, newTestModel(t, newFakeBackend()))

	m = run(t, m, key("/"))
	require.Equal(t, ContractsModeLocation, m.contracts.Mode)

	// q and 2 are typed into the location box
	updated, cmd := m.Update(key("q"))
	m = updated.(Model)
	if cmd != nil {
		assert.NotEqual(t, tea.Quit(), cmd())
	}
	m = run(t, m, key("2"))
	assert.Equal(t, ViewContracts, m.currentView)
	assert.Equal(t, "q2", m.contracts.Input.Value())
}

func TestModelRefresh(t *testing.T) {
	backend := newFakeBackend()
	m := start(t, newTestModel(t, backend))
	require.Len(t, backend.queries, 1)

	m = run(t, m, key("r"))
	assert.Len(t, backend.queries, 2)

	m = run(t, m, key("R"))
	assert.Len(t, backend.queries, 3)
	assert.Contains(t, m.View(), "Contracts (3)")
}

func TestModelWindowResize(t *testing.T) {
	m := newTestModel(t, newFakeBackend())

	m = run(t, m, tea.WindowSizeMsg{Width: 120, Height: 50})
	assert.Equal(t, 120, m.width)
	assert.Equal(t, 50, m.height)
	assert.True(t, m.ready)
	tall := m.contracts.Table.Height()

	m = run(t, m, tea.WindowSizeMsg{Width: 40, Height: 10})
	assert.Less(t, m.contracts.Table.Height(), tall)
	assert.Equal(t, m.contracts.Table.Height(), m.portfolio.Table.Height(), "both clamp to the minimum")
}

func TestModelNoticeDismiss(t *testing.T) {
	backend := newFakeBackend()
	backend.addErr = &marketapi.APIError{StatusCode: 400, Message: "Contract already in portfolio"}
	m := start(t, newTestModel(t, backend))

	m = run(t, m, key("a"))
	assert.Contains(t, m.View(), "Contract already in portfolio")

	m = run(t, m, key("esc"))
	assert.NotContains(t, m.View(), "Contract already in portfolio")
}

func TestModelIgnoresUnknownMessages(t *testing.T) {
	m := start(t, newTestModel(t, newFakeBackend()))
	before := m.View()

	m = run(t, m, errors.New("unrelated"))
	assert.Equal(t, before, m.View())
}
