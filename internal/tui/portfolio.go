package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// PortfolioModel holds the widget state of the portfolio view.
type PortfolioModel struct {
	Table table.Model
}

// NewPortfolioModel creates a new portfolio model.
func NewPortfolioModel() *PortfolioModel {
	cols := []table.Column{
		{Title: "ID", Width: 5},
		{Title: "Type", Width: 11},
		{Title: "Qty (MWh)", Width: 10},
		{Title: "Price/MWh", Width: 10},
		{Title: "Cost", Width: 13},
		{Title: "Delivery", Width: 27},
		{Title: "Location", Width: 14},
		{Title: "Added", Width: 12},
		{Title: "", Width: 11},
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(TableStyles())

	return &PortfolioModel{Table: t}
}

// SetHeight sets the table height.
func (m *PortfolioModel) SetHeight(height int) {
	m.Table.SetHeight(height)
}

// Sync rebuilds the holdings rows from the session.
func (m *PortfolioModel) Sync(s *market.Session) {
	res := s.Portfolio()
	var rows []table.Row
	if res.HasData() {
		rows = make([]table.Row, 0, len(res.Data.Holdings))
		for _, h := range res.Data.Holdings {
			c := h.Contract
			state := ""
			if s.IsUpdating(c.ID) {
				state = "Removing..."
			}
			rows = append(rows, table.Row{
				strconv.Itoa(c.ID),
				string(c.EnergyType),
				marketapi.FormatNumber(c.QuantityMWh),
				marketapi.FormatCurrency(c.PricePerMWh),
				marketapi.FormatCurrency(c.QuantityMWh * c.PricePerMWh),
				marketapi.FormatDateRange(c.DeliveryStart, c.DeliveryEnd),
				c.Location,
				marketapi.FormatDate(h.AddedAt),
				state,
			})
		}
	}
	setRows(&m.Table, rows)
}

// Selected returns the holding under the cursor.
func (m *PortfolioModel) Selected(s *market.Session) (marketapi.Holding, bool) {
	res := s.Portfolio()
	if !res.HasData() {
		return marketapi.Holding{}, false
	}
	i := m.Table.Cursor()
	if i < 0 || i >= len(res.Data.Holdings) {
		return marketapi.Holding{}, false
	}
	return res.Data.Holdings[i], true
}

// Update handles a key press on the portfolio view.
func (m *PortfolioModel) Update(msg tea.KeyMsg, s *market.Session) tea.Cmd {
	switch msg.String() {
	case "x", "delete", "backspace":
		if h, ok := m.Selected(s); ok {
			return s.RemoveFromPortfolio(h.Contract.ID)
		}
		return nil
	case "t":
		if s.Portfolio().HasError() {
			return s.LoadPortfolio()
		}
		return nil
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return cmd
}

// View renders the portfolio summary, the energy breakdown and the holdings.
func (m *PortfolioModel) View(s *market.Session, spin string) string {
	res := s.Portfolio()
	var b strings.Builder

	switch {
	case res.HasError():
		b.WriteString(renderError(res.Err, keyHint{"t", "retry"}))
	case !res.HasData():
		b.WriteString(spin + " Loading portfolio...")
	default:
		snap := res.Data
		b.WriteString(renderPortfolioSummary(snap.Metrics))
		b.WriteString("\n\n")

		if len(snap.Holdings) == 0 {
			b.WriteString(LabelStyle.Render("No contracts in your portfolio yet."))
			b.WriteString("\n")
			b.WriteString(renderHints([]keyHint{{"1", "browse contracts"}}))
			break
		}

		b.WriteString(SummaryStyle.Render("Holdings"))
		b.WriteString(LabelStyle.Render(fmt.Sprintf(" (%d)", len(snap.Holdings))))
		if s.PortfolioInFlight() {
			b.WriteString("  " + spin + " Refreshing...")
		}
		b.WriteString("\n")
		b.WriteString(m.Table.View())
	}

	if notice := s.Notice(); notice != "" {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(notice))
		b.WriteString("  ")
		b.WriteString(renderHints([]keyHint{{"esc", "dismiss"}}))
	}
	return b.String()
}

func renderPortfolioSummary(pm marketapi.PortfolioMetrics) string {
	var b strings.Builder
	b.WriteString(SummaryStyle.Render("Portfolio Summary"))
	b.WriteString("\n")

	b.WriteString(LabelStyle.Render("Contracts: "))
	b.WriteString(ValueStyle.Render(strconv.Itoa(pm.TotalContracts)))
	b.WriteString("  ")
	b.WriteString(LabelStyle.Render("Capacity: "))
	b.WriteString(ValueStyle.Render(formatMWh(pm.TotalCapacityMWh.Float64())))
	b.WriteString("  ")
	b.WriteString(LabelStyle.Render("Total Cost: "))
	b.WriteString(GreenStyle.Render(marketapi.FormatCurrency(pm.TotalCost.Float64())))
	b.WriteString("  ")
	b.WriteString(LabelStyle.Render("Avg Price: "))
	b.WriteString(ValueStyle.Render(formatPerMWh(pm.WeightedAvgPricePerMWh.Float64())))

	for _, eb := range pm.BreakdownByEnergyType {
		b.WriteString("\n")
		b.WriteString(EnergyStyle(eb.EnergyType).Render(fmt.Sprintf("  %-11s", eb.EnergyType)))
		b.WriteString(LabelStyle.Render(fmt.Sprintf(" %s  %s  %s  avg %s",
			plural(eb.TotalContracts, "contract", "contracts"),
			formatMWh(eb.TotalCapacityMWh.Float64()),
			marketapi.FormatCurrency(eb.TotalCost.Float64()),
			formatPerMWh(eb.WeightedAvgPricePerMWh.Float64()))))
	}
	return b.String()
}

func (m *PortfolioModel) footerHints() []keyHint {
	return []keyHint{{"↑/↓", "navigate"}, {"x", "remove"}}
}
