package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// ContractsMode is the input mode of the contracts view.
type ContractsMode int

const (
	ContractsModeNormal ContractsMode = iota
	ContractsModeEnergy
	ContractsModeLocation
	ContractsModeDeliveryFrom
	ContractsModeDeliveryTo
)

// ContractsModel holds the widget state of the contracts view. The data it
// shows lives in the session.
type ContractsModel struct {
	Table        table.Model
	Mode         ContractsMode
	EnergyCursor int
	Input        textinput.Model
	InputErr     string

	prevLocation string
	now          func() time.Time
}

// NewContractsModel creates the contracts view.
func NewContractsModel(now func() time.Time) *ContractsModel {
	cols := []table.Column{
		{Title: "Cmp", Width: 3},
		{Title: "ID", Width: 5},
		{Title: "Type", Width: 11},
		{Title: "Qty (MWh)", Width: 10},
		{Title: "Price/MWh", Width: 10},
		{Title: "Delivery", Width: 27},
		{Title: "Location", Width: 14},
		{Title: "Status", Width: 9},
		{Title: "Portfolio", Width: 11},
	}

	t := table.New(
		table.WithColumns(cols),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	t.SetStyles(TableStyles())

	ti := textinput.New()
	ti.CharLimit = 40
	ti.Width = 30
	ti.Cursor.SetMode(cursor.CursorStatic)

	return &ContractsModel{
		Table: t,
		Input: ti,
		now:   now,
	}
}

// SetHeight sets the table height.
func (m *ContractsModel) SetHeight(height int) {
	m.Table.SetHeight(height)
}

// Capturing reports whether the view consumes every key.
func (m *ContractsModel) Capturing() bool {
	return m.Mode != ContractsModeNormal
}

// Sync rebuilds the table rows from the session.
func (m *ContractsModel) Sync(s *market.Session) {
	res := s.Contracts()
	var rows []table.Row
	if res.HasData() {
		sel := s.Selection()
		rows = make([]table.Row, 0, len(res.Data))
		for _, c := range res.Data {
			mark := ""
			if sel.Has(c.ID) {
				mark = "◆"
			}
			rows = append(rows, table.Row{
				mark,
				strconv.Itoa(c.ID),
				string(c.EnergyType),
				marketapi.FormatNumber(c.QuantityMWh),
				marketapi.FormatCurrency(c.PricePerMWh),
				marketapi.FormatDateRange(c.DeliveryStart, c.DeliveryEnd),
				c.Location,
				string(c.Status),
				rowState(s, c.ID),
			})
		}
	}
	setRows(&m.Table, rows)
}

// Selected returns the contract under the cursor.
func (m *ContractsModel) Selected(s *market.Session) (marketapi.Contract, bool) {
	res := s.Contracts()
	if !res.HasData() {
		return marketapi.Contract{}, false
	}
	i := m.Table.Cursor()
	if i < 0 || i >= len(res.Data) {
		return marketapi.Contract{}, false
	}
	return res.Data[i], true
}

// Update handles a key press on the contracts view.
func (m *ContractsModel) Update(msg tea.KeyMsg, s *market.Session) tea.Cmd {
	switch m.Mode {
	case ContractsModeEnergy:
		return m.updateEnergy(msg, s)
	case ContractsModeLocation:
		return m.updateLocation(msg, s)
	case ContractsModeDeliveryFrom, ContractsModeDeliveryTo:
		return m.updateDelivery(msg, s)
	}

	f := s.Filters()
	switch msg.String() {
	case "e":
		m.Mode = ContractsModeEnergy
		return nil
	case "s":
		return s.SetFilters(f.NextStatus())
	case "o":
		return s.SetSort(s.Sort().NextKey())
	case "d":
		return s.SetSort(s.Sort().ToggleDirection())
	case "/":
		m.prevLocation = f.Location
		m.openInput(ContractsModeLocation, f.Location, "city or region")
		return nil
	case "f":
		m.openInput(ContractsModeDeliveryFrom, f.DeliveryStartFrom, market.DateLayout)
		return nil
	case "u":
		m.openInput(ContractsModeDeliveryTo, f.DeliveryEndTo, market.DateLayout)
		return nil
	case "[":
		return s.SetFilters(f.WithPriceMin(f.PriceMin - market.PriceRange.Step))
	case "]":
		return s.SetFilters(f.WithPriceMin(f.PriceMin + market.PriceRange.Step))
	case "{":
		return s.SetFilters(f.WithPriceMax(f.PriceMax - market.PriceRange.Step))
	case "}":
		return s.SetFilters(f.WithPriceMax(f.PriceMax + market.PriceRange.Step))
	case "(":
		return s.SetFilters(f.WithQuantityMin(f.QuantityMin - market.QuantityRange.Step))
	case ")":
		return s.SetFilters(f.WithQuantityMin(f.QuantityMin + market.QuantityRange.Step))
	case "<":
		return s.SetFilters(f.WithQuantityMax(f.QuantityMax - market.QuantityRange.Step))
	case ">":
		return s.SetFilters(f.WithQuantityMax(f.QuantityMax + market.QuantityRange.Step))
	case "x":
		return s.ResetFilters()
	case "c":
		if c, ok := m.Selected(s); ok {
			return s.ToggleCompare(c.ID)
		}
		return nil
	case "C":
		return s.ClearComparison()
	case "a":
		if c, ok := m.Selected(s); ok {
			return s.AddToPortfolio(c.ID)
		}
		return nil
	case "t":
		var cmds []tea.Cmd
		if s.Contracts().HasError() {
			cmds = append(cmds, s.RetryContracts())
		}
		if s.Comparison().HasError() {
			cmds = append(cmds, s.RetryComparison())
		}
		return tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	m.Table, cmd = m.Table.Update(msg)
	return cmd
}

func (m *ContractsModel) openInput(mode ContractsMode, value, placeholder string) {
	m.Mode = mode
	m.InputErr = ""
	m.Input.Placeholder = placeholder
	m.Input.SetValue(value)
	m.Input.CursorEnd()
	m.Input.Focus()
	m.Table.Blur()
}

func (m *ContractsModel) closeInput() {
	m.Mode = ContractsModeNormal
	m.InputErr = ""
	m.Input.Blur()
	m.Table.Focus()
}

func (m *ContractsModel) updateEnergy(msg tea.KeyMsg, s *market.Session) tea.Cmd {
	n := len(marketapi.EnergyTypes)
	switch msg.String() {
	case "left", "h":
		m.EnergyCursor = (m.EnergyCursor + n - 1) % n
	case "right", "l", "e":
		m.EnergyCursor = (m.EnergyCursor + 1) % n
	case " ":
		return s.SetFilters(s.Filters().ToggleEnergyType(marketapi.EnergyTypes[m.EnergyCursor]))
	case "enter", "esc":
		m.Mode = ContractsModeNormal
	}
	return nil
}

// updateLocation applies the location as it is typed; the session debounces
// the reload. Esc restores the value the input was opened with.
func (m *ContractsModel) updateLocation(msg tea.KeyMsg, s *market.Session) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return s.SetFilters(s.Filters().WithLocation(m.prevLocation))
	case tea.KeyEnter:
		m.closeInput()
		return nil
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	return tea.Batch(cmd, s.SetFilters(s.Filters().WithLocation(m.Input.Value())))
}

func (m *ContractsModel) updateDelivery(msg tea.KeyMsg, s *market.Session) tea.Cmd {
	switch msg.Type {
	case tea.KeyEsc:
		m.closeInput()
		return nil
	case tea.KeyEnter:
		value := strings.TrimSpace(m.Input.Value())
		var (
			next market.FilterState
			err  error
		)
		if m.Mode == ContractsModeDeliveryFrom {
			next, err = s.Filters().WithDeliveryStart(value, m.now())
		} else {
			next, err = s.Filters().WithDeliveryEnd(value, m.now())
		}
		if err != nil {
			m.InputErr = err.Error()
			return nil
		}
		m.closeInput()
		return s.SetFilters(next)
	}

	var cmd tea.Cmd
	m.Input, cmd = m.Input.Update(msg)
	m.InputErr = ""
	return cmd
}

// View renders the filter bar, the contract list and the comparison panel.
func (m *ContractsModel) View(s *market.Session, spin string) string {
	var b strings.Builder

	b.WriteString(m.renderFilters(s))
	b.WriteString("\n")
	if m.Mode == ContractsModeLocation || m.Mode == ContractsModeDeliveryFrom || m.Mode == ContractsModeDeliveryTo {
		b.WriteString(m.renderInput())
		b.WriteString("\n")
	}
	b.WriteString(m.renderStatus(s, spin))
	b.WriteString("\n\n")
	b.WriteString(m.renderList(s, spin))

	if panel := renderComparison(s, spin); panel != "" {
		b.WriteString("\n")
		b.WriteString(panel)
	}
	if notice := s.Notice(); notice != "" {
		b.WriteString("\n")
		b.WriteString(WarningStyle.Render(notice))
		b.WriteString("  ")
		b.WriteString(renderHints([]keyHint{{"esc", "dismiss"}}))
	}
	return b.String()
}

func (m *ContractsModel) renderFilters(s *market.Session) string {
	f := s.Filters()

	var b strings.Builder
	b.WriteString(SummaryStyle.Render(fmt.Sprintf("Filters (%d)", s.ActiveFilterCount())))
	b.WriteString("  ")
	for i, et := range marketapi.EnergyTypes {
		style := ChipStyle
		if f.HasEnergyType(et) {
			style = ActiveChipStyle
		}
		if m.Mode == ContractsModeEnergy && i == m.EnergyCursor {
			style = style.Underline(true)
		}
		b.WriteString(style.Render(string(et)))
	}
	b.WriteString("\n")

	location := strings.TrimSpace(f.Location)
	if location == "" {
		location = "any"
	}
	delivery := "any"
	if f.DeliveryStartFrom != "" || f.DeliveryEndTo != "" {
		delivery = marketapi.FormatDateRange(f.DeliveryStartFrom, f.DeliveryEndTo)
	}

	fields := []string{
		LabelStyle.Render("Status: ") + ValueStyle.Render(f.Status),
		LabelStyle.Render("Price: ") + ValueStyle.Render(
			formatBound(f.PriceMin, market.PriceRange.Min, marketapi.FormatCurrency)+" - "+
				formatBound(f.PriceMax, market.PriceRange.Max, marketapi.FormatCurrency)),
		LabelStyle.Render("Qty: ") + ValueStyle.Render(
			formatBound(f.QuantityMin, market.QuantityRange.Min, marketapi.FormatNumber)+" - "+
				formatBound(f.QuantityMax, market.QuantityRange.Max, marketapi.FormatNumber)),
		LabelStyle.Render("Location: ") + ValueStyle.Render(location),
		LabelStyle.Render("Delivery: ") + ValueStyle.Render(delivery),
		LabelStyle.Render("Sort: ") + ValueStyle.Render(s.Sort().Label()),
	}
	b.WriteString(strings.Join(fields, "  "))
	return b.String()
}

func (m *ContractsModel) renderInput() string {
	label := "Location"
	switch m.Mode {
	case ContractsModeDeliveryFrom:
		label = "Delivery from"
	case ContractsModeDeliveryTo:
		label = "Delivery to"
	}
	line := LabelStyle.Render(label+": ") + m.Input.View()
	if m.InputErr != "" {
		line += "  " + ErrorStyle.Render(m.InputErr)
	}
	return InputStyle.Render(line)
}

func (m *ContractsModel) renderStatus(s *market.Session, spin string) string {
	switch {
	case s.IsFiltering() && s.IsSorting():
		return spin + " Applying filters and sort..."
	case s.IsFiltering():
		return spin + " Filtering..."
	case s.IsSorting():
		return spin + " Sorting..."
	case s.ContractsInFlight() && s.Contracts().HasData():
		return spin + " Refreshing..."
	}
	if updated := s.LastUpdated(); !updated.IsZero() {
		return LabelStyle.Render("Updated: " + updated.Format("3:04:05 PM"))
	}
	return ""
}

func (m *ContractsModel) renderList(s *market.Session, spin string) string {
	res := s.Contracts()
	switch {
	case res.HasError():
		hint := keyHint{"t", "try again"}
		if s.FilterFailed() {
			hint = keyHint{"t", "retry filters"}
		}
		return renderError(res.Err, hint)
	case !res.HasData():
		return spin + " Loading contracts..."
	case len(res.Data) == 0:
		return LabelStyle.Render("No contracts match the current filters.") + "\n" +
			renderHints([]keyHint{{"x", "reset filters"}})
	}
	return m.Table.View()
}

// renderComparison renders the comparison panel, or "" with nothing selected.
func renderComparison(s *market.Session, spin string) string {
	sel := s.Selection()
	if sel.Len() == 0 {
		return ""
	}

	var b strings.Builder
	ids := make([]string, 0, sel.Len())
	for _, id := range sel.IDs() {
		ids = append(ids, "#"+strconv.Itoa(id))
	}
	b.WriteString(SummaryStyle.Render(fmt.Sprintf("Compare (%d/%d)", sel.Len(), marketapi.MaxCompare)))
	b.WriteString(LabelStyle.Render("  " + strings.Join(ids, ", ")))
	b.WriteString("\n")

	res := s.Comparison()
	switch {
	case !sel.Comparable():
		b.WriteString(LabelStyle.Render("Select at least 2 contracts to compare."))
	case res.HasError():
		b.WriteString(renderError(res.Err, keyHint{"t", "retry comparison"}))
	case !res.HasData() || res.Data == nil:
		b.WriteString(spin + " Comparing...")
	default:
		b.WriteString(renderComparisonBody(res.Data))
	}
	return PanelStyle.Render(b.String())
}

func renderComparisonBody(c *marketapi.Comparison) string {
	var b strings.Builder
	for _, cc := range c.Contracts {
		b.WriteString(fmt.Sprintf("%-6s %s  %s  %s  %s  %s\n",
			"#"+strconv.Itoa(cc.ID),
			EnergyStyle(cc.EnergyType).Render(fmt.Sprintf("%-11s", cc.EnergyType)),
			formatPerMWh(cc.PricePerMWh),
			formatMWh(cc.QuantityMWh),
			plural(cc.DurationDays, "day", "days"),
			cc.Location,
		))
	}

	m := c.Metrics
	rows := []struct {
		label  string
		r      marketapi.MetricRange
		format func(float64) string
	}{
		{"Price/MWh", m.PricePerMWh, marketapi.FormatCurrency},
		{"Quantity", m.QuantityMWh, formatMWh},
		{"Duration", m.DurationDays, func(v float64) string { return marketapi.FormatNumber(v) + " days" }},
	}
	for i, row := range rows {
		b.WriteString(LabelStyle.Render(fmt.Sprintf("%-10s", row.label)))
		b.WriteString(fmt.Sprintf(" min %s  max %s  spread %s",
			row.format(row.r.Min.Float64()),
			row.format(row.r.Max.Float64()),
			ValueStyle.Render(row.format(row.r.Spread.Float64()))))
		if i < len(rows)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// footerHints returns the key bindings for the current mode.
func (m *ContractsModel) footerHints() []keyHint {
	switch m.Mode {
	case ContractsModeEnergy:
		return []keyHint{{"←/→", "move"}, {"space", "toggle"}, {"enter", "done"}}
	case ContractsModeLocation:
		return []keyHint{{"enter", "done"}, {"esc", "cancel"}}
	case ContractsModeDeliveryFrom, ContractsModeDeliveryTo:
		return []keyHint{{"enter", "apply"}, {"esc", "cancel"}}
	}
	return []keyHint{
		{"e", "energy"}, {"s", "status"}, {"o/d", "sort"}, {"/", "location"},
		{"f/u", "delivery"}, {"[ ] { }", "price"}, {"( ) < >", "qty"}, {"x", "reset"},
		{"c/C", "compare"}, {"a", "add"},
	}
}
