package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/table"

	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// keyHint is a key binding shown in the footer or next to an error.
type keyHint struct {
	key  string
	desc string
}

func renderHints(hints []keyHint) string {
	parts := make([]string, 0, len(hints))
	for _, h := range hints {
		parts = append(parts, KeyStyle.Render(h.key)+" "+DescStyle.Render(h.desc))
	}
	return strings.Join(parts, "  •  ")
}

// renderError renders an error line followed by the key that retries it.
func renderError(msg string, hint keyHint) string {
	return ErrorStyle.Render("Error: "+msg) + "\n" + renderHints([]keyHint{hint})
}

// formatBound formats a filter bound, or "any" when it sits at the edge of
// its range and is therefore not applied.
func formatBound(v float64, edge float64, format func(float64) string) string {
	if v == edge {
		return "any"
	}
	return format(v)
}

// rowState is the portfolio column of a contract row.
func rowState(s *market.Session, id int) string {
	switch {
	case s.IsUpdating(id) && s.InPortfolio(id):
		return "Removing..."
	case s.IsUpdating(id):
		return "Adding..."
	case s.InPortfolio(id):
		return "✓ held"
	default:
		return ""
	}
}

// setRows replaces the table rows, keeping the cursor inside the new rows.
// An empty table leaves the cursor alone; the table's own clamp would move it
// to -1, where it would stay once rows arrive.
func setRows(t *table.Model, rows []table.Row) {
	t.SetRows(rows)
	if len(rows) == 0 {
		return
	}
	switch {
	case t.Cursor() < 0:
		t.SetCursor(0)
	case t.Cursor() >= len(rows):
		t.SetCursor(len(rows) - 1)
	}
}

func formatMWh(v float64) string {
	return marketapi.FormatNumber(v) + " MWh"
}

func formatPerMWh(v float64) string {
	return marketapi.FormatCurrency(v) + "/MWh"
}

func plural(n int, one, many string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, one)
	}
	return fmt.Sprintf("%d %s", n, many)
}
