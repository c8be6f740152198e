package tui

import (
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

// Color constants
const (
	ColorPrimary    = lipgloss.Color("39")  // Cyan/blue
	ColorMuted      = lipgloss.Color("241") // Gray
	ColorBackground = lipgloss.Color("236") // Dark gray
	ColorSelected   = lipgloss.Color("57")  // Purple
	ColorSelectedFg = lipgloss.Color("229") // Light yellow
	ColorGreen      = lipgloss.Color("82")
	ColorRed        = lipgloss.Color("196")
	ColorWarning    = lipgloss.Color("220")
	ColorBorder     = lipgloss.Color("240")
)

// energyColors tints energy type names.
var energyColors = map[marketapi.EnergyType]lipgloss.Color{
	marketapi.EnergySolar:      lipgloss.Color("220"),
	marketapi.EnergyWind:       lipgloss.Color("117"),
	marketapi.EnergyNaturalGas: lipgloss.Color("208"),
	marketapi.EnergyNuclear:    lipgloss.Color("141"),
	marketapi.EnergyCoal:       lipgloss.Color("245"),
	marketapi.EnergyHydro:      lipgloss.Color("33"),
}

// Shared styles
var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorPrimary).
			Background(ColorBackground).
			Padding(0, 1)

	ContentStyle = lipgloss.NewStyle().
			Padding(1, 2)

	KeyStyle = lipgloss.NewStyle().
			Foreground(ColorPrimary).
			Bold(true)

	DescStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SummaryStyle = lipgloss.NewStyle().Bold(true)

	LabelStyle = lipgloss.NewStyle().Foreground(ColorMuted)

	ValueStyle = lipgloss.NewStyle().Bold(true)

	GreenStyle = lipgloss.NewStyle().Foreground(ColorGreen)

	ErrorStyle = lipgloss.NewStyle().Foreground(ColorRed)

	WarningStyle = lipgloss.NewStyle().
			Foreground(ColorWarning).
			Bold(true)

	ChipStyle = lipgloss.NewStyle().Padding(0, 1)

	ActiveChipStyle = ChipStyle.
			Foreground(ColorSelectedFg).
			Background(ColorSelected).
			Bold(true)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	InputStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorPrimary).
			Padding(0, 1)
)

// EnergyStyle returns the style used for an energy type name.
func EnergyStyle(et marketapi.EnergyType) lipgloss.Style {
	if c, ok := energyColors[et]; ok {
		return lipgloss.NewStyle().Foreground(c)
	}
	return lipgloss.NewStyle()
}

// TableStyles returns the default table styles for TUI tables.
func TableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(ColorBorder).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(ColorSelectedFg).
		Background(ColorSelected).
		Bold(true)
	return s
}
