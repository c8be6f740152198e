// Package tui renders a market.Session as a bubbletea program.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jonandersen/emkt/internal/market"
)

// View represents the current active view in the TUI.
type View int

const (
	ViewContracts View = iota
	ViewPortfolio
)

// Model is the main bubbletea model for the TUI.
type Model struct {
	currentView View
	width       int
	height      int
	ready       bool

	session *market.Session
	spinner spinner.Model

	// Child view models
	contracts *ContractsModel
	portfolio *PortfolioModel
}

// Option configures a Model.
type Option func(*Model)

// WithClock sets the clock used to fill open delivery window ends.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.contracts.now = now
	}
}

// New creates a new TUI model around session.
func New(session *market.Session, opts ...Option) Model {
	m := Model{
		currentView: ViewContracts,
		session:     session,
		spinner:     spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(KeyStyle)),
		contracts:   NewContractsModel(time.Now),
		portfolio:   NewPortfolioModel(),
	}
	for _, opt := range opts {
		opt(&m)
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.session.Init(), m.spinner.Tick)
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		// Input modes consume all keys
		if m.currentView == ViewContracts && m.contracts.Capturing() {
			cmds = append(cmds, m.contracts.Update(msg, m.session))
			break
		}

		switch msg.String() {
		case "q":
			return m, tea.Quit
		case "esc":
			m.session.DismissNotice()
		case "1":
			m.currentView = ViewContracts
		case "2":
			m.currentView = ViewPortfolio
		case "tab":
			m.currentView = (m.currentView + 1) % 2
		case "r":
			if m.currentView == ViewContracts {
				cmds = append(cmds, m.session.RefreshContracts())
			} else {
				cmds = append(cmds, m.session.LoadPortfolio())
			}
		case "R":
			cmds = append(cmds, m.session.RefreshAll())
		default:
			// Pass to active view for view-specific keys
			switch m.currentView {
			case ViewContracts:
				cmds = append(cmds, m.contracts.Update(msg, m.session))
			case ViewPortfolio:
				cmds = append(cmds, m.portfolio.Update(msg, m.session))
			}
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.resize()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	default:
		cmds = append(cmds, m.session.Update(msg))
	}

	m.contracts.Sync(m.session)
	m.portfolio.Sync(m.session)
	return m, tea.Batch(cmds...)
}

// resize fits the tables between the header, the filter bar, the comparison
// panel and the footer.
func (m Model) resize() {
	const (
		chrome          = 4 // header, footer and content padding
		contractsAbove  = 5 // filter bar and status line
		comparisonPanel = 8
		portfolioAbove  = 11 // summary, breakdown and holdings title
	)
	contractsHeight := m.height - chrome - contractsAbove - comparisonPanel
	if contractsHeight < 3 {
		contractsHeight = 3
	}
	portfolioHeight := m.height - chrome - portfolioAbove
	if portfolioHeight < 3 {
		portfolioHeight = 3
	}
	m.contracts.SetHeight(contractsHeight)
	m.portfolio.SetHeight(portfolioHeight)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	content := m.renderContent()

	// Calculate content height
	contentHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)

	// Pad content to fill available space
	contentLines := strings.Split(content, "\n")
	for len(contentLines) < contentHeight {
		contentLines = append(contentLines, "")
	}
	if contentHeight > 0 && len(contentLines) > contentHeight {
		contentLines = contentLines[:contentHeight]
	}
	content = strings.Join(contentLines, "\n")

	return header + "\n" + content + "\n" + footer
}

// renderHeader renders the header bar.
func (m Model) renderHeader() string {
	title := HeaderStyle.Render("emkt")

	tabs := []struct {
		name   string
		key    string
		active bool
	}{
		{m.session.ContractsLabel(), "1", m.currentView == ViewContracts},
		{m.session.PortfolioLabel(), "2", m.currentView == ViewPortfolio},
	}

	var tabStrs []string
	for _, tab := range tabs {
		style := lipgloss.NewStyle().Padding(0, 1)
		if tab.active {
			style = style.Bold(true).Foreground(ColorPrimary)
		} else {
			style = style.Foreground(ColorMuted)
		}
		tabStrs = append(tabStrs, style.Render(fmt.Sprintf("[%s] %s", tab.key, tab.name)))
	}

	headerContent := title + "  " + strings.Join(tabStrs, " ")

	// Pad to full width
	padding := m.width - lipgloss.Width(headerContent)
	if padding > 0 {
		headerContent += strings.Repeat(" ", padding)
	}

	return lipgloss.NewStyle().
		Background(ColorBackground).
		Width(m.width).
		Render(headerContent)
}

// renderContent renders the main content area.
func (m Model) renderContent() string {
	spin := m.spinner.View()
	var content string
	switch m.currentView {
	case ViewContracts:
		content = m.contracts.View(m.session, spin)
	case ViewPortfolio:
		content = m.portfolio.View(m.session, spin)
	}
	return ContentStyle.Render(content)
}

// renderFooter renders the footer bar with key hints.
func (m Model) renderFooter() string {
	var keys []keyHint
	switch {
	case m.currentView == ViewContracts && m.contracts.Capturing():
		keys = m.contracts.footerHints()
	case m.currentView == ViewContracts:
		keys = append([]keyHint{{"1/2", "switch view"}}, m.contracts.footerHints()...)
		keys = append(keys, keyHint{"r/R", "refresh"}, keyHint{"q", "quit"})
	default:
		keys = append([]keyHint{{"1/2", "switch view"}}, m.portfolio.footerHints()...)
		keys = append(keys, keyHint{"r/R", "refresh"}, keyHint{"q", "quit"})
	}

	footerContent := renderHints(keys)

	// Pad to full width
	padding := m.width - lipgloss.Width(footerContent)
	if padding > 0 {
		footerContent += strings.Repeat(" ", padding)
	}

	return lipgloss.NewStyle().
		Background(ColorBackground).
		Width(m.width).
		Render(footerContent)
}
