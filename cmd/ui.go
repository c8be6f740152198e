package cmd

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/jonandersen/emkt/internal/config"
	"github.com/jonandersen/emkt/internal/keyring"
	"github.com/jonandersen/emkt/internal/logging"
	"github.com/jonandersen/emkt/internal/market"
	"github.com/jonandersen/emkt/internal/tui"
)

// uiOptions holds the dependencies of the ui command.
type uiOptions struct {
	configPath func() string
	store      keyring.Store
	isTerminal func() bool
	run        func(m tea.Model) error
}

func runProgram(m tea.Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

func newUICmd(opts uiOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Interactive terminal UI",
		Long: `Launch the interactive marketplace terminal.

The UI has two tabs:
  - Contracts: filter, sort and compare available contracts
  - Portfolio: review held contracts and their aggregate metrics

Keyboard shortcuts:
  1/2, tab   Switch between tabs
  e          Pick energy types (space toggles)
  s          Cycle status filter
  o / d      Cycle sort key / flip direction
  /          Filter by location
  f / u      Delivery window start / end
  [ ] { }    Lower / raise min and max price
  ( ) < >    Lower / raise min and max quantity
  x          Reset filters (contracts) or remove (portfolio)
  c / C      Toggle comparison / clear comparison
  a          Add selected contract to portfolio
  t          Retry the failed request
  r / R      Refresh tab / refresh everything
  esc        Dismiss notice
  q          Quit

Logs are written only when log_file is set in the config.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUI(opts)
		},
	}
	cmd.SilenceUsage = true
	return cmd
}

func runUI(opts uiOptions) error {
	if !opts.isTerminal() {
		return errors.New("ui requires an interactive terminal; use the contracts and portfolio commands for scripting")
	}

	cfg, err := config.Load(opts.configPath())
	if err != nil {
		return err
	}

	// The alternate screen owns the terminal, so logs only go to a file.
	logger, err := logging.New(logging.Options{Verbose: verbose, File: cfg.LogFile})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	api := &apiOptions{
		baseURL: cfg.APIBaseURL,
		timeout: cfg.RequestTimeout(),
		store:   opts.store,
		logger:  logger,
	}
	session := market.NewSession(api.client(), market.Options{
		UserID:    cfg.UserID,
		PageLimit: cfg.PageLimit,
		Debounce:  cfg.Debounce(),
		Logger:    logger,
	})
	defer session.Close()

	logger.Info("starting ui",
		zap.String("base_url", cfg.APIBaseURL),
		zap.Int("user_id", cfg.UserID))

	if err := opts.run(tui.New(session)); err != nil {
		return fmt.Errorf("ui exited: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(newUICmd(uiOptions{
		configPath: configPath,
		store:      keyring.NewEnvStore(keyring.NewSystemStore()),
		isTerminal: func() bool { return term.IsTerminal(int(os.Stdin.Fd())) },
		run:        runProgram,
	}))
}
