package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/jonandersen/emkt/internal/auth"
	"github.com/jonandersen/emkt/internal/config"
	"github.com/jonandersen/emkt/internal/keyring"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// passwordReader abstracts terminal password input for testing.
type passwordReader interface {
	ReadPassword() (string, error)
	IsTerminal() bool
}

// terminalReader reads hidden input from the terminal using golang.org/x/term.
type terminalReader struct {
	fd int
}

func newTerminalReader(fd int) *terminalReader {
	return &terminalReader{fd: fd}
}

func (r *terminalReader) ReadPassword() (string, error) {
	password, err := term.ReadPassword(r.fd)
	if err != nil {
		return "", err
	}
	return string(password), nil
}

func (r *terminalReader) IsTerminal() bool {
	return term.IsTerminal(r.fd)
}

// prompter abstracts interactive menu selection for testing.
type prompter interface {
	SelectOption(options []string) (int, error)
	ReadLine(prompt string) (string, error)
}

// terminalPrompter implements prompter on a line-oriented reader. A single
// scanner is shared so buffered input survives across prompts.
type terminalPrompter struct {
	scanner *bufio.Scanner
	writer  io.Writer
}

func newTerminalPrompter(r io.Reader, w io.Writer) *terminalPrompter {
	return &terminalPrompter{scanner: bufio.NewScanner(r), writer: w}
}

func (p *terminalPrompter) SelectOption(options []string) (int, error) {
	for {
		if !p.scanner.Scan() {
			if err := p.scanner.Err(); err != nil {
				return 0, err
			}
			return 0, fmt.Errorf("no input")
		}
		idx, err := strconv.Atoi(strings.TrimSpace(p.scanner.Text()))
		if err != nil || idx < 1 || idx > len(options) {
			_, _ = fmt.Fprintf(p.writer, "Please enter a number between 1 and %d: ", len(options))
			continue
		}
		return idx - 1, nil
	}
}

func (p *terminalPrompter) ReadLine(prompt string) (string, error) {
	_, _ = fmt.Fprint(p.writer, prompt)
	if !p.scanner.Scan() {
		return "", p.scanner.Err()
	}
	return strings.TrimSpace(p.scanner.Text()), nil
}

// configureOptions holds dependencies for the configure command.
type configureOptions struct {
	configPath     func() string
	store          keyring.Store
	passwordReader passwordReader
	prompt         prompter
}

func newConfigureCmd(opts configureOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "configure",
		Short: "Configure the marketplace connection",
		Long: `Configure the API base URL, the portfolio owner and an optional API token.

The token is stored in the system keyring. EMKT_API_TOKEN overrides it.

Example:
  emkt configure`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigure(cmd, opts)
		},
	}

	// Don't show usage info on validation errors - just show the error
	cmd.SilenceUsage = true

	return cmd
}

// reconfigureMenuOptions defines the menu options when already configured.
var reconfigureMenuOptions = []string{
	"Change connection settings",
	"Set API token",
	"View current configuration",
	"Clear API token",
}

func runConfigure(cmd *cobra.Command, opts configureOptions) error {
	if !opts.passwordReader.IsTerminal() {
		return fmt.Errorf("configure requires an interactive terminal\nEdit %s directly or set EMKT_API_URL and EMKT_API_TOKEN instead", opts.configPath())
	}

	if _, err := os.Stat(opts.configPath()); err == nil {
		return runReconfigureMenu(cmd, opts)
	}
	return runInitialSetup(cmd, opts)
}

func runReconfigureMenu(cmd *cobra.Command, opts configureOptions) error {
	w := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(w, "emkt is already configured. What would you like to do?")
	_, _ = fmt.Fprintln(w)
	for i, opt := range reconfigureMenuOptions {
		_, _ = fmt.Fprintf(w, "  %d. %s\n", i+1, opt)
	}
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprint(w, "Select option: ")

	choice, err := opts.prompt.SelectOption(reconfigureMenuOptions)
	if err != nil {
		return fmt.Errorf("failed to read selection: %w", err)
	}

	switch choice {
	case 0:
		return runConnectionSetup(cmd, opts)
	case 1:
		return runTokenSetup(cmd, opts)
	case 2:
		return runViewConfiguration(cmd, opts)
	case 3:
		return runClearToken(cmd, opts)
	default:
		return fmt.Errorf("invalid selection")
	}
}

func runInitialSetup(cmd *cobra.Command, opts configureOptions) error {
	if err := runConnectionSetup(cmd, opts); err != nil {
		return err
	}
	return runTokenSetup(cmd, opts)
}

// loadOrDefault reads the existing config, falling back to defaults when the
// file is unreadable so a broken file can be repaired.
func loadOrDefault(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		return config.DefaultConfig()
	}
	return cfg
}

func runConnectionSetup(cmd *cobra.Command, opts configureOptions) error {
	cfg := loadOrDefault(opts.configPath())

	baseURL, err := opts.prompt.ReadLine(fmt.Sprintf("API base URL [%s]: ", cfg.APIBaseURL))
	if err != nil {
		return fmt.Errorf("failed to read base URL: %w", err)
	}
	if baseURL != "" {
		cfg.APIBaseURL = strings.TrimSuffix(baseURL, "/")
	}

	userID, err := opts.prompt.ReadLine(fmt.Sprintf("Portfolio user id [%d]: ", cfg.UserID))
	if err != nil {
		return fmt.Errorf("failed to read user id: %w", err)
	}
	if userID != "" {
		id, err := strconv.Atoi(userID)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid user id %q", userID)
		}
		cfg.UserID = id
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(opts.configPath(), cfg); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Configuration saved successfully!")
	if err := checkConnection(cfg); err != nil {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Note: Could not reach %s: %v\n", cfg.APIBaseURL, err)
	}
	return nil
}

// checkConnection requests a single contract to confirm the API answers.
func checkConnection(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := marketapi.NewClient(cfg.APIBaseURL, nil)
	_, err := client.ListContracts(ctx, marketapi.ContractQuery{Limit: 1})
	return err
}

func runTokenSetup(cmd *cobra.Command, opts configureOptions) error {
	_, _ = fmt.Fprint(cmd.OutOrStdout(), "API token (leave empty for none): ")
	token, err := opts.passwordReader.ReadPassword()
	if err != nil {
		return fmt.Errorf("failed to read API token: %w", err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout()) // Print newline after hidden input

	if strings.TrimSpace(token) == "" {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No API token stored.")
		return nil
	}
	if err := auth.SaveToken(opts.store, token); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API token stored in keyring.")
	return nil
}

func runViewConfiguration(cmd *cobra.Command, opts configureOptions) error {
	cfg := loadOrDefault(opts.configPath())
	w := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Current Configuration:")
	_, _ = fmt.Fprintln(w, "----------------------")
	_, _ = fmt.Fprintf(w, "Config file: %s\n", opts.configPath())
	_, _ = fmt.Fprintf(w, "API base URL: %s\n", cfg.APIBaseURL)
	_, _ = fmt.Fprintf(w, "Portfolio user id: %d\n", cfg.UserID)
	_, _ = fmt.Fprintf(w, "Page limit: %d\n", cfg.PageLimit)
	_, _ = fmt.Fprintf(w, "Filter debounce: %s\n", cfg.Debounce())
	_, _ = fmt.Fprintf(w, "Request timeout: %s\n", cfg.RequestTimeout())
	if cfg.LogFile != "" {
		_, _ = fmt.Fprintf(w, "Log file: %s\n", cfg.LogFile)
	}
	if auth.HasToken(opts.store) {
		_, _ = fmt.Fprintln(w, "API token: Configured")
	} else {
		_, _ = fmt.Fprintln(w, "API token: Not configured")
	}
	return nil
}

func runClearToken(cmd *cobra.Command, opts configureOptions) error {
	if err := auth.ClearToken(opts.store); err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), "API token cleared successfully.")
	return nil
}

func init() {
	configureCmd := newConfigureCmd(configureOptions{
		configPath:     configPath,
		store:          keyring.NewEnvStore(keyring.NewSystemStore()),
		passwordReader: newTerminalReader(int(os.Stdin.Fd())),
		prompt:         newTerminalPrompter(os.Stdin, os.Stdout),
	})
	rootCmd.AddCommand(configureCmd)
}
