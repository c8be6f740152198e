package cmd

import (
	"context"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jonandersen/emkt/internal/auth"
	"github.com/jonandersen/emkt/internal/config"
	"github.com/jonandersen/emkt/internal/keyring"
	"github.com/jonandersen/emkt/internal/logging"
	"github.com/jonandersen/emkt/pkg/marketapi"
)

// Version is reported by --version. main overrides it at build time.
var Version = "dev"

var (
	// jsonOutput controls whether output is formatted as JSON
	jsonOutput bool
	verbose    bool
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "emkt",
	Short: "Energy contract marketplace CLI",
	Long: `Browse, compare and trade energy delivery contracts.

Run "emkt ui" for the interactive terminal, or use the subcommands
for scripting.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate("emkt version {{.Version}}\n")
	rootCmd.PersistentFlags().BoolVarP(&jsonOutput, "json", "j", false, "Output in JSON format")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log requests to stderr")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (default "+config.ConfigPath()+")")
}

// GetJSONMode returns whether JSON output mode is enabled.
func GetJSONMode() bool {
	return jsonOutput
}

// Execute runs the root command.
func Execute() {
	rootCmd.Version = Version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// configPath returns the --config flag or the default location.
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.ConfigPath()
}

// apiOptions holds the dependencies shared by commands that call the API.
// Tests fill it directly; production commands fill it in PersistentPreRunE.
type apiOptions struct {
	baseURL  string
	userID   int
	limit    int
	timeout  time.Duration
	store    keyring.Store
	logger   *zap.Logger
	jsonMode bool
}

// client builds an API client from the options.
func (o *apiOptions) client() *marketapi.Client {
	logger := o.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	var tokens marketapi.TokenProvider
	if o.store != nil {
		tokens = auth.NewStoreProvider(o.store, logger)
	}
	opts := []marketapi.Option{marketapi.WithLogger(logger)}
	if o.timeout > 0 {
		opts = append(opts, marketapi.WithTimeout(o.timeout))
	}
	return marketapi.NewClient(o.baseURL, tokens, opts...)
}

// requestContext returns a context bounded by the request timeout.
func (o *apiOptions) requestContext() (context.Context, context.CancelFunc) {
	timeout := o.timeout
	if timeout <= 0 {
		timeout = config.DefaultRequestTimeoutSeconds * time.Second
	}
	return context.WithTimeout(context.Background(), timeout)
}

// loadAPIOptions returns a PersistentPreRunE that fills opts from the config
// file, the keyring and the global flags.
func loadAPIOptions(opts *apiOptions) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath())
		if err != nil {
			return err
		}
		logger, err := logging.New(logging.Options{Verbose: verbose, Stderr: verbose, File: cfg.LogFile})
		if err != nil {
			return err
		}

		opts.baseURL = cfg.APIBaseURL
		opts.userID = cfg.UserID
		opts.limit = cfg.PageLimit
		opts.timeout = cfg.RequestTimeout()
		opts.store = keyring.NewEnvStore(keyring.NewSystemStore())
		opts.logger = logger
		opts.jsonMode = GetJSONMode()
		return nil
	}
}

// addAPICommand registers a command tree built from shared apiOptions.
func addAPICommand(build func(opts *apiOptions) *cobra.Command) {
	opts := &apiOptions{}
	cmd := build(opts)
	cmd.PersistentPreRunE = loadAPIOptions(opts)
	cmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if opts.logger != nil {
			_ = opts.logger.Sync()
		}
	}
	rootCmd.AddCommand(cmd)
}
