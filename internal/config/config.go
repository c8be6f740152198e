package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/jonandersen/emkt/pkg/marketapi"
)

const (
	// DefaultAPIBaseURL is the marketplace backend used when none is configured.
	DefaultAPIBaseURL = "http://localhost:8000"

	// DefaultUserID is the portfolio owner.
	DefaultUserID = 1

	// DefaultPageLimit is the number of contracts requested per load.
	DefaultPageLimit = 50

	// DefaultDebounceMS is the quiet period after a filter edit before reloading.
	DefaultDebounceMS = 250

	// DefaultRequestTimeoutSeconds bounds every API request.
	DefaultRequestTimeoutSeconds = 30

	// EnvAPIURL overrides api_base_url when set.
	EnvAPIURL = "EMKT_API_URL"

	appDir   = "emkt"
	fileName = "config.yaml"
)

// Config holds the CLI configuration.
type Config struct {
	APIBaseURL            string `yaml:"api_base_url"`
	UserID                int    `yaml:"user_id"`
	PageLimit             int    `yaml:"page_limit"`
	DebounceMS            int    `yaml:"debounce_ms"`
	RequestTimeoutSeconds int    `yaml:"request_timeout_seconds"`
	LogFile               string `yaml:"log_file,omitempty"`
}

// DefaultConfig returns a Config with every field at its default.
func DefaultConfig() *Config {
	return &Config{
		APIBaseURL:            DefaultAPIBaseURL,
		UserID:                DefaultUserID,
		PageLimit:             DefaultPageLimit,
		DebounceMS:            DefaultDebounceMS,
		RequestTimeoutSeconds: DefaultRequestTimeoutSeconds,
	}
}

// ConfigDir returns the directory holding the config file, honoring
// XDG_CONFIG_HOME.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".config", appDir)
	}
	return filepath.Join(home, ".config", appDir)
}

// ConfigPath returns the default config file path.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), fileName)
}

// Load reads the config at path. A missing file yields the defaults; fields
// absent from the file keep their defaults. EMKT_API_URL overrides the base URL.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}

	if env := strings.TrimSpace(os.Getenv(EnvAPIURL)); env != "" {
		cfg.APIBaseURL = env
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.APIBaseURL == "" {
		c.APIBaseURL = DefaultAPIBaseURL
	}
	if c.UserID == 0 {
		c.UserID = DefaultUserID
	}
	if c.PageLimit == 0 {
		c.PageLimit = DefaultPageLimit
	}
	if c.DebounceMS == 0 {
		c.DebounceMS = DefaultDebounceMS
	}
	if c.RequestTimeoutSeconds == 0 {
		c.RequestTimeoutSeconds = DefaultRequestTimeoutSeconds
	}
}

// Validate reports the first invalid field.
func (c *Config) Validate() error {
	if !strings.HasPrefix(c.APIBaseURL, "http://") && !strings.HasPrefix(c.APIBaseURL, "https://") {
		return fmt.Errorf("api_base_url must start with http:// or https://, got %q", c.APIBaseURL)
	}
	if c.UserID < 0 {
		return fmt.Errorf("user_id must be positive, got %d", c.UserID)
	}
	if c.PageLimit < 0 || c.PageLimit > marketapi.MaxPageLimit {
		return fmt.Errorf("page_limit must be between 1 and %d, got %d", marketapi.MaxPageLimit, c.PageLimit)
	}
	if c.DebounceMS < 0 {
		return fmt.Errorf("debounce_ms must not be negative, got %d", c.DebounceMS)
	}
	if c.RequestTimeoutSeconds < 0 {
		return fmt.Errorf("request_timeout_seconds must not be negative, got %d", c.RequestTimeoutSeconds)
	}
	return nil
}

// Debounce returns the filter quiet period.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// RequestTimeout returns the per-request timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// Save writes cfg to path with owner-only permissions, creating parent
// directories as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
