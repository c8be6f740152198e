// Package keyring stores the optional marketplace API token.
package keyring

import (
	"errors"
	"fmt"
	"os"
	"strings"

	gokeyring "github.com/zalando/go-keyring"
)

const (
	// ServiceName is the keyring service the token is filed under.
	ServiceName = "dev.emkt.cli"

	// KeyAPIToken is the keyring key for the marketplace API token.
	KeyAPIToken = "api_token"

	// EnvAPIToken overrides the stored API token, for CI and headless
	// machines without a keyring daemon.
	EnvAPIToken = "EMKT_API_TOKEN"
)

// ErrNotFound is returned when no secret is stored under a key.
var ErrNotFound = errors.New("secret not found")

// Store is secret storage addressed by service and key.
type Store interface {
	Get(service, key string) (string, error)
	Set(service, key, value string) error
	Delete(service, key string) error
}

// SystemStore is the operating system keyring.
type SystemStore struct{}

// NewSystemStore creates a store backed by the system keyring.
func NewSystemStore() *SystemStore {
	return &SystemStore{}
}

// Get returns the secret, or ErrNotFound.
func (s *SystemStore) Get(service, key string) (string, error) {
	secret, err := gokeyring.Get(service, key)
	switch {
	case errors.Is(err, gokeyring.ErrNotFound):
		return "", ErrNotFound
	case err != nil:
		return "", fmt.Errorf("keyring read %s/%s: %w", service, key, err)
	}
	return secret, nil
}

// Set stores the secret.
func (s *SystemStore) Set(service, key, value string) error {
	if err := gokeyring.Set(service, key, value); err != nil {
		return fmt.Errorf("keyring write %s/%s: %w", service, key, err)
	}
	return nil
}

// Delete removes the secret. Removing a missing secret succeeds.
func (s *SystemStore) Delete(service, key string) error {
	err := gokeyring.Delete(service, key)
	if err == nil || errors.Is(err, gokeyring.ErrNotFound) {
		return nil
	}
	return fmt.Errorf("keyring delete %s/%s: %w", service, key, err)
}

// EnvStore reads selected keys from environment variables before falling
// back to another store. Writes always go to the underlying store.
type EnvStore struct {
	underlying Store
	vars       map[string]string // keyring key -> environment variable
}

// NewEnvStore wraps underlying so EMKT_API_TOKEN takes precedence over the
// stored token.
func NewEnvStore(underlying Store) *EnvStore {
	return &EnvStore{
		underlying: underlying,
		vars:       map[string]string{KeyAPIToken: EnvAPIToken},
	}
}

// Get returns the environment value for key when it is set and not blank.
func (e *EnvStore) Get(service, key string) (string, error) {
	if name, ok := e.vars[key]; ok {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v, nil
		}
	}
	return e.underlying.Get(service, key)
}

// Set stores a secret in the underlying store.
func (e *EnvStore) Set(service, key, value string) error {
	return e.underlying.Set(service, key, value)
}

// Delete removes a secret from the underlying store.
func (e *EnvStore) Delete(service, key string) error {
	return e.underlying.Delete(service, key)
}
