// Package auth supplies the optional bearer token sent to the marketplace API.
package auth

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/jonandersen/emkt/internal/keyring"
)

// StoreProvider reads the API token from a keyring.Store once and serves it
// for every request. A missing or unreadable token means requests are sent
// without an Authorization header.
type StoreProvider struct {
	store  keyring.Store
	logger *zap.Logger

	once  sync.Once
	token string
}

// NewStoreProvider creates a provider backed by store.
func NewStoreProvider(store keyring.Store, logger *zap.Logger) *StoreProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreProvider{store: store, logger: logger}
}

// Token implements marketapi.TokenProvider.
func (p *StoreProvider) Token() (string, error) {
	p.once.Do(func() {
		token, err := p.store.Get(keyring.ServiceName, keyring.KeyAPIToken)
		switch {
		case errors.Is(err, keyring.ErrNotFound):
			p.logger.Debug("no API token configured")
		case err != nil:
			p.logger.Warn("keyring unavailable, sending requests without a token", zap.Error(err))
		default:
			p.token = strings.TrimSpace(token)
		}
	})
	return p.token, nil
}

// SaveToken stores token in the keyring. An empty token removes it.
func SaveToken(store keyring.Store, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ClearToken(store)
	}
	if err := store.Set(keyring.ServiceName, keyring.KeyAPIToken, token); err != nil {
		return fmt.Errorf("failed to store API token: %w", err)
	}
	return nil
}

// ClearToken removes the stored token.
func ClearToken(store keyring.Store) error {
	if err := store.Delete(keyring.ServiceName, keyring.KeyAPIToken); err != nil {
		return fmt.Errorf("failed to remove API token: %w", err)
	}
	return nil
}

// HasToken reports whether a token is stored or provided by the environment.
func HasToken(store keyring.Store) bool {
	token, err := store.Get(keyring.ServiceName, keyring.KeyAPIToken)
	return err == nil && strings.TrimSpace(token) != ""
}
