// Package marketapi provides a Go client for the energy contract marketplace API.
//
// This package can be imported by external projects to browse contracts,
// compare them and manage a user's contract portfolio programmatically.
package marketapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DefaultBaseURL is the address of a locally running marketplace backend.
const DefaultBaseURL = "http://localhost:8000"

// RequestIDHeader carries a per-request identifier for correlating client and server logs.
const RequestIDHeader = "X-Request-ID"

// TokenProvider is an interface for obtaining authentication tokens.
// The marketplace backend does not require authentication by default; a
// provider returning an empty token disables the Authorization header.
type TokenProvider interface {
	Token() (string, error)
}

// Client handles HTTP requests to the marketplace API.
type Client struct {
	BaseURL       string
	TokenProvider TokenProvider
	HTTPClient    *http.Client
	Logger        *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.HTTPClient = hc
	}
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.HTTPClient.Timeout = d
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.Logger = l
		}
	}
}

// NewClient creates a new API client with the given base URL and token provider.
// tokenProvider may be nil for unauthenticated deployments.
func NewClient(baseURL string, tokenProvider TokenProvider, opts ...Option) *Client {
	c := &Client{
		BaseURL:       strings.TrimSuffix(baseURL, "/"),
		TokenProvider: tokenProvider,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get performs a GET request to the specified path.
func (c *Client) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path)
}

// GetWithQuery performs a GET request to the specified path with query parameters.
// Multi-valued parameters are encoded as repeated keys.
func (c *Client) GetWithQuery(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if len(query) > 0 {
		path = path + "?" + query.Encode()
	}
	return c.do(ctx, http.MethodGet, path)
}

// Post performs a bodiless POST request to the specified path.
func (c *Client) Post(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path)
}

// Delete performs a DELETE request to the specified path.
func (c *Client) Delete(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodDelete, path)
}

// getToken returns the current authentication token, or "" when none is configured.
func (c *Client) getToken() (string, error) {
	if c.TokenProvider == nil {
		return "", nil
	}
	return c.TokenProvider.Token()
}

// do performs a single HTTP request with header injection and request tracing.
func (c *Client) do(ctx context.Context, method, path string) (*http.Response, error) {
	token, err := c.getToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.Logger.Debug("request failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.Logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", requestID),
		zap.Duration("duration", time.Since(start)))

	return resp, nil
}
