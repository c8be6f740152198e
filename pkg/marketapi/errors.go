package marketapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// APIError represents an error response from the marketplace API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
}

// IsNotFound returns true if the error is a 404 Not Found.
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsUnauthorized returns true if the error is a 401 Unauthorized.
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized
}

// IsValidation returns true if the backend rejected the request parameters.
func (e *APIError) IsValidation() bool {
	return e.StatusCode == http.StatusUnprocessableEntity || e.StatusCode == http.StatusBadRequest
}

// detailResponse is the JSON error body produced by the backend framework.
// Validation errors carry a list in "detail" instead of a string.
type detailResponse struct {
	Detail json.RawMessage `json:"detail"`
}

// CheckResponse checks the API response for errors.
// If the status code is outside 2xx, the body is read and returned as an
// APIError. Plain-text bodies are used verbatim; JSON bodies with a string
// "detail" field contribute that field.
func CheckResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return apiErr
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		return apiErr
	}

	var detail detailResponse
	if err := json.Unmarshal(body, &detail); err == nil && len(detail.Detail) > 0 {
		var msg string
		if err := json.Unmarshal(detail.Detail, &msg); err == nil {
			apiErr.Message = msg
			return apiErr
		}
	}

	apiErr.Message = text
	return apiErr
}

// Message returns the user-facing text for err. API errors contribute the
// body text sent by the server; other errors their own message. When neither
// carries text, fallback is returned.
func Message(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.Message != "" {
			return apiErr.Message
		}
		return fallback
	}
	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// DecodeJSON decodes a JSON response body into the given target.
func DecodeJSON(resp *http.Response, target any) error {
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
