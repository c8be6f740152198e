package marketapi

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCurrency(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"zero", 0, "$0.00"},
		{"small", 42.1, "$42.10"},
		{"thousands", 1234.5, "$1,234.50"},
		{"millions", 1234567.891, "$1,234,567.89"},
		{"negative", -50, "-$50.00"},
		{"nan", math.NaN(), "$0.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatCurrency(tt.input))
		})
	}
}

func TestFormatNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    float64
		expected string
	}{
		{"integer", 1000, "1,000"},
		{"one decimal", 1250.5, "1,250.5"},
		{"rounds to two", 3.14159, "3.14"},
		{"small", 7, "7"},
		{"inf", math.Inf(1), "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatNumber(tt.input))
		})
	}
}

func TestFormatDate(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"date", "2026-01-05", "Jan 05, 2026"},
		{"timestamp", "2026-03-15T10:30:00", "Mar 15, 2026"},
		{"timestamp with micros", "2026-03-15T10:30:00.123456", "Mar 15, 2026"},
		{"rfc3339", "2026-12-01T00:00:00Z", "Dec 01, 2026"},
		{"invalid passes through", "soon", "soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatDate(tt.input))
		})
	}
}

func TestFormatDateRange(t *testing.T) {
	assert.Equal(t, "Jan 01, 2026 - Feb 01, 2026", FormatDateRange("2026-01-01", "2026-02-01"))
}
