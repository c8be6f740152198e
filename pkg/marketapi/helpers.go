package marketapi

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// FormatCurrency formats a dollar amount with thousand separators and two
// decimals, e.g. "$1,234.50". Non-finite values format as "$0.00".
func FormatCurrency(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	str := strconv.FormatFloat(value, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(str, ".")
	return sign + "$" + groupThousands(intPart) + "." + frac
}

// FormatNumber formats a quantity with thousand separators and at most two
// decimals, dropping trailing zeros, e.g. "1,250.5".
func FormatNumber(value float64) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		value = 0
	}
	sign := ""
	if value < 0 {
		sign = "-"
		value = -value
	}
	str := strconv.FormatFloat(value, 'f', 2, 64)
	intPart, frac, _ := strings.Cut(str, ".")
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return sign + groupThousands(intPart)
	}
	return sign + groupThousands(intPart) + "." + frac
}

// dateLayouts are the timestamp shapes the backend emits.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
}

// ParseDate parses a date or timestamp returned by the API.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDate formats an API date as "Jan 02, 2026".
// Unparseable input is returned unchanged.
func FormatDate(value string) string {
	t, ok := ParseDate(value)
	if !ok {
		return value
	}
	return t.Format("Jan 02, 2006")
}

// FormatDateRange formats a delivery window as "start - end".
func FormatDateRange(start, end string) string {
	return FormatDate(start) + " - " + FormatDate(end)
}

// groupThousands inserts commas into a string of digits.
func groupThousands(str string) string {
	n := len(str)
	if n <= 3 {
		return str
	}

	var result strings.Builder
	remainder := n % 3
	if remainder > 0 {
		result.WriteString(str[:remainder])
		if n > remainder {
			result.WriteString(",")
		}
	}

	for i := remainder; i < n; i += 3 {
		result.WriteString(str[i : i+3])
		if i+3 < n {
			result.WriteString(",")
		}
	}

	return result.String()
}
