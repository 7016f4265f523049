// Package utils provides the display formatters and small helpers shared by
// the dashboard and the CLI. Every formatter is pure and total: missing,
// zero or non-finite input yields the zero-equivalent output.
package utils

import (
	"fmt"
	"html"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// FormatCurrency formats a USD amount with a B/M/K suffix.
// e.g., 1500 → "$1.50K", 2300000 → "$2.30M", 0 → "$0"
func FormatCurrency(value float64) string {
	if isZero(value) {
		return "$0"
	}
	d := decimal.NewFromFloat(value)
	switch {
	case value >= 1e9:
		return "$" + d.Shift(-9).StringFixed(2) + "B"
	case value >= 1e6:
		return "$" + d.Shift(-6).StringFixed(2) + "M"
	case value >= 1e3:
		return "$" + d.Shift(-3).StringFixed(2) + "K"
	default:
		return "$" + d.StringFixed(2)
	}
}

// FormatPrice formats a token price. Sub-micro prices use exponential
// notation, sub-cent prices 6 decimals, everything else 4.
func FormatPrice(value float64) string {
	if isZero(value) {
		return "$0"
	}
	switch {
	case value < 0.000001:
		return "$" + exponential(value, 2)
	case value < 0.01:
		return "$" + decimal.NewFromFloat(value).StringFixed(6)
	default:
		return "$" + decimal.NewFromFloat(value).StringFixed(4)
	}
}

// FormatPercent formats a percentage with an explicit sign.
// e.g., 2 → "+2.00%", -3.456 → "-3.46%", -0.001 → "-0.00%", 0 → "0%"
func FormatPercent(value float64) string {
	if isZero(value) {
		return "0%"
	}
	fixed := decimal.NewFromFloat(value).StringFixed(2)
	switch {
	case value > 0:
		fixed = "+" + fixed
	case !strings.HasPrefix(fixed, "-"):
		// decimal has no negative zero; -0.001 still reads "-0.00%".
		fixed = "-" + fixed
	}
	return fixed + "%"
}

// FormatAge renders how long ago a token was created.
// createdMs is a unix timestamp in milliseconds.
func FormatAge(createdMs *float64, now time.Time) string {
	if createdMs == nil || isZero(*createdMs) {
		return "Unknown"
	}
	elapsedMs := float64(now.UnixMilli()) - *createdMs
	hours := int64(math.Floor(elapsedMs / float64(time.Hour/time.Millisecond)))

	switch {
	case hours < 1:
		return "< 1h"
	case hours < 24:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dd", hours/24)
	}
}

// TruncateAddress keeps the first 6 and last 4 characters of an address.
func TruncateAddress(address string) string {
	if address == "" {
		return ""
	}
	r := []rune(address)
	head := r[:min(6, len(r))]
	tail := r[max(0, len(r)-4):]
	return string(head) + "..." + string(tail)
}

// EscapeHTML escapes text so it renders literally inside markup.
func EscapeHTML(text string) string {
	return html.EscapeString(text)
}

// FormatCount renders a count that the backend may send as a float.
func FormatCount(value float64) string {
	if isZero(value) {
		return "0"
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

// isZero reports values that display as zero: 0, NaN and ±Inf.
func isZero(v float64) bool {
	return v == 0 || math.IsNaN(v) || math.IsInf(v, 0)
}

// exponential formats v with the given mantissa digits and a compact
// exponent without zero padding, e.g. 5e-7 → "5.00e-7".
func exponential(v float64, digits int) string {
	s := strconv.FormatFloat(v, 'e', digits, 64)
	mantissa, exp, ok := strings.Cut(s, "e")
	if !ok || exp == "" {
		return s
	}
	sign, digitsPart := exp[:1], strings.TrimLeft(exp[1:], "0")
	if digitsPart == "" {
		digitsPart = "0"
	}
	return mantissa + "e" + sign + digitsPart
}
