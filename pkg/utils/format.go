// Package utils provides number formatting for terminal output.
package utils

import (
	"fmt"
	"math"
	"strings"
)

// FormatMoney formats an amount with thousands separators and two
// decimals, e.g. 1234567.891 → "1,234,567.89".
func FormatMoney(amount float64) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return fmt.Sprintf("%v", amount)
	}
	s := fmt.Sprintf("%.2f", math.Abs(amount))
	intPart, decPart, _ := strings.Cut(s, ".")

	formatted := groupThousands(intPart) + "." + decPart
	if amount < 0 && formatted != "0.00" {
		return "-" + formatted
	}
	return formatted
}

// FormatCompact formats an amount with a K/M/B/T suffix.
// e.g., 1500 → "1.5K", 2.5e9 → "2.5B"
func FormatCompact(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	switch {
	case amount >= 1e12:
		return sign + formatWithDecimals(amount/1e12) + "T"
	case amount >= 1e9:
		return sign + formatWithDecimals(amount/1e9) + "B"
	case amount >= 1e6:
		return sign + formatWithDecimals(amount/1e6) + "M"
	case amount >= 1e3:
		return sign + formatWithDecimals(amount/1e3) + "K"
	default:
		return sign + formatWithDecimals(amount)
	}
}

// FormatPct formats a percentage value with sign and suffix.
// e.g., 2.45 → "+2.45%", -1.23 → "-1.23%"
func FormatPct(pct float64) string {
	if pct >= 0 {
		return fmt.Sprintf("+%.2f%%", pct)
	}
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatVolume formats a share count in compact form.
// e.g., 950 → "950", 1500000 → "1.5M"
func FormatVolume(volume int64) string {
	if volume < 1000 && volume > -1000 {
		return fmt.Sprintf("%d", volume)
	}
	return FormatCompact(float64(volume))
}

// groupThousands inserts commas every three digits from the right.
func groupThousands(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	var b strings.Builder
	head := len(digits) % 3
	if head > 0 {
		b.WriteString(digits[:head])
	}
	for i := head; i < len(digits); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// formatWithDecimals formats a number with up to 2 decimal places,
// removing trailing zeros.
func formatWithDecimals(n float64) string {
	s := fmt.Sprintf("%.2f", n)
	s = strings.TrimRight(s, "0")
	s = strings.TrimRight(s, ".")
	return s
}
