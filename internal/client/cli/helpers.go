package cli

import (
	"strconv"
	"strings"
)

// formatAmount печатает сумму без лишних нулей: 1500 -> "1500", 12.5 -> "12.50"
func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// confirmed reports whether a prompt answer means yes.
func confirmed(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}
