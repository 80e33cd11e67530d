package bot

import (
	"strings"

	"github.com/shopspring/decimal"
)

// displayPlaces is the number of decimal places shown to users
const displayPlaces = 7

// formatValue rounds the value for display.
// Whole values keep a trailing ".0" (3100.0), so replies always read as decimals
func formatValue(v float64) string {
	s := decimal.NewFromFloat(v).Round(displayPlaces).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}

	return s
}
