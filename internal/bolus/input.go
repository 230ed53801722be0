// internal/bolus/input.go
package bolus

import (
	"math"
	"strconv"
	"strings"

	"mcp-simple-bolus/internal/models"
)

// NoRecommendationText is displayed when no dose is recommended.
const NoRecommendationText = "-"

// parseAmount reads a strictly positive, finite number from user text.
// A single comma is accepted as the decimal separator.
func parseAmount(text string) (float64, bool) {
	s := strings.TrimSpace(text)
	if s == "" {
		return 0, false
	}
	if !strings.Contains(s, ".") && strings.Count(s, ",") == 1 {
		s = strings.Replace(s, ",", ".", 1)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, false
	}
	return v, true
}

// ParseQuantity parses text into a quantity of unit, or nil when the text is
// empty, malformed or not positive.
func ParseQuantity(text string, unit models.Unit) *models.Quantity {
	v, ok := parseAmount(text)
	if !ok {
		return nil
	}
	q := models.NewQuantity(v, unit)
	return &q
}

// FormatDose renders a dose with at most one fraction digit.
func FormatDose(units float64) string {
	rounded := math.Round(units*10) / 10
	if rounded == 0 {
		rounded = 0 // normalise -0
	}
	return strconv.FormatFloat(rounded, 'f', -1, 64)
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
