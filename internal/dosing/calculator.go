// internal/dosing/calculator.go
package dosing

import (
	"math"

	"mcp-simple-bolus/internal/models"
)

// Settings are the therapy parameters of the ratio calculator.
type Settings struct {
	CarbRatio          float64         // grams covered by one unit
	InsulinSensitivity models.Quantity // glucose drop per unit
	CorrectionTarget   models.Quantity
	SuspendThreshold   models.Quantity
}

// Calculator recommends a meal plus correction bolus from fixed ratios.
// It has no notion of insulin or carbs on board.
type Calculator struct {
	settings Settings
}

func NewCalculator(settings Settings) *Calculator {
	return &Calculator{settings: settings}
}

// Recommend returns the suggested dose in units. With neither carbs nor
// glucose there is nothing to recommend.
func (c *Calculator) Recommend(carbs, glucose *models.Quantity) (float64, bool) {
	if carbs == nil && glucose == nil {
		return 0, false
	}

	var dose float64
	if carbs != nil {
		grams, err := carbs.In(models.Gram)
		if err != nil || c.settings.CarbRatio <= 0 {
			return 0, false
		}
		dose = grams / c.settings.CarbRatio
	}

	if glucose != nil {
		below, err := glucose.Compare(c.settings.SuspendThreshold)
		if err != nil {
			return 0, false
		}
		if below < 0 {
			return 0, true
		}
		correction, ok := c.correction(*glucose)
		if !ok {
			return 0, false
		}
		// A negative correction may only reduce the meal dose.
		if correction > 0 || carbs != nil {
			dose += correction
		}
	}

	return math.Max(0, dose), true
}

func (c *Calculator) correction(glucose models.Quantity) (float64, bool) {
	unit := glucose.Unit
	target, err := c.settings.CorrectionTarget.In(unit)
	if err != nil {
		return 0, false
	}
	isf, err := c.settings.InsulinSensitivity.In(unit)
	if err != nil || isf <= 0 {
		return 0, false
	}
	return (glucose.Value - target) / isf, true
}
