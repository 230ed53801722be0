// internal/dosing/calculator_test.go
package dosing

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mcp-simple-bolus/internal/models"
)

func mgdl(v float64) *models.Quantity {
	q := models.NewQuantity(v, models.MilligramsPerDeciliter)
	return &q
}

func grams(v float64) *models.Quantity {
	q := models.NewQuantity(v, models.Gram)
	return &q
}

func TestRecommend(t *testing.T) {
	calc := NewCalculator(Settings{
		CarbRatio:          10,
		InsulinSensitivity: models.NewQuantity(50, models.MilligramsPerDeciliter),
		CorrectionTarget:   models.NewQuantity(110, models.MilligramsPerDeciliter),
		SuspendThreshold:   models.NewQuantity(70, models.MilligramsPerDeciliter),
	})

	tests := []struct {
		name    string
		carbs   *models.Quantity
		glucose *models.Quantity
		want    float64
		ok      bool
	}{
		{name: "no inputs"},
		{name: "carbs only", carbs: grams(45), want: 4.5, ok: true},
		{name: "correction only", glucose: mgdl(210), want: 2, ok: true},
		{name: "below target without carbs", glucose: mgdl(90), want: 0, ok: true},
		{name: "below target reduces meal dose", carbs: grams(30), glucose: mgdl(85), want: 2.5, ok: true},
		{name: "meal and correction", carbs: grams(30), glucose: mgdl(160), want: 4, ok: true},
		{name: "below suspend threshold", carbs: grams(60), glucose: mgdl(65), want: 0, ok: true},
		{name: "never negative", carbs: grams(5), glucose: mgdl(71), want: 0, ok: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := calc.Recommend(tt.carbs, tt.glucose)
			assert.Equal(t, tt.ok, ok)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestRecommendAcrossUnits(t *testing.T) {
	calc := NewCalculator(Settings{
		CarbRatio:          12,
		InsulinSensitivity: models.NewQuantity(2.5, models.MillimolesPerLiter),
		CorrectionTarget:   models.NewQuantity(6, models.MillimolesPerLiter),
		SuspendThreshold:   models.NewQuantity(4, models.MillimolesPerLiter),
	})

	got, ok := calc.Recommend(nil, mgdl(6*18.01559+2.5*18.01559))
	assert.True(t, ok)
	assert.InDelta(t, 1, got, 1e-9)
}
