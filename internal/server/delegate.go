// internal/server/delegate.go
package server

import (
	"context"
	"time"

	"mcp-simple-bolus/internal/config"
	"mcp-simple-bolus/internal/delivery"
	"mcp-simple-bolus/internal/dosing"
	"mcp-simple-bolus/internal/models"
	"mcp-simple-bolus/internal/storage"
)

// bolusDelegate wires the workflow's capabilities to storage, the ratio
// calculator and the dose recorder.
type bolusDelegate struct {
	storage    *storage.SQLiteStorage
	calculator *dosing.Calculator
	recorder   *delivery.Recorder
	dosing     config.DosingConfig
}

func newBolusDelegate(stor *storage.SQLiteStorage, recorder *delivery.Recorder, cfg config.DosingConfig) *bolusDelegate {
	return &bolusDelegate{
		storage: stor,
		calculator: dosing.NewCalculator(dosing.Settings{
			CarbRatio:          cfg.CarbRatio,
			InsulinSensitivity: cfg.Glucose(cfg.InsulinSensitivity),
			CorrectionTarget:   cfg.Glucose(cfg.CorrectionTarget),
			SuspendThreshold:   cfg.Glucose(cfg.SuspendThreshold),
		}),
		recorder: recorder,
		dosing:   cfg,
	}
}

func (d *bolusDelegate) AddGlucose(ctx context.Context, samples []models.GlucoseSample) error {
	return d.storage.SaveGlucoseSamples(ctx, samples)
}

func (d *bolusDelegate) AddCarbEntry(ctx context.Context, entry models.CarbEntry) error {
	return d.storage.SaveCarbEntry(ctx, &entry)
}

func (d *bolusDelegate) EnactBolus(units float64, at time.Time) {
	d.recorder.EnactBolus(units, at)
}

func (d *bolusDelegate) ComputeSimpleBolusRecommendation(carbs, glucose *models.Quantity) (float64, bool) {
	return d.calculator.Recommend(carbs, glucose)
}

func (d *bolusDelegate) PreferredGlucoseUnit() models.Unit {
	return d.dosing.Unit()
}

func (d *bolusDelegate) MaximumBolus() float64 {
	return d.dosing.MaximumBolus
}

func (d *bolusDelegate) SuspendThreshold() models.Quantity {
	return d.dosing.Glucose(d.dosing.SuspendThreshold)
}
