// internal/delivery/recorder.go
package delivery

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"mcp-simple-bolus/internal/models"
)

const doseSource = "simple_bolus"

type DoseStore interface {
	SaveDose(ctx context.Context, dose *models.DoseEntry) error
}

// Recorder accepts enacted boluses without blocking the caller and records
// them in the background. Failures are logged; nobody waits on them.
type Recorder struct {
	store   DoseStore
	logger  *zap.Logger
	onSaved func(models.DoseEntry)

	wg sync.WaitGroup
}

func NewRecorder(store DoseStore, logger *zap.Logger, onSaved func(models.DoseEntry)) *Recorder {
	return &Recorder{store: store, logger: logger, onSaved: onSaved}
}

func (r *Recorder) EnactBolus(units float64, at time.Time) {
	dose := models.DoseEntry{Units: units, StartDate: at, Source: doseSource}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		if err := r.store.SaveDose(context.Background(), &dose); err != nil {
			r.logger.Error("Failed to record bolus", zap.Float64("units", units), zap.Error(err))
			return
		}
		r.logger.Info("Bolus enacted", zap.Int64("id", dose.ID), zap.Float64("units", units), zap.Time("start_date", at))
		if r.onSaved != nil {
			r.onSaved(dose)
		}
	}()
}

// Wait blocks until every accepted bolus has been recorded or has failed.
func (r *Recorder) Wait() {
	r.wg.Wait()
}
