// internal/bolus/pipeline.go
package bolus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"mcp-simple-bolus/internal/models"
)

// ErrSubmitInProgress is returned when SaveAndDeliver is called while a
// previous submission on the same workflow has not finished.
var ErrSubmitInProgress = errors.New("bolus submission already in progress")

// State is a delivery pipeline stage.
type State string

const (
	StateIdle           State = "idle"
	StateAuthenticating State = "authenticating"
	StateSavingGlucose  State = "saving_glucose"
	StateSavingCarbs    State = "saving_carbs"
	StateDelivering     State = "delivering"
	StateDone           State = "done"
	StateAborted        State = "aborted"
	StateFailed         State = "failed"
	StateRejected       State = "rejected"
)

// Terminal reports whether the pipeline stops in s.
func (s State) Terminal() bool {
	switch s {
	case StateDone, StateAborted, StateFailed, StateRejected:
		return true
	}
	return false
}

// Outcome is where a submission ended. Alert is set for StateRejected and
// StateFailed only.
type Outcome struct {
	State State     `json:"state"`
	Alert AlertKind `json:"alert,omitempty"`
}

// submission is the frozen input of one pipeline run. bolusText is the
// entry bolus was parsed from, so the confirmation prompt names exactly the
// amount that gets enacted.
type submission struct {
	carbs     *models.Quantity
	glucose   *models.Quantity
	bolus     *models.Quantity
	bolusText string
	saveDate  time.Time
}

func (s submission) bolusVolume() float64 {
	if s.bolus == nil {
		return 0
	}
	return s.bolus.Value
}

// SaveAndDeliver validates the current entries and, if they pass, runs
// authenticate, save glucose, save carbs and enact bolus in order. didSave
// is called once if every stage completes. Completed stages are never rolled
// back when a later one fails.
func (w *Workflow) SaveAndDeliver(ctx context.Context, didSave func()) (Outcome, error) {
	w.mu.Lock()
	if w.submitting {
		w.mu.Unlock()
		return Outcome{}, ErrSubmitInProgress
	}
	if kind := w.validateLocked(); kind != AlertNone {
		w.alert.raise(kind)
		w.state = StateRejected
		w.unlockAndNotify()
		return Outcome{State: StateRejected, Alert: kind}, nil
	}
	w.submitting = true
	sub := submission{
		carbs:     w.carbs,
		glucose:   w.glucose,
		bolus:     w.bolus,
		bolusText: strings.TrimSpace(w.bolusText),
		saveDate:  w.now(),
	}
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		w.submitting = false
		w.mu.Unlock()
	}()

	out := Outcome{State: StateAuthenticating}
	for !out.State.Terminal() {
		w.transition(out.State)
		switch out.State {
		case StateAuthenticating:
			out = w.authenticateIfNeeded(ctx, sub)
		case StateSavingGlucose:
			out = w.saveManualGlucose(ctx, sub)
		case StateSavingCarbs:
			out = w.saveCarbs(ctx, sub)
		case StateDelivering:
			out = w.enactBolus(sub)
		default:
			panic(fmt.Sprintf("bolus: unexpected pipeline state %q", out.State))
		}
	}

	w.mutate(func() {
		if out.Alert != AlertNone {
			w.alert.raise(out.Alert)
		}
		w.state = out.State
	})
	if out.State == StateDone && didSave != nil {
		didSave()
	}
	return out, nil
}

// validateLocked returns the first bound violated by the current entries.
func (w *Workflow) validateLocked() AlertKind {
	if w.bolus != nil && w.bolus.Value > w.delegate.MaximumBolus() {
		return AlertMaxBolusExceeded
	}
	if w.glucose != nil && !models.ValidManualGlucoseEntryRange.Contains(*w.glucose) {
		return AlertGlucoseOutOfRange
	}
	if w.carbs != nil {
		if cmp, err := w.carbs.Compare(models.MaxCarbEntryQuantity); err != nil || cmp > 0 {
			return AlertCarbTooLarge
		}
	}
	return AlertNone
}

func (w *Workflow) transition(s State) {
	w.mutate(func() { w.state = s })
}

func (w *Workflow) authenticateIfNeeded(ctx context.Context, sub submission) Outcome {
	if sub.bolusVolume() <= 0 {
		return Outcome{State: StateSavingGlucose}
	}
	message := fmt.Sprintf("Authenticate to Bolus %s Units", sub.bolusText)
	if err := w.auth.Authenticate(ctx, message); err != nil {
		w.logger.Debug("Bolus authentication not granted", zap.Error(err))
		return Outcome{State: StateAborted}
	}
	return Outcome{State: StateSavingGlucose}
}

func (w *Workflow) saveManualGlucose(ctx context.Context, sub submission) Outcome {
	if sub.glucose == nil {
		return Outcome{State: StateSavingCarbs}
	}
	sample := models.GlucoseSample{
		Date:           sub.saveDate,
		Quantity:       *sub.glucose,
		IsDisplayOnly:  false,
		WasUserEntered: true,
		SyncIdentifier: w.newSyncID(),
	}
	if err := w.delegate.AddGlucose(ctx, []models.GlucoseSample{sample}); err != nil {
		w.logger.Error("Failed to add manual glucose entry", zap.Error(err))
		return Outcome{State: StateFailed, Alert: AlertGlucosePersistenceFailure}
	}
	return Outcome{State: StateSavingCarbs}
}

func (w *Workflow) saveCarbs(ctx context.Context, sub submission) Outcome {
	if sub.carbs == nil {
		return Outcome{State: StateDelivering}
	}
	entry := models.CarbEntry{
		Date:      sub.saveDate,
		Quantity:  *sub.carbs,
		StartDate: sub.saveDate,
	}
	w.donate(ctx, entry)
	if err := w.delegate.AddCarbEntry(ctx, entry); err != nil {
		w.logger.Error("Failed to add carb entry", zap.Error(err))
		return Outcome{State: StateFailed, Alert: AlertCarbPersistenceFailure}
	}
	return Outcome{State: StateDelivering}
}

// donate runs in the background; its failure is logged and otherwise ignored.
func (w *Workflow) donate(ctx context.Context, entry models.CarbEntry) {
	if w.donor == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	w.donations.Add(1)
	go func() {
		defer w.donations.Done()
		if err := w.donor.DonateCarbEntry(ctx, entry); err != nil {
			w.logger.Error("Failed to donate carb entry", zap.Error(err))
		}
	}()
}

// enactBolus does not wait for delivery; the pipeline completes regardless.
func (w *Workflow) enactBolus(sub submission) Outcome {
	if volume := sub.bolusVolume(); volume > 0 {
		w.delegate.EnactBolus(volume, sub.saveDate)
	}
	return Outcome{State: StateDone}
}
