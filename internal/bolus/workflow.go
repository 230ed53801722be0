// internal/bolus/workflow.go
package bolus

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"mcp-simple-bolus/internal/models"
)

// Snapshot is the observable state of a workflow.
type Snapshot struct {
	CarbText         string             `json:"carb_text"`
	GlucoseText      string             `json:"glucose_text"`
	BolusText        string             `json:"bolus_text"`
	GlucoseUnit      models.Unit        `json:"glucose_unit"`
	RecommendedBolus string             `json:"recommended_bolus"`
	Recommendation   *float64           `json:"recommendation,omitempty"`
	Alert            AlertKind          `json:"alert,omitempty"`
	Notice           NoticeKind         `json:"notice,omitempty"`
	Action           ActionButtonAction `json:"action"`
	State            State              `json:"state"`
}

// Observer is called synchronously after every state change, in
// registration order, without the workflow lock held.
type Observer func(Snapshot)

type Option func(*Workflow)

func WithLogger(logger *zap.Logger) Option {
	return func(w *Workflow) { w.logger = logger }
}

func WithDonor(donor Donor) Option {
	return func(w *Workflow) { w.donor = donor }
}

// WithClock overrides the source of save timestamps.
func WithClock(now func() time.Time) Option {
	return func(w *Workflow) { w.now = now }
}

func WithSyncIdentifiers(next func() string) Option {
	return func(w *Workflow) { w.newSyncID = next }
}

// Workflow owns one bolus entry from first keystroke to delivery. It is
// created empty and discarded once the user is done with it.
type Workflow struct {
	delegate  Delegate
	auth      Authenticator
	donor     Donor
	logger    *zap.Logger
	now       func() time.Time
	newSyncID func() string

	mu              sync.Mutex
	carbText        string
	glucoseText     string
	bolusText       string
	carbs           *models.Quantity
	glucose         *models.Quantity
	bolus           *models.Quantity
	recommendation  *float64
	recommendedText string
	alert           alertSlot
	notice          NoticeKind
	state           State
	submitting      bool
	observers       []Observer

	donations sync.WaitGroup
}

func New(delegate Delegate, auth Authenticator, opts ...Option) *Workflow {
	w := &Workflow{
		delegate:  delegate,
		auth:      auth,
		logger:    zap.NewNop(),
		now:       time.Now,
		newSyncID: uuid.NewString,
		state:     StateIdle,
	}
	for _, opt := range opts {
		opt(w)
	}
	w.mu.Lock()
	w.updateRecommendationLocked()
	w.mu.Unlock()
	return w
}

// Subscribe registers an observer and immediately delivers the current snapshot.
func (w *Workflow) Subscribe(obs Observer) {
	w.mu.Lock()
	w.observers = append(w.observers, obs)
	snap := w.snapshotLocked()
	w.mu.Unlock()
	obs(snap)
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.snapshotLocked()
}

// mutate applies fn under the lock and then notifies observers.
func (w *Workflow) mutate(fn func()) {
	w.mu.Lock()
	fn()
	w.unlockAndNotify()
}

func (w *Workflow) unlockAndNotify() {
	snap := w.snapshotLocked()
	observers := append([]Observer(nil), w.observers...)
	w.mu.Unlock()
	for _, obs := range observers {
		obs(snap)
	}
}

func (w *Workflow) SetCarbText(text string) {
	w.mutate(func() {
		w.carbText = text
		w.carbs = ParseQuantity(text, models.Gram)
		w.updateRecommendationLocked()
	})
}

func (w *Workflow) SetGlucoseText(text string) {
	w.mutate(func() {
		w.glucoseText = text
		w.glucose = ParseQuantity(text, w.delegate.PreferredGlucoseUnit())
		w.evaluateNoticeLocked()
		w.updateRecommendationLocked()
	})
}

// SetBolusText never triggers a recommendation, so a manual override stays put.
func (w *Workflow) SetBolusText(text string) {
	w.mutate(func() {
		w.setBolusTextLocked(text)
	})
}

// RestoreCarbEntry refills the carb field from a previously started entry.
func (w *Workflow) RestoreCarbEntry(q models.Quantity) {
	grams, err := q.In(models.Gram)
	if err != nil {
		w.logger.Warn("Ignoring restored carb entry", zap.Stringer("quantity", q), zap.Error(err))
		return
	}
	w.SetCarbText(formatAmount(grams))
}

// UpdateRecommendation recomputes the suggested dose from the current entries.
func (w *Workflow) UpdateRecommendation() {
	w.mutate(w.updateRecommendationLocked)
}

func (w *Workflow) ActiveAlert() AlertKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.alert.active
}

// DismissAlert acknowledges the active alert so a new one can be raised.
func (w *Workflow) DismissAlert() {
	w.mutate(w.alert.clear)
}

func (w *Workflow) ActiveNotice() NoticeKind {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.notice
}

func (w *Workflow) ActionButtonAction() ActionButtonAction {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.actionLocked()
}

// MaximumBolusText renders the configured bolus limit for display.
func (w *Workflow) MaximumBolusText() string {
	return FormatDose(w.delegate.MaximumBolus())
}

// Close waits for background donations to finish.
func (w *Workflow) Close() {
	w.donations.Wait()
}

func (w *Workflow) setBolusTextLocked(text string) {
	w.bolusText = text
	w.bolus = ParseQuantity(text, models.InternationalUnit)
}

func (w *Workflow) updateRecommendationLocked() {
	w.recommendation = nil
	if w.carbs != nil || w.glucose != nil {
		if units, ok := w.delegate.ComputeSimpleBolusRecommendation(w.carbs, w.glucose); ok {
			w.recommendation = &units
		}
	}
	if w.recommendation != nil {
		text := FormatDose(*w.recommendation)
		w.recommendedText = text
		w.setBolusTextLocked(text)
		return
	}
	w.recommendedText = NoRecommendationText
	w.setBolusTextLocked(FormatDose(0))
}

func (w *Workflow) evaluateNoticeLocked() {
	w.notice = NoticeNone
	if w.glucose == nil {
		return
	}
	cmp, err := w.glucose.Compare(w.delegate.SuspendThreshold())
	if err != nil {
		w.logger.Warn("Cannot compare glucose with suspend threshold", zap.Error(err))
		return
	}
	if cmp < 0 {
		w.notice = NoticeGlucoseBelowSuspendThreshold
	}
}

func (w *Workflow) actionLocked() ActionButtonAction {
	return PlanAction(w.carbs != nil || w.glucose != nil, w.bolus != nil)
}

func (w *Workflow) snapshotLocked() Snapshot {
	snap := Snapshot{
		CarbText:         w.carbText,
		GlucoseText:      w.glucoseText,
		BolusText:        w.bolusText,
		GlucoseUnit:      w.delegate.PreferredGlucoseUnit(),
		RecommendedBolus: w.recommendedText,
		Alert:            w.alert.active,
		Notice:           w.notice,
		Action:           w.actionLocked(),
		State:            w.state,
	}
	if w.recommendation != nil {
		v := *w.recommendation
		snap.Recommendation = &v
	}
	return snap
}
