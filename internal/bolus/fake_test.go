// internal/bolus/fake_test.go
package bolus

import (
	"context"
	"errors"
	"sync"
	"time"

	"mcp-simple-bolus/internal/models"
)

type enactCall struct {
	units float64
	at    time.Time
}

type fakeDelegate struct {
	mu sync.Mutex

	unit         models.Unit
	maxBolus     float64
	threshold    models.Quantity
	recommend    func(carbs, glucose *models.Quantity) (float64, bool)
	glucoseErr   error
	carbErr      error
	recommendN   int
	glucoseCalls [][]models.GlucoseSample
	carbCalls    []models.CarbEntry
	enactCalls   []enactCall
}

func newFakeDelegate() *fakeDelegate {
	return &fakeDelegate{
		unit:      models.MilligramsPerDeciliter,
		maxBolus:  10,
		threshold: models.NewQuantity(80, models.MilligramsPerDeciliter),
	}
}

func (f *fakeDelegate) AddGlucose(_ context.Context, samples []models.GlucoseSample) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.glucoseCalls = append(f.glucoseCalls, samples)
	return f.glucoseErr
}

func (f *fakeDelegate) AddCarbEntry(_ context.Context, entry models.CarbEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carbCalls = append(f.carbCalls, entry)
	return f.carbErr
}

func (f *fakeDelegate) EnactBolus(units float64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enactCalls = append(f.enactCalls, enactCall{units: units, at: at})
}

func (f *fakeDelegate) ComputeSimpleBolusRecommendation(carbs, glucose *models.Quantity) (float64, bool) {
	f.recommendN++
	if f.recommend == nil {
		return 0, false
	}
	return f.recommend(carbs, glucose)
}

func (f *fakeDelegate) PreferredGlucoseUnit() models.Unit { return f.unit }
func (f *fakeDelegate) MaximumBolus() float64 { return f.maxBolus }
func (f *fakeDelegate) SuspendThreshold() models.Quantity { return f.threshold }

func (f *fakeDelegate) sideEffects() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.glucoseCalls) + len(f.carbCalls) + len(f.enactCalls)
}

type fakeAuth struct {
	err      error
	messages []string
}

func (a *fakeAuth) Authenticate(_ context.Context, message string) error {
	a.messages = append(a.messages, message)
	return a.err
}

type fakeDonor struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (d *fakeDonor) DonateCarbEntry(context.Context, models.CarbEntry) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls++
	return d.err
}

var errStore = errors.New("store unavailable")
