// internal/bolus/delegate.go
package bolus

import (
	"context"
	"time"

	"mcp-simple-bolus/internal/models"
)

// Delegate is the workflow's gateway to persistence, dose delivery and
// dosing configuration. Read-only methods are called while the workflow
// holds its state lock and must not call back into the workflow.
type Delegate interface {
	AddGlucose(ctx context.Context, samples []models.GlucoseSample) error
	AddCarbEntry(ctx context.Context, entry models.CarbEntry) error

	// EnactBolus hands a bolus to the delivery layer. It must not block;
	// the workflow does not wait for or inspect the outcome.
	EnactBolus(units float64, at time.Time)

	// ComputeSimpleBolusRecommendation returns a dose in units, or false
	// when no recommendation can be made.
	ComputeSimpleBolusRecommendation(carbs, glucose *models.Quantity) (float64, bool)

	PreferredGlucoseUnit() models.Unit
	MaximumBolus() float64
	SuspendThreshold() models.Quantity
}

// Authenticator confirms a bolus with the user. A nil error means the user
// explicitly approved; anything else, including a cancelled context, is
// treated as abandonment.
type Authenticator interface {
	Authenticate(ctx context.Context, message string) error
}

// Donor receives best-effort notice of saved carb entries.
type Donor interface {
	DonateCarbEntry(ctx context.Context, entry models.CarbEntry) error
}
