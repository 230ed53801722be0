// internal/models/entries.go
package models

import (
	"time"
)

// GlucoseSample is a single blood glucose reading to be persisted.
type GlucoseSample struct {
	Date           time.Time `json:"date"`
	Quantity       Quantity  `json:"quantity"`
	IsDisplayOnly  bool      `json:"is_display_only"`
	WasUserEntered bool      `json:"was_user_entered"`
	SyncIdentifier string    `json:"sync_identifier"`
}

type CarbEntry struct {
	ID             int64          `json:"id,omitempty"`
	Date           time.Time      `json:"date"`
	Quantity       Quantity       `json:"quantity"`
	StartDate      time.Time      `json:"start_date"`
	FoodType       string         `json:"food_type,omitempty"`
	AbsorptionTime *time.Duration `json:"absorption_time,omitempty"`
}

// DoseEntry records a bolus handed to the delivery layer.
type DoseEntry struct {
	ID        int64     `json:"id,omitempty"`
	Units     float64   `json:"units"`
	StartDate time.Time `json:"start_date"`
	Source    string    `json:"source"` // "simple_bolus"
}

// Workflow limits shared by the bolus workflow and its callers.
var (
	ValidManualGlucoseEntryRange = GlucoseRange{
		Min: NewQuantity(10, MilligramsPerDeciliter),
		Max: NewQuantity(600, MilligramsPerDeciliter),
	}
	MaxCarbEntryQuantity = NewQuantity(250, Gram)
)
