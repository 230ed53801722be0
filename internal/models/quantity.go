// internal/models/quantity.go
package models

import "fmt"

// Unit tags the dimension of a Quantity.
type Unit string

const (
	Gram                   Unit = "g"
	MilligramsPerDeciliter Unit = "mg/dL"
	MillimolesPerLiter     Unit = "mmol/L"
	InternationalUnit      Unit = "U"
)

// mg/dL per mmol/L for glucose.
const glucoseConversionFactor = 18.01559

type Quantity struct {
	Value float64 `json:"value"`
	Unit  Unit    `json:"unit"`
}

func NewQuantity(value float64, unit Unit) Quantity {
	return Quantity{Value: value, Unit: unit}
}

// IsGlucoseUnit reports whether u is one of the blood glucose concentration units.
func IsGlucoseUnit(u Unit) bool {
	return u == MilligramsPerDeciliter || u == MillimolesPerLiter
}

// ParseGlucoseUnit maps a configured glucose unit name onto a Unit.
func ParseGlucoseUnit(s string) (Unit, error) {
	switch s {
	case "mg/dL", "mg/dl", "mgdl":
		return MilligramsPerDeciliter, nil
	case "mmol/L", "mmol/l", "mmol":
		return MillimolesPerLiter, nil
	}
	return "", fmt.Errorf("unknown glucose unit %q", s)
}

// In converts q into unit. Only glucose units convert between each other;
// any other mismatch is an error.
func (q Quantity) In(unit Unit) (float64, error) {
	if q.Unit == unit {
		return q.Value, nil
	}
	if !IsGlucoseUnit(q.Unit) || !IsGlucoseUnit(unit) {
		return 0, fmt.Errorf("cannot convert %s to %s", q.Unit, unit)
	}
	if q.Unit == MillimolesPerLiter {
		return q.Value * glucoseConversionFactor, nil
	}
	return q.Value / glucoseConversionFactor, nil
}

// Compare returns -1, 0 or 1 as q is less than, equal to or greater than other,
// after converting other into q's unit.
func (q Quantity) Compare(other Quantity) (int, error) {
	v, err := other.In(q.Unit)
	if err != nil {
		return 0, err
	}
	switch {
	case q.Value < v:
		return -1, nil
	case q.Value > v:
		return 1, nil
	}
	return 0, nil
}

func (q Quantity) String() string {
	return fmt.Sprintf("%g %s", q.Value, q.Unit)
}

// GlucoseRange is an inclusive range of glucose concentrations.
type GlucoseRange struct {
	Min Quantity
	Max Quantity
}

func (r GlucoseRange) Contains(q Quantity) bool {
	lo, err := q.Compare(r.Min)
	if err != nil || lo < 0 {
		return false
	}
	hi, err := q.Compare(r.Max)
	if err != nil || hi > 0 {
		return false
	}
	return true
}
