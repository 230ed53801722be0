// internal/bolus/alert.go
package bolus

type AlertKind string

const (
	AlertNone                      AlertKind = ""
	AlertMaxBolusExceeded          AlertKind = "max_bolus_exceeded"
	AlertGlucoseOutOfRange         AlertKind = "glucose_out_of_range"
	AlertCarbTooLarge              AlertKind = "carb_too_large"
	AlertGlucosePersistenceFailure AlertKind = "glucose_persistence_failure"
	AlertCarbPersistenceFailure    AlertKind = "carb_persistence_failure"
)

type NoticeKind string

const (
	NoticeNone                         NoticeKind = ""
	NoticeGlucoseBelowSuspendThreshold NoticeKind = "glucose_below_suspend_threshold"
)

// alertSlot holds at most one alert. Raising while occupied is dropped, not
// queued; the slot must be cleared before another alert can show.
type alertSlot struct {
	active AlertKind
}

func (s *alertSlot) raise(kind AlertKind) bool {
	if s.active != AlertNone {
		return false
	}
	s.active = kind
	return true
}

func (s *alertSlot) clear() {
	s.active = AlertNone
}
