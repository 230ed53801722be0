// internal/bolus/action.go
package bolus

// ActionButtonAction labels what submitting the current entries will do.
type ActionButtonAction string

const (
	ActionSaveWithoutBolusing ActionButtonAction = "save_without_bolusing"
	ActionSaveAndDeliver      ActionButtonAction = "save_and_deliver"
	ActionEnterBolus          ActionButtonAction = "enter_bolus"
	ActionDeliver             ActionButtonAction = "deliver"
)

// PlanAction classifies entries for labelling only. It never gates delivery.
func PlanAction(hasDataToSave, hasBolusReady bool) ActionButtonAction {
	switch {
	case hasDataToSave && hasBolusReady:
		return ActionSaveAndDeliver
	case hasDataToSave:
		return ActionSaveWithoutBolusing
	case hasBolusReady:
		return ActionDeliver
	default:
		return ActionEnterBolus
	}
}
