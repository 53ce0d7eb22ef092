package validation

import (
	"fmt"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

// Intent is how a submit request was produced
type Intent string

const (
	// IntentExplicitSubmit is the dedicated submit action on the last step
	IntentExplicitSubmit Intent = "explicit_submit"

	// IntentFormEvent is a generic form submit, e.g. Enter pressed in a field
	IntentFormEvent Intent = "form_event"
)

// Navigate moves the wizard from one step to another. Going back is always
// allowed; going forward requires every step passed over to be complete.
func Navigate(from, to Step, f *entity.ApplicationFields) (Step, error) {
	if !from.IsValid() || !to.IsValid() {
		return from, apperr.Validation(apperr.FieldError{
			Field:   "step",
			Message: fmt.Sprintf("steps must be between %d and %d", FirstStep, LastStep),
		})
	}

	if to <= from {
		return to, nil
	}

	var c apperr.Collector
	for step := from; step < to; step++ {
		c.Merge(ValidateStep(step, f))
	}
	if err := c.Err(); err != nil {
		return from, err
	}

	return to, nil
}

// CheckSubmit decides whether a final submission may proceed: the wizard
// must be on the last step, the request must come from the explicit submit
// action, and the program & payment step must still hold at this moment.
func CheckSubmit(current Step, intent Intent, f *entity.ApplicationFields) error {
	var c apperr.Collector

	if current != LastStep {
		c.Add("step", fmt.Sprintf("submission is only possible from step %d", LastStep))
	}
	if intent != IntentExplicitSubmit {
		c.Add("intent", "submission requires the explicit submit action")
	}
	c.Merge(ValidateStep(StepProgramPayment, f))

	return c.Err()
}

// Wizard tracks the current step of one citizen's submission session
type Wizard struct {
	current Step
}

// NewWizard starts a wizard on the first step
func NewWizard() *Wizard {
	return &Wizard{current: FirstStep}
}

// Current returns the current step
func (w *Wizard) Current() Step {
	return w.current
}

// Next advances one step if the current step is complete
func (w *Wizard) Next(f *entity.ApplicationFields) error {
	if w.current == LastStep {
		return apperr.Validation(apperr.FieldError{Field: "step", Message: "already on the last step"})
	}
	step, err := Navigate(w.current, w.current+1, f)
	if err != nil {
		return err
	}
	w.current = step
	return nil
}

// Back moves one step back; it never fails
func (w *Wizard) Back() {
	if w.current > FirstStep {
		w.current--
	}
}

// Submit runs the submit gate for the current step
func (w *Wizard) Submit(intent Intent, f *entity.ApplicationFields) error {
	return CheckSubmit(w.current, intent, f)
}
