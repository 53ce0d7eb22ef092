// Package validation holds the submission gates: the five-step citizen
// wizard, the submit-time gate and the stricter officer edit gate.
package validation

import (
	"fmt"
	"strings"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

// Step is a page of the citizen submission wizard
type Step int

const (
	StepPersonal       Step = 1
	StepAddress        Step = 2
	StepHousehold      Step = 3
	StepProgramPayment Step = 4
	StepDocuments      Step = 5

	FirstStep = StepPersonal
	LastStep  = StepDocuments
)

// IsValid returns true for steps 1 to 5
func (s Step) IsValid() bool {
	return s >= FirstStep && s <= LastStep
}

// String returns the step name
func (s Step) String() string {
	switch s {
	case StepPersonal:
		return "personal"
	case StepAddress:
		return "address"
	case StepHousehold:
		return "household"
	case StepProgramPayment:
		return "program_payment"
	case StepDocuments:
		return "documents"
	default:
		return fmt.Sprintf("step(%d)", int(s))
	}
}

// ValidateStep returns every failing field of the step's predicate.
// An empty result means the step is complete.
func ValidateStep(step Step, f *entity.ApplicationFields) []apperr.FieldError {
	var c apperr.Collector

	switch step {
	case StepPersonal:
		c.Require("date_of_birth", f.DateOfBirth)
		c.Require("gender", f.Gender)
	case StepAddress:
		c.Require("district", f.District)
	case StepHousehold:
		if f.HouseholdSize < 1 {
			c.Add("household_size", "must be at least 1")
		}
		c.Require("housing_condition", f.HousingCondition)
		if len(f.Members) == 0 {
			c.Add("members", "at least one household member is required")
		}
	case StepProgramPayment:
		c.Require("program_id", f.ProgramID)
		c.Require("payment_schedule", f.PaymentSchedule)
		c.Require("payment_method", f.PaymentMethod)
		c.Merge(ValidateBankDetails(f))
	case StepDocuments:
		// Attachments and notes are optional
	default:
		c.Add("step", fmt.Sprintf("unknown step %d", int(step)))
	}

	return c.Fields()
}

// StepComplete reports whether the step's predicate holds
func StepComplete(step Step, f *entity.ApplicationFields) bool {
	return len(ValidateStep(step, f)) == 0
}

// ValidateBankDetails requires holder, number and bank name when the payment
// method is a bank transfer.
func ValidateBankDetails(f *entity.ApplicationFields) []apperr.FieldError {
	if !f.UsesBankTransfer() {
		return nil
	}

	var c apperr.Collector
	c.Require("bank_account_holder", f.BankAccountHolder)
	c.Require("bank_account_number", f.BankAccountNumber)
	c.Require("bank_name", f.BankName)
	return c.Fields()
}

// ValidateForSubmission runs the predicates of steps 1 to 4 and returns every
// failure in one error. It never trusts that the caller validated already.
func ValidateForSubmission(f *entity.ApplicationFields) error {
	var c apperr.Collector
	for step := FirstStep; step < LastStep; step++ {
		c.Merge(ValidateStep(step, f))
	}
	return c.Err()
}

func isBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
