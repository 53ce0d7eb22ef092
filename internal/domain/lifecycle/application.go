// Package lifecycle holds the state tables of applications, payout batches
// and complaints, together with the role and payload guards of every edge.
package lifecycle

import (
	"github.com/shopspring/decimal"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

// Application triggers
const (
	TriggerSubmit         workflow.Trigger = "submit"
	TriggerStartReview    workflow.Trigger = "start_review"
	TriggerApprove        workflow.Trigger = "approve"
	TriggerReject         workflow.Trigger = "reject"
	TriggerRequestInfo    workflow.Trigger = "request_info"
	TriggerResubmit       workflow.Trigger = "resubmit"
	TriggerEnqueuePayment workflow.Trigger = "enqueue_payment"
	TriggerMarkPaid       workflow.Trigger = "mark_paid"
	TriggerClose          workflow.Trigger = "close"
)

var applicationStates = workflow.NewStateSet(
	entity.ApplicationDraft,
	entity.ApplicationPending,
	entity.ApplicationUnderReview,
	entity.ApplicationApproved,
	entity.ApplicationRejected,
	entity.ApplicationAdditionalInfoRequired,
	entity.ApplicationPendingPayment,
	entity.ApplicationPaid,
	entity.ApplicationClosed,
)

// applicationRoles lists who may fire each trigger. Ownership of citizen
// triggers is checked by the caller, which knows the record.
var applicationRoles = map[workflow.Trigger][]entity.Role{
	TriggerSubmit:         {entity.RoleCitizen},
	TriggerResubmit:       {entity.RoleCitizen},
	TriggerStartReview:    {entity.RoleOfficer, entity.RoleAdmin},
	TriggerApprove:        {entity.RoleOfficer, entity.RoleAdmin},
	TriggerReject:         {entity.RoleOfficer, entity.RoleAdmin},
	TriggerRequestInfo:    {entity.RoleOfficer, entity.RoleAdmin},
	TriggerEnqueuePayment: {entity.RoleSystem},
	TriggerMarkPaid:       {entity.RoleSystem},
	TriggerClose:          {entity.RoleAdmin},
}

var applicationBuilder = buildApplicationTable()

func buildApplicationTable() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(applicationStates)

	b.Configure(entity.ApplicationDraft).
		Permit(TriggerSubmit, entity.ApplicationPending)

	b.Configure(entity.ApplicationPending).
		Permit(TriggerStartReview, entity.ApplicationUnderReview)

	b.Configure(entity.ApplicationUnderReview).
		Permit(TriggerApprove, entity.ApplicationApproved).
		Permit(TriggerReject, entity.ApplicationRejected).
		Permit(TriggerRequestInfo, entity.ApplicationAdditionalInfoRequired)

	b.Configure(entity.ApplicationAdditionalInfoRequired).
		Permit(TriggerResubmit, entity.ApplicationPending)

	b.Configure(entity.ApplicationApproved).
		Permit(TriggerEnqueuePayment, entity.ApplicationPendingPayment)

	b.Configure(entity.ApplicationPendingPayment).
		Permit(TriggerMarkPaid, entity.ApplicationPaid)

	// Administrative close from everywhere except closed itself
	for s := range applicationStates {
		if s != entity.ApplicationClosed {
			b.Configure(s).Permit(TriggerClose, entity.ApplicationClosed)
		}
	}

	return b
}

// ApplicationMachine builds a machine positioned at the given status
func ApplicationMachine(status string) (workflow.StateMachine, error) {
	return applicationBuilder.Build(workflow.State(status))
}

// TransitionPayload carries the edge-specific input of a transition
type TransitionPayload struct {
	// ApprovedAmount may be nil on approve, meaning the program default
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	Notes           string           `json:"notes,omitempty"`

	// Fields are the subject fields checked by submit and resubmit
	Fields *entity.ApplicationFields `json:"fields,omitempty"`
}

// CheckApplicationTransition resolves the edge from -> to and runs its guards
// in order: the edge must exist, the payload must be complete, then the role
// must be permitted. The persisted-status check belongs to the caller.
func CheckApplicationTransition(role entity.Role, from, to string, p TransitionPayload) (workflow.Trigger, error) {
	machine, err := ApplicationMachine(from)
	if err != nil {
		return "", apperr.InvalidTransition("unknown application status %q", from)
	}

	trigger, ok := machine.EdgeTo(workflow.State(to))
	if !ok {
		return "", apperr.InvalidTransition("application cannot move from %s to %s", from, to)
	}

	if err := checkApplicationPayload(trigger, p); err != nil {
		return trigger, err
	}

	if !roleAllowed(applicationRoles[trigger], role) {
		return trigger, apperr.Unauthorized("role %s may not %s an application", role, trigger)
	}

	return trigger, nil
}

func checkApplicationPayload(trigger workflow.Trigger, p TransitionPayload) error {
	var c apperr.Collector

	switch trigger {
	case TriggerSubmit, TriggerResubmit:
		if p.Fields == nil {
			c.Add("fields", "is required")
			break
		}
		c.Merge(apperr.FieldsOf(validation.ValidateForSubmission(p.Fields)))
	case TriggerApprove:
		if p.ApprovedAmount != nil && !p.ApprovedAmount.IsPositive() {
			c.Add("approved_amount", "must be greater than zero when given")
		}
	case TriggerReject:
		c.Require("rejection_reason", p.RejectionReason)
	case TriggerRequestInfo:
		c.Require("notes", p.Notes)
	}

	return c.Err()
}

func roleAllowed(allowed []entity.Role, role entity.Role) bool {
	for _, r := range allowed {
		if r == role {
			return true
		}
	}
	return false
}

// CheckApplicationDelete permits deletion only in draft or rejected
func CheckApplicationDelete(status string) error {
	if status == entity.ApplicationDraft || status == entity.ApplicationRejected {
		return nil
	}
	return apperr.InvalidState("application in status %s cannot be deleted", status)
}

var citizenEditable = map[string]bool{
	entity.ApplicationDraft:                  true,
	entity.ApplicationPending:                true,
	entity.ApplicationAdditionalInfoRequired: true,
}

// CheckApplicationEdit decides whether an actor may change the subject fields.
// Nobody edits a paid or closed application; citizens edit their own record
// only while it is draft, pending or waiting for more information.
func CheckApplicationEdit(role entity.Role, isOwner bool, status string) error {
	if status == entity.ApplicationPaid || status == entity.ApplicationClosed {
		return apperr.InvalidState("application in status %s is locked", status)
	}

	switch {
	case role == entity.RoleCitizen:
		if !isOwner {
			return apperr.Unauthorized("citizens may only edit their own applications")
		}
		if !citizenEditable[status] {
			return apperr.InvalidState("application in status %s cannot be edited by the citizen", status)
		}
		return nil
	case role.IsStaff():
		return nil
	default:
		return apperr.Unauthorized("role %s may not edit applications", role)
	}
}

// IsApplicationStatus returns true for a known application status
func IsApplicationStatus(status string) bool {
	return applicationStates.Contains(workflow.State(status))
}
