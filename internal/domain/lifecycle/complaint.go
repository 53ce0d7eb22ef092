package lifecycle

import (
	"context"
	"strings"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

// ComplaintAction is an officer action on a complaint
type ComplaintAction string

const (
	ComplaintAssign  ComplaintAction = "assign"
	ComplaintStart   ComplaintAction = "start"
	ComplaintResolve ComplaintAction = "resolve"
	ComplaintReject  ComplaintAction = "reject"
)

var complaintStates = workflow.NewStateSet(
	entity.ComplaintPending,
	entity.ComplaintInProgress,
	entity.ComplaintResolved,
	entity.ComplaintRejected,
)

var complaintBuilder = buildComplaintTable()

func buildComplaintTable() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(complaintStates)

	b.Configure(entity.ComplaintPending).
		Permit(workflow.Trigger(ComplaintStart), entity.ComplaintInProgress).
		Permit(workflow.Trigger(ComplaintResolve), entity.ComplaintResolved).
		Permit(workflow.Trigger(ComplaintReject), entity.ComplaintRejected)

	b.Configure(entity.ComplaintInProgress).
		Permit(workflow.Trigger(ComplaintResolve), entity.ComplaintResolved).
		Permit(workflow.Trigger(ComplaintReject), entity.ComplaintRejected)

	// RESOLVED and REJECTED are terminal

	return b
}

// ComplaintPayload carries the action-specific input
type ComplaintPayload struct {
	OfficerID  string `json:"officer_id,omitempty"`
	Resolution string `json:"resolution,omitempty"`
}

// ComplaintOutcome is the result of a permitted complaint action
type ComplaintOutcome struct {
	Status string

	// Resolves is true when the action sets the resolution and resolved_at
	Resolves bool
}

// CheckComplaintAction validates an action against the complaint status. The
// action must exist for the current status, the payload must be complete, and
// the role must be officer or admin. Assignment keeps the status unchanged.
func CheckComplaintAction(role entity.Role, status string, action ComplaintAction, p ComplaintPayload) (ComplaintOutcome, error) {
	if action == ComplaintAssign {
		if status != entity.ComplaintPending {
			return ComplaintOutcome{}, apperr.InvalidState("complaint can only be assigned while pending, it is %s", status)
		}
		var c apperr.Collector
		c.Require("officer_id", p.OfficerID)
		if err := c.Err(); err != nil {
			return ComplaintOutcome{}, err
		}
		if !role.IsStaff() {
			return ComplaintOutcome{}, apperr.Unauthorized("role %s may not assign complaints", role)
		}
		return ComplaintOutcome{Status: status}, nil
	}

	machine, err := complaintBuilder.Build(workflow.State(status))
	if err != nil {
		return ComplaintOutcome{}, apperr.InvalidTransition("unknown complaint status %q", status)
	}

	trigger := workflow.Trigger(action)
	if !machine.CanFire(trigger) {
		return ComplaintOutcome{}, apperr.InvalidTransition("complaint in status %s cannot %s", status, action)
	}

	resolves := action == ComplaintResolve || action == ComplaintReject
	if resolves && strings.TrimSpace(p.Resolution) == "" {
		return ComplaintOutcome{}, apperr.Validation(apperr.FieldError{Field: "resolution", Message: "is required"})
	}

	if !role.IsStaff() {
		return ComplaintOutcome{}, apperr.Unauthorized("role %s may not %s complaints", role, action)
	}

	if err := machine.Fire(context.Background(), trigger); err != nil {
		return ComplaintOutcome{}, apperr.InvalidTransition("%v", err)
	}
	return ComplaintOutcome{Status: string(machine.State()), Resolves: resolves}, nil
}

// CheckComplaintEdit permits citizens to edit their own complaint while it is
// pending; officers and admins may edit in any status.
func CheckComplaintEdit(role entity.Role, isOwner bool, status string) error {
	switch {
	case role.IsStaff():
		return nil
	case role == entity.RoleCitizen:
		if !isOwner {
			return apperr.Unauthorized("citizens may only edit their own complaints")
		}
		if status != entity.ComplaintPending {
			return apperr.InvalidState("complaint in status %s can no longer be edited", status)
		}
		return nil
	default:
		return apperr.Unauthorized("role %s may not edit complaints", role)
	}
}

// CheckComplaintDelete permits deletion in any status; citizens may only
// delete their own complaints.
func CheckComplaintDelete(role entity.Role, isOwner bool) error {
	switch {
	case role.IsStaff():
		return nil
	case role == entity.RoleCitizen && isOwner:
		return nil
	default:
		return apperr.Unauthorized("role %s may not delete this complaint", role)
	}
}
