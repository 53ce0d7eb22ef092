package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

func TestCheckComplaintAction(t *testing.T) {
	tests := []struct {
		name     string
		role     entity.Role
		status   string
		action   ComplaintAction
		payload  ComplaintPayload
		want     string
		resolves bool
		kind     apperr.Kind
	}{
		{"assign pending", entity.RoleOfficer, entity.ComplaintPending, ComplaintAssign,
			ComplaintPayload{OfficerID: "officer-7"}, entity.ComplaintPending, false, ""},
		{"assign in progress", entity.RoleOfficer, entity.ComplaintInProgress, ComplaintAssign,
			ComplaintPayload{OfficerID: "officer-7"}, "", false, apperr.KindInvalidState},
		{"assign without officer", entity.RoleAdmin, entity.ComplaintPending, ComplaintAssign,
			ComplaintPayload{}, "", false, apperr.KindValidationFailed},
		{"citizen assigns", entity.RoleCitizen, entity.ComplaintPending, ComplaintAssign,
			ComplaintPayload{OfficerID: "officer-7"}, "", false, apperr.KindUnauthorized},
		{"start", entity.RoleOfficer, entity.ComplaintPending, ComplaintStart,
			ComplaintPayload{}, entity.ComplaintInProgress, false, ""},
		{"resolve pending", entity.RoleOfficer, entity.ComplaintPending, ComplaintResolve,
			ComplaintPayload{Resolution: "Payment re-issued"}, entity.ComplaintResolved, true, ""},
		{"reject in progress", entity.RoleAdmin, entity.ComplaintInProgress, ComplaintReject,
			ComplaintPayload{Resolution: "Duplicate report"}, entity.ComplaintRejected, true, ""},
		{"resolve without text", entity.RoleOfficer, entity.ComplaintInProgress, ComplaintResolve,
			ComplaintPayload{Resolution: "  "}, "", false, apperr.KindValidationFailed},
		{"citizen resolves", entity.RoleCitizen, entity.ComplaintPending, ComplaintResolve,
			ComplaintPayload{Resolution: "done"}, "", false, apperr.KindUnauthorized},
		{"resolve terminal", entity.RoleOfficer, entity.ComplaintResolved, ComplaintReject,
			ComplaintPayload{Resolution: "late"}, "", false, apperr.KindInvalidTransition},
		{"start twice", entity.RoleOfficer, entity.ComplaintInProgress, ComplaintStart,
			ComplaintPayload{}, "", false, apperr.KindInvalidTransition},
		{"unknown action", entity.RoleOfficer, entity.ComplaintPending, "escalate",
			ComplaintPayload{}, "", false, apperr.KindInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := CheckComplaintAction(tt.role, tt.status, tt.action, tt.payload)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
			assert.Equal(t, tt.want, out.Status)
			assert.Equal(t, tt.resolves, out.Resolves)
		})
	}
}

func TestCheckComplaintEdit(t *testing.T) {
	assert.NoError(t, CheckComplaintEdit(entity.RoleCitizen, true, entity.ComplaintPending))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(CheckComplaintEdit(entity.RoleCitizen, true, entity.ComplaintInProgress)))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(CheckComplaintEdit(entity.RoleCitizen, false, entity.ComplaintPending)))
	assert.NoError(t, CheckComplaintEdit(entity.RoleOfficer, false, entity.ComplaintResolved))
}

func TestCheckComplaintDelete(t *testing.T) {
	assert.NoError(t, CheckComplaintDelete(entity.RoleCitizen, true))
	assert.NoError(t, CheckComplaintDelete(entity.RoleAdmin, false))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(CheckComplaintDelete(entity.RoleCitizen, false)))
}
