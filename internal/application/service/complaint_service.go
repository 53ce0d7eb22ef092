package service

import (
	"context"
	"fmt"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/attachment"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
	"github.com/garyjia/benefits-portal/internal/domain/lifecycle"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
)

// ComplaintWorkflow covers complaint submission, assignment and resolution
type ComplaintWorkflow interface {
	SubmitComplaint(ctx context.Context, actor entity.Actor, fields entity.ComplaintFields, attachments []entity.AttachmentRef) (*ComplaintResult, error)
	TransitionComplaint(ctx context.Context, actor entity.Actor, complaintID int64, action lifecycle.ComplaintAction, payload lifecycle.ComplaintPayload) (string, error)
	UpdateComplaint(ctx context.Context, actor entity.Actor, complaintID int64, fields entity.ComplaintFields, attachments []entity.AttachmentRef) (*ComplaintResult, error)
	DeleteComplaint(ctx context.Context, actor entity.Actor, complaintID int64) error
	GetComplaint(ctx context.Context, actor entity.Actor, complaintID int64) (*entity.Complaint, error)
}

// ComplaintResult is a complaint together with the refused attachments
type ComplaintResult struct {
	Complaint *entity.Complaint      `json:"complaint"`
	Rejected  []attachment.Rejection `json:"rejected_attachments,omitempty"`
}

// SubmitComplaint creates a pending complaint with a fresh code
func (s *workflowServiceImpl) SubmitComplaint(ctx context.Context, actor entity.Actor, fields entity.ComplaintFields, attachments []entity.AttachmentRef) (*ComplaintResult, error) {
	const op = "submit_complaint"

	if err := validation.ValidateComplaint(&fields); err != nil {
		return nil, s.fail(op, err, "citizen_id", actor.ID)
	}
	if actor.Role != entity.RoleCitizen || actor.ID == "" {
		return nil, s.fail(op, apperr.Unauthorized("only citizens submit complaints"))
	}
	if err := s.checkLinkedApplication(ctx, actor, fields.ApplicationID); err != nil {
		return nil, s.fail(op, err)
	}

	accepted, rejected, err := s.resolveAttachments(ctx, attachments)
	if err != nil {
		return nil, s.fail(op, err, "citizen_id", actor.ID)
	}
	now := s.clock.Now()
	c := &entity.Complaint{
		Code:          s.codes.ComplaintCode(),
		CitizenID:     actor.ID,
		ApplicationID: fields.ApplicationID,
		Title:         fields.Title,
		Description:   fields.Description,
		Attachments:   attachment.Merge(nil, accepted),
		Status:        entity.ComplaintPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.complaints.Create(txCtx, c); err != nil {
			return fmt.Errorf("create complaint: %w", err)
		}
		return s.recordHistory(txCtx, actor, entity.EntityComplaint, c.ID, "", c.Status, "submit", "")
	})
	if err != nil {
		return nil, s.fail(op, err, "citizen_id", actor.ID)
	}

	s.metrics.TransitionApplied(entity.EntityComplaint, "", c.Status)
	s.notify(ctx, event.TypeComplaintSubmitted, entity.EntityComplaint, c.ID, actor, map[string]interface{}{"code": c.Code})
	s.logger.Info("Complaint submitted", "complaint_id", c.ID, "code", c.Code, "citizen_id", actor.ID)

	return &ComplaintResult{Complaint: c, Rejected: rejected}, nil
}

// checkLinkedApplication requires a referenced application to exist and to
// belong to the complaining citizen
func (s *workflowServiceImpl) checkLinkedApplication(ctx context.Context, actor entity.Actor, applicationID *int64) error {
	if applicationID == nil {
		return nil
	}
	app, err := s.apps.Get(ctx, *applicationID)
	if err != nil {
		if apperr.KindOf(translate(err, "", 0)) == apperr.KindNotFound {
			return apperr.Validation(apperr.FieldError{Field: "application_id", Message: "application does not exist"})
		}
		return fmt.Errorf("load linked application: %w", err)
	}
	if actor.Role == entity.RoleCitizen && app.CitizenID != actor.ID {
		return apperr.Unauthorized("application %d belongs to another citizen", *applicationID)
	}
	return nil
}

// TransitionComplaint applies an officer action
func (s *workflowServiceImpl) TransitionComplaint(ctx context.Context, actor entity.Actor, complaintID int64, action lifecycle.ComplaintAction, payload lifecycle.ComplaintPayload) (string, error) {
	const op = "transition_complaint"

	c, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return "", s.fail(op, translate(err, entity.EntityComplaint, complaintID))
	}

	from := c.Status
	outcome, err := lifecycle.CheckComplaintAction(callerRole(actor), from, action, payload)
	if err != nil {
		return "", s.fail(op, err, "complaint_id", complaintID, "action", action)
	}

	now := s.clock.Now()
	note := ""
	if action == lifecycle.ComplaintAssign {
		c.AssignedOfficerID = payload.OfficerID
		note = payload.OfficerID
	}
	if outcome.Resolves {
		c.Resolution = payload.Resolution
		c.ResolvedBy = actor.ID
		c.ResolvedAt = &now
		note = payload.Resolution
	}
	c.Status = outcome.Status
	c.UpdatedAt = now

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.complaints.Save(txCtx, c, from); err != nil {
			return translate(err, entity.EntityComplaint, complaintID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityComplaint, c.ID, from, c.Status, string(action), note)
	})
	if err != nil {
		return "", s.fail(op, err, "complaint_id", complaintID)
	}

	evtType := event.TypeComplaintStatusChanged
	if action == lifecycle.ComplaintAssign {
		evtType = event.TypeComplaintAssigned
	} else {
		s.metrics.TransitionApplied(entity.EntityComplaint, from, c.Status)
	}
	s.notify(ctx, evtType, entity.EntityComplaint, c.ID, actor, map[string]interface{}{
		"code":   c.Code,
		"action": string(action),
		"from":   from,
		"to":     c.Status,
	})
	s.logger.Info("Complaint transitioned", "complaint_id", c.ID, "action", action, "from", from, "to", c.Status, "actor_id", actor.ID)

	return c.Status, nil
}

// UpdateComplaint replaces title, description and merges attachments
func (s *workflowServiceImpl) UpdateComplaint(ctx context.Context, actor entity.Actor, complaintID int64, fields entity.ComplaintFields, attachments []entity.AttachmentRef) (*ComplaintResult, error) {
	const op = "update_complaint"

	c, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, s.fail(op, translate(err, entity.EntityComplaint, complaintID))
	}
	if err := lifecycle.CheckComplaintEdit(callerRole(actor), c.CitizenID == actor.ID, c.Status); err != nil {
		return nil, s.fail(op, err, "complaint_id", complaintID)
	}
	if fields.ApplicationID == nil {
		fields.ApplicationID = c.ApplicationID
	}
	if err := validation.ValidateComplaint(&fields); err != nil {
		return nil, s.fail(op, err, "complaint_id", complaintID)
	}
	if err := s.checkLinkedApplication(ctx, actor, fields.ApplicationID); err != nil {
		return nil, s.fail(op, err)
	}

	accepted, rejected, err := s.resolveAttachments(ctx, attachments)
	if err != nil {
		return nil, s.fail(op, err, "complaint_id", complaintID)
	}
	c.Title = fields.Title
	c.Description = fields.Description
	c.ApplicationID = fields.ApplicationID
	c.Attachments = attachment.Merge(c.Attachments, accepted)
	c.UpdatedAt = s.clock.Now()

	if err := s.complaints.Save(ctx, c, c.Status); err != nil {
		return nil, s.fail(op, translate(err, entity.EntityComplaint, complaintID))
	}

	s.logger.Info("Complaint updated", "complaint_id", c.ID, "actor_id", actor.ID)
	return &ComplaintResult{Complaint: c, Rejected: rejected}, nil
}

// DeleteComplaint removes a complaint in any status
func (s *workflowServiceImpl) DeleteComplaint(ctx context.Context, actor entity.Actor, complaintID int64) error {
	const op = "delete_complaint"

	c, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return s.fail(op, translate(err, entity.EntityComplaint, complaintID))
	}
	if err := lifecycle.CheckComplaintDelete(callerRole(actor), c.CitizenID == actor.ID); err != nil {
		return s.fail(op, err, "complaint_id", complaintID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.complaints.Delete(txCtx, complaintID); err != nil {
			return translate(err, entity.EntityComplaint, complaintID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityComplaint, complaintID, c.Status, "", "delete", "")
	})
	if err != nil {
		return s.fail(op, err, "complaint_id", complaintID)
	}

	s.removeBlobs(ctx, c.Attachments)
	s.logger.Info("Complaint deleted", "complaint_id", complaintID, "actor_id", actor.ID)
	return nil
}

// GetComplaint returns a complaint the actor may see
func (s *workflowServiceImpl) GetComplaint(ctx context.Context, actor entity.Actor, complaintID int64) (*entity.Complaint, error) {
	if err := requireKnownActor(actor); err != nil {
		return nil, s.fail("get_complaint", err)
	}

	c, err := s.complaints.Get(ctx, complaintID)
	if err != nil {
		return nil, s.fail("get_complaint", translate(err, entity.EntityComplaint, complaintID))
	}
	if !actor.Role.IsStaff() && c.CitizenID != actor.ID {
		return nil, s.fail("get_complaint", apperr.Unauthorized("complaint %d belongs to another citizen", complaintID))
	}
	return c, nil
}
