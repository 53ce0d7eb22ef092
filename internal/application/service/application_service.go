package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefits-portal/internal/application/port"
	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/attachment"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
	"github.com/garyjia/benefits-portal/internal/domain/lifecycle"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

// ApplicationWorkflow covers the application lifecycle, the submission wizard
// and attachment admission
type ApplicationWorkflow interface {
	SaveDraft(ctx context.Context, actor entity.Actor, fields entity.ApplicationFields, attachments []entity.AttachmentRef) (*ApplicationResult, error)
	SubmitApplication(ctx context.Context, actor entity.Actor, fields entity.ApplicationFields, attachments []entity.AttachmentRef) (*ApplicationResult, error)
	TransitionApplication(ctx context.Context, actor entity.Actor, applicationID int64, fromStatus, toStatus string, payload lifecycle.TransitionPayload) (string, error)
	UpdateApplicationFields(ctx context.Context, actor entity.Actor, applicationID int64, expectedStatus string, fields entity.ApplicationFields) (*entity.Application, error)
	AddApplicationAttachments(ctx context.Context, actor entity.Actor, applicationID int64, refs []entity.AttachmentRef) (*ApplicationResult, error)
	DeleteApplication(ctx context.Context, actor entity.Actor, applicationID int64) error
	GetApplication(ctx context.Context, actor entity.Actor, applicationID int64) (*entity.Application, error)

	ValidateStep(step validation.Step, fields entity.ApplicationFields) []apperr.FieldError
	NavigateWizard(from, to validation.Step, fields entity.ApplicationFields) (validation.Step, error)
	CheckSubmit(step validation.Step, intent validation.Intent, fields entity.ApplicationFields) error

	ValidateAttachment(meta entity.AttachmentMeta) attachment.Decision
	UploadAttachment(ctx context.Context, actor entity.Actor, fileName, declaredMime string, content []byte) (*entity.AttachmentRef, error)
}

// ApplicationResult is an application together with the attachments refused
// while admitting the command's files
type ApplicationResult struct {
	Application *entity.Application    `json:"application"`
	Rejected    []attachment.Rejection `json:"rejected_attachments,omitempty"`
}

// ValidateStep reports every failing field of one wizard step
func (s *workflowServiceImpl) ValidateStep(step validation.Step, fields entity.ApplicationFields) []apperr.FieldError {
	return validation.ValidateStep(step, &fields)
}

// NavigateWizard moves between wizard steps
func (s *workflowServiceImpl) NavigateWizard(from, to validation.Step, fields entity.ApplicationFields) (validation.Step, error) {
	return validation.Navigate(from, to, &fields)
}

// CheckSubmit runs the submit-time gate
func (s *workflowServiceImpl) CheckSubmit(step validation.Step, intent validation.Intent, fields entity.ApplicationFields) error {
	return validation.CheckSubmit(step, intent, &fields)
}

// ValidateAttachment decides one file from its metadata
func (s *workflowServiceImpl) ValidateAttachment(meta entity.AttachmentMeta) attachment.Decision {
	return attachment.Validate(meta)
}

// SaveDraft stores an incomplete application owned by the citizen
func (s *workflowServiceImpl) SaveDraft(ctx context.Context, actor entity.Actor, fields entity.ApplicationFields, attachments []entity.AttachmentRef) (*ApplicationResult, error) {
	if actor.Role != entity.RoleCitizen || actor.ID == "" {
		return nil, s.fail("save_draft", apperr.Unauthorized("only citizens create applications"))
	}
	return s.createApplication(ctx, "save_draft", actor, fields, attachments, entity.ApplicationDraft)
}

// SubmitApplication validates every step and creates a pending application
// with a fresh code
func (s *workflowServiceImpl) SubmitApplication(ctx context.Context, actor entity.Actor, fields entity.ApplicationFields, attachments []entity.AttachmentRef) (*ApplicationResult, error) {
	fields.NormalizeBankFields()
	if err := validation.ValidateForSubmission(&fields); err != nil {
		return nil, s.fail("submit_application", err, "citizen_id", actor.ID)
	}
	if actor.Role != entity.RoleCitizen || actor.ID == "" {
		return nil, s.fail("submit_application", apperr.Unauthorized("only citizens submit applications"))
	}
	return s.createApplication(ctx, "submit_application", actor, fields, attachments, entity.ApplicationPending)
}

func (s *workflowServiceImpl) createApplication(ctx context.Context, op string, actor entity.Actor, fields entity.ApplicationFields, attachments []entity.AttachmentRef, status string) (*ApplicationResult, error) {
	fields.NormalizeBankFields()
	accepted, rejected, err := s.resolveAttachments(ctx, attachments)
	if err != nil {
		return nil, s.fail(op, err, "citizen_id", actor.ID)
	}

	now := s.clock.Now()
	app := &entity.Application{
		CitizenID:   actor.ID,
		Status:      status,
		Fields:      fields,
		Attachments: attachment.Merge(nil, accepted),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status == entity.ApplicationPending {
		app.Code = s.codes.ApplicationCode()
		app.SubmittedAt = &now
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.apps.Create(txCtx, app); err != nil {
			return fmt.Errorf("create application: %w", err)
		}
		return s.recordHistory(txCtx, actor, entity.EntityApplication, app.ID, "", status, op, "")
	})
	if err != nil {
		return nil, s.fail(op, err, "citizen_id", actor.ID)
	}

	s.metrics.TransitionApplied(entity.EntityApplication, "", status)
	if status == entity.ApplicationPending {
		s.notify(ctx, event.TypeApplicationSubmitted, entity.EntityApplication, app.ID, actor, map[string]interface{}{"code": app.Code})
	}
	s.logger.Info("Application created", "application_id", app.ID, "code", app.Code, "status", status, "citizen_id", actor.ID)

	return &ApplicationResult{Application: app, Rejected: rejected}, nil
}

// TransitionApplication moves an application along one edge of its table.
// The persisted status must equal fromStatus; the write itself is a
// compare-and-swap, so a concurrent change also ends in Conflict.
func (s *workflowServiceImpl) TransitionApplication(ctx context.Context, actor entity.Actor, applicationID int64, fromStatus, toStatus string, payload lifecycle.TransitionPayload) (string, error) {
	const op = "transition_application"

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return "", s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}
	if app.Status != fromStatus {
		return "", s.fail(op, apperr.Conflict("application %d is %s, not %s", applicationID, app.Status, fromStatus),
			"application_id", applicationID)
	}

	if payload.Fields == nil {
		current := app.Fields
		payload.Fields = &current
	}
	payload.Fields.NormalizeBankFields()

	trigger, err := lifecycle.CheckApplicationTransition(callerRole(actor), fromStatus, toStatus, payload)
	if err != nil {
		return "", s.fail(op, err, "application_id", applicationID, "actor_id", actor.ID, "from", fromStatus, "to", toStatus)
	}
	if actor.Role == entity.RoleCitizen && app.CitizenID != actor.ID {
		return "", s.fail(op, apperr.Unauthorized("application %d belongs to another citizen", applicationID))
	}

	if err := s.applyReview(ctx, app, trigger, actor, payload); err != nil {
		return "", s.fail(op, err, "application_id", applicationID)
	}
	app.Status = toStatus
	app.UpdatedAt = s.clock.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.apps.Save(txCtx, app, fromStatus); err != nil {
			return translate(err, entity.EntityApplication, applicationID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityApplication, app.ID, fromStatus, toStatus, string(trigger), transitionNote(trigger, payload))
	})
	if err != nil {
		return "", s.fail(op, err, "application_id", applicationID)
	}

	s.metrics.TransitionApplied(entity.EntityApplication, fromStatus, toStatus)
	s.notify(ctx, applicationEventType(trigger), entity.EntityApplication, app.ID, actor, map[string]interface{}{
		"code": app.Code,
		"from": fromStatus,
		"to":   toStatus,
	})
	s.logger.Info("Application transitioned",
		"application_id", app.ID,
		"actor_id", actor.ID,
		"trigger", trigger,
		"from", fromStatus,
		"to", toStatus,
	)

	return toStatus, nil
}

// applyReview copies the edge-specific payload onto the application
func (s *workflowServiceImpl) applyReview(ctx context.Context, app *entity.Application, trigger workflow.Trigger, actor entity.Actor, p lifecycle.TransitionPayload) error {
	now := s.clock.Now()

	switch trigger {
	case lifecycle.TriggerSubmit:
		app.Fields = *p.Fields
		if app.Code == "" {
			app.Code = s.codes.ApplicationCode()
		}
		app.SubmittedAt = &now
	case lifecycle.TriggerResubmit:
		app.Fields = *p.Fields
		app.SubmittedAt = &now
	case lifecycle.TriggerStartReview:
		app.ReviewedBy = actor.ID
	case lifecycle.TriggerApprove:
		amount, err := s.resolveApprovedAmount(ctx, app, p.ApprovedAmount)
		if err != nil {
			return err
		}
		app.ApprovedAmount = &amount
		app.ReviewedBy = actor.ID
		app.ReviewedAt = &now
	case lifecycle.TriggerReject:
		app.RejectionReason = p.RejectionReason
		app.ReviewedBy = actor.ID
		app.ReviewedAt = &now
	case lifecycle.TriggerRequestInfo:
		app.ReviewNotes = p.Notes
		app.ReviewedBy = actor.ID
		app.ReviewedAt = &now
	case lifecycle.TriggerMarkPaid:
		app.PaidAt = &now
	}
	return nil
}

// resolveApprovedAmount returns the explicit amount, the program default, or
// the requested amount, in that order
func (s *workflowServiceImpl) resolveApprovedAmount(ctx context.Context, app *entity.Application, explicit *decimal.Decimal) (decimal.Decimal, error) {
	if explicit != nil {
		return *explicit, nil
	}

	if s.programs != nil && app.Fields.ProgramID != "" {
		program, err := s.programs.GetProgram(ctx, app.Fields.ProgramID)
		if err != nil {
			s.logger.Error("Failed to load program for default amount", "program_id", app.Fields.ProgramID, "error", err)
		} else if program.DefaultAmount.IsPositive() {
			return program.DefaultAmount, nil
		}
	}

	if !app.Fields.RequestedAmount.IsPositive() {
		return decimal.Zero, apperr.Validation(apperr.FieldError{
			Field:   "approved_amount",
			Message: "is required: the program has no default and no amount was requested",
		})
	}
	return app.Fields.RequestedAmount, nil
}

func transitionNote(trigger workflow.Trigger, p lifecycle.TransitionPayload) string {
	switch trigger {
	case lifecycle.TriggerReject:
		return p.RejectionReason
	case lifecycle.TriggerRequestInfo:
		return p.Notes
	default:
		return ""
	}
}

func applicationEventType(trigger workflow.Trigger) event.Type {
	switch trigger {
	case lifecycle.TriggerSubmit, lifecycle.TriggerResubmit:
		return event.TypeApplicationSubmitted
	case lifecycle.TriggerApprove:
		return event.TypeApplicationApproved
	case lifecycle.TriggerReject:
		return event.TypeApplicationRejected
	case lifecycle.TriggerRequestInfo:
		return event.TypeApplicationInfoRequested
	case lifecycle.TriggerMarkPaid:
		return event.TypeApplicationPaid
	default:
		return event.TypeApplicationStatusChanged
	}
}

// systemTransition fires a core-initiated edge inside the caller's transaction
func (s *workflowServiceImpl) systemTransition(ctx context.Context, app *entity.Application, to string) error {
	from := app.Status
	trigger, err := lifecycle.CheckApplicationTransition(entity.RoleSystem, from, to, lifecycle.TransitionPayload{})
	if err != nil {
		return err
	}
	if err := s.applyReview(ctx, app, trigger, entity.SystemActor, lifecycle.TransitionPayload{}); err != nil {
		return err
	}

	app.Status = to
	app.UpdatedAt = s.clock.Now()
	if err := s.apps.Save(ctx, app, from); err != nil {
		app.Status = from
		return translate(err, entity.EntityApplication, app.ID)
	}
	return s.recordHistory(ctx, entity.SystemActor, entity.EntityApplication, app.ID, from, to, string(trigger), "")
}

// UpdateApplicationFields replaces the subject fields. Citizens edit their
// own record with the submission gate (none for drafts); officers and admins
// go through the stricter officer gate.
func (s *workflowServiceImpl) UpdateApplicationFields(ctx context.Context, actor entity.Actor, applicationID int64, expectedStatus string, fields entity.ApplicationFields) (*entity.Application, error) {
	const op = "update_application_fields"

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}
	if app.Status != expectedStatus {
		return nil, s.fail(op, apperr.Conflict("application %d is %s, not %s", applicationID, app.Status, expectedStatus))
	}
	if err := lifecycle.CheckApplicationEdit(callerRole(actor), app.CitizenID == actor.ID, app.Status); err != nil {
		return nil, s.fail(op, err, "application_id", applicationID)
	}

	fields.NormalizeBankFields()
	switch {
	case actor.Role.IsStaff():
		err = validation.ValidateOfficerEdit(&fields)
	case app.Status != entity.ApplicationDraft:
		err = validation.ValidateForSubmission(&fields)
	}
	if err != nil {
		return nil, s.fail(op, err, "application_id", applicationID)
	}

	app.Fields = fields
	app.UpdatedAt = s.clock.Now()

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.apps.Save(txCtx, app, expectedStatus); err != nil {
			return translate(err, entity.EntityApplication, applicationID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityApplication, app.ID, app.Status, app.Status, "update_fields", "")
	})
	if err != nil {
		return nil, s.fail(op, err, "application_id", applicationID)
	}

	s.logger.Info("Application fields updated", "application_id", app.ID, "actor_id", actor.ID)
	return app, nil
}

// AddApplicationAttachments admits new files and merges them into the set
func (s *workflowServiceImpl) AddApplicationAttachments(ctx context.Context, actor entity.Actor, applicationID int64, refs []entity.AttachmentRef) (*ApplicationResult, error) {
	const op = "add_application_attachments"

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}
	if err := lifecycle.CheckApplicationEdit(callerRole(actor), app.CitizenID == actor.ID, app.Status); err != nil {
		return nil, s.fail(op, err, "application_id", applicationID)
	}

	accepted, rejected, err := s.resolveAttachments(ctx, refs)
	if err != nil {
		return nil, s.fail(op, err, "application_id", applicationID)
	}
	app.Attachments = attachment.Merge(app.Attachments, accepted)
	app.UpdatedAt = s.clock.Now()

	if err := s.apps.Save(ctx, app, app.Status); err != nil {
		return nil, s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}

	s.logger.Info("Application attachments added", "application_id", app.ID, "accepted", len(accepted), "rejected", len(rejected))
	return &ApplicationResult{Application: app, Rejected: rejected}, nil
}

// DeleteApplication removes a draft or rejected application
func (s *workflowServiceImpl) DeleteApplication(ctx context.Context, actor entity.Actor, applicationID int64) error {
	const op = "delete_application"

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}

	switch {
	case actor.Role == entity.RoleCitizen && app.CitizenID == actor.ID:
	case actor.Role.IsStaff():
	default:
		return s.fail(op, apperr.Unauthorized("actor may not delete application %d", applicationID))
	}
	if err := lifecycle.CheckApplicationDelete(app.Status); err != nil {
		return s.fail(op, err, "application_id", applicationID)
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.apps.Delete(txCtx, applicationID, app.Status); err != nil {
			return translate(err, entity.EntityApplication, applicationID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityApplication, applicationID, app.Status, "", "delete", "")
	})
	if err != nil {
		return s.fail(op, err, "application_id", applicationID)
	}

	s.removeBlobs(ctx, app.Attachments)
	s.notify(ctx, event.TypeApplicationDeleted, entity.EntityApplication, applicationID, actor, nil)
	s.logger.Info("Application deleted", "application_id", applicationID, "actor_id", actor.ID)
	return nil
}

// removeBlobs deletes stored content after its record is gone. Failures leave
// orphaned blobs and are only logged.
func (s *workflowServiceImpl) removeBlobs(ctx context.Context, refs []entity.AttachmentRef) {
	if s.blobs == nil {
		return
	}
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref.ID); err != nil {
			s.logger.Error("Failed to delete attachment blob", "attachment_id", ref.ID, "error", err)
		}
	}
}

// GetApplication returns an application the actor may see. Reading never
// changes the status.
func (s *workflowServiceImpl) GetApplication(ctx context.Context, actor entity.Actor, applicationID int64) (*entity.Application, error) {
	if err := requireKnownActor(actor); err != nil {
		return nil, s.fail("get_application", err)
	}

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, s.fail("get_application", translate(err, entity.EntityApplication, applicationID))
	}
	if !actor.Role.IsStaff() && app.CitizenID != actor.ID {
		return nil, s.fail("get_application", apperr.Unauthorized("application %d belongs to another citizen", applicationID))
	}
	return app, nil
}

// UploadAttachment sniffs the content type, applies the admission rules and
// stores the accepted content under a new opaque id
func (s *workflowServiceImpl) UploadAttachment(ctx context.Context, actor entity.Actor, fileName, declaredMime string, content []byte) (*entity.AttachmentRef, error) {
	const op = "upload_attachment"

	if err := requireKnownActor(actor); err != nil {
		return nil, s.fail(op, err)
	}

	mimeType := s.detectMime(content, declaredMime)
	meta := entity.AttachmentMeta{FileName: fileName, MimeType: mimeType, SizeBytes: int64(len(content))}
	if d := attachment.Validate(meta); !d.Accepted {
		return nil, s.fail(op, apperr.Validation(apperr.FieldError{Field: "file", Message: d.Reason()}), "file_name", fileName)
	}

	id, err := s.blobs.Put(ctx, content)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("store attachment: %w", err), "file_name", fileName)
	}

	ref := &entity.AttachmentRef{
		ID:         id,
		FileName:   fileName,
		MimeType:   mimeType,
		SizeBytes:  meta.SizeBytes,
		UploadedAt: s.clock.Now(),
	}
	s.logger.Info("Attachment uploaded", "attachment_id", id, "file_name", fileName, "mime_type", mimeType, "size_bytes", meta.SizeBytes)
	return ref, nil
}

// detectMime returns the sniffed content type, or fallback when the content
// is not recognised
func (s *workflowServiceImpl) detectMime(content []byte, fallback string) string {
	if s.sniffer == nil {
		return fallback
	}
	if detected := s.sniffer.Detect(content); detected != "" && detected != "application/octet-stream" {
		return detected
	}
	return fallback
}

// resolveAttachments checks references against the blob store. Size and type
// come from the stored content, never from the caller; references to content
// that was never uploaded are rejected.
func (s *workflowServiceImpl) resolveAttachments(ctx context.Context, refs []entity.AttachmentRef) ([]entity.AttachmentRef, []attachment.Rejection, error) {
	resolved := make([]entity.AttachmentRef, 0, len(refs))
	var missing []attachment.Rejection

	for _, ref := range refs {
		content, err := s.blobs.Get(ctx, ref.ID)
		if errors.Is(err, port.ErrNotFound) {
			missing = append(missing, attachment.Rejection{
				FileName: ref.FileName,
				Reason:   attachment.ReasonNotUploaded,
				Detail:   fmt.Sprintf("attachment %q was not uploaded", ref.ID),
			})
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("load attachment %s: %w", ref.ID, err)
		}

		ref.SizeBytes = int64(len(content))
		ref.MimeType = s.detectMime(content, "")
		if ref.UploadedAt.IsZero() {
			ref.UploadedAt = s.clock.Now()
		}
		resolved = append(resolved, ref)
	}

	accepted, rejected := attachment.AdmitRefs(resolved)
	return accepted, append(missing, rejected...), nil
}
