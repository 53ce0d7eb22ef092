package service

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/event"
	"github.com/garyjia/benefits-portal/internal/domain/lifecycle"
	"github.com/garyjia/benefits-portal/internal/domain/validation"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

// PayoutWorkflow covers payout batches and their reconciliation
type PayoutWorkflow interface {
	CreatePayoutBatch(ctx context.Context, actor entity.Actor, req validation.BatchRequest) (*entity.PayoutBatch, error)
	AddEligibleApplications(ctx context.Context, actor entity.Actor, batchID int64) (int, error)
	AddPayoutDetail(ctx context.Context, actor entity.Actor, batchID, applicationID int64, amount *decimal.Decimal) (*entity.PayoutDetail, error)
	SetPayoutDetailStatus(ctx context.Context, actor entity.Actor, detailID int64, statusLabel string) (*entity.PayoutDetail, error)
	StartPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error)
	CancelPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error)
	GetPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error)
	ImportPayoutRows(ctx context.Context, actor entity.Actor, rows []entity.PayoutStatusRow) (*ImportResult, error)
	ImportPayoutFile(ctx context.Context, actor entity.Actor, fileName string, r io.Reader) (*ImportResult, error)
	CompletePayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*CompletionResult, error)
}

// RowIssue is an imported or propagated row that could not be applied
type RowIssue struct {
	Line            int    `json:"line,omitempty"`
	BatchCode       string `json:"batch_code,omitempty"`
	ApplicationCode string `json:"application_code,omitempty"`
	Reason          string `json:"reason"`
}

// ImportResult reports a reconciliation run. Partial success is normal.
type ImportResult struct {
	MatchedCount   int        `json:"matched_count"`
	UpdatedRows    int        `json:"updated_rows"`
	UnmatchedCodes []string   `json:"unmatched_codes"`
	Issues         []RowIssue `json:"issues,omitempty"`
}

// CompletionResult reports a batch completion and the paid propagation
type CompletionResult struct {
	Batch            *entity.PayoutBatch    `json:"batch"`
	Breakdown        lifecycle.RowBreakdown `json:"breakdown"`
	PaidApplications int                    `json:"paid_applications"`
	Issues           []RowIssue             `json:"issues,omitempty"`
}

func (s *workflowServiceImpl) loadBatch(ctx context.Context, batchID int64) (*entity.PayoutBatch, error) {
	batch, err := s.payouts.GetBatch(ctx, batchID)
	if err != nil {
		return nil, translate(err, entity.EntityPayoutBatch, batchID)
	}
	return batch, nil
}

// CreatePayoutBatch creates an empty pending batch, optionally seeded with
// every eligible application
func (s *workflowServiceImpl) CreatePayoutBatch(ctx context.Context, actor entity.Actor, req validation.BatchRequest) (*entity.PayoutBatch, error) {
	const op = "create_payout_batch"

	if err := validation.ValidateBatchRequest(req); err != nil {
		return nil, s.fail(op, err)
	}
	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}

	now := s.clock.Now()
	batch := &entity.PayoutBatch{
		Code:        s.codes.BatchCode(),
		Period:      strings.TrimSpace(req.Period),
		Location:    strings.TrimSpace(req.Location),
		ProgramID:   req.ProgramID,
		Status:      entity.BatchPending,
		TotalAmount: decimal.Zero,
		CreatedBy:   actor.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payouts.CreateBatch(txCtx, batch); err != nil {
			return fmt.Errorf("create batch: %w", err)
		}
		return s.recordHistory(txCtx, actor, entity.EntityPayoutBatch, batch.ID, "", batch.Status, "create", "")
	})
	if err != nil {
		return nil, s.fail(op, err)
	}

	s.notify(ctx, event.TypePayoutBatchCreated, entity.EntityPayoutBatch, batch.ID, actor, map[string]interface{}{"code": batch.Code})
	s.logger.Info("Payout batch created", "batch_id", batch.ID, "code", batch.Code, "period", batch.Period, "location", batch.Location)

	if req.IncludeEligible {
		if _, err := s.AddEligibleApplications(ctx, actor, batch.ID); err != nil {
			return nil, err
		}
		return s.loadBatch(ctx, batch.ID)
	}
	return batch, nil
}

// AddEligibleApplications adds a row for every eligible application. Each
// application is added in its own transaction; one failure does not undo the
// others.
func (s *workflowServiceImpl) AddEligibleApplications(ctx context.Context, actor entity.Actor, batchID int64) (int, error) {
	const op = "add_eligible_applications"

	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return 0, s.fail(op, err)
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return 0, s.fail(op, err)
	}
	if err := lifecycle.CheckRowMutation(batch); err != nil {
		return 0, s.fail(op, err)
	}

	candidates, err := s.apps.ListByStatus(ctx, entity.ApplicationApproved, entity.ApplicationPendingPayment)
	if err != nil {
		return 0, s.fail(op, fmt.Errorf("list payable applications: %w", err))
	}

	added := 0
	for _, app := range candidates {
		history, err := s.payouts.ListActiveDetailsByApplication(ctx, app.ID)
		if err != nil {
			s.logger.Error("Failed to load payout rows", "application_id", app.ID, "error", err)
			continue
		}
		if !lifecycle.IsEligible(app, batch, history) {
			continue
		}
		if _, err := s.addDetail(ctx, actor, batch, app, nil); err != nil {
			s.logger.Info("Skipped application while filling batch", "batch_id", batchID, "application_id", app.ID, "error", err)
			continue
		}
		added++
	}

	s.logger.Info("Eligible applications added", "batch_id", batchID, "added", added, "candidates", len(candidates))
	return added, nil
}

// AddPayoutDetail adds one application to a batch
func (s *workflowServiceImpl) AddPayoutDetail(ctx context.Context, actor entity.Actor, batchID, applicationID int64, amount *decimal.Decimal) (*entity.PayoutDetail, error) {
	const op = "add_payout_detail"

	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := lifecycle.CheckRowMutation(batch); err != nil {
		return nil, s.fail(op, err)
	}

	app, err := s.apps.Get(ctx, applicationID)
	if err != nil {
		return nil, s.fail(op, translate(err, entity.EntityApplication, applicationID))
	}
	history, err := s.payouts.ListActiveDetailsByApplication(ctx, applicationID)
	if err != nil {
		return nil, s.fail(op, fmt.Errorf("list payout rows: %w", err))
	}
	if !lifecycle.IsEligible(app, batch, history) {
		return nil, s.fail(op, apperr.InvalidState("application %d is not eligible for batch %s", applicationID, batch.Code))
	}

	detail, err := s.addDetail(ctx, actor, batch, app, amount)
	if err != nil {
		return nil, s.fail(op, err, "batch_id", batchID, "application_id", applicationID)
	}
	return detail, nil
}

// addDetail creates the row, moves an approved application to
// pending_payment and recomputes the batch totals in one transaction
func (s *workflowServiceImpl) addDetail(ctx context.Context, actor entity.Actor, batch *entity.PayoutBatch, app *entity.Application, amount *decimal.Decimal) (*entity.PayoutDetail, error) {
	value := app.PayoutAmount(app.Fields.RequestedAmount)
	if amount != nil {
		value = *amount
	}
	if !value.IsPositive() {
		return nil, apperr.Validation(apperr.FieldError{Field: "amount", Message: "must be greater than zero"})
	}

	now := s.clock.Now()
	detail := &entity.PayoutDetail{
		BatchID:         batch.ID,
		ApplicationID:   app.ID,
		ApplicationCode: app.Code,
		CitizenName:     app.Fields.FullName,
		Amount:          value,
		Status:          entity.RowPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	details, version := batch.Details, batch.Version
	enqueue := app.Status == entity.ApplicationApproved
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payouts.AddDetail(txCtx, detail); err != nil {
			return fmt.Errorf("add detail: %w", err)
		}
		if enqueue {
			if err := s.systemTransition(txCtx, app, entity.ApplicationPendingPayment); err != nil {
				return err
			}
		}

		batch.Details = append(batch.Details, detail)
		lifecycle.RecomputeTotals(batch)
		batch.UpdatedAt = now
		if err := s.payouts.SaveBatch(txCtx, batch, batch.Status); err != nil {
			return translate(err, entity.EntityPayoutBatch, batch.ID)
		}
		return nil
	})
	if err != nil {
		batch.Details, batch.Version = details, version
		lifecycle.RecomputeTotals(batch)
		return nil, err
	}

	if enqueue {
		s.metrics.TransitionApplied(entity.EntityApplication, entity.ApplicationApproved, entity.ApplicationPendingPayment)
	}
	s.logger.Info("Payout detail added",
		"batch_id", batch.ID,
		"application_id", app.ID,
		"amount", value.String(),
		"total_amount", batch.TotalAmount.String(),
		"actor_id", actor.ID,
	)
	return detail, nil
}

// SetPayoutDetailStatus updates one row from a status label
func (s *workflowServiceImpl) SetPayoutDetailStatus(ctx context.Context, actor entity.Actor, detailID int64, statusLabel string) (*entity.PayoutDetail, error) {
	const op = "set_payout_detail_status"

	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}
	state, ok := lifecycle.MapStatusLabel(statusLabel)
	if !ok {
		return nil, s.fail(op, apperr.Validation(apperr.FieldError{Field: "status_label", Message: fmt.Sprintf("unknown status label %q", statusLabel)}))
	}

	detail, err := s.payouts.GetDetail(ctx, detailID)
	if err != nil {
		return nil, s.fail(op, translate(err, "payout detail", detailID))
	}
	batch, err := s.loadBatch(ctx, detail.BatchID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := lifecycle.CheckRowMutation(batch); err != nil {
		return nil, s.fail(op, err)
	}

	target := findDetail(batch, detail.ID)
	if target == nil {
		return nil, s.fail(op, apperr.NotFound("payout detail %d not found in batch %s", detailID, batch.Code))
	}
	if err := s.updateRow(ctx, actor, batch, target, state, statusLabel); err != nil {
		return nil, s.fail(op, err, "detail_id", detailID)
	}
	return target, nil
}

func findDetail(batch *entity.PayoutBatch, id int64) *entity.PayoutDetail {
	for _, d := range batch.Details {
		if d.ID == id {
			return d
		}
	}
	return nil
}

// updateRow writes one row state and moves a pending batch to processing
func (s *workflowServiceImpl) updateRow(ctx context.Context, actor entity.Actor, batch *entity.PayoutBatch, detail *entity.PayoutDetail, state, label string) error {
	prevRow, prevLabel := detail.Status, detail.StatusLabel
	prevBatch, prevVersion := batch.Status, batch.Version
	now := s.clock.Now()

	detail.Status = state
	detail.StatusLabel = label
	detail.UpdatedAt = now
	batch.Status = lifecycle.StatusAfterRowUpdate(prevBatch)
	batch.UpdatedAt = now
	lifecycle.RecomputeTotals(batch)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payouts.UpdateDetail(txCtx, detail, prevRow); err != nil {
			return translate(err, "payout detail", detail.ID)
		}
		if err := s.payouts.SaveBatch(txCtx, batch, prevBatch); err != nil {
			return translate(err, entity.EntityPayoutBatch, batch.ID)
		}
		if batch.Status != prevBatch {
			return s.recordHistory(txCtx, actor, entity.EntityPayoutBatch, batch.ID, prevBatch, batch.Status, string(lifecycle.TriggerStartBatch), "first row updated")
		}
		return nil
	})
	if err != nil {
		detail.Status, detail.StatusLabel = prevRow, prevLabel
		batch.Status, batch.Version = prevBatch, prevVersion
		lifecycle.RecomputeTotals(batch)
		return err
	}

	if batch.Status != prevBatch {
		s.metrics.TransitionApplied(entity.EntityPayoutBatch, prevBatch, batch.Status)
	}
	return nil
}

// StartPayoutBatch moves a pending batch to processing
func (s *workflowServiceImpl) StartPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error) {
	return s.fireBatch(ctx, "start_payout_batch", actor, batchID, lifecycle.TriggerStartBatch)
}

// CancelPayoutBatch cancels a pending or processing batch. Its rows stop
// counting towards eligibility, so the applications can join a later batch.
func (s *workflowServiceImpl) CancelPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error) {
	return s.fireBatch(ctx, "cancel_payout_batch", actor, batchID, lifecycle.TriggerCancelBatch)
}

func (s *workflowServiceImpl) fireBatch(ctx context.Context, op string, actor entity.Actor, batchID int64, trigger workflow.Trigger) (*entity.PayoutBatch, error) {
	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, s.fail(op, err)
	}

	from := batch.Status
	to, err := lifecycle.NextBatchStatus(from, trigger)
	if err != nil {
		return nil, s.fail(op, err, "batch_id", batchID)
	}

	version := batch.Version
	batch.Status = to
	batch.UpdatedAt = s.clock.Now()
	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payouts.SaveBatch(txCtx, batch, from); err != nil {
			return translate(err, entity.EntityPayoutBatch, batchID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityPayoutBatch, batchID, from, to, string(trigger), "")
	})
	if err != nil {
		batch.Status, batch.Version = from, version
		return nil, s.fail(op, err, "batch_id", batchID)
	}

	s.metrics.TransitionApplied(entity.EntityPayoutBatch, from, to)
	if trigger == lifecycle.TriggerCancelBatch {
		s.notify(ctx, event.TypePayoutBatchCancelled, entity.EntityPayoutBatch, batchID, actor, map[string]interface{}{"code": batch.Code})
	}
	s.logger.Info("Payout batch transitioned", "batch_id", batchID, "from", from, "to", to, "actor_id", actor.ID)
	return batch, nil
}

// GetPayoutBatch returns a batch with its rows
func (s *workflowServiceImpl) GetPayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*entity.PayoutBatch, error) {
	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail("get_payout_batch", err)
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, s.fail("get_payout_batch", err)
	}
	return batch, nil
}

// ImportPayoutFile parses a CSV or XLSX reconciliation file and imports it
func (s *workflowServiceImpl) ImportPayoutFile(ctx context.Context, actor entity.Actor, fileName string, r io.Reader) (*ImportResult, error) {
	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail("import_payout_file", err)
	}
	if s.parser == nil {
		return nil, s.fail("import_payout_file", fmt.Errorf("no payout file parser configured"))
	}

	rows, err := s.parser.Parse(fileName, r)
	if err != nil {
		return nil, s.fail("import_payout_file", apperr.Validation(apperr.FieldError{Field: "file", Message: err.Error()}), "file_name", fileName)
	}
	return s.ImportPayoutRows(ctx, actor, rows)
}

// ImportPayoutRows applies typed reconciliation rows. Every row is applied on
// its own; codes that match no batch are returned, never dropped.
func (s *workflowServiceImpl) ImportPayoutRows(ctx context.Context, actor entity.Actor, rows []entity.PayoutStatusRow) (*ImportResult, error) {
	const op = "import_payout_rows"

	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}

	result := &ImportResult{UnmatchedCodes: []string{}}
	batches := make(map[string]*entity.PayoutBatch)
	missing := make(map[string]bool)
	touched := make(map[int64]*entity.PayoutBatch)

	for _, row := range rows {
		code := strings.TrimSpace(row.BatchCode)
		issue := func(reason string) {
			result.Issues = append(result.Issues, RowIssue{Line: row.Line, BatchCode: code, ApplicationCode: row.ApplicationCode, Reason: reason})
		}

		if code == "" {
			issue("missing batch_code")
			continue
		}
		if missing[code] {
			continue
		}

		batch, ok := batches[code]
		if !ok {
			loaded, err := s.payouts.GetBatchByCode(ctx, code)
			if err != nil {
				if apperr.KindOf(translate(err, "", code)) != apperr.KindNotFound {
					return nil, s.fail(op, fmt.Errorf("load batch %s: %w", code, err))
				}
				missing[code] = true
				result.UnmatchedCodes = append(result.UnmatchedCodes, code)
				continue
			}
			batch = loaded
			batches[code] = batch
		}

		state, ok := lifecycle.MapStatusLabel(row.StatusLabel)
		if !ok {
			issue(fmt.Sprintf("unknown status label %q", row.StatusLabel))
			continue
		}
		if !lifecycle.IsBatchOpen(batch.Status) {
			issue(fmt.Sprintf("batch is %s", batch.Status))
			continue
		}

		targets := importTargets(batch, row.ApplicationCode)
		if row.ApplicationCode != "" && len(targets) == 0 {
			issue("application code not found in batch")
			continue
		}

		updated := 0
		for _, d := range targets {
			if err := s.updateRow(ctx, actor, batch, d, state, row.StatusLabel); err != nil {
				issue(fmt.Sprintf("row %s: %v", d.ApplicationCode, err))
				continue
			}
			updated++
		}

		result.MatchedCount++
		result.UpdatedRows += updated
		touched[batch.ID] = batch
	}

	for id, batch := range touched {
		s.notify(ctx, event.TypePayoutBatchImported, entity.EntityPayoutBatch, id, actor, map[string]interface{}{
			"code":         batch.Code,
			"total_amount": batch.TotalAmount.String(),
		})
	}

	s.metrics.RowsImported(result.MatchedCount, len(result.UnmatchedCodes), len(result.Issues))
	s.logger.Info("Payout rows imported",
		"rows", len(rows),
		"matched", result.MatchedCount,
		"updated_rows", result.UpdatedRows,
		"unmatched_codes", len(result.UnmatchedCodes),
		"issues", len(result.Issues),
	)
	return result, nil
}

// importTargets returns the row named by applicationCode, or every
// non-terminal row when no application code is given
func importTargets(batch *entity.PayoutBatch, applicationCode string) []*entity.PayoutDetail {
	var out []*entity.PayoutDetail
	code := strings.TrimSpace(applicationCode)
	for _, d := range batch.Details {
		if code != "" {
			if strings.EqualFold(d.ApplicationCode, code) {
				out = append(out, d)
			}
			continue
		}
		if !d.IsTerminal() {
			out = append(out, d)
		}
	}
	return out
}

// CompletePayoutBatch completes a processing batch whose rows are all
// terminal, then marks the applications of paid rows as paid one by one.
func (s *workflowServiceImpl) CompletePayoutBatch(ctx context.Context, actor entity.Actor, batchID int64) (*CompletionResult, error) {
	const op = "complete_payout_batch"

	if err := lifecycle.CheckPayoutRole(callerRole(actor)); err != nil {
		return nil, s.fail(op, err)
	}
	batch, err := s.loadBatch(ctx, batchID)
	if err != nil {
		return nil, s.fail(op, err)
	}
	if err := lifecycle.CheckCompletion(batch); err != nil {
		return nil, s.fail(op, err, "batch_id", batchID)
	}

	from, version := batch.Status, batch.Version
	now := s.clock.Now()
	batch.Status = entity.BatchCompleted
	batch.CompletedAt = &now
	batch.UpdatedAt = now
	lifecycle.RecomputeTotals(batch)

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.payouts.SaveBatch(txCtx, batch, from); err != nil {
			return translate(err, entity.EntityPayoutBatch, batchID)
		}
		return s.recordHistory(txCtx, actor, entity.EntityPayoutBatch, batchID, from, batch.Status, string(lifecycle.TriggerCompleteBatch), "")
	})
	if err != nil {
		batch.Status, batch.CompletedAt, batch.Version = from, nil, version
		return nil, s.fail(op, err, "batch_id", batchID)
	}
	s.metrics.TransitionApplied(entity.EntityPayoutBatch, from, batch.Status)

	result := &CompletionResult{Batch: batch, Breakdown: lifecycle.Breakdown(batch.Details)}
	for _, d := range batch.Details {
		if d.Status != entity.RowPaid {
			continue
		}
		if err := s.markPaid(ctx, d); err != nil {
			result.Issues = append(result.Issues, RowIssue{BatchCode: batch.Code, ApplicationCode: d.ApplicationCode, Reason: err.Error()})
			s.logger.Error("Failed to propagate paid status", "batch_id", batchID, "application_id", d.ApplicationID, "error", err)
			continue
		}
		result.PaidApplications++
	}

	s.notify(ctx, event.TypePayoutBatchCompleted, entity.EntityPayoutBatch, batchID, actor, map[string]interface{}{
		"code":         batch.Code,
		"paid":         result.Breakdown.Paid,
		"failed":       result.Breakdown.Failed,
		"total_amount": batch.TotalAmount.String(),
	})
	s.logger.Info("Payout batch completed",
		"batch_id", batchID,
		"paid_rows", result.Breakdown.Paid,
		"failed_rows", result.Breakdown.Failed,
		"paid_applications", result.PaidApplications,
		"issues", len(result.Issues),
	)
	return result, nil
}

// markPaid moves the row's application from pending_payment to paid.
// An application that is already paid is left alone.
func (s *workflowServiceImpl) markPaid(ctx context.Context, d *entity.PayoutDetail) error {
	app, err := s.apps.Get(ctx, d.ApplicationID)
	if err != nil {
		return translate(err, entity.EntityApplication, d.ApplicationID)
	}
	if app.Status == entity.ApplicationPaid {
		return nil
	}

	err = s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return s.systemTransition(txCtx, app, entity.ApplicationPaid)
	})
	if err != nil {
		return err
	}

	s.metrics.TransitionApplied(entity.EntityApplication, entity.ApplicationPendingPayment, entity.ApplicationPaid)
	s.notify(ctx, event.TypeApplicationPaid, entity.EntityApplication, app.ID, entity.SystemActor, map[string]interface{}{
		"code":   app.Code,
		"amount": d.Amount.String(),
	})
	return nil
}
