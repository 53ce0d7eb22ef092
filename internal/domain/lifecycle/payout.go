package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

// Payout batch triggers
const (
	TriggerStartBatch    workflow.Trigger = "start"
	TriggerCompleteBatch workflow.Trigger = "complete"
	TriggerCancelBatch   workflow.Trigger = "cancel"
)

var batchStates = workflow.NewStateSet(
	entity.BatchPending,
	entity.BatchProcessing,
	entity.BatchCompleted,
	entity.BatchCancelled,
)

var batchBuilder = buildBatchTable()

func buildBatchTable() workflow.StateMachineBuilder {
	b := workflow.NewBuilder(batchStates)

	b.Configure(entity.BatchPending).
		Permit(TriggerStartBatch, entity.BatchProcessing).
		Permit(TriggerCancelBatch, entity.BatchCancelled)

	b.Configure(entity.BatchProcessing).
		Permit(TriggerCompleteBatch, entity.BatchCompleted).
		Permit(TriggerCancelBatch, entity.BatchCancelled)

	// COMPLETED and CANCELLED are terminal

	return b
}

// BatchMachine builds a machine positioned at the given batch status
func BatchMachine(status string) (workflow.StateMachine, error) {
	return batchBuilder.Build(workflow.State(status))
}

// NextBatchStatus returns the status reached by firing trigger from status
func NextBatchStatus(status string, trigger workflow.Trigger) (string, error) {
	machine, err := BatchMachine(status)
	if err != nil {
		return "", apperr.InvalidState("unknown batch status %q", status)
	}
	if !machine.CanFire(trigger) {
		return "", apperr.InvalidTransition("batch in status %s cannot %s", status, trigger)
	}
	if err := machine.Fire(context.Background(), trigger); err != nil {
		return "", apperr.InvalidTransition("%v", err)
	}
	return string(machine.State()), nil
}

// CheckPayoutRole permits payout operations for officers and admins
func CheckPayoutRole(role entity.Role) error {
	if role.IsStaff() {
		return nil
	}
	return apperr.Unauthorized("role %s may not manage payout batches", role)
}

// IsBatchOpen returns true while rows may still be added or updated
func IsBatchOpen(status string) bool {
	return status == entity.BatchPending || status == entity.BatchProcessing
}

// CheckRowMutation permits adding or updating rows only in an open batch
func CheckRowMutation(batch *entity.PayoutBatch) error {
	if IsBatchOpen(batch.Status) {
		return nil
	}
	return apperr.InvalidState("batch %s is %s and no longer accepts row changes", batch.Code, batch.Status)
}

// StatusAfterRowUpdate returns the batch status after a row changes: the
// first row update moves a pending batch to processing.
func StatusAfterRowUpdate(status string) string {
	if status == entity.BatchPending {
		return entity.BatchProcessing
	}
	return status
}

// statusLabels maps normalized reconciliation labels to row states.
// Labels come from bank and treasury exports in English or Vietnamese,
// with or without diacritics.
var statusLabels = map[string]string{
	"pending":          entity.RowPending,
	"processing":       entity.RowPending,
	"cho xu ly":        entity.RowPending,
	"chờ xử lý":        entity.RowPending,
	"dang xu ly":       entity.RowPending,
	"đang xử lý":       entity.RowPending,
	"paid":             entity.RowPaid,
	"success":          entity.RowPaid,
	"successful":       entity.RowPaid,
	"completed":        entity.RowPaid,
	"da chi":           entity.RowPaid,
	"đã chi":           entity.RowPaid,
	"da chi tra":       entity.RowPaid,
	"đã chi trả":       entity.RowPaid,
	"thanh cong":       entity.RowPaid,
	"thành công":       entity.RowPaid,
	"failed":           entity.RowFailed,
	"fail":             entity.RowFailed,
	"error":            entity.RowFailed,
	"returned":         entity.RowFailed,
	"that bai":         entity.RowFailed,
	"thất bại":         entity.RowFailed,
	"loi":              entity.RowFailed,
	"lỗi":              entity.RowFailed,
	"khong thanh cong": entity.RowFailed,
	"không thành công": entity.RowFailed,
}

// NormalizeLabel lower-cases a label and collapses separators to single spaces
func NormalizeLabel(label string) string {
	label = strings.ToLower(label)
	label = strings.NewReplacer("_", " ", "-", " ").Replace(label)
	return strings.Join(strings.Fields(label), " ")
}

// MapStatusLabel maps an imported status label to the canonical row state
func MapStatusLabel(label string) (string, bool) {
	state, ok := statusLabels[NormalizeLabel(label)]
	return state, ok
}

// IsRowState returns true for pending, paid and failed
func IsRowState(state string) bool {
	return state == entity.RowPending || state == entity.RowPaid || state == entity.RowFailed
}

// RecomputeTotals derives the batch aggregates from its rows
func RecomputeTotals(batch *entity.PayoutBatch) {
	total := decimal.Zero
	for _, d := range batch.Details {
		total = total.Add(d.Amount)
	}
	batch.TotalAmount = total
	batch.TotalRecipients = len(batch.Details)
}

// RowBreakdown counts rows per row state
type RowBreakdown struct {
	Pending int `json:"pending"`
	Paid    int `json:"paid"`
	Failed  int `json:"failed"`
}

// Breakdown counts the batch rows per row state
func Breakdown(details []*entity.PayoutDetail) RowBreakdown {
	var b RowBreakdown
	for _, d := range details {
		switch d.Status {
		case entity.RowPaid:
			b.Paid++
		case entity.RowFailed:
			b.Failed++
		default:
			b.Pending++
		}
	}
	return b
}

// CheckCompletion permits completion of a processing batch whose rows are
// all paid or failed. An open batch with non-terminal rows reports every one
// of them, whatever its status.
func CheckCompletion(batch *entity.PayoutBatch) error {
	if !IsBatchOpen(batch.Status) {
		_, err := NextBatchStatus(batch.Status, TriggerCompleteBatch)
		return err
	}

	var open []apperr.FieldError
	for _, d := range batch.Details {
		if !d.IsTerminal() {
			open = append(open, apperr.FieldError{
				Field:   fmt.Sprintf("details[%s]", rowKey(d)),
				Message: fmt.Sprintf("row is still %s", d.Status),
			})
		}
	}
	if len(open) > 0 {
		sort.Slice(open, func(i, j int) bool { return open[i].Field < open[j].Field })
		b := Breakdown(batch.Details)
		err := apperr.IncompleteRows("batch %s has %d pending, %d paid, %d failed row(s)", batch.Code, b.Pending, b.Paid, b.Failed)
		err.Fields = open
		return err
	}

	_, err := NextBatchStatus(batch.Status, TriggerCompleteBatch)
	return err
}

func rowKey(d *entity.PayoutDetail) string {
	if d.ApplicationCode != "" {
		return d.ApplicationCode
	}
	return fmt.Sprintf("%d", d.ApplicationID)
}

// IsEligible decides whether an application may be added to a batch.
// history holds the application's rows in batches that were not cancelled.
func IsEligible(app *entity.Application, batch *entity.PayoutBatch, history []*entity.PayoutDetail) bool {
	switch app.Status {
	case entity.ApplicationApproved:
	case entity.ApplicationPendingPayment:
		for _, d := range history {
			if d.Status == entity.RowPending || d.Status == entity.RowPaid {
				return false
			}
		}
	default:
		return false
	}

	if !strings.EqualFold(strings.TrimSpace(app.Fields.District), strings.TrimSpace(batch.Location)) {
		return false
	}
	if batch.ProgramID != nil && *batch.ProgramID != app.Fields.ProgramID {
		return false
	}
	return true
}
