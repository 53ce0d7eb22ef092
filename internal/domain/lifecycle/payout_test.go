package lifecycle

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
	"github.com/garyjia/benefits-portal/internal/domain/workflow"
)

func row(code, status string, amount int64) *entity.PayoutDetail {
	return &entity.PayoutDetail{ApplicationCode: code, Status: status, Amount: decimal.NewFromInt(amount)}
}

func TestNextBatchStatus(t *testing.T) {
	tests := []struct {
		from    string
		trigger workflow.Trigger
		want    string
		kind    apperr.Kind
	}{
		{entity.BatchPending, TriggerStartBatch, entity.BatchProcessing, ""},
		{entity.BatchPending, TriggerCancelBatch, entity.BatchCancelled, ""},
		{entity.BatchProcessing, TriggerCompleteBatch, entity.BatchCompleted, ""},
		{entity.BatchProcessing, TriggerCancelBatch, entity.BatchCancelled, ""},
		{entity.BatchPending, TriggerCompleteBatch, "", apperr.KindInvalidTransition},
		{entity.BatchCompleted, TriggerCancelBatch, "", apperr.KindInvalidTransition},
		{entity.BatchCancelled, TriggerStartBatch, "", apperr.KindInvalidTransition},
		{"unknown", TriggerStartBatch, "", apperr.KindInvalidState},
	}

	for _, tt := range tests {
		t.Run(tt.from+"/"+tt.trigger.String(), func(t *testing.T) {
			got, err := NextBatchStatus(tt.from, tt.trigger)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestMapStatusLabel(t *testing.T) {
	tests := []struct {
		label string
		want  string
		ok    bool
	}{
		{"Paid", entity.RowPaid, true},
		{"  ĐÃ CHI TRẢ ", entity.RowPaid, true},
		{"da_chi", entity.RowPaid, true},
		{"Thất bại", entity.RowFailed, true},
		{"that-bai", entity.RowFailed, true},
		{"Đang xử lý", entity.RowPending, true},
		{"khong  thanh   cong", entity.RowFailed, true},
		{"refunded?", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := MapStatusLabel(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecomputeTotals(t *testing.T) {
	batch := &entity.PayoutBatch{
		TotalRecipients: 99,
		TotalAmount:     decimal.NewFromInt(1),
		Details: []*entity.PayoutDetail{
			row("HS-1", entity.RowPending, 1000000),
			row("HS-2", entity.RowPaid, 2500000),
		},
	}

	RecomputeTotals(batch)
	assert.Equal(t, 2, batch.TotalRecipients)
	assert.True(t, decimal.NewFromInt(3500000).Equal(batch.TotalAmount))

	batch.Details = nil
	RecomputeTotals(batch)
	assert.Equal(t, 0, batch.TotalRecipients)
	assert.True(t, batch.TotalAmount.IsZero())
}

func TestCheckCompletion(t *testing.T) {
	t.Run("pending row blocks completion", func(t *testing.T) {
		batch := &entity.PayoutBatch{
			Code:   "PB-1",
			Status: entity.BatchProcessing,
			Details: []*entity.PayoutDetail{
				row("HS-2", entity.RowPaid, 10),
				row("HS-1", entity.RowPending, 10),
				row("HS-3", entity.RowFailed, 10),
			},
		}

		err := CheckCompletion(batch)
		require.Error(t, err)
		assert.Equal(t, apperr.KindIncompleteRows, apperr.KindOf(err))
		assert.Equal(t, []apperr.FieldError{{Field: "details[HS-1]", Message: "row is still pending"}}, apperr.FieldsOf(err))
		assert.Contains(t, err.Error(), "1 pending, 1 paid, 1 failed")
	})

	t.Run("all terminal", func(t *testing.T) {
		batch := &entity.PayoutBatch{
			Status:  entity.BatchProcessing,
			Details: []*entity.PayoutDetail{row("HS-1", entity.RowPaid, 10), row("HS-2", entity.RowFailed, 10)},
		}
		assert.NoError(t, CheckCompletion(batch))
	})

	t.Run("pending batch with open row reports rows", func(t *testing.T) {
		batch := &entity.PayoutBatch{
			Code:    "PB-2",
			Status:  entity.BatchPending,
			Details: []*entity.PayoutDetail{row("HS-1", entity.RowPending, 10)},
		}

		err := CheckCompletion(batch)
		require.Error(t, err)
		assert.Equal(t, apperr.KindIncompleteRows, apperr.KindOf(err))
		assert.Equal(t, []apperr.FieldError{{Field: "details[HS-1]", Message: "row is still pending"}}, apperr.FieldsOf(err))
	})

	t.Run("empty pending batch cannot complete", func(t *testing.T) {
		batch := &entity.PayoutBatch{Status: entity.BatchPending}
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(CheckCompletion(batch)))
	})

	t.Run("closed batch cannot complete", func(t *testing.T) {
		batch := &entity.PayoutBatch{
			Status:  entity.BatchCancelled,
			Details: []*entity.PayoutDetail{row("HS-1", entity.RowPending, 10)},
		}
		assert.Equal(t, apperr.KindInvalidTransition, apperr.KindOf(CheckCompletion(batch)))
	})
}

func TestStatusAfterRowUpdate(t *testing.T) {
	assert.Equal(t, entity.BatchProcessing, StatusAfterRowUpdate(entity.BatchPending))
	assert.Equal(t, entity.BatchProcessing, StatusAfterRowUpdate(entity.BatchProcessing))
}

func TestCheckRowMutation(t *testing.T) {
	assert.NoError(t, CheckRowMutation(&entity.PayoutBatch{Status: entity.BatchPending}))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(CheckRowMutation(&entity.PayoutBatch{Status: entity.BatchCompleted})))
	assert.Equal(t, apperr.KindInvalidState, apperr.KindOf(CheckRowMutation(&entity.PayoutBatch{Status: entity.BatchCancelled})))
}

func TestIsEligible(t *testing.T) {
	program := "flood-relief"
	batch := &entity.PayoutBatch{Location: "Dong Da", ProgramID: &program}

	app := func(status, district, programID string) *entity.Application {
		return &entity.Application{Status: status, Fields: entity.ApplicationFields{District: district, ProgramID: programID}}
	}

	assert.True(t, IsEligible(app(entity.ApplicationApproved, "dong da", program), batch, nil))
	assert.False(t, IsEligible(app(entity.ApplicationApproved, "Ba Dinh", program), batch, nil))
	assert.False(t, IsEligible(app(entity.ApplicationApproved, "Dong Da", "other"), batch, nil))
	assert.False(t, IsEligible(app(entity.ApplicationUnderReview, "Dong Da", program), batch, nil))

	retry := app(entity.ApplicationPendingPayment, "Dong Da", program)
	assert.True(t, IsEligible(retry, batch, []*entity.PayoutDetail{row("HS-1", entity.RowFailed, 10)}))
	assert.False(t, IsEligible(retry, batch, []*entity.PayoutDetail{row("HS-1", entity.RowPending, 10)}))
	assert.False(t, IsEligible(retry, batch, []*entity.PayoutDetail{row("HS-1", entity.RowPaid, 10)}))

	allPrograms := &entity.PayoutBatch{Location: "Dong Da"}
	assert.True(t, IsEligible(app(entity.ApplicationApproved, "Dong Da", "any"), allPrograms, nil))
}

func TestCheckPayoutRole(t *testing.T) {
	assert.NoError(t, CheckPayoutRole(entity.RoleOfficer))
	assert.NoError(t, CheckPayoutRole(entity.RoleAdmin))
	assert.Equal(t, apperr.KindUnauthorized, apperr.KindOf(CheckPayoutRole(entity.RoleCitizen)))
}
