package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// PayoutDetail is one recipient line of a payout batch
type PayoutDetail struct {
	ID              int64           `json:"id"`
	BatchID         int64           `json:"batch_id"`
	ApplicationID   int64           `json:"application_id"`
	ApplicationCode string          `json:"application_code"`
	CitizenName     string          `json:"citizen_name"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	StatusLabel     string          `json:"status_label,omitempty"`
	Note            string          `json:"note,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// IsTerminal returns true if the row has reached paid or failed
func (d *PayoutDetail) IsTerminal() bool {
	return d.Status == RowPaid || d.Status == RowFailed
}

// PayoutBatch is a disbursement run for a period and location
type PayoutBatch struct {
	ID        int64   `json:"id"`
	Code      string  `json:"code"`
	Period    string  `json:"period"`
	Location  string  `json:"location"`
	ProgramID *string `json:"program_id,omitempty"`
	Status    string  `json:"status"`

	// Derived from Details, never taken from input
	TotalRecipients int             `json:"total_recipients"`
	TotalAmount     decimal.Decimal `json:"total_amount"`

	// Bumped on every write; a stale copy cannot overwrite a newer one
	Version int64 `json:"version"`

	CreatedBy   string          `json:"created_by"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	Details     []*PayoutDetail `json:"details,omitempty"`
}

// PayoutStatusRow is one typed row of a reconciliation file
type PayoutStatusRow struct {
	Line            int    `json:"line"`
	BatchCode       string `json:"batch_code"`
	ApplicationCode string `json:"application_code,omitempty"`
	StatusLabel     string `json:"status_label"`
}
