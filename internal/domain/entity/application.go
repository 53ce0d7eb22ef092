package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// HouseholdMember is one person listed in the household section
type HouseholdMember struct {
	Name         string `json:"name"`
	Relationship string `json:"relationship"`
	YearOfBirth  int    `json:"year_of_birth,omitempty"`
}

// ApplicationFields holds the citizen-supplied subject fields of an application
type ApplicationFields struct {
	// Personal
	FullName    string `json:"full_name"`
	IDNumber    string `json:"id_number"`
	Phone       string `json:"phone"`
	DateOfBirth string `json:"date_of_birth"`
	Gender      string `json:"gender"`

	// Address
	Province    string `json:"province"`
	District    string `json:"district"`
	Ward        string `json:"ward"`
	AddressLine string `json:"address_line"`

	// Household
	HouseholdSize    int               `json:"household_size"`
	HousingCondition string            `json:"housing_condition"`
	Members          []HouseholdMember `json:"members"`

	// Program & payment
	ProgramID         string          `json:"program_id"`
	RequestedAmount   decimal.Decimal `json:"requested_amount"`
	PaymentSchedule   string          `json:"payment_schedule"`
	PaymentMethod     string          `json:"payment_method"`
	BankAccountHolder string          `json:"bank_account_holder"`
	BankAccountNumber string          `json:"bank_account_number"`
	BankName          string          `json:"bank_name"`

	// Documents & confirmation
	Notes string `json:"notes"`
}

// UsesBankTransfer returns true if the payment method requires bank details
func (f *ApplicationFields) UsesBankTransfer() bool {
	return f.PaymentMethod == PaymentMethodBankTransfer
}

// NormalizeBankFields clears bank details when the payment method is not a
// bank transfer, keeping the bank-fields-iff-transfer invariant on save.
func (f *ApplicationFields) NormalizeBankFields() {
	if f.UsesBankTransfer() {
		f.BankAccountHolder = strings.TrimSpace(f.BankAccountHolder)
		f.BankAccountNumber = strings.TrimSpace(f.BankAccountNumber)
		f.BankName = strings.TrimSpace(f.BankName)
		return
	}
	f.BankAccountHolder = ""
	f.BankAccountNumber = ""
	f.BankName = ""
}

// Application is a citizen's subsidy request
type Application struct {
	ID          int64             `json:"id"`
	Code        string            `json:"code,omitempty"`
	CitizenID   string            `json:"citizen_id"`
	Status      string            `json:"status"`
	Fields      ApplicationFields `json:"fields"`
	Attachments []AttachmentRef   `json:"attachments"`

	// Review outcome
	ApprovedAmount  *decimal.Decimal `json:"approved_amount,omitempty"`
	RejectionReason string           `json:"rejection_reason,omitempty"`
	ReviewNotes     string           `json:"review_notes,omitempty"`
	ReviewedBy      string           `json:"reviewed_by,omitempty"`

	SubmittedAt *time.Time `json:"submitted_at,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsLocked returns true once no field mutation is permitted
func (a *Application) IsLocked() bool {
	return a.Status == ApplicationPaid || a.Status == ApplicationClosed
}

// PayoutAmount returns the amount to disburse: the approved amount, or the
// fallback when approval left it blank.
func (a *Application) PayoutAmount(fallback decimal.Decimal) decimal.Decimal {
	if a.ApprovedAmount != nil {
		return *a.ApprovedAmount
	}
	return fallback
}
