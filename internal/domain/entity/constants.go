package entity

// Application status constants
const (
	ApplicationDraft                  = "draft"
	ApplicationPending                = "pending"
	ApplicationUnderReview            = "under_review"
	ApplicationApproved               = "approved"
	ApplicationRejected               = "rejected"
	ApplicationAdditionalInfoRequired = "additional_info_required"
	ApplicationPendingPayment         = "pending_payment"
	ApplicationPaid                   = "paid"
	ApplicationClosed                 = "closed"
)

// PayoutBatch status constants
const (
	BatchPending    = "pending"
	BatchProcessing = "processing"
	BatchCompleted  = "completed"
	BatchCancelled  = "cancelled"
)

// PayoutDetail row-state constants
const (
	RowPending = "pending"
	RowPaid    = "paid"
	RowFailed  = "failed"
)

// Complaint status constants
const (
	ComplaintPending    = "pending"
	ComplaintInProgress = "in_progress"
	ComplaintResolved   = "resolved"
	ComplaintRejected   = "rejected"
)

// Payment method constants
const (
	PaymentMethodBankTransfer = "chuyen-khoan" // chuyển khoản
	PaymentMethodCash         = "tien-mat"     // tiền mặt
)

// Entity type constants used by status history and events
const (
	EntityApplication = "application"
	EntityPayoutBatch = "payout_batch"
	EntityComplaint   = "complaint"
)
