package event

// Type identifies the type of domain event
type Type string

const (
	TypeApplicationSubmitted     Type = "application.submitted"
	TypeApplicationStatusChanged Type = "application.status_changed"
	TypeApplicationApproved      Type = "application.approved"
	TypeApplicationRejected      Type = "application.rejected"
	TypeApplicationInfoRequested Type = "application.info_requested"
	TypeApplicationPaid          Type = "application.paid"
	TypeApplicationDeleted       Type = "application.deleted"
	TypePayoutBatchCreated       Type = "payout_batch.created"
	TypePayoutBatchImported      Type = "payout_batch.imported"
	TypePayoutBatchCompleted     Type = "payout_batch.completed"
	TypePayoutBatchCancelled     Type = "payout_batch.cancelled"
	TypeComplaintSubmitted       Type = "complaint.submitted"
	TypeComplaintAssigned        Type = "complaint.assigned"
	TypeComplaintStatusChanged   Type = "complaint.status_changed"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeApplicationSubmitted,
		TypeApplicationStatusChanged,
		TypeApplicationApproved,
		TypeApplicationRejected,
		TypeApplicationInfoRequested,
		TypeApplicationPaid,
		TypeApplicationDeleted,
		TypePayoutBatchCreated,
		TypePayoutBatchImported,
		TypePayoutBatchCompleted,
		TypePayoutBatchCancelled,
		TypeComplaintSubmitted,
		TypeComplaintAssigned,
		TypeComplaintStatusChanged:
		return true
	default:
		return false
	}
}
