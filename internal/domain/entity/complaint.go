package entity

import "time"

// Complaint is a citizen's issue report, optionally tied to an application
type Complaint struct {
	ID                int64           `json:"id"`
	Code              string          `json:"code"`
	CitizenID         string          `json:"citizen_id"`
	ApplicationID     *int64          `json:"application_id,omitempty"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Attachments       []AttachmentRef `json:"attachments"`
	Status            string          `json:"status"`
	AssignedOfficerID string          `json:"assigned_officer_id,omitempty"`
	Resolution        string          `json:"resolution,omitempty"`
	ResolvedBy        string          `json:"resolved_by,omitempty"`
	ResolvedAt        *time.Time      `json:"resolved_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// ComplaintFields holds the citizen-editable part of a complaint
type ComplaintFields struct {
	Title         string `json:"title"`
	Description   string `json:"description"`
	ApplicationID *int64 `json:"application_id,omitempty"`
}
