package validation

import (
	"github.com/garyjia/benefits-portal/internal/domain/apperr"
	"github.com/garyjia/benefits-portal/internal/domain/entity"
)

// BatchRequest is the input for creating a payout batch
type BatchRequest struct {
	Period    string  `json:"period"`
	Location  string  `json:"location"`
	ProgramID *string `json:"program_id,omitempty"`

	// IncludeEligible seeds the batch with every eligible approved application
	IncludeEligible bool `json:"include_eligible"`
}

// ValidateBatchRequest requires a period and a location
func ValidateBatchRequest(req BatchRequest) error {
	var c apperr.Collector
	c.Require("period", req.Period)
	c.Require("location", req.Location)
	if req.ProgramID != nil && isBlank(*req.ProgramID) {
		c.Add("program_id", "must be omitted or non-empty")
	}
	return c.Err()
}

// ValidateComplaint requires a title and a description
func ValidateComplaint(f *entity.ComplaintFields) error {
	var c apperr.Collector
	c.Require("title", f.Title)
	c.Require("description", f.Description)
	if f.ApplicationID != nil && *f.ApplicationID <= 0 {
		c.Add("application_id", "must be a positive id")
	}
	return c.Err()
}
